package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"earnings-analyst/internal/analysis"
	"earnings-analyst/internal/interfaces"
	"earnings-analyst/internal/logger"
	"earnings-analyst/internal/provider/gemini"
	"earnings-analyst/internal/provider/noop"
	"earnings-analyst/internal/provider/openai"
	"earnings-analyst/internal/provider/providerobs"
	"earnings-analyst/internal/store"
	"earnings-analyst/internal/trace"
	"earnings-analyst/internal/transcripts"
	"earnings-analyst/internal/types"
)

// initializeSystem initializes env, tracer and logger
func initializeSystem() error {
	// Load environment variables
	_ = godotenv.Load()

	// Tracer first so the logger can enrich records with trace IDs
	if err := trace.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize tracer: %v\n", err)
	}

	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	return nil
}

// loadConfig loads and returns the configuration
func loadConfig(ctx context.Context, path string) (*store.Config, error) {
	cfg, err := store.LoadConfig(path)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err)
		return nil, err
	}
	return cfg, nil
}

// initializeAnalyzers builds both provider clients with observability. In
// DRY_RUN mode missing credentials fall back to noop analyzers; in LIVE mode
// a missing credential is fatal here, at wiring time.
func initializeAnalyzers(ctx context.Context, cfg *store.Config) (openaiA, geminiA interfaces.Analyzer, err error) {
	if cfg.Mode == "DRY_RUN" {
		logger.Warn(ctx, "Running in DRY_RUN mode - provider calls will be simulated")
		return providerobs.Wrap(noop.New(types.ProviderOpenAI)),
			providerobs.Wrap(noop.New(types.ProviderGemini)), nil
	}

	oa, err := openai.New(os.Getenv("OPENAI_API_KEY"), cfg.Providers.OpenAI)
	if err != nil {
		return nil, nil, err
	}
	ga, err := gemini.New(os.Getenv("GEMINI_API_KEY"), cfg.Providers.Gemini)
	if err != nil {
		return nil, nil, err
	}

	logger.Info(ctx, "Provider clients initialized",
		"openai_model", cfg.Providers.OpenAI.Model,
		"gemini_model", cfg.Providers.Gemini.Model,
	)
	return providerobs.Wrap(oa), providerobs.Wrap(ga), nil
}

// initializeTranscriptSource builds the primary API source, chained with the
// page scraper fallback when enabled.
func initializeTranscriptSource(ctx context.Context, cfg *store.Config) (interfaces.TranscriptSource, error) {
	ninjas, err := transcripts.NewNinjasSource(
		os.Getenv("API_NINJAS_KEY"),
		cfg.Transcripts.BaseURL,
		time.Duration(cfg.Transcripts.TimeoutSeconds)*time.Second,
	)
	if err != nil {
		return nil, err
	}

	if !cfg.Transcripts.FallbackScraper {
		return ninjas, nil
	}

	logger.Info(ctx, "Fallback transcript scraper enabled")
	scraper := transcripts.NewScrapeSource(time.Duration(cfg.Transcripts.TimeoutSeconds) * time.Second)
	return transcripts.NewSourceChain(ninjas, scraper), nil
}

// initializeOrchestrator wires both analyzers under the configured budgets
func initializeOrchestrator(cfg *store.Config, openaiA, geminiA interfaces.Analyzer) *analysis.Orchestrator {
	perCall := cfg.Providers.OpenAI.TimeoutSeconds
	if cfg.Providers.Gemini.TimeoutSeconds > perCall {
		perCall = cfg.Providers.Gemini.TimeoutSeconds
	}
	return analysis.NewOrchestrator(openaiA, geminiA, analysis.OrchestratorConfig{
		PerProviderTimeout: time.Duration(perCall) * time.Second,
		OverallTimeout:     time.Duration(cfg.Analysis.OverallTimeoutSeconds) * time.Second,
	})
}
