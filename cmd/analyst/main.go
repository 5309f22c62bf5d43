package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"

	"earnings-analyst/internal/analysis"
	"earnings-analyst/internal/logger"
	"earnings-analyst/internal/store"
	"earnings-analyst/internal/trace"
	"earnings-analyst/internal/types"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configPath  = flag.String("config", "config.yaml", "path to YAML config")
		ticker      = flag.String("ticker", "", "stock ticker symbol (e.g. MSFT)")
		year        = flag.Int("year", 0, "fiscal year of the earnings call")
		quarter     = flag.Int("quarter", 0, "fiscal quarter (1-4)")
		instruction = flag.String("instruction", "", "analysis directive (default from config)")
		userID      = flag.String("user", "cli", "user id the report is generated for")
	)
	flag.Parse()

	if err := initializeSystem(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	ctx := context.Background()
	defer func() { _ = trace.Shutdown(ctx) }()

	cfg, err := loadConfig(ctx, *configPath)
	if err != nil {
		return 1
	}

	if *ticker == "" || *year == 0 || *quarter == 0 {
		fmt.Fprintln(os.Stderr, "usage: analyst -ticker MSFT -year 2025 -quarter 1 [-instruction ...]")
		return 2
	}

	directive := *instruction
	if directive == "" {
		directive = cfg.Analysis.DefaultInstruction
	}

	openaiA, geminiA, err := initializeAnalyzers(ctx, cfg)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to initialize provider clients", err)
		return 1
	}

	source, err := initializeTranscriptSource(ctx, cfg)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to initialize transcript source", err)
		return 1
	}

	reports, err := store.NewReportStore(cfg.Reports.Dir)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to initialize report store", err)
		return 1
	}

	transcript, err := source.FetchTranscript(ctx, *ticker, *year, *quarter)
	if err != nil {
		switch {
		case errors.Is(err, types.ErrInvalidArgument):
			fmt.Fprintf(os.Stderr, "%v\n", err)
			return 2
		case errors.Is(err, types.ErrNotFound):
			logger.Info(ctx, "No transcript available", "ticker", *ticker, "year", *year, "quarter", *quarter)
			fmt.Fprintf(os.Stderr, "no transcript found for %s Q%d %d\n", *ticker, *quarter, *year)
			return 1
		default:
			logger.ErrorWithErr(ctx, "Transcript fetch failed", err)
			return 1
		}
	}

	// Company profile is decoration; its absence never blocks the analysis.
	if profile, err := source.FetchCompanyProfile(ctx, *ticker); err == nil {
		logger.Info(ctx, "Resolved company profile", "name", profile.Name, "ticker", profile.Ticker)
	} else {
		logger.Warn(ctx, "Company profile unavailable", "ticker", *ticker, "error", err)
	}

	orchestrator := initializeOrchestrator(cfg, openaiA, geminiA)
	dual := orchestrator.RunDual(ctx, transcript, directive)

	normalizer := analysis.NewNormalizer(cfg.Analysis.DivergenceThreshold)
	report := normalizer.BuildReport(*userID, transcript.Key, dual)

	b, _ := json.MarshalIndent(report, "", "  ")
	fmt.Println(string(b))

	if !report.Usable() {
		logger.Error(ctx, "Both providers failed, report not persisted",
			"transcript_key", transcript.Key.String(),
			"comparison_notes", report.ComparisonNotes,
		)
		return 1
	}

	id, err := reports.SaveReport(ctx, report)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to persist report", err)
		return 1
	}
	logger.Info(ctx, "Report persisted", "report_id", id, "transcript_key", transcript.Key.String())
	return 0
}
