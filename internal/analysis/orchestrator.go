package analysis

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"earnings-analyst/internal/interfaces"
	"earnings-analyst/internal/logger"
	"earnings-analyst/internal/types"
)

// Orchestrator fans one transcript out to both providers and fans the results
// back in. Each call is isolated: its own timeout budget, its own error
// boundary, no shared mutable state between the two branches.
type Orchestrator struct {
	openai interfaces.Analyzer
	gemini interfaces.Analyzer
	cfg    OrchestratorConfig
}

// OrchestratorConfig bounds one dual-analysis run.
type OrchestratorConfig struct {
	PerProviderTimeout time.Duration // budget for a single provider call (per attempt)
	OverallTimeout     time.Duration // hard wall-clock ceiling for the whole run
	MaxOutputTokens    int
}

// DefaultOrchestratorConfig leaves room inside the overall ceiling for one
// retry per provider.
func DefaultOrchestratorConfig() OrchestratorConfig {
	return OrchestratorConfig{
		PerProviderTimeout: 60 * time.Second,
		OverallTimeout:     150 * time.Second,
	}
}

func NewOrchestrator(openai, gemini interfaces.Analyzer, cfg OrchestratorConfig) *Orchestrator {
	if cfg.PerProviderTimeout == 0 {
		cfg.PerProviderTimeout = 60 * time.Second
	}
	if cfg.OverallTimeout == 0 {
		cfg.OverallTimeout = 150 * time.Second
	}
	return &Orchestrator{openai: openai, gemini: gemini, cfg: cfg}
}

// RunDual invokes both providers concurrently, bounding total latency by the
// slower branch rather than the sum. It always returns two ProviderResult
// values; a branch that cannot finish inside the overall ceiling is recorded
// as Failure(Timeout).
func (o *Orchestrator) RunDual(ctx context.Context, transcript *types.Transcript, instruction string) types.DualResult {
	ctx, span := logger.StartSpan(ctx, "dual-analysis")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, o.cfg.OverallTimeout)
	defer cancel()

	opts := types.AnalyzeOptions{MaxOutputTokens: o.cfg.MaxOutputTokens}

	// Each branch gets its own copy of the inputs and its own result channel;
	// the only merge point is the select below.
	chA := make(chan types.ProviderResult, 1)
	chB := make(chan types.ProviderResult, 1)
	go func() { chA <- o.runWithRetry(ctx, o.openai, transcript.RawText, instruction, opts) }()
	go func() { chB <- o.runWithRetry(ctx, o.gemini, transcript.RawText, instruction, opts) }()

	resA := types.Failed(o.openai.Provider(), types.FailureTimeout, "overall analysis budget exceeded")
	resB := types.Failed(o.gemini.Provider(), types.FailureTimeout, "overall analysis budget exceeded")

	for pending := 2; pending > 0; {
		select {
		case r := <-chA:
			resA = r
			pending--
		case r := <-chB:
			resB = r
			pending--
		case <-ctx.Done():
			// Cancelled branches unwind via their call contexts; whatever has
			// not arrived stays recorded as a timeout.
			pending = 0
		}
	}

	logger.Analysis(ctx, transcript.Key.String(), resA.Succeeded(), resB.Succeeded())
	return types.DualResult{OpenAI: resA, Gemini: resB}
}

// runWithRetry calls one provider with at most one retry, and only for
// transient failures (network, timeout). Analysis is a pure read-then-compute
// operation on the remote side, so retrying is safe; auth, quota and contract
// violations are surfaced immediately.
func (o *Orchestrator) runWithRetry(ctx context.Context, a interfaces.Analyzer, text, instruction string, opts types.AnalyzeOptions) types.ProviderResult {
	var result types.ProviderResult

	operation := func() error {
		callCtx, cancel := context.WithTimeout(ctx, o.cfg.PerProviderTimeout)
		defer cancel()

		result = a.Analyze(callCtx, text, instruction, opts)
		if result.Failure == nil {
			return nil
		}
		if !result.Failure.Kind.Retryable() {
			return backoff.Permanent(errors.New(result.Failure.Detail))
		}
		logger.Warn(ctx, "Provider call failed with transient error, will retry once",
			"provider", string(a.Provider()),
			"kind", string(result.Failure.Kind),
		)
		return errors.New(result.Failure.Detail)
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 1), ctx)
	// The error is ignored on purpose: the classified failure is already
	// captured in result, which is what crosses the orchestrator boundary.
	_ = backoff.Retry(operation, bo)
	return result
}
