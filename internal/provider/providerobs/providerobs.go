package providerobs

import (
	"context"
	"time"

	"earnings-analyst/internal/interfaces"
	"earnings-analyst/internal/logger"
	"earnings-analyst/internal/trace"
	"earnings-analyst/internal/types"
)

// observableAnalyzer wraps an Analyzer with observability (logging & tracing)
type observableAnalyzer struct {
	analyzer interfaces.Analyzer
}

// Compile-time interface check
var _ interfaces.Analyzer = (*observableAnalyzer)(nil)

// Wrap wraps an analyzer with observability middleware
func Wrap(analyzer interfaces.Analyzer) interfaces.Analyzer {
	return &observableAnalyzer{analyzer: analyzer}
}

func (oa *observableAnalyzer) Provider() types.ProviderID {
	return oa.analyzer.Provider()
}

// Analyze runs the wrapped analyzer with a span and outcome logging
func (oa *observableAnalyzer) Analyze(ctx context.Context, transcriptText, instruction string, opts types.AnalyzeOptions) types.ProviderResult {
	ctx, span := trace.StartSpan(ctx, "provider.Analyze")
	defer span.End()

	// DebugSkip(1) reports the actual caller, not this middleware wrapper
	logger.DebugSkip(ctx, 1, "Requesting transcript analysis",
		"provider", string(oa.analyzer.Provider()),
		"transcript_chars", len(transcriptText),
	)

	start := time.Now()
	result := oa.analyzer.Analyze(ctx, transcriptText, instruction, opts)
	latency := time.Since(start).Milliseconds()

	if result.Failure != nil {
		logger.InfoSkip(ctx, 1, "Provider analysis failed",
			"provider", string(result.Provider),
			"kind", string(result.Failure.Kind),
			"detail", result.Failure.Detail,
			"latency_ms", latency,
		)
		logger.ProviderCall(ctx, string(result.Provider), false, latency, "kind", string(result.Failure.Kind))
		return result
	}

	logger.ProviderCall(ctx, string(result.Provider), true, latency,
		"model", result.Payload.Model,
		"structured", result.Payload.Warning == "",
	)
	return result
}
