package interfaces

import (
	"context"

	"earnings-analyst/internal/types"
)

// Analyzer is the shared provider contract. Both backends implement the same
// signature so the orchestrator never depends on provider-specific types.
// Failures come back as values inside the result, never as errors, so one
// provider's failure cannot abort the other's call.
type Analyzer interface {
	// Analyze sends a transcript plus instruction to the backend and returns
	// either a decoded payload or a classified failure. Empty transcript or
	// instruction is rejected locally without any network call.
	Analyze(ctx context.Context, transcriptText, instruction string, opts types.AnalyzeOptions) types.ProviderResult

	// Provider identifies which backend this analyzer wraps.
	Provider() types.ProviderID
}
