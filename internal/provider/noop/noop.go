package noop

import (
	"context"

	"earnings-analyst/internal/provider"
	"earnings-analyst/internal/types"
)

// Analyzer is the DRY_RUN stand-in used when a provider credential is not
// configured. It returns a canned neutral payload so the full pipeline can be
// exercised without network calls or spend.
type Analyzer struct {
	id types.ProviderID
}

func New(id types.ProviderID) *Analyzer {
	return &Analyzer{id: id}
}

func (a *Analyzer) Provider() types.ProviderID {
	return a.id
}

func (a *Analyzer) Analyze(ctx context.Context, transcriptText, instruction string, opts types.AnalyzeOptions) types.ProviderResult {
	if f := provider.ValidateInput(a.id, transcriptText, instruction); f != nil {
		return *f
	}
	return types.ProviderResult{
		Provider: a.id,
		Payload: &types.AnalysisPayload{
			Summary:          "Dry-run analysis: no provider call was made.",
			OverallSentiment: "Neutral",
			Model:            "noop",
		},
	}
}
