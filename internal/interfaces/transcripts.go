package interfaces

import (
	"context"

	"earnings-analyst/internal/types"
)

// TranscriptSource resolves earnings call transcripts and company metadata.
// Absence of data is types.ErrNotFound, a normal outcome; transport failures
// are returned as distinct wrapped errors so the caller can decide to retry.
type TranscriptSource interface {
	FetchTranscript(ctx context.Context, ticker string, year, quarter int) (*types.Transcript, error)
	FetchCompanyProfile(ctx context.Context, ticker string) (*types.CompanyProfile, error)
}
