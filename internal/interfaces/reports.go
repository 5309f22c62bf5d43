package interfaces

import (
	"context"

	"earnings-analyst/internal/types"
)

// ReportStore persists analysis reports. SaveReport returns types.ErrConflict
// when the report ID already exists, distinct from generic storage failures.
type ReportStore interface {
	SaveReport(ctx context.Context, report types.AnalysisReport) (string, error)
	GetReport(ctx context.Context, reportID string) (*types.AnalysisReport, error)
	GetReportsForTranscript(ctx context.Context, key types.TranscriptKey) ([]types.AnalysisReport, error)
	GetLatestReport(ctx context.Context, userID string, key types.TranscriptKey) (*types.AnalysisReport, error)

	// DeleteReportsForUser cascades a user deletion onto their reports.
	DeleteReportsForUser(ctx context.Context, userID string) (int, error)
}
