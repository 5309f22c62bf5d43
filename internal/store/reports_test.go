package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"earnings-analyst/internal/types"
)

func testReport(t *testing.T, id, userID string, when time.Time) types.AnalysisReport {
	t.Helper()
	key, err := types.NewTranscriptKey("MSFT", 2025, 1)
	if err != nil {
		t.Fatalf("Failed to build key: %v", err)
	}
	return types.AnalysisReport{
		ReportID:      id,
		UserID:        userID,
		TranscriptKey: key,
		AnalysisDate:  when,
		OpenAI: &types.NormalizedAnalysis{
			Provider:         types.ProviderOpenAI,
			Summary:          "Solid quarter",
			OverallSentiment: types.SentimentPositive,
		},
		ComparisonNotes: "GEMINI analysis missing (TIMEOUT: deadline exceeded); report reflects OPENAI only.",
	}
}

func newTestStore(t *testing.T) *ReportStore {
	t.Helper()
	s, err := NewReportStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	return s
}

func TestSaveAndGetReport(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	report := testReport(t, "r-1", "user-1", time.Now().UTC())

	id, err := s.SaveReport(ctx, report)
	if err != nil {
		t.Fatalf("SaveReport failed: %v", err)
	}
	if id != "r-1" {
		t.Errorf("Expected id r-1, got %q", id)
	}

	got, err := s.GetReport(ctx, "r-1")
	if err != nil {
		t.Fatalf("GetReport failed: %v", err)
	}
	if got.UserID != "user-1" {
		t.Errorf("Expected user-1, got %q", got.UserID)
	}
	if got.TranscriptKey != report.TranscriptKey {
		t.Errorf("Expected key %s, got %s", report.TranscriptKey, got.TranscriptKey)
	}
	if got.OpenAI == nil || got.OpenAI.OverallSentiment != types.SentimentPositive {
		t.Errorf("Provider analysis did not survive the roundtrip: %+v", got.OpenAI)
	}
}

func TestSaveReportRejectsDuplicateID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	report := testReport(t, "r-1", "user-1", time.Now().UTC())

	if _, err := s.SaveReport(ctx, report); err != nil {
		t.Fatalf("First save failed: %v", err)
	}
	_, err := s.SaveReport(ctx, report)
	if !errors.Is(err, types.ErrConflict) {
		t.Errorf("Expected ErrConflict, got %v", err)
	}
}

func TestSaveReportEncodeFailureLeavesNoFile(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	report := testReport(t, "r-1", "user-1", time.Now().UTC())
	// Invalid raw JSON makes the encoder fail mid-write.
	report.OpenAI.RawPayload = &types.AnalysisPayload{Raw: json.RawMessage("{broken")}

	if _, err := s.SaveReport(ctx, report); err == nil {
		t.Fatal("Expected SaveReport to fail on an unencodable report")
	}

	if _, err := s.GetReport(ctx, "r-1"); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("Expected no file left behind, got %v", err)
	}

	// The ID must be reusable after the failed save.
	report.OpenAI.RawPayload = nil
	if _, err := s.SaveReport(ctx, report); err != nil {
		t.Errorf("Expected a clean retry with the same ID to succeed, got %v", err)
	}
}

func TestSaveReportRefusesUnusable(t *testing.T) {
	s := newTestStore(t)
	report := testReport(t, "r-1", "user-1", time.Now().UTC())
	report.OpenAI = nil
	report.Gemini = nil

	_, err := s.SaveReport(context.Background(), report)
	if !errors.Is(err, types.ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument for unusable report, got %v", err)
	}
}

func TestGetReportNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetReport(context.Background(), "missing")
	if !errors.Is(err, types.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestGetReportsForTranscriptNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"r-old", "r-mid", "r-new"} {
		r := testReport(t, id, "user-1", base.Add(time.Duration(i)*time.Hour))
		if _, err := s.SaveReport(ctx, r); err != nil {
			t.Fatalf("SaveReport %s failed: %v", id, err)
		}
	}

	key, _ := types.NewTranscriptKey("MSFT", 2025, 1)
	reports, err := s.GetReportsForTranscript(ctx, key)
	if err != nil {
		t.Fatalf("GetReportsForTranscript failed: %v", err)
	}
	if len(reports) != 3 {
		t.Fatalf("Expected 3 reports, got %d", len(reports))
	}
	if reports[0].ReportID != "r-new" || reports[2].ReportID != "r-old" {
		t.Errorf("Expected newest first, got %s, %s, %s",
			reports[0].ReportID, reports[1].ReportID, reports[2].ReportID)
	}
}

func TestGetLatestReportFiltersByUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)

	if _, err := s.SaveReport(ctx, testReport(t, "r-a", "alice", base)); err != nil {
		t.Fatal(err)
	}
	if _, err := s.SaveReport(ctx, testReport(t, "r-b", "bob", base.Add(time.Hour))); err != nil {
		t.Fatal(err)
	}

	key, _ := types.NewTranscriptKey("MSFT", 2025, 1)
	got, err := s.GetLatestReport(ctx, "alice", key)
	if err != nil {
		t.Fatalf("GetLatestReport failed: %v", err)
	}
	if got.ReportID != "r-a" {
		t.Errorf("Expected alice's report, got %s owned by %s", got.ReportID, got.UserID)
	}

	_, err = s.GetLatestReport(ctx, "carol", key)
	if !errors.Is(err, types.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for a user with no reports, got %v", err)
	}
}

func TestDeleteReportsForUserCascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for _, tc := range []struct{ id, user string }{
		{"r-1", "alice"}, {"r-2", "alice"}, {"r-3", "bob"},
	} {
		if _, err := s.SaveReport(ctx, testReport(t, tc.id, tc.user, now)); err != nil {
			t.Fatalf("SaveReport %s failed: %v", tc.id, err)
		}
	}

	deleted, err := s.DeleteReportsForUser(ctx, "alice")
	if err != nil {
		t.Fatalf("DeleteReportsForUser failed: %v", err)
	}
	if deleted != 2 {
		t.Errorf("Expected 2 deletions, got %d", deleted)
	}

	if _, err := s.GetReport(ctx, "r-1"); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("Expected alice's report gone, got %v", err)
	}
	if _, err := s.GetReport(ctx, "r-3"); err != nil {
		t.Errorf("Bob's report must survive the cascade: %v", err)
	}
}
