package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"earnings-analyst/internal/types"
)

// ReportStore persists analysis reports as one JSON file per report under a
// directory. Good enough for a single process; the interface is what the rest
// of the system depends on, so a database-backed store can replace this
// without touching the core.
type ReportStore struct {
	dir string
	mu  sync.Mutex
}

// NewReportStore creates the backing directory if needed.
func NewReportStore(dir string) (*ReportStore, error) {
	if dir == "" {
		dir = reportDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create report dir: %w", err)
	}
	return &ReportStore{dir: dir}, nil
}

func reportDir() string {
	if v := os.Getenv("ANALYST_REPORT_DIR"); v != "" {
		return v
	}
	return "reports"
}

func (s *ReportStore) path(reportID string) string {
	return filepath.Join(s.dir, reportID+".json")
}

// SaveReport persists the report and returns its ID. A report with neither
// provider present signals total failure and is refused. Duplicate IDs are
// types.ErrConflict.
func (s *ReportStore) SaveReport(ctx context.Context, report types.AnalysisReport) (string, error) {
	if report.ReportID == "" {
		return "", fmt.Errorf("%w: report id cannot be empty", types.ErrInvalidArgument)
	}
	if !report.Usable() {
		return "", fmt.Errorf("%w: report has no provider analysis to persist", types.ErrInvalidArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path(report.ReportID), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return "", fmt.Errorf("%w: report %s already exists", types.ErrConflict, report.ReportID)
		}
		return "", fmt.Errorf("failed to create report file: %w", err)
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		f.Close()
		// A failed save must not leave a partial file claiming the ID.
		_ = os.Remove(s.path(report.ReportID))
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(s.path(report.ReportID))
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return report.ReportID, nil
}

// GetReport loads one report by ID.
func (s *ReportStore) GetReport(ctx context.Context, reportID string) (*types.AnalysisReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(s.path(reportID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: report %s", types.ErrNotFound, reportID)
		}
		return nil, fmt.Errorf("failed to read report: %w", err)
	}
	var r types.AnalysisReport
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("failed to decode report %s: %w", reportID, err)
	}
	return &r, nil
}

// GetReportsForTranscript returns every report for one earnings call, newest
// first. Multiple reports over time for the same transcript are expected.
func (s *ReportStore) GetReportsForTranscript(ctx context.Context, key types.TranscriptKey) ([]types.AnalysisReport, error) {
	all, err := s.scan()
	if err != nil {
		return nil, err
	}
	var out []types.AnalysisReport
	for _, r := range all {
		if r.TranscriptKey == key {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AnalysisDate.After(out[j].AnalysisDate) })
	return out, nil
}

// GetLatestReport returns the newest report a user generated for one
// transcript, or types.ErrNotFound.
func (s *ReportStore) GetLatestReport(ctx context.Context, userID string, key types.TranscriptKey) (*types.AnalysisReport, error) {
	reports, err := s.GetReportsForTranscript(ctx, key)
	if err != nil {
		return nil, err
	}
	for i := range reports {
		if reports[i].UserID == userID {
			return &reports[i], nil
		}
	}
	return nil, fmt.Errorf("%w: no report for user %s on %s", types.ErrNotFound, userID, key)
}

// DeleteReportsForUser removes every report owned by the user and returns the
// number deleted. Deleting a user cascades here.
func (s *ReportStore) DeleteReportsForUser(ctx context.Context, userID string) (int, error) {
	all, err := s.scan()
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for _, r := range all {
		if r.UserID != userID {
			continue
		}
		if err := os.Remove(s.path(r.ReportID)); err != nil && !os.IsNotExist(err) {
			return deleted, fmt.Errorf("failed to delete report %s: %w", r.ReportID, err)
		}
		deleted++
	}
	return deleted, nil
}

func (s *ReportStore) scan() ([]types.AnalysisReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list report dir: %w", err)
	}

	var out []types.AnalysisReport
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		b, err := os.ReadFile(filepath.Join(s.dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read report %s: %w", e.Name(), err)
		}
		var r types.AnalysisReport
		if err := json.Unmarshal(b, &r); err != nil {
			// Skip files that are not reports rather than failing the scan.
			continue
		}
		out = append(out, r)
	}
	return out, nil
}
