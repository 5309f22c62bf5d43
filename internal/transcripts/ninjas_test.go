package transcripts

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"earnings-analyst/internal/types"
)

func TestNewNinjasSourceRequiresKey(t *testing.T) {
	if _, err := NewNinjasSource("", "", 0); err == nil {
		t.Fatal("Expected constructor error for missing API key")
	}
}

func TestFetchTranscriptSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/earningstranscript" {
			t.Errorf("Unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("X-Api-Key"); got != "test-key" {
			t.Errorf("Expected API key header, got %q", got)
		}
		q := r.URL.Query()
		if q.Get("ticker") != "MSFT" || q.Get("year") != "2025" || q.Get("quarter") != "1" {
			t.Errorf("Unexpected query params: %v", q)
		}
		w.Write([]byte(`[{"date":"2025-01-28","transcript":"Operator: Good afternoon. CEO: Strong quarter.","transcript_split":[{"speaker":"Operator","text":"Good afternoon."},{"speaker":"CEO","text":"Strong quarter."}]}]`))
	}))
	defer srv.Close()
	t.Setenv("NINJAS_API_ENDPOINT", srv.URL)

	src, err := NewNinjasSource("test-key", "", 5*time.Second)
	if err != nil {
		t.Fatalf("Failed to create source: %v", err)
	}

	// lowercase ticker must be normalized before it hits the wire
	tr, err := src.FetchTranscript(context.Background(), "msft", 2025, 1)
	if err != nil {
		t.Fatalf("FetchTranscript failed: %v", err)
	}
	if tr.Key.String() != "MSFT-Q1-2025" {
		t.Errorf("Unexpected key: %s", tr.Key)
	}
	if tr.RawText == "" {
		t.Error("Expected transcript text")
	}
	if len(tr.SpeakerSegments) != 2 {
		t.Errorf("Expected 2 speaker segments, got %d", len(tr.SpeakerSegments))
	}
	if tr.CallDate != "2025-01-28" {
		t.Errorf("Unexpected call date: %q", tr.CallDate)
	}
	if tr.FetchedAt.IsZero() {
		t.Error("Expected FetchedAt to be set")
	}
}

func TestFetchTranscriptEmptyListIsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()
	t.Setenv("NINJAS_API_ENDPOINT", srv.URL)

	src, _ := NewNinjasSource("test-key", "", 5*time.Second)
	_, err := src.FetchTranscript(context.Background(), "ZZZZ", 2025, 1)
	if !errors.Is(err, types.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestFetchTranscriptMissingTextIsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"date":"2025-01-28"}]`))
	}))
	defer srv.Close()
	t.Setenv("NINJAS_API_ENDPOINT", srv.URL)

	src, _ := NewNinjasSource("test-key", "", 5*time.Second)
	_, err := src.FetchTranscript(context.Background(), "MSFT", 2025, 1)
	if !errors.Is(err, types.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestFetchTranscriptValidatesBeforeNetwork(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()
	t.Setenv("NINJAS_API_ENDPOINT", srv.URL)

	src, _ := NewNinjasSource("test-key", "", 5*time.Second)

	cases := []struct {
		ticker  string
		year    int
		quarter int
	}{
		{"MSFT", 2025, 0},
		{"MSFT", 2025, 5},
		{"MSFT", 1989, 1},
		{"MSFT", 2101, 1},
		{"", 2025, 1},
	}
	for _, tc := range cases {
		_, err := src.FetchTranscript(context.Background(), tc.ticker, tc.year, tc.quarter)
		if !errors.Is(err, types.ErrInvalidArgument) {
			t.Errorf("ticker=%q year=%d quarter=%d: expected ErrInvalidArgument, got %v",
				tc.ticker, tc.year, tc.quarter, err)
		}
	}
	if calls.Load() != 0 {
		t.Errorf("Expected validation before any network call, got %d requests", calls.Load())
	}
}

func TestFetchTranscriptServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()
	t.Setenv("NINJAS_API_ENDPOINT", srv.URL)

	src, _ := NewNinjasSource("test-key", "", 5*time.Second)
	_, err := src.FetchTranscript(context.Background(), "MSFT", 2025, 1)
	if err == nil {
		t.Fatal("Expected error on http 502")
	}
	if errors.Is(err, types.ErrNotFound) {
		t.Errorf("Server error must not be reported as NotFound: %v", err)
	}
}

func TestFetchCompanyProfile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/logo" {
			t.Errorf("Unexpected path %q", r.URL.Path)
		}
		w.Write([]byte(`[{"name":"Microsoft Corporation","ticker":"MSFT","image":"https://example.com/msft.png"}]`))
	}))
	defer srv.Close()
	t.Setenv("NINJAS_API_ENDPOINT", srv.URL)

	src, _ := NewNinjasSource("test-key", "", 5*time.Second)
	p, err := src.FetchCompanyProfile(context.Background(), "msft")
	if err != nil {
		t.Fatalf("FetchCompanyProfile failed: %v", err)
	}
	if p.Name != "Microsoft Corporation" || p.Ticker != "MSFT" || p.LogoURL == "" {
		t.Errorf("Unexpected profile: %+v", p)
	}
}

func TestFetchCompanyProfileIncompleteIsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"name":"","ticker":"MSFT","image":""}]`))
	}))
	defer srv.Close()
	t.Setenv("NINJAS_API_ENDPOINT", srv.URL)

	src, _ := NewNinjasSource("test-key", "", 5*time.Second)
	_, err := src.FetchCompanyProfile(context.Background(), "MSFT")
	if !errors.Is(err, types.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for incomplete profile, got %v", err)
	}
}
