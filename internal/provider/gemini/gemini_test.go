package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"earnings-analyst/internal/store"
	"earnings-analyst/internal/types"
)

func testConfig() store.ProviderConfig {
	return store.ProviderConfig{Model: "gemini-2.5-flash", MaxTokens: 500, Temperature: 0.3, TimeoutSeconds: 5}
}

func generateContentResponse(text string) string {
	resp := map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{
				"parts": []map[string]string{{"text": text}},
			}},
		},
	}
	b, _ := json.Marshal(resp)
	return string(b)
}

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := New("", testConfig()); err == nil {
		t.Fatal("Expected constructor error for missing API key")
	}
}

func TestAnalyzeSuccess(t *testing.T) {
	var gotPath, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("X-goog-api-key")
		w.Write([]byte(generateContentResponse(`{"summary":"Margins held up","overall_sentiment":"Neutral","evasiveness_score_q_a":40}`)))
	}))
	defer srv.Close()
	t.Setenv("GEMINI_API_ENDPOINT", srv.URL)

	a, err := New("test-key", testConfig())
	if err != nil {
		t.Fatalf("Failed to create analyzer: %v", err)
	}

	result := a.Analyze(context.Background(), "CFO: margins held.", "assess risk", types.AnalyzeOptions{})

	if !result.Succeeded() {
		t.Fatalf("Expected success, got failure: %v", result.Failure)
	}
	if !strings.HasSuffix(gotPath, "/gemini-2.5-flash:generateContent") {
		t.Errorf("Unexpected request path: %q", gotPath)
	}
	if gotKey != "test-key" {
		t.Errorf("Expected API key header, got %q", gotKey)
	}
	if result.Payload.EvasivenessScore == nil || *result.Payload.EvasivenessScore != 40 {
		t.Errorf("Expected evasiveness 40, got %v", result.Payload.EvasivenessScore)
	}
	if result.Provider != types.ProviderGemini {
		t.Errorf("Expected provider GEMINI, got %s", result.Provider)
	}
}

func TestAnalyzeModelOverride(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(generateContentResponse(`{"summary":"ok","overall_sentiment":"Neutral"}`)))
	}))
	defer srv.Close()
	t.Setenv("GEMINI_API_ENDPOINT", srv.URL)

	a, _ := New("test-key", testConfig())
	result := a.Analyze(context.Background(), "text", "instruction", types.AnalyzeOptions{Model: "gemini-2.5-pro"})

	if !result.Succeeded() {
		t.Fatalf("Expected success, got failure: %v", result.Failure)
	}
	if !strings.HasSuffix(gotPath, "/gemini-2.5-pro:generateContent") {
		t.Errorf("Expected model override in path, got %q", gotPath)
	}
	if result.Payload.Model != "gemini-2.5-pro" {
		t.Errorf("Expected overridden model recorded, got %q", result.Payload.Model)
	}
}

func TestAnalyzeEmptyInput(t *testing.T) {
	a, _ := New("test-key", testConfig())
	result := a.Analyze(context.Background(), "   ", "instruction", types.AnalyzeOptions{})
	if result.Failure == nil || result.Failure.Kind != types.FailureEmptyIn {
		t.Errorf("Expected EmptyInput failure, got %+v", result)
	}
}

func TestAnalyzeClassifiesStatusCodes(t *testing.T) {
	cases := []struct {
		status int
		want   types.FailureKind
	}{
		{http.StatusForbidden, types.FailureAuth},
		{http.StatusTooManyRequests, types.FailureRateLimit},
		{http.StatusInternalServerError, types.FailureProvider},
	}

	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			w.Write([]byte(`{"error":{"message":"denied"}}`))
		}))
		t.Setenv("GEMINI_API_ENDPOINT", srv.URL)

		a, _ := New("test-key", testConfig())
		result := a.Analyze(context.Background(), "text", "instruction", types.AnalyzeOptions{})
		srv.Close()

		if result.Failure == nil || result.Failure.Kind != tc.want {
			t.Errorf("status %d: expected %s, got %+v", tc.status, tc.want, result.Failure)
		}
	}
}

func TestAnalyzeNoCandidatesIsMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()
	t.Setenv("GEMINI_API_ENDPOINT", srv.URL)

	a, _ := New("test-key", testConfig())
	result := a.Analyze(context.Background(), "text", "instruction", types.AnalyzeOptions{})

	if result.Failure == nil || result.Failure.Kind != types.FailureMalformed {
		t.Errorf("Expected MalformedResponse, got %+v", result)
	}
}

func TestAnalyzeFreeTextDegradesWithWarning(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(generateContentResponse("Overall the call sounded guarded.")))
	}))
	defer srv.Close()
	t.Setenv("GEMINI_API_ENDPOINT", srv.URL)

	a, _ := New("test-key", testConfig())
	result := a.Analyze(context.Background(), "text", "instruction", types.AnalyzeOptions{})

	if !result.Succeeded() {
		t.Fatalf("Expected degraded success, got failure: %v", result.Failure)
	}
	if result.Payload.Warning != types.WarnFreeTextFallback {
		t.Errorf("Expected free-text warning, got %q", result.Payload.Warning)
	}
	if result.Payload.RawText != "Overall the call sounded guarded." {
		t.Errorf("Expected raw text preserved, got %q", result.Payload.RawText)
	}
}
