package provider

import (
	"net/http"
	"testing"

	"earnings-analyst/internal/types"
)

func TestDecodePayloadStrictJSON(t *testing.T) {
	content := `{"summary":"Solid quarter","overall_sentiment":"Positive","management_confidence_score":82,"evasiveness_score_q_a":30,"key_topics":["revenue","guidance"],"red_flags":[]}`

	p := DecodePayload(types.ProviderOpenAI, content, "gpt-4o-mini")

	if p.Warning != "" {
		t.Fatalf("Expected structured parse, got warning %q", p.Warning)
	}
	if p.Summary != "Solid quarter" {
		t.Errorf("Unexpected summary: %q", p.Summary)
	}
	if p.ManagementConfidenceScore == nil || *p.ManagementConfidenceScore != 82 {
		t.Errorf("Expected confidence 82, got %v", p.ManagementConfidenceScore)
	}
	if p.EvasivenessScore == nil || *p.EvasivenessScore != 30 {
		t.Errorf("Expected evasiveness 30, got %v", p.EvasivenessScore)
	}
	if len(p.KeyTopics) != 2 {
		t.Errorf("Expected 2 topics, got %d", len(p.KeyTopics))
	}
	if p.Model != "gpt-4o-mini" {
		t.Errorf("Expected model recorded, got %q", p.Model)
	}
}

func TestDecodePayloadMarkdownFenced(t *testing.T) {
	content := "```json\n{\"summary\":\"ok\",\"overall_sentiment\":\"Neutral\"}\n```"

	p := DecodePayload(types.ProviderGemini, content, "gemini-2.5-flash")

	if p.Warning != "" {
		t.Fatalf("Expected fenced JSON to parse, got warning %q", p.Warning)
	}
	if p.OverallSentiment != "Neutral" {
		t.Errorf("Unexpected sentiment: %q", p.OverallSentiment)
	}
}

func TestDecodePayloadAlternateEvasivenessKey(t *testing.T) {
	content := `{"summary":"ok","evasiveness_score":55}`

	p := DecodePayload(types.ProviderGemini, content, "gemini-2.5-flash")

	if p.EvasivenessScore == nil || *p.EvasivenessScore != 55 {
		t.Errorf("Expected evasiveness_score alias to decode, got %v", p.EvasivenessScore)
	}
}

func TestDecodePayloadFreeTextFallback(t *testing.T) {
	content := "The call was broadly optimistic with strong guidance."

	p := DecodePayload(types.ProviderGemini, content, "gemini-2.5-flash")

	if p.Warning != types.WarnFreeTextFallback {
		t.Fatalf("Expected free-text warning, got %q", p.Warning)
	}
	if p.RawText != content {
		t.Errorf("Expected raw text preserved, got %q", p.RawText)
	}
	if p.Summary != "" {
		t.Errorf("Expected no structured summary on fallback, got %q", p.Summary)
	}
}

func TestDecodePayloadMissingScoresStayAbsent(t *testing.T) {
	content := `{"summary":"brief","overall_sentiment":"Negative"}`

	p := DecodePayload(types.ProviderOpenAI, content, "gpt-4o-mini")

	if p.ManagementConfidenceScore != nil {
		t.Errorf("Expected absent confidence score, got %v", *p.ManagementConfidenceScore)
	}
	if p.EvasivenessScore != nil {
		t.Errorf("Expected absent evasiveness score, got %v", *p.EvasivenessScore)
	}
}

func TestClassifyStatus(t *testing.T) {
	cases := []struct {
		status int
		want   types.FailureKind
	}{
		{http.StatusUnauthorized, types.FailureAuth},
		{http.StatusForbidden, types.FailureAuth},
		{http.StatusTooManyRequests, types.FailureRateLimit},
		{http.StatusInternalServerError, types.FailureProvider},
		{http.StatusBadRequest, types.FailureProvider},
	}

	for _, tc := range cases {
		f := ClassifyStatus(types.ProviderOpenAI, tc.status, []byte("body"))
		if f.Kind != tc.want {
			t.Errorf("status %d: expected %s, got %s", tc.status, tc.want, f.Kind)
		}
		if f.StatusCode != tc.status {
			t.Errorf("status %d: expected status recorded, got %d", tc.status, f.StatusCode)
		}
	}
}

func TestValidateInput(t *testing.T) {
	if f := ValidateInput(types.ProviderOpenAI, "", "instruction"); f == nil || f.Failure.Kind != types.FailureEmptyIn {
		t.Error("Expected EmptyInput failure for empty transcript")
	}
	if f := ValidateInput(types.ProviderOpenAI, "text", "  "); f == nil || f.Failure.Kind != types.FailureEmptyIn {
		t.Error("Expected EmptyInput failure for blank instruction")
	}
	if f := ValidateInput(types.ProviderOpenAI, "text", "instruction"); f != nil {
		t.Errorf("Expected valid input to pass, got %v", f.Failure)
	}
}
