package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"

	"earnings-analyst/internal/types"
)

// systemPrompt is the shared analyst preamble both backends receive, so a
// report compares like with like.
const systemPrompt = "You are a financial analyst AI specializing in dissecting earnings call transcripts. " +
	"Your goal is to provide concise, factual, and insightful analysis, identifying sentiment, " +
	"key topics, and any signs of management spin or evasiveness. Focus on the financial implications. " +
	"Always return your analysis as a JSON object."

// SystemPrompt returns the shared analyst directive.
func SystemPrompt() string {
	return systemPrompt
}

// UserPrompt frames the transcript and instruction the way both backends
// expect: transcript first, then the caller's directive.
func UserPrompt(transcriptText, instruction string) string {
	return "Here is an earnings call transcript:\n\n---\n" + transcriptText + "\n---\n\n" +
		"Based on the transcript, " + instruction + ". Ensure the output is valid JSON."
}

// rawPayload tolerates the key variants the two models actually emit.
type rawPayload struct {
	Summary                   string         `json:"summary"`
	OverallSentiment          string         `json:"overall_sentiment"`
	ManagementConfidenceScore *float64       `json:"management_confidence_score"`
	EvasivenessScoreQA        *float64       `json:"evasiveness_score_q_a"`
	EvasivenessScore          *float64       `json:"evasiveness_score"`
	KeyTopics                 []string       `json:"key_topics"`
	RedFlags                  []string       `json:"red_flags"`
	SegmentSentiments         map[int]string `json:"segment_sentiments"`
}

// DecodePayload parses model output into a typed payload. Strict JSON parsing
// is attempted first (tolerating markdown fences and surrounding prose); when
// that fails the text is kept as a partial success carrying the free-text
// warning, so downstream consumers can still show the model's answer.
func DecodePayload(provider types.ProviderID, content, model string) *types.AnalysisPayload {
	jsonText := extractJSONObject(content)
	if jsonText != "" {
		var rp rawPayload
		if err := json.Unmarshal([]byte(jsonText), &rp); err == nil {
			p := &types.AnalysisPayload{
				Summary:                   rp.Summary,
				OverallSentiment:          rp.OverallSentiment,
				ManagementConfidenceScore: rp.ManagementConfidenceScore,
				EvasivenessScore:          rp.EvasivenessScoreQA,
				KeyTopics:                 rp.KeyTopics,
				RedFlags:                  rp.RedFlags,
				SegmentSentiments:         rp.SegmentSentiments,
				Raw:                       json.RawMessage(jsonText),
				Model:                     model,
			}
			if p.EvasivenessScore == nil {
				p.EvasivenessScore = rp.EvasivenessScore
			}
			return p
		}
	}

	return &types.AnalysisPayload{
		RawText: strings.TrimSpace(content),
		Warning: types.WarnFreeTextFallback,
		Model:   model,
	}
}

// extractJSONObject locates the first {...} block in text, stripping markdown
// code fences first.
func extractJSONObject(text string) string {
	t := strings.TrimSpace(text)
	if strings.HasPrefix(t, "```") {
		t = strings.TrimPrefix(t, "```json")
		t = strings.TrimPrefix(t, "```")
		if idx := strings.LastIndex(t, "```"); idx >= 0 {
			t = t[:idx]
		}
		t = strings.TrimSpace(t)
	}
	start := strings.Index(t, "{")
	end := strings.LastIndex(t, "}")
	if start >= 0 && end > start {
		return t[start : end+1]
	}
	return ""
}

// ClassifyStatus maps a non-2xx status onto the failure taxonomy.
func ClassifyStatus(p types.ProviderID, status int, body []byte) types.Failure {
	detail := Excerpt(body, 300)
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return types.Failure{Kind: types.FailureAuth, Detail: detail, StatusCode: status}
	case status == http.StatusTooManyRequests:
		return types.Failure{Kind: types.FailureRateLimit, Detail: detail, StatusCode: status}
	default:
		return types.Failure{Kind: types.FailureProvider, Detail: detail, StatusCode: status}
	}
}

// ClassifyTransportErr separates timeouts from other connection failures.
func ClassifyTransportErr(err error) types.Failure {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return types.Failure{Kind: types.FailureTimeout, Detail: err.Error()}
	}
	return types.Failure{Kind: types.FailureNetwork, Detail: err.Error()}
}

// Excerpt truncates a body for failure details and logs.
func Excerpt(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}

// ValidateInput enforces the shared preconditions locally, with zero network
// cost.
func ValidateInput(p types.ProviderID, transcriptText, instruction string) *types.ProviderResult {
	if strings.TrimSpace(transcriptText) == "" {
		r := types.Failed(p, types.FailureEmptyIn, "transcript text cannot be empty")
		return &r
	}
	if strings.TrimSpace(instruction) == "" {
		r := types.Failed(p, types.FailureEmptyIn, "instruction cannot be empty")
		return &r
	}
	return nil
}
