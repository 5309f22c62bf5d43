package types

import (
	"strings"
	"time"
)

// Sentiment is the fixed vocabulary both providers are mapped onto.
type Sentiment string

const (
	SentimentPositive Sentiment = "POSITIVE"
	SentimentNeutral  Sentiment = "NEUTRAL"
	SentimentNegative Sentiment = "NEGATIVE"
	SentimentUnknown  Sentiment = "UNKNOWN"
)

// ParseSentiment maps a free-form provider string onto the Sentiment enum.
// Case and surrounding whitespace are ignored; anything outside the known set
// maps to Unknown rather than being rejected.
func ParseSentiment(s string) Sentiment {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "POSITIVE":
		return SentimentPositive
	case "NEUTRAL":
		return SentimentNeutral
	case "NEGATIVE":
		return SentimentNegative
	default:
		return SentimentUnknown
	}
}

// NormalizedAnalysis is one provider's output mapped onto the shared report
// schema. Optional fields stay nil when the provider did not supply them.
type NormalizedAnalysis struct {
	Provider           ProviderID        `json:"provider"`
	Model              string            `json:"model,omitempty"`
	Summary            string            `json:"summary"`
	OverallSentiment   Sentiment         `json:"overall_sentiment"`
	SentimentBySegment map[int]Sentiment `json:"sentiment_by_segment,omitempty"`
	ConfidenceScore    *float64          `json:"management_confidence_score,omitempty"`
	EvasivenessScore   *float64          `json:"evasiveness_score,omitempty"`
	KeyTopics          []string          `json:"key_topics,omitempty"`
	RedFlags           []string          `json:"red_flags,omitempty"`
	Warning            string            `json:"warning,omitempty"`
	RawPayload         *AnalysisPayload  `json:"raw_payload,omitempty"`
}

// AnalysisReport is the persisted composition of both normalized analyses.
// At least one of OpenAI/Gemini must be present for the report to be worth
// persisting; a report with both absent is a failure shell for the caller to
// inspect and log.
type AnalysisReport struct {
	ReportID        string              `json:"report_id"`
	UserID          string              `json:"user_id"`
	TranscriptKey   TranscriptKey       `json:"transcript_key"`
	AnalysisDate    time.Time           `json:"analysis_date"`
	OpenAI          *NormalizedAnalysis `json:"openai,omitempty"`
	Gemini          *NormalizedAnalysis `json:"gemini,omitempty"`
	ComparisonNotes string              `json:"comparison_notes"`
}

// Usable reports whether at least one provider produced a normalized analysis.
func (r AnalysisReport) Usable() bool {
	return r.OpenAI != nil || r.Gemini != nil
}
