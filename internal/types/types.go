package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Sentinel errors shared across the transcript source and report store.
var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrConflict        = errors.New("conflict")
)

// TranscriptKey identifies one earnings call: ticker + fiscal year + fiscal quarter.
type TranscriptKey struct {
	Ticker        string `json:"ticker"`
	FiscalYear    int    `json:"fiscal_year"`
	FiscalQuarter int    `json:"fiscal_quarter"`
}

// NewTranscriptKey normalizes the ticker and validates the period bounds.
func NewTranscriptKey(ticker string, year, quarter int) (TranscriptKey, error) {
	t := strings.ToUpper(strings.TrimSpace(ticker))
	if t == "" {
		return TranscriptKey{}, fmt.Errorf("%w: ticker cannot be empty", ErrInvalidArgument)
	}
	if quarter < 1 || quarter > 4 {
		return TranscriptKey{}, fmt.Errorf("%w: quarter must be between 1 and 4, got %d", ErrInvalidArgument, quarter)
	}
	if year < 1990 || year > 2100 {
		return TranscriptKey{}, fmt.Errorf("%w: year must be between 1990 and 2100, got %d", ErrInvalidArgument, year)
	}
	return TranscriptKey{Ticker: t, FiscalYear: year, FiscalQuarter: quarter}, nil
}

func (k TranscriptKey) String() string {
	return fmt.Sprintf("%s-Q%d-%d", k.Ticker, k.FiscalQuarter, k.FiscalYear)
}

// SpeakerSegment is one speaker turn in a segmented transcript.
type SpeakerSegment struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// Transcript is an immutable fetched earnings call. RawText is never empty;
// a call with no retrievable text is NotFound, not an empty transcript.
type Transcript struct {
	Key             TranscriptKey    `json:"key"`
	RawText         string           `json:"raw_text"`
	SpeakerSegments []SpeakerSegment `json:"speaker_segments,omitempty"`
	CallDate        string           `json:"call_date,omitempty"`
	SourceURL       string           `json:"source_url,omitempty"`
	FetchedAt       time.Time        `json:"fetched_at"`
}

// CompanyProfile is the basic company metadata resolved alongside a transcript.
type CompanyProfile struct {
	Name    string `json:"name"`
	Ticker  string `json:"ticker"`
	LogoURL string `json:"logo_url"`
}

// ProviderID names one of the two AI backends.
type ProviderID string

const (
	ProviderOpenAI ProviderID = "OPENAI"
	ProviderGemini ProviderID = "GEMINI"
)

// FailureKind classifies a provider failure from the transport layer up.
type FailureKind string

const (
	FailureNetwork   FailureKind = "NETWORK_ERROR"
	FailureTimeout   FailureKind = "TIMEOUT"
	FailureAuth      FailureKind = "AUTH_ERROR"
	FailureRateLimit FailureKind = "RATE_LIMITED"
	FailureMalformed FailureKind = "MALFORMED_RESPONSE"
	FailureEmptyIn   FailureKind = "EMPTY_INPUT"
	FailureProvider  FailureKind = "PROVIDER_ERROR"
)

// Retryable reports whether the orchestrator may retry this failure kind.
// Only transient infrastructure failures qualify; auth, quota and contract
// violations are surfaced as-is.
func (k FailureKind) Retryable() bool {
	return k == FailureNetwork || k == FailureTimeout
}

// Failure captures a classified provider failure as a value.
type Failure struct {
	Kind       FailureKind `json:"kind"`
	Detail     string      `json:"detail"`
	StatusCode int         `json:"status_code,omitempty"`
}

func (f Failure) String() string {
	if f.StatusCode != 0 {
		return fmt.Sprintf("%s (http %d): %s", f.Kind, f.StatusCode, f.Detail)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Detail)
}

// WarnFreeTextFallback marks a payload whose strict JSON parse failed and which
// carries the raw model text instead of structured fields.
const WarnFreeTextFallback = "expected structured output, got free text"

// AnalysisPayload is a provider's decoded output. The clients decode eagerly so
// no loosely-typed JSON crosses into the orchestrator or normalizer. Score
// fields are pointers: nil means the model did not supply them, which is
// distinct from a score of zero.
type AnalysisPayload struct {
	Summary                   string          `json:"summary"`
	OverallSentiment          string          `json:"overall_sentiment"`
	ManagementConfidenceScore *float64        `json:"management_confidence_score,omitempty"`
	EvasivenessScore          *float64        `json:"evasiveness_score_q_a,omitempty"`
	KeyTopics                 []string        `json:"key_topics,omitempty"`
	RedFlags                  []string        `json:"red_flags,omitempty"`
	SegmentSentiments         map[int]string  `json:"segment_sentiments,omitempty"`
	Raw                       json.RawMessage `json:"raw,omitempty"`
	RawText                   string          `json:"raw_text,omitempty"`
	Warning                   string          `json:"warning,omitempty"`
	Model                     string          `json:"model,omitempty"`
}

// ProviderResult is one provider's outcome: exactly one of Payload or Failure
// is set. Results are independent; one provider's failure never invalidates
// the other's.
type ProviderResult struct {
	Provider ProviderID       `json:"provider"`
	Payload  *AnalysisPayload `json:"payload,omitempty"`
	Failure  *Failure         `json:"failure,omitempty"`
}

// Succeeded reports whether the provider returned a payload (including the
// degraded free-text case).
func (r ProviderResult) Succeeded() bool {
	return r.Payload != nil
}

// Failed builds a failure result.
func Failed(p ProviderID, kind FailureKind, detail string) ProviderResult {
	return ProviderResult{Provider: p, Failure: &Failure{Kind: kind, Detail: detail}}
}

// DualResult is the fan-in of one orchestration run.
type DualResult struct {
	OpenAI ProviderResult `json:"openai"`
	Gemini ProviderResult `json:"gemini"`
}

// AnalyzeOptions carries per-call knobs for a provider client.
type AnalyzeOptions struct {
	MaxOutputTokens int
	Model           string // override the client's configured model for this call
}
