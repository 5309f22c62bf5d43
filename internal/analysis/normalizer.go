package analysis

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"earnings-analyst/internal/types"
)

// DefaultDivergenceThreshold is the score gap (in points, on the 0-100
// scales) above which the two providers are considered to materially
// disagree.
const DefaultDivergenceThreshold = 25.0

// Normalizer maps provider payloads onto the shared report schema and builds
// the combined report. It is stateless; normalization of the same input
// always yields the same output.
type Normalizer struct {
	threshold float64
}

// NewNormalizer builds a normalizer with the given divergence threshold. Zero
// is a valid threshold (any score gap is flagged); negative means default.
func NewNormalizer(divergenceThreshold float64) *Normalizer {
	if divergenceThreshold < 0 {
		divergenceThreshold = DefaultDivergenceThreshold
	}
	return &Normalizer{threshold: divergenceThreshold}
}

// Normalize maps one provider result onto the shared schema. Failures yield
// nil. Missing fields stay absent rather than becoming zero values, so "not
// provided" never reads as "scored zero".
func (n *Normalizer) Normalize(result types.ProviderResult) *types.NormalizedAnalysis {
	if result.Payload == nil {
		return nil
	}
	p := result.Payload

	na := &types.NormalizedAnalysis{
		Provider:         result.Provider,
		Model:            p.Model,
		Summary:          strings.TrimSpace(p.Summary),
		OverallSentiment: types.ParseSentiment(p.OverallSentiment),
		ConfidenceScore:  clampScore(p.ManagementConfidenceScore),
		EvasivenessScore: clampScore(p.EvasivenessScore),
		Warning:          p.Warning,
		RawPayload:       p,
	}

	if len(p.KeyTopics) > 0 {
		na.KeyTopics = append([]string(nil), p.KeyTopics...)
	}
	if len(p.RedFlags) > 0 {
		na.RedFlags = append([]string(nil), p.RedFlags...)
	}
	if len(p.SegmentSentiments) > 0 {
		na.SentimentBySegment = make(map[int]types.Sentiment, len(p.SegmentSentiments))
		for idx, s := range p.SegmentSentiments {
			na.SentimentBySegment[idx] = types.ParseSentiment(s)
		}
	}

	// Free-text fallback payloads carry the model's answer as the summary so
	// the report still shows something useful.
	if na.Summary == "" && p.RawText != "" {
		na.Summary = p.RawText
	}

	return na
}

// clampScore keeps a present score inside [0,100]; absent stays absent.
func clampScore(v *float64) *float64 {
	if v == nil {
		return nil
	}
	s := *v
	if s < 0 {
		s = 0
	}
	if s > 100 {
		s = 100
	}
	return &s
}

// BuildReport assembles the persisted report from both provider results. A
// report is always returned, even when both providers failed; whether the
// failure shell is worth persisting is the caller's decision.
func (n *Normalizer) BuildReport(userID string, key types.TranscriptKey, dual types.DualResult) types.AnalysisReport {
	report := types.AnalysisReport{
		ReportID:      uuid.NewString(),
		UserID:        userID,
		TranscriptKey: key,
		AnalysisDate:  time.Now().UTC(),
		OpenAI:        n.Normalize(dual.OpenAI),
		Gemini:        n.Normalize(dual.Gemini),
	}
	report.ComparisonNotes = n.compare(report.OpenAI, report.Gemini, dual)
	return report
}

// compare produces a human-readable note on how the two analyses relate.
func (n *Normalizer) compare(a, b *types.NormalizedAnalysis, dual types.DualResult) string {
	switch {
	case a == nil && b == nil:
		return fmt.Sprintf("Both providers failed. %s: %s. %s: %s.",
			dual.OpenAI.Provider, dual.OpenAI.Failure,
			dual.Gemini.Provider, dual.Gemini.Failure)
	case b == nil:
		return fmt.Sprintf("%s analysis missing (%s); report reflects %s only.",
			dual.Gemini.Provider, dual.Gemini.Failure, dual.OpenAI.Provider)
	case a == nil:
		return fmt.Sprintf("%s analysis missing (%s); report reflects %s only.",
			dual.OpenAI.Provider, dual.OpenAI.Failure, dual.Gemini.Provider)
	}

	var notes []string

	if a.OverallSentiment != b.OverallSentiment {
		notes = append(notes, fmt.Sprintf("Sentiment diverges: %s=%s, %s=%s.",
			a.Provider, a.OverallSentiment, b.Provider, b.OverallSentiment))
	}
	if note := n.scoreDivergence("Management confidence", a, b, a.ConfidenceScore, b.ConfidenceScore); note != "" {
		notes = append(notes, note)
	}
	if note := n.scoreDivergence("Evasiveness", a, b, a.EvasivenessScore, b.EvasivenessScore); note != "" {
		notes = append(notes, note)
	}

	if len(notes) == 0 {
		return fmt.Sprintf("Providers agree: both report %s sentiment with no material score disagreement.", a.OverallSentiment)
	}
	return strings.Join(notes, " ")
}

func (n *Normalizer) scoreDivergence(label string, a, b *types.NormalizedAnalysis, va, vb *float64) string {
	if va == nil || vb == nil {
		return ""
	}
	diff := *va - *vb
	if diff < 0 {
		diff = -diff
	}
	if diff <= n.threshold {
		return ""
	}
	return fmt.Sprintf("%s scores diverge by %.1f points (%s=%.1f, %s=%.1f; threshold %.1f).",
		label, diff, a.Provider, *va, b.Provider, *vb, n.threshold)
}
