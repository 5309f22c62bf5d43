package transcripts

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"earnings-analyst/internal/api"
	"earnings-analyst/internal/logger"
	"earnings-analyst/internal/types"
)

// NinjasSource fetches earnings call transcripts and basic company profiles
// from API Ninjas.
type NinjasSource struct {
	client  *api.Client
	baseURL string
}

// NewNinjasSource builds the source. The credential is required at
// construction; configuration problems surface here, not at call time.
func NewNinjasSource(apiKey, baseURL string, timeout time.Duration) (*NinjasSource, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API_NINJAS_KEY missing")
	}
	if baseURL == "" {
		baseURL = "https://api.api-ninjas.com/v1"
	}
	if ep := os.Getenv("NINJAS_API_ENDPOINT"); ep != "" {
		baseURL = ep
	}
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &NinjasSource{
		client: api.NewClient(
			api.WithBaseURL(baseURL),
			api.WithHeader("X-Api-Key", apiKey),
			api.WithTimeout(timeout),
			api.WithLogging(true),
		),
		baseURL: baseURL,
	}, nil
}

type ninjasTranscript struct {
	Date            string                 `json:"date"`
	Transcript      string                 `json:"transcript"`
	TranscriptSplit []types.SpeakerSegment `json:"transcript_split"`
}

type ninjasProfile struct {
	Name   string `json:"name"`
	Ticker string `json:"ticker"`
	Image  string `json:"image"`
}

// FetchTranscript resolves one earnings call. Bad quarter/year fails fast
// with types.ErrInvalidArgument before any network call. An empty-list body
// and a body missing the transcript text are both types.ErrNotFound; absence
// of data is a normal outcome, not a failure.
func (s *NinjasSource) FetchTranscript(ctx context.Context, ticker string, year, quarter int) (*types.Transcript, error) {
	key, err := types.NewTranscriptKey(ticker, year, quarter)
	if err != nil {
		return nil, err
	}

	req := api.NewRequest(http.MethodGet, "/earningstranscript").
		WithContext(ctx).
		WithQueryParam("ticker", key.Ticker).
		WithQueryParam("year", fmt.Sprintf("%d", key.FiscalYear)).
		WithQueryParam("quarter", fmt.Sprintf("%d", key.FiscalQuarter))

	raw, err := s.request(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transcript for %s: %w", key, err)
	}
	if raw == nil {
		logger.Info(ctx, "No transcript found", "key", key.String())
		return nil, fmt.Errorf("%w: transcript %s", types.ErrNotFound, key)
	}

	var t ninjasTranscript
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("malformed transcript body for %s: %w", key, err)
	}
	if t.Transcript == "" {
		logger.Info(ctx, "Transcript text missing in response", "key", key.String())
		return nil, fmt.Errorf("%w: transcript %s", types.ErrNotFound, key)
	}

	return &types.Transcript{
		Key:             key,
		RawText:         t.Transcript,
		SpeakerSegments: t.TranscriptSplit,
		CallDate:        t.Date,
		SourceURL:       s.baseURL + "/earningstranscript",
		FetchedAt:       time.Now().UTC(),
	}, nil
}

// FetchCompanyProfile resolves name/ticker/logo from the logo endpoint. A
// profile missing any of the three fields is incomplete data, treated as
// NotFound.
func (s *NinjasSource) FetchCompanyProfile(ctx context.Context, ticker string) (*types.CompanyProfile, error) {
	sym := strings.ToUpper(strings.TrimSpace(ticker))
	if sym == "" {
		return nil, fmt.Errorf("%w: ticker cannot be empty", types.ErrInvalidArgument)
	}

	req := api.NewRequest(http.MethodGet, "/logo").
		WithContext(ctx).
		WithQueryParam("ticker", sym)

	raw, err := s.request(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch company profile for %s: %w", sym, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: company profile %s", types.ErrNotFound, sym)
	}

	var p ninjasProfile
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("malformed profile body for %s: %w", sym, err)
	}
	if p.Name == "" || p.Ticker == "" || p.Image == "" {
		return nil, fmt.Errorf("%w: incomplete company profile %s", types.ErrNotFound, sym)
	}

	return &types.CompanyProfile{Name: p.Name, Ticker: p.Ticker, LogoURL: p.Image}, nil
}

// request executes the call and unwraps API Ninjas' top-level shapes: an
// empty list means no data (nil, nil), a non-empty list yields its first
// element, and a plain object is returned as-is.
func (s *NinjasSource) request(ctx context.Context, req *api.Request) (json.RawMessage, error) {
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, fmt.Errorf("remote returned http %d: %s", resp.StatusCode, excerpt(resp.Body, 200))
	}

	var top json.RawMessage
	if err := json.Unmarshal(resp.Body, &top); err != nil {
		return nil, fmt.Errorf("failed to decode response body: %w", err)
	}

	var list []json.RawMessage
	if err := json.Unmarshal(top, &list); err == nil {
		if len(list) == 0 {
			return nil, nil
		}
		return list[0], nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(top, &obj); err == nil {
		return top, nil
	}

	return nil, fmt.Errorf("unexpected top-level response format: %s", excerpt(resp.Body, 200))
}

func excerpt(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
