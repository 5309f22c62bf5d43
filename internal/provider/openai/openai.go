package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"earnings-analyst/internal/logger"
	"earnings-analyst/internal/provider"
	"earnings-analyst/internal/store"
	"earnings-analyst/internal/types"
)

// Analyzer calls the OpenAI chat completions API and returns a
// types.ProviderResult. Failures are classified values, never errors.
type Analyzer struct {
	cfg      store.ProviderConfig
	apiKey   string
	endpoint string
	client   *http.Client
}

// New validates the credential at construction; a missing key is a fatal
// configuration error, not a call-time failure.
func New(apiKey string, cfg store.ProviderConfig) (*Analyzer, error) {
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY missing")
	}
	endpoint := "https://api.openai.com/v1/chat/completions"
	// Proxies and tests point the client elsewhere via env
	if ep := os.Getenv("OPENAI_API_ENDPOINT"); ep != "" {
		endpoint = ep
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &Analyzer{
		cfg:      cfg,
		apiKey:   apiKey,
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}, nil
}

func (a *Analyzer) Provider() types.ProviderID {
	return types.ProviderOpenAI
}

func (a *Analyzer) Analyze(ctx context.Context, transcriptText, instruction string, opts types.AnalyzeOptions) types.ProviderResult {
	if f := provider.ValidateInput(types.ProviderOpenAI, transcriptText, instruction); f != nil {
		return *f
	}

	ctx, span := logger.StartSpan(ctx, "openai-analyze")
	defer span.End()

	model := a.cfg.Model
	if opts.Model != "" {
		model = opts.Model
	}
	maxTokens := a.cfg.MaxTokens
	if opts.MaxOutputTokens > 0 {
		maxTokens = opts.MaxOutputTokens
	}

	body := map[string]any{
		"model": model,
		"messages": []map[string]string{
			{"role": "system", "content": provider.SystemPrompt()},
			{"role": "user", "content": provider.UserPrompt(transcriptText, instruction)},
		},
		"temperature":     a.cfg.Temperature,
		"max_tokens":      maxTokens,
		"response_format": map[string]string{"type": "json_object"},
	}
	bb, _ := json.Marshal(body)

	logger.Debug(ctx, "Sending request to OpenAI", "model", model, "transcript_chars", len(transcriptText))
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, "POST", a.endpoint, bytes.NewReader(bb))
	if err != nil {
		return types.Failed(types.ProviderOpenAI, types.FailureNetwork, err.Error())
	}
	req.Header.Set("Authorization", "Bearer "+a.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		f := provider.ClassifyTransportErr(err)
		logger.ErrorWithErr(ctx, "OpenAI API request failed", err, "kind", string(f.Kind), "latency_ms", latency.Milliseconds())
		return types.ProviderResult{Provider: types.ProviderOpenAI, Failure: &f}
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		f := provider.ClassifyTransportErr(err)
		return types.ProviderResult{Provider: types.ProviderOpenAI, Failure: &f}
	}

	logger.Debug(ctx, "Received response from OpenAI",
		"status_code", resp.StatusCode,
		"latency_ms", latency.Milliseconds(),
		"response_length", len(respBytes),
	)

	if resp.StatusCode >= 300 {
		f := provider.ClassifyStatus(types.ProviderOpenAI, resp.StatusCode, respBytes)
		logger.Error(ctx, "OpenAI API returned error status", "status_code", resp.StatusCode, "kind", string(f.Kind))
		return types.ProviderResult{Provider: types.ProviderOpenAI, Failure: &f}
	}

	var r struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(respBytes, &r); err != nil {
		return types.Failed(types.ProviderOpenAI, types.FailureMalformed,
			"undecodable response body: "+provider.Excerpt(respBytes, 300))
	}
	if len(r.Choices) == 0 {
		return types.Failed(types.ProviderOpenAI, types.FailureMalformed,
			"no choices in response: "+provider.Excerpt(respBytes, 300))
	}

	content := strings.TrimSpace(r.Choices[0].Message.Content)
	payload := provider.DecodePayload(types.ProviderOpenAI, content, model)
	if payload.Warning != "" {
		logger.Warn(ctx, "OpenAI response is not structured JSON, keeping free text", "model", model)
	}

	logger.Info(ctx, "OpenAI analysis received",
		"model", model,
		"latency_ms", latency.Milliseconds(),
		"structured", payload.Warning == "",
	)
	return types.ProviderResult{Provider: types.ProviderOpenAI, Payload: payload}
}
