package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
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

// Analyzer calls the Gemini generateContent REST API. The wire protocol
// differs from OpenAI's (single combined prompt, contents/parts framing,
// candidates in the response) but the result envelope is identical.
type Analyzer struct {
	cfg     store.ProviderConfig
	apiKey  string
	baseURL string
	client  *http.Client
}

// New validates the credential at construction.
func New(apiKey string, cfg store.ProviderConfig) (*Analyzer, error) {
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY missing")
	}
	baseURL := "https://generativelanguage.googleapis.com/v1beta/models"
	if ep := os.Getenv("GEMINI_API_ENDPOINT"); ep != "" {
		baseURL = ep
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &Analyzer{
		cfg:     cfg,
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

func (a *Analyzer) Provider() types.ProviderID {
	return types.ProviderGemini
}

func (a *Analyzer) Analyze(ctx context.Context, transcriptText, instruction string, opts types.AnalyzeOptions) types.ProviderResult {
	if f := provider.ValidateInput(types.ProviderGemini, transcriptText, instruction); f != nil {
		return *f
	}

	ctx, span := logger.StartSpan(ctx, "gemini-analyze")
	defer span.End()

	model := a.cfg.Model
	if opts.Model != "" {
		model = opts.Model
	}
	maxTokens := a.cfg.MaxTokens
	if opts.MaxOutputTokens > 0 {
		maxTokens = opts.MaxOutputTokens
	}

	// Gemini takes one combined prompt: system preamble, transcript, directive.
	fullPrompt := provider.SystemPrompt() + "\n\n" + provider.UserPrompt(transcriptText, instruction)

	body := map[string]any{
		"contents": []map[string]any{
			{"parts": []map[string]string{{"text": fullPrompt}}},
		},
		"generationConfig": map[string]any{
			"temperature":     a.cfg.Temperature,
			"maxOutputTokens": maxTokens,
		},
	}
	bb, _ := json.Marshal(body)

	url := fmt.Sprintf("%s/%s:generateContent", a.baseURL, model)
	logger.Debug(ctx, "Sending request to Gemini", "model", model, "transcript_chars", len(transcriptText))
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(bb))
	if err != nil {
		return types.Failed(types.ProviderGemini, types.FailureNetwork, err.Error())
	}
	req.Header.Set("X-goog-api-key", a.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		f := provider.ClassifyTransportErr(err)
		logger.ErrorWithErr(ctx, "Gemini API request failed", err, "kind", string(f.Kind), "latency_ms", latency.Milliseconds())
		return types.ProviderResult{Provider: types.ProviderGemini, Failure: &f}
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		f := provider.ClassifyTransportErr(err)
		return types.ProviderResult{Provider: types.ProviderGemini, Failure: &f}
	}

	logger.Debug(ctx, "Received response from Gemini",
		"status_code", resp.StatusCode,
		"latency_ms", latency.Milliseconds(),
		"response_length", len(respBytes),
	)

	if resp.StatusCode >= 300 {
		f := provider.ClassifyStatus(types.ProviderGemini, resp.StatusCode, respBytes)
		logger.Error(ctx, "Gemini API returned error status", "status_code", resp.StatusCode, "kind", string(f.Kind))
		return types.ProviderResult{Provider: types.ProviderGemini, Failure: &f}
	}

	var r struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(respBytes, &r); err != nil {
		return types.Failed(types.ProviderGemini, types.FailureMalformed,
			"undecodable response body: "+provider.Excerpt(respBytes, 300))
	}
	if len(r.Candidates) == 0 || len(r.Candidates[0].Content.Parts) == 0 {
		return types.Failed(types.ProviderGemini, types.FailureMalformed,
			"no candidate text in response: "+provider.Excerpt(respBytes, 300))
	}

	content := strings.TrimSpace(r.Candidates[0].Content.Parts[0].Text)
	payload := provider.DecodePayload(types.ProviderGemini, content, model)
	if payload.Warning != "" {
		logger.Warn(ctx, "Gemini response is not structured JSON, keeping free text", "model", model)
	}

	logger.Info(ctx, "Gemini analysis received",
		"model", model,
		"latency_ms", latency.Milliseconds(),
		"structured", payload.Warning == "",
	)
	return types.ProviderResult{Provider: types.ProviderGemini, Payload: payload}
}
