package store

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ProviderConfig holds per-provider tuning. API keys never live here; they are
// read from env at wiring time.
type ProviderConfig struct {
	Model          string  `yaml:"model"`
	MaxTokens      int     `yaml:"max_tokens"`
	Temperature    float32 `yaml:"temperature"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
}

type Config struct {
	Mode string `yaml:"mode"` // DRY_RUN or LIVE

	Providers struct {
		OpenAI ProviderConfig `yaml:"openai"`
		Gemini ProviderConfig `yaml:"gemini"`
	} `yaml:"providers"`

	Analysis struct {
		OverallTimeoutSeconds int     `yaml:"overall_timeout_seconds"`
		DivergenceThreshold   float64 `yaml:"divergence_threshold"` // 0 flags any score gap
		DefaultInstruction    string  `yaml:"default_instruction"`
	} `yaml:"analysis"`

	Transcripts struct {
		BaseURL         string `yaml:"base_url"`
		TimeoutSeconds  int    `yaml:"timeout_seconds"`
		FallbackScraper bool   `yaml:"fallback_scraper"`
	} `yaml:"transcripts"`

	Reports struct {
		Dir string `yaml:"dir"`
	} `yaml:"reports"`
}

func (c *Config) Validate() error {
	if c.Mode != "DRY_RUN" && c.Mode != "LIVE" {
		return fmt.Errorf("invalid mode '%s': must be 'DRY_RUN' or 'LIVE'", c.Mode)
	}
	if c.Analysis.DivergenceThreshold < 0 || c.Analysis.DivergenceThreshold > 100 {
		return fmt.Errorf("analysis.divergence_threshold must be between 0-100, got %.2f", c.Analysis.DivergenceThreshold)
	}
	if c.Providers.OpenAI.TimeoutSeconds <= 0 || c.Providers.Gemini.TimeoutSeconds <= 0 {
		return fmt.Errorf("provider timeout_seconds must be positive")
	}
	if c.Analysis.OverallTimeoutSeconds < c.Providers.OpenAI.TimeoutSeconds ||
		c.Analysis.OverallTimeoutSeconds < c.Providers.Gemini.TimeoutSeconds {
		return fmt.Errorf("analysis.overall_timeout_seconds (%d) must cover the per-provider budgets", c.Analysis.OverallTimeoutSeconds)
	}
	return nil
}

// DefaultConfig mirrors the defaults the upstream providers document.
func DefaultConfig() *Config {
	c := &Config{Mode: "LIVE"}
	c.Providers.OpenAI = ProviderConfig{Model: "gpt-4o-mini", MaxTokens: 2500, Temperature: 0.3, TimeoutSeconds: 60}
	c.Providers.Gemini = ProviderConfig{Model: "gemini-2.5-flash", MaxTokens: 2500, Temperature: 0.3, TimeoutSeconds: 60}
	c.Analysis.OverallTimeoutSeconds = 150
	c.Analysis.DivergenceThreshold = 25
	c.Analysis.DefaultInstruction = "Analyze the transcript. Provide the response as a JSON object with the following keys:\n" +
		"- \"summary\": A concise summary of the call (string).\n" +
		"- \"overall_sentiment\": \"Positive\", \"Neutral\", or \"Negative\" (string).\n" +
		"- \"management_confidence_score\": A score from 0 to 100 for management's confidence (integer).\n" +
		"- \"evasiveness_score_q_a\": A score from 0 to 100 for evasiveness in Q&A (integer).\n" +
		"- \"key_topics\": A list of 3-5 main topics discussed (array of strings).\n" +
		"- \"red_flags\": A list of any specific red flags or evasive phrases identified (array of strings)."
	c.Transcripts.BaseURL = "https://api.api-ninjas.com/v1"
	c.Transcripts.TimeoutSeconds = 30
	c.Reports.Dir = "reports"
	return c
}

// LoadConfig reads the YAML config at path, falling back to defaults when the
// file does not exist. Missing fields inherit defaults.
func LoadConfig(path string) (*Config, error) {
	c := DefaultConfig()

	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, err
	}

	if c.Providers.OpenAI.MaxTokens == 0 {
		c.Providers.OpenAI.MaxTokens = 2500
	}
	if c.Providers.Gemini.MaxTokens == 0 {
		c.Providers.Gemini.MaxTokens = 2500
	}
	if c.Providers.OpenAI.TimeoutSeconds == 0 {
		c.Providers.OpenAI.TimeoutSeconds = 60
	}
	if c.Providers.Gemini.TimeoutSeconds == 0 {
		c.Providers.Gemini.TimeoutSeconds = 60
	}
	if c.Analysis.OverallTimeoutSeconds == 0 {
		c.Analysis.OverallTimeoutSeconds = 150
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return c, nil
}
