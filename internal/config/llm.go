package config

import "time"

// LLMConfig configures the LLM boundary.
type LLMConfig struct {
	Provider string `yaml:"provider"` // gemini, ollama, mock
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"` // used by the ollama provider
	Timeout  string `yaml:"timeout"`

	// Generation parameters passed through to the provider.
	Temperature     float32 `yaml:"temperature"`
	TopP            float32 `yaml:"top_p"`
	TopK            int32   `yaml:"top_k"`
	MaxOutputTokens int32   `yaml:"max_output_tokens"`
}

// GetTimeout returns the LLM timeout as a duration.
func (c *LLMConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 30*time.Second)
}
