// Package llm is the provider boundary: everything above it sees a Client
// that turns a prompt into raw text. Providers never parse or repair model
// output; that belongs to the recovery layer.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"codemate/internal/config"
)

// ErrTransport marks provider/network failures, as opposed to a provider
// returning unusable text (which is not an error at this layer).
var ErrTransport = errors.New("llm transport error")

// Client produces a raw completion for a prompt.
type Client interface {
	// Complete sends a user prompt and returns the raw reply text.
	Complete(ctx context.Context, prompt string) (string, error)
	// CompleteWithSystem sends a system instruction alongside the prompt.
	CompleteWithSystem(ctx context.Context, system, prompt string) (string, error)
	// Name identifies the provider for logging.
	Name() string
	// Close releases provider resources.
	Close() error
}

// NewFromConfig builds the provider named by the config.
func NewFromConfig(cfg *config.LLMConfig) (Client, error) {
	switch strings.ToLower(cfg.Provider) {
	case "gemini", "":
		return NewGeminiClient(cfg)
	case "ollama":
		return NewOllamaClient(cfg)
	case "mock":
		return NewMockClient(), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %q", cfg.Provider)
	}
}
