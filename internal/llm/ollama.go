package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	ollama "github.com/ollama/ollama/api"

	"codemate/internal/config"
	"codemate/internal/logging"
)

// OllamaClient runs completions against a local Ollama instance.
type OllamaClient struct {
	client *ollama.Client
	model  string
	cfg    config.LLMConfig
}

// NewOllamaClient creates a client for the configured base URL, falling back
// to OLLAMA_HOST / the default local endpoint when none is set.
func NewOllamaClient(cfg *config.LLMConfig) (*OllamaClient, error) {
	model := cfg.Model
	if model == "" {
		model = "llama3.2"
	}
	model = strings.TrimPrefix(model, "ollama:")

	var client *ollama.Client
	if cfg.BaseURL != "" {
		base, err := url.Parse(cfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid ollama base url %q: %w", cfg.BaseURL, err)
		}
		client = ollama.NewClient(base, &http.Client{Timeout: cfg.GetTimeout()})
	} else {
		var err error
		client, err = ollama.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTransport, err)
		}
	}

	logging.LLM("ollama client ready (model=%s)", model)
	return &OllamaClient{client: client, model: model, cfg: *cfg}, nil
}

func (c *OllamaClient) Name() string { return "ollama:" + c.model }

func (c *OllamaClient) Complete(ctx context.Context, prompt string) (string, error) {
	return c.chat(ctx, "", prompt)
}

func (c *OllamaClient) CompleteWithSystem(ctx context.Context, system, prompt string) (string, error) {
	return c.chat(ctx, system, prompt)
}

func (c *OllamaClient) chat(ctx context.Context, system, prompt string) (string, error) {
	timer := logging.StartTimer(logging.CategoryLLM, "ollama chat")
	defer timer.Stop()

	ctx, cancel := context.WithTimeout(ctx, c.cfg.GetTimeout())
	defer cancel()

	var messages []ollama.Message
	if system != "" {
		messages = append(messages, ollama.Message{Role: "system", Content: system})
	}
	messages = append(messages, ollama.Message{Role: "user", Content: prompt})

	stream := false
	req := &ollama.ChatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   &stream,
		Options: map[string]interface{}{
			"temperature": float64(c.cfg.Temperature),
			"top_p":       float64(c.cfg.TopP),
			"top_k":       int(c.cfg.TopK),
			"num_predict": int(c.cfg.MaxOutputTokens),
		},
	}

	var reply strings.Builder
	respFunc := func(res ollama.ChatResponse) error {
		reply.WriteString(res.Message.Content)
		return nil
	}

	if err := c.client.Chat(ctx, req, respFunc); err != nil {
		logging.LLMError("ollama chat failed: %v", err)
		return "", fmt.Errorf("%w: %v", ErrTransport, err)
	}

	logging.LLMDebug("ollama reply: %d chars", reply.Len())
	return reply.String(), nil
}

func (c *OllamaClient) Close() error { return nil }
