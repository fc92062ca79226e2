package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"codemate/internal/config"
	"codemate/internal/logging"
)

// GeminiClient talks to the Gemini API through the official SDK.
type GeminiClient struct {
	client *genai.Client
	model  string
	cfg    config.LLMConfig
}

// NewGeminiClient creates a Gemini-backed client. The API key comes from the
// config, which already folds in GEMINI_API_KEY / GOOGLE_API_KEY.
func NewGeminiClient(cfg *config.LLMConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required (set GEMINI_API_KEY)")
	}

	model := cfg.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}

	logging.LLM("gemini client ready (model=%s)", model)
	return &GeminiClient{client: client, model: model, cfg: *cfg}, nil
}

func (c *GeminiClient) Name() string { return "gemini:" + c.model }

func (c *GeminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	return c.generate(ctx, "", prompt)
}

func (c *GeminiClient) CompleteWithSystem(ctx context.Context, system, prompt string) (string, error) {
	return c.generate(ctx, system, prompt)
}

func (c *GeminiClient) generate(ctx context.Context, system, prompt string) (string, error) {
	timer := logging.StartTimer(logging.CategoryLLM, "gemini generate")
	defer timer.Stop()

	ctx, cancel := context.WithTimeout(ctx, c.cfg.GetTimeout())
	defer cancel()

	genCfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(c.cfg.Temperature),
		TopP:            genai.Ptr(c.cfg.TopP),
		TopK:            genai.Ptr(float32(c.cfg.TopK)),
		MaxOutputTokens: c.cfg.MaxOutputTokens,
	}
	if system != "" {
		genCfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), genCfg)
	if err != nil {
		logging.LLMError("gemini generate failed: %v", err)
		return "", fmt.Errorf("%w: %v", ErrTransport, err)
	}

	text := resp.Text()
	logging.LLMDebug("gemini reply: %d chars", len(text))
	return text, nil
}

// Close is a no-op: the genai SDK's client holds no connection state
// that needs releasing.
func (c *GeminiClient) Close() error {
	return nil
}
