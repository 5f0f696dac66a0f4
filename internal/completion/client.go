// Package completion sends chat prompts to the configured LLM.
package completion

import (
	"context"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"

	"github.com/codebuildervaibhav/lecture-grader/internal/apperr"
)

// Config selects the provider and generation settings.
type Config struct {
	Provider    string // openai | ollama
	Model       string
	BaseURL     string
	APIKey      string
	Temperature float64
	MaxTokens   int
}

// Completer returns the model's reply to a system prompt and user turns.
type Completer interface {
	Complete(ctx context.Context, system string, userTurns []string) (string, error)
}

// Client is a Completer backed by a langchaingo model.
type Client struct {
	llm    llms.Model
	config Config
}

// New creates the provider model for cfg.Provider.
func New(cfg Config) (*Client, error) {
	var (
		llm llms.Model
		err error
	)

	switch cfg.Provider {
	case "", "openai":
		if cfg.APIKey == "" {
			return nil, apperr.Newf(apperr.KindConfiguration, "completion", "openai api key is required")
		}
		opts := []openai.Option{openai.WithToken(cfg.APIKey)}
		if cfg.Model != "" {
			opts = append(opts, openai.WithModel(cfg.Model))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		llm, err = openai.New(opts...)
	case "ollama":
		opts := []ollama.Option{ollama.WithModel(cfg.Model)}
		if cfg.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
		}
		llm, err = ollama.New(opts...)
	default:
		return nil, apperr.Newf(apperr.KindConfiguration, "completion", "unknown provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, apperr.Newf(apperr.KindConfiguration, "completion", "failed to initialize LLM: %w", err)
	}

	return NewWithModel(llm, cfg), nil
}

// NewWithModel wraps an existing model.
func NewWithModel(llm llms.Model, cfg Config) *Client {
	return &Client{llm: llm, config: cfg}
}

// Complete implements Completer. The reply is returned as produced, only
// surrounding whitespace is trimmed.
func (c *Client) Complete(ctx context.Context, system string, userTurns []string) (string, error) {
	content := make([]llms.MessageContent, 0, len(userTurns)+1)
	content = append(content, llms.TextParts(schema.ChatMessageTypeSystem, system))
	for _, turn := range userTurns {
		content = append(content, llms.TextParts(schema.ChatMessageTypeHuman, turn))
	}

	opts := []llms.CallOption{llms.WithTemperature(c.config.Temperature)}
	if c.config.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(c.config.MaxTokens))
	}

	resp, err := c.llm.GenerateContent(ctx, content, opts...)
	if err != nil {
		return "", apperr.New(apperr.KindCompletion, "chat completion", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", apperr.Newf(apperr.KindCompletion, "chat completion", "no choices in response")
	}

	return strings.TrimSpace(resp.Choices[0].Content), nil
}
