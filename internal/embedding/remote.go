package embedding

import (
	"context"

	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/codebuildervaibhav/lecture-grader/internal/apperr"
)

// embedderClient is the batch embedding call shared by the langchaingo
// providers.
type embedderClient interface {
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}

// RemoteEmbedder embeds through an OpenAI or Ollama endpoint.
type RemoteEmbedder struct {
	client embedderClient
}

// RemoteConfig selects the provider and model.
type RemoteConfig struct {
	Backend string // openai | ollama
	Model   string
	BaseURL string
	APIKey  string
}

// NewRemoteEmbedder creates the provider client for cfg.Backend.
func NewRemoteEmbedder(cfg RemoteConfig) (*RemoteEmbedder, error) {
	switch cfg.Backend {
	case "openai":
		if cfg.APIKey == "" {
			return nil, apperr.Newf(apperr.KindConfiguration, "remote embedder", "openai api key is required")
		}
		opts := []openai.Option{openai.WithToken(cfg.APIKey)}
		if cfg.Model != "" {
			opts = append(opts, openai.WithEmbeddingModel(cfg.Model))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		llm, err := openai.New(opts...)
		if err != nil {
			return nil, apperr.Newf(apperr.KindConfiguration, "remote embedder", "failed to initialize openai: %w", err)
		}
		return &RemoteEmbedder{client: llm}, nil

	case "ollama":
		model := cfg.Model
		if model == "" {
			model = "nomic-embed-text:latest"
		}
		opts := []ollama.Option{ollama.WithModel(model)}
		if cfg.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
		}
		llm, err := ollama.New(opts...)
		if err != nil {
			return nil, apperr.Newf(apperr.KindConfiguration, "remote embedder", "failed to initialize ollama: %w", err)
		}
		return &RemoteEmbedder{client: llm}, nil
	}

	return nil, apperr.Newf(apperr.KindConfiguration, "remote embedder", "unknown backend %q", cfg.Backend)
}

// Embed implements Embedder.
func (r *RemoteEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := r.client.CreateEmbedding(ctx, []string{text})
	if err != nil {
		return nil, apperr.New(apperr.KindUpstream, "create embedding", err)
	}
	if len(vectors) == 0 {
		return nil, apperr.Newf(apperr.KindUpstream, "create embedding", "provider returned no vectors")
	}
	return vectors[0], nil
}
