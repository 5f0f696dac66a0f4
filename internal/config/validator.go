package config

import (
	"fmt"
	"net/url"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate reports every missing credential and out-of-range setting.
// Components tied to a failing field start degraded.
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError
	add := func(field, msg string) {
		errors = append(errors, ValidationError{Field: field, Message: msg})
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		add("server.port", "port must be between 1 and 65535")
	}

	switch c.Storage.Backend {
	case "s3":
		if c.S3.Bucket == "" {
			add("s3.bucket", "S3 bucket name is required")
		}
		if c.S3.Region == "" {
			add("s3.region", "AWS region is required")
		}
		if c.S3.AccessKeyID == "" || c.S3.SecretAccessKey == "" {
			add("s3.credentials", "AWS access key id and secret access key are required")
		}
	case "gdrive":
		if c.GoogleDrive.CredentialsFile == "" || c.GoogleDrive.TokenFile == "" {
			add("google_drive", "credentials_file and token_file are required")
		}
	default:
		add("storage.backend", fmt.Sprintf("unknown storage backend: %s", c.Storage.Backend))
	}

	switch c.VectorIndex.Backend {
	case "pgvector":
		if c.VectorIndex.URL == "" {
			add("vector_index.url", "vector index database URL is required")
		} else if _, err := url.Parse(c.VectorIndex.URL); err != nil {
			add("vector_index.url", "invalid vector index database URL")
		}
	case "memory":
	default:
		add("vector_index.backend", fmt.Sprintf("unknown vector index backend: %s", c.VectorIndex.Backend))
	}
	if c.VectorIndex.VectorDim < 1 {
		add("vector_index.vector_dim", "vector_dim must be positive")
	}
	if c.VectorIndex.TopK < 1 {
		add("vector_index.top_k", "top_k must be positive")
	}

	switch c.Embedding.Backend {
	case "onnx":
		if c.Embedding.ModelPath == "" || c.Embedding.TokenizerPath == "" {
			add("embedding.model_path", "ONNX model and tokenizer paths are required")
		}
	case "openai":
		if c.Embedding.APIKey == "" {
			add("embedding.api_key", "OpenAI API key is required for openai embeddings")
		}
	case "ollama":
	default:
		add("embedding.backend", fmt.Sprintf("unknown embedding backend: %s", c.Embedding.Backend))
	}
	if c.Embedding.MaxTokens < 1 {
		add("embedding.max_tokens", "max_tokens must be positive")
	}

	if c.Whisper.BatchSize < 1 {
		add("whisper.batch_size", "batch_size must be positive")
	}

	if c.Diarization.URL == "" {
		add("diarization.url", "diarization service URL is required")
	}
	if c.Diarization.HFToken == "" {
		add("diarization.hf_token", "model access token is required")
	}
	if c.Diarization.MinSpeakers > 0 && c.Diarization.MaxSpeakers > 0 &&
		c.Diarization.MinSpeakers > c.Diarization.MaxSpeakers {
		add("diarization.min_speakers", "min_speakers must not exceed max_speakers")
	}

	switch c.LLM.Provider {
	case "openai":
		if c.LLM.APIKey == "" {
			add("llm.api_key", "OpenAI API key is required")
		}
	case "ollama":
	default:
		add("llm.provider", fmt.Sprintf("unknown llm provider: %s", c.LLM.Provider))
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		add("llm.temperature", "temperature must be between 0 and 2")
	}

	if c.Cleanup.IntervalMinutes < 1 {
		add("cleanup.interval_minutes", "interval_minutes must be positive")
	}
	if c.Cleanup.MaxAgeHours < 1 {
		add("cleanup.max_age_hours", "max_age_hours must be positive")
	}

	if c.Limits.MaxFileSizeMB < 1 {
		add("limits.max_file_size_mb", "max_file_size_mb must be positive")
	}

	return errors
}
