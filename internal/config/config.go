package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server struct {
		Port int    `yaml:"port"`
		Host string `yaml:"host"`
	} `yaml:"server"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`

	Storage struct {
		Backend  string `yaml:"backend"` // s3 or gdrive
		TempDir  string `yaml:"temp_dir"`
		VideoDir string `yaml:"video_dir"`
		Database string `yaml:"database"`
	} `yaml:"storage"`

	S3 struct {
		Bucket          string `yaml:"bucket"`
		Region          string `yaml:"region"`
		AccessKeyID     string `yaml:"access_key_id"`
		SecretAccessKey string `yaml:"secret_access_key"`
	} `yaml:"s3"`

	GoogleDrive struct {
		CredentialsFile string `yaml:"credentials_file"`
		TokenFile       string `yaml:"token_file"`
		FolderName      string `yaml:"folder_name"`
	} `yaml:"google_drive"`

	VectorIndex struct {
		Backend   string `yaml:"backend"` // pgvector or memory
		URL       string `yaml:"url"`
		TableName string `yaml:"table_name"`
		VectorDim int    `yaml:"vector_dim"`
		TopK      int    `yaml:"top_k"`
	} `yaml:"vector_index"`

	Embedding struct {
		Backend           string `yaml:"backend"` // onnx, openai or ollama
		ModelPath         string `yaml:"model_path"`
		TokenizerPath     string `yaml:"tokenizer_path"`
		SharedLibraryPath string `yaml:"shared_library_path"`
		MaxTokens         int    `yaml:"max_tokens"`
		Model             string `yaml:"model"`
		BaseURL           string `yaml:"base_url"`
		APIKey            string `yaml:"api_key"`
		RedisAddr         string `yaml:"redis_addr"`
		CacheTTLMinutes   int    `yaml:"cache_ttl_minutes"`
	} `yaml:"embedding"`

	Whisper struct {
		Binary      string `yaml:"binary"`
		Model       string `yaml:"model"`
		ModelDir    string `yaml:"model_dir"`
		BatchSize   int    `yaml:"batch_size"`
		Language    string `yaml:"language"`
		ComputeType string `yaml:"compute_type"`
		Device      string `yaml:"device"`
		Threads     int    `yaml:"threads"`
	} `yaml:"whisper"`

	Diarization struct {
		URL         string `yaml:"url"`
		HFToken     string `yaml:"hf_token"`
		NumSpeakers int    `yaml:"num_speakers"`
		MinSpeakers int    `yaml:"min_speakers"`
		MaxSpeakers int    `yaml:"max_speakers"`
	} `yaml:"diarization"`

	LLM struct {
		Provider    string  `yaml:"provider"` // openai or ollama
		Model       string  `yaml:"model"`
		BaseURL     string  `yaml:"base_url"`
		APIKey      string  `yaml:"api_key"`
		Temperature float64 `yaml:"temperature"`
		MaxTokens   int     `yaml:"max_tokens"`
	} `yaml:"llm"`

	Cleanup struct {
		IntervalMinutes int `yaml:"interval_minutes"`
		MaxAgeHours     int `yaml:"max_age_hours"`
	} `yaml:"cleanup"`

	Limits struct {
		MaxFileSizeMB int `yaml:"max_file_size_mb"`
	} `yaml:"limits"`
}

// DefaultPaths are searched in order when Load is called without a path.
var DefaultPaths = []string{
	"config/config.yaml",
	"config.yaml",
}

// Load reads the YAML file at path, merges environment overrides and fills
// defaults. An empty path searches DefaultPaths and falls back to defaults
// plus environment when no file exists.
func Load(path string) (*Config, error) {
	if path == "" {
		for _, loc := range DefaultPaths {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	var config Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}

	mergeWithEnv(&config)
	applyDefaults(&config)

	return &config, nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func applyDefaults(config *Config) {
	if config.Server.Port == 0 {
		config.Server.Port = 8000
	}
	if config.Server.Host == "" {
		config.Server.Host = "0.0.0.0"
	}

	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}
	if config.Logging.Format == "" {
		config.Logging.Format = "text"
	}

	if config.Storage.Backend == "" {
		config.Storage.Backend = "s3"
	}
	if config.Storage.TempDir == "" {
		config.Storage.TempDir = "temp"
	}
	if config.Storage.VideoDir == "" {
		config.Storage.VideoDir = "videos"
	}
	if config.Storage.Database == "" {
		config.Storage.Database = "grader.db"
	}

	if config.GoogleDrive.FolderName == "" {
		config.GoogleDrive.FolderName = "LectureUploads"
	}

	if config.VectorIndex.Backend == "" {
		config.VectorIndex.Backend = "pgvector"
	}
	if config.VectorIndex.TableName == "" {
		config.VectorIndex.TableName = "lecture_documents"
	}
	if config.VectorIndex.VectorDim == 0 {
		config.VectorIndex.VectorDim = 384 // all-MiniLM-L6-v2
	}
	if config.VectorIndex.TopK == 0 {
		config.VectorIndex.TopK = 1
	}

	if config.Embedding.Backend == "" {
		config.Embedding.Backend = "onnx"
	}
	if config.Embedding.ModelPath == "" {
		config.Embedding.ModelPath = "models/all-MiniLM-L6-v2/model.onnx"
	}
	if config.Embedding.TokenizerPath == "" {
		config.Embedding.TokenizerPath = "models/all-MiniLM-L6-v2/tokenizer.json"
	}
	if config.Embedding.MaxTokens == 0 {
		config.Embedding.MaxTokens = 256
	}
	if config.Embedding.CacheTTLMinutes == 0 {
		config.Embedding.CacheTTLMinutes = 24 * 60
	}

	if config.Whisper.Binary == "" {
		config.Whisper.Binary = "whisperx"
	}
	if config.Whisper.Model == "" {
		config.Whisper.Model = "large-v3"
	}
	if config.Whisper.BatchSize == 0 {
		config.Whisper.BatchSize = 4
	}
	if config.Whisper.Language == "" {
		config.Whisper.Language = "ru"
	}
	if config.Whisper.ComputeType == "" {
		config.Whisper.ComputeType = "int8"
	}
	if config.Whisper.Device == "" {
		config.Whisper.Device = "cpu"
	}

	if config.LLM.Provider == "" {
		config.LLM.Provider = "openai"
	}
	if config.LLM.Model == "" {
		config.LLM.Model = "gpt-4o"
	}
	if config.LLM.Provider == "ollama" && config.LLM.BaseURL == "" {
		config.LLM.BaseURL = "http://localhost:11434"
	}

	if config.Cleanup.IntervalMinutes == 0 {
		config.Cleanup.IntervalMinutes = 30
	}
	if config.Cleanup.MaxAgeHours == 0 {
		config.Cleanup.MaxAgeHours = 6
	}

	if config.Limits.MaxFileSizeMB == 0 {
		config.Limits.MaxFileSizeMB = 1024
	}
}

func mergeWithEnv(config *Config) {
	setFromEnv(&config.S3.Bucket, "S3_BUCKET_NAME")
	setFromEnv(&config.S3.Region, "AWS_REGION")
	setFromEnv(&config.S3.AccessKeyID, "AWS_ACCESS_KEY_ID")
	setFromEnv(&config.S3.SecretAccessKey, "AWS_SECRET_ACCESS_KEY")
	setFromEnv(&config.VectorIndex.URL, "DATABASE_URL")
	setFromEnv(&config.LLM.APIKey, "OPENAI_API_KEY")
	setFromEnv(&config.Diarization.HFToken, "YOUR_HF_TOKEN")
	setFromEnv(&config.Diarization.HFToken, "HF_TOKEN")
	setFromEnv(&config.Embedding.RedisAddr, "REDIS_ADDR")
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		if config.LLM.Provider == "ollama" {
			config.LLM.BaseURL = baseURL
		}
		if config.Embedding.Backend == "ollama" {
			config.Embedding.BaseURL = baseURL
		}
	}
	if config.Embedding.APIKey == "" {
		config.Embedding.APIKey = config.LLM.APIKey
	}
}

func setFromEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
