// Package registry constructs every model and service handle once at
// process start and releases them on shutdown.
package registry

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/codebuildervaibhav/lecture-grader/internal/completion"
	"github.com/codebuildervaibhav/lecture-grader/internal/config"
	"github.com/codebuildervaibhav/lecture-grader/internal/embedding"
	"github.com/codebuildervaibhav/lecture-grader/internal/grading"
	"github.com/codebuildervaibhav/lecture-grader/internal/lecture"
	"github.com/codebuildervaibhav/lecture-grader/internal/storage"
	"github.com/codebuildervaibhav/lecture-grader/internal/transcription"
	"github.com/codebuildervaibhav/lecture-grader/internal/vectorindex"
)

// Registry holds the shared handles. Handles are used concurrently by
// requests without extra locking.
type Registry struct {
	ObjectStore storage.ObjectStore
	Videos      *storage.VideoStore
	Metadata    *storage.MetadataDB
	Embedder    embedding.Embedder
	Index       vectorindex.Index
	Retrieval   *vectorindex.Service
	Pipeline    *transcription.Pipeline
	Completer   completion.Completer
	Grader      *grading.Grader
	Importer    *lecture.Importer

	// Degraded lists components that failed to build. Each is replaced by a
	// stand-in that returns the construction error on use.
	Degraded map[string]error

	closers []io.Closer
	log     logrus.FieldLogger
}

// Build constructs all components from cfg. Only local storage failures are
// fatal; remote components degrade.
func Build(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (*Registry, error) {
	r := &Registry{Degraded: map[string]error{}, log: log}

	videos, err := storage.NewVideoStore(cfg.Storage.VideoDir)
	if err != nil {
		return nil, err
	}
	r.Videos = videos

	meta, err := storage.NewMetadataDB(cfg.Storage.Database)
	if err != nil {
		return nil, err
	}
	r.Metadata = meta
	r.closers = append(r.closers, meta)

	r.ObjectStore = r.buildObjectStore(ctx, cfg)
	r.Embedder = r.buildEmbedder(ctx, cfg)
	r.Index = r.buildIndex(ctx, cfg)
	r.Retrieval = vectorindex.NewService(r.Embedder, r.Index, cfg.VectorIndex.TopK, log.WithField("component", "retrieval"))

	r.Pipeline = transcription.NewPipeline(
		transcription.NewAudioExtractor(cfg.Storage.TempDir),
		r.buildRecognizer(cfg),
		r.buildDiarizer(cfg),
		transcription.SpeakerBounds{
			NumSpeakers: cfg.Diarization.NumSpeakers,
			MinSpeakers: cfg.Diarization.MinSpeakers,
			MaxSpeakers: cfg.Diarization.MaxSpeakers,
		},
		log.WithField("component", "transcription"),
	)

	r.Completer = r.buildCompleter(cfg)
	r.Grader = grading.NewGrader(r.Pipeline, r.Retrieval, r.Completer, cfg.VectorIndex.TopK, log.WithField("component", "grading"))
	r.Importer = lecture.NewImporter(lecture.NewChromeRenderer(2*time.Minute), log.WithField("component", "lecture"))

	return r, nil
}

func (r *Registry) degrade(name string, err error) {
	r.Degraded[name] = err
	r.log.WithError(err).WithField("component", name).Warn("Component unavailable")
}

func (r *Registry) buildObjectStore(ctx context.Context, cfg *config.Config) storage.ObjectStore {
	var (
		store storage.ObjectStore
		err   error
	)
	switch cfg.Storage.Backend {
	case "gdrive":
		store, err = storage.NewDriveStore(ctx, cfg.GoogleDrive.CredentialsFile, cfg.GoogleDrive.TokenFile, cfg.GoogleDrive.FolderName)
	default:
		store, err = storage.NewS3Store(ctx, cfg.S3.Bucket, cfg.S3.Region, cfg.S3.AccessKeyID, cfg.S3.SecretAccessKey)
	}
	if err != nil {
		r.degrade("object_store", err)
		return unavailableStore{backend: cfg.Storage.Backend, err: err}
	}
	return store
}

func (r *Registry) buildEmbedder(ctx context.Context, cfg *config.Config) embedding.Embedder {
	var (
		emb embedding.Embedder
		err error
	)
	switch cfg.Embedding.Backend {
	case "openai", "ollama":
		emb, err = embedding.NewRemoteEmbedder(embedding.RemoteConfig{
			Backend: cfg.Embedding.Backend,
			Model:   cfg.Embedding.Model,
			BaseURL: cfg.Embedding.BaseURL,
			APIKey:  cfg.Embedding.APIKey,
		})
	default:
		var onnx *embedding.ONNXEmbedder
		onnx, err = embedding.NewONNXEmbedder(embedding.ONNXConfig{
			ModelPath:         cfg.Embedding.ModelPath,
			TokenizerPath:     cfg.Embedding.TokenizerPath,
			SharedLibraryPath: cfg.Embedding.SharedLibraryPath,
			MaxTokens:         cfg.Embedding.MaxTokens,
		})
		if err == nil {
			emb = onnx
		}
	}
	if err != nil {
		r.degrade("embedder", err)
		return unavailableEmbedder{err: err}
	}

	if cfg.Embedding.RedisAddr == "" {
		if c, ok := emb.(embedding.Closer); ok {
			r.closers = append(r.closers, c)
		}
		return emb
	}

	ttl := time.Duration(cfg.Embedding.CacheTTLMinutes) * time.Minute
	cached, err := embedding.NewRedisCache(ctx, emb, cfg.Embedding.RedisAddr, ttl, r.log.WithField("component", "embedding_cache"))
	if err != nil {
		r.log.WithError(err).Warn("Embedding cache disabled")
		if c, ok := emb.(embedding.Closer); ok {
			r.closers = append(r.closers, c)
		}
		return emb
	}
	r.closers = append(r.closers, cached)
	return cached
}

func (r *Registry) buildIndex(ctx context.Context, cfg *config.Config) vectorindex.Index {
	if cfg.VectorIndex.Backend == "memory" {
		return vectorindex.NewMemoryIndex()
	}

	idx, err := vectorindex.NewPGVectorIndex(ctx, vectorindex.PGVectorConfig{
		ConnString: cfg.VectorIndex.URL,
		TableName:  cfg.VectorIndex.TableName,
		VectorDim:  cfg.VectorIndex.VectorDim,
	})
	if err != nil {
		r.degrade("vector_index", err)
		return unavailableIndex{err: err}
	}
	r.closers = append(r.closers, idx)
	return idx
}

func (r *Registry) buildRecognizer(cfg *config.Config) transcription.Recognizer {
	w, err := transcription.NewWhisperX(transcription.WhisperXConfig{
		Binary:      cfg.Whisper.Binary,
		Model:       cfg.Whisper.Model,
		ModelDir:    cfg.Whisper.ModelDir,
		BatchSize:   cfg.Whisper.BatchSize,
		Language:    cfg.Whisper.Language,
		ComputeType: cfg.Whisper.ComputeType,
		Device:      cfg.Whisper.Device,
		Threads:     cfg.Whisper.Threads,
		OutputDir:   cfg.Storage.TempDir,
	}, r.log.WithField("component", "whisperx"))
	if err != nil {
		r.degrade("recognizer", err)
		return unavailableRecognizer{err: err}
	}
	return w
}

func (r *Registry) buildDiarizer(cfg *config.Config) transcription.Diarizer {
	d, err := transcription.NewHTTPDiarizer(cfg.Diarization.URL, cfg.Diarization.HFToken)
	if err != nil {
		r.degrade("diarizer", err)
		return unavailableDiarizer{err: err}
	}
	return d
}

func (r *Registry) buildCompleter(cfg *config.Config) completion.Completer {
	c, err := completion.New(completion.Config{
		Provider:    cfg.LLM.Provider,
		Model:       cfg.LLM.Model,
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
	})
	if err != nil {
		r.degrade("completion", err)
		return unavailableCompleter{err: err}
	}
	return c
}

// Close releases handles in reverse construction order.
func (r *Registry) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}
