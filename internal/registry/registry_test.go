package registry

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codebuildervaibhav/lecture-grader/internal/apperr"
	"github.com/codebuildervaibhav/lecture-grader/internal/config"
)

func TestBuildDegradesMissingCredentials(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{}
	cfg.Storage.Backend = "s3"
	cfg.Storage.VideoDir = filepath.Join(dir, "videos")
	cfg.Storage.TempDir = filepath.Join(dir, "temp")
	cfg.Storage.Database = filepath.Join(dir, "grader.db")
	cfg.VectorIndex.Backend = "memory"
	cfg.VectorIndex.TopK = 1
	cfg.Embedding.Backend = "openai"
	cfg.Whisper.Binary = "whisperx-binary-that-does-not-exist"
	cfg.LLM.Provider = "openai"

	logger, _ := test.NewNullLogger()
	r, err := Build(context.Background(), cfg, logger)
	require.NoError(t, err)
	defer r.Close()

	for _, name := range []string{"object_store", "embedder", "recognizer", "diarizer", "completion"} {
		assert.Contains(t, r.Degraded, name)
	}
	assert.NotContains(t, r.Degraded, "vector_index")

	_, err = r.ObjectStore.Store(context.Background(), []byte("x"), "a.txt")
	assert.ErrorIs(t, err, apperr.ErrConfiguration)
	assert.Equal(t, "s3", r.ObjectStore.Backend())

	_, err = r.Retrieval.Retrieve(context.Background(), "Physics", 1)
	assert.ErrorIs(t, err, apperr.ErrConfiguration)

	_, err = r.Completer.Complete(context.Background(), "sys", nil)
	assert.ErrorIs(t, err, apperr.ErrConfiguration)
}

func TestBuildFailsOnUnusableDatabase(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{}
	cfg.Storage.VideoDir = filepath.Join(dir, "videos")
	cfg.Storage.Database = filepath.Join(dir, "missing", "nested", "grader.db")

	logger, _ := test.NewNullLogger()
	_, err := Build(context.Background(), cfg, logger)
	assert.Error(t, err)
}
