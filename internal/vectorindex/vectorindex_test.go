package vectorindex

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codebuildervaibhav/lecture-grader/internal/apperr"
	"github.com/codebuildervaibhav/lecture-grader/internal/types"
)

// keywordEmbedder places text on axes by keyword so similarity is predictable.
type keywordEmbedder struct {
	calls int
}

var keywordAxes = [][]string{
	{"newton", "motion", "force", "physics"},
	{"integral", "derivative", "calculus", "math"},
	{"roman", "empire", "history"},
}

func (k *keywordEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	k.calls++
	lower := strings.ToLower(text)
	vec := make([]float32, len(keywordAxes)+1)
	vec[len(keywordAxes)] = 0.01
	for i, words := range keywordAxes {
		for _, w := range words {
			if strings.Contains(lower, w) {
				vec[i]++
			}
		}
	}
	return vec, nil
}

type failingEmbedder struct{}

func (failingEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, apperr.New(apperr.KindUpstream, "embed", errors.New("timeout"))
}

var lectures = []types.LectureDocument{
	{ID: "0", Title: "Physics Lecture", Content: "This is a lecture on Newton's Laws of Motion..."},
	{ID: "1", Title: "Math Lecture", Content: "This is a lecture on integrals and derivatives..."},
	{ID: "2", Title: "History Lecture", Content: "This is a lecture on the Roman Empire..."},
}

func newTestService(topK int) (*Service, *MemoryIndex) {
	logger, _ := test.NewNullLogger()
	idx := NewMemoryIndex()
	return NewService(&keywordEmbedder{}, idx, topK, logger), idx
}

func TestRetrievePhysicsAndMath(t *testing.T) {
	svc, _ := newTestService(1)
	ctx := context.Background()

	ids, err := svc.Ingest(ctx, lectures)
	require.NoError(t, err)
	assert.Equal(t, []string{"0", "1", "2"}, ids)

	got, err := svc.Retrieve(ctx, "Newton's second law", 0)
	require.NoError(t, err)
	assert.True(t, got.Found)
	assert.Equal(t, []string{lectures[0].Content}, got.Documents)

	got, err = svc.Retrieve(ctx, "derivative of x squared", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{lectures[1].Content}, got.Documents)

	got, err = svc.Retrieve(ctx, "calculus and the Roman empire", 2)
	require.NoError(t, err)
	assert.Len(t, got.Documents, 2)
}

func TestRetrieveEmptyIndex(t *testing.T) {
	svc, _ := newTestService(1)

	got, err := svc.Retrieve(context.Background(), "anything", 3)
	require.NoError(t, err)
	assert.False(t, got.Found)
	assert.Empty(t, got.Documents)
}

func TestRetrieveSkipsMatchesWithoutText(t *testing.T) {
	svc, idx := newTestService(1)
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, "orphan", []float32{1, 0, 0, 0}, map[string]string{"title": "no text"}))

	got, err := svc.Retrieve(ctx, "newton", 1)
	require.NoError(t, err)
	assert.False(t, got.Found)
}

func TestReingestSameIDDoesNotGrow(t *testing.T) {
	svc, _ := newTestService(1)
	ctx := context.Background()

	_, err := svc.Ingest(ctx, lectures)
	require.NoError(t, err)
	_, err = svc.Ingest(ctx, lectures)
	require.NoError(t, err)

	n, err := svc.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	updated := []types.LectureDocument{{ID: "0", Title: "Physics Lecture", Content: "Forces and Newton revisited"}}
	_, err = svc.Ingest(ctx, updated)
	require.NoError(t, err)

	got, err := svc.Retrieve(ctx, "newton force", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Forces and Newton revisited"}, got.Documents)

	n, err = svc.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestIngestWithoutIDUsesContentAddress(t *testing.T) {
	svc, _ := newTestService(1)
	ctx := context.Background()

	doc := types.LectureDocument{Title: "Physics", Content: "Newton"}
	first, err := svc.Ingest(ctx, []types.LectureDocument{doc})
	require.NoError(t, err)
	second, err := svc.Ingest(ctx, []types.LectureDocument{doc})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, first[0], 64)

	n, err := svc.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestIngestRejectsEmptyContent(t *testing.T) {
	svc, _ := newTestService(1)

	_, err := svc.Ingest(context.Background(), []types.LectureDocument{{Title: "blank", Content: "  "}})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestEmbedFailureSurfaces(t *testing.T) {
	logger, _ := test.NewNullLogger()
	svc := NewService(failingEmbedder{}, NewMemoryIndex(), 1, logger)

	_, err := svc.Retrieve(context.Background(), "x", 1)
	assert.ErrorIs(t, err, apperr.ErrUpstream)
}

func TestMemoryIndexOrdering(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()
	require.NoError(t, idx.Upsert(ctx, "a", []float32{1, 0}, nil))
	require.NoError(t, idx.Upsert(ctx, "b", []float32{0.7, 0.7}, nil))
	require.NoError(t, idx.Upsert(ctx, "c", []float32{0, 1}, nil))

	matches, err := idx.Query(ctx, []float32{1, 0.1}, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "a", matches[0].ID)
	assert.Equal(t, "b", matches[1].ID)
	assert.Greater(t, matches[0].Score, matches[1].Score)
}

func TestSanitizeUTF8(t *testing.T) {
	assert.Equal(t, "ab", sanitizeUTF8("a\x00b"))
	assert.Equal(t, "ab", sanitizeUTF8("a\xffb"))
}

func TestNewPGVectorIndexValidation(t *testing.T) {
	_, err := NewPGVectorIndex(context.Background(), PGVectorConfig{})
	assert.ErrorIs(t, err, apperr.ErrConfiguration)

	_, err = NewPGVectorIndex(context.Background(), PGVectorConfig{ConnString: "postgres://x", TableName: "docs; DROP TABLE x"})
	assert.ErrorIs(t, err, apperr.ErrConfiguration)
}
