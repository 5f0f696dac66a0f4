package registry

import (
	"context"

	"github.com/codebuildervaibhav/lecture-grader/internal/transcription"
	"github.com/codebuildervaibhav/lecture-grader/internal/types"
	"github.com/codebuildervaibhav/lecture-grader/internal/vectorindex"
)

type unavailableStore struct {
	backend string
	err     error
}

func (u unavailableStore) Store(context.Context, []byte, string) (*types.UploadedAsset, error) {
	return nil, u.err
}

func (u unavailableStore) Backend() string { return u.backend }

type unavailableEmbedder struct{ err error }

func (u unavailableEmbedder) Embed(context.Context, string) ([]float32, error) { return nil, u.err }

type unavailableIndex struct{ err error }

func (u unavailableIndex) Upsert(context.Context, string, []float32, map[string]string) error {
	return u.err
}

func (u unavailableIndex) Query(context.Context, []float32, int) ([]vectorindex.Match, error) {
	return nil, u.err
}

func (u unavailableIndex) Count(context.Context) (int, error) { return 0, u.err }

type unavailableRecognizer struct{ err error }

func (u unavailableRecognizer) Transcribe(context.Context, string) ([]transcription.RawSegment, error) {
	return nil, u.err
}

type unavailableDiarizer struct{ err error }

func (u unavailableDiarizer) Diarize(context.Context, string, transcription.SpeakerBounds) ([]transcription.SpeakerTurn, error) {
	return nil, u.err
}

type unavailableCompleter struct{ err error }

func (u unavailableCompleter) Complete(context.Context, string, []string) (string, error) {
	return "", u.err
}
