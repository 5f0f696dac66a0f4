package transcription

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/codebuildervaibhav/lecture-grader/internal/types"
)

type audioExtractor interface {
	Extract(ctx context.Context, inputPath string) (string, error)
}

// Pipeline runs extract, transcribe, align and diarize strictly in order.
type Pipeline struct {
	extractor  audioExtractor
	recognizer Recognizer
	diarizer   Diarizer
	bounds     SpeakerBounds
	log        logrus.FieldLogger
}

func NewPipeline(extractor *AudioExtractor, recognizer Recognizer, diarizer Diarizer, bounds SpeakerBounds, log logrus.FieldLogger) *Pipeline {
	return &Pipeline{
		extractor:  extractor,
		recognizer: recognizer,
		diarizer:   diarizer,
		bounds:     bounds,
		log:        log,
	}
}

// Run transcribes the recording at videoPath into speaker-attributed segments
// ordered by start time.
func (p *Pipeline) Run(ctx context.Context, videoPath string) ([]types.TranscriptSegment, error) {
	log := p.log.WithField("video", videoPath)

	audioPath, err := p.extractor.Extract(ctx, videoPath)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := os.Remove(audioPath); err != nil && !os.IsNotExist(err) {
			log.WithError(err).Warn("Failed to remove temp audio")
		}
	}()
	log.Debug("Extracted audio")

	raw, err := p.recognizer.Transcribe(ctx, audioPath)
	if err != nil {
		return nil, err
	}

	aligned := Align(raw)
	log.WithFields(logrus.Fields{"raw": len(raw), "aligned": len(aligned)}).Info("Aligned transcript")

	turns, err := p.diarizer.Diarize(ctx, audioPath, p.bounds)
	if err != nil {
		return nil, fmt.Errorf("diarization: %w", err)
	}

	segments := AssignSpeakers(aligned, turns)
	sort.SliceStable(segments, func(i, j int) bool {
		return segments[i].Start < segments[j].Start
	})

	log.WithFields(logrus.Fields{"segments": len(segments), "turns": len(turns)}).Info("Transcription pipeline finished")
	return segments, nil
}
