// Package grading turns a lecture recording into per-segment marks and
// feedback.
package grading

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/codebuildervaibhav/lecture-grader/internal/completion"
	"github.com/codebuildervaibhav/lecture-grader/internal/types"
)

// Transcriber produces ordered, speaker-attributed segments for a recording.
type Transcriber interface {
	Run(ctx context.Context, videoPath string) ([]types.TranscriptSegment, error)
}

// Retriever looks up lecture context for a prompt.
type Retriever interface {
	Retrieve(ctx context.Context, prompt string, topK int) (types.RetrievalResult, error)
}

// ProgressFunc is called after each graded segment.
type ProgressFunc func(done, total int)

// Grader runs the transcription pipeline and asks the completion service for
// a comment and a mark on every segment.
type Grader struct {
	transcriber Transcriber
	retriever   Retriever
	completer   completion.Completer
	topK        int
	log         logrus.FieldLogger
}

func NewGrader(transcriber Transcriber, retriever Retriever, completer completion.Completer, topK int, log logrus.FieldLogger) *Grader {
	return &Grader{
		transcriber: transcriber,
		retriever:   retriever,
		completer:   completer,
		topK:        topK,
		log:         log,
	}
}

// Sanitize removes double quotes before text is placed in a prompt.
func Sanitize(s string) string {
	return strings.ReplaceAll(s, `"`, "")
}

// Grade returns one row per transcript segment, in transcript order. Any
// failure aborts the run and no rows are returned.
func (g *Grader) Grade(ctx context.Context, videoPath, lecturePrompt string, progress ProgressFunc) ([]types.GradeRow, error) {
	start := time.Now()
	log := g.log.WithField("video", videoPath)

	segments, err := g.transcriber.Run(ctx, videoPath)
	if err != nil {
		return nil, fmt.Errorf("transcribe: %w", err)
	}
	log.WithField("segments", len(segments)).Info("Grading transcript")

	lecture := Sanitize(lecturePrompt)
	rows := make([]types.GradeRow, 0, len(segments))

	for i, seg := range segments {
		row, err := g.gradeSegment(ctx, lecture, seg)
		if err != nil {
			return nil, fmt.Errorf("segment %d: %w", i, err)
		}
		rows = append(rows, row)

		if progress != nil {
			progress(i+1, len(segments))
		}
	}

	log.WithFields(logrus.Fields{
		"rows":     len(rows),
		"duration": time.Since(start).String(),
	}).Info("Grading completed")

	return rows, nil
}

func (g *Grader) gradeSegment(ctx context.Context, lecture string, seg types.TranscriptSegment) (types.GradeRow, error) {
	pupilText := Sanitize(seg.Text)

	retrieved, err := g.retriever.Retrieve(ctx, lecture, g.topK)
	if err != nil {
		return types.GradeRow{}, fmt.Errorf("retrieve: %w", err)
	}

	comment, err := g.Evaluate(ctx, retrieved.Documents, lecture, pupilText)
	if err != nil {
		return types.GradeRow{}, err
	}

	score, err := g.Score(ctx, lecture, pupilText)
	if err != nil {
		return types.GradeRow{}, err
	}

	return types.GradeRow{SpeakerID: seg.SpeakerID, Score: score, Comment: comment}, nil
}

// Evaluate asks for written feedback on pupilText given the lecture context.
func (g *Grader) Evaluate(ctx context.Context, documents []string, lecture, pupilText string) (string, error) {
	p := completion.FeedbackPrompt(documents, Sanitize(lecture), Sanitize(pupilText))
	comment, err := g.completer.Complete(ctx, p.System, p.Users)
	if err != nil {
		return "", fmt.Errorf("feedback: %w", err)
	}
	return comment, nil
}

// Score asks for a mark out of 10. The reply is returned as given; a reply
// that is not a number in [0,10] is only logged.
func (g *Grader) Score(ctx context.Context, lecture, pupilText string) (string, error) {
	p := completion.ScorePrompt(Sanitize(lecture), Sanitize(pupilText))
	score, err := g.completer.Complete(ctx, p.System, p.Users)
	if err != nil {
		return "", fmt.Errorf("score: %w", err)
	}

	if !validMark(score) {
		g.log.WithField("score", score).Warn("Completion returned a mark outside 0-10")
	}
	return score, nil
}

func validMark(s string) bool {
	v, err := strconv.ParseFloat(s, 64)
	return err == nil && v >= 0 && v <= 10
}
