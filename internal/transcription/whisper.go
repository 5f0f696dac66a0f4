package transcription

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/codebuildervaibhav/lecture-grader/internal/apperr"
)

// Word is a recognised word. Start and End are nil when the aligner could
// not place it.
type Word struct {
	Text  string
	Start *float64
	End   *float64
}

// RawSegment is a recognised span before speaker attribution.
type RawSegment struct {
	Text  string
	Start float64
	End   float64
	Words []Word
}

// Recognizer turns an audio file into timed segments.
type Recognizer interface {
	Transcribe(ctx context.Context, audioPath string) ([]RawSegment, error)
}

// WhisperXConfig holds the WhisperX command line settings.
type WhisperXConfig struct {
	Binary      string
	Model       string
	ModelDir    string
	BatchSize   int
	Language    string
	ComputeType string
	Device      string
	Threads     int
	OutputDir   string
}

// WhisperX runs the whisperx CLI and reads its JSON output.
type WhisperX struct {
	cfg WhisperXConfig
	log logrus.FieldLogger
}

func NewWhisperX(cfg WhisperXConfig, log logrus.FieldLogger) (*WhisperX, error) {
	if cfg.Binary == "" {
		cfg.Binary = "whisperx"
	}
	if _, err := exec.LookPath(cfg.Binary); err != nil {
		return nil, apperr.Newf(apperr.KindConfiguration, "whisperx", "binary %q not found: %w", cfg.Binary, err)
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = filepath.Join(os.TempDir(), "whisperx_output")
	}

	log.WithFields(logrus.Fields{
		"model":        cfg.Model,
		"language":     cfg.Language,
		"device":       cfg.Device,
		"compute_type": cfg.ComputeType,
	}).Info("Initialized WhisperX recognizer")

	return &WhisperX{cfg: cfg, log: log}, nil
}

func (w *WhisperX) args(audioPath, outDir string) []string {
	args := []string{
		audioPath,
		"--model", w.cfg.Model,
		"--output_dir", outDir,
		"--output_format", "json",
	}
	if w.cfg.ModelDir != "" {
		args = append(args, "--model_dir", w.cfg.ModelDir)
	}
	if w.cfg.BatchSize > 0 {
		args = append(args, "--batch_size", strconv.Itoa(w.cfg.BatchSize))
	}
	if w.cfg.Language != "" {
		args = append(args, "--language", w.cfg.Language)
	}
	if w.cfg.ComputeType != "" {
		args = append(args, "--compute_type", w.cfg.ComputeType)
	}
	if w.cfg.Device != "" {
		args = append(args, "--device", w.cfg.Device)
	}
	if w.cfg.Threads > 0 {
		args = append(args, "--threads", strconv.Itoa(w.cfg.Threads))
	}
	return args
}

// Transcribe implements Recognizer. Word timings come from WhisperX's own
// alignment pass.
func (w *WhisperX) Transcribe(ctx context.Context, audioPath string) ([]RawSegment, error) {
	if err := os.MkdirAll(w.cfg.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create whisperx output dir: %w", err)
	}
	outDir, err := os.MkdirTemp(w.cfg.OutputDir, "run_")
	if err != nil {
		return nil, fmt.Errorf("failed to create whisperx output dir: %w", err)
	}
	defer os.RemoveAll(outDir)

	w.log.WithField("audio", audioPath).Info("Transcribing with WhisperX")

	cmd := exec.CommandContext(ctx, w.cfg.Binary, w.args(audioPath, outDir)...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, apperr.Newf(apperr.KindTranscription, "whisperx", "transcription failed: %v: %s", err, lastLines(string(output), 10))
	}
	w.log.Debugf("WhisperX output: %s", output)

	baseName := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	f, err := os.Open(filepath.Join(outDir, baseName+".json"))
	if err != nil {
		return nil, apperr.Newf(apperr.KindTranscription, "whisperx", "failed to read output: %w", err)
	}
	defer f.Close()

	segments, err := parseWhisperXOutput(f)
	if err != nil {
		return nil, apperr.New(apperr.KindTranscription, "whisperx", err)
	}

	w.log.WithField("segments", len(segments)).Info("Transcription completed")
	return segments, nil
}

type (
	whisperxResult struct {
		Language string            `json:"language"`
		Segments []whisperxSegment `json:"segments"`
	}

	whisperxSegment struct {
		Text  string          `json:"text"`
		Start decimal.Decimal `json:"start"`
		End   decimal.Decimal `json:"end"`
		Words []whisperxWord  `json:"words"`
	}

	whisperxWord struct {
		Text  string           `json:"word"`
		Start *decimal.Decimal `json:"start"`
		End   *decimal.Decimal `json:"end"`
	}
)

func parseWhisperXOutput(r io.Reader) ([]RawSegment, error) {
	var res whisperxResult
	if err := json.NewDecoder(r).Decode(&res); err != nil {
		return nil, fmt.Errorf("decoding whisperx json result: %w", err)
	}

	segments := make([]RawSegment, len(res.Segments))
	for n, s := range res.Segments {
		segments[n] = RawSegment{
			Text:  strings.TrimSpace(s.Text),
			Start: s.Start.InexactFloat64(),
			End:   s.End.InexactFloat64(),
			Words: wordsFromWhisperX(s.Words),
		}
	}
	return segments, nil
}

func wordsFromWhisperX(words []whisperxWord) []Word {
	res := make([]Word, len(words))
	for n, w := range words {
		res[n] = Word{Text: w.Text}
		if w.Start != nil {
			s := w.Start.InexactFloat64()
			res[n].Start = &s
		}
		if w.End != nil {
			e := w.End.InexactFloat64()
			res[n].End = &e
		}
	}
	return res
}
