package transcription

import (
	"context"
	"fmt"
	"mime"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/codebuildervaibhav/lecture-grader/internal/apperr"
)

// nonMediaFormats are extensions ffmpeg should never be handed. Anything
// else, including a bare name, goes to ffmpeg to probe.
var nonMediaFormats = map[string]bool{
	".pdf": true, ".doc": true, ".docx": true, ".xls": true, ".xlsx": true,
	".ppt": true, ".pptx": true, ".txt": true, ".md": true, ".csv": true,
	".json": true, ".xml": true, ".html": true, ".htm": true,
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".bmp": true,
	".svg": true, ".webp": true, ".zip": true, ".rar": true, ".7z": true,
	".tar": true, ".gz": true, ".exe": true, ".dll": true, ".so": true,
}

var mediaTypeExts = map[string]string{
	"video/webm":       ".webm",
	"audio/webm":       ".webm",
	"video/mp4":        ".mp4",
	"audio/mp4":        ".m4a",
	"video/quicktime":  ".mov",
	"video/x-matroska": ".mkv",
	"video/ogg":        ".ogv",
	"audio/ogg":        ".ogg",
	"audio/mpeg":       ".mp3",
	"audio/wav":        ".wav",
	"audio/x-wav":      ".wav",
	"audio/flac":       ".flac",
}

// ValidateMediaFormat rejects files whose extension marks them as documents,
// images or archives.
func ValidateMediaFormat(filename string) bool {
	return !nonMediaFormats[strings.ToLower(filepath.Ext(filename))]
}

// MediaFilename gives an extension-less upload (a recorded browser Blob
// arrives as "blob") the extension of its Content-Type. Names that already
// carry an extension, or unknown types, are returned unchanged.
func MediaFilename(filename, contentType string) string {
	if filepath.Ext(filename) != "" || contentType == "" {
		return filename
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return filename
	}
	if ext, ok := mediaTypeExts[mediaType]; ok {
		return filename + ext
	}
	if exts, err := mime.ExtensionsByType(mediaType); err == nil && len(exts) > 0 &&
		(strings.HasPrefix(mediaType, "video/") || strings.HasPrefix(mediaType, "audio/")) {
		return filename + exts[0]
	}
	return filename
}

// AudioExtractor pulls the audio track out of a recording with ffmpeg.
type AudioExtractor struct {
	FFmpegPath string
	TempDir    string
}

func NewAudioExtractor(tempDir string) *AudioExtractor {
	return &AudioExtractor{FFmpegPath: "ffmpeg", TempDir: tempDir}
}

// Extract converts inputPath to a 16kHz mono WAV in the temp dir and returns
// its path. The caller owns the file.
func (a *AudioExtractor) Extract(ctx context.Context, inputPath string) (string, error) {
	if err := os.MkdirAll(a.TempDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create temp dir: %w", err)
	}

	outputPath := filepath.Join(a.TempDir, fmt.Sprintf("audio_%s.wav", uuid.New().String()))

	cmd := exec.CommandContext(ctx, a.FFmpegPath,
		"-i", inputPath,
		"-vn",               // Drop video
		"-ar", "16000",      // 16kHz sample rate
		"-ac", "1",          // Mono
		"-c:a", "pcm_s16le", // 16-bit PCM
		"-y",
		outputPath,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		os.Remove(outputPath)
		return "", apperr.Newf(apperr.KindMediaDecode, "extract audio", "ffmpeg failed: %v: %s", err, lastLines(string(output), 5))
	}

	return outputPath, nil
}

// lastLines keeps the tail of noisy tool output for error messages.
func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
