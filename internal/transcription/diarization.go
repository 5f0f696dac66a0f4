package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/codebuildervaibhav/lecture-grader/internal/apperr"
	"github.com/codebuildervaibhav/lecture-grader/internal/types"
)

// SpeakerTurn is an interval during which one speaker is talking.
type SpeakerTurn struct {
	Speaker string  `json:"speaker"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
}

// SpeakerBounds optionally constrains the number of detected speakers. Zero
// values are left unset.
type SpeakerBounds struct {
	NumSpeakers int
	MinSpeakers int
	MaxSpeakers int
}

// Diarizer finds speaker turns in an audio file.
type Diarizer interface {
	Diarize(ctx context.Context, audioPath string, bounds SpeakerBounds) ([]SpeakerTurn, error)
}

// HTTPDiarizer calls a pyannote diarization service.
type HTTPDiarizer struct {
	baseURL string
	token   string
	c       *http.Client
}

func NewHTTPDiarizer(baseURL, hfToken string) (*HTTPDiarizer, error) {
	if baseURL == "" {
		return nil, apperr.Newf(apperr.KindConfiguration, "diarizer", "service url is required")
	}
	if hfToken == "" {
		return nil, apperr.Newf(apperr.KindConfiguration, "diarizer", "hugging face token is required")
	}
	return &HTTPDiarizer{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   hfToken,
		c:       &http.Client{Timeout: 30 * time.Minute},
	}, nil
}

type diarizeResp struct {
	Segments []SpeakerTurn `json:"segments"`
}

// Diarize implements Diarizer.
func (d *HTTPDiarizer) Diarize(ctx context.Context, audioPath string, bounds SpeakerBounds) ([]SpeakerTurn, error) {
	body, contentType, err := diarizeBody(audioPath, bounds)
	if err != nil {
		return nil, apperr.New(apperr.KindTranscription, "diarize", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/diarize", body)
	if err != nil {
		return nil, apperr.New(apperr.KindTranscription, "diarize", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+d.token)

	resp, err := d.c.Do(req)
	if err != nil {
		return nil, apperr.New(apperr.KindTranscription, "diarize", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, apperr.Newf(apperr.KindTranscription, "diarize", "diarize %s: %s", resp.Status, string(body))
	}

	var out diarizeResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, apperr.Newf(apperr.KindTranscription, "diarize", "diarize decode: %w", err)
	}
	return out.Segments, nil
}

// AssignSpeakers labels each segment with the speaker whose turns overlap it
// the most. A segment no turn overlaps keeps an empty label.
func AssignSpeakers(segments []RawSegment, turns []SpeakerTurn) []types.TranscriptSegment {
	out := make([]types.TranscriptSegment, len(segments))
	for i, seg := range segments {
		overlap := map[string]float64{}
		for _, t := range turns {
			if o := intersect(seg.Start, seg.End, t.Start, t.End); o > 0 {
				overlap[t.Speaker] += o
			}
		}

		speaker, best := "", 0.0
		for s, o := range overlap {
			if o > best || (o == best && s < speaker) {
				speaker, best = s, o
			}
		}

		out[i] = types.TranscriptSegment{
			SpeakerID: speaker,
			Text:      seg.Text,
			Start:     seg.Start,
			End:       seg.End,
		}
	}
	return out
}

// diarizeBody builds the multipart upload: the audio file plus any positive
// speaker bounds.
func diarizeBody(audioPath string, bounds SpeakerBounds) (*bytes.Buffer, string, error) {
	var b bytes.Buffer
	w := multipart.NewWriter(&b)

	fd, err := os.Open(audioPath)
	if err != nil {
		return nil, "", err
	}
	defer fd.Close()

	fw, err := w.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, "", err
	}
	if _, err = io.Copy(fw, fd); err != nil {
		return nil, "", err
	}
	for name, v := range map[string]int{
		"num_speakers": bounds.NumSpeakers,
		"min_speakers": bounds.MinSpeakers,
		"max_speakers": bounds.MaxSpeakers,
	} {
		if v <= 0 {
			continue
		}
		if err := w.WriteField(name, strconv.Itoa(v)); err != nil {
			return nil, "", err
		}
	}
	if err = w.Close(); err != nil {
		return nil, "", err
	}
	return &b, w.FormDataContentType(), nil
}

func intersect(aStart, aEnd, bStart, bEnd float64) float64 {
	lo, hi := aStart, aEnd
	if bStart > lo {
		lo = bStart
	}
	if bEnd < hi {
		hi = bEnd
	}
	return hi - lo
}
