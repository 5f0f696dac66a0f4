package types

import "time"

// Status values shared by uploads, grading runs and batch jobs
const (
	StatusQueued     = "Queued"
	StatusProcessing = "Processing"
	StatusSuccessful = "Successful"
	StatusFailed     = "Failed"
)

// Video source constants
const (
	SourceUpload = "upload"
	SourceStream = "stream"
)

// TranscriptSegment is one speaker-attributed span of the transcription.
type TranscriptSegment struct {
	SpeakerID string  `json:"speaker"`
	Text      string  `json:"text"`
	Start     float64 `json:"start"`
	End       float64 `json:"end"`
}

// LectureDocument is a unit of lecture material stored in the vector index.
type LectureDocument struct {
	ID      string `json:"id,omitempty"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// RetrievalResult holds document texts ranked by similarity. Found is false
// when the index produced no usable match; Documents is then empty.
type RetrievalResult struct {
	Documents []string `json:"documents"`
	Found     bool     `json:"found"`
}

// GradeRow is the scored feedback for a single transcript segment.
type GradeRow struct {
	SpeakerID string `json:"speaker"`
	Score     string `json:"mark"`
	Comment   string `json:"comment"`
}

// UploadedAsset describes an object written to the object store.
type UploadedAsset struct {
	StorageKey string `json:"storage_key"`
	PublicURL  string `json:"public_url"`
}

// StoredVideo is a lecture recording saved on the server for grading.
type StoredVideo struct {
	Key          string    `json:"video_file"`
	OriginalName string    `json:"original_name"`
	Source       string    `json:"source"`
	Size         int64     `json:"size"`
	Path         string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// GradingRun records an export for the history endpoint.
type GradingRun struct {
	ID        string    `json:"id"`
	VideoKey  string    `json:"video_file"`
	Prompt    string    `json:"prompt"`
	Rows      int       `json:"rows"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
