package queue

import (
	"time"

	"github.com/google/uuid"

	"github.com/codebuildervaibhav/lecture-grader/internal/types"
)

// Job grades one stored video and writes its CSV export to OutputPath
type Job struct {
	ID         string
	VideoKey   string
	Prompt     string
	OutputPath string
	Status     string
	Rows       int
	Err        error
	CreatedAt  time.Time
}

// NewJob creates a queued job with a fresh id
func NewJob(videoKey, prompt, outputPath string) *Job {
	return &Job{
		ID:         uuid.New().String(),
		VideoKey:   videoKey,
		Prompt:     prompt,
		OutputPath: outputPath,
		Status:     types.StatusQueued,
		CreatedAt:  time.Now(),
	}
}

func (j *Job) run() *types.GradingRun {
	run := &types.GradingRun{
		ID:        j.ID,
		VideoKey:  j.VideoKey,
		Prompt:    j.Prompt,
		Rows:      j.Rows,
		Status:    j.Status,
		CreatedAt: j.CreatedAt,
	}
	if j.Err != nil {
		run.Error = j.Err.Error()
	}
	return run
}
