package queue

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/codebuildervaibhav/lecture-grader/internal/grading"
	"github.com/codebuildervaibhav/lecture-grader/internal/types"
)

type videoResolver interface {
	Resolve(key string) (string, error)
}

type csvGrader interface {
	Grade(ctx context.Context, videoPath, lecturePrompt string, progress grading.ProgressFunc) ([]types.GradeRow, error)
}

type runRecorder interface {
	SaveGradingRun(ctx context.Context, run *types.GradingRun) error
}

// ProgressFunc reports per-segment progress of a job
type ProgressFunc func(job *Job, done, total int)

// WorkerPool grades queued videos with a fixed number of workers
type WorkerPool struct {
	jobQueue    chan *Job
	workerCount int
	videos      videoResolver
	grader      csvGrader
	runs        runRecorder
	progress    ProgressFunc
	log         logrus.FieldLogger
	wg          sync.WaitGroup
}

// NewWorkerPool creates a pool; runs may be nil when history is not kept.
func NewWorkerPool(workerCount int, videos videoResolver, grader csvGrader, runs runRecorder, log logrus.FieldLogger) *WorkerPool {
	if workerCount < 1 {
		workerCount = 1
	}
	return &WorkerPool{
		jobQueue:    make(chan *Job, 100),
		workerCount: workerCount,
		videos:      videos,
		grader:      grader,
		runs:        runs,
		log:         log,
	}
}

// OnProgress installs a progress callback. Call before Start.
func (wp *WorkerPool) OnProgress(fn ProgressFunc) {
	wp.progress = fn
}

// Start launches the workers
func (wp *WorkerPool) Start(ctx context.Context) {
	wp.log.Infof("Starting worker pool with %d workers", wp.workerCount)
	for i := 0; i < wp.workerCount; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx, i)
	}
}

// Enqueue adds a job to the queue
func (wp *WorkerPool) Enqueue(job *Job) {
	job.Status = types.StatusQueued
	wp.jobQueue <- job
	wp.log.WithFields(logrus.Fields{"job_id": job.ID, "video_file": job.VideoKey}).Info("Job enqueued")
}

// Wait closes the queue and blocks until every enqueued job has finished.
// Job fields are safe to read once Wait returns.
func (wp *WorkerPool) Wait() {
	close(wp.jobQueue)
	wp.wg.Wait()
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	defer wp.wg.Done()
	log := wp.log.WithField("worker", id)

	for job := range wp.jobQueue {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Errorf("PANIC processing job %s: %v\n%s", job.ID, r, string(debug.Stack()))
					wp.finish(ctx, job, fmt.Errorf("worker panic: %v", r))
				}
			}()

			wp.finish(ctx, job, wp.processJob(ctx, job))
		}()
	}
}

func (wp *WorkerPool) processJob(ctx context.Context, job *Job) error {
	job.Status = types.StatusProcessing

	path, err := wp.videos.Resolve(job.VideoKey)
	if err != nil {
		return err
	}

	var progress grading.ProgressFunc
	if wp.progress != nil {
		progress = func(done, total int) { wp.progress(job, done, total) }
	}

	rows, err := wp.grader.Grade(ctx, path, job.Prompt, progress)
	if err != nil {
		return err
	}

	f, err := os.Create(job.OutputPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", job.OutputPath, err)
	}
	if err := grading.WriteCSV(f, rows); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	job.Rows = len(rows)
	return nil
}

func (wp *WorkerPool) finish(ctx context.Context, job *Job, err error) {
	log := wp.log.WithFields(logrus.Fields{"job_id": job.ID, "video_file": job.VideoKey})
	if err != nil {
		job.Status = types.StatusFailed
		job.Err = err
		log.WithError(err).Error("Job failed")
	} else {
		job.Status = types.StatusSuccessful
		log.WithField("rows", job.Rows).Info("Job completed")
	}

	if wp.runs != nil {
		if err := wp.runs.SaveGradingRun(ctx, job.run()); err != nil {
			log.WithError(err).Warn("Failed to record grading run")
		}
	}
}
