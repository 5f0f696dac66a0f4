package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/codebuildervaibhav/lecture-grader/internal/queue"
	"github.com/codebuildervaibhav/lecture-grader/internal/types"
)

type gradeOptions struct {
	prompt  string
	outDir  string
	workers int
}

func newGradeCmd(global *globalOptions) *cobra.Command {
	opts := &gradeOptions{}

	cmd := &cobra.Command{
		Use:   "grade <video_file>...",
		Short: "Grade stored videos and write one CSV per video",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(opts.prompt) == "" {
				return fmt.Errorf("--prompt is required")
			}
			if err := os.MkdirAll(opts.outDir, 0755); err != nil {
				return err
			}

			s, err := global.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			jobs := make([]*queue.Job, 0, len(args))
			for _, key := range args {
				out := filepath.Join(opts.outDir, strings.TrimSuffix(key, filepath.Ext(key))+".csv")
				jobs = append(jobs, queue.NewJob(key, opts.prompt, out))
			}

			color.Blue("\nGrading %d video(s) with %d worker(s)\n", len(jobs), opts.workers)
			bar := newSpinner("Transcribing...")

			pool := queue.NewWorkerPool(opts.workers, s.reg.Videos, s.reg.Grader, s.reg.Metadata, s.log.WithField("component", "queue"))
			var mu sync.Mutex
			pool.OnProgress(func(job *queue.Job, done, total int) {
				mu.Lock()
				defer mu.Unlock()
				bar.Describe(color.BlueString("%s: segment %d/%d", job.VideoKey, done, total))
				_ = bar.Add(1)
			})
			pool.Start(cmd.Context())
			for _, job := range jobs {
				pool.Enqueue(job)
			}
			pool.Wait()
			_ = bar.Finish()

			failed := 0
			for _, job := range jobs {
				if job.Status == types.StatusSuccessful {
					color.Green("\n✓ %s: %d rows -> %s", job.VideoKey, job.Rows, job.OutputPath)
					continue
				}
				failed++
				color.Red("\n✗ %s: %v", job.VideoKey, job.Err)
			}
			fmt.Println()
			if failed > 0 {
				return fmt.Errorf("%d of %d videos failed", failed, len(jobs))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.prompt, "prompt", "p", "", "Lecture topic the speakers are graded against")
	cmd.Flags().StringVarP(&opts.outDir, "out-dir", "o", ".", "Directory for CSV exports")
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", 1, "Videos graded concurrently")
	return cmd
}

func newSpinner(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}
