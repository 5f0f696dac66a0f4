package handlers

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
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
	ListGradingRuns(ctx context.Context, limit int) ([]types.GradingRun, error)
}

// GradingHandler runs the grading pipeline and returns the CSV export
type GradingHandler struct {
	videos videoResolver
	grader csvGrader
	runs   runRecorder
	log    logrus.FieldLogger
}

func NewGradingHandler(videos videoResolver, grader csvGrader, runs runRecorder, log logrus.FieldLogger) *GradingHandler {
	return &GradingHandler{videos: videos, grader: grader, runs: runs, log: log}
}

// DownloadCSVRequest is the body of POST /llm/download-csv/
type DownloadCSVRequest struct {
	VideoFile string `json:"video_file"`
	Prompt    string `json:"prompt"`
}

// DownloadCSV grades a stored video and sends table.csv
func (h *GradingHandler) DownloadCSV(c *fiber.Ctx) error {
	var req DownloadCSVRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body", "ERR_INVALID_BODY")
	}
	if req.VideoFile == "" || strings.TrimSpace(req.Prompt) == "" {
		return badRequest(c, "video_file and prompt are required", "ERR_MISSING_FIELDS")
	}

	path, err := h.videos.Resolve(req.VideoFile)
	if err != nil {
		return respondError(c, h.log, err)
	}

	run := &types.GradingRun{
		ID:        uuid.New().String(),
		VideoKey:  req.VideoFile,
		Prompt:    req.Prompt,
		CreatedAt: time.Now(),
	}
	log := h.log.WithFields(logrus.Fields{"run_id": run.ID, "video_file": req.VideoFile})
	log.Info("Grading started")

	rows, err := h.grader.Grade(c.UserContext(), path, req.Prompt, nil)
	if err != nil {
		run.Status = types.StatusFailed
		run.Error = err.Error()
		h.saveRun(c.UserContext(), run)
		return respondError(c, log, err)
	}

	var buf bytes.Buffer
	if err := grading.WriteCSV(&buf, rows); err != nil {
		return respondError(c, log, err)
	}

	run.Status = types.StatusSuccessful
	run.Rows = len(rows)
	h.saveRun(c.UserContext(), run)

	c.Set(fiber.HeaderContentDisposition, `attachment; filename="table.csv"`)
	c.Set(fiber.HeaderContentType, "text/csv")
	return c.Send(buf.Bytes())
}

func (h *GradingHandler) saveRun(ctx context.Context, run *types.GradingRun) {
	if err := h.runs.SaveGradingRun(ctx, run); err != nil {
		h.log.WithError(err).Warn("Failed to record grading run")
	}
}

// Runs lists recent grading exports
func (h *GradingHandler) Runs(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	runs, err := h.runs.ListGradingRuns(c.UserContext(), limit)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(runs)
}
