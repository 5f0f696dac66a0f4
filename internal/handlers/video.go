package handlers

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/codebuildervaibhav/lecture-grader/internal/storage"
	"github.com/codebuildervaibhav/lecture-grader/internal/transcription"
	"github.com/codebuildervaibhav/lecture-grader/internal/types"
)

type videoCatalog interface {
	SaveVideo(ctx context.Context, v *types.StoredVideo) error
	ListVideos(ctx context.Context, limit int) ([]types.StoredVideo, error)
}

// VideoHandler stores lecture recordings for later grading
type VideoHandler struct {
	videos    *storage.VideoStore
	catalog   videoCatalog
	maxSizeMB int
	log       logrus.FieldLogger
}

func NewVideoHandler(videos *storage.VideoStore, catalog videoCatalog, maxSizeMB int, log logrus.FieldLogger) *VideoHandler {
	return &VideoHandler{
		videos:    videos,
		catalog:   catalog,
		maxSizeMB: maxSizeMB,
		log:       log,
	}
}

// Upload saves the recording under its content address
func (h *VideoHandler) Upload(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return badRequest(c, "No file uploaded", "ERR_NO_FILE")
	}

	if h.maxSizeMB > 0 && file.Size > int64(h.maxSizeMB)*1024*1024 {
		return badRequest(c, fmt.Sprintf("File too large (max %dMB)", h.maxSizeMB), "ERR_FILE_TOO_LARGE")
	}

	filename := transcription.MediaFilename(file.Filename, file.Header.Get(fiber.HeaderContentType))
	if !transcription.ValidateMediaFormat(filename) {
		return badRequest(c, "Unsupported media format", "ERR_INVALID_FORMAT")
	}

	f, err := file.Open()
	if err != nil {
		return respondError(c, h.log, err)
	}
	defer f.Close()

	video, err := h.videos.Save(f, filename, types.SourceUpload)
	if err != nil {
		return respondError(c, h.log, err)
	}
	h.record(c.UserContext(), video)

	return c.JSON(fiber.Map{
		"message":    video.Key,
		"video_file": video.Key,
	})
}

func (h *VideoHandler) record(ctx context.Context, video *types.StoredVideo) {
	if err := h.catalog.SaveVideo(ctx, video); err != nil {
		h.log.WithError(err).Warn("Failed to record video metadata")
	}
	h.log.WithFields(logrus.Fields{
		"video_file": video.Key,
		"source":     video.Source,
		"bytes":      video.Size,
	}).Info("Stored video")
}

// List returns the most recently stored videos
func (h *VideoHandler) List(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	videos, err := h.catalog.ListVideos(c.UserContext(), limit)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(videos)
}
