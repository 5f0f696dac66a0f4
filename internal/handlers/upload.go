package handlers

import (
	"context"
	"fmt"
	"io"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/codebuildervaibhav/lecture-grader/internal/storage"
	"github.com/codebuildervaibhav/lecture-grader/internal/types"
)

type assetRecorder interface {
	SaveAsset(ctx context.Context, asset *types.UploadedAsset, originalName, backend string, size int) error
}

// UploadHandler stores arbitrary files in the object store
type UploadHandler struct {
	store     storage.ObjectStore
	assets    assetRecorder
	maxSizeMB int
	log       logrus.FieldLogger
}

// NewUploadHandler creates a new upload handler
func NewUploadHandler(store storage.ObjectStore, assets assetRecorder, maxSizeMB int, log logrus.FieldLogger) *UploadHandler {
	return &UploadHandler{
		store:     store,
		assets:    assets,
		maxSizeMB: maxSizeMB,
		log:       log,
	}
}

// Handle processes the upload request
func (h *UploadHandler) Handle(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return badRequest(c, "No file uploaded", "ERR_NO_FILE")
	}

	maxSize := int64(h.maxSizeMB) * 1024 * 1024
	if h.maxSizeMB > 0 && file.Size > maxSize {
		return badRequest(c, fmt.Sprintf("File too large (max %dMB)", h.maxSizeMB), "ERR_FILE_TOO_LARGE")
	}

	f, err := file.Open()
	if err != nil {
		return respondError(c, h.log, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return respondError(c, h.log, err)
	}

	asset, err := h.store.Store(c.UserContext(), data, file.Filename)
	if err != nil {
		return respondError(c, h.log, err)
	}

	if h.assets != nil {
		if err := h.assets.SaveAsset(c.UserContext(), asset, file.Filename, h.store.Backend(), len(data)); err != nil {
			h.log.WithError(err).Warn("Failed to record asset metadata")
		}
	}

	h.log.WithFields(logrus.Fields{
		"key":     asset.StorageKey,
		"backend": h.store.Backend(),
		"bytes":   len(data),
	}).Info("Stored upload")

	return c.JSON(fiber.Map{
		"public_url":  asset.PublicURL,
		"storage_key": asset.StorageKey,
		"status":      types.StatusSuccessful,
	})
}
