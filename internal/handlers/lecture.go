package handlers

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/codebuildervaibhav/lecture-grader/internal/types"
)

type lectureIndex interface {
	Ingest(ctx context.Context, docs []types.LectureDocument) ([]string, error)
	Retrieve(ctx context.Context, prompt string, topK int) (types.RetrievalResult, error)
}

type pageImporter interface {
	Fetch(ctx context.Context, pageURL, title string) (types.LectureDocument, error)
}

// LectureHandler ingests lecture material and serves similarity lookups
type LectureHandler struct {
	index    lectureIndex
	importer pageImporter
	log      logrus.FieldLogger
}

func NewLectureHandler(index lectureIndex, importer pageImporter, log logrus.FieldLogger) *LectureHandler {
	return &LectureHandler{index: index, importer: importer, log: log}
}

// InsertRequest is the body of POST /insert_lecture/
type InsertRequest struct {
	LectureMaterials []types.LectureDocument `json:"lecture_materials"`
}

// ImportRequest is the body of POST /insert_lecture/url
type ImportRequest struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// RetrieveRequest is the body of POST /retrieve/
type RetrieveRequest struct {
	Prompt string `json:"prompt"`
	TopK   int    `json:"top_k"`
}

// Insert embeds and stores each lecture document
func (h *LectureHandler) Insert(c *fiber.Ctx) error {
	var req InsertRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body", "ERR_INVALID_BODY")
	}
	if len(req.LectureMaterials) == 0 {
		return badRequest(c, "lecture_materials must not be empty", "ERR_NO_MATERIALS")
	}

	ids, err := h.index.Ingest(c.UserContext(), req.LectureMaterials)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(fiber.Map{
		"inserted": len(ids),
		"ids":      ids,
	})
}

// InsertURL renders a lecture page and stores its text
func (h *LectureHandler) InsertURL(c *fiber.Ctx) error {
	var req ImportRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body", "ERR_INVALID_BODY")
	}
	if strings.TrimSpace(req.URL) == "" {
		return badRequest(c, "URL is required", "ERR_NO_URL")
	}

	doc, err := h.importer.Fetch(c.UserContext(), req.URL, req.Title)
	if err != nil {
		return respondError(c, h.log, err)
	}

	ids, err := h.index.Ingest(c.UserContext(), []types.LectureDocument{doc})
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(fiber.Map{
		"inserted": len(ids),
		"ids":      ids,
		"title":    doc.Title,
	})
}

// Retrieve returns the lecture texts closest to the prompt
func (h *LectureHandler) Retrieve(c *fiber.Ctx) error {
	var req RetrieveRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body", "ERR_INVALID_BODY")
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return badRequest(c, "prompt is required", "ERR_NO_PROMPT")
	}

	result, err := h.index.Retrieve(c.UserContext(), req.Prompt, req.TopK)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(result)
}
