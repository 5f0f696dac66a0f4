package handlers

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/codebuildervaibhav/lecture-grader/internal/apperr"
)

type evaluator interface {
	Evaluate(ctx context.Context, documents []string, lecture, pupilText string) (string, error)
	Score(ctx context.Context, lecture, pupilText string) (string, error)
}

// LLMHandler exposes single feedback and scoring calls
type LLMHandler struct {
	index     lectureIndex
	evaluator evaluator
	log       logrus.FieldLogger
}

func NewLLMHandler(index lectureIndex, evaluator evaluator, log logrus.FieldLogger) *LLMHandler {
	return &LLMHandler{index: index, evaluator: evaluator, log: log}
}

// LLMRequest is the body of the evaluate and score endpoints
type LLMRequest struct {
	Prompt    string `json:"prompt"`
	PupilText string `json:"pupil_text"`
}

func parseLLMRequest(c *fiber.Ctx) (LLMRequest, error) {
	var req LLMRequest
	if err := c.BodyParser(&req); err != nil {
		return req, apperr.Newf(apperr.KindInvalidInput, "parse request", "invalid request body: %w", err)
	}
	if strings.TrimSpace(req.Prompt) == "" || strings.TrimSpace(req.PupilText) == "" {
		return req, apperr.Newf(apperr.KindInvalidInput, "parse request", "prompt and pupil_text are required")
	}
	return req, nil
}

// Evaluate returns written feedback on the pupil's text
func (h *LLMHandler) Evaluate(c *fiber.Ctx) error {
	req, err := parseLLMRequest(c)
	if err != nil {
		return respondError(c, h.log, err)
	}

	retrieved, err := h.index.Retrieve(c.UserContext(), req.Prompt, 0)
	if err != nil {
		return respondError(c, h.log, err)
	}

	text, err := h.evaluator.Evaluate(c.UserContext(), retrieved.Documents, req.Prompt, req.PupilText)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"text": text})
}

// Score returns the mark for the pupil's text
func (h *LLMHandler) Score(c *fiber.Ctx) error {
	req, err := parseLLMRequest(c)
	if err != nil {
		return respondError(c, h.log, err)
	}

	text, err := h.evaluator.Score(c.UserContext(), req.Prompt, req.PupilText)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"text": text})
}
