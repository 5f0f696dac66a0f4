package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/codebuildervaibhav/lecture-grader/internal/apperr"
)

var kindStatus = map[apperr.Kind]int{
	apperr.KindInvalidInput:       fiber.StatusBadRequest,
	apperr.KindNotFound:           fiber.StatusNotFound,
	apperr.KindMediaDecode:        fiber.StatusUnprocessableEntity,
	apperr.KindTranscription:      fiber.StatusInternalServerError,
	apperr.KindConfiguration:      fiber.StatusInternalServerError,
	apperr.KindStorageUnavailable: fiber.StatusServiceUnavailable,
	apperr.KindStorage:            fiber.StatusInternalServerError,
	apperr.KindCompletion:         fiber.StatusBadGateway,
	apperr.KindUpstream:           fiber.StatusBadGateway,
}

// badRequest writes a 400 with the given message and code.
func badRequest(c *fiber.Ctx, msg, code string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": msg,
		"code":  code,
	})
}

// respondError maps a classified error to a status and an {error, code} body.
// Unclassified errors are reported as ERR_INTERNAL.
func respondError(c *fiber.Ctx, log logrus.FieldLogger, err error) error {
	kind := apperr.KindOf(err)
	status, ok := kindStatus[kind]
	code := "ERR_" + string(kind)
	if !ok {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message, "code": "ERR_REQUEST"})
		}
		status = fiber.StatusInternalServerError
		code = "ERR_INTERNAL"
	}

	entry := log.WithError(err).WithFields(logrus.Fields{
		"path":   c.Path(),
		"status": status,
	})
	if status >= fiber.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Warn("Request rejected")
	}

	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
		"code":  code,
	})
}

// ErrorHandler is the fiber fallback for errors returned by middleware and
// unmatched routes.
func ErrorHandler(log logrus.FieldLogger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		return respondError(c, log, err)
	}
}
