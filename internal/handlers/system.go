package handlers

import (
	"sort"

	"github.com/gofiber/fiber/v2"
)

// Hello answers the root route
func Hello(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"message": "Hello World"})
}

// Health reports liveness and lists components that failed to start
func Health(degraded map[string]error) fiber.Handler {
	return func(c *fiber.Ctx) error {
		names := make([]string, 0, len(degraded))
		for name := range degraded {
			names = append(names, name)
		}
		sort.Strings(names)

		status := "healthy"
		if len(names) > 0 {
			status = "degraded"
		}
		return c.JSON(fiber.Map{
			"status":      status,
			"unavailable": names,
		})
	}
}

type logSource interface {
	GetLogs() []string
}

// Logs returns recent server log lines
func Logs(buf logSource) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"logs": buf.GetLogs(),
		})
	}
}
