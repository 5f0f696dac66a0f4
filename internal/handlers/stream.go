package handlers

import (
	"bytes"
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/codebuildervaibhav/lecture-grader/internal/apperr"
	"github.com/codebuildervaibhav/lecture-grader/internal/transcription"
	"github.com/codebuildervaibhav/lecture-grader/internal/types"
)

// Stream receives a recording over a WebSocket. Text frames set the file
// name or end the upload with "END"; binary frames carry the data.
func (h *VideoHandler) Stream(c *websocket.Conn) {
	defer c.Close()

	var (
		buffer   bytes.Buffer
		filename = "stream_recording.webm"
		maxSize  = int64(h.maxSizeMB) * 1024 * 1024
	)

	h.log.Info("WebSocket video stream opened")

	for {
		messageType, message, err := c.ReadMessage()
		if err != nil {
			h.log.WithError(err).Warn("WebSocket read error")
			return
		}

		if messageType == websocket.TextMessage {
			msg := string(message)
			if msg == "END" {
				break
			}
			if len(msg) > 0 && len(msg) < 200 {
				filename = msg
			}
			continue
		}

		if messageType == websocket.BinaryMessage {
			if h.maxSizeMB > 0 && int64(buffer.Len()+len(message)) > maxSize {
				h.streamError(c, apperr.Newf(apperr.KindInvalidInput, "stream", "stream exceeds %dMB", h.maxSizeMB))
				return
			}
			buffer.Write(message)
		}
	}

	if buffer.Len() == 0 {
		h.streamError(c, apperr.Newf(apperr.KindInvalidInput, "stream", "no data received"))
		return
	}
	if !transcription.ValidateMediaFormat(filename) {
		h.streamError(c, apperr.Newf(apperr.KindInvalidInput, "stream", "unsupported media format %q", filename))
		return
	}

	video, err := h.videos.Save(&buffer, filename, types.SourceStream)
	if err != nil {
		h.streamError(c, err)
		return
	}
	h.record(context.Background(), video)

	c.WriteJSON(fiber.Map{
		"message":    video.Key,
		"video_file": video.Key,
	})
}

func (h *VideoHandler) streamError(c *websocket.Conn, err error) {
	h.log.WithError(err).Warn("WebSocket video stream failed")
	c.WriteJSON(fiber.Map{
		"error": err.Error(),
		"code":  "ERR_" + string(apperr.KindOf(err)),
	})
}

// RequireUpgrade rejects plain HTTP requests on WebSocket routes.
func RequireUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}
