package server

import (
	"io"
	"net/http"
	"time"

	"github.com/MarcoPoloResearchLab/signroom/internal/notify"
	"github.com/gin-gonic/gin"
)

const (
	eventNotice    = "notice"
	eventHeartbeat = "heartbeat"
)

type noticePayload struct {
	Level      string    `json:"level"`
	Message    string    `json:"message"`
	ContractID string    `json:"contract_id,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// handleEvents streams the caller's notices until the client goes away.
func (h *httpHandler) handleEvents(c *gin.Context) {
	participant, ok := currentParticipant(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	ctx := c.Request.Context()
	notices, cleanup := h.hub.Subscribe(ctx, participant.ID)
	defer cleanup()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case notice, open := <-notices:
			if !open {
				return false
			}
			c.SSEvent(eventNotice, toNoticePayload(notice))
			return true
		case tick := <-heartbeat.C:
			c.SSEvent(eventHeartbeat, gin.H{"timestamp": tick.UTC()})
			return true
		}
	})
}

func toNoticePayload(notice notify.Notice) noticePayload {
	return noticePayload{
		Level:      string(notice.Level),
		Message:    notice.Message,
		ContractID: notice.ContractID,
		Timestamp:  notice.Timestamp,
	}
}
