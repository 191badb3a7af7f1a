package handler

import (
	"fmt"
	"time"

	"github.com/braincreator/flow-masters/internal/agency/service"
	"github.com/braincreator/flow-masters/internal/agency/sse"
	"github.com/gin-gonic/gin"
)

const sseHeartbeat = 30 * time.Second

// SSEHandler live project updates
type SSEHandler struct {
	hub      *sse.Hub
	projects *service.ProjectService
}

func NewSSEHandler(hub *sse.Hub, projects *service.ProjectService) *SSEHandler {
	return &SSEHandler{hub: hub, projects: projects}
}

// Stream GET /api/projects/:id/events?token=xxx
func (h *SSEHandler) Stream(c *gin.Context) {
	projectID := c.Param("id")
	if _, err := h.projects.AccessibleProject(c.Request.Context(), projectID, actor(c)); err != nil {
		handleError(c, err)
		return
	}

	userID := GetUserID(c)
	clientID := fmt.Sprintf("%s_%d", userID, time.Now().UnixNano())
	client := &sse.Client{
		ID:        clientID,
		UserID:    userID,
		ProjectID: projectID,
		Events:    make(chan sse.Event, 64),
	}
	h.hub.Register(client)
	defer h.hub.Unregister(clientID)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	c.Writer.WriteString("event: connected\ndata: {\"client_id\":\"" + clientID + "\"}\n\n")
	c.Writer.Flush()

	heartbeat := time.NewTicker(sseHeartbeat)
	defer heartbeat.Stop()
	clientGone := c.Request.Context().Done()

	for {
		select {
		case <-clientGone:
			return
		case event, ok := <-client.Events:
			if !ok {
				return
			}
			c.Writer.WriteString(fmt.Sprintf("event: %s\ndata: %s\n\n", event.EventType, event.Data))
			c.Writer.Flush()
		case <-heartbeat.C:
			c.Writer.WriteString(": keepalive\n\n")
			c.Writer.Flush()
		}
	}
}
