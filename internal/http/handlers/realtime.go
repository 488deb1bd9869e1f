package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/biomarker-backend/internal/platform/logger"
	"github.com/yungbote/biomarker-backend/internal/realtime"
)

type RealtimeHandler struct {
	log *logger.Logger
	hub *realtime.SSEHub
}

func NewRealtimeHandler(log *logger.Logger, hub *realtime.SSEHub) *RealtimeHandler {
	return &RealtimeHandler{log: log.With("handler", "RealtimeHandler"), hub: hub}
}

// GET /api/sse/stream subscribes the connection to the caller's channel and
// blocks until the client goes away.
func (h *RealtimeHandler) SSEStream(c *gin.Context) {
	rd, ok := requireUser(c)
	if !ok {
		return
	}
	client := h.hub.NewSSEClient(rd.UserID)
	channel := realtime.UserChannel(rd.UserID)
	h.hub.AddChannel(client, channel)
	h.log.Debug("SSE stream open", "user_id", rd.UserID, "client_id", client.ID, "subscribers", h.hub.Subscribers(channel))

	h.hub.ServeHTTP(c.Writer, c.Request, client)

	h.hub.CloseClient(client)
	h.log.Debug("SSE stream closed", "user_id", rd.UserID, "client_id", client.ID)
}
