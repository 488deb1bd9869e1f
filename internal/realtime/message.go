package realtime

import "github.com/google/uuid"

type SSEEvent string

const (
	SSEEventDocumentProgress SSEEvent = "DocumentProgress"
	SSEEventAnalysisProgress SSEEvent = "AnalysisProgress"
	SSEEventOrderConfirmed   SSEEvent = "OrderConfirmed"
)

type SSEMessage struct {
	Channel string   `json:"channel"`
	Event   SSEEvent `json:"event"`
	Data    any      `json:"data,omitempty"`
}

// UserChannel is the channel every authenticated stream subscribes to.
func UserChannel(userID uuid.UUID) string {
	return "user:" + userID.String()
}
