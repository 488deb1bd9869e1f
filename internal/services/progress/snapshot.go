package progress

import (
	"encoding/json"
	"time"

	"github.com/yungbote/biomarker-backend/internal/platform/logger"
)

// Row is a persisted update as read back from either updates table.
type Row struct {
	Phase     string
	Message   string
	Details   json.RawMessage
	CreatedAt time.Time
}

type StatusUpdate struct {
	Status    string          `json:"status"`
	Message   string          `json:"message,omitempty"`
	Details   json.RawMessage `json:"details,omitempty"`
	Progress  int             `json:"progress"`
	Timestamp time.Time       `json:"timestamp"`
}

type Status struct {
	Status         string         `json:"status"`
	Progress       int            `json:"progress"`
	CurrentPhase   string         `json:"currentPhase"`
	CurrentMessage string         `json:"currentMessage"`
	Updates        []StatusUpdate `json:"updates"`
}

const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
)

// Snapshot rebuilds polling state from rows in creation order. Progress is
// the table value of the latest recognised phase; unknown phases are listed
// but do not move the bar.
func Snapshot(log *logger.Logger, rows []Row) Status {
	out := Status{Status: StatusPending, Updates: make([]StatusUpdate, 0, len(rows))}
	for _, row := range rows {
		p := ParsePhase(row.Phase)
		if p == PhaseUnknown && log != nil {
			log.Warn("unknown phase in update history", "phase", row.Phase)
		}
		details := row.Details
		if len(details) == 0 || string(details) == "null" {
			details = nil
		}
		out.Updates = append(out.Updates, StatusUpdate{
			Status:    row.Phase,
			Message:   row.Message,
			Details:   details,
			Progress:  Progress(p),
			Timestamp: row.CreatedAt,
		})
		out.CurrentPhase = row.Phase
		out.CurrentMessage = row.Message
		if p == PhaseUnknown {
			continue
		}
		out.Progress = Progress(p)
		switch {
		case p.Terminal():
			out.Status = string(p)
		default:
			out.Status = StatusProcessing
		}
	}
	return out
}
