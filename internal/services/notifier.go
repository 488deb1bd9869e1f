package services

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/biomarker-backend/internal/data/repos"
	types "github.com/yungbote/biomarker-backend/internal/domain"
	"github.com/yungbote/biomarker-backend/internal/pkg/dbctx"
	"github.com/yungbote/biomarker-backend/internal/realtime"
	"github.com/yungbote/biomarker-backend/internal/services/progress"
)

// Notifier pushes realtime messages to connected clients. *realtime.Publisher
// implements it.
type Notifier interface {
	Publish(ctx context.Context, msg realtime.SSEMessage) error
}

func detailsJSON(details map[string]any) datatypes.JSON {
	if len(details) == 0 {
		return nil
	}
	b, err := json.Marshal(details)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}

func documentStoreSink(updates repos.DocumentUpdateRepo, documentID uuid.UUID) progress.Sink {
	return progress.SinkFunc(func(ctx context.Context, u progress.Update) error {
		return updates.Append(dbctx.New(ctx), &types.DocumentProcessingUpdate{
			DocumentID: documentID,
			Phase:      string(u.Phase),
			Message:    u.Message,
			Details:    detailsJSON(u.Details),
			CreatedAt:  u.Timestamp,
		})
	})
}

func analysisStoreSink(updates repos.AnalysisUpdateRepo, analysisID, userID uuid.UUID) progress.Sink {
	return progress.SinkFunc(func(ctx context.Context, u progress.Update) error {
		return updates.Append(dbctx.New(ctx), &types.AnalysisProcessingUpdate{
			AnalysisID: analysisID,
			UserID:     userID,
			Phase:      string(u.Phase),
			Message:    u.Message,
			Details:    detailsJSON(u.Details),
			CreatedAt:  u.Timestamp,
		})
	})
}

func realtimeSink(n Notifier, userID uuid.UUID, event realtime.SSEEvent, subjectKey string, subjectID uuid.UUID) progress.Sink {
	if n == nil {
		return nil
	}
	return progress.SinkFunc(func(ctx context.Context, u progress.Update) error {
		return n.Publish(ctx, realtime.SSEMessage{
			Channel: realtime.UserChannel(userID),
			Event:   event,
			Data: map[string]any{
				subjectKey:  subjectID,
				"status":    string(u.Phase),
				"progress":  progress.Progress(u.Phase),
				"message":   u.Message,
				"details":   u.Details,
				"timestamp": u.Timestamp,
			},
		})
	})
}

func documentUpdateRows(rows []*types.DocumentProcessingUpdate) []progress.Row {
	out := make([]progress.Row, 0, len(rows))
	for _, r := range rows {
		out = append(out, progress.Row{Phase: r.Phase, Message: r.Message, Details: json.RawMessage(r.Details), CreatedAt: r.CreatedAt})
	}
	return out
}

func analysisUpdateRows(rows []*types.AnalysisProcessingUpdate) []progress.Row {
	out := make([]progress.Row, 0, len(rows))
	for _, r := range rows {
		out = append(out, progress.Row{Phase: r.Phase, Message: r.Message, Details: json.RawMessage(r.Details), CreatedAt: r.CreatedAt})
	}
	return out
}
