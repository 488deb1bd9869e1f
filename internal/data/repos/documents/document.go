package documents

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/biomarker-backend/internal/data/repos/dberr"
	types "github.com/yungbote/biomarker-backend/internal/domain"
	"github.com/yungbote/biomarker-backend/internal/pkg/dbctx"
	"github.com/yungbote/biomarker-backend/internal/platform/logger"
)

type DocumentRepo interface {
	Create(dbc dbctx.Context, doc *types.Document) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Document, error)
	GetForUser(dbc dbctx.Context, userID, id uuid.UUID) (*types.Document, error)
	ListForUser(dbc dbctx.Context, userID uuid.UUID, limit, offset int) ([]*types.Document, error)
	SetStatus(dbc dbctx.Context, id uuid.UUID, status types.DocumentStatus) error
	// TryStartProcessing moves a pending or failed document to processing and
	// reports whether this caller won the transition. A processing claim made
	// before staleBefore is abandoned and may be taken over.
	TryStartProcessing(dbc dbctx.Context, id uuid.UUID, staleBefore time.Time) (bool, error)
	MarkFailed(dbc dbctx.Context, id uuid.UUID, message string) error
	// CompleteWithReadings inserts readings and flips the document to
	// completed in one transaction.
	CompleteWithReadings(dbc dbctx.Context, id uuid.UUID, extracted, ocrMeta datatypes.JSON, readings []*types.BiomarkerReading) error
}

type documentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDocumentRepo(db *gorm.DB, baseLog *logger.Logger) DocumentRepo {
	repoLog := baseLog.With("repo", "DocumentRepo")
	return &documentRepo{db: db, log: repoLog}
}

func (r *documentRepo) Create(dbc dbctx.Context, doc *types.Document) error {
	if doc == nil {
		return nil
	}
	if err := dbc.DB(r.db).Create(doc).Error; err != nil {
		return dberr.Map("create document", err)
	}
	return nil
}

func (r *documentRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Document, error) {
	var doc types.Document
	if err := dbc.DB(r.db).Where("id = ?", id).First(&doc).Error; err != nil {
		return nil, dberr.Map("get document", err)
	}
	return &doc, nil
}

func (r *documentRepo) GetForUser(dbc dbctx.Context, userID, id uuid.UUID) (*types.Document, error) {
	var doc types.Document
	if err := dbc.DB(r.db).
		Where("id = ? AND user_id = ?", id, userID).
		First(&doc).Error; err != nil {
		return nil, dberr.Map("get document", err)
	}
	return &doc, nil
}

func (r *documentRepo) ListForUser(dbc dbctx.Context, userID uuid.UUID, limit, offset int) ([]*types.Document, error) {
	var results []*types.Document
	q := dbc.DB(r.db).
		Where("user_id = ?", userID).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	if err := q.Find(&results).Error; err != nil {
		return nil, dberr.Map("list documents", err)
	}
	return results, nil
}

func (r *documentRepo) SetStatus(dbc dbctx.Context, id uuid.UUID, status types.DocumentStatus) error {
	res := dbc.DB(r.db).
		Model(&types.Document{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     status,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return dberr.Map("set document status", res.Error)
	}
	if res.RowsAffected == 0 {
		return dberr.Map("set document status", gorm.ErrRecordNotFound)
	}
	return nil
}

func (r *documentRepo) TryStartProcessing(dbc dbctx.Context, id uuid.UUID, staleBefore time.Time) (bool, error) {
	now := time.Now().UTC()
	res := dbc.DB(r.db).
		Model(&types.Document{}).
		Where("id = ?", id).
		Where("(status IN ? OR (status = ? AND (processing_started_at IS NULL OR processing_started_at < ?)))",
			[]types.DocumentStatus{types.DocumentStatusPending, types.DocumentStatusFailed},
			types.DocumentStatusProcessing, staleBefore.UTC(),
		).
		Updates(map[string]any{
			"status":                types.DocumentStatusProcessing,
			"processing_started_at": now,
			"error_message":         "",
			"updated_at":            now,
		})
	if res.Error != nil {
		return false, dberr.Map("start processing", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *documentRepo) MarkFailed(dbc dbctx.Context, id uuid.UUID, message string) error {
	now := time.Now().UTC()
	if err := dbc.DB(r.db).
		Model(&types.Document{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":        types.DocumentStatusFailed,
			"error_message": message,
			"processed_at":  now,
			"updated_at":    now,
		}).Error; err != nil {
		return dberr.Map("mark document failed", err)
	}
	return nil
}

func (r *documentRepo) CompleteWithReadings(dbc dbctx.Context, id uuid.UUID, extracted, ocrMeta datatypes.JSON, readings []*types.BiomarkerReading) error {
	run := func(tx *gorm.DB) error {
		if len(readings) > 0 {
			if err := tx.CreateInBatches(readings, 200).Error; err != nil {
				return fmt.Errorf("insert readings: %w", err)
			}
		}
		now := time.Now().UTC()
		res := tx.Model(&types.Document{}).
			Where("id = ?", id).
			Updates(map[string]any{
				"status":         types.DocumentStatusCompleted,
				"extracted_data": extracted,
				"ocr_metadata":   ocrMeta,
				"error_message":  "",
				"processed_at":   now,
				"updated_at":     now,
			})
		if res.Error != nil {
			return fmt.Errorf("complete document: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	}

	var err error
	if dbc.Tx != nil {
		err = dbc.Tx.WithContext(dbc.Ctx).Transaction(run)
	} else {
		err = r.db.WithContext(dbc.Ctx).Transaction(run)
	}
	if err != nil {
		return dberr.Map("save extraction", err)
	}
	return nil
}
