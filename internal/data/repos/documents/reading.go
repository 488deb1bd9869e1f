package documents

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/biomarker-backend/internal/data/repos/dberr"
	types "github.com/yungbote/biomarker-backend/internal/domain"
	"github.com/yungbote/biomarker-backend/internal/pkg/dbctx"
	"github.com/yungbote/biomarker-backend/internal/platform/logger"
)

// ReadingClassification is the status pair analysis writes back onto a reading.
type ReadingClassification struct {
	ReadingID uuid.UUID
	Status    string
	Severity  string
}

type ReadingRepo interface {
	ListByDocument(dbc dbctx.Context, documentID uuid.UUID) ([]*types.BiomarkerReading, error)
	ListByDocumentIDs(dbc dbctx.Context, documentIDs []uuid.UUID) ([]*types.BiomarkerReading, error)
	ApplyClassifications(dbc dbctx.Context, rows []ReadingClassification) error
}

type readingRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewReadingRepo(db *gorm.DB, baseLog *logger.Logger) ReadingRepo {
	return &readingRepo{db: db, log: baseLog.With("repo", "ReadingRepo")}
}

func (r *readingRepo) ListByDocument(dbc dbctx.Context, documentID uuid.UUID) ([]*types.BiomarkerReading, error) {
	return r.ListByDocumentIDs(dbc, []uuid.UUID{documentID})
}

func (r *readingRepo) ListByDocumentIDs(dbc dbctx.Context, documentIDs []uuid.UUID) ([]*types.BiomarkerReading, error) {
	var results []*types.BiomarkerReading
	if len(documentIDs) == 0 {
		return results, nil
	}
	if err := dbc.DB(r.db).
		Where("document_id IN ?", documentIDs).
		Order("category ASC, name ASC").
		Find(&results).Error; err != nil {
		return nil, dberr.Map("list readings", err)
	}
	return results, nil
}

func (r *readingRepo) ApplyClassifications(dbc dbctx.Context, rows []ReadingClassification) error {
	if len(rows) == 0 {
		return nil
	}
	now := time.Now().UTC()
	t := dbc.DB(r.db)
	for _, row := range rows {
		if err := t.Model(&types.BiomarkerReading{}).
			Where("id = ?", row.ReadingID).
			Updates(map[string]any{
				"status":     row.Status,
				"severity":   row.Severity,
				"updated_at": now,
			}).Error; err != nil {
			return dberr.Map("classify reading", err)
		}
	}
	return nil
}
