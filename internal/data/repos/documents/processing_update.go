package documents

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/biomarker-backend/internal/data/repos/dberr"
	types "github.com/yungbote/biomarker-backend/internal/domain"
	"github.com/yungbote/biomarker-backend/internal/pkg/dbctx"
	"github.com/yungbote/biomarker-backend/internal/platform/logger"
)

type ProcessingUpdateRepo interface {
	Append(dbc dbctx.Context, row *types.DocumentProcessingUpdate) error
	ListByDocument(dbc dbctx.Context, documentID uuid.UUID) ([]*types.DocumentProcessingUpdate, error)
}

type processingUpdateRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProcessingUpdateRepo(db *gorm.DB, baseLog *logger.Logger) ProcessingUpdateRepo {
	return &processingUpdateRepo{db: db, log: baseLog.With("repo", "DocumentProcessingUpdateRepo")}
}

func (r *processingUpdateRepo) Append(dbc dbctx.Context, row *types.DocumentProcessingUpdate) error {
	if row == nil {
		return nil
	}
	if err := dbc.DB(r.db).Create(row).Error; err != nil {
		return dberr.Map("append document update", err)
	}
	return nil
}

// ListByDocument returns updates oldest first.
func (r *processingUpdateRepo) ListByDocument(dbc dbctx.Context, documentID uuid.UUID) ([]*types.DocumentProcessingUpdate, error) {
	var results []*types.DocumentProcessingUpdate
	if err := dbc.DB(r.db).
		Where("document_id = ?", documentID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, dberr.Map("list document updates", err)
	}
	return results, nil
}
