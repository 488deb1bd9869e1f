package analysis

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/biomarker-backend/internal/data/repos/dberr"
	types "github.com/yungbote/biomarker-backend/internal/domain"
	"github.com/yungbote/biomarker-backend/internal/pkg/dbctx"
	"github.com/yungbote/biomarker-backend/internal/platform/logger"
)

type ProcessingUpdateRepo interface {
	Append(dbc dbctx.Context, row *types.AnalysisProcessingUpdate) error
	// ListForUser returns the run's updates oldest first, scoped to the owner.
	ListForUser(dbc dbctx.Context, userID, analysisID uuid.UUID) ([]*types.AnalysisProcessingUpdate, error)
	// HasUpdates reports whether any user has written updates under the id.
	HasUpdates(dbc dbctx.Context, analysisID uuid.UUID) (bool, error)
}

type processingUpdateRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProcessingUpdateRepo(db *gorm.DB, baseLog *logger.Logger) ProcessingUpdateRepo {
	return &processingUpdateRepo{db: db, log: baseLog.With("repo", "AnalysisProcessingUpdateRepo")}
}

func (r *processingUpdateRepo) Append(dbc dbctx.Context, row *types.AnalysisProcessingUpdate) error {
	if row == nil {
		return nil
	}
	if err := dbc.DB(r.db).Create(row).Error; err != nil {
		return dberr.Map("append analysis update", err)
	}
	return nil
}

func (r *processingUpdateRepo) ListForUser(dbc dbctx.Context, userID, analysisID uuid.UUID) ([]*types.AnalysisProcessingUpdate, error) {
	var results []*types.AnalysisProcessingUpdate
	if err := dbc.DB(r.db).
		Where("analysis_id = ? AND user_id = ?", analysisID, userID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, dberr.Map("list analysis updates", err)
	}
	return results, nil
}

func (r *processingUpdateRepo) HasUpdates(dbc dbctx.Context, analysisID uuid.UUID) (bool, error) {
	var n int64
	if err := dbc.DB(r.db).Model(&types.AnalysisProcessingUpdate{}).Where("analysis_id = ?", analysisID).Count(&n).Error; err != nil {
		return false, dberr.Map("check analysis updates", err)
	}
	return n > 0, nil
}
