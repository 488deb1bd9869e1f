package analysis

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/biomarker-backend/internal/data/repos/dberr"
	"github.com/yungbote/biomarker-backend/internal/data/repos/documents"
	types "github.com/yungbote/biomarker-backend/internal/domain"
	"github.com/yungbote/biomarker-backend/internal/pkg/dbctx"
	"github.com/yungbote/biomarker-backend/internal/platform/logger"
)

type HealthAnalysisRepo interface {
	// Save inserts the analysis and writes reading classifications in one
	// transaction.
	Save(dbc dbctx.Context, a *types.HealthAnalysis, classifications []documents.ReadingClassification) error
	GetForUser(dbc dbctx.Context, userID, id uuid.UUID) (*types.HealthAnalysis, error)
	ListForUser(dbc dbctx.Context, userID uuid.UUID, limit, offset int) ([]*types.HealthAnalysis, error)
	ListByDocument(dbc dbctx.Context, userID, documentID uuid.UUID) ([]*types.HealthAnalysis, error)
	// Exists is not owner-scoped.
	Exists(dbc dbctx.Context, id uuid.UUID) (bool, error)
}

type healthAnalysisRepo struct {
	db       *gorm.DB
	log      *logger.Logger
	readings documents.ReadingRepo
}

func NewHealthAnalysisRepo(db *gorm.DB, baseLog *logger.Logger) HealthAnalysisRepo {
	return &healthAnalysisRepo{
		db:       db,
		log:      baseLog.With("repo", "HealthAnalysisRepo"),
		readings: documents.NewReadingRepo(db, baseLog),
	}
}

func (r *healthAnalysisRepo) Save(dbc dbctx.Context, a *types.HealthAnalysis, classifications []documents.ReadingClassification) error {
	if a == nil {
		return nil
	}
	err := dbc.DB(r.db).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: dbc.Ctx, Tx: tx}
		if err := r.readings.ApplyClassifications(inner, classifications); err != nil {
			return err
		}
		return tx.Create(a).Error
	})
	if err != nil {
		return dberr.Map("save analysis", err)
	}
	return nil
}

func (r *healthAnalysisRepo) GetForUser(dbc dbctx.Context, userID, id uuid.UUID) (*types.HealthAnalysis, error) {
	var a types.HealthAnalysis
	if err := dbc.DB(r.db).
		Where("id = ? AND user_id = ?", id, userID).
		First(&a).Error; err != nil {
		return nil, dberr.Map("get analysis", err)
	}
	return &a, nil
}

func (r *healthAnalysisRepo) ListForUser(dbc dbctx.Context, userID uuid.UUID, limit, offset int) ([]*types.HealthAnalysis, error) {
	var results []*types.HealthAnalysis
	q := dbc.DB(r.db).Where("user_id = ?", userID).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	if err := q.Find(&results).Error; err != nil {
		return nil, dberr.Map("list analyses", err)
	}
	return results, nil
}

func (r *healthAnalysisRepo) ListByDocument(dbc dbctx.Context, userID, documentID uuid.UUID) ([]*types.HealthAnalysis, error) {
	var results []*types.HealthAnalysis
	if err := dbc.DB(r.db).
		Where("user_id = ? AND document_id = ?", userID, documentID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, dberr.Map("list document analyses", err)
	}
	return results, nil
}

func (r *healthAnalysisRepo) Exists(dbc dbctx.Context, id uuid.UUID) (bool, error) {
	var n int64
	if err := dbc.DB(r.db).Model(&types.HealthAnalysis{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, dberr.Map("check analysis", err)
	}
	return n > 0, nil
}
