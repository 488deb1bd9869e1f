package commerce

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/biomarker-backend/internal/data/repos/dberr"
	types "github.com/yungbote/biomarker-backend/internal/domain"
	"github.com/yungbote/biomarker-backend/internal/pkg/dbctx"
	"github.com/yungbote/biomarker-backend/internal/platform/logger"
)

type PartnerRepo interface {
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Partner, error)
	UpsertByName(dbc dbctx.Context, p *types.Partner) error
}

type partnerRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPartnerRepo(db *gorm.DB, baseLog *logger.Logger) PartnerRepo {
	return &partnerRepo{db: db, log: baseLog.With("repo", "PartnerRepo")}
}

func (r *partnerRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Partner, error) {
	var results []*types.Partner
	if len(ids) == 0 {
		return results, nil
	}
	if err := dbc.DB(r.db).Where("id IN ?", ids).Find(&results).Error; err != nil {
		return nil, dberr.Map("get partners", err)
	}
	return results, nil
}

func (r *partnerRepo) UpsertByName(dbc dbctx.Context, p *types.Partner) error {
	if p == nil {
		return nil
	}
	t := dbc.DB(r.db)
	var existing types.Partner
	if err := t.Where("name = ?", p.Name).Limit(1).Find(&existing).Error; err != nil {
		return dberr.Map("find partner", err)
	}
	if existing.ID == uuid.Nil {
		if err := t.Create(p).Error; err != nil {
			return dberr.Map("create partner", err)
		}
		return nil
	}
	p.ID = existing.ID
	if err := t.Model(&existing).Updates(map[string]any{
		"contact_email":   p.ContactEmail,
		"commission_rate": p.CommissionRate,
		"active":          p.Active,
	}).Error; err != nil {
		return dberr.Map("update partner", err)
	}
	return nil
}
