package catalog

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/biomarker-backend/internal/data/repos/dberr"
	types "github.com/yungbote/biomarker-backend/internal/domain"
	"github.com/yungbote/biomarker-backend/internal/pkg/dbctx"
	"github.com/yungbote/biomarker-backend/internal/platform/logger"
)

type BiomarkerRepo interface {
	// ListAll returns the catalogue with optimal ranges preloaded.
	ListAll(dbc dbctx.Context) ([]*types.Biomarker, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Biomarker, error)
	// Upsert creates the biomarker or, when the name exists, replaces its
	// fields and ranges.
	Upsert(dbc dbctx.Context, b *types.Biomarker) (*types.Biomarker, error)
}

type biomarkerRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBiomarkerRepo(db *gorm.DB, baseLog *logger.Logger) BiomarkerRepo {
	return &biomarkerRepo{db: db, log: baseLog.With("repo", "BiomarkerRepo")}
}

func (r *biomarkerRepo) ListAll(dbc dbctx.Context) ([]*types.Biomarker, error) {
	var results []*types.Biomarker
	if err := dbc.DB(r.db).
		Preload("OptimalRanges").
		Order("category ASC, name ASC").
		Find(&results).Error; err != nil {
		return nil, dberr.Map("list biomarkers", err)
	}
	return results, nil
}

func (r *biomarkerRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Biomarker, error) {
	var results []*types.Biomarker
	if len(ids) == 0 {
		return results, nil
	}
	if err := dbc.DB(r.db).
		Preload("OptimalRanges").
		Where("id IN ?", ids).
		Find(&results).Error; err != nil {
		return nil, dberr.Map("get biomarkers", err)
	}
	return results, nil
}

func (r *biomarkerRepo) Upsert(dbc dbctx.Context, b *types.Biomarker) (*types.Biomarker, error) {
	if b == nil {
		return nil, nil
	}
	ranges := b.OptimalRanges
	b.OptimalRanges = nil

	err := dbc.DB(r.db).Transaction(func(tx *gorm.DB) error {
		var existing types.Biomarker
		err := tx.Where("name = ?", b.Name).Limit(1).Find(&existing).Error
		if err != nil {
			return err
		}
		if existing.ID == uuid.Nil {
			err := tx.Transaction(func(sp *gorm.DB) error { return sp.Create(b).Error })
			if err != nil {
				if !dberr.IsUniqueViolation(err) {
					return err
				}
				// lost a concurrent seed; fall through to update
				if err := tx.Where("name = ?", b.Name).First(&existing).Error; err != nil {
					return err
				}
			}
		}
		if existing.ID != uuid.Nil {
			b.ID = existing.ID
			if err := tx.Model(&existing).Updates(map[string]any{
				"aliases":     b.Aliases,
				"category":    b.Category,
				"unit":        b.Unit,
				"description": b.Description,
			}).Error; err != nil {
				return err
			}
			if err := tx.Where("biomarker_id = ?", b.ID).Delete(&types.BiomarkerOptimalRange{}).Error; err != nil {
				return err
			}
		}
		for i := range ranges {
			ranges[i].ID = uuid.Nil
			ranges[i].BiomarkerID = b.ID
		}
		if len(ranges) > 0 {
			if err := tx.Create(&ranges).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, dberr.Map("upsert biomarker", err)
	}
	b.OptimalRanges = ranges
	return b, nil
}
