package commerce

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/biomarker-backend/internal/data/repos/dberr"
	types "github.com/yungbote/biomarker-backend/internal/domain"
	"github.com/yungbote/biomarker-backend/internal/pkg/dbctx"
	pkgerrors "github.com/yungbote/biomarker-backend/internal/pkg/errors"
	"github.com/yungbote/biomarker-backend/internal/platform/logger"
)

type ProductRepo interface {
	ListActive(dbc dbctx.Context, category string) ([]*types.PartnerProduct, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.PartnerProduct, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.PartnerProduct, error)
	// DecrementStock subtracts qty when enough stock remains, else ErrConflict.
	DecrementStock(dbc dbctx.Context, id uuid.UUID, qty int) error
	UpsertByName(dbc dbctx.Context, p *types.PartnerProduct) error
}

type productRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProductRepo(db *gorm.DB, baseLog *logger.Logger) ProductRepo {
	return &productRepo{db: db, log: baseLog.With("repo", "ProductRepo")}
}

func (r *productRepo) ListActive(dbc dbctx.Context, category string) ([]*types.PartnerProduct, error) {
	var results []*types.PartnerProduct
	q := dbc.DB(r.db).Preload("Partner").Where("active = ?", true)
	if category != "" {
		q = q.Where("category = ?", category)
	}
	if err := q.Order("name ASC").Find(&results).Error; err != nil {
		return nil, dberr.Map("list products", err)
	}
	return results, nil
}

func (r *productRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.PartnerProduct, error) {
	var p types.PartnerProduct
	if err := dbc.DB(r.db).Preload("Partner").Where("id = ?", id).First(&p).Error; err != nil {
		return nil, dberr.Map("get product", err)
	}
	return &p, nil
}

func (r *productRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.PartnerProduct, error) {
	var results []*types.PartnerProduct
	if len(ids) == 0 {
		return results, nil
	}
	if err := dbc.DB(r.db).Preload("Partner").Where("id IN ?", ids).Find(&results).Error; err != nil {
		return nil, dberr.Map("get products", err)
	}
	return results, nil
}

func (r *productRepo) DecrementStock(dbc dbctx.Context, id uuid.UUID, qty int) error {
	if qty <= 0 {
		return nil
	}
	res := dbc.DB(r.db).
		Model(&types.PartnerProduct{}).
		Where("id = ? AND stock_quantity >= ?", id, qty).
		Updates(map[string]any{
			"stock_quantity": gorm.Expr("stock_quantity - ?", qty),
			"updated_at":     time.Now().UTC(),
		})
	if res.Error != nil {
		return dberr.Map("decrement stock", res.Error)
	}
	if res.RowsAffected == 0 {
		return pkgerrors.ErrConflict
	}
	return nil
}

func (r *productRepo) UpsertByName(dbc dbctx.Context, p *types.PartnerProduct) error {
	if p == nil {
		return nil
	}
	t := dbc.DB(r.db)
	var existing types.PartnerProduct
	if err := t.Where("partner_id = ? AND name = ?", p.PartnerID, p.Name).Limit(1).Find(&existing).Error; err != nil {
		return dberr.Map("find product", err)
	}
	if existing.ID == uuid.Nil {
		if err := t.Create(p).Error; err != nil {
			return dberr.Map("create product", err)
		}
		return nil
	}
	p.ID = existing.ID
	if err := t.Model(&existing).Updates(map[string]any{
		"description":    p.Description,
		"category":       p.Category,
		"price":          p.Price,
		"stock_quantity": p.StockQuantity,
		"active":         p.Active,
		"tags":           p.Tags,
	}).Error; err != nil {
		return dberr.Map("update product", err)
	}
	return nil
}
