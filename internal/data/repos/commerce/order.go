package commerce

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/biomarker-backend/internal/data/repos/dberr"
	types "github.com/yungbote/biomarker-backend/internal/domain"
	"github.com/yungbote/biomarker-backend/internal/pkg/dbctx"
	"github.com/yungbote/biomarker-backend/internal/platform/logger"
)

type OrderRepo interface {
	Create(dbc dbctx.Context, order *types.Order) error
	CreateItems(dbc dbctx.Context, items []*types.OrderItem) error
	Delete(dbc dbctx.Context, id uuid.UUID) error
	GetForUser(dbc dbctx.Context, userID, id uuid.UUID) (*types.Order, error)
	ListForUser(dbc dbctx.Context, userID uuid.UUID, limit, offset int) ([]*types.Order, error)
	// ConfirmPending flips pending_payment to confirmed and reports whether a
	// row changed.
	ConfirmPending(dbc dbctx.Context, id uuid.UUID, at time.Time) (bool, error)
	ListRecent(dbc dbctx.Context, limit int) ([]*types.Order, error)
}

type orderRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewOrderRepo(db *gorm.DB, baseLog *logger.Logger) OrderRepo {
	return &orderRepo{db: db, log: baseLog.With("repo", "OrderRepo")}
}

func (r *orderRepo) Create(dbc dbctx.Context, order *types.Order) error {
	if err := dbc.DB(r.db).Omit("Items").Create(order).Error; err != nil {
		return dberr.Map("create order", err)
	}
	return nil
}

func (r *orderRepo) CreateItems(dbc dbctx.Context, items []*types.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	if err := dbc.DB(r.db).Create(&items).Error; err != nil {
		return dberr.Map("create order items", err)
	}
	return nil
}

func (r *orderRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	t := dbc.DB(r.db)
	if err := t.Where("order_id = ?", id).Delete(&types.OrderItem{}).Error; err != nil {
		return dberr.Map("delete order items", err)
	}
	if err := t.Where("id = ?", id).Delete(&types.Order{}).Error; err != nil {
		return dberr.Map("delete order", err)
	}
	return nil
}

func (r *orderRepo) GetForUser(dbc dbctx.Context, userID, id uuid.UUID) (*types.Order, error) {
	var o types.Order
	if err := dbc.DB(r.db).
		Preload("Items").
		Where("id = ? AND user_id = ?", id, userID).
		First(&o).Error; err != nil {
		return nil, dberr.Map("get order", err)
	}
	return &o, nil
}

func (r *orderRepo) ListForUser(dbc dbctx.Context, userID uuid.UUID, limit, offset int) ([]*types.Order, error) {
	var results []*types.Order
	q := dbc.DB(r.db).Preload("Items").Where("user_id = ?", userID).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	if err := q.Find(&results).Error; err != nil {
		return nil, dberr.Map("list orders", err)
	}
	return results, nil
}

func (r *orderRepo) ConfirmPending(dbc dbctx.Context, id uuid.UUID, at time.Time) (bool, error) {
	res := dbc.DB(r.db).
		Model(&types.Order{}).
		Where("id = ? AND status = ?", id, types.OrderStatusPendingPayment).
		Updates(map[string]any{
			"status":       types.OrderStatusConfirmed,
			"confirmed_at": at,
			"updated_at":   at,
		})
	if res.Error != nil {
		return false, dberr.Map("confirm order", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *orderRepo) ListRecent(dbc dbctx.Context, limit int) ([]*types.Order, error) {
	var results []*types.Order
	q := dbc.DB(r.db).Preload("Items").Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&results).Error; err != nil {
		return nil, dberr.Map("list recent orders", err)
	}
	return results, nil
}
