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

type CartRepo interface {
	// GetByUserID returns the cart with items and products, or nil.
	GetByUserID(dbc dbctx.Context, userID uuid.UUID) (*types.Cart, error)
	// Create inserts the cart; a concurrent creator surfaces as ErrConflict.
	Create(dbc dbctx.Context, cart *types.Cart) error
	GetItem(dbc dbctx.Context, cartID, itemID uuid.UUID) (*types.CartItem, error)
	GetItemByProduct(dbc dbctx.Context, cartID, productID uuid.UUID) (*types.CartItem, error)
	CreateItem(dbc dbctx.Context, item *types.CartItem) error
	UpdateItemQuantity(dbc dbctx.Context, itemID uuid.UUID, qty int) error
	DeleteItem(dbc dbctx.Context, cartID, itemID uuid.UUID) (bool, error)
	ClearItems(dbc dbctx.Context, cartID uuid.UUID) error
}

type cartRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCartRepo(db *gorm.DB, baseLog *logger.Logger) CartRepo {
	return &cartRepo{db: db, log: baseLog.With("repo", "CartRepo")}
}

func (r *cartRepo) GetByUserID(dbc dbctx.Context, userID uuid.UUID) (*types.Cart, error) {
	var cart types.Cart
	if err := dbc.DB(r.db).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Items.Product").
		Where("user_id = ?", userID).
		Limit(1).
		Find(&cart).Error; err != nil {
		return nil, dberr.Map("get cart", err)
	}
	if cart.ID == uuid.Nil {
		return nil, nil
	}
	return &cart, nil
}

func (r *cartRepo) Create(dbc dbctx.Context, cart *types.Cart) error {
	if err := dbc.DB(r.db).Transaction(func(sp *gorm.DB) error {
		return sp.Create(cart).Error
	}); err != nil {
		return dberr.Map("create cart", err)
	}
	return nil
}

func (r *cartRepo) GetItem(dbc dbctx.Context, cartID, itemID uuid.UUID) (*types.CartItem, error) {
	var item types.CartItem
	if err := dbc.DB(r.db).
		Preload("Product").
		Where("id = ? AND cart_id = ?", itemID, cartID).
		First(&item).Error; err != nil {
		return nil, dberr.Map("get cart item", err)
	}
	return &item, nil
}

func (r *cartRepo) GetItemByProduct(dbc dbctx.Context, cartID, productID uuid.UUID) (*types.CartItem, error) {
	var item types.CartItem
	if err := dbc.DB(r.db).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		Limit(1).
		Find(&item).Error; err != nil {
		return nil, dberr.Map("get cart item", err)
	}
	if item.ID == uuid.Nil {
		return nil, nil
	}
	return &item, nil
}

func (r *cartRepo) CreateItem(dbc dbctx.Context, item *types.CartItem) error {
	if err := dbc.DB(r.db).Create(item).Error; err != nil {
		return dberr.Map("create cart item", err)
	}
	return nil
}

func (r *cartRepo) UpdateItemQuantity(dbc dbctx.Context, itemID uuid.UUID, qty int) error {
	if err := dbc.DB(r.db).
		Model(&types.CartItem{}).
		Where("id = ?", itemID).
		Updates(map[string]any{"quantity": qty, "updated_at": time.Now().UTC()}).Error; err != nil {
		return dberr.Map("update cart item", err)
	}
	return nil
}

func (r *cartRepo) DeleteItem(dbc dbctx.Context, cartID, itemID uuid.UUID) (bool, error) {
	res := dbc.DB(r.db).
		Where("id = ? AND cart_id = ?", itemID, cartID).
		Delete(&types.CartItem{})
	if res.Error != nil {
		return false, dberr.Map("delete cart item", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *cartRepo) ClearItems(dbc dbctx.Context, cartID uuid.UUID) error {
	if err := dbc.DB(r.db).Where("cart_id = ?", cartID).Delete(&types.CartItem{}).Error; err != nil {
		return dberr.Map("clear cart", err)
	}
	return nil
}
