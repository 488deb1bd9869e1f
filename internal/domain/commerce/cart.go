package commerce

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Cart is unique per user; the unique index backs the lookup-then-create race.
type Cart struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	Items     []CartItem `gorm:"foreignKey:CartID" json:"items"`
	CreatedAt time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time  `gorm:"not null" json:"updated_at"`
}

func (Cart) TableName() string { return "carts" }

func (c *Cart) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// CartItem snapshots UnitPrice when the product is added.
type CartItem struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	CartID    uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_cart_item_product,priority:1" json:"cart_id"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_cart_item_product,priority:2" json:"product_id"`
	Product   *PartnerProduct `gorm:"foreignKey:ProductID;references:ID" json:"product,omitempty"`
	Quantity  int             `gorm:"column:quantity;not null" json:"quantity"`
	UnitPrice float64         `gorm:"column:unit_price;type:numeric(12,2);not null" json:"unit_price"`
	CreatedAt time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time       `gorm:"not null" json:"updated_at"`
}

func (CartItem) TableName() string { return "cart_items" }

func (i *CartItem) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
