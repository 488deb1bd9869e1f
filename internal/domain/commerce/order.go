package commerce

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type OrderStatus string

const (
	OrderStatusPendingPayment OrderStatus = "pending_payment"
	OrderStatusConfirmed      OrderStatus = "confirmed"
	OrderStatusCancelled      OrderStatus = "cancelled"
)

type Order struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	OrderNumber     string         `gorm:"column:order_number;not null;uniqueIndex" json:"order_number"`
	Status          OrderStatus    `gorm:"column:status;not null;index" json:"status"`
	Subtotal        float64        `gorm:"column:subtotal;type:numeric(12,2);not null" json:"subtotal"`
	Tax             float64        `gorm:"column:tax;type:numeric(12,2);not null;default:0" json:"tax"`
	ShippingCost    float64        `gorm:"column:shipping_cost;type:numeric(12,2);not null;default:0" json:"shipping_cost"`
	Total           float64        `gorm:"column:total;type:numeric(12,2);not null" json:"total"`
	ShippingAddress datatypes.JSON `gorm:"column:shipping_address;type:jsonb" json:"shipping_address,omitempty"`
	Notes           string         `gorm:"column:notes;type:text" json:"notes,omitempty"`
	ConfirmedAt     *time.Time     `gorm:"column:confirmed_at" json:"confirmed_at,omitempty"`
	Items           []OrderItem    `gorm:"foreignKey:OrderID" json:"items,omitempty"`
	CreatedAt       time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"not null" json:"updated_at"`
}

func (Order) TableName() string { return "orders" }

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// OrderItem copies product data at checkout so later catalogue edits do not
// rewrite order history.
type OrderItem struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID          uuid.UUID `gorm:"type:uuid;not null;index" json:"order_id"`
	ProductID        uuid.UUID `gorm:"type:uuid;not null;index" json:"product_id"`
	PartnerID        uuid.UUID `gorm:"type:uuid;not null;index" json:"partner_id"`
	ProductName      string    `gorm:"column:product_name;not null" json:"product_name"`
	Quantity         int       `gorm:"column:quantity;not null" json:"quantity"`
	UnitPrice        float64   `gorm:"column:unit_price;type:numeric(12,2);not null" json:"unit_price"`
	Subtotal         float64   `gorm:"column:subtotal;type:numeric(12,2);not null" json:"subtotal"`
	CommissionRate   float64   `gorm:"column:commission_rate;type:numeric(5,2);not null" json:"commission_rate"`
	CommissionAmount float64   `gorm:"column:commission_amount;type:numeric(12,2);not null" json:"commission_amount"`
	CreatedAt        time.Time `gorm:"not null" json:"created_at"`
}

func (OrderItem) TableName() string { return "order_items" }

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
