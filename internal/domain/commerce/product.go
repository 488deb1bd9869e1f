package commerce

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Partner struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name           string    `gorm:"column:name;not null;uniqueIndex" json:"name"`
	ContactEmail   string    `gorm:"column:contact_email" json:"contact_email,omitempty"`
	CommissionRate float64   `gorm:"column:commission_rate;type:numeric(5,2);not null" json:"commission_rate"`
	Active         bool      `gorm:"column:active;not null" json:"active"`
	CreatedAt      time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time `gorm:"not null" json:"updated_at"`
}

func (Partner) TableName() string { return "partners" }

func (p *Partner) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// PartnerProduct is a purchasable item. Tags hold the biomarker categories
// the product is recommended for.
type PartnerProduct struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	PartnerID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"partner_id"`
	Partner       *Partner       `gorm:"foreignKey:PartnerID;references:ID" json:"partner,omitempty"`
	Name          string         `gorm:"column:name;not null" json:"name"`
	Description   string         `gorm:"column:description;type:text" json:"description,omitempty"`
	Category      string         `gorm:"column:category;index" json:"category"`
	Price         float64        `gorm:"column:price;type:numeric(12,2);not null" json:"price"`
	StockQuantity int            `gorm:"column:stock_quantity;not null;default:0" json:"stock_quantity"`
	Active        bool           `gorm:"column:active;not null;index" json:"active"`
	Tags          datatypes.JSON `gorm:"column:tags;type:jsonb" json:"tags,omitempty"`
	CreatedAt     time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null" json:"updated_at"`
}

func (PartnerProduct) TableName() string { return "partner_products" }

func (p *PartnerProduct) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
