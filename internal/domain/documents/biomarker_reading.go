package documents

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BiomarkerReading is one extracted value. Status and Severity stay empty
// until an analysis classifies the reading.
type BiomarkerReading struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	DocumentID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"document_id"`
	UserID         uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	BiomarkerID    *uuid.UUID `gorm:"type:uuid;index" json:"biomarker_id,omitempty"`
	Name           string     `gorm:"column:name;not null" json:"name"`
	Value          float64    `gorm:"column:value;not null" json:"value"`
	Unit           string     `gorm:"column:unit" json:"unit"`
	Category       string     `gorm:"column:category;index" json:"category"`
	ReferenceRange string     `gorm:"column:reference_range" json:"reference_range,omitempty"`
	Confidence     float64    `gorm:"column:confidence" json:"confidence"`
	IsMatched      bool       `gorm:"column:is_matched;not null;default:false" json:"is_matched"`
	Status         string     `gorm:"column:status" json:"status,omitempty"`
	Severity       string     `gorm:"column:severity" json:"severity,omitempty"`
	CreatedAt      time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"not null" json:"updated_at"`
}

func (BiomarkerReading) TableName() string { return "biomarker_readings" }

func (r *BiomarkerReading) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
