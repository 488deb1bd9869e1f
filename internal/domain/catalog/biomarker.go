package catalog

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Biomarker is a catalogue entry. Aliases hold alternative lab spellings
// ("HbA1c", "Glycated hemoglobin") as a JSON string array.
type Biomarker struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string         `gorm:"column:name;not null;uniqueIndex" json:"name"`
	Aliases     datatypes.JSON `gorm:"column:aliases;type:jsonb" json:"aliases,omitempty"`
	Category    string         `gorm:"column:category;not null;index" json:"category"`
	Unit        string         `gorm:"column:unit" json:"unit"`
	Description string         `gorm:"column:description;type:text" json:"description,omitempty"`
	CreatedAt   time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null" json:"updated_at"`

	OptimalRanges []BiomarkerOptimalRange `gorm:"foreignKey:BiomarkerID" json:"optimal_ranges,omitempty"`
}

func (Biomarker) TableName() string { return "biomarkers" }

func (b *Biomarker) BeforeCreate(*gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

const (
	GenderAny    = "any"
	GenderMale   = "male"
	GenderFemale = "female"
)

// BiomarkerOptimalRange is an optimal band, optionally narrowed by gender and
// age. Nil age bounds are open.
type BiomarkerOptimalRange struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	BiomarkerID uuid.UUID `gorm:"type:uuid;not null;index" json:"biomarker_id"`
	Gender      string    `gorm:"column:gender;not null;default:'any'" json:"gender"`
	AgeMin      *int      `gorm:"column:age_min" json:"age_min,omitempty"`
	AgeMax      *int      `gorm:"column:age_max" json:"age_max,omitempty"`
	OptimalMin  float64   `gorm:"column:optimal_min;not null" json:"optimal_min"`
	OptimalMax  float64   `gorm:"column:optimal_max;not null" json:"optimal_max"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
}

func (BiomarkerOptimalRange) TableName() string { return "biomarker_optimal_ranges" }

func (r *BiomarkerOptimalRange) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
