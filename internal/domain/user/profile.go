package user

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// UserProfile carries the demographics used to pick optimal ranges. Users
// themselves live with the auth provider; only the subject id is stored.
type UserProfile struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	DisplayName string         `gorm:"column:display_name" json:"display_name,omitempty"`
	DateOfBirth *time.Time     `gorm:"column:date_of_birth" json:"date_of_birth,omitempty"`
	Gender      string         `gorm:"column:gender" json:"gender,omitempty"`
	HeightCm    *float64       `gorm:"column:height_cm" json:"height_cm,omitempty"`
	WeightKg    *float64       `gorm:"column:weight_kg" json:"weight_kg,omitempty"`
	Goals       datatypes.JSON `gorm:"column:goals;type:jsonb" json:"goals,omitempty"`
	CreatedAt   time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null" json:"updated_at"`
}

func (UserProfile) TableName() string { return "user_profiles" }

func (p *UserProfile) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// AgeAt returns whole years at t, or nil without a birth date.
func (p *UserProfile) AgeAt(t time.Time) *int {
	if p == nil || p.DateOfBirth == nil {
		return nil
	}
	dob := p.DateOfBirth.UTC()
	t = t.UTC()
	age := t.Year() - dob.Year()
	if t.Month() < dob.Month() || (t.Month() == dob.Month() && t.Day() < dob.Day()) {
		age--
	}
	if age < 0 {
		age = 0
	}
	return &age
}
