package documents

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DocumentProcessingUpdate is an append-only timeline entry written for every
// pipeline phase transition.
type DocumentProcessingUpdate struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	DocumentID uuid.UUID      `gorm:"type:uuid;not null;index:idx_doc_updates_doc_created,priority:1" json:"document_id"`
	Phase      string         `gorm:"column:phase;not null" json:"phase"`
	Message    string         `gorm:"column:message;type:text" json:"message,omitempty"`
	Details    datatypes.JSON `gorm:"column:details;type:jsonb" json:"details,omitempty"`
	CreatedAt  time.Time      `gorm:"not null;index:idx_doc_updates_doc_created,priority:2" json:"created_at"`
}

func (DocumentProcessingUpdate) TableName() string { return "document_processing_updates" }

func (u *DocumentProcessingUpdate) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
