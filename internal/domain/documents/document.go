package documents

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type DocumentStatus string

const (
	DocumentStatusUploading  DocumentStatus = "uploading"
	DocumentStatusPending    DocumentStatus = "pending"
	DocumentStatusProcessing DocumentStatus = "processing"
	DocumentStatusCompleted  DocumentStatus = "completed"
	DocumentStatusFailed     DocumentStatus = "failed"
)

// Document is an uploaded lab report. Rows are never hard-deleted by the
// extraction pipeline; failures stay visible with their error message.
type Document struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	Filename    string         `gorm:"column:filename;not null" json:"filename"`
	FileSize    int64          `gorm:"column:file_size;not null" json:"file_size"`
	MimeType    string         `gorm:"column:mime_type;not null" json:"mime_type"`
	StoragePath string         `gorm:"column:storage_path;not null;uniqueIndex" json:"storage_path"`
	Status      DocumentStatus `gorm:"column:status;not null;index" json:"status"`

	ErrorMessage  string         `gorm:"column:error_message;type:text" json:"error_message,omitempty"`
	ExtractedData datatypes.JSON `gorm:"column:extracted_data;type:jsonb" json:"extracted_data,omitempty"`
	OCRMetadata   datatypes.JSON `gorm:"column:ocr_metadata;type:jsonb" json:"ocr_metadata,omitempty"`

	ProcessingStartedAt *time.Time `gorm:"column:processing_started_at" json:"processing_started_at,omitempty"`
	ProcessedAt         *time.Time `gorm:"column:processed_at" json:"processed_at,omitempty"`
	CreatedAt           time.Time  `gorm:"not null;index" json:"created_at"`
	UpdatedAt           time.Time  `gorm:"not null" json:"updated_at"`
}

func (Document) TableName() string { return "documents" }

func (d *Document) BeforeCreate(*gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// Startable reports whether the extraction pipeline may claim the document.
func (s DocumentStatus) Startable() bool {
	return s == DocumentStatusPending || s == DocumentStatusFailed
}
