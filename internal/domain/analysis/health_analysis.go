package analysis

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	MethodAI       = "ai"
	MethodFallback = "fallback"
)

type HealthAnalysis struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	DocumentID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"document_id"`
	OverallScore    int            `gorm:"column:overall_score;not null" json:"overall_score"`
	HealthCategory  string         `gorm:"column:health_category;not null" json:"health_category"`
	Summary         string         `gorm:"column:summary;type:text" json:"summary,omitempty"`
	Insights        datatypes.JSON `gorm:"column:insights;type:jsonb" json:"insights"`
	RootCauses      datatypes.JSON `gorm:"column:root_causes;type:jsonb" json:"root_causes"`
	Recommendations datatypes.JSON `gorm:"column:recommendations;type:jsonb" json:"recommendations"`
	Warnings        datatypes.JSON `gorm:"column:warnings;type:jsonb" json:"warnings"`
	Disclaimers     datatypes.JSON `gorm:"column:disclaimers;type:jsonb" json:"disclaimers"`

	Method           string  `gorm:"column:method;not null" json:"method"`
	AIModel          string  `gorm:"column:ai_model" json:"ai_model,omitempty"`
	ProcessingTimeMs int64   `gorm:"column:processing_time_ms" json:"processing_time_ms"`
	InputTokens      int     `gorm:"column:input_tokens" json:"input_tokens"`
	OutputTokens     int     `gorm:"column:output_tokens" json:"output_tokens"`
	EstimatedCostUSD float64 `gorm:"column:estimated_cost_usd" json:"estimated_cost_usd"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (HealthAnalysis) TableName() string { return "health_analyses" }

func (a *HealthAnalysis) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// AnalysisProcessingUpdate mirrors the document timeline for analysis runs.
// Rows are written before the analysis row exists, so they carry the owner.
type AnalysisProcessingUpdate struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	AnalysisID uuid.UUID      `gorm:"type:uuid;not null;index:idx_analysis_updates_created,priority:1" json:"analysis_id"`
	UserID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	Phase      string         `gorm:"column:phase;not null" json:"phase"`
	Message    string         `gorm:"column:message;type:text" json:"message,omitempty"`
	Details    datatypes.JSON `gorm:"column:details;type:jsonb" json:"details,omitempty"`
	CreatedAt  time.Time      `gorm:"not null;index:idx_analysis_updates_created,priority:2" json:"created_at"`
}

func (AnalysisProcessingUpdate) TableName() string { return "analysis_processing_updates" }

func (u *AnalysisProcessingUpdate) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
