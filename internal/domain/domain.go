package domain

import (
	"github.com/yungbote/biomarker-backend/internal/domain/analysis"
	"github.com/yungbote/biomarker-backend/internal/domain/catalog"
	"github.com/yungbote/biomarker-backend/internal/domain/commerce"
	"github.com/yungbote/biomarker-backend/internal/domain/documents"
	"github.com/yungbote/biomarker-backend/internal/domain/user"
)

type (
	Document                 = documents.Document
	DocumentStatus           = documents.DocumentStatus
	BiomarkerReading         = documents.BiomarkerReading
	DocumentProcessingUpdate = documents.DocumentProcessingUpdate

	Biomarker             = catalog.Biomarker
	BiomarkerOptimalRange = catalog.BiomarkerOptimalRange

	HealthAnalysis           = analysis.HealthAnalysis
	AnalysisProcessingUpdate = analysis.AnalysisProcessingUpdate

	UserProfile = user.UserProfile

	Partner        = commerce.Partner
	PartnerProduct = commerce.PartnerProduct
	Cart           = commerce.Cart
	CartItem       = commerce.CartItem
	Order          = commerce.Order
	OrderItem      = commerce.OrderItem
	OrderStatus    = commerce.OrderStatus
)

const (
	DocumentStatusUploading  = documents.DocumentStatusUploading
	DocumentStatusPending    = documents.DocumentStatusPending
	DocumentStatusProcessing = documents.DocumentStatusProcessing
	DocumentStatusCompleted  = documents.DocumentStatusCompleted
	DocumentStatusFailed     = documents.DocumentStatusFailed

	OrderStatusPendingPayment = commerce.OrderStatusPendingPayment
	OrderStatusConfirmed      = commerce.OrderStatusConfirmed
	OrderStatusCancelled      = commerce.OrderStatusCancelled

	AnalysisMethodAI       = analysis.MethodAI
	AnalysisMethodFallback = analysis.MethodFallback

	GenderAny    = catalog.GenderAny
	GenderMale   = catalog.GenderMale
	GenderFemale = catalog.GenderFemale
)

// AllModels lists every persisted type, in migration order.
func AllModels() []any {
	return []any{
		&UserProfile{},
		&Biomarker{},
		&BiomarkerOptimalRange{},
		&Document{},
		&BiomarkerReading{},
		&DocumentProcessingUpdate{},
		&HealthAnalysis{},
		&AnalysisProcessingUpdate{},
		&Partner{},
		&PartnerProduct{},
		&Cart{},
		&CartItem{},
		&Order{},
		&OrderItem{},
	}
}
