package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/biomarker-backend/internal/data/repos/analysis"
	"github.com/yungbote/biomarker-backend/internal/data/repos/catalog"
	"github.com/yungbote/biomarker-backend/internal/data/repos/commerce"
	"github.com/yungbote/biomarker-backend/internal/data/repos/documents"
	"github.com/yungbote/biomarker-backend/internal/data/repos/user"
	"github.com/yungbote/biomarker-backend/internal/platform/logger"
)

type DocumentRepo = documents.DocumentRepo
type ReadingRepo = documents.ReadingRepo
type DocumentUpdateRepo = documents.ProcessingUpdateRepo
type ReadingClassification = documents.ReadingClassification

type BiomarkerRepo = catalog.BiomarkerRepo

type HealthAnalysisRepo = analysis.HealthAnalysisRepo
type AnalysisUpdateRepo = analysis.ProcessingUpdateRepo

type UserProfileRepo = user.UserProfileRepo

type ProductRepo = commerce.ProductRepo
type PartnerRepo = commerce.PartnerRepo
type CartRepo = commerce.CartRepo
type OrderRepo = commerce.OrderRepo
type StatsRepo = commerce.StatsRepo
type StatusCount = commerce.StatusCount

func NewDocumentRepo(db *gorm.DB, baseLog *logger.Logger) DocumentRepo {
	return documents.NewDocumentRepo(db, baseLog)
}
func NewReadingRepo(db *gorm.DB, baseLog *logger.Logger) ReadingRepo {
	return documents.NewReadingRepo(db, baseLog)
}
func NewDocumentUpdateRepo(db *gorm.DB, baseLog *logger.Logger) DocumentUpdateRepo {
	return documents.NewProcessingUpdateRepo(db, baseLog)
}

func NewBiomarkerRepo(db *gorm.DB, baseLog *logger.Logger) BiomarkerRepo {
	return catalog.NewBiomarkerRepo(db, baseLog)
}

func NewHealthAnalysisRepo(db *gorm.DB, baseLog *logger.Logger) HealthAnalysisRepo {
	return analysis.NewHealthAnalysisRepo(db, baseLog)
}
func NewAnalysisUpdateRepo(db *gorm.DB, baseLog *logger.Logger) AnalysisUpdateRepo {
	return analysis.NewProcessingUpdateRepo(db, baseLog)
}

func NewUserProfileRepo(db *gorm.DB, baseLog *logger.Logger) UserProfileRepo {
	return user.NewUserProfileRepo(db, baseLog)
}

func NewProductRepo(db *gorm.DB, baseLog *logger.Logger) ProductRepo {
	return commerce.NewProductRepo(db, baseLog)
}
func NewPartnerRepo(db *gorm.DB, baseLog *logger.Logger) PartnerRepo {
	return commerce.NewPartnerRepo(db, baseLog)
}
func NewCartRepo(db *gorm.DB, baseLog *logger.Logger) CartRepo {
	return commerce.NewCartRepo(db, baseLog)
}
func NewOrderRepo(db *gorm.DB, baseLog *logger.Logger) OrderRepo {
	return commerce.NewOrderRepo(db, baseLog)
}
func NewStatsRepo(db *gorm.DB, baseLog *logger.Logger) StatsRepo {
	return commerce.NewStatsRepo(db, baseLog)
}
