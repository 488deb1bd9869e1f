package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/biomarker-backend/internal/data/repos"
	"github.com/yungbote/biomarker-backend/internal/platform/logger"
)

type Repos struct {
	Document       repos.DocumentRepo
	Reading        repos.ReadingRepo
	DocumentUpdate repos.DocumentUpdateRepo
	Biomarker      repos.BiomarkerRepo
	HealthAnalysis repos.HealthAnalysisRepo
	AnalysisUpdate repos.AnalysisUpdateRepo
	UserProfile    repos.UserProfileRepo
	Product        repos.ProductRepo
	Partner        repos.PartnerRepo
	Cart           repos.CartRepo
	Order          repos.OrderRepo
	Stats          repos.StatsRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Document:       repos.NewDocumentRepo(db, log),
		Reading:        repos.NewReadingRepo(db, log),
		DocumentUpdate: repos.NewDocumentUpdateRepo(db, log),
		Biomarker:      repos.NewBiomarkerRepo(db, log),
		HealthAnalysis: repos.NewHealthAnalysisRepo(db, log),
		AnalysisUpdate: repos.NewAnalysisUpdateRepo(db, log),
		UserProfile:    repos.NewUserProfileRepo(db, log),
		Product:        repos.NewProductRepo(db, log),
		Partner:        repos.NewPartnerRepo(db, log),
		Cart:           repos.NewCartRepo(db, log),
		Order:          repos.NewOrderRepo(db, log),
		Stats:          repos.NewStatsRepo(db, log),
	}
}
