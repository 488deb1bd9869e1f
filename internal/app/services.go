package app

import (
	"github.com/yungbote/biomarker-backend/internal/platform/logger"
	"github.com/yungbote/biomarker-backend/internal/realtime"
	"github.com/yungbote/biomarker-backend/internal/services"
)

type Services struct {
	Auth      services.AuthService
	Catalog   services.CatalogService
	Profile   services.ProfileService
	Documents services.DocumentService
	Pipeline  services.DocumentPipeline
	Analysis  services.AnalysisService
	Report    services.ReportService
	Commerce  services.CommerceService
	Admin     services.AdminService
}

func wireServices(log *logger.Logger, cfg Config, r Repos, c Clients, publisher *realtime.Publisher) Services {
	log.Info("Wiring services...")

	auth := services.NewAuthService(log, services.AuthConfig{
		JWTSecret:          cfg.SupabaseJWTSecret,
		AdminPassword:      cfg.AdminPassword,
		AdminPasswordHash:  cfg.AdminPasswordHash,
		AdminSessionSecret: cfg.AdminSessionSecret,
		AdminSessionTTL:    cfg.AdminSessionTTL,
	})

	ocr := services.NewOCRService(log, c.GcpVision, c.GcpDocument)
	extractor := services.NewBiomarkerExtractor(log, c.LLM)

	pipeline := services.NewDocumentPipeline(
		log,
		r.Document,
		r.Reading,
		r.DocumentUpdate,
		r.Biomarker,
		c.ObjectStore,
		ocr,
		extractor,
		publisher,
		cfg.ProcessingTimeout,
	)

	analysis := services.NewAnalysisService(
		log,
		r.Document,
		r.Reading,
		r.Biomarker,
		r.UserProfile,
		r.HealthAnalysis,
		r.AnalysisUpdate,
		c.LLM,
		publisher,
	)

	return Services{
		Auth:      auth,
		Catalog:   services.NewCatalogService(log, r.Biomarker),
		Profile:   services.NewProfileService(log, r.UserProfile),
		Documents: services.NewDocumentService(log, r.Document, r.Reading, r.DocumentUpdate, r.HealthAnalysis, c.ObjectStore),
		Pipeline:  pipeline,
		Analysis:  analysis,
		Report:    services.NewReportService(log, analysis),
		Commerce:  services.NewCommerceService(log, r.Product, r.Partner, r.Cart, r.Order, publisher),
		Admin:     services.NewAdminService(log, r.Stats, r.UserProfile, r.Order),
	}
}
