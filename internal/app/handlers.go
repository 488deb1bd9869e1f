package app

import (
	apphttp "github.com/yungbote/biomarker-backend/internal/http"
	httpH "github.com/yungbote/biomarker-backend/internal/http/handlers"
	httpMW "github.com/yungbote/biomarker-backend/internal/http/middleware"
	"github.com/yungbote/biomarker-backend/internal/observability"
	"github.com/yungbote/biomarker-backend/internal/platform/logger"
	"github.com/yungbote/biomarker-backend/internal/realtime"
)

type Middleware struct {
	Auth        *httpMW.AuthMiddleware
	CostLimiter *httpMW.RateLimiter
}

type Handlers struct {
	Health   *httpH.HealthHandler
	Document *httpH.DocumentHandler
	Analysis *httpH.AnalysisHandler
	Profile  *httpH.ProfileHandler
	Catalog  *httpH.CatalogHandler
	Cart     *httpH.CartHandler
	Order    *httpH.OrderHandler
	Admin    *httpH.AdminHandler
	Realtime *httpH.RealtimeHandler
}

func wireHandlers(log *logger.Logger, cfg Config, s Services, sseHub *realtime.SSEHub) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:   httpH.NewHealthHandler(),
		Document: httpH.NewDocumentHandler(log, s.Documents, s.Pipeline, cfg.ProcessStreamTimeout),
		Analysis: httpH.NewAnalysisHandler(log, s.Analysis, s.Report),
		Profile:  httpH.NewProfileHandler(log, s.Profile),
		Catalog:  httpH.NewCatalogHandler(log, s.Catalog, s.Commerce),
		Cart:     httpH.NewCartHandler(log, s.Commerce),
		Order:    httpH.NewOrderHandler(log, s.Commerce),
		Admin:    httpH.NewAdminHandler(log, s.Auth, s.Admin, cfg.SecureCookies),
		Realtime: httpH.NewRealtimeHandler(log, sseHub),
	}
}

func wireMiddleware(log *logger.Logger, cfg Config, s Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth:        httpMW.NewAuthMiddleware(log, s.Auth),
		CostLimiter: httpMW.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
	}
}

func routerConfig(log *logger.Logger, cfg Config, h Handlers, mw Middleware, metrics *observability.Metrics) apphttp.RouterConfig {
	return apphttp.RouterConfig{
		Log:             log,
		Metrics:         metrics,
		OTelEnabled:     cfg.OTelEnabled,
		ServiceName:     cfg.ServiceName,
		AllowedOrigins:  cfg.CORSAllowedOrigins,
		AuthMiddleware:  mw.Auth,
		CostLimiter:     mw.CostLimiter,
		HealthHandler:   h.Health,
		DocumentHandler: h.Document,
		AnalysisHandler: h.Analysis,
		ProfileHandler:  h.Profile,
		CatalogHandler:  h.Catalog,
		CartHandler:     h.Cart,
		OrderHandler:    h.Order,
		AdminHandler:    h.Admin,
		RealtimeHandler: h.Realtime,
	}
}
