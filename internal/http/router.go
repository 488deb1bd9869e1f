package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/biomarker-backend/internal/http/handlers"
	httpMW "github.com/yungbote/biomarker-backend/internal/http/middleware"
	"github.com/yungbote/biomarker-backend/internal/observability"
	"github.com/yungbote/biomarker-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	Metrics        *observability.Metrics
	OTelEnabled    bool
	ServiceName    string
	AllowedOrigins []string

	AuthMiddleware *httpMW.AuthMiddleware
	// CostLimiter guards the endpoints that spend OCR/LLM budget. nil disables it.
	CostLimiter *httpMW.RateLimiter

	HealthHandler   *httpH.HealthHandler
	DocumentHandler *httpH.DocumentHandler
	AnalysisHandler *httpH.AnalysisHandler
	ProfileHandler  *httpH.ProfileHandler
	CatalogHandler  *httpH.CatalogHandler
	CartHandler     *httpH.CartHandler
	OrderHandler    *httpH.OrderHandler
	AdminHandler    *httpH.AdminHandler
	RealtimeHandler *httpH.RealtimeHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	log := cfg.Log
	if log == nil {
		log = logger.Nop()
	}

	r := gin.New()
	r.Use(httpMW.Recovery(log))
	r.Use(httpMW.AttachTraceContext())
	if cfg.OTelEnabled {
		name := cfg.ServiceName
		if name == "" {
			name = "biomarker-backend"
		}
		r.Use(otelgin.Middleware(name))
	}
	r.Use(httpMW.RequestLogger(log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.AllowedOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", func(c *gin.Context) { cfg.Metrics.WriteHTTP(c.Writer, c.Request) })
	}

	api := r.Group("/api")
	api.Use(httpMW.RequireConfig("SUPABASE_URL", "SUPABASE_ANON_KEY"))
	{
		// Catalogue (public)
		if cfg.CatalogHandler != nil {
			api.GET("/biomarkers", cfg.CatalogHandler.ListBiomarkers)
			api.GET("/products", cfg.CatalogHandler.ListProducts)
			api.GET("/products/:id", cfg.CatalogHandler.GetProduct)
		}
	}

	if cfg.AdminHandler != nil && cfg.AuthMiddleware != nil {
		admin := api.Group("/admin")
		admin.Use(
			httpMW.RequireConfig("SUPABASE_SERVICE_ROLE_KEY"),
			httpMW.RequireAnyConfig("ADMIN_PASSWORD", "ADMIN_PASSWORD_HASH"),
		)
		admin.POST("/login", cfg.AdminHandler.Login)
		admin.POST("/logout", cfg.AdminHandler.Logout)

		session := admin.Group("/")
		session.Use(cfg.AuthMiddleware.RequireAdmin())
		session.GET("/stats", cfg.AdminHandler.Stats)
		session.GET("/orders/export.xlsx", cfg.AdminHandler.ExportOrders)
	}

	protected := api.Group("/")
	{
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}
		costly := cfg.CostLimiter.Handler()

		// Realtime (SSE)
		if cfg.RealtimeHandler != nil {
			protected.GET("/sse/stream", cfg.RealtimeHandler.SSEStream)
		}

		// Documents
		if cfg.DocumentHandler != nil {
			protected.POST("/documents/upload", cfg.DocumentHandler.Upload)
			protected.POST("/documents", cfg.DocumentHandler.Register)
			protected.GET("/documents", cfg.DocumentHandler.List)
			protected.GET("/documents/:id", cfg.DocumentHandler.Get)
			protected.GET("/documents/:id/status", cfg.DocumentHandler.Status)
			protected.POST("/documents/:id/process", costly, cfg.DocumentHandler.Process)
		}

		// Analyses
		if cfg.AnalysisHandler != nil {
			protected.POST("/documents/:id/analyze", costly, cfg.AnalysisHandler.Analyze)
			protected.GET("/analyses", cfg.AnalysisHandler.List)
			protected.GET("/analyses/:id", cfg.AnalysisHandler.Get)
			protected.GET("/analyses/:id/status", cfg.AnalysisHandler.Status)
			protected.GET("/analyses/:id/report.pdf", cfg.AnalysisHandler.ReportPDF)
			protected.GET("/analysis-status", cfg.AnalysisHandler.StatusByQuery)
		}

		// Profile
		if cfg.ProfileHandler != nil {
			protected.GET("/profile", cfg.ProfileHandler.Get)
			protected.PUT("/profile", cfg.ProfileHandler.Update)
		}

		// Cart
		if cfg.CartHandler != nil {
			protected.GET("/cart", cfg.CartHandler.Get)
			protected.DELETE("/cart", cfg.CartHandler.Clear)
			protected.POST("/cart/items", cfg.CartHandler.AddItem)
			protected.PATCH("/cart/items/:id", cfg.CartHandler.UpdateItem)
			protected.DELETE("/cart/items/:id", cfg.CartHandler.RemoveItem)
		}

		// Checkout and orders
		if cfg.OrderHandler != nil {
			protected.POST("/checkout", cfg.OrderHandler.Checkout)
			protected.GET("/orders", cfg.OrderHandler.List)
			protected.GET("/orders/:id", cfg.OrderHandler.Get)
			protected.POST("/orders/:id/confirm", cfg.OrderHandler.Confirm)
		}
	}

	return r
}
