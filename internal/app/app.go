package app

import (
	"context"
	"fmt"
	"os"

	"gorm.io/gorm"

	"github.com/yungbote/biomarker-backend/internal/data/db"
	apphttp "github.com/yungbote/biomarker-backend/internal/http"
	"github.com/yungbote/biomarker-backend/internal/observability"
	"github.com/yungbote/biomarker-backend/internal/platform/logger"
	"github.com/yungbote/biomarker-backend/internal/realtime"
)

type App struct {
	Log       *logger.Logger
	DB        *gorm.DB
	Server    *apphttp.Server
	Cfg       Config
	Repos     Repos
	Clients   Clients
	Services  Services
	SSEHub    *realtime.SSEHub
	Publisher *realtime.Publisher
	Metrics   *observability.Metrics

	pg           *db.PostgresService
	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

func New(ctx context.Context) (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: cfg.ServiceName,
		Environment: cfg.Env,
		Version:     cfg.Version,
	})
	metrics := observability.Init(log)

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	theDB := pg.DB()
	if cfg.DBAutoMigrate {
		if err := db.AutoMigrateAll(theDB); err != nil {
			_ = pg.Close()
			log.Sync()
			return nil, fmt.Errorf("postgres automigrate: %w", err)
		}
		if err := db.EnsureIndexes(theDB); err != nil {
			log.Warn("ensure indexes failed (continuing)", "error", err)
		}
	}

	clients, err := wireClients(ctx, log, cfg)
	if err != nil {
		_ = pg.Close()
		log.Sync()
		return nil, err
	}

	ssehub := realtime.NewSSEHub(log)
	publisher := realtime.NewPublisher(log, ssehub, clients.SSEBus)

	reposet := wireRepos(theDB, log)
	serviceset := wireServices(log, cfg, reposet, clients, publisher)
	handlerset := wireHandlers(log, cfg, serviceset, ssehub)
	middleware := wireMiddleware(log, cfg, serviceset)
	server := apphttp.NewServer(log, cfg.HTTPAddr, routerConfig(log, cfg, handlerset, middleware, metrics))

	return &App{
		Log:          log,
		DB:           theDB,
		Server:       server,
		Cfg:          cfg,
		Repos:        reposet,
		Clients:      clients,
		Services:     serviceset,
		SSEHub:       ssehub,
		Publisher:    publisher,
		Metrics:      metrics,
		pg:           pg,
		otelShutdown: otelShutdown,
	}, nil
}

// Start launches the background loops: the cross-instance SSE forwarder and
// the database pool collector.
func (a *App) Start(ctx context.Context) error {
	if a == nil || a.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	if err := a.Publisher.Start(ctx); err != nil {
		return fmt.Errorf("start realtime publisher: %w", err)
	}
	a.Metrics.StartPostgresCollector(ctx, a.Log, a.DB)
	return nil
}

// Run serves HTTP until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	return a.Server.Run(ctx, a.Cfg.ShutdownTimeout)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	a.Clients.Close()
	if a.otelShutdown != nil {
		if err := a.otelShutdown(context.Background()); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
	}
	if a.pg != nil {
		_ = a.pg.Close()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
