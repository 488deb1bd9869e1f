package db

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/biomarker-backend/internal/platform/envutil"
	"github.com/yungbote/biomarker-backend/internal/platform/logger"
)

type PostgresService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPostgresService(logg *logger.Logger) (*PostgresService, error) {
	serviceLog := logg.With("service", "PostgresService")

	dsn, source := DSNFromEnv()
	serviceLog.Debug("postgres dsn resolved", "source", source)

	gormLog := gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             time.Duration(envutil.Int("DB_SLOW_QUERY_MS", 1000)) * time.Millisecond,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLog,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("postgres pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(envutil.Int("DB_MAX_OPEN_CONNS", 20))
	sqlDB.SetMaxIdleConns(envutil.Int("DB_MAX_IDLE_CONNS", 5))
	sqlDB.SetConnMaxLifetime(envutil.Seconds("DB_CONN_MAX_LIFETIME_SECONDS", 30*time.Minute))

	return &PostgresService{db: db, log: serviceLog}, nil
}

// DSNFromEnv prefers DATABASE_URL and otherwise assembles one from the
// POSTGRES_* variables. The second value names the source for logging.
func DSNFromEnv() (string, string) {
	if v := envutil.String("DATABASE_URL", ""); v != "" {
		return v, "DATABASE_URL"
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(envutil.String("POSTGRES_USER", "postgres"), envutil.String("POSTGRES_PASSWORD", "")),
		Host:     envutil.String("POSTGRES_HOST", "localhost") + ":" + envutil.String("POSTGRES_PORT", "5432"),
		Path:     "/" + envutil.String("POSTGRES_NAME", "biomarker"),
		RawQuery: "sslmode=" + envutil.String("POSTGRES_SSLMODE", "disable"),
	}
	return u.String(), "POSTGRES_*"
}

func (s *PostgresService) DB() *gorm.DB { return s.db }

func (s *PostgresService) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
