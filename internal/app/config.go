package app

import (
	"time"

	"github.com/yungbote/biomarker-backend/internal/platform/envutil"
	"github.com/yungbote/biomarker-backend/internal/platform/logger"
	"github.com/yungbote/biomarker-backend/internal/services"
)

type Config struct {
	Env         string
	ServiceName string
	Version     string
	OTelEnabled bool

	HTTPAddr              string
	ProcessStreamTimeout  time.Duration
	ProcessingTimeout     time.Duration
	ShutdownTimeout       time.Duration
	CORSAllowedOrigins    []string
	SecureCookies         bool
	DBAutoMigrate         bool
	RateLimitRPS          float64
	RateLimitBurst        int
	ObjectStorageMode     string
	SupabaseURL           string
	SupabaseAnonKey       string
	SupabaseServiceRole   string
	SupabaseJWTSecret     string
	SupabaseBucket        string
	AdminPassword         string
	AdminPasswordHash     string
	AdminSessionSecret    string
	AdminSessionTTL       time.Duration
	VisionOCREnabled      bool
	StorageRequestTimeout time.Duration
	StorageMaxRetries     int
}

const (
	StorageModeSupabase    = "supabase"
	StorageModeGCS         = "gcs"
	StorageModeGCSEmulator = "gcs_emulator"
)

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		Env:         envutil.String("APP_ENV", "development"),
		ServiceName: envutil.String("SERVICE_NAME", "biomarker-backend"),
		Version:     envutil.String("APP_VERSION", "dev"),
		OTelEnabled: envutil.Bool("OTEL_ENABLED", false),

		HTTPAddr:             envutil.String("HTTP_ADDR", ":8080"),
		ProcessStreamTimeout: envutil.Seconds("PROCESS_STREAM_TIMEOUT_SECONDS", 300*time.Second),
		ProcessingTimeout:    envutil.Seconds("PROCESSING_TIMEOUT_SECONDS", services.DefaultProcessingTimeout),
		ShutdownTimeout:      envutil.Seconds("SHUTDOWN_TIMEOUT_SECONDS", 30*time.Second),
		CORSAllowedOrigins:   envutil.List("CORS_ALLOWED_ORIGINS", nil),
		SecureCookies:        envutil.Bool("SECURE_COOKIES", true),
		DBAutoMigrate:        envutil.Bool("DB_AUTO_MIGRATE", true),
		RateLimitRPS:         envutil.Float("RATE_LIMIT_RPS", 0.2),
		RateLimitBurst:       envutil.Int("RATE_LIMIT_BURST", 5),

		ObjectStorageMode:     envutil.String("OBJECT_STORAGE_MODE", StorageModeSupabase),
		SupabaseURL:           envutil.String("SUPABASE_URL", ""),
		SupabaseAnonKey:       envutil.String("SUPABASE_ANON_KEY", ""),
		SupabaseServiceRole:   envutil.String("SUPABASE_SERVICE_ROLE_KEY", ""),
		SupabaseJWTSecret:     envutil.String("SUPABASE_JWT_SECRET", ""),
		SupabaseBucket:        envutil.String("SUPABASE_STORAGE_BUCKET", "documents"),
		StorageRequestTimeout: envutil.Seconds("STORAGE_TIMEOUT_SECONDS", 60*time.Second),
		StorageMaxRetries:     envutil.Int("STORAGE_MAX_RETRIES", 2),

		AdminPassword:     envutil.String("ADMIN_PASSWORD", ""),
		AdminPasswordHash: envutil.String("ADMIN_PASSWORD_HASH", ""),
		AdminSessionTTL:   envutil.Seconds("ADMIN_SESSION_TTL_SECONDS", 8*time.Hour),

		VisionOCREnabled: envutil.Bool("VISION_OCR_ENABLED", true),
	}
	cfg.AdminSessionSecret = firstNonEmpty(
		envutil.String("ADMIN_SESSION_SECRET", ""),
		cfg.SupabaseServiceRole,
		cfg.SupabaseJWTSecret,
	)

	log.Debug("config loaded",
		"env", cfg.Env,
		"http_addr", cfg.HTTPAddr,
		"object_storage_mode", cfg.ObjectStorageMode,
		"supabase_url_set", cfg.SupabaseURL != "",
		"jwt_secret_set", cfg.SupabaseJWTSecret != "",
		"admin_configured", cfg.AdminPassword != "" || cfg.AdminPasswordHash != "",
		"rate_limit_rps", cfg.RateLimitRPS,
		"stream_timeout", cfg.ProcessStreamTimeout.String(),
		"processing_timeout", cfg.ProcessingTimeout.String(),
	)
	return cfg
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
