package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pkgerrors "github.com/yungbote/biomarker-backend/internal/pkg/errors"
	"github.com/yungbote/biomarker-backend/internal/platform/gcp"
	"github.com/yungbote/biomarker-backend/internal/platform/llm"
	"github.com/yungbote/biomarker-backend/internal/platform/logger"
	"github.com/yungbote/biomarker-backend/internal/platform/supabase"
	"github.com/yungbote/biomarker-backend/internal/realtime"
	"github.com/yungbote/biomarker-backend/internal/realtime/bus"
	"github.com/yungbote/biomarker-backend/internal/services"
)

// Clients holds the external integrations. Optional ones stay nil when not
// configured; the services report that per request.
type Clients struct {
	SSEBus      realtime.Bus
	ObjectStore services.ObjectStore
	GcpVision   gcp.Vision
	GcpDocument gcp.DocumentOCR
	LLM         llm.Client
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")
	var out Clients

	// Redis
	if bus.Enabled() {
		b, err := bus.NewRedisBus(log)
		if err != nil {
			return Clients{}, fmt.Errorf("init redis SSE bus: %w", err)
		}
		out.SSEBus = b
	}

	// Object storage
	store, err := wireObjectStore(ctx, log, cfg)
	if err != nil {
		out.Close()
		return Clients{}, err
	}
	out.ObjectStore = store

	// Gcp OCR
	if cfg.VisionOCREnabled {
		vision, err := gcp.NewVision(ctx, log)
		if err != nil {
			log.Warn("vision OCR unavailable; image uploads cannot be processed", "error", err)
		} else {
			out.GcpVision = vision
		}
	}
	if docCfg, ok := gcp.DocAIConfigFromEnv(); ok {
		document, err := gcp.NewDocumentOCR(ctx, log, docCfg)
		if err != nil {
			log.Warn("document AI unavailable; scanned PDFs cannot be processed", "error", err)
		} else {
			out.GcpDocument = document
		}
	}

	// LLM
	ai, err := llm.NewFromEnv(ctx, log)
	switch {
	case errors.Is(err, llm.ErrNotConfigured):
		log.Warn("LLM provider not configured; extraction will fail and analyses use the fallback")
	case err != nil:
		out.Close()
		return Clients{}, fmt.Errorf("init llm client: %w", err)
	default:
		out.LLM = ai
	}

	return out, nil
}

func wireObjectStore(ctx context.Context, log *logger.Logger, cfg Config) (services.ObjectStore, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.ObjectStorageMode))
	switch mode {
	case StorageModeGCS, StorageModeGCSEmulator:
		bucketCfg, err := gcp.ResolveObjectStorageConfigFromEnv()
		if err != nil {
			return nil, fmt.Errorf("resolve object storage config: %w", err)
		}
		bucket, err := gcp.NewBucketService(ctx, log, bucketCfg)
		if err != nil {
			return nil, fmt.Errorf("init bucket client: %w", err)
		}
		return services.NewGCSObjectStore(bucket), nil
	case StorageModeSupabase, "":
		if cfg.SupabaseURL == "" {
			log.Warn("SUPABASE_URL not set; document storage disabled until configured")
			return missingStore{name: "SUPABASE_URL"}, nil
		}
		st, err := supabase.NewStorage(log, supabase.StorageConfig{
			URL:        cfg.SupabaseURL,
			AnonKey:    cfg.SupabaseAnonKey,
			Bucket:     cfg.SupabaseBucket,
			Timeout:    cfg.StorageRequestTimeout,
			MaxRetries: cfg.StorageMaxRetries,
		})
		if err != nil {
			return nil, fmt.Errorf("init supabase storage: %w", err)
		}
		return services.NewSupabaseObjectStore(st), nil
	default:
		return nil, fmt.Errorf("unknown OBJECT_STORAGE_MODE %q", cfg.ObjectStorageMode)
	}
}

// missingStore fails every call with a missing configuration error so the
// server can boot before storage is set up.
type missingStore struct{ name string }

func (m missingStore) Upload(context.Context, string, string, string, []byte) error {
	return fmt.Errorf("%w: %s", pkgerrors.ErrMissingConfig, m.name)
}

func (m missingStore) Download(context.Context, string, string, int64) ([]byte, error) {
	return nil, fmt.Errorf("%w: %s", pkgerrors.ErrMissingConfig, m.name)
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.SSEBus != nil {
		_ = c.SSEBus.Close()
	}
	if c.GcpDocument != nil {
		_ = c.GcpDocument.Close()
	}
	if c.GcpVision != nil {
		_ = c.GcpVision.Close()
	}
}
