package supabase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/yungbote/biomarker-backend/internal/pkg/httpx"
	"github.com/yungbote/biomarker-backend/internal/platform/logger"
)

// ErrObjectNotFound is returned for 404s, and for 400s that storage uses
// when row level security hides the object.
var ErrObjectNotFound = errors.New("storage object not found")

type StorageConfig struct {
	URL        string
	AnonKey    string
	Bucket     string
	Timeout    time.Duration
	MaxRetries int
}

// Storage talks to the storage REST API. Every call carries the caller's
// bearer token so bucket policies are evaluated as that user.
type Storage struct {
	log        *logger.Logger
	cfg        StorageConfig
	httpClient *http.Client
}

func NewStorage(log *logger.Logger, cfg StorageConfig) (*Storage, error) {
	cfg.URL = strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if cfg.URL == "" {
		return nil, fmt.Errorf("missing SUPABASE_URL")
	}
	if cfg.Bucket == "" {
		cfg.Bucket = "documents"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &Storage{
		log:        log.With("client", "SupabaseStorage"),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

func (s *Storage) Bucket() string { return s.cfg.Bucket }

func (s *Storage) objectURL(prefix, key string) string {
	parts := strings.Split(strings.TrimLeft(key, "/"), "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return fmt.Sprintf("%s/storage/v1/object/%s%s/%s", s.cfg.URL, prefix, url.PathEscape(s.cfg.Bucket), strings.Join(parts, "/"))
}

func (s *Storage) newRequest(ctx context.Context, method, u, token string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", s.cfg.AnonKey)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

// Upload stores data under key. Existing objects are not overwritten.
func (s *Storage) Upload(ctx context.Context, token, key, contentType string, data []byte) error {
	req, err := s.newRequest(ctx, http.MethodPost, s.objectURL("", key), token, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "false")
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("storage upload: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return &httpx.StatusError{Service: "storage", StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return nil
}

// Download fetches key as the caller. Bodies larger than maxBytes are rejected.
func (s *Storage) Download(ctx context.Context, token, key string, maxBytes int64) ([]byte, error) {
	backoff := 500 * time.Millisecond
	var lastErr error
	for attempt := 0; attempt <= s.cfg.MaxRetries; attempt++ {
		data, resp, err := s.downloadOnce(ctx, token, key, maxBytes)
		if err == nil {
			return data, nil
		}
		lastErr = err
		if errors.Is(err, ErrObjectNotFound) || !httpx.IsRetryableError(err) || attempt == s.cfg.MaxRetries {
			break
		}
		sleepFor := httpx.JitterSleep(httpx.RetryAfterDuration(resp, backoff, 10*time.Second))
		s.log.Warn("storage download retrying", "attempt", attempt+1, "sleep", sleepFor.String(), "error", err)
		if err := httpx.SleepCtx(ctx, sleepFor); err != nil {
			return nil, err
		}
		backoff *= 2
	}
	return nil, lastErr
}

func (s *Storage) downloadOnce(ctx context.Context, token, key string, maxBytes int64) ([]byte, *http.Response, error) {
	req, err := s.newRequest(ctx, http.MethodGet, s.objectURL("authenticated/", key), token, nil)
	if err != nil {
		return nil, nil, err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("storage download: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusBadRequest:
		return nil, resp, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
	case resp.StatusCode >= 300:
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, resp, &httpx.StatusError{Service: "storage", StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var src io.Reader = resp.Body
	if maxBytes > 0 {
		src = io.LimitReader(resp.Body, maxBytes+1)
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, resp, fmt.Errorf("storage read body: %w", err)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, resp, fmt.Errorf("storage object %s exceeds %d bytes", key, maxBytes)
	}
	return data, resp, nil
}

func (s *Storage) Delete(ctx context.Context, token, key string) error {
	req, err := s.newRequest(ctx, http.MethodDelete, s.objectURL("", key), token, nil)
	if err != nil {
		return err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("storage delete: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusNotFound {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return &httpx.StatusError{Service: "storage", StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return nil
}
