package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/yungbote/biomarker-backend/internal/platform/gcp"
	"github.com/yungbote/biomarker-backend/internal/platform/supabase"
)

// ErrObjectNotFound is returned by every ObjectStore for a missing object.
var ErrObjectNotFound = errors.New("document file not found in storage")

// ObjectStore holds uploaded documents. token is the caller's bearer token;
// backends that evaluate per-user policies pass it through.
type ObjectStore interface {
	Upload(ctx context.Context, token, key, contentType string, data []byte) error
	Download(ctx context.Context, token, key string, maxBytes int64) ([]byte, error)
}

type supabaseObjectStore struct {
	storage *supabase.Storage
}

func NewSupabaseObjectStore(s *supabase.Storage) ObjectStore {
	return &supabaseObjectStore{storage: s}
}

func (s *supabaseObjectStore) Upload(ctx context.Context, token, key, contentType string, data []byte) error {
	return s.storage.Upload(ctx, token, key, contentType, data)
}

func (s *supabaseObjectStore) Download(ctx context.Context, token, key string, maxBytes int64) ([]byte, error) {
	b, err := s.storage.Download(ctx, token, key, maxBytes)
	if errors.Is(err, supabase.ErrObjectNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
	}
	return b, err
}

// gcsObjectStore uses service credentials; ownership is enforced by the
// <user_id>/ key prefix checked at the document layer.
type gcsObjectStore struct {
	bucket gcp.BucketService
}

func NewGCSObjectStore(b gcp.BucketService) ObjectStore {
	return &gcsObjectStore{bucket: b}
}

func (s *gcsObjectStore) Upload(ctx context.Context, _ string, key, contentType string, data []byte) error {
	return s.bucket.UploadFile(ctx, key, contentType, bytes.NewReader(data))
}

func (s *gcsObjectStore) Download(ctx context.Context, _ string, key string, maxBytes int64) ([]byte, error) {
	b, err := s.bucket.DownloadFile(ctx, key, maxBytes)
	if errors.Is(err, gcp.ErrObjectNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
	}
	return b, err
}
