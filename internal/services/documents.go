package services

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/biomarker-backend/internal/data/repos"
	types "github.com/yungbote/biomarker-backend/internal/domain"
	"github.com/yungbote/biomarker-backend/internal/pkg/dbctx"
	"github.com/yungbote/biomarker-backend/internal/platform/logger"
	"github.com/yungbote/biomarker-backend/internal/services/progress"
)

type UploadInput struct {
	UserID   uuid.UUID
	Token    string
	Filename string
	MimeType string
	Data     []byte
}

type RegisterInput struct {
	UserID      uuid.UUID `json:"-"`
	Filename    string    `json:"filename" binding:"required"`
	FileSize    int64     `json:"file_size" binding:"required"`
	MimeType    string    `json:"mime_type" binding:"required"`
	StoragePath string    `json:"storage_path" binding:"required"`
}

type DocumentDetail struct {
	Document   *types.Document           `json:"document"`
	Biomarkers []*types.BiomarkerReading `json:"biomarkers"`
	Analyses   []*types.HealthAnalysis   `json:"analyses"`
}

type DocumentService interface {
	Upload(ctx context.Context, in UploadInput) (*types.Document, error)
	Register(ctx context.Context, in RegisterInput) (*types.Document, error)
	List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*types.Document, error)
	Get(ctx context.Context, userID, documentID uuid.UUID) (*DocumentDetail, error)
	Status(ctx context.Context, userID, documentID uuid.UUID) (progress.Status, error)
}

type documentService struct {
	log      *logger.Logger
	docs     repos.DocumentRepo
	readings repos.ReadingRepo
	updates  repos.DocumentUpdateRepo
	analyses repos.HealthAnalysisRepo
	store    ObjectStore
}

func NewDocumentService(
	baseLog *logger.Logger,
	docs repos.DocumentRepo,
	readings repos.ReadingRepo,
	updates repos.DocumentUpdateRepo,
	analyses repos.HealthAnalysisRepo,
	store ObjectStore,
) DocumentService {
	return &documentService{
		log:      baseLog.With("service", "DocumentService"),
		docs:     docs,
		readings: readings,
		updates:  updates,
		analyses: analyses,
		store:    store,
	}
}

// StorageKey is where a user's upload lives: <user_id>/<uuid><ext>.
func StorageKey(userID uuid.UUID, filename, mime string) string {
	return userID.String() + "/" + uuid.New().String() + StorageExtension(filename, mime)
}

func (s *documentService) Upload(ctx context.Context, in UploadInput) (*types.Document, error) {
	mime := NormalizeMIME(in.MimeType)
	if err := ValidateFile(mime, int64(len(in.Data))); err != nil {
		return nil, err
	}
	dbc := dbctx.New(ctx)
	doc := &types.Document{
		UserID:      in.UserID,
		Filename:    cleanFilename(in.Filename),
		FileSize:    int64(len(in.Data)),
		MimeType:    mime,
		StoragePath: StorageKey(in.UserID, in.Filename, mime),
		Status:      types.DocumentStatusUploading,
	}
	if err := s.docs.Create(dbc, doc); err != nil {
		return nil, err
	}
	if err := s.store.Upload(ctx, in.Token, doc.StoragePath, mime, in.Data); err != nil {
		if mErr := s.docs.MarkFailed(dbctx.New(context.WithoutCancel(ctx)), doc.ID, "upload failed: "+err.Error()); mErr != nil {
			s.log.Error("failed to mark upload failed", "document_id", doc.ID, "error", mErr)
		}
		return nil, fmt.Errorf("upload document: %w", err)
	}
	if err := s.docs.SetStatus(dbc, doc.ID, types.DocumentStatusPending); err != nil {
		return nil, err
	}
	doc.Status = types.DocumentStatusPending
	s.log.Info("document uploaded", "document_id", doc.ID, "user_id", in.UserID, "bytes", doc.FileSize, "mime_type", mime)
	return doc, nil
}

func (s *documentService) Register(ctx context.Context, in RegisterInput) (*types.Document, error) {
	mime := NormalizeMIME(in.MimeType)
	if err := ValidateFile(mime, in.FileSize); err != nil {
		return nil, err
	}
	key := strings.TrimPrefix(strings.TrimSpace(in.StoragePath), "/")
	if !ownsStorageKey(in.UserID, key) {
		return nil, fmt.Errorf("%w: storage path must be under %s/", ErrInvalidFile, in.UserID)
	}
	doc := &types.Document{
		UserID:      in.UserID,
		Filename:    cleanFilename(in.Filename),
		FileSize:    in.FileSize,
		MimeType:    mime,
		StoragePath: key,
		Status:      types.DocumentStatusPending,
	}
	if err := s.docs.Create(dbctx.New(ctx), doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *documentService) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*types.Document, error) {
	return s.docs.ListForUser(dbctx.New(ctx), userID, limit, offset)
}

func (s *documentService) Get(ctx context.Context, userID, documentID uuid.UUID) (*DocumentDetail, error) {
	dbc := dbctx.New(ctx)
	doc, err := s.docs.GetForUser(dbc, userID, documentID)
	if err != nil {
		return nil, err
	}
	readings, err := s.readings.ListByDocument(dbc, doc.ID)
	if err != nil {
		return nil, err
	}
	analyses, err := s.analyses.ListByDocument(dbc, userID, doc.ID)
	if err != nil {
		return nil, err
	}
	return &DocumentDetail{Document: doc, Biomarkers: nonNil(readings), Analyses: nonNil(analyses)}, nil
}

func (s *documentService) Status(ctx context.Context, userID, documentID uuid.UUID) (progress.Status, error) {
	dbc := dbctx.New(ctx)
	doc, err := s.docs.GetForUser(dbc, userID, documentID)
	if err != nil {
		return progress.Status{}, err
	}
	rows, err := s.updates.ListByDocument(dbc, doc.ID)
	if err != nil {
		return progress.Status{}, err
	}
	return progress.Snapshot(s.log, documentUpdateRows(rows)), nil
}

func ownsStorageKey(userID uuid.UUID, key string) bool {
	if strings.Contains(key, "..") {
		return false
	}
	return strings.HasPrefix(path.Clean(key), userID.String()+"/")
}

func cleanFilename(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), `\`, "/"))
	if name == "." || name == "/" || name == "" {
		return "document"
	}
	if len(name) > 255 {
		name = name[:255]
	}
	return name
}
