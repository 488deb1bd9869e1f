package services

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	types "github.com/yungbote/biomarker-backend/internal/domain"
	pkgerrors "github.com/yungbote/biomarker-backend/internal/pkg/errors"
	"github.com/yungbote/biomarker-backend/internal/platform/logger"
)

func newDocumentServiceFixture() (*memStore, *fakeObjectStore, DocumentService) {
	store := newMemStore()
	objects := newFakeObjectStore()
	svc := NewDocumentService(
		logger.Nop(),
		fakeDocRepo{store},
		fakeReadingRepo{store},
		fakeDocUpdateRepo{store},
		fakeAnalysisRepo{store},
		objects,
	)
	return store, objects, svc
}

func TestUploadStoresUnderUserPrefix(t *testing.T) {
	store, objects, svc := newDocumentServiceFixture()
	userID := uuid.New()
	data := bytes.Repeat([]byte("x"), 512)

	doc, err := svc.Upload(context.Background(), UploadInput{
		UserID:   userID,
		Token:    "tok",
		Filename: `C:\scans\Labs March.PDF`,
		MimeType: "application/pdf; charset=binary",
		Data:     data,
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if doc.Status != types.DocumentStatusPending || store.doc(doc.ID).Status != types.DocumentStatusPending {
		t.Fatalf("status=%s", doc.Status)
	}
	if !strings.HasPrefix(doc.StoragePath, userID.String()+"/") || !strings.HasSuffix(doc.StoragePath, ".pdf") {
		t.Fatalf("storage path=%q", doc.StoragePath)
	}
	if doc.Filename != "Labs March.PDF" || doc.MimeType != "application/pdf" || doc.FileSize != 512 {
		t.Fatalf("doc=%+v", doc)
	}
	if !bytes.Equal(objects.objects[doc.StoragePath], data) {
		t.Fatalf("object not stored")
	}
}

func TestUploadRejectsAndFails(t *testing.T) {
	store, objects, svc := newDocumentServiceFixture()
	userID := uuid.New()

	if _, err := svc.Upload(context.Background(), UploadInput{UserID: userID, MimeType: "text/csv", Data: make([]byte, 500)}); !errors.Is(err, ErrInvalidFile) {
		t.Fatalf("expected ErrInvalidFile, got %v", err)
	}
	if _, err := svc.Upload(context.Background(), UploadInput{UserID: userID, MimeType: "image/png", Data: make([]byte, 10)}); !errors.Is(err, ErrInvalidFile) {
		t.Fatalf("expected ErrInvalidFile for tiny file, got %v", err)
	}
	if len(store.docs) != 0 {
		t.Fatalf("invalid uploads must not create rows")
	}

	objects.err = errors.New("bucket unavailable")
	if _, err := svc.Upload(context.Background(), UploadInput{UserID: userID, Filename: "a.png", MimeType: "image/png", Data: make([]byte, 500)}); err == nil {
		t.Fatalf("expected upload error")
	}
	for _, d := range store.docs {
		if d.Status != types.DocumentStatusFailed || !strings.Contains(d.ErrorMessage, "bucket unavailable") {
			t.Fatalf("doc not marked failed: %+v", d)
		}
	}
}

func TestRegisterChecksOwnership(t *testing.T) {
	_, _, svc := newDocumentServiceFixture()
	userID := uuid.New()
	cases := []struct {
		name string
		path string
		ok   bool
	}{
		{"own prefix", userID.String() + "/scan.png", true},
		{"leading slash", "/" + userID.String() + "/scan.png", true},
		{"other user", uuid.NewString() + "/scan.png", false},
		{"traversal", userID.String() + "/../" + uuid.NewString() + "/scan.png", false},
		{"bare", "scan.png", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc, err := svc.Register(context.Background(), RegisterInput{
				UserID:      userID,
				Filename:    "scan.png",
				FileSize:    2048,
				MimeType:    "image/png",
				StoragePath: tc.path,
			})
			if tc.ok {
				if err != nil {
					t.Fatalf("Register: %v", err)
				}
				if doc.Status != types.DocumentStatusPending || strings.HasPrefix(doc.StoragePath, "/") {
					t.Fatalf("doc=%+v", doc)
				}
				return
			}
			if !errors.Is(err, ErrInvalidFile) {
				t.Fatalf("expected ErrInvalidFile, got %v", err)
			}
		})
	}
}

func TestGetDocumentScopedToOwner(t *testing.T) {
	_, _, svc := newDocumentServiceFixture()
	userID := uuid.New()
	doc, err := svc.Register(context.Background(), RegisterInput{
		UserID: userID, Filename: "x.pdf", FileSize: 1000, MimeType: "application/pdf",
		StoragePath: userID.String() + "/x.pdf",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	detail, err := svc.Get(context.Background(), userID, doc.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if detail.Biomarkers == nil || detail.Analyses == nil {
		t.Fatalf("empty collections should be non-nil")
	}
	if _, err := svc.Get(context.Background(), uuid.New(), doc.ID); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	st, err := svc.Status(context.Background(), userID, doc.ID)
	if err != nil || st.Status != "pending" || st.Progress != 0 {
		t.Fatalf("status=%+v err=%v", st, err)
	}
}

func TestCleanFilename(t *testing.T) {
	cases := map[string]string{
		"report.pdf":          "report.pdf",
		"  ../../etc/passwd ": "passwd",
		`dir\sub\file.png`:    "file.png",
		"":                    "document",
		"/":                   "document",
	}
	for in, want := range cases {
		if got := cleanFilename(in); got != want {
			t.Fatalf("cleanFilename(%q)=%q want %q", in, got, want)
		}
	}
}
