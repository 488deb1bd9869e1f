package documents

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/biomarker-backend/internal/data/repos/testutil"
	types "github.com/yungbote/biomarker-backend/internal/domain"
	pkgerrors "github.com/yungbote/biomarker-backend/internal/pkg/errors"
	"github.com/yungbote/biomarker-backend/internal/pkg/dbctx"
)

func TestDocumentRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewDocumentRepo(db, testutil.Logger(t))

	userID := uuid.New()
	doc := &types.Document{
		UserID:      userID,
		Filename:    "panel.pdf",
		FileSize:    4096,
		MimeType:    "application/pdf",
		StoragePath: userID.String() + "/" + uuid.NewString() + ".pdf",
		Status:      types.DocumentStatusUploading,
	}
	if err := repo.Create(dbc, doc); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if doc.ID == uuid.Nil {
		t.Fatalf("Create: expected id assigned")
	}

	if err := repo.SetStatus(dbc, doc.ID, types.DocumentStatusPending); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	if _, err := repo.GetForUser(dbc, uuid.New(), doc.ID); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("GetForUser other user: expected ErrNotFound, got %v", err)
	}

	fresh := time.Now().Add(-time.Hour)
	won, err := repo.TryStartProcessing(dbc, doc.ID, fresh)
	if err != nil || !won {
		t.Fatalf("TryStartProcessing: won=%v err=%v", won, err)
	}
	won, err = repo.TryStartProcessing(dbc, doc.ID, fresh)
	if err != nil || won {
		t.Fatalf("TryStartProcessing second: won=%v err=%v", won, err)
	}
	// the claim above is older than a cutoff in the future, so it is stale
	won, err = repo.TryStartProcessing(dbc, doc.ID, time.Now().Add(time.Hour))
	if err != nil || !won {
		t.Fatalf("TryStartProcessing stale claim: won=%v err=%v", won, err)
	}

	if err := repo.MarkFailed(dbc, doc.ID, "ocr failed"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}
	got, err := repo.GetForUser(dbc, userID, doc.ID)
	if err != nil {
		t.Fatalf("GetForUser: %v", err)
	}
	if got.Status != types.DocumentStatusFailed || got.ErrorMessage != "ocr failed" {
		t.Fatalf("after MarkFailed: status=%s msg=%q", got.Status, got.ErrorMessage)
	}

	// failed documents may be retried
	won, err = repo.TryStartProcessing(dbc, doc.ID, fresh)
	if err != nil || !won {
		t.Fatalf("TryStartProcessing retry: won=%v err=%v", won, err)
	}

	readings := []*types.BiomarkerReading{
		{DocumentID: doc.ID, UserID: userID, Name: "Vitamin D", Value: 42, Unit: "ng/mL", Category: "vitamins", Confidence: 0.9},
		{DocumentID: doc.ID, UserID: userID, Name: "Ferritin", Value: 80, Unit: "ng/mL", Category: "iron", Confidence: 0.8},
	}
	if err := repo.CompleteWithReadings(dbc, doc.ID,
		datatypes.JSON([]byte(`{"biomarkers":[]}`)),
		datatypes.JSON([]byte(`{"method":"pdf_text"}`)),
		readings,
	); err != nil {
		t.Fatalf("CompleteWithReadings: %v", err)
	}

	got, err = repo.GetByID(dbc, doc.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != types.DocumentStatusCompleted || got.ProcessedAt == nil || got.ErrorMessage != "" {
		t.Fatalf("after complete: %+v", got)
	}

	won, err = repo.TryStartProcessing(dbc, doc.ID, fresh)
	if err != nil || won {
		t.Fatalf("TryStartProcessing completed: won=%v err=%v", won, err)
	}

	rrepo := NewReadingRepo(db, testutil.Logger(t))
	rows, err := rrepo.ListByDocument(dbc, doc.ID)
	if err != nil || len(rows) != 2 {
		t.Fatalf("ListByDocument: err=%v len=%d", err, len(rows))
	}
	if err := rrepo.ApplyClassifications(dbc, []ReadingClassification{
		{ReadingID: rows[0].ID, Status: "optimal", Severity: "none"},
	}); err != nil {
		t.Fatalf("ApplyClassifications: %v", err)
	}
	rows, _ = rrepo.ListByDocument(dbc, doc.ID)
	if rows[0].Status != "optimal" || rows[0].Severity != "none" {
		t.Fatalf("classification not applied: %+v", rows[0])
	}

	list, err := repo.ListForUser(dbc, userID, 10, 0)
	if err != nil || len(list) != 1 {
		t.Fatalf("ListForUser: err=%v len=%d", err, len(list))
	}
}

func TestProcessingUpdateRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	doc := testutil.SeedDocument(t, ctx, tx, uuid.New(), types.DocumentStatusPending)

	repo := NewProcessingUpdateRepo(db, testutil.Logger(t))
	for _, phase := range []string{"validation", "download", "ocr"} {
		if err := repo.Append(dbc, &types.DocumentProcessingUpdate{DocumentID: doc.ID, Phase: phase}); err != nil {
			t.Fatalf("Append %s: %v", phase, err)
		}
	}
	rows, err := repo.ListByDocument(dbc, doc.ID)
	if err != nil {
		t.Fatalf("ListByDocument: %v", err)
	}
	if len(rows) != 3 || rows[0].Phase != "validation" || rows[2].Phase != "ocr" {
		t.Fatalf("unexpected order: %+v", rows)
	}
}
