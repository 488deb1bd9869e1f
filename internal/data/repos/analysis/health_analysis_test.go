package analysis

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/biomarker-backend/internal/data/repos/documents"
	"github.com/yungbote/biomarker-backend/internal/data/repos/testutil"
	types "github.com/yungbote/biomarker-backend/internal/domain"
	"github.com/yungbote/biomarker-backend/internal/pkg/dbctx"
	pkgerrors "github.com/yungbote/biomarker-backend/internal/pkg/errors"
)

func TestHealthAnalysisRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	log := testutil.Logger(t)

	userID := uuid.New()
	doc := testutil.SeedDocument(t, ctx, tx, userID, types.DocumentStatusCompleted)
	reading := testutil.SeedReading(t, ctx, tx, doc, "Vitamin D", 20, nil)

	repo := NewHealthAnalysisRepo(db, log)
	a := &types.HealthAnalysis{
		UserID:         userID,
		DocumentID:     doc.ID,
		OverallScore:   40,
		HealthCategory: "poor",
		Insights:       datatypes.JSON([]byte(`[]`)),
		Method:         types.AnalysisMethodFallback,
	}
	if err := repo.Save(dbc, a, []documents.ReadingClassification{
		{ReadingID: reading.ID, Status: "deficient", Severity: "severe"},
	}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := repo.GetForUser(dbc, userID, a.ID)
	if err != nil || got.OverallScore != 40 {
		t.Fatalf("GetForUser: err=%v got=%+v", err, got)
	}
	if _, err := repo.GetForUser(dbc, uuid.New(), a.ID); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("GetForUser foreign: expected ErrNotFound, got %v", err)
	}

	rows, err := documents.NewReadingRepo(db, log).ListByDocument(dbc, doc.ID)
	if err != nil || len(rows) != 1 || rows[0].Status != "deficient" {
		t.Fatalf("classification not saved: err=%v rows=%+v", err, rows)
	}

	if ok, err := repo.Exists(dbc, a.ID); err != nil || !ok {
		t.Fatalf("Exists saved: ok=%v err=%v", ok, err)
	}
	if ok, err := repo.Exists(dbc, uuid.New()); err != nil || ok {
		t.Fatalf("Exists unknown: ok=%v err=%v", ok, err)
	}

	list, err := repo.ListForUser(dbc, userID, 0, 0)
	if err != nil || len(list) != 1 {
		t.Fatalf("ListForUser: err=%v len=%d", err, len(list))
	}
	byDoc, err := repo.ListByDocument(dbc, userID, doc.ID)
	if err != nil || len(byDoc) != 1 {
		t.Fatalf("ListByDocument: err=%v len=%d", err, len(byDoc))
	}
}

func TestAnalysisProcessingUpdateRepoScopesOwner(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	repo := NewProcessingUpdateRepo(db, testutil.Logger(t))
	owner, analysisID := uuid.New(), uuid.New()
	for _, phase := range []string{"loading", "generating"} {
		if err := repo.Append(dbc, &types.AnalysisProcessingUpdate{AnalysisID: analysisID, UserID: owner, Phase: phase}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	rows, err := repo.ListForUser(dbc, owner, analysisID)
	if err != nil || len(rows) != 2 {
		t.Fatalf("ListForUser owner: err=%v len=%d", err, len(rows))
	}
	rows, err = repo.ListForUser(dbc, uuid.New(), analysisID)
	if err != nil || len(rows) != 0 {
		t.Fatalf("ListForUser stranger: err=%v len=%d", err, len(rows))
	}
	if ok, err := repo.HasUpdates(dbc, analysisID); err != nil || !ok {
		t.Fatalf("HasUpdates used id: ok=%v err=%v", ok, err)
	}
	if ok, err := repo.HasUpdates(dbc, uuid.New()); err != nil || ok {
		t.Fatalf("HasUpdates fresh id: ok=%v err=%v", ok, err)
	}
}
