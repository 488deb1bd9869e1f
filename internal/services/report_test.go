package services

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	pkgerrors "github.com/yungbote/biomarker-backend/internal/pkg/errors"
	"github.com/yungbote/biomarker-backend/internal/platform/logger"
)

func TestAnalysisPDF(t *testing.T) {
	f := newAnalysisFixture(t)
	analyses := f.service(nil)
	ctx := context.Background()
	a, err := analyses.Analyze(ctx, AnalyzeInput{UserID: f.userID, DocumentID: f.doc.ID})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	reports := NewReportService(logger.Nop(), analyses)

	b, err := reports.AnalysisPDF(ctx, f.userID, a.ID)
	if err != nil {
		t.Fatalf("AnalysisPDF: %v", err)
	}
	if !bytes.HasPrefix(b, []byte("%PDF")) || len(b) < 1000 {
		t.Fatalf("not a pdf: len=%d head=%q", len(b), b[:min(len(b), 8)])
	}

	if _, err := reports.AnalysisPDF(ctx, uuid.New(), a.ID); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("foreign user: expected ErrNotFound, got %v", err)
	}
	if _, err := reports.AnalysisPDF(ctx, f.userID, uuid.New()); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("unknown analysis: expected ErrNotFound, got %v", err)
	}
}

func TestTruncateRunes(t *testing.T) {
	if got := truncateRunes("Vitamin D", 32); got != "Vitamin D" {
		t.Fatalf("short: %q", got)
	}
	if got := truncateRunes("ααααα", 3); got != "αα..." {
		t.Fatalf("long: %q", got)
	}
}
