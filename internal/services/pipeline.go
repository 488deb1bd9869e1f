package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/datatypes"

	"github.com/yungbote/biomarker-backend/internal/data/repos"
	types "github.com/yungbote/biomarker-backend/internal/domain"
	"github.com/yungbote/biomarker-backend/internal/observability"
	"github.com/yungbote/biomarker-backend/internal/pkg/dbctx"
	"github.com/yungbote/biomarker-backend/internal/platform/logger"
	"github.com/yungbote/biomarker-backend/internal/realtime"
	"github.com/yungbote/biomarker-backend/internal/services/progress"
)

type ProcessResult struct {
	Document   *types.Document           `json:"document"`
	Biomarkers []*types.BiomarkerReading `json:"biomarkers"`
	// AlreadyCompleted is set when the document was finished by an earlier run
	// and returned unchanged.
	AlreadyCompleted bool `json:"already_completed,omitempty"`
}

// DocumentPipeline runs OCR and AI extraction over one stored document.
type DocumentPipeline interface {
	// Process claims the document and runs every stage in order. stream, when
	// non-nil, receives each progress update as it happens.
	Process(ctx context.Context, userID uuid.UUID, token string, documentID uuid.UUID, stream progress.Sink) (*ProcessResult, error)
}

type documentPipeline struct {
	log       *logger.Logger
	docs      repos.DocumentRepo
	readings  repos.ReadingRepo
	updates   repos.DocumentUpdateRepo
	catalogue repos.BiomarkerRepo
	store     ObjectStore
	ocr       OCRService
	extractor BiomarkerExtractor
	notifier  Notifier
	// timeout bounds one run. A processing claim older than this is treated
	// as abandoned.
	timeout time.Duration
}

const DefaultProcessingTimeout = 10 * time.Minute

func NewDocumentPipeline(
	baseLog *logger.Logger,
	docs repos.DocumentRepo,
	readings repos.ReadingRepo,
	updates repos.DocumentUpdateRepo,
	catalogue repos.BiomarkerRepo,
	store ObjectStore,
	ocr OCRService,
	extractor BiomarkerExtractor,
	notifier Notifier,
	timeout time.Duration,
) DocumentPipeline {
	if timeout <= 0 {
		timeout = DefaultProcessingTimeout
	}
	return &documentPipeline{
		log:       baseLog.With("service", "DocumentPipeline"),
		docs:      docs,
		readings:  readings,
		updates:   updates,
		catalogue: catalogue,
		store:     store,
		ocr:       ocr,
		extractor: extractor,
		notifier:  notifier,
		timeout:   timeout,
	}
}

func (p *documentPipeline) Process(ctx context.Context, userID uuid.UUID, token string, documentID uuid.UUID, stream progress.Sink) (*ProcessResult, error) {
	dbc := dbctx.New(ctx)
	doc, err := p.docs.GetForUser(dbc, userID, documentID)
	if err != nil {
		return nil, err
	}
	switch doc.Status {
	case types.DocumentStatusCompleted:
		return p.completedResult(ctx, doc)
	case types.DocumentStatusUploading:
		return nil, ErrDocumentUploading
	}

	won, err := p.docs.TryStartProcessing(dbc, doc.ID, time.Now().Add(-p.timeout))
	if err != nil {
		return nil, err
	}
	if !won {
		current, err := p.docs.GetByID(dbc, doc.ID)
		if err != nil {
			return nil, err
		}
		switch current.Status {
		case types.DocumentStatusCompleted:
			return p.completedResult(ctx, current)
		case types.DocumentStatusUploading:
			return nil, ErrDocumentUploading
		}
		return nil, ErrAlreadyProcessing
	}

	log := p.log.With("document_id", doc.ID, "user_id", userID)
	if doc.Status == types.DocumentStatusProcessing {
		log.Warn("took over stale processing claim", "processing_started_at", doc.ProcessingStartedAt)
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	reporter := progress.NewReporter(log).
		With("store", documentStoreSink(p.updates, doc.ID)).
		With("realtime", realtimeSink(p.notifier, userID, realtime.SSEEventDocumentProgress, "document_id", doc.ID)).
		With("stream", stream)

	ctx, span := observability.StartSpan(ctx, "document.process",
		attribute.String("document.id", doc.ID.String()),
		attribute.String("document.mime", doc.MimeType),
	)
	res, err := p.run(ctx, log, reporter, doc, token)
	observability.EndSpan(span, err)
	if err != nil {
		p.fail(ctx, log, reporter, doc.ID, err)
		observability.Current().IncDocumentOutcome("failed")
		return nil, err
	}
	observability.Current().IncDocumentOutcome("completed")
	return res, nil
}

func (p *documentPipeline) run(ctx context.Context, log *logger.Logger, reporter *progress.Reporter, doc *types.Document, token string) (*ProcessResult, error) {
	started := time.Now()

	// validation
	reporter.Report(ctx, progress.PhaseValidation, "Validating document", map[string]any{
		"mime_type": doc.MimeType,
		"file_size": doc.FileSize,
	})
	if err := p.stage(ctx, progress.PhaseValidation, func(context.Context) error {
		return ValidateFile(doc.MimeType, doc.FileSize)
	}); err != nil {
		return nil, err
	}

	// download
	reporter.Report(ctx, progress.PhaseDownload, "Downloading document", nil)
	var data []byte
	if err := p.stage(ctx, progress.PhaseDownload, func(ctx context.Context) error {
		b, err := p.store.Download(ctx, token, doc.StoragePath, MaxUploadBytes)
		if err != nil {
			return fmt.Errorf("download document: %w", err)
		}
		if err := ValidateFile(doc.MimeType, int64(len(b))); err != nil {
			return err
		}
		data = b
		return nil
	}); err != nil {
		return nil, err
	}

	// ocr
	reporter.Report(ctx, progress.PhaseOCR, "Extracting text", map[string]any{"bytes": len(data)})
	var ocr *OCRResult
	if err := p.stage(ctx, progress.PhaseOCR, func(ctx context.Context) error {
		r, err := p.ocr.Extract(ctx, data, doc.MimeType)
		if err != nil {
			return err
		}
		ocr = r
		return nil
	}); err != nil {
		return nil, err
	}

	// ai_extraction
	reporter.Report(ctx, progress.PhaseAIExtraction, "Identifying biomarkers", map[string]any{
		"ocr_method":     ocr.Method,
		"ocr_confidence": ocr.Confidence,
		"text_length":    len(ocr.Text),
	})
	var parsed ExtractionParsed
	if err := p.stage(ctx, progress.PhaseAIExtraction, func(ctx context.Context) error {
		catalogue, err := p.catalogue.ListAll(dbctx.New(ctx))
		if err != nil {
			return fmt.Errorf("load catalogue: %w", err)
		}
		result, err := p.extractor.Extract(ctx, ocr.Text, catalogue)
		if err != nil {
			return fmt.Errorf("ai extraction: %w", err)
		}
		v, ok := result.(ExtractionParsed)
		if !ok {
			if m, isMalformed := result.(ExtractionMalformed); isMalformed && m.Raw != "" {
				log.Warn("malformed extraction output", "error", m.Err, "raw_length", len(m.Raw))
			}
			return extractionError(result)
		}
		parsed = v
		return nil
	}); err != nil {
		return nil, err
	}
	if parsed.Dropped > 0 {
		log.Warn("dropped invalid extracted biomarkers", "dropped", parsed.Dropped)
	}

	// saving
	reporter.Report(ctx, progress.PhaseSaving, "Saving results", map[string]any{
		"biomarkers": len(parsed.Readings),
		"matched":    parsed.Matched,
	})
	for _, r := range parsed.Readings {
		r.DocumentID = doc.ID
		r.UserID = doc.UserID
	}
	extracted, err := json.Marshal(map[string]any{
		"biomarkers": parsed.Items,
		"provider":   parsed.Provider,
		"model":      parsed.Model,
		"matched":    parsed.Matched,
		"dropped":    parsed.Dropped,
		"usage":      parsed.Usage,
		"cost_usd":   parsed.CostUSD,
	})
	if err != nil {
		return nil, stageErr(progress.PhaseSaving, err)
	}
	meta := map[string]any{
		"method":             ocr.Method,
		"confidence":         ocr.Confidence,
		"pages":              ocr.Pages,
		"text_length":        len(ocr.Text),
		"processing_time_ms": time.Since(started).Milliseconds(),
	}
	for k, v := range ocr.Metadata {
		if _, exists := meta[k]; !exists {
			meta[k] = v
		}
	}
	ocrMeta, err := json.Marshal(meta)
	if err != nil {
		return nil, stageErr(progress.PhaseSaving, err)
	}
	if err := p.stage(ctx, progress.PhaseSaving, func(ctx context.Context) error {
		return p.docs.CompleteWithReadings(dbctx.New(ctx), doc.ID, datatypes.JSON(extracted), datatypes.JSON(ocrMeta), parsed.Readings)
	}); err != nil {
		return nil, err
	}

	final, err := p.docs.GetByID(dbctx.New(ctx), doc.ID)
	if err != nil {
		return nil, err
	}
	reporter.Report(ctx, progress.PhaseCompleted, "Document processed", map[string]any{
		"biomarkers":         len(parsed.Readings),
		"matched":            parsed.Matched,
		"processing_time_ms": time.Since(started).Milliseconds(),
	})
	log.Info("document processed", "biomarkers", len(parsed.Readings), "matched", parsed.Matched, "ocr_method", ocr.Method)
	return &ProcessResult{Document: final, Biomarkers: parsed.Readings}, nil
}

// stage times fn, records the stage metric and tags failures with the phase.
func (p *documentPipeline) stage(ctx context.Context, phase progress.Phase, fn func(context.Context) error) error {
	ctx, span := observability.StartSpan(ctx, "document.stage."+string(phase))
	start := time.Now()
	err := fn(ctx)
	status := "ok"
	if err != nil {
		status = "error"
	}
	observability.Current().ObservePipelineStage(string(phase), status, time.Since(start))
	observability.EndSpan(span, err)
	return stageErr(phase, err)
}

func (p *documentPipeline) fail(ctx context.Context, log *logger.Logger, reporter *progress.Reporter, documentID uuid.UUID, err error) {
	stage := "unknown"
	var se *StageError
	if errors.As(err, &se) {
		stage = string(se.Stage)
	}
	msg := err.Error()
	if se != nil && se.Err != nil {
		msg = se.Err.Error()
	}
	log.Error("document processing failed", "stage", stage, "error", err)

	ctx = context.WithoutCancel(ctx)
	if mErr := p.docs.MarkFailed(dbctx.New(ctx), documentID, msg); mErr != nil {
		log.Error("failed to mark document failed", "error", mErr)
	}
	reporter.Report(ctx, progress.PhaseFailed, "Processing failed", map[string]any{
		"error": msg,
		"stage": stage,
	})
}

func (p *documentPipeline) completedResult(ctx context.Context, doc *types.Document) (*ProcessResult, error) {
	rows, err := p.readings.ListByDocument(dbctx.New(ctx), doc.ID)
	if err != nil {
		return nil, err
	}
	return &ProcessResult{Document: doc, Biomarkers: rows, AlreadyCompleted: true}, nil
}
