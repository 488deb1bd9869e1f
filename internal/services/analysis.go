package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"github.com/yungbote/biomarker-backend/internal/data/repos"
	types "github.com/yungbote/biomarker-backend/internal/domain"
	"github.com/yungbote/biomarker-backend/internal/observability"
	"github.com/yungbote/biomarker-backend/internal/pkg/dbctx"
	"github.com/yungbote/biomarker-backend/internal/platform/llm"
	"github.com/yungbote/biomarker-backend/internal/platform/logger"
	"github.com/yungbote/biomarker-backend/internal/realtime"
	"github.com/yungbote/biomarker-backend/internal/services/progress"
)

// AnalysisAIResult is either AnalysisAIParsed or AnalysisAIMalformed.
type AnalysisAIResult interface {
	isAnalysisAIResult()
}

type AnalysisAIParsed struct {
	Content  AnalysisContent
	Provider string
	Model    string
	Usage    llm.Usage
	CostUSD  float64
}

type AnalysisAIMalformed struct {
	Err error
	Raw string
}

func (AnalysisAIParsed) isAnalysisAIResult()    {}
func (AnalysisAIMalformed) isAnalysisAIResult() {}

type AnalyzeInput struct {
	UserID     uuid.UUID
	DocumentID uuid.UUID
	// AnalysisID lets the caller poll progress before the row exists. A new
	// id is generated when it is zero.
	AnalysisID uuid.UUID
}

type AnalysisDetail struct {
	Analysis             *types.HealthAnalysis                `json:"analysis"`
	BiomarkersByCategory map[string][]*types.BiomarkerReading `json:"biomarkers_by_category"`
}

type AnalysisService interface {
	Analyze(ctx context.Context, in AnalyzeInput) (*types.HealthAnalysis, error)
	GetAnalysis(ctx context.Context, userID, analysisID uuid.UUID) (*AnalysisDetail, error)
	ListAnalyses(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*types.HealthAnalysis, error)
	Status(ctx context.Context, userID, analysisID uuid.UUID) (progress.Status, error)
}

type analysisService struct {
	log       *logger.Logger
	docs      repos.DocumentRepo
	readings  repos.ReadingRepo
	catalogue repos.BiomarkerRepo
	profiles  repos.UserProfileRepo
	analyses  repos.HealthAnalysisRepo
	updates   repos.AnalysisUpdateRepo
	ai        llm.Client
	notifier  Notifier
	now       func() time.Time
}

func NewAnalysisService(
	baseLog *logger.Logger,
	docs repos.DocumentRepo,
	readings repos.ReadingRepo,
	catalogue repos.BiomarkerRepo,
	profiles repos.UserProfileRepo,
	analyses repos.HealthAnalysisRepo,
	updates repos.AnalysisUpdateRepo,
	ai llm.Client,
	notifier Notifier,
) AnalysisService {
	return &analysisService{
		log:       baseLog.With("service", "AnalysisService"),
		docs:      docs,
		readings:  readings,
		catalogue: catalogue,
		profiles:  profiles,
		analyses:  analyses,
		updates:   updates,
		ai:        ai,
		notifier:  notifier,
		now:       time.Now,
	}
}

func (s *analysisService) Analyze(ctx context.Context, in AnalyzeInput) (*types.HealthAnalysis, error) {
	doc, err := s.docs.GetForUser(dbctx.New(ctx), in.UserID, in.DocumentID)
	if err != nil {
		return nil, err
	}
	analysisID := in.AnalysisID
	if analysisID == uuid.Nil {
		analysisID = uuid.New()
	} else if err := s.ensureUnusedID(ctx, analysisID); err != nil {
		return nil, err
	}
	log := s.log.With("analysis_id", analysisID, "document_id", doc.ID, "user_id", in.UserID)
	reporter := progress.NewReporter(log).
		With("store", analysisStoreSink(s.updates, analysisID, in.UserID)).
		With("realtime", realtimeSink(s.notifier, in.UserID, realtime.SSEEventAnalysisProgress, "analysis_id", analysisID))

	ctx, span := observability.StartSpan(ctx, "analysis.generate",
		attribute.String("analysis.id", analysisID.String()),
		attribute.String("document.id", doc.ID.String()),
	)
	a, err := s.run(ctx, log, reporter, doc, analysisID)
	observability.EndSpan(span, err)
	if err != nil {
		log.Error("analysis failed", "error", err)
		reporter.Report(context.WithoutCancel(ctx), progress.PhaseFailed, "Analysis failed", map[string]any{"error": err.Error()})
		observability.Current().IncAnalysis("failed")
		return nil, err
	}
	observability.Current().IncAnalysis(a.Method)
	return a, nil
}

// ensureUnusedID rejects a caller-chosen id that already names an analysis or
// a progress trail, whoever owns it.
func (s *analysisService) ensureUnusedID(ctx context.Context, id uuid.UUID) error {
	dbc := dbctx.New(ctx)
	exists, err := s.analyses.Exists(dbc, id)
	if err != nil {
		return err
	}
	if !exists {
		if exists, err = s.updates.HasUpdates(dbc, id); err != nil {
			return err
		}
	}
	if exists {
		return fmt.Errorf("analysis %s: %w", id, ErrAnalysisIDTaken)
	}
	return nil
}

func (s *analysisService) run(ctx context.Context, log *logger.Logger, reporter *progress.Reporter, doc *types.Document, analysisID uuid.UUID) (*types.HealthAnalysis, error) {
	started := s.now()
	reporter.Report(ctx, progress.PhaseLoading, "Loading biomarker data", nil)
	if doc.Status != types.DocumentStatusCompleted {
		return nil, ErrDocumentNotCompleted
	}

	var (
		readings  []*types.BiomarkerReading
		catalogue []*types.Biomarker
		profile   *types.UserProfile
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := s.readings.ListByDocument(dbctx.New(gctx), doc.ID)
		readings = rows
		return err
	})
	g.Go(func() error {
		rows, err := s.catalogue.ListAll(dbctx.New(gctx))
		catalogue = rows
		return err
	})
	g.Go(func() error {
		p, err := s.profiles.GetByUserID(dbctx.New(gctx), doc.UserID)
		profile = p
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load analysis inputs: %w", err)
	}
	if len(readings) == 0 {
		return nil, ErrNoReadings
	}

	var gender string
	if profile != nil {
		gender = profile.Gender
	}
	age := profile.AgeAt(s.now())
	rows := rangeReadings(readings, catalogue, gender, age)

	reporter.Report(ctx, progress.PhaseGenerating, "Generating health analysis", map[string]any{
		"biomarkers": len(readings),
		"classified": countClassified(rows),
	})
	a := &types.HealthAnalysis{
		ID:         analysisID,
		UserID:     doc.UserID,
		DocumentID: doc.ID,
		Method:     types.AnalysisMethodAI,
	}
	var content AnalysisContent
	result, aiErr := s.generate(ctx, rows, gender, age)
	switch v := result.(type) {
	case AnalysisAIParsed:
		content = v.Content
		a.AIModel = v.Model
		a.InputTokens = v.Usage.InputTokens
		a.OutputTokens = v.Usage.OutputTokens
		a.EstimatedCostUSD = v.CostUSD
	default:
		reason := "ai unavailable"
		if aiErr != nil {
			reason = aiErr.Error()
		} else if m, ok := result.(AnalysisAIMalformed); ok && m.Err != nil {
			reason = m.Err.Error()
			log.Warn("malformed analysis output", "error", m.Err, "raw_length", len(m.Raw))
		}
		log.Warn("falling back to deterministic analysis", "reason", reason)
		reporter.Report(ctx, progress.PhaseFallback, "Using rule-based analysis", map[string]any{"reason": reason})
		fb, err := buildFallbackContent(rows)
		if err != nil {
			return nil, err
		}
		content = fb
		a.Method = types.AnalysisMethodFallback
	}

	reporter.Report(ctx, progress.PhaseSaving, "Saving analysis", nil)
	if err := fillAnalysis(a, content); err != nil {
		return nil, err
	}
	a.ProcessingTimeMs = s.now().Sub(started).Milliseconds()
	if err := s.analyses.Save(dbctx.New(ctx), a, readingClassifications(rows)); err != nil {
		return nil, fmt.Errorf("save analysis: %w", err)
	}

	reporter.Report(ctx, progress.PhaseCompleted, "Analysis complete", map[string]any{
		"analysis_id":   a.ID,
		"overall_score": a.OverallScore,
		"method":        a.Method,
	})
	log.Info("analysis generated", "method", a.Method, "score", a.OverallScore, "processing_time_ms", a.ProcessingTimeMs)
	return a, nil
}

// generate calls the model. A nil result with nil error means no model is
// configured.
func (s *analysisService) generate(ctx context.Context, rows []rangedReading, gender string, age *int) (AnalysisAIResult, error) {
	if s.ai == nil {
		return nil, nil
	}
	resp, err := s.ai.GenerateJSON(ctx, llm.Request{
		System:     analysisSystemPrompt,
		User:       buildAnalysisPrompt(rows, gender, age),
		SchemaName: "health_analysis",
		Schema:     analysisSchema,
	})
	if err != nil {
		return nil, err
	}
	var content AnalysisContent
	if err := analysisValidator.Validate(resp.Object, &content); err != nil {
		return AnalysisAIMalformed{Err: err, Raw: resp.Raw}, nil
	}
	if err := structValidator().Struct(content); err != nil {
		return AnalysisAIMalformed{Err: err, Raw: resp.Raw}, nil
	}
	mergeInsights(&content, rows)
	return AnalysisAIParsed{
		Content:  content,
		Provider: resp.Provider,
		Model:    resp.Model,
		Usage:    resp.Usage,
		CostUSD:  resp.CostUSD,
	}, nil
}

func (s *analysisService) GetAnalysis(ctx context.Context, userID, analysisID uuid.UUID) (*AnalysisDetail, error) {
	dbc := dbctx.New(ctx)
	a, err := s.analyses.GetForUser(dbc, userID, analysisID)
	if err != nil {
		return nil, err
	}
	readings, err := s.readings.ListByDocument(dbc, a.DocumentID)
	if err != nil {
		return nil, err
	}
	return &AnalysisDetail{Analysis: a, BiomarkersByCategory: groupByCategory(readings)}, nil
}

func (s *analysisService) ListAnalyses(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*types.HealthAnalysis, error) {
	return s.analyses.ListForUser(dbctx.New(ctx), userID, limit, offset)
}

func (s *analysisService) Status(ctx context.Context, userID, analysisID uuid.UUID) (progress.Status, error) {
	rows, err := s.updates.ListForUser(dbctx.New(ctx), userID, analysisID)
	if err != nil {
		return progress.Status{}, err
	}
	return progress.Snapshot(s.log, analysisUpdateRows(rows)), nil
}

func rangeReadings(readings []*types.BiomarkerReading, catalogue []*types.Biomarker, gender string, age *int) []rangedReading {
	byID := make(map[uuid.UUID]*types.Biomarker, len(catalogue))
	for _, b := range catalogue {
		byID[b.ID] = b
	}
	out := make([]rangedReading, 0, len(readings))
	for _, r := range readings {
		row := rangedReading{Reading: r}
		if r.IsMatched && r.BiomarkerID != nil {
			if b, ok := byID[*r.BiomarkerID]; ok {
				if rg := SelectRange(b.OptimalRanges, gender, age); rg != nil {
					row.Range = rg
					row.Class = Classify(r.Value, rg.OptimalMin, rg.OptimalMax)
				}
			}
		}
		out = append(out, row)
	}
	return out
}

func countClassified(rows []rangedReading) int {
	n := 0
	for _, r := range rows {
		if r.classified() {
			n++
		}
	}
	return n
}

func readingClassifications(rows []rangedReading) []repos.ReadingClassification {
	out := make([]repos.ReadingClassification, 0, len(rows))
	for _, r := range rows {
		if !r.classified() {
			continue
		}
		out = append(out, repos.ReadingClassification{
			ReadingID: r.Reading.ID,
			Status:    r.Class.Status,
			Severity:  r.Class.Severity,
		})
	}
	return out
}

// mergeInsights fills measured values and ranges into model insights by
// reading name; model status stays as returned.
func mergeInsights(c *AnalysisContent, rows []rangedReading) {
	byName := make(map[string]rangedReading, len(rows))
	for _, r := range rows {
		byName[normalizeName(r.Reading.Name)] = r
	}
	for i := range c.Insights {
		r, ok := byName[normalizeName(c.Insights[i].Name)]
		if !ok {
			continue
		}
		ins := &c.Insights[i]
		ins.Value = r.Reading.Value
		ins.Unit = r.Reading.Unit
		ins.Category = r.Reading.Category
		if r.Reading.BiomarkerID != nil {
			ins.BiomarkerID = r.Reading.BiomarkerID.String()
		}
		if r.classified() {
			lo, hi := r.Range.OptimalMin, r.Range.OptimalMax
			ins.OptimalMin, ins.OptimalMax = &lo, &hi
		}
	}
}

func fillAnalysis(a *types.HealthAnalysis, c AnalysisContent) error {
	a.OverallScore = c.OverallScore
	a.HealthCategory = c.HealthCategory
	a.Summary = c.Summary
	fields := []struct {
		dst *datatypes.JSON
		v   any
	}{
		{&a.Insights, nonNil(c.Insights)},
		{&a.RootCauses, nonNil(c.RootCauses)},
		{&a.Recommendations, c.Recommendations},
		{&a.Warnings, nonNil(c.Warnings)},
		{&a.Disclaimers, analysisDisclaimers},
	}
	for _, f := range fields {
		b, err := json.Marshal(f.v)
		if err != nil {
			return fmt.Errorf("encode analysis: %w", err)
		}
		*f.dst = datatypes.JSON(b)
	}
	return nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func groupByCategory(readings []*types.BiomarkerReading) map[string][]*types.BiomarkerReading {
	out := map[string][]*types.BiomarkerReading{}
	for _, r := range readings {
		cat := strings.TrimSpace(r.Category)
		if cat == "" {
			cat = "other"
		}
		out[cat] = append(out[cat], r)
	}
	return out
}
