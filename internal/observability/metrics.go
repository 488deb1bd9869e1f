package observability

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/biomarker-backend/internal/platform/envutil"
	"github.com/yungbote/biomarker-backend/internal/platform/logger"
)

type Metrics struct {
	apiRequests   *CounterVec
	apiLatency    *HistogramVec
	apiInflight   *Gauge
	stageRuns     *CounterVec
	stageLatency  *HistogramVec
	documents     *CounterVec
	analyses      *CounterVec
	llmRequests   *CounterVec
	llmLatency    *HistogramVec
	llmTokens     *CounterVec
	llmCost       *CounterVec
	ocrConfidence *HistogramVec
	orders        *CounterVec
	pgStats       *GaugeVec
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	return envutil.Bool("METRICS_ENABLED", false)
}

// Current returns the process metrics or nil when disabled. Every method is
// nil-safe.
func Current() *Metrics {
	return instance
}

func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = NewMetrics()
		if log != nil {
			log.Info("metrics enabled")
		}
	})
	return instance
}

// NewMetrics builds an unregistered collector set.
func NewMetrics() *Metrics {
	return &Metrics{
		apiRequests: NewCounterVec("bm_api_requests_total", "API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency: NewHistogramVec("bm_api_request_duration_seconds", "API request latency in seconds.",
			[]string{"method", "route"}, []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 120, 300}),
		apiInflight: NewGauge("bm_api_inflight_requests", "In-flight API requests."),
		stageRuns:   NewCounterVec("bm_pipeline_stage_total", "Extraction pipeline stage runs by stage/status.", []string{"stage", "status"}),
		stageLatency: NewHistogramVec("bm_pipeline_stage_duration_seconds", "Extraction pipeline stage duration in seconds.",
			[]string{"stage", "status"}, []float64{0.05, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120}),
		documents: NewCounterVec("bm_documents_processed_total", "Documents finished by outcome.", []string{"outcome"}),
		analyses:  NewCounterVec("bm_analyses_total", "Health analyses by method.", []string{"method"}),
		llmRequests: NewCounterVec("bm_llm_requests_total", "LLM requests by provider/model/status.", []string{"provider", "model", "status"}),
		llmLatency: NewHistogramVec("bm_llm_request_duration_seconds", "LLM request latency in seconds.",
			[]string{"provider", "model"}, []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60, 120}),
		llmTokens: NewCounterVec("bm_llm_tokens_total", "LLM tokens by model/direction.", []string{"model", "direction"}),
		llmCost:   NewCounterVec("bm_llm_cost_usd_total", "Estimated LLM cost (USD) by model.", []string{"model"}),
		ocrConfidence: NewHistogramVec("bm_ocr_confidence", "OCR confidence by method.",
			[]string{"method"}, []float64{0.1, 0.25, 0.5, 0.6, 0.7, 0.8, 0.9, 0.95, 1}),
		orders:  NewCounterVec("bm_orders_total", "Orders by status transition.", []string{"status"}),
		pgStats: NewGaugeVec("bm_postgres_pool", "database/sql pool stats.", []string{"stat"}),
	}
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

type promWriter interface {
	WritePrometheus(w io.Writer) error
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	for _, c := range []promWriter{
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.stageRuns, m.stageLatency, m.documents, m.analyses,
		m.llmRequests, m.llmLatency, m.llmTokens, m.llmCost,
		m.ocrConfidence, m.orders, m.pgStats,
	} {
		if err := c.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unknown"
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route)
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Add(1)
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Add(-1)
}

// ObservePipelineStage records one extraction stage; status is "ok" or "failed".
func (m *Metrics) ObservePipelineStage(stage, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.stageRuns.Inc(stage, status)
	if dur > 0 {
		m.stageLatency.Observe(dur.Seconds(), stage, status)
	}
}

func (m *Metrics) IncDocumentOutcome(outcome string) {
	if m == nil {
		return
	}
	m.documents.Inc(outcome)
}

func (m *Metrics) IncAnalysis(method string) {
	if m == nil {
		return
	}
	m.analyses.Inc(method)
}

func (m *Metrics) ObserveOCRConfidence(method string, confidence float64) {
	if m == nil {
		return
	}
	m.ocrConfidence.Observe(confidence, method)
}

func (m *Metrics) IncOrder(status string) {
	if m == nil {
		return
	}
	m.orders.Inc(status)
}

// ObserveLLMRequest records a provider call. costUSD may be zero when no
// rates are configured.
func (m *Metrics) ObserveLLMRequest(provider, model, status string, dur time.Duration, inputTokens, outputTokens int, costUSD float64) {
	if m == nil {
		return
	}
	model = strings.TrimSpace(model)
	m.llmRequests.Inc(provider, model, status)
	if dur > 0 {
		m.llmLatency.Observe(dur.Seconds(), provider, model)
	}
	if inputTokens > 0 {
		m.llmTokens.Add(float64(inputTokens), model, "input")
	}
	if outputTokens > 0 {
		m.llmTokens.Add(float64(outputTokens), model, "output")
	}
	if costUSD > 0 {
		m.llmCost.Add(costUSD, model)
	}
}

func (m *Metrics) StartPostgresCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	interval := envutil.Seconds("METRICS_SCRAPE_INTERVAL_SECONDS", 10*time.Second)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sqlDB, err := db.DB()
				if err != nil {
					if log != nil {
						log.Warn("metrics: postgres stats unavailable", "error", err)
					}
					continue
				}
				stats := sqlDB.Stats()
				m.pgStats.Set(float64(stats.OpenConnections), "open_connections")
				m.pgStats.Set(float64(stats.InUse), "in_use")
				m.pgStats.Set(float64(stats.Idle), "idle")
				m.pgStats.Set(float64(stats.WaitCount), "wait_count")
				m.pgStats.Set(stats.WaitDuration.Seconds(), "wait_duration_seconds")
			}
		}
	}()
}
