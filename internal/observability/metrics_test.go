package observability

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/x", "200", time.Millisecond)
	m.ObservePipelineStage("ocr", "ok", time.Second)
	m.ObserveLLMRequest("openai", "gpt", "ok", time.Second, 10, 10, 0.1)
	if err := m.WritePrometheus(&bytes.Buffer{}); err != nil {
		t.Fatalf("nil metrics write: %v", err)
	}
}

func TestWritePrometheusExposition(t *testing.T) {
	m := NewMetrics()
	m.ObserveAPI("POST", "/api/documents/:id/process", "200", 1500*time.Millisecond)
	m.ObservePipelineStage("ocr", "failed", 2*time.Second)
	m.IncAnalysis("fallback")

	var buf bytes.Buffer
	if err := m.WritePrometheus(&buf); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		`bm_api_requests_total{method="POST",route="/api/documents/:id/process",status="200"} 1`,
		`bm_pipeline_stage_duration_seconds_bucket{stage="ocr",status="failed",le="2"} 1`,
		`bm_pipeline_stage_duration_seconds_bucket{stage="ocr",status="failed",le="1"} 0`,
		`bm_analyses_total{method="fallback"} 1`,
		"# TYPE bm_api_inflight_requests gauge",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in exposition:\n%s", want, out)
		}
	}
}

func TestCounterVecValue(t *testing.T) {
	c := NewCounterVec("x_total", "x", []string{"a"})
	c.Inc("one")
	c.Add(2, "one")
	if got := c.Value("one"); got != 3 {
		t.Fatalf("got=%v", got)
	}
	if got := c.Value("two"); got != 0 {
		t.Fatalf("unset label: got=%v", got)
	}
}
