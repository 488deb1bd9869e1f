package progress

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/yungbote/biomarker-backend/internal/platform/logger"
)

// Update is one reported transition.
type Update struct {
	Phase     Phase
	Message   string
	Details   map[string]any
	Timestamp time.Time
}

// Sink receives every update a Reporter emits.
type Sink interface {
	Emit(ctx context.Context, u Update) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, u Update) error

func (f SinkFunc) Emit(ctx context.Context, u Update) error { return f(ctx, u) }

type namedSink struct {
	name string
	sink Sink
}

// Reporter fans an update out to a persisted store and any number of push
// sinks. Sink failures are logged and never returned.
type Reporter struct {
	log   *logger.Logger
	now   func() time.Time
	sinks []namedSink
}

func NewReporter(log *logger.Logger) *Reporter {
	return &Reporter{log: log, now: func() time.Time { return time.Now().UTC() }}
}

// With returns r with sink appended; nil sinks are ignored.
func (r *Reporter) With(name string, sink Sink) *Reporter {
	if sink == nil {
		return r
	}
	r.sinks = append(r.sinks, namedSink{name: name, sink: sink})
	return r
}

func (r *Reporter) Report(ctx context.Context, phase Phase, message string, details map[string]any) {
	if r == nil {
		return
	}
	if !phase.Known() {
		r.log.Warn("unknown progress phase reported", "phase", string(phase))
	}
	u := Update{Phase: phase, Message: message, Details: details, Timestamp: r.now()}
	for _, s := range r.sinks {
		if err := s.sink.Emit(ctx, u); err != nil {
			r.log.Warn("progress sink failed", "sink", s.name, "phase", string(phase), "error", err)
		}
	}
}

type ndjsonLine struct {
	Status    string         `json:"status"`
	Message   string         `json:"message,omitempty"`
	Progress  int            `json:"progress"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp string         `json:"timestamp"`
}

// NDJSONSink writes one JSON object per line and flushes after each.
type NDJSONSink struct {
	mu    sync.Mutex
	w     io.Writer
	flush func()
}

func NewNDJSONSink(w io.Writer, flush func()) *NDJSONSink {
	return &NDJSONSink{w: w, flush: flush}
}

func (s *NDJSONSink) Emit(_ context.Context, u Update) error {
	raw, err := json.Marshal(ndjsonLine{
		Status:    string(u.Phase),
		Message:   u.Message,
		Progress:  Progress(u.Phase),
		Details:   u.Details,
		Timestamp: u.Timestamp.Format(time.RFC3339Nano),
	})
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.w.Write(append(raw, '\n')); err != nil {
		return err
	}
	if s.flush != nil {
		s.flush()
	}
	return nil
}
