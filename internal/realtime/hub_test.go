package realtime

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/biomarker-backend/internal/platform/logger"
)

func recvMessage(t *testing.T, ch <-chan SSEMessage, timeout time.Duration) SSEMessage {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for SSE message")
	}
	return SSEMessage{}
}

func TestSSEHubOrderingAndReconnect(t *testing.T) {
	hub := NewSSEHub(logger.Nop())
	channel := UserChannel(uuid.New())

	clientA := hub.NewSSEClient(uuid.New())
	hub.AddChannel(clientA, channel)

	hub.Broadcast(SSEMessage{Channel: channel, Event: SSEEventDocumentProgress, Data: map[string]any{"seq": 1}})
	hub.Broadcast(SSEMessage{Channel: channel, Event: SSEEventAnalysisProgress, Data: map[string]any{"seq": 2}})

	if got := recvMessage(t, clientA.Outbound, time.Second); got.Event != SSEEventDocumentProgress {
		t.Fatalf("first event: got=%s", got.Event)
	}
	if got := recvMessage(t, clientA.Outbound, time.Second); got.Event != SSEEventAnalysisProgress {
		t.Fatalf("second event: got=%s", got.Event)
	}

	hub.CloseClient(clientA)
	hub.CloseClient(clientA)
	if _, ok := <-clientA.Outbound; ok {
		t.Fatalf("outbound should be closed after disconnect")
	}
	if n := hub.Subscribers(channel); n != 0 {
		t.Fatalf("expected no subscribers, got %d", n)
	}

	clientB := hub.NewSSEClient(uuid.New())
	hub.AddChannel(clientB, channel)
	hub.Broadcast(SSEMessage{Channel: channel, Event: SSEEventOrderConfirmed})
	if got := recvMessage(t, clientB.Outbound, time.Second); got.Event != SSEEventOrderConfirmed {
		t.Fatalf("reconnect event: got=%s", got.Event)
	}
}

func TestSSEHubServeHTTPWritesEvents(t *testing.T) {
	hub := NewSSEHub(logger.Nop())
	userID := uuid.New()
	client := hub.NewSSEClient(userID)
	hub.AddChannel(client, UserChannel(userID))

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest("GET", "/api/sse/stream", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		hub.ServeHTTP(rec, req, client)
		close(done)
	}()

	hub.Broadcast(SSEMessage{Channel: UserChannel(userID), Event: SSEEventDocumentProgress, Data: map[string]any{"status": "ocr"}})
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	body := rec.Body.String()
	if !strings.Contains(body, "event: DocumentProgress") || !strings.Contains(body, `"status":"ocr"`) {
		t.Fatalf("unexpected stream body: %q", body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content-type: %q", ct)
	}
}

type failingBus struct{ published int }

func (b *failingBus) Publish(context.Context, SSEMessage) error {
	b.published++
	return errors.New("redis down")
}
func (b *failingBus) StartForwarder(context.Context, func(SSEMessage)) error { return nil }
func (b *failingBus) Close() error                                        { return nil }

func TestPublisherFallsBackToLocalHub(t *testing.T) {
	hub := NewSSEHub(logger.Nop())
	userID := uuid.New()
	client := hub.NewSSEClient(userID)
	hub.AddChannel(client, UserChannel(userID))

	bus := &failingBus{}
	pub := NewPublisher(logger.Nop(), hub, bus)
	if err := pub.Publish(context.Background(), SSEMessage{Channel: UserChannel(userID), Event: SSEEventDocumentProgress}); err == nil {
		t.Fatal("expected bus error to surface")
	}
	if bus.published != 1 {
		t.Fatalf("bus publish count: %d", bus.published)
	}
	recvMessage(t, client.Outbound, time.Second)
}
