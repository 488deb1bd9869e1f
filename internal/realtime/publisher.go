package realtime

import (
	"context"

	"github.com/yungbote/biomarker-backend/internal/platform/logger"
)

// Bus fans messages out across instances.
type Bus interface {
	Publish(ctx context.Context, msg SSEMessage) error
	StartForwarder(ctx context.Context, onMsg func(m SSEMessage)) error
	Close() error
}

// Publisher routes messages to the local hub, through the bus when one is
// configured so every instance's hub sees them.
type Publisher struct {
	hub *SSEHub
	bus Bus
	log *logger.Logger
}

func NewPublisher(log *logger.Logger, hub *SSEHub, bus Bus) *Publisher {
	return &Publisher{hub: hub, bus: bus, log: log.With("component", "SSEPublisher")}
}

// Start wires the bus forwarder into the hub. It is a no-op without a bus.
func (p *Publisher) Start(ctx context.Context) error {
	if p == nil || p.bus == nil {
		return nil
	}
	return p.bus.StartForwarder(ctx, p.hub.Broadcast)
}

func (p *Publisher) Publish(ctx context.Context, msg SSEMessage) error {
	if p == nil {
		return nil
	}
	if p.bus != nil {
		if err := p.bus.Publish(ctx, msg); err != nil {
			p.log.Warn("bus publish failed; delivering locally", "error", err, "event", msg.Event)
			p.hub.Broadcast(msg)
			return err
		}
		return nil
	}
	p.hub.Broadcast(msg)
	return nil
}
