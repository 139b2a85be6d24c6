package workers

import (
	"chat-relay/contract"
	"chat-relay/domain/chat"
	"context"
	"log/slog"
	"time"
)

// EventFanout delivers each published event to every registered connection.
//
// A single goroutine drains the queue so events leave in the order they were
// published, which keeps each sender's events ordered for every recipient.
// Delivery is best-effort: a full queue or a slow sink drops the event for
// that recipient only.
type EventFanout struct {
	log         *slog.Logger
	registry    contract.IRegistry
	events      chan chat.OutboundEvent
	sinkTimeout time.Duration
}

func NewEventFanout(log *slog.Logger, registry contract.IRegistry, bufferSize int, sinkTimeout time.Duration) *EventFanout {
	return &EventFanout{
		log:         log,
		registry:    registry,
		events:      make(chan chat.OutboundEvent, bufferSize),
		sinkTimeout: sinkTimeout,
	}
}

// Publish never blocks the caller's read loop.
func (w *EventFanout) Publish(evt chat.OutboundEvent) {
	select {
	case w.events <- evt:
	default:
		w.log.Warn("Fanout queue full, dropping event", "type", evt.Type, "room", evt.Room())
	}
}

func (w *EventFanout) Run(ctx context.Context) error {
	for {
		select {
		case evt := <-w.events:
			w.Fanout(ctx, evt)
		case <-ctx.Done():
			w.log.Debug("Context done, stopping fanout")
			return nil
		}
	}
}

// Fanout sends one event to a snapshot of the registry, sender included.
func (w *EventFanout) Fanout(ctx context.Context, evt chat.OutboundEvent) {
	for _, sink := range w.registry.Sinks() {
		w.consume(ctx, sink, evt)
	}
}

func (w *EventFanout) consume(ctx context.Context, sink contract.EventSink, evt chat.OutboundEvent) {
	sinkCtx := ctx
	if w.sinkTimeout > 0 {
		var cancel context.CancelFunc
		sinkCtx, cancel = context.WithTimeout(ctx, w.sinkTimeout)
		defer cancel()
	}
	if err := sink.Consume(sinkCtx, evt); err != nil {
		w.log.Debug("Event not delivered to connection", "type", evt.Type, "error", err)
	}
}
