package sink

import (
	"chat-relay/domain/chat"
	"chat-relay/errors"
	"context"
	"sync"
	"sync/atomic"
)

// ConnectionSink buffers outbound events for one websocket connection.
// The events channel is never closed so a late Consume cannot panic,
// closing only signals Done.
type ConnectionSink struct {
	events  chan chat.OutboundEvent
	done    chan struct{}
	once    sync.Once
	dropped atomic.Int64
}

func NewConnectionSink(bufferSize int) *ConnectionSink {
	return &ConnectionSink{
		events: make(chan chat.OutboundEvent, bufferSize),
		done:   make(chan struct{}),
	}
}

// Consume is called by fanout.
// It never blocks: a full buffer drops the event for this connection only.
func (s *ConnectionSink) Consume(ctx context.Context, e chat.OutboundEvent) error {
	select {
	case <-s.done:
		return errors.ErrSinkClosed
	default:
	}

	select {
	case s.events <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		s.dropped.Add(1)
		return errors.ErrSinkFull
	}
}

// Events is drained by the connection write pump.
func (s *ConnectionSink) Events() <-chan chat.OutboundEvent {
	return s.events
}

func (s *ConnectionSink) Done() <-chan struct{} {
	return s.done
}

// Close is idempotent.
func (s *ConnectionSink) Close() {
	s.once.Do(func() { close(s.done) })
}

// Dropped counts events lost to backpressure.
func (s *ConnectionSink) Dropped() int64 {
	return s.dropped.Load()
}
