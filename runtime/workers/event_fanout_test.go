package workers

import (
	"chat-relay/contract"
	"chat-relay/domain/chat"
	"chat-relay/errors"
	"chat-relay/mocks"
	"chat-relay/sink"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func alice() chat.UserRef { return chat.UserRef{ID: "alice-id", Name: "Alice"} }

func TestEventFanout_Fanout_Reaches_Every_Sink(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	mockRegistry := mocks.NewMockIRegistry(ctrl)
	mockSink1 := mocks.NewMockEventSink(ctrl)
	mockSink2 := mocks.NewMockEventSink(ctrl)

	evt := chat.NewMessageEvent(alice(), "hi", "general", 1)

	// Given two connections, the sender included
	mockRegistry.EXPECT().Sinks().Return([]contract.EventSink{mockSink1, mockSink2}).Times(1)
	mockSink1.EXPECT().Consume(gomock.Any(), evt).Return(nil).Times(1)
	mockSink2.EXPECT().Consume(gomock.Any(), evt).Return(nil).Times(1)

	fanout := NewEventFanout(log, mockRegistry, 10, time.Second)

	// When the event is fanned out
	fanout.Fanout(context.Background(), evt)

	// Then both sinks got it exactly once
	req.True(ctrl.Satisfied())
}

func TestEventFanout_Failing_Sink_Does_Not_Stop_Others(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	mockRegistry := mocks.NewMockIRegistry(ctrl)
	failing := mocks.NewMockEventSink(ctrl)
	healthy := mocks.NewMockEventSink(ctrl)

	mockRegistry.EXPECT().Sinks().Return([]contract.EventSink{failing, healthy})
	failing.EXPECT().Consume(gomock.Any(), gomock.Any()).Return(errors.ErrSinkFull)
	healthy.EXPECT().Consume(gomock.Any(), gomock.Any()).Return(nil)

	NewEventFanout(log, mockRegistry, 10, time.Second).
		Fanout(context.Background(), chat.NewTypingEvent(chat.StartTyping, alice(), "general"))
	req.True(ctrl.Satisfied())
}

func TestEventFanout_SinkTimeout(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	mockRegistry := mocks.NewMockIRegistry(ctrl)
	slow := mocks.NewMockEventSink(ctrl)

	mockRegistry.EXPECT().Sinks().Return([]contract.EventSink{slow})
	slow.EXPECT().Consume(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, evt chat.OutboundEvent) error {
			<-ctx.Done() // Waiting for timeout to trigger cancellation
			return ctx.Err()
		})

	fanout := NewEventFanout(log, mockRegistry, 10, 20*time.Millisecond)

	start := time.Now()
	fanout.Fanout(context.Background(), chat.NewMessageEvent(alice(), "hi", "general", 1))
	req.Less(time.Since(start), 500*time.Millisecond)
}

func TestEventFanout_Run_Preserves_Publish_Order(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	mockRegistry := mocks.NewMockIRegistry(ctrl)
	recipient := sink.NewConnectionSink(10)
	mockRegistry.EXPECT().Sinks().Return([]contract.EventSink{recipient}).AnyTimes()

	fanout := NewEventFanout(log, mockRegistry, 10, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = fanout.Run(ctx) }()

	for _, text := range []string{"one", "two", "three"} {
		fanout.Publish(chat.NewMessageEvent(alice(), text, "general", 1))
	}

	var got []string
	for len(got) < 3 {
		select {
		case evt := <-recipient.Events():
			got = append(got, evt.Payload.(chat.MessagePayload).Text)
		case <-time.After(time.Second):
			req.FailNow("event not delivered in time")
		}
	}
	req.Equal([]string{"one", "two", "three"}, got)
}

func TestEventFanout_Publish_Drops_When_Queue_Full(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	mockRegistry := mocks.NewMockIRegistry(ctrl)

	// Given no Run loop draining a queue of one
	fanout := NewEventFanout(log, mockRegistry, 1, time.Second)

	done := make(chan struct{})
	go func() {
		fanout.Publish(chat.NewMessageEvent(alice(), "one", "general", 1))
		fanout.Publish(chat.NewMessageEvent(alice(), "two", "general", 1))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		req.Fail("Publish must not block")
	}
	req.Len(fanout.events, 1)
}

func TestEventFanout_Run_Stops_On_Cancel(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	fanout := NewEventFanout(slog.Default(), mocks.NewMockIRegistry(ctrl), 1, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req.NoError(fanout.Run(ctx))
}
