package runtime_test

import (
	"chat-relay/domain/chat"
	"chat-relay/errors"
	"chat-relay/mocks"
	"chat-relay/runtime"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// RecordingPublisher keeps every published event in order.
type RecordingPublisher struct {
	events []chat.OutboundEvent
}

func (p *RecordingPublisher) Publish(evt chat.OutboundEvent) {
	p.events = append(p.events, evt)
}

type engineFixture struct {
	engine    *runtime.Engine
	registry  *mocks.MockIRegistry
	directory *mocks.MockIUserDirectory
	publisher *RecordingPublisher
}

var fixedNow = time.UnixMilli(1_700_000_000_000)

func newEngineFixture(t *testing.T, opts ...runtime.EngineOption) engineFixture {
	ctrl := gomock.NewController(t)
	f := engineFixture{
		registry:  mocks.NewMockIRegistry(ctrl),
		directory: mocks.NewMockIUserDirectory(ctrl),
		publisher: &RecordingPublisher{},
	}
	opts = append([]runtime.EngineOption{runtime.WithClock(func() time.Time { return fixedNow })}, opts...)
	f.engine = runtime.NewEngine(slog.Default(), f.registry, f.directory, chat.NewValidator(1000), f.publisher, opts...)
	return f
}

func Test_Engine_broadcasts_enriched_message(t *testing.T) {
	req := require.New(t)
	f := newEngineFixture(t)

	// Given alice is connected on c1
	f.registry.EXPECT().Lookup("c1").Return("alice-id", true)
	f.directory.EXPECT().DisplayName("alice-id").Return("Alice", nil)

	// When she sends a message
	ok := f.engine.OnMessage(context.Background(), "c1", json.RawMessage(`{"text":"hi","room":"general"}`))

	// Then every peer gets the enriched event
	req.True(ok)
	req.Len(f.publisher.events, 1)
	evt := f.publisher.events[0]
	req.Equal(chat.Message, evt.Type)
	req.Equal("general", evt.Room())

	data, err := json.Marshal(evt)
	req.NoError(err)
	req.JSONEq(`{"type":"message","payload":{"user":{"id":"alice-id","name":"Alice"},"text":"hi","room":"general","timestamp_ms":1700000000000}}`, string(data))
}

func Test_Engine_broadcasts_typing_without_text(t *testing.T) {
	req := require.New(t)
	f := newEngineFixture(t)
	f.registry.EXPECT().Lookup("c1").Return("alice-id", true).Times(2)
	f.directory.EXPECT().DisplayName("alice-id").Return("Alice", nil).Times(2)

	req.True(f.engine.OnTypingStart(context.Background(), "c1", json.RawMessage(`{"room":"general"}`)))
	req.True(f.engine.OnTypingStop(context.Background(), "c1", json.RawMessage(`{"room":"general"}`)))

	req.Len(f.publisher.events, 2)
	data, err := json.Marshal(f.publisher.events[0])
	req.NoError(err)
	req.JSONEq(`{"type":"start_typing","payload":{"user":{"id":"alice-id","name":"Alice"},"room":"general"}}`, string(data))
	req.Equal(chat.StopTyping, f.publisher.events[1].Type)
}

func Test_Engine_drops_invalid_payload_before_any_lookup(t *testing.T) {
	req := require.New(t)
	f := newEngineFixture(t)

	// No registry or directory expectation: a lookup would fail the test
	req.False(f.engine.OnMessage(context.Background(), "c1", json.RawMessage(`{"room":"general"}`)))
	req.False(f.engine.OnMessage(context.Background(), "c1", json.RawMessage(`{"text":42,"room":"general"}`)))
	req.False(f.engine.HandleEvent(context.Background(), "c1", chat.EventType("delete_everything"), json.RawMessage(`{}`)))
	req.Empty(f.publisher.events)
}

func Test_Engine_drops_event_from_unknown_connection(t *testing.T) {
	req := require.New(t)
	f := newEngineFixture(t)
	f.registry.EXPECT().Lookup("ghost").Return("", false)

	req.False(f.engine.OnMessage(context.Background(), "ghost", json.RawMessage(`{"text":"hi","room":"general"}`)))
	req.Empty(f.publisher.events)
}

func Test_Engine_drops_event_from_deleted_user(t *testing.T) {
	req := require.New(t)
	f := newEngineFixture(t)

	// Given bob was deleted after his handshake
	f.registry.EXPECT().Lookup("c-bob").Return("bob-id", true)
	f.directory.EXPECT().DisplayName("bob-id").Return("", errors.ErrUserNotFound)
	// And alice is still there
	f.registry.EXPECT().Lookup("c-alice").Return("alice-id", true)
	f.directory.EXPECT().DisplayName("alice-id").Return("Alice", nil)

	req.False(f.engine.OnMessage(context.Background(), "c-bob", json.RawMessage(`{"text":"spam","room":"general"}`)))
	req.True(f.engine.OnMessage(context.Background(), "c-alice", json.RawMessage(`{"text":"hi","room":"general"}`)))

	req.Len(f.publisher.events, 1)
	payload, ok := f.publisher.events[0].Payload.(chat.MessagePayload)
	req.True(ok)
	req.Equal("alice-id", payload.User.ID)
}

func Test_Engine_drops_on_canceled_context(t *testing.T) {
	req := require.New(t)
	f := newEngineFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req.False(f.engine.OnMessage(ctx, "c1", json.RawMessage(`{"text":"hi","room":"general"}`)))
	req.Empty(f.publisher.events)
}

func Test_Engine_censors_message_text(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	moderator := mocks.NewMockIModerator(ctrl)
	f := newEngineFixture(t, runtime.WithModerator(moderator))

	f.registry.EXPECT().Lookup("c1").Return("alice-id", true)
	f.directory.EXPECT().DisplayName("alice-id").Return("Alice", nil)
	moderator.EXPECT().Censor("you darn fool").Return("you **** fool", []string{"darn"})

	req.True(f.engine.OnMessage(context.Background(), "c1", json.RawMessage(`{"text":"you darn fool","room":"general"}`)))
	payload := f.publisher.events[0].Payload.(chat.MessagePayload)
	req.Equal("you **** fool", payload.Text)
}

func Test_Engine_preserves_sender_order(t *testing.T) {
	req := require.New(t)
	f := newEngineFixture(t)
	f.registry.EXPECT().Lookup("c1").Return("alice-id", true).AnyTimes()
	f.directory.EXPECT().DisplayName("alice-id").Return("Alice", nil).AnyTimes()

	for _, text := range []string{"one", "two", "three"} {
		raw, err := json.Marshal(map[string]string{"text": text, "room": "general"})
		req.NoError(err)
		req.True(f.engine.OnMessage(context.Background(), "c1", raw))
	}

	texts := make([]string, 0, len(f.publisher.events))
	for _, evt := range f.publisher.events {
		texts = append(texts, evt.Payload.(chat.MessagePayload).Text)
	}
	req.Equal([]string{"one", "two", "three"}, texts)
}
