// Package runtime holds the realtime core: the connection registry and the
// engine turning inbound events into enriched broadcasts.
package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain/chat"
	"chat-relay/errors"
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"time"
)

// Engine routes validated events from a sending connection to every connected peer.
// Every failure is a silent drop: HandleEvent reports whether a broadcast happened
// and never surfaces an error to the sender.
type Engine struct {
	log       *slog.Logger
	registry  contract.IRegistry
	directory contract.IUserDirectory
	validator *chat.Validator
	publisher contract.IPublisher
	moderator contract.IModerator
	now       func() time.Time
}

type EngineOption func(*Engine)

// WithModerator censors message text before it is broadcast.
func WithModerator(m contract.IModerator) EngineOption {
	return func(e *Engine) { e.moderator = m }
}

func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

func NewEngine(log *slog.Logger, registry contract.IRegistry, directory contract.IUserDirectory,
	validator *chat.Validator, publisher contract.IPublisher, opts ...EngineOption) *Engine {
	e := &Engine{
		log:       log,
		registry:  registry,
		directory: directory,
		validator: validator,
		publisher: publisher,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) OnMessage(ctx context.Context, connectionID string, payload json.RawMessage) bool {
	return e.HandleEvent(ctx, connectionID, chat.Message, payload)
}

func (e *Engine) OnTypingStart(ctx context.Context, connectionID string, payload json.RawMessage) bool {
	return e.HandleEvent(ctx, connectionID, chat.StartTyping, payload)
}

func (e *Engine) OnTypingStop(ctx context.Context, connectionID string, payload json.RawMessage) bool {
	return e.HandleEvent(ctx, connectionID, chat.StopTyping, payload)
}

func (e *Engine) HandleEvent(ctx context.Context, connectionID string, kind chat.EventType, payload json.RawMessage) bool {
	if ctx.Err() != nil {
		return false
	}

	// 1. Schema
	in, err := e.validator.Validate(kind, payload)
	if err != nil {
		e.log.Debug("Dropping invalid event", "connection_id", connectionID, "type", kind, "error", err)
		return false
	}

	// 2. Sender identity
	userID, ok := e.registry.Lookup(connectionID)
	if !ok {
		e.log.Debug("Dropping event from unknown connection", "connection_id", connectionID, "type", kind)
		return false
	}

	// 3. Display name, the user may have been deleted since the handshake
	name, err := e.directory.DisplayName(userID)
	if err != nil {
		if stderrors.Is(err, errors.ErrUserNotFound) {
			e.log.Debug("Dropping event from deleted user", "connection_id", connectionID, "user_id", userID)
		} else {
			e.log.Error("Display name lookup failed", "connection_id", connectionID, "user_id", userID, "error", err)
		}
		return false
	}

	// 4. Outbound event
	e.publisher.Publish(e.outbound(in, chat.UserRef{ID: userID, Name: name}))
	return true
}

func (e *Engine) outbound(in chat.Inbound, user chat.UserRef) chat.OutboundEvent {
	if in.Kind != chat.Message {
		return chat.NewTypingEvent(in.Kind, user, in.Room)
	}
	return chat.NewMessageEvent(user, e.censor(in.Text, user), in.Room, e.now().UnixMilli())
}

func (e *Engine) censor(text string, user chat.UserRef) string {
	if e.moderator == nil {
		return text
	}
	sanitized, words := e.moderator.Censor(text)
	if len(words) > 0 {
		e.log.Info("Message censored", "user_id", user.ID, "words", len(words))
	}
	return sanitized
}
