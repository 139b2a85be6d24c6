// Package chat defines the realtime events exchanged between connections.
package chat

// EventType names both the inbound intent and the outbound channel.
type EventType string

const (
	Message     EventType = "message"
	StartTyping EventType = "start_typing"
	StopTyping  EventType = "stop_typing"

	// Ready is only ever sent by the server, once, after a successful handshake.
	Ready EventType = "ready"
)

func (t EventType) Known() bool {
	switch t {
	case Message, StartTyping, StopTyping:
		return true
	}
	return false
}

// Inbound is a validated event received from a connection.
// Text is only meaningful for Message.
type Inbound struct {
	Kind EventType
	Text string
	Room string
}

// UserRef identifies the sender of an outbound event.
type UserRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// MessagePayload is broadcast on the "message" channel.
type MessagePayload struct {
	User        UserRef `json:"user"`
	Text        string  `json:"text"`
	Room        string  `json:"room"`
	TimestampMs int64   `json:"timestamp_ms"`
}

// TypingPayload is broadcast on the "start_typing" and "stop_typing" channels.
type TypingPayload struct {
	User UserRef `json:"user"`
	Room string  `json:"room"`
}

// OutboundEvent is what every connected peer receives.
// Room travels as a label inside the payload, clients filter on it.
type OutboundEvent struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload"`
}

func (e OutboundEvent) Room() string {
	switch p := e.Payload.(type) {
	case MessagePayload:
		return p.Room
	case TypingPayload:
		return p.Room
	}
	return ""
}

func NewMessageEvent(user UserRef, text, room string, timestampMs int64) OutboundEvent {
	return OutboundEvent{
		Type: Message,
		Payload: MessagePayload{
			User:        user,
			Text:        text,
			Room:        room,
			TimestampMs: timestampMs,
		},
	}
}

func NewTypingEvent(kind EventType, user UserRef, room string) OutboundEvent {
	return OutboundEvent{Type: kind, Payload: TypingPayload{User: user, Room: room}}
}

type ReadyPayload struct {
	ConnectionID string `json:"connection_id"`
	UserID       string `json:"user_id"`
}

func NewReadyEvent(connectionID, userID string) OutboundEvent {
	return OutboundEvent{Type: Ready, Payload: ReadyPayload{ConnectionID: connectionID, UserID: userID}}
}
