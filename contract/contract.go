//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-relay/domain/chat"
	"context"
	"encoding/json"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink is the outbound side of one live connection.
// Consume must never block longer than ctx allows.
type EventSink interface {
	Consume(ctx context.Context, e chat.OutboundEvent) error
}

// ITokenService issues and validates identity tokens.
// Validate reports every failure the same way: ok == false.
type ITokenService interface {
	Issue(userID string) (string, error)
	Validate(token string) (userID string, ok bool)
}

// IUserDirectory resolves user identities for the realtime core.
type IUserDirectory interface {
	DisplayName(userID string) (string, error)
	UserExists(userID string) (bool, error)
}

type IRegistry interface {
	Connect(connectionID, token string, sink EventSink) bool
	Disconnect(connectionID string)
	Lookup(connectionID string) (string, bool)
	Sinks() []EventSink
	Count() int
}

// IPublisher hands a constructed event to the fan-out path.
type IPublisher interface {
	Publish(evt chat.OutboundEvent)
}

type IEngine interface {
	HandleEvent(ctx context.Context, connectionID string, kind chat.EventType, payload json.RawMessage) bool
}

type IModerator interface {
	Censor(text string) (string, []string)
}
