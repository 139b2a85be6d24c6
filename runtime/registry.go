package runtime

import (
	"chat-relay/contract"
	"log/slog"
	"sync"

	"github.com/samber/lo"
)

type session struct {
	userID string
	sink   contract.EventSink
}

// Registry maps each live connection to its authenticated user and outbound sink.
// It is the sole authorization gate of the realtime channel.
type Registry struct {
	mu        sync.RWMutex
	log       *slog.Logger
	tokens    contract.ITokenService
	directory contract.IUserDirectory
	sessions  map[string]session // map connection -> session
}

func NewRegistry(log *slog.Logger, tokens contract.ITokenService, directory contract.IUserDirectory) *Registry {
	return &Registry{
		log:       log,
		tokens:    tokens,
		directory: directory,
		sessions:  make(map[string]session),
	}
}

// Connect validates the handshake token and registers the connection.
// A missing, invalid or expired token, as well as a token whose user has
// been deleted, refuses the connection without creating an entry.
func (r *Registry) Connect(connectionID, token string, sink contract.EventSink) bool {
	if token == "" {
		r.log.Debug("Handshake without token", "connection_id", connectionID)
		return false
	}
	userID, ok := r.tokens.Validate(token)
	if !ok {
		r.log.Debug("Handshake with invalid token", "connection_id", connectionID)
		return false
	}

	exists, err := r.directory.UserExists(userID)
	if err != nil {
		r.log.Error("User lookup failed during handshake",
			"connection_id", connectionID, "user_id", userID, "error", err)
		return false
	}
	if !exists {
		r.log.Debug("Handshake for a user that no longer exists",
			"connection_id", connectionID, "user_id", userID)
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.sessions[connectionID]; taken {
		r.log.Warn("Connection id already registered", "connection_id", connectionID)
		return false
	}
	r.sessions[connectionID] = session{userID: userID, sink: sink}
	return true
}

// Disconnect removes the entry unconditionally; calling it twice is a no-op.
func (r *Registry) Disconnect(connectionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, connectionID)
}

func (r *Registry) Lookup(connectionID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[connectionID]
	return s.userID, ok
}

// Sinks returns a snapshot taken under the read lock,
// fan-out iterates it without holding the lock.
func (r *Registry) Sinks() []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.MapToSlice(r.sessions, func(_ string, s session) contract.EventSink {
		return s.sink
	})
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
