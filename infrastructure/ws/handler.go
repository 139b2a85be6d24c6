// Package ws exposes the realtime channel over websocket.
package ws

import (
	"chat-relay/contract"
	"chat-relay/domain/chat"
	"chat-relay/sink"
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const (
	writeTimeout = 5 * time.Second
	maxFrameSize = 64 << 10
)

// Handshake is the first frame a client must send.
type Handshake struct {
	Token string `json:"token"`
}

// Envelope is every inbound frame after the handshake.
type Envelope struct {
	Type    chat.EventType  `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type Handler struct {
	log                  *slog.Logger
	registry             contract.IRegistry
	engine               contract.IEngine
	handshakeTimeout     time.Duration
	connectionBufferSize int
	originPatterns       []string
}

func NewHandler(log *slog.Logger, registry contract.IRegistry, engine contract.IEngine,
	handshakeTimeout time.Duration, connectionBufferSize int, originPatterns []string) *Handler {
	return &Handler{
		log:                  log,
		registry:             registry,
		engine:               engine,
		handshakeTimeout:     handshakeTimeout,
		connectionBufferSize: connectionBufferSize,
		originPatterns:       originPatterns,
	}
}

// ServeHTTP upgrades the request and blocks until the client disconnects.
// The registry entry and the sink are released on every exit path.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.originPatterns})
	if err != nil {
		h.log.Debug("Websocket upgrade failed", "error", err)
		return
	}
	defer conn.CloseNow()
	conn.SetReadLimit(maxFrameSize)

	connectionID := uuid.NewString()
	connSink := sink.NewConnectionSink(h.connectionBufferSize)
	defer connSink.Close()

	userID, ok := h.handshake(r.Context(), conn, connectionID, connSink)
	if !ok {
		return
	}
	defer h.registry.Disconnect(connectionID)
	log := h.log.With("connection_id", connectionID, "user_id", userID)
	log.Debug("Connection established")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	pumpDone := make(chan struct{})
	go func() {
		defer close(pumpDone)
		defer cancel()
		h.writePump(ctx, log, conn, connSink)
	}()

	h.readLoop(ctx, log, conn, connectionID)
	cancel()
	<-pumpDone

	if r.Context().Err() != nil {
		conn.Close(websocket.StatusGoingAway, "server shutting down")
	} else {
		conn.Close(websocket.StatusNormalClosure, "")
	}
	log.Debug("Connection closed", "dropped", connSink.Dropped())
}

// handshake reads the token frame and registers the connection.
// Any failure closes the websocket with a policy violation.
func (h *Handler) handshake(ctx context.Context, conn *websocket.Conn, connectionID string, connSink contract.EventSink) (string, bool) {
	hsCtx, cancel := context.WithTimeout(ctx, h.handshakeTimeout)
	defer cancel()

	var hs Handshake
	if err := wsjson.Read(hsCtx, conn, &hs); err != nil {
		h.log.Debug("Handshake frame not received", "connection_id", connectionID, "error", err)
		conn.Close(websocket.StatusPolicyViolation, "handshake required")
		return "", false
	}
	if !h.registry.Connect(connectionID, hs.Token, connSink) {
		conn.Close(websocket.StatusPolicyViolation, "unauthorized")
		return "", false
	}
	userID, _ := h.registry.Lookup(connectionID)

	// The write pump is not running yet so this write cannot race with it.
	writeCtx, cancelWrite := context.WithTimeout(ctx, writeTimeout)
	defer cancelWrite()
	if err := wsjson.Write(writeCtx, conn, chat.NewReadyEvent(connectionID, userID)); err != nil {
		h.log.Debug("Ready frame not delivered", "connection_id", connectionID, "error", err)
		h.registry.Disconnect(connectionID)
		return "", false
	}
	return userID, true
}

// readLoop feeds every frame to the engine. Malformed frames are skipped,
// they never close the connection.
func (h *Handler) readLoop(ctx context.Context, log *slog.Logger, conn *websocket.Conn, connectionID string) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if status := websocket.CloseStatus(err); status == -1 && !stderrors.Is(err, context.Canceled) {
				log.Debug("Read failed", "error", err)
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			log.Debug("Dropping malformed frame", "error", err)
			continue
		}
		h.engine.HandleEvent(ctx, connectionID, env.Type, env.Payload)
	}
}

// writePump drains the sink until the connection ends or a write fails.
func (h *Handler) writePump(ctx context.Context, log *slog.Logger, conn *websocket.Conn, connSink *sink.ConnectionSink) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-connSink.Done():
			return
		case evt := <-connSink.Events():
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(writeCtx, conn, evt)
			cancel()
			if err != nil {
				log.Debug("Failed to push event to connection", "type", evt.Type, "error", err)
				return
			}
		}
	}
}
