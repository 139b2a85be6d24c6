// Package httpapi serves the accounts API and mounts the realtime endpoint.
package httpapi

import (
	"chat-relay/auth"
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/observability"
	"chat-relay/services"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/rs/cors"
)

const maxBodySize = 1 << 20

type Server struct {
	log            *slog.Logger
	authService    services.IAuthService
	tokens         contract.ITokenService
	registry       contract.IRegistry
	health         *observability.HealthStore
	realtime       http.Handler
	allowedOrigins []string
}

func NewServer(log *slog.Logger, authService services.IAuthService, tokens contract.ITokenService,
	registry contract.IRegistry, health *observability.HealthStore, realtime http.Handler, allowedOrigins []string) *Server {
	return &Server{
		log:            log,
		authService:    authService,
		tokens:         tokens,
		registry:       registry,
		health:         health,
		realtime:       realtime,
		allowedOrigins: allowedOrigins,
	}
}

type nameRequest struct {
	Name string `json:"name"`
}

type loginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type profileResponse struct {
	UserID  string `json:"user_id"`
	Name    string `json:"name"`
	IsGuest bool   `json:"is_guest"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type healthResponse struct {
	Connections int     `json:"connections"`
	RSSBytes    uint64  `json:"rss_bytes"`
	CPUPercent  float64 `json:"cpu_percent"`
}

// Handler returns every route behind the CORS policy.
// An empty origin list allows any origin.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	protected := auth.RequireToken(s.tokens, s.fail)

	mux.HandleFunc("GET /ping", s.ping)
	mux.HandleFunc("GET /healthz", s.healthz)
	mux.HandleFunc("POST /create_user", s.createUser)
	mux.HandleFunc("POST /register", s.register)
	mux.HandleFunc("POST /token", s.token)
	mux.Handle("GET /me", protected(http.HandlerFunc(s.profile)))
	mux.Handle("PATCH /me", protected(http.HandlerFunc(s.rename)))
	mux.Handle("DELETE /me", protected(http.HandlerFunc(s.deleteUser)))
	if s.realtime != nil {
		mux.Handle("GET /ws", s.realtime)
	}

	return cors.New(cors.Options{
		AllowedOrigins: s.allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}).Handler(mux)
}

func (s *Server) ping(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, "pong")
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	stats := s.health.Latest()
	s.writeJSON(w, http.StatusOK, healthResponse{
		Connections: s.registry.Count(),
		RSSBytes:    stats.RSSBytes,
		CPUPercent:  stats.CPUPercent,
	})
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var body nameRequest
	if !s.decode(w, r, &body) {
		return
	}
	session, err := s.authService.CreateGuest(body.Name)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, session)
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var body auth.RegisterRequest
	if !s.decode(w, r, &body) {
		return
	}
	session, err := s.authService.Register(body)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, session)
}

func (s *Server) token(w http.ResponseWriter, r *http.Request) {
	var body loginRequest
	if !s.decode(w, r, &body) {
		return
	}
	session, err := s.authService.Login(body.Login, body.Password)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, session)
}

func (s *Server) profile(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	user, err := s.authService.Profile(userID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toProfile(user))
}

func (s *Server) rename(w http.ResponseWriter, r *http.Request) {
	var body nameRequest
	if !s.decode(w, r, &body) {
		return
	}
	userID, _ := auth.UserIDFromContext(r.Context())
	user, err := s.authService.Rename(userID, body.Name)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toProfile(user))
}

func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	if err := s.authService.Delete(userID); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.fail(w, r, fmt.Errorf("%w: %v", errors.ErrInvalidRequest, err))
		return false
	}
	return true
}

// fail hides internal errors from the client, they are only logged.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := errors.MapToHTTPStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		s.log.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		message = http.StatusText(status)
	}
	s.writeJSON(w, status, errorResponse{Error: message})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Debug("Response not written", "error", err)
	}
}

func toProfile(user domain.User) profileResponse {
	return profileResponse{UserID: user.ID, Name: user.Name, IsGuest: user.IsGuest}
}
