// Package server exposes the per-entity state actor over HTTP and
// WebSocket. The caller's entity identifier is resolved by an upstream
// authentication layer and injected in the X-Entity-ID header; this
// surface trusts it unconditionally.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/creastat/statehub"
	"github.com/creastat/statehub/actor"
)

// EntityHeader carries the authenticated entity identifier.
const EntityHeader = "X-Entity-ID"

// Option is a functional option for configuring the Server.
type Option func(*Server)

// WithLogger sets the logger. Defaults to slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// Server routes entity state requests to the owning actor.
type Server struct {
	router   *actor.Router
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// New creates a Server over the given actor router.
func New(router *actor.Router, opts ...Option) *Server {
	s := &Server{
		router: router,
		logger: slog.Default(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origin policy is enforced by the fronting auth layer.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the HTTP handler for the full request surface.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /session/create", s.handleSessionCreate)
	mux.HandleFunc("POST /session/update", s.handleSessionUpdate)
	mux.HandleFunc("GET /session/get", s.handleSessionGet)
	mux.HandleFunc("GET /session/list", s.handleSessionList)
	mux.HandleFunc("POST /decision/add", s.handleDecisionAdd)
	mux.HandleFunc("GET /decision/list", s.handleDecisionList)
	mux.HandleFunc("POST /context/set", s.handleContextSet)
	mux.HandleFunc("GET /context/get", s.handleContextGet)
	mux.HandleFunc("GET /metrics", s.handleMetrics)
	mux.HandleFunc("POST /cleanup", s.handleCleanup)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	return mux
}

// entityActor resolves the request's entity identifier to its actor.
func (s *Server) entityActor(w http.ResponseWriter, r *http.Request) (*actor.Actor, bool) {
	entityID := r.Header.Get(EntityHeader)
	if entityID == "" {
		entityID = r.URL.Query().Get("entity")
	}
	if entityID == "" {
		s.writeError(w, http.StatusBadRequest, "invalid_request", "missing entity identifier")
		return nil, false
	}
	return s.router.Get(entityID), true
}

type createSessionRequest struct {
	ID       string         `json:"id"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func (s *Server) handleSessionCreate(w http.ResponseWriter, r *http.Request) {
	a, ok := s.entityActor(w, r)
	if !ok {
		return
	}

	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	sess, err := a.CreateSession(r.Context(), req.ID, req.Metadata)
	if err != nil {
		s.writeOperationError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, sess)
}

type updateSessionRequest struct {
	ID        string         `json:"id"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	ExpiresAt *time.Time     `json:"expires_at,omitempty"`
}

func (s *Server) handleSessionUpdate(w http.ResponseWriter, r *http.Request) {
	a, ok := s.entityActor(w, r)
	if !ok {
		return
	}

	var req updateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	sess, err := a.UpdateSession(r.Context(), req.ID, actor.Update{
		Metadata:  req.Metadata,
		ExpiresAt: req.ExpiresAt,
	})
	if err != nil {
		s.writeOperationError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleSessionGet(w http.ResponseWriter, r *http.Request) {
	a, ok := s.entityActor(w, r)
	if !ok {
		return
	}

	sess, err := a.GetSession(r.Context(), r.URL.Query().Get("sessionId"))
	if err != nil {
		s.writeOperationError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleSessionList(w http.ResponseWriter, r *http.Request) {
	a, ok := s.entityActor(w, r)
	if !ok {
		return
	}

	sessions, err := a.ListSessions(r.Context())
	if err != nil {
		s.writeOperationError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

type addDecisionRequest struct {
	Payload any `json:"payload"`
}

func (s *Server) handleDecisionAdd(w http.ResponseWriter, r *http.Request) {
	a, ok := s.entityActor(w, r)
	if !ok {
		return
	}

	var req addDecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	rec, err := a.AddDecision(r.Context(), req.Payload)
	if err != nil {
		s.writeOperationError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleDecisionList(w http.ResponseWriter, r *http.Request) {
	a, ok := s.entityActor(w, r)
	if !ok {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid_request", "limit must be an integer")
			return
		}
		limit = n
	}

	decisions, err := a.ListDecisions(r.Context(), limit)
	if err != nil {
		s.writeOperationError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"decisions": decisions})
}

type setContextRequest struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

func (s *Server) handleContextSet(w http.ResponseWriter, r *http.Request) {
	a, ok := s.entityActor(w, r)
	if !ok {
		return
	}

	var req setContextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if err := a.SetContext(r.Context(), req.Key, req.Value); err != nil {
		s.writeOperationError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"key": req.Key, "value": req.Value})
}

func (s *Server) handleContextGet(w http.ResponseWriter, r *http.Request) {
	a, ok := s.entityActor(w, r)
	if !ok {
		return
	}

	key := r.URL.Query().Get("key")
	if key == "" {
		all, err := a.ContextMap(r.Context())
		if err != nil {
			s.writeOperationError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]any{"context": all})
		return
	}

	value, err := a.GetContext(r.Context(), key)
	if err != nil {
		s.writeOperationError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"key": key, "value": value})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	a, ok := s.entityActor(w, r)
	if !ok {
		return
	}

	m, err := a.Metrics(r.Context())
	if err != nil {
		s.writeOperationError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	a, ok := s.entityActor(w, r)
	if !ok {
		return
	}

	res, err := a.CleanupExpired(r.Context())
	if err != nil {
		s.writeOperationError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

// handleWebSocket upgrades the connection and pumps inbound frames into
// the actor's channel manager until the client disconnects.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	a, ok := s.entityActor(w, r)
	if !ok {
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	id := a.Subscribe(conn)
	logger := s.logger.With("entity_id", a.EntityID(), "conn_id", id)
	logger.Info("subscriber connected")

	defer func() {
		a.Unsubscribe(id)
		_ = conn.Close()
		logger.Info("subscriber disconnected")
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		a.HandleFrame(id, data)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "error", err)
	}
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (s *Server) writeError(w http.ResponseWriter, status int, errType, message string) {
	s.writeJSON(w, status, errorResponse{Error: errorBody{Type: errType, Message: message}})
}

// writeOperationError maps operation-level errors to structured HTTP
// responses. Infrastructure failures never reach here; the actor
// swallows them.
func (s *Server) writeOperationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, statehub.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, statehub.ErrInvalidInput):
		s.writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		s.writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
