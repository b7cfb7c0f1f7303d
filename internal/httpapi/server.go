// Package httpapi exposes the chat assistant over HTTP.
//
// Two chat surfaces are served: a synchronous JSON endpoint
// (POST /api/chat) and a websocket endpoint (GET /api/chat/ws) that
// carries one JSON frame per turn. Both drive the same [Chat]
// implementation, so a session started over HTTP can continue over the
// websocket and vice versa.
//
// The server also mounts /metrics (Prometheus), /healthz, and /readyz.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tailortalk/tailortalk/internal/dialog"
	"github.com/tailortalk/tailortalk/internal/health"
	"github.com/tailortalk/tailortalk/internal/observe"
)

// turnTimeout bounds a single turn, covering the LLM chain and the
// calendar round trips it may trigger.
const turnTimeout = 30 * time.Second

// Chat is the conversation surface the server drives. The app layer
// implements it on top of the session store and the dialog machine.
type Chat interface {
	// Turn applies one user utterance to the named session and returns
	// the assistant's reply.
	Turn(ctx context.Context, sessionID, message string) (dialog.Reply, error)

	// EndSession discards the named session's state.
	EndSession(ctx context.Context, sessionID string) error
}

// Server is the HTTP front end. Construct with [New] and mount via
// [Server.Handler].
type Server struct {
	chat    Chat
	metrics *observe.Metrics
	checks  *health.Handler
	log     *slog.Logger
}

// Option configures a [Server].
type Option func(*Server)

// WithMetrics sets the metrics sink. Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithHealth sets the health handler mounted at /healthz and /readyz.
// Defaults to a handler with no readiness checks.
func WithHealth(h *health.Handler) Option {
	return func(s *Server) { s.checks = h }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(s *Server) { s.log = log }
}

// New creates a Server that serves chat turns from chat.
func New(chat Chat, opts ...Option) *Server {
	s := &Server{chat: chat}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	if s.checks == nil {
		s.checks = health.New()
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	return s
}

// Handler returns the fully routed HTTP handler, wrapped in the
// observability middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("DELETE /api/sessions/{id}", s.handleEndSession)
	mux.HandleFunc("GET /api/chat/ws", s.handleWebsocket)
	mux.Handle("GET /metrics", promhttp.Handler())
	s.checks.Register(mux)
	return observe.Middleware(s.metrics)(mux)
}

// chatRequest is the body of POST /api/chat and of each websocket frame
// sent by the client.
type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// chatResponse is the reply body for both chat surfaces.
type chatResponse struct {
	Reply    string `json:"reply"`
	Degraded bool   `json:"degraded,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if req.SessionID == "" || req.Message == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "session_id and message are required"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), turnTimeout)
	defer cancel()

	reply, err := s.chat.Turn(ctx, req.SessionID, req.Message)
	if err != nil {
		s.log.Error("chat turn failed", "session_id", req.SessionID, "err", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "turn failed"})
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{Reply: reply.Text, Degraded: reply.Degraded})
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "session id is required"})
		return
	}
	if err := s.chat.EndSession(r.Context(), id); err != nil {
		s.log.Error("end session failed", "session_id", id, "err", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "end session failed"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleWebsocket upgrades to a websocket and exchanges one JSON frame
// per turn. The session ID comes from the "session" query parameter;
// frames carrying their own session_id override it per turn.
func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.log.Warn("websocket accept failed", "err", err)
		return
	}
	defer conn.CloseNow()

	defaultSession := r.URL.Query().Get("session")

	for {
		var req chatRequest
		if err := wsjson.Read(r.Context(), conn, &req); err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure ||
				websocket.CloseStatus(err) == websocket.StatusGoingAway ||
				errors.Is(err, context.Canceled) {
				return
			}
			s.log.Debug("websocket read failed", "err", err)
			return
		}

		sessionID := req.SessionID
		if sessionID == "" {
			sessionID = defaultSession
		}
		if sessionID == "" || req.Message == "" {
			if err := wsjson.Write(r.Context(), conn, errorResponse{Error: "session_id and message are required"}); err != nil {
				return
			}
			continue
		}

		ctx, cancel := context.WithTimeout(r.Context(), turnTimeout)
		reply, err := s.chat.Turn(ctx, sessionID, req.Message)
		cancel()
		if err != nil {
			s.log.Error("websocket turn failed", "session_id", sessionID, "err", err)
			if err := wsjson.Write(r.Context(), conn, errorResponse{Error: "turn failed"}); err != nil {
				return
			}
			continue
		}

		if err := wsjson.Write(r.Context(), conn, chatResponse{Reply: reply.Text, Degraded: reply.Degraded}); err != nil {
			return
		}
	}
}

// writeJSON encodes v as JSON with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error":"encoding failed"}`, http.StatusInternalServerError)
	}
}
