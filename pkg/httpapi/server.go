// Package httpapi exposes the orchestration core over HTTP: turn and resume
// endpoints, interrupt cancellation, a server-sent-events stream for UI
// events, Prometheus metrics, and a health probe.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"concierge/pkg/config"
	"concierge/pkg/logx"
	"concierge/pkg/proto"
	"concierge/pkg/supervisor"
	"concierge/pkg/uievent"
)

// Server is the HTTP front end over the supervisor.
type Server struct {
	sup        *supervisor.Supervisor
	events     *uievent.Channel
	httpServer *http.Server
	logger     *logx.Logger
}

// NewServer builds the HTTP server with all routes registered.
func NewServer(cfg *config.Config, sup *supervisor.Supervisor, events *uievent.Channel) *Server {
	s := &Server{
		sup:    sup,
		events: events,
		logger: logx.NewLogger("httpapi"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/turn", s.handleTurn)
	mux.HandleFunc("POST /api/resume", s.handleResume)
	mux.HandleFunc("DELETE /api/interrupts/{id}", s.handleCancel)
	mux.HandleFunc("GET /api/events", s.handleEvents)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// Start serves HTTP until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("http shutdown failed: %w", err)
	}
	return nil
}

func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	var req proto.TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if req.RequestText == "" {
		writeError(w, http.StatusBadRequest, "requestText must not be empty")
		return
	}

	response, err := s.sup.Route(r.Context(), req)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	var req proto.ResumeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if req.InterruptID == "" {
		writeError(w, http.StatusBadRequest, "interruptId must not be empty")
		return
	}
	if err := req.Decision.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	response, err := s.sup.Resume(r.Context(), req)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	interruptID := r.PathValue("id")
	if interruptID == "" {
		writeError(w, http.StatusBadRequest, "interrupt id required")
		return
	}

	if err := s.sup.Cancel(interruptID); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "abandoned", "interruptId": interruptID})
}

// handleEvents streams a session's UI events as server-sent events until the
// client disconnects. Events emitted while no stream is connected are lost;
// that is the channel's contract.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id query parameter required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := s.events.Subscribe(sessionID)
	defer s.events.Unsubscribe(sessionID, ch)

	for {
		select {
		case <-r.Context().Done():
			return
		case event, open := <-ch:
			if !open {
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				s.logger.Warn("failed to marshal UI event: %v", err)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Name, data)
			flusher.Flush()
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeDomainError maps the error taxonomy to HTTP status codes: busy
// sessions are retryable (429), stale interrupts are conflicts (409),
// everything else is internal.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	var busyErr *proto.SessionBusyError
	if errors.As(err, &busyErr) {
		writeError(w, http.StatusTooManyRequests, busyErr.Error())
		return
	}

	var staleErr *proto.StaleInterruptError
	if errors.As(err, &staleErr) {
		writeError(w, http.StatusConflict, staleErr.Error())
		return
	}

	s.logger.Error("request failed: %v", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logx.NewLogger("httpapi").Error("failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
