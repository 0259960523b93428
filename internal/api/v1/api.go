// Package v1 implements the native REST API.
package v1

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/vmunix/spotarr/internal/download"
	"github.com/vmunix/spotarr/internal/events"
)

// Config holds API server configuration.
type Config struct {
	Version string
}

// Server is the v1 API server.
type Server struct {
	deps ServerDeps
	cfg  Config
	log  *slog.Logger
}

// New creates a new v1 API server with the given dependencies.
func New(deps ServerDeps, cfg Config, log *slog.Logger) (*Server, error) {
	if err := deps.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingDependency, err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Server{deps: deps, cfg: cfg, log: log}, nil
}

// RegisterRoutes registers API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	// Downloads
	mux.HandleFunc("GET /api/v1/downloads", s.listDownloads)
	mux.HandleFunc("POST /api/v1/downloads", s.addDownload)
	mux.HandleFunc("POST /api/v1/downloads/cancel", s.cancelDownload)

	// Library sync
	mux.HandleFunc("POST /api/v1/sync", s.requireBus(s.triggerSync))

	// Events
	mux.HandleFunc("GET /api/v1/events", s.requireEventLog(s.listEvents))
	mux.HandleFunc("GET /api/v1/events/stream", s.requireBus(s.streamStatus))

	// System
	mux.HandleFunc("GET /api/v1/status", s.getStatus)
}

// Error response
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, code int, errCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: message, Code: errCode})
}

func writeJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(data)
}

// queryInt extracts an optional integer from query string.
func queryInt(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return i
}

func (s *Server) listDownloads(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, historyResponse{History: s.deps.Downloads.History()})
}

func (s *Server) addDownload(w http.ResponseWriter, r *http.Request) {
	var req download.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}

	item, err := s.deps.Downloads.Enqueue(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, download.ErrInvalidRequest):
			writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		case errors.Is(err, download.ErrQueueClosed):
			writeError(w, http.StatusServiceUnavailable, "QUEUE_CLOSED", "Download queue is shutting down")
		default:
			writeError(w, http.StatusInternalServerError, "ENQUEUE_ERROR", err.Error())
		}
		return
	}

	writeJSON(w, http.StatusCreated, item)
}

func (s *Server) cancelDownload(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "url is required")
		return
	}

	item, err := s.deps.Downloads.Cancel(r.Context(), req.URL)
	if err != nil {
		switch {
		case errors.Is(err, download.ErrNotFound):
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Download not found")
		case errors.Is(err, download.ErrNotCancellable):
			writeError(w, http.StatusConflict, "NOT_CANCELLABLE", err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "CANCEL_ERROR", err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, item)
}

func (s *Server) triggerSync(w http.ResponseWriter, r *http.Request) {
	req := syncRequest{Reason: "api"}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	if req.Reason == "" {
		req.Reason = "api"
	}

	if err := s.deps.Bus.Publish(r.Context(), &events.SyncRequested{
		BaseEvent: events.NewBaseEvent(events.EventSyncRequested, events.EntitySync, ""),
		Reason:    req.Reason,
	}); err != nil {
		writeError(w, http.StatusInternalServerError, "EVENT_ERROR", err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, syncResponse{Status: "scheduled"})
}

func (s *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Status:  "ok",
		Version: s.cfg.Version,
		Pending: s.deps.Downloads.Pending(),
		History: len(s.deps.Downloads.History()),
	}
	if s.deps.EventLog != nil {
		resp.EventLog = "ok"
		if err := s.deps.EventLog.Ping(r.Context()); err != nil {
			resp.Status = "degraded"
			resp.EventLog = err.Error()
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
