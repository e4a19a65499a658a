// Package server exposes task execution over HTTP. The direct path returns
// one JSON outcome per request; the streaming path delivers newline-delimited
// JSON progress events as they happen.
package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/taskfleet/taskfleet/pkg/models"
)

// Runner is the execution surface the server fronts.
type Runner interface {
	Execute(ctx context.Context, description, requesterID string) *models.ExecutionOutcome
	Stream(ctx context.Context, description, requesterID string) <-chan models.ProgressEvent
}

// StatusReporter supplies the text for the status endpoint.
type StatusReporter interface {
	Summary() string
}

// Server is the HTTP front end.
type Server struct {
	runner Runner
	status StatusReporter
	http   *http.Server
}

// New creates a server bound to addr. status may be nil, which disables the
// status endpoint body.
func New(addr string, runner Runner, status StatusReporter) *Server {
	s := &Server{runner: runner, status: status}
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler builds the route table. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/tasks", s.handleTask)
	mux.HandleFunc("POST /v1/tasks/stream", s.handleTaskStream)
	mux.HandleFunc("GET /v1/status", s.handleStatus)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

// ListenAndServe blocks serving requests until Shutdown or a listener error.
func (s *Server) ListenAndServe() error {
	log.Printf("[server] listening on %s", s.http.Addr)
	return s.http.ListenAndServe()
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

type taskPayload struct {
	Description string `json:"description"`
	RequesterID string `json:"requester_id"`
}

func decodeTask(w http.ResponseWriter, r *http.Request) (taskPayload, bool) {
	var payload taskPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return payload, false
	}
	if strings.TrimSpace(payload.Description) == "" {
		http.Error(w, "description is required", http.StatusBadRequest)
		return payload, false
	}
	return payload, true
}

func (s *Server) handleTask(w http.ResponseWriter, r *http.Request) {
	payload, ok := decodeTask(w, r)
	if !ok {
		return
	}

	outcome := s.runner.Execute(r.Context(), payload.Description, payload.RequesterID)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(outcome); err != nil {
		log.Printf("[server] encoding outcome: %v", err)
	}
}

// handleTaskStream writes one JSON progress event per line. The connection
// stays open until the terminal event; clients read line by line.
func (s *Server) handleTaskStream(w http.ResponseWriter, r *http.Request) {
	payload, ok := decodeTask(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	enc := json.NewEncoder(w)
	for ev := range s.runner.Stream(r.Context(), payload.Description, payload.RequesterID) {
		if err := enc.Encode(ev); err != nil {
			log.Printf("[server] encoding event: %v", err)
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if s.status == nil {
		w.Write([]byte("ok\n"))
		return
	}
	w.Write([]byte(s.status.Summary() + "\n"))
}
