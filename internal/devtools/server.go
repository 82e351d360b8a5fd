// Package devtools serves an HTTP inspector for a running store: state,
// selectors, history, the selector graph, Prometheus metrics and a
// websocket stream of state changes.
package devtools

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/comalice/storex"
	"github.com/comalice/storex/internal/production"
)

// Server exposes a store over HTTP. A store is single-threaded, so every
// handler and Do call runs under one mutex.
type Server struct {
	mu       sync.Mutex
	store    *storex.Store
	hub      *hub
	gatherer prometheus.Gatherer
	logger   *slog.Logger
	viz      production.Visualizer
	router   chi.Router
	detach   func()
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithGatherer sets the source of /metrics. Default: prometheus.DefaultGatherer.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// New builds a devtools server and subscribes it to store.
func New(store *storex.Store, opts ...Option) (*Server, error) {
	s := &Server{
		store:    store,
		hub:      newHub(),
		gatherer: prometheus.DefaultGatherer,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	detach, err := store.Subscribe(s.push)
	if err != nil {
		return nil, err
	}
	s.detach = detach
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/state", s.handleState)
	r.Post("/dispatch", s.handleDispatch)
	r.Get("/selectors", s.handleSelectors)
	r.Get("/selectors/{name}", s.handleSelector)
	r.Get("/history", s.handleHistory)
	r.Get("/graph", s.handleGraph)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	r.Get("/ws", s.handleWebSocket)
	return r
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Do runs fn with exclusive access to the store. Goroutines other than the
// HTTP handlers must reach the store through Do.
func (s *Server) Do(fn func(store *storex.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.store)
}

// Close unsubscribes from the store and disconnects websocket clients.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.detach != nil {
		s.detach()
		s.detach = nil
	}
	s.hub.close()
}

// push runs as a store listener, so the server lock is already held by
// whoever dispatched.
func (s *Server) push() {
	if s.hub.count() == 0 {
		return
	}
	data, err := s.stateMessage()
	if err != nil {
		s.logger.Warn("devtools: encode state", "error", err)
		return
	}
	s.hub.broadcast(data)
}

// StateMessage is the websocket payload.
type StateMessage struct {
	Version   string       `json:"version"`
	State     storex.State `json:"state"`
	Timestamp time.Time    `json:"timestamp"`
}

func (s *Server) stateMessage() ([]byte, error) {
	snapshot := s.store.Snapshot()
	return json.Marshal(StateMessage{
		Version:   snapshot.Version,
		State:     snapshot.State,
		Timestamp: snapshot.Timestamp,
	})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	data, err := s.viz.ExportJSON(s.store.GetState())
	s.mu.Unlock()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

// DispatchResponse is returned by POST /dispatch.
type DispatchResponse struct {
	Action  any  `json:"action,omitempty"`
	Applied bool `json:"applied"`
}

func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	var body any
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	s.mu.Lock()
	result, err := s.store.DispatchValue(body)
	s.mu.Unlock()
	if err != nil {
		writeError(w, dispatchStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, DispatchResponse{Action: result, Applied: result != nil})
}

func dispatchStatus(err error) int {
	switch {
	case errors.Is(err, storex.ErrInvalidAction), errors.Is(err, storex.ErrUndefinedType):
		return http.StatusBadRequest
	case errors.Is(err, storex.ErrReentrantDispatch):
		return http.StatusConflict
	default:
		return http.StatusUnprocessableEntity
	}
}

// SelectorInfo describes one registered selector.
type SelectorInfo struct {
	Name   string   `json:"name"`
	Inputs []string `json:"inputs"`
}

func (s *Server) handleSelectors(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	names := s.store.SelectorNames()
	infos := make([]SelectorInfo, 0, len(names))
	for _, name := range names {
		inputs, _ := s.store.SelectorInputs(name)
		if inputs == nil {
			inputs = []string{}
		}
		infos = append(infos, SelectorInfo{Name: name, Inputs: inputs})
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, infos)
}

// SelectorValue is returned by GET /selectors/{name}.
type SelectorValue struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

func (s *Server) handleSelector(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	s.mu.Lock()
	value, err := s.store.Select(name)
	s.mu.Unlock()
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, SelectorValue{Name: name, Value: value})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	entries := s.store.History()
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	dot := s.viz.ExportDOT(s.store)
	s.mu.Unlock()
	w.Header().Set("Content-Type", "text/vnd.graphviz")
	_, _ = w.Write([]byte(dot))
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.hub.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("devtools: websocket upgrade failed", "error", err)
		return
	}

	s.mu.Lock()
	s.hub.add(conn)
	data, err := s.stateMessage()
	if err == nil {
		s.hub.send(conn, data)
	}
	s.mu.Unlock()

	// Keep connection alive until client disconnects
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	s.hub.remove(conn)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
