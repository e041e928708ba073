// Package server exposes the state tree and the poll scheduler over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/anicoll/blink-integration/internal/pkg/config"
	"github.com/anicoll/blink-integration/internal/pkg/model"
	"github.com/anicoll/blink-integration/internal/pkg/poller"
	"github.com/anicoll/blink-integration/internal/pkg/store"
)

const (
	apiPrefix = "/api/v1"
	tokenPath = apiPrefix + "/auth/token"

	// FromAPI tags writes made through PUT /states/{id}.
	FromAPI = "api"

	maxBodyBytes = 1 << 16
)

var ErrBadTime = errors.New("time must be RFC 3339")

type stateStore interface {
	Path(id string) (string, bool)
	Snapshot() []store.Entry
	GetObject(path string) (model.Declaration, bool)
	GetState(path string) (model.State, bool)
	Command(ctx context.Context, path string, val model.Value, from string) error
}

type historyReader interface {
	GetHistory(ctx context.Context, path string, from, to *time.Time) (model.StateRecords, error)
}

type scheduler interface {
	Status() poller.Status
	Poll()
}

type server struct {
	store   stateStore
	history historyReader
	poller  scheduler
	hub     *Hub
	cfg     *config.ServerConfig
	logger  *zap.Logger
	now     func() time.Time
}

type Option func(*server)

func WithLogger(logger *zap.Logger) Option {
	return func(s *server) {
		s.logger = logger
	}
}

func New(st stateStore, history historyReader, sched scheduler, hub *Hub, cfg *config.ServerConfig, opts ...Option) *server {
	s := &server{
		store:   st,
		history: history,
		poller:  sched,
		hub:     hub,
		cfg:     cfg,
		logger:  zap.L(), // returns the global logger.
		now:     time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Handler builds the router. API requests are authenticated first and then
// validated against the embedded OpenAPI document.
func (s *server) Handler() (http.Handler, error) {
	v, err := newValidator()
	if err != nil {
		return nil, err
	}

	r := mux.NewRouter()
	r.Use(LoggingMiddleware)
	r.Handle("/ws", s.authMiddleware(http.HandlerFunc(s.serveWebSocket))).Methods(http.MethodGet)

	api := r.PathPrefix(apiPrefix).Subrouter()
	api.Use(s.authMiddleware, v.middleware)
	api.HandleFunc("/auth/token", s.issueToken).Methods(http.MethodPost)
	api.HandleFunc("/states", s.listStates).Methods(http.MethodGet)
	api.HandleFunc("/states/{id}", s.getState).Methods(http.MethodGet)
	api.HandleFunc("/states/{id}", s.putState).Methods(http.MethodPut)
	api.HandleFunc("/states/{id}/history", s.getHistory).Methods(http.MethodGet)
	api.HandleFunc("/poller", s.getPoller).Methods(http.MethodGet)
	api.HandleFunc("/poller/poll", s.pollNow).Methods(http.MethodPost)
	return r, nil
}

func (s *server) listStates(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Snapshot())
}

func (s *server) getState(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.lookup(mux.Vars(r)["id"])
	if !ok {
		writeError(w, http.StatusNotFound, store.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

type stateWrite struct {
	Val model.Value `json:"val"`
}

func (s *server) putState(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	path, ok := s.store.Path(id)
	if !ok {
		writeError(w, http.StatusNotFound, store.ErrNotFound)
		return
	}
	req, err := unmarshalPayload[stateWrite](r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.store.Command(r.Context(), path, req.Val, FromAPI); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, err)
			return
		case errors.Is(err, store.ErrInvalidValue):
			writeError(w, http.StatusBadRequest, err)
			return
		}
		// backend failures do not undo the write.
		s.logger.Warn("state written with backend errors", zap.String("id", id), zap.Error(err))
	}
	s.logger.Info("state write accepted", zap.String("id", id), zap.Stringer("value", req.Val))
	entry, _ := s.lookup(id)
	writeJSON(w, http.StatusAccepted, entry)
}

func (s *server) getHistory(w http.ResponseWriter, r *http.Request) {
	path, ok := s.store.Path(mux.Vars(r)["id"])
	if !ok {
		writeError(w, http.StatusNotFound, store.ErrNotFound)
		return
	}
	from, err := parseTime(r.URL.Query().Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	to, err := parseTime(r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	records, err := s.history.GetHistory(r.Context(), path, from, to)
	if err != nil {
		s.logger.Error("failed to read history", zap.String("path", path), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if records == nil {
		records = model.StateRecords{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *server) getPoller(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.poller.Status())
}

func (s *server) pollNow(w http.ResponseWriter, _ *http.Request) {
	s.poller.Poll()
	w.WriteHeader(http.StatusAccepted)
}

func (s *server) lookup(id string) (store.Entry, bool) {
	path, ok := s.store.Path(id)
	if !ok {
		return store.Entry{}, false
	}
	decl, ok := s.store.GetObject(path)
	if !ok {
		return store.Entry{}, false
	}
	entry := store.Entry{ID: id, Path: path, Object: decl}
	if st, ok := s.store.GetState(path); ok {
		entry.State = &st
	}
	return entry, true
}

func parseTime(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, ErrBadTime
	}
	return &t, nil
}

type errorResponse struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{
		Status:  status,
		Code:    http.StatusText(status),
		Message: err.Error(),
	})
}

func unmarshalPayload[T any](r *http.Request) (*T, error) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
