// Package store holds the local state tree and fans writes out to the
// registered backends (database, MQTT, time series).
package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/anicoll/blink-integration/internal/pkg/model"
)

const FromUser = "user"

var (
	ErrAlreadyRegistered = errors.New("backend already registered")
	ErrNotFound          = errors.New("state object not found")
	ErrInvalidValue      = errors.New("value does not match object type")
)

// Backend mirrors the state tree somewhere outside the process.
type Backend interface {
	CreateObject(ctx context.Context, decl model.Declaration) error
	WriteState(ctx context.Context, path string, st model.State) error
}

// Deleter is implemented by backends that can drop a node.
type Deleter interface {
	DeleteObject(ctx context.Context, path string) error
}

// Listener receives change notifications. st is nil when the node was deleted.
type Listener func(id string, st *model.State)

// Entry is a node as seen by Snapshot.
type Entry struct {
	ID     string            `json:"id"`
	Path   string            `json:"path"`
	Object model.Declaration `json:"object"`
	State  *model.State      `json:"state,omitempty"`
}

type Store struct {
	namespace string
	logger    *zap.Logger
	now       func() time.Time

	objects sync.Map // path -> model.Declaration
	states  sync.Map // path -> model.State

	mu        sync.RWMutex
	backends  map[string]Backend
	listeners []Listener
}

type Option func(*Store)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

func New(namespace string, opts ...Option) *Store {
	s := &Store{
		namespace: namespace,
		logger:    zap.L(), // returns the global logger.
		now:       time.Now,
		backends:  make(map[string]Backend),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) Namespace() string {
	return s.namespace
}

// ID returns the namespaced id for a path.
func (s *Store) ID(path string) string {
	if s.namespace == "" {
		return path
	}
	return s.namespace + "." + path
}

// Path strips the namespace from id. ok is false when id lies outside it.
func (s *Store) Path(id string) (string, bool) {
	if s.namespace == "" {
		return id, true
	}
	return strings.CutPrefix(id, s.namespace+".")
}

func (s *Store) RegisterBackend(name string, backend Backend) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.backends[name]; ok {
		return ErrAlreadyRegistered
	}
	s.backends[name] = backend
	return nil
}

func (s *Store) Subscribe(listener Listener) {
	s.mu.Lock()
	s.listeners = append(s.listeners, listener)
	s.mu.Unlock()
}

// Restore seeds the tree with nodes persisted by a previous run. Backends are
// not called and listeners are not notified.
func (s *Store) Restore(decls []model.Declaration, states map[string]model.State) {
	for _, d := range decls {
		s.objects.Store(d.ID, d)
	}
	for path, st := range states {
		if _, ok := s.objects.Load(path); ok {
			s.states.Store(path, st)
		}
	}
	s.logger.Info("restored state tree", zap.Int("objects", len(decls)), zap.Int("states", len(states)))
}

// CreateIfAbsent declares a node unless it already exists. It reports
// whether the node was created by this call. When a backend rejects the
// declaration the node is forgotten again so a later call retries it.
func (s *Store) CreateIfAbsent(ctx context.Context, decl model.Declaration) (bool, error) {
	if _, loaded := s.objects.LoadOrStore(decl.ID, decl); loaded {
		return false, nil
	}

	var err error
	for name, backend := range s.snapshotBackends() {
		if berr := backend.CreateObject(ctx, decl); berr != nil {
			err = multierr.Append(err, fmt.Errorf("%s: %w", name, berr))
		}
	}
	if err != nil {
		s.objects.Delete(decl.ID)
		return false, err
	}
	s.logger.Debug("created state object", zap.String("path", decl.ID), zap.Stringer("type", decl.Common.Type))
	return true, nil
}

// SetState writes a value. Acknowledged writes are tagged as coming from the
// sync engine, others as user writes.
func (s *Store) SetState(ctx context.Context, path string, val model.Value, ack bool) error {
	from := FromUser
	if ack {
		from = model.FromSystem
	}
	return s.Write(ctx, path, model.State{Val: val, Ack: ack, From: from})
}

// Command applies an unacknowledged write from outside the sync engine
// (MQTT, HTTP). The value is converted to the declared type of the node.
func (s *Store) Command(ctx context.Context, path string, val model.Value, from string) error {
	decl, ok := s.GetObject(path)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	converted, ok := val.Coerce(decl.Common.Type)
	if !ok {
		return fmt.Errorf("%w: %s expects %s, got %s", ErrInvalidValue, path, decl.Common.Type, val.Kind())
	}
	if from == "" {
		from = FromUser
	}
	return s.Write(ctx, path, model.State{Val: converted, Ack: false, From: from})
}

// Write stores st for path, forwards changed values to the backends and
// notifies every listener. Backend failures are returned after listeners ran.
func (s *Store) Write(ctx context.Context, path string, st model.State) error {
	if _, ok := s.objects.Load(path); !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if st.TS.IsZero() {
		st.TS = s.now()
	}

	prev, existed := s.states.Swap(path, st)
	changed := !existed || prev.(model.State).Val != st.Val || prev.(model.State).Ack != st.Ack

	var err error
	if changed {
		for name, backend := range s.snapshotBackends() {
			if berr := backend.WriteState(ctx, path, st); berr != nil {
				err = multierr.Append(err, fmt.Errorf("%s: %w", name, berr))
			}
		}
	}

	s.notify(s.ID(path), &st)
	return err
}

// Delete removes a node and notifies listeners with a nil state.
func (s *Store) Delete(ctx context.Context, path string) error {
	if _, ok := s.objects.LoadAndDelete(path); !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	s.states.Delete(path)

	var err error
	for name, backend := range s.snapshotBackends() {
		if d, ok := backend.(Deleter); ok {
			if berr := d.DeleteObject(ctx, path); berr != nil {
				err = multierr.Append(err, fmt.Errorf("%s: %w", name, berr))
			}
		}
	}
	s.notify(s.ID(path), nil)
	return err
}

func (s *Store) GetObject(path string) (model.Declaration, bool) {
	v, ok := s.objects.Load(path)
	if !ok {
		return model.Declaration{}, false
	}
	return v.(model.Declaration), true
}

func (s *Store) GetState(path string) (model.State, bool) {
	v, ok := s.states.Load(path)
	if !ok {
		return model.State{}, false
	}
	return v.(model.State), true
}

// Snapshot lists every node sorted by path.
func (s *Store) Snapshot() []Entry {
	entries := []Entry{}
	s.objects.Range(func(key, value any) bool {
		path := key.(string)
		e := Entry{ID: s.ID(path), Path: path, Object: value.(model.Declaration)}
		if st, ok := s.GetState(path); ok {
			e.State = &st
		}
		entries = append(entries, e)
		return true
	})
	slices.SortFunc(entries, func(a, b Entry) int {
		return strings.Compare(a.Path, b.Path)
	})
	return entries
}

func (s *Store) snapshotBackends() map[string]Backend {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Backend, len(s.backends))
	for k, v := range s.backends {
		out[k] = v
	}
	return out
}

func (s *Store) notify(id string, st *model.State) {
	s.mu.RLock()
	listeners := slices.Clone(s.listeners)
	s.mu.RUnlock()
	for _, l := range listeners {
		var cp *model.State
		if st != nil {
			v := *st
			cp = &v
		}
		l(id, cp)
	}
}
