// Package reconcile pushes a projected summary into the state store in two
// phases: create every declared node, then write every current value.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/anicoll/blink-integration/internal/pkg/model"
	"github.com/anicoll/blink-integration/internal/pkg/schema"
)

var (
	ErrCreate = errors.New("failed to create state object")
	ErrWrite  = errors.New("failed to write state value")
)

// AggregateSyncError collects every create failure of one reconciliation.
type AggregateSyncError struct {
	Failed []string
	Err    error
}

func (e *AggregateSyncError) Error() string {
	return fmt.Sprintf("%s (%d failed): %v", ErrCreate, len(e.Failed), e.Err)
}

func (e *AggregateSyncError) Unwrap() []error {
	return []error{ErrCreate, e.Err}
}

type stateStore interface {
	CreateIfAbsent(ctx context.Context, decl model.Declaration) (bool, error)
	SetState(ctx context.Context, path string, val model.Value, ack bool) error
}

type Reconciler struct {
	store  stateStore
	logger *zap.Logger
	// limit caps concurrent creates, zero means unbounded.
	limit  int
}

type Option func(*Reconciler)

func WithLogger(logger *zap.Logger) Option {
	return func(r *Reconciler) {
		r.logger = logger
	}
}

func WithConcurrency(limit int) Option {
	return func(r *Reconciler) {
		r.limit = limit
	}
}

func New(store stateStore, opts ...Option) *Reconciler {
	r := &Reconciler{
		store:  store,
		logger: zap.L(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Reconcile creates every declaration that does not exist yet, waits for all
// of them, and then writes the summary's values as acknowledged. A create
// failure aborts the value phase and is returned as *AggregateSyncError.
// Write failures are logged and do not fail the call.
func (r *Reconciler) Reconcile(ctx context.Context, decls []model.Declaration, summary *model.Summary) error {
	if err := r.createAll(ctx, decls); err != nil {
		return err
	}

	written := 0
	for _, node := range schema.Walk(summary) {
		if err := r.store.SetState(ctx, node.Path, node.Value, true); err != nil {
			r.logger.Error(ErrWrite.Error(), zap.String("path", node.Path), zap.Error(err))
			continue
		}
		written++
	}
	r.logger.Debug("reconciled summary",
		zap.String("network", summary.NetworkName()),
		zap.Int("declared", len(decls)),
		zap.Int("written", written),
	)
	return nil
}

func (r *Reconciler) createAll(ctx context.Context, decls []model.Declaration) error {
	var (
		mu      sync.Mutex
		failed  []string
		errs    error
		created int
	)
	g := &errgroup.Group{}
	if r.limit > 0 {
		g.SetLimit(r.limit)
	}
	for _, decl := range decls {
		g.Go(func() error {
			ok, err := r.store.CreateIfAbsent(ctx, decl)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed = append(failed, decl.ID)
				errs = multierr.Append(errs, fmt.Errorf("%s: %w", decl.ID, err))
				return nil
			}
			if ok {
				created++
			}
			return nil
		})
	}
	_ = g.Wait()

	if errs != nil {
		return &AggregateSyncError{Failed: failed, Err: errs}
	}
	if created > 0 {
		r.logger.Info("created state objects", zap.Int("count", created))
	}
	return nil
}
