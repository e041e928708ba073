// Package relay forwards user writes on the synced state tree to the cloud.
package relay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/anicoll/blink-integration/internal/pkg/contxt"
	"github.com/anicoll/blink-integration/internal/pkg/model"
)

var ErrCommand = errors.New("failed to relay command")

const (
	armedAttribute   = "armed"
	enabledAttribute = "enabled"

	// Namespaced ids: {adapter}.{instance}.{network}.armed and
	// {adapter}.{instance}.{network}.{camera}.enabled.
	armSegments    = 4
	motionSegments = 5

	defaultCommandTimeout = 30 * time.Second
)

type remote interface {
	Connect(ctx context.Context, scope string) error
	SetArmed(ctx context.Context, armed bool) error
	GetCameras(ctx context.Context, id string) error
	SetMotionDetect(ctx context.Context, enabled bool) error
}

type change struct {
	id    string
	state *model.State
}

type Relay struct {
	remote  remote
	logger  *zap.Logger
	timeout time.Duration
	scope   sync.Locker

	mu      sync.Mutex
	pending []change
	wake    chan struct{}
}

type Option func(*Relay)

func WithLogger(logger *zap.Logger) Option {
	return func(r *Relay) {
		r.logger = logger
	}
}

// WithScopeLock shares the lock held between selecting a scope and sending
// the command that depends on it. Anything else that selects a scope on the
// same remote must hold it too.
func WithScopeLock(l sync.Locker) Option {
	return func(r *Relay) {
		r.scope = l
	}
}

func WithTimeout(d time.Duration) Option {
	return func(r *Relay) {
		r.timeout = d
	}
}

func New(remote remote, opts ...Option) *Relay {
	r := &Relay{
		remote:  remote,
		logger:  zap.L(), // returns the global logger.
		timeout: defaultCommandTimeout,
		scope:   &sync.Mutex{},
		wake:    make(chan struct{}, 1),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Enqueue is a store listener. It queues the change for Run and returns
// without waiting for the remote.
func (r *Relay) Enqueue(id string, st *model.State) {
	r.mu.Lock()
	r.pending = append(r.pending, change{id: id, state: st})
	r.mu.Unlock()

	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Run relays queued changes one at a time, in the order they were queued,
// until ctx is done.
func (r *Relay) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			if dropped := len(r.take()); dropped > 0 {
				r.logger.Warn("dropping queued commands", zap.Int("count", dropped))
			}
			return nil
		case <-r.wake:
		}
		for _, c := range r.take() {
			r.HandleStateChange(c.id, c.state)
		}
	}
}

func (r *Relay) take() []change {
	r.mu.Lock()
	defer r.mu.Unlock()
	batch := r.pending
	r.pending = nil
	return batch
}

// HandleStateChange relays one change synchronously. Only unacknowledged
// boolean writes on an armed or enabled node reach the remote; failures are
// logged.
func (r *Relay) HandleStateChange(id string, st *model.State) {
	if st == nil {
		r.logger.Info("state deleted", zap.String("id", id))
		return
	}
	if st.Ack {
		return
	}

	segments := strings.Split(id, ".")
	last := segments[len(segments)-1]
	target := ""
	if len(segments) > 1 {
		target = segments[len(segments)-2]
	}

	switch {
	case len(segments) == armSegments && last == armedAttribute:
		on, ok := st.Val.AsBool()
		if !ok {
			r.logger.Warn("ignoring non boolean arm request", zap.String("id", id), zap.Stringer("value", st.Val))
			return
		}
		r.exec(id, func(ctx context.Context) error {
			return r.arm(ctx, target, on)
		})
	case len(segments) == motionSegments && last == enabledAttribute:
		on, ok := st.Val.AsBool()
		if !ok {
			r.logger.Warn("ignoring non boolean motion request", zap.String("id", id), zap.Stringer("value", st.Val))
			return
		}
		r.exec(id, func(ctx context.Context) error {
			return r.motion(ctx, target, on)
		})
	}
}

func (r *Relay) exec(id string, fn func(ctx context.Context) error) {
	ctx, cancel := contxt.Detached(context.Background(), r.timeout)
	defer cancel()

	r.scope.Lock()
	defer r.scope.Unlock()
	if err := fn(ctx); err != nil {
		r.logger.Error(ErrCommand.Error(), zap.String("id", id), zap.Error(err))
	}
}

func (r *Relay) arm(ctx context.Context, network string, on bool) error {
	if err := r.remote.Connect(ctx, network); err != nil {
		return fmt.Errorf("connect %s: %w", network, err)
	}
	if err := r.remote.SetArmed(ctx, on); err != nil {
		return fmt.Errorf("set armed: %w", err)
	}
	r.logger.Info(lo.Ternary(on, "armed", "disarmed"), zap.String("network", network))
	return nil
}

func (r *Relay) motion(ctx context.Context, camera string, on bool) error {
	if err := r.remote.GetCameras(ctx, camera); err != nil {
		return fmt.Errorf("get camera %s: %w", camera, err)
	}
	if err := r.remote.SetMotionDetect(ctx, on); err != nil {
		return fmt.Errorf("set motion detect: %w", err)
	}
	r.logger.Info(lo.Ternary(on, "motion detection enabled", "motion detection disabled"), zap.String("camera", camera))
	return nil
}
