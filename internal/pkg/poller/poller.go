// Package poller runs the connect, fetch and reconcile cycle on a fixed
// interval with at most one pending timer.
package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/anicoll/blink-integration/internal/pkg/contxt"
	"github.com/anicoll/blink-integration/internal/pkg/model"
	"github.com/anicoll/blink-integration/internal/pkg/schema"
)

var (
	ErrConnect = errors.New("failed to connect to remote")
	ErrFetch   = errors.New("failed to fetch summary")
)

const defaultCycleTimeout = 30 * time.Second

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseConnecting
	PhaseFetching
	PhaseReconciling
	PhaseArmed
)

func (p Phase) String() string {
	switch p {
	case PhaseConnecting:
		return "connecting"
	case PhaseFetching:
		return "fetching"
	case PhaseReconciling:
		return "reconciling"
	case PhaseArmed:
		return "armed"
	}
	return "idle"
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

type remote interface {
	Connect(ctx context.Context, scope string) error
	FetchSummary(ctx context.Context) (*model.Summary, error)
}

type reconciler interface {
	Reconcile(ctx context.Context, decls []model.Declaration, summary *model.Summary) error
}

// Timer is the part of *time.Timer the poller uses.
type Timer interface {
	C() <-chan time.Time
	Stop() bool
}

type Clock interface {
	Now() time.Time
	NewTimer(d time.Duration) Timer
}

type realClock struct{}

type realTimer struct{ t *time.Timer }

func (realClock) Now() time.Time { return time.Now() }
func (realClock) NewTimer(d time.Duration) Timer { return realTimer{t: time.NewTimer(d)} }
func (r realTimer) C() <-chan time.Time { return r.t.C }
func (r realTimer) Stop() bool { return r.t.Stop() }

// Status is a point in time view of the scheduler.
type Status struct {
	Phase       Phase     `json:"phase"`
	Interval    string    `json:"interval"`
	Cycles      uint64    `json:"cycles"`
	LastError   string    `json:"last_error,omitempty"`
	LastSuccess time.Time `json:"last_success,omitzero"`
	NextPoll    time.Time `json:"next_poll,omitzero"`
}

type Poller struct {
	remote       remote
	reconciler   reconciler
	interval     time.Duration
	cycleTimeout time.Duration
	clock        Clock
	logger       *zap.Logger
	scope        sync.Locker
	trigger      chan struct{}
	stopped      chan struct{}
	stopOnce     sync.Once

	mu     sync.Mutex
	timer  Timer
	halted bool
	status Status
}

type Option func(*Poller)

func WithLogger(logger *zap.Logger) Option {
	return func(p *Poller) {
		p.logger = logger
	}
}

func WithClock(clock Clock) Option {
	return func(p *Poller) {
		p.clock = clock
	}
}

// WithScopeLock shares the lock held while a scope is selected and used.
// Anything else that selects a scope on the same remote must hold it too.
func WithScopeLock(l sync.Locker) Option {
	return func(p *Poller) {
		p.scope = l
	}
}

// WithCycleTimeout bounds the remote calls of one cycle.
func WithCycleTimeout(d time.Duration) Option {
	return func(p *Poller) {
		p.cycleTimeout = d
	}
}

func New(remote remote, reconciler reconciler, interval time.Duration, opts ...Option) *Poller {
	p := &Poller{
		remote:       remote,
		reconciler:   reconciler,
		interval:     interval,
		cycleTimeout: defaultCycleTimeout,
		clock:        realClock{},
		logger:       zap.L(), // returns the global logger.
		scope:        &sync.Mutex{},
		trigger:      make(chan struct{}, 1),
		stopped:      make(chan struct{}),
	}
	for _, o := range opts {
		o(p)
	}
	p.status.Interval = interval.String()
	return p
}

// Run polls until ctx is done or Stop is called. Every cycle, whatever its
// outcome, ends by replacing the pending timer with a new one for the
// configured interval. On shutdown the pending timer is stopped; an in-flight
// cycle is allowed to finish. A stopped poller does not run again.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("starting poller", zap.Duration("interval", p.interval))
	for {
		select {
		case <-p.stopped:
			p.logger.Info("poller stopped")
			return nil
		default:
		}

		p.cycle(ctx)
		timer := p.arm()
		if timer == nil {
			continue
		}

		select {
		case <-ctx.Done():
			p.Stop()
		case <-p.stopped:
		case <-timer.C():
		case <-p.trigger:
			p.logger.Debug("poll requested")
		}
	}
}

// Poll asks the running loop to start a cycle now. Requests made while one
// is already queued are merged.
func (p *Poller) Poll() {
	select {
	case p.trigger <- struct{}{}:
	default:
	}
}

// Stop clears the pending timer and ends Run.
func (p *Poller) Stop() {
	p.mu.Lock()
	p.halted = true
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.status.Phase = PhaseIdle
	p.status.NextPoll = time.Time{}
	p.mu.Unlock()
	p.stopOnce.Do(func() { close(p.stopped) })
}

func (p *Poller) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *Poller) arm() Timer {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status.Cycles++
	if p.halted {
		return nil
	}
	if p.timer != nil {
		p.timer.Stop()
	}
	p.timer = p.clock.NewTimer(p.interval)
	p.status.Phase = PhaseArmed
	p.status.NextPoll = p.clock.Now().Add(p.interval)
	return p.timer
}

func (p *Poller) setPhase(phase Phase) {
	p.mu.Lock()
	p.status.Phase = phase
	p.mu.Unlock()
}

func (p *Poller) fail(err error) {
	p.logger.Error("poll cycle failed", zap.Error(err))
	p.mu.Lock()
	p.status.LastError = err.Error()
	p.mu.Unlock()
}

func (p *Poller) cycle(parent context.Context) {
	ctx, cancel := contxt.Detached(parent, p.cycleTimeout)
	defer cancel()

	summary, err := p.fetch(ctx)
	if err != nil {
		p.fail(err)
		return
	}

	p.setPhase(PhaseReconciling)
	if err := p.reconciler.Reconcile(ctx, schema.Project(summary), summary); err != nil {
		p.fail(err)
		return
	}

	p.mu.Lock()
	p.status.LastError = ""
	p.status.LastSuccess = p.clock.Now()
	p.mu.Unlock()
	p.logger.Debug("poll cycle complete", zap.String("network", summary.NetworkName()), zap.Int("devices", len(summary.Devices)))
}

// fetch selects the default network and reads its summary under the scope
// lock, so a relayed command cannot switch networks in between.
func (p *Poller) fetch(ctx context.Context) (*model.Summary, error) {
	p.scope.Lock()
	defer p.scope.Unlock()

	p.setPhase(PhaseConnecting)
	if err := p.remote.Connect(ctx, ""); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnect, err)
	}

	p.setPhase(PhaseFetching)
	summary, err := p.remote.FetchSummary(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	return summary, nil
}
