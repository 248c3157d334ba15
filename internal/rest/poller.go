package rest

import (
	"context"
	"sync"
	"time"
)

// DefaultPollInterval is how often the poller refreshes device
// snapshots when no interval is configured.
const DefaultPollInterval = 5 * time.Minute

// DeviceLister is the slice of the client the poller depends on.
type DeviceLister interface {
	ListDevices(ctx context.Context) ([]Snapshot, error)
}

// Handler receives each polled snapshot.
type Handler func(Snapshot)

// Logger is the minimal logging interface the poller needs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// PollerConfig holds the poller settings.
type PollerConfig struct {
	// Interval between polls. Defaults to DefaultPollInterval.
	Interval time.Duration

	// Handler is invoked once per snapshot per poll. Required.
	Handler Handler

	// Logger for poll failures. Defaults to a no-op logger.
	Logger Logger
}

// Poller periodically fetches device snapshots and hands each one to
// the configured handler. A failed poll is logged and retried on the
// next tick; it never stops the loop.
type Poller struct {
	lister   DeviceLister
	interval time.Duration
	handler  Handler
	logger   Logger

	done    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
	started bool
	mu      sync.Mutex
}

// NewPoller creates a poller over the given lister.
func NewPoller(lister DeviceLister, cfg PollerConfig) *Poller {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	return &Poller{
		lister:   lister,
		interval: interval,
		handler:  cfg.Handler,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start launches the polling loop. The first poll happens immediately,
// then on every interval tick until Stop is called or ctx is cancelled.
// Starting an already started or stopped poller returns ErrStopped.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return ErrStopped
	}
	select {
	case <-p.done:
		return ErrStopped
	default:
	}
	p.started = true

	p.wg.Add(1)
	go p.loop(ctx)
	return nil
}

func (p *Poller) loop(ctx context.Context) {
	defer p.wg.Done()

	p.poll(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.poll(ctx)
		case <-ctx.Done():
			return
		case <-p.done:
			return
		}
	}
}

// Poll runs a single fetch-and-dispatch cycle synchronously. It is the
// same cycle the loop runs on each tick, exposed for on-demand refresh.
func (p *Poller) Poll(ctx context.Context) error {
	snapshots, err := p.lister.ListDevices(ctx)
	if err != nil {
		return err
	}
	p.dispatch(snapshots)
	return nil
}

func (p *Poller) poll(ctx context.Context) {
	snapshots, err := p.lister.ListDevices(ctx)
	if err != nil {
		p.logger.Warn("device poll failed", "error", err)
		return
	}
	p.logger.Debug("device poll complete", "devices", len(snapshots))
	p.dispatch(snapshots)
}

func (p *Poller) dispatch(snapshots []Snapshot) {
	if p.handler == nil {
		return
	}
	for _, snapshot := range snapshots {
		p.handler(snapshot)
	}
}

// Stop terminates the polling loop and waits for it to exit. Safe to
// call multiple times.
func (p *Poller) Stop() {
	p.once.Do(func() { close(p.done) })
	p.wg.Wait()
}
