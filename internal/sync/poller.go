// Package sync re-fetches the notification snapshot on a timer, so
// events the live channel missed still reconcile eventually.
package sync

import (
	"context"
	gosync "sync"
	"time"

	"github.com/charmbracelet/log"
)

// refreshTimeout bounds a single snapshot fetch.
const refreshTimeout = 30 * time.Second

// State is the poller's lifecycle state.
type State int

const (
	Idle State = iota
	Running
)

// Status reports the last completed refresh.
type Status struct {
	State       State
	LastRefresh time.Time
	LastError   error
}

// Poller calls a refresh function on a fixed interval and on demand.
type Poller struct {
	refresh  func(ctx context.Context) error
	interval time.Duration
	logger   *log.Logger

	mu        gosync.Mutex
	status    Status
	running   bool
	triggerCh chan struct{}
	stopCh    chan struct{}
}

// New creates a Poller that invokes refresh every interval. An interval
// of zero disables the timer; TriggerNow still works.
func New(refresh func(ctx context.Context) error, interval time.Duration, logger *log.Logger) *Poller {
	if logger == nil {
		logger = log.Default()
	}
	return &Poller{
		refresh:   refresh,
		interval:  interval,
		logger:    logger,
		triggerCh: make(chan struct{}, 1),
	}
}

// Start launches the polling goroutine. Repeat calls are no-ops, and a
// stopped poller may be started again.
func (p *Poller) Start() {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.stopCh = make(chan struct{})
	stopCh := p.stopCh
	p.mu.Unlock()

	go p.loop(stopCh)
}

// Stop halts the polling goroutine.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}
	close(p.stopCh)
	p.running = false
}

// TriggerNow requests an immediate refresh without blocking. A request
// already pending is enough; extra triggers are dropped.
func (p *Poller) TriggerNow() {
	select {
	case p.triggerCh <- struct{}{}:
	default:
	}
}

// Status returns the last refresh outcome.
func (p *Poller) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *Poller) loop(stopCh <-chan struct{}) {
	var tick <-chan time.Time
	if p.interval > 0 {
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-stopCh:
			return
		case <-tick:
			p.runRefresh()
		case <-p.triggerCh:
			p.runRefresh()
		}
	}
}

func (p *Poller) runRefresh() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.status.State = Running
	p.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	err := p.refresh(ctx)
	cancel()

	if err != nil {
		p.logger.Warn("periodic refresh failed", "error", err)
	}

	p.mu.Lock()
	p.status = Status{State: Idle, LastRefresh: time.Now(), LastError: err}
	p.mu.Unlock()
}
