package stream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/JCampos05/taskeer-notify/internal/model"
)

// Named events the backend emits on the notification stream.
const (
	eventNotification = "nueva_notificacion"
	eventReadReceipt  = "notificacion_leida"
)

// tokenRetryDelay is used when a connect is attempted before a token
// exists; the channel waits a fixed beat instead of backing off.
const tokenRetryDelay = 3 * time.Second

// Config holds the channel's connection settings.
type Config struct {
	// URL is the event-stream endpoint; the auth token is appended as
	// a query parameter.
	URL string

	// Token returns the current auth token, or "" when none exists.
	Token func() string

	// MaxReconnectAttempts caps automatic reconnects. After the cap
	// the channel stays down until Reconnect is called.
	MaxReconnectAttempts int

	// BaseDelay and MaxDelay bound the exponential backoff.
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// Channel maintains at most one live event-stream subscription and
// reconnects with exponential backoff when it drops. All exported
// methods are safe for concurrent use.
type Channel struct {
	cfg        Config
	logger     *log.Logger
	httpClient *http.Client

	onNotification func(model.Notification)
	onReadReceipt  func(id int)
	onStateChange  func(model.ConnState)

	mu             sync.Mutex
	state          model.ConnState
	attempts       int
	gen            int
	cancel         context.CancelFunc
	reconnectTimer *time.Timer

	// afterFunc schedules the reconnect timer; tests replace it to
	// observe delays without waiting.
	afterFunc func(d time.Duration, fn func()) *time.Timer
}

// New creates a disconnected channel. Handlers must be registered
// before the first Connect.
func New(cfg Config, logger *log.Logger) *Channel {
	if cfg.MaxReconnectAttempts <= 0 {
		cfg.MaxReconnectAttempts = 5
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = time.Second
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 30 * time.Second
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Channel{
		cfg:    cfg,
		logger: logger,
		// No client timeout: the stream is long-lived by design.
		httpClient: &http.Client{},
		state:      model.StateDisconnected,
		afterFunc:  time.AfterFunc,
	}
}

// OnNotification registers the handler for new-notification events.
func (c *Channel) OnNotification(fn func(model.Notification)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onNotification = fn
}

// OnReadReceipt registers the handler for read-receipt events
// broadcast from other sessions.
func (c *Channel) OnReadReceipt(fn func(id int)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onReadReceipt = fn
}

// OnStateChange registers the connection-state observer.
func (c *Channel) OnStateChange(fn func(model.ConnState)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onStateChange = fn
}

// State returns the current connection state.
func (c *Channel) State() model.ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect opens a new stream, closing any prior one first. Opening is
// asynchronous; the state observer sees connecting and then connected
// or a scheduled reconnect.
func (c *Channel) Connect() {
	c.withLock(func(pending *[]model.ConnState) {
		c.connectLocked(pending)
	})
}

// Reconnect resets the attempt counter and connects. It is the explicit
// escape hatch after the automatic attempt cap has been exhausted.
func (c *Channel) Reconnect() {
	c.withLock(func(pending *[]model.ConnState) {
		c.attempts = 0
		c.connectLocked(pending)
	})
}

// Disconnect cancels any pending reconnect timer and closes the active
// stream. It is idempotent and reachable from every state.
func (c *Channel) Disconnect() {
	c.withLock(func(pending *[]model.ConnState) {
		c.teardownLocked()
		c.setStateLocked(model.StateDisconnected, pending)
	})
}

// withLock runs fn under the mutex and then delivers any state changes
// it recorded, outside the lock so observers may call back in.
func (c *Channel) withLock(fn func(pending *[]model.ConnState)) {
	var pending []model.ConnState
	c.mu.Lock()
	fn(&pending)
	cb := c.onStateChange
	c.mu.Unlock()

	if cb != nil {
		for _, s := range pending {
			cb(s)
		}
	}
}

// setStateLocked records a state transition. Caller holds the mutex.
func (c *Channel) setStateLocked(s model.ConnState, pending *[]model.ConnState) {
	if c.state == s {
		return
	}
	c.state = s
	*pending = append(*pending, s)
}

// teardownLocked cancels the reconnect timer and the active stream, and
// bumps the generation so in-flight goroutines become stale.
func (c *Channel) teardownLocked() {
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.gen++
}

// connectLocked starts a fresh stream goroutine. Caller holds the mutex.
func (c *Channel) connectLocked(pending *[]model.ConnState) {
	c.teardownLocked()

	token := ""
	if c.cfg.Token != nil {
		token = c.cfg.Token()
	}
	if token == "" {
		c.logger.Warn("no auth token for event stream, retrying shortly")
		c.setStateLocked(model.StateDisconnected, pending)
		c.scheduleReconnectLocked(tokenRetryDelay, pending)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	gen := c.gen
	c.setStateLocked(model.StateConnecting, pending)

	url := fmt.Sprintf("%s?token=%s", c.cfg.URL, token)
	go c.run(ctx, gen, url)
}

// run owns one stream from open to failure. It reports back through
// streamOpened/streamFailed, which ignore it once superseded.
func (c *Channel) run(ctx context.Context, gen int, url string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		c.streamFailed(gen, fmt.Errorf("creating stream request: %w", err))
		return
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		c.streamFailed(gen, fmt.Errorf("opening stream: %w", err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.streamFailed(gen, fmt.Errorf("stream returned status %d", resp.StatusCode))
		return
	}

	c.streamOpened(gen)

	err = parseEvents(resp.Body, func(ev Event) {
		c.handleEvent(gen, ev)
	})

	if ctx.Err() != nil {
		// Torn down on purpose; Disconnect already set the state.
		return
	}
	if err == nil {
		err = errors.New("server closed the stream")
	}
	c.streamFailed(gen, err)
}

// streamOpened resets the attempt counter and marks the channel
// connected.
func (c *Channel) streamOpened(gen int) {
	c.withLock(func(pending *[]model.ConnState) {
		if gen != c.gen {
			return
		}
		c.attempts = 0
		c.setStateLocked(model.StateConnected, pending)
		c.logger.Info("event stream connected")
	})
}

// streamFailed tears the stream down and schedules a reconnect.
func (c *Channel) streamFailed(gen int, err error) {
	c.withLock(func(pending *[]model.ConnState) {
		if gen != c.gen {
			return
		}
		c.logger.Warn("event stream failed", "err", err)
		if c.cancel != nil {
			c.cancel()
			c.cancel = nil
		}
		c.gen++
		c.setStateLocked(model.StateDisconnected, pending)
		c.scheduleReconnectLocked(0, pending)
	})
}

// scheduleReconnectLocked arms the backoff timer. A zero delay means
// "use the backoff formula". After the attempt cap the channel goes
// quiet until an explicit Reconnect. Caller holds the mutex.
func (c *Channel) scheduleReconnectLocked(delay time.Duration, pending *[]model.ConnState) {
	if c.attempts >= c.cfg.MaxReconnectAttempts {
		c.logger.Error("reconnect attempts exhausted",
			"attempts", c.attempts)
		return
	}

	if delay <= 0 {
		delay = backoffDelay(c.attempts, c.cfg.BaseDelay, c.cfg.MaxDelay)
	}
	c.attempts++

	gen := c.gen
	c.setStateLocked(model.StateReconnectScheduled, pending)
	c.logger.Info("reconnect scheduled",
		"delay", delay,
		"attempt", c.attempts,
		"max", c.cfg.MaxReconnectAttempts)

	c.reconnectTimer = c.afterFunc(delay, func() {
		c.timerFired(gen)
	})
}

// timerFired is the reconnect timer callback.
func (c *Channel) timerFired(gen int) {
	c.withLock(func(pending *[]model.ConnState) {
		if gen != c.gen || c.state != model.StateReconnectScheduled {
			return
		}
		c.reconnectTimer = nil
		c.connectLocked(pending)
	})
}

// handleEvent routes one parsed stream event. Malformed payloads are
// logged and dropped; they never reach the reconciler.
func (c *Channel) handleEvent(gen int, ev Event) {
	c.mu.Lock()
	stale := gen != c.gen
	onNotification := c.onNotification
	onReadReceipt := c.onReadReceipt
	c.mu.Unlock()
	if stale {
		return
	}

	switch ev.Name {
	case eventNotification:
		n, err := model.DecodeWire(ev.Data)
		if err != nil {
			if errors.Is(err, model.ErrControlEvent) {
				c.logger.Debug("stream control event, ignoring")
				return
			}
			c.logger.Warn("dropping malformed notification event", "err", err)
			return
		}
		if onNotification != nil {
			onNotification(n)
		}

	case eventReadReceipt:
		receipt, err := model.DecodeReadReceipt(ev.Data)
		if err != nil {
			c.logger.Warn("dropping malformed read receipt", "err", err)
			return
		}
		if onReadReceipt != nil {
			onReadReceipt(receipt.ID)
		}

	default:
		// Handshake and unknown control events update no state.
		c.logger.Debug("ignoring stream event", "event", ev.Name)
	}
}

// backoffDelay computes min(base * 2^attempt, max).
func backoffDelay(attempt int, base, max time.Duration) time.Duration {
	if attempt > 30 {
		attempt = 30
	}
	d := base << uint(attempt)
	if d > max || d <= 0 {
		d = max
	}
	return d
}
