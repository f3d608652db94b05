// Package client composes the store, REST repository, live event
// channel, reconciler and dispatcher into the notification pipeline.
package client

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/JCampos05/taskeer-notify/internal/api"
	"github.com/JCampos05/taskeer-notify/internal/credential"
	"github.com/JCampos05/taskeer-notify/internal/dispatch"
	"github.com/JCampos05/taskeer-notify/internal/localstore"
	"github.com/JCampos05/taskeer-notify/internal/model"
	"github.com/JCampos05/taskeer-notify/internal/reconcile"
	"github.com/JCampos05/taskeer-notify/internal/stream"
	"github.com/JCampos05/taskeer-notify/internal/sync"
)

// Client owns the notification pipeline for one signed-in user.
type Client struct {
	cfg    *model.AppConfig
	store  localstore.Store
	logger *log.Logger

	repo       *api.Repository
	channel    *stream.Channel
	reconciler *reconcile.Reconciler
	router     *dispatch.Router
	poller     *sync.Poller

	unsubscribe string
	started     bool
}

// New wires the pipeline. The navigator and alerter come from the host
// UI; a nil tone uses the stub.
func New(cfg *model.AppConfig, store localstore.Store, nav dispatch.Navigator, alerts dispatch.Alerter, tone dispatch.Tone, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.Default()
	}

	apiClient := api.NewClient(cfg.Backend.APIBaseURL, "",
		time.Duration(cfg.Backend.RequestTimeoutSec)*time.Second)

	c := &Client{
		cfg:        cfg,
		store:      store,
		logger:     logger,
		repo:       api.NewRepository(apiClient, logger),
		reconciler: reconcile.New(store, logger),
		router:     dispatch.New(nav, alerts, tone, logger),
	}

	c.channel = stream.New(stream.Config{
		URL:                  cfg.Backend.SSEURL,
		Token:                func() string { return credential.LoadToken(store) },
		MaxReconnectAttempts: cfg.Stream.MaxReconnectAttempts,
		BaseDelay:            time.Duration(cfg.Stream.ReconnectBaseMS) * time.Millisecond,
		MaxDelay:             time.Duration(cfg.Stream.ReconnectMaxMS) * time.Millisecond,
	}, logger)

	c.channel.OnNotification(c.reconciler.ApplyIncoming)
	c.channel.OnReadReceipt(c.reconciler.ApplyReadReceipt)

	// The live channel can miss events while reconnecting, so the full
	// snapshot is re-fetched periodically as a safety net.
	c.poller = sync.New(c.Refresh,
		time.Duration(cfg.Backend.RefreshIntervalSec)*time.Second, logger)

	return c
}

// Subscribe registers a listener for reconciled state changes and
// returns its handle.
func (c *Client) Subscribe(fn reconcile.Subscriber) string {
	return c.reconciler.Subscribe(fn)
}

// Unsubscribe removes a listener by handle.
func (c *Client) Unsubscribe(id string) {
	c.reconciler.Unsubscribe(id)
}

// OnStateChange registers a listener for connection state transitions.
// Must be called before Start.
func (c *Client) OnStateChange(fn func(model.ConnState)) {
	c.channel.OnStateChange(fn)
}

// ConnState reports the live channel's current state.
func (c *Client) ConnState() model.ConnState {
	return c.channel.State()
}

// Notifications returns the current visible notifications, newest first.
func (c *Client) Notifications() []model.Notification {
	return c.reconciler.Notifications()
}

// UnreadCount returns the derived unread counter.
func (c *Client) UnreadCount() int {
	return c.reconciler.UnreadCount()
}

// UnreadChatCount returns the unread chat messages for one list.
func (c *Client) UnreadChatCount(listID int) int {
	return c.reconciler.UnreadChatCount(listID)
}

// Start brings the pipeline up: cached snapshot first, then a fresh
// one from the backend, then the live channel. It waits a bounded time
// for an auth token to appear before giving up.
func (c *Client) Start(ctx context.Context) error {
	if c.started {
		return nil
	}
	c.started = true

	// Show whatever we saw last time while the network catches up. The
	// cache loads before the side-effect subscriber so stale entries
	// never raise alerts; the fresh snapshot below re-confirms them.
	if cached, err := c.store.CachedNotifications(ctx); err != nil {
		c.logger.Warn("could not load cached notifications", "error", err)
	} else if len(cached) > 0 {
		c.reconciler.LoadSnapshot(cached)
	}

	// Route every unread notification to its side effect, whether it
	// arrived over the live channel or in a snapshot: a revocation that
	// happened while this client was offline still fires its alert on
	// load. The router's processed set keeps repeats from re-firing.
	c.unsubscribe = c.reconciler.Subscribe(func(u reconcile.Update) {
		for _, n := range u.Notifications {
			if !n.Read {
				c.router.Dispatch(n)
			}
		}
	})

	token, err := c.waitForToken(ctx)
	if err != nil {
		return err
	}
	c.repo.SetToken(token)

	if err := c.Refresh(ctx); err != nil {
		c.logger.Warn("initial refresh failed", "error", err)
	}
	c.channel.Connect()
	c.poller.Start()
	return nil
}

// Stop tears the pipeline down. Safe to call more than once.
func (c *Client) Stop(ctx context.Context) {
	if !c.started {
		return
	}
	c.started = false

	c.poller.Stop()
	c.channel.Disconnect()
	c.router.Stop()
	if c.unsubscribe != "" {
		c.reconciler.Unsubscribe(c.unsubscribe)
		c.unsubscribe = ""
	}

	// Persist the last reconciled state for the next session.
	if err := c.store.CacheNotifications(ctx, c.reconciler.Notifications()); err != nil {
		c.logger.Warn("could not cache notifications", "error", err)
	}
}

// Refresh replaces the reconciled state with a fresh backend snapshot.
// On network failure the current state is kept.
func (c *Client) Refresh(ctx context.Context) error {
	list := c.repo.FetchAll(ctx)
	if list == nil {
		return nil
	}
	c.reconciler.LoadSnapshot(list)

	if err := c.store.CacheNotifications(ctx, c.reconciler.Notifications()); err != nil {
		return fmt.Errorf("caching notifications: %w", err)
	}
	return nil
}

// Reconnect resets the backoff counter and forces a new connection
// attempt on the live channel.
func (c *Client) Reconnect() {
	c.channel.Reconnect()
}

// MarkRead marks a notification read on the backend and locally.
func (c *Client) MarkRead(ctx context.Context, id int) error {
	if err := c.repo.MarkRead(ctx, id); err != nil {
		return err
	}
	c.reconciler.MarkLocalRead(id)
	return nil
}

// MarkAllRead marks every notification read on the backend, then
// refreshes so the backend's post-mutation state wins.
func (c *Client) MarkAllRead(ctx context.Context) error {
	if err := c.repo.MarkAllRead(ctx); err != nil {
		return err
	}
	if err := c.Refresh(ctx); err != nil {
		return fmt.Errorf("refreshing after marking all read: %w", err)
	}
	return nil
}

// AcceptInvitation accepts a list invitation, then refreshes so the
// backend's post-acceptance state wins.
func (c *Client) AcceptInvitation(ctx context.Context, id int) error {
	if err := c.repo.AcceptInvitation(ctx, id); err != nil {
		return fmt.Errorf("accepting invitation %d: %w", id, err)
	}
	if err := c.Refresh(ctx); err != nil {
		return fmt.Errorf("refreshing after accepting invitation %d: %w", id, err)
	}
	return nil
}

// RejectInvitation rejects a list invitation, then refreshes.
func (c *Client) RejectInvitation(ctx context.Context, id int) error {
	if err := c.repo.RejectInvitation(ctx, id); err != nil {
		return fmt.Errorf("rejecting invitation %d: %w", id, err)
	}
	if err := c.Refresh(ctx); err != nil {
		return fmt.Errorf("refreshing after rejecting invitation %d: %w", id, err)
	}
	return nil
}

// CreateRepeat asks the backend to schedule the next occurrence of a
// repeating task.
func (c *Client) CreateRepeat(ctx context.Context, n model.Notification) error {
	if n.Payload.TaskID == nil {
		return fmt.Errorf("notification %d carries no task", n.ID)
	}
	return c.repo.CreateRepeat(ctx, *n.Payload.TaskID, n.Payload.TaskName, n.Payload.DueDate)
}

// ScheduleReminder asks the backend to schedule a reminder for a task.
func (c *Client) ScheduleReminder(ctx context.Context, n model.Notification, remindAt string) error {
	if n.Payload.TaskID == nil {
		return fmt.Errorf("notification %d carries no task", n.ID)
	}
	return c.repo.ScheduleReminder(ctx, *n.Payload.TaskID, n.Payload.TaskName, remindAt)
}

// Hide removes a notification from view without telling the backend.
func (c *Client) Hide(id int) {
	c.reconciler.Hide(id)
}

// RestoreHidden clears the hidden set so future snapshots show
// everything again.
func (c *Client) RestoreHidden() {
	c.reconciler.RestoreHidden()
}

// Open marks a notification read and routes its click navigation.
func (c *Client) Open(ctx context.Context, n model.Notification) error {
	if !n.Read {
		if err := c.MarkRead(ctx, n.ID); err != nil {
			return err
		}
	}
	c.router.HandleClick(n)
	return nil
}

// waitForToken polls for an auth token for a bounded time. The first
// session often starts before the user has signed in.
func (c *Client) waitForToken(ctx context.Context) (string, error) {
	attempts := c.cfg.Stream.TokenPollAttempts
	if attempts <= 0 {
		attempts = 1
	}
	interval := time.Duration(c.cfg.Stream.TokenPollIntervalSec) * time.Second
	if interval <= 0 {
		interval = time.Second
	}

	for i := 0; i < attempts; i++ {
		if token := credential.LoadToken(c.store); token != "" {
			return token, nil
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(interval):
		}
	}
	return "", fmt.Errorf("no auth token after %d attempts", attempts)
}
