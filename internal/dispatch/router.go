// Package dispatch routes newly-unread notifications to their per-kind
// side effects.
package dispatch

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/JCampos05/taskeer-notify/internal/model"
)

// criticalDelay is how long a critical alert stays on screen before its
// automatic navigation or reload fires, so the user sees it first.
const criticalDelay = 2 * time.Second

// Alert display durations.
const (
	criticalAlertDuration = 5 * time.Second
	normalAlertDuration   = 3 * time.Second
)

// Navigator abstracts the host application's navigation surface.
type Navigator interface {
	// NavigateToList opens the given list's view.
	NavigateToList(listID int)

	// NavigateToLists opens the shared-lists overview.
	NavigateToLists()

	// NavigateToDefault opens the default daily view.
	NavigateToDefault()

	// ReloadCurrent fully reloads the current view so changed
	// permissions take effect.
	ReloadCurrent()

	// CurrentListID reports which list the user is viewing, if any.
	CurrentListID() (int, bool)
}

// Alert is a user-visible notification banner.
type Alert struct {
	Title    string
	Message  string
	Critical bool
	Duration time.Duration

	// OnClick, when set, is the navigation the host fires if the user
	// activates the alert. For critical alerts the router fires it
	// automatically after criticalDelay.
	OnClick func()
}

// Alerter displays alerts to the user.
type Alerter interface {
	Show(alert Alert)
}

// Tone plays a short notification sound.
type Tone interface {
	Play()
}

// NoopTone is the stubbed sound implementation.
type NoopTone struct{}

func (NoopTone) Play() {}

// Router decides and executes one side effect per notification. Each
// notification ID is processed at most once; the processed set is
// distinct from the reconciler's hidden set.
type Router struct {
	nav    Navigator
	alerts Alerter
	tone   Tone
	logger *log.Logger

	mu        sync.Mutex
	processed map[int]struct{}
	timers    map[*time.Timer]struct{}
	stopped   bool

	// afterFunc schedules delayed actions; tests replace it.
	afterFunc func(d time.Duration, fn func()) *time.Timer
}

// New creates a Router. A nil tone defaults to the stub.
func New(nav Navigator, alerts Alerter, tone Tone, logger *log.Logger) *Router {
	if tone == nil {
		tone = NoopTone{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Router{
		nav:       nav,
		alerts:    alerts,
		tone:      tone,
		logger:    logger,
		processed: make(map[int]struct{}),
		timers:    make(map[*time.Timer]struct{}),
		afterFunc: time.AfterFunc,
	}
}

// Stop cancels every pending delayed action. Further Dispatch calls
// schedule nothing.
func (r *Router) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = true
	for t := range r.timers {
		t.Stop()
	}
	r.timers = make(map[*time.Timer]struct{})
}

// Dispatch executes the side effect for a notification that just
// became visible and unread. Repeat calls for the same ID are no-ops.
func (r *Router) Dispatch(n model.Notification) {
	r.mu.Lock()
	if _, done := r.processed[n.ID]; done {
		r.mu.Unlock()
		return
	}
	r.processed[n.ID] = struct{}{}
	r.mu.Unlock()

	switch {
	case n.Kind == model.KindReminder:
		r.handleReminder(n)
	case n.Kind == model.KindChatMessage:
		r.handleChatMessage(n)
	case n.Kind == model.KindRoleChanged:
		r.handleRoleChanged(n)
	case n.Kind == model.KindInvitation:
		r.handleInvitation(n)
	case n.Kind == model.KindTaskAssigned:
		r.handleTaskAssigned(n)
	case n.IsRevocation():
		r.handleRevocation(n)
	default:
		// Not every notification needs a side effect.
		r.logger.Debug("no side effect for notification",
			"id", n.ID, "kind", n.Kind)
	}
}

// HandleClick is the explicit user-click path: it navigates without
// re-running the alert side effects.
func (r *Router) HandleClick(n model.Notification) {
	switch n.Kind {
	case model.KindReminder, model.KindChatMessage,
		model.KindTaskAssigned, model.KindRoleChanged,
		model.KindComment, model.KindTaskRepeat:
		if n.Payload.ListID != nil {
			r.nav.NavigateToList(*n.Payload.ListID)
			return
		}
		r.nav.NavigateToDefault()
	case model.KindInvitation:
		r.nav.NavigateToLists()
	default:
		r.nav.NavigateToDefault()
	}
}

func (r *Router) handleReminder(n model.Notification) {
	p := n.Payload

	message := fmt.Sprintf("%q", p.TaskName)
	if p.DueDate != "" {
		message += " - Vence: " + p.DueDate
	}

	listID := p.ListID
	r.showAlert(Alert{
		Title:    "Recordatorio de tarea",
		Message:  message,
		Critical: true,
		OnClick: func() {
			if listID != nil {
				r.nav.NavigateToList(*listID)
				return
			}
			r.nav.NavigateToDefault()
		},
	})
}

func (r *Router) handleChatMessage(n model.Notification) {
	p := n.Payload

	listID := p.ListID
	r.showAlert(Alert{
		Title:   "Nuevo mensaje",
		Message: fmt.Sprintf("%s escribió en %q", p.SenderName, p.ListName),
		OnClick: func() {
			if listID != nil {
				r.nav.NavigateToList(*listID)
			}
		},
	})
}

func (r *Router) handleRoleChanged(n model.Notification) {
	p := n.Payload

	listID := p.ListID
	r.showAlert(Alert{
		Title: "Cambio de permisos",
		Message: fmt.Sprintf("%s cambió tu rol en %q de %s a %s",
			p.ChangedBy, p.ListName, p.PreviousRole, p.NewRole),
		Critical: true,
		OnClick: func() {
			if listID != nil {
				r.nav.NavigateToList(*listID)
			}
		},
	})

	// If the user is viewing the affected list, reload it so the new
	// permissions take effect, after the alert has been visible.
	if listID != nil {
		if current, ok := r.nav.CurrentListID(); ok && current == *listID {
			r.schedule(criticalDelay, r.nav.ReloadCurrent)
		}
	}
}

func (r *Router) handleInvitation(n model.Notification) {
	p := n.Payload

	// Invitations never auto-navigate: the user has to accept or
	// reject first.
	r.showAlert(Alert{
		Title:   "Nueva invitación",
		Message: fmt.Sprintf("%s te invitó a %q", p.InvitedBy, p.ListName),
		OnClick: r.nav.NavigateToLists,
	})
}

func (r *Router) handleTaskAssigned(n model.Notification) {
	p := n.Payload

	listID := p.ListID
	r.showAlert(Alert{
		Title:   "Tarea asignada",
		Message: fmt.Sprintf("Nueva tarea: %q en %s", p.TaskName, p.ListName),
		OnClick: func() {
			if listID != nil {
				r.nav.NavigateToList(*listID)
			}
		},
	})

	r.tone.Play()
}

func (r *Router) handleRevocation(n model.Notification) {
	p := n.Payload

	r.showAlert(Alert{
		Title:    "Acceso revocado",
		Message:  fmt.Sprintf("%s revocó tu acceso a %q", p.RevokedBy, p.ListName),
		Critical: true,
		OnClick:  r.nav.NavigateToDefault,
	})

	// If the user is on the now-forbidden list, get them out
	// immediately instead of waiting for the critical delay.
	if p.ListID != nil {
		if current, ok := r.nav.CurrentListID(); ok && current == *p.ListID {
			r.nav.NavigateToDefault()
		}
	}
}

// showAlert displays an alert and, for critical ones, schedules the
// automatic navigation.
func (r *Router) showAlert(alert Alert) {
	if alert.Duration == 0 {
		if alert.Critical {
			alert.Duration = criticalAlertDuration
		} else {
			alert.Duration = normalAlertDuration
		}
	}

	r.alerts.Show(alert)

	if alert.Critical && alert.OnClick != nil {
		r.schedule(criticalDelay, alert.OnClick)
	}
}

// schedule arms a cancellable delayed action tracked until it fires.
func (r *Router) schedule(d time.Duration, fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return
	}

	var t *time.Timer
	t = r.afterFunc(d, func() {
		r.mu.Lock()
		delete(r.timers, t)
		stopped := r.stopped
		r.mu.Unlock()
		if !stopped {
			fn()
		}
	})
	r.timers[t] = struct{}{}
}
