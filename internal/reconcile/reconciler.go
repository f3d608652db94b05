// Package reconcile merges REST snapshots and live stream events into
// the single visible notification collection.
package reconcile

import (
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/JCampos05/taskeer-notify/internal/model"
)

// HiddenStore is the slice of the local store the reconciler delegates
// hidden-set persistence to.
type HiddenStore interface {
	HiddenIDs() map[int]struct{}
	AddHiddenID(id int) error
	ClearHiddenIDs() error
}

// Update is the state fan-out delivered to subscribers after every
// mutation of the visible collection.
type Update struct {
	// Notifications is the visible collection, newest pushed first.
	Notifications []model.Notification

	// UnreadCount is derived from Notifications; it is never tracked
	// independently.
	UnreadCount int

	// Added is set when a live event introduced a new visible entry,
	// which is what the side-effect router consumes.
	Added *model.Notification
}

// Subscriber receives reconciler updates.
type Subscriber func(Update)

// Reconciler exclusively owns the in-memory visible notification
// collection and its derived unread counter. Every mutation recomputes
// the counter from the collection; nothing ever sets it directly.
type Reconciler struct {
	store  HiddenStore
	logger *log.Logger

	mu          sync.Mutex
	visible     []model.Notification
	unread      int
	hidden      map[int]struct{}
	subscribers map[string]Subscriber
}

// New creates a Reconciler, loading the persisted hidden set.
func New(store HiddenStore, logger *log.Logger) *Reconciler {
	if logger == nil {
		logger = log.Default()
	}
	return &Reconciler{
		store:       store,
		logger:      logger,
		hidden:      store.HiddenIDs(),
		subscribers: make(map[string]Subscriber),
	}
}

// Subscribe registers a subscriber and returns its handle. Callbacks
// run outside the reconciler's lock, in call order, so they may call
// back into the reconciler (though not synchronously from inside a
// mutation they themselves triggered).
func (r *Reconciler) Subscribe(fn Subscriber) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := uuid.New().String()
	r.subscribers[id] = fn
	return id
}

// Unsubscribe removes a subscriber.
func (r *Reconciler) Unsubscribe(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.subscribers, id)
}

// Notifications returns a copy of the visible collection.
func (r *Reconciler) Notifications() []model.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Notification(nil), r.visible...)
}

// UnreadCount returns the derived unread counter.
func (r *Reconciler) UnreadCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unread
}

// UnreadChatCount returns how many unread chat messages belong to the
// given list, for per-list badges.
func (r *Reconciler) UnreadChatCount(listID int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, n := range r.visible {
		if n.Read || n.Kind != model.KindChatMessage {
			continue
		}
		if n.Payload.ListID != nil && *n.Payload.ListID == listID {
			count++
		}
	}
	return count
}

// LoadSnapshot replaces the visible collection with the REST snapshot,
// filtered against the hidden set. The snapshot's own order is kept.
func (r *Reconciler) LoadSnapshot(list []model.Notification) {
	r.mutate(func() *model.Notification {
		visible := make([]model.Notification, 0, len(list))
		for _, n := range list {
			if _, hidden := r.hidden[n.ID]; hidden {
				continue
			}
			visible = append(visible, n)
		}
		r.visible = visible
		return nil
	})
}

// ApplyIncoming merges one live-pushed notification. Duplicates and
// hidden IDs are ignored; new entries are prepended.
func (r *Reconciler) ApplyIncoming(n model.Notification) {
	r.mutate(func() *model.Notification {
		if _, hidden := r.hidden[n.ID]; hidden {
			r.logger.Debug("notification is hidden, not adding", "id", n.ID)
			return nil
		}
		for _, existing := range r.visible {
			if existing.ID == n.ID {
				r.logger.Debug("duplicate notification, ignoring", "id", n.ID)
				return nil
			}
		}
		r.visible = append([]model.Notification{n}, r.visible...)
		return &n
	})
}

// ApplyReadReceipt marks the matching entry read. Read transitions are
// one-way; a receipt for an unknown ID is a no-op.
func (r *Reconciler) ApplyReadReceipt(id int) {
	r.mutate(func() *model.Notification {
		for i := range r.visible {
			if r.visible[i].ID == id {
				r.visible[i].Read = true
				break
			}
		}
		return nil
	})
}

// MarkLocalRead is the optimistic local mutation applied after a
// successful mark-read REST call. Same semantics as a read receipt.
func (r *Reconciler) MarkLocalRead(id int) {
	r.ApplyReadReceipt(id)
}

// MarkAllLocalRead marks every visible entry read.
func (r *Reconciler) MarkAllLocalRead() {
	r.mutate(func() *model.Notification {
		for i := range r.visible {
			r.visible[i].Read = true
		}
		return nil
	})
}

// Hide dismisses a notification locally: the ID joins the persisted
// hidden set and the entry leaves the visible collection. Idempotent.
func (r *Reconciler) Hide(id int) {
	r.mutate(func() *model.Notification {
		r.hidden[id] = struct{}{}
		if err := r.store.AddHiddenID(id); err != nil {
			r.logger.Warn("persisting hidden id", "id", id, "err", err)
		}
		for i := range r.visible {
			if r.visible[i].ID == id {
				r.visible = append(r.visible[:i], r.visible[i+1:]...)
				break
			}
		}
		return nil
	})
}

// RestoreHidden clears the hidden set. The next snapshot load brings
// previously hidden notifications back.
func (r *Reconciler) RestoreHidden() {
	r.mutate(func() *model.Notification {
		r.hidden = make(map[int]struct{})
		if err := r.store.ClearHiddenIDs(); err != nil {
			r.logger.Warn("clearing hidden ids", "err", err)
		}
		return nil
	})
}

// mutate runs one mutation, recomputes the unread counter from the
// visible collection, and fans the result out to subscribers outside
// the lock.
func (r *Reconciler) mutate(fn func() *model.Notification) {
	r.mu.Lock()
	added := fn()
	r.unread = countUnread(r.visible)

	update := Update{
		Notifications: append([]model.Notification(nil), r.visible...),
		UnreadCount:   r.unread,
		Added:         added,
	}
	subs := make([]Subscriber, 0, len(r.subscribers))
	for _, fn := range r.subscribers {
		subs = append(subs, fn)
	}
	r.mu.Unlock()

	for _, fn := range subs {
		fn(update)
	}
}

// countUnread derives the unread counter. This is the only place the
// counter is computed.
func countUnread(list []model.Notification) int {
	count := 0
	for _, n := range list {
		if !n.Read {
			count++
		}
	}
	return count
}
