package api

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/JCampos05/taskeer-notify/internal/model"
)

// Repository performs the notification REST operations. It holds no
// local state: callers (the reconciler, via the composed client) apply
// the results.
type Repository struct {
	client *Client
	logger *log.Logger
}

// NewRepository creates a Repository over the given HTTP client.
func NewRepository(client *Client, logger *log.Logger) *Repository {
	if logger == nil {
		logger = log.Default()
	}
	return &Repository{client: client, logger: logger}
}

// SetToken replaces the bearer token used for subsequent requests.
func (r *Repository) SetToken(token string) {
	r.client.SetToken(token)
}

// FetchAll retrieves the authoritative notification list. It fails
// soft: the snapshot only seeds the reconciler and the live channel
// compensates, so any transport or decode error is logged and an empty
// list returned.
func (r *Repository) FetchAll(ctx context.Context) []model.Notification {
	raw, err := r.client.GetRaw(ctx, "")
	if err != nil {
		r.logger.Warn("fetching notifications", "err", err)
		return nil
	}

	list, skipped, err := model.DecodeWireList(raw)
	if err != nil {
		r.logger.Warn("decoding notification list", "err", err)
		return nil
	}
	if skipped > 0 {
		r.logger.Warn("dropped malformed notifications from snapshot", "count", skipped)
	}

	return list
}

// MarkRead marks a single notification as read on the server. On
// failure local state is left untouched and the error is surfaced.
func (r *Repository) MarkRead(ctx context.Context, id int) error {
	if err := r.client.Put(ctx, fmt.Sprintf("/%d/leer", id), nil, nil); err != nil {
		return fmt.Errorf("marking notification %d read: %w", id, err)
	}
	return nil
}

// MarkAllRead marks every notification as read on the server.
func (r *Repository) MarkAllRead(ctx context.Context) error {
	if err := r.client.Put(ctx, "/leer-todas", nil, nil); err != nil {
		return fmt.Errorf("marking all notifications read: %w", err)
	}
	return nil
}

// AcceptInvitation accepts a list invitation carried by the given
// notification.
func (r *Repository) AcceptInvitation(ctx context.Context, id int) error {
	if err := r.client.Post(ctx, fmt.Sprintf("/%d/aceptar", id), nil, nil); err != nil {
		return fmt.Errorf("accepting invitation %d: %w", id, err)
	}
	return nil
}

// RejectInvitation rejects a list invitation carried by the given
// notification.
func (r *Repository) RejectInvitation(ctx context.Context, id int) error {
	if err := r.client.Post(ctx, fmt.Sprintf("/%d/rechazar", id), nil, nil); err != nil {
		return fmt.Errorf("rejecting invitation %d: %w", id, err)
	}
	return nil
}

// CreateRepeat asks the backend to generate a repeat notification for a
// recurring task.
func (r *Repository) CreateRepeat(ctx context.Context, taskID int, taskName, dueDate string) error {
	body := map[string]interface{}{
		"tareaId":          taskID,
		"tareaNombre":      taskName,
		"fechaVencimiento": dueDate,
	}
	if err := r.client.Post(ctx, "/crear-repeticion", body, nil); err != nil {
		return fmt.Errorf("creating repeat for task %d: %w", taskID, err)
	}
	return nil
}

// ScheduleReminder asks the backend to schedule a reminder notification
// for a task.
func (r *Repository) ScheduleReminder(ctx context.Context, taskID int, taskName, remindAt string) error {
	body := map[string]interface{}{
		"tareaId":           taskID,
		"tareaNombre":       taskName,
		"fechaRecordatorio": remindAt,
	}
	if err := r.client.Post(ctx, "/programar-recordatorio", body, nil); err != nil {
		return fmt.Errorf("scheduling reminder for task %d: %w", taskID, err)
	}
	return nil
}
