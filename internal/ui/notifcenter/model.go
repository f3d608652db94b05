// Package notifcenter is the notification center list view.
package notifcenter

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/JCampos05/taskeer-notify/internal/keys"
	"github.com/JCampos05/taskeer-notify/internal/model"
	"github.com/JCampos05/taskeer-notify/internal/theme"
)

// NotificationsMsg replaces the visible notification set.
type NotificationsMsg struct {
	Notifications []model.Notification
	UnreadCount   int
}

// OpenMsg asks the host to open the selected notification.
type OpenMsg struct {
	Notification model.Notification
}

// MarkReadMsg asks the host to mark one notification read.
type MarkReadMsg struct {
	ID int
}

// MarkAllReadMsg asks the host to mark everything read.
type MarkAllReadMsg struct{}

// AcceptMsg asks the host to accept a list invitation.
type AcceptMsg struct {
	ID int
}

// RejectMsg asks the host to reject a list invitation.
type RejectMsg struct {
	ID int
}

// HideMsg asks the host to hide a notification locally.
type HideMsg struct {
	ID int
}

// RestoreHiddenMsg asks the host to clear the hidden set.
type RestoreHiddenMsg struct{}

// RefreshMsg asks the host for a fresh backend snapshot.
type RefreshMsg struct{}

// ReconnectMsg asks the host to force a live-channel reconnect.
type ReconnectMsg struct{}

// Model is the notification center view component.
type Model struct {
	list   list.Model
	keys   *keys.KeyMap
	unread int
	width  int
	height int
}

// New creates a new notification center model.
func New(k *keys.KeyMap, width, height int) Model {
	l := list.New([]list.Item{}, ItemDelegate{}, width, height)
	l.Title = "Notificaciones"
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	return Model{
		list:   l,
		keys:   k,
		width:  width,
		height: height,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the notification center.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case NotificationsMsg:
		items := make([]list.Item, len(msg.Notifications))
		for i, n := range msg.Notifications {
			items[i] = NotifItem{Notification: n}
		}
		m.unread = msg.UnreadCount
		cmd := m.list.SetItems(items)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKeys(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) handleKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Open):
		if n, ok := m.selected(); ok {
			return m, message(OpenMsg{Notification: n})
		}
		return m, nil

	case key.Matches(msg, m.keys.MarkRead):
		if n, ok := m.selected(); ok && !n.Read {
			return m, message(MarkReadMsg{ID: n.ID})
		}
		return m, nil

	case key.Matches(msg, m.keys.MarkAllRead):
		return m, message(MarkAllReadMsg{})

	case key.Matches(msg, m.keys.Accept):
		if n, ok := m.selected(); ok && n.Kind == model.KindInvitation {
			return m, message(AcceptMsg{ID: n.ID})
		}
		return m, nil

	case key.Matches(msg, m.keys.Reject):
		if n, ok := m.selected(); ok && n.Kind == model.KindInvitation {
			return m, message(RejectMsg{ID: n.ID})
		}
		return m, nil

	case key.Matches(msg, m.keys.Hide):
		if n, ok := m.selected(); ok {
			return m, message(HideMsg{ID: n.ID})
		}
		return m, nil

	case key.Matches(msg, m.keys.RestoreHidden):
		return m, message(RestoreHiddenMsg{})

	case key.Matches(msg, m.keys.Refresh):
		return m, message(RefreshMsg{})

	case key.Matches(msg, m.keys.Reconnect):
		return m, message(ReconnectMsg{})
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// selected returns the notification under the cursor, if any.
func (m Model) selected() (model.Notification, bool) {
	item, ok := m.list.SelectedItem().(NotifItem)
	if !ok {
		return model.Notification{}, false
	}
	return item.Notification, true
}

// UnreadCount returns the unread counter shown in the header.
func (m Model) UnreadCount() int {
	return m.unread
}

// View renders the notification center.
func (m Model) View() string {
	if len(m.list.Items()) == 0 {
		return m.renderEmptyState()
	}
	return m.list.View()
}

func (m Model) renderEmptyState() string {
	style := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	return style.Render("No hay notificaciones.\n\nPress r to refresh.")
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height)
}

func message(msg tea.Msg) tea.Cmd {
	return func() tea.Msg { return msg }
}
