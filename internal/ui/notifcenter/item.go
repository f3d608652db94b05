package notifcenter

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/JCampos05/taskeer-notify/internal/model"
	"github.com/JCampos05/taskeer-notify/internal/theme"
)

// NotifItem wraps a model.Notification so it can be used in a bubbles/list.
type NotifItem struct {
	Notification model.Notification
}

// FilterValue returns the string used for fuzzy filtering.
func (i NotifItem) FilterValue() string { return i.Notification.Title }

// Title returns the notification title for the list.
func (i NotifItem) Title() string { return i.Notification.Title }

// Description returns a short summary line for the list.
func (i NotifItem) Description() string {
	return i.Notification.Message
}

// ItemDelegate implements list.ItemDelegate for rendering notifications.
type ItemDelegate struct{}

// Height returns the number of lines each item takes.
func (d ItemDelegate) Height() int { return 1 }

// Spacing returns the number of blank lines between items.
func (d ItemDelegate) Spacing() int { return 0 }

// Update handles per-item messages (unused for now).
func (d ItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws a single notification line.
func (d ItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	ni, ok := item.(NotifItem)
	if !ok {
		return
	}

	n := ni.Notification
	isSelected := index == m.Index()

	var prefix string
	if n.Read {
		prefix = "○"
	} else {
		prefix = "●"
	}

	kindBadge := theme.KindStyle(n.Kind).Render(kindLabel(n.Kind))

	title := n.Title
	if !n.Read {
		title = theme.UnreadStyle.Render(title)
	}

	timeStr := lipgloss.NewStyle().
		Foreground(theme.ColorGray).
		Render(relativeTime(n.CreatedAt))

	line := fmt.Sprintf("%s %s %s  %s", prefix, kindBadge, title, timeStr)

	if isSelected {
		line = theme.SelectedItemStyle.Render(line)
	} else {
		line = theme.ListItemStyle.Render(line)
	}

	fmt.Fprint(w, line)
}

// kindLabel returns a short badge label for the given notification kind.
func kindLabel(k model.Kind) string {
	switch k {
	case model.KindInvitation:
		return "INV"
	case model.KindTaskAssigned:
		return "ASIG"
	case model.KindComment:
		return "COM"
	case model.KindTaskRepeat:
		return "REP"
	case model.KindReminder:
		return "REC"
	case model.KindChatMessage:
		return "CHAT"
	case model.KindRoleChanged:
		return "ROL"
	default:
		return "OTRO"
	}
}

// relativeTime returns a human-friendly relative time string.
func relativeTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		mins := int(d.Minutes())
		if mins == 1 {
			return "1m ago"
		}
		return fmt.Sprintf("%dm ago", mins)
	case d < 24*time.Hour:
		hrs := int(d.Hours())
		if hrs == 1 {
			return "1h ago"
		}
		return fmt.Sprintf("%dh ago", hrs)
	case d < 7*24*time.Hour:
		days := int(d.Hours() / 24)
		if days == 1 {
			return "1d ago"
		}
		return fmt.Sprintf("%dd ago", days)
	default:
		weeks := int(d.Hours() / 24 / 7)
		if weeks == 1 {
			return "1w ago"
		}
		return fmt.Sprintf("%dw ago", weeks)
	}
}
