package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/JCampos05/taskeer-notify/internal/theme"
)

// Layout manages the terminal layout dimensions: a one-line header, an
// optional alert banner, the content area and a one-line status bar.
type Layout struct {
	Width           int
	Height          int
	HeaderHeight    int
	StatusBarHeight int
	AlertHeight     int
}

// NewLayout creates a Layout with the given terminal dimensions.
func NewLayout(width, height int) Layout {
	return Layout{
		Width:           width,
		Height:          height,
		HeaderHeight:    1,
		StatusBarHeight: 1,
	}
}

// ContentWidth returns the full available width.
func (l Layout) ContentWidth() int {
	return l.Width
}

// ContentHeight returns the height available for the main content area,
// accounting for the header, status bar and any visible alert banner.
func (l Layout) ContentHeight() int {
	h := l.Height - l.HeaderHeight - l.StatusBarHeight - l.AlertHeight
	if h < 0 {
		h = 0
	}
	return h
}

// RenderHeader renders the top header bar with a title on the left and
// the connection status on the right.
func (l Layout) RenderHeader(title string, connStatus string) string {
	titleRendered := theme.HeaderStyle.Render(title)

	statusRendered := theme.HeaderStyle.
		Align(lipgloss.Right).
		Render(connStatus)

	gap := l.Width -
		lipgloss.Width(titleRendered) -
		lipgloss.Width(statusRendered)
	if gap < 0 {
		gap = 0
	}

	filler := theme.HeaderStyle.Render(
		lipgloss.NewStyle().
			Width(gap).
			Background(theme.HeaderStyle.GetBackground()).
			Render(""),
	)

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		titleRendered,
		filler,
		statusRendered,
	)
}

// RenderAlert renders a transient notification banner across the full
// width. Critical alerts use the distinct critical style.
func (l Layout) RenderAlert(title, message string, critical bool) string {
	style := theme.AlertStyle
	if critical {
		style = theme.CriticalAlertStyle
	}

	w := l.Width - style.GetHorizontalFrameSize()
	if w < 0 {
		w = 0
	}

	return style.Width(w).Render(title + ": " + message)
}

// RenderStatusBar renders the bottom status bar with keyboard hints.
func (l Layout) RenderStatusBar(hints string) string {
	rendered := theme.StatusBarStyle.Render(hints)

	gap := l.Width - lipgloss.Width(rendered)
	if gap < 0 {
		gap = 0
	}

	filler := theme.StatusBarStyle.Render(
		lipgloss.NewStyle().
			Width(gap).
			Background(theme.StatusBarStyle.GetBackground()).
			Render(""),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, rendered, filler)
}

// RenderWithFrame composes a full terminal view by vertically joining
// the header, optional alert banner, content area, and status bar.
func (l Layout) RenderWithFrame(sections ...string) string {
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}
