// Package app is the root Bubble Tea model: view routing, layout, and
// the glue between the UI and the notification pipeline.
package app

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/JCampos05/taskeer-notify/internal/client"
	"github.com/JCampos05/taskeer-notify/internal/credential"
	"github.com/JCampos05/taskeer-notify/internal/dispatch"
	"github.com/JCampos05/taskeer-notify/internal/keys"
	"github.com/JCampos05/taskeer-notify/internal/localstore"
	"github.com/JCampos05/taskeer-notify/internal/model"
	"github.com/JCampos05/taskeer-notify/internal/theme"
	"github.com/JCampos05/taskeer-notify/internal/ui"
	helpview "github.com/JCampos05/taskeer-notify/internal/ui/help"
	"github.com/JCampos05/taskeer-notify/internal/ui/login"
	"github.com/JCampos05/taskeer-notify/internal/ui/notifcenter"
)

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewLogin ViewState = iota
	ViewCenter
	ViewListPane
	ViewListsPane
	ViewHelp
)

// pipelineStartedMsg is sent once the pipeline is up.
type pipelineStartedMsg struct {
	err error
}

// actionDoneMsg carries the result of a backend action.
type actionDoneMsg struct {
	err error
}

// clearAlertMsg expires the visible banner.
type clearAlertMsg struct {
	seq int
}

// Model is the root Bubble Tea model.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout

	client *client.Client
	store  localstore.Store
	bridge *Bridge
	keys   *keys.KeyMap

	center    notifcenter.Model
	loginView login.Model
	helpView  helpview.Model

	alert    *dispatch.Alert
	alertSeq int

	currentList *int
	connState   model.ConnState
	statusMsg   string
	ready       bool
	started     bool
}

// New creates the root application model. The bridge must be the same
// one serving the client's dispatcher.
func New(c *client.Client, s localstore.Store, bridge *Bridge) Model {
	k := keys.DefaultKeyMap()

	view := ViewCenter
	if credential.LoadToken(s) == "" {
		view = ViewLogin
	}

	return Model{
		currentView: view,
		client:      c,
		store:       s,
		bridge:      bridge,
		keys:        k,
		center:      notifcenter.New(k, 80, 24),
		loginView:   login.New(s, 80, 24),
		helpView:    helpview.New(k, 80, 24),
		connState:   model.StateDisconnected,
	}
}

// Init starts the pipeline when a token is already stored, otherwise
// waits for the login form.
func (m Model) Init() tea.Cmd {
	if m.currentView == ViewLogin {
		return m.loginView.Init()
	}
	return m.startPipeline()
}

// startPipeline brings the client up off the UI goroutine.
func (m Model) startPipeline() tea.Cmd {
	c := m.client
	return func() tea.Msg {
		return pipelineStartedMsg{err: c.Start(context.Background())}
	}
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		m.resize()
		return m.updateActiveView(msg)

	case pipelineStartedMsg:
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Error starting pipeline: %v", msg.err)
			return m, nil
		}
		m.started = true
		m.statusMsg = ""
		return m.pushNotifications()

	case PipelineUpdateMsg:
		var cmd tea.Cmd
		m.center, cmd = m.center.Update(notifcenter.NotificationsMsg{
			Notifications: msg.Update.Notifications,
			UnreadCount:   msg.Update.UnreadCount,
		})
		return m, cmd

	case ConnStateMsg:
		m.connState = msg.State
		return m, nil

	case AlertMsg:
		m.alert = &msg.Alert
		m.alertSeq++
		m.layout.AlertHeight = 3
		m.resize()
		seq := m.alertSeq
		return m, tea.Tick(msg.Alert.Duration, func(time.Time) tea.Msg {
			return clearAlertMsg{seq: seq}
		})

	case clearAlertMsg:
		// A newer alert may have replaced the one this tick belongs to.
		if msg.seq == m.alertSeq {
			m.alert = nil
			m.layout.AlertHeight = 0
			m.resize()
		}
		return m, nil

	case NavigateMsg:
		return m.navigate(msg), nil

	case ReloadMsg:
		return m, m.refreshCmd()

	case login.TokenSavedMsg:
		m.currentView = ViewCenter
		return m, m.startPipeline()

	case login.AbortedMsg:
		return m, tea.Quit

	case notifcenter.OpenMsg:
		n := msg.Notification
		c := m.client
		return m, func() tea.Msg {
			return actionDoneMsg{err: c.Open(context.Background(), n)}
		}

	case notifcenter.MarkReadMsg:
		return m, m.actionCmd(func(ctx context.Context, c *client.Client) error {
			return c.MarkRead(ctx, msg.ID)
		})

	case notifcenter.MarkAllReadMsg:
		return m, m.actionCmd(func(ctx context.Context, c *client.Client) error {
			return c.MarkAllRead(ctx)
		})

	case notifcenter.AcceptMsg:
		return m, m.actionCmd(func(ctx context.Context, c *client.Client) error {
			return c.AcceptInvitation(ctx, msg.ID)
		})

	case notifcenter.RejectMsg:
		return m, m.actionCmd(func(ctx context.Context, c *client.Client) error {
			return c.RejectInvitation(ctx, msg.ID)
		})

	case notifcenter.HideMsg:
		m.client.Hide(msg.ID)
		return m.pushNotifications()

	case notifcenter.RestoreHiddenMsg:
		m.client.RestoreHidden()
		return m, m.refreshCmd()

	case notifcenter.RefreshMsg:
		return m, m.refreshCmd()

	case notifcenter.ReconnectMsg:
		m.client.Reconnect()
		return m, nil

	case actionDoneMsg:
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Error: %v", msg.err)
		} else {
			m.statusMsg = ""
		}
		return m.pushNotifications()

	case tea.KeyMsg:
		return m.handleGlobalKeys(msg)
	}

	return m.updateActiveView(msg)
}

func (m Model) handleGlobalKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, m.quit()

	case "q":
		if m.currentView != ViewLogin {
			return m, m.quit()
		}

	case "?":
		if m.currentView == ViewLogin {
			break
		}
		if m.currentView == ViewHelp {
			m.currentView = m.previousView
			return m, nil
		}
		m.previousView = m.currentView
		m.currentView = ViewHelp
		return m, nil

	case "esc":
		switch m.currentView {
		case ViewHelp:
			m.currentView = m.previousView
			return m, nil
		case ViewListPane, ViewListsPane:
			m.currentView = ViewCenter
			m.currentList = nil
			m.bridge.SetCurrentList(nil)
			return m, nil
		}
	}

	return m.updateActiveView(msg)
}

// quit tears the pipeline down before exiting.
func (m Model) quit() tea.Cmd {
	if m.started {
		m.client.Stop(context.Background())
	}
	return tea.Quit
}

// navigate applies a route change requested by the dispatcher or a
// notification click.
func (m Model) navigate(msg NavigateMsg) Model {
	switch {
	case msg.ListID != nil:
		m.currentView = ViewListPane
		m.currentList = msg.ListID
		m.bridge.SetCurrentList(msg.ListID)
	case msg.Lists:
		m.currentView = ViewListsPane
		m.currentList = nil
		m.bridge.SetCurrentList(nil)
	default:
		m.currentView = ViewCenter
		m.currentList = nil
		m.bridge.SetCurrentList(nil)
	}
	return m
}

// pushNotifications refreshes the center from the client's local state.
func (m Model) pushNotifications() (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.center, cmd = m.center.Update(notifcenter.NotificationsMsg{
		Notifications: m.client.Notifications(),
		UnreadCount:   m.client.UnreadCount(),
	})
	return m, cmd
}

// refreshCmd fetches a fresh backend snapshot off the UI goroutine.
func (m Model) refreshCmd() tea.Cmd {
	c := m.client
	return func() tea.Msg {
		return actionDoneMsg{err: c.Refresh(context.Background())}
	}
}

func (m Model) actionCmd(fn func(context.Context, *client.Client) error) tea.Cmd {
	c := m.client
	return func() tea.Msg {
		return actionDoneMsg{err: fn(context.Background(), c)}
	}
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewLogin:
		m.loginView, cmd = m.loginView.Update(msg)
	case ViewCenter:
		m.center, cmd = m.center.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	}

	return m, cmd
}

func (m *Model) resize() {
	w := m.layout.ContentWidth()
	h := m.layout.ContentHeight()
	m.center.SetSize(w, h)
	m.loginView.SetSize(w, h)
	m.helpView.SetSize(w, h)
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader(m.headerTitle(), m.connStatus())
	statusBar := m.layout.RenderStatusBar(m.keyHints())

	sections := []string{header}
	if m.alert != nil {
		sections = append(sections,
			m.layout.RenderAlert(m.alert.Title, m.alert.Message, m.alert.Critical))
	}
	sections = append(sections, m.renderContent(), statusBar)

	return m.layout.RenderWithFrame(sections...)
}

func (m Model) headerTitle() string {
	title := "Taskeer"
	if unread := m.center.UnreadCount(); unread > 0 {
		title = fmt.Sprintf("Taskeer [%d unread]", unread)
	}
	return title
}

// connStatus returns a short string describing the live channel state.
func (m Model) connStatus() string {
	switch m.connState {
	case model.StateConnected:
		return "● live"
	case model.StateConnecting:
		return "◌ connecting"
	case model.StateReconnectScheduled:
		return "◌ reconnecting"
	default:
		return "○ offline"
	}
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewLogin:
		return m.loginView.View()
	case ViewCenter:
		return m.center.View()
	case ViewListPane:
		return m.renderListPane()
	case ViewListsPane:
		return m.renderListsPane()
	case ViewHelp:
		return m.helpView.View()
	default:
		return ""
	}
}

// renderListPane is the stand-in for the web app's list route. It
// exists so navigation side effects land somewhere observable.
func (m Model) renderListPane() string {
	style := lipgloss.NewStyle().
		Width(m.layout.ContentWidth()).
		Height(m.layout.ContentHeight()).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	if m.currentList == nil {
		return style.Render("No list selected.")
	}

	body := fmt.Sprintf("Lista %d", *m.currentList)
	if chats := m.client.UnreadChatCount(*m.currentList); chats > 0 {
		body += fmt.Sprintf("\n%d mensajes sin leer", chats)
	}
	return style.Render(body)
}

func (m Model) renderListsPane() string {
	style := lipgloss.NewStyle().
		Width(m.layout.ContentWidth()).
		Height(m.layout.ContentHeight()).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	return style.Render("Listas compartidas.\n\nPress esc to go back.")
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	if m.statusMsg != "" {
		return m.statusMsg
	}

	switch m.currentView {
	case ViewLogin:
		return "enter submit | esc quit"
	case ViewHelp:
		return "? close help | esc back"
	case ViewListPane, ViewListsPane:
		return "esc back | q quit"
	default:
		return "q quit | ? help | enter open | m read | M read all | h hide | r refresh"
	}
}
