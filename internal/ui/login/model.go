// Package login is the session-token entry form shown when no auth
// token is stored yet.
package login

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/JCampos05/taskeer-notify/internal/credential"
	"github.com/JCampos05/taskeer-notify/internal/theme"
)

// TokenSavedMsg signals that a token was entered and persisted.
type TokenSavedMsg struct {
	Token string
}

// AbortedMsg signals the user backed out of the form.
type AbortedMsg struct{}

// Model is the Bubble Tea model for the token entry form.
type Model struct {
	form  *huh.Form
	store credential.TokenStore

	formToken string
	statusMsg string

	width, height int
}

// New creates the login form. The store is the keyring fallback for
// token persistence.
func New(store credential.TokenStore, width, height int) Model {
	m := Model{
		store:  store,
		width:  width,
		height: height,
	}
	m.form = m.buildForm()
	return m
}

func (m *Model) buildForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Session Token").
				Description("Paste the Taskeer session token from your browser").
				EchoMode(huh.EchoModePassword).
				Value(&m.formToken).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("token is required")
					}
					return nil
				}),
		),
	).WithWidth(m.formWidth())
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return m.form.Init()
}

// Update handles messages for the login form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if wsMsg, ok := msg.(tea.WindowSizeMsg); ok {
		m.width = wsMsg.Width
		m.height = wsMsg.Height
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		token := strings.TrimSpace(m.formToken)
		if err := credential.SaveToken(token, m.store); err != nil {
			m.statusMsg = fmt.Sprintf("Error saving token: %v", err)
			m.formToken = ""
			m.form = m.buildForm()
			return m, m.form.Init()
		}
		return m, func() tea.Msg { return TokenSavedMsg{Token: token} }
	}
	if m.form.State == huh.StateAborted {
		return m, func() tea.Msg { return AbortedMsg{} }
	}

	return m, cmd
}

// View renders the login form.
func (m Model) View() string {
	var b strings.Builder

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	b.WriteString(titleStyle.Render("Sign in to Taskeer"))
	b.WriteString("\n\n")
	b.WriteString(m.form.View())

	if m.statusMsg != "" {
		b.WriteString("\n")
		statusStyle := lipgloss.NewStyle().
			Foreground(theme.ColorYellow).
			Italic(true)
		b.WriteString(statusStyle.Render(m.statusMsg))
	}

	return lipgloss.NewStyle().
		Padding(1, 2).
		Width(m.width).
		Height(m.height).
		Render(b.String())
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}
