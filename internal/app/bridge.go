package app

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/JCampos05/taskeer-notify/internal/dispatch"
	"github.com/JCampos05/taskeer-notify/internal/model"
	"github.com/JCampos05/taskeer-notify/internal/reconcile"
)

// NavigateMsg asks the UI to change route.
type NavigateMsg struct {
	// ListID is set when navigating into a specific list view.
	ListID *int

	// Lists is set when navigating to the shared-lists overview.
	Lists bool
}

// ReloadMsg asks the UI to reload the current view from the backend.
type ReloadMsg struct{}

// AlertMsg carries a banner to display.
type AlertMsg struct {
	Alert dispatch.Alert
}

// ConnStateMsg carries a live-channel state transition.
type ConnStateMsg struct {
	State model.ConnState
}

// PipelineUpdateMsg carries a reconciled state change.
type PipelineUpdateMsg struct {
	Update reconcile.Update
}

// Bridge adapts the pipeline's goroutine callbacks into tea messages,
// and answers the dispatcher's current-route queries. The send function
// is wired to tea.Program.Send after the program is created; messages
// arriving before that are dropped.
type Bridge struct {
	mu          sync.Mutex
	send        func(tea.Msg)
	currentList *int
}

// NewBridge creates an unwired bridge.
func NewBridge() *Bridge {
	return &Bridge{}
}

// Wire connects the bridge to a running program.
func (b *Bridge) Wire(send func(tea.Msg)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.send = send
}

// SetCurrentList records the route the UI is showing. Pass nil when
// leaving a list view.
func (b *Bridge) SetCurrentList(listID *int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.currentList = listID
}

func (b *Bridge) post(msg tea.Msg) {
	b.mu.Lock()
	send := b.send
	b.mu.Unlock()
	if send != nil {
		send(msg)
	}
}

// NavigateToList implements dispatch.Navigator.
func (b *Bridge) NavigateToList(listID int) {
	id := listID
	b.post(NavigateMsg{ListID: &id})
}

// NavigateToLists implements dispatch.Navigator.
func (b *Bridge) NavigateToLists() {
	b.post(NavigateMsg{Lists: true})
}

// NavigateToDefault implements dispatch.Navigator.
func (b *Bridge) NavigateToDefault() {
	b.post(NavigateMsg{})
}

// ReloadCurrent implements dispatch.Navigator.
func (b *Bridge) ReloadCurrent() {
	b.post(ReloadMsg{})
}

// CurrentListID implements dispatch.Navigator.
func (b *Bridge) CurrentListID() (int, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.currentList == nil {
		return 0, false
	}
	return *b.currentList, true
}

// Show implements dispatch.Alerter.
func (b *Bridge) Show(alert dispatch.Alert) {
	b.post(AlertMsg{Alert: alert})
}

// OnUpdate is the reconciler subscriber.
func (b *Bridge) OnUpdate(u reconcile.Update) {
	b.post(PipelineUpdateMsg{Update: u})
}

// OnStateChange is the live-channel state listener.
func (b *Bridge) OnStateChange(s model.ConnState) {
	b.post(ConnStateMsg{State: s})
}
