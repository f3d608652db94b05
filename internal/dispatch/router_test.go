package dispatch

import (
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/JCampos05/taskeer-notify/internal/model"
)

// fakeNav records navigation calls.
type fakeNav struct {
	calls   []string
	current *int
}

func (n *fakeNav) NavigateToList(id int) { n.calls = append(n.calls, "list") }
func (n *fakeNav) NavigateToLists()      { n.calls = append(n.calls, "lists") }
func (n *fakeNav) NavigateToDefault()    { n.calls = append(n.calls, "default") }
func (n *fakeNav) ReloadCurrent()        { n.calls = append(n.calls, "reload") }

func (n *fakeNav) CurrentListID() (int, bool) {
	if n.current == nil {
		return 0, false
	}
	return *n.current, true
}

type fakeAlerter struct {
	shown []Alert
}

func (a *fakeAlerter) Show(alert Alert) { a.shown = append(a.shown, alert) }

type fakeTone struct {
	plays int
}

func (t *fakeTone) Play() { t.plays++ }

// fakeClock captures scheduled functions instead of arming real timers.
// Captured functions must never run inside afterFunc: the router holds
// its mutex while scheduling and the fired closure re-acquires it.
type fakeClock struct {
	delays []time.Duration
	fns    []func()
}

func (c *fakeClock) afterFunc(d time.Duration, fn func()) *time.Timer {
	c.delays = append(c.delays, d)
	c.fns = append(c.fns, fn)
	t := time.NewTimer(time.Hour)
	t.Stop()
	return t
}

func (c *fakeClock) fireAll() {
	fns := c.fns
	c.fns = nil
	for _, fn := range fns {
		fn()
	}
}

func newTestRouter() (*Router, *fakeNav, *fakeAlerter, *fakeTone, *fakeClock) {
	nav := &fakeNav{}
	alerts := &fakeAlerter{}
	tone := &fakeTone{}
	clock := &fakeClock{}
	r := New(nav, alerts, tone, log.New(io.Discard))
	r.afterFunc = clock.afterFunc
	return r, nav, alerts, tone, clock
}

func listNotif(id int, kind model.Kind, listID int) model.Notification {
	return model.Notification{
		ID:   id,
		Kind: kind,
		Payload: model.Payload{
			ListID:   &listID,
			ListName: "Compras",
		},
	}
}

func TestDispatchSameIDOnlyOnce(t *testing.T) {
	r, _, alerts, _, _ := newTestRouter()

	n := listNotif(1, model.KindInvitation, 3)
	r.Dispatch(n)
	r.Dispatch(n)

	if len(alerts.shown) != 1 {
		t.Fatalf("alerts shown = %d, want 1", len(alerts.shown))
	}
}

func TestReminderCriticalAlertThenAutoNavigate(t *testing.T) {
	r, nav, alerts, _, clock := newTestRouter()

	n := listNotif(1, model.KindReminder, 7)
	n.Payload.TaskName = "Comprar pan"
	n.Payload.DueDate = "2026-09-01"
	r.Dispatch(n)

	if len(alerts.shown) != 1 {
		t.Fatalf("alerts shown = %d, want 1", len(alerts.shown))
	}
	a := alerts.shown[0]
	if !a.Critical {
		t.Error("reminder alert should be critical")
	}
	if a.Duration != criticalAlertDuration {
		t.Errorf("duration = %v, want %v", a.Duration, criticalAlertDuration)
	}
	if a.Message != `"Comprar pan" - Vence: 2026-09-01` {
		t.Errorf("message = %q", a.Message)
	}

	// Navigation only happens after the critical delay.
	if len(nav.calls) != 0 {
		t.Fatalf("navigated before delay: %v", nav.calls)
	}
	if len(clock.delays) != 1 || clock.delays[0] != criticalDelay {
		t.Fatalf("scheduled delays = %v, want [%v]", clock.delays, criticalDelay)
	}
	clock.fireAll()
	if len(nav.calls) != 1 || nav.calls[0] != "list" {
		t.Errorf("nav calls = %v, want [list]", nav.calls)
	}
}

func TestChatMessageNormalAlertNoAutoNavigate(t *testing.T) {
	r, nav, alerts, _, clock := newTestRouter()

	n := listNotif(2, model.KindChatMessage, 4)
	n.Payload.SenderName = "Ana"
	r.Dispatch(n)

	if len(alerts.shown) != 1 {
		t.Fatalf("alerts shown = %d, want 1", len(alerts.shown))
	}
	a := alerts.shown[0]
	if a.Critical {
		t.Error("chat alert should not be critical")
	}
	if a.Duration != normalAlertDuration {
		t.Errorf("duration = %v, want %v", a.Duration, normalAlertDuration)
	}
	if a.Message != `Ana escribió en "Compras"` {
		t.Errorf("message = %q", a.Message)
	}
	if len(clock.fns) != 0 {
		t.Error("non-critical alert scheduled an auto action")
	}
	if len(nav.calls) != 0 {
		t.Errorf("nav calls = %v, want none", nav.calls)
	}
}

func TestRoleChangedReloadsOnlyWhenViewingList(t *testing.T) {
	r, nav, _, _, clock := newTestRouter()

	five := 5
	nav.current = &five
	r.Dispatch(listNotif(3, model.KindRoleChanged, 5))

	// Critical auto-nav plus the reload, both delayed.
	if len(clock.delays) != 2 {
		t.Fatalf("scheduled = %d, want 2", len(clock.delays))
	}
	clock.fireAll()
	if !contains(nav.calls, "reload") {
		t.Errorf("nav calls = %v, want reload", nav.calls)
	}

	// Viewing a different list: no reload.
	r2, nav2, _, _, clock2 := newTestRouter()
	other := 8
	nav2.current = &other
	r2.Dispatch(listNotif(4, model.KindRoleChanged, 5))
	clock2.fireAll()
	if contains(nav2.calls, "reload") {
		t.Errorf("nav calls = %v, unexpected reload", nav2.calls)
	}
}

func TestRevocationEvictsImmediately(t *testing.T) {
	r, nav, alerts, _, _ := newTestRouter()

	six := 6
	nav.current = &six
	n := listNotif(5, model.KindOther, 6)
	n.Payload.RevokedBy = "Ana"
	if !n.IsRevocation() {
		t.Fatal("test notification should read as a revocation")
	}
	r.Dispatch(n)

	if len(alerts.shown) != 1 || !alerts.shown[0].Critical {
		t.Fatalf("alerts = %+v, want one critical", alerts.shown)
	}
	// Eviction does not wait for the critical delay.
	if !contains(nav.calls, "default") {
		t.Errorf("nav calls = %v, want immediate default", nav.calls)
	}
}

func TestRevocationElsewhereDoesNotEvict(t *testing.T) {
	r, nav, _, _, _ := newTestRouter()

	n := listNotif(6, model.KindOther, 6)
	n.Payload.RevokedBy = "Ana"
	r.Dispatch(n)

	if len(nav.calls) != 0 {
		t.Errorf("nav calls = %v, want none", nav.calls)
	}
}

func TestInvitationNeverAutoNavigates(t *testing.T) {
	r, nav, alerts, _, clock := newTestRouter()

	n := listNotif(7, model.KindInvitation, 2)
	n.Payload.InvitedBy = "Luis"
	r.Dispatch(n)

	if len(alerts.shown) != 1 {
		t.Fatalf("alerts shown = %d, want 1", len(alerts.shown))
	}
	if alerts.shown[0].Critical {
		t.Error("invitation alert should not be critical")
	}
	if len(clock.fns) != 0 || len(nav.calls) != 0 {
		t.Errorf("invitation scheduled navigation: fns=%d nav=%v",
			len(clock.fns), nav.calls)
	}

	// Clicking it opens the lists overview.
	alerts.shown[0].OnClick()
	if len(nav.calls) != 1 || nav.calls[0] != "lists" {
		t.Errorf("nav calls = %v, want [lists]", nav.calls)
	}
}

func TestTaskAssignedPlaysTone(t *testing.T) {
	r, _, alerts, tone, _ := newTestRouter()

	n := listNotif(8, model.KindTaskAssigned, 1)
	n.Payload.TaskName = "Regar plantas"
	r.Dispatch(n)

	if tone.plays != 1 {
		t.Errorf("tone plays = %d, want 1", tone.plays)
	}
	if len(alerts.shown) != 1 {
		t.Errorf("alerts shown = %d, want 1", len(alerts.shown))
	}
}

func TestStopCancelsScheduledActions(t *testing.T) {
	r, nav, _, _, clock := newTestRouter()

	r.Dispatch(listNotif(9, model.KindReminder, 3))
	if len(clock.fns) != 1 {
		t.Fatalf("scheduled = %d, want 1", len(clock.fns))
	}

	r.Stop()
	clock.fireAll()
	if len(nav.calls) != 0 {
		t.Errorf("nav calls after Stop = %v, want none", nav.calls)
	}

	// Dispatch after Stop shows nothing scheduled either.
	r.Dispatch(listNotif(10, model.KindReminder, 3))
	if len(clock.fns) != 0 {
		t.Errorf("scheduled after Stop = %d, want 0", len(clock.fns))
	}
}

func TestHandleClickRouting(t *testing.T) {
	r, nav, _, _, _ := newTestRouter()

	r.HandleClick(listNotif(1, model.KindComment, 4))
	r.HandleClick(model.Notification{ID: 2, Kind: model.KindInvitation})
	r.HandleClick(model.Notification{ID: 3, Kind: model.KindReminder})
	r.HandleClick(model.Notification{ID: 4, Kind: model.KindOther})

	want := []string{"list", "lists", "default", "default"}
	if len(nav.calls) != len(want) {
		t.Fatalf("nav calls = %v, want %v", nav.calls, want)
	}
	for i := range want {
		if nav.calls[i] != want[i] {
			t.Errorf("call %d = %q, want %q", i, nav.calls[i], want[i])
		}
	}
}

func TestCommentHasNoDispatchSideEffect(t *testing.T) {
	r, nav, alerts, tone, clock := newTestRouter()

	r.Dispatch(listNotif(11, model.KindComment, 2))

	if len(alerts.shown) != 0 || len(nav.calls) != 0 ||
		tone.plays != 0 || len(clock.fns) != 0 {
		t.Errorf("comment produced side effects: alerts=%d nav=%v tone=%d fns=%d",
			len(alerts.shown), nav.calls, tone.plays, len(clock.fns))
	}
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
