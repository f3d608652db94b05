package stream

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/JCampos05/taskeer-notify/internal/model"
)

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

// timerStub captures scheduled reconnects so tests observe delays and
// fire them deterministically.
type timerStub struct {
	delays chan time.Duration
	fns    chan func()
}

func newTimerStub() *timerStub {
	return &timerStub{
		delays: make(chan time.Duration, 32),
		fns:    make(chan func(), 32),
	}
}

func (s *timerStub) afterFunc(d time.Duration, fn func()) *time.Timer {
	s.delays <- d
	s.fns <- fn
	t := time.NewTimer(time.Hour)
	t.Stop()
	return t
}

func (s *timerStub) nextDelay(t *testing.T) time.Duration {
	t.Helper()
	select {
	case d := <-s.delays:
		return d
	case <-time.After(3 * time.Second):
		t.Fatal("no reconnect scheduled")
		return 0
	}
}

func (s *timerStub) fire(t *testing.T) {
	t.Helper()
	select {
	case fn := <-s.fns:
		fn()
	case <-time.After(3 * time.Second):
		t.Fatal("no reconnect timer to fire")
	}
}

func (s *timerStub) expectNone(t *testing.T) {
	t.Helper()
	select {
	case d := <-s.delays:
		t.Fatalf("unexpected reconnect scheduled with delay %v", d)
	case <-time.After(200 * time.Millisecond):
	}
}

func newTestChannel(url string, maxAttempts int) (*Channel, *timerStub) {
	stub := newTimerStub()
	c := New(Config{
		URL:                  url,
		Token:                func() string { return "tok" },
		MaxReconnectAttempts: maxAttempts,
		BaseDelay:            time.Second,
		MaxDelay:             30 * time.Second,
	}, quietLogger())
	c.afterFunc = stub.afterFunc
	return c, stub
}

func TestBackoffDelayFormula(t *testing.T) {
	base := time.Second
	max := 30 * time.Second
	want := []time.Duration{
		1 * time.Second, 2 * time.Second, 4 * time.Second,
		8 * time.Second, 16 * time.Second, 30 * time.Second,
		30 * time.Second,
	}
	for attempt, w := range want {
		if got := backoffDelay(attempt, base, max); got != w {
			t.Errorf("backoffDelay(%d) = %v, want %v", attempt, got, w)
		}
	}

	// Huge attempt values must not overflow past the cap.
	if got := backoffDelay(62, base, max); got != max {
		t.Errorf("backoffDelay(62) = %v, want %v", got, max)
	}
}

func TestBackoffScheduleUntilCap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, stub := newTestChannel(srv.URL, 5)
	defer c.Disconnect()

	c.Connect()

	want := []time.Duration{
		1 * time.Second, 2 * time.Second, 4 * time.Second,
		8 * time.Second, 16 * time.Second,
	}
	for i, w := range want {
		if got := stub.nextDelay(t); got != w {
			t.Fatalf("attempt %d: delay = %v, want %v", i+1, got, w)
		}
		stub.fire(t)
	}

	// The fifth retry fails too; the cap is reached and the channel
	// goes quiet.
	stub.expectNone(t)
	if got := c.State(); got != model.StateDisconnected {
		t.Errorf("state after cap = %v, want disconnected", got)
	}
}

func TestReconnectResetsAttemptCounter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, stub := newTestChannel(srv.URL, 2)
	defer c.Disconnect()

	c.Connect()
	if got := stub.nextDelay(t); got != time.Second {
		t.Fatalf("delay = %v, want 1s", got)
	}
	stub.fire(t)
	if got := stub.nextDelay(t); got != 2*time.Second {
		t.Fatalf("delay = %v, want 2s", got)
	}
	stub.fire(t)
	stub.expectNone(t)

	// The explicit escape hatch starts the schedule over.
	c.Reconnect()
	if got := stub.nextDelay(t); got != time.Second {
		t.Errorf("delay after Reconnect = %v, want 1s", got)
	}
}

func TestCounterResetsOnSuccessfulOpen(t *testing.T) {
	var mu sync.Mutex
	failures := 2
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		fail := failures > 0
		if fail {
			failures--
		}
		mu.Unlock()

		if fail {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.(http.Flusher).Flush()
		// Hold the stream open briefly, then let it die.
		time.Sleep(100 * time.Millisecond)
	}))
	defer srv.Close()

	connected := make(chan struct{}, 1)
	c, stub := newTestChannel(srv.URL, 5)
	c.OnStateChange(func(s model.ConnState) {
		if s == model.StateConnected {
			select {
			case connected <- struct{}{}:
			default:
			}
		}
	})
	defer c.Disconnect()

	c.Connect()
	if got := stub.nextDelay(t); got != time.Second {
		t.Fatalf("delay = %v, want 1s", got)
	}
	stub.fire(t)
	if got := stub.nextDelay(t); got != 2*time.Second {
		t.Fatalf("delay = %v, want 2s", got)
	}
	stub.fire(t)

	// Third attempt succeeds, which must reset the counter.
	select {
	case <-connected:
	case <-time.After(3 * time.Second):
		t.Fatal("never connected")
	}

	// The held-open stream then dies; the next delay starts from the
	// base again.
	if got := stub.nextDelay(t); got != time.Second {
		t.Errorf("delay after successful open = %v, want 1s", got)
	}
}

func TestStreamDeliversEvents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("token") != "tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		f := w.(http.Flusher)

		// Handshake control frame, then a real notification, then a
		// read receipt broadcast from another session.
		fmt.Fprint(w, "event: nueva_notificacion\ndata: {\"type\":\"connected\"}\n\n")
		fmt.Fprint(w, "event: nueva_notificacion\ndata: {\"id\":\"7\",\"tipo\":\"comentario\",\"mensaje\":\"hola\",\"leida\":0}\n\n")
		fmt.Fprint(w, "event: notificacion_leida\ndata: {\"idNotificacion\":3}\n\n")
		f.Flush()
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	notifs := make(chan model.Notification, 8)
	receipts := make(chan int, 8)

	c, _ := newTestChannel(srv.URL, 5)
	c.OnNotification(func(n model.Notification) { notifs <- n })
	c.OnReadReceipt(func(id int) { receipts <- id })
	defer c.Disconnect()

	c.Connect()

	select {
	case n := <-notifs:
		if n.ID != 7 || n.Kind != model.KindComment || n.Read {
			t.Errorf("notification = %+v", n)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("notification never delivered")
	}

	select {
	case id := <-receipts:
		if id != 3 {
			t.Errorf("receipt id = %d, want 3", id)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("read receipt never delivered")
	}

	// The handshake frame must not have reached the handler.
	select {
	case n := <-notifs:
		t.Errorf("unexpected extra notification %+v", n)
	default:
	}
}

func TestMalformedEventsDropped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		f := w.(http.Flusher)
		fmt.Fprint(w, "event: nueva_notificacion\ndata: {\"tipo\":\"comentario\"}\n\n")          // no id
		fmt.Fprint(w, "event: nueva_notificacion\ndata: {\"id\":2,\"tipo\":\"desconocido\"}\n\n") // bad kind
		fmt.Fprint(w, "event: nueva_notificacion\ndata: not json at all\n\n")
		fmt.Fprint(w, "event: nueva_notificacion\ndata: {\"id\":5,\"tipo\":\"comentario\"}\n\n")
		f.Flush()
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	notifs := make(chan model.Notification, 8)
	c, _ := newTestChannel(srv.URL, 5)
	c.OnNotification(func(n model.Notification) { notifs <- n })
	defer c.Disconnect()

	c.Connect()

	select {
	case n := <-notifs:
		if n.ID != 5 {
			t.Errorf("delivered id %d, want only the valid 5", n.ID)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("valid notification never delivered")
	}
	select {
	case n := <-notifs:
		t.Errorf("malformed event leaked through: %+v", n)
	default:
	}
}

func TestStateSequenceOnConnect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.(http.Flusher).Flush()
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	var mu sync.Mutex
	var states []model.ConnState
	connected := make(chan struct{}, 1)

	c, _ := newTestChannel(srv.URL, 5)
	c.OnStateChange(func(s model.ConnState) {
		mu.Lock()
		states = append(states, s)
		mu.Unlock()
		if s == model.StateConnected {
			select {
			case connected <- struct{}{}:
			default:
			}
		}
	})
	defer c.Disconnect()

	c.Connect()
	select {
	case <-connected:
	case <-time.After(3 * time.Second):
		t.Fatal("never connected")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(states) < 2 || states[0] != model.StateConnecting || states[1] != model.StateConnected {
		t.Errorf("states = %v, want connecting then connected", states)
	}
}

func TestDisconnectIsIdempotentAndCancelsRetry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, stub := newTestChannel(srv.URL, 5)
	c.Connect()
	stub.nextDelay(t)

	c.Disconnect()
	c.Disconnect()
	if got := c.State(); got != model.StateDisconnected {
		t.Fatalf("state = %v, want disconnected", got)
	}

	// The captured timer callback is now stale; firing it must not
	// resurrect the connection.
	stub.fire(t)
	if got := c.State(); got != model.StateDisconnected {
		t.Errorf("stale timer reconnected the channel, state = %v", got)
	}
}

func TestConnectWithoutTokenWaits(t *testing.T) {
	stub := newTimerStub()
	c := New(Config{
		URL:                  "http://localhost:0",
		Token:                func() string { return "" },
		MaxReconnectAttempts: 5,
		BaseDelay:            time.Second,
		MaxDelay:             30 * time.Second,
	}, quietLogger())
	c.afterFunc = stub.afterFunc
	defer c.Disconnect()

	c.Connect()
	if got := stub.nextDelay(t); got != tokenRetryDelay {
		t.Errorf("delay = %v, want token retry delay %v", got, tokenRetryDelay)
	}
	if got := c.State(); got != model.StateReconnectScheduled {
		t.Errorf("state = %v, want reconnect scheduled", got)
	}
}
