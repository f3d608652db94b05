package sync

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func TestTriggerNowRunsRefresh(t *testing.T) {
	calls := make(chan struct{}, 8)
	p := New(func(ctx context.Context) error {
		calls <- struct{}{}
		return nil
	}, 0, log.New(io.Discard))

	p.Start()
	defer p.Stop()

	p.TriggerNow()
	select {
	case <-calls:
	case <-time.After(3 * time.Second):
		t.Fatal("refresh never ran")
	}
}

func TestIntervalRunsRefresh(t *testing.T) {
	calls := make(chan struct{}, 8)
	p := New(func(ctx context.Context) error {
		calls <- struct{}{}
		return nil
	}, 10*time.Millisecond, log.New(io.Discard))

	p.Start()
	defer p.Stop()

	select {
	case <-calls:
	case <-time.After(3 * time.Second):
		t.Fatal("ticker refresh never ran")
	}
}

func TestStopHaltsRefreshes(t *testing.T) {
	calls := make(chan struct{}, 8)
	p := New(func(ctx context.Context) error {
		calls <- struct{}{}
		return nil
	}, 0, log.New(io.Discard))

	p.Start()
	p.Stop()
	p.TriggerNow()

	select {
	case <-calls:
		t.Fatal("refresh ran after Stop")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRestartAfterStop(t *testing.T) {
	calls := make(chan struct{}, 8)
	p := New(func(ctx context.Context) error {
		calls <- struct{}{}
		return nil
	}, 0, log.New(io.Discard))

	p.Start()
	p.Stop()

	p.Start()
	defer p.Stop()

	p.TriggerNow()
	select {
	case <-calls:
	case <-time.After(3 * time.Second):
		t.Fatal("refresh never ran after restart")
	}
}

func TestStatusRecordsLastError(t *testing.T) {
	wantErr := errors.New("backend down")
	done := make(chan struct{}, 1)
	p := New(func(ctx context.Context) error {
		defer func() { done <- struct{}{} }()
		return wantErr
	}, 0, log.New(io.Discard))

	p.Start()
	defer p.Stop()

	p.TriggerNow()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("refresh never ran")
	}

	// Status is written after the refresh returns; poll briefly.
	deadline := time.Now().Add(time.Second)
	for {
		st := p.Status()
		if errors.Is(st.LastError, wantErr) {
			if st.LastRefresh.IsZero() {
				t.Error("LastRefresh not set")
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("status = %+v, want LastError %v", st, wantErr)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestStartIsIdempotent(t *testing.T) {
	calls := make(chan struct{}, 8)
	p := New(func(ctx context.Context) error {
		calls <- struct{}{}
		return nil
	}, 0, log.New(io.Discard))

	p.Start()
	p.Start()
	defer p.Stop()

	p.TriggerNow()
	select {
	case <-calls:
	case <-time.After(3 * time.Second):
		t.Fatal("refresh never ran")
	}

	// A second Start must not double-consume triggers into two loops.
	select {
	case <-calls:
		t.Fatal("trigger ran twice")
	case <-time.After(50 * time.Millisecond):
	}
}
