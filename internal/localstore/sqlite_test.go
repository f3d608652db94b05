package localstore

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/JCampos05/taskeer-notify/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:", log.New(io.Discard))
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestTokenRoundtrip(t *testing.T) {
	s := newTestStore(t)

	token, err := s.Token()
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if token != "" {
		t.Errorf("fresh store token = %q, want empty", token)
	}

	if err := s.SetToken("abc123"); err != nil {
		t.Fatalf("SetToken: %v", err)
	}
	token, err = s.Token()
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if token != "abc123" {
		t.Errorf("token = %q, want abc123", token)
	}

	if err := s.DeleteToken(); err != nil {
		t.Fatalf("DeleteToken: %v", err)
	}
	token, _ = s.Token()
	if token != "" {
		t.Errorf("token after delete = %q, want empty", token)
	}
}

func TestHiddenIDsRoundtrip(t *testing.T) {
	s := newTestStore(t)

	if got := s.HiddenIDs(); len(got) != 0 {
		t.Errorf("fresh store hidden = %v, want empty", got)
	}

	for _, id := range []int{3, 1, 3} {
		if err := s.AddHiddenID(id); err != nil {
			t.Fatalf("AddHiddenID(%d): %v", id, err)
		}
	}

	got := s.HiddenIDs()
	if len(got) != 2 {
		t.Fatalf("hidden = %v, want {1,3}", got)
	}
	for _, id := range []int{1, 3} {
		if _, ok := got[id]; !ok {
			t.Errorf("hidden missing %d", id)
		}
	}

	if err := s.ClearHiddenIDs(); err != nil {
		t.Fatalf("ClearHiddenIDs: %v", err)
	}
	if got := s.HiddenIDs(); len(got) != 0 {
		t.Errorf("hidden after clear = %v, want empty", got)
	}
}

func TestHiddenIDsCorruptValueSelfHeals(t *testing.T) {
	s := newTestStore(t)

	if err := s.setValue(KeyHiddenIDs, "{not json"); err != nil {
		t.Fatalf("setValue: %v", err)
	}

	// Corrupt data reads as empty instead of failing.
	if got := s.HiddenIDs(); len(got) != 0 {
		t.Fatalf("hidden from corrupt value = %v, want empty", got)
	}

	// The next write replaces the corrupt value entirely.
	if err := s.AddHiddenID(9); err != nil {
		t.Fatalf("AddHiddenID: %v", err)
	}
	got := s.HiddenIDs()
	if _, ok := got[9]; !ok || len(got) != 1 {
		t.Errorf("hidden after heal = %v, want {9}", got)
	}
}

func TestNotificationCacheRoundtrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	three := 3
	list := []model.Notification{
		{
			ID:        2,
			Kind:      model.KindChatMessage,
			Title:     "Nuevo mensaje",
			Message:   "hola",
			Read:      false,
			CreatedAt: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
			Payload:   model.Payload{ListID: &three, SenderName: "Ana"},
		},
		{
			ID:        1,
			Kind:      model.KindComment,
			Title:     "Comentario",
			Read:      true,
			CreatedAt: time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC),
		},
	}

	if err := s.CacheNotifications(ctx, list); err != nil {
		t.Fatalf("CacheNotifications: %v", err)
	}

	got, err := s.CachedNotifications(ctx)
	if err != nil {
		t.Fatalf("CachedNotifications: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}

	// Order is the reconciled order, not ID order.
	if got[0].ID != 2 || got[1].ID != 1 {
		t.Errorf("order = %d,%d, want 2,1", got[0].ID, got[1].ID)
	}
	if got[0].Payload.ListID == nil || *got[0].Payload.ListID != 3 {
		t.Errorf("payload ListID = %v, want 3", got[0].Payload.ListID)
	}
	if got[0].Payload.SenderName != "Ana" {
		t.Errorf("payload SenderName = %q", got[0].Payload.SenderName)
	}
	if !got[1].Read || got[0].Read {
		t.Errorf("read flags = %v,%v", got[0].Read, got[1].Read)
	}
}

func TestCacheReplacesPriorSnapshot(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := []model.Notification{{ID: 1, Kind: model.KindComment, CreatedAt: time.Now()}}
	second := []model.Notification{{ID: 2, Kind: model.KindComment, CreatedAt: time.Now()}}

	if err := s.CacheNotifications(ctx, first); err != nil {
		t.Fatalf("CacheNotifications: %v", err)
	}
	if err := s.CacheNotifications(ctx, second); err != nil {
		t.Fatalf("CacheNotifications: %v", err)
	}

	got, err := s.CachedNotifications(ctx)
	if err != nil {
		t.Fatalf("CachedNotifications: %v", err)
	}
	if len(got) != 1 || got[0].ID != 2 {
		t.Errorf("cache = %v, want only id 2", got)
	}
}

func TestMemoryStoreMatchesContract(t *testing.T) {
	s := NewMemoryStore()

	if err := s.SetToken("tok"); err != nil {
		t.Fatalf("SetToken: %v", err)
	}
	token, _ := s.Token()
	if token != "tok" {
		t.Errorf("token = %q", token)
	}

	s.AddHiddenID(4)
	s.AddHiddenID(4)
	if got := s.HiddenIDs(); len(got) != 1 {
		t.Errorf("hidden = %v, want {4}", got)
	}
	s.ClearHiddenIDs()
	if got := s.HiddenIDs(); len(got) != 0 {
		t.Errorf("hidden after clear = %v", got)
	}

	ctx := context.Background()
	list := []model.Notification{{ID: 1, Kind: model.KindOther}}
	if err := s.CacheNotifications(ctx, list); err != nil {
		t.Fatalf("CacheNotifications: %v", err)
	}
	got, err := s.CachedNotifications(ctx)
	if err != nil || len(got) != 1 {
		t.Errorf("cached = %v, %v", got, err)
	}
}
