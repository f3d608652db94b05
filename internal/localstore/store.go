package localstore

import (
	"context"
	"sort"
	"sync"

	"github.com/JCampos05/taskeer-notify/internal/model"
)

// Well-known keys in the key/value table. They match the storage keys
// the Taskeer web client uses so a migration between the two stays
// mechanical.
const (
	KeyAuthToken = "auth_token"
	KeyHiddenIDs = "notificaciones_ocultas"
)

// Store is the durable client-side state: the auth token and the set of
// notification IDs the user dismissed without server acknowledgment,
// plus a cache of the last reconciled view for offline startup.
//
// Reads of the hidden set never fail: corrupt stored data is logged,
// treated as empty, and overwritten by the next write.
type Store interface {
	Token() (string, error)
	SetToken(token string) error
	DeleteToken() error

	HiddenIDs() map[int]struct{}
	AddHiddenID(id int) error
	ClearHiddenIDs() error

	CacheNotifications(ctx context.Context, list []model.Notification) error
	CachedNotifications(ctx context.Context) ([]model.Notification, error)

	Close() error
}

// MemoryStore is an in-memory Store used in tests and as the fake the
// pipeline components are developed against.
type MemoryStore struct {
	mu     sync.Mutex
	token  string
	hidden map[int]struct{}
	cache  []model.Notification
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{hidden: make(map[int]struct{})}
}

func (s *MemoryStore) Token() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, nil
}

func (s *MemoryStore) SetToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

func (s *MemoryStore) DeleteToken() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	return nil
}

func (s *MemoryStore) HiddenIDs() map[int]struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int]struct{}, len(s.hidden))
	for id := range s.hidden {
		out[id] = struct{}{}
	}
	return out
}

func (s *MemoryStore) AddHiddenID(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hidden[id] = struct{}{}
	return nil
}

func (s *MemoryStore) ClearHiddenIDs() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hidden = make(map[int]struct{})
	return nil
}

func (s *MemoryStore) CacheNotifications(_ context.Context, list []model.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = append([]model.Notification(nil), list...)
	return nil
}

func (s *MemoryStore) CachedNotifications(_ context.Context) ([]model.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Notification(nil), s.cache...), nil
}

func (s *MemoryStore) Close() error { return nil }

// sortedIDs returns the IDs of a hidden set in ascending order, used
// when serializing so the stored JSON is stable.
func sortedIDs(set map[int]struct{}) []int {
	ids := make([]int, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
