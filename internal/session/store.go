package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"tasksync-cli/internal/model"
)

// Snapshot is everything persisted for a session. The credential, the cached
// user and the active conversation id are written and cleared together.
type Snapshot struct {
	Token          string      `json:"token,omitempty"`
	User           *model.User `json:"user,omitempty"`
	ConversationID string      `json:"conversation_id,omitempty"`
	SavedAt        time.Time   `json:"saved_at,omitempty"`
}

func (s Snapshot) Authenticated() bool { return strings.TrimSpace(s.Token) != "" }

// Same reports whether two snapshots carry the same session state (SavedAt is ignored).
func (s Snapshot) Same(o Snapshot) bool {
	if s.Token != o.Token || s.ConversationID != o.ConversationID {
		return false
	}
	switch {
	case s.User == nil && o.User == nil:
		return true
	case s.User == nil || o.User == nil:
		return false
	}
	return s.User.ID == o.User.ID && s.User.Email == o.User.Email && s.User.Name == o.User.Name
}

// Store persists the session where other processes can see it.
//
// Changes may return nil when the backend has no push notifications; the
// PollObserver covers that case by polling Read.
type Store interface {
	Init(ctx context.Context) error
	Read(ctx context.Context) (Snapshot, error)
	Write(ctx context.Context, s Snapshot) error
	Clear(ctx context.Context) error
	Changes() <-chan struct{}
}

// MemoryStore keeps the session in memory. Several managers sharing one
// MemoryStore behave like several processes sharing a config dir.
type MemoryStore struct {
	mu      sync.Mutex
	snap    Snapshot
	changes chan struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{changes: make(chan struct{}, 1)}
}

func (m *MemoryStore) Init(context.Context) error { return nil }

func (m *MemoryStore) Read(context.Context) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.snap
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s, nil
}

func (m *MemoryStore) Write(_ context.Context, s Snapshot) error {
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	m.mu.Lock()
	m.snap = s
	m.mu.Unlock()
	m.signal()
	return nil
}

func (m *MemoryStore) Clear(context.Context) error {
	m.mu.Lock()
	m.snap = Snapshot{}
	m.mu.Unlock()
	m.signal()
	return nil
}

func (m *MemoryStore) Changes() <-chan struct{} { return m.changes }

func (m *MemoryStore) signal() {
	select {
	case m.changes <- struct{}{}:
	default:
	}
}
