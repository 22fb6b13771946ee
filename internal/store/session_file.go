package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"tasksync-cli/internal/session"
)

const sessionFileName = "session.json"

// FileSessionStore keeps the session in <config dir>/session.json (mode 0600).
// Every process using the same config dir sees the same session; other
// processes' writes are picked up by polling Read.
type FileSessionStore struct {
	Dir string

	mu      sync.Mutex
	modTime time.Time
	size    int64
	cached  session.Snapshot
}

func NewFileSessionStore(dir string) *FileSessionStore {
	return &FileSessionStore{Dir: dir}
}

func (s *FileSessionStore) path() string {
	return filepath.Join(s.Dir, sessionFileName)
}

func (s *FileSessionStore) Init(context.Context) error {
	if strings.TrimSpace(s.Dir) == "" {
		return errors.New("session store: missing dir")
	}
	return os.MkdirAll(s.Dir, 0o700)
}

// Read returns the persisted snapshot. The file is only re-parsed when its
// mod time or size changed. A missing or corrupt file reads as signed out.
func (s *FileSessionStore) Read(context.Context) (session.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fi, err := os.Stat(s.path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.modTime, s.size, s.cached = time.Time{}, 0, session.Snapshot{}
			return session.Snapshot{}, nil
		}
		return session.Snapshot{}, err
	}
	if fi.ModTime().Equal(s.modTime) && fi.Size() == s.size {
		return s.cached, nil
	}
	b, err := os.ReadFile(s.path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return session.Snapshot{}, nil
		}
		return session.Snapshot{}, err
	}
	var snap session.Snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		snap = session.Snapshot{}
	}
	s.modTime, s.size, s.cached = fi.ModTime(), fi.Size(), snap
	return snap, nil
}

func (s *FileSessionStore) Write(_ context.Context, snap session.Snapshot) error {
	if err := os.MkdirAll(s.Dir, 0o700); err != nil {
		return err
	}
	b, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return atomicWriteFile(s.Dir, "session.json.*.tmp", s.path(), b, 0o600)
}

// Clear removes the credential, cached user and conversation id in one step.
func (s *FileSessionStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Changes returns nil: files have no push notifications, so observers poll.
func (s *FileSessionStore) Changes() <-chan struct{} { return nil }
