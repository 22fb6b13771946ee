package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tasksync-cli/internal/model"
	"tasksync-cli/internal/session"
)

func TestFileSessionStore_WriteReadClear(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := NewFileSessionStore(dir)
	require.NoError(t, s.Init(ctx))

	snap, err := s.Read(ctx)
	require.NoError(t, err)
	require.False(t, snap.Authenticated())

	want := session.Snapshot{
		Token:          "tok",
		User:           &model.User{ID: "u-1", Email: "a@b.co", Name: "Ada"},
		ConversationID: "conv-1",
		SavedAt:        time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	require.NoError(t, s.Write(ctx, want))

	fi, err := os.Stat(filepath.Join(dir, sessionFileName))
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), fi.Mode().Perm())

	got, err := s.Read(ctx)
	require.NoError(t, err)
	require.True(t, want.Same(got))
	require.True(t, want.SavedAt.Equal(got.SavedAt))

	require.NoError(t, s.Clear(ctx))
	require.NoError(t, s.Clear(ctx))
	got, err = s.Read(ctx)
	require.NoError(t, err)
	require.Equal(t, session.Snapshot{}, got)
}

func TestFileSessionStore_SeesOtherProcessWrites(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	a := NewFileSessionStore(dir)
	b := NewFileSessionStore(dir)
	require.NoError(t, a.Init(ctx))

	require.NoError(t, a.Write(ctx, session.Snapshot{Token: "first"}))
	got, err := b.Read(ctx)
	require.NoError(t, err)
	require.Equal(t, "first", got.Token)

	require.NoError(t, a.Write(ctx, session.Snapshot{Token: "second-token"}))
	got, err = b.Read(ctx)
	require.NoError(t, err)
	require.Equal(t, "second-token", got.Token)
}

func TestFileSessionStore_CorruptFileReadsSignedOut(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, sessionFileName), []byte("garbage"), 0o600))
	got, err := NewFileSessionStore(dir).Read(ctx)
	require.NoError(t, err)
	require.False(t, got.Authenticated())
}

// Two managers on one config dir behave like two terminals: a logout in one
// reaches the other through polling.
func TestFileSessionStore_CrossProcessLogout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	dir := t.TempDir()

	storeA := NewFileSessionStore(dir)
	require.NoError(t, storeA.Init(ctx))
	require.NoError(t, storeA.Write(ctx, session.Snapshot{Token: "tok"}))

	a := session.NewManager(storeA, nil, session.Options{})
	require.NoError(t, a.Start(ctx))

	storeB := NewFileSessionStore(dir)
	b := session.NewManager(storeB, nil, session.Options{})
	require.NoError(t, b.Start(ctx))
	require.Equal(t, session.StateAuthenticated, b.State())

	obs := session.NewPollObserver(storeB, 10*time.Millisecond, nil)
	b.Follow(obs)
	obs.Start(ctx)
	defer obs.Stop()

	require.NoError(t, a.Logout(ctx))
	require.Eventually(t, func() bool { return b.State() == session.StateUnauthenticated }, 2*time.Second, 10*time.Millisecond)
}
