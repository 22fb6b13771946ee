package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"tasksync-cli/internal/model"
	"tasksync-cli/internal/session"
)

func testRedisAddr() string {
	if v := os.Getenv("TASKSYNC_TEST_REDIS_ADDR"); v != "" {
		return v
	}
	return "localhost:6379"
}

func newTestRedisStore(t *testing.T, profile string) *RedisSessionStore {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: testRedisAddr()})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		t.Skipf("Redis not available at %s: %v", testRedisAddr(), err)
	}
	s := newRedisSessionStore(client, profile, nil)
	require.NoError(t, s.Init(context.Background()))
	t.Cleanup(func() {
		_ = client.Del(context.Background(), s.key).Err()
		_ = s.Close()
	})
	return s
}

func TestRedisSessionStore_WriteReadClear(t *testing.T) {
	ctx := context.Background()
	profile := "test-" + time.Now().Format("150405.000000")
	s := newTestRedisStore(t, profile)

	want := session.Snapshot{
		Token:          "tok",
		User:           &model.User{ID: "u-1", Name: "Ada"},
		ConversationID: "conv-1",
		SavedAt:        time.Now().UTC(),
	}
	require.NoError(t, s.Write(ctx, want))
	got, err := s.Read(ctx)
	require.NoError(t, err)
	require.True(t, want.Same(got))

	require.NoError(t, s.Clear(ctx))
	got, err = s.Read(ctx)
	require.NoError(t, err)
	require.False(t, got.Authenticated())
}

func TestRedisSessionStore_PublishesChanges(t *testing.T) {
	ctx := context.Background()
	profile := "test-pub-" + time.Now().Format("150405.000000")
	writer := newTestRedisStore(t, profile)
	watcher := newTestRedisStore(t, profile)

	// Drain anything buffered by the writer's own subscription setup.
	select {
	case <-watcher.Changes():
	default:
	}

	require.NoError(t, writer.Write(ctx, session.Snapshot{Token: "tok"}))
	select {
	case <-watcher.Changes():
	case <-time.After(2 * time.Second):
		t.Fatalf("expected a change notification")
	}
}
