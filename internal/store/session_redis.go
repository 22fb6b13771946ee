package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"tasksync-cli/internal/model"
	"tasksync-cli/internal/session"
)

const defaultRedisNamespace = "tasksync"

// RedisSessionStore keeps the session in a redis hash and announces every
// write on a pub/sub channel so other processes (and machines) see it at once.
type RedisSessionStore struct {
	client  *redis.Client
	key     string
	channel string
	log     *zap.Logger

	mu      sync.Mutex
	pubsub  *redis.PubSub
	changes chan struct{}
	done    chan struct{}
}

// NewRedisSessionStore connects to redisURL (redis://[:password@]host:port/db).
// profile scopes the keys so several users can share one server.
func NewRedisSessionStore(redisURL, profile string, log *zap.Logger) (*RedisSessionStore, error) {
	opts, err := redis.ParseURL(strings.TrimSpace(redisURL))
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return newRedisSessionStore(redis.NewClient(opts), profile, log), nil
}

func newRedisSessionStore(client *redis.Client, profile string, log *zap.Logger) *RedisSessionStore {
	if log == nil {
		log = zap.NewNop()
	}
	profile = strings.TrimSpace(profile)
	if profile == "" {
		profile = "default"
	}
	base := defaultRedisNamespace + ":session:" + profile
	return &RedisSessionStore{
		client:  client,
		key:     base,
		channel: base + ":changed",
		log:     log,
		changes: make(chan struct{}, 1),
	}
}

func (s *RedisSessionStore) Init(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pubsub != nil {
		return nil
	}
	ps := s.client.Subscribe(context.Background(), s.channel)
	// Wait for the subscription confirmation so no change is missed after Init.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}
	s.pubsub = ps
	s.done = make(chan struct{})
	go s.forward(ps.Channel(), s.done)
	return nil
}

func (s *RedisSessionStore) forward(ch <-chan *redis.Message, done chan struct{}) {
	defer close(done)
	for range ch {
		select {
		case s.changes <- struct{}{}:
		default:
		}
	}
}

func (s *RedisSessionStore) Read(ctx context.Context) (session.Snapshot, error) {
	vals, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return session.Snapshot{}, err
	}
	snap := session.Snapshot{
		Token:          vals["token"],
		ConversationID: vals["conversation_id"],
	}
	if raw := vals["user"]; raw != "" {
		var u model.User
		if err := json.Unmarshal([]byte(raw), &u); err == nil {
			snap.User = &u
		} else {
			s.log.Debug("ignoring corrupt cached user", zap.Error(err))
		}
	}
	if raw := vals["saved_at"]; raw != "" {
		if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			snap.SavedAt = ts
		}
	}
	return snap, nil
}

func (s *RedisSessionStore) Write(ctx context.Context, snap session.Snapshot) error {
	fields := map[string]any{
		"token":           snap.Token,
		"conversation_id": snap.ConversationID,
		"saved_at":        snap.SavedAt.UTC().Format(time.RFC3339Nano),
	}
	if snap.User != nil {
		b, err := json.Marshal(snap.User)
		if err != nil {
			return err
		}
		fields["user"] = string(b)
	}
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, s.key)
		p.HSet(ctx, s.key, fields)
		p.Publish(ctx, s.channel, "write")
		return nil
	})
	return err
}

func (s *RedisSessionStore) Clear(ctx context.Context) error {
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, s.key)
		p.Publish(ctx, s.channel, "clear")
		return nil
	})
	return err
}

func (s *RedisSessionStore) Changes() <-chan struct{} { return s.changes }

func (s *RedisSessionStore) Close() error {
	s.mu.Lock()
	ps, done := s.pubsub, s.done
	s.pubsub, s.done = nil, nil
	s.mu.Unlock()

	var errs []error
	if ps != nil {
		errs = append(errs, ps.Close())
		<-done
	}
	errs = append(errs, s.client.Close())
	return errors.Join(errs...)
}
