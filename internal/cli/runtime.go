package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"tasksync-cli/internal/api"
	"tasksync-cli/internal/conversation"
	"tasksync-cli/internal/logging"
	"tasksync-cli/internal/mutate"
	"tasksync-cli/internal/notify"
	"tasksync-cli/internal/session"
	"tasksync-cli/internal/store"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// runtime is the wiring shared by every command that talks to the service.
type runtime struct {
	dir    string
	cfg    *store.Config
	log    *zap.Logger
	store  session.Store
	client *api.Client
	sess   *session.Manager
	notify notify.Notifier

	closers []func() error
}

func ctxOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func openRuntime(cmd *cobra.Command, app *App) (*runtime, error) {
	dir, err := store.ConfigDir()
	if err != nil {
		return nil, err
	}
	cfg, err := store.LoadConfig()
	if err != nil {
		return nil, err
	}

	log, err := logging.New(logging.Options{Path: filepath.Join(dir, logging.FileName), Level: cfg.LogLevel})
	if err != nil {
		return nil, err
	}
	log = log.With(zap.String("cmd", cmd.CommandPath()))

	rt := &runtime{dir: dir, cfg: cfg, log: log}
	rt.closers = append(rt.closers, func() error { _ = log.Sync(); return nil })

	st, err := rt.openSessionStore(app)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.store = st

	rt.client = api.New(api.Options{
		BaseURL: resolveAPIURL(app, cfg),
		Timeout: cfg.Timeout(),
		Logger:  log.Named("api"),
	})
	rt.sess = session.NewManager(st, rt.client, session.Options{
		StrictTokens: cfg.StrictTokens,
		Logger:       log.Named("session"),
	})
	rt.client.Bind(rt.sess, rt.sess.HandleUnauthorized)
	rt.notify = notify.Multi{notify.NewWriter(cmd.ErrOrStderr()), notify.Log{L: log.Named("notify")}}

	if err := rt.sess.Start(ctxOf(cmd)); err != nil {
		rt.Close()
		return nil, fmt.Errorf("load session: %w", err)
	}
	return rt, nil
}

// resolveAPIURL applies flag/env > config > default.
func resolveAPIURL(app *App, cfg *store.Config) string {
	if v := strings.TrimSpace(app.APIURL); v != "" {
		return v
	}
	if v := strings.TrimSpace(cfg.APIURL); v != "" {
		return v
	}
	return store.DefaultAPIURL
}

func (rt *runtime) openSessionStore(app *App) (session.Store, error) {
	switch rt.cfg.Backend() {
	case store.SessionBackendFile:
		return store.NewFileSessionStore(rt.dir), nil
	case store.SessionBackendRedis:
		url := strings.TrimSpace(app.RedisURL)
		if url == "" {
			url = strings.TrimSpace(rt.cfg.RedisURL)
		}
		if url == "" {
			return nil, errors.New("session_backend is redis but no redis_url is set (tasksync config set redis_url redis://host:6379/0)")
		}
		rs, err := store.NewRedisSessionStore(url, app.Profile, rt.log.Named("redis"))
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, rs.Close)
		return rs, nil
	default:
		return nil, fmt.Errorf("unknown session_backend %q", rt.cfg.SessionBackend)
	}
}

func (rt *runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil && rt.log != nil {
			rt.log.Debug("close", zap.Error(err))
		}
	}
	rt.closers = nil
}

func (rt *runtime) coordinator() *mutate.Coordinator {
	return mutate.NewCoordinator(rt.client, mutate.NewCollection(nil), rt.notify, rt.log.Named("mutate"))
}

func (rt *runtime) conversation() *conversation.Manager {
	return conversation.New(rt.client, rt.sess, conversation.Options{
		Notifier: rt.notify,
		Logger:   rt.log.Named("conversation"),
	})
}

func (rt *runtime) cache(ctx context.Context) (*store.Cache, error) {
	c, err := store.OpenCache(ctx, rt.dir)
	if err != nil {
		return nil, err
	}
	rt.closers = append(rt.closers, c.Close)
	return c, nil
}

// requireLogin fails fast with a hint instead of letting the first request 401.
func (rt *runtime) requireLogin() error {
	if rt.sess.State() != session.StateAuthenticated {
		return errNotLoggedIn
	}
	return nil
}

func withRuntime(cmd *cobra.Command, app *App, fn func(rt *runtime) error) error {
	rt, err := openRuntime(cmd, app)
	if err != nil {
		return writeErr(cmd, err)
	}
	defer rt.Close()
	if err := fn(rt); err != nil {
		return writeErr(cmd, err)
	}
	return nil
}
