// Package session tracks whether the user is signed in, keeps the persisted
// credential in sync across processes, and derives display identity.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"tasksync-cli/internal/api"
	"tasksync-cli/internal/model"
)

type State string

const (
	StateUnauthenticated State = "unauthenticated"
	StateAuthenticated   State = "authenticated"
)

// Authenticator exchanges credentials for a token. *api.Client satisfies it.
type Authenticator interface {
	Login(ctx context.Context, creds model.Credentials) (model.AuthResponse, error)
	Register(ctx context.Context, creds model.Credentials) (model.AuthResponse, error)
}

type Options struct {
	// StrictTokens signs the user out when the stored token cannot be decoded,
	// instead of showing a placeholder identity.
	StrictTokens bool
	Logger       *zap.Logger
	Now          func() time.Time
}

type Manager struct {
	store Store
	auth  Authenticator
	opts  Options
	log   *zap.Logger

	mu       sync.RWMutex
	snap     Snapshot
	state    State
	identity Identity
	subs     map[int]func(State)
	nextID   int
}

func NewManager(store Store, auth Authenticator, opts Options) *Manager {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		store: store,
		auth:  auth,
		opts:  opts,
		log:   log,
		state: StateUnauthenticated,
		subs:  map[int]func(State){},
	}
}

// Start initializes the store and loads the persisted session.
func (m *Manager) Start(ctx context.Context) error {
	if err := m.store.Init(ctx); err != nil {
		return err
	}
	_, err := m.Revalidate(ctx)
	return err
}

// Revalidate re-reads the persisted session and applies it as authoritative.
func (m *Manager) Revalidate(ctx context.Context) (State, error) {
	snap, err := m.store.Read(ctx)
	if err != nil {
		return m.State(), err
	}
	return m.apply(ctx, snap), nil
}

// Follow revalidates whenever o reports a change.
func (m *Manager) Follow(o Observer) (unsubscribe func()) {
	return o.Subscribe(func() {
		if _, err := m.Revalidate(context.Background()); err != nil {
			m.log.Warn("session revalidate failed", zap.Error(err))
		}
	})
}

func (m *Manager) Login(ctx context.Context, creds model.Credentials) (Identity, error) {
	if err := creds.Validate(false); err != nil {
		return Identity{}, err
	}
	resp, err := m.auth.Login(ctx, creds)
	if err != nil {
		return Identity{}, err
	}
	return m.establish(ctx, resp)
}

func (m *Manager) Register(ctx context.Context, creds model.Credentials) (Identity, error) {
	if err := creds.Validate(true); err != nil {
		return Identity{}, err
	}
	resp, err := m.auth.Register(ctx, creds)
	if err != nil {
		return Identity{}, err
	}
	return m.establish(ctx, resp)
}

func (m *Manager) establish(ctx context.Context, resp model.AuthResponse) (Identity, error) {
	if resp.AccessToken == "" {
		return Identity{}, api.TransportError{Op: "authenticate", Message: "Server returned no access token"}
	}
	user := resp.User
	snap := Snapshot{Token: resp.AccessToken, User: &user, SavedAt: m.opts.Now().UTC()}
	if err := m.store.Write(ctx, snap); err != nil {
		return Identity{}, err
	}
	m.log.Info("signed in", zap.String("user_id", user.ID))
	if m.apply(ctx, snap) != StateAuthenticated {
		return Identity{}, errors.New("token rejected: cannot decode credential")
	}
	return m.Identity(), nil
}

// Logout clears the credential, cached user and conversation id together.
func (m *Manager) Logout(ctx context.Context) error {
	err := m.store.Clear(ctx)
	m.apply(ctx, Snapshot{})
	m.log.Info("signed out")
	return err
}

// HandleUnauthorized tears the session down after any 401 from an
// authenticated endpoint. It is the api client's unauthorized hook. A 401 for a
// token other than the current one is a leftover from before a re-login and is
// ignored; an empty token always tears down.
func (m *Manager) HandleUnauthorized(token string) {
	m.mu.RLock()
	current := m.snap.Token
	m.mu.RUnlock()
	if token != "" && token != current {
		m.log.Info("ignoring 401 for a replaced token")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.store.Clear(ctx); err != nil {
		m.log.Warn("clear session after 401 failed", zap.Error(err))
	}
	m.apply(ctx, Snapshot{})
	m.log.Info("session expired")
}

// Token implements api.TokenSource.
func (m *Manager) Token() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.state != StateAuthenticated {
		return "", false
	}
	return m.snap.Token, true
}

func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

func (m *Manager) Identity() Identity {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.identity
}

func (m *Manager) ConversationID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snap.ConversationID
}

// SetConversationID persists the active conversation alongside the credential.
// An empty id forgets the conversation.
func (m *Manager) SetConversationID(ctx context.Context, id string) error {
	m.mu.Lock()
	if m.state != StateAuthenticated {
		m.mu.Unlock()
		return api.ErrNotAuthenticated
	}
	if m.snap.ConversationID == id {
		m.mu.Unlock()
		return nil
	}
	m.snap.ConversationID = id
	m.snap.SavedAt = m.opts.Now().UTC()
	snap := m.snap
	m.mu.Unlock()
	return m.store.Write(ctx, snap)
}

// Subscribe registers fn for state transitions and credential changes.
func (m *Manager) Subscribe(fn func(State)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = fn
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

func (m *Manager) apply(ctx context.Context, snap Snapshot) State {
	next := StateUnauthenticated
	var ident Identity
	if snap.Authenticated() {
		var decoded bool
		ident, decoded = resolveIdentity(snap)
		if !decoded && m.opts.StrictTokens {
			m.log.Warn("stored token is not decodable; signing out")
			if err := m.store.Clear(ctx); err != nil {
				m.log.Warn("clear session failed", zap.Error(err))
			}
			snap = Snapshot{}
			ident = Identity{}
		} else {
			if !decoded {
				m.log.Debug("token identity not decodable; using fallback")
			}
			next = StateAuthenticated
		}
	}

	m.mu.Lock()
	changed := m.state != next || m.snap.Token != snap.Token
	m.snap = snap
	m.state = next
	m.identity = ident
	var subs []func(State)
	if changed {
		for _, fn := range m.subs {
			subs = append(subs, fn)
		}
	}
	m.mu.Unlock()

	for _, fn := range subs {
		fn(next)
	}
	return next
}
