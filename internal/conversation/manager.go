// Package conversation owns the single chat conversation bound to a session:
// history replay, optimistic sends, and recovery when the session expires.
package conversation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tasksync-cli/internal/api"
	"tasksync-cli/internal/model"
	"tasksync-cli/internal/notify"
	"tasksync-cli/internal/session"
)

type State string

const (
	StateNone    State = "no_conversation"
	StateLoading State = "loading_history"
	StateActive  State = "active"
	StateSending State = "sending"
	StateExpired State = "expired"
)

const (
	DefaultExpiryDelay = 1500 * time.Millisecond

	WelcomeMessage = "Hi! I'm your task assistant. Ask me to add or find tasks, or try one of the suggested prompts."

	msgLoginRequired = "Please login to use the AI assistant."
	msgUnavailable   = "AI assistant is currently unavailable."
	msgExpired       = "Session expired. Please login again."
)

// SuggestedPrompts are offered when a conversation is empty.
var SuggestedPrompts = []string{
	"Add a task to prepare quarterly report",
	"Show me overdue tasks",
	"Create a shopping list for groceries",
	"Schedule a team meeting for next week",
	"What tasks are due today?",
}

var (
	ErrSendInFlight = errors.New("a message is already being sent")
	ErrLoading      = errors.New("conversation history is still loading")
	ErrClosed       = errors.New("conversation closed")
)

// ChatClient is the assistant endpoint. *api.Client satisfies it.
type ChatClient interface {
	SendChat(ctx context.Context, message, conversationID string) (model.ChatResponse, error)
	ChatHistory(ctx context.Context, conversationID string) ([]model.ChatMessage, error)
}

// Session is the part of *session.Manager the conversation depends on.
type Session interface {
	Revalidate(ctx context.Context) (session.State, error)
	State() session.State
	ConversationID() string
	SetConversationID(ctx context.Context, id string) error
	Subscribe(fn func(session.State)) (unsubscribe func())
}

type Options struct {
	// ExpiryDelay is how long after an expiry OnExpired runs.
	ExpiryDelay time.Duration
	// OnExpired returns the surface to a logged-out view. It runs on its own goroutine.
	OnExpired func()
	Notifier  notify.Notifier
	Logger    *zap.Logger
	Now       func() time.Time
}

type Manager struct {
	chat     ChatClient
	sess     Session
	opts     Options
	log      *zap.Logger
	notifier notify.Notifier

	mu       sync.Mutex
	state    State
	messages []model.ChatMessage
	closed   bool
	// gen changes whenever the conversation is reset, so a history fetch
	// started before the reset can tell that its result is stale.
	gen    uint64
	timer  *time.Timer
	subs   map[int]func(State)
	nextID int
	unsub  func()
}

func New(chat ChatClient, sess Session, opts Options) *Manager {
	if opts.ExpiryDelay <= 0 {
		opts.ExpiryDelay = DefaultExpiryDelay
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	m := &Manager{
		chat:     chat,
		sess:     sess,
		opts:     opts,
		log:      opts.Logger,
		notifier: opts.Notifier,
		state:    StateNone,
		subs:     map[int]func(State){},
	}
	if m.log == nil {
		m.log = zap.NewNop()
	}
	if m.notifier == nil {
		m.notifier = notify.Nop{}
	}
	m.unsub = sess.Subscribe(m.onSession)
	return m
}

func (m *Manager) onSession(s session.State) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	var next State
	switch {
	case s == session.StateAuthenticated && m.state == StateExpired:
		// Re-authenticated: start over.
		next = StateNone
	case s == session.StateUnauthenticated && m.state != StateExpired && m.state != StateSending:
		// Signed out elsewhere.
		m.messages = nil
		next = StateNone
	default:
		m.mu.Unlock()
		return
	}
	m.gen++
	subs := m.setStateLocked(next)
	m.mu.Unlock()
	m.publish(subs, next)
}

// Open prepares the conversation for display. The session is re-checked on
// every call. A persisted conversation id triggers a history fetch; without one
// a local welcome message is shown.
func (m *Manager) Open(ctx context.Context) ([]model.ChatMessage, error) {
	st, err := m.sess.Revalidate(ctx)
	if err != nil {
		m.log.Warn("session revalidate failed", zap.Error(err))
	}
	if st != session.StateAuthenticated {
		return nil, api.ErrNotAuthenticated
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}
	switch m.state {
	case StateActive, StateSending, StateLoading:
		out := m.snapshotLocked()
		m.mu.Unlock()
		return out, nil
	}
	id := m.sess.ConversationID()
	if id == "" {
		m.messages = []model.ChatMessage{m.welcome()}
		subs := m.setStateLocked(StateActive)
		out := m.snapshotLocked()
		m.mu.Unlock()
		m.publish(subs, StateActive)
		return out, nil
	}
	subs := m.setStateLocked(StateLoading)
	gen := m.gen
	m.mu.Unlock()
	m.publish(subs, StateLoading)

	history, err := m.chat.ChatHistory(ctx, id)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}
	if m.gen != gen || m.state != StateLoading {
		// Reset while the fetch was running (new chat or sign-out).
		out := m.snapshotLocked()
		m.mu.Unlock()
		m.log.Debug("discarding stale chat history", zap.String("conversation_id", id))
		if errors.Is(err, api.ErrAuthExpired) {
			return nil, err
		}
		return out, nil
	}
	if err != nil {
		if errors.Is(err, api.ErrAuthExpired) {
			m.mu.Unlock()
			m.expire(ctx)
			return nil, err
		}
		// History is best-effort: show a fresh conversation rather than blocking.
		m.log.Warn("chat history load failed", zap.String("conversation_id", id), zap.Error(err))
		m.messages = []model.ChatMessage{m.welcome()}
	} else {
		m.messages = make([]model.ChatMessage, 0, len(history))
		for _, msg := range history {
			if msg.ID == "" {
				msg.ID = uuid.NewString()
			}
			m.messages = append(m.messages, msg)
		}
		if len(m.messages) == 0 {
			m.messages = []model.ChatMessage{m.welcome()}
		}
		m.log.Debug("chat history loaded", zap.String("conversation_id", id), zap.Int("count", len(history)))
	}
	subs = m.setStateLocked(StateActive)
	out := m.snapshotLocked()
	m.mu.Unlock()
	m.publish(subs, StateActive)
	return out, nil
}

// Send appends the user's message right away, then asks the assistant. On
// failure the optimistic message is removed again; the text is not restored.
func (m *Manager) Send(ctx context.Context, text string) (model.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.ChatMessage{}, model.ValidationError{Field: "message", Message: "Message cannot be empty"}
	}
	if m.sess.State() != session.StateAuthenticated {
		m.notifier.Error(msgLoginRequired)
		return model.ChatMessage{}, api.ErrNotAuthenticated
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return model.ChatMessage{}, ErrClosed
	}
	if m.state == StateNone && m.sess.ConversationID() != "" {
		// Replay the stored conversation first so the transcript matches the server's.
		m.mu.Unlock()
		if _, err := m.Open(ctx); err != nil {
			return model.ChatMessage{}, err
		}
		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			return model.ChatMessage{}, ErrClosed
		}
	}
	switch m.state {
	case StateSending:
		m.mu.Unlock()
		return model.ChatMessage{}, ErrSendInFlight
	case StateLoading:
		m.mu.Unlock()
		return model.ChatMessage{}, ErrLoading
	case StateNone, StateExpired:
		m.messages = []model.ChatMessage{m.welcome()}
	}
	pending := model.ChatMessage{
		ID:        uuid.NewString(),
		Role:      model.RoleUser,
		Content:   text,
		Timestamp: m.opts.Now().UTC(),
	}
	m.messages = append(m.messages, pending)
	subs := m.setStateLocked(StateSending)
	m.mu.Unlock()
	m.publish(subs, StateSending)

	resp, err := m.chat.SendChat(ctx, text, m.sess.ConversationID())

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return model.ChatMessage{}, ErrClosed
	}
	if err != nil {
		if errors.Is(err, api.ErrAuthExpired) {
			m.mu.Unlock()
			m.expire(ctx)
			return model.ChatMessage{}, err
		}
		m.removeLocked(pending.ID)
		subs = m.setStateLocked(StateActive)
		m.mu.Unlock()
		m.publish(subs, StateActive)

		m.log.Warn("chat send failed", zap.Error(err))
		msg := msgUnavailable
		if detail, ok := api.ServerMessage(err); ok {
			msg = detail
		}
		m.notifier.Error(msg)
		return model.ChatMessage{}, err
	}

	reply := model.ChatMessage{
		ID:        uuid.NewString(),
		Role:      model.RoleAssistant,
		Content:   resp.Response,
		Timestamp: resp.Timestamp,
	}
	if reply.Timestamp.IsZero() {
		reply.Timestamp = m.opts.Now().UTC()
	}
	m.messages = append(m.messages, reply)
	subs = m.setStateLocked(StateActive)
	m.mu.Unlock()
	m.publish(subs, StateActive)

	if resp.ConversationID != "" {
		if err := m.sess.SetConversationID(ctx, resp.ConversationID); err != nil {
			m.log.Warn("persist conversation id failed", zap.Error(err))
		}
	}
	return reply, nil
}

// NewChat forgets the current conversation locally. Nothing is sent to the server.
func (m *Manager) NewChat(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if m.state == StateSending {
		m.mu.Unlock()
		return ErrSendInFlight
	}
	m.gen++
	m.messages = []model.ChatMessage{m.welcome()}
	subs := m.setStateLocked(StateActive)
	m.mu.Unlock()
	m.publish(subs, StateActive)

	if err := m.sess.SetConversationID(ctx, ""); err != nil && !errors.Is(err, api.ErrNotAuthenticated) {
		return err
	}
	return nil
}

func (m *Manager) expire(ctx context.Context) {
	m.mu.Lock()
	m.gen++
	m.messages = nil
	subs := m.setStateLocked(StateExpired)
	if m.timer != nil {
		m.timer.Stop()
	}
	if fn := m.opts.OnExpired; fn != nil {
		m.timer = time.AfterFunc(m.opts.ExpiryDelay, func() {
			m.mu.Lock()
			closed := m.closed
			m.mu.Unlock()
			if !closed {
				fn()
			}
		})
	}
	m.mu.Unlock()
	m.publish(subs, StateExpired)

	// The 401 hook has normally cleared the session already; this covers stores
	// that failed to clear.
	if err := m.sess.SetConversationID(ctx, ""); err != nil && !errors.Is(err, api.ErrNotAuthenticated) {
		m.log.Warn("clear conversation id failed", zap.Error(err))
	}
	m.log.Info("chat session expired")
	m.notifier.Error(msgExpired)
}

func (m *Manager) Messages() []model.ChatMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) ConversationID() string { return m.sess.ConversationID() }

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

// Close detaches from the session and discards results that arrive later.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	if m.timer != nil {
		m.timer.Stop()
	}
	unsub := m.unsub
	m.unsub = nil
	m.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

func (m *Manager) welcome() model.ChatMessage {
	return model.ChatMessage{
		ID:        uuid.NewString(),
		Role:      model.RoleAssistant,
		Content:   WelcomeMessage,
		Timestamp: m.opts.Now().UTC(),
		Local:     true,
	}
}

func (m *Manager) removeLocked(id string) {
	for i := len(m.messages) - 1; i >= 0; i-- {
		if m.messages[i].ID == id {
			m.messages = append(m.messages[:i:i], m.messages[i+1:]...)
			return
		}
	}
}

func (m *Manager) snapshotLocked() []model.ChatMessage {
	out := make([]model.ChatMessage, len(m.messages))
	copy(out, m.messages)
	return out
}

// setStateLocked records the new state and returns the subscribers to notify.
func (m *Manager) setStateLocked(s State) []func(State) {
	if m.state == s {
		return nil
	}
	m.state = s
	subs := make([]func(State), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	return subs
}

func (m *Manager) publish(subs []func(State), s State) {
	for _, fn := range subs {
		fn(s)
	}
}
