package conversation

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tasksync-cli/internal/api"
	"tasksync-cli/internal/model"
	"tasksync-cli/internal/notify"
	"tasksync-cli/internal/session"
)

type fakeChat struct {
	sends   int32
	send    func(msg, id string) (model.ChatResponse, error)
	history func(id string) ([]model.ChatMessage, error)
}

func (f *fakeChat) SendChat(ctx context.Context, message, conversationID string) (model.ChatResponse, error) {
	atomic.AddInt32(&f.sends, 1)
	return f.send(message, conversationID)
}

func (f *fakeChat) ChatHistory(ctx context.Context, conversationID string) ([]model.ChatMessage, error) {
	return f.history(conversationID)
}

func newSession(t *testing.T, snap session.Snapshot) (*session.Manager, *session.MemoryStore) {
	t.Helper()
	st := session.NewMemoryStore()
	require.NoError(t, st.Write(context.Background(), snap))
	m := session.NewManager(st, nil, session.Options{})
	require.NoError(t, m.Start(context.Background()))
	return m, st
}

func TestOpen_ReplaysPersistedHistory(t *testing.T) {
	sess, _ := newSession(t, session.Snapshot{Token: "tok", ConversationID: "conv-1"})
	server := []model.ChatMessage{
		{Role: model.RoleUser, Content: "add milk"},
		{Role: model.RoleAssistant, Content: "Added \"milk\"."},
	}
	chat := &fakeChat{history: func(id string) ([]model.ChatMessage, error) {
		require.Equal(t, "conv-1", id)
		return server, nil
	}}
	m := New(chat, sess, Options{})
	defer m.Close()

	var states []State
	m.Subscribe(func(s State) { states = append(states, s) })

	msgs, err := m.Open(context.Background())
	require.NoError(t, err)
	require.Equal(t, []State{StateLoading, StateActive}, states)
	require.Len(t, msgs, 2)
	require.Equal(t, "add milk", msgs[0].Content)
	require.Equal(t, model.RoleAssistant, msgs[1].Role)
	require.Equal(t, "conv-1", m.ConversationID())
}

func TestOpen_WithoutConversationSeedsWelcome(t *testing.T) {
	sess, _ := newSession(t, session.Snapshot{Token: "tok"})
	m := New(&fakeChat{}, sess, Options{})
	defer m.Close()

	msgs, err := m.Open(context.Background())
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.True(t, msgs[0].Local)
	require.Equal(t, WelcomeMessage, msgs[0].Content)
	require.Equal(t, StateActive, m.State())
}

func TestOpen_HistoryFailureDegrades(t *testing.T) {
	sess, _ := newSession(t, session.Snapshot{Token: "tok", ConversationID: "conv-1"})
	chat := &fakeChat{history: func(string) ([]model.ChatMessage, error) {
		return nil, api.TransportError{Op: "load chat history", Status: 500, Message: "boom"}
	}}
	m := New(chat, sess, Options{})
	defer m.Close()

	msgs, err := m.Open(context.Background())
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, StateActive, m.State())
}

func TestOpen_Unauthenticated(t *testing.T) {
	sess, _ := newSession(t, session.Snapshot{})
	m := New(&fakeChat{}, sess, Options{})
	defer m.Close()
	_, err := m.Open(context.Background())
	require.ErrorIs(t, err, api.ErrNotAuthenticated)
}

func TestSend_SuccessPersistsConversationID(t *testing.T) {
	sess, st := newSession(t, session.Snapshot{Token: "tok"})
	chat := &fakeChat{send: func(msg, id string) (model.ChatResponse, error) {
		require.Equal(t, "", id)
		return model.ChatResponse{Response: "Done!", ConversationID: "conv-9"}, nil
	}}
	m := New(chat, sess, Options{})
	defer m.Close()
	_, err := m.Open(context.Background())
	require.NoError(t, err)

	reply, err := m.Send(context.Background(), "  add eggs  ")
	require.NoError(t, err)
	require.Equal(t, "Done!", reply.Content)

	msgs := m.Messages()
	require.Len(t, msgs, 3)
	require.Equal(t, "add eggs", msgs[1].Content)
	require.Equal(t, model.RoleUser, msgs[1].Role)

	snap, err := st.Read(context.Background())
	require.NoError(t, err)
	require.Equal(t, "conv-9", snap.ConversationID)
}

func TestSend_FailureRollsBackOptimisticMessage(t *testing.T) {
	sess, _ := newSession(t, session.Snapshot{Token: "tok"})
	chat := &fakeChat{send: func(string, string) (model.ChatResponse, error) {
		return model.ChatResponse{}, api.TransportError{Op: "send message", Err: errors.New("dial tcp: refused")}
	}}
	rec := &notify.Recorder{}
	m := New(chat, sess, Options{Notifier: rec})
	defer m.Close()
	before, err := m.Open(context.Background())
	require.NoError(t, err)

	_, err = m.Send(context.Background(), "hello")
	require.Error(t, err)
	require.Equal(t, before, m.Messages())
	require.Equal(t, StateActive, m.State())
	require.Equal(t, []string{"AI assistant is currently unavailable."}, rec.Messages(notify.LevelError))
}

func TestSend_WhilePendingIsRejected(t *testing.T) {
	sess, _ := newSession(t, session.Snapshot{Token: "tok"})
	release := make(chan struct{})
	entered := make(chan struct{})
	chat := &fakeChat{send: func(string, string) (model.ChatResponse, error) {
		close(entered)
		<-release
		return model.ChatResponse{Response: "ok", ConversationID: "c"}, nil
	}}
	m := New(chat, sess, Options{})
	defer m.Close()
	_, err := m.Open(context.Background())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := m.Send(context.Background(), "first")
		done <- err
	}()
	<-entered
	require.Equal(t, StateSending, m.State())
	_, err = m.Send(context.Background(), "second")
	require.ErrorIs(t, err, ErrSendInFlight)

	close(release)
	require.NoError(t, <-done)
	require.Equal(t, int32(1), atomic.LoadInt32(&chat.sends))
}

func TestSend_Validation(t *testing.T) {
	sess, _ := newSession(t, session.Snapshot{})
	chat := &fakeChat{}
	rec := &notify.Recorder{}
	m := New(chat, sess, Options{Notifier: rec})
	defer m.Close()

	_, err := m.Send(context.Background(), "   ")
	require.True(t, model.IsValidationError(err))

	_, err = m.Send(context.Background(), "hi")
	require.ErrorIs(t, err, api.ErrNotAuthenticated)
	require.Zero(t, atomic.LoadInt32(&chat.sends))
	require.Equal(t, []string{"Please login to use the AI assistant."}, rec.Messages(notify.LevelError))
}

func TestSend_ExpiryClearsEverything(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/chat/history/conv-1":
			_, _ = io.WriteString(w, `{"messages":[{"role":"user","content":"hi","timestamp":"2026-01-01T00:00:00Z"}]}`)
		case "/api/chat":
			w.WriteHeader(http.StatusUnauthorized)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	sess, st := newSession(t, session.Snapshot{Token: "tok", ConversationID: "conv-1"})
	client := api.New(api.Options{BaseURL: srv.URL})
	client.Bind(sess, sess.HandleUnauthorized)

	expired := make(chan struct{})
	rec := &notify.Recorder{}
	m := New(client, sess, Options{
		ExpiryDelay: 10 * time.Millisecond,
		OnExpired:   func() { close(expired) },
		Notifier:    rec,
	})
	defer m.Close()

	msgs, err := m.Open(context.Background())
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	_, err = m.Send(context.Background(), "hello again")
	require.ErrorIs(t, err, api.ErrAuthExpired)
	require.Equal(t, StateExpired, m.State())
	require.Empty(t, m.Messages())
	require.Equal(t, session.StateUnauthenticated, sess.State())

	snap, err := st.Read(context.Background())
	require.NoError(t, err)
	require.Empty(t, snap.Token)
	require.Empty(t, snap.ConversationID)
	require.Contains(t, rec.Messages(notify.LevelError), "Session expired. Please login again.")

	select {
	case <-expired:
	case <-time.After(time.Second):
		t.Fatalf("OnExpired was not called")
	}

	// Signing in again resets the conversation.
	require.NoError(t, st.Write(context.Background(), session.Snapshot{Token: "tok-2"}))
	_, err = sess.Revalidate(context.Background())
	require.NoError(t, err)
	require.Equal(t, StateNone, m.State())
}

func TestNewChat_ForgetsConversation(t *testing.T) {
	sess, st := newSession(t, session.Snapshot{Token: "tok", ConversationID: "conv-1"})
	chat := &fakeChat{history: func(string) ([]model.ChatMessage, error) {
		return []model.ChatMessage{{Role: model.RoleUser, Content: "old"}}, nil
	}}
	m := New(chat, sess, Options{})
	defer m.Close()
	_, err := m.Open(context.Background())
	require.NoError(t, err)

	require.NoError(t, m.NewChat(context.Background()))
	msgs := m.Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, WelcomeMessage, msgs[0].Content)

	snap, err := st.Read(context.Background())
	require.NoError(t, err)
	require.Empty(t, snap.ConversationID)
	require.Equal(t, "tok", snap.Token)
}

func TestOpen_NewChatDuringHistoryFetchWins(t *testing.T) {
	sess, st := newSession(t, session.Snapshot{Token: "tok", ConversationID: "conv-1"})
	entered := make(chan struct{})
	release := make(chan struct{})
	chat := &fakeChat{history: func(string) ([]model.ChatMessage, error) {
		close(entered)
		<-release
		return []model.ChatMessage{{Role: model.RoleUser, Content: "old history"}}, nil
	}}
	m := New(chat, sess, Options{})
	defer m.Close()

	done := make(chan error, 1)
	go func() {
		_, err := m.Open(context.Background())
		done <- err
	}()
	<-entered
	require.Equal(t, StateLoading, m.State())
	require.NoError(t, m.NewChat(context.Background()))
	close(release)
	require.NoError(t, <-done)

	msgs := m.Messages()
	require.Len(t, msgs, 1)
	require.True(t, msgs[0].Local)
	require.Equal(t, StateActive, m.State())
	snap, err := st.Read(context.Background())
	require.NoError(t, err)
	require.Empty(t, snap.ConversationID)
}

func TestOpen_SignOutDuringHistoryFetchDiscardsResult(t *testing.T) {
	sess, _ := newSession(t, session.Snapshot{Token: "tok", ConversationID: "conv-1"})
	entered := make(chan struct{})
	release := make(chan struct{})
	chat := &fakeChat{history: func(string) ([]model.ChatMessage, error) {
		close(entered)
		<-release
		return []model.ChatMessage{{Role: model.RoleUser, Content: "old history"}}, nil
	}}
	m := New(chat, sess, Options{})
	defer m.Close()

	done := make(chan error, 1)
	go func() {
		_, err := m.Open(context.Background())
		done <- err
	}()
	<-entered
	require.NoError(t, sess.Logout(context.Background()))
	close(release)
	require.NoError(t, <-done)

	require.Equal(t, StateNone, m.State())
	require.Empty(t, m.Messages())
}

func TestSend_ReplaysStoredConversationFirst(t *testing.T) {
	sess, _ := newSession(t, session.Snapshot{Token: "tok", ConversationID: "conv-1"})
	var sentTo string
	chat := &fakeChat{
		history: func(string) ([]model.ChatMessage, error) {
			return []model.ChatMessage{
				{Role: model.RoleUser, Content: "add milk"},
				{Role: model.RoleAssistant, Content: "Added."},
			}, nil
		},
		send: func(_ string, id string) (model.ChatResponse, error) {
			sentTo = id
			return model.ChatResponse{Response: "Sure.", ConversationID: id}, nil
		},
	}
	m := New(chat, sess, Options{})
	defer m.Close()
	require.Equal(t, StateNone, m.State())

	_, err := m.Send(context.Background(), "and eggs")
	require.NoError(t, err)
	require.Equal(t, "conv-1", sentTo)

	msgs := m.Messages()
	require.Len(t, msgs, 4)
	require.Equal(t, "add milk", msgs[0].Content)
	require.Equal(t, "and eggs", msgs[2].Content)
	for _, msg := range msgs {
		require.False(t, msg.Local, "welcome message should not be mixed into a replayed conversation")
	}
}
