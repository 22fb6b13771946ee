package tui

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"tasksync-cli/internal/api"
	"tasksync-cli/internal/model"
	"tasksync-cli/internal/mutate"
	"tasksync-cli/internal/notify"
	"tasksync-cli/internal/session"
)

const (
	requestTimeout = 30 * time.Second
	toastTTL       = 3 * time.Second
	clockInterval  = 30 * time.Second
)

type loadedMsg struct {
	tasksErr error
	chatErr  error
	offline  bool
	syncedAt time.Time
}

type mutatedMsg struct {
	op  string
	id  int64
	err error
}

type chatSentMsg struct{ err error }

type chatExpiredMsg struct{}

type chatStateMsg struct{}

type sessionMsg struct{ state session.State }

type loginDoneMsg struct{ err error }

type noticeMsg notify.Notice

type clearToastMsg struct{ seq int }

type clockMsg time.Time

// waitEvent relays the next message pushed by a subscription callback.
func waitEvent(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg { return <-ch }
}

func waitNotice(ch <-chan notify.Notice) tea.Cmd {
	return func() tea.Msg { return noticeMsg(<-ch) }
}

func clockTick() tea.Cmd {
	return tea.Tick(clockInterval, func(t time.Time) tea.Msg { return clockMsg(t) })
}

func clearToastAfter(seq int) tea.Cmd {
	return tea.Tick(toastTTL, func(time.Time) tea.Msg { return clearToastMsg{seq: seq} })
}

// initialLoad fetches tasks and chat history in parallel. A failed task fetch
// falls back to the offline cache; a failed history load only degrades chat.
func (m Model) initialLoad() tea.Cmd {
	coord, conv, cache, log := m.tasks, m.conv, m.opts.Cache, m.log
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		var chatErr error
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			_, err := coord.Load(gctx, nil)
			return err
		})
		g.Go(func() error {
			_, chatErr = conv.Open(ctx)
			return nil
		})
		err := g.Wait()

		msg := loadedMsg{tasksErr: err, chatErr: chatErr}
		if cache == nil {
			return msg
		}
		if err == nil {
			msg.syncedAt = time.Now().UTC()
			if serr := cache.SaveTasks(ctx, coord.Collection().Snapshot(), msg.syncedAt); serr != nil {
				log.Warn("cache tasks", zap.Error(serr))
			}
			return msg
		}
		if errors.Is(err, api.ErrAuthExpired) || errors.Is(err, mutate.ErrClosed) {
			return msg
		}
		tasks, synced, cerr := cache.LoadTasks(ctx)
		if cerr != nil || synced.IsZero() {
			return msg
		}
		coord.Collection().Replace(tasks)
		msg.offline = true
		msg.syncedAt = synced
		return msg
	}
}

func (m Model) reload() tea.Cmd {
	coord, cache, log := m.tasks, m.opts.Cache, m.log
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		if _, err := coord.Load(ctx, nil); err != nil {
			return loadedMsg{tasksErr: err}
		}
		msg := loadedMsg{syncedAt: time.Now().UTC()}
		if cache != nil {
			if err := cache.SaveTasks(ctx, coord.Collection().Snapshot(), msg.syncedAt); err != nil {
				log.Warn("cache tasks", zap.Error(err))
			}
		}
		return msg
	}
}

func (m Model) createTask(d model.TaskDraft) tea.Cmd {
	coord := m.tasks
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		t, err := coord.Create(ctx, d)
		return mutatedMsg{op: "create", id: t.ID, err: err}
	}
}

func (m Model) toggleTask(id int64) tea.Cmd {
	coord := m.tasks
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		_, err := coord.ToggleComplete(ctx, id)
		return mutatedMsg{op: "toggle", id: id, err: err}
	}
}

func (m Model) deleteTask(id int64) tea.Cmd {
	coord := m.tasks
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return mutatedMsg{op: "delete", id: id, err: coord.Delete(ctx, id)}
	}
}

func (m Model) sendChat(text string) tea.Cmd {
	conv, cache, log := m.conv, m.opts.Cache, m.log
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		_, err := conv.Send(ctx, text)
		if err == nil && cache != nil {
			if cerr := cache.SaveTranscript(ctx, conv.ConversationID(), conv.Messages()); cerr != nil {
				log.Warn("cache transcript", zap.Error(cerr))
			}
		}
		return chatSentMsg{err: err}
	}
}

func (m Model) newChat() tea.Cmd {
	conv := m.conv
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return chatSentMsg{err: conv.NewChat(ctx)}
	}
}

func (m Model) login(creds model.Credentials) tea.Cmd {
	sess := m.sess
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		_, err := sess.Login(ctx, creds)
		return loginDoneMsg{err: err}
	}
}

func (m Model) logout() tea.Cmd {
	sess, cache, log := m.sess, m.opts.Cache, m.log
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		if err := sess.Logout(ctx); err != nil {
			log.Warn("logout", zap.Error(err))
		}
		if cache != nil {
			if err := cache.Purge(ctx); err != nil {
				log.Warn("purge cache", zap.Error(err))
			}
		}
		return nil
	}
}
