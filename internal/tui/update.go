package tui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"tasksync-cli/internal/api"
	"tasksync-cli/internal/conversation"
	"tasksync-cli/internal/model"
	"tasksync-cli/internal/notify"
	"tasksync-cli/internal/session"
	"tasksync-cli/internal/view"
)

type showLoginMsg struct{}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		m.refreshChat()
		return m, nil

	case clockMsg:
		m.now = time.Time(msg)
		m.refreshList()
		return m, clockTick()

	case spinner.TickMsg:
		if !m.busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case noticeMsg:
		n := notify.Notice(msg)
		m.toast = &n
		m.toastSeq++
		return m, tea.Batch(waitNotice(m.notices.C), clearToastAfter(m.toastSeq))

	case clearToastMsg:
		if msg.seq == m.toastSeq {
			m.toast = nil
		}
		return m, nil

	case loadedMsg:
		m.loading = false
		if msg.tasksErr == nil || msg.offline {
			m.offline = msg.offline
			m.syncedAt = msg.syncedAt
		}
		m.refreshList()
		m.refreshChat()
		return m, nil

	case mutatedMsg:
		if msg.op == "toggle" {
			delete(m.pending, msg.id)
		}
		m.refreshList()
		if msg.err != nil && model.IsValidationError(msg.err) {
			return m, m.showError(msg.err.Error())
		}
		return m, nil

	case chatStateMsg:
		m.refreshChat()
		return m, waitEvent(m.events)

	case chatSentMsg:
		m.refreshChat()
		return m, nil

	case chatExpiredMsg:
		m.chatOpen = false
		if m.sess.State() != session.StateAuthenticated {
			m.enterLogin()
		}
		m.layout()
		return m, waitEvent(m.events)

	case sessionMsg:
		return m.onSession(msg.state)

	case showLoginMsg:
		if m.sess.State() != session.StateAuthenticated && m.mode != modeLogin {
			m.enterLogin()
		}
		return m, nil

	case loginDoneMsg:
		m.loggingIn = false
		if msg.err != nil {
			m.loginErr = loginError(msg.err)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) busy() bool {
	return m.loading || m.loggingIn || m.conv.State() == conversation.StateSending || m.conv.State() == conversation.StateLoading
}

func (m Model) onSession(s session.State) (tea.Model, tea.Cmd) {
	next := waitEvent(m.events)
	if s == session.StateAuthenticated {
		if m.mode == modeLogin {
			m.mode = modeList
			m.email.Blur()
			m.password.Blur()
			m.loginErr = ""
		}
		m.loading = true
		return m, tea.Batch(next, m.initialLoad(), m.spinner.Tick)
	}

	// Signed out here or in another process: drop everything user-scoped,
	// then return to the login form once the expiry notice has been seen.
	m.tasks.Collection().Replace(nil)
	m.pending = map[int64]bool{}
	m.offline = false
	m.syncedAt = time.Time{}
	m.refreshList()
	m.refreshChat()
	return m, tea.Batch(next, tea.Tick(conversation.DefaultExpiryDelay, func(time.Time) tea.Msg { return showLoginMsg{} }))
}

func (m *Model) showError(text string) tea.Cmd {
	m.toast = &notify.Notice{Level: notify.LevelError, Message: text, At: m.opts.Now()}
	m.toastSeq++
	return clearToastAfter(m.toastSeq)
}

func loginError(err error) string {
	var ve model.ValidationError
	if errors.As(err, &ve) {
		return ve.Message
	}
	if msg, ok := api.ServerMessage(err); ok {
		return msg
	}
	return err.Error()
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.shutdown()
		return m, tea.Quit
	}
	switch m.mode {
	case modeLogin:
		return m.handleLoginKey(msg)
	case modeSearch:
		return m.handleSearchKey(msg)
	case modeAdd:
		return m.handleAddKey(msg)
	case modeConfirmDelete:
		return m.handleConfirmKey(msg)
	case modeChat:
		return m.handleChatKey(msg)
	}
	return m.handleListKey(msg)
}

func (m Model) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		m.shutdown()
		return m, tea.Quit

	case "tab":
		m.board = nextBoard(m.board, 1)
		m.refreshList()
		return m, nil
	case "shift+tab":
		m.board = nextBoard(m.board, -1)
		m.refreshList()
		return m, nil
	case "1", "2", "3", "4", "5":
		m.board = view.Boards[int(msg.String()[0]-'1')]
		m.refreshList()
		return m, nil

	case "s":
		m.filters.Status = nextStatus(m.filters.Status)
		m.refreshList()
		return m, nil
	case "c":
		m.filters.Category = nextCategory(m.filters.Category)
		m.refreshList()
		return m, nil
	case "p":
		m.filters.Priority = nextPriority(m.filters.Priority)
		m.refreshList()
		return m, nil
	case "x":
		m.filters = view.Filters{Status: view.StatusAll}
		m.refreshList()
		return m, nil

	case "/":
		m.mode = modeSearch
		m.input.Placeholder = "search title or description"
		m.input.SetValue(m.filters.Search)
		m.input.CursorEnd()
		return m, m.input.Focus()
	case "a", "n":
		m.mode = modeAdd
		m.input.Placeholder = "new task title"
		m.input.SetValue("")
		return m, m.input.Focus()

	case " ", "enter":
		t, ok := m.selectedTask()
		if !ok || m.tasks.Toggling(t.ID) {
			return m, nil
		}
		m.pending[t.ID] = !t.Completed
		m.refreshList()
		return m, m.toggleTask(t.ID)
	case "d", "delete":
		t, ok := m.selectedTask()
		if !ok {
			return m, nil
		}
		m.deleteID = t.ID
		m.mode = modeConfirmDelete
		return m, nil

	case "r":
		m.loading = true
		return m, tea.Batch(m.reload(), m.spinner.Tick)

	case "i":
		m.chatOpen = true
		m.mode = modeChat
		m.layout()
		m.refreshChat()
		cmds := []tea.Cmd{m.chatInput.Focus()}
		if m.conv.State() == conversation.StateNone {
			cmds = append(cmds, m.openChat())
		}
		return m, tea.Batch(cmds...)
	case "I":
		m.chatOpen = false
		m.layout()
		return m, nil

	case "L":
		return m, m.logout()
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) openChat() tea.Cmd {
	conv := m.conv
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		_, err := conv.Open(ctx)
		return chatSentMsg{err: err}
	}
}

func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.filters.Search = ""
		m.mode = modeList
		m.input.Blur()
		m.refreshList()
		return m, nil
	case "enter":
		m.mode = modeList
		m.input.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.filters.Search = m.input.Value()
	m.refreshList()
	return m, cmd
}

func (m Model) handleAddKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = modeList
		m.input.Blur()
		return m, nil
	case "enter":
		// New tasks inherit the category and priority being filtered on.
		d := model.TaskDraft{Title: m.input.Value(), Category: m.filters.Category, Priority: m.filters.Priority}
		if err := d.Validate(); err != nil {
			return m, m.showError(err.Error())
		}
		m.mode = modeList
		m.input.Blur()
		m.input.SetValue("")
		return m, m.createTask(d)
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y", "enter":
		id := m.deleteID
		m.deleteID = 0
		m.mode = modeList
		return m, m.deleteTask(id)
	case "n", "N", "esc", "q":
		m.deleteID = 0
		m.mode = modeList
	}
	return m, nil
}

func (m Model) handleChatKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = modeList
		m.chatInput.Blur()
		return m, nil
	case "enter":
		text := strings.TrimSpace(m.chatInput.Value())
		if text == "" || m.conv.State() == conversation.StateSending {
			return m, nil
		}
		m.chatInput.SetValue("")
		return m, tea.Batch(m.sendChat(text), m.spinner.Tick)
	case "tab":
		if m.chatInput.Value() == "" || m.promptIdx > 0 {
			p := conversation.SuggestedPrompts[m.promptIdx%len(conversation.SuggestedPrompts)]
			m.promptIdx++
			m.chatInput.SetValue(p)
			m.chatInput.CursorEnd()
		}
		return m, nil
	case "ctrl+n":
		return m, m.newChat()
	case "pgup", "pgdown", "ctrl+u", "ctrl+d":
		var cmd tea.Cmd
		m.chatView, cmd = m.chatView.Update(msg)
		return m, cmd
	}
	m.promptIdx = 0
	var cmd tea.Cmd
	m.chatInput, cmd = m.chatInput.Update(msg)
	return m, cmd
}

func (m Model) handleLoginKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.shutdown()
		return m, tea.Quit
	case "tab", "shift+tab", "up", "down":
		m.setLoginFocus(1 - m.loginFocus)
		return m, nil
	case "enter":
		if m.loginFocus == 0 {
			m.setLoginFocus(1)
			return m, nil
		}
		if m.loggingIn {
			return m, nil
		}
		creds := model.Credentials{Email: strings.TrimSpace(m.email.Value()), Password: m.password.Value()}
		if err := creds.Validate(false); err != nil {
			m.loginErr = loginError(err)
			return m, nil
		}
		m.loginErr = ""
		m.loggingIn = true
		return m, tea.Batch(m.login(creds), m.spinner.Tick)
	}
	var cmd tea.Cmd
	if m.loginFocus == 0 {
		m.email, cmd = m.email.Update(msg)
	} else {
		m.password, cmd = m.password.Update(msg)
	}
	return m, cmd
}

func (m *Model) setLoginFocus(i int) {
	m.loginFocus = i
	if i == 0 {
		m.email.Focus()
		m.password.Blur()
		return
	}
	m.email.Blur()
	m.password.Focus()
}

func nextBoard(b view.Board, step int) view.Board {
	n := len(view.Boards)
	for i, x := range view.Boards {
		if x == b {
			return view.Boards[((i+step)%n+n)%n]
		}
	}
	return view.BoardAll
}

func nextStatus(s view.Status) view.Status {
	switch s {
	case view.StatusAll, "":
		return view.StatusActive
	case view.StatusActive:
		return view.StatusCompleted
	default:
		return view.StatusAll
	}
}

func nextCategory(c *model.Category) *model.Category {
	if c == nil {
		first := model.Categories[0]
		return &first
	}
	for i, x := range model.Categories {
		if x == *c && i+1 < len(model.Categories) {
			next := model.Categories[i+1]
			return &next
		}
	}
	return nil
}

func nextPriority(p *model.Priority) *model.Priority {
	if p == nil {
		first := model.Priorities[0]
		return &first
	}
	for i, x := range model.Priorities {
		if x == *p && i+1 < len(model.Priorities) {
			next := model.Priorities[i+1]
			return &next
		}
	}
	return nil
}
