package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"tasksync-cli/internal/conversation"
	"tasksync-cli/internal/model"
	"tasksync-cli/internal/mutate"
	"tasksync-cli/internal/notify"
	"tasksync-cli/internal/session"
	"tasksync-cli/internal/store"
	"tasksync-cli/internal/view"
)

type Options struct {
	Session *session.Manager
	// Observer watches the shared session for changes made by other processes.
	Observer   session.Observer
	TaskStore  mutate.TaskStore
	ChatClient conversation.ChatClient
	// Cache is optional; without it there is no offline fallback.
	Cache *store.Cache
	// StateDir holds tui_state.json. Empty disables persistence.
	StateDir string
	// Notifier receives every notice in addition to the on-screen toast.
	Notifier notify.Notifier
	Logger   *zap.Logger
	Now      func() time.Time
}

type mode int

const (
	modeList mode = iota
	modeSearch
	modeAdd
	modeConfirmDelete
	modeChat
	modeLogin
)

type Model struct {
	opts    Options
	log     *zap.Logger
	sess    *session.Manager
	tasks   *mutate.Coordinator
	conv    *conversation.Manager
	notices *notify.Chan
	events  chan tea.Msg
	unsubs  []func()

	width  int
	height int
	now    time.Time

	board    view.Board
	filters  view.Filters
	mode     mode
	chatOpen bool

	list      list.Model
	input     textinput.Model
	chatInput textinput.Model
	chatView  viewport.Model
	spinner   spinner.Model
	email     textinput.Model
	password  textinput.Model

	loginFocus int
	loginErr   string
	loggingIn  bool

	loading  bool
	offline  bool
	syncedAt time.Time
	// pending maps a toggling task id to the completed value shown meanwhile.
	pending   map[int64]bool
	deleteID  int64
	promptIdx int

	toast    *notify.Notice
	toastSeq int
	closed   bool
}

func New(opts Options) Model {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	notices := notify.NewChan(32)
	var sink notify.Notifier = notices
	if opts.Notifier != nil {
		sink = notify.Multi{notices, opts.Notifier}
	}

	m := Model{
		opts:    opts,
		log:     log,
		sess:    opts.Session,
		notices: notices,
		events:  make(chan tea.Msg, 16),
		now:     opts.Now(),
		board:   view.BoardAll,
		filters: view.Filters{Status: view.StatusAll},
		pending: map[int64]bool{},
		list:    newTaskList(),
	}
	m.tasks = mutate.NewCoordinator(opts.TaskStore, mutate.NewCollection(nil), sink, log.Named("mutate"))

	events := m.events
	push := func(msg tea.Msg) {
		select {
		case events <- msg:
		default:
		}
	}
	m.conv = conversation.New(opts.ChatClient, opts.Session, conversation.Options{
		OnExpired: func() { push(chatExpiredMsg{}) },
		Notifier:  sink,
		Logger:    log.Named("conversation"),
		Now:       opts.Now,
	})
	m.unsubs = append(m.unsubs,
		m.conv.Subscribe(func(conversation.State) { push(chatStateMsg{}) }),
		opts.Session.Subscribe(func(s session.State) { push(sessionMsg{state: s}) }),
	)
	if opts.Observer != nil {
		m.unsubs = append(m.unsubs, opts.Session.Follow(opts.Observer))
	}

	m.input = textinput.New()
	m.input.CharLimit = model.MaxTitleLen
	m.chatInput = textinput.New()
	m.chatInput.Placeholder = "Ask the assistant…"
	m.chatInput.CharLimit = 2000
	m.chatView = viewport.New(0, 0)
	m.spinner = spinner.New()
	m.spinner.Spinner = spinner.Dot

	m.email = textinput.New()
	m.email.Placeholder = "email"
	m.password = textinput.New()
	m.password.Placeholder = "password"
	m.password.EchoMode = textinput.EchoPassword
	m.password.EchoCharacter = '•'

	m.restoreUIState()
	if m.sess.State() != session.StateAuthenticated {
		m.enterLogin()
	}
	return m
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		waitEvent(m.events),
		waitNotice(m.notices.C),
		clockTick(),
		textinput.Blink,
	}
	if obs, ok := m.opts.Observer.(*session.PollObserver); ok {
		obs.Start(context.Background())
	}
	if m.sess.State() == session.StateAuthenticated {
		cmds = append(cmds, m.initialLoad(), m.spinner.Tick)
	}
	return tea.Batch(cmds...)
}

// shutdown releases subscriptions and persists the dashboard layout.
func (m *Model) shutdown() {
	if m.closed {
		return
	}
	m.closed = true
	for _, u := range m.unsubs {
		u()
	}
	m.unsubs = nil
	if obs, ok := m.opts.Observer.(*session.PollObserver); ok {
		obs.Stop()
	}
	m.conv.Close()
	m.tasks.Close()
	m.saveUIState()
}

func (m *Model) restoreUIState() {
	st, err := store.LoadUIState(m.opts.StateDir)
	if err != nil || st == nil {
		return
	}
	if b, err := view.ParseBoard(st.View); err == nil {
		m.board = b
	}
	if s, err := view.ParseStatus(st.Status); err == nil {
		m.filters.Status = s
	}
	if st.Category != "" {
		if c, err := model.ParseCategory(st.Category); err == nil {
			m.filters.Category = &c
		}
	}
	if st.Priority != "" {
		if p, err := model.ParsePriority(st.Priority); err == nil {
			m.filters.Priority = &p
		}
	}
	m.filters.Search = st.Search
	m.chatOpen = st.ChatOpen
}

func (m *Model) saveUIState() {
	st := &store.UIState{
		View:     string(m.board),
		Status:   string(m.filters.Status),
		Search:   m.filters.Search,
		ChatOpen: m.chatOpen,
	}
	if m.filters.Category != nil {
		st.Category = string(*m.filters.Category)
	}
	if m.filters.Priority != nil {
		st.Priority = string(*m.filters.Priority)
	}
	if err := store.SaveUIState(m.opts.StateDir, st); err != nil {
		m.log.Warn("save ui state", zap.Error(err))
	}
}

// visibleTasks is the collection with in-flight toggles shown optimistically.
func (m Model) visibleTasks() []model.Task {
	tasks := m.tasks.Collection().Snapshot()
	for i := range tasks {
		if done, ok := m.pending[tasks[i].ID]; ok {
			tasks[i].Completed = done
		}
	}
	return tasks
}

// refreshList rebuilds the list for the current board and filters, keeping
// the selection on the same task when it is still visible.
func (m *Model) refreshList() {
	selected := int64(0)
	if it, ok := m.list.SelectedItem().(taskItem); ok {
		selected = it.task.ID
	}
	shown := m.board.Tasks(m.visibleTasks(), m.filters, m.now)
	m.list.SetItems(taskItems(shown, m.now, func(id int64) bool {
		_, ok := m.pending[id]
		return ok
	}))
	if selected == 0 {
		return
	}
	for i, it := range m.list.Items() {
		if ti, ok := it.(taskItem); ok && ti.task.ID == selected {
			m.list.Select(i)
			return
		}
	}
}

func (m Model) selectedTask() (model.Task, bool) {
	it, ok := m.list.SelectedItem().(taskItem)
	if !ok {
		return model.Task{}, false
	}
	return it.task, true
}

func (m *Model) enterLogin() {
	m.mode = modeLogin
	m.loginFocus = 0
	m.loggingIn = false
	m.password.SetValue("")
	m.email.Focus()
	m.password.Blur()
	m.chatInput.Blur()
	m.input.Blur()
}
