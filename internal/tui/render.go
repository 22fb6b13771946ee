package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"
	"github.com/dustin/go-humanize"

	"tasksync-cli/internal/conversation"
	"tasksync-cli/internal/model"
	"tasksync-cli/internal/notify"
	"tasksync-cli/internal/view"
)

// header, tabs, filters, footer, toast
const chromeLines = 5

func (m Model) bodyHeight() int {
	h := m.height - chromeLines
	if h < 5 {
		h = 5
	}
	return h
}

func (m Model) paneWidths() (listW, chatW int) {
	w := m.width
	if w < 40 {
		w = 40
	}
	if !m.chatOpen {
		return w, 0
	}
	listW = w * 3 / 5
	if listW < 30 {
		listW = 30
	}
	chatW = w - listW - 1
	if chatW < 20 {
		chatW = 20
	}
	return listW, chatW
}

func (m *Model) layout() {
	listW, chatW := m.paneWidths()
	bodyH := m.bodyHeight()
	m.list.SetSize(listW, bodyH)
	if chatW > 0 {
		// title line + input line
		m.chatView.Width = chatW
		m.chatView.Height = bodyH - 2
		m.chatInput.Width = chatW - 4
	}
	m.input.Width = listW - 4
}

func (m Model) View() string {
	if m.width == 0 {
		return "Loading…"
	}
	if m.mode == modeLogin {
		return m.renderLogin()
	}

	listW, chatW := m.paneWidths()
	bodyH := m.bodyHeight()

	var body string
	if m.board == view.BoardAnalytics {
		body = m.renderAnalytics(listW)
	} else if len(m.list.Items()) == 0 {
		body = styleMuted().Render(m.emptyText())
	} else {
		body = m.list.View()
	}
	body = normalizePane(body, listW, bodyH)
	if chatW > 0 {
		sep := normalizePane(strings.Repeat("│\n", bodyH), 1, bodyH)
		body = lipgloss.JoinHorizontal(lipgloss.Top, body, styleMuted().Render(sep), normalizePane(m.renderChat(chatW), chatW, bodyH))
	}

	return strings.Join([]string{
		fit(m.renderHeader(), m.width),
		fit(m.renderTabs(), m.width),
		fit(m.renderFilters(), m.width),
		body,
		fit(m.renderFooter(), m.width),
		fit(m.renderToast(), m.width),
	}, "\n")
}

func (m Model) emptyText() string {
	switch {
	case m.loading:
		return m.spinner.View() + " Loading tasks…"
	case view.ActiveFilterCount(m.filters) > 0 || strings.TrimSpace(m.filters.Search) != "":
		return "No tasks match the current filters. Press x to clear them."
	case m.board == view.BoardToday:
		return "Nothing due today."
	case m.board == view.BoardCompleted:
		return "No completed tasks yet."
	default:
		return "No tasks yet. Press a to add one."
	}
}

func (m Model) renderHeader() string {
	id := m.sess.Identity()
	who := id.Name
	if id.Email != "" {
		who += " <" + id.Email + ">"
	}
	left := styleHeader.Render("tasksync") + "  " + who
	var right string
	switch {
	case m.loading:
		right = m.spinner.View() + " syncing"
	case m.offline:
		right = styleOverdue.Render("offline") + styleMuted().Render(" · synced "+humanize.Time(m.syncedAt))
	case !m.syncedAt.IsZero():
		right = styleMuted().Render("synced " + humanize.Time(m.syncedAt))
	}
	gap := m.width - xansi.StringWidth(left) - xansi.StringWidth(right)
	if gap < 2 {
		return left
	}
	return left + strings.Repeat(" ", gap) + right
}

func (m Model) renderTabs() string {
	tasks := m.visibleTasks()
	c := view.Count(tasks, m.now)
	counts := map[view.Board]string{
		view.BoardAll:       fmt.Sprint(c.Total),
		view.BoardToday:     fmt.Sprint(len(view.Today(tasks, m.now))),
		view.BoardCompleted: fmt.Sprint(c.Completed),
		view.BoardPriority:  fmt.Sprint(c.HighPriority),
	}
	tabs := make([]string, 0, len(view.Boards))
	for i, b := range view.Boards {
		label := fmt.Sprintf("%d %s", i+1, b.Title())
		if n, ok := counts[b]; ok {
			label += " " + n
		}
		if b == m.board {
			tabs = append(tabs, styleTabOn.Render(label))
		} else {
			tabs = append(tabs, styleTab.Render(label))
		}
	}
	return strings.Join(tabs, " ")
}

func (m Model) renderFilters() string {
	cat, prio := "any", "any"
	if m.filters.Category != nil {
		cat = m.filters.Category.Label()
	}
	if m.filters.Priority != nil {
		prio = m.filters.Priority.Label()
	}
	parts := []string{
		"status: " + string(m.filters.Status),
		"category: " + cat,
		"priority: " + prio,
	}
	if s := strings.TrimSpace(m.filters.Search); s != "" {
		parts = append(parts, fmt.Sprintf("search: %q", s))
	}
	line := strings.Join(parts, "  ")
	if n := view.ActiveFilterCount(m.filters); n > 0 {
		line += fmt.Sprintf("  (%d active)", n)
	}
	return styleMuted().Render(line)
}

func (m Model) renderFooter() string {
	switch m.mode {
	case modeSearch:
		return "/ " + styleInput.Render(m.input.View())
	case modeAdd:
		return "+ " + styleInput.Render(m.input.View())
	case modeConfirmDelete:
		title := ""
		if t, ok := m.tasks.Collection().Get(m.deleteID); ok {
			title = t.Title
		}
		return styleOverdue.Render(fmt.Sprintf("Delete %q? y/n", title))
	case modeChat:
		return styleMuted().Render("enter: send  tab: suggested prompt  ctrl+n: new chat  pgup/pgdn: scroll  esc: back")
	}
	return styleMuted().Render("space: toggle  a: add  d: delete  /: search  s/c/p: filters  x: clear  tab: view  i: assistant  r: reload  L: logout  q: quit")
}

func (m Model) renderToast() string {
	if m.toast == nil {
		return ""
	}
	if m.toast.Level == notify.LevelError {
		return styleToastErr.Render("✗ " + m.toast.Message)
	}
	return styleToastOK.Render("✓ " + m.toast.Message)
}

func (m Model) renderChat(width int) string {
	title := styleHeader.Render("Assistant")
	switch m.conv.State() {
	case conversation.StateLoading:
		title += " " + m.spinner.View() + styleMuted().Render(" loading history")
	case conversation.StateSending:
		title += " " + m.spinner.View() + styleMuted().Render(" thinking")
	case conversation.StateExpired:
		title += " " + styleOverdue.Render("session expired")
	}
	input := m.chatInput.View()
	if m.mode != modeChat {
		input = styleMuted().Render("press i to chat")
	}
	return strings.Join([]string{fit(title, width), m.chatView.View(), input}, "\n")
}

// refreshChat re-renders the transcript into the viewport and follows the tail.
func (m *Model) refreshChat() {
	if m.chatView.Width <= 0 {
		return
	}
	w := m.chatView.Width
	msgs := m.conv.Messages()
	blocks := make([]string, 0, len(msgs)+1)
	for _, msg := range msgs {
		blocks = append(blocks, renderChatMessage(msg, w))
	}
	if len(msgs) == 1 && msgs[0].Local {
		lines := []string{styleMuted().Render("Try:")}
		for _, p := range conversation.SuggestedPrompts {
			lines = append(lines, styleMuted().Render("  • "+p))
		}
		blocks = append(blocks, strings.Join(lines, "\n"))
	}
	m.chatView.SetContent(strings.Join(blocks, "\n\n"))
	m.chatView.GotoBottom()
}

func renderChatMessage(msg model.ChatMessage, width int) string {
	ts := ""
	if !msg.Timestamp.IsZero() {
		ts = styleMuted().Render(" · " + msg.Timestamp.Local().Format("15:04"))
	}
	if msg.Role == model.RoleUser {
		head := styleUserMsg.Render("You") + ts
		return head + "\n" + lipgloss.NewStyle().Width(width).Render(msg.Content)
	}
	return styleHeader.Render("Assistant") + ts + "\n" + renderMarkdown(msg.Content, width)
}

func (m Model) renderAnalytics(width int) string {
	tasks := view.Derive(m.visibleTasks(), m.filters, m.now)
	a := view.Weekly(tasks, m.now)

	maxN := 1
	for _, d := range a.Days {
		maxN = max(maxN, d.Created, d.Completed)
	}
	barW := (width - 30) / 2
	if barW < 4 {
		barW = 4
	}
	bar := func(n int) string {
		return strings.Repeat("█", n*barW/maxN)
	}

	lines := []string{
		styleHeader.Render("Last 7 days"),
		fmt.Sprintf("%d tasks · %d completed · %d overdue · %.1f%% completion", a.Total, a.Completed, a.Overdue, a.CompletionRate),
		"",
	}
	for _, d := range a.Days {
		lines = append(lines, fmt.Sprintf("%s  %s %-3d %s %-3d",
			d.Label,
			lipgloss.NewStyle().Foreground(colorAccent).Render(fit(bar(d.Created), barW)), d.Created,
			lipgloss.NewStyle().Foreground(colorSuccess).Render(fit(bar(d.Completed), barW)), d.Completed,
		))
	}
	lines = append(lines, "", styleMuted().Render("created / completed per day"), "")
	for _, s := range view.Insights(tasks, m.now) {
		lines = append(lines, "• "+s)
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderLogin() string {
	w := min(m.width, 60)
	lines := []string{
		styleHeader.Render("tasksync · sign in"),
		"",
		"Email",
		styleInput.Render(m.email.View()),
		"",
		"Password",
		styleInput.Render(m.password.View()),
		"",
	}
	switch {
	case m.loggingIn:
		lines = append(lines, m.spinner.View()+" Signing in…")
	case m.loginErr != "":
		lines = append(lines, styleToastErr.Render(m.loginErr))
	default:
		lines = append(lines, "")
	}
	lines = append(lines, "", styleMuted().Render("tab: switch field  enter: sign in  esc: quit"))
	if t := m.renderToast(); t != "" {
		lines = append(lines, "", t)
	}
	box := lipgloss.NewStyle().Width(w).Padding(1, 2).Render(strings.Join(lines, "\n"))
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}
