// Package tui implements the interactive courier client: a chat list, a
// thread view with a composer, a profile editor, and a new-conversation
// prompt, all rendered over the session's cached views.
package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/courier-im/courier/internal/config"
	"github.com/courier-im/courier/internal/principal"
	"github.com/courier-im/courier/internal/session"
)

const defaultRefreshInterval = 500 * time.Millisecond

// ViewID names one screen.
type ViewID string

// Screens.
const (
	ViewChatList ViewID = "chat-list"
	ViewThread   ViewID = "thread"
	ViewProfile  ViewID = "profile"
	ViewNewChat  ViewID = "new-chat"
)

// Config carries the TUI settings.
type Config struct {
	Theme           string
	ShowTimestamps  bool
	RefreshInterval time.Duration
}

type viewModel interface {
	Init() tea.Cmd
	Update(msg tea.Msg) tea.Cmd
	View(width, height int, theme Theme) string
}

// closer is implemented by views that hold cache references.
type closer interface {
	Close()
}

type tickMsg time.Time

type pushViewMsg struct {
	id ViewID
}

type popViewMsg struct{}

type openThreadMsg struct {
	other principal.Principal
}

func pushViewCmd(id ViewID) tea.Cmd {
	return func() tea.Msg {
		return pushViewMsg{id: id}
	}
}

func popViewCmd() tea.Cmd {
	return func() tea.Msg {
		return popViewMsg{}
	}
}

func openThreadCmd(other principal.Principal) tea.Cmd {
	return func() tea.Msg {
		return openThreadMsg{other: other}
	}
}

// Model is the root bubbletea model.
type Model struct {
	session  *session.Session
	contexts *config.ContextStore
	theme    Theme
	refresh  time.Duration

	width    int
	height   int
	showHelp bool

	viewStack []ViewID
	views     map[ViewID]viewModel
}

// NewModel builds the root model over a started session.
func NewModel(sess *session.Session, contexts *config.ContextStore, cfg Config) *Model {
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = defaultRefreshInterval
	}

	m := &Model{
		session:   sess,
		contexts:  contexts,
		theme:     themeByName(cfg.Theme),
		refresh:   cfg.RefreshInterval,
		viewStack: []ViewID{ViewChatList},
		views:     make(map[ViewID]viewModel),
	}
	m.views[ViewChatList] = newChatListView(sess)
	m.views[ViewThread] = newThreadView(sess, cfg.ShowTimestamps)
	m.views[ViewProfile] = newProfileView(sess)
	m.views[ViewNewChat] = newNewChatView()
	return m
}

// Run starts the TUI over a started session and blocks until quit.
func Run(sess *session.Session, contexts *config.ContextStore, cfg Config) error {
	model := NewModel(sess, contexts, cfg)
	defer model.Close()

	program := tea.NewProgram(model, tea.WithAltScreen())
	_, err := program.Run()
	return err
}

// Close releases every cache reference held by the views.
func (m *Model) Close() {
	for _, view := range m.views {
		if c, ok := view.(closer); ok {
			c.Close()
		}
	}
}

func (m *Model) tickCmd() tea.Cmd {
	return tea.Tick(m.refresh, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.tickCmd()}
	if view := m.activeView(); view != nil {
		cmds = append(cmds, view.Init())
	}
	// Reopen the thread that was active last run.
	if m.contexts != nil {
		if saved, err := m.contexts.Load(); err == nil && !saved.IsEmpty() {
			if peer, err := saved.PeerPrincipal(); err == nil {
				cmds = append(cmds, openThreadCmd(peer))
			}
		}
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = typed.Width
		m.height = typed.Height
		return m, nil

	case tickMsg:
		var cmd tea.Cmd
		if view := m.activeView(); view != nil {
			cmd = view.Update(msg)
		}
		return m, tea.Batch(m.tickCmd(), cmd)

	case openThreadMsg:
		thread, ok := m.views[ViewThread].(*threadView)
		if !ok {
			return m, nil
		}
		cmd := thread.SetTarget(typed.other)
		m.rememberPeer(typed.other)
		if m.activeViewID() != ViewThread {
			m.pushView(ViewThread)
		}
		return m, tea.Batch(cmd, thread.Init())

	case pushViewMsg:
		m.pushView(typed.id)
		if view := m.activeView(); view != nil {
			return m, view.Init()
		}
		return m, nil

	case popViewMsg:
		m.popView()
		if view := m.activeView(); view != nil {
			return m, view.Init()
		}
		return m, nil

	case tea.KeyMsg:
		if cmd, handled := m.handleGlobalKey(typed); handled {
			return m, cmd
		}
	}

	if active := m.activeView(); active != nil {
		return m, active.Update(msg)
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	active := m.activeView()
	if active == nil {
		return "no active view"
	}
	header := m.renderHeader()
	footer := m.renderFooter()
	contentHeight := m.height - lipgloss.Height(header) - lipgloss.Height(footer)
	if contentHeight < 0 {
		contentHeight = 0
	}
	body := active.View(m.width, contentHeight, m.theme)
	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

func (m *Model) handleGlobalKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	// Views with live text input swallow printable keys.
	if active, ok := m.activeView().(interface{ capturesInput() bool }); ok && active.capturesInput() {
		switch msg.String() {
		case "ctrl+c":
			return tea.Quit, true
		case "esc":
			return popViewCmd(), true
		}
		return nil, false
	}

	switch msg.String() {
	case "q", "ctrl+c":
		return tea.Quit, true
	case "esc":
		if len(m.viewStack) > 1 {
			return popViewCmd(), true
		}
		return nil, true
	case "?":
		m.showHelp = !m.showHelp
		return nil, true
	case "p":
		return pushViewCmd(ViewProfile), true
	case "n":
		return pushViewCmd(ViewNewChat), true
	}
	return nil, false
}

func (m *Model) rememberPeer(other principal.Principal) {
	if m.contexts == nil {
		return
	}
	ctx, err := m.contexts.Load()
	if err != nil {
		ctx = &config.Context{}
	}
	ctx.SetPeer(other, "")
	_ = m.contexts.Save(ctx)
}

func (m *Model) activeView() viewModel {
	return m.views[m.activeViewID()]
}

func (m *Model) activeViewID() ViewID {
	if len(m.viewStack) == 0 {
		return ViewChatList
	}
	return m.viewStack[len(m.viewStack)-1]
}

func (m *Model) pushView(id ViewID) {
	if id == "" {
		return
	}
	if m.activeViewID() == id {
		return
	}
	m.viewStack = append(m.viewStack, id)
}

func (m *Model) popView() {
	if len(m.viewStack) <= 1 {
		return
	}
	leaving := m.activeViewID()
	m.viewStack = m.viewStack[:len(m.viewStack)-1]
	if leaving == ViewThread {
		if thread, ok := m.views[ViewThread].(*threadView); ok {
			thread.Leave()
		}
	}
}

func (m *Model) renderHeader() string {
	style := lipgloss.NewStyle().
		Foreground(lipgloss.Color(m.theme.Foreground)).
		Background(lipgloss.Color(m.theme.Header)).
		Bold(true).
		Padding(0, 1)

	who := "resolving identity"
	if p, err := m.session.Principal(); err == nil {
		who = shortPrincipal(p)
	}
	line := joinEnds("courier", who, m.width-2)
	return style.Width(maxInt(0, m.width)).Render(line)
}

func (m *Model) renderFooter() string {
	style := lipgloss.NewStyle().
		Foreground(lipgloss.Color(m.theme.Foreground)).
		Background(lipgloss.Color(m.theme.Footer)).
		Padding(0, 1)

	base := "[enter] open  [n]ew chat  [p]rofile  [esc] back  [?] help  [q]uit"
	if m.showHelp {
		base += "  (arrows move, type to compose, enter sends)"
	}
	return style.Width(maxInt(0, m.width)).Render(truncate(base, maxInt(0, m.width-2)))
}

func joinEnds(left, right string, width int) string {
	if width <= 0 {
		return left
	}
	space := width - lipgloss.Width(left) - lipgloss.Width(right)
	if space < 2 {
		return truncate(left, width)
	}
	return left + spaces(space) + right
}

func spaces(n int) string {
	if n <= 0 {
		return ""
	}
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = ' '
	}
	return string(buf)
}

func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 1 {
		return string(runes[:width])
	}
	return string(runes[:width-1]) + "…"
}

func shortPrincipal(p principal.Principal) string {
	text := p.String()
	if len(text) > 17 {
		return text[:17] + "…"
	}
	return text
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func formatTimestamp(ts int64) string {
	return time.Unix(0, ts).Format("15:04")
}

func formatActivity(ts int64, now time.Time) string {
	at := time.Unix(0, ts)
	age := now.Sub(at)
	switch {
	case age < time.Minute:
		return "now"
	case age < time.Hour:
		return fmt.Sprintf("%dm", int(age.Minutes()))
	case age < 24*time.Hour:
		return fmt.Sprintf("%dh", int(age.Hours()))
	default:
		return at.Format("Jan 2")
	}
}
