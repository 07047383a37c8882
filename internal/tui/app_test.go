package tui

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courier-im/courier/internal/config"
	"github.com/courier-im/courier/internal/identity"
	"github.com/courier-im/courier/internal/models"
	"github.com/courier-im/courier/internal/principal"
	"github.com/courier-im/courier/internal/session"
	"github.com/courier-im/courier/internal/store"
)

// fakeStore serves canned conversation data for view tests.
type fakeStore struct {
	self     principal.Principal
	chatList []models.ChatListEntry
	messages map[principal.Principal][]models.ChatMessage
	unread   map[principal.Principal]int64
	sent     []string
	marked   []principal.Principal
}

var _ store.RemoteStore = (*fakeStore)(nil)

func (f *fakeStore) GetCallerUserProfile(context.Context) (models.Option[models.UserProfile], error) {
	return models.None[models.UserProfile](), nil
}

func (f *fakeStore) GetUserProfile(context.Context, principal.Principal) (models.Option[models.UserProfile], error) {
	return models.Some(models.UserProfile{DisplayName: "Peer"}), nil
}

func (f *fakeStore) SaveCallerUserProfile(context.Context, models.UserProfile) error { return nil }

func (f *fakeStore) GetChatList(context.Context) ([]models.ChatListEntry, error) {
	return f.chatList, nil
}

func (f *fakeStore) GetMessages(_ context.Context, with principal.Principal) ([]models.ChatMessage, error) {
	return f.messages[with], nil
}

func (f *fakeStore) SendMessage(_ context.Context, _ principal.Principal, content string) error {
	f.sent = append(f.sent, content)
	return nil
}

func (f *fakeStore) GetUnreadMessageCount(_ context.Context, with principal.Principal) (int64, error) {
	return f.unread[with], nil
}

func (f *fakeStore) MarkMessagesAsRead(_ context.Context, with principal.Principal) error {
	f.marked = append(f.marked, with)
	return nil
}

func (f *fakeStore) GetCallerUserRole(context.Context) (models.UserRole, error) {
	return models.RoleUser, nil
}

func (f *fakeStore) AssignCallerUserRole(context.Context, principal.Principal, models.UserRole) error {
	return nil
}

func (f *fakeStore) IsCallerAdmin(context.Context) (bool, error) { return false, nil }

var peer = principal.Principal("aaaaa-bbbbb")

func startedSession(t *testing.T, fake *fakeStore) *session.Session {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Global.DataDir = t.TempDir()
	cfg.Identity.KeyPath = filepath.Join(cfg.Global.DataDir, "identity.pem")

	s := session.New(cfg, session.WithStoreFactory(func(id *identity.Identity) store.RemoteStore {
		fake.self = id.Principal
		return fake
	}))
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testModel(t *testing.T, fake *fakeStore) *Model {
	t.Helper()
	sess := startedSession(t, fake)
	m := NewModel(sess, nil, Config{Theme: "default"})
	t.Cleanup(m.Close)
	m.width = 80
	m.height = 24
	return m
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEscape}
	case "backspace":
		return tea.KeyMsg{Type: tea.KeyBackspace}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

// settle drives ticks until the predicate holds, mirroring the poll loop.
func settle(t *testing.T, m *Model, pred func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cmd := m.views[m.activeViewID()].Update(tickMsg(time.Now())); cmd != nil {
			_ = cmd()
		}
		if pred() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not reached")
}

func TestChatListShowsThreads(t *testing.T) {
	fake := &fakeStore{
		messages: map[principal.Principal][]models.ChatMessage{},
		unread:   map[principal.Principal]int64{peer: 2},
	}
	m := testModel(t, fake)
	fake.chatList = []models.ChatListEntry{
		{Participants: [2]principal.Principal{fake.self, peer}, LastActivity: time.Now().UnixNano()},
	}

	list := m.views[ViewChatList].(*chatListView)
	_ = list.Init()

	settle(t, m, func() bool { return len(list.threads) == 1 })

	view := list.View(80, 20, DefaultTheme)
	assert.Contains(t, view, "(2)")
}

func TestEnterOpensThread(t *testing.T) {
	fake := &fakeStore{
		messages: map[principal.Principal][]models.ChatMessage{},
		unread:   map[principal.Principal]int64{},
	}
	m := testModel(t, fake)
	fake.chatList = []models.ChatListEntry{
		{Participants: [2]principal.Principal{fake.self, peer}, LastActivity: 1},
	}

	list := m.views[ViewChatList].(*chatListView)
	_ = list.Init()
	settle(t, m, func() bool { return len(list.threads) == 1 })

	cmd := list.Update(keyMsg("enter"))
	require.NotNil(t, cmd)
	msg := cmd()
	open, ok := msg.(openThreadMsg)
	require.True(t, ok)
	assert.Equal(t, peer, open.other)

	_, routed := m.Update(open)
	_ = routed
	assert.Equal(t, ViewThread, m.activeViewID())
}

func TestThreadMarksReadOnceOnObservation(t *testing.T) {
	fake := &fakeStore{
		messages: map[principal.Principal][]models.ChatMessage{
			peer: {{ID: 1, Sender: peer, Content: "hi", Timestamp: 1}},
		},
		unread: map[principal.Principal]int64{peer: 1},
	}
	m := testModel(t, fake)

	_, _ = m.Update(openThreadMsg{other: peer})
	thread := m.views[ViewThread].(*threadView)

	settle(t, m, func() bool { return len(fake.marked) == 1 })

	// Further ticks never fire a second mark for this activation.
	for i := 0; i < 5; i++ {
		if cmd := thread.Update(tickMsg(time.Now())); cmd != nil {
			_ = cmd()
		}
	}
	assert.Len(t, fake.marked, 1)
}

func TestThreadComposeAndSend(t *testing.T) {
	fake := &fakeStore{
		messages: map[principal.Principal][]models.ChatMessage{},
		unread:   map[principal.Principal]int64{},
	}
	m := testModel(t, fake)

	_, _ = m.Update(openThreadMsg{other: peer})
	thread := m.views[ViewThread].(*threadView)

	for _, r := range "hello" {
		_ = thread.Update(keyMsg(string(r)))
	}
	assert.Equal(t, "hello", thread.input)

	cmd := thread.Update(keyMsg("enter"))
	require.NotNil(t, cmd)
	result := cmd().(sendResultMsg)
	require.NoError(t, result.err)
	_ = thread.Update(result)

	assert.Equal(t, []string{"hello"}, fake.sent)
	assert.Empty(t, thread.input)
}

func TestThreadRejectsEmptyDraft(t *testing.T) {
	fake := &fakeStore{
		messages: map[principal.Principal][]models.ChatMessage{},
		unread:   map[principal.Principal]int64{},
	}
	m := testModel(t, fake)

	_, _ = m.Update(openThreadMsg{other: peer})
	thread := m.views[ViewThread].(*threadView)

	cmd := thread.Update(keyMsg("enter"))
	assert.Nil(t, cmd)
	assert.Equal(t, "Message cannot be empty", thread.validation)
	assert.Empty(t, fake.sent)
}

func TestThreadKeepsDraftWhenTooLong(t *testing.T) {
	fake := &fakeStore{
		messages: map[principal.Principal][]models.ChatMessage{},
		unread:   map[principal.Principal]int64{},
	}
	m := testModel(t, fake)

	_, _ = m.Update(openThreadMsg{other: peer})
	thread := m.views[ViewThread].(*threadView)

	long := strings.Repeat("x", 1001)
	thread.setInput(long)
	cmd := thread.Update(keyMsg("enter"))
	assert.Nil(t, cmd)
	assert.Equal(t, "Message exceeds 1000 character limit", thread.validation)
	assert.Equal(t, long, thread.input)
	assert.Empty(t, fake.sent)
}

func TestNewChatValidatesPrincipal(t *testing.T) {
	view := newNewChatView()
	_ = view.Init()

	for _, r := range "not a principal" {
		_ = view.Update(keyMsg(string(r)))
	}
	cmd := view.Update(keyMsg("enter"))
	assert.Nil(t, cmd)
	assert.NotEmpty(t, view.validation)
}

func TestNewChatOpensValidPrincipal(t *testing.T) {
	id, err := identity.Generate(filepath.Join(t.TempDir(), "key.pem"))
	require.NoError(t, err)

	view := newNewChatView()
	_ = view.Init()
	view.input = id.Principal.String()

	cmd := view.Update(keyMsg("enter"))
	require.NotNil(t, cmd)
	open, ok := cmd().(openThreadMsg)
	require.True(t, ok)
	assert.Equal(t, id.Principal, open.other)
}

func TestLeavingThreadEndsActivation(t *testing.T) {
	fake := &fakeStore{
		messages: map[principal.Principal][]models.ChatMessage{},
		unread:   map[principal.Principal]int64{},
	}
	m := testModel(t, fake)

	_, _ = m.Update(openThreadMsg{other: peer})
	thread := m.views[ViewThread].(*threadView)
	require.NotNil(t, thread.activation)

	_, _ = m.Update(popViewMsg{})
	assert.Nil(t, thread.activation)
	assert.Equal(t, ViewChatList, m.activeViewID())
}
