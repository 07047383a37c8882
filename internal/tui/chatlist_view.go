package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/courier-im/courier/internal/models"
	"github.com/courier-im/courier/internal/principal"
	"github.com/courier-im/courier/internal/session"
)

// chatListView renders the ordered conversation list with unread badges and
// per-thread display names. It holds a chat-list reference for its whole
// lifetime plus unread-count and profile references for the threads on screen.
type chatListView struct {
	session *session.Session

	cursor  int
	threads []models.Thread
	loadErr error

	releaseList func()
	unreadRefs  map[principal.Principal]func()
	profileRefs map[principal.Principal]func()
}

func newChatListView(sess *session.Session) *chatListView {
	return &chatListView{
		session:     sess,
		unreadRefs:  make(map[principal.Principal]func()),
		profileRefs: make(map[principal.Principal]func()),
	}
}

func (v *chatListView) Init() tea.Cmd {
	if v.releaseList == nil {
		if eng, err := v.session.Engine(); err == nil {
			v.releaseList = eng.RefChatList()
		}
	}
	v.refresh()
	return nil
}

// Close releases every held cache reference.
func (v *chatListView) Close() {
	if v.releaseList != nil {
		v.releaseList()
		v.releaseList = nil
	}
	for other, release := range v.unreadRefs {
		release()
		delete(v.unreadRefs, other)
	}
	for other, release := range v.profileRefs {
		release()
		delete(v.profileRefs, other)
	}
}

func (v *chatListView) Update(msg tea.Msg) tea.Cmd {
	switch typed := msg.(type) {
	case tickMsg:
		v.refresh()
		return nil
	case tea.KeyMsg:
		switch typed.String() {
		case "up", "k":
			if v.cursor > 0 {
				v.cursor--
			}
		case "down", "j":
			if v.cursor < len(v.threads)-1 {
				v.cursor++
			}
		case "enter":
			if v.cursor < len(v.threads) {
				return openThreadCmd(v.threads[v.cursor].Other)
			}
		}
	}
	return nil
}

// refresh reprojects the thread list and reconciles per-thread references
// with what is now visible.
func (v *chatListView) refresh() {
	threads, err := v.session.Threads()
	v.loadErr = err
	if err != nil {
		return
	}
	v.threads = threads
	if v.cursor >= len(threads) && len(threads) > 0 {
		v.cursor = len(threads) - 1
	}

	eng, err := v.session.Engine()
	if err != nil {
		return
	}

	visible := make(map[principal.Principal]bool, len(threads))
	for _, t := range threads {
		visible[t.Other] = true
		if _, ok := v.unreadRefs[t.Other]; !ok {
			v.unreadRefs[t.Other] = eng.RefUnreadCount(t.Other)
		}
		if _, ok := v.profileRefs[t.Other]; !ok {
			v.profileRefs[t.Other] = eng.RefUserProfile(t.Other)
		}
	}
	for other, release := range v.unreadRefs {
		if !visible[other] {
			release()
			delete(v.unreadRefs, other)
		}
	}
	for other, release := range v.profileRefs {
		if !visible[other] {
			release()
			delete(v.profileRefs, other)
		}
	}
}

func (v *chatListView) View(width, height int, theme Theme) string {
	if v.loadErr != nil {
		return theme.errorStyle().Render(truncate("chat list unavailable: "+v.loadErr.Error(), width))
	}
	if len(v.threads) == 0 {
		return theme.mutedStyle().Render("No conversations yet. Press n to start one.")
	}

	eng, err := v.session.Engine()
	if err != nil {
		return theme.errorStyle().Render("session not ready")
	}

	now := time.Now()
	var b strings.Builder
	rows := len(v.threads)
	if height > 0 && rows > height {
		rows = height
	}
	for i := 0; i < rows; i++ {
		t := v.threads[i]
		name := v.displayName(t.Other)
		activity := formatActivity(t.LastActivity, now)

		badge := ""
		if snap := eng.UnreadCount(t.Other); snap.Loaded() {
			if count := snap.Value.OrZero(); count > 0 {
				badge = theme.unreadStyle().Render(fmt.Sprintf(" (%d)", count))
			}
		}

		line := fmt.Sprintf("%-30s%s", truncate(name, 30), badge)
		line = joinEnds(line, theme.mutedStyle().Render(activity), width-4)
		if i == v.cursor {
			line = theme.selectedStyle().Render("> ") + line
		} else {
			line = "  " + line
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// displayName prefers the cached profile name and falls back to the
// principal text while the profile is loading or absent.
func (v *chatListView) displayName(other principal.Principal) string {
	eng, err := v.session.Engine()
	if err != nil {
		return shortPrincipal(other)
	}
	if snap := eng.UserProfile(other); snap.Loaded() {
		if profile, ok := snap.Value.MustGet().Get(); ok && profile.DisplayName != "" {
			return profile.DisplayName
		}
	}
	return shortPrincipal(other)
}
