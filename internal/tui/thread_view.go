package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/courier-im/courier/internal/compose"
	"github.com/courier-im/courier/internal/engine"
	"github.com/courier-im/courier/internal/models"
	"github.com/courier-im/courier/internal/principal"
	"github.com/courier-im/courier/internal/readstate"
	"github.com/courier-im/courier/internal/session"
)

// threadView renders one conversation: the message log, the composer input,
// and inline validation. Opening a thread starts a read-state activation;
// leaving it ends the activation.
type threadView struct {
	session        *session.Session
	showTimestamps bool

	other      principal.Principal
	activation *readstate.Activation

	releaseMessages func()
	releaseUnread   func()
	releaseProfile  func()

	input      string
	validation string
	sendErr    error
	sending    bool
	scroll     int
}

type sendResultMsg struct {
	other principal.Principal
	err   error
}

func newThreadView(sess *session.Session, showTimestamps bool) *threadView {
	return &threadView{session: sess, showTimestamps: showTimestamps}
}

func (v *threadView) capturesInput() bool {
	return true
}

// SetTarget switches the view to a conversation. The previous activation, if
// any, ends; the new thread gets a fresh one.
func (v *threadView) SetTarget(other principal.Principal) tea.Cmd {
	if v.other == other && v.activation != nil {
		return nil
	}
	v.Leave()

	v.other = other
	v.input = ""
	v.validation = ""
	v.sendErr = nil
	v.scroll = 0

	if eng, err := v.session.Engine(); err == nil {
		v.releaseMessages = eng.RefMessages(other)
		v.releaseUnread = eng.RefUnreadCount(other)
		v.releaseProfile = eng.RefUserProfile(other)
	}
	if reads, err := v.session.Reads(); err == nil {
		v.activation = reads.Begin(other)
	}
	if composer, err := v.session.Composer(); err == nil {
		v.input = composer.Draft(other)
	}
	return nil
}

// Leave ends the activation and releases the thread's cache references.
func (v *threadView) Leave() {
	if v.activation != nil {
		v.activation.End()
		v.activation = nil
	}
	if v.releaseMessages != nil {
		v.releaseMessages()
		v.releaseMessages = nil
	}
	if v.releaseUnread != nil {
		v.releaseUnread()
		v.releaseUnread = nil
	}
	if v.releaseProfile != nil {
		v.releaseProfile()
		v.releaseProfile = nil
	}
}

// Close implements closer.
func (v *threadView) Close() {
	v.Leave()
}

func (v *threadView) Init() tea.Cmd {
	return nil
}

func (v *threadView) Update(msg tea.Msg) tea.Cmd {
	switch typed := msg.(type) {
	case tickMsg:
		return v.observeCmd()

	case sendResultMsg:
		if typed.other != v.other {
			return nil
		}
		v.sending = false
		switch {
		case errors.Is(typed.err, compose.ErrInvalid):
			if composer, err := v.session.Composer(); err == nil {
				v.validation = composer.Validate(v.other).Error
			}
		case typed.err != nil:
			v.sendErr = typed.err
		default:
			v.sendErr = nil
			v.validation = ""
			if composer, err := v.session.Composer(); err == nil {
				v.input = composer.Draft(v.other)
			}
		}
		return nil

	case tea.KeyMsg:
		return v.handleKey(typed)
	}
	return nil
}

func (v *threadView) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "enter":
		return v.submitCmd()
	case "backspace":
		if len(v.input) > 0 {
			runes := []rune(v.input)
			v.setInput(string(runes[:len(runes)-1]))
		}
		return nil
	case "pgup":
		v.scroll++
		return nil
	case "pgdown":
		if v.scroll > 0 {
			v.scroll--
		}
		return nil
	}

	if msg.Type == tea.KeyRunes {
		v.setInput(v.input + string(msg.Runes))
	} else if msg.Type == tea.KeySpace {
		v.setInput(v.input + " ")
	}
	return nil
}

// setInput mirrors the input into the composer draft. Editing clears inline
// validation; it is re-derived on the next submit.
func (v *threadView) setInput(text string) {
	v.input = text
	v.validation = ""
	if composer, err := v.session.Composer(); err == nil {
		composer.SetDraft(v.other, text)
	}
}

func (v *threadView) submitCmd() tea.Cmd {
	if v.sending {
		return nil
	}
	composer, err := v.session.Composer()
	if err != nil {
		v.sendErr = err
		return nil
	}
	if result := composer.Validate(v.other); !result.Valid {
		v.validation = result.Error
		return nil
	}

	v.sending = true
	other := v.other
	return func() tea.Msg {
		return sendResultMsg{other: other, err: composer.Submit(context.Background(), other)}
	}
}

// observeCmd feeds the latest message snapshot to the activation. The
// coordinator fires the single mark-read call on the first non-empty
// observation; later calls are no-ops, so this is safe to run every tick.
func (v *threadView) observeCmd() tea.Cmd {
	if v.activation == nil || v.activation.State() != readstate.StateIdle {
		return nil
	}
	eng, err := v.session.Engine()
	if err != nil {
		return nil
	}
	snap := eng.Messages(v.other)
	messages, ok := snap.Value.Get()
	if !ok || len(messages) == 0 {
		return nil
	}

	activation := v.activation
	return func() tea.Msg {
		activation.Observe(context.Background(), messages)
		return nil
	}
}

func (v *threadView) View(width, height int, theme Theme) string {
	eng, err := v.session.Engine()
	if err != nil {
		return theme.errorStyle().Render("session not ready")
	}

	self, _ := v.session.Principal()
	title := theme.accentStyle().Render(v.titleFor(eng))

	inputLine := "> " + v.input + "▌"
	statusLine := v.statusLine(theme)

	chrome := 2 // title + input
	if statusLine != "" {
		chrome++
	}
	logHeight := height - chrome
	if logHeight < 0 {
		logHeight = 0
	}

	log := v.renderLog(eng, self, width, logHeight, theme)

	parts := []string{title, log, truncate(inputLine, width)}
	if statusLine != "" {
		parts = append(parts, statusLine)
	}
	return strings.Join(parts, "\n")
}

func (v *threadView) titleFor(eng *engine.Engine) string {
	name := shortPrincipal(v.other)
	if snap := eng.UserProfile(v.other); snap.Loaded() {
		if profile, ok := snap.Value.MustGet().Get(); ok && profile.DisplayName != "" {
			name = fmt.Sprintf("%s (%s)", profile.DisplayName, shortPrincipal(v.other))
		}
	}
	return name
}

func (v *threadView) statusLine(theme Theme) string {
	if v.validation != "" {
		return theme.errorStyle().Render(v.validation)
	}
	if v.sendErr != nil {
		return theme.errorStyle().Render("send failed, draft kept: " + v.sendErr.Error())
	}
	if v.sending {
		return theme.mutedStyle().Render("sending…")
	}
	return ""
}

func (v *threadView) renderLog(eng *engine.Engine, self principal.Principal, width, height int, theme Theme) string {
	snap := eng.Messages(v.other)
	messages, ok := snap.Value.Get()
	if !ok {
		if snap.Err != nil {
			return theme.errorStyle().Render(truncate("messages unavailable: "+snap.Err.Error(), width))
		}
		return theme.mutedStyle().Render("loading…")
	}
	if len(messages) == 0 {
		return theme.mutedStyle().Render("No messages yet. Say hello.")
	}

	lines := make([]string, 0, len(messages))
	for _, msg := range messages {
		lines = append(lines, v.renderMessage(msg, self, width, theme))
	}

	// Bottom-anchored window over the log, shifted up by scroll.
	if height > 0 && len(lines) > height {
		end := len(lines) - v.scroll
		if end > len(lines) {
			end = len(lines)
		}
		if end < height {
			end = height
		}
		lines = lines[end-height : end]
	}
	return strings.Join(lines, "\n")
}

func (v *threadView) renderMessage(msg models.ChatMessage, self principal.Principal, width int, theme Theme) string {
	var prefix string
	var style = theme.otherMessageStyle()
	if msg.Sender.Equal(self) {
		prefix = "you"
		style = theme.ownMessageStyle()
	} else {
		prefix = "them"
	}

	line := fmt.Sprintf("%s: %s", prefix, msg.Content)
	if v.showTimestamps {
		line = theme.mutedStyle().Render(formatTimestamp(msg.Timestamp)) + " " + line
	}
	return style.Render(truncate(line, width))
}
