package tui

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/courier-im/courier/internal/models"
	"github.com/courier-im/courier/internal/session"
)

// profileView shows the caller's profile and lets them set the display name.
// First run lands here implicitly: until a profile is saved the caller shows
// up to others by principal only.
type profileView struct {
	session *session.Session

	release func()
	seeded  bool

	input      string
	validation string
	saveErr    error
	saving     bool
	saved      bool
}

type saveProfileResultMsg struct {
	err error
}

func newProfileView(sess *session.Session) *profileView {
	return &profileView{session: sess}
}

func (v *profileView) capturesInput() bool {
	return true
}

func (v *profileView) Init() tea.Cmd {
	if v.release == nil {
		if eng, err := v.session.Engine(); err == nil {
			v.release = eng.RefCallerProfile()
		}
	}
	v.saved = false
	return nil
}

// Close implements closer.
func (v *profileView) Close() {
	if v.release != nil {
		v.release()
		v.release = nil
	}
}

func (v *profileView) Update(msg tea.Msg) tea.Cmd {
	switch typed := msg.(type) {
	case tickMsg:
		v.seedFromSnapshot()
		return nil

	case saveProfileResultMsg:
		v.saving = false
		if typed.err != nil {
			v.saveErr = typed.err
			return nil
		}
		v.saveErr = nil
		v.saved = true
		return nil

	case tea.KeyMsg:
		return v.handleKey(typed)
	}
	return nil
}

// seedFromSnapshot fills the input with the saved display name once, the
// first time the profile view sees a loaded snapshot.
func (v *profileView) seedFromSnapshot() {
	if v.seeded {
		return
	}
	eng, err := v.session.Engine()
	if err != nil {
		return
	}
	snap := eng.CallerProfile()
	if !snap.Loaded() {
		return
	}
	v.seeded = true
	if profile, ok := snap.Value.MustGet().Get(); ok {
		v.input = profile.DisplayName
	}
}

func (v *profileView) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "enter":
		return v.saveCmd()
	case "backspace":
		if len(v.input) > 0 {
			runes := []rune(v.input)
			v.input = string(runes[:len(runes)-1])
			v.validation = ""
			v.saved = false
		}
		return nil
	}

	if msg.Type == tea.KeyRunes {
		v.input += string(msg.Runes)
		v.validation = ""
		v.saved = false
	} else if msg.Type == tea.KeySpace {
		v.input += " "
		v.validation = ""
		v.saved = false
	}
	return nil
}

func (v *profileView) saveCmd() tea.Cmd {
	if v.saving {
		return nil
	}
	if result := models.ValidateDisplayName(v.input); !result.Valid {
		v.validation = result.Error
		return nil
	}
	eng, err := v.session.Engine()
	if err != nil {
		v.saveErr = err
		return nil
	}

	v.saving = true
	profile := models.UserProfile{DisplayName: strings.TrimSpace(v.input)}
	return func() tea.Msg {
		return saveProfileResultMsg{err: eng.SaveCallerProfile(context.Background(), profile)}
	}
}

func (v *profileView) View(width, height int, theme Theme) string {
	title := theme.accentStyle().Render("Your profile")

	current := theme.mutedStyle().Render("No profile saved yet.")
	if eng, err := v.session.Engine(); err == nil {
		snap := eng.CallerProfile()
		switch {
		case snap.Loaded():
			if profile, ok := snap.Value.MustGet().Get(); ok {
				current = "Saved display name: " + profile.DisplayName
			}
		case snap.Err != nil:
			current = theme.errorStyle().Render(truncate("profile unavailable: "+snap.Err.Error(), width))
		default:
			current = theme.mutedStyle().Render("loading…")
		}
	}

	lines := []string{
		title,
		current,
		"",
		"Display name: " + v.input + "▌",
	}
	switch {
	case v.validation != "":
		lines = append(lines, theme.errorStyle().Render(v.validation))
	case v.saveErr != nil:
		lines = append(lines, theme.errorStyle().Render("save failed: "+v.saveErr.Error()))
	case v.saving:
		lines = append(lines, theme.mutedStyle().Render("saving…"))
	case v.saved:
		lines = append(lines, theme.accentStyle().Render("Saved."))
	}
	lines = append(lines, "", theme.mutedStyle().Render("[enter] save  [esc] back"))
	return strings.Join(lines, "\n")
}
