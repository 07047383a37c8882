package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/courier-im/courier/internal/principal"
)

// newChatView prompts for a peer principal and opens the thread. The thread
// need not exist yet; the first sent message creates it on the store.
type newChatView struct {
	input      string
	validation string
}

func newNewChatView() *newChatView {
	return &newChatView{}
}

func (v *newChatView) capturesInput() bool {
	return true
}

func (v *newChatView) Init() tea.Cmd {
	v.input = ""
	v.validation = ""
	return nil
}

func (v *newChatView) Update(msg tea.Msg) tea.Cmd {
	typed, ok := msg.(tea.KeyMsg)
	if !ok {
		return nil
	}

	switch typed.String() {
	case "enter":
		peer, err := principal.FromText(v.input)
		if err != nil {
			v.validation = "Not a valid principal."
			return nil
		}
		return openThreadCmd(peer)
	case "backspace":
		if len(v.input) > 0 {
			runes := []rune(v.input)
			v.input = string(runes[:len(runes)-1])
			v.validation = ""
		}
		return nil
	}

	if typed.Type == tea.KeyRunes {
		v.input += string(typed.Runes)
		v.validation = ""
	}
	return nil
}

func (v *newChatView) View(width, height int, theme Theme) string {
	lines := []string{
		theme.accentStyle().Render("Start a conversation"),
		"",
		"Peer principal: " + v.input + "▌",
	}
	if v.validation != "" {
		lines = append(lines, theme.errorStyle().Render(v.validation))
	}
	lines = append(lines, "", theme.mutedStyle().Render("[enter] open  [esc] back"))
	return strings.Join(lines, "\n")
}
