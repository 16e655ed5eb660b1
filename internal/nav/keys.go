package nav

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/mailboard/internal/keys"
)

// InputForKey maps a key press to an Input. Nothing is mapped while a text
// field has focus, so typing is never hijacked.
func InputForKey(msg tea.KeyMsg, km *keys.KeyMap, textFocused bool) (Input, bool) {
	if textFocused {
		return 0, false
	}
	switch {
	case key.Matches(msg, km.Down):
		return Next, true
	case key.Matches(msg, km.Up):
		return Prev, true
	case key.Matches(msg, km.Enter):
		return Open, true
	case key.Matches(msg, km.Escape):
		return Close, true
	case key.Matches(msg, km.Select):
		return ToggleActiveSelection, true
	case key.Matches(msg, km.SelectAll):
		return SelectAll, true
	case key.Matches(msg, km.Refresh):
		return Refresh, true
	case key.Matches(msg, km.LoadMore):
		return LoadMore, true
	case key.Matches(msg, km.Sidebar):
		return ToggleSidebar, true
	case key.Matches(msg, km.Assistant):
		return ToggleAssistant, true
	case key.Matches(msg, km.Help):
		return Help, true
	}
	return 0, false
}
