package help

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/mailboard/internal/keys"
	"github.com/nhle/mailboard/internal/theme"
	"github.com/nhle/mailboard/internal/ui/command"
)

// Model is the help overlay view.
type Model struct {
	keys   *keys.KeyMap
	help   help.Model
	width  int
	height int
}

// New creates a new help view model.
func New(keys *keys.KeyMap, width, height int) Model {
	h := help.New()
	h.Width = width
	return Model{
		keys:   keys,
		help:   h,
		width:  width,
		height: height,
	}
}

// View renders the help overlay: key bindings, then palette commands.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	m.help.Width = m.width - 4
	m.help.ShowAll = true

	var cmds strings.Builder
	for _, c := range command.Commands {
		name := c.Name
		if c.Args != "" {
			name += " " + c.Args
		}
		fmt.Fprintf(&cmds, "%s  %s\n",
			lipgloss.NewStyle().Foreground(theme.ColorBlue).Render(fmt.Sprintf("%-28s", name)),
			theme.DimmedStyle.Render(c.Usage),
		)
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Keyboard Shortcuts"),
		m.help.View(m.keys),
		theme.SectionStyle.Render("Commands (:)"),
		strings.TrimRight(cmds.String(), "\n"),
		theme.SectionStyle.Render("Assistant"),
		theme.DimmedStyle.Render("/summarize /tasks /categorize /filters /apply N /clear"),
	)

	return theme.DetailPanelStyle.
		Width(m.width - 4).
		Height(m.height - 4).
		Render(content)
}

// SetSize updates the help view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = width - 4
}
