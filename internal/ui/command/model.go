// Package command is the ':' palette: a single text input with completion
// over the known command names.
package command

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/mailboard/internal/theme"
)

// Def describes one palette command.
type Def struct {
	Name  string
	Args  string
	Usage string
	// MinArgs is the number of required arguments.
	MinArgs int
}

// Commands lists every palette command in help order.
var Commands = []Def{
	{Name: "refresh", Usage: "reload the first page"},
	{Name: "more", Usage: "load the next page"},
	{Name: "check", Usage: "check for new mail now"},
	{Name: "unread", Usage: "toggle unread only"},
	{Name: "attachments", Usage: "toggle has attachment"},
	{Name: "date", Args: "all|today|week|month", Usage: "restrict the date range", MinArgs: 1},
	{Name: "cat", Args: "<category>...", Usage: "toggle category filters"},
	{Name: "prio", Args: "<priority>...", Usage: "toggle priority filters"},
	{Name: "tag", Args: "<name>", Usage: "toggle a tag filter", MinArgs: 1},
	{Name: "redundant", Usage: "toggle hiding redundant mail"},
	{Name: "search", Args: "<text>", Usage: "set the search text"},
	{Name: "clear", Usage: "clear every filter"},
	{Name: "tags", Usage: "open the tag manager"},
	{Name: "classify", Usage: "edit the active message's classification"},
	{Name: "settings", Usage: "edit the configuration"},
	{Name: "summarize", Usage: "summarize the viewing context"},
	{Name: "tasks", Usage: "extract action items"},
	{Name: "categorize", Usage: "group the viewing context"},
	{Name: "filters", Usage: "suggest filters"},
	{Name: "quit", Usage: "exit"},
}

// Command is a parsed palette line.
type Command struct {
	Name string
	Args []string
}

// Arg returns the arguments joined by single spaces.
func (c Command) Arg() string {
	return strings.Join(c.Args, " ")
}

// Parse splits line into a known command and its arguments. A unique
// prefix of a command name is accepted.
func Parse(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, fmt.Errorf("empty command")
	}
	name := strings.ToLower(fields[0])

	var match *Def
	for i := range Commands {
		def := &Commands[i]
		if def.Name == name {
			match = def
			break
		}
		if strings.HasPrefix(def.Name, name) {
			if match != nil {
				return Command{}, fmt.Errorf("ambiguous command %q", fields[0])
			}
			match = def
		}
	}
	if match == nil {
		return Command{}, fmt.Errorf("unknown command %q", fields[0])
	}
	args := fields[1:]
	if len(args) < match.MinArgs {
		return Command{}, fmt.Errorf("usage: %s %s", match.Name, match.Args)
	}
	return Command{Name: match.Name, Args: args}, nil
}

// ExecMsg is emitted when the user submits a valid command.
type ExecMsg struct {
	Command Command
}

// CancelMsg is emitted when the palette is dismissed.
type CancelMsg struct{}

// Model is the command palette view.
type Model struct {
	input  textinput.Model
	err    error
	width  int
	height int
}

// New creates a new command palette model.
func New(width, height int) Model {
	ti := textinput.New()
	ti.Placeholder = "type a command..."
	ti.Prompt = ": "
	ti.ShowSuggestions = true
	names := make([]string, len(Commands))
	for i, c := range Commands {
		names[i] = c.Name
	}
	ti.SetSuggestions(names)
	ti.Width = width - 6

	return Model{
		input:  ti,
		width:  width,
		height: height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages for the command palette.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "esc":
			m.input.Reset()
			m.err = nil
			return m, func() tea.Msg { return CancelMsg{} }

		case "enter":
			line := strings.TrimSpace(m.input.Value())
			if line == "" {
				return m, func() tea.Msg { return CancelMsg{} }
			}
			c, err := Parse(line)
			if err != nil {
				m.err = err
				return m, nil
			}
			m.input.Reset()
			m.err = nil
			return m, func() tea.Msg { return ExecMsg{Command: c} }
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the command palette.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	parts := []string{titleStyle.Render("Command Palette"), m.input.View()}
	if m.err != nil {
		parts = append(parts, theme.ErrorStyle.Render(m.err.Error()))
	}

	return theme.DetailPanelStyle.
		Width(m.width - 4).
		Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

// SetSize updates the command palette dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.input.Width = width - 6
}

// Focus gives keyboard focus to the text input.
func (m *Model) Focus() tea.Cmd {
	m.input.Reset()
	m.err = nil
	return m.input.Focus()
}
