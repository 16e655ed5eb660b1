// Package assistant is the chat panel. It owns the conversation history
// and renders quick action results; the root model performs the calls
// because only it knows the viewing context.
package assistant

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/mailboard/internal/ai"
	"github.com/nhle/mailboard/internal/source"
	"github.com/nhle/mailboard/internal/theme"
)

// AskMsg asks the root model to send a chat message. History holds the
// prior turns only.
type AskMsg struct {
	Text    string
	History []ai.Message
}

// QuickMsg asks the root model to run a quick action.
type QuickMsg struct {
	Kind ai.Kind
}

// ApplyMsg asks the root model to apply a suggested filter.
type ApplyMsg struct {
	Suggestion ai.FilterSuggestion
}

// BlurMsg returns keyboard focus to the message list.
type BlurMsg struct{}

// ReplyMsg carries a chat reply.
type ReplyMsg struct {
	Text string
	Err  error
}

// ResultMsg carries a quick action outcome. Count and Scope describe the
// messages it ran over; Subjects maps message id to subject for display.
type ResultMsg struct {
	Kind     ai.Kind
	Result   ai.Result
	Count    int
	Scope    string
	Subjects map[string]string
	Err      error
}

type entry struct {
	label string
	body  string
	err   bool
}

// Model is the assistant panel.
type Model struct {
	enabled     bool
	history     *ai.ConversationContext
	input       textarea.Model
	viewport    viewport.Model
	spinner     spinner.Model
	entries     []entry
	pending     string
	busy        bool
	focused     bool
	suggestions []ai.FilterSuggestion
	width       int
	height      int
}

// New creates the panel. A disabled panel explains how to configure an API
// key instead of accepting input.
func New(enabled bool, width, height int) Model {
	ta := textarea.New()
	ta.Placeholder = "Ask about your mail, or /summarize /tasks /categorize /filters"
	ta.Prompt = "> "
	ta.ShowLineNumbers = false
	ta.CharLimit = 2000
	ta.SetHeight(3)

	vp := viewport.New(width, height)
	vp.Style = lipgloss.NewStyle()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.ColorBlue)

	m := Model{
		enabled:  enabled,
		history:  ai.NewConversationContext(ai.DefaultHistory),
		input:    ta,
		viewport: vp,
		spinner:  sp,
	}
	m.SetSize(width, height)
	return m
}

// Focused reports whether the panel has keyboard focus.
func (m Model) Focused() bool {
	return m.focused
}

// Busy reports whether a request is outstanding.
func (m Model) Busy() bool {
	return m.busy
}

// Focus gives keyboard focus to the text input.
func (m *Model) Focus() tea.Cmd {
	m.focused = true
	return m.input.Focus()
}

// Blur removes keyboard focus.
func (m *Model) Blur() {
	m.focused = false
	m.input.Blur()
}

// Start marks a quick action begun from outside the panel (the command
// palette) so the spinner shows.
func (m *Model) Start(kind ai.Kind) tea.Cmd {
	m.busy = true
	m.entries = append(m.entries, entry{label: "You", body: "/" + string(kind)})
	m.refreshViewport()
	return m.spinner.Tick
}

// Update handles messages for the panel.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ReplyMsg:
		m.busy = false
		if msg.Err != nil {
			m.entries = append(m.entries, entry{label: "Error", body: source.UserMessage(msg.Err), err: true})
		} else {
			m.history.Add(ai.RoleUser, m.pending)
			m.history.Add(ai.RoleAssistant, msg.Text)
			m.entries = append(m.entries, entry{label: "Assistant", body: msg.Text})
		}
		m.pending = ""
		m.refreshViewport()
		return m, nil

	case ResultMsg:
		m.busy = false
		m.entries = append(m.entries, m.renderResult(msg))
		m.refreshViewport()
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.refreshViewport()
		return m, cmd

	case tea.KeyMsg:
		if !m.focused {
			return m, nil
		}
		return m.handleKeyMsg(msg)
	}
	return m, nil
}

// handleKeyMsg processes keyboard input for the panel.
func (m Model) handleKeyMsg(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.Blur()
		return m, func() tea.Msg { return BlurMsg{} }

	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case "enter":
		if !m.enabled || m.busy {
			return m, nil
		}
		text := strings.TrimSpace(m.input.Value())
		if text == "" {
			return m, nil
		}
		m.input.Reset()
		return m.submit(text)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit handles one line of input: a slash command or a chat message.
func (m Model) submit(text string) (Model, tea.Cmd) {
	if !strings.HasPrefix(text, "/") {
		history := m.history.Messages()
		m.pending = text
		m.busy = true
		m.entries = append(m.entries, entry{label: "You", body: text})
		m.refreshViewport()
		return m, tea.Batch(
			func() tea.Msg { return AskMsg{Text: text, History: history} },
			m.spinner.Tick,
		)
	}

	fields := strings.Fields(strings.TrimPrefix(text, "/"))
	if len(fields) == 0 {
		return m, nil
	}

	switch fields[0] {
	case "clear":
		m.Reset()
		return m, nil

	case "apply":
		n := 0
		if len(fields) > 1 {
			n, _ = strconv.Atoi(fields[1])
		}
		if n < 1 || n > len(m.suggestions) {
			m.entries = append(m.entries, entry{
				label: "Error",
				body:  fmt.Sprintf("no suggestion %q; run /filters first", strings.Join(fields[1:], " ")),
				err:   true,
			})
			m.refreshViewport()
			return m, nil
		}
		s := m.suggestions[n-1]
		m.entries = append(m.entries, entry{label: "Applied", body: s.Label})
		m.refreshViewport()
		return m, func() tea.Msg { return ApplyMsg{Suggestion: s} }
	}

	kind, err := ai.ParseKind(fields[0])
	if err != nil {
		m.entries = append(m.entries, entry{label: "Error", body: err.Error(), err: true})
		m.refreshViewport()
		return m, nil
	}
	cmd := m.Start(kind)
	return m, tea.Batch(func() tea.Msg { return QuickMsg{Kind: kind} }, cmd)
}

// renderResult turns a quick action outcome into a transcript entry.
func (m *Model) renderResult(msg ResultMsg) entry {
	label := fmt.Sprintf("%s · %d messages (%s)", msg.Kind, msg.Count, msg.Scope)
	if msg.Err != nil {
		if ai.IsParseError(msg.Err) {
			return entry{label: label, body: "No result."}
		}
		return entry{label: "Error", body: source.UserMessage(msg.Err), err: true}
	}
	if msg.Result == nil || msg.Result.Empty() {
		return entry{label: label, body: "No result."}
	}

	subject := func(id string) string {
		if s, ok := msg.Subjects[id]; ok && s != "" {
			return s
		}
		return id
	}

	var b strings.Builder
	switch r := msg.Result.(type) {
	case ai.SummaryResult:
		b.WriteString(r.Summary)
		for _, h := range r.Highlights {
			b.WriteString("\n• " + h)
		}

	case ai.CategoriesResult:
		for _, g := range r.Groups {
			fmt.Fprintf(&b, "%s (%d)", theme.CategoryStyle(g.Category).Render(string(g.Category)), len(g.MessageIDs))
			if g.Note != "" {
				b.WriteString(" " + g.Note)
			}
			b.WriteString("\n")
			for _, id := range g.MessageIDs {
				b.WriteString("  · " + subject(id) + "\n")
			}
		}

	case ai.TasksResult:
		for _, t := range r.Tasks {
			fmt.Fprintf(&b, "%s %s", theme.PriorityStyle(t.Priority).Render(theme.PriorityGlyph(t.Priority)), t.Title)
			if t.Due != "" {
				b.WriteString(theme.DimmedStyle.Render(" due " + t.Due))
			}
			b.WriteString("\n    " + theme.DimmedStyle.Render(subject(t.MessageID)) + "\n")
		}

	case ai.FiltersResult:
		m.suggestions = r.Suggestions
		for i, s := range r.Suggestions {
			fmt.Fprintf(&b, "%d. %s\n", i+1, s.Label)
		}
		b.WriteString(theme.HelpStyle.Render("/apply N to use a suggestion"))
	}
	return entry{label: label, body: strings.TrimRight(b.String(), "\n")}
}

// refreshViewport re-renders the conversation content and scrolls to bottom.
func (m *Model) refreshViewport() {
	m.viewport.SetContent(m.renderConversation())
	m.viewport.GotoBottom()
}

// renderConversation builds the conversation display string.
func (m Model) renderConversation() string {
	width := max(m.viewport.Width, 10)
	if len(m.entries) == 0 {
		return lipgloss.NewStyle().
			Foreground(theme.ColorGray).
			Italic(true).
			Width(width).
			Render("Ask about the selected messages, the filtered list, " +
				"or your most recent mail.")
	}

	roleStyle := lipgloss.NewStyle().Bold(true)
	contentStyle := lipgloss.NewStyle().Foreground(theme.ColorWhite).Width(width)

	var sections []string
	for _, e := range m.entries {
		var label string
		switch {
		case e.err:
			label = roleStyle.Foreground(theme.ColorRed).Render(e.label + ":")
		case e.label == "You":
			label = roleStyle.Foreground(theme.ColorBlue).Render("You:")
		default:
			label = roleStyle.Foreground(theme.ColorGreen).Render(e.label + ":")
		}
		sections = append(sections, label, contentStyle.Render(e.body), "")
	}

	if m.busy {
		sections = append(sections, m.spinner.View()+theme.DimmedStyle.Render(" thinking"))
	}

	return strings.Join(sections, "\n")
}

// View renders the panel.
func (m Model) View() string {
	style := theme.DetailPanelStyle
	if m.focused {
		style = theme.FocusedPanelStyle
	}
	style = style.Width(max(m.width-2, 0)).Height(max(m.height-2, 0))

	if !m.enabled {
		return style.Render(lipgloss.NewStyle().
			Foreground(theme.ColorGray).
			Render("The assistant needs an Anthropic API key.\n\n" +
				"Run `mailboard login` or set ANTHROPIC_API_KEY."))
	}

	title := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite).Render("Assistant")
	sep := lipgloss.NewStyle().Foreground(theme.ColorSubtle).
		Render(strings.Repeat("─", max(m.width-4, 0)))

	return style.Render(lipgloss.JoinVertical(
		lipgloss.Left,
		title,
		m.viewport.View(),
		sep,
		m.input.View(),
	))
}

// SetSize updates the panel dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	inner := max(width-4, 10)
	m.input.SetWidth(inner)
	m.viewport.Width = inner
	// title, separator, input and border
	m.viewport.Height = max(height-2-1-1-m.input.Height(), 3)
	m.viewport.SetContent(m.renderConversation())
}

// Reset clears the conversation and its history.
func (m *Model) Reset() {
	m.entries = nil
	m.suggestions = nil
	m.pending = ""
	m.busy = false
	m.history.Reset()
	m.input.Reset()
	m.refreshViewport()
}
