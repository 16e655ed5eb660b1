// Package detail renders the full body of the active message together with
// its classification and tags.
package detail

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/mailboard/internal/model"
	"github.com/nhle/mailboard/internal/source"
	"github.com/nhle/mailboard/internal/textutil"
	"github.com/nhle/mailboard/internal/theme"
)

// LoadedMsg carries a fetched message body. Err is set when the fetch
// failed.
type LoadedMsg struct {
	ID      string
	Message model.FullMessage
	Err     error
}

// Model is the message detail view component.
type Model struct {
	wantID         string
	message        *model.FullMessage
	classification *model.Classification
	tags           []string
	err            error
	viewport       viewport.Model
	width          int
	height         int
	loading        bool
}

// New creates a new detail view model.
func New(width, height int) Model {
	vp := viewport.New(width, height)
	vp.Style = lipgloss.NewStyle()
	// j/k move between messages, so scrolling stays on the paging keys.
	vp.KeyMap = viewport.KeyMap{
		PageDown:     key.NewBinding(key.WithKeys("pgdown", "f")),
		PageUp:       key.NewBinding(key.WithKeys("pgup", "b")),
		HalfPageDown: key.NewBinding(key.WithKeys("ctrl+d")),
		HalfPageUp:   key.NewBinding(key.WithKeys("ctrl+u")),
	}

	return Model{
		viewport: vp,
		width:    width,
		height:   height,
	}
}

// Load marks id as the message being fetched. Bodies for any other id are
// ignored when they arrive.
func (m *Model) Load(id string) {
	if id == m.wantID && m.message != nil {
		return
	}
	m.wantID = id
	m.message = nil
	m.err = nil
	m.loading = true
}

// ID returns the id of the message being shown or fetched.
func (m Model) ID() string {
	return m.wantID
}

// SetMeta updates the classification and tag names shown above the body.
func (m *Model) SetMeta(c *model.Classification, tags []string) {
	m.classification = c
	m.tags = tags
	if m.message != nil {
		m.viewport.SetContent(m.renderContent())
	}
}

// Update handles messages for the detail view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case LoadedMsg:
		if msg.ID != m.wantID {
			return m, nil
		}
		m.loading = false
		if msg.Err != nil {
			m.err = msg.Err
			return m, nil
		}
		full := msg.Message
		m.message = &full
		m.viewport.SetContent(m.renderContent())
		m.viewport.GotoTop()
		return m, nil
	}

	// Delegate to viewport for scrolling.
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the detail view.
func (m Model) View() string {
	placeholder := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	switch {
	case m.loading:
		return placeholder.Render("Loading message…")
	case m.err != nil:
		return placeholder.Foreground(theme.ColorRed).Render(source.UserMessage(m.err))
	case m.message == nil:
		return placeholder.Render("No message selected")
	}
	return m.viewport.View()
}

// renderContent builds the full detail content string for the viewport.
func (m Model) renderContent() string {
	if m.message == nil {
		return ""
	}

	msg := m.message
	width := max(m.width-2, 20)
	var sections []string

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite).Width(width)
	subject := msg.Subject
	if subject == "" {
		subject = "(no subject)"
	}
	sections = append(sections, titleStyle.Render(subject))

	if c := m.classification; c != nil {
		badges := []string{
			theme.CategoryStyle(c.Category).Render(string(c.Category)),
			theme.PriorityStyle(c.Priority).Render(string(c.Priority)),
		}
		if c.Redundant {
			badges = append(badges, theme.DimmedStyle.Render("redundant"))
		}
		if c.Manual {
			badges = append(badges, theme.DimmedStyle.Render("edited"))
		} else if c.Confidence > 0 {
			badges = append(badges, theme.DimmedStyle.Render(fmt.Sprintf("%.0f%%", c.Confidence*100)))
		}
		sections = append(sections, strings.Join(badges, "  "))
		if c.Rationale != "" {
			sections = append(sections, theme.HelpStyle.Width(width).Render(c.Rationale))
		}
	}
	sections = append(sections, "")

	metaStyle := lipgloss.NewStyle().Foreground(theme.ColorGray)
	valStyle := lipgloss.NewStyle().Foreground(theme.ColorWhite)
	row := func(label, value string) {
		if value == "" {
			return
		}
		sections = append(sections, fmt.Sprintf("%s %s",
			metaStyle.Render(fmt.Sprintf("%-6s", label)),
			valStyle.Render(value),
		))
	}
	row("From:", msg.From)
	row("To:", msg.To)
	if !msg.Date.IsZero() {
		row("Date:", msg.Date.Local().Format("Mon, 02 Jan 2006 15:04"))
	}
	if len(m.tags) > 0 {
		row("Tags:", "#"+strings.Join(m.tags, " #"))
	}

	sepStyle := lipgloss.NewStyle().Foreground(theme.ColorSubtle)
	sections = append(sections, "", sepStyle.Render(strings.Repeat("─", min(width, 80))), "")

	body := msg.Body
	if msg.IsHTML {
		body = textutil.StripHTML(body)
	}
	if strings.TrimSpace(body) == "" {
		body = lipgloss.NewStyle().
			Foreground(theme.ColorGray).
			Italic(true).
			Render("No content")
	}
	sections = append(sections, lipgloss.NewStyle().Width(width).Render(body))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// SetSize updates the detail view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height
	if m.message != nil {
		m.viewport.SetContent(m.renderContent())
	}
}
