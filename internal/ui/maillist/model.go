// Package maillist renders the filtered message list and the search bar.
// Cursor movement is owned by the navigation controller; the list only
// mirrors the active message.
package maillist

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/mailboard/internal/inbox"
	"github.com/nhle/mailboard/internal/theme"
)

// SearchMsg is sent when the search bar is submitted or cancelled.
type SearchMsg struct {
	Query     string
	Cancelled bool
}

// Model is the message list view component.
type Model struct {
	list        list.Model
	searchMode  bool
	searchInput textinput.Model
	loading     bool
	hasMore     bool
	filtered    bool
	total       int
	width       int
	height      int
}

// New creates a new message list model.
func New(width, height int) Model {
	l := list.New([]list.Item{}, ItemDelegate{}, width, height-2)
	l.Title = "Inbox"
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.KeyMap = list.KeyMap{}
	l.Styles.Title = theme.HeaderStyle

	si := textinput.New()
	si.Placeholder = "search mail..."
	si.Prompt = "/ "
	si.Width = width - 4

	return Model{
		list:        l,
		searchInput: si,
		width:       width,
		height:      height,
	}
}

// Searching reports whether the search bar has focus.
func (m Model) Searching() bool {
	return m.searchMode
}

// StartSearch focuses the search bar prefilled with current.
func (m *Model) StartSearch(current string) tea.Cmd {
	m.searchMode = true
	m.searchInput.SetValue(current)
	m.searchInput.CursorEnd()
	return m.searchInput.Focus()
}

// Update handles key input while searching. Other keys are ignored: the
// root model routes navigation through the controller.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok || !m.searchMode {
		return m, nil
	}

	switch keyMsg.String() {
	case "enter":
		m.searchMode = false
		m.searchInput.Blur()
		query := m.searchInput.Value()
		return m, func() tea.Msg { return SearchMsg{Query: query} }

	case "esc":
		m.searchMode = false
		m.searchInput.Blur()
		return m, func() tea.Msg { return SearchMsg{Cancelled: true} }
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

// SetState rebuilds the rows from a store snapshot. tagNames maps tag id to
// name; pending reports whether a message is awaiting classification.
func (m *Model) SetState(s inbox.State, tagNames map[string]string, pending func(id string) bool) tea.Cmd {
	visible := s.Visible()
	items := make([]list.Item, len(visible))
	for i, msg := range visible {
		it := MessageItem{
			Message:        msg,
			Classification: s.Classification(msg.ID),
			Selected:       s.Selected.Has(msg.ID),
		}
		if pending != nil {
			it.Pending = pending(msg.ID)
		}
		for _, id := range s.MessageTags[msg.ID] {
			if name, ok := tagNames[id]; ok {
				it.Tags = append(it.Tags, name)
			}
		}
		items[i] = it
	}

	m.loading = s.Loading
	m.hasMore = s.HasMore
	m.filtered = s.Filters.Active()
	m.total = len(s.Messages)

	cmd := m.list.SetItems(items)
	if idx := s.ActiveIndex(visible); idx >= 0 {
		m.list.Select(idx)
	} else {
		m.list.Select(0)
	}
	m.list.Title = m.title(len(visible), len(s.Selected))
	return cmd
}

func (m Model) title(visible, selected int) string {
	t := fmt.Sprintf("Inbox %d", visible)
	if visible != m.total {
		t = fmt.Sprintf("Inbox %d/%d", visible, m.total)
	}
	if m.hasMore {
		t += "+"
	}
	if selected > 0 {
		t += fmt.Sprintf(" · %d selected", selected)
	}
	return t
}

// View renders the message list view.
func (m Model) View() string {
	var body string
	if len(m.list.Items()) == 0 {
		body = m.renderEmptyState()
	} else {
		body = m.list.View()
	}

	if m.searchMode {
		searchBar := lipgloss.NewStyle().
			Foreground(theme.ColorWhite).
			Padding(0, 1).
			Render(m.searchInput.View())
		return lipgloss.JoinVertical(lipgloss.Left, searchBar, body)
	}
	return body
}

// renderEmptyState shows guidance text when nothing is visible.
func (m Model) renderEmptyState() string {
	style := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	switch {
	case m.loading:
		return style.Render("Loading messages…")
	case m.filtered && m.total > 0:
		return style.Render("No loaded messages match.\nPress c to clear filters or m to load more.")
	case m.filtered:
		return style.Render("No matching messages.\nTry adjusting your filters.")
	}
	return style.Render("Inbox is empty.\n\nPress r to refresh.")
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-2)
	m.searchInput.Width = width - 4
}
