// Package tagmgr manages user tags and toggles them on one target message.
package tagmgr

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/mailboard/internal/keys"
	"github.com/nhle/mailboard/internal/model"
	"github.com/nhle/mailboard/internal/store"
	"github.com/nhle/mailboard/internal/theme"
)

// CloseMsg signals the parent to close the tag view.
type CloseMsg struct{}

// TagsLoadedMsg carries the current tag list. The parent uses it to
// resolve tag names.
type TagsLoadedMsg struct {
	Tags []model.Tag
	Err  error
}

// MessageTagsMsg reports that a message's tags were persisted.
type MessageTagsMsg struct {
	MessageID string
	TagIDs    []string
	Err       error
}

// TagDeletedMsg reports that a tag was removed everywhere.
type TagDeletedMsg struct {
	ID  string
	Err error
}

// FilterMsg asks the parent to toggle a tag filter.
type FilterMsg struct {
	TagID string
}

type tagMode int

const (
	modeList tagMode = iota
	modeForm
	modeConfirmDelete
)

type formBindings struct {
	name    string
	color   string
	confirm bool
}

type tagSavedMsg struct{ err error }

// Model is the Bubble Tea model for tag management.
type Model struct {
	mode        tagMode
	store       store.Store
	keys        *keys.KeyMap
	tags        []model.Tag
	selectedIdx int
	editingID   string
	isNew       bool
	form        *huh.Form
	confirmForm *huh.Form
	fb          *formBindings
	statusMsg   string

	// target is the message tags are toggled on; empty when none is active.
	target        string
	targetSubject string
	targetTags    []string

	width  int
	height int
}

// New creates a new tag manager model.
func New(s store.Store, k *keys.KeyMap, width, height int) Model {
	return Model{
		mode:  modeList,
		store: s,
		keys:  k,
		fb:    &formBindings{},
		width: width, height: height,
	}
}

// Open resets the view onto messageID, which currently carries tagIDs.
func (m *Model) Open(messageID, subject string, tagIDs []string) tea.Cmd {
	m.mode = modeList
	m.statusMsg = ""
	m.target = messageID
	m.targetSubject = subject
	m.targetTags = slices.Clone(tagIDs)
	return m.LoadTags()
}

// SetTargetTags resets the tag ids shown for the target message, e.g. after
// a save failed.
func (m *Model) SetTargetTags(messageID string, tagIDs []string) {
	if messageID == m.target {
		m.targetTags = slices.Clone(tagIDs)
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case TagsLoadedMsg:
		if msg.Err != nil {
			m.statusMsg = fmt.Sprintf("Error: %v", msg.Err)
			return m, nil
		}
		m.tags = msg.Tags
		if m.selectedIdx >= len(m.tags) && m.selectedIdx > 0 {
			m.selectedIdx = len(m.tags) - 1
		}
		return m, nil

	case tagSavedMsg:
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Error: %v", msg.err)
		} else {
			m.statusMsg = "Tag saved"
		}
		m.mode = modeList
		return m, m.LoadTags()

	case TagDeletedMsg:
		if msg.Err != nil {
			m.statusMsg = fmt.Sprintf("Error: %v", msg.Err)
		} else {
			m.statusMsg = "Tag deleted"
			m.targetTags = slices.DeleteFunc(m.targetTags, func(id string) bool { return id == msg.ID })
		}
		m.mode = modeList
		return m, m.LoadTags()

	case MessageTagsMsg:
		if msg.Err != nil {
			m.statusMsg = fmt.Sprintf("Error: %v", msg.Err)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m.updateActiveForm(msg)
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch m.mode {
	case modeList:
		return m.handleListKey(msg)
	case modeForm:
		return m.updateForm(msg)
	case modeConfirmDelete:
		return m.updateConfirm(msg)
	}
	return m, nil
}

func (m Model) handleListKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Escape):
		return m, func() tea.Msg { return CloseMsg{} }

	case key.Matches(msg, m.keys.Down):
		if len(m.tags) > 0 {
			m.selectedIdx = (m.selectedIdx + 1) % len(m.tags)
		}
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if len(m.tags) > 0 {
			m.selectedIdx--
			if m.selectedIdx < 0 {
				m.selectedIdx = len(m.tags) - 1
			}
		}
		return m, nil

	case key.Matches(msg, m.keys.Select):
		if len(m.tags) == 0 || m.target == "" {
			return m, nil
		}
		id := m.tags[m.selectedIdx].ID
		if slices.Contains(m.targetTags, id) {
			m.targetTags = slices.DeleteFunc(slices.Clone(m.targetTags), func(t string) bool { return t == id })
		} else {
			m.targetTags = append(slices.Clone(m.targetTags), id)
		}
		return m, m.saveMessageTags(m.target, slices.Clone(m.targetTags))

	case msg.String() == "f":
		if len(m.tags) == 0 {
			return m, nil
		}
		id := m.tags[m.selectedIdx].ID
		return m, func() tea.Msg { return FilterMsg{TagID: id} }

	case msg.String() == "n":
		m.isNew = true
		m.editingID = ""
		m.fb.name = ""
		m.fb.color = "#6BCB77"
		m.form = m.buildForm()
		m.mode = modeForm
		return m, m.form.Init()

	case msg.String() == "e":
		if len(m.tags) == 0 {
			return m, nil
		}
		t := m.tags[m.selectedIdx]
		m.isNew = false
		m.editingID = t.ID
		m.fb.name = t.Name
		m.fb.color = t.Color
		m.form = m.buildForm()
		m.mode = modeForm
		return m, m.form.Init()

	case msg.String() == "d":
		if len(m.tags) == 0 {
			return m, nil
		}
		m.fb.confirm = false
		m.confirmForm = m.buildConfirmForm()
		m.mode = modeConfirmDelete
		return m, m.confirmForm.Init()
	}
	return m, nil
}

func (m Model) buildForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Name").
				Placeholder("Tag name").
				Value(&m.fb.name).
				Validate(func(s string) error {
					s = strings.TrimSpace(s)
					if s == "" {
						return fmt.Errorf("name is required")
					}
					if strings.ContainsAny(s, " \t") {
						return fmt.Errorf("name cannot contain spaces")
					}
					return nil
				}),
			huh.NewInput().
				Title("Color").
				Placeholder("#6BCB77").
				Value(&m.fb.color),
		),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func (m Model) buildConfirmForm() *huh.Form {
	name := ""
	if m.selectedIdx < len(m.tags) {
		name = m.tags[m.selectedIdx].Name
	}
	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Delete tag %q?", name)).
				Description("This tag will be removed from all messages.").
				Affirmative("Yes, delete").
				Negative("Cancel").
				Value(&m.fb.confirm),
		),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func (m Model) updateForm(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}
	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}
	if m.form.State == huh.StateCompleted {
		return m, m.saveTag()
	}
	if m.form.State == huh.StateAborted {
		m.mode = modeList
		return m, nil
	}
	return m, cmd
}

func (m Model) updateConfirm(msg tea.Msg) (Model, tea.Cmd) {
	if m.confirmForm == nil {
		return m, nil
	}
	mdl, cmd := m.confirmForm.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.confirmForm = f
	}
	if m.confirmForm.State == huh.StateCompleted {
		if m.fb.confirm {
			t := m.tags[m.selectedIdx]
			return m, m.deleteTag(t.ID)
		}
		m.mode = modeList
		return m, nil
	}
	if m.confirmForm.State == huh.StateAborted {
		m.mode = modeList
		return m, nil
	}
	return m, cmd
}

func (m Model) updateActiveForm(msg tea.Msg) (Model, tea.Cmd) {
	switch m.mode {
	case modeForm:
		return m.updateForm(msg)
	case modeConfirmDelete:
		return m.updateConfirm(msg)
	}
	return m, nil
}

// View renders the tag manager.
func (m Model) View() string {
	switch m.mode {
	case modeForm:
		return m.viewForm(m.form)
	case modeConfirmDelete:
		return m.viewForm(m.confirmForm)
	default:
		return m.viewList()
	}
}

func (m Model) viewList() string {
	var b strings.Builder

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite).MarginBottom(1)
	b.WriteString(titleStyle.Render("Tags"))
	b.WriteString("\n")
	if m.target != "" {
		b.WriteString(theme.DimmedStyle.Render("on: " + m.targetSubject))
	}
	b.WriteString("\n\n")

	if len(m.tags) == 0 {
		emptyStyle := lipgloss.NewStyle().Foreground(theme.ColorGray).Italic(true)
		b.WriteString(emptyStyle.Render("No tags yet. Press 'n' to create one."))
	} else {
		for i, t := range m.tags {
			box := "[ ]"
			if slices.Contains(m.targetTags, t.ID) {
				box = "[x]"
			}
			name := t.Name
			if t.Color != "" {
				name = lipgloss.NewStyle().Foreground(lipgloss.Color(t.Color)).Render(name)
			}
			label := fmt.Sprintf("%s #%s", box, name)

			if i == m.selectedIdx {
				b.WriteString(theme.SelectedItemStyle.Render(label))
			} else {
				b.WriteString(theme.ListItemStyle.Render(label))
			}
			b.WriteString("\n")
		}
	}

	if m.statusMsg != "" {
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Foreground(theme.ColorYellow).Italic(true).Render(m.statusMsg))
	}

	b.WriteString("\n\n")
	b.WriteString(lipgloss.NewStyle().Foreground(theme.ColorGray).Render(
		"space toggle | f filter | n new | e edit | d delete | esc back",
	))

	return lipgloss.NewStyle().Padding(1, 2).Width(m.width).Height(m.height).Render(b.String())
}

func (m Model) viewForm(f *huh.Form) string {
	if f == nil {
		return ""
	}
	return lipgloss.NewStyle().Padding(1, 2).Render(f.View())
}

// SetSize updates dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m Model) formWidth() int {
	return min(max(m.width-4, 40), 100)
}

func (m Model) formHeight() int {
	return max(m.height-4, 10)
}

// LoadTags returns a command that reads every tag.
func (m Model) LoadTags() tea.Cmd {
	s := m.store
	return func() tea.Msg {
		tags, err := s.GetTags(context.Background())
		return TagsLoadedMsg{Tags: tags, Err: err}
	}
}

func (m Model) saveTag() tea.Cmd {
	s := m.store
	t := model.Tag{
		ID:    m.editingID,
		Name:  strings.TrimSpace(m.fb.name),
		Color: strings.TrimSpace(m.fb.color),
	}
	isNew := m.isNew
	return func() tea.Msg {
		if isNew {
			_, err := s.CreateTag(context.Background(), t)
			return tagSavedMsg{err: err}
		}
		return tagSavedMsg{err: s.UpdateTag(context.Background(), t)}
	}
}

func (m Model) deleteTag(id string) tea.Cmd {
	s := m.store
	return func() tea.Msg {
		err := s.DeleteTag(context.Background(), id)
		return TagDeletedMsg{ID: id, Err: err}
	}
}

func (m Model) saveMessageTags(messageID string, tagIDs []string) tea.Cmd {
	s := m.store
	return func() tea.Msg {
		err := s.SetMessageTags(context.Background(), messageID, tagIDs)
		return MessageTagsMsg{MessageID: messageID, TagIDs: tagIDs, Err: err}
	}
}
