// Package classform edits the classification of one message by hand.
package classform

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/mailboard/internal/model"
	"github.com/nhle/mailboard/internal/textutil"
	"github.com/nhle/mailboard/internal/theme"
)

// SubmitMsg carries the edited classification. Manual is always set.
type SubmitMsg struct {
	Classification model.Classification
}

// CancelMsg is dispatched when the user cancels the form.
type CancelMsg struct{}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	category    model.Category
	priority    model.Priority
	redundant   bool
	redundantOf string
	note        string
}

// Model is the Bubble Tea model for the classification form.
type Model struct {
	form      *huh.Form
	fb        *formBindings
	messageID string
	subject   string
	now       func() time.Time
	width     int
	height    int
}

// New creates a new classification form model.
func New(width, height int) Model {
	return Model{
		fb:     &formBindings{},
		now:    time.Now,
		width:  width,
		height: height,
	}
}

// Start initializes the form for msg, prefilled from current when it is
// not nil.
func (m *Model) Start(msg model.Message, current *model.Classification) tea.Cmd {
	m.messageID = msg.ID
	m.subject = msg.Subject
	*m.fb = formBindings{category: model.CategoryOther, priority: model.PriorityMedium}
	if current != nil {
		m.fb.category = current.Category
		m.fb.priority = current.Priority
		m.fb.redundant = current.Redundant
		m.fb.redundantOf = current.RedundantOf
		m.fb.note = current.Rationale
	}
	m.form = m.buildForm()
	return m.form.Init()
}

// Update handles messages for the form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		c := m.result()
		return m, func() tea.Msg { return SubmitMsg{Classification: c} }
	case huh.StateAborted:
		return m, func() tea.Msg { return CancelMsg{} }
	}
	return m, cmd
}

func (m Model) result() model.Classification {
	c := model.Classification{
		MessageID:  m.messageID,
		Category:   m.fb.category,
		Priority:   m.fb.priority,
		Redundant:  m.fb.redundant,
		Confidence: 1,
		Rationale:  strings.TrimSpace(m.fb.note),
		Manual:     true,
		UpdatedAt:  m.now().UTC(),
	}
	if c.Redundant {
		c.RedundantOf = m.fb.redundantOf
	}
	return c
}

// View renders the form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite)

	content := titleStyle.Render("Classify") + "\n" +
		theme.DimmedStyle.Render(textutil.Truncate(m.subject, max(m.width-6, 10))) + "\n\n" +
		m.form.View()

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(content)
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) buildForm() *huh.Form {
	cats := make([]huh.Option[model.Category], len(model.Categories))
	for i, c := range model.Categories {
		cats[i] = huh.NewOption(string(c), c)
	}
	prios := make([]huh.Option[model.Priority], len(model.Priorities))
	for i, p := range model.Priorities {
		prios[i] = huh.NewOption(string(p), p)
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[model.Category]().
				Title("Category").
				Options(cats...).
				Value(&m.fb.category),
			huh.NewSelect[model.Priority]().
				Title("Priority").
				Options(prios...).
				Value(&m.fb.priority),
			huh.NewConfirm().
				Title("Redundant?").
				Description("Hide with the redundant filter").
				Affirmative("Yes").
				Negative("No").
				Value(&m.fb.redundant),
			huh.NewInput().
				Title("Note").
				Placeholder("Optional").
				Value(&m.fb.note),
		),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func (m Model) formWidth() int {
	return min(max(m.width-4, 40), 100)
}

func (m Model) formHeight() int {
	return max(m.height-6, 12)
}
