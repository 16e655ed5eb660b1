package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/mailboard/internal/theme"
)

const (
	sidebarWidth      = 26
	minListWidth      = 40
	assistantFraction = 0.38
)

// Layout manages the multi-panel terminal layout dimensions.
type Layout struct {
	Width           int
	Height          int
	HeaderHeight    int
	StatusBarHeight int
}

// Columns is the horizontal split of the content area. A zero width means
// the panel is hidden.
type Columns struct {
	Sidebar   int
	List      int
	Assistant int
}

// NewLayout creates a Layout with the given terminal dimensions.
// HeaderHeight and StatusBarHeight default to 1.
func NewLayout(width, height int) Layout {
	return Layout{
		Width:           width,
		Height:          height,
		HeaderHeight:    1,
		StatusBarHeight: 1,
	}
}

// ContentWidth returns the full available width.
func (l Layout) ContentWidth() int {
	return l.Width
}

// ContentHeight returns the height available for the main content area,
// accounting for the header and status bar.
func (l Layout) ContentHeight() int {
	return max(l.Height-l.HeaderHeight-l.StatusBarHeight, 0)
}

// Split divides the content width between the sidebar, the message list
// and the assistant panel. Side panels are dropped when the terminal is too
// narrow to keep a usable list.
func (l Layout) Split(showSidebar, showAssistant bool) Columns {
	cols := Columns{List: l.Width}
	if showAssistant {
		w := int(float64(l.Width) * assistantFraction)
		if l.Width-w >= minListWidth {
			cols.Assistant = w
			cols.List -= w
		}
	}
	if showSidebar && cols.List-sidebarWidth >= minListWidth {
		cols.Sidebar = sidebarWidth
		cols.List -= sidebarWidth
	}
	return cols
}

// RenderHeader renders the top header bar with a title and sync status.
func (l Layout) RenderHeader(title string, syncStatus string) string {
	titleRendered := theme.HeaderStyle.Render(title)

	statusRendered := theme.HeaderStyle.
		Align(lipgloss.Right).
		Render(syncStatus)

	gap := max(l.Width-lipgloss.Width(titleRendered)-lipgloss.Width(statusRendered), 0)

	filler := theme.HeaderStyle.Render(
		lipgloss.NewStyle().
			Width(gap).
			Background(theme.HeaderStyle.GetBackground()).
			Render(""),
	)

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		titleRendered,
		filler,
		statusRendered,
	)
}

// RenderStatusBar renders the bottom status bar with keyboard hints.
func (l Layout) RenderStatusBar(hints string) string {
	rendered := theme.StatusBarStyle.Render(hints)

	gap := max(l.Width-lipgloss.Width(rendered), 0)

	filler := theme.StatusBarStyle.Render(
		lipgloss.NewStyle().
			Width(gap).
			Background(theme.StatusBarStyle.GetBackground()).
			Render(""),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, rendered, filler)
}

// RenderColumns joins the visible panels left to right. Empty panels are
// skipped.
func (l Layout) RenderColumns(panels ...string) string {
	visible := make([]string, 0, len(panels))
	for _, p := range panels {
		if p != "" {
			visible = append(visible, p)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, visible...)
}

// RenderWithFrame composes a full terminal view by vertically joining
// the header, content area, and status bar.
func (l Layout) RenderWithFrame(
	header string,
	content string,
	statusBar string,
) string {
	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		content,
		statusBar,
	)
}
