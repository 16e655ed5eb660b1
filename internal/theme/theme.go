package theme

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/mailboard/internal/model"
)

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	ColorBlue    = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	ColorGreen   = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	ColorYellow  = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}
	ColorRed     = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	ColorOrange  = lipgloss.AdaptiveColor{Dark: "#FFA94D", Light: "#C05621"}
	ColorMagenta = lipgloss.AdaptiveColor{Dark: "#CC5DE8", Light: "#805AD5"}
	ColorCyan    = lipgloss.AdaptiveColor{Dark: "#66D9E8", Light: "#0987A0"}
	ColorGray    = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	ColorWhite   = lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}
	ColorSubtle  = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#CBD5E0"}
	ColorBorder  = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#E2E8F0"}
)

// HeaderStyle is used for top-level section headers and the application title.
var HeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	Background(ColorBlue).
	Padding(0, 1)

// StatusBarStyle is used for the bottom status bar.
var StatusBarStyle = lipgloss.NewStyle().
	Foreground(ColorWhite).
	Background(ColorSubtle).
	Padding(0, 1)

// DetailPanelStyle wraps the detail view content area.
var DetailPanelStyle = lipgloss.NewStyle().
	Padding(0, 1).
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorBorder)

// FocusedPanelStyle marks the panel that currently receives keystrokes.
var FocusedPanelStyle = DetailPanelStyle.
	BorderForeground(ColorBlue)

// ListItemStyle is the base style for rows in the message list.
var ListItemStyle = lipgloss.NewStyle().
	PaddingLeft(2)

// SelectedItemStyle highlights the active row.
var SelectedItemStyle = lipgloss.NewStyle().
	PaddingLeft(1).
	Bold(true).
	Foreground(ColorBlue).
	Border(lipgloss.NormalBorder(), false, false, false, true).
	BorderForeground(ColorBlue)

// UnreadStyle is applied to the sender and subject of unread messages.
var UnreadStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite)

// DimmedStyle is used for secondary text such as dates and snippets.
var DimmedStyle = lipgloss.NewStyle().
	Foreground(ColorGray)

// ErrorStyle renders inline error text.
var ErrorStyle = lipgloss.NewStyle().
	Foreground(ColorRed)

// SectionStyle titles the blocks of the sidebar and the assistant panel.
var SectionStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorBlue).
	MarginTop(1)

// HelpStyle is used for keyboard shortcut hints and help text.
var HelpStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Italic(true)

// BorderStyle provides a standard rounded border for panels.
var BorderStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorBorder)

// CategoryStyle returns a color-coded badge style for a category.
func CategoryStyle(c model.Category) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)

	switch c {
	case model.CategoryWork:
		return base.Foreground(ColorBlue)
	case model.CategoryPersonal:
		return base.Foreground(ColorGreen)
	case model.CategoryFinance:
		return base.Foreground(ColorYellow)
	case model.CategoryShopping, model.CategoryPromotion:
		return base.Foreground(ColorOrange)
	case model.CategorySocial:
		return base.Foreground(ColorMagenta)
	case model.CategoryTravel, model.CategoryNotification:
		return base.Foreground(ColorCyan)
	default:
		return base.Foreground(ColorGray)
	}
}

// PriorityStyle returns a color-coded style for a priority.
func PriorityStyle(p model.Priority) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)

	switch p {
	case model.PriorityHigh:
		return base.Foreground(ColorRed)
	case model.PriorityMedium:
		return base.Foreground(ColorYellow)
	case model.PriorityLow:
		return base.Foreground(ColorBlue)
	default:
		return base.Foreground(ColorGray)
	}
}

// PriorityGlyph is the one-cell marker shown in list rows.
func PriorityGlyph(p model.Priority) string {
	switch p {
	case model.PriorityHigh:
		return "!"
	case model.PriorityMedium:
		return "·"
	case model.PriorityLow:
		return "↓"
	}
	return " "
}
