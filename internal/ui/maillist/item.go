package maillist

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/mailboard/internal/model"
	"github.com/nhle/mailboard/internal/textutil"
	"github.com/nhle/mailboard/internal/theme"
)

const (
	fromWidth     = 20
	categoryWidth = 12
	dateWidth     = 8
)

// MessageItem wraps a message and its derived display state so it can be
// used in a bubbles/list.
type MessageItem struct {
	Message        model.Message
	Classification *model.Classification
	Selected       bool
	// Pending is set while the message sits in a classification batch.
	Pending bool
	Tags    []string
}

// FilterValue returns the string used for fuzzy filtering.
func (i MessageItem) FilterValue() string { return i.Message.Subject }

// Title returns the subject for the list.
func (i MessageItem) Title() string { return i.Message.Subject }

// Description returns the sender and snippet.
func (i MessageItem) Description() string {
	return i.Message.From + " | " + i.Message.Snippet
}

// ItemDelegate implements list.ItemDelegate for message rows.
type ItemDelegate struct {
	now func() time.Time
}

// Height returns the number of lines each item takes.
func (d ItemDelegate) Height() int { return 1 }

// Spacing returns the number of blank lines between items.
func (d ItemDelegate) Spacing() int { return 0 }

// Update handles per-item messages (unused).
func (d ItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws a single message row.
func (d ItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(MessageItem)
	if !ok {
		return
	}
	msg := it.Message

	mark := " "
	if it.Selected {
		mark = lipgloss.NewStyle().Foreground(theme.ColorBlue).Render("✓")
	}

	dot := " "
	if msg.Unread {
		dot = lipgloss.NewStyle().Foreground(theme.ColorBlue).Render("●")
	}

	clip := " "
	if msg.HasAttachment {
		clip = "+"
	}

	var category, priority string
	switch c := it.Classification; {
	case c != nil:
		label := string(c.Category)
		if c.Redundant {
			label = "dup " + label
		}
		category = theme.CategoryStyle(c.Category).
			Render(textutil.PadRight(textutil.Truncate(label, categoryWidth), categoryWidth))
		priority = theme.PriorityStyle(c.Priority).Render(theme.PriorityGlyph(c.Priority))
	case it.Pending:
		category = theme.DimmedStyle.Render(textutil.PadRight("…", categoryWidth))
		priority = " "
	default:
		category = strings.Repeat(" ", categoryWidth)
		priority = " "
	}

	from := textutil.PadRight(textutil.Truncate(senderName(msg.From), fromWidth), fromWidth)
	date := theme.DimmedStyle.Render(textutil.PadRight(shortDate(msg.Date, d.clock()), dateWidth))

	// Everything except the subject has a fixed width.
	fixed := 2 + 2 + 2 + fromWidth + 1 + categoryWidth + 1 + 2 + dateWidth + 3
	subjectWidth := max(m.Width()-fixed, 8)
	subject := msg.Subject
	if subject == "" {
		subject = "(no subject)"
	}
	if len(it.Tags) > 0 {
		subject += " #" + strings.Join(it.Tags, " #")
	}
	subject = textutil.PadRight(textutil.Truncate(subject, subjectWidth), subjectWidth)

	if msg.Unread {
		from = theme.UnreadStyle.Render(from)
		subject = theme.UnreadStyle.Render(subject)
	}

	line := fmt.Sprintf("%s %s %s %s %s %s %s %s",
		mark, dot, clip, from, category, priority, subject, date)

	if index == m.Index() {
		line = theme.SelectedItemStyle.Render(line)
	} else {
		line = theme.ListItemStyle.Render(line)
	}

	fmt.Fprint(w, line)
}

func (d ItemDelegate) clock() time.Time {
	if d.now == nil {
		return time.Now()
	}
	return d.now()
}

// senderName returns the display name of an RFC 5322 address, or the bare
// address when there is no name.
func senderName(from string) string {
	if i := strings.Index(from, "<"); i > 0 {
		return strings.Trim(strings.TrimSpace(from[:i]), `"`)
	}
	return strings.Trim(from, "<>")
}

// shortDate renders today's messages as a clock time, this year's as a
// month and day, and anything older with the year.
func shortDate(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	t = t.In(now.Location())
	switch {
	case t.Year() == now.Year() && t.YearDay() == now.YearDay():
		return t.Format("15:04")
	case t.Year() == now.Year():
		return t.Format("Jan 02")
	default:
		return t.Format("01/02/06")
	}
}
