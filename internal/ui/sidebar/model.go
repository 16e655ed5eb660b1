// Package sidebar renders the filter state, category counts over loaded
// messages and background activity.
package sidebar

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/mailboard/internal/inbox"
	"github.com/nhle/mailboard/internal/model"
	mailsync "github.com/nhle/mailboard/internal/sync"
	"github.com/nhle/mailboard/internal/textutil"
	"github.com/nhle/mailboard/internal/theme"
)

// Activity is the background work shown at the bottom of the sidebar.
type Activity struct {
	// Unclassified counts loaded messages with no record yet.
	Unclassified int
	InFlight     int
	Poll         mailsync.Status
	NewMail      int
	// ClassifyDisabled is set when no classification service is configured.
	ClassifyDisabled bool
}

// Model is the sidebar view.
type Model struct {
	width  int
	height int
	now    func() time.Time
}

// New creates a sidebar of the given size.
func New(width, height int) Model {
	return Model{width: width, height: height, now: time.Now}
}

// SetSize updates the sidebar dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// View renders the sidebar for a store snapshot.
func (m Model) View(s inbox.State, tagNames map[string]string, act Activity) string {
	inner := max(m.width-4, 8)
	var lines []string
	line := func(format string, args ...any) {
		lines = append(lines, textutil.Truncate(fmt.Sprintf(format, args...), inner))
	}

	lines = append(lines, theme.SectionStyle.MarginTop(0).Render("Filters"))
	f := s.Filters
	if !f.Active() {
		lines = append(lines, theme.DimmedStyle.Render("none"))
	}
	if f.Search != "" {
		line("search: %s", f.Search)
	}
	if f.UnreadOnly {
		line("unread only")
	}
	if f.HasAttachment {
		line("has attachment")
	}
	if f.DateRange != "" && f.DateRange != model.DateRangeAll {
		line("date: %s", f.DateRange)
	}
	if len(f.Categories) > 0 {
		line("cat: %s", joinSorted(f.Categories))
	}
	if len(f.Priorities) > 0 {
		line("prio: %s", joinSorted(f.Priorities))
	}
	if len(f.TagIDs) > 0 {
		names := make([]string, 0, len(f.TagIDs))
		for id := range f.TagIDs {
			if n, ok := tagNames[id]; ok {
				names = append(names, "#"+n)
			}
		}
		sort.Strings(names)
		line("tags: %s", strings.Join(names, " "))
	}
	if f.ExcludeRedundant {
		line("hiding redundant")
	}

	lines = append(lines, theme.SectionStyle.Render("Categories"))
	counts := make(map[model.Category]int)
	for _, msg := range s.Messages {
		if c, ok := s.Classifications[msg.ID]; ok {
			counts[c.Category]++
		}
	}
	for _, c := range model.Categories {
		n := counts[c]
		if n == 0 && !f.Categories.Has(c) {
			continue
		}
		mark := " "
		if f.Categories.Has(c) {
			mark = "•"
		}
		label := textutil.PadRight(textutil.Truncate(string(c), inner-7), inner-7)
		lines = append(lines, fmt.Sprintf("%s %s %4d", mark, theme.CategoryStyle(c).Render(label), n))
	}
	if len(counts) == 0 {
		lines = append(lines, theme.DimmedStyle.Render("nothing classified"))
	}

	lines = append(lines, theme.SectionStyle.Render("Activity"))
	line("loaded: %d", len(s.Messages))
	if len(s.Selected) > 0 {
		line("selected: %d", len(s.Selected))
	}
	switch {
	case act.ClassifyDisabled:
		lines = append(lines, theme.DimmedStyle.Render("classify: off"))
	case act.InFlight > 0:
		line("classifying: %d", act.InFlight)
		if rest := act.Unclassified - act.InFlight; rest > 0 {
			line("queued: %d", rest)
		}
	case act.Unclassified > 0:
		line("queued: %d", act.Unclassified)
	}
	switch act.Poll.State {
	case mailsync.Running:
		line("checking mail…")
	case mailsync.Failed:
		lines = append(lines, theme.ErrorStyle.Render(textutil.Truncate("poll failed", inner)))
	default:
		if !act.Poll.LastPoll.IsZero() {
			line("checked %s ago", since(m.now().Sub(act.Poll.LastPoll)))
		}
	}
	if act.NewMail > 0 {
		lines = append(lines, lipgloss.NewStyle().Foreground(theme.ColorGreen).
			Render(fmt.Sprintf("%d new, press r", act.NewMail)))
	}

	return theme.BorderStyle.
		Width(max(m.width-2, 0)).
		Height(max(m.height-2, 0)).
		Padding(0, 1).
		Render(strings.Join(lines, "\n"))
}

func joinSorted[T ~string](set model.Set[T]) string {
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, string(v))
	}
	sort.Strings(out)
	return strings.Join(out, ",")
}

func since(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	default:
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
}
