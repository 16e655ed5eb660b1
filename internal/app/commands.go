package app

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/mailboard/internal/ai"
	"github.com/nhle/mailboard/internal/inbox"
	"github.com/nhle/mailboard/internal/model"
	"github.com/nhle/mailboard/internal/nav"
	"github.com/nhle/mailboard/internal/ui/command"
)

var dateCycle = []model.DateRange{
	model.DateRangeAll,
	model.DateRangeToday,
	model.DateRangeWeek,
	model.DateRangeMonth,
}

func nextDateRange(r model.DateRange) model.DateRange {
	for i, d := range dateCycle {
		if d == r {
			return dateCycle[(i+1)%len(dateCycle)]
		}
	}
	return model.DateRangeToday
}

// updateFilters applies edit to a copy of the current filters. The store
// starts a new fetch when the provider-side part changed; the matching
// first-page request is queued here.
func (m *Model) updateFilters(edit func(f *model.FilterState)) {
	prev := m.session.Snapshot()
	f := prev.Filters.Clone()
	edit(&f)

	next := m.session.Dispatch(inbox.SetFilters{Filters: f})
	if next.Generation != prev.Generation {
		m.newMail = 0
		m.session.Request(nav.Effect{Kind: nav.FetchFirstPage, Generation: next.Generation})
	}
	m.setStatus("")
}

func (m *Model) toggleTagFilter(id string) {
	m.updateFilters(func(f *model.FilterState) { f.TagIDs = f.TagIDs.Toggle(id) })
}

func (m *Model) dropTagFilter(id string) {
	if !m.session.Snapshot().Filters.TagIDs.Has(id) {
		return
	}
	m.toggleTagFilter(id)
}

func (m *Model) applySuggestion(s ai.FilterSuggestion) {
	tags := m.session.Snapshot().Filters.TagIDs
	m.updateFilters(func(f *model.FilterState) {
		*f = s.Filters()
		f.TagIDs = tags
	})
	label := s.Label
	if label == "" {
		label = "suggested filter"
	}
	m.setStatus("Applied " + label)
}

// execute runs a palette command.
func (m *Model) execute(c command.Command) tea.Cmd {
	switch c.Name {
	case "refresh":
		m.handleInput(nav.Refresh)
	case "more":
		m.handleInput(nav.LoadMore)
	case "check":
		if m.poller == nil {
			m.setError("New mail polling is disabled")
			return nil
		}
		m.poller.Refresh()
		m.checking = true
		m.setStatus("Checking for new mail…")
	case "unread":
		m.updateFilters(func(f *model.FilterState) { f.UnreadOnly = !f.UnreadOnly })
	case "attachments":
		m.updateFilters(func(f *model.FilterState) { f.HasAttachment = !f.HasAttachment })
	case "date":
		r := model.ParseDateRange(strings.ToLower(c.Arg()))
		m.updateFilters(func(f *model.FilterState) { f.DateRange = r })
	case "cat":
		return m.toggleCategories(c.Args)
	case "prio":
		return m.togglePriorities(c.Args)
	case "tag":
		id, ok := m.tagByName(c.Arg())
		if !ok {
			m.setError(fmt.Sprintf("Unknown tag %q", c.Arg()))
			return nil
		}
		m.toggleTagFilter(id)
	case "redundant":
		m.updateFilters(func(f *model.FilterState) { f.ExcludeRedundant = !f.ExcludeRedundant })
	case "search":
		q := c.Arg()
		m.updateFilters(func(f *model.FilterState) { f.Search = q })
	case "clear":
		m.updateFilters(func(f *model.FilterState) { *f = model.FilterState{} })
	case "tags":
		return m.openTags()
	case "classify":
		return m.openClassify()
	case "settings":
		return m.openSettings()
	case "summarize":
		return m.startQuick(ai.KindSummarize)
	case "tasks":
		return m.startQuick(ai.KindExtractTasks)
	case "categorize":
		return m.startQuick(ai.KindCategorize)
	case "filters":
		return m.startQuick(ai.KindSuggestFilters)
	case "quit":
		return m.quit()
	}
	return nil
}

// toggleCategories flips each named category; no names clears the set.
func (m *Model) toggleCategories(names []string) tea.Cmd {
	parsed := make([]model.Category, 0, len(names))
	for _, n := range names {
		c, err := model.ParseCategory(n)
		if err != nil {
			m.setError(err.Error())
			return nil
		}
		parsed = append(parsed, c)
	}
	m.updateFilters(func(f *model.FilterState) {
		if len(parsed) == 0 {
			f.Categories = nil
			return
		}
		for _, c := range parsed {
			f.Categories = f.Categories.Toggle(c)
		}
	})
	return nil
}

// togglePriorities flips each named priority; no names clears the set.
func (m *Model) togglePriorities(names []string) tea.Cmd {
	parsed := make([]model.Priority, 0, len(names))
	for _, n := range names {
		p, err := model.ParsePriority(n)
		if err != nil {
			m.setError(err.Error())
			return nil
		}
		parsed = append(parsed, p)
	}
	m.updateFilters(func(f *model.FilterState) {
		if len(parsed) == 0 {
			f.Priorities = nil
			return
		}
		for _, p := range parsed {
			f.Priorities = f.Priorities.Toggle(p)
		}
	})
	return nil
}

func (m *Model) tagByName(name string) (string, bool) {
	for _, t := range m.tags {
		if strings.EqualFold(t.Name, name) {
			return t.ID, true
		}
	}
	return "", false
}
