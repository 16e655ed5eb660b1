// Package inbox holds the in-memory email store: the loaded message list,
// classifications, tags, filters and selection, mutated only through
// Reduce.
package inbox

import (
	"github.com/nhle/mailboard/internal/filter"
	"github.com/nhle/mailboard/internal/model"
)

// DefaultContextSize is how many of the most recent messages form the
// viewing context when nothing is selected or filtered.
const DefaultContextSize = 20

// State is an immutable snapshot of the store. Reduce never mutates the
// maps or slices of the State it is given.
type State struct {
	Messages        []model.Message
	Classifications map[string]model.Classification
	// MessageTags maps message id to the ids of the tags it carries.
	MessageTags map[string][]string
	Filters     model.FilterState

	Cursor      string
	HasMore     bool
	Loading     bool
	LoadingMore bool
	// Generation increases whenever a page-one fetch is started. Page
	// responses carrying an older generation are stale.
	Generation uint64

	ActiveID   string
	Selected   model.Set[string]
	DetailOpen bool
}

// NewState returns an empty state with initialized maps.
func NewState() State {
	return State{
		Classifications: map[string]model.Classification{},
		MessageTags:     map[string][]string{},
		Selected:        model.Set[string]{},
		Filters:         model.FilterState{DateRange: model.DateRangeAll},
	}
}

// Message returns the loaded message with the given id.
func (s State) Message(id string) (model.Message, bool) {
	for _, m := range s.Messages {
		if m.ID == id {
			return m, true
		}
	}
	return model.Message{}, false
}

// Has reports whether id is in the loaded list.
func (s State) Has(id string) bool {
	_, ok := s.Message(id)
	return ok
}

// Classification returns the classification for id, or nil.
func (s State) Classification(id string) *model.Classification {
	c, ok := s.Classifications[id]
	if !ok {
		return nil
	}
	return &c
}

// Visible returns the loaded messages that pass the local filters, in
// provider order.
func (s State) Visible() []model.Message {
	return filter.Visible(s.Messages, s.Classifications, s.MessageTags, s.Filters)
}

// ActiveIndex returns the position of ActiveID within visible, or -1 when
// no message is active or the active one is filtered out.
func (s State) ActiveIndex(visible []model.Message) int {
	if s.ActiveID == "" {
		return -1
	}
	for i, m := range visible {
		if m.ID == s.ActiveID {
			return i
		}
	}
	return -1
}

// ContextScope names what the viewing context was derived from.
type ContextScope string

const (
	ScopeSelection ContextScope = "selection"
	ScopeFilters   ContextScope = "filters"
	ScopeRecent    ContextScope = "recent"
)

// ViewingContext returns the messages a bulk AI action should operate on:
// the explicit selection if any, else the filtered visible set if any
// filter is active, else the n most recent loaded messages.
func (s State) ViewingContext(n int) ([]model.Message, ContextScope) {
	if len(s.Selected) > 0 {
		out := make([]model.Message, 0, len(s.Selected))
		for _, m := range s.Messages {
			if s.Selected.Has(m.ID) {
				out = append(out, m)
			}
		}
		return out, ScopeSelection
	}
	if s.Filters.Active() {
		return s.Visible(), ScopeFilters
	}
	if n <= 0 {
		n = DefaultContextSize
	}
	if len(s.Messages) < n {
		n = len(s.Messages)
	}
	return s.Messages[:n:n], ScopeRecent
}

// LoadedIDs returns the ids of all loaded messages in provider order.
func (s State) LoadedIDs() []string {
	ids := make([]string, len(s.Messages))
	for i, m := range s.Messages {
		ids[i] = m.ID
	}
	return ids
}
