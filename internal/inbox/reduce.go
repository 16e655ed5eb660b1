package inbox

import (
	"maps"
	"slices"

	"github.com/nhle/mailboard/internal/filter"
	"github.com/nhle/mailboard/internal/model"
)

// Reduce returns the state that results from applying a to s. It is pure:
// s is never modified and no clock or I/O is consulted.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case BeginFetch:
		return beginFetch(s)

	case Replace:
		if a.Generation != s.Generation {
			return s
		}
		s.Messages = dedupe(nil, a.Messages)
		s.Cursor = a.Cursor
		s.HasMore = a.Cursor != ""
		s.Loading = false
		s.LoadingMore = false
		s.ActiveID = ""
		s.Selected = model.Set[string]{}
		s.DetailOpen = false
		return s

	case Append:
		if a.Generation != s.Generation {
			return s
		}
		s.Messages = dedupe(s.Messages, a.Messages)
		s.Cursor = a.Cursor
		s.HasMore = a.Cursor != ""
		s.LoadingMore = false
		return s

	case FetchFailed:
		if a.Generation == s.Generation {
			s.Loading = false
		}
		return s

	case BeginLoadMore:
		if s.HasMore && !s.LoadingMore && !s.Loading {
			s.LoadingMore = true
		}
		return s

	case LoadMoreFailed:
		if a.Generation == s.Generation {
			s.LoadingMore = false
		}
		return s

	case Reset:
		s.Messages = nil
		s.Cursor = ""
		s.HasMore = false
		s.Loading = false
		s.LoadingMore = false
		s.ActiveID = ""
		s.Selected = model.Set[string]{}
		s.DetailOpen = false
		s.Classifications = map[string]model.Classification{}
		s.MessageTags = map[string][]string{}
		return s

	case MergeClassifications:
		return mergeClassifications(s, a.Batch, false)

	case RestoreClassifications:
		return mergeClassifications(s, a.Records, true)

	case SetClassification:
		c := a.Classification
		c.Manual = true
		s.Classifications = maps.Clone(s.Classifications)
		if s.Classifications == nil {
			s.Classifications = map[string]model.Classification{}
		}
		s.Classifications[c.MessageID] = c
		return s

	case ToggleSelect:
		if !s.Has(a.ID) {
			return s
		}
		s.Selected = s.Selected.Toggle(a.ID)
		return s

	case SelectAll:
		s.Selected = model.NewSet(s.LoadedIDs()...)
		return s

	case ClearSelection:
		s.Selected = model.Set[string]{}
		return s

	case SetActive:
		if a.ID != "" && !s.Has(a.ID) {
			return s
		}
		s.ActiveID = a.ID
		if a.ID == "" {
			s.DetailOpen = false
		}
		return s

	case MarkReadState:
		ids := model.NewSet(a.IDs...)
		msgs := slices.Clone(s.Messages)
		for i := range msgs {
			if ids.Has(msgs[i].ID) {
				msgs[i].Unread = a.Unread
			}
		}
		s.Messages = msgs
		return s

	case SetFilters:
		prev := s.Filters
		s.Filters = a.Filters.Clone()
		if filter.RemoteChanged(prev, s.Filters) {
			return beginFetch(s)
		}
		return s

	case OpenDetail:
		if s.ActiveID != "" {
			s.DetailOpen = true
		}
		return s

	case CloseDetail:
		s.DetailOpen = false
		return s

	case SetTags:
		s.MessageTags = maps.Clone(s.MessageTags)
		if s.MessageTags == nil {
			s.MessageTags = map[string][]string{}
		}
		if len(a.TagIDs) == 0 {
			delete(s.MessageTags, a.MessageID)
		} else {
			s.MessageTags[a.MessageID] = slices.Clone(a.TagIDs)
		}
		return s

	case SetTagIndex:
		s.MessageTags = maps.Clone(a.Index)
		if s.MessageTags == nil {
			s.MessageTags = map[string][]string{}
		}
		return s

	case RemoveTag:
		next := make(map[string][]string, len(s.MessageTags))
		for id, tags := range s.MessageTags {
			tags = slices.DeleteFunc(slices.Clone(tags), func(t string) bool { return t == a.TagID })
			if len(tags) > 0 {
				next[id] = tags
			}
		}
		s.MessageTags = next
		if s.Filters.TagIDs.Has(a.TagID) {
			s.Filters = s.Filters.Clone()
			delete(s.Filters.TagIDs, a.TagID)
		}
		return s
	}
	return s
}

func beginFetch(s State) State {
	s.Generation++
	s.Cursor = ""
	s.HasMore = false
	s.Loading = true
	s.LoadingMore = false
	return s
}

// dedupe appends the messages in add whose ids are not already present.
func dedupe(base, add []model.Message) []model.Message {
	seen := make(model.Set[string], len(base)+len(add))
	out := make([]model.Message, 0, len(base)+len(add))
	for _, m := range base {
		seen[m.ID] = struct{}{}
		out = append(out, m)
	}
	for _, m := range add {
		if seen.Has(m.ID) {
			continue
		}
		seen[m.ID] = struct{}{}
		out = append(out, m)
	}
	return out
}

func mergeClassifications(s State, batch []model.Classification, allowManual bool) State {
	if len(batch) == 0 {
		return s
	}
	next := maps.Clone(s.Classifications)
	if next == nil {
		next = map[string]model.Classification{}
	}
	for _, c := range batch {
		if existing, ok := next[c.MessageID]; ok && existing.Manual {
			if !allowManual || !c.Manual {
				continue
			}
		}
		if !allowManual {
			c.Manual = false
		}
		next[c.MessageID] = c
	}
	s.Classifications = next
	return s
}
