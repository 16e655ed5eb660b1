package model

// DateRange is the coarse date window a listing is restricted to.
type DateRange string

const (
	DateRangeAll   DateRange = "all"
	DateRangeToday DateRange = "today"
	DateRangeWeek  DateRange = "week"
	DateRangeMonth DateRange = "month"
)

// ParseDateRange maps user input to a DateRange; unknown input is DateRangeAll.
func ParseDateRange(s string) DateRange {
	switch DateRange(s) {
	case DateRangeToday, DateRangeWeek, DateRangeMonth:
		return DateRange(s)
	}
	return DateRangeAll
}

// Set is a small unordered set. A nil or empty Set means "no constraint"
// when used in FilterState.
type Set[T comparable] map[T]struct{}

// NewSet returns a set holding items.
func NewSet[T comparable](items ...T) Set[T] {
	s := make(Set[T], len(items))
	for _, it := range items {
		s[it] = struct{}{}
	}
	return s
}

// Has reports whether v is in the set.
func (s Set[T]) Has(v T) bool {
	_, ok := s[v]
	return ok
}

// Clone returns an independent copy of the set.
func (s Set[T]) Clone() Set[T] {
	out := make(Set[T], len(s))
	for k := range s {
		out[k] = struct{}{}
	}
	return out
}

// Toggle returns a copy of s with v added or removed.
func (s Set[T]) Toggle(v T) Set[T] {
	out := s.Clone()
	if out.Has(v) {
		delete(out, v)
	} else {
		out[v] = struct{}{}
	}
	return out
}

// Equal reports whether both sets hold the same members.
func (s Set[T]) Equal(o Set[T]) bool {
	if len(s) != len(o) {
		return false
	}
	for k := range s {
		if !o.Has(k) {
			return false
		}
	}
	return true
}

// FilterState is the session's filter record. Search, UnreadOnly,
// HasAttachment and DateRange are sent to the provider; the rest are
// evaluated locally against loaded messages.
type FilterState struct {
	Search           string
	UnreadOnly       bool
	HasAttachment    bool
	DateRange        DateRange
	Categories       Set[Category]
	Priorities       Set[Priority]
	TagIDs           Set[string]
	ExcludeRedundant bool
}

// Clone returns a deep copy so callers can modify sets without aliasing.
func (f FilterState) Clone() FilterState {
	f.Categories = f.Categories.Clone()
	f.Priorities = f.Priorities.Clone()
	f.TagIDs = f.TagIDs.Clone()
	return f
}

// NeedsClassification reports whether any filter depends on a message's
// classification record.
func (f FilterState) NeedsClassification() bool {
	return len(f.Categories) > 0 || len(f.Priorities) > 0 || f.ExcludeRedundant
}

// HasLocal reports whether any locally evaluated filter is active.
func (f FilterState) HasLocal() bool {
	return f.NeedsClassification() || len(f.TagIDs) > 0
}

// HasRemote reports whether any provider-side filter is active.
func (f FilterState) HasRemote() bool {
	return f.Search != "" || f.UnreadOnly || f.HasAttachment ||
		(f.DateRange != "" && f.DateRange != DateRangeAll)
}

// Active reports whether any filter at all is set.
func (f FilterState) Active() bool {
	return f.HasRemote() || f.HasLocal()
}
