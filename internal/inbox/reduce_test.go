package inbox

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/mailboard/internal/model"
)

func msgs(ids ...string) []model.Message {
	out := make([]model.Message, len(ids))
	for i, id := range ids {
		out[i] = model.Message{ID: id, Subject: "subject " + id, Unread: true}
	}
	return out
}

func ids(ms []model.Message) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.ID
	}
	return out
}

func apply(s State, actions ...Action) State {
	for _, a := range actions {
		s = Reduce(s, a)
	}
	return s
}

func TestReplaceThenAppend(t *testing.T) {
	s := apply(NewState(),
		Replace{Messages: msgs("m1", "m2"), Cursor: "x"},
	)
	assert.True(t, s.HasMore)
	assert.Equal(t, "x", s.Cursor)

	s = Reduce(s, Append{Messages: msgs("m3"), Cursor: ""})

	assert.Equal(t, []string{"m1", "m2", "m3"}, ids(s.Messages))
	assert.False(t, s.HasMore)
	assert.Empty(t, s.Cursor)
}

func TestAppendSkipsDuplicateIDs(t *testing.T) {
	s := apply(NewState(),
		Replace{Messages: msgs("a", "b"), Cursor: "c1"},
		Append{Messages: msgs("b", "c"), Cursor: "c2"},
	)
	assert.Equal(t, []string{"a", "b", "c"}, ids(s.Messages))
}

func TestReplaceClearsSelection(t *testing.T) {
	s := apply(NewState(),
		Replace{Messages: msgs("a", "b")},
		SetActive{ID: "a"},
		ToggleSelect{ID: "b"},
		OpenDetail{},
		Replace{Messages: msgs("c")},
	)
	assert.Empty(t, s.ActiveID)
	assert.Empty(t, s.Selected)
	assert.False(t, s.DetailOpen)
}

func TestStaleGenerationDiscarded(t *testing.T) {
	s := Reduce(NewState(), BeginFetch{})
	oldGen := s.Generation

	s = Reduce(s, SetFilters{Filters: model.FilterState{UnreadOnly: true}})
	require.Greater(t, s.Generation, oldGen)

	stale := Reduce(s, Replace{Messages: msgs("old"), Generation: oldGen})
	assert.Empty(t, stale.Messages, "late response for an older filter must be dropped")
	assert.True(t, stale.Loading)

	fresh := Reduce(s, Replace{Messages: msgs("new"), Generation: s.Generation})
	assert.Equal(t, []string{"new"}, ids(fresh.Messages))
	assert.False(t, fresh.Loading)

	assert.Equal(t, fresh, Reduce(fresh, Append{Messages: msgs("x"), Generation: oldGen}))
}

func TestSetFiltersOnlyRefetchesOnRemoteChange(t *testing.T) {
	s := apply(NewState(), Replace{Messages: msgs("a"), Cursor: "next"})
	gen := s.Generation

	s = Reduce(s, SetFilters{Filters: model.FilterState{
		Categories: model.NewSet(model.CategoryFinance),
	}})
	assert.Equal(t, gen, s.Generation)
	assert.Equal(t, "next", s.Cursor, "cursor survives a local-only change")
	assert.True(t, s.HasMore)

	s = Reduce(s, SetFilters{Filters: model.FilterState{Search: "invoice"}})
	assert.Equal(t, gen+1, s.Generation)
	assert.Empty(t, s.Cursor)
	assert.False(t, s.HasMore)
	assert.True(t, s.Loading)
}

func TestResetKeepsNoMessageState(t *testing.T) {
	s := apply(NewState(),
		Replace{Messages: msgs("a", "b"), Cursor: "next"},
		MergeClassifications{Batch: []model.Classification{{MessageID: "a", Category: model.CategoryWork}}},
		SetTags{MessageID: "b", TagIDs: []string{"t1"}},
		SetActive{ID: "a"},
		SetFilters{Filters: model.FilterState{UnreadOnly: true}},
		Reset{},
	)

	assert.Empty(t, s.Messages)
	assert.Empty(t, s.Classifications)
	assert.Empty(t, s.MessageTags)
	assert.Empty(t, s.ActiveID)
	assert.False(t, s.Loading)
	assert.True(t, s.Filters.UnreadOnly, "filters are user intent and survive")
}

func TestMergeClassificationsIdempotent(t *testing.T) {
	batch := []model.Classification{
		{MessageID: "a", Category: model.CategoryWork, Priority: model.PriorityHigh},
		{MessageID: "b", Category: model.CategorySocial, Priority: model.PriorityLow},
	}
	once := Reduce(NewState(), MergeClassifications{Batch: batch})
	twice := Reduce(once, MergeClassifications{Batch: batch})

	if diff := cmp.Diff(once.Classifications, twice.Classifications); diff != "" {
		t.Errorf("merge is not idempotent (-once +twice):\n%s", diff)
	}
}

func TestManualClassificationIsSticky(t *testing.T) {
	s := apply(NewState(),
		MergeClassifications{Batch: []model.Classification{
			{MessageID: "a", Category: model.CategoryPromotion, Priority: model.PriorityLow},
		}},
		SetClassification{Classification: model.Classification{
			MessageID: "a", Category: model.CategoryFinance, Priority: model.PriorityHigh,
		}},
	)
	require.True(t, s.Classifications["a"].Manual)

	s = Reduce(s, MergeClassifications{Batch: []model.Classification{
		{MessageID: "a", Category: model.CategoryOther, Priority: model.PriorityMedium, Redundant: true},
	}})
	got := s.Classifications["a"]
	assert.Equal(t, model.CategoryFinance, got.Category)
	assert.Equal(t, model.PriorityHigh, got.Priority)
	assert.False(t, got.Redundant)
	assert.True(t, got.Manual)

	s = Reduce(s, RestoreClassifications{Records: []model.Classification{
		{MessageID: "a", Category: model.CategoryOther},
	}})
	assert.Equal(t, model.CategoryFinance, s.Classifications["a"].Category)
}

func TestMergeNeverCreatesManual(t *testing.T) {
	s := Reduce(NewState(), MergeClassifications{Batch: []model.Classification{
		{MessageID: "a", Category: model.CategoryWork, Manual: true},
	}})
	assert.False(t, s.Classifications["a"].Manual)
}

func TestRestoreKeepsPersistedManual(t *testing.T) {
	s := apply(NewState(),
		MergeClassifications{Batch: []model.Classification{{MessageID: "a", Category: model.CategoryWork}}},
		RestoreClassifications{Records: []model.Classification{
			{MessageID: "a", Category: model.CategoryTravel, Manual: true},
		}},
	)
	assert.Equal(t, model.CategoryTravel, s.Classifications["a"].Category)
	assert.True(t, s.Classifications["a"].Manual)
}

func TestSelectAllCoversLoadedNotJustVisible(t *testing.T) {
	s := apply(NewState(),
		Replace{Messages: msgs("a", "b", "c")},
		MergeClassifications{Batch: []model.Classification{{MessageID: "a", Category: model.CategoryFinance}}},
		SetFilters{Filters: model.FilterState{Categories: model.NewSet(model.CategoryFinance)}},
	)
	require.Equal(t, []string{"a"}, ids(s.Visible()))

	s = Reduce(s, SelectAll{})
	assert.Equal(t, model.NewSet("a", "b", "c"), s.Selected)
}

func TestToggleSelectIgnoresUnknownIDs(t *testing.T) {
	s := apply(NewState(),
		Replace{Messages: msgs("a")},
		ToggleSelect{ID: "zzz"},
		ToggleSelect{ID: "a"},
	)
	assert.Equal(t, model.NewSet("a"), s.Selected)

	s = Reduce(s, ToggleSelect{ID: "a"})
	assert.Empty(t, s.Selected)
}

func TestMarkReadStateDoesNotAlias(t *testing.T) {
	before := apply(NewState(), Replace{Messages: msgs("a", "b")})
	after := Reduce(before, MarkReadState{IDs: []string{"b"}, Unread: false})

	assert.True(t, before.Messages[1].Unread)
	assert.False(t, after.Messages[1].Unread)
	assert.True(t, after.Messages[0].Unread)
}

func TestLoadMoreGuard(t *testing.T) {
	s := Reduce(NewState(), BeginLoadMore{})
	assert.False(t, s.LoadingMore, "nothing more to load")

	s = apply(s, Replace{Messages: msgs("a"), Cursor: "c"}, BeginLoadMore{})
	assert.True(t, s.LoadingMore)

	s = Reduce(s, LoadMoreFailed{Generation: s.Generation})
	assert.False(t, s.LoadingMore)
	assert.True(t, s.HasMore)
}

func TestRemoveTag(t *testing.T) {
	s := apply(NewState(),
		Replace{Messages: msgs("a", "b")},
		SetTags{MessageID: "a", TagIDs: []string{"t1", "t2"}},
		SetTags{MessageID: "b", TagIDs: []string{"t1"}},
		SetFilters{Filters: model.FilterState{TagIDs: model.NewSet("t1", "t2")}},
		RemoveTag{TagID: "t1"},
	)
	assert.Equal(t, map[string][]string{"a": {"t2"}}, s.MessageTags)
	assert.Equal(t, model.NewSet("t2"), s.Filters.TagIDs)
}

func TestViewingContextPriority(t *testing.T) {
	var all []string
	for i := 0; i < 30; i++ {
		all = append(all, string(rune('A'+i)))
	}
	s := apply(NewState(), Replace{Messages: msgs(all...)})

	ctx, scope := s.ViewingContext(DefaultContextSize)
	assert.Equal(t, ScopeRecent, scope)
	assert.Len(t, ctx, 20)
	assert.Equal(t, "A", ctx[0].ID)

	s = Reduce(s, SetFilters{Filters: model.FilterState{ExcludeRedundant: true}})
	ctx, scope = s.ViewingContext(DefaultContextSize)
	assert.Equal(t, ScopeFilters, scope)
	assert.Empty(t, ctx, "nothing is classified yet")

	s = apply(s, ToggleSelect{ID: "C"}, ToggleSelect{ID: "B"})
	ctx, scope = s.ViewingContext(DefaultContextSize)
	assert.Equal(t, ScopeSelection, scope)
	assert.Equal(t, []string{"B", "C"}, ids(ctx))
}

func TestStoreNotifiesListeners(t *testing.T) {
	st := NewStore(NewState())
	var seen []Action
	st.Subscribe(func(prev, next State, a Action) {
		seen = append(seen, a)
	})

	st.Dispatch(Replace{Messages: msgs("a")})
	st.Dispatch(SetActive{ID: "a"})

	assert.Len(t, seen, 2)
	assert.Equal(t, "a", st.State().ActiveID)
}
