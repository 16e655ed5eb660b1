package nav

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/mailboard/internal/inbox"
	"github.com/nhle/mailboard/internal/keys"
	"github.com/nhle/mailboard/internal/model"
)

type fakeAccessor struct {
	store   *inbox.Store
	effects []Effect
}

func (f *fakeAccessor) Snapshot() inbox.State { return f.store.State() }
func (f *fakeAccessor) Dispatch(a inbox.Action) inbox.State { return f.store.Dispatch(a) }
func (f *fakeAccessor) Request(e Effect) { f.effects = append(f.effects, e) }

func setup(ids ...string) (*Controller, *fakeAccessor) {
	msgs := make([]model.Message, len(ids))
	for i, id := range ids {
		msgs[i] = model.Message{ID: id}
	}
	st := inbox.NewStore(inbox.NewState())
	st.Dispatch(inbox.Replace{Messages: msgs})
	acc := &fakeAccessor{store: st}
	return New(acc), acc
}

func TestNextPrevScenario(t *testing.T) {
	c, acc := setup("m1", "m2", "m3")

	assert.False(t, c.Handle(Prev), "prev with nothing active is a no-op")
	assert.Empty(t, acc.Snapshot().ActiveID)

	c.Handle(Next)
	assert.Equal(t, "m1", acc.Snapshot().ActiveID)
	c.Handle(Next)
	c.Handle(Next)
	assert.Equal(t, "m3", acc.Snapshot().ActiveID)

	assert.False(t, c.Handle(Next), "next at the end is a no-op")
	assert.Equal(t, "m3", acc.Snapshot().ActiveID)

	c.Handle(Prev)
	assert.Equal(t, "m2", acc.Snapshot().ActiveID)
	c.Handle(Prev)
	assert.False(t, c.Handle(Prev), "prev at the start is a no-op")
	assert.Equal(t, "m1", acc.Snapshot().ActiveID)
}

func TestNextOnEmptyList(t *testing.T) {
	c, acc := setup()
	assert.False(t, c.Handle(Next))
	assert.Empty(t, acc.Snapshot().ActiveID)
}

func TestStaleActiveFallsBackToUnset(t *testing.T) {
	c, acc := setup("a", "b", "c")
	acc.Dispatch(inbox.MergeClassifications{Batch: []model.Classification{
		{MessageID: "a", Category: model.CategoryFinance},
		{MessageID: "c", Category: model.CategoryFinance},
	}})
	acc.Dispatch(inbox.SetActive{ID: "b"})
	acc.Dispatch(inbox.SetFilters{Filters: model.FilterState{
		Categories: model.NewSet(model.CategoryFinance),
	}})

	assert.False(t, c.Handle(Prev))
	assert.False(t, c.Handle(Open), "a filtered-out message cannot be opened")
	assert.False(t, c.Handle(ToggleActiveSelection))

	c.Handle(Next)
	assert.Equal(t, "a", acc.Snapshot().ActiveID, "next restarts at the first visible")
}

func TestOpenRequestsDetail(t *testing.T) {
	c, acc := setup("a")
	assert.False(t, c.Handle(Open))

	c.Handle(Next)
	require.True(t, c.Handle(Open))
	assert.True(t, acc.Snapshot().DetailOpen)
	assert.Equal(t, []Effect{{Kind: FetchDetail, MessageID: "a"}}, acc.effects)
}

func TestCloseStrictPriority(t *testing.T) {
	c, acc := setup("a", "b")
	c.Handle(Next)
	c.Handle(ToggleActiveSelection)
	c.Handle(Open)

	c.Handle(Close)
	s := acc.Snapshot()
	assert.False(t, s.DetailOpen)
	assert.Len(t, s.Selected, 1, "only the detail closes")
	assert.Equal(t, "a", s.ActiveID)

	c.Handle(Close)
	s = acc.Snapshot()
	assert.Empty(t, s.Selected)
	assert.Equal(t, "a", s.ActiveID)

	c.Handle(Close)
	assert.Empty(t, acc.Snapshot().ActiveID)

	assert.False(t, c.Handle(Close))
}

func TestToggleAndSelectAll(t *testing.T) {
	c, acc := setup("a", "b", "c")
	assert.False(t, c.Handle(ToggleActiveSelection), "no active message")

	c.Handle(Next)
	c.Handle(ToggleActiveSelection)
	assert.Equal(t, model.NewSet("a"), acc.Snapshot().Selected)
	c.Handle(ToggleActiveSelection)
	assert.Empty(t, acc.Snapshot().Selected)

	c.Handle(SelectAll)
	assert.Equal(t, model.NewSet("a", "b", "c"), acc.Snapshot().Selected)
}

func TestRefreshStartsNewGeneration(t *testing.T) {
	c, acc := setup("a")
	before := acc.Snapshot().Generation

	c.Handle(Refresh)

	require.Len(t, acc.effects, 1)
	assert.Equal(t, FetchFirstPage, acc.effects[0].Kind)
	assert.Equal(t, before+1, acc.effects[0].Generation)
	assert.True(t, acc.Snapshot().Loading)
}

func TestLoadMoreGuard(t *testing.T) {
	c, acc := setup("a")
	assert.False(t, c.Handle(LoadMore), "no cursor")

	acc.Dispatch(inbox.Append{Messages: []model.Message{{ID: "b"}}, Cursor: "p2"})
	require.True(t, c.Handle(LoadMore))
	assert.Equal(t, Effect{Kind: FetchNextPage, Cursor: "p2"}, acc.effects[0])

	assert.False(t, c.Handle(LoadMore), "second request blocked while one is outstanding")
	assert.Len(t, acc.effects, 1)
}

func TestPanelInputsOnlyRequest(t *testing.T) {
	c, acc := setup("a")
	c.Handle(ToggleSidebar)
	c.Handle(ToggleAssistant)
	c.Handle(Help)

	assert.Equal(t, []Effect{{Kind: ShowSidebar}, {Kind: ShowAssistant}, {Kind: ShowHelp}}, acc.effects)
}

func TestInputForKeyIgnoredWhileTyping(t *testing.T) {
	km := keys.DefaultKeyMap()
	j := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}}

	in, ok := InputForKey(j, km, false)
	assert.True(t, ok)
	assert.Equal(t, Next, in)

	_, ok = InputForKey(j, km, true)
	assert.False(t, ok)

	in, ok = InputForKey(tea.KeyMsg{Type: tea.KeyEsc}, km, false)
	assert.True(t, ok)
	assert.Equal(t, Close, in)
}
