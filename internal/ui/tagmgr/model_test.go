package tagmgr

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/mailboard/internal/keys"
	"github.com/nhle/mailboard/internal/model"
	"github.com/nhle/mailboard/internal/testutil"
)

func TestToggleTagOnTarget(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)
	work, err := s.CreateTag(ctx, model.Tag{Name: "work"})
	require.NoError(t, err)
	_, err = s.CreateTag(ctx, model.Tag{Name: "later"})
	require.NoError(t, err)

	m := New(s, keys.DefaultKeyMap(), 80, 24)
	loaded := m.Open("m1", "Quarterly report", nil)()
	m, _ = m.Update(loaded)
	require.Len(t, m.tags, 2)

	// Tags are listed by name, so "later" comes first.
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	require.NotNil(t, cmd)

	msg, ok := cmd().(MessageTagsMsg)
	require.True(t, ok)
	require.NoError(t, msg.Err)
	assert.Equal(t, "m1", msg.MessageID)
	assert.Equal(t, []string{work.ID}, msg.TagIDs)

	idx, err := s.GetTagIndex(ctx, []string{"m1"})
	require.NoError(t, err)
	assert.Equal(t, []string{work.ID}, idx["m1"])
	assert.Contains(t, m.View(), "[x] #work")

	// Toggling again removes it.
	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	msg = cmd().(MessageTagsMsg)
	assert.Empty(t, msg.TagIDs)
}

func TestToggleWithoutTargetIsNoop(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)
	_, err := s.CreateTag(ctx, model.Tag{Name: "work"})
	require.NoError(t, err)

	m := New(s, keys.DefaultKeyMap(), 80, 24)
	m, _ = m.Update(m.Open("", "", nil)())

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	assert.Nil(t, cmd)
}

func TestFilterAndClose(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)
	work, err := s.CreateTag(ctx, model.Tag{Name: "work"})
	require.NoError(t, err)

	m := New(s, keys.DefaultKeyMap(), 80, 24)
	m, _ = m.Update(m.Open("m1", "x", nil)())

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'f'}})
	require.NotNil(t, cmd)
	assert.Equal(t, FilterMsg{TagID: work.ID}, cmd())

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Equal(t, CloseMsg{}, cmd())
}

func TestDeletedTagLeavesTarget(t *testing.T) {
	s := testutil.NewTestStore(t)
	m := New(s, keys.DefaultKeyMap(), 80, 24)
	m.Open("m1", "x", []string{"a", "b"})

	m, _ = m.Update(TagDeletedMsg{ID: "a"})
	assert.Equal(t, []string{"b"}, m.targetTags)
	assert.Contains(t, m.statusMsg, "deleted")
}
