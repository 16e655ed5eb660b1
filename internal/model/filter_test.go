package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCategory(t *testing.T) {
	c, err := ParseCategory(" Finance ")
	assert.NoError(t, err)
	assert.Equal(t, CategoryFinance, c)

	_, err = ParseCategory("spam")
	assert.Error(t, err)
}

func TestParsePriority(t *testing.T) {
	p, err := ParsePriority("HIGH")
	assert.NoError(t, err)
	assert.Equal(t, PriorityHigh, p)

	_, err = ParsePriority("urgent")
	assert.Error(t, err)
}

func TestSetToggleDoesNotAlias(t *testing.T) {
	orig := NewSet(CategoryWork)
	next := orig.Toggle(CategoryFinance)

	assert.True(t, next.Has(CategoryFinance))
	assert.False(t, orig.Has(CategoryFinance))

	back := next.Toggle(CategoryWork)
	assert.False(t, back.Has(CategoryWork))
	assert.True(t, next.Has(CategoryWork))
}

func TestFilterStateActiveFlags(t *testing.T) {
	var f FilterState
	assert.False(t, f.Active())

	f.DateRange = DateRangeAll
	assert.False(t, f.HasRemote())

	f.Priorities = NewSet(PriorityLow)
	assert.True(t, f.NeedsClassification())
	assert.False(t, f.HasRemote())

	f = FilterState{TagIDs: NewSet("t1")}
	assert.True(t, f.HasLocal())
	assert.False(t, f.NeedsClassification())
}
