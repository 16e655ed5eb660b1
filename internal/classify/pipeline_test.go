package classify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/mailboard/internal/inbox"
	"github.com/nhle/mailboard/internal/model"
)

type fakeService struct {
	mu      sync.Mutex
	calls   [][]model.MessageSummary
	known   [][]string
	err     error
	respond func(batch []model.MessageSummary) []model.Classification
}

func (f *fakeService) ClassifyBatch(
	_ context.Context,
	batch []model.MessageSummary,
	known []string,
) ([]model.Classification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, batch)
	f.known = append(f.known, known)
	if f.err != nil {
		return nil, f.err
	}
	if f.respond != nil {
		return f.respond(batch), nil
	}
	out := make([]model.Classification, len(batch))
	for i, m := range batch {
		out[i] = model.Classification{
			MessageID: m.ID,
			Category:  model.CategoryWork,
			Priority:  model.PriorityMedium,
		}
	}
	return out, nil
}

type fakePersister struct {
	saved []model.Classification
}

func (f *fakePersister) SaveClassifications(_ context.Context, cs []model.Classification) error {
	f.saved = append(f.saved, cs...)
	return nil
}

func loadStore(ids ...string) *inbox.Store {
	msgs := make([]model.Message, len(ids))
	for i, id := range ids {
		msgs[i] = model.Message{ID: id, From: "a@example.com", Subject: "s" + id}
	}
	st := inbox.NewStore(inbox.NewState())
	st.Dispatch(inbox.Replace{Messages: msgs})
	return st
}

func batchIDs(b []model.MessageSummary) []string {
	out := make([]string, len(b))
	for i, m := range b {
		out[i] = m.ID
	}
	return out
}

// fire runs the debounce tick for the latest window and returns the result.
func fire(t *testing.T, p *Pipeline, st *inbox.Store) ResultMsg {
	t.Helper()
	cmd := p.HandleTick(TickMsg{Gen: p.tickGen}, st.State())
	require.NotNil(t, cmd)
	msg, ok := cmd().(ResultMsg)
	require.True(t, ok)
	return msg
}

func TestObserveNothingToDo(t *testing.T) {
	st := loadStore("a")
	st.Dispatch(inbox.MergeClassifications{Batch: []model.Classification{{MessageID: "a"}}})

	p := New(&fakeService{})
	assert.Nil(t, p.Observe(st.State()))
	assert.False(t, p.Pending())
}

func TestInFlightExcludedFromUnclassified(t *testing.T) {
	st := loadStore("1", "2")
	svc := &fakeService{}
	p := New(svc)

	require.NotNil(t, p.Observe(st.State()))
	cmd := p.HandleTick(TickMsg{Gen: p.tickGen}, st.State())
	require.NotNil(t, cmd)
	assert.True(t, p.IsInFlight("1"))
	assert.True(t, p.IsInFlight("2"))

	// Page two arrives while the first batch is outstanding.
	st.Dispatch(inbox.Append{Messages: []model.Message{{ID: "3"}}})
	assert.Equal(t, []string{"3"}, p.Unclassified(st.State()))
}

func TestSupersededTickIgnored(t *testing.T) {
	st := loadStore("a", "b")
	svc := &fakeService{}
	p := New(svc)

	p.Observe(st.State())
	first := p.tickGen
	p.Observe(st.State())

	assert.Nil(t, p.HandleTick(TickMsg{Gen: first}, st.State()))
	assert.Zero(t, p.InFlight())

	msg := fire(t, p, st)
	assert.Len(t, svc.calls, 1, "a burst of changes yields one request")
	assert.ElementsMatch(t, []string{"a", "b"}, msg.IDs)
}

func TestBatchCeilingAndOrder(t *testing.T) {
	var ids []string
	for i := 0; i < 120; i++ {
		ids = append(ids, fmt.Sprintf("m%03d", i))
	}
	st := loadStore(ids...)
	svc := &fakeService{}
	p := New(svc, WithBatchSize(50))

	p.Observe(st.State())
	msg := fire(t, p, st)

	require.Len(t, svc.calls, 1)
	assert.Equal(t, ids[:50], batchIDs(svc.calls[0]))
	assert.Len(t, svc.known[0], 120, "service sees every loaded id")
	assert.Equal(t, 50, p.InFlight())

	next := p.HandleResult(msg, st)
	assert.NotNil(t, next, "a full batch schedules the next cycle")
	assert.Zero(t, p.InFlight())
	assert.Len(t, st.State().Classifications, 50)

	fire(t, p, st)
	assert.Equal(t, ids[50:100], batchIDs(svc.calls[1]))
}

func TestOldestPendingFirst(t *testing.T) {
	st := loadStore("old1", "old2")
	svc := &fakeService{}
	p := New(svc, WithBatchSize(2))
	p.Observe(st.State())

	// A refresh puts a newer message ahead of the older ones.
	st.Dispatch(inbox.BeginFetch{})
	st.Dispatch(inbox.Replace{
		Messages:   []model.Message{{ID: "new"}, {ID: "old1"}, {ID: "old2"}},
		Generation: st.State().Generation,
	})
	p.Observe(st.State())

	fire(t, p, st)
	assert.Equal(t, []string{"old1", "old2"}, batchIDs(svc.calls[0]))
}

func TestFailureRollsBackWithoutRetry(t *testing.T) {
	st := loadStore("a", "b")
	svc := &fakeService{err: errors.New("503")}
	p := New(svc)

	p.Observe(st.State())
	msg := fire(t, p, st)
	require.Error(t, msg.Err)

	assert.Nil(t, p.HandleResult(msg, st), "no immediate retry")
	assert.Zero(t, p.InFlight())
	assert.Empty(t, st.State().Classifications)
	assert.ElementsMatch(t, []string{"a", "b"}, p.Unclassified(st.State()))
}

func TestFailedBatchRetriesOnNextListEvent(t *testing.T) {
	st := loadStore("a", "b")
	svc := &fakeService{err: errors.New("503")}
	p := New(svc)

	p.Observe(st.State())
	msg := fire(t, p, st)
	assert.Nil(t, p.HandleResult(msg, st))
	assert.True(t, p.Retrying())
	assert.False(t, p.Pending())

	// Same ids come back, e.g. after a refresh of an unchanged inbox.
	svc.err = nil
	require.NotNil(t, p.Observe(st.State()))
	assert.False(t, p.Retrying())
	assert.True(t, p.Pending())

	msg = fire(t, p, st)
	require.NoError(t, msg.Err)
	assert.ElementsMatch(t, []string{"a", "b"}, msg.IDs)
	p.HandleResult(msg, st)
	assert.Len(t, st.State().Classifications, 2)
}

func TestSuccessMergesAndPersists(t *testing.T) {
	st := loadStore("a", "b")
	st.Dispatch(inbox.SetClassification{Classification: model.Classification{
		MessageID: "b", Category: model.CategoryFinance, Priority: model.PriorityHigh,
	}})

	svc := &fakeService{respond: func(batch []model.MessageSummary) []model.Classification {
		return []model.Classification{
			{MessageID: "a", Category: model.CategoryTravel, Priority: model.PriorityLow},
			{MessageID: "b", Category: model.CategoryOther},
			{MessageID: "zzz", Category: model.CategoryOther},
		}
	}}
	saver := &fakePersister{}
	p := New(svc, WithPersister(saver))

	p.Observe(st.State())
	msg := fire(t, p, st)
	assert.Equal(t, []string{"a"}, msg.IDs, "manual b is already classified")
	require.Len(t, msg.Results, 1)

	assert.Nil(t, p.HandleResult(msg, st))
	got := st.State().Classifications
	assert.Equal(t, model.CategoryTravel, got["a"].Category)
	assert.Equal(t, model.CategoryFinance, got["b"].Category)
	assert.Len(t, saver.saved, 1)
}

func TestMissingResultBecomesEligibleAgain(t *testing.T) {
	st := loadStore("a", "b")
	svc := &fakeService{respond: func(batch []model.MessageSummary) []model.Classification {
		return []model.Classification{{MessageID: "a", Category: model.CategoryWork}}
	}}
	p := New(svc)

	p.Observe(st.State())
	p.HandleResult(fire(t, p, st), st)

	assert.Equal(t, []string{"b"}, p.Unclassified(st.State()))
}
