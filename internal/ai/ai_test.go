package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/mailboard/internal/model"
	"github.com/nhle/mailboard/internal/source"
)

// fakeClaude serves a fixed text reply and records the last request.
type fakeClaude struct {
	reply  string
	status int
	last   apiRequest
	header http.Header
}

func (f *fakeClaude) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.header = r.Header.Clone()
	_ = json.NewDecoder(r.Body).Decode(&f.last)
	w.Header().Set("Content-Type", "application/json")
	if f.status != 0 && f.status != http.StatusOK {
		w.WriteHeader(f.status)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`))
		return
	}
	_ = json.NewEncoder(w).Encode(apiResponse{
		Type:    "message",
		Role:    "assistant",
		Content: []apiContentBlock{{Type: "text", Text: f.reply}},
	})
}

func newFake(t *testing.T, reply string) (*fakeClaude, *Client) {
	t.Helper()
	f := &fakeClaude{reply: reply}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, NewClient("test-key", WithBaseURL(srv.URL), WithModel("test-model"))
}

func summaries(ids ...string) []model.MessageSummary {
	out := make([]model.MessageSummary, len(ids))
	for i, id := range ids {
		out[i] = model.MessageSummary{
			ID:      id,
			From:    "sender" + id + "@example.com",
			Subject: "subject " + id,
			Date:    time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC),
		}
	}
	return out
}

func TestClientHeaders(t *testing.T) {
	f, c := newFake(t, "hello")
	reply, err := NewAssistant(c).Chat(context.Background(), "hi", summaries("1"), nil)
	require.NoError(t, err)
	assert.Equal(t, "hello", reply)
	assert.Equal(t, "test-key", f.header.Get("x-api-key"))
	assert.Equal(t, apiVersion, f.header.Get("anthropic-version"))
	assert.Equal(t, "test-model", f.last.Model)
}

func TestClientNoKey(t *testing.T) {
	_, err := NewAssistant(NewClient("")).Chat(context.Background(), "hi", nil, nil)
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

func TestClientHTTPError(t *testing.T) {
	f, c := newFake(t, "")
	f.status = http.StatusServiceUnavailable

	_, err := NewAssistant(c).Chat(context.Background(), "hi", nil, nil)
	require.Error(t, err)
	assert.True(t, source.IsFetchError(err))
	assert.Contains(t, err.Error(), "Overloaded")
}

func TestChatSendsHistory(t *testing.T) {
	f, c := newFake(t, "  answer  ")
	history := []Message{
		{Role: RoleUser, Content: "first"},
		{Role: RoleAssistant, Content: "reply"},
	}

	reply, err := NewAssistant(c).Chat(context.Background(), "second", summaries("1", "2"), history)
	require.NoError(t, err)
	assert.Equal(t, "answer", reply)

	require.Len(t, f.last.Messages, 3)
	assert.Equal(t, "user", f.last.Messages[0].Role)
	assert.Equal(t, "assistant", f.last.Messages[1].Role)
	assert.Equal(t, "second", f.last.Messages[2].Content[0].Text)
	assert.Contains(t, f.last.System, "subject 2")
}

func TestClassifyBatchValidates(t *testing.T) {
	reply := "Here you go:\n```json\n" + `[
		{"id":"1","category":"Finance","priority":"high","confidence":1.4,"rationale":"invoice"},
		{"id":"2","category":"work","priority":"urgent","redundant":true,"redundant_of":"k9"},
		{"id":"3","category":"astrology","priority":"low"},
		{"id":"99","category":"work","priority":"low"},
		{"id":"1","category":"work","priority":"low"},
		{"id":"4","category":"social","priority":"low","redundant":true,"redundant_of":"nope"}
	]` + "\n```"
	_, c := newFake(t, reply)
	cl := NewClassifier(c)
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	cl.now = func() time.Time { return now }

	got, err := cl.ClassifyBatch(context.Background(), summaries("1", "2", "3", "4"), []string{"k9"})
	require.NoError(t, err)

	want := []model.Classification{
		{MessageID: "1", Category: model.CategoryFinance, Priority: model.PriorityHigh, Confidence: 1, Rationale: "invoice", UpdatedAt: now},
		{MessageID: "2", Category: model.CategoryWork, Priority: model.PriorityMedium, Redundant: true, RedundantOf: "k9", UpdatedAt: now},
		{MessageID: "4", Category: model.CategorySocial, Priority: model.PriorityLow, UpdatedAt: now},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ClassifyBatch mismatch (-want +got):\n%s", diff)
	}
}

func TestClassifyBatchMalformed(t *testing.T) {
	_, c := newFake(t, "I could not classify these.")
	_, err := NewClassifier(c).ClassifyBatch(context.Background(), summaries("1"), nil)
	require.Error(t, err)
	assert.True(t, IsParseError(err))
}

func TestClassifyBatchEmpty(t *testing.T) {
	got, err := NewClassifier(NewClient("")).ClassifyBatch(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSummarize(t *testing.T) {
	_, c := newFake(t, `{"summary":" Two invoices due. ","highlights":["pay rent"]}`)
	res, err := NewAssistant(c).Run(context.Background(), KindSummarize, summaries("1"))
	require.NoError(t, err)

	sum, ok := res.(SummaryResult)
	require.True(t, ok)
	assert.Equal(t, "Two invoices due.", sum.Summary)
	assert.Equal(t, []string{"pay rent"}, sum.Highlights)
	assert.False(t, sum.Empty())
}

func TestCategorizeDropsUnknown(t *testing.T) {
	_, c := newFake(t, `{"groups":[
		{"category":"finance","ids":["1","x"],"note":"bills"},
		{"category":"gardening","ids":["2"]},
		{"category":"work","ids":["zzz"]}
	]}`)
	res, err := NewAssistant(c).Categorize(context.Background(), summaries("1", "2"))
	require.NoError(t, err)

	want := CategoriesResult{Groups: []CategoryGroup{
		{Category: model.CategoryFinance, MessageIDs: []string{"1"}, Note: "bills"},
	}}
	if diff := cmp.Diff(want, res); diff != "" {
		t.Errorf("Categorize mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractTasks(t *testing.T) {
	_, c := newFake(t, `{"tasks":[
		{"title":"Pay invoice","id":"1","due":"2024-03-20","priority":"high"},
		{"title":"  ","id":"2"},
		{"title":"Reply to Bob","id":"ghost","priority":"whenever"}
	]}`)
	res, err := NewAssistant(c).ExtractTasks(context.Background(), summaries("1", "2"))
	require.NoError(t, err)

	want := TasksResult{Tasks: []Task{
		{Title: "Pay invoice", MessageID: "1", Due: "2024-03-20", Priority: model.PriorityHigh},
		{Title: "Reply to Bob", Priority: model.PriorityMedium},
	}}
	if diff := cmp.Diff(want, res); diff != "" {
		t.Errorf("ExtractTasks mismatch (-want +got):\n%s", diff)
	}
}

func TestSuggestFilters(t *testing.T) {
	_, c := newFake(t, `{"suggestions":[
		{"label":"Unpaid bills","categories":["finance","bogus"],"priorities":["high"],"unread_only":true,"date_range":"Week"},
		{"label":""}
	]}`)
	res, err := NewAssistant(c).SuggestFilters(context.Background(), summaries("1"))
	require.NoError(t, err)
	require.Len(t, res.Suggestions, 1)

	f := res.Suggestions[0].Filters()
	assert.True(t, f.UnreadOnly)
	assert.Equal(t, model.DateRangeWeek, f.DateRange)
	assert.True(t, f.Categories.Has(model.CategoryFinance))
	assert.Len(t, f.Categories, 1)
	assert.True(t, f.Priorities.Has(model.PriorityHigh))
}

func TestQuickActionParseError(t *testing.T) {
	_, c := newFake(t, "no json here")
	_, err := NewAssistant(c).Run(context.Background(), KindExtractTasks, summaries("1"))
	assert.True(t, IsParseError(err))
}

func TestQuickActionNoMessages(t *testing.T) {
	res, err := NewAssistant(NewClient("")).Run(context.Background(), KindSummarize, nil)
	require.NoError(t, err)
	assert.True(t, res.Empty())
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind(" Tasks ")
	require.NoError(t, err)
	assert.Equal(t, KindExtractTasks, k)

	_, err = ParseKind("dance")
	assert.Error(t, err)
}

func TestConversationContextTrim(t *testing.T) {
	c := NewConversationContext(4)
	for i, s := range []string{"a", "b", "c", "d", "e", "f"} {
		role := RoleUser
		if i%2 == 1 {
			role = RoleAssistant
		}
		c.Add(role, s)
	}

	got := c.Messages()
	require.Len(t, got, 4)
	contents := []string{got[0].Content, got[1].Content, got[2].Content, got[3].Content}
	assert.Equal(t, []string{"a", "d", "e", "f"}, contents)

	c.Reset()
	assert.Equal(t, 0, c.Len())
}
