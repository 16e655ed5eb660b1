package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nhle/mailboard/internal/model"
)

// Kind names a quick action.
type Kind string

const (
	KindSummarize      Kind = "summarize"
	KindCategorize     Kind = "categorize"
	KindExtractTasks   Kind = "tasks"
	KindSuggestFilters Kind = "filters"
)

// ParseKind accepts a quick action name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindSummarize, KindCategorize, KindExtractTasks, KindSuggestFilters:
		return k, nil
	}
	return "", fmt.Errorf("unknown quick action %q", s)
}

// Result is the closed set of quick action outcomes.
type Result interface {
	Kind() Kind
	Empty() bool
}

// SummaryResult is a digest of the viewing context.
type SummaryResult struct {
	Summary    string   `json:"summary"`
	Highlights []string `json:"highlights"`
}

// CategoryGroup is one bucket of a categorize result.
type CategoryGroup struct {
	Category   model.Category `json:"category"`
	MessageIDs []string       `json:"ids"`
	Note       string         `json:"note"`
}

// CategoriesResult groups the viewing context by category.
type CategoriesResult struct {
	Groups []CategoryGroup `json:"groups"`
}

// Task is an action item found in a message.
type Task struct {
	Title     string         `json:"title"`
	MessageID string         `json:"id"`
	Due       string         `json:"due,omitempty"`
	Priority  model.Priority `json:"priority"`
}

// TasksResult lists action items.
type TasksResult struct {
	Tasks []Task `json:"tasks"`
}

// FilterSuggestion is a filter the user can apply in one step.
type FilterSuggestion struct {
	Label            string           `json:"label"`
	Search           string           `json:"search,omitempty"`
	UnreadOnly       bool             `json:"unread_only,omitempty"`
	HasAttachment    bool             `json:"has_attachment,omitempty"`
	DateRange        model.DateRange  `json:"date_range,omitempty"`
	Categories       []model.Category `json:"categories,omitempty"`
	Priorities       []model.Priority `json:"priorities,omitempty"`
	ExcludeRedundant bool             `json:"exclude_redundant,omitempty"`
}

// Filters returns the suggestion as a filter state. Tag filters are never
// suggested.
func (s FilterSuggestion) Filters() model.FilterState {
	f := model.FilterState{
		Search:           s.Search,
		UnreadOnly:       s.UnreadOnly,
		HasAttachment:    s.HasAttachment,
		DateRange:        s.DateRange,
		ExcludeRedundant: s.ExcludeRedundant,
	}
	if f.DateRange == "" {
		f.DateRange = model.DateRangeAll
	}
	if len(s.Categories) > 0 {
		f.Categories = model.NewSet(s.Categories...)
	}
	if len(s.Priorities) > 0 {
		f.Priorities = model.NewSet(s.Priorities...)
	}
	return f
}

// FiltersResult lists suggested filters.
type FiltersResult struct {
	Suggestions []FilterSuggestion `json:"suggestions"`
}

func (SummaryResult) Kind() Kind { return KindSummarize }
func (CategoriesResult) Kind() Kind { return KindCategorize }
func (TasksResult) Kind() Kind { return KindExtractTasks }
func (FiltersResult) Kind() Kind { return KindSuggestFilters }

func (r SummaryResult) Empty() bool { return r.Summary == "" && len(r.Highlights) == 0 }
func (r CategoriesResult) Empty() bool { return len(r.Groups) == 0 }
func (r TasksResult) Empty() bool { return len(r.Tasks) == 0 }
func (r FiltersResult) Empty() bool { return len(r.Suggestions) == 0 }

// Assistant answers questions and runs quick actions over a set of
// messages. Every call carries its full input.
type Assistant struct {
	client *Client
}

// NewAssistant returns an assistant backed by client.
func NewAssistant(client *Client) *Assistant {
	return &Assistant{client: client}
}

// Chat sends message with the given messages as context and prior turns as
// history, returning the reply text.
func (a *Assistant) Chat(
	ctx context.Context,
	message string,
	contextMsgs []model.MessageSummary,
	history []Message,
) (string, error) {
	system := "You are an email assistant inside a terminal mail client. " +
		"Answer using only the messages below. Refer to messages by sender " +
		"and subject. Keep answers short. You cannot send, delete or modify " +
		"mail.\n\nMessages:\n" + renderMessages(contextMsgs)

	msgs := make([]apiMessage, 0, len(history)+1)
	for _, h := range history {
		msgs = append(msgs, textMessage(h.Role, h.Content))
	}
	msgs = append(msgs, textMessage(RoleUser, message))

	reply, err := a.client.complete(ctx, "chat", system, msgs)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(reply), nil
}

// Run dispatches a quick action by kind.
func (a *Assistant) Run(ctx context.Context, kind Kind, msgs []model.MessageSummary) (Result, error) {
	switch kind {
	case KindSummarize:
		return a.Summarize(ctx, msgs)
	case KindCategorize:
		return a.Categorize(ctx, msgs)
	case KindExtractTasks:
		return a.ExtractTasks(ctx, msgs)
	case KindSuggestFilters:
		return a.SuggestFilters(ctx, msgs)
	}
	return nil, fmt.Errorf("unknown quick action %q", kind)
}

// Summarize digests msgs.
func (a *Assistant) Summarize(ctx context.Context, msgs []model.MessageSummary) (SummaryResult, error) {
	var r SummaryResult
	err := a.quick(ctx, KindSummarize, msgs,
		`Summarize these emails. Reply with JSON only: {"summary": string, "highlights": [string]}.`,
		&r)
	if err != nil {
		return SummaryResult{}, err
	}
	r.Summary = strings.TrimSpace(r.Summary)
	return r, nil
}

// Categorize groups msgs by category. Groups with an unknown category
// or no ids from msgs are dropped.
func (a *Assistant) Categorize(ctx context.Context, msgs []model.MessageSummary) (CategoriesResult, error) {
	var raw struct {
		Groups []struct {
			Category string   `json:"category"`
			IDs      []string `json:"ids"`
			Note     string   `json:"note"`
		} `json:"groups"`
	}
	err := a.quick(ctx, KindCategorize, msgs,
		fmt.Sprintf(`Group these emails by category (%s). Reply with JSON only: `+
			`{"groups": [{"category": string, "ids": [string], "note": string}]}.`, categoryList()),
		&raw)
	if err != nil {
		return CategoriesResult{}, err
	}

	ids := idSet(msgs)
	var r CategoriesResult
	for _, g := range raw.Groups {
		cat, err := model.ParseCategory(g.Category)
		if err != nil {
			continue
		}
		var members []string
		for _, id := range g.IDs {
			if ids[id] {
				members = append(members, id)
			}
		}
		if len(members) == 0 {
			continue
		}
		r.Groups = append(r.Groups, CategoryGroup{Category: cat, MessageIDs: members, Note: g.Note})
	}
	return r, nil
}

// ExtractTasks finds action items in msgs.
func (a *Assistant) ExtractTasks(ctx context.Context, msgs []model.MessageSummary) (TasksResult, error) {
	var raw struct {
		Tasks []struct {
			Title    string `json:"title"`
			ID       string `json:"id"`
			Due      string `json:"due"`
			Priority string `json:"priority"`
		} `json:"tasks"`
	}
	err := a.quick(ctx, KindExtractTasks, msgs,
		`List the action items these emails ask of the reader. Reply with JSON only: `+
			`{"tasks": [{"title": string, "id": message id, "due": string or "", "priority": "high"|"medium"|"low"}]}.`,
		&raw)
	if err != nil {
		return TasksResult{}, err
	}

	ids := idSet(msgs)
	var r TasksResult
	for _, t := range raw.Tasks {
		title := strings.TrimSpace(t.Title)
		if title == "" {
			continue
		}
		prio, err := model.ParsePriority(t.Priority)
		if err != nil {
			prio = model.PriorityMedium
		}
		task := Task{Title: title, Due: t.Due, Priority: prio}
		if ids[t.ID] {
			task.MessageID = t.ID
		}
		r.Tasks = append(r.Tasks, task)
	}
	return r, nil
}

// SuggestFilters proposes filters that would help triage msgs.
func (a *Assistant) SuggestFilters(ctx context.Context, msgs []model.MessageSummary) (FiltersResult, error) {
	var raw struct {
		Suggestions []struct {
			Label            string   `json:"label"`
			Search           string   `json:"search"`
			UnreadOnly       bool     `json:"unread_only"`
			HasAttachment    bool     `json:"has_attachment"`
			DateRange        string   `json:"date_range"`
			Categories       []string `json:"categories"`
			Priorities       []string `json:"priorities"`
			ExcludeRedundant bool     `json:"exclude_redundant"`
		} `json:"suggestions"`
	}
	err := a.quick(ctx, KindSuggestFilters, msgs,
		fmt.Sprintf(`Suggest up to 5 filters to triage these emails. Reply with JSON only: `+
			`{"suggestions": [{"label": string, "search": string, "unread_only": bool, `+
			`"has_attachment": bool, "date_range": "all"|"today"|"week"|"month", `+
			`"categories": [%s], "priorities": ["high"|"medium"|"low"], "exclude_redundant": bool}]}.`,
			categoryList()),
		&raw)
	if err != nil {
		return FiltersResult{}, err
	}

	var r FiltersResult
	for _, s := range raw.Suggestions {
		label := strings.TrimSpace(s.Label)
		if label == "" {
			continue
		}
		fs := FilterSuggestion{
			Label:            label,
			Search:           strings.TrimSpace(s.Search),
			UnreadOnly:       s.UnreadOnly,
			HasAttachment:    s.HasAttachment,
			ExcludeRedundant: s.ExcludeRedundant,
		}
		fs.DateRange = model.ParseDateRange(strings.ToLower(s.DateRange))
		for _, c := range s.Categories {
			if cat, err := model.ParseCategory(c); err == nil {
				fs.Categories = append(fs.Categories, cat)
			}
		}
		for _, p := range s.Priorities {
			if prio, err := model.ParsePriority(p); err == nil {
				fs.Priorities = append(fs.Priorities, prio)
			}
		}
		r.Suggestions = append(r.Suggestions, fs)
	}
	return r, nil
}

func (a *Assistant) quick(
	ctx context.Context,
	kind Kind,
	msgs []model.MessageSummary,
	instruction string,
	out any,
) error {
	if len(msgs) == 0 {
		return nil
	}
	system := "You are an email assistant. " + instruction
	reply, err := a.client.complete(ctx, string(kind), system,
		[]apiMessage{textMessage(RoleUser, "Messages:\n"+renderMessages(msgs))})
	if err != nil {
		return err
	}
	return decodeJSON(string(kind), reply, '{', out)
}

func renderMessages(msgs []model.MessageSummary) string {
	type item struct {
		ID      string `json:"id"`
		From    string `json:"from"`
		Subject string `json:"subject"`
		Snippet string `json:"snippet"`
		Date    string `json:"date"`
	}
	items := make([]item, len(msgs))
	for i, m := range msgs {
		items[i] = item{m.ID, m.From, m.Subject, m.Snippet, m.Date.Format(time.DateOnly)}
	}
	b, _ := json.Marshal(items)
	return string(b)
}

func categoryList() string {
	names := make([]string, len(model.Categories))
	for i, c := range model.Categories {
		names[i] = `"` + string(c) + `"`
	}
	return strings.Join(names, "|")
}

func idSet(msgs []model.MessageSummary) map[string]bool {
	ids := make(map[string]bool, len(msgs))
	for _, m := range msgs {
		ids[m.ID] = true
	}
	return ids
}
