package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nhle/mailboard/internal/model"
)

// Classifier assigns category, priority and redundancy to message batches.
type Classifier struct {
	client *Client
	now    func() time.Time
}

// NewClassifier returns a classifier backed by client.
func NewClassifier(client *Client) *Classifier {
	return &Classifier{client: client, now: time.Now}
}

type classifyInput struct {
	ID      string `json:"id"`
	From    string `json:"from"`
	Subject string `json:"subject"`
	Snippet string `json:"snippet"`
	Date    string `json:"date"`
}

type classifyOutput struct {
	ID          string  `json:"id"`
	Category    string  `json:"category"`
	Priority    string  `json:"priority"`
	Redundant   bool    `json:"redundant"`
	RedundantOf string  `json:"redundant_of"`
	Confidence  float64 `json:"confidence"`
	Rationale   string  `json:"rationale"`
}

// ClassifyBatch classifies msgs. knownIDs are ids of messages the user
// already has; a message may be marked redundant only against one of them
// or another message in the batch. Entries for ids outside the batch, or
// with an unknown category, are dropped, so the result may be shorter than
// the input.
func (c *Classifier) ClassifyBatch(
	ctx context.Context,
	msgs []model.MessageSummary,
	knownIDs []string,
) ([]model.Classification, error) {
	if len(msgs) == 0 {
		return nil, nil
	}

	in := make([]classifyInput, 0, len(msgs))
	batch := make(map[string]bool, len(msgs))
	for _, m := range msgs {
		batch[m.ID] = true
		in = append(in, classifyInput{
			ID:      m.ID,
			From:    m.From,
			Subject: m.Subject,
			Snippet: m.Snippet,
			Date:    m.Date.Format(time.RFC3339),
		})
	}
	known := make(map[string]bool, len(knownIDs))
	for _, id := range knownIDs {
		known[id] = true
	}

	payload, err := json.Marshal(map[string]any{
		"messages":  in,
		"known_ids": knownIDs,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding batch: %w", err)
	}

	reply, err := c.client.complete(ctx, "classify", classifySystemPrompt(),
		[]apiMessage{textMessage(RoleUser, string(payload))})
	if err != nil {
		return nil, err
	}

	var out []classifyOutput
	if err := decodeJSON("classify", reply, '[', &out); err != nil {
		return nil, err
	}

	now := c.now()
	seen := make(map[string]bool, len(out))
	results := make([]model.Classification, 0, len(out))
	for _, o := range out {
		if !batch[o.ID] || seen[o.ID] {
			continue
		}
		cat, err := model.ParseCategory(o.Category)
		if err != nil {
			continue
		}
		prio, err := model.ParsePriority(o.Priority)
		if err != nil {
			prio = model.PriorityMedium
		}
		seen[o.ID] = true

		r := model.Classification{
			MessageID:  o.ID,
			Category:   cat,
			Priority:   prio,
			Confidence: min(max(o.Confidence, 0), 1),
			Rationale:  strings.TrimSpace(o.Rationale),
			UpdatedAt:  now,
		}
		if o.Redundant && o.RedundantOf != o.ID && (known[o.RedundantOf] || batch[o.RedundantOf]) {
			r.Redundant = true
			r.RedundantOf = o.RedundantOf
		}
		results = append(results, r)
	}
	return results, nil
}

func classifySystemPrompt() string {
	cats := make([]string, len(model.Categories))
	for i, c := range model.Categories {
		cats[i] = string(c)
	}
	prios := make([]string, len(model.Priorities))
	for i, p := range model.Priorities {
		prios[i] = string(p)
	}

	var sb strings.Builder
	sb.WriteString("You triage email. For every message in the input, return one ")
	sb.WriteString("JSON object and nothing else: a JSON array of objects with keys ")
	sb.WriteString("id, category, priority, redundant, redundant_of, confidence, rationale.\n\n")
	fmt.Fprintf(&sb, "category is one of: %s.\n", strings.Join(cats, ", "))
	fmt.Fprintf(&sb, "priority is one of: %s.\n", strings.Join(prios, ", "))
	sb.WriteString("A message is redundant when it repeats the content of another ")
	sb.WriteString("message (a reminder, a duplicate notification, a resend). Set ")
	sb.WriteString("redundant_of to that other message's id, taken from the batch or ")
	sb.WriteString("from known_ids. confidence is between 0 and 1. rationale is one short sentence.")
	return sb.String()
}
