// Package filter maps a FilterState onto the provider's query dialect and
// evaluates the constraints the provider cannot express.
package filter

import (
	"strings"
	"time"

	"github.com/nhle/mailboard/internal/model"
)

// Tokens of the Gmail-style search dialect. IMAP providers parse the same
// tokens back into search criteria.
const (
	TokenUnread     = "is:unread"
	TokenAttachment = "has:attachment"
	afterPrefix     = "after:"
	dateLayout      = "2006/01/02"
)

// ToRemoteQuery builds the provider query for the remote-affecting subset of
// f. Each active constraint contributes one token; tokens are ANDed by the
// provider. An empty result means "list everything".
func ToRemoteQuery(f model.FilterState, now time.Time) string {
	var tokens []string
	if s := strings.TrimSpace(f.Search); s != "" {
		tokens = append(tokens, s)
	}
	if f.UnreadOnly {
		tokens = append(tokens, TokenUnread)
	}
	if f.HasAttachment {
		tokens = append(tokens, TokenAttachment)
	}
	if after, ok := DateThreshold(f.DateRange, now); ok {
		tokens = append(tokens, afterPrefix+after.Format(dateLayout))
	}
	return strings.Join(tokens, " ")
}

// DateThreshold returns the earliest date admitted by r. It reports false
// for DateRangeAll.
func DateThreshold(r model.DateRange, now time.Time) (time.Time, bool) {
	switch r {
	case model.DateRangeToday:
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, now.Location()), true
	case model.DateRangeWeek:
		return now.AddDate(0, 0, -7), true
	case model.DateRangeMonth:
		return now.AddDate(0, 0, -30), true
	}
	return time.Time{}, false
}

// RemoteChanged reports whether the provider-side subset of the filters
// differs, meaning the pagination cursor is invalid and page one must be
// fetched again.
func RemoteChanged(prev, next model.FilterState) bool {
	return strings.TrimSpace(prev.Search) != strings.TrimSpace(next.Search) ||
		prev.UnreadOnly != next.UnreadOnly ||
		prev.HasAttachment != next.HasAttachment ||
		normRange(prev.DateRange) != normRange(next.DateRange)
}

func normRange(r model.DateRange) model.DateRange {
	if r == "" {
		return model.DateRangeAll
	}
	return r
}

// IsVisible evaluates the local constraints of f against one message.
// c is nil when the message has not been classified yet; in that case any
// classification-derived filter hides the message.
func IsVisible(
	msg model.Message,
	c *model.Classification,
	tagIDs []string,
	f model.FilterState,
) bool {
	if f.NeedsClassification() && c == nil {
		return false
	}
	if len(f.Categories) > 0 && !f.Categories.Has(c.Category) {
		return false
	}
	if len(f.Priorities) > 0 && !f.Priorities.Has(c.Priority) {
		return false
	}
	if f.ExcludeRedundant && c.Redundant {
		return false
	}
	if len(f.TagIDs) > 0 && !anyIn(tagIDs, f.TagIDs) {
		return false
	}
	return true
}

func anyIn(ids []string, set model.Set[string]) bool {
	for _, id := range ids {
		if set.Has(id) {
			return true
		}
	}
	return false
}

// Visible returns msgs that pass IsVisible, in their original order.
func Visible(
	msgs []model.Message,
	classes map[string]model.Classification,
	tags map[string][]string,
	f model.FilterState,
) []model.Message {
	if !f.HasLocal() {
		return msgs
	}
	out := make([]model.Message, 0, len(msgs))
	for _, m := range msgs {
		var cp *model.Classification
		if c, ok := classes[m.ID]; ok {
			cp = &c
		}
		if IsVisible(m, cp, tags[m.ID], f) {
			out = append(out, m)
		}
	}
	return out
}
