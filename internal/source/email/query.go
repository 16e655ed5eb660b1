package email

import (
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
)

// ParseQuery turns a Gmail-style query into IMAP search criteria. Tokens
// are ANDed. Supported: is:unread, is:read, has:attachment,
// after:/before:YYYY/MM/DD, from:, to:, subject:; any other word is a
// full-text term. Double quotes group words into one term.
func ParseQuery(q string, loc *time.Location) *imap.SearchCriteria {
	c := &imap.SearchCriteria{}
	if loc == nil {
		loc = time.Local
	}

	for _, tok := range splitQuery(q) {
		key, val, hasKey := strings.Cut(tok, ":")
		if !hasKey || val == "" {
			c.Text = append(c.Text, tok)
			continue
		}

		switch strings.ToLower(key) {
		case "is":
			switch strings.ToLower(val) {
			case "unread":
				c.NotFlag = append(c.NotFlag, imap.FlagSeen)
			case "read":
				c.Flag = append(c.Flag, imap.FlagSeen)
			case "starred", "flagged":
				c.Flag = append(c.Flag, imap.FlagFlagged)
			default:
				c.Text = append(c.Text, tok)
			}
		case "has":
			if strings.EqualFold(val, "attachment") {
				c.Header = append(c.Header, imap.SearchCriteriaHeaderField{
					Key:   "Content-Type",
					Value: "multipart/mixed",
				})
			} else {
				c.Text = append(c.Text, tok)
			}
		case "after":
			if t, err := time.ParseInLocation("2006/01/02", val, loc); err == nil {
				c.Since = t
			} else {
				c.Text = append(c.Text, tok)
			}
		case "before":
			if t, err := time.ParseInLocation("2006/01/02", val, loc); err == nil {
				c.Before = t
			} else {
				c.Text = append(c.Text, tok)
			}
		case "from", "to", "subject", "cc":
			c.Header = append(c.Header, imap.SearchCriteriaHeaderField{
				Key:   headerName(key),
				Value: val,
			})
		default:
			c.Text = append(c.Text, tok)
		}
	}

	return c
}

func headerName(key string) string {
	switch strings.ToLower(key) {
	case "from":
		return "From"
	case "to":
		return "To"
	case "cc":
		return "Cc"
	}
	return "Subject"
}

// splitQuery splits on whitespace, keeping double-quoted runs together
// (quotes removed). key:"two words" yields key:two words.
func splitQuery(q string) []string {
	var (
		out     []string
		cur     strings.Builder
		inQuote bool
	)
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
		}
	}
	for _, r := range q {
		switch {
		case r == '"':
			inQuote = !inQuote
		case !inQuote && (r == ' ' || r == '\t' || r == '\n'):
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return out
}
