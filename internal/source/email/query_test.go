package email

import (
	"testing"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/stretchr/testify/assert"
)

func TestParseQuery(t *testing.T) {
	c := ParseQuery(`is:unread has:attachment after:2024/03/08 from:alice subject:"quarterly report" budget`, time.UTC)

	assert.Equal(t, []imap.Flag{imap.FlagSeen}, c.NotFlag)
	assert.Equal(t, time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC), c.Since)
	assert.Equal(t, []imap.SearchCriteriaHeaderField{
		{Key: "Content-Type", Value: "multipart/mixed"},
		{Key: "From", Value: "alice"},
		{Key: "Subject", Value: "quarterly report"},
	}, c.Header)
	assert.Equal(t, []string{"budget"}, c.Text)
}

func TestParseQueryEmptyMatchesAll(t *testing.T) {
	c := ParseQuery("", time.UTC)
	assert.Equal(t, &imap.SearchCriteria{}, c)
}

func TestParseQueryUnknownTokensBecomeText(t *testing.T) {
	c := ParseQuery("label:work after:yesterday http://x", time.UTC)
	assert.Equal(t, []string{"label:work", "after:yesterday", "http://x"}, c.Text)
	assert.True(t, c.Since.IsZero())
}

func TestPageUIDs(t *testing.T) {
	all := []imap.UID{5, 1, 9, 3, 7}

	page, next := pageUIDs(all, 0, 2)
	assert.Equal(t, []imap.UID{7, 9}, page)
	assert.Equal(t, imap.UID(7), next)

	page, next = pageUIDs(all, next, 2)
	assert.Equal(t, []imap.UID{3, 5}, page)
	assert.Equal(t, imap.UID(3), next)

	page, next = pageUIDs(all, next, 2)
	assert.Equal(t, []imap.UID{1}, page)
	assert.Zero(t, next, "last page has no cursor")
}

func TestSnippetFromPartial(t *testing.T) {
	raw := []byte("--b1\r\nContent-Type: text/plain\r\n\r\nHello   there,\r\nsee <b>attached</b>\r\n--b1\r\n")
	assert.Equal(t, "Hello there, see attached", snippetFromPartial(raw, 200))
	assert.Equal(t, "Hello", snippetFromPartial(raw, 5))
}

func TestParseMIMEBody(t *testing.T) {
	raw := "From: a@example.com\r\n" +
		"Subject: hi\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: multipart/mixed; boundary=XX\r\n\r\n" +
		"--XX\r\nContent-Type: text/plain\r\n\r\nplain body\r\n" +
		"--XX\r\nContent-Type: application/pdf\r\nContent-Disposition: attachment; filename=a.pdf\r\n\r\n%PDF\r\n" +
		"--XX--\r\n"

	text, html, att := parseMIMEBody([]byte(raw))
	assert.Equal(t, "plain body", text)
	assert.Empty(t, html)
	assert.True(t, att)
}
