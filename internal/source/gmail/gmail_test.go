package gmail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gmailv1 "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/nhle/mailboard/internal/source"
)

func newTestProvider(t *testing.T, h http.Handler) *Provider {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	svc, err := gmailv1.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return NewWithService(svc, WithRate(1000))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestListMessages(t *testing.T) {
	var gotQuery, gotToken string
	mux := http.NewServeMux()
	mux.HandleFunc("/gmail/v1/users/me/messages", func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotToken = r.URL.Query().Get("pageToken")
		writeJSON(w, map[string]any{
			"messages":      []map[string]string{{"id": "a"}, {"id": "b"}},
			"nextPageToken": "page2",
		})
	})
	mux.HandleFunc("/gmail/v1/users/me/messages/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/gmail/v1/users/me/messages/")
		labels := []string{"INBOX"}
		if id == "a" {
			labels = append(labels, "UNREAD")
		}
		writeJSON(w, map[string]any{
			"id":           id,
			"threadId":     "t-" + id,
			"snippet":      "snippet " + id,
			"labelIds":     labels,
			"internalDate": "1710460800000",
			"payload": map[string]any{
				"mimeType": "multipart/alternative",
				"headers": []map[string]string{
					{"name": "From", "value": "alice@example.com"},
					{"name": "Subject", "value": "Subject " + id},
				},
			},
		})
	})

	p := newTestProvider(t, mux)
	page, err := p.ListMessages(context.Background(), "is:unread", 25, "page1")
	require.NoError(t, err)

	assert.Equal(t, "is:unread", gotQuery)
	assert.Equal(t, "page1", gotToken)
	assert.Equal(t, "page2", page.NextCursor)
	require.Len(t, page.Messages, 2)
	assert.Equal(t, "a", page.Messages[0].ID)
	assert.True(t, page.Messages[0].Unread)
	assert.False(t, page.Messages[1].Unread)
	assert.Equal(t, "Subject b", page.Messages[1].Subject)
	assert.Equal(t, "alice@example.com", page.Messages[0].From)
	assert.False(t, page.Messages[0].Date.IsZero())
}

func TestListMessagesUnauthorized(t *testing.T) {
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"code":401,"message":"Invalid Credentials"}}`))
	}))

	_, err := p.ListMessages(context.Background(), "", 10, "")
	require.Error(t, err)
	assert.True(t, source.IsAuthError(err))
}

func TestListMessagesServerError(t *testing.T) {
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":400,"message":"bad query"}}`))
	}))

	_, err := p.ListMessages(context.Background(), "", 10, "")
	require.Error(t, err)
	assert.False(t, source.IsAuthError(err))
	assert.True(t, source.IsFetchError(err))
}

func TestCancelledThrottleWaitIsFetchError(t *testing.T) {
	var calls atomic.Int32
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.ListMessages(ctx, "", 10, "")
	assert.True(t, source.IsFetchError(err))
	assert.ErrorIs(t, err, context.Canceled)

	_, err = p.GetFullMessage(ctx, "m1")
	assert.True(t, source.IsFetchError(err))

	err = p.MarkRead(ctx, []string{"m1"}, false)
	assert.True(t, source.IsFetchError(err))

	assert.Zero(t, calls.Load())
}

func TestGetFullMessagePrefersText(t *testing.T) {
	raw := strings.Join([]string{
		"From: Bob <bob@example.com>",
		"To: me@example.com",
		"Subject: Invoice",
		"Date: Fri, 15 Mar 2024 10:00:00 +0000",
		"MIME-Version: 1.0",
		`Content-Type: multipart/alternative; boundary="b1"`,
		"",
		"--b1",
		"Content-Type: text/plain; charset=utf-8",
		"",
		"Plain body",
		"--b1",
		"Content-Type: text/html; charset=utf-8",
		"",
		"<p>HTML body</p>",
		"--b1--",
		"",
	}, "\r\n")

	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "raw", r.URL.Query().Get("format"))
		writeJSON(w, map[string]any{
			"id":  "x1",
			"raw": base64.URLEncoding.EncodeToString([]byte(raw)),
		})
	}))

	full, err := p.GetFullMessage(context.Background(), "x1")
	require.NoError(t, err)
	assert.Equal(t, "x1", full.ID)
	assert.Equal(t, "Invoice", full.Subject)
	assert.Contains(t, full.Body, "Plain body")
	assert.False(t, full.IsHTML)
	assert.Equal(t, 2024, full.Date.Year())
}

func TestMarkRead(t *testing.T) {
	var calls atomic.Int32
	var body gmailv1.BatchModifyMessagesRequest
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.True(t, strings.HasSuffix(r.URL.Path, "/messages/batchModify"))
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.WriteHeader(http.StatusNoContent)
	}))

	require.NoError(t, p.MarkRead(context.Background(), nil, false))
	assert.Equal(t, int32(0), calls.Load())

	require.NoError(t, p.MarkRead(context.Background(), []string{"a", "b"}, false))
	assert.Equal(t, []string{"a", "b"}, body.Ids)
	assert.Equal(t, []string{"UNREAD"}, body.RemoveLabelIds)
	assert.Empty(t, body.AddLabelIds)
}

func TestHasAttachment(t *testing.T) {
	assert.False(t, hasAttachment(&gmailv1.MessagePart{MimeType: "text/plain"}))
	assert.True(t, hasAttachment(&gmailv1.MessagePart{
		MimeType: "multipart/mixed",
		Parts: []*gmailv1.MessagePart{
			{MimeType: "text/plain"},
			{MimeType: "application/pdf", Filename: "a.pdf"},
		},
	}))
	assert.True(t, hasAttachment(&gmailv1.MessagePart{MimeType: "multipart/mixed"}))
}
