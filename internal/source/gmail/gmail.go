// Package gmail implements the mail provider over the Gmail REST API.
package gmail

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"slices"
	"strings"
	"time"

	"github.com/jhillyerd/enmime"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
	gmailv1 "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/nhle/mailboard/internal/auth"
	"github.com/nhle/mailboard/internal/metrics"
	"github.com/nhle/mailboard/internal/model"
	"github.com/nhle/mailboard/internal/source"
)

const (
	providerName = "gmail"
	user         = "me"
	labelUnread  = "UNREAD"
)

// Provider lists and fetches Gmail messages.
type Provider struct {
	svc         *gmailv1.Service
	limiter     *rate.Limiter
	concurrency int
	logger      *zap.Logger
}

// Option configures a Provider.
type Option func(*Provider)

// WithConcurrency bounds parallel metadata requests.
func WithConcurrency(n int) Option {
	return func(p *Provider) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithRate limits requests per second.
func WithRate(perSec int) Option {
	return func(p *Provider) {
		if perSec > 0 {
			p.limiter = rate.NewLimiter(rate.Limit(perSec), perSec)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Provider) { p.logger = l }
}

// New builds a provider whose requests carry tokens from tp.
func New(ctx context.Context, tp auth.Provider, opts ...Option) (*Provider, error) {
	svc, err := gmailv1.NewService(ctx, option.WithTokenSource(auth.TokenSource(ctx, tp)))
	if err != nil {
		return nil, fmt.Errorf("creating gmail service: %w", err)
	}
	return NewWithService(svc, opts...), nil
}

// NewWithService wraps an existing service.
func NewWithService(svc *gmailv1.Service, opts ...Option) *Provider {
	p := &Provider{
		svc:         svc,
		limiter:     rate.NewLimiter(10, 10),
		concurrency: 8,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name implements source.Provider.
func (p *Provider) Name() string {
	return providerName
}

// ListMessages implements source.Provider. Listing returns ids only, so
// each message's metadata is fetched concurrently; results keep listing
// order.
func (p *Provider) ListMessages(
	ctx context.Context,
	query string,
	pageSize int,
	cursor string,
) (page source.Page, err error) {
	start := time.Now()
	defer func() { metrics.RecordProviderCall("list", err, time.Since(start)) }()

	if pageSize < 1 {
		pageSize = 50
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return source.Page{}, mapErr("list messages", err)
	}

	call := p.svc.Users.Messages.List(user).
		LabelIds("INBOX").
		MaxResults(int64(pageSize)).
		Context(ctx)
	if query != "" {
		call = call.Q(query)
	}
	if cursor != "" {
		call = call.PageToken(cursor)
	}
	resp, err := call.Do()
	if err != nil {
		return source.Page{}, mapErr("list messages", err)
	}

	msgs := make([]*model.Message, len(resp.Messages))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, ref := range resp.Messages {
		g.Go(func() error {
			m, err := p.metadata(gctx, ref.Id)
			if err != nil {
				if source.IsAuthError(err) {
					return err
				}
				p.logger.Warn("fetch message metadata", zap.String("id", ref.Id), zap.Error(err))
				return nil
			}
			msgs[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return source.Page{}, err
	}

	page.Messages = make([]model.Message, 0, len(msgs))
	for _, m := range msgs {
		if m != nil {
			page.Messages = append(page.Messages, *m)
		}
	}
	page.NextCursor = resp.NextPageToken
	return page, nil
}

func (p *Provider) metadata(ctx context.Context, id string) (*model.Message, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, mapErr("get metadata", err)
	}
	msg, err := p.svc.Users.Messages.Get(user, id).
		Format("metadata").
		MetadataHeaders("From", "Subject", "Date").
		Context(ctx).
		Do()
	if err != nil {
		return nil, mapErr("get metadata", err)
	}
	return messageFromAPI(msg), nil
}

func messageFromAPI(msg *gmailv1.Message) *model.Message {
	m := &model.Message{
		ID:       msg.Id,
		ThreadID: msg.ThreadId,
		Snippet:  msg.Snippet,
		Labels:   msg.LabelIds,
		Unread:   slices.Contains(msg.LabelIds, labelUnread),
	}
	if msg.InternalDate > 0 {
		m.Date = time.UnixMilli(msg.InternalDate)
	}
	if msg.Payload != nil {
		for _, h := range msg.Payload.Headers {
			switch strings.ToLower(h.Name) {
			case "from":
				m.From = h.Value
			case "subject":
				m.Subject = h.Value
			}
		}
		m.HasAttachment = hasAttachment(msg.Payload)
	}
	return m
}

func hasAttachment(part *gmailv1.MessagePart) bool {
	if part.Filename != "" {
		return true
	}
	if part.Body != nil && part.Body.AttachmentId != "" {
		return true
	}
	for _, child := range part.Parts {
		if hasAttachment(child) {
			return true
		}
	}
	return strings.EqualFold(part.MimeType, "multipart/mixed") && len(part.Parts) == 0
}

// GetFullMessage implements source.Provider. The raw RFC 822 form is
// fetched and parsed so plain text wins over HTML when both exist.
func (p *Provider) GetFullMessage(ctx context.Context, id string) (full model.FullMessage, err error) {
	start := time.Now()
	defer func() { metrics.RecordProviderCall("get", err, time.Since(start)) }()

	if err := p.limiter.Wait(ctx); err != nil {
		return model.FullMessage{}, mapErr("get message", err)
	}
	msg, err := p.svc.Users.Messages.Get(user, id).Format("raw").Context(ctx).Do()
	if err != nil {
		return model.FullMessage{}, mapErr("get message", err)
	}

	raw, err := base64.URLEncoding.DecodeString(msg.Raw)
	if err != nil {
		raw, err = base64.RawURLEncoding.DecodeString(msg.Raw)
		if err != nil {
			return model.FullMessage{}, &source.FetchError{Op: "decode raw", Err: err}
		}
	}
	full, err = parseRaw(raw)
	if err != nil {
		return model.FullMessage{}, &source.FetchError{Op: "parse message", Err: err}
	}
	full.ID = id
	if full.Date.IsZero() && msg.InternalDate > 0 {
		full.Date = time.UnixMilli(msg.InternalDate)
	}
	return full, nil
}

func parseRaw(raw []byte) (model.FullMessage, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return model.FullMessage{}, err
	}
	full := model.FullMessage{
		From:    env.GetHeader("From"),
		To:      env.GetHeader("To"),
		Subject: env.GetHeader("Subject"),
	}
	if d, err := mail.ParseDate(env.GetHeader("Date")); err == nil {
		full.Date = d
	}
	if strings.TrimSpace(env.Text) != "" {
		full.Body = env.Text
	} else {
		full.Body = env.HTML
		full.IsHTML = env.HTML != ""
	}
	return full, nil
}

// MarkRead implements source.ReadMarker by editing the UNREAD label.
func (p *Provider) MarkRead(ctx context.Context, ids []string, unread bool) (err error) {
	start := time.Now()
	defer func() { metrics.RecordProviderCall("mark_read", err, time.Since(start)) }()

	if len(ids) == 0 {
		return nil
	}
	req := &gmailv1.BatchModifyMessagesRequest{Ids: ids}
	if unread {
		req.AddLabelIds = []string{labelUnread}
	} else {
		req.RemoveLabelIds = []string{labelUnread}
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return mapErr("modify labels", err)
	}
	if err := p.svc.Users.Messages.BatchModify(user, req).Context(ctx).Do(); err != nil {
		return mapErr("modify labels", err)
	}
	return nil
}

// mapErr turns 401s and token failures into AuthError and everything else,
// including throttle waits cut short by the context, into FetchError.
func mapErr(op string, err error) error {
	var authErr *source.AuthError
	if errors.As(err, &authErr) {
		return authErr
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusUnauthorized {
			return &source.AuthError{
				Provider: providerName,
				Message:  "access token rejected",
				Err:      err,
			}
		}
		return &source.FetchError{Op: op, StatusCode: apiErr.Code, Err: err}
	}
	return &source.FetchError{Op: op, Err: err}
}
