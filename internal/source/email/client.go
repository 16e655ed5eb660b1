// Package email implements the mail provider over IMAP.
package email

import (
	"context"
	"fmt"
	"net"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"go.uber.org/zap"

	"github.com/nhle/mailboard/internal/metrics"
	"github.com/nhle/mailboard/internal/model"
	"github.com/nhle/mailboard/internal/source"
)

const (
	providerName = "imap"
	snippetBytes = 512
	snippetRunes = 200
)

// Config holds the IMAP connection settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	Mailbox  string
	TLS      bool
}

// Provider lists and fetches messages from one IMAP mailbox. Message ids
// are UIDs; the cursor is the exclusive UID upper bound of the next page.
type Provider struct {
	cfg    Config
	logger *zap.Logger
	now    func() time.Time
}

// NewProvider returns an IMAP provider.
func NewProvider(cfg Config, logger *zap.Logger) *Provider {
	if cfg.Mailbox == "" {
		cfg.Mailbox = "INBOX"
	}
	if cfg.Port == 0 {
		cfg.Port = 993
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{cfg: cfg, logger: logger, now: time.Now}
}

// Name implements source.Provider.
func (p *Provider) Name() string {
	return providerName
}

// connect establishes a connection to the IMAP server, authenticates,
// and selects the configured mailbox. The caller is responsible for
// calling Logout on the returned client.
func (p *Provider) connect(ctx context.Context) (*imapclient.Client, error) {
	if p.cfg.Password == "" {
		return nil, &source.AuthError{
			Provider: providerName,
			Message:  "no IMAP password stored",
		}
	}

	addr := net.JoinHostPort(p.cfg.Host, strconv.Itoa(p.cfg.Port))

	var (
		client *imapclient.Client
		err    error
	)
	if p.cfg.TLS {
		client, err = imapclient.DialTLS(addr, nil)
	} else {
		client, err = imapclient.DialStartTLS(addr, nil)
	}
	if err != nil {
		return nil, &source.FetchError{Op: "imap connect", Err: err}
	}

	if err := ctx.Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	if err := client.Login(p.cfg.Username, p.cfg.Password).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, &source.AuthError{
			Provider: providerName,
			Message:  fmt.Sprintf("authentication failed for %s", p.cfg.Username),
			Err:      err,
		}
	}

	if _, err := client.Select(p.cfg.Mailbox, nil).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, &source.FetchError{Op: "select " + p.cfg.Mailbox, Err: err}
	}

	return client, nil
}

// ListMessages implements source.Provider.
func (p *Provider) ListMessages(
	ctx context.Context,
	query string,
	pageSize int,
	cursor string,
) (page source.Page, err error) {
	start := p.now()
	defer func() { metrics.RecordProviderCall("list", err, time.Since(start)) }()

	if pageSize < 1 {
		pageSize = 50
	}
	var upper imap.UID
	if cursor != "" {
		n, perr := strconv.ParseUint(cursor, 10, 32)
		if perr != nil {
			return source.Page{}, fmt.Errorf("invalid cursor %q: %w", cursor, perr)
		}
		upper = imap.UID(n)
	}

	client, err := p.connect(ctx)
	if err != nil {
		return source.Page{}, err
	}
	defer func() { _ = client.Logout().Wait() }()

	searchData, err := client.UIDSearch(ParseQuery(query, time.Local), nil).Wait()
	if err != nil {
		return source.Page{}, &source.FetchError{Op: "imap search", Err: err}
	}

	uids, next := pageUIDs(searchData.AllUIDs(), upper, pageSize)
	if len(uids) == 0 {
		return source.Page{}, nil
	}

	snippetSection := &imap.FetchItemBodySection{
		Specifier: imap.PartSpecifierText,
		Peek:      true,
		Partial:   &imap.SectionPartial{Offset: 0, Size: snippetBytes},
	}
	fetchOpts := &imap.FetchOptions{
		Envelope:      true,
		Flags:         true,
		UID:           true,
		BodyStructure: &imap.FetchItemBodyStructure{Extended: true},
		BodySection:   []*imap.FetchItemBodySection{snippetSection},
	}

	bufs, err := client.Fetch(imap.UIDSetNum(uids...), fetchOpts).Collect()
	if err != nil {
		return source.Page{}, &source.FetchError{Op: "imap fetch", Err: err}
	}

	byUID := make(map[imap.UID]model.Message, len(bufs))
	for _, buf := range bufs {
		msg := messageFromBuffer(buf)
		msg.Snippet = snippetFromPartial(buf.FindBodySection(snippetSection), snippetRunes)
		byUID[buf.UID] = msg
	}

	// Newest first, matching the Gmail listing order.
	page.Messages = make([]model.Message, 0, len(uids))
	for i := len(uids) - 1; i >= 0; i-- {
		if m, ok := byUID[uids[i]]; ok {
			page.Messages = append(page.Messages, m)
		}
	}
	if next != 0 {
		page.NextCursor = strconv.FormatUint(uint64(next), 10)
	}

	p.logger.Debug("imap page listed",
		zap.String("query", query),
		zap.Int("count", len(page.Messages)),
		zap.String("next_cursor", page.NextCursor),
	)
	return page, nil
}

// pageUIDs picks the newest pageSize UIDs below upper (all when upper is
// zero). It returns them ascending, plus the cursor for the next page or
// zero when nothing older remains.
func pageUIDs(all []imap.UID, upper imap.UID, pageSize int) ([]imap.UID, imap.UID) {
	uids := slices.Clone(all)
	slices.Sort(uids)
	if upper != 0 {
		idx, _ := slices.BinarySearch(uids, upper)
		uids = uids[:idx]
	}
	if len(uids) <= pageSize {
		return uids, 0
	}
	page := uids[len(uids)-pageSize:]
	return page, page[0]
}

// GetFullMessage implements source.Provider.
func (p *Provider) GetFullMessage(ctx context.Context, id string) (full model.FullMessage, err error) {
	start := p.now()
	defer func() { metrics.RecordProviderCall("get", err, time.Since(start)) }()

	uid, err := parseUID(id)
	if err != nil {
		return model.FullMessage{}, err
	}

	client, err := p.connect(ctx)
	if err != nil {
		return model.FullMessage{}, err
	}
	defer func() { _ = client.Logout().Wait() }()

	bodySection := &imap.FetchItemBodySection{Peek: true}
	fetchOpts := &imap.FetchOptions{
		Envelope:    true,
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	}

	bufs, err := client.Fetch(imap.UIDSetNum(uid), fetchOpts).Collect()
	if err != nil {
		return model.FullMessage{}, &source.FetchError{Op: "imap fetch body", Err: err}
	}
	if len(bufs) == 0 {
		return model.FullMessage{}, &source.FetchError{
			Op:  "imap fetch body",
			Err: fmt.Errorf("message UID %d not found", uid),
		}
	}
	buf := bufs[0]

	meta := messageFromBuffer(buf)
	full = model.FullMessage{
		ID:      id,
		From:    meta.From,
		Subject: meta.Subject,
		Date:    meta.Date,
	}
	if buf.Envelope != nil {
		to := make([]string, 0, len(buf.Envelope.To))
		for _, a := range buf.Envelope.To {
			to = append(to, a.Addr())
		}
		full.To = strings.Join(to, ", ")
	}

	textBody, htmlBody, _ := parseMIMEBody(buf.FindBodySection(bodySection))
	if textBody != "" {
		full.Body = textBody
	} else {
		full.Body = htmlBody
		full.IsHTML = htmlBody != ""
	}
	return full, nil
}

// MarkRead implements source.ReadMarker by toggling \Seen.
func (p *Provider) MarkRead(ctx context.Context, ids []string, unread bool) (err error) {
	start := p.now()
	defer func() { metrics.RecordProviderCall("mark_read", err, time.Since(start)) }()

	var set imap.UIDSet
	for _, id := range ids {
		uid, err := parseUID(id)
		if err != nil {
			return err
		}
		set.AddNum(uid)
	}
	if len(set) == 0 {
		return nil
	}

	client, err := p.connect(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = client.Logout().Wait() }()

	op := imap.StoreFlagsAdd
	if unread {
		op = imap.StoreFlagsDel
	}
	if err := client.Store(set, &imap.StoreFlags{
		Op:     op,
		Silent: true,
		Flags:  []imap.Flag{imap.FlagSeen},
	}, nil).Close(); err != nil {
		return &source.FetchError{Op: "imap store flags", Err: err}
	}
	return nil
}

// messageFromBuffer extracts list metadata from a FetchMessageBuffer.
func messageFromBuffer(buf *imapclient.FetchMessageBuffer) model.Message {
	id := strconv.FormatUint(uint64(buf.UID), 10)
	msg := model.Message{
		ID:       id,
		ThreadID: id,
		Unread:   !slices.Contains(buf.Flags, imap.FlagSeen),
	}

	if buf.Envelope != nil {
		msg.Subject = buf.Envelope.Subject
		msg.Date = buf.Envelope.Date
		if len(buf.Envelope.From) > 0 {
			msg.From = formatAddress(buf.Envelope.From[0])
		}
		if buf.Envelope.MessageID != "" {
			msg.ThreadID = buf.Envelope.MessageID
		}
	}

	for _, flag := range buf.Flags {
		msg.Labels = append(msg.Labels, string(flag))
	}

	if buf.BodyStructure != nil {
		buf.BodyStructure.Walk(func(_ []int, part imap.BodyStructure) bool {
			if d := part.Disposition(); d != nil && strings.EqualFold(d.Value, "attachment") {
				msg.HasAttachment = true
				return false
			}
			return true
		})
	}

	return msg
}

func formatAddress(a imap.Address) string {
	if a.Name == "" {
		return a.Addr()
	}
	return fmt.Sprintf("%s <%s>", a.Name, a.Addr())
}

func parseUID(id string) (imap.UID, error) {
	uid, err := strconv.ParseUint(id, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid email UID %q: %w", id, err)
	}
	return imap.UID(uid), nil
}
