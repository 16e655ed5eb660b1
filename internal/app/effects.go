package app

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/nhle/mailboard/internal/filter"
	"github.com/nhle/mailboard/internal/inbox"
	"github.com/nhle/mailboard/internal/metrics"
	"github.com/nhle/mailboard/internal/nav"
	"github.com/nhle/mailboard/internal/source"
	"github.com/nhle/mailboard/internal/ui/detail"
)

const fetchTimeout = 60 * time.Second

// pageMsg carries one listing page back to the update loop.
type pageMsg struct {
	generation uint64
	more       bool
	page       source.Page
	err        error
}

// markReadMsg reports the outcome of a provider read-state change.
type markReadMsg struct {
	ids []string
	err error
}

// runEffects turns the side effects requested since the last call into
// commands.
func (m *Model) runEffects() tea.Cmd {
	var cmds []tea.Cmd
	for _, e := range m.session.takeEffects() {
		switch e.Kind {
		case nav.FetchFirstPage:
			cmds = append(cmds, m.fetchPage(e.Generation, "", false))
		case nav.FetchNextPage:
			cmds = append(cmds, m.fetchPage(e.Generation, e.Cursor, true))
		case nav.FetchDetail:
			cmds = append(cmds, m.openDetail(e.MessageID)...)
		case nav.ShowSidebar:
			m.showSidebar = !m.showSidebar
			m.resize()
			cmds = append(cmds, m.savePreferences())
		case nav.ShowAssistant:
			cmds = append(cmds, m.toggleAssistant())
		case nav.ShowHelp:
			m.openOverlay(ViewHelp)
		}
	}
	return tea.Batch(cmds...)
}

// fetchPage lists one page for generation using the current filters.
func (m *Model) fetchPage(generation uint64, cursor string, more bool) tea.Cmd {
	provider := m.provider
	pageSize := m.cfg.Provider.PageSize
	query := filter.ToRemoteQuery(m.session.Snapshot().Filters, m.now())
	logger := m.logger
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()

		logger.Debug("fetching page",
			zap.String("operation", "list"),
			zap.Uint64("generation", generation),
			zap.String("query", query),
			zap.Bool("more", more),
		)
		page, err := provider.ListMessages(ctx, query, pageSize, cursor)
		return pageMsg{generation: generation, more: more, page: page, err: err}
	}
}

// handlePage applies a listing response unless a newer fetch superseded it.
func (m *Model) handlePage(msg pageMsg) {
	kind := "replace"
	if msg.more {
		kind = "append"
	}

	s := m.session.Snapshot()
	if msg.generation != s.Generation {
		metrics.RecordStale(kind)
		m.logger.Debug("discarding stale page",
			zap.String("operation", kind),
			zap.Uint64("generation", msg.generation),
			zap.Uint64("current", s.Generation),
		)
		return
	}

	if msg.err != nil {
		m.logger.Warn("listing messages failed",
			zap.String("operation", kind),
			zap.Uint64("generation", msg.generation),
			zap.Error(msg.err),
		)
		if source.IsAuthError(msg.err) {
			m.session.Dispatch(inbox.Reset{})
			m.authError = source.UserMessage(msg.err)
			return
		}
		if msg.more {
			m.session.Dispatch(inbox.LoadMoreFailed{Generation: msg.generation})
		} else {
			m.session.Dispatch(inbox.FetchFailed{Generation: msg.generation})
		}
		m.setError(source.UserMessage(msg.err))
		return
	}

	m.authError = ""
	if msg.more {
		m.session.Dispatch(inbox.Append{
			Messages:   msg.page.Messages,
			Cursor:     msg.page.NextCursor,
			Generation: msg.generation,
		})
		return
	}
	m.newMail = 0
	m.session.Dispatch(inbox.Replace{
		Messages:   msg.page.Messages,
		Cursor:     msg.page.NextCursor,
		Generation: msg.generation,
	})
}

// openDetail fetches the body of id and marks the message read.
func (m *Model) openDetail(id string) []tea.Cmd {
	m.detail.Load(id)
	m.syncDetailMeta()

	provider := m.provider
	cmds := []tea.Cmd{func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		full, err := provider.GetFullMessage(ctx, id)
		return detail.LoadedMsg{ID: id, Message: full, Err: err}
	}}

	msg, ok := m.session.Snapshot().Message(id)
	if !ok || !msg.Unread {
		return cmds
	}
	ids := []string{id}
	m.session.Dispatch(inbox.MarkReadState{IDs: ids, Unread: false})
	if marker, ok := provider.(source.ReadMarker); ok {
		cmds = append(cmds, func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
			defer cancel()
			return markReadMsg{ids: ids, err: marker.MarkRead(ctx, ids, false)}
		})
	}
	return cmds
}

// handleMarkRead keeps the local read state; a provider failure is only
// reported.
func (m *Model) handleMarkRead(msg markReadMsg) {
	if msg.err == nil {
		return
	}
	m.logger.Warn("marking read failed",
		zap.Strings("message_id", msg.ids),
		zap.Error(msg.err),
	)
	if source.IsAuthError(msg.err) {
		m.authError = source.UserMessage(msg.err)
		return
	}
	m.setError("Could not mark read: " + source.UserMessage(msg.err))
}

func (m *Model) handleDetailLoaded(msg detail.LoadedMsg) tea.Cmd {
	if msg.Err != nil {
		m.logger.Warn("fetching message body failed",
			zap.String("message_id", msg.ID),
			zap.Error(msg.Err),
		)
		if source.IsAuthError(msg.Err) {
			m.authError = source.UserMessage(msg.Err)
		}
	}
	var cmd tea.Cmd
	m.detail, cmd = m.detail.Update(msg)
	return cmd
}
