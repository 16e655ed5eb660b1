package app

import (
	"context"
	"maps"
	"slices"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/nhle/mailboard/internal/classify"
	"github.com/nhle/mailboard/internal/filter"
	"github.com/nhle/mailboard/internal/inbox"
	"github.com/nhle/mailboard/internal/model"
	"github.com/nhle/mailboard/internal/nav"
	"github.com/nhle/mailboard/internal/store"
	appsync "github.com/nhle/mailboard/internal/sync"
)

const storeTimeout = 10 * time.Second

// session is the navigation controller's view of the application. Every
// copy of the root model shares one session; it is only touched on the
// update goroutine.
type session struct {
	inbox   *inbox.Store
	effects []nav.Effect
	// cmds collects work scheduled by store listeners during a dispatch.
	cmds []tea.Cmd
}

func (s *session) Snapshot() inbox.State { return s.inbox.State() }
func (s *session) Dispatch(a inbox.Action) inbox.State { return s.inbox.Dispatch(a) }
func (s *session) Request(e nav.Effect) { s.effects = append(s.effects, e) }

func (s *session) queue(cmd tea.Cmd) {
	if cmd != nil {
		s.cmds = append(s.cmds, cmd)
	}
}

func (s *session) takeEffects() []nav.Effect {
	out := s.effects
	s.effects = nil
	return out
}

func (s *session) takeCmds() []tea.Cmd {
	out := s.cmds
	s.cmds = nil
	return out
}

// restoredMsg carries persisted classifications and tags for newly loaded
// messages.
type restoredMsg struct {
	records []model.Classification
	tags    map[string][]string
	err     error
}

// listListener reacts to changes of the loaded message list: it feeds the
// classification pipeline (also after a failed batch when the ids did not
// change), restores persisted records for new ids and
// points the new-mail poller at the current query.
func listListener(
	sess *session,
	pipeline *classify.Pipeline,
	poller *appsync.Poller,
	st store.Store,
	now func() time.Time,
) inbox.Listener {
	return func(prev, next inbox.State, a inbox.Action) {
		switch a.(type) {
		case inbox.Replace, inbox.Append, inbox.Reset:
		default:
			return
		}
		same := sameIDs(prev.Messages, next.Messages)
		if pipeline != nil && (!same || pipeline.Retrying()) {
			sess.queue(pipeline.Observe(next))
		}
		if same {
			return
		}

		if poller != nil {
			poller.Track(filter.ToRemoteQuery(next.Filters, now()), next.LoadedIDs())
		}

		known := model.NewSet(prev.LoadedIDs()...)
		var added []string
		for _, m := range next.Messages {
			if !known.Has(m.ID) {
				added = append(added, m.ID)
			}
		}
		if len(added) > 0 && st != nil {
			sess.queue(restore(st, added))
		}
	}
}

func sameIDs(a, b []model.Message) bool {
	return slices.EqualFunc(a, b, func(x, y model.Message) bool { return x.ID == y.ID })
}

func restore(st store.Store, ids []string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()

		records, err := st.GetClassifications(ctx, ids)
		if err != nil {
			return restoredMsg{err: err}
		}
		tags, err := st.GetTagIndex(ctx, ids)
		if err != nil {
			return restoredMsg{err: err}
		}
		return restoredMsg{records: records, tags: tags}
	}
}

// applyRestored merges persisted data into the store. Tags are only added
// for messages that have none locally.
func (m *Model) applyRestored(msg restoredMsg) {
	if msg.err != nil {
		m.logger.Warn("restoring persisted state", zap.Error(msg.err))
		return
	}
	if len(msg.records) > 0 {
		m.session.Dispatch(inbox.RestoreClassifications{Records: msg.records})
	}
	if len(msg.tags) > 0 {
		index := maps.Clone(m.session.Snapshot().MessageTags)
		if index == nil {
			index = map[string][]string{}
		}
		for id, tagIDs := range msg.tags {
			if _, ok := index[id]; !ok {
				index[id] = tagIDs
			}
		}
		m.session.Dispatch(inbox.SetTagIndex{Index: index})
	}
}
