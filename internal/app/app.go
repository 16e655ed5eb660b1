package app

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/nhle/mailboard/internal/ai"
	"github.com/nhle/mailboard/internal/classify"
	"github.com/nhle/mailboard/internal/credential"
	"github.com/nhle/mailboard/internal/inbox"
	"github.com/nhle/mailboard/internal/keys"
	"github.com/nhle/mailboard/internal/model"
	"github.com/nhle/mailboard/internal/nav"
	"github.com/nhle/mailboard/internal/source"
	"github.com/nhle/mailboard/internal/store"
	appsync "github.com/nhle/mailboard/internal/sync"
	"github.com/nhle/mailboard/internal/ui"
	"github.com/nhle/mailboard/internal/ui/assistant"
	"github.com/nhle/mailboard/internal/ui/classform"
	"github.com/nhle/mailboard/internal/ui/command"
	configview "github.com/nhle/mailboard/internal/ui/config"
	"github.com/nhle/mailboard/internal/ui/detail"
	helpview "github.com/nhle/mailboard/internal/ui/help"
	"github.com/nhle/mailboard/internal/ui/maillist"
	"github.com/nhle/mailboard/internal/ui/sidebar"
	"github.com/nhle/mailboard/internal/ui/tagmgr"
)

// ViewState is the overlay currently drawn over the dashboard.
type ViewState int

const (
	ViewMain ViewState = iota
	ViewHelp
	ViewCommand
	ViewTags
	ViewClassify
	ViewSettings
)

// Options wires the root model to its collaborators. Store, Classifier,
// Assistant and Poller may be nil; the matching features are disabled.
type Options struct {
	Provider    source.Provider
	Store       store.Store
	Classifier  classify.Service
	Assistant   *ai.Assistant
	Poller      *appsync.Poller
	Config      *model.AppConfig
	ConfigPath  string
	Credentials credential.Store
	Preferences store.Preferences
	Logger      *zap.Logger
	// Now overrides the clock in tests.
	Now func() time.Time
}

// Model is the root Bubble Tea model. It owns the views and routes
// messages between them, the email store and the background workers.
type Model struct {
	provider  source.Provider
	store     store.Store
	pipeline  *classify.Pipeline
	assistant *ai.Assistant
	poller    *appsync.Poller
	logger    *zap.Logger
	cfg       *model.AppConfig
	now       func() time.Time

	session *session
	nav     *nav.Controller
	keys    *keys.KeyMap

	list        maillist.Model
	detail      detail.Model
	sidebar     sidebar.Model
	chat        assistant.Model
	helpView    helpview.Model
	commandView command.Model
	tagView     tagmgr.Model
	classView   classform.Model
	configView  configview.Model

	overlay ViewState
	layout  ui.Layout
	ready   bool
	// detailShown is the DetailOpen value the panel sizes were computed for.
	detailShown bool

	showSidebar   bool
	showAssistant bool

	tags     []model.Tag
	tagNames map[string]string

	newMail   int
	status    string
	statusErr bool
	authError string

	// checking is set while a user-requested poll is outstanding.
	checking bool
}

// New creates the root model and subscribes it to the email store.
func New(opts Options) Model {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = model.DefaultConfig()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	if opts.Preferences.PageSize > 0 {
		cfg.Provider.PageSize = opts.Preferences.PageSize
	}

	var pipeline *classify.Pipeline
	if opts.Classifier != nil {
		popts := []classify.Option{
			classify.WithDebounce(time.Duration(cfg.Classify.DebounceMS) * time.Millisecond),
			classify.WithBatchSize(cfg.Classify.BatchSize),
			classify.WithLogger(logger.Named("classify")),
		}
		if opts.Store != nil {
			popts = append(popts, classify.WithPersister(opts.Store))
		}
		pipeline = classify.New(opts.Classifier, popts...)
	}

	sess := &session{inbox: inbox.NewStore(inbox.NewState())}
	sess.inbox.Subscribe(listListener(sess, pipeline, opts.Poller, opts.Store, now))

	km := keys.DefaultKeyMap()
	return Model{
		provider:  opts.Provider,
		store:     opts.Store,
		pipeline:  pipeline,
		assistant: opts.Assistant,
		poller:    opts.Poller,
		logger:    logger,
		cfg:       cfg,
		now:       now,

		session: sess,
		nav:     nav.New(sess),
		keys:    km,

		list:        maillist.New(80, 24),
		detail:      detail.New(80, 24),
		sidebar:     sidebar.New(26, 24),
		chat:        assistant.New(opts.Assistant != nil, 40, 24),
		helpView:    helpview.New(km, 80, 24),
		commandView: command.New(80, 24),
		tagView:     tagmgr.New(opts.Store, km, 80, 24),
		classView:   classform.New(80, 24),
		configView:  configview.New(opts.ConfigPath, opts.Credentials, 80, 24),

		showSidebar:   opts.Preferences.SidebarVisible,
		showAssistant: opts.Preferences.AssistantVisible,
		tagNames:      map[string]string{},
	}
}

// Init loads the first page and tags and starts the new-mail poller.
func (m Model) Init() tea.Cmd {
	next := m.session.Dispatch(inbox.BeginFetch{})
	m.session.Request(nav.Effect{Kind: nav.FetchFirstPage, Generation: next.Generation})

	cmds := []tea.Cmd{m.runEffects()}
	if m.store != nil {
		cmds = append(cmds, m.tagView.LoadTags())
	}
	if m.poller != nil {
		cmds = append(cmds, m.poller.Start())
	}
	return tea.Batch(cmds...)
}

// Update handles one message and flushes the work it scheduled.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	cmd := m.update(msg)
	return m, m.flush(cmd)
}

// flush turns queued effects and listener commands into one batch and
// brings the views up to date with the store.
func (m *Model) flush(cmd tea.Cmd) tea.Cmd {
	cmds := []tea.Cmd{cmd}
	for {
		effects := m.runEffects()
		queued := m.session.takeCmds()
		if effects == nil && len(queued) == 0 {
			break
		}
		cmds = append(cmds, effects)
		cmds = append(cmds, queued...)
	}
	cmds = append(cmds, m.syncViews())
	return tea.Batch(cmds...)
}

func (m *Model) syncViews() tea.Cmd {
	s := m.session.Snapshot()
	var pending func(string) bool
	if m.pipeline != nil {
		pending = m.pipeline.IsInFlight
	}
	if s.DetailOpen != m.detailShown {
		m.detailShown = s.DetailOpen
		m.resize()
	}
	if s.DetailOpen {
		m.syncDetailMeta()
	}
	return m.list.SetState(s, m.tagNames, pending)
}

func (m *Model) syncDetailMeta() {
	s := m.session.Snapshot()
	id := m.detail.ID()
	m.detail.SetMeta(s.Classification(id), m.tagLabels(s.MessageTags[id]))
}

func (m *Model) update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		m.resize()
		return m.forwardOverlay(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case pageMsg:
		m.handlePage(msg)
		return nil

	case detail.LoadedMsg:
		return m.handleDetailLoaded(msg)

	case markReadMsg:
		m.handleMarkRead(msg)
		return nil

	case restoredMsg:
		m.applyRestored(msg)
		return nil

	case classify.TickMsg:
		if m.pipeline == nil {
			return nil
		}
		return m.pipeline.HandleTick(msg, m.session.Snapshot())

	case classify.ResultMsg:
		if m.pipeline == nil {
			return nil
		}
		return m.pipeline.HandleResult(msg, m.session.inbox)

	case appsync.NewMailMsg:
		if msg.Err == nil {
			m.newMail = msg.Count
		}
		if m.checking {
			m.checking = false
			switch {
			case msg.Err != nil:
				m.setError(source.UserMessage(msg.Err))
			case msg.Count == 0:
				m.setStatus("No new mail")
			default:
				m.setStatus(fmt.Sprintf("%d new (refresh to load)", msg.Count))
			}
		}
		return m.poller.WaitForNextResult()

	case maillist.SearchMsg:
		if msg.Cancelled {
			return nil
		}
		m.updateFilters(func(f *model.FilterState) { f.Search = msg.Query })
		return nil

	case prefsSavedMsg:
		if msg.err != nil {
			m.logger.Warn("saving preferences", zap.Error(msg.err))
		}
		return nil

	case manualSavedMsg:
		if msg.err != nil {
			m.logger.Warn("saving classification",
				zap.String("message_id", msg.id),
				zap.Error(msg.err),
			)
			m.setError("Could not save classification")
		}
		return nil

	case command.ExecMsg:
		m.closeOverlay()
		return m.execute(msg.Command)

	case command.CancelMsg:
		m.closeOverlay()
		return nil

	case classform.SubmitMsg:
		m.closeOverlay()
		return m.applyManual(msg.Classification)

	case classform.CancelMsg:
		m.closeOverlay()
		return nil

	case configview.SavedMsg:
		return m.handleSettingsSaved(msg)

	case configview.CancelMsg:
		m.closeOverlay()
		return nil

	case tagmgr.TagsLoadedMsg:
		if msg.Err == nil {
			m.setTags(msg.Tags)
		}
		return m.forwardTags(msg)

	case tagmgr.MessageTagsMsg:
		if msg.Err != nil {
			m.logger.Warn("saving message tags", zap.String("message_id", msg.MessageID), zap.Error(msg.Err))
			m.tagView.SetTargetTags(msg.MessageID, m.session.Snapshot().MessageTags[msg.MessageID])
		} else {
			m.session.Dispatch(inbox.SetTags{MessageID: msg.MessageID, TagIDs: msg.TagIDs})
		}
		return m.forwardTags(msg)

	case tagmgr.TagDeletedMsg:
		if msg.Err == nil {
			m.session.Dispatch(inbox.RemoveTag{TagID: msg.ID})
			m.dropTagFilter(msg.ID)
		}
		return m.forwardTags(msg)

	case tagmgr.FilterMsg:
		m.closeOverlay()
		m.toggleTagFilter(msg.TagID)
		return nil

	case tagmgr.CloseMsg:
		m.closeOverlay()
		return nil

	case assistant.AskMsg:
		return m.ask(msg)

	case assistant.QuickMsg:
		return m.runQuick(msg.Kind)

	case assistant.ApplyMsg:
		m.applySuggestion(msg.Suggestion)
		return nil

	case assistant.BlurMsg:
		return nil

	case assistant.ReplyMsg, assistant.ResultMsg:
		var cmd tea.Cmd
		m.chat, cmd = m.chat.Update(msg)
		return cmd
	}

	return m.forwardOverlay(msg)
}

// forwardOverlay passes msg to the open overlay, or to the panels that
// run their own ticks (spinner, cursor blink) when none is open.
func (m *Model) forwardOverlay(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch m.overlay {
	case ViewCommand:
		m.commandView, cmd = m.commandView.Update(msg)
	case ViewTags:
		m.tagView, cmd = m.tagView.Update(msg)
	case ViewClassify:
		m.classView, cmd = m.classView.Update(msg)
	case ViewSettings:
		m.configView, cmd = m.configView.Update(msg)
	default:
		var listCmd, chatCmd tea.Cmd
		m.list, listCmd = m.list.Update(msg)
		m.chat, chatCmd = m.chat.Update(msg)
		cmd = tea.Batch(listCmd, chatCmd)
	}
	return cmd
}

func (m *Model) forwardTags(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	m.tagView, cmd = m.tagView.Update(msg)
	return cmd
}

// handleKey routes a key press: overlays first, then text inputs, then
// the global bindings, then the navigation controller.
func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if msg.String() == "ctrl+c" {
		return m.quit()
	}

	switch m.overlay {
	case ViewHelp:
		if key.Matches(msg, m.keys.Escape, m.keys.Help, m.keys.Quit) {
			m.closeOverlay()
		}
		return nil
	case ViewCommand, ViewTags, ViewClassify, ViewSettings:
		return m.forwardOverlay(msg)
	}

	if m.list.Searching() {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return cmd
	}
	if m.chat.Focused() {
		var cmd tea.Cmd
		m.chat, cmd = m.chat.Update(msg)
		return cmd
	}

	s := m.session.Snapshot()
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit()
	case key.Matches(msg, m.keys.Search):
		return m.list.StartSearch(s.Filters.Search)
	case key.Matches(msg, m.keys.Command):
		m.openOverlay(ViewCommand)
		return m.commandView.Focus()
	case key.Matches(msg, m.keys.Tags):
		return m.openTags()
	case key.Matches(msg, m.keys.Classify):
		return m.openClassify()
	case key.Matches(msg, m.keys.FilterUnread):
		m.updateFilters(func(f *model.FilterState) { f.UnreadOnly = !f.UnreadOnly })
		return nil
	case key.Matches(msg, m.keys.FilterAttachment):
		m.updateFilters(func(f *model.FilterState) { f.HasAttachment = !f.HasAttachment })
		return nil
	case key.Matches(msg, m.keys.CycleDate):
		m.updateFilters(func(f *model.FilterState) { f.DateRange = nextDateRange(f.DateRange) })
		return nil
	case key.Matches(msg, m.keys.FilterRedundant):
		m.updateFilters(func(f *model.FilterState) { f.ExcludeRedundant = !f.ExcludeRedundant })
		return nil
	case key.Matches(msg, m.keys.ClearFilters):
		m.updateFilters(func(f *model.FilterState) { *f = model.FilterState{} })
		return nil
	}

	if in, ok := nav.InputForKey(msg, m.keys, false); ok {
		m.handleInput(in)
		return nil
	}

	if s.DetailOpen {
		var cmd tea.Cmd
		m.detail, cmd = m.detail.Update(msg)
		return cmd
	}
	return nil
}

// handleInput runs one navigation input. Moving while the detail pane is
// open loads the newly active message.
func (m *Model) handleInput(in nav.Input) {
	before := m.session.Snapshot()
	if !m.nav.Handle(in) {
		return
	}
	after := m.session.Snapshot()
	if before.DetailOpen && after.DetailOpen && after.ActiveID != "" && after.ActiveID != before.ActiveID {
		m.session.Request(nav.Effect{Kind: nav.FetchDetail, MessageID: after.ActiveID})
	}
	if in == nav.Refresh {
		m.newMail = 0
		m.status = ""
	}
}

func (m *Model) openOverlay(v ViewState) {
	m.overlay = v
	m.chat.Blur()
}

func (m *Model) closeOverlay() {
	m.overlay = ViewMain
}

func (m *Model) openTags() tea.Cmd {
	if m.store == nil {
		m.setError("Tags need the local database")
		return nil
	}
	s := m.session.Snapshot()
	var id, subject string
	if msg, ok := s.Message(s.ActiveID); ok {
		id, subject = msg.ID, msg.Subject
	}
	m.openOverlay(ViewTags)
	return m.tagView.Open(id, subject, s.MessageTags[id])
}

func (m *Model) openClassify() tea.Cmd {
	s := m.session.Snapshot()
	msg, ok := s.Message(s.ActiveID)
	if !ok {
		m.setError("No message selected")
		return nil
	}
	m.openOverlay(ViewClassify)
	return m.classView.Start(msg, s.Classification(msg.ID))
}

func (m *Model) openSettings() tea.Cmd {
	m.openOverlay(ViewSettings)
	return m.configView.Start(m.cfg)
}

func (m *Model) toggleAssistant() tea.Cmd {
	m.showAssistant = !m.showAssistant
	m.resize()
	save := m.savePreferences()
	if !m.showAssistant {
		m.chat.Blur()
		return save
	}
	return tea.Batch(save, m.chat.Focus())
}

func (m *Model) quit() tea.Cmd {
	if m.poller != nil {
		m.poller.Stop()
	}
	return tea.Quit
}

func (m *Model) setError(text string) {
	m.status = text
	m.statusErr = true
}

func (m *Model) setStatus(text string) {
	m.status = text
	m.statusErr = false
}

func (m *Model) setTags(tags []model.Tag) {
	m.tags = tags
	m.tagNames = make(map[string]string, len(tags))
	for _, t := range tags {
		m.tagNames[t.ID] = t.Name
	}
}

func (m *Model) tagLabels(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if name, ok := m.tagNames[id]; ok {
			out = append(out, name)
		}
	}
	return out
}

// prefsSavedMsg reports the outcome of persisting UI preferences.
type prefsSavedMsg struct{ err error }

func (m *Model) savePreferences() tea.Cmd {
	if m.store == nil {
		return nil
	}
	st := m.store
	prefs := store.Preferences{
		SidebarVisible:   m.showSidebar,
		AssistantVisible: m.showAssistant,
		PageSize:         m.cfg.Provider.PageSize,
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		return prefsSavedMsg{err: st.SavePreferences(ctx, prefs)}
	}
}

// manualSavedMsg reports the outcome of persisting a manual classification.
type manualSavedMsg struct {
	id  string
	err error
}

// applyManual stores a user-edited classification locally and on disk.
func (m *Model) applyManual(c model.Classification) tea.Cmd {
	m.session.Dispatch(inbox.SetClassification{Classification: c})
	m.setStatus("Classification saved")
	if m.store == nil {
		return nil
	}
	st := m.store
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		return manualSavedMsg{id: c.MessageID, err: st.SetManualClassification(ctx, c)}
	}
}

func (m *Model) handleSettingsSaved(msg configview.SavedMsg) tea.Cmd {
	if msg.Err != nil {
		m.logger.Warn("saving settings", zap.Error(msg.Err))
		var cmd tea.Cmd
		m.configView, cmd = m.configView.Update(msg)
		return cmd
	}
	m.closeOverlay()

	pageChanged := msg.Config.Provider.PageSize != m.cfg.Provider.PageSize
	m.cfg = msg.Config
	if msg.Restart {
		m.setStatus("Settings saved, restart to apply")
	} else {
		m.setStatus("Settings saved")
	}
	if !pageChanged {
		return nil
	}
	m.handleInput(nav.Refresh)
	return m.savePreferences()
}

// resize hands each panel its share of the content area.
func (m *Model) resize() {
	if !m.ready {
		return
	}
	width := m.layout.ContentWidth()
	height := m.layout.ContentHeight()
	cols := m.layout.Split(m.showSidebar, m.showAssistant)

	m.sidebar.SetSize(cols.Sidebar, height)
	m.chat.SetSize(cols.Assistant, height)

	listHeight, detailHeight := height, height
	if m.detailShown {
		listHeight = height * 2 / 5
		detailHeight = height - listHeight
	}
	m.list.SetSize(cols.List, listHeight)
	m.detail.SetSize(cols.List, detailHeight)

	m.helpView.SetSize(width, height)
	m.commandView.SetSize(width, height)
	m.tagView.SetSize(width, height)
	m.classView.SetSize(width, height)
	m.configView.SetSize(width, height)
}
