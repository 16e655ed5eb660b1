package app

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	appsync "github.com/nhle/mailboard/internal/sync"
	"github.com/nhle/mailboard/internal/theme"
	"github.com/nhle/mailboard/internal/ui/sidebar"
)

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	title := "mailboard"
	if m.provider != nil {
		title += " · " + m.provider.Name()
	}
	if m.newMail > 0 {
		title = fmt.Sprintf("%s [%d new]", title, m.newMail)
	}
	header := m.layout.RenderHeader(title, m.syncStatus())
	statusBar := m.layout.RenderStatusBar(m.keyHints())

	return m.layout.RenderWithFrame(header, m.renderContent(), statusBar)
}

func (m Model) renderContent() string {
	switch m.overlay {
	case ViewHelp:
		return m.helpView.View()
	case ViewCommand:
		return lipgloss.JoinVertical(lipgloss.Left, m.commandView.View(), m.renderDashboard())
	case ViewTags:
		return m.tagView.View()
	case ViewClassify:
		return m.classView.View()
	case ViewSettings:
		return m.configView.View()
	}
	return m.renderDashboard()
}

// renderDashboard lays out sidebar, list (with the detail pane beneath it
// when open) and assistant side by side.
func (m Model) renderDashboard() string {
	s := m.session.Snapshot()
	cols := m.layout.Split(m.showSidebar, m.showAssistant)

	var side string
	if cols.Sidebar > 0 {
		act := sidebar.Activity{
			NewMail:          m.newMail,
			ClassifyDisabled: m.pipeline == nil,
		}
		if m.pipeline != nil {
			act.Unclassified = len(m.pipeline.Unclassified(s))
			act.InFlight = m.pipeline.InFlight()
		}
		if m.poller != nil {
			act.Poll = m.poller.Status()
		}
		side = m.sidebar.View(s, m.tagNames, act)
	}

	center := m.list.View()
	if s.DetailOpen {
		center = lipgloss.JoinVertical(lipgloss.Left, center, m.detail.View())
	}

	var chat string
	if cols.Assistant > 0 {
		chat = m.chat.View()
	}
	return m.layout.RenderColumns(side, center, chat)
}

// syncStatus summarizes loading and polling for the header.
func (m Model) syncStatus() string {
	s := m.session.Snapshot()
	switch {
	case m.authError != "":
		return "⚠ signed out"
	case s.Loading:
		return "loading…"
	case s.LoadingMore:
		return "loading more…"
	}
	if m.poller != nil {
		st := m.poller.Status()
		switch st.State {
		case appsync.Running:
			return "checking…"
		case appsync.Failed:
			return "⚠ offline"
		}
	}
	return "idle"
}

// keyHints returns the status bar text: an error or status when one is
// set, otherwise keyboard hints for the current view.
func (m Model) keyHints() string {
	if m.authError != "" && m.overlay == ViewMain {
		return theme.ErrorStyle.Render(m.authError)
	}
	if m.status != "" && m.overlay == ViewMain {
		if m.statusErr {
			return theme.ErrorStyle.Render(m.status)
		}
		return m.status
	}

	switch m.overlay {
	case ViewHelp:
		return "? close help | esc back"
	case ViewCommand:
		return "enter run | tab complete | esc cancel"
	case ViewTags:
		return "space toggle | f filter | n new | e rename | d delete | esc back"
	case ViewClassify, ViewSettings:
		return "enter submit | esc cancel"
	}
	switch {
	case m.list.Searching():
		return "enter search | esc cancel"
	case m.chat.Focused():
		return "enter send | /summarize /tasks /filters | esc back"
	case m.session.Snapshot().DetailOpen:
		return "esc close | j/k next/prev | pgup/pgdn scroll | e classify | t tags"
	}
	return "q quit | ? help | / search | : command | enter open | m more | a assistant"
}
