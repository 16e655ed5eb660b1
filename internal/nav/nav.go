// Package nav translates user inputs into store actions and side-effect
// requests. It always operates on the visible (filtered) list.
package nav

import (
	"github.com/nhle/mailboard/internal/inbox"
)

// Input is a user intent.
type Input int

const (
	Next Input = iota
	Prev
	Open
	Close
	ToggleActiveSelection
	SelectAll
	Refresh
	LoadMore
	ToggleSidebar
	ToggleAssistant
	Help
)

func (i Input) String() string {
	switch i {
	case Next:
		return "next"
	case Prev:
		return "prev"
	case Open:
		return "open"
	case Close:
		return "close"
	case ToggleActiveSelection:
		return "toggle-select"
	case SelectAll:
		return "select-all"
	case Refresh:
		return "refresh"
	case LoadMore:
		return "load-more"
	case ToggleSidebar:
		return "toggle-sidebar"
	case ToggleAssistant:
		return "toggle-assistant"
	case Help:
		return "help"
	}
	return "unknown"
}

// EffectKind names a side effect the controller asks the shell to perform.
type EffectKind int

const (
	// FetchDetail loads the full body of MessageID and marks it read.
	FetchDetail EffectKind = iota
	// FetchFirstPage loads page one for Generation.
	FetchFirstPage
	// FetchNextPage loads the page after Cursor for Generation.
	FetchNextPage
	ShowSidebar
	ShowAssistant
	ShowHelp
)

// Effect is a side-effect request.
type Effect struct {
	Kind       EffectKind
	MessageID  string
	Cursor     string
	Generation uint64
}

// Accessor is the controller's view of the application.
type Accessor interface {
	Snapshot() inbox.State
	Dispatch(a inbox.Action) inbox.State
	Request(e Effect)
}

// Controller is the navigation state machine.
type Controller struct {
	acc Accessor
}

// New returns a controller over acc.
func New(acc Accessor) *Controller {
	return &Controller{acc: acc}
}

// Handle applies one input. It reports whether the input did anything.
func (c *Controller) Handle(in Input) bool {
	s := c.acc.Snapshot()

	switch in {
	case Next:
		visible := s.Visible()
		idx := s.ActiveIndex(visible)
		switch {
		case len(visible) == 0:
			return false
		case idx < 0:
			c.acc.Dispatch(inbox.SetActive{ID: visible[0].ID})
		case idx < len(visible)-1:
			c.acc.Dispatch(inbox.SetActive{ID: visible[idx+1].ID})
		default:
			return false
		}
		return true

	case Prev:
		visible := s.Visible()
		idx := s.ActiveIndex(visible)
		if idx <= 0 {
			return false
		}
		c.acc.Dispatch(inbox.SetActive{ID: visible[idx-1].ID})
		return true

	case Open:
		if s.ActiveIndex(s.Visible()) < 0 {
			return false
		}
		c.acc.Dispatch(inbox.OpenDetail{})
		c.acc.Request(Effect{Kind: FetchDetail, MessageID: s.ActiveID})
		return true

	case Close:
		switch {
		case s.DetailOpen:
			c.acc.Dispatch(inbox.CloseDetail{})
		case len(s.Selected) > 0:
			c.acc.Dispatch(inbox.ClearSelection{})
		case s.ActiveID != "":
			c.acc.Dispatch(inbox.SetActive{ID: ""})
		default:
			return false
		}
		return true

	case ToggleActiveSelection:
		if s.ActiveIndex(s.Visible()) < 0 {
			return false
		}
		c.acc.Dispatch(inbox.ToggleSelect{ID: s.ActiveID})
		return true

	case SelectAll:
		c.acc.Dispatch(inbox.SelectAll{})
		return true

	case Refresh:
		next := c.acc.Dispatch(inbox.BeginFetch{})
		c.acc.Request(Effect{Kind: FetchFirstPage, Generation: next.Generation})
		return true

	case LoadMore:
		if !s.HasMore || s.LoadingMore || s.Loading {
			return false
		}
		next := c.acc.Dispatch(inbox.BeginLoadMore{})
		c.acc.Request(Effect{
			Kind:       FetchNextPage,
			Cursor:     next.Cursor,
			Generation: next.Generation,
		})
		return true

	case ToggleSidebar:
		c.acc.Request(Effect{Kind: ShowSidebar})
		return true

	case ToggleAssistant:
		c.acc.Request(Effect{Kind: ShowAssistant})
		return true

	case Help:
		c.acc.Request(Effect{Kind: ShowHelp})
		return true
	}
	return false
}
