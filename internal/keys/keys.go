package keys

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the global keybindings for the application.
type KeyMap struct {
	// Navigation
	Down key.Binding
	Up   key.Binding

	// Detail
	Enter  key.Binding
	Escape key.Binding

	// Selection
	Select    key.Binding
	SelectAll key.Binding

	Quit key.Binding

	// Search
	Search key.Binding

	// Command palette
	Command key.Binding

	// Help toggle
	Help key.Binding

	// Listing
	Refresh  key.Binding
	LoadMore key.Binding

	// Panels
	Sidebar   key.Binding
	Assistant key.Binding
	Tags      key.Binding

	// Quick filters
	FilterUnread     key.Binding
	FilterAttachment key.Binding
	CycleDate        key.Binding
	FilterRedundant  key.Binding
	ClearFilters     key.Binding

	// Classification edit on the active message
	Classify key.Binding
}

// DefaultKeyMap returns the default set of keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "next"),
		),
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "prev"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "close"),
		),
		Select: key.NewBinding(
			key.WithKeys("x", " "),
			key.WithHelp("x/space", "select"),
		),
		SelectAll: key.NewBinding(
			key.WithKeys("ctrl+a", "*"),
			key.WithHelp("*", "select all"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "search"),
		),
		Command: key.NewBinding(
			key.WithKeys(":"),
			key.WithHelp(":", "command palette"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		LoadMore: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "load more"),
		),
		Sidebar: key.NewBinding(
			key.WithKeys("s", "\\"),
			key.WithHelp("s", "sidebar"),
		),
		Assistant: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "assistant"),
		),
		Tags: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "tags"),
		),
		FilterUnread: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "unread only"),
		),
		FilterAttachment: key.NewBinding(
			key.WithKeys("A"),
			key.WithHelp("A", "attachments"),
		),
		CycleDate: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "date range"),
		),
		FilterRedundant: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "hide redundant"),
		),
		ClearFilters: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "clear filters"),
		),
		Classify: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "edit category"),
		),
	}
}

// ShortHelp returns the most essential keybindings for the compact help view.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.Up, k.Down, k.Enter, k.Escape,
		k.Select, k.Assistant, k.Quit, k.Help,
	}
}

// FullHelp returns all keybindings grouped by category for the expanded
// help view.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Enter, k.Escape, k.Quit},
		{k.Select, k.SelectAll, k.Refresh, k.LoadMore},
		{k.Search, k.Command, k.Help, k.Sidebar, k.Assistant, k.Tags},
		{k.FilterUnread, k.FilterAttachment, k.CycleDate, k.FilterRedundant, k.ClearFilters, k.Classify},
	}
}
