package keys

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the global keybindings for the application.
type KeyMap struct {
	// Navigation
	Down key.Binding
	Up   key.Binding

	// Selection
	Select key.Binding

	// Back / Quit
	Back key.Binding
	Quit key.Binding

	// Views
	Inbox   key.Binding
	Library key.Binding
	Catalog key.Binding

	// Command palette
	Command key.Binding

	// Help toggle
	Help key.Binding

	// Manual refresh
	Refresh key.Binding

	// Inbox actions
	MarkRead    key.Binding
	MarkAllRead key.Binding

	// Library actions
	CycleShelf key.Binding
	SetStatus  key.Binding
	Search     key.Binding

	// Catalog actions
	Ask      key.Binding
	Popular  key.Binding
	NextPage key.Binding
	PrevPage key.Binding

	// Review actions
	Like         key.Binding
	NewReview    key.Binding
	EditReview   key.Binding
	DeleteReview key.Binding
	MyReviews    key.Binding

	// Session
	Logout key.Binding
}

// DefaultKeyMap returns the default set of keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "down"),
		),
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "up"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		Inbox: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "notifications"),
		),
		Library: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "library"),
		),
		Catalog: key.NewBinding(
			key.WithKeys("3"),
			key.WithHelp("3", "browse books"),
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
		MarkRead: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "mark read"),
		),
		MarkAllRead: key.NewBinding(
			key.WithKeys("M"),
			key.WithHelp("M", "mark all read"),
		),
		CycleShelf: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "cycle shelf"),
		),
		SetStatus: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "move to next shelf"),
		),
		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "search"),
		),
		Ask: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "ask for suggestions"),
		),
		Popular: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "popular books"),
		),
		NextPage: key.NewBinding(
			key.WithKeys("]"),
			key.WithHelp("]", "next page"),
		),
		PrevPage: key.NewBinding(
			key.WithKeys("["),
			key.WithHelp("[", "previous page"),
		),
		Like: key.NewBinding(
			key.WithKeys("l"),
			key.WithHelp("l", "like / unlike"),
		),
		NewReview: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "write review"),
		),
		EditReview: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "edit my review"),
		),
		DeleteReview: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete my review"),
		),
		MyReviews: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "my reviews"),
		),
		Logout: key.NewBinding(
			key.WithKeys("ctrl+l"),
			key.WithHelp("ctrl+l", "sign out"),
		),
	}
}

// ShortHelp returns the most essential keybindings for the compact help view.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.Up, k.Down, k.Select, k.Back,
		k.Inbox, k.Library, k.Catalog, k.Quit, k.Help,
	}
}

// FullHelp returns all keybindings grouped by category for the expanded
// help view.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Select, k.Back, k.Quit},
		{k.Inbox, k.Library, k.Catalog, k.Command, k.Help, k.Refresh},
		{k.MarkRead, k.MarkAllRead},
		{k.CycleShelf, k.SetStatus, k.Search},
		{k.Ask, k.Popular, k.NextPage, k.PrevPage},
		{k.Like, k.NewReview, k.EditReview, k.DeleteReview, k.MyReviews},
		{k.Logout},
	}
}
