package library

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/readonme/internal/keys"
	"github.com/nhle/readonme/internal/model"
	"github.com/nhle/readonme/internal/theme"
)

// LoadMsg asks for the cached entries of a shelf. A nil Status means all
// shelves; a non-empty Query searches instead.
type LoadMsg struct {
	Status *model.ReadingStatus
	Query  string
}

// LoadedMsg carries entries read from the cache.
type LoadedMsg struct {
	Entries []model.LibraryEntry
	Counts  map[model.ReadingStatus]int
	Err     error
}

// SetStatusMsg asks for a book to be moved to another shelf.
type SetStatusMsg struct {
	Book   model.Book
	Status model.ReadingStatus
}

// OpenReviewsMsg asks for the reviews of a book.
type OpenReviewsMsg struct {
	Book model.Book
}

type item struct {
	e model.LibraryEntry
}

func (i item) FilterValue() string { return i.e.Title }

type delegate struct{}

func (delegate) Height() int                         { return 1 }
func (delegate) Spacing() int                        { return 0 }
func (delegate) Update(tea.Msg, *list.Model) tea.Cmd { return nil }

func (delegate) Render(w io.Writer, m list.Model, index int, li list.Item) {
	it, ok := li.(item)
	if !ok {
		return
	}
	e := it.e

	badge := theme.ShelfStyle(string(e.Status)).Render(e.Status.Label())
	authors := theme.DimmedStyle.Render(e.Authors)
	line := fmt.Sprintf("%s %s  %s", badge, e.Title, authors)

	if index == m.Index() {
		line = theme.SelectedItemStyle.Render(line)
	} else {
		line = theme.ListItemStyle.Render(line)
	}
	fmt.Fprint(w, line)
}

// shelves is the order tab cycles through; nil means all.
var shelves = []*model.ReadingStatus{
	nil,
	statusPtr(model.StatusToRead),
	statusPtr(model.StatusReading),
	statusPtr(model.StatusCompleted),
}

func statusPtr(s model.ReadingStatus) *model.ReadingStatus { return &s }

// NextStatus returns the shelf after s, wrapping around.
func NextStatus(s model.ReadingStatus) model.ReadingStatus {
	return s.Next()
}

// Model is the reading-list view.
type Model struct {
	list        list.Model
	keys        *keys.KeyMap
	shelfIndex  int
	counts      map[model.ReadingStatus]int
	searchMode  bool
	searchInput textinput.Model
	query       string
	width       int
	height      int
}

// New creates a library view.
func New(k *keys.KeyMap, width, height int) Model {
	l := list.New(nil, delegate{}, width, height-1)
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.KeyMap.Quit.SetEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	si := textinput.New()
	si.Placeholder = "search title or author..."
	si.Prompt = "/ "
	si.Width = width - 4

	m := Model{list: l, keys: k, searchInput: si, width: width, height: height}
	m.list.Title = m.title()
	return m
}

// Load returns the message requesting the current shelf or search.
func (m Model) Load() tea.Cmd {
	msg := LoadMsg{Status: shelves[m.shelfIndex], Query: m.query}
	return func() tea.Msg { return msg }
}

// Update handles messages for the library view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case LoadedMsg:
		if msg.Err != nil {
			return m, nil
		}
		if msg.Counts != nil {
			m.counts = msg.Counts
		}
		items := make([]list.Item, len(msg.Entries))
		for i, e := range msg.Entries {
			items[i] = item{e: e}
		}
		m.list.Title = m.title()
		return m, m.list.SetItems(items)

	case tea.KeyMsg:
		if m.searchMode {
			return m.handleSearchKeys(msg)
		}
		return m.handleNormalKeys(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// Searching reports whether the search input has focus.
func (m Model) Searching() bool {
	return m.searchMode
}

func (m Model) handleSearchKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searchMode = false
		m.query = m.searchInput.Value()
		m.list.Title = m.title()
		return m, m.Load()
	case "esc":
		m.searchMode = false
		m.searchInput.Reset()
		m.query = ""
		m.list.Title = m.title()
		return m, m.Load()
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

func (m Model) handleNormalKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.CycleShelf):
		m.shelfIndex = (m.shelfIndex + 1) % len(shelves)
		m.query = ""
		m.list.Title = m.title()
		return m, m.Load()

	case key.Matches(msg, m.keys.Search):
		m.searchMode = true
		m.searchInput.Reset()
		return m, m.searchInput.Focus()

	case key.Matches(msg, m.keys.SetStatus):
		it, ok := m.list.SelectedItem().(item)
		if !ok {
			return m, nil
		}
		next := SetStatusMsg{Book: it.e.Book, Status: NextStatus(it.e.Status)}
		return m, func() tea.Msg { return next }

	case key.Matches(msg, m.keys.Select):
		it, ok := m.list.SelectedItem().(item)
		if !ok {
			return m, nil
		}
		book := it.e.Book
		return m, func() tea.Msg { return OpenReviewsMsg{Book: book} }
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// SetQuery searches the cache for q.
func (m *Model) SetQuery(q string) tea.Cmd {
	m.query = q
	m.list.Title = m.title()
	return m.Load()
}

func (m Model) title() string {
	if m.query != "" {
		return fmt.Sprintf("Library: %q", m.query)
	}
	shelf := shelves[m.shelfIndex]
	if shelf == nil {
		total := 0
		for _, n := range m.counts {
			total += n
		}
		return fmt.Sprintf("Library: all (%d)", total)
	}
	return fmt.Sprintf("Library: %s (%d)", shelf.Label(), m.counts[*shelf])
}

// View renders the library.
func (m Model) View() string {
	var top string
	if m.searchMode {
		top = lipgloss.NewStyle().Padding(0, 1).Render(m.searchInput.View())
	}

	if len(m.list.Items()) == 0 {
		empty := lipgloss.NewStyle().
			Width(m.width).
			Height(m.height-1).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray).
			Render("No books here.\nPress tab for another shelf or r to refresh.")
		return lipgloss.JoinVertical(lipgloss.Left, top, empty)
	}
	if top == "" {
		return m.list.View()
	}
	return lipgloss.JoinVertical(lipgloss.Left, top, m.list.View())
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-1)
	m.searchInput.Width = width - 4
}
