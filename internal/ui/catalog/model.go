package catalog

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/readonme/internal/catalog"
	"github.com/nhle/readonme/internal/keys"
	"github.com/nhle/readonme/internal/model"
	"github.com/nhle/readonme/internal/theme"
)

// SearchMsg asks for a result list. An empty Query means the popular
// list; Ask routes Query to the recommendation assistant.
type SearchMsg struct {
	Query string
	Page  int
	Ask   bool
}

// ResultsMsg carries the answer to a SearchMsg.
type ResultsMsg struct {
	Request SearchMsg
	Results catalog.Results
	Err     error
}

// OpenMsg asks for the detail page of a book.
type OpenMsg struct {
	ISBN string
}

// DetailMsg carries a loaded detail page and the user's shelf for it.
type DetailMsg struct {
	Detail catalog.Detail
	Shelf  model.ReadingStatus
	Err    error
}

// OpenReviewsMsg asks for the reviews of the book on the detail page.
type OpenReviewsMsg struct {
	Book model.Book
}

// SetStatusMsg asks for the book on the detail page to be shelved.
type SetStatusMsg struct {
	Book   model.Book
	Status model.ReadingStatus
}

type item struct {
	h catalog.Hit
}

func (i item) FilterValue() string { return i.h.Title }

type delegate struct{}

func (delegate) Height() int                         { return 1 }
func (delegate) Spacing() int                        { return 0 }
func (delegate) Update(tea.Msg, *list.Model) tea.Cmd { return nil }

func (delegate) Render(w io.Writer, m list.Model, index int, li list.Item) {
	it, ok := li.(item)
	if !ok {
		return
	}
	h := it.h

	line := h.Title
	if h.Authors != "" {
		line += "  " + theme.DimmedStyle.Render(h.Authors)
	}
	if h.Rating > 0 {
		line += "  " + theme.RatingStyle.Render(fmt.Sprintf("★ %.1f", h.Rating))
	}

	switch {
	case index == m.Index():
		line = theme.SelectedItemStyle.Render(line)
	case h.ISBN == "":
		line = theme.DimmedStyle.Render(theme.ListItemStyle.Render(line))
	default:
		line = theme.ListItemStyle.Render(line)
	}
	fmt.Fprint(w, line)
}

type inputMode int

const (
	inputNone inputMode = iota
	inputSearch
	inputAsk
)

// Model browses the catalog: a result list and a book page.
type Model struct {
	list    list.Model
	keys    *keys.KeyMap
	input   textinput.Model
	mode    inputMode
	request SearchMsg
	pending SearchMsg
	more    bool
	loading bool
	errText string

	detail  *catalog.Detail
	shelf   model.ReadingStatus
	opening bool

	width  int
	height int
}

// New creates an empty catalog view.
func New(k *keys.KeyMap, width, height int) Model {
	l := list.New(nil, delegate{}, width, height-1)
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.KeyMap.Quit.SetEnabled(false)
	l.Styles.Title = theme.HeaderStyle
	l.Title = "Books"

	in := textinput.New()
	in.Width = width - 4
	in.CharLimit = 200

	return Model{list: l, keys: k, input: in, width: width, height: height}
}

// Load asks for the current result list again, the popular list at first.
func (m *Model) Load() tea.Cmd {
	return m.search(m.request)
}

// Find starts a keyword or assistant search from outside the view.
func (m *Model) Find(query string, ask bool) tea.Cmd {
	m.detail = nil
	return m.search(SearchMsg{Query: query, Page: 1, Ask: ask})
}

func (m *Model) search(req SearchMsg) tea.Cmd {
	m.loading = true
	m.pending = req
	m.errText = ""
	return func() tea.Msg { return req }
}

// Inputting reports whether the query input has focus.
func (m Model) Inputting() bool {
	return m.mode != inputNone
}

// InDetail reports whether a book page is on screen.
func (m Model) InDetail() bool {
	return m.detail != nil
}

// Book returns the book on the detail page.
func (m Model) Book() (model.Book, bool) {
	if m.detail == nil {
		return model.Book{}, false
	}
	return m.detail.Book.Book, true
}

// SetShelf updates the shelf shown on the detail page after a move.
func (m *Model) SetShelf(bookID int64, status model.ReadingStatus) {
	if m.detail != nil && m.detail.Book.ID == bookID {
		m.shelf = status
	}
}

// Update handles messages for the catalog view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ResultsMsg:
		if msg.Request != m.pending {
			return m, nil
		}
		m.loading = false
		if msg.Err != nil {
			m.errText = msg.Err.Error()
			return m, nil
		}
		m.request = msg.Request
		m.more = msg.Results.More
		m.list.Title = msg.Results.Title
		if m.request.Page > 1 {
			m.list.Title = fmt.Sprintf("%s (page %d)", m.list.Title, m.request.Page)
		}
		items := make([]list.Item, len(msg.Results.Hits))
		for i, h := range msg.Results.Hits {
			items[i] = item{h: h}
		}
		m.list.Select(0)
		return m, m.list.SetItems(items)

	case DetailMsg:
		m.opening = false
		if msg.Err != nil {
			m.errText = msg.Err.Error()
			return m, nil
		}
		d := msg.Detail
		m.detail = &d
		m.shelf = msg.Shelf
		return m, nil

	case tea.KeyMsg:
		switch {
		case m.mode != inputNone:
			return m.handleInputKeys(msg)
		case m.detail != nil:
			return m.handleDetailKeys(msg)
		default:
			return m.handleListKeys(msg)
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) handleInputKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		q := strings.TrimSpace(m.input.Value())
		ask := m.mode == inputAsk
		m.mode = inputNone
		m.input.Blur()
		if q == "" {
			return m, nil
		}
		return m, m.search(SearchMsg{Query: q, Page: 1, Ask: ask})
	case "esc":
		m.mode = inputNone
		m.input.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleListKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Search):
		return m, m.focusInput(inputSearch)

	case key.Matches(msg, m.keys.Ask):
		return m, m.focusInput(inputAsk)

	case key.Matches(msg, m.keys.Popular):
		return m, m.search(SearchMsg{})

	case key.Matches(msg, m.keys.NextPage):
		if !m.pageable() || !m.more {
			return m, nil
		}
		next := m.request
		next.Page++
		return m, m.search(next)

	case key.Matches(msg, m.keys.PrevPage):
		if !m.pageable() || m.request.Page <= 1 {
			return m, nil
		}
		prev := m.request
		prev.Page--
		return m, m.search(prev)

	case key.Matches(msg, m.keys.Select):
		it, ok := m.list.SelectedItem().(item)
		if !ok || it.h.ISBN == "" {
			return m, nil
		}
		m.opening = true
		isbn := it.h.ISBN
		return m, func() tea.Msg { return OpenMsg{ISBN: isbn} }
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) handleDetailKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	book := m.detail.Book.Book
	switch {
	case key.Matches(msg, m.keys.Back):
		m.detail = nil
		return m, nil

	case key.Matches(msg, m.keys.Select):
		return m, func() tea.Msg { return OpenReviewsMsg{Book: book} }

	case key.Matches(msg, m.keys.SetStatus):
		next := SetStatusMsg{Book: book, Status: m.shelf.Next()}
		return m, func() tea.Msg { return next }
	}
	return m, nil
}

func (m *Model) focusInput(mode inputMode) tea.Cmd {
	m.mode = mode
	m.input.Reset()
	if mode == inputAsk {
		m.input.Prompt = "ask: "
		m.input.Placeholder = "describe the book you are after..."
	} else {
		m.input.Prompt = "/ "
		m.input.Placeholder = "title, author or ISBN..."
	}
	return m.input.Focus()
}

// pageable reports whether the current list is a keyword search.
func (m Model) pageable() bool {
	return m.request.Query != "" && !m.request.Ask
}

// View renders the list or the book page.
func (m Model) View() string {
	if m.detail != nil {
		return m.detailView()
	}

	var top string
	switch {
	case m.mode != inputNone:
		top = lipgloss.NewStyle().Padding(0, 1).Render(m.input.View())
	case m.opening:
		top = lipgloss.NewStyle().Padding(0, 1).Foreground(theme.ColorGray).Render("Opening...")
	case m.errText != "":
		top = lipgloss.NewStyle().Padding(0, 1).Foreground(theme.ColorRed).Render(m.errText)
	}

	if len(m.list.Items()) == 0 {
		text := "No books. Press / to search, a to ask for suggestions or p for popular books."
		if m.loading {
			text = "Loading..."
		}
		empty := lipgloss.NewStyle().
			Width(m.width).
			Height(m.height-1).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray).
			Render(text)
		return lipgloss.JoinVertical(lipgloss.Left, top, empty)
	}
	if top == "" {
		return m.list.View()
	}
	return lipgloss.JoinVertical(lipgloss.Left, top, m.list.View())
}

func (m Model) detailView() string {
	b := m.detail.Book
	dim := theme.DimmedStyle

	lines := []string{theme.TitleStyle.Render(b.Title)}
	if b.Authors != "" {
		lines = append(lines, b.Authors)
	}
	meta := []string{}
	if b.Publisher != "" {
		meta = append(meta, b.Publisher)
	}
	if b.PublishDate != "" {
		meta = append(meta, b.PublishDate)
	}
	if b.ISBN13 != "" {
		meta = append(meta, "ISBN "+b.ISBN13)
	}
	if len(meta) > 0 {
		lines = append(lines, dim.Render(strings.Join(meta, " · ")))
	}

	lines = append(lines, "")
	lines = append(lines, theme.RatingStyle.Render(fmt.Sprintf("★ %.1f average", b.AverageRating)))
	if m.shelf != "" {
		lines = append(lines, "On your shelf: "+theme.ShelfStyle(string(m.shelf)).Render(m.shelf.Label()))
	} else {
		lines = append(lines, dim.Render("Not in your library."))
	}

	if b.Contents != "" {
		lines = append(lines, "", lipgloss.NewStyle().Width(max(m.width-4, 20)).Render(b.Contents))
	}

	if len(m.detail.Editions) > 0 {
		lines = append(lines, "", theme.HeaderStyle.Render("Other editions"))
		for _, e := range m.detail.Editions {
			lines = append(lines, "  "+e.Title+"  "+dim.Render(e.Publisher))
		}
	}

	return lipgloss.NewStyle().
		Padding(1, 2).
		Width(m.width).
		Height(m.height).
		Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-1)
	m.input.Width = width - 4
}
