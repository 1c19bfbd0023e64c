package command

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/readonme/internal/theme"
)

// Known commands, offered as completions.
const (
	Refresh     = "refresh"
	Inbox       = "inbox"
	Library     = "library"
	ReadAll     = "read all"
	Reconnect   = "reconnect"
	Logout      = "logout"
	Quit        = "quit"
	Help        = "help"
	SearchBooks = "search"
	Settings    = "settings"
	Books       = "books"
	Find        = "find"
	Ask         = "ask"
	MyReviews   = "my reviews"
)

var known = []string{
	Refresh, Inbox, Library, ReadAll, Reconnect, Logout, Quit, Help, SearchBooks, Settings,
	Books, Find, Ask, MyReviews,
}

// CommandMsg is emitted when the user executes a command. Args holds
// whatever followed a known command name.
type CommandMsg struct {
	Name string
	Args string
}

// Parse splits a palette line into a known command and its arguments.
// Unknown input is returned as Name with empty Args.
func Parse(line string) CommandMsg {
	line = strings.TrimSpace(line)
	lower := strings.ToLower(line)
	for _, name := range known {
		if lower == name {
			return CommandMsg{Name: name}
		}
		if strings.HasPrefix(lower, name+" ") {
			return CommandMsg{Name: name, Args: strings.TrimSpace(line[len(name):])}
		}
	}
	return CommandMsg{Name: lower}
}

// Model is the command palette view.
type Model struct {
	input  textinput.Model
	width  int
	height int
}

// New creates a new command palette model.
func New(width, height int) Model {
	ti := textinput.New()
	ti.Placeholder = "type a command..."
	ti.Prompt = ": "
	ti.ShowSuggestions = true
	ti.SetSuggestions(known)
	ti.Width = width - 6

	return Model{
		input:  ti,
		width:  width,
		height: height,
	}
}

// Update handles messages for the command palette.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.String() == "enter" {
		line := strings.TrimSpace(m.input.Value())
		m.input.Reset()
		if line == "" {
			return m, nil
		}
		return m, func() tea.Msg { return Parse(line) }
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the command palette.
func (m Model) View() string {
	title := theme.TitleStyle.Render("Command Palette")
	hint := theme.HelpStyle.Render(strings.Join(known, " · "))
	content := lipgloss.JoinVertical(lipgloss.Left, title, m.input.View(), "", hint)

	return theme.PanelStyle.
		Width(max(m.width-4, 0)).
		Render(content)
}

// SetSize updates the command palette dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.input.Width = width - 6
}

// Focus gives keyboard focus to the text input.
func (m *Model) Focus() tea.Cmd {
	return m.input.Focus()
}
