package inbox

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/readonme/internal/keys"
	"github.com/nhle/readonme/internal/model"
	"github.com/nhle/readonme/internal/notify"
	"github.com/nhle/readonme/internal/theme"
	"github.com/nhle/readonme/internal/ui"
)

// MarkReadMsg asks for one notification to be marked read.
type MarkReadMsg struct {
	ID int64
}

// MarkAllReadMsg asks for every notification to be marked read.
type MarkAllReadMsg struct{}

// item wraps a notification for bubbles/list.
type item struct {
	n model.Notification
}

func (i item) FilterValue() string { return i.n.Message }

type delegate struct{}

func (delegate) Height() int                         { return 1 }
func (delegate) Spacing() int                        { return 0 }
func (delegate) Update(tea.Msg, *list.Model) tea.Cmd { return nil }

func (delegate) Render(w io.Writer, m list.Model, index int, li list.Item) {
	it, ok := li.(item)
	if !ok {
		return
	}
	n := it.n

	mark := " "
	text := n.Message
	if !n.Read {
		mark = theme.UnreadMarkStyle.Render("●")
	} else {
		text = theme.DimmedStyle.Render(text)
	}

	age := ""
	if t, err := n.CreatedTime(); err == nil {
		age = theme.DimmedStyle.Render("  " + ui.RelativeTime(t))
	}

	line := fmt.Sprintf("%s %s%s", mark, text, age)
	if index == m.Index() {
		line = theme.SelectedItemStyle.Render(line)
	} else {
		line = theme.ListItemStyle.Render(line)
	}
	fmt.Fprint(w, line)
}

// Model lists notifications.
type Model struct {
	list    list.Model
	spinner spinner.Model
	keys    *keys.KeyMap
	state   notify.State
	width   int
	height  int
}

// New creates an empty inbox view.
func New(k *keys.KeyMap, width, height int) Model {
	l := list.New(nil, delegate{}, width, height)
	l.Title = "Notifications"
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.KeyMap.Quit.SetEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	return Model{
		list:    l,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
		keys:    k,
		width:   width,
		height:  height,
	}
}

// SetState replaces the displayed notifications, keeping the cursor on
// the same row where possible.
func (m *Model) SetState(st notify.State) tea.Cmd {
	m.state = st
	items := make([]list.Item, len(st.Items))
	for i, n := range st.Items {
		items[i] = item{n: n}
	}
	m.list.Title = fmt.Sprintf("Notifications (%d unread)", st.UnreadCount)
	cmd := m.list.SetItems(items)
	if st.Loading {
		return tea.Batch(cmd, m.spinner.Tick)
	}
	return cmd
}

// Update handles messages for the inbox view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if !m.state.Loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.MarkRead), key.Matches(msg, m.keys.Select):
			it, ok := m.list.SelectedItem().(item)
			if !ok || it.n.Read {
				return m, nil
			}
			id := it.n.ID
			return m, func() tea.Msg { return MarkReadMsg{ID: id} }

		case key.Matches(msg, m.keys.MarkAllRead):
			if m.state.UnreadCount == 0 {
				return m, nil
			}
			return m, func() tea.Msg { return MarkAllReadMsg{} }
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View renders the inbox.
func (m Model) View() string {
	if len(m.list.Items()) == 0 {
		text := "No notifications yet."
		if m.state.Loading {
			text = m.spinner.View() + " Loading notifications..."
		}
		return lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray).
			Render(text)
	}
	return m.list.View()
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height)
}
