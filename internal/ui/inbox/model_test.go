package inbox

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/readonme/internal/keys"
	"github.com/nhle/readonme/internal/model"
	"github.com/nhle/readonme/internal/notify"
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newInbox(items ...model.Notification) Model {
	m := New(keys.DefaultKeyMap(), 80, 20)
	unread := 0
	for _, n := range items {
		if !n.Read {
			unread++
		}
	}
	m.SetState(notify.State{Items: items, UnreadCount: unread})
	return m
}

func TestMarkReadEmitsSelectedID(t *testing.T) {
	m := newInbox(
		model.Notification{ID: 9, Message: "liked", CreatedAt: "2024-05-01T10:00:00"},
		model.Notification{ID: 8, Message: "older"},
	)

	_, cmd := m.Update(runes("m"))
	require.NotNil(t, cmd)
	assert.Equal(t, MarkReadMsg{ID: 9}, cmd())
}

func TestMarkReadSkipsReadItems(t *testing.T) {
	m := newInbox(model.Notification{ID: 9, Message: "liked", Read: true})
	_, cmd := m.Update(runes("m"))
	assert.Nil(t, cmd)
}

func TestMarkAllOnlyWhenUnread(t *testing.T) {
	m := newInbox(model.Notification{ID: 1, Message: "a", Read: true})
	_, cmd := m.Update(runes("M"))
	assert.Nil(t, cmd)

	m = newInbox(model.Notification{ID: 1, Message: "a"})
	_, cmd = m.Update(runes("M"))
	require.NotNil(t, cmd)
	assert.Equal(t, MarkAllReadMsg{}, cmd())
}

func TestViewShowsMessages(t *testing.T) {
	m := newInbox(model.Notification{ID: 1, Message: "someone liked your review"})
	assert.Contains(t, m.View(), "someone liked your review")
	assert.Contains(t, m.View(), "1 unread")

	empty := newInbox()
	assert.Contains(t, empty.View(), "No notifications yet.")
}
