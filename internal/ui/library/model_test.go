package library

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/readonme/internal/keys"
	"github.com/nhle/readonme/internal/model"
)

func TestNextStatusWraps(t *testing.T) {
	assert.Equal(t, model.StatusReading, NextStatus(model.StatusToRead))
	assert.Equal(t, model.StatusCompleted, NextStatus(model.StatusReading))
	assert.Equal(t, model.StatusToRead, NextStatus(model.StatusCompleted))
	assert.Equal(t, model.StatusToRead, NextStatus("UNKNOWN"))
}

func TestTabCyclesShelves(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 80, 20)

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	require.NotNil(t, cmd)
	load, ok := cmd().(LoadMsg)
	require.True(t, ok)
	require.NotNil(t, load.Status)
	assert.Equal(t, model.StatusToRead, *load.Status)

	for i := 0; i < 3; i++ {
		m, cmd = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	}
	load = cmd().(LoadMsg)
	assert.Nil(t, load.Status)
}

func TestSetStatusMovesSelectedBook(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 80, 20)
	book := model.Book{ID: 4, Title: "Dune"}
	m, _ = m.Update(LoadedMsg{Entries: []model.LibraryEntry{{Book: book, Status: model.StatusReading}}})

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("s")})
	require.NotNil(t, cmd)
	assert.Equal(t, SetStatusMsg{Book: book, Status: model.StatusCompleted}, cmd())

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, OpenReviewsMsg{Book: book}, cmd())
}

func TestTitleShowsCounts(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 80, 20)
	m, _ = m.Update(LoadedMsg{Counts: map[model.ReadingStatus]int{model.StatusToRead: 2, model.StatusReading: 1}})
	assert.Equal(t, "Library: all (3)", m.title())

	cmd := m.SetQuery("dune")
	require.NotNil(t, cmd)
	assert.Equal(t, LoadMsg{Query: "dune"}, cmd())
	assert.Equal(t, `Library: "dune"`, m.title())
}
