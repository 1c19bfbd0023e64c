package reviews

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/readonme/internal/keys"
	"github.com/nhle/readonme/internal/model"
	"github.com/nhle/readonme/internal/review"
)

func opened(t *testing.T, reviews ...model.Review) Model {
	t.Helper()
	m := New(keys.DefaultKeyMap(), 80, 20)
	m.Open(model.Book{ID: 3, Title: "Dune"})
	m.SetState(review.State{BookID: 3, Items: reviews})
	return m
}

func TestStars(t *testing.T) {
	assert.Equal(t, "★★★★ 4.0", Stars(4))
	assert.Equal(t, "★★★½ 3.5", Stars(3.5))
	assert.Equal(t, " 0.0", Stars(-1))
	assert.Equal(t, "★★★★★ 5.0", Stars(7))
}

func TestLikeEmitsSelectedReview(t *testing.T) {
	m := opened(t, model.Review{ID: 12, Author: "ana", Comment: "great"})

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("l")})
	require.NotNil(t, cmd)
	assert.Equal(t, ToggleLikeMsg{ID: 12}, cmd())
}

func TestEscGoesBack(t *testing.T) {
	m := opened(t)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Equal(t, BackMsg{}, cmd())
}

func TestStateForOtherBookIgnored(t *testing.T) {
	m := opened(t, model.Review{ID: 1, Comment: "kept"})
	m.SetState(review.State{BookID: 99, Items: []model.Review{{ID: 2, Comment: "other"}}})

	assert.Len(t, m.list.Items(), 1)
	assert.Contains(t, m.View(), "kept")
}

func TestNewReviewOpensForm(t *testing.T) {
	m := opened(t)
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("n")})
	assert.NotNil(t, cmd)
	assert.True(t, m.Editing())
	assert.Equal(t, 5.0, m.fb.rating)
	assert.Contains(t, m.View(), "Review Dune")
}

func TestEditAndDeleteOnlyOwnReviews(t *testing.T) {
	m := opened(t, model.Review{ID: 5, AuthorID: 2, Comment: "theirs"})
	m.SetUser(1)

	for _, k := range []string{"e", "d"} {
		next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)})
		assert.Nil(t, cmd, k)
		assert.False(t, next.Editing(), k)
	}
}

func TestEditPrefillsForm(t *testing.T) {
	m := opened(t, model.Review{ID: 5, AuthorID: 1, Comment: "good", Rating: 3.5})
	m.SetUser(1)

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("e")})
	assert.NotNil(t, cmd)
	require.True(t, m.Editing())
	assert.Equal(t, 3.5, m.fb.rating)
	assert.Equal(t, "good", m.fb.comment)
	assert.Contains(t, m.View(), "Edit review")

	m.fb.comment = "  better  "
	m.fb.rating = 4
	assert.Equal(t, UpdateReviewMsg{ID: 5, Comment: "better", Rating: 4}, m.submit())
}

func TestDeleteNeedsConfirmation(t *testing.T) {
	m := opened(t, model.Review{ID: 5, AuthorID: 1})
	m.SetUser(1)

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("d")})
	require.True(t, m.Editing())
	assert.Contains(t, m.View(), "Delete review")
	assert.Nil(t, m.submit())

	m.fb.confirm = true
	assert.Equal(t, DeleteReviewMsg{ID: 5}, m.submit())
}

func TestMineListShowsBookAndRefusesNew(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 80, 20)
	m.SetUser(1)
	m.OpenMine()
	require.True(t, m.Mine())

	m.SetState(review.State{BookID: 3, Items: []model.Review{{ID: 1, Comment: "book list"}}})
	assert.Empty(t, m.list.Items())

	m.SetState(review.State{Mine: true, Items: []model.Review{{ID: 2, AuthorID: 1, Book: &model.Book{Title: "Emma"}}}})
	require.Len(t, m.list.Items(), 1)
	assert.Contains(t, m.View(), "Emma")

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("n")})
	assert.Nil(t, cmd)
	assert.False(t, m.Editing())

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("e")})
	assert.True(t, m.Editing())
}

func TestMineStateIgnoredByBookView(t *testing.T) {
	m := opened(t, model.Review{ID: 1, Comment: "kept"})
	m.SetState(review.State{Mine: true, Items: []model.Review{{ID: 2}}})
	assert.Len(t, m.list.Items(), 1)
}
