package reviews

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/readonme/internal/keys"
	"github.com/nhle/readonme/internal/model"
	"github.com/nhle/readonme/internal/review"
	"github.com/nhle/readonme/internal/theme"
)

// ToggleLikeMsg asks for the like on a review to be flipped.
type ToggleLikeMsg struct {
	ID int64
}

// CreateReviewMsg is dispatched when the new-review form completes.
type CreateReviewMsg struct {
	BookID  int64
	Comment string
	Rating  float64
}

// UpdateReviewMsg is dispatched when the edit form for one of the user's
// reviews completes.
type UpdateReviewMsg struct {
	ID      int64
	Comment string
	Rating  float64
}

// DeleteReviewMsg is dispatched once the user confirms a deletion.
type DeleteReviewMsg struct {
	ID int64
}

// BackMsg leaves the reviews view.
type BackMsg struct{}

type item struct {
	r model.Review
}

func (i item) FilterValue() string { return i.r.Comment }

type delegate struct{}

func (delegate) Height() int                         { return 2 }
func (delegate) Spacing() int                        { return 1 }
func (delegate) Update(tea.Msg, *list.Model) tea.Cmd { return nil }

func (delegate) Render(w io.Writer, m list.Model, index int, li list.Item) {
	it, ok := li.(item)
	if !ok {
		return
	}
	r := it.r

	heart := "♡"
	if r.LikedByMe {
		heart = "♥"
	}
	who := r.Author
	if r.Book != nil {
		who = r.Book.Title
	}
	head := fmt.Sprintf("%s  %s  %s %d",
		theme.RatingStyle.Render(Stars(r.Rating)),
		who,
		heart,
		r.LikeCount,
	)
	body := r.Comment
	if body == "" {
		body = theme.DimmedStyle.Render("(no comment)")
	}

	style := theme.ListItemStyle
	if index == m.Index() {
		style = theme.SelectedItemStyle
	}
	fmt.Fprint(w, style.Render(head)+"\n"+style.Render(body))
}

// Stars renders a 0-5 rating with half steps.
func Stars(rating float64) string {
	if rating < 0 {
		rating = 0
	}
	if rating > 5 {
		rating = 5
	}
	full := int(rating)
	half := rating-float64(full) >= 0.5
	var b strings.Builder
	b.WriteString(strings.Repeat("★", full))
	if half {
		b.WriteString("½")
	}
	b.WriteString(" ")
	b.WriteString(strconv.FormatFloat(rating, 'f', 1, 64))
	return b.String()
}

// formBindings holds form values on the heap so huh's pointers survive
// model copies.
type formBindings struct {
	comment string
	rating  float64
	confirm bool
}

type formKind int

const (
	formCreate formKind = iota
	formEdit
	formDelete
)

// Model shows the reviews of one book, or the user's own reviews.
type Model struct {
	list   list.Model
	keys   *keys.KeyMap
	book   model.Book
	mine   bool
	user   int64
	state  review.State
	form   *huh.Form
	kind   formKind
	target model.Review
	fb     *formBindings
	width  int
	height int
}

// New creates an empty reviews view.
func New(k *keys.KeyMap, width, height int) Model {
	l := list.New(nil, delegate{}, width, height)
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.KeyMap.Quit.SetEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	return Model{list: l, keys: k, fb: &formBindings{}, width: width, height: height}
}

// Open switches the view to book and clears the previous list.
func (m *Model) Open(book model.Book) tea.Cmd {
	m.book = book
	m.mine = false
	m.form = nil
	m.state = review.State{BookID: book.ID, Loading: true}
	m.list.Title = fmt.Sprintf("Reviews: %s", book.Title)
	return m.list.SetItems(nil)
}

// OpenMine switches the view to the user's own reviews.
func (m *Model) OpenMine() tea.Cmd {
	m.book = model.Book{}
	m.mine = true
	m.form = nil
	m.state = review.State{Mine: true, Loading: true}
	m.list.Title = "My reviews"
	return m.list.SetItems(nil)
}

// SetUser records who is signed in. Only their reviews can be edited or
// deleted.
func (m *Model) SetUser(id int64) {
	m.user = id
}

// Book returns the book on screen.
func (m Model) Book() model.Book {
	return m.book
}

// Mine reports whether the view lists the user's own reviews.
func (m Model) Mine() bool {
	return m.mine
}

// Editing reports whether a review form is open.
func (m Model) Editing() bool {
	return m.form != nil
}

// SetState replaces the displayed reviews. States for another book, or
// for the other kind of list, are ignored.
func (m *Model) SetState(st review.State) tea.Cmd {
	if st.Mine != m.mine || (!m.mine && st.BookID != m.book.ID) {
		return nil
	}
	m.state = st
	items := make([]list.Item, len(st.Items))
	for i, r := range st.Items {
		items[i] = item{r: r}
	}
	return m.list.SetItems(items)
}

// Update handles messages for the reviews view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form != nil {
		return m.updateForm(msg)
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.keys.Back):
			return m, func() tea.Msg { return BackMsg{} }

		case key.Matches(msg, m.keys.Like):
			it, ok := m.list.SelectedItem().(item)
			if !ok {
				return m, nil
			}
			id := it.r.ID
			return m, func() tea.Msg { return ToggleLikeMsg{ID: id} }

		case key.Matches(msg, m.keys.NewReview):
			if m.mine {
				return m, nil
			}
			m.fb = &formBindings{rating: 5}
			m.kind = formCreate
			m.form = m.buildForm()
			return m, m.form.Init()

		case key.Matches(msg, m.keys.EditReview):
			r, ok := m.ownSelected()
			if !ok {
				return m, nil
			}
			m.fb = &formBindings{rating: r.Rating, comment: r.Comment}
			m.kind = formEdit
			m.target = r
			m.form = m.buildForm()
			return m, m.form.Init()

		case key.Matches(msg, m.keys.DeleteReview):
			r, ok := m.ownSelected()
			if !ok {
				return m, nil
			}
			m.fb = &formBindings{}
			m.kind = formDelete
			m.target = r
			m.form = m.buildConfirm()
			return m, m.form.Init()
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) updateForm(msg tea.Msg) (Model, tea.Cmd) {
	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		m.form = nil
		out := m.submit()
		if out == nil {
			return m, nil
		}
		return m, func() tea.Msg { return out }
	case huh.StateAborted:
		m.form = nil
		return m, nil
	}
	return m, cmd
}

func (m Model) submit() tea.Msg {
	comment := strings.TrimSpace(m.fb.comment)
	switch m.kind {
	case formEdit:
		return UpdateReviewMsg{ID: m.target.ID, Comment: comment, Rating: m.fb.rating}
	case formDelete:
		if !m.fb.confirm {
			return nil
		}
		return DeleteReviewMsg{ID: m.target.ID}
	default:
		return CreateReviewMsg{BookID: m.book.ID, Comment: comment, Rating: m.fb.rating}
	}
}

// ownSelected returns the selected review when the signed-in user wrote it.
func (m Model) ownSelected() (model.Review, bool) {
	it, ok := m.list.SelectedItem().(item)
	if !ok || m.user == 0 || it.r.AuthorID != m.user {
		return model.Review{}, false
	}
	return it.r, true
}

func (m *Model) buildConfirm() *huh.Form {
	fb := m.fb
	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Delete this review?").
				Affirmative("Delete").
				Negative("Keep").
				Value(&fb.confirm),
		),
	).WithWidth(min(m.width-4, 70)).WithShowHelp(true)
}

func (m *Model) buildForm() *huh.Form {
	fb := m.fb
	opts := make([]huh.Option[float64], 0, 10)
	for r := 5.0; r >= 0.5; r -= 0.5 {
		opts = append(opts, huh.NewOption(Stars(r), r))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[float64]().
				Title("Rating").
				Options(opts...).
				Value(&fb.rating),
			huh.NewText().
				Title("Comment").
				CharLimit(1000).
				Value(&fb.comment),
		),
	).WithWidth(min(m.width-4, 70)).WithShowHelp(true)
}

// View renders the reviews or the form.
func (m Model) View() string {
	if m.form != nil {
		title := theme.TitleStyle.Render("Review " + m.book.Title)
		switch m.kind {
		case formEdit:
			title = theme.TitleStyle.Render("Edit review")
		case formDelete:
			title = theme.TitleStyle.Render("Delete review")
		}
		return lipgloss.NewStyle().
			Padding(1, 2).
			Render(lipgloss.JoinVertical(lipgloss.Left, title, m.form.View()))
	}

	if len(m.list.Items()) == 0 {
		text := "No reviews yet. Press n to write one."
		if m.mine {
			text = "You have not written any reviews yet."
		}
		if m.state.Loading {
			text = "Loading reviews..."
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
