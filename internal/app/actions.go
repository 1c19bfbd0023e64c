package app

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/nhle/readonme/internal/api"
	"github.com/nhle/readonme/internal/catalog"
	"github.com/nhle/readonme/internal/model"
	"github.com/nhle/readonme/internal/notify"
	"github.com/nhle/readonme/internal/review"
	catalogview "github.com/nhle/readonme/internal/ui/catalog"
	"github.com/nhle/readonme/internal/ui/library"
	"github.com/nhle/readonme/internal/ui/login"
	reviewsview "github.com/nhle/readonme/internal/ui/reviews"
)

// authResultMsg is sent after a sign-in or sign-up attempt.
type authResultMsg struct{ err error }

// actionErrMsg reports a failed background action.
type actionErrMsg struct {
	what string
	err  error
}

// reviewsLoadedMsg carries the review store after a change, and the
// error of the action that caused it, if any.
type reviewsLoadedMsg struct {
	state review.State
	what  string
	err   error
}

// configSavedMsg is sent after the settings were written.
type configSavedMsg struct {
	config model.AppConfig
	err    error
}

// libraryChangedMsg is sent after the cache was refreshed or a book moved.
type libraryChangedMsg struct{}

// bookShelvedMsg is sent after a book from the catalog was shelved.
type bookShelvedMsg struct {
	bookID int64
	status model.ReadingStatus
}

// userMessage turns err into text for the status bar.
func userMessage(err error) string {
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		return apiErr.UserMessage()
	}
	if errors.Is(err, review.ErrToggleInFlight) {
		return "Still saving the previous like."
	}
	if errors.Is(err, catalog.ErrEmptyQuery) {
		return "Type something to search for."
	}
	return err.Error()
}

// withTimeout wraps fn in a command whose context expires after d.
func withTimeout(d time.Duration, fn func(ctx context.Context) tea.Msg) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), d)
		defer cancel()
		return fn(ctx)
	}
}

// submitAuth signs in, creating the account first when asked to.
func (m *Model) submitAuth(msg login.SubmitMsg) tea.Cmd {
	sess := m.session
	return withTimeout(m.timeout, func(ctx context.Context) tea.Msg {
		if msg.SignUp {
			if _, err := sess.SignUp(ctx, msg.Email, msg.Password, msg.Nickname); err != nil {
				return authResultMsg{err: err}
			}
		}
		return authResultMsg{err: sess.SignIn(ctx, msg.Email, msg.Password)}
	})
}

func (m *Model) fetchInbox() tea.Cmd {
	s := m.inbox
	return withTimeout(m.timeout, func(ctx context.Context) tea.Msg {
		if err := s.FetchAll(ctx); err != nil {
			return actionErrMsg{what: "loading notifications", err: err}
		}
		return nil
	})
}

func (m *Model) markRead(id int64) tea.Cmd {
	s := m.inbox
	return withTimeout(m.timeout, func(ctx context.Context) tea.Msg {
		if err := s.MarkOneRead(ctx, id, notify.Optimistic()); err != nil {
			return actionErrMsg{what: "marking notification read", err: err}
		}
		return nil
	})
}

func (m *Model) markAllRead() tea.Cmd {
	s := m.inbox
	return withTimeout(m.timeout, func(ctx context.Context) tea.Msg {
		if err := s.MarkAllRead(ctx, notify.Optimistic()); err != nil {
			return actionErrMsg{what: "marking all notifications read", err: err}
		}
		return nil
	})
}

func (m *Model) refreshLibrary() tea.Cmd {
	svc := m.library
	return withTimeout(m.timeout, func(ctx context.Context) tea.Msg {
		if err := svc.Refresh(ctx); err != nil {
			return actionErrMsg{what: "refreshing library", err: err}
		}
		return libraryChangedMsg{}
	})
}

// loadLibrary reads the cache. It works offline.
func (m *Model) loadLibrary(req library.LoadMsg) tea.Cmd {
	svc := m.library
	return withTimeout(m.timeout, func(ctx context.Context) tea.Msg {
		var (
			entries []model.LibraryEntry
			err     error
		)
		if req.Query != "" {
			entries, err = svc.Search(ctx, req.Query)
		} else {
			entries, err = svc.Entries(ctx, req.Status)
		}
		if err != nil {
			return library.LoadedMsg{Err: err}
		}

		counts, err := svc.Counts(ctx)
		if err != nil {
			return library.LoadedMsg{Entries: entries, Err: err}
		}
		return library.LoadedMsg{Entries: entries, Counts: counts}
	})
}

func (m *Model) setBookStatus(msg library.SetStatusMsg) tea.Cmd {
	svc := m.library
	return withTimeout(m.timeout, func(ctx context.Context) tea.Msg {
		if err := svc.SetStatus(ctx, msg.Book, msg.Status); err != nil {
			return actionErrMsg{what: "moving book", err: err}
		}
		return libraryChangedMsg{}
	})
}

func (m *Model) searchCatalog(req catalogview.SearchMsg) tea.Cmd {
	svc := m.catalog
	return withTimeout(m.timeout, func(ctx context.Context) tea.Msg {
		var (
			res catalog.Results
			err error
		)
		switch {
		case req.Ask:
			res, err = svc.Ask(ctx, req.Query)
		case req.Query == "":
			res, err = svc.Popular(ctx)
		default:
			res, err = svc.Search(ctx, req.Query, req.Page)
		}
		return catalogview.ResultsMsg{Request: req, Results: res, Err: err}
	})
}

// openBook loads a detail page and looks the book up in the local library.
func (m *Model) openBook(isbn string) tea.Cmd {
	svc, lib, log := m.catalog, m.library, m.log
	return withTimeout(m.timeout, func(ctx context.Context) tea.Msg {
		d, err := svc.Detail(ctx, isbn)
		if err != nil {
			return catalogview.DetailMsg{Err: err}
		}
		shelf, err := lib.Shelf(ctx, d.Book.ID)
		if err != nil {
			log.Warn("looking up shelf", zap.Int64("book_id", d.Book.ID), zap.Error(err))
		}
		return catalogview.DetailMsg{Detail: d, Shelf: shelf}
	})
}

func (m *Model) shelveBook(book model.Book, status model.ReadingStatus) tea.Cmd {
	svc := m.library
	return withTimeout(m.timeout, func(ctx context.Context) tea.Msg {
		if err := svc.SetStatus(ctx, book, status); err != nil {
			return actionErrMsg{what: "moving book", err: err}
		}
		return bookShelvedMsg{bookID: book.ID, status: status}
	})
}

func (m *Model) fetchReviews(bookID int64) tea.Cmd {
	s := m.reviews
	return withTimeout(m.timeout, func(ctx context.Context) tea.Msg {
		err := s.FetchForBook(ctx, bookID, review.SortLatest)
		return reviewsLoadedMsg{state: s.State(), what: "loading reviews", err: err}
	})
}

func (m *Model) toggleLike(id int64) tea.Cmd {
	s := m.reviews
	return withTimeout(m.timeout, func(ctx context.Context) tea.Msg {
		err := s.ToggleLike(ctx, id)
		return reviewsLoadedMsg{state: s.State(), what: "liking review", err: err}
	})
}

func (m *Model) createReview(msg reviewsview.CreateReviewMsg) tea.Cmd {
	s := m.reviews
	return withTimeout(m.timeout, func(ctx context.Context) tea.Msg {
		_, err := s.Create(ctx, msg.BookID, msg.Comment, msg.Rating)
		return reviewsLoadedMsg{state: s.State(), what: "posting review", err: err}
	})
}

func (m *Model) fetchMyReviews() tea.Cmd {
	s := m.reviews
	return withTimeout(m.timeout, func(ctx context.Context) tea.Msg {
		err := s.FetchMine(ctx)
		return reviewsLoadedMsg{state: s.State(), what: "loading my reviews", err: err}
	})
}

func (m *Model) updateReview(msg reviewsview.UpdateReviewMsg) tea.Cmd {
	s := m.reviews
	return withTimeout(m.timeout, func(ctx context.Context) tea.Msg {
		err := s.Update(ctx, msg.ID, msg.Comment, msg.Rating)
		return reviewsLoadedMsg{state: s.State(), what: "updating review", err: err}
	})
}

func (m *Model) deleteReview(id int64) tea.Cmd {
	s := m.reviews
	return withTimeout(m.timeout, func(ctx context.Context) tea.Msg {
		err := s.Delete(ctx, id)
		return reviewsLoadedMsg{state: s.State(), what: "deleting review", err: err}
	})
}

func (m *Model) saveConfig(cfg model.AppConfig) tea.Cmd {
	path := m.configPath
	return func() tea.Msg {
		if path == "" {
			path = model.DefaultConfigPath()
		}
		return configSavedMsg{config: cfg, err: model.SaveConfig(path, &cfg)}
	}
}
