// Package review keeps the reviews on screen, either those of one book or
// the user's own, and applies the like toggle optimistically.
package review

import (
	"context"
	"errors"
	"fmt"
	gosync "sync"

	"go.uber.org/zap"

	"github.com/nhle/readonme/internal/logger"
	"github.com/nhle/readonme/internal/model"
)

// SortLatest orders reviews newest first. It is the server default.
const SortLatest = "latest"

// ErrToggleInFlight is returned when a like toggle for the same review
// has not finished yet.
var ErrToggleInFlight = errors.New("like toggle already in progress")

// API is the subset of the REST client the store calls.
type API interface {
	ReviewsForBook(ctx context.Context, bookID int64, sort string) ([]model.Review, error)
	CreateReview(ctx context.Context, bookID int64, comment string, rating float64) (int64, error)
	UpdateReview(ctx context.Context, reviewID int64, comment string, rating float64) error
	DeleteReview(ctx context.Context, reviewID int64) error
	ToggleReviewLike(ctx context.Context, reviewID int64) error
	MyReviews(ctx context.Context) ([]model.Review, error)
}

// State is the review list for one book, or the user's own reviews when
// Mine is set.
type State struct {
	BookID  int64
	Mine    bool
	Sort    string
	Items   []model.Review
	Loading bool
	Err     error
}

// Store holds the reviews of the current book.
type Store struct {
	api API
	log *zap.Logger

	mu       gosync.Mutex
	state    State
	fetchSeq uint64
	toggling map[int64]bool
}

// New creates an empty Store.
func New(a API, l *zap.Logger) *Store {
	return &Store{
		api:      a,
		log:      logger.OrNop(l),
		toggling: make(map[int64]bool),
	}
}

// State returns a snapshot. The Items slice is a copy.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.state
	snap.Items = append([]model.Review(nil), s.state.Items...)
	return snap
}

// FetchForBook loads the reviews of bookID. An empty sort means
// SortLatest. On failure the previous list is kept. When fetches overlap
// only the most recently started one is applied.
func (s *Store) FetchForBook(ctx context.Context, bookID int64, sort string) error {
	if sort == "" {
		sort = SortLatest
	}

	s.mu.Lock()
	if s.state.Mine || s.state.BookID != bookID {
		s.state.Items = nil
	}
	s.state.Mine = false
	s.state.BookID = bookID
	s.state.Sort = sort
	s.state.Loading = true
	s.state.Err = nil
	s.fetchSeq++
	seq := s.fetchSeq
	s.mu.Unlock()

	items, err := s.api.ReviewsForBook(ctx, bookID, sort)

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.fetchSeq {
		s.log.Debug("dropping superseded review fetch", zap.Int64("book_id", bookID), zap.Uint64("seq", seq))
		return nil
	}
	s.state.Loading = false
	if err != nil {
		s.state.Err = err
		return fmt.Errorf("fetching reviews for book %d: %w", bookID, err)
	}
	s.state.Items = items
	return nil
}

// FetchMine loads every review the signed-in user wrote.
func (s *Store) FetchMine(ctx context.Context) error {
	s.mu.Lock()
	if !s.state.Mine {
		s.state.Items = nil
	}
	s.state = State{Mine: true, Items: s.state.Items, Loading: true}
	s.fetchSeq++
	seq := s.fetchSeq
	s.mu.Unlock()

	items, err := s.api.MyReviews(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.fetchSeq {
		s.log.Debug("dropping superseded review fetch", zap.Uint64("seq", seq))
		return nil
	}
	s.state.Loading = false
	if err != nil {
		s.state.Err = err
		return fmt.Errorf("fetching my reviews: %w", err)
	}
	s.state.Items = items
	return nil
}

// Create posts a review and reloads the list of that book.
func (s *Store) Create(ctx context.Context, bookID int64, comment string, rating float64) (int64, error) {
	if err := checkRating(rating); err != nil {
		return 0, err
	}

	id, err := s.api.CreateReview(ctx, bookID, comment, rating)
	if err != nil {
		s.recordErr(err)
		return 0, fmt.Errorf("creating review: %w", err)
	}
	s.log.Info("review created", zap.Int64("book_id", bookID), zap.Int64("review_id", id))

	s.mu.Lock()
	sort := s.state.Sort
	s.mu.Unlock()
	if err := s.FetchForBook(ctx, bookID, sort); err != nil {
		return id, err
	}
	return id, nil
}

// Update rewrites one of the user's reviews and reloads the list on
// screen.
func (s *Store) Update(ctx context.Context, reviewID int64, comment string, rating float64) error {
	if err := checkRating(rating); err != nil {
		return err
	}
	if err := s.api.UpdateReview(ctx, reviewID, comment, rating); err != nil {
		s.recordErr(err)
		return fmt.Errorf("updating review: %w", err)
	}
	s.log.Info("review updated", zap.Int64("review_id", reviewID))
	return s.reload(ctx)
}

// Delete removes one of the user's reviews and reloads the list on
// screen.
func (s *Store) Delete(ctx context.Context, reviewID int64) error {
	if err := s.api.DeleteReview(ctx, reviewID); err != nil {
		s.recordErr(err)
		return fmt.Errorf("deleting review: %w", err)
	}
	s.log.Info("review deleted", zap.Int64("review_id", reviewID))
	return s.reload(ctx)
}

func (s *Store) reload(ctx context.Context) error {
	s.mu.Lock()
	mine, bookID, sort := s.state.Mine, s.state.BookID, s.state.Sort
	s.mu.Unlock()

	if mine {
		return s.FetchMine(ctx)
	}
	if bookID == 0 {
		return nil
	}
	return s.FetchForBook(ctx, bookID, sort)
}

func (s *Store) recordErr(err error) {
	s.mu.Lock()
	s.state.Err = err
	s.mu.Unlock()
}

func checkRating(rating float64) error {
	if rating < 0 || rating > 5 {
		return fmt.Errorf("rating %.1f out of range 0-5", rating)
	}
	return nil
}

// ToggleLike flips the like on reviewID immediately and asks the server
// to do the same. If the server refuses, the review gets back exactly the
// like flag and count it had before.
func (s *Store) ToggleLike(ctx context.Context, reviewID int64) error {
	s.mu.Lock()
	if s.toggling[reviewID] {
		s.mu.Unlock()
		return ErrToggleInFlight
	}
	before, ok := s.lookupLocked(reviewID)
	if ok {
		s.setLikeLocked(reviewID, !before.LikedByMe, likeDelta(before))
	}
	s.toggling[reviewID] = true
	s.mu.Unlock()

	err := s.api.ToggleReviewLike(ctx, reviewID)

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.toggling, reviewID)
	if err == nil {
		return nil
	}

	s.log.Warn("toggling review like", zap.Int64("review_id", reviewID), zap.Error(err))
	if ok {
		s.restoreLocked(before)
	}
	s.state.Err = err
	return fmt.Errorf("toggling like on review %d: %w", reviewID, err)
}

func likeDelta(r model.Review) int64 {
	if r.LikedByMe {
		return -1
	}
	return 1
}

func (s *Store) lookupLocked(id int64) (model.Review, bool) {
	for _, r := range s.state.Items {
		if r.ID == id {
			return r, true
		}
	}
	return model.Review{}, false
}

func (s *Store) setLikeLocked(id int64, liked bool, delta int64) {
	next := make([]model.Review, len(s.state.Items))
	copy(next, s.state.Items)
	for i := range next {
		if next[i].ID == id {
			next[i].LikedByMe = liked
			next[i].LikeCount += delta
		}
	}
	s.state.Items = next
}

// restoreLocked puts back the like fields of prev. A list reloaded in the
// meantime that no longer holds the review is left alone.
func (s *Store) restoreLocked(prev model.Review) {
	next := make([]model.Review, len(s.state.Items))
	copy(next, s.state.Items)
	for i := range next {
		if next[i].ID == prev.ID {
			next[i].LikedByMe = prev.LikedByMe
			next[i].LikeCount = prev.LikeCount
		}
	}
	s.state.Items = next
}
