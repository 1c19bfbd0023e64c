package review

import (
	"context"
	"errors"
	gosync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/readonme/internal/model"
)

type fakeAPI struct {
	mu gosync.Mutex
	// When gates is set, the n-th fetch blocks on gates[n].
	gates []chan []model.Review

	reviews    []model.Review
	fetchErr   error
	fetchCalls []string
	createErr  error
	created    []float64
	toggleErr  error
	onToggle   func()
	editErr    error
	mineCalls  int
}

func (f *fakeAPI) ReviewsForBook(_ context.Context, _ int64, sort string) ([]model.Review, error) {
	f.mu.Lock()
	call := len(f.fetchCalls)
	f.fetchCalls = append(f.fetchCalls, sort)
	if f.gates != nil {
		gate := f.gates[call]
		f.mu.Unlock()
		return <-gate, nil
	}
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return append([]model.Review(nil), f.reviews...), nil
}

func (f *fakeAPI) CreateReview(_ context.Context, _ int64, comment string, rating float64) (int64, error) {
	if f.createErr != nil {
		return 0, f.createErr
	}
	f.created = append(f.created, rating)
	id := int64(100 + len(f.reviews))
	f.reviews = append([]model.Review{{ID: id, Comment: comment, Rating: rating}}, f.reviews...)
	return id, nil
}

func (f *fakeAPI) UpdateReview(_ context.Context, id int64, comment string, rating float64) error {
	if f.editErr != nil {
		return f.editErr
	}
	for i := range f.reviews {
		if f.reviews[i].ID == id {
			f.reviews[i].Comment = comment
			f.reviews[i].Rating = rating
		}
	}
	return nil
}

func (f *fakeAPI) DeleteReview(_ context.Context, id int64) error {
	if f.editErr != nil {
		return f.editErr
	}
	kept := f.reviews[:0]
	for _, r := range f.reviews {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	f.reviews = kept
	return nil
}

// MyReviews treats reviews with AuthorID 1 as the user's.
func (f *fakeAPI) MyReviews(context.Context) ([]model.Review, error) {
	f.mineCalls++
	var out []model.Review
	for _, r := range f.reviews {
		if r.AuthorID == 1 {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeAPI) ToggleReviewLike(context.Context, int64) error {
	if f.onToggle != nil {
		f.onToggle()
	}
	return f.toggleErr
}

func seeded() *fakeAPI {
	return &fakeAPI{reviews: []model.Review{
		{ID: 1, Comment: "great", LikeCount: 3, LikedByMe: false},
		{ID: 2, Comment: "meh", LikeCount: 1, LikedByMe: true, AuthorID: 1},
	}}
}

func TestFetchForBookDefaultsSort(t *testing.T) {
	api := seeded()
	s := New(api, nil)

	require.NoError(t, s.FetchForBook(context.Background(), 9, ""))
	st := s.State()
	assert.Equal(t, int64(9), st.BookID)
	assert.Equal(t, SortLatest, st.Sort)
	assert.Len(t, st.Items, 2)
	assert.False(t, st.Loading)
	assert.Equal(t, []string{SortLatest}, api.fetchCalls)
}

func TestFetchForBookFailureKeepsList(t *testing.T) {
	api := seeded()
	s := New(api, nil)
	require.NoError(t, s.FetchForBook(context.Background(), 9, ""))

	api.fetchErr = errors.New("timeout")
	require.Error(t, s.FetchForBook(context.Background(), 9, ""))
	st := s.State()
	assert.Len(t, st.Items, 2)
	assert.Equal(t, api.fetchErr, st.Err)
}

func TestCreateRefetches(t *testing.T) {
	api := seeded()
	s := New(api, nil)
	require.NoError(t, s.FetchForBook(context.Background(), 9, ""))

	id, err := s.Create(context.Background(), 9, "loved it", 4.5)
	require.NoError(t, err)
	assert.Equal(t, int64(102), id)
	assert.Len(t, s.State().Items, 3)
	assert.Equal(t, id, s.State().Items[0].ID)
	assert.Len(t, api.fetchCalls, 2)
}

func TestCreateRejectsOutOfRangeRating(t *testing.T) {
	api := seeded()
	s := New(api, nil)
	_, err := s.Create(context.Background(), 9, "x", 7)
	require.Error(t, err)
	assert.Empty(t, api.created)
}

func TestToggleLikeIsOptimistic(t *testing.T) {
	api := seeded()
	s := New(api, nil)
	require.NoError(t, s.FetchForBook(context.Background(), 9, ""))

	var during model.Review
	api.onToggle = func() { during = s.State().Items[0] }

	require.NoError(t, s.ToggleLike(context.Background(), 1))
	assert.True(t, during.LikedByMe, "flag flipped before the server answered")
	assert.Equal(t, int64(4), during.LikeCount)

	after := s.State().Items[0]
	assert.True(t, after.LikedByMe)
	assert.Equal(t, int64(4), after.LikeCount)
}

func TestToggleUnlike(t *testing.T) {
	api := seeded()
	s := New(api, nil)
	require.NoError(t, s.FetchForBook(context.Background(), 9, ""))

	require.NoError(t, s.ToggleLike(context.Background(), 2))
	r := s.State().Items[1]
	assert.False(t, r.LikedByMe)
	assert.Zero(t, r.LikeCount)
}

func TestToggleLikeRollsBackExactly(t *testing.T) {
	api := seeded()
	s := New(api, nil)
	require.NoError(t, s.FetchForBook(context.Background(), 9, ""))
	before := s.State().Items

	api.toggleErr = errors.New("conflict")
	require.Error(t, s.ToggleLike(context.Background(), 1))
	require.Error(t, s.ToggleLike(context.Background(), 2))

	st := s.State()
	assert.Equal(t, before, st.Items)
	assert.ErrorIs(t, st.Err, api.toggleErr)
}

func TestToggleLikeRejectsConcurrentToggle(t *testing.T) {
	api := seeded()
	s := New(api, nil)
	require.NoError(t, s.FetchForBook(context.Background(), 9, ""))

	var nested error
	api.onToggle = func() {
		api.onToggle = nil
		nested = s.ToggleLike(context.Background(), 1)
	}
	require.NoError(t, s.ToggleLike(context.Background(), 1))
	assert.ErrorIs(t, nested, ErrToggleInFlight)
	assert.Equal(t, int64(4), s.State().Items[0].LikeCount)
}

func TestToggleLikeUnknownReviewStillCallsServer(t *testing.T) {
	api := seeded()
	s := New(api, nil)
	called := false
	api.onToggle = func() { called = true }

	require.NoError(t, s.ToggleLike(context.Background(), 77))
	assert.True(t, called)
	assert.Empty(t, s.State().Items)
}

func TestOverlappingFetchesForSameBookKeepNewest(t *testing.T) {
	api := &fakeAPI{gates: []chan []model.Review{
		make(chan []model.Review),
		make(chan []model.Review),
	}}
	s := New(api, nil)

	started := func(n int) func() bool {
		return func() bool {
			api.mu.Lock()
			defer api.mu.Unlock()
			return len(api.fetchCalls) == n
		}
	}

	older := make(chan error, 1)
	go func() { older <- s.FetchForBook(context.Background(), 9, SortLatest) }()
	require.Eventually(t, started(1), time.Second, time.Millisecond)

	newer := make(chan error, 1)
	go func() { newer <- s.FetchForBook(context.Background(), 9, SortLatest) }()
	require.Eventually(t, started(2), time.Second, time.Millisecond)

	api.gates[1] <- []model.Review{{ID: 2, Comment: "new"}, {ID: 1, Comment: "old"}}
	require.NoError(t, <-newer)
	api.gates[0] <- []model.Review{{ID: 1, Comment: "old"}}
	require.NoError(t, <-older)

	st := s.State()
	require.Len(t, st.Items, 2)
	assert.Equal(t, int64(2), st.Items[0].ID)
	assert.False(t, st.Loading)
}

func TestUpdateReloadsBookList(t *testing.T) {
	api := seeded()
	s := New(api, nil)
	require.NoError(t, s.FetchForBook(context.Background(), 9, ""))

	require.NoError(t, s.Update(context.Background(), 2, "better on reread", 4))
	st := s.State()
	assert.Equal(t, "better on reread", st.Items[1].Comment)
	assert.Equal(t, 4.0, st.Items[1].Rating)
	assert.Len(t, api.fetchCalls, 2)
}

func TestUpdateRejectsOutOfRangeRating(t *testing.T) {
	api := seeded()
	s := New(api, nil)
	require.Error(t, s.Update(context.Background(), 2, "x", -1))
	assert.Equal(t, "meh", api.reviews[1].Comment)
}

func TestDeleteFailureKeepsList(t *testing.T) {
	api := seeded()
	s := New(api, nil)
	require.NoError(t, s.FetchForBook(context.Background(), 9, ""))

	api.editErr = errors.New("forbidden")
	require.Error(t, s.Delete(context.Background(), 2))
	st := s.State()
	assert.Len(t, st.Items, 2)
	assert.ErrorIs(t, st.Err, api.editErr)
	assert.Len(t, api.fetchCalls, 1)
}

func TestFetchMineThenDeleteReloadsMine(t *testing.T) {
	api := seeded()
	s := New(api, nil)
	require.NoError(t, s.FetchForBook(context.Background(), 9, ""))

	require.NoError(t, s.FetchMine(context.Background()))
	st := s.State()
	assert.True(t, st.Mine)
	assert.Zero(t, st.BookID)
	require.Len(t, st.Items, 1)
	assert.Equal(t, int64(2), st.Items[0].ID)

	require.NoError(t, s.Delete(context.Background(), 2))
	st = s.State()
	assert.True(t, st.Mine)
	assert.Empty(t, st.Items)
	assert.Equal(t, 2, api.mineCalls)
	assert.Len(t, api.fetchCalls, 1)
}

func TestFetchForBookLeavesMine(t *testing.T) {
	api := seeded()
	s := New(api, nil)
	require.NoError(t, s.FetchMine(context.Background()))

	require.NoError(t, s.FetchForBook(context.Background(), 9, ""))
	st := s.State()
	assert.False(t, st.Mine)
	assert.Equal(t, int64(9), st.BookID)
	assert.Len(t, st.Items, 2)
}
