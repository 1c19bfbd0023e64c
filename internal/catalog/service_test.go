package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/readonme/internal/api"
	"github.com/nhle/readonme/internal/model"
)

type fakeAPI struct {
	queries    []api.SearchQuery
	page       model.SearchPage
	detail     map[string]model.BookDetail
	editions   []model.BookDetail
	editionErr error
	popular    []model.BookDetail
	asked      []string
	suggested  []model.CatalogBook
	err        error
}

func (f *fakeAPI) SearchBooks(_ context.Context, q api.SearchQuery) (*model.SearchPage, error) {
	f.queries = append(f.queries, q)
	if f.err != nil {
		return nil, f.err
	}
	page := f.page
	return &page, nil
}

func (f *fakeAPI) BookDetail(_ context.Context, isbn string) (*model.BookDetail, error) {
	b, ok := f.detail[isbn]
	if !ok {
		return nil, &api.Error{Status: 404}
	}
	return &b, nil
}

func (f *fakeAPI) BookEditions(context.Context, string) ([]model.BookDetail, error) {
	return f.editions, f.editionErr
}

func (f *fakeAPI) PopularBooks(context.Context) ([]model.BookDetail, error) {
	return f.popular, f.err
}

func (f *fakeAPI) AISearch(_ context.Context, q string) ([]model.CatalogBook, error) {
	f.asked = append(f.asked, q)
	return f.suggested, f.err
}

func dune() model.BookDetail {
	return model.BookDetail{
		Book:          model.Book{ID: 4, Title: "Dune", Authors: "Frank Herbert", ISBN13: "9780441013593"},
		AverageRating: 4.5,
	}
}

func TestPopular(t *testing.T) {
	f := &fakeAPI{popular: []model.BookDetail{dune()}}
	res, err := NewService(f, nil).Popular(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, Hit{ISBN: "9780441013593", Title: "Dune", Authors: "Frank Herbert", Rating: 4.5}, res.Hits[0])
	assert.False(t, res.More)
}

func TestSearchPagesAndFlattensAuthors(t *testing.T) {
	f := &fakeAPI{}
	f.page.Documents = []model.CatalogBook{
		{Title: "Dune", ISBN: "0441013597 9780441013593", Authors: []string{"Frank Herbert", "Brian Herbert"}},
		{Title: "Old", ISBN: "0441013597"},
	}
	s := NewService(f, nil)

	res, err := s.Search(context.Background(), "  dune ", 0)
	require.NoError(t, err)
	assert.Equal(t, []api.SearchQuery{{Query: "dune", Page: 1, Size: PageSize}}, f.queries)
	assert.True(t, res.More)
	require.Len(t, res.Hits, 2)
	assert.Equal(t, "Frank Herbert, Brian Herbert", res.Hits[0].Authors)
	assert.Equal(t, "9780441013593", res.Hits[0].ISBN)
	assert.Empty(t, res.Hits[1].ISBN)
}

func TestEmptyQueriesAreRejected(t *testing.T) {
	f := &fakeAPI{}
	s := NewService(f, nil)

	_, err := s.Search(context.Background(), " ", 1)
	assert.ErrorIs(t, err, ErrEmptyQuery)
	_, err = s.Ask(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyQuery)
	assert.Empty(t, f.queries)
	assert.Empty(t, f.asked)
}

func TestAsk(t *testing.T) {
	f := &fakeAPI{suggested: []model.CatalogBook{{Title: "Dune", ISBN: "9780441013593"}}}
	res, err := NewService(f, nil).Ask(context.Background(), "desert politics")
	require.NoError(t, err)
	assert.Equal(t, []string{"desert politics"}, f.asked)
	assert.Equal(t, `Suggested for "desert politics"`, res.Title)
	assert.Len(t, res.Hits, 1)
}

func TestDetailDropsSelfFromEditions(t *testing.T) {
	d := dune()
	deluxe := model.BookDetail{Book: model.Book{ID: 5, Title: "Dune (Deluxe)"}}
	f := &fakeAPI{
		detail:   map[string]model.BookDetail{d.ISBN13: d},
		editions: []model.BookDetail{d, deluxe},
	}

	got, err := NewService(f, nil).Detail(context.Background(), d.ISBN13)
	require.NoError(t, err)
	assert.Equal(t, int64(4), got.Book.ID)
	assert.Equal(t, []model.BookDetail{deluxe}, got.Editions)
}

func TestDetailSurvivesEditionFailure(t *testing.T) {
	d := dune()
	f := &fakeAPI{detail: map[string]model.BookDetail{d.ISBN13: d}, editionErr: errors.New("boom")}

	got, err := NewService(f, nil).Detail(context.Background(), d.ISBN13)
	require.NoError(t, err)
	assert.Equal(t, "Dune", got.Book.Title)
	assert.Empty(t, got.Editions)
}

func TestDetailNotFound(t *testing.T) {
	_, err := NewService(&fakeAPI{}, nil).Detail(context.Background(), "0000000000000")
	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 404, apiErr.Status)
}
