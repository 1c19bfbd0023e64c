package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/nhle/readonme/internal/model"
)

// Search sort orders and targets accepted by SearchBooks.
const (
	SearchSortAccuracy = "accuracy"
	SearchSortLatest   = "latest"

	SearchTargetTitle     = "title"
	SearchTargetISBN      = "isbn"
	SearchTargetPublisher = "publisher"
	SearchTargetPerson    = "person"
)

// SearchQuery parameterizes a catalog search. Zero fields take the
// service defaults.
type SearchQuery struct {
	Query  string
	Page   int
	Size   int
	Sort   string
	Target string
}

func (q SearchQuery) values() url.Values {
	v := url.Values{"query": []string{q.Query}}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Size > 0 {
		v.Set("size", strconv.Itoa(q.Size))
	}
	if q.Sort != "" {
		v.Set("sort", q.Sort)
	}
	if q.Target != "" {
		v.Set("target", q.Target)
	}
	return v
}

// SearchBooks runs a keyword search against the external catalog.
func (c *Client) SearchBooks(ctx context.Context, q SearchQuery) (*model.SearchPage, error) {
	var page model.SearchPage
	if err := c.getBare(ctx, "/api/books/search", q.values(), &page); err != nil {
		return nil, fmt.Errorf("searching books for %q: %w", q.Query, err)
	}
	return &page, nil
}

// BookDetail returns the service's record of the book with isbn.
func (c *Client) BookDetail(ctx context.Context, isbn string) (*model.BookDetail, error) {
	var b model.BookDetail
	path := "/api/books/detail/" + url.PathEscape(isbn)
	if err := c.getBare(ctx, path, nil, &b); err != nil {
		return nil, fmt.Errorf("fetching book %s: %w", isbn, err)
	}
	return &b, nil
}

// BookEditions lists other editions of the book with isbn.
func (c *Client) BookEditions(ctx context.Context, isbn string) ([]model.BookDetail, error) {
	var list []model.BookDetail
	path := fmt.Sprintf("/api/books/%s/editions", url.PathEscape(isbn))
	if err := c.getBare(ctx, path, nil, &list); err != nil {
		return nil, fmt.Errorf("fetching editions of %s: %w", isbn, err)
	}
	return list, nil
}

// PopularBooks returns the service's most reviewed books.
func (c *Client) PopularBooks(ctx context.Context) ([]model.BookDetail, error) {
	var list []model.BookDetail
	if err := c.getBare(ctx, "/api/books/popular", nil, &list); err != nil {
		return nil, fmt.Errorf("fetching popular books: %w", err)
	}
	return list, nil
}

// AISearch asks the recommendation assistant for books matching a free
// text request. It needs a signed-in user.
func (c *Client) AISearch(ctx context.Context, query string) ([]model.CatalogBook, error) {
	body := map[string]string{"query": query}

	var list []model.CatalogBook
	if err := c.postBare(ctx, "/api/ai/search", body, &list); err != nil {
		return nil, fmt.Errorf("asking for recommendations: %w", err)
	}
	return list, nil
}
