// Package catalog browses books beyond the user's own library: the
// popular list, keyword and assistant searches, and book detail pages.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/nhle/readonme/internal/api"
	"github.com/nhle/readonme/internal/logger"
	"github.com/nhle/readonme/internal/model"
)

// PageSize is how many hits one keyword search asks for.
const PageSize = 20

// ErrEmptyQuery is returned when a search is started without a query.
var ErrEmptyQuery = errors.New("enter something to search for")

// API is the subset of the REST client the service calls.
type API interface {
	SearchBooks(ctx context.Context, q api.SearchQuery) (*model.SearchPage, error)
	BookDetail(ctx context.Context, isbn string) (*model.BookDetail, error)
	BookEditions(ctx context.Context, isbn string) ([]model.BookDetail, error)
	PopularBooks(ctx context.Context) ([]model.BookDetail, error)
	AISearch(ctx context.Context, query string) ([]model.CatalogBook, error)
}

// Hit is one row of a result list. ISBN is empty when the hit cannot be
// opened.
type Hit struct {
	ISBN      string
	Title     string
	Authors   string
	Publisher string
	Rating    float64
}

// Results is a result list and whether more pages exist.
type Results struct {
	Title string
	Hits  []Hit
	More  bool
}

// Detail is a book page.
type Detail struct {
	Book     model.BookDetail
	Editions []model.BookDetail
}

// Service queries the catalog endpoints.
type Service struct {
	api API
	log *zap.Logger
}

// NewService creates a Service.
func NewService(a API, l *zap.Logger) *Service {
	return &Service{api: a, log: logger.OrNop(l)}
}

// Popular returns the service's popular books.
func (s *Service) Popular(ctx context.Context) (Results, error) {
	books, err := s.api.PopularBooks(ctx)
	if err != nil {
		return Results{}, err
	}
	hits := make([]Hit, 0, len(books))
	for _, b := range books {
		hits = append(hits, fromDetail(b))
	}
	return Results{Title: "Popular books", Hits: hits}, nil
}

// Search runs a keyword search. page starts at 1.
func (s *Service) Search(ctx context.Context, query string, page int) (Results, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Results{}, ErrEmptyQuery
	}
	if page < 1 {
		page = 1
	}

	res, err := s.api.SearchBooks(ctx, api.SearchQuery{Query: query, Page: page, Size: PageSize})
	if err != nil {
		return Results{}, err
	}
	s.log.Debug("catalog search",
		zap.String("query", query),
		zap.Int("page", page),
		zap.Int("total", res.Meta.TotalCount),
	)
	return Results{
		Title: fmt.Sprintf("Search: %q", query),
		Hits:  fromCatalog(res.Documents),
		More:  !res.Meta.IsEnd,
	}, nil
}

// Ask passes a free text request to the recommendation assistant.
func (s *Service) Ask(ctx context.Context, request string) (Results, error) {
	request = strings.TrimSpace(request)
	if request == "" {
		return Results{}, ErrEmptyQuery
	}
	books, err := s.api.AISearch(ctx, request)
	if err != nil {
		return Results{}, err
	}
	return Results{Title: fmt.Sprintf("Suggested for %q", request), Hits: fromCatalog(books)}, nil
}

// Detail loads a book page with its other editions. Failing to load the
// editions is logged, not returned.
func (s *Service) Detail(ctx context.Context, isbn string) (Detail, error) {
	b, err := s.api.BookDetail(ctx, isbn)
	if err != nil {
		return Detail{}, err
	}

	editions, err := s.api.BookEditions(ctx, isbn)
	if err != nil {
		s.log.Warn("fetching editions", zap.String("isbn", isbn), zap.Error(err))
	}
	var others []model.BookDetail
	for _, e := range editions {
		if e.ID != b.ID {
			others = append(others, e)
		}
	}
	return Detail{Book: *b, Editions: others}, nil
}

func fromDetail(b model.BookDetail) Hit {
	return Hit{
		ISBN:      b.ISBN13,
		Title:     b.Title,
		Authors:   b.Authors,
		Publisher: b.Publisher,
		Rating:    b.AverageRating,
	}
}

func fromCatalog(books []model.CatalogBook) []Hit {
	hits := make([]Hit, 0, len(books))
	for _, b := range books {
		hits = append(hits, Hit{
			ISBN:      b.ISBN13(),
			Title:     b.Title,
			Authors:   strings.Join(b.Authors, ", "),
			Publisher: b.Publisher,
		})
	}
	return hits
}
