package model

import (
	"strings"
	"unicode"
)

// CatalogBook is a search hit from the external book catalog. It is not
// stored by the service until someone opens its detail page.
type CatalogBook struct {
	Title       string   `json:"title"`
	Contents    string   `json:"contents"`
	URL         string   `json:"url"`
	ISBN        string   `json:"isbn"`
	Datetime    string   `json:"datetime"`
	Authors     []string `json:"authors"`
	Publisher   string   `json:"publisher"`
	Translators []string `json:"translators"`
	Price       int      `json:"price"`
	SalePrice   int      `json:"sale_price"`
	Thumbnail   string   `json:"thumbnail"`
	Status      string   `json:"status"`
}

// ISBN13 returns the 13-digit ISBN of the hit, or "" when the catalog
// only knows an ISBN-10. The catalog's isbn field may hold both numbers
// separated by a space.
func (b CatalogBook) ISBN13() string {
	return ISBN13(b.ISBN)
}

// ISBN13 extracts a 13-digit ISBN from raw.
func ISBN13(raw string) string {
	for _, part := range strings.Fields(raw) {
		if d := digits(part); len(d) == 13 {
			return d
		}
	}
	if d := digits(raw); len(d) >= 13 {
		return d[len(d)-13:]
	}
	return ""
}

func digits(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}

// SearchPage is one page of catalog search results.
type SearchPage struct {
	Meta struct {
		TotalCount    int  `json:"total_count"`
		PageableCount int  `json:"pageable_count"`
		IsEnd         bool `json:"is_end"`
	} `json:"meta"`
	Documents []CatalogBook `json:"documents"`
}

// BookDetail is the service's full record of a book.
type BookDetail struct {
	Book
	ISBN10        string  `json:"isbn10"`
	GroupTitle    string  `json:"groupTitle"`
	Contents      string  `json:"contents"`
	Translators   string  `json:"translators"`
	Price         int     `json:"price"`
	SalePrice     int     `json:"salePrice"`
	PublishDate   string  `json:"publishDate"`
	URL           string  `json:"url"`
	AverageRating float64 `json:"averageRating"`
}
