package model

import (
	"fmt"
	"time"
)

// ReadingStatus is the shelf a book sits on in the personal library.
type ReadingStatus string

const (
	StatusToRead    ReadingStatus = "TO_READ"
	StatusReading   ReadingStatus = "READING"
	StatusCompleted ReadingStatus = "COMPLETED"
)

// ReadingStatuses lists the shelves in display order.
var ReadingStatuses = []ReadingStatus{StatusToRead, StatusReading, StatusCompleted}

// Label returns a short human-readable shelf name.
func (s ReadingStatus) Label() string {
	switch s {
	case StatusToRead:
		return "to read"
	case StatusReading:
		return "reading"
	case StatusCompleted:
		return "completed"
	default:
		return string(s)
	}
}

// Next returns the shelf after s, wrapping around. A book on no shelf
// goes to StatusToRead.
func (s ReadingStatus) Next() ReadingStatus {
	for i, st := range ReadingStatuses {
		if st == s {
			return ReadingStatuses[(i+1)%len(ReadingStatuses)]
		}
	}
	return StatusToRead
}

// ParseReadingStatus validates a status string.
func ParseReadingStatus(s string) (ReadingStatus, error) {
	for _, st := range ReadingStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown reading status %q", s)
}

// Book is the catalog record the service returns in lists and reviews.
type Book struct {
	ID        int64  `json:"id" db:"book_id"`
	Title     string `json:"title" db:"title"`
	Authors   string `json:"authors" db:"authors"`
	Publisher string `json:"publisher" db:"publisher"`
	Thumbnail string `json:"thumbnail" db:"thumbnail"`
	ISBN13    string `json:"isbn13" db:"isbn13"`
}

// LibraryEntry is a book on one of the user's shelves.
type LibraryEntry struct {
	Book
	Status    ReadingStatus `db:"status"`
	UpdatedAt time.Time     `db:"updated_at"`
}
