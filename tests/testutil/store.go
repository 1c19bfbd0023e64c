// Package testutil holds helpers shared by package tests.
package testutil

import (
	"fmt"
	"testing"

	"github.com/nhle/readonme/internal/model"
	"github.com/nhle/readonme/internal/store"
)

// NewTestStore creates an in-memory SQLiteStore with all migrations applied.
// It automatically closes the store when the test completes.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}

// Book returns a catalog record with the given id and title.
func Book(id int64, title string) model.Book {
	return model.Book{
		ID:        id,
		Title:     title,
		Authors:   "Author " + title,
		Publisher: "Press",
		ISBN13:    fmt.Sprintf("97800000000%02d", id%100),
	}
}
