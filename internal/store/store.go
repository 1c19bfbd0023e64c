package store

import (
	"context"
	"time"

	"github.com/nhle/readonme/internal/model"
)

// SyncKeyLibrary is the sync_state key of the reading list.
const SyncKeyLibrary = "library"

// LibraryFilter controls filtering and sorting for library queries.
type LibraryFilter struct {
	Status   *model.ReadingStatus // nil for every shelf
	Query    *string              // search title + authors
	SortBy   string               // "updated_at" (default), "title", "authors"
	SortDesc bool
	Limit    int
}

// Store is the local cache of server data that should survive restarts
// and be readable offline.
type Store interface {
	// ReplaceLibrary swaps the whole reading list for entries.
	ReplaceLibrary(ctx context.Context, entries []model.LibraryEntry) error
	// UpsertLibraryEntry inserts or updates one book.
	UpsertLibraryEntry(ctx context.Context, e model.LibraryEntry) error
	DeleteLibraryEntry(ctx context.Context, bookID int64) error
	GetLibrary(ctx context.Context, f LibraryFilter) ([]model.LibraryEntry, error)
	GetLibraryEntry(ctx context.Context, bookID int64) (*model.LibraryEntry, error)
	CountByStatus(ctx context.Context) (map[model.ReadingStatus]int, error)

	MarkSynced(ctx context.Context, key string, at time.Time) error
	LastSynced(ctx context.Context, key string) (time.Time, bool, error)

	Close() error
}

var _ Store = (*SQLiteStore)(nil)
