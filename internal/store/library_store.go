package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/nhle/readonme/internal/model"
)

// ErrNotFound is returned when a cached row does not exist.
var ErrNotFound = errors.New("not found")

const upsertLibraryEntry = `
	INSERT INTO library_entries (
		book_id, title, authors, publisher, thumbnail, isbn13, status, updated_at
	) VALUES (
		:book_id, :title, :authors, :publisher, :thumbnail, :isbn13, :status, :updated_at
	)
	ON CONFLICT(book_id) DO UPDATE SET
		title      = excluded.title,
		authors    = excluded.authors,
		publisher  = excluded.publisher,
		thumbnail  = excluded.thumbnail,
		isbn13     = excluded.isbn13,
		status     = excluded.status,
		updated_at = excluded.updated_at`

// ReplaceLibrary deletes every cached entry and inserts entries in one
// transaction.
func (s *SQLiteStore) ReplaceLibrary(ctx context.Context, entries []model.LibraryEntry) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM library_entries"); err != nil {
		return fmt.Errorf("clearing library: %w", err)
	}

	if len(entries) > 0 {
		stmt, err := tx.PrepareNamedContext(ctx, upsertLibraryEntry)
		if err != nil {
			return fmt.Errorf("preparing upsert statement: %w", err)
		}
		defer stmt.Close()

		for _, e := range entries {
			if _, err := stmt.ExecContext(ctx, normalizeEntry(e)); err != nil {
				return fmt.Errorf("inserting book %d: %w", e.ID, err)
			}
		}
	}

	return tx.Commit()
}

// UpsertLibraryEntry inserts or updates one cached book.
func (s *SQLiteStore) UpsertLibraryEntry(ctx context.Context, e model.LibraryEntry) error {
	if _, err := s.db.NamedExecContext(ctx, upsertLibraryEntry, normalizeEntry(e)); err != nil {
		return fmt.Errorf("upserting book %d: %w", e.ID, err)
	}
	return nil
}

// DeleteLibraryEntry removes a book from the cache. A missing book is
// not an error.
func (s *SQLiteStore) DeleteLibraryEntry(ctx context.Context, bookID int64) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM library_entries WHERE book_id = ?", bookID); err != nil {
		return fmt.Errorf("deleting book %d: %w", bookID, err)
	}
	return nil
}

// GetLibrary returns cached entries matching f.
func (s *SQLiteStore) GetLibrary(ctx context.Context, f LibraryFilter) ([]model.LibraryEntry, error) {
	var conditions []string
	var args []interface{}

	if f.Status != nil {
		conditions = append(conditions, "status = ?")
		args = append(args, string(*f.Status))
	}
	if f.Query != nil && *f.Query != "" {
		conditions = append(conditions, "(title LIKE ? OR authors LIKE ?)")
		q := "%" + *f.Query + "%"
		args = append(args, q, q)
	}

	query := "SELECT book_id, title, authors, publisher, thumbnail, isbn13, status, updated_at FROM library_entries"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	sortBy := "updated_at"
	switch f.SortBy {
	case "title", "authors", "updated_at":
		sortBy = f.SortBy
	}
	direction := "ASC"
	if f.SortDesc {
		direction = "DESC"
	}
	query += fmt.Sprintf(" ORDER BY %s %s, book_id ASC", sortBy, direction)

	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	var entries []model.LibraryEntry
	if err := s.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("querying library: %w", err)
	}
	return entries, nil
}

// GetLibraryEntry returns one cached book or ErrNotFound.
func (s *SQLiteStore) GetLibraryEntry(ctx context.Context, bookID int64) (*model.LibraryEntry, error) {
	var e model.LibraryEntry
	err := s.db.GetContext(ctx, &e,
		"SELECT book_id, title, authors, publisher, thumbnail, isbn13, status, updated_at FROM library_entries WHERE book_id = ?",
		bookID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("book %d: %w", bookID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting book %d: %w", bookID, err)
	}
	return &e, nil
}

// CountByStatus returns how many cached books sit on each shelf.
func (s *SQLiteStore) CountByStatus(ctx context.Context) (map[model.ReadingStatus]int, error) {
	rows, err := s.db.QueryxContext(ctx, "SELECT status, COUNT(*) FROM library_entries GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("counting library: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.ReadingStatus]int, len(model.ReadingStatuses))
	for rows.Next() {
		status, n, err := scanCount(rows)
		if err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func scanCount(rows *sqlx.Rows) (model.ReadingStatus, int, error) {
	var (
		status string
		n      int
	)
	if err := rows.Scan(&status, &n); err != nil {
		return "", 0, fmt.Errorf("scanning count row: %w", err)
	}
	return model.ReadingStatus(status), n, nil
}

func normalizeEntry(e model.LibraryEntry) model.LibraryEntry {
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = time.Now()
	}
	e.UpdatedAt = e.UpdatedAt.UTC()
	return e
}
