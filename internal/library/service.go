// Package library serves the user's reading list from the local cache and
// keeps that cache in step with the server.
package library

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nhle/readonme/internal/api"
	"github.com/nhle/readonme/internal/logger"
	"github.com/nhle/readonme/internal/model"
	"github.com/nhle/readonme/internal/store"
)

// API is the subset of the REST client the service calls.
type API interface {
	Library(ctx context.Context) (*api.Library, error)
	SetBookStatus(ctx context.Context, bookID int64, status model.ReadingStatus) error
}

// Service reads the reading list from the cache and writes through to
// the server.
type Service struct {
	api   API
	cache store.Store
	log   *zap.Logger
	now   func() time.Time
}

// NewService creates a Service.
func NewService(a API, cache store.Store, l *zap.Logger) *Service {
	return &Service{api: a, cache: cache, log: logger.OrNop(l), now: time.Now}
}

// Refresh downloads the reading list and replaces the cache with it. On
// failure the cache is left untouched.
func (s *Service) Refresh(ctx context.Context) error {
	lib, err := s.api.Library(ctx)
	if err != nil {
		return err
	}

	now := s.now()
	var entries []model.LibraryEntry
	for _, status := range model.ReadingStatuses {
		for _, b := range lib.Shelf(status) {
			entries = append(entries, model.LibraryEntry{Book: b, Status: status, UpdatedAt: now})
		}
	}

	if err := s.cache.ReplaceLibrary(ctx, entries); err != nil {
		return fmt.Errorf("caching library: %w", err)
	}
	if err := s.cache.MarkSynced(ctx, store.SyncKeyLibrary, now); err != nil {
		s.log.Warn("recording library sync time", zap.Error(err))
	}
	s.log.Info("library refreshed", zap.Int("books", len(entries)))
	return nil
}

// Entries returns cached books, newest change first. A nil status
// returns every shelf.
func (s *Service) Entries(ctx context.Context, status *model.ReadingStatus) ([]model.LibraryEntry, error) {
	return s.cache.GetLibrary(ctx, store.LibraryFilter{Status: status, SortDesc: true})
}

// Search returns cached books whose title or authors contain q.
func (s *Service) Search(ctx context.Context, q string) ([]model.LibraryEntry, error) {
	return s.cache.GetLibrary(ctx, store.LibraryFilter{Query: &q, SortBy: "title"})
}

// Counts returns the number of cached books per shelf.
func (s *Service) Counts(ctx context.Context) (map[model.ReadingStatus]int, error) {
	return s.cache.CountByStatus(ctx)
}

// Shelf returns the shelf bookID sits on, or "" when it is not in the
// library.
func (s *Service) Shelf(ctx context.Context, bookID int64) (model.ReadingStatus, error) {
	e, err := s.cache.GetLibraryEntry(ctx, bookID)
	if errors.Is(err, store.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return e.Status, nil
}

// LastRefreshed reports when Refresh last succeeded.
func (s *Service) LastRefreshed(ctx context.Context) (time.Time, bool, error) {
	return s.cache.LastSynced(ctx, store.SyncKeyLibrary)
}

// SetStatus moves book to status on the server, then in the cache.
func (s *Service) SetStatus(ctx context.Context, book model.Book, status model.ReadingStatus) error {
	if _, err := model.ParseReadingStatus(string(status)); err != nil {
		return err
	}
	if err := s.api.SetBookStatus(ctx, book.ID, status); err != nil {
		return err
	}

	e := model.LibraryEntry{Book: book, Status: status, UpdatedAt: s.now()}
	if err := s.cache.UpsertLibraryEntry(ctx, e); err != nil {
		return fmt.Errorf("caching status of book %d: %w", book.ID, err)
	}
	s.log.Info("book status changed", zap.Int64("book_id", book.ID), zap.String("status", string(status)))
	return nil
}
