// Package notify holds the client-side notification inbox: the list of
// notifications, the unread counter, and the REST actions that change them.
package notify

import (
	"context"
	gosync "sync"

	"go.uber.org/zap"

	"github.com/nhle/readonme/internal/logger"
	"github.com/nhle/readonme/internal/model"
)

// API is the subset of the REST client the store calls.
type API interface {
	Notifications(ctx context.Context) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, id int64) error
	MarkAllNotificationsRead(ctx context.Context) error
}

// MarkOption tunes the mark-read actions.
type MarkOption func(*markOptions)

type markOptions struct {
	optimistic bool
}

// Optimistic applies the read flag before the server confirms it. If the
// call fails the flag is cleared again on exactly the notifications that
// the update changed.
func Optimistic() MarkOption {
	return func(o *markOptions) { o.optimistic = true }
}

// Store is the shared notification inbox. All transitions are applied
// under one mutex so concurrent callers see them in a single order.
type Store struct {
	api API
	log *zap.Logger

	mu          gosync.Mutex
	state       State
	fetchSeq    uint64
	subscribers map[int]func(State)
	nextSubID   int
}

// New creates an empty Store.
func New(a API, l *zap.Logger) *Store {
	return &Store{
		api:         a,
		log:         logger.OrNop(l),
		subscribers: make(map[int]func(State)),
	}
}

// State returns a snapshot. The Items slice is a copy.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.state
	snap.Items = append([]model.Notification(nil), s.state.Items...)
	return snap
}

// UnreadCount returns the current unread counter.
func (s *Store) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.UnreadCount
}

// Subscribe registers fn to receive every new state. The returned func
// unsubscribes.
func (s *Store) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

// FetchAll replaces the list with the server's current set. On failure
// the list is left as it was and the error is recorded in State.Err.
// When fetches overlap only the most recently started one is applied, and
// a result that arrives after ctx is done is dropped.
func (s *Store) FetchAll(ctx context.Context) error {
	var seq uint64
	s.apply(func(st State) State {
		s.fetchSeq++
		seq = s.fetchSeq
		st.Loading = true
		st.Err = nil
		return st
	})

	items, err := s.api.Notifications(ctx)
	if err != nil {
		if ctx.Err() != nil {
			s.log.Debug("notification fetch cancelled", zap.Error(err))
		} else {
			s.log.Warn("fetching notifications", zap.Error(err))
		}
		s.apply(func(st State) State {
			if seq != s.fetchSeq {
				return st
			}
			st.Loading = false
			if ctx.Err() == nil {
				st.Err = err
			}
			return st
		})
		return err
	}

	var dropped error
	s.apply(func(st State) State {
		if seq != s.fetchSeq {
			s.log.Debug("dropping superseded notification fetch", zap.Uint64("seq", seq))
			return st
		}
		// Checked under the lock so a cancel that precedes this point
		// always wins.
		if dropped = ctx.Err(); dropped != nil {
			s.log.Debug("dropping notification fetch after cancel", zap.Uint64("seq", seq))
			st.Loading = false
			return st
		}
		return replaced(st, items)
	})
	return dropped
}

// AddOne prepends a pushed notification and increments the unread
// counter by one.
func (s *Store) AddOne(n model.Notification) {
	s.apply(func(st State) State { return added(st, n) })
}

// MarkOneRead marks a notification read on the server, then locally.
// An id that is not in the list is not an error.
func (s *Store) MarkOneRead(ctx context.Context, id int64, opts ...MarkOption) error {
	return s.mark(ctx, opts,
		func(ctx context.Context) error { return s.api.MarkNotificationRead(ctx, id) },
		func(st State) State { return markedRead(st, id) },
	)
}

// MarkAllRead marks every notification read on the server, then locally.
func (s *Store) MarkAllRead(ctx context.Context, opts ...MarkOption) error {
	return s.mark(ctx, opts, s.api.MarkAllNotificationsRead, allRead)
}

func (s *Store) mark(
	ctx context.Context,
	opts []MarkOption,
	call func(context.Context) error,
	reduce func(State) State,
) error {
	var o markOptions
	for _, opt := range opts {
		opt(&o)
	}

	if !o.optimistic {
		if err := call(ctx); err != nil {
			s.recordErr(err)
			return err
		}
		s.apply(reduce)
		return nil
	}

	var flipped map[int64]bool
	s.apply(func(st State) State {
		next := reduce(st)
		flipped = newlyRead(st.Items, next.Items)
		return next
	})

	if err := call(ctx); err != nil {
		s.apply(func(st State) State {
			st = unflagged(st, flipped)
			st.Err = err
			return st
		})
		return err
	}
	return nil
}

// Reset empties the inbox, e.g. after sign-out. A fetch still in flight
// is discarded when it returns.
func (s *Store) Reset() {
	s.apply(func(State) State {
		s.fetchSeq++
		return State{}
	})
}

func (s *Store) recordErr(err error) {
	s.apply(func(st State) State {
		st.Err = err
		return st
	})
}

// apply runs reduce under the lock and fans the result out to
// subscribers after releasing it.
func (s *Store) apply(reduce func(State) State) {
	s.mu.Lock()
	s.state = reduce(s.state)
	snap := s.state
	snap.Items = append([]model.Notification(nil), s.state.Items...)
	subs := make([]func(State), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}
