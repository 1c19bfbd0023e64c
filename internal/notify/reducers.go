package notify

import "github.com/nhle/readonme/internal/model"

// State is the notification inbox as the UI sees it.
type State struct {
	Items       []model.Notification
	UnreadCount int
	Loading     bool
	Err         error
}

// The reducers below never mutate their input; each returns a fresh
// State that shares no slice backing array with the old one.

// replaced applies the result of an authoritative fetch. Duplicate ids
// are collapsed, first occurrence wins.
func replaced(s State, items []model.Notification) State {
	seen := make(map[int64]bool, len(items))
	next := make([]model.Notification, 0, len(items))
	for _, n := range items {
		if seen[n.ID] {
			continue
		}
		seen[n.ID] = true
		next = append(next, n)
	}

	s.Items = next
	s.UnreadCount = countUnread(next)
	s.Loading = false
	s.Err = nil
	return s
}

// added prepends n and bumps the unread counter by exactly one. It does
// not check for an existing entry with the same id.
func added(s State, n model.Notification) State {
	next := make([]model.Notification, 0, len(s.Items)+1)
	next = append(next, n)
	next = append(next, s.Items...)

	s.Items = next
	s.UnreadCount++
	return s
}

// markedRead flags the notification with id as read and recounts.
// An unknown id leaves the items untouched.
func markedRead(s State, id int64) State {
	next := make([]model.Notification, len(s.Items))
	copy(next, s.Items)
	for i := range next {
		if next[i].ID == id {
			next[i].Read = true
		}
	}

	s.Items = next
	s.UnreadCount = countUnread(next)
	return s
}

// allRead flags every notification as read.
func allRead(s State) State {
	next := make([]model.Notification, len(s.Items))
	copy(next, s.Items)
	for i := range next {
		next[i].Read = true
	}

	s.Items = next
	s.UnreadCount = 0
	return s
}

// newlyRead returns the ids that are unread in before and read in after.
func newlyRead(before, after []model.Notification) map[int64]bool {
	wasUnread := make(map[int64]bool, len(before))
	for _, n := range before {
		if !n.Read {
			wasUnread[n.ID] = true
		}
	}
	ids := make(map[int64]bool)
	for _, n := range after {
		if n.Read && wasUnread[n.ID] {
			ids[n.ID] = true
		}
	}
	return ids
}

// unflagged is the inverse of an optimistic mark-read: it clears the
// read flag on exactly the given ids and recounts.
func unflagged(s State, ids map[int64]bool) State {
	next := make([]model.Notification, len(s.Items))
	copy(next, s.Items)
	for i := range next {
		if ids[next[i].ID] {
			next[i].Read = false
		}
	}

	s.Items = next
	s.UnreadCount = countUnread(next)
	return s
}

func countUnread(items []model.Notification) int {
	n := 0
	for _, item := range items {
		if !item.Read {
			n++
		}
	}
	return n
}
