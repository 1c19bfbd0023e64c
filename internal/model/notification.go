package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// NotificationType tags the kind of activity a notification reports.
type NotificationType string

const (
	NotificationReviewLiked NotificationType = "REVIEW_LIKED"
)

// ServerTimeLayout is the timestamp layout the service uses for
// createdAt fields (no zone, server local time).
const ServerTimeLayout = "2006-01-02T15:04:05"

// ErrMalformedNotification is returned by ParseNotification when the
// payload does not describe a usable notification.
var ErrMalformedNotification = errors.New("malformed notification payload")

// Notification is an alert about activity involving the signed-in user,
// such as another reader liking one of their reviews.
type Notification struct {
	// ID is the server-assigned identifier, unique within the inbox.
	ID int64 `json:"id"`

	// Type identifies what happened. Unknown values are kept verbatim.
	Type NotificationType `json:"type"`

	// Message is the human-readable notification text.
	Message string `json:"message"`

	// Read is false on arrival and only ever transitions to true.
	Read bool `json:"read"`

	// CreatedAt is the server timestamp in ServerTimeLayout.
	CreatedAt string `json:"createdAt"`

	ReviewID       *int64  `json:"reviewId,omitempty"`
	SenderID       *int64  `json:"senderId,omitempty"`
	SenderNickname *string `json:"senderNickname,omitempty"`
}

// CreatedTime parses CreatedAt. It accepts the server layout and RFC 3339.
func (n Notification) CreatedTime() (time.Time, error) {
	if t, err := time.ParseInLocation(ServerTimeLayout, n.CreatedAt, time.Local); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, n.CreatedAt)
}

// ParseNotification decodes a stream event payload into a Notification,
// rejecting anything that is not a JSON object with an id, a type and a
// message.
func ParseNotification(data []byte) (Notification, error) {
	var n Notification
	if err := json.Unmarshal(data, &n); err != nil {
		return Notification{}, fmt.Errorf("%w: %v", ErrMalformedNotification, err)
	}
	if n.ID <= 0 {
		return Notification{}, fmt.Errorf("%w: missing id", ErrMalformedNotification)
	}
	if n.Type == "" {
		return Notification{}, fmt.Errorf("%w: missing type", ErrMalformedNotification)
	}
	if n.Message == "" {
		return Notification{}, fmt.Errorf("%w: missing message", ErrMalformedNotification)
	}
	return n, nil
}
