package api

import (
	"context"
	"fmt"
	"net/url"

	"github.com/nhle/readonme/internal/model"
)

// SignInResult is the data of a successful sign-in.
type SignInResult struct {
	AccessToken string     `json:"access_token"`
	TokenType   string     `json:"token_type"`
	ExpiresIn   int64      `json:"expires_in"`
	User        model.User `json:"user"`
}

// SignIn exchanges credentials for an access token.
func (c *Client) SignIn(ctx context.Context, email, password string) (*SignInResult, error) {
	body := map[string]string{"email": email, "password": password}

	var res SignInResult
	if err := c.post(ctx, "/api/users/signin", nil, body, &res); err != nil {
		return nil, fmt.Errorf("signing in: %w", err)
	}
	if res.AccessToken == "" {
		return nil, fmt.Errorf("signing in: response carried no access token")
	}
	return &res, nil
}

// SignUp registers a new account. It does not sign the user in.
func (c *Client) SignUp(ctx context.Context, email, password, nickname string) (*model.User, error) {
	body := map[string]string{"email": email, "password": password, "nickname": nickname}

	var u model.User
	if err := c.post(ctx, "/api/users/signup", nil, body, &u); err != nil {
		return nil, fmt.Errorf("signing up: %w", err)
	}
	return &u, nil
}

// Profile returns the signed-in user's profile.
func (c *Client) Profile(ctx context.Context) (*model.User, error) {
	var u model.User
	if err := c.get(ctx, "/api/users/profile", nil, &u); err != nil {
		return nil, fmt.Errorf("fetching profile: %w", err)
	}
	return &u, nil
}

// Notifications returns the user's most recent notifications, newest first.
func (c *Client) Notifications(ctx context.Context) ([]model.Notification, error) {
	var list []model.Notification
	if err := c.get(ctx, "/api/notifications", nil, &list); err != nil {
		return nil, fmt.Errorf("fetching notifications: %w", err)
	}
	return list, nil
}

// MarkNotificationRead marks one notification as read on the server.
func (c *Client) MarkNotificationRead(ctx context.Context, id int64) error {
	path := fmt.Sprintf("/api/notifications/%d/read", id)
	if err := c.post(ctx, path, nil, nil, nil); err != nil {
		return fmt.Errorf("marking notification %d as read: %w", id, err)
	}
	return nil
}

// MarkAllNotificationsRead marks every notification as read on the server.
func (c *Client) MarkAllNotificationsRead(ctx context.Context) error {
	if err := c.post(ctx, "/api/notifications/read-all", nil, nil, nil); err != nil {
		return fmt.Errorf("marking all notifications as read: %w", err)
	}
	return nil
}

// reviewSlice is the paged wrapper the reviews endpoint returns.
type reviewSlice struct {
	Content []model.Review `json:"content"`
	Last    bool           `json:"last"`
}

// ReviewsForBook lists reviews for a book. sort is "latest" or "likes".
func (c *Client) ReviewsForBook(ctx context.Context, bookID int64, sort string) ([]model.Review, error) {
	q := url.Values{}
	if sort != "" {
		q.Set("sort", sort)
	}

	var page reviewSlice
	path := fmt.Sprintf("/api/books/%d/reviews", bookID)
	if err := c.get(ctx, path, q, &page); err != nil {
		return nil, fmt.Errorf("fetching reviews for book %d: %w", bookID, err)
	}
	return page.Content, nil
}

// CreateReview posts a review and returns the new review id.
func (c *Client) CreateReview(ctx context.Context, bookID int64, comment string, rating float64) (int64, error) {
	body := map[string]interface{}{"comment": comment, "rating": rating}

	var id int64
	path := fmt.Sprintf("/api/books/%d/review", bookID)
	if err := c.post(ctx, path, nil, body, &id); err != nil {
		return 0, fmt.Errorf("creating review for book %d: %w", bookID, err)
	}
	return id, nil
}

// ToggleReviewLike likes or unlikes a review for the signed-in user.
func (c *Client) ToggleReviewLike(ctx context.Context, reviewID int64) error {
	path := fmt.Sprintf("/api/books/review/%d/like", reviewID)
	if err := c.post(ctx, path, nil, nil, nil); err != nil {
		return fmt.Errorf("toggling like on review %d: %w", reviewID, err)
	}
	return nil
}

// Library is the user's reading list grouped by shelf.
type Library struct {
	ToRead    []model.Book `json:"toReadBooks"`
	Reading   []model.Book `json:"readingBooks"`
	Completed []model.Book `json:"completedBooks"`
}

// Shelf returns the books for one status.
func (l Library) Shelf(status model.ReadingStatus) []model.Book {
	switch status {
	case model.StatusToRead:
		return l.ToRead
	case model.StatusReading:
		return l.Reading
	case model.StatusCompleted:
		return l.Completed
	default:
		return nil
	}
}

// Library returns the signed-in user's reading list.
func (c *Client) Library(ctx context.Context) (*Library, error) {
	var lib Library
	if err := c.get(ctx, "/api/library", nil, &lib); err != nil {
		return nil, fmt.Errorf("fetching library: %w", err)
	}
	return &lib, nil
}

// SetBookStatus moves a book onto the given shelf.
func (c *Client) SetBookStatus(ctx context.Context, bookID int64, status model.ReadingStatus) error {
	q := url.Values{"status": []string{string(status)}}
	path := fmt.Sprintf("/api/library/%d", bookID)
	if err := c.post(ctx, path, q, nil, nil); err != nil {
		return fmt.Errorf("setting status of book %d: %w", bookID, err)
	}
	return nil
}

// UpdateReview replaces the comment and rating of one of the user's
// reviews.
func (c *Client) UpdateReview(ctx context.Context, reviewID int64, comment string, rating float64) error {
	body := map[string]interface{}{"comment": comment, "rating": rating}
	path := fmt.Sprintf("/api/books/review/%d", reviewID)
	if err := c.put(ctx, path, body, nil); err != nil {
		return fmt.Errorf("updating review %d: %w", reviewID, err)
	}
	return nil
}

// DeleteReview removes one of the user's reviews.
func (c *Client) DeleteReview(ctx context.Context, reviewID int64) error {
	path := fmt.Sprintf("/api/books/review/%d", reviewID)
	if err := c.delete(ctx, path); err != nil {
		return fmt.Errorf("deleting review %d: %w", reviewID, err)
	}
	return nil
}

// MyReviews lists every review the signed-in user wrote.
func (c *Client) MyReviews(ctx context.Context) ([]model.Review, error) {
	var list []model.Review
	if err := c.get(ctx, "/api/reviews/my", nil, &list); err != nil {
		return nil, fmt.Errorf("fetching my reviews: %w", err)
	}
	return list, nil
}
