package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/readonme/internal/model"
)

func staticToken(tok string) TokenSource {
	return func(context.Context) (string, error) { return tok, nil }
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, v interface{}) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestNotificationsSendsBearerAndDecodesEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/notifications", r.URL.Path)
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		writeJSON(t, w, http.StatusOK, map[string]interface{}{
			"success": true,
			"message": "ok",
			"data": []map[string]interface{}{
				{"id": 2, "type": "REVIEW_LIKED", "message": "b", "read": false, "createdAt": "2025-01-02T00:00:00"},
				{"id": 1, "type": "REVIEW_LIKED", "message": "a", "read": true, "createdAt": "2025-01-01T00:00:00"},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, staticToken("tok-1"))
	list, err := c.Notifications(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, int64(2), list[0].ID)
	assert.True(t, list[1].Read)
}

func TestSignInSkipsAuthorization(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/users/signin", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "reader@example.com", body["email"])

		writeJSON(t, w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data": map[string]interface{}{
				"access_token": "jwt-abc",
				"expires_in":   3600,
				"user":         map[string]interface{}{"id": 9, "email": "reader@example.com", "nickname": "reader"},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, staticToken("stale"))
	res, err := c.SignIn(context.Background(), "reader@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "jwt-abc", res.AccessToken)
	assert.Equal(t, "reader", res.User.Nickname)
}

func TestEnvelopeFailureIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]interface{}{"success": false, "message": "bad credentials"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, nil)
	_, err := c.SignIn(context.Background(), "a", "b")
	require.Error(t, err)

	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "bad credentials", apiErr.UserMessage())
}

func TestStatusErrorMapping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusNotFound, map[string]interface{}{
			"status": 404, "code": "NOTIFICATION_NOT_FOUND", "message": "no such notification",
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, staticToken("t"))
	err := c.MarkNotificationRead(context.Background(), 77)
	require.Error(t, err)

	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "NOTIFICATION_NOT_FOUND", apiErr.Code)
	assert.Equal(t, "no such notification", apiErr.UserMessage())
	assert.False(t, IsUnauthorized(err))
}

func TestUserMessages(t *testing.T) {
	cases := []struct {
		err  *Error
		want string
	}{
		{&Error{Status: http.StatusUnauthorized, Message: "expired"}, "Please sign in."},
		{&Error{Status: http.StatusForbidden}, "You do not have access to this."},
		{&Error{Status: http.StatusBadGateway, Message: "kakao down"}, "An external service failed."},
		{&Error{Status: http.StatusConflict}, "That already exists."},
		{&Error{Status: http.StatusInternalServerError}, "An unknown error occurred."},
		{&Error{Err: errors.New("dial tcp: refused")}, "The connection to the server is unstable."},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.err.UserMessage())
	}
}

func TestUnauthorizedDetected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, staticToken("t"))
	_, err := c.Profile(context.Background())
	assert.True(t, IsUnauthorized(err))
}

func TestRetriesOnTooManyRequests(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		writeJSON(t, w, http.StatusOK, map[string]interface{}{"success": true})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, staticToken("t"))
	require.NoError(t, c.MarkAllNotificationsRead(context.Background()))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestGivesUpAfterMaxRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, staticToken("t"), WithMaxRetries(2))
	err := c.MarkAllNotificationsRead(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestTransportErrorIsWrapped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewClient(url, time.Second, staticToken("t"))
	_, err := c.Notifications(context.Background())
	require.Error(t, err)

	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.NotNil(t, apiErr.Err)
}

func TestReviewsAndLibraryEndpoints(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/books/12/reviews", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "likes", r.URL.Query().Get("sort"))
		writeJSON(t, w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data": map[string]interface{}{
				"content": []map[string]interface{}{
					{"id": 3, "comment": "great", "rating": 4.5, "likeCount": 2, "isLikedByCurrentUser": true},
				},
			},
		})
	})
	mux.HandleFunc("/api/library", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data": map[string]interface{}{
				"toReadBooks":    []map[string]interface{}{{"id": 1, "title": "Dune"}},
				"readingBooks":   []map[string]interface{}{},
				"completedBooks": []map[string]interface{}{{"id": 2, "title": "Emma"}},
			},
		})
	})
	mux.HandleFunc("/api/library/5", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "READING", r.URL.Query().Get("status"))
		writeJSON(t, w, http.StatusOK, map[string]interface{}{"success": true})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, staticToken("t"))
	ctx := context.Background()

	reviews, err := c.ReviewsForBook(ctx, 12, "likes")
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.True(t, reviews[0].LikedByMe)
	assert.Equal(t, int64(2), reviews[0].LikeCount)

	lib, err := c.Library(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Dune", lib.Shelf(model.StatusToRead)[0].Title)
	assert.Empty(t, lib.Shelf(model.StatusReading))
	assert.Len(t, lib.Shelf(model.StatusCompleted), 1)

	require.NoError(t, c.SetBookStatus(ctx, 5, model.StatusReading))
}

func TestCatalogEndpointsAreBareAndPublic(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/books/search", func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		assert.Equal(t, "dune", r.URL.Query().Get("query"))
		assert.Equal(t, "20", r.URL.Query().Get("size"))
		assert.Equal(t, "title", r.URL.Query().Get("target"))
		assert.Empty(t, r.URL.Query().Get("page"))
		writeJSON(t, w, http.StatusOK, map[string]interface{}{
			"meta": map[string]interface{}{"total_count": 1, "is_end": true},
			"documents": []map[string]interface{}{
				{"title": "Dune", "isbn": "0441013597 9780441013593", "authors": []string{"Frank Herbert"}},
			},
		})
	})
	mux.HandleFunc("/api/books/detail/9780441013593", func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		writeJSON(t, w, http.StatusOK, map[string]interface{}{
			"id": 4, "title": "Dune", "isbn13": "9780441013593", "averageRating": 4.5, "contents": "spice",
		})
	})
	mux.HandleFunc("/api/books/9780441013593/editions", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, []map[string]interface{}{{"id": 5, "title": "Dune (Deluxe)"}})
	})
	mux.HandleFunc("/api/books/popular", func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		writeJSON(t, w, http.StatusOK, []map[string]interface{}{{"id": 4, "title": "Dune"}, {"id": 6, "title": "Emma"}})
	})
	mux.HandleFunc("/api/ai/search", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer t", r.Header.Get("Authorization"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "desert politics", body["query"])
		writeJSON(t, w, http.StatusOK, []map[string]interface{}{{"title": "Dune", "isbn": "9780441013593"}})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, staticToken("t"))
	ctx := context.Background()

	page, err := c.SearchBooks(ctx, SearchQuery{Query: "dune", Size: 20, Target: SearchTargetTitle})
	require.NoError(t, err)
	require.Len(t, page.Documents, 1)
	assert.True(t, page.Meta.IsEnd)
	assert.Equal(t, "9780441013593", page.Documents[0].ISBN13())

	detail, err := c.BookDetail(ctx, "9780441013593")
	require.NoError(t, err)
	assert.Equal(t, int64(4), detail.ID)
	assert.Equal(t, 4.5, detail.AverageRating)
	assert.Equal(t, "spice", detail.Contents)

	editions, err := c.BookEditions(ctx, "9780441013593")
	require.NoError(t, err)
	require.Len(t, editions, 1)
	assert.Equal(t, "Dune (Deluxe)", editions[0].Title)

	popular, err := c.PopularBooks(ctx)
	require.NoError(t, err)
	assert.Len(t, popular, 2)

	hits, err := c.AISearch(ctx, "desert politics")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "Dune", hits[0].Title)
}

func TestReviewEditEndpoints(t *testing.T) {
	var seen []string
	mux := http.NewServeMux()
	mux.HandleFunc("/api/books/review/8", func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Method)
		assert.Equal(t, "Bearer t", r.Header.Get("Authorization"))
		if r.Method == http.MethodPut {
			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "better on reread", body["comment"])
			assert.Equal(t, 4.0, body["rating"])
		}
		writeJSON(t, w, http.StatusOK, map[string]interface{}{"success": true})
	})
	mux.HandleFunc("/api/reviews/my", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data":    []map[string]interface{}{{"id": 8, "comment": "mine", "authorId": 1}},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, staticToken("t"))
	ctx := context.Background()

	require.NoError(t, c.UpdateReview(ctx, 8, "better on reread", 4))
	require.NoError(t, c.DeleteReview(ctx, 8))
	assert.Equal(t, []string{http.MethodPut, http.MethodDelete}, seen)

	mine, err := c.MyReviews(ctx)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, int64(1), mine[0].AuthorID)
}
