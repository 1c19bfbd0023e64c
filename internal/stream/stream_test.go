package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/readonme/internal/api"
)

func decodeAll(t *testing.T, body string) []Event {
	t.Helper()
	dec := NewDecoder(strings.NewReader(body))
	var out []Event
	for {
		ev, err := dec.Next()
		if errors.Is(err, io.EOF) {
			return out
		}
		require.NoError(t, err)
		out = append(out, ev)
	}
}

func TestDecoderNamedEvents(t *testing.T) {
	body := "event: INIT\ndata: connected\n\n" +
		"event: notification\nid: 7\ndata: {\"id\":1}\n\n"

	events := decodeAll(t, body)
	require.Len(t, events, 2)
	assert.Equal(t, Event{Name: "INIT", Data: "connected"}, events[0])
	assert.Equal(t, Event{ID: "7", Name: "notification", Data: `{"id":1}`}, events[1])
}

func TestDecoderMultiLineData(t *testing.T) {
	events := decodeAll(t, "data: first\ndata: second\ndata:third\n\n")
	require.Len(t, events, 1)
	assert.Equal(t, DefaultEventName, events[0].Name)
	assert.Equal(t, "first\nsecond\nthird", events[0].Data)
}

func TestDecoderSkipsCommentsAndEmptyBlocks(t *testing.T) {
	body := ": keep-alive\n\n" +
		"event: ping\n\n" +
		": heartbeat\nevent: notification\ndata: x\n\n"

	events := decodeAll(t, body)
	require.Len(t, events, 1)
	assert.Equal(t, "notification", events[0].Name)
	assert.Equal(t, "x", events[0].Data)
}

func TestDecoderLineEndings(t *testing.T) {
	body := "event: a\r\ndata: 1\r\n\r\n" + "event: b\rdata: 2\r\r"
	events := decodeAll(t, body)
	require.Len(t, events, 2)
	assert.Equal(t, Event{Name: "a", Data: "1"}, events[0])
	assert.Equal(t, Event{Name: "b", Data: "2"}, events[1])
}

func TestDecoderIDPersistsAcrossEvents(t *testing.T) {
	events := decodeAll(t, "id: 5\ndata: a\n\ndata: b\n\n")
	require.Len(t, events, 2)
	assert.Equal(t, "5", events[1].ID)
}

func TestDecoderTruncatedEvent(t *testing.T) {
	dec := NewDecoder(strings.NewReader("event: notification\ndata: {\"id\""))
	_, err := dec.Next()
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestDecoderRejectsOversizedLine(t *testing.T) {
	dec := NewDecoder(strings.NewReader("data: " + strings.Repeat("x", 64) + "\n\n"))
	dec.max = 16
	_, err := dec.Next()
	assert.ErrorIs(t, err, ErrEventTooLarge)
}

func TestDecoderRejectsOversizedEvent(t *testing.T) {
	body := strings.Repeat("data: 0123456789\n", 4) + "\n"
	dec := NewDecoder(strings.NewReader(body))
	dec.max = 32
	_, err := dec.Next()
	assert.ErrorIs(t, err, ErrEventTooLarge)

	dec = NewDecoder(strings.NewReader(body))
	ev, err := dec.Next()
	require.NoError(t, err)
	assert.Len(t, ev.Data, 4*10+3)
}

func TestDialSendsHeadersAndStreams(t *testing.T) {
	var gotAuth, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAccept = r.Header.Get("Accept")
		assert.Equal(t, "/api/notifications/stream", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))

		w.Header().Set("Content-Type", "text/event-stream;charset=UTF-8")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "event: INIT\ndata: ok\n\n")
		fmt.Fprint(w, "event: notification\ndata: {\"id\":42}\n\n")
	}))
	defer srv.Close()

	d := NewHTTPDialer(srv.URL+"/", "/api/notifications/stream", nil, nil)
	s, err := d.Dial(context.Background(), "tok-1")
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, "Bearer tok-1", gotAuth)
	assert.Equal(t, "text/event-stream", gotAccept)

	ev, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, "INIT", ev.Name)

	ev, err = s.Next()
	require.NoError(t, err)
	assert.Equal(t, "notification", ev.Name)
	assert.Equal(t, `{"id":42}`, ev.Data)

	_, err = s.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestDialRejectsNonOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := NewHTTPDialer(srv.URL, "/s", nil, nil).Dial(context.Background(), "bad")
	require.Error(t, err)
	assert.True(t, api.IsUnauthorized(err))
}

func TestDialRejectsWrongContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{}`)
	}))
	defer srv.Close()

	_, err := NewHTTPDialer(srv.URL, "/s", nil, nil).Dial(context.Background(), "t")
	assert.Error(t, err)
}

func TestCloseUnblocksNext(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	s, err := NewHTTPDialer(srv.URL, "/s", nil, nil).Dial(context.Background(), "t")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := s.Next()
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("Next did not return after Close")
	}
}

func TestDialCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewHTTPDialer(srv.URL, "/s", nil, nil).Dial(ctx, "t")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
