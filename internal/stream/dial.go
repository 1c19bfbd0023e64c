package stream

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"
	gosync "sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nhle/readonme/internal/api"
	"github.com/nhle/readonme/internal/logger"
)

// ErrClosed is returned by Next after Close.
var ErrClosed = errors.New("stream closed")

// Stream is an open event stream.
type Stream interface {
	// Next blocks until the next event arrives or the stream fails.
	Next() (Event, error)
	// Close releases the connection. It is safe to call more than once
	// and concurrently with Next.
	Close() error
}

// HTTPDialer opens event streams over HTTP.
type HTTPDialer struct {
	url        string
	httpClient *http.Client
	log        *zap.Logger
}

// NewHTTPDialer returns a dialer for the stream at baseURL+path. The
// http.Client must not carry a Timeout since the body stays open for
// the life of the stream; pass nil to use a fresh client.
func NewHTTPDialer(baseURL, path string, httpClient *http.Client, l *zap.Logger) *HTTPDialer {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &HTTPDialer{
		url:        strings.TrimRight(baseURL, "/") + path,
		httpClient: httpClient,
		log:        logger.OrNop(l),
	}
}

// Dial opens the stream with token as bearer credential. Cancelling ctx
// closes the stream.
func (d *HTTPDialer) Dial(ctx context.Context, token string) (Stream, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.url, nil)
	if err != nil {
		return nil, fmt.Errorf("building stream request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	reqID := uuid.NewString()
	req.Header.Set("X-Request-ID", reqID)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, &api.Error{Method: req.Method, Path: req.URL.Path, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &api.Error{
			Method:  req.Method,
			Path:    req.URL.Path,
			Status:  resp.StatusCode,
			Message: http.StatusText(resp.StatusCode),
		}
	}

	if mt, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type")); mt != "text/event-stream" {
		resp.Body.Close()
		return nil, fmt.Errorf("stream: unexpected content type %q", resp.Header.Get("Content-Type"))
	}

	d.log.Debug("stream opened", zap.String("url", d.url), zap.String("request_id", reqID))
	return &conn{resp: resp, dec: NewDecoder(resp.Body)}, nil
}

type conn struct {
	resp *http.Response
	dec  *Decoder

	once   gosync.Once
	mu     gosync.Mutex
	closed bool
}

func (c *conn) Next() (Event, error) {
	ev, err := c.dec.Next()
	if err != nil {
		c.mu.Lock()
		closed := c.closed
		c.mu.Unlock()
		if closed {
			return Event{}, ErrClosed
		}
		return Event{}, err
	}
	return ev, nil
}

func (c *conn) Close() error {
	var err error
	c.once.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		err = c.resp.Body.Close()
	})
	return err
}
