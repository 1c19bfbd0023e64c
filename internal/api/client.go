package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nhle/readonme/internal/logger"
)

// TokenSource returns the current bearer token, or "" when signed out.
type TokenSource func(ctx context.Context) (string, error)

// publicPaths never carry the Authorization header. The catalog endpoints
// are readable without an account.
var publicPaths = []string{
	"/api/users/signin",
	"/api/users/signup",
	"/api/books/search",
	"/api/books/detail",
	"/api/books/popular",
}

// Client is a thin HTTP client for the READ-ON-ME REST API.
// It handles Bearer token authentication, the {success, message, data}
// response envelope, and retry with exponential backoff on HTTP 429.
type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
	maxRetries int
	log        *zap.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.log = logger.OrNop(l) }
}

// WithMaxRetries overrides how many times a 429 response is retried.
func WithMaxRetries(n int) Option {
	return func(c *Client) { c.maxRetries = n }
}

// NewClient creates a new API client. The baseURL should be the root of
// the service (e.g., http://localhost:8080). tokens may be nil for an
// anonymous client.
func NewClient(baseURL string, timeout time.Duration, tokens TokenSource, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		maxRetries: 3,
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the service root this client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// envelope is the wrapper most endpoints respond with. The catalog
// endpoints under /api/books return their payload bare.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// errorBody is the shape of the service's error responses.
type errorBody struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (c *Client) get(ctx context.Context, path string, query url.Values, result interface{}) error {
	return c.do(ctx, http.MethodGet, path, query, nil, result)
}

func (c *Client) post(ctx context.Context, path string, query url.Values, body, result interface{}) error {
	return c.do(ctx, http.MethodPost, path, query, body, result)
}

func (c *Client) put(ctx context.Context, path string, body, result interface{}) error {
	return c.do(ctx, http.MethodPut, path, nil, body, result)
}

func (c *Client) delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil, nil)
}

// getBare is get for endpoints that answer without the envelope.
func (c *Client) getBare(ctx context.Context, path string, query url.Values, result interface{}) error {
	respBody, err := c.send(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	return decodeBare(http.MethodGet, path, respBody, result)
}

// postBare is post for endpoints that answer without the envelope.
func (c *Client) postBare(ctx context.Context, path string, body, result interface{}) error {
	respBody, err := c.send(ctx, http.MethodPost, path, nil, body)
	if err != nil {
		return err
	}
	return decodeBare(http.MethodPost, path, respBody, result)
}

// do sends the request and decodes the envelope's data field into result
// (which may be nil).
func (c *Client) do(
	ctx context.Context,
	method string,
	path string,
	query url.Values,
	body interface{},
	result interface{},
) error {
	respBody, err := c.send(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	return decodeEnvelope(method, path, respBody, result)
}

// send builds the request, attaches auth, retries on 429, and returns the
// body of the first 2xx response.
func (c *Client) send(
	ctx context.Context,
	method string,
	path string,
	query url.Values,
	body interface{},
) ([]byte, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
		payload = data
	}

	token, err := c.token(ctx, path)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		var bodyReader io.Reader
		if payload != nil {
			bodyReader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}

		requestID := uuid.NewString()
		req.Header.Set("Accept", "application/json")
		req.Header.Set("X-Request-ID", requestID)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		start := time.Now()
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, &Error{Method: method, Path: path, Err: err}
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		c.log.Debug("api request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("request_id", requestID),
			zap.Duration("elapsed", time.Since(start)),
		)
		if readErr != nil {
			return nil, fmt.Errorf("reading response body: %w", readErr)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = newStatusError(method, path, resp.StatusCode, respBody)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryAfterDuration(resp, attempt)):
				continue
			}
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, newStatusError(method, path, resp.StatusCode, respBody)
		}

		return respBody, nil
	}

	return nil, fmt.Errorf("max retries (%d) exceeded: %w", c.maxRetries, lastErr)
}

// token resolves the bearer token for path, skipping public endpoints.
func (c *Client) token(ctx context.Context, path string) (string, error) {
	if c.tokens == nil {
		return "", nil
	}
	for _, p := range publicPaths {
		if strings.HasPrefix(path, p) {
			return "", nil
		}
	}
	token, err := c.tokens(ctx)
	if err != nil {
		return "", fmt.Errorf("loading access token: %w", err)
	}
	return token, nil
}

func decodeEnvelope(method, path string, body []byte, result interface{}) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("unmarshaling response from %s %s: %w", method, path, err)
	}
	if !env.Success {
		return &Error{Method: method, Path: path, Message: env.Message}
	}

	if result == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, result); err != nil {
		return fmt.Errorf("unmarshaling data from %s %s: %w", method, path, err)
	}
	return nil
}

func decodeBare(method, path string, body []byte, result interface{}) error {
	if result == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("unmarshaling response from %s %s: %w", method, path, err)
	}
	return nil
}

func newStatusError(method, path string, status int, body []byte) *Error {
	e := &Error{Method: method, Path: path, Status: status}

	var eb errorBody
	if json.Unmarshal(body, &eb) == nil {
		e.Code = eb.Code
		e.Message = eb.Message
	}
	if e.Message == "" && !json.Valid(body) {
		e.Message = strings.TrimSpace(string(body))
	}
	return e
}

// retryAfterDuration reads the Retry-After header and computes a wait
// duration. Falls back to exponential backoff if the header is missing.
func retryAfterDuration(resp *http.Response, attempt int) time.Duration {
	if header := resp.Header.Get("Retry-After"); header != "" {
		if seconds, err := strconv.Atoi(header); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}

	// Exponential backoff: 1s, 2s, 4s, ...
	backoff := time.Duration(1<<uint(attempt)) * time.Second
	if backoff > 30*time.Second {
		backoff = 30 * time.Second
	}
	return backoff
}

// IsUnauthorized reports whether err is a 401 from the service.
func IsUnauthorized(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}
