// Package session is the client-side auth store: it owns the signed-in
// state, persists the access token, and tells subscribers when the
// session starts or ends.
package session

import (
	"context"
	"errors"
	"fmt"
	gosync "sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"

	"github.com/nhle/readonme/internal/api"
	"github.com/nhle/readonme/internal/credential"
	"github.com/nhle/readonme/internal/logger"
	"github.com/nhle/readonme/internal/model"
)

// TokenStore persists the access token between runs.
type TokenStore interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

// AuthAPI is the subset of the REST client the session needs.
type AuthAPI interface {
	SignIn(ctx context.Context, email, password string) (*api.SignInResult, error)
	SignUp(ctx context.Context, email, password, nickname string) (*model.User, error)
	Profile(ctx context.Context) (*model.User, error)
}

// ErrTokenExpired is returned by Restore when the stored token's exp
// claim has passed.
var ErrTokenExpired = errors.New("stored access token has expired")

// State is a snapshot of the auth store.
type State struct {
	Authenticated bool
	User          *model.User
	Loading       bool
	Err           error
}

// Manager holds the authentication state.
type Manager struct {
	api    AuthAPI
	tokens TokenStore
	log    *zap.Logger
	now    func() time.Time

	mu          gosync.Mutex
	state       State
	subscribers map[int]func(bool)
	nextSubID   int
}

// New creates a signed-out Manager.
func New(a AuthAPI, tokens TokenStore, l *zap.Logger) *Manager {
	return &Manager{
		api:         a,
		tokens:      tokens,
		log:         logger.OrNop(l),
		now:         time.Now,
		subscribers: make(map[int]func(bool)),
	}
}

// State returns a copy of the current state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Authenticated reports whether a session is active.
func (m *Manager) Authenticated() bool {
	return m.State().Authenticated
}

// User returns the signed-in user, or nil.
func (m *Manager) User() *model.User {
	return m.State().User
}

// Err returns the error of the last failed action.
func (m *Manager) Err() error {
	return m.State().Err
}

// Token returns the stored access token, or "" with a nil error when
// none is stored.
func (m *Manager) Token(_ context.Context) (string, error) {
	tok, err := m.tokens.Get(credential.AccessTokenKey)
	if errors.Is(err, credential.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return tok, nil
}

// Subscribe registers fn to be called with the new authentication
// status every time it changes. The returned func unsubscribes.
func (m *Manager) Subscribe(fn func(authenticated bool)) func() {
	m.mu.Lock()
	id := m.nextSubID
	m.nextSubID++
	m.subscribers[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subscribers, id)
		m.mu.Unlock()
	}
}

// SignIn authenticates against the service and stores the token.
func (m *Manager) SignIn(ctx context.Context, email, password string) error {
	m.setLoading()

	res, err := m.api.SignIn(ctx, email, password)
	if err != nil {
		m.fail(err, true)
		return err
	}

	if err := m.tokens.Set(credential.AccessTokenKey, res.AccessToken); err != nil {
		err = fmt.Errorf("storing access token: %w", err)
		m.fail(err, true)
		return err
	}

	user := res.User
	m.log.Info("signed in", zap.Int64("user_id", user.ID))
	m.transition(State{Authenticated: true, User: &user})
	return nil
}

// SignUp registers an account. The session stays signed out.
func (m *Manager) SignUp(ctx context.Context, email, password, nickname string) (*model.User, error) {
	m.setLoading()

	u, err := m.api.SignUp(ctx, email, password, nickname)
	if err != nil {
		m.fail(err, false)
		return nil, err
	}

	m.mu.Lock()
	m.state.Loading = false
	m.state.Err = nil
	m.mu.Unlock()
	return u, nil
}

// Logout clears the session and forgets the stored token.
func (m *Manager) Logout() {
	if err := m.tokens.Delete(credential.AccessTokenKey); err != nil {
		m.log.Warn("removing stored token", zap.Error(err))
	}
	m.log.Info("signed out")
	m.transition(State{})
}

// Restore resumes a session from a previously stored token. A missing
// token is not an error; an expired one is deleted and reported as
// ErrTokenExpired.
func (m *Manager) Restore(ctx context.Context) error {
	tok, err := m.Token(ctx)
	if err != nil {
		return fmt.Errorf("reading stored token: %w", err)
	}
	if tok == "" {
		return nil
	}

	if expired(tok, m.now()) {
		if err := m.tokens.Delete(credential.AccessTokenKey); err != nil {
			m.log.Warn("removing expired token", zap.Error(err))
		}
		return ErrTokenExpired
	}

	m.setLoading()
	u, err := m.api.Profile(ctx)
	if err != nil {
		if api.IsUnauthorized(err) {
			_ = m.tokens.Delete(credential.AccessTokenKey)
		}
		m.fail(err, false)
		return fmt.Errorf("restoring session: %w", err)
	}

	m.log.Info("session restored", zap.Int64("user_id", u.ID))
	m.transition(State{Authenticated: true, User: u})
	return nil
}

// expired reports whether tok carries an exp claim in the past. Tokens
// that cannot be decoded are left for the server to judge.
func expired(tok string, now time.Time) bool {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tok, &claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return !now.Before(claims.ExpiresAt.Time)
}

func (m *Manager) setLoading() {
	m.mu.Lock()
	m.state.Loading = true
	m.state.Err = nil
	m.mu.Unlock()
}

// fail records err. When signOut is set a failed attempt also drops any
// partially established session.
func (m *Manager) fail(err error, signOut bool) {
	if !signOut {
		m.mu.Lock()
		m.state.Loading = false
		m.state.Err = err
		m.mu.Unlock()
		return
	}
	m.transition(State{Err: err})
}

// transition replaces the state and notifies subscribers if the
// authentication status flipped. Callbacks run outside the lock.
func (m *Manager) transition(next State) {
	m.mu.Lock()
	changed := m.state.Authenticated != next.Authenticated
	m.state = next
	var subs []func(bool)
	if changed {
		for _, fn := range m.subscribers {
			subs = append(subs, fn)
		}
	}
	m.mu.Unlock()

	for _, fn := range subs {
		fn(next.Authenticated)
	}
}
