// Package sync keeps the client's notification inbox in step with the
// server by holding a live event stream open while the user is signed in.
package sync

import (
	"context"
	"errors"
	"io"
	gosync "sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/nhle/readonme/internal/logger"
	"github.com/nhle/readonme/internal/model"
	"github.com/nhle/readonme/internal/stream"
)

// State is the listener's connection state.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateConnected
	StateError
	StateReconnectPending
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateError:
		return "error"
	case StateReconnectPending:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// EventNotification is the event name that carries a notification.
const EventNotification = "notification"

// DefaultReconnectDelay is the pause between a stream failure and the
// next connection attempt.
const DefaultReconnectDelay = 5 * time.Second

// refreshTimeout bounds a refetch triggered by the stream.
const refreshTimeout = 30 * time.Second

// Dialer opens the event stream.
type Dialer interface {
	Dial(ctx context.Context, token string) (stream.Stream, error)
}

// TokenSource returns the stored access token, or "" when there is none.
type TokenSource func(ctx context.Context) (string, error)

// Sink receives what the stream delivers. FetchAll must not change the
// list once ctx is done; the listener cancels it when the cycle ends.
type Sink interface {
	AddOne(n model.Notification)
	FetchAll(ctx context.Context) error
}

// Alerter surfaces a pushed notification to the user.
type Alerter interface {
	Alert(title, message string)
}

// Timer is a pending callback that can be cancelled.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f to run once after d.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Option configures a Listener.
type Option func(*Listener)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(ln *Listener) { ln.log = logger.OrNop(l) }
}

// WithAlerter sets where alerts go. Without one alerts are only logged.
func WithAlerter(a Alerter) Option {
	return func(ln *Listener) { ln.alerter = a }
}

// WithReconnectDelay overrides DefaultReconnectDelay.
func WithReconnectDelay(d time.Duration) Option {
	return func(ln *Listener) {
		if d > 0 {
			ln.delay = d
		}
	}
}

// WithAfterFunc replaces time.AfterFunc for scheduling reconnects.
func WithAfterFunc(f AfterFunc) Option {
	return func(ln *Listener) { ln.afterFunc = f }
}

// WithRegisterer registers the listener's metrics with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(ln *Listener) { ln.reg = reg }
}

// Listener owns at most one stream connection and at most one pending
// reconnect timer. Every asynchronous step checks the cycle generation
// under mu before it commits anything, so a step that outlives its cycle
// has no effect.
type Listener struct {
	dialer    Dialer
	tokens    TokenSource
	sink      Sink
	alerter   Alerter
	log       *zap.Logger
	delay     time.Duration
	afterFunc AfterFunc
	reg       prometheus.Registerer
	metrics   *metrics

	mu     gosync.Mutex
	state  State
	active bool
	closed bool
	gen    uint64
	cancel context.CancelFunc
	conn   stream.Stream
	timer  Timer

	// deliverMu is held while an event is handed to the sink. Teardown
	// takes it once after bumping gen so no delivery outlives it.
	deliverMu gosync.Mutex
}

// NewListener creates an idle listener.
func NewListener(d Dialer, tokens TokenSource, sink Sink, opts ...Option) *Listener {
	l := &Listener{
		dialer:    d,
		tokens:    tokens,
		sink:      sink,
		log:       zap.NewNop(),
		delay:     DefaultReconnectDelay,
		afterFunc: realAfterFunc,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.metrics = newMetrics(l.reg)
	return l
}

// State returns the current connection state.
func (l *Listener) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// SetAuthenticated follows the session. Signing in starts a connection
// cycle unless one is already running; signing out ends it.
func (l *Listener) SetAuthenticated(authenticated bool) {
	if authenticated {
		l.mu.Lock()
		if l.closed || l.active {
			l.mu.Unlock()
			return
		}
		l.active = true
		l.startLocked()
		l.mu.Unlock()
		return
	}

	l.mu.Lock()
	l.active = false
	toClose := l.teardownLocked()
	l.mu.Unlock()
	l.finishTeardown(toClose)
}

// Close stops the listener for good. Later auth changes are ignored.
func (l *Listener) Close() {
	l.mu.Lock()
	l.closed = true
	l.active = false
	toClose := l.teardownLocked()
	l.mu.Unlock()
	l.finishTeardown(toClose)
}

func (l *Listener) startLocked() {
	if l.cancel != nil {
		l.cancel()
	}
	l.gen++
	ctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	l.state = StateConnecting
	go l.connect(ctx, l.gen)
}

func (l *Listener) teardownLocked() stream.Stream {
	l.gen++
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
	conn := l.conn
	l.conn = nil
	l.state = StateIdle
	return conn
}

func (l *Listener) finishTeardown(conn stream.Stream) {
	if conn != nil {
		_ = conn.Close()
	}
	// Wait out a delivery that passed its generation check before gen moved.
	l.deliverMu.Lock()
	l.deliverMu.Unlock() //nolint:staticcheck
}

func (l *Listener) current(gen uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.gen == gen
}

func (l *Listener) connect(ctx context.Context, gen uint64) {
	tok, err := l.tokens(ctx)
	if err != nil || tok == "" {
		l.log.Debug("no access token, not connecting", zap.Error(err))
		l.mu.Lock()
		if l.gen == gen {
			l.active = false
			l.state = StateIdle
		}
		l.mu.Unlock()
		return
	}

	l.mu.Lock()
	if l.gen != gen {
		l.mu.Unlock()
		return
	}
	prior := l.conn
	l.conn = nil
	l.mu.Unlock()
	if prior != nil {
		_ = prior.Close()
	}

	l.metrics.attempts.Inc()
	start := time.Now()
	conn, err := l.dialer.Dial(ctx, tok)
	l.metrics.dialDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		l.fail(gen, nil, err)
		return
	}

	l.mu.Lock()
	if l.gen != gen {
		l.mu.Unlock()
		_ = conn.Close()
		return
	}
	l.conn = conn
	l.state = StateConnected
	l.mu.Unlock()

	l.log.Info("notification stream connected")
	go l.refresh(ctx)

	l.readLoop(ctx, gen, conn)
}

func (l *Listener) readLoop(ctx context.Context, gen uint64, conn stream.Stream) {
	for {
		ev, err := conn.Next()
		if err != nil {
			l.fail(gen, conn, err)
			return
		}
		if !l.deliver(ctx, gen, ev) {
			return
		}
	}
}

// deliver handles one event. It reports false once the cycle is over.
func (l *Listener) deliver(ctx context.Context, gen uint64, ev stream.Event) bool {
	l.deliverMu.Lock()
	defer l.deliverMu.Unlock()

	if !l.current(gen) {
		return false
	}

	if ev.Name != EventNotification {
		l.log.Debug("ignoring stream event", zap.String("event", ev.Name), zap.String("data", ev.Data))
		l.metrics.events.WithLabelValues(resultIgnored).Inc()
		return true
	}

	n, err := model.ParseNotification([]byte(ev.Data))
	if err != nil {
		l.log.Warn("discarding malformed notification", zap.Error(err), zap.String("data", ev.Data))
		l.metrics.events.WithLabelValues(resultMalformed).Inc()
		return true
	}

	l.sink.AddOne(n)
	go l.refresh(ctx)
	l.alert(n)
	l.metrics.events.WithLabelValues(resultDelivered).Inc()
	return true
}

func (l *Listener) alert(n model.Notification) {
	if l.alerter == nil {
		l.log.Info("notification", zap.Int64("id", n.ID), zap.String("message", n.Message))
		return
	}
	l.alerter.Alert(alertTitle, n.Message)
}

const alertTitle = "New notification"

// refresh refetches the full list within the cycle's ctx. Its failure is
// recorded by the sink.
func (l *Listener) refresh(cycle context.Context) {
	ctx, cancel := context.WithTimeout(cycle, refreshTimeout)
	defer cancel()
	if err := l.sink.FetchAll(ctx); err != nil {
		l.log.Debug("notification refresh failed", zap.Error(err))
	}
}

// fail ends the connection of cycle gen and schedules a reconnect. conn
// is nil when the dial itself failed.
func (l *Listener) fail(gen uint64, conn stream.Stream, err error) {
	l.mu.Lock()
	if l.gen != gen || (conn != nil && l.conn != conn) {
		l.mu.Unlock()
		return
	}
	toClose := l.conn
	l.conn = nil
	l.state = StateError
	if errors.Is(err, io.EOF) {
		l.log.Info("notification stream ended by server")
	} else {
		l.log.Warn("notification stream failed", zap.Error(err))
	}
	l.scheduleLocked()
	l.mu.Unlock()

	if toClose != nil {
		_ = toClose.Close()
	}
}

func (l *Listener) scheduleLocked() {
	if l.timer != nil {
		l.log.Debug("reconnect already pending")
		return
	}
	gen := l.gen
	l.state = StateReconnectPending
	l.metrics.reconnects.Inc()
	l.log.Info("reconnecting notification stream", zap.Duration("delay", l.delay))
	l.timer = l.afterFunc(l.delay, func() { l.reconnect(gen) })
}

func (l *Listener) reconnect(gen uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.gen != gen || l.closed || !l.active {
		return
	}
	l.timer = nil
	l.startLocked()
}
