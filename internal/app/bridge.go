package app

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/readonme/internal/notify"
)

// signal coalesces change callbacks from the stores into at most one
// pending wake-up for the Bubble Tea loop.
type signal chan struct{}

func newSignal() signal {
	return make(signal, 1)
}

// notify never blocks; a wake-up already pending covers this change.
func (s signal) notify() {
	select {
	case s <- struct{}{}:
	default:
	}
}

// inboxChangedMsg carries the inbox after it changed.
type inboxChangedMsg struct {
	state notify.State
}

// sessionChangedMsg is sent when the authentication status flips.
type sessionChangedMsg struct {
	authenticated bool
}

// statusTickMsg refreshes the connection indicator.
type statusTickMsg struct{}

// alertExpiredMsg hides the banner showing the alert with id.
type alertExpiredMsg struct {
	id string
}

const (
	statusInterval = time.Second
	alertDuration  = 4 * time.Second
)

// waitForInbox blocks until the inbox changes, then reads its state.
// The caller must re-issue it after each message.
func (m Model) waitForInbox() tea.Cmd {
	sig := m.inboxSignal
	s := m.inbox
	return func() tea.Msg {
		<-sig
		return inboxChangedMsg{state: s.State()}
	}
}

// waitForSession blocks until the authentication status flips.
func (m Model) waitForSession() tea.Cmd {
	sig := m.sessionSignal
	sess := m.session
	return func() tea.Msg {
		<-sig
		return sessionChangedMsg{authenticated: sess.Authenticated()}
	}
}

func tickStatus() tea.Cmd {
	return tea.Tick(statusInterval, func(time.Time) tea.Msg { return statusTickMsg{} })
}

func expireAlert(id string) tea.Cmd {
	return tea.Tick(alertDuration, func(time.Time) tea.Msg { return alertExpiredMsg{id: id} })
}
