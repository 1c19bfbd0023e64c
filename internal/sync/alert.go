package sync

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
)

// AlertMsg is a tea.Msg carrying an alert raised by the stream.
type AlertMsg struct {
	ID      string
	Title   string
	Message string
	At      time.Time
}

// TeaAlerter hands alerts to the Bubble Tea runtime. Alert never blocks
// the stream: when the buffer is full the alert is dropped.
type TeaAlerter struct {
	ch chan AlertMsg
}

// NewTeaAlerter creates an alerter buffering up to size alerts.
func NewTeaAlerter(size int) *TeaAlerter {
	if size <= 0 {
		size = 16
	}
	return &TeaAlerter{ch: make(chan AlertMsg, size)}
}

// Alert implements Alerter.
func (a *TeaAlerter) Alert(title, message string) {
	msg := AlertMsg{
		ID:      uuid.NewString(),
		Title:   title,
		Message: message,
		At:      time.Now(),
	}
	select {
	case a.ch <- msg:
	default:
	}
}

// WaitForAlert returns a tea.Cmd that waits for the next alert. Issue it
// again after handling each AlertMsg to keep listening.
func (a *TeaAlerter) WaitForAlert() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-a.ch
		if !ok {
			return nil
		}
		return msg
	}
}

