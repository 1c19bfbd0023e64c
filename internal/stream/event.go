// Package stream is the server-sent-events transport for the notification
// push channel.
package stream

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

// DefaultEventName is the name of an event that carries no event field.
const DefaultEventName = "message"

// MaxEventSize caps a single line and the data of a single event.
const MaxEventSize = 1 << 20

// ErrEventTooLarge is returned when a line or an event exceeds MaxEventSize.
var ErrEventTooLarge = errors.New("stream: event too large")

// Event is one dispatched server-sent event.
type Event struct {
	ID   string
	Name string
	Data string
}

// Decoder reads events from an event-stream body.
type Decoder struct {
	r      *bufio.Reader
	lastID string
	max    int
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r), max: MaxEventSize}
}

// Next blocks until a complete event has been read. Comment lines and
// blocks without data are skipped. At the end of the body it returns
// io.EOF, discarding any partially read event.
func (d *Decoder) Next() (Event, error) {
	var (
		name    string
		data    strings.Builder
		hasData bool
	)

	for {
		line, err := d.readLine()
		if err != nil {
			return Event{}, err
		}

		if line == "" {
			if !hasData {
				name = ""
				continue
			}
			if name == "" {
				name = DefaultEventName
			}
			return Event{ID: d.lastID, Name: name, Data: data.String()}, nil
		}

		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")

		switch field {
		case "event":
			name = value
		case "data":
			if data.Len()+len(value)+1 > d.max {
				return Event{}, ErrEventTooLarge
			}
			if hasData {
				data.WriteByte('\n')
			}
			data.WriteString(value)
			hasData = true
		case "id":
			if !strings.ContainsRune(value, 0) {
				d.lastID = value
			}
		}
		// retry and unknown fields are ignored.
	}
}

// readLine returns one line without its terminator. LF, CRLF and a bare
// CR all end a line.
func (d *Decoder) readLine() (string, error) {
	var sb strings.Builder
	for {
		b, err := d.r.ReadByte()
		if err != nil {
			if err == io.EOF && sb.Len() > 0 {
				// Unterminated trailing line: the event is incomplete.
				return "", io.ErrUnexpectedEOF
			}
			return "", err
		}
		switch b {
		case '\n':
			return sb.String(), nil
		case '\r':
			if next, err := d.r.Peek(1); err == nil && next[0] == '\n' {
				_, _ = d.r.ReadByte()
			}
			return sb.String(), nil
		default:
			if sb.Len() >= d.max {
				return "", ErrEventTooLarge
			}
			sb.WriteByte(b)
		}
	}
}
