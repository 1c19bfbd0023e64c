package api

import (
	"fmt"
	"net/http"
)

// Error is a failed API call. Status is zero for transport failures
// (Err set) and for 2xx responses whose envelope reported success=false.
type Error struct {
	Method  string
	Path    string
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
	case e.Status == 0:
		return fmt.Sprintf("%s %s: request rejected: %s", e.Method, e.Path, e.Message)
	case e.Message != "":
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, e.Message)
	default:
		return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Status)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// UserMessage returns a short text suitable for showing in the UI.
func (e *Error) UserMessage() string {
	if e.Err != nil {
		return "The connection to the server is unstable."
	}

	switch e.Status {
	case 0:
		return orDefault(e.Message, "The request failed.")
	case http.StatusBadRequest:
		return orDefault(e.Message, "The request was invalid.")
	case http.StatusUnauthorized:
		return "Please sign in."
	case http.StatusForbidden:
		return "You do not have access to this."
	case http.StatusNotFound:
		return orDefault(e.Message, "The requested data was not found.")
	case http.StatusConflict:
		return orDefault(e.Message, "That already exists.")
	case http.StatusBadGateway:
		return "An external service failed."
	default:
		return orDefault(e.Message, "An unknown error occurred.")
	}
}

func orDefault(s, def string) string {
	if s != "" {
		return s
	}
	return def
}
