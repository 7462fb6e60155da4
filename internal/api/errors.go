package api

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Error is a failed request: a transport error or a non-2xx response.
type Error struct {
	// Status is the HTTP status code, 0 when no response arrived.
	Status int
	// Message is the error_message_long member of the response body, if any.
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "":
		return fmt.Sprintf("request failed (%d): %s", e.Status, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("request failed (%d): %v", e.Status, e.Err)
	default:
		return fmt.Sprintf("request failed (%d)", e.Status)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// UserMessage returns the text to show the user: the server's long message
// when present, else a generic message naming the status text (or the
// transport error when no response arrived) and pointing at support.
func (e *Error) UserMessage(support string) string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("An error occurred (%s).\nPlease contact %s if the problem persists.", e.reason(), support)
}

func (e *Error) reason() string {
	if text := http.StatusText(e.Status); text != "" {
		return text
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "error"
}

// newError builds an Error from a response status and body.
func newError(status int, body []byte) *Error {
	var payload struct {
		Long string `json:"error_message_long"`
	}
	if json.Unmarshal(body, &payload) == nil {
		return &Error{Status: status, Message: payload.Long}
	}
	return &Error{Status: status}
}
