package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrTransport marks failures where no usable answer came back from the
// backend: the request could not be sent or the body was not valid JSON.
var ErrTransport = errors.New("backend transport error")

// APIError is a non-2xx response carrying the backend's detail message.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("backend returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.StatusCode, e.Detail)
}

// IsTransport reports whether err is a transport or decode failure.
func IsTransport(err error) bool {
	return errors.Is(err, ErrTransport)
}

// Detail returns the server-supplied detail message carried by err, if any.
func Detail(err error) (string, bool) {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return "", false
	}
	return apiErr.Detail, true
}

// errorBody is the FastAPI error envelope. Detail is usually a string but
// validation failures return a list of objects.
type errorBody struct {
	Detail json.RawMessage `json:"detail"`
}

func (b errorBody) text() string {
	raw := strings.TrimSpace(string(b.Detail))
	if raw == "" || raw == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(b.Detail, &s); err == nil {
		return s
	}
	return raw
}
