package httpclient

import (
	"fmt"
	"net/http"
)

// StatusError reports a non-2xx upstream response
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upstream returned %d %s", e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("upstream returned %d: %s", e.Code, e.Body)
}

// StatusCode returns the HTTP status code
func (e *StatusError) StatusCode() int {
	return e.Code
}

// NewStatusError builds a StatusError, truncating body to limit bytes
func NewStatusError(code int, body []byte, limit int) *StatusError {
	if limit > 0 && len(body) > limit {
		body = append(body[:limit:limit], "..."...)
	}
	return &StatusError{Code: code, Body: string(body)}
}
