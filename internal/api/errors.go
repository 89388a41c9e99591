package api

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the backend resolves a path but not the id.
	ErrNotFound = errors.New("resource not found")
)

// Error is a non-2xx backend response. Transport-level failures are returned
// as wrapped *url.Error instead, so callers can tell "backend said no" from
// "backend unreachable".
type Error struct {
	StatusCode int
	Code       string `json:"code"`
	Message    string `json:"error"`
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("backend returned %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	if errors.Is(err, ErrNotFound) {
		return true
	}
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == 404
}
