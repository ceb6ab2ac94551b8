package api

import (
	"fmt"
	"strconv"
	"strings"
)

// Error is the single failure kind of the planner API. Transport failures and
// non-2xx responses are reported the same way.
type Error struct {
	StatusCode int
	StatusText string
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("API Error: %v", e.Err)
	}
	return fmt.Sprintf("API Error: %d %s", e.StatusCode, e.StatusText)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// statusText strips the leading code from an http.Response Status line.
func statusText(code int, status string) string {
	return strings.TrimSpace(strings.TrimPrefix(status, strconv.Itoa(code)))
}
