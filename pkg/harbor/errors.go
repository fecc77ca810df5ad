package harbor

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrUserNotFound is returned by FindUser when no user matches the username exactly
var ErrUserNotFound = errors.New("user not found")

// APIError is returned for any non-2xx response from the Harbor API
type APIError struct {
	Operation  string
	StatusCode int
	Status     string
	Body       string
}

func (e *APIError) Error() string {
	msg := e.Message()
	if msg == "" {
		return fmt.Sprintf("%s: %s", e.Operation, e.Status)
	}
	return fmt.Sprintf("%s: %s: %s", e.Operation, e.Status, msg)
}

// Message extracts the human readable messages from Harbor's error envelope,
// falling back to the raw body when it is not in that shape.
func (e *APIError) Message() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return ""
	}

	var env errorEnvelope
	if err := json.Unmarshal([]byte(body), &env); err != nil || len(env.Errors) == 0 {
		return body
	}

	msgs := make([]string, 0, len(env.Errors))
	for _, item := range env.Errors {
		if item.Message != "" {
			msgs = append(msgs, item.Message)
		} else if item.Code != "" {
			msgs = append(msgs, item.Code)
		}
	}
	if len(msgs) == 0 {
		return body
	}
	return strings.Join(msgs, "; ")
}

// StatusCode returns the HTTP status carried by err, or 0 if err is not an APIError
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// IsNotFound reports whether err is a 404 from the API
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

// IsConflict reports whether err is a 409 from the API
func IsConflict(err error) bool {
	return StatusCode(err) == http.StatusConflict
}

// IsBadRequest reports whether err is a 400 from the API
func IsBadRequest(err error) bool {
	return StatusCode(err) == http.StatusBadRequest
}

// IsUnauthorized reports whether err is a 401 from the API
func IsUnauthorized(err error) bool {
	return StatusCode(err) == http.StatusUnauthorized
}

// IsForbidden reports whether err is a 403 from the API
func IsForbidden(err error) bool {
	return StatusCode(err) == http.StatusForbidden
}
