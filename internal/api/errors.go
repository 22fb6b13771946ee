package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNotAuthenticated is returned before any request is sent when no credential is stored.
var ErrNotAuthenticated = errors.New("not authenticated")

// LoginRequiredMessage is the user-facing text for ErrNotAuthenticated.
const LoginRequiredMessage = "Please log in to continue."

// ErrAuthExpired matches any AuthExpiredError via errors.Is.
var ErrAuthExpired = errors.New("session expired")

const sessionExpiredMessage = "Session expired. Please log in again."

// AuthExpiredError is a 401 from an authenticated endpoint.
type AuthExpiredError struct {
	Op     string
	Detail string
}

func (e AuthExpiredError) Error() string {
	return sessionExpiredMessage
}

func (e AuthExpiredError) Is(target error) bool {
	return target == ErrAuthExpired
}

// TransportError covers network failures, malformed responses and non-401 error statuses.
// Status is 0 when no response was received.
type TransportError struct {
	Op      string
	Status  int
	Message string
	Err     error
}

func (e TransportError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("failed to %s", e.Op)
}

func (e TransportError) Unwrap() error { return e.Err }

// ServerMessage returns the server-provided detail, if any.
func ServerMessage(err error) (string, bool) {
	var te TransportError
	if errors.As(err, &te) && te.Status != 0 && te.Message != "" && te.Message != defaultErrorMessage {
		return te.Message, true
	}
	return "", false
}

const defaultErrorMessage = "Something went wrong"

// parseDetail extracts the `detail` field of an error body. FastAPI-style validation
// errors carry a list of {msg} objects instead of a string.
func parseDetail(body []byte) string {
	var env struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &env); err != nil || len(env.Detail) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(env.Detail, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(env.Detail, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if m := strings.TrimSpace(it.Msg); m != "" {
				msgs = append(msgs, m)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}
