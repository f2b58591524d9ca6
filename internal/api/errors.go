package api

import (
	"errors"
	"fmt"
)

// Kind classifies a failed call so callers can decide what to do with local
// optimistic state.
type Kind int

const (
	// KindNetwork covers transport-level failures: no response, DNS, timeout.
	KindNetwork Kind = iota
	// KindServer is a non-2xx response with a body.
	KindServer
	// KindAuth is a 401; it forces session teardown upstream.
	KindAuth
	// KindMalformed is a 2xx whose body could not be decoded. Treated like a
	// network failure by callers: garbled state must never be committed.
	KindMalformed
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindServer:
		return "server"
	case KindAuth:
		return "auth"
	case KindMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// Error is the only error type the client's methods return. Message is safe to
// show to the user.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s failure: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s failure: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsAuth reports whether err is (or wraps) a 401 failure.
func IsAuth(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == KindAuth
}

// UserMessage returns the displayable message for err, or a generic fallback.
func UserMessage(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return "something went wrong, please try again"
}
