package errors

import (
	goerrors "errors"
	"fmt"
	"net/http"
)

var (
	ErrWorkerPanic       = fmt.Errorf("worker panic")
	ErrEventPanic        = fmt.Errorf("event handler panic")
	ErrUnknownEvent      = fmt.Errorf("unknown event")
	ErrMalformedEnvelope = fmt.Errorf("malformed envelope")
	ErrInvalidJoin       = fmt.Errorf("invalid join payload")
	ErrInvalidUsername   = fmt.Errorf("username must be at least 3 characters")
	ErrTokenGeneration   = fmt.Errorf("token generation failed")
	ErrInvalidToken      = fmt.Errorf("invalid or expired token")
	ErrSinkFull          = fmt.Errorf("connection buffer full")
	ErrArchiveFull       = fmt.Errorf("archive buffer full")
	ErrEmptyWords        = fmt.Errorf("no words have been found")
	ErrInvalidCursor     = fmt.Errorf("invalid cursor")
)

// MapToHTTPStatus translates a domain error into the status code returned by the HTTP layer.
func MapToHTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case goerrors.Is(err, ErrInvalidUsername),
		goerrors.Is(err, ErrInvalidJoin),
		goerrors.Is(err, ErrInvalidCursor):
		return http.StatusBadRequest
	case goerrors.Is(err, ErrInvalidToken):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage is the message of the sentinel behind err, without the wrapped details.
func PublicMessage(err error) string {
	for _, sentinel := range []error{ErrInvalidUsername, ErrInvalidJoin, ErrInvalidCursor, ErrInvalidToken} {
		if goerrors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return "Internal server error"
}
