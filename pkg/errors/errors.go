package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches errors by code so predefined instances act as sentinels.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e != nil && other != nil && e.Code == other.Code
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrNotFound     = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrUnauthorized = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrValidation   = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal     = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")

	// ErrReconnectRequired means the stored Google refresh token was rejected.
	// Terminal for the user's connection; never retried automatically.
	ErrReconnectRequired = New("RECONNECT_REQUIRED", http.StatusInternalServerError, "calendar connection is no longer valid, reconnect required")
	// ErrCursorInvalid is the provider's signal that the stored sync token is stale.
	// Recovered once per run via a full resync; a second strike fails the run.
	ErrCursorInvalid = New("SYNC_CURSOR_INVALID", http.StatusInternalServerError, "sync cursor rejected by provider")
	// ErrRuleParse marks malformed recurrence rule text.
	ErrRuleParse = New("RULE_PARSE_ERROR", http.StatusBadRequest, "malformed recurrence rule")
	// ErrSyncInProgress is returned when the per-user sync lock is held.
	ErrSyncInProgress = New("SYNC_IN_PROGRESS", http.StatusConflict, "a sync run is already in progress for this user")
	// ErrChannelRegistration marks a failed webhook channel setup.
	ErrChannelRegistration = New("CHANNEL_REGISTRATION_FAILED", http.StatusBadGateway, "failed to register webhook channel")
	// ErrNotConnected means no Google Calendar connection exists for the user.
	ErrNotConnected = New("NOT_CONNECTED", http.StatusNotFound, "google calendar is not connected")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}
