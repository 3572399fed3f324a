// Package shared holds the types every domain package agrees on: errors,
// events and identifiers. It has no external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base kinds. Domain errors carry one of these so callers can branch with
// errors.Is without knowing the concrete error.
var (
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")

	ErrValidation   = errors.New("validation error")
	ErrInvalidID    = errors.New("invalid ID")
	ErrInvalidInput = errors.New("invalid input")
	ErrEmptyValue   = errors.New("value cannot be empty")

	ErrInvalidState    = errors.New("invalid state")
	ErrStateTransition = errors.New("invalid state transition")

	ErrExternalService    = errors.New("external service error")
	ErrServiceUnavailable = errors.New("service unavailable")
)

// DomainError is an error raised by one operation of one domain.
type DomainError struct {
	Domain  string // session, profile, content, practice
	Op      string
	Kind    error
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is matches the kind, the cause, and any bare DomainError with the same
// Domain, Op and Kind. The last rule lets a wrapped sentinel such as
// ErrPersistenceUnavailable.Wrap(err) still compare equal to the sentinel.
func (e *DomainError) Is(target error) bool {
	var other *DomainError
	if errors.As(target, &other) && other.Err == nil &&
		e.Domain == other.Domain && e.Op == other.Op && e.Kind == other.Kind {
		return true
	}
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	return e.Err != nil && errors.Is(e.Err, target)
}

// NewDomainError creates a domain error without a cause.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{Domain: domain, Op: op, Kind: kind, Message: message}
}

// WrapError creates a domain error around err.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{Domain: domain, Op: op, Kind: kind, Message: message, Err: err}
}

// Wrap returns a copy of a sentinel carrying err as its cause.
func (e *DomainError) Wrap(err error) *DomainError {
	return WrapError(e.Domain, e.Op, e.Kind, e.Message, err)
}

// ─── Session ────────────────────────────────────────────────────────────────

var (
	ErrSessionAlreadyOpen = NewDomainError("session", "Start", ErrAlreadyExists, "a session is already open for this profile")
	ErrNoActiveSession    = NewDomainError("session", "Drive", ErrInvalidState, "no active session")
	ErrInvalidEvent       = NewDomainError("session", "Drive", ErrStateTransition, "event is not valid in the current state")
	ErrInvalidWatchTime   = NewDomainError("session", "RecordLecture", ErrInvalidInput, "watched minutes must be positive")
)

// ─── Profile ────────────────────────────────────────────────────────────────

var (
	ErrProfileNotFound        = NewDomainError("profile", "Load", ErrNotFound, "student profile not found")
	ErrInvalidProfile         = NewDomainError("profile", "Validate", ErrValidation, "invalid student profile")
	ErrPersistenceUnavailable = NewDomainError("profile", "Persist", ErrServiceUnavailable, "profile storage is unavailable")
)

// ─── Content ────────────────────────────────────────────────────────────────

var (
	ErrNoContentAvailable = NewDomainError("content", "Fetch", ErrNotFound, "no content available")
	ErrContentUnavailable = NewDomainError("content", "Fetch", ErrServiceUnavailable, "question bank is unavailable")
	ErrTheoryUnavailable  = NewDomainError("content", "FetchTheory", ErrExternalService, "theory provider failed")
)
