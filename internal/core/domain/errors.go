package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrBoardNotFound   = errors.New("board not found")
	ErrChannelNotFound = errors.New("channel not found")
	ErrChannelExists   = errors.New("channel already exists")
	ErrMessageNotFound = errors.New("message not found")
	ErrSessionNotFound = errors.New("session not registered")
)

type AuthErrorKind string

const (
	AuthInvalid        AuthErrorKind = "invalid"
	AuthUnknownSubject AuthErrorKind = "unknown_subject"
	AuthTimeout        AuthErrorKind = "timeout"
)

// AuthError is fatal to a connection attempt.
type AuthError struct {
	Kind  AuthErrorKind
	Cause error
}

func (e *AuthError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("authentication failed (%s): %v", e.Kind, e.Cause)
	}
	return fmt.Sprintf("authentication failed (%s)", e.Kind)
}

func (e *AuthError) Unwrap() error { return e.Cause }

func (e *AuthError) Is(target error) bool {
	t, ok := target.(*AuthError)
	return ok && t.Kind == e.Kind
}

var (
	ErrAuthInvalid        = &AuthError{Kind: AuthInvalid}
	ErrAuthUnknownSubject = &AuthError{Kind: AuthUnknownSubject}
	ErrAuthTimeout        = &AuthError{Kind: AuthTimeout}
)

func NewAuthError(kind AuthErrorKind, cause error) error {
	return &AuthError{Kind: kind, Cause: cause}
}

// AuthorizationError is reported to the originating session only.
type AuthorizationError struct {
	UserID    UserID
	ChannelID ChannelID
	BoardID   BoardID
}

func (e *AuthorizationError) Error() string {
	if e.ChannelID != "" {
		return fmt.Sprintf("user %s is not a member of channel %s", e.UserID, e.ChannelID)
	}
	return fmt.Sprintf("user %s is not a member of board %s", e.UserID, e.BoardID)
}

func (e *AuthorizationError) Is(target error) bool {
	_, ok := target.(*AuthorizationError)
	return ok
}

var ErrNotAMember = &AuthorizationError{}

type StorageErrorKind string

const (
	StorageWriteFailed StorageErrorKind = "write_failed"
	StorageTimeout     StorageErrorKind = "timeout"
)

// StorageError means nothing was committed and nothing may be broadcast.
type StorageError struct {
	Kind  StorageErrorKind
	Op    string
	Cause error
}

func (e *StorageError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("storage %s failed (%s)", e.Op, e.Kind)
	}
	return fmt.Sprintf("storage %s failed (%s): %v", e.Op, e.Kind, e.Cause)
}

func (e *StorageError) Unwrap() error { return e.Cause }

func (e *StorageError) Is(target error) bool {
	t, ok := target.(*StorageError)
	return ok && (t.Kind == "" || t.Kind == e.Kind)
}

var (
	ErrStorage            = &StorageError{}
	ErrStorageWriteFailed = &StorageError{Kind: StorageWriteFailed}
	ErrStorageTimeout     = &StorageError{Kind: StorageTimeout}
)

// ValidationError rejects a malformed payload before it reaches the
// exchange state machine.
type ValidationError struct {
	Fields []string
	Reason string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "invalid payload: " + e.Reason
	}
	return fmt.Sprintf("invalid payload: %s (%s)", e.Reason, strings.Join(e.Fields, ", "))
}

func (e *ValidationError) Is(target error) bool {
	_, ok := target.(*ValidationError)
	return ok
}

var ErrValidation = &ValidationError{}

// ErrRegistryInvariant signals that a session's joined rooms and the room
// subscriber sets disagree. The affected session must be terminated.
var ErrRegistryInvariant = errors.New("room registry invariant violated")
