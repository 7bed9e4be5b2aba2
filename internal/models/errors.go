package models

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the store
var (
	ErrUserNotFound    = errors.New("user not found")
	ErrTokenNotFound   = errors.New("group token not found")
	ErrKeywordNotFound = errors.New("keyword not found")
)

// ErrorKind classifies errors that are shown to the chat user
type ErrorKind string

const (
	KindUsage      ErrorKind = "usage"
	KindPermission ErrorKind = "permission"
	KindNotFound   ErrorKind = "not_found"
)

// CommandError is a user-facing failure. Message is sent back to the chat
// as-is; nothing was mutated.
type CommandError struct {
	Kind    ErrorKind
	Message string
}

// Error implements the error interface
func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// NewUsageError reports a malformed command
func NewUsageError(message string) *CommandError {
	return &CommandError{Kind: KindUsage, Message: message}
}

// NewPermissionError reports a role or group mismatch
func NewPermissionError(message string) *CommandError {
	return &CommandError{Kind: KindPermission, Message: message}
}

// NewNotFoundError reports an unknown user, respondent or token
func NewNotFoundError(message string) *CommandError {
	return &CommandError{Kind: KindNotFound, Message: message}
}

// IsKind reports whether err is a CommandError of the given kind
func IsKind(err error, kind ErrorKind) bool {
	var ce *CommandError
	return errors.As(err, &ce) && ce.Kind == kind
}
