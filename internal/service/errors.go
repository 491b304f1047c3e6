package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Kind classifies a domain failure so the HTTP layer can pick a status code.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindPermission
	KindConflict
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindPermission:
		return "permission"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	}
	return "unknown"
}

// Signals carried by voting failures. Clients route on these rather than on messages.
const (
	SignalNotStarted    = "not_started"
	SignalPollClosed    = "poll_closed"
	SignalAlreadyVoted  = "already_voted"
	SignalInvalidChoice = "invalid_choice"
)

// Error is a recoverable domain failure.
type Error struct {
	Kind    Kind
	Signal  string
	Message string
}

func (e *Error) Error() string {
	if e.Signal != "" {
		return fmt.Sprintf("%s (%s): %s", e.Kind, e.Signal, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

var (
	ErrPollNotStarted = &Error{Kind: KindConflict, Signal: SignalNotStarted, Message: "This poll has not started yet."}
	ErrPollClosed     = &Error{Kind: KindConflict, Signal: SignalPollClosed, Message: "This poll has already ended."}
	ErrAlreadyVoted   = &Error{Kind: KindConflict, Signal: SignalAlreadyVoted, Message: "You have already voted on this poll."}
	ErrInvalidChoice  = &Error{Kind: KindValidation, Signal: SignalInvalidChoice, Message: "You didn't select a choice."}
)

func validationError(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func permissionError(format string, args ...any) error {
	return &Error{Kind: KindPermission, Message: fmt.Sprintf(format, args...)}
}

func conflictError(format string, args ...any) error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func notFoundError(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of a domain error, or 0 for anything else.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// notFoundOr maps gorm.ErrRecordNotFound to a NotFound error and wraps anything else.
func notFoundOr(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFoundError("%s not found", what)
	}
	return fmt.Errorf("failed to load %s: %w", what, err)
}
