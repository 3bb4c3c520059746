package scoreboard

import (
	"errors"
	"fmt"
)

var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("player not found")
	ErrStateCorrupt = errors.New("state corrupt")
	ErrNoState      = errors.New("no state stored")
)

// ValidationError rejects an admin action because of bad input or a rule
// such as the one-score-per-round limit.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + " " + e.Reason
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

type NotFoundError struct {
	PlayerID int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("player %d not found", e.PlayerID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// StateCorruptionError reports a persisted document that could not be
// decoded or is missing required fields.
type StateCorruptionError struct {
	Key string
	Err error
}

func (e *StateCorruptionError) Error() string {
	return fmt.Sprintf("state corrupt at %q: %v", e.Key, e.Err)
}

func (e *StateCorruptionError) Unwrap() []error { return []error{ErrStateCorrupt, e.Err} }

func corrupt(key string, format string, args ...any) error {
	return &StateCorruptionError{Key: key, Err: fmt.Errorf(format, args...)}
}
