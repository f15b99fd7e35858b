package config

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a configuration Error.
type ErrorKind int

const (
	// MissingRequiredPath means a command needs a path that was not given.
	MissingRequiredPath ErrorKind = iota + 1
)

// ErrMissingRequiredPath matches an Error of kind MissingRequiredPath.
var ErrMissingRequiredPath = errors.New("missing required path")

// Error is a fatal configuration error.
type Error struct {
	Kind ErrorKind
	Key  string
}

func (e *Error) Error() string {
	switch e.Kind {
	case MissingRequiredPath:
		return fmt.Sprintf("missing required %s path", e.Key)
	default:
		return fmt.Sprintf("invalid configuration for %s", e.Key)
	}
}

// Is matches the sentinel for e.Kind.
func (e *Error) Is(target error) bool {
	return target == ErrMissingRequiredPath && e.Kind == MissingRequiredPath
}
