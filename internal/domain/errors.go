package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrAudioSession is returned when the capture or playback device could not be opened.
	ErrAudioSession = errors.New("audio session error")
	// ErrFileNotFound is returned when a recording's backing file is missing.
	ErrFileNotFound = errors.New("recording file not found")
	// ErrPersistence is returned when the persisted store fails.
	ErrPersistence = errors.New("persistence error")
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrNoActiveSession is returned when stopping with nothing in progress.
	ErrNoActiveSession = errors.New("no active audio session")
)

// ValidationError represents a validation error with a field name.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field %s: %s", e.Field, e.Message)
}
