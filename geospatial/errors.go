package geospatial

import (
	"errors"
	"fmt"
)

// Sentinel errors for the geospatial error taxonomy
var (
	// ErrInvalidArgument is returned when a constructor or a distance
	// computation is given an argument it cannot accept
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrSerialisation is returned when bytes passed to an unserialise entry
	// point are malformed or truncated
	ErrSerialisation = errors.New("serialisation error")

	// ErrUnknownMetric is returned when a registry has no metric of the requested name
	ErrUnknownMetric = errors.New("unknown metric")
)

// InvalidArgumentError represents an invalid argument with context
type InvalidArgumentError struct {
	Message string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid argument: %s", e.Message)
}

func (e *InvalidArgumentError) Is(target error) bool {
	return target == ErrInvalidArgument
}

// NewInvalidArgumentError creates a new InvalidArgumentError
func NewInvalidArgumentError(format string, args ...any) *InvalidArgumentError {
	return &InvalidArgumentError{Message: fmt.Sprintf(format, args...)}
}

// SerialisationError represents a failed decode of a serialised value.
// What names the kind of value being decoded (e.g. "coordinate").
type SerialisationError struct {
	What    string
	Message string
	Err     error
}

func (e *SerialisationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cannot unserialise %s: %s: %v", e.What, e.Message, e.Err)
	}
	return fmt.Sprintf("cannot unserialise %s: %s", e.What, e.Message)
}

func (e *SerialisationError) Is(target error) bool {
	return target == ErrSerialisation
}

func (e *SerialisationError) Unwrap() error {
	return e.Err
}

// NewSerialisationError creates a new SerialisationError
func NewSerialisationError(what, message string, err error) *SerialisationError {
	return &SerialisationError{What: what, Message: message, Err: err}
}

// UnknownMetricError represents a registry lookup miss
type UnknownMetricError struct {
	Name string
}

func (e *UnknownMetricError) Error() string {
	return fmt.Sprintf("no distance metric named '%s' is registered", e.Name)
}

func (e *UnknownMetricError) Is(target error) bool {
	return target == ErrUnknownMetric
}

// NewUnknownMetricError creates a new UnknownMetricError
func NewUnknownMetricError(name string) *UnknownMetricError {
	return &UnknownMetricError{Name: name}
}
