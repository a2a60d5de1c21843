package models

import "fmt"

// ConfigurationError reports an invalid detector configuration, typically a
// model input/output shape mismatch discovered at load time. It is fatal:
// it aborts detector startup and is never produced per frame.
type ConfigurationError struct {
	Message string
	Cause   error
}

func NewConfigurationError(message string, cause error) *ConfigurationError {
	return &ConfigurationError{Message: message, Cause: cause}
}

func (e *ConfigurationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("configuration: %s: %v", e.Message, e.Cause)
	}
	return "configuration: " + e.Message
}

func (e *ConfigurationError) Unwrap() error { return e.Cause }

// FrameFormatError reports malformed or incomplete camera plane data for a
// single frame. Recoverable: the frame yields zero detections and the
// pipeline continues.
type FrameFormatError struct {
	Message string
	Cause   error
}

func NewFrameFormatError(message string, cause error) *FrameFormatError {
	return &FrameFormatError{Message: message, Cause: cause}
}

func (e *FrameFormatError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("frame format: %s: %v", e.Message, e.Cause)
	}
	return "frame format: " + e.Message
}

func (e *FrameFormatError) Unwrap() error { return e.Cause }

// InferenceError reports a failed inference call for a single frame.
// Recoverable at frame granularity; never retried internally.
type InferenceError struct {
	Message string
	Cause   error
}

func NewInferenceError(message string, cause error) *InferenceError {
	return &InferenceError{Message: message, Cause: cause}
}

func (e *InferenceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("inference: %s: %v", e.Message, e.Cause)
	}
	return "inference: " + e.Message
}

func (e *InferenceError) Unwrap() error { return e.Cause }

// ValidationError reports malformed inputs to the strict Detection
// constructor.
type ValidationError struct {
	Message string
	Cause   error
}

func NewValidationError(message string, cause error) *ValidationError {
	return &ValidationError{Message: message, Cause: cause}
}

func (e *ValidationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("validation: %s: %v", e.Message, e.Cause)
	}
	return "validation: " + e.Message
}

func (e *ValidationError) Unwrap() error { return e.Cause }
