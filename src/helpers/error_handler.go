package helpers

import (
	"errors"
	"fmt"

	"fx-agent/src/logger"
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

type FXAgentError struct {
	Message string
	Cause   error
}

func (e *FXAgentError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *FXAgentError) Unwrap() error {
	return e.Cause
}

// MalformedInputError: truncated/corrupt tick buffer, missing bar columns.
type MalformedInputError struct{ FXAgentError }

// MissingDataError: no bars for a bucket, no feature file, no tick file.
type MissingDataError struct{ FXAgentError }

// ModelError: artifact load or inference failure. Always degraded to rules.
type ModelError struct{ FXAgentError }

// InsufficientDataError: too few labeled rows to train.
type InsufficientDataError struct{ FXAgentError }

type ConfigurationError struct{ FXAgentError }
type StorageError struct{ FXAgentError }
type NetworkError struct{ FXAgentError }

// -----------------------------------------------------------------------------

func NewMalformedInput(cause error, format string, args ...interface{}) error {
	return &MalformedInputError{FXAgentError{Message: fmt.Sprintf(format, args...), Cause: cause}}
}

func NewMissingData(format string, args ...interface{}) error {
	return &MissingDataError{FXAgentError{Message: fmt.Sprintf(format, args...)}}
}

func NewModelError(cause error, format string, args ...interface{}) error {
	return &ModelError{FXAgentError{Message: fmt.Sprintf(format, args...), Cause: cause}}
}

func NewInsufficientData(format string, args ...interface{}) error {
	return &InsufficientDataError{FXAgentError{Message: fmt.Sprintf(format, args...)}}
}

func NewConfigurationError(cause error, format string, args ...interface{}) error {
	return &ConfigurationError{FXAgentError{Message: fmt.Sprintf(format, args...), Cause: cause}}
}

func NewStorageError(cause error, format string, args ...interface{}) error {
	return &StorageError{FXAgentError{Message: fmt.Sprintf(format, args...), Cause: cause}}
}

func NewNetworkError(cause error, format string, args ...interface{}) error {
	return &NetworkError{FXAgentError{Message: fmt.Sprintf(format, args...), Cause: cause}}
}

// -----------------------------------------------------------------------------

func IsMalformedInput(err error) bool {
	var target *MalformedInputError
	return errors.As(err, &target)
}

func IsMissingData(err error) bool {
	var target *MissingDataError
	return errors.As(err, &target)
}

func IsInsufficientData(err error) bool {
	var target *InsufficientDataError
	return errors.As(err, &target)
}

func IsModelError(err error) bool {
	var target *ModelError
	return errors.As(err, &target)
}

// -----------------------------------------------------------------------------
// Error Handler
// -----------------------------------------------------------------------------

type ErrorHandler struct {
	Logger     *logger.Logger
	ErrorCount int
}

func NewErrorHandler(log *logger.Logger) *ErrorHandler {
	if log == nil {
		log = logger.NewLogger(nil, "ErrorHandler")
	}
	return &ErrorHandler{Logger: log}
}

// -----------------------------------------------------------------------------

func (e *ErrorHandler) Handle(err error, context string) {
	if err != nil {
		e.ErrorCount++
		e.Logger.Error("Error in %s: %v", context, err)
	}
}

// -----------------------------------------------------------------------------

// Recover runs fn and converts a panic into fallback. It is the outermost
// boundary for code whose failure must never reach the caller.
func (e *ErrorHandler) Recover(context string, fallback string, fn func() string) (out string) {
	defer func() {
		if r := recover(); r != nil {
			e.ErrorCount++
			e.Logger.Error("Recovered panic in %s: %v", context, r)
			out = fallback
		}
	}()
	return fn()
}
