package engine

import (
	"errors"
	"fmt"
)

// ErrorClass represents the stage an error belongs to.
type ErrorClass string

const (
	// ErrorClassConfig indicates the project document or script is malformed.
	ErrorClassConfig ErrorClass = "config"

	// ErrorClassCatalog indicates a problem with the manifest catalog itself.
	ErrorClassCatalog ErrorClass = "catalog"

	// ErrorClassResolution indicates a reference, manifest, or action could not
	// be turned into code. Resolution errors abort the compile.
	ErrorClassResolution ErrorClass = "resolution"

	// ErrorClassValidation indicates the nibbler gate rejected the document.
	ErrorClassValidation ErrorClass = "validation"

	// ErrorClassInternal indicates a failure unrelated to user input.
	ErrorClassInternal ErrorClass = "internal"
)

// EngineError represents a classified error with context.
// nolint:revive // EngineError is intentionally named to distinguish from standard errors
type EngineError struct {
	// Class is the error classification.
	Class ErrorClass `json:"class"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Code identifies the error for programmatic handling.
	Code string `json:"code,omitempty"`

	// Resource names the instance, action key, or function involved.
	Resource string `json:"resource,omitempty"`

	// Operation is the compile phase being performed.
	Operation string `json:"operation,omitempty"`

	// Err is the underlying error that caused this error.
	Err error `json:"-"`

	// Details contains additional context-specific information.
	Details map[string]interface{} `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %s", msg, e.Err.Error())
	}
	switch {
	case e.Resource != "" && e.Operation != "":
		return fmt.Sprintf("[%s] %s (resource=%s, operation=%s)", e.Code, msg, e.Resource, e.Operation)
	case e.Resource != "":
		return fmt.Sprintf("[%s] %s (resource=%s)", e.Code, msg, e.Resource)
	case e.Operation != "":
		return fmt.Sprintf("[%s] %s (operation=%s)", e.Code, msg, e.Operation)
	default:
		return fmt.Sprintf("[%s] %s", e.Code, msg)
	}
}

// Unwrap returns the underlying error for error chain inspection.
func (e *EngineError) Unwrap() error {
	return e.Err
}

// Is implements error equality checking for errors.Is.
func (e *EngineError) Is(target error) bool {
	t, ok := target.(*EngineError)
	if !ok {
		return false
	}
	return e.Class == t.Class && e.Code == t.Code
}

// WithResource adds resource context to an error. The first resource set wins
// so that the innermost instance or action name is kept while unwinding.
func (e *EngineError) WithResource(resource string) *EngineError {
	if e.Resource == "" {
		e.Resource = resource
	}
	return e
}

// WithOperation adds operation context to an error.
func (e *EngineError) WithOperation(operation string) *EngineError {
	if e.Operation == "" {
		e.Operation = operation
	}
	return e
}

// WithDetail adds a detail field to the error context.
func (e *EngineError) WithDetail(key string, value interface{}) *EngineError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying error.
func (e *EngineError) WithCause(err error) *EngineError {
	e.Err = err
	return e
}

// Error codes.
const (
	ErrCodeParse                 = "PARSE_ERROR"
	ErrCodeUnknownManifest       = "UNKNOWN_MANIFEST"
	ErrCodeMissingParameter      = "MISSING_PARAMETER"
	ErrCodeUndefinedReference    = "UNDEFINED_REFERENCE"
	ErrCodeMethodNotFound        = "METHOD_NOT_FOUND"
	ErrCodeInvalidActionShape    = "INVALID_ACTION_SHAPE"
	ErrCodeAsyncFeatureRequired  = "ASYNC_FEATURE_REQUIRED"
	ErrCodeUnknownActionFormat   = "UNKNOWN_ACTION_FORMAT"
	ErrCodeUnsupportedValueShape = "UNSUPPORTED_VALUE_SHAPE"
	ErrCodeDuplicateManifest     = "DUPLICATE_MANIFEST"
	ErrCodeValidationFailed      = "VALIDATION_FAILED"
	ErrCodeInternal              = "INTERNAL_ERROR"
)

// codeClasses maps each code to the class it is always raised with.
var codeClasses = map[string]ErrorClass{
	ErrCodeParse:                 ErrorClassConfig,
	ErrCodeUnknownManifest:       ErrorClassResolution,
	ErrCodeMissingParameter:      ErrorClassResolution,
	ErrCodeUndefinedReference:    ErrorClassResolution,
	ErrCodeMethodNotFound:        ErrorClassResolution,
	ErrCodeInvalidActionShape:    ErrorClassResolution,
	ErrCodeAsyncFeatureRequired:  ErrorClassResolution,
	ErrCodeUnknownActionFormat:   ErrorClassResolution,
	ErrCodeUnsupportedValueShape: ErrorClassResolution,
	ErrCodeDuplicateManifest:     ErrorClassCatalog,
	ErrCodeValidationFailed:      ErrorClassValidation,
	ErrCodeInternal:              ErrorClassInternal,
}

// NewError creates an error for the given code, picking its class.
func NewError(code, message string) *EngineError {
	class, ok := codeClasses[code]
	if !ok {
		class = ErrorClassInternal
	}
	return &EngineError{
		Class:   class,
		Code:    code,
		Message: message,
	}
}

// Errorf is NewError with a formatted message.
func Errorf(code, format string, args ...interface{}) *EngineError {
	return NewError(code, fmt.Sprintf(format, args...))
}

// NewParseError wraps a decoding failure of a document or script.
func NewParseError(message string, err error) *EngineError {
	e := NewError(ErrCodeParse, message)
	e.Err = err
	return e
}

// Sentinel returns a bare error usable as an errors.Is target for code.
func Sentinel(code string) error {
	return NewError(code, "")
}

// HasCode reports whether any EngineError in the chain carries code.
func HasCode(err error, code string) bool {
	var e *EngineError
	for err != nil {
		if !errors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.Err
	}
	return false
}

// CodeOf returns the code of the outermost EngineError in the chain.
func CodeOf(err error) string {
	var e *EngineError
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsResolution returns true if the error aborts a compile during resolution.
func IsResolution(err error) bool {
	var e *EngineError
	if errors.As(err, &e) {
		return e.Class == ErrorClassResolution
	}
	return false
}
