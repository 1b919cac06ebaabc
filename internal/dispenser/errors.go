package dispenser

import (
	"errors"
	"fmt"
)

// Sentinel kinds. Every error returned by Manager for a rejected request
// wraps exactly one of them; match with errors.Is.
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
	ErrInvalid  = errors.New("invalid input")
)

// Machine readable reasons carried in Error.Code.
const (
	CodeNotFound            = "not_found"
	CodeDuplicateSKU        = "duplicate_sku"
	CodeDuplicateUniqueCode = "duplicate_unique_code"
	CodeClientReassignment  = "client_reassignment_forbidden"
	CodeInvalidTransition   = "invalid_status_transition"
	CodeTemplateReferenced  = "template_referenced"
	CodeTemplateClient      = "template_client_forbidden"
	CodeFixedSchedule       = "fixed_schedule_protected"
	CodeDuplicateClient     = "duplicate_client"
	CodeClientInUse         = "client_has_dispensers"
	CodeAssignmentCompleted = "assignment_already_completed"
	CodeValidation          = "validation_failed"
	CodeUnknownReference    = "unknown_reference"
)

// Error describes a rejected operation with the offending field and value.
type Error struct {
	Kind    error
	Code    string
	Field   string
	Value   string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// ErrorKind classifies the error as not_found, conflict or validation.
func (e *Error) ErrorKind() string {
	switch {
	case errors.Is(e.Kind, ErrNotFound):
		return "not_found"
	case errors.Is(e.Kind, ErrConflict):
		return "conflict"
	default:
		return "validation"
	}
}

func notFound(what, id string) *Error {
	return &Error{
		Kind:    ErrNotFound,
		Code:    CodeNotFound,
		Field:   "id",
		Value:   id,
		Message: fmt.Sprintf("%s %q not found", what, id),
	}
}

func conflict(code, field, value, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    ErrConflict,
		Code:    code,
		Field:   field,
		Value:   value,
		Message: fmt.Sprintf(format, args...),
	}
}

func invalid(field, value, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    ErrInvalid,
		Code:    CodeValidation,
		Field:   field,
		Value:   value,
		Message: fmt.Sprintf(format, args...),
	}
}
