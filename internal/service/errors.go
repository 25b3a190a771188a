package service

import "errors"

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrNotFound           = errors.New("not found")
	ErrInvalidTechnician  = errors.New("invalid technician")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrVerificationFailed = errors.New("persistence verification failed")
	ErrAssignmentFailed   = errors.New("assignment failed")
)

const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeUnauthenticated   = "UNAUTHENTICATED"
	CodeForbidden         = "FORBIDDEN"
	CodeNotFound          = "NOT_FOUND"
	CodeInvalidTechnician = "INVALID_TECHNICIAN"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeAssignmentFailed  = "ASSIGNMENT_FAILED"
)

// Error pairs an error kind with a machine-readable code and a message safe
// to show to callers.
type Error struct {
	Kind    error
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Is(target error) bool {
	return e.Kind == target
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func invalidInput(message string) error {
	return &Error{Kind: ErrInvalidInput, Code: CodeValidation, Message: message}
}

func invalidTechnician() error {
	return &Error{
		Kind:    ErrInvalidTechnician,
		Code:    CodeInvalidTechnician,
		Message: "Invalid technician assignment. User must have technician role.",
	}
}

func invalidTransition(message string) error {
	return &Error{Kind: ErrInvalidTransition, Code: CodeInvalidTransition, Message: message}
}

func assignmentFailed(cause error) error {
	return &Error{
		Kind:    ErrAssignmentFailed,
		Code:    CodeAssignmentFailed,
		Message: "Failed to assign technician",
		Cause:   cause,
	}
}
