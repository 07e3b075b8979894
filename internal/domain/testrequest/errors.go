package testrequest

import (
	"fmt"
	"strings"
)

// AppError is a rejection the caller can act on: unknown id, wrong state,
// wrong owner. Its message is safe to return verbatim.
type AppError struct {
	Message string
}

func (e *AppError) Error() string { return e.Message }

func NewAppError(format string, args ...interface{}) *AppError {
	return &AppError{Message: fmt.Sprintf(format, args...)}
}

// Violation is one failed field constraint.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ConstraintViolationError reports a payload that failed structural
// validation.
type ConstraintViolationError struct {
	Violations []Violation
}

func (e *ConstraintViolationError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.Field + ": " + v.Message
	}
	return "constraint violation: " + strings.Join(parts, ", ")
}

const msgInvalidIDOrState = "Invalid ID or State"
