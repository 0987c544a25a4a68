package assessment

import (
	"errors"
	"fmt"
)

const (
	CodeValidation  = "validation"
	CodeNotFound    = "not_found"
	CodeConflict    = "conflict"
	CodeIncomplete  = "incomplete"
	CodePersistence = "persistence"
	CodeInternal    = "internal"
)

// Error is the error type surfaced across the submission boundary. Not-found
// and conflict are validation failures with a more specific status.
type Error struct {
	Code      string
	Message   string
	Missing   int
	Transient bool
	Status    int
	cause     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

func statusForCode(code string) int {
	switch code {
	case CodeValidation:
		return 400
	case CodeNotFound:
		return 404
	case CodeConflict:
		return 409
	case CodeIncomplete:
		return 422
	default:
		return 500
	}
}

func newError(code, message string, transient bool, cause error) *Error {
	return &Error{
		Code:      code,
		Message:   message,
		Transient: transient,
		Status:    statusForCode(code),
		cause:     cause,
	}
}

func NewValidationError(format string, args ...any) error {
	return newError(CodeValidation, fmt.Sprintf(format, args...), false, nil)
}

func NewNotFoundError(format string, args ...any) error {
	return newError(CodeNotFound, fmt.Sprintf(format, args...), false, nil)
}

func NewConflictError(format string, args ...any) error {
	return newError(CodeConflict, fmt.Sprintf(format, args...), false, nil)
}

// NewIncompleteError reports how many catalog questions still lack a response.
func NewIncompleteError(missing int) error {
	e := newError(CodeIncomplete, fmt.Sprintf("%d responses outstanding", missing), false, nil)
	e.Missing = missing
	return e
}

func NewPersistenceError(op string, err error) error {
	return newError(CodePersistence, fmt.Sprintf("%s: %v", op, err), true, err)
}

func NewInternalError(message string) error {
	return newError(CodeInternal, message, true, nil)
}

var (
	// ErrNotFound is returned by stores when a row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrSessionCompleted is returned by stores asked to change the answers of
	// a completed session.
	ErrSessionCompleted = errors.New("session completed")
)

func codeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

func IsValidation(err error) bool {
	switch codeOf(err) {
	case CodeValidation, CodeNotFound, CodeConflict:
		return true
	}
	return false
}

func IsIncomplete(err error) bool { return codeOf(err) == CodeIncomplete }

func IsPersistence(err error) bool { return codeOf(err) == CodePersistence }

// MissingCount returns the outstanding response count of an incomplete error.
func MissingCount(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Missing
	}
	return 0
}
