package console

import "errors"

// ErrQuit ends a console session.
var ErrQuit = errors.New("quit")

// UserError represents an error that should be displayed to the operator.
// These are not system failures - just invalid input or usage.
type UserError struct {
	Message string
}

func (e *UserError) Error() string {
	return e.Message
}

// NewUserError creates an operator-facing error.
func NewUserError(msg string) *UserError {
	return &UserError{Message: msg}
}
