package agent

import "errors"

var (
	// ErrUnknownTaskType is returned by the factory for unregistered task types.
	ErrUnknownTaskType = errors.New("unknown task type")

	// ErrInvalidInput indicates the input failed unit validation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrAlreadyRegistered is returned when a task type already has a constructor.
	ErrAlreadyRegistered = errors.New("task type already registered")
)

// invalidInput wraps ErrInvalidInput with the reason.
func invalidInput(reason string) error {
	return &inputError{reason: reason}
}

type inputError struct {
	reason string
}

func (e *inputError) Error() string {
	return "invalid input: " + e.reason
}

func (e *inputError) Unwrap() error {
	return ErrInvalidInput
}
