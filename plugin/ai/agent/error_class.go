package agent

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/salmanmunirmalik/Digital-Research-Manager-sub009/plugin/ai"
)

// ErrorKind is the category of a failed execution.
type ErrorKind string

const (
	ErrorKindInvalidInput          ErrorKind = "invalid_input"
	ErrorKindNoCredential          ErrorKind = "no_credential"
	ErrorKindUnsupportedCapability ErrorKind = "unsupported_capability"
	ErrorKindBackend               ErrorKind = "backend_error"
	ErrorKindTimeout               ErrorKind = "timeout"
)

// ClassifiedError wraps an error with its kind.
type ClassifiedError struct {
	Kind     ErrorKind
	Original error
}

// Error returns a formatted error message.
func (c *ClassifiedError) Error() string {
	if c.Original == nil {
		return fmt.Sprintf("classified error: kind=%s", c.Kind)
	}
	return fmt.Sprintf("%s: %v", c.Kind, c.Original)
}

// Unwrap returns the original error for errors.Is/As.
func (c *ClassifiedError) Unwrap() error {
	return c.Original
}

// ClassifyError maps an error to its kind. Nil yields nil.
func ClassifyError(err error) *ClassifiedError {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, ErrInvalidInput):
		return &ClassifiedError{Kind: ErrorKindInvalidInput, Original: err}
	case errors.Is(err, ai.ErrNoCredential):
		return &ClassifiedError{Kind: ErrorKindNoCredential, Original: err}
	case errors.Is(err, ai.ErrUnsupportedCapability):
		return &ClassifiedError{Kind: ErrorKindUnsupportedCapability, Original: err}
	case isTimeoutError(err):
		return &ClassifiedError{Kind: ErrorKindTimeout, Original: err}
	default:
		return &ClassifiedError{Kind: ErrorKindBackend, Original: err}
	}
}

// isTimeoutError checks if an error is deadline related.
func isTimeoutError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	errMsg := strings.ToLower(err.Error())
	timeoutPatterns := []string{
		"timeout",
		"deadline exceeded",
		"i/o timeout",
		"operation timed out",
	}
	for _, pattern := range timeoutPatterns {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}
	return false
}
