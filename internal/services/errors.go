package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/desertthunder/ytmigrate/internal/shared"
)

const defaultErrorStatus = 500

// ExecutorError is an ok:false reply. Its fields are passed through unmodified.
type ExecutorError struct {
	Action  Action          `json:"action,omitempty"`
	Status  int             `json:"status"`
	Code    string          `json:"code,omitempty"`
	Message string          `json:"error"`
	Details string          `json:"details,omitempty"`
	Reason  string          `json:"reason,omitempty"`
	Quota   json.RawMessage `json:"quota,omitempty"`
}

func (e *ExecutorError) Error() string {
	var b strings.Builder
	if e.Action != "" {
		fmt.Fprintf(&b, "%s: ", e.Action)
	}
	b.WriteString(e.Message)
	if e.Code != "" {
		fmt.Fprintf(&b, " (code %s, status %d)", e.Code, e.Status)
	} else {
		fmt.Fprintf(&b, " (status %d)", e.Status)
	}
	if e.Details != "" {
		fmt.Fprintf(&b, ": %s", e.Details)
	}
	return b.String()
}

// Unwrap lets callers match with errors.Is(err, shared.ErrExecutorBusiness).
func (e *ExecutorError) Unwrap() error { return shared.ErrExecutorBusiness }

// AsExecutorError extracts an [*ExecutorError] from err.
func AsExecutorError(err error) (*ExecutorError, bool) {
	var ee *ExecutorError
	if errors.As(err, &ee) {
		return ee, true
	}
	return nil, false
}

// ErrorMessage is the human readable part of err suitable for a failed item.
func ErrorMessage(err error) string {
	if ee, ok := AsExecutorError(err); ok {
		if ee.Details != "" {
			return ee.Message + ": " + ee.Details
		}
		return ee.Message
	}
	return err.Error()
}

func transportError(action Action, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", shared.ErrExecutorTransport, action, fmt.Sprintf(format, args...))
}
