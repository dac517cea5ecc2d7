package generation

import (
	"errors"
	"fmt"

	"github.com/yungbote/lessongen/internal/modules/generation/budget"
)

type ErrorKind string

const (
	ErrKindEndpointDisabled ErrorKind = "endpoint_disabled"
	ErrKindBudgetExceeded   ErrorKind = "budget_exceeded"
	ErrKindInvalidRequest   ErrorKind = "invalid_request"
	ErrKindGeneration       ErrorKind = "generation_failed"
)

// Error is the only error type Generate returns. Err keeps the cause so
// errors.Is reaches budget, content and provider sentinels.
type Error struct {
	Kind     ErrorKind
	Attempts int
	Err      error
}

func (e *Error) Error() string {
	if e.Attempts > 0 {
		return fmt.Sprintf("%s after %d attempt(s): %v", e.Kind, e.Attempts, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of a Generate error, or "" for foreign errors.
func KindOf(err error) ErrorKind {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return ""
}

func invalidRequest(format string, args ...any) error {
	return &Error{Kind: ErrKindInvalidRequest, Err: fmt.Errorf(format, args...)}
}

func budgetError(err error) error {
	switch {
	case errors.Is(err, budget.ErrEndpointDisabled):
		return &Error{Kind: ErrKindEndpointDisabled, Err: err}
	case errors.Is(err, budget.ErrUserBudgetExceeded), errors.Is(err, budget.ErrGlobalBudgetExceeded):
		return &Error{Kind: ErrKindBudgetExceeded, Err: err}
	default:
		return &Error{Kind: ErrKindGeneration, Err: fmt.Errorf("budget check: %w", err)}
	}
}
