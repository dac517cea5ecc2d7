package content

import (
	"errors"
	"fmt"
)

var (
	ErrOutputParse      = errors.New("model output is not parseable JSON")
	ErrSchemaValidation = errors.New("model output failed schema validation")
	ErrUnknownKind      = errors.New("unknown content kind")
)

// ValidationError names the offending field. errors.Is(err, ErrSchemaValidation) holds.
type ValidationError struct {
	Kind   string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
	}
	return fmt.Sprintf("%s.%s: %s", e.Kind, e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrSchemaValidation }

func invalid(kind, field, format string, args ...any) error {
	return &ValidationError{Kind: kind, Field: field, Reason: fmt.Sprintf(format, args...)}
}
