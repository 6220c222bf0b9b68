package types

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrLeaseNotFound         = errors.New("lease not found in leases service")
	ErrResourceWindowTooWide = errors.New("resource-level cost queries cover at most 14 days")
)

// ValidationError describes a single rejected input field.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// ValidationErrors aggregates every field rejected during payload validation,
// so callers see all problems at once instead of just the first.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, ve := range e {
		msgs[i] = ve.Error()
	}
	return strings.Join(msgs, "; ")
}

// IsValidationError reporta se err (ou algo na sua cadeia) é um erro de validação.
func IsValidationError(err error) bool {
	var single ValidationError
	var many ValidationErrors
	return errors.As(err, &single) || errors.As(err, &many)
}
