package domain

import (
	"errors"
	"fmt"
)

var (
	ErrLoanNotFound        = errors.New("loan not found")
	ErrDocumentNotFound    = errors.New("document not found")
	ErrRequirementNotFound = errors.New("requirement not found")
	ErrInvalidInput        = errors.New("invalid input")
	ErrSyncInProgress      = errors.New("sync already in progress")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
