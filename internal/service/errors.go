package service

import (
	"errors"

	"github.com/parkwebdev/recall/internal/domain"
)

// classifyStoreError wraps store and timeout failures as transient so callers
// retry with backoff instead of treating them as "no results". Domain errors
// pass through untouched.
func classifyStoreError(message string, err error) error {
	if err == nil {
		return nil
	}
	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	return domain.NewTransientError(message, err)
}
