package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeDimensionMismatch = "DIMENSION_MISMATCH"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeForbidden         = "FORBIDDEN"
	ErrCodeTransient         = "TRANSIENT_ERROR"
	ErrCodeInternalError     = "INTERNAL_ERROR"
)

// Validation errors
var (
	ErrInvalidThreshold    = NewDomainError(ErrCodeValidation, "threshold must be in (0,1]")
	ErrInvalidLimit        = NewDomainError(ErrCodeValidation, "limit cannot be negative")
	ErrInvalidTier         = NewDomainError(ErrCodeValidation, "invalid search tier")
	ErrInvalidSourceStatus = NewDomainError(ErrCodeValidation, "invalid source status")
	ErrEmptyQueryEmbedding = NewDomainError(ErrCodeValidation, "query embedding is required")
	ErrMissingAgentID      = NewDomainError(ErrCodeValidation, "agent ID is required")
	ErrMissingQueryKey     = NewDomainError(ErrCodeValidation, "query key is required")
	ErrMissingFingerprint  = NewDomainError(ErrCodeValidation, "fingerprint is required")
)

// Not found errors
var (
	ErrSourceNotFound      = NewDomainError(ErrCodeNotFound, "source not found")
	ErrHelpArticleNotFound = NewDomainError(ErrCodeNotFound, "help article not found")
	ErrAPIKeyNotFound      = NewDomainError(ErrCodeNotFound, "api key not found")
)

// Authorization errors
var (
	ErrAPIKeyRevoked     = NewDomainError(ErrCodeUnauthorized, "api key has been revoked")
	ErrInvalidAPIKey     = NewDomainError(ErrCodeUnauthorized, "invalid api key")
	ErrAgentAccessDenied = NewDomainError(ErrCodeForbidden, "api key not authorized for agent")
)

// NewDimensionMismatchError reports a query vector whose dimensionality does
// not match the tier's stored vectors.
func NewDimensionMismatchError(tier Tier, want, got int) *DomainError {
	return NewDomainError(ErrCodeDimensionMismatch,
		fmt.Sprintf("tier %s expects %d-dimensional embeddings, got %d", tier, want, got))
}

// NewTransientError wraps a store or timeout failure that callers should
// retry with backoff rather than treat as "no results".
func NewTransientError(message string, err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeTransient, message, err)
}
