package askdoc

import "errors"

// Sentinel errors mapped from API error codes.
// Use errors.Is() to check.
var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyIndex      = errors.New("index is empty")
	ErrNoResults       = errors.New("no results")
	ErrDimMismatch     = errors.New("vector dimension mismatch")
	ErrUpstream        = errors.New("upstream provider error")
	ErrCorruptSnapshot = errors.New("corrupt snapshot")
	ErrUnauthorized    = errors.New("unauthorized")
)

// APIError is the decoded error envelope from the service. It wraps the
// matching sentinel so callers can branch with errors.Is.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return "askdoc: " + e.Code + ": " + e.Message
}

func (e *APIError) Unwrap() error {
	switch e.Code {
	case "bad_request", "validation_failed":
		return ErrInvalidInput
	case "empty_index":
		return ErrEmptyIndex
	case "no_results":
		return ErrNoResults
	case "vector_dim_mismatch":
		return ErrDimMismatch
	case "upstream_error":
		return ErrUpstream
	case "snapshot_error":
		return ErrCorruptSnapshot
	}
	if e.StatusCode == 401 {
		return ErrUnauthorized
	}
	return nil
}
