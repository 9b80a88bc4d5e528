package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput signals empty or malformed caller-supplied data.
	ErrInvalidInput = errors.New("invalid input")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrEmptyStore signals an operation that requires at least one stored document.
	ErrEmptyStore = errors.New("vector store is empty")
	// ErrNoResults signals a retrieval that returned zero candidates.
	ErrNoResults = errors.New("no results")
	// ErrUpstream signals a failed or malformed remote embedding/generation call.
	ErrUpstream = errors.New("upstream provider error")
	// ErrCorruptSnapshot signals a missing or unparseable persisted snapshot.
	ErrCorruptSnapshot = errors.New("corrupt snapshot")
)

// DimMismatchError wraps ErrVectorDimMismatch with the offending position and sizes.
type DimMismatchError struct {
	Index int
	Got   int
	Want  int
}

func (e *DimMismatchError) Error() string {
	return fmt.Sprintf("%s at index %d: got %d, want %d",
		ErrVectorDimMismatch.Error(), e.Index, e.Got, e.Want)
}

func (e *DimMismatchError) Unwrap() error { return ErrVectorDimMismatch }

// NewDimMismatch creates a dimension mismatch error for the given input position.
func NewDimMismatch(index, got, want int) error {
	return &DimMismatchError{Index: index, Got: got, Want: want}
}
