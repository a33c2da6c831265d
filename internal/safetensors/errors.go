package safetensors

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	ErrHeaderTooLarge    = errors.New("header exceeds maximum size")
	ErrInvalidHeader     = errors.New("invalid safetensors header")
	ErrInvalidTensorName = errors.New("invalid tensor name")
	ErrTensorNotFound    = errors.New("tensor not found")
	ErrUnsupportedDType  = errors.New("unsupported dtype")
	ErrClosed            = errors.New("reader is closed")
)

// ValidationError describes a malformed header entry.
type ValidationError struct {
	Type    string // e.g. "offset_overlap", "out_of_bounds"
	Tensor  string
	Tensor2 string // second tensor of an overlap
	Details string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Tensor2 != "" {
		return fmt.Sprintf("%s: tensors %q and %q: %s", e.Type, e.Tensor, e.Tensor2, e.Details)
	}
	if e.Tensor != "" {
		return fmt.Sprintf("%s: tensor %q: %s", e.Type, e.Tensor, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Details)
}

// Is matches ErrInvalidHeader, and ErrInvalidTensorName for name errors.
func (e *ValidationError) Is(target error) bool {
	switch target {
	case ErrInvalidHeader:
		return true
	case ErrInvalidTensorName:
		return e.Type == "invalid_name" || e.Type == "name_too_long"
	}
	return false
}
