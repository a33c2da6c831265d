package shapespec

import (
	"errors"
	"fmt"

	"github.com/born-ml/tensortypes/internal/tensor"
)

// Sentinel errors for errors.Is. Every mismatch error matches ErrTensorType
// and its own specific sentinel.
var (
	ErrTensorType    = errors.New("tensor type mismatch")
	ErrShapeMismatch = errors.New("shape mismatch")
	ErrKindMismatch  = errors.New("kind mismatch")
)

// ShapeMismatchError reports a rank or dimension mismatch.
type ShapeMismatchError struct {
	TypeName string       // Tensor type that rejected the value
	Expected tensor.Shape // Shape resolved from the parameters
	Actual   tensor.Shape // Shape of the offered tensor
}

// Error implements the error interface.
func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("shape mismatch on %s: expected dimensions %v, found %v", e.TypeName, e.Expected, e.Actual)
}

// Is matches ErrShapeMismatch and ErrTensorType.
func (e *ShapeMismatchError) Is(target error) bool {
	return target == ErrShapeMismatch || target == ErrTensorType
}

// RankMismatch reports whether the mismatch is in the number of dimensions.
func (e *ShapeMismatchError) RankMismatch() bool {
	return len(e.Expected) != len(e.Actual)
}

// KindMismatchError reports an element kind mismatch.
type KindMismatchError struct {
	TypeName string
	Expected tensor.DataType
	Actual   tensor.DataType
}

// Error implements the error interface.
func (e *KindMismatchError) Error() string {
	return fmt.Sprintf("kind mismatch on %s: expected kind %s, found %s", e.TypeName, e.Expected, e.Actual)
}

// Is matches ErrKindMismatch and ErrTensorType.
func (e *KindMismatchError) Is(target error) bool {
	return target == ErrKindMismatch || target == ErrTensorType
}
