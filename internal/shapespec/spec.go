// Package shapespec describes the expected shape and element kind of a tensor
// type as an ordered list of named dimension slots, and checks live tensors
// against it.
//
// A Spec never stores resolved sizes. Every Resolve or Check reads the
// parameter source it is given, so the same Spec can be used with different
// parameters concurrently, as long as each parameter source is not mutated
// while in use.
package shapespec

import (
	"strings"

	"github.com/born-ml/tensortypes/internal/tensor"
)

// Shaped is the part of a tensor a Spec needs to check it.
// *tensor.RawTensor and safetensors header entries satisfy it.
type Shaped interface {
	Shape() tensor.Shape
	DType() tensor.DataType
}

// Spec is the declared shape and element kind of one tensor type.
type Spec[P any] struct {
	name  string
	kind  tensor.DataType
	slots []Slot[P]
}

// New declares a spec. The name identifies the tensor type in errors.
//
// Example:
//
//	var tokenized = shapespec.New("TokenizedInput", tensor.Int64,
//	    shapespec.MustField[Params]("batch_size"),
//	    shapespec.MustField[Params]("sequence_length"),
//	)
func New[P any](name string, kind tensor.DataType, slots ...Slot[P]) Spec[P] {
	return Spec[P]{
		name:  name,
		kind:  kind,
		slots: append([]Slot[P](nil), slots...),
	}
}

// Name returns the tensor type name.
func (s Spec[P]) Name() string {
	return s.name
}

// Kind returns the declared element kind.
func (s Spec[P]) Kind() tensor.DataType {
	return s.kind
}

// Rank returns the number of dimension slots.
func (s Spec[P]) Rank() int {
	return len(s.slots)
}

// Slots returns a copy of the dimension slots in order.
func (s Spec[P]) Slots() []Slot[P] {
	return append([]Slot[P](nil), s.slots...)
}

// DimNames returns the slot names in order.
func (s Spec[P]) DimNames() []string {
	names := make([]string, len(s.slots))
	for i, slot := range s.slots {
		names[i] = slot.name
	}
	return names
}

// Resolve returns the expected shape for params.
func (s Spec[P]) Resolve(params *P) tensor.Shape {
	shape := make(tensor.Shape, len(s.slots))
	for i, slot := range s.slots {
		shape[i] = slot.get(params)
	}
	return shape
}

// Check compares t against the spec resolved with params.
//
// Shape is checked before kind: a rank or dimension mismatch is reported as
// *ShapeMismatchError even when the kind differs too. A kind mismatch is
// reported as *KindMismatchError.
func (s Spec[P]) Check(t Shaped, params *P) error {
	expected := s.Resolve(params)
	actual := t.Shape()
	if !expected.Equal(actual) {
		return &ShapeMismatchError{
			TypeName: s.name,
			Expected: expected,
			Actual:   actual.Clone(),
		}
	}
	if t.DType() != s.kind {
		return &KindMismatchError{
			TypeName: s.name,
			Expected: s.kind,
			Actual:   t.DType(),
		}
	}
	return nil
}

// Compatible reports whether s and other declare the same kind and resolve
// to the same shape for params.
func (s Spec[P]) Compatible(other Spec[P], params *P) bool {
	return s.kind == other.kind && s.Resolve(params).Equal(other.Resolve(params))
}

// String describes the spec, e.g. "TokenizedInput[batch_size sequence_length] int64".
func (s Spec[P]) String() string {
	return s.name + "[" + strings.Join(s.DimNames(), " ") + "] " + s.kind.String()
}
