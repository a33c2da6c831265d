// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package typed

import (
	"github.com/born-ml/tensortypes/internal/checked"
	"github.com/born-ml/tensortypes/internal/shapespec"
	"github.com/born-ml/tensortypes/param"
	"github.com/born-ml/tensortypes/tensor"
)

// Spec describes the expected shape and kind of one tensor type.
type Spec[P any] = shapespec.Spec[P]

// Slot is one dimension of a Spec.
type Slot[P any] = shapespec.Slot[P]

// Shaped is anything with a shape and a kind, such as a RawTensor or a
// safetensors header entry.
type Shaped = shapespec.Shaped

// Identity declares the spec of one tensor type.
type Identity[P any] = checked.Identity[P]

// Tensor is a raw tensor checked against I's spec.
type Tensor[I Identity[P], P any] = checked.Tensor[I, P]

// Loader is a source of raw tensors by name.
type Loader = checked.Loader

// Errors.
type (
	ShapeMismatchError = shapespec.ShapeMismatchError
	KindMismatchError  = shapespec.KindMismatchError
)

// Sentinel errors.
var (
	ErrTensorType    = shapespec.ErrTensorType
	ErrShapeMismatch = shapespec.ErrShapeMismatch
	ErrKindMismatch  = shapespec.ErrKindMismatch
	ErrNilTensor     = checked.ErrNilTensor
	ErrNilParams     = checked.ErrNilParams
	ErrConsumed      = checked.ErrConsumed
)

// NewSpec declares a spec with one slot per dimension, outermost first.
func NewSpec[P any](name string, kind tensor.DataType, slots ...Slot[P]) Spec[P] {
	return shapespec.New(name, kind, slots...)
}

// Dim binds a dimension to an accessor on the parameter source.
func Dim[P any, D param.Integer](name string, get func(*P) D) Slot[P] {
	return shapespec.Dim(name, get)
}

// Fixed is a dimension whose size never changes.
func Fixed[P any](name string, size int) Slot[P] {
	return shapespec.Fixed[P](name, size)
}

// Field binds a dimension to an integer field of P, by Go name or koanf tag.
func Field[P any](field string) (Slot[P], error) {
	return shapespec.Field[P](field)
}

// MustField is Field that panics on error, for package-level specs.
func MustField[P any](field string) Slot[P] {
	return shapespec.MustField[P](field)
}

// Fields returns MustField for each name.
func Fields[P any](fields ...string) []Slot[P] {
	return shapespec.Fields[P](fields...)
}

// SpecOf returns I's spec.
func SpecOf[I Identity[P], P any]() Spec[P] {
	return checked.SpecOf[I, P]()
}

// New checks raw against I's spec resolved with params and wraps it.
func New[I Identity[P], P any](raw *tensor.RawTensor, params *P) (*Tensor[I, P], error) {
	return checked.New[I](raw, params)
}

// Load reads the named tensor from l and wraps it as I.
func Load[I Identity[P], P any](l Loader, name string, params *P) (*Tensor[I, P], error) {
	return checked.Load[I](l, name, params)
}
