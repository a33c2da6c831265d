// Package checked provides Tensor[I, P], a raw tensor wrapped with a
// compile-time identity I and checked against I's shape spec.
//
// An identity is a small type, usually an empty struct, that declares the
// spec of its tensors:
//
//	type TokenizedInput struct{}
//
//	var tokenizedSpec = shapespec.New("TokenizedInput", tensor.Int64,
//	    shapespec.Fields[Params]("batch_size", "sequence_length")...)
//
//	func (TokenizedInput) Spec() shapespec.Spec[Params] { return tokenizedSpec }
//
// Tensor[TokenizedInput, Params] and Tensor[EmbeddedInput, Params] are
// distinct types even when their specs agree. Neither can be converted into
// the other; the only way to change identity is to take the raw tensor out
// and pass it to New for the other identity, which checks it again.
//
// A Tensor's raw value matched its spec at the last check (New, Transform or
// Clone). Writing into the buffer through Raw().Data() is not checked until
// the value is wrapped again.
package checked

import (
	"errors"
	"fmt"

	"github.com/born-ml/tensortypes/internal/shapespec"
	"github.com/born-ml/tensortypes/internal/tensor"
)

// Errors returned for arguments that can not be checked at all.
var (
	ErrNilTensor = errors.New("nil tensor")
	ErrNilParams = errors.New("nil parameters")
	ErrConsumed  = errors.New("tensor already consumed")
)

// Identity declares the spec for one tensor type. Implementations must work
// on their zero value.
type Identity[P any] interface {
	Spec() shapespec.Spec[P]
}

// Tensor owns one raw tensor checked against I's spec.
type Tensor[I Identity[P], P any] struct {
	// Makes the underlying struct type differ per identity, so
	// Tensor[A, P] is not convertible to Tensor[B, P].
	_   [0]I
	raw *tensor.RawTensor
}

// SpecOf returns the spec declared by identity I.
func SpecOf[I Identity[P], P any]() shapespec.Spec[P] {
	var id I
	return id.Spec()
}

// New checks raw against I's spec resolved with params and wraps it.
// params is only read during the call.
//
// Errors are *shapespec.ShapeMismatchError (rank or dimensions differ, checked
// first) or *shapespec.KindMismatchError.
//
// Example:
//
//	raw, _ := tensor.Zeros(tensor.Shape{1, 100}, tensor.Int64)
//	input, err := checked.New[TokenizedInput](raw, &params)
func New[I Identity[P], P any](raw *tensor.RawTensor, params *P) (*Tensor[I, P], error) {
	if raw == nil {
		return nil, fmt.Errorf("%s: %w", SpecOf[I, P]().Name(), ErrNilTensor)
	}
	if params == nil {
		return nil, fmt.Errorf("%s: %w", SpecOf[I, P]().Name(), ErrNilParams)
	}
	if err := SpecOf[I, P]().Check(raw, params); err != nil {
		return nil, err
	}
	return &Tensor[I, P]{raw: raw}, nil
}

// Loader is a source of raw tensors by name, such as a safetensors file.
type Loader interface {
	LoadTensor(name string) (*tensor.RawTensor, error)
}

// Load reads the named tensor from l and wraps it as I.
func Load[I Identity[P], P any](l Loader, name string, params *P) (*Tensor[I, P], error) {
	raw, err := l.LoadTensor(name)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	t, err := New[I](raw, params)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	return t, nil
}

// Spec returns the spec of the tensor's identity.
func (t *Tensor[I, P]) Spec() shapespec.Spec[P] {
	return SpecOf[I, P]()
}

// TypeName returns the identity's declared name.
func (t *Tensor[I, P]) TypeName() string {
	return t.Spec().Name()
}

// Raw returns the wrapped tensor without checking it again.
// Returns nil once the tensor has been consumed.
func (t *Tensor[I, P]) Raw() *tensor.RawTensor {
	return t.raw
}

// Shape returns the wrapped tensor's shape, or nil once consumed.
func (t *Tensor[I, P]) Shape() tensor.Shape {
	if t.raw == nil {
		return nil
	}
	return t.raw.Shape()
}

// DType returns the identity's element kind, which the wrapped tensor has.
func (t *Tensor[I, P]) DType() tensor.DataType {
	return t.Spec().Kind()
}

// Consumed reports whether the raw tensor has been moved out by IntoRaw or
// a successful Transform.
func (t *Tensor[I, P]) Consumed() bool {
	return t.raw == nil
}

// IntoRaw moves the raw tensor out. The wrapper is left empty: later calls
// to Raw and IntoRaw return nil, and Transform and Clone fail with
// ErrConsumed.
func (t *Tensor[I, P]) IntoRaw() *tensor.RawTensor {
	raw := t.raw
	t.raw = nil
	return raw
}

// Transform applies f to the wrapped tensor and checks the result against
// the same identity's spec resolved with params.
//
// On success the receiver is consumed and the returned tensor owns f's
// result. The consumed input is released unless f returned it, so a caller
// that kept the input from Raw must Clone it first. On failure the receiver
// still holds its original tensor and a rejected result is released. f must
// not modify its argument in place.
//
// Example:
//
//	masked, err := scores.Transform(func(r *tensor.RawTensor) *tensor.RawTensor {
//	    return r.Fill(0)
//	}, &params)
func (t *Tensor[I, P]) Transform(f func(*tensor.RawTensor) *tensor.RawTensor, params *P) (*Tensor[I, P], error) {
	return t.TryTransform(func(r *tensor.RawTensor) (*tensor.RawTensor, error) {
		return f(r), nil
	}, params)
}

// TryTransform is Transform for operations that can fail on their own.
// An error from f is returned wrapped and leaves the receiver unchanged.
func (t *Tensor[I, P]) TryTransform(f func(*tensor.RawTensor) (*tensor.RawTensor, error), params *P) (*Tensor[I, P], error) {
	if t.raw == nil {
		return nil, fmt.Errorf("transform %s: %w", t.TypeName(), ErrConsumed)
	}
	out, err := f(t.raw)
	if err != nil {
		return nil, fmt.Errorf("transform %s: %w", t.TypeName(), err)
	}
	next, err := New[I](out, params)
	if err != nil {
		if out != nil && out != t.raw {
			out.Release()
		}
		return nil, err
	}
	if out != t.raw {
		t.raw.Release()
	}
	t.raw = nil
	return next, nil
}

// Clone returns a new wrapper around a shallow clone of the tensor, checked
// again with params. Both wrappers share the buffer.
func (t *Tensor[I, P]) Clone(params *P) (*Tensor[I, P], error) {
	if t.raw == nil {
		return nil, fmt.Errorf("clone %s: %w", t.TypeName(), ErrConsumed)
	}
	raw := t.raw.Clone()
	c, err := New[I](raw, params)
	if err != nil {
		raw.Release()
		return nil, err
	}
	return c, nil
}

// Equal reports whether both tensors of the same identity hold equal data.
func (t *Tensor[I, P]) Equal(other *Tensor[I, P]) bool {
	return t.raw.Equal(other.raw)
}

// String returns e.g. "TokenizedInput(Tensor[int64][1 100] on CPU)".
func (t *Tensor[I, P]) String() string {
	if t.raw == nil {
		return t.TypeName() + "(consumed)"
	}
	return t.TypeName() + "(" + t.raw.String() + ")"
}
