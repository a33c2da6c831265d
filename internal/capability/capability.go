// Package capability lets tensor identities opt into shared generic
// operations.
//
// A capability is a marker interface an identity type implements in
// addition to checked.Identity. Generic functions constrain their identity
// parameter by both, so passing a tensor whose identity has not opted in is
// a compile error:
//
//	type AttentionScores struct{}
//
//	func (AttentionScores) Spec() shapespec.Spec[Params] { return scoresSpec }
//	func (AttentionScores) Maskable()                    {}
//
//	masked, err := capability.CausalMask(scores, &params) // ok
//	_, err = capability.CausalMask(tokens, &params)      // does not compile
//
// Every operation here goes through Transform, so its result is checked
// against the identity's spec. Nothing in this package constructs a tensor
// from a raw value or hands out the raw value.
package capability

import (
	"fmt"

	"github.com/born-ml/tensortypes/internal/checked"
	"github.com/born-ml/tensortypes/internal/tensor"
)

// Mappable marks identities whose tensors may have an element-wise function
// applied to them.
type Mappable interface {
	Mappable()
}

// Maskable marks identities whose trailing two dimensions form a square
// matrix that may be causally masked.
type Maskable interface {
	Maskable()
}

// Residual marks identities whose tensors may be added to one another.
type Residual interface {
	Residual()
}

// Map applies f to every element of t. The result is checked against I's spec.
func Map[I interface {
	checked.Identity[P]
	Mappable
}, P any](t *checked.Tensor[I, P], f func(float64) float64, params *P) (*checked.Tensor[I, P], error) {
	return t.Transform(func(r *tensor.RawTensor) *tensor.RawTensor {
		return r.Map(f)
	}, params)
}

// Scale multiplies every element of t by factor.
func Scale[I interface {
	checked.Identity[P]
	Mappable
}, P any](t *checked.Tensor[I, P], factor float64, params *P) (*checked.Tensor[I, P], error) {
	return Map(t, func(v float64) float64 { return v * factor }, params)
}

// CausalMask zeroes every element below the main diagonal of the two
// trailing dimensions.
func CausalMask[I interface {
	checked.Identity[P]
	Maskable
}, P any](t *checked.Tensor[I, P], params *P) (*checked.Tensor[I, P], error) {
	return t.TryTransform(func(r *tensor.RawTensor) (*tensor.RawTensor, error) {
		return r.Triu(0)
	}, params)
}

// AddResidual returns a + b for two tensors of the same identity. The sum is
// checked with params. On success a is consumed and b is left intact.
func AddResidual[I interface {
	checked.Identity[P]
	Residual
}, P any](a, b *checked.Tensor[I, P], params *P) (*checked.Tensor[I, P], error) {
	if b.Consumed() {
		return nil, fmt.Errorf("residual %s: %w", b.TypeName(), checked.ErrConsumed)
	}
	return a.TryTransform(func(r *tensor.RawTensor) (*tensor.RawTensor, error) {
		return r.Add(b.Raw())
	}, params)
}

// View is the read-only surface every checked tensor has. It is enough for
// logging and reporting and gives no access to the raw value.
type View interface {
	TypeName() string
	Shape() tensor.Shape
	DType() tensor.DataType
}

// Describe renders v as "TokenizedInput [1 100] int64".
func Describe(v View) string {
	return fmt.Sprintf("%s %v %s", v.TypeName(), v.Shape(), v.DType())
}
