// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package typed

import (
	"github.com/born-ml/tensortypes/internal/capability"
)

// Capability markers. An identity opts in by implementing the method.
type (
	Mappable = capability.Mappable
	Maskable = capability.Maskable
	Residual = capability.Residual
)

// View is the read-only surface of every checked tensor.
type View = capability.View

// Map applies f to every element and checks the result.
func Map[I interface {
	Identity[P]
	Mappable
}, P any](t *Tensor[I, P], f func(float64) float64, params *P) (*Tensor[I, P], error) {
	return capability.Map(t, f, params)
}

// Scale multiplies every element by factor.
func Scale[I interface {
	Identity[P]
	Mappable
}, P any](t *Tensor[I, P], factor float64, params *P) (*Tensor[I, P], error) {
	return capability.Scale(t, factor, params)
}

// CausalMask zeroes the elements below the diagonal of the trailing two
// dimensions.
func CausalMask[I interface {
	Identity[P]
	Maskable
}, P any](t *Tensor[I, P], params *P) (*Tensor[I, P], error) {
	return capability.CausalMask(t, params)
}

// AddResidual returns a + b. On success a is consumed.
func AddResidual[I interface {
	Identity[P]
	Residual
}, P any](a, b *Tensor[I, P], params *P) (*Tensor[I, P], error) {
	return capability.AddResidual(a, b, params)
}

// Describe renders v as "TokenizedInput [1 100] int64".
func Describe(v View) string {
	return capability.Describe(v)
}
