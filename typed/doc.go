// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package typed gives raw tensors a compile-time identity whose shape and
// kind are checked against parameters known only at run time.
//
// # Declaring a tensor type
//
// Parameters are a plain struct, often loaded from configuration:
//
//	type Params struct {
//	    BatchSize      int `koanf:"batch_size"`
//	    SequenceLength int `koanf:"sequence_length"`
//	    ModelDim       int `koanf:"model_dim"`
//	}
//
// An identity is an empty struct with a Spec method:
//
//	var tokenizedSpec = typed.NewSpec("TokenizedInput", tensor.Int64,
//	    typed.Fields[Params]("batch_size", "sequence_length")...)
//
//	type TokenizedInput struct{}
//
//	func (TokenizedInput) Spec() typed.Spec[Params] { return tokenizedSpec }
//
// # Checking
//
//	raw, _ := tensor.Zeros(tensor.Shape{1, 100}, tensor.Int64)
//	input, err := typed.New[TokenizedInput](raw, &params)
//
// New fails with a *ShapeMismatchError when the rank or any dimension
// differs from the spec resolved against params, and otherwise with a
// *KindMismatchError when the element kind differs. Both match ErrTensorType.
//
// Specs hold parameter accessors, never sizes, so the same identity checks
// correctly against any number of parameter sets used side by side.
//
// # Changing identity
//
// Tensor[A, P] and Tensor[B, P] are different types even when A and B
// declare the same spec. Moving a tensor between identities goes through
// the raw value and is checked again:
//
//	raw := embedded.IntoRaw()
//	raw, _ = raw.Transpose(1, 2)
//	features, err := typed.New[Features](raw, &params)
//
// # Capabilities
//
// Identities opt into shared operations by implementing marker methods:
//
//	func (AttentionScores) Maskable() {}
//
//	masked, err := typed.CausalMask(scores, &params)
//
// Passing a tensor whose identity lacks the marker does not compile.
package typed
