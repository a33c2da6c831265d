// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the raw tensor values that checked tensor types
// wrap.
//
// # Overview
//
// A RawTensor is a dense, row-major array with a runtime Shape and DataType.
// Nothing about it is known at compile time; package typed adds a named
// identity whose shape and kind are checked whenever a RawTensor is wrapped.
//
// # Basic Usage
//
//	ids, err := tensor.FromSlice([]int64{101, 2023, 102}, tensor.Shape{1, 3})
//	if err != nil {
//	    return err
//	}
//	fmt.Println(ids) // Tensor[int64][1 3] on CPU
//
//	mask, _ := tensor.Full(tensor.Shape{3, 3}, float32(1))
//	mask, _ = mask.Triu(0)
//
// # Supported Data Types
//
//   - float32, float64
//   - int32, int64
//   - uint8
//   - bool
//
// # Memory
//
// Buffers are reference counted. Clone shares the buffer and Release drops
// one reference. Operations such as Transpose, Map and Add never modify
// their receiver; they return a tensor with a new buffer.
package tensor
