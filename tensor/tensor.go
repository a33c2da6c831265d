// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"math/rand"

	"github.com/born-ml/tensortypes/internal/tensor"
)

// DType is a constraint for Go element types.
// Supported types: float32, float64, int32, int64, uint8, bool.
type DType = tensor.DType

// DataType is the element kind of a tensor.
type DataType = tensor.DataType

// Data type constants.
const (
	Float32 DataType = tensor.Float32
	Float64 DataType = tensor.Float64
	Int32   DataType = tensor.Int32
	Int64   DataType = tensor.Int64
	Uint8   DataType = tensor.Uint8
	Bool    DataType = tensor.Bool
)

// Device is where tensor data resides.
type Device = tensor.Device

// Device constants.
const (
	CPU    Device = tensor.CPU
	CUDA   Device = tensor.CUDA
	Metal  Device = tensor.Metal
	WebGPU Device = tensor.WebGPU
)

// Shape is the list of dimension sizes.
// Example: Shape{2, 3, 4} is a 2×3×4 tensor.
type Shape = tensor.Shape

// ParseDataType parses "float32", "int64", "bool" and their short forms.
func ParseDataType(s string) (DataType, error) {
	return tensor.ParseDataType(s)
}

// DataTypeOf returns the DataType for the Go element type T.
func DataTypeOf[T DType]() DataType {
	return tensor.DataTypeOf[T]()
}

// Zeros creates a zero-filled CPU tensor.
func Zeros(shape Shape, dtype DataType) (*RawTensor, error) {
	return tensor.Zeros(shape, dtype)
}

// Full creates a CPU tensor with every element set to value.
func Full[T DType](shape Shape, value T) (*RawTensor, error) {
	return tensor.Full(shape, value)
}

// FromSlice copies data into a new CPU tensor of the given shape.
func FromSlice[T DType](data []T, shape Shape) (*RawTensor, error) {
	return tensor.FromSlice(data, shape)
}

// Arange creates the 1-D tensor [0, 1, ..., n-1].
func Arange(n int, dtype DataType) (*RawTensor, error) {
	return tensor.Arange(n, dtype)
}

// Randn creates a float tensor of standard normal samples drawn from rng.
func Randn(shape Shape, dtype DataType, rng *rand.Rand) (*RawTensor, error) {
	return tensor.Randn(shape, dtype, rng)
}

// Values returns a copy of the elements of raw as T.
func Values[T DType](raw *RawTensor) ([]T, error) {
	return tensor.Values[T](raw)
}
