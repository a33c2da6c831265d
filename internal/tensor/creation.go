package tensor

import (
	"fmt"
	"math"
	"math/rand"
)

// Zeros creates a CPU tensor filled with zeros.
//
// Example:
//
//	t, err := tensor.Zeros(tensor.Shape{3, 4}, tensor.Float32)
func Zeros(shape Shape, dtype DataType) (*RawTensor, error) {
	return NewRaw(shape, dtype, CPU)
}

// FromSlice creates a CPU tensor from a Go slice. The slice is copied.
//
// Example:
//
//	t, err := tensor.FromSlice([]int64{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
func FromSlice[T DType](data []T, shape Shape) (*RawTensor, error) {
	if shape.NumElements() != len(data) {
		return nil, fmt.Errorf("shape %v requires %d elements, but got %d", shape, shape.NumElements(), len(data))
	}

	raw, err := NewRaw(shape, DataTypeOf[T](), CPU)
	if err != nil {
		return nil, err
	}
	copy(typedView[T](raw), data)
	return raw, nil
}

// Full creates a CPU tensor with every element set to value.
func Full[T DType](shape Shape, value T) (*RawTensor, error) {
	raw, err := NewRaw(shape, DataTypeOf[T](), CPU)
	if err != nil {
		return nil, err
	}
	data := typedView[T](raw)
	for i := range data {
		data[i] = value
	}
	return raw, nil
}

// Arange creates a 1D tensor holding 0, 1, ..., n-1 converted to dtype.
func Arange(n int, dtype DataType) (*RawTensor, error) {
	raw, err := NewRaw(Shape{n}, dtype, CPU)
	if err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		raw.setFloat64(i, float64(i))
	}
	return raw, nil
}

// Randn creates a float tensor with values drawn from N(0, 1) using the
// Box-Muller transform. rng may be nil to use the global source.
//
// Note: uses math/rand, which is appropriate for initializers and tests.
func Randn(shape Shape, dtype DataType, rng *rand.Rand) (*RawTensor, error) {
	if !dtype.IsFloat() {
		return nil, fmt.Errorf("randn: %s is not a floating-point type", dtype)
	}
	raw, err := NewRaw(shape, dtype, CPU)
	if err != nil {
		return nil, err
	}

	uniform := rand.Float64 //nolint:gosec // G404: statistical use
	if rng != nil {
		uniform = rng.Float64
	}

	n := raw.NumElements()
	for i := 0; i < n; i += 2 {
		u1 := 1 - uniform() // (0, 1], keeps Log finite
		u2 := uniform()
		r := math.Sqrt(-2.0 * math.Log(u1))
		raw.setFloat64(i, r*math.Cos(2.0*math.Pi*u2))
		if i+1 < n {
			raw.setFloat64(i+1, r*math.Sin(2.0*math.Pi*u2))
		}
	}
	return raw, nil
}

// typedView returns the tensor data as []T. The caller guarantees T matches the dtype.
func typedView[T DType](raw *RawTensor) []T {
	var dummy T
	switch any(dummy).(type) {
	case float32:
		return any(raw.AsFloat32()).([]T)
	case float64:
		return any(raw.AsFloat64()).([]T)
	case int32:
		return any(raw.AsInt32()).([]T)
	case int64:
		return any(raw.AsInt64()).([]T)
	case uint8:
		return any(raw.AsUint8()).([]T)
	case bool:
		return any(raw.AsBool()).([]T)
	default:
		panic("unsupported type")
	}
}

// Values returns a copy of the tensor data as []T.
// Returns an error if T does not match the tensor's dtype.
func Values[T DType](raw *RawTensor) ([]T, error) {
	if want := DataTypeOf[T](); raw.DType() != want {
		return nil, fmt.Errorf("tensor dtype is %s, not %s", raw.DType(), want)
	}
	return append([]T(nil), typedView[T](raw)...), nil
}
