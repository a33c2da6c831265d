package tensor

import "fmt"

// Transpose returns a new tensor with dimensions dim0 and dim1 swapped.
// Negative dimensions count from the end.
//
// Example:
//
//	x, _ := tensor.Zeros(tensor.Shape{1, 100, 256}, tensor.Float32)
//	y, _ := x.Transpose(1, 2) // [1 256 100]
func (r *RawTensor) Transpose(dim0, dim1 int) (*RawTensor, error) {
	rank := r.shape.Rank()
	d0, err := normalizeDim(dim0, rank)
	if err != nil {
		return nil, fmt.Errorf("transpose: %w", err)
	}
	d1, err := normalizeDim(dim1, rank)
	if err != nil {
		return nil, fmt.Errorf("transpose: %w", err)
	}

	outShape := r.shape.Clone()
	outShape[d0], outShape[d1] = outShape[d1], outShape[d0]
	out, err := NewRaw(outShape, r.dtype, r.device)
	if err != nil {
		return nil, err
	}

	// Strides of the input, permuted into output order.
	inStrides := append([]int(nil), r.stride...)
	inStrides[d0], inStrides[d1] = inStrides[d1], inStrides[d0]

	size := r.dtype.Size()
	src, dst := r.Data(), out.Data()
	index := make([]int, rank)
	for i := 0; i < out.NumElements(); i++ {
		offset := 0
		for d := 0; d < rank; d++ {
			offset += index[d] * inStrides[d]
		}
		copy(dst[i*size:(i+1)*size], src[offset*size:(offset+1)*size])

		// Advance the row-major output index.
		for d := rank - 1; d >= 0; d-- {
			index[d]++
			if index[d] < outShape[d] {
				break
			}
			index[d] = 0
		}
	}
	return out, nil
}

// Reshape returns a copy of the tensor with a new shape holding the same
// number of elements.
func (r *RawTensor) Reshape(shape Shape) (*RawTensor, error) {
	if shape.NumElements() != r.NumElements() {
		return nil, fmt.Errorf("reshape: cannot view %v (%d elements) as %v (%d elements)",
			r.shape, r.NumElements(), shape, shape.NumElements())
	}
	out, err := NewRaw(shape, r.dtype, r.device)
	if err != nil {
		return nil, fmt.Errorf("reshape: %w", err)
	}
	copy(out.Data(), r.Data())
	return out, nil
}

// Triu returns a copy with every element below the k-th diagonal of the two
// trailing dimensions set to zero. Leading dimensions are treated as a batch.
func (r *RawTensor) Triu(k int) (*RawTensor, error) {
	if r.shape.Rank() < 2 {
		return nil, fmt.Errorf("triu: need at least 2 dimensions, got %v", r.shape)
	}
	out := r.copyData()
	rows := r.shape[r.shape.Rank()-2]
	cols := r.shape[r.shape.Rank()-1]
	for i := 0; i < r.NumElements(); i++ {
		col := i % cols
		row := (i / cols) % rows
		if col-row < k {
			out.setFloat64(i, 0)
		}
	}
	return out, nil
}

// Map returns a copy with f applied to every element. Values are converted
// through float64 and back to the tensor's dtype.
func (r *RawTensor) Map(f func(float64) float64) *RawTensor {
	out := r.copyData()
	for i := 0; i < out.NumElements(); i++ {
		out.setFloat64(i, f(out.float64At(i)))
	}
	return out
}

// Fill returns a tensor of the same shape and dtype with every element set to v.
func (r *RawTensor) Fill(v float64) *RawTensor {
	return r.Map(func(float64) float64 { return v })
}

// Add returns the element-wise sum of two tensors with identical shape and dtype.
func (r *RawTensor) Add(other *RawTensor) (*RawTensor, error) {
	if !r.shape.Equal(other.shape) {
		return nil, fmt.Errorf("add: shape %v does not match %v", r.shape, other.shape)
	}
	if r.dtype != other.dtype {
		return nil, fmt.Errorf("add: dtype %s does not match %s", r.dtype, other.dtype)
	}
	out := r.copyData()
	for i := 0; i < out.NumElements(); i++ {
		out.setFloat64(i, out.float64At(i)+other.float64At(i))
	}
	return out, nil
}

// copyData returns a deep copy with its own buffer.
func (r *RawTensor) copyData() *RawTensor {
	out := &RawTensor{
		buffer: newTensorBuffer(len(r.buffer.data)),
		shape:  r.shape.Clone(),
		stride: append([]int(nil), r.stride...),
		dtype:  r.dtype,
		device: r.device,
	}
	copy(out.buffer.data, r.buffer.data)
	return out
}
