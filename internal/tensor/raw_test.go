package tensor

import (
	"math"
	"testing"
)

func TestNewRaw(t *testing.T) {
	raw, err := NewRaw(Shape{2, 3}, Float32, CPU)
	if err != nil {
		t.Fatalf("NewRaw failed: %v", err)
	}
	if !raw.Shape().Equal(Shape{2, 3}) {
		t.Errorf("Shape() = %v, want [2 3]", raw.Shape())
	}
	if raw.DType() != Float32 {
		t.Errorf("DType() = %v, want float32", raw.DType())
	}
	if raw.Device() != CPU {
		t.Errorf("Device() = %v, want CPU", raw.Device())
	}
	if raw.ByteSize() != 24 {
		t.Errorf("ByteSize() = %d, want 24", raw.ByteSize())
	}
	strides := raw.Strides()
	if len(strides) != 2 || strides[0] != 3 || strides[1] != 1 {
		t.Errorf("Strides() = %v, want [3 1]", strides)
	}
}

func TestNewRawInvalidShape(t *testing.T) {
	if _, err := NewRaw(Shape{2, 0}, Float32, CPU); err == nil {
		t.Error("NewRaw with zero dimension should fail")
	}
	if _, err := NewRaw(Shape{-1}, Int64, CPU); err == nil {
		t.Error("NewRaw with negative dimension should fail")
	}
}

func TestShapeValidateOverflow(t *testing.T) {
	// The product wraps around to a small number without the check.
	wraps := Shape{math.MaxInt/2 + 1, 4}
	if err := wraps.Validate(); err == nil {
		t.Errorf("Validate(%v) = nil, want overflow error", wraps)
	}
	if _, err := NewRaw(wraps, Float32, CPU); err == nil {
		t.Errorf("NewRaw(%v) should fail", wraps)
	}

	// The element count fits but the byte size does not.
	bytesOverflow := Shape{math.MaxInt/4 + 1}
	if err := bytesOverflow.Validate(); err != nil {
		t.Errorf("Validate(%v) = %v, want nil", bytesOverflow, err)
	}
	if _, err := NewRaw(bytesOverflow, Float32, CPU); err == nil {
		t.Errorf("NewRaw(%v, float32) should fail", bytesOverflow)
	}
}

func TestRawTensorAsInt64(t *testing.T) {
	raw, _ := NewRaw(Shape{3, 2}, Int64, CPU)
	data := raw.AsInt64()

	if len(data) != 6 {
		t.Errorf("AsInt64 length = %d, want 6", len(data))
	}

	// Modify and verify zero-copy
	data[0] = 42
	if raw.AsInt64()[0] != 42 {
		t.Error("AsInt64 should return zero-copy slice")
	}
}

func TestRawTensorAsWrongType(t *testing.T) {
	raw, _ := NewRaw(Shape{2}, Int64, CPU)
	defer func() {
		if recover() == nil {
			t.Error("AsFloat32 on int64 tensor should panic")
		}
	}()
	_ = raw.AsFloat32()
}

func TestRawTensorClone(t *testing.T) {
	raw, _ := FromSlice([]float32{1, 2, 3, 4}, Shape{2, 2})
	clone := raw.Clone()

	if raw.RefCount() != 2 {
		t.Errorf("RefCount() after Clone = %d, want 2", raw.RefCount())
	}
	if !clone.Equal(raw) {
		t.Error("Clone should be equal to the original")
	}

	// Shallow: writes are visible through both.
	clone.AsFloat32()[0] = 9
	if raw.AsFloat32()[0] != 9 {
		t.Error("Clone should share the underlying buffer")
	}

	clone.Release()
	if raw.RefCount() != 1 {
		t.Errorf("RefCount() after Release = %d, want 1", raw.RefCount())
	}
}

func TestRawTensorEqual(t *testing.T) {
	a, _ := FromSlice([]int64{1, 2, 3, 4, 5, 6}, Shape{2, 3})
	b, _ := FromSlice([]int64{1, 2, 3, 4, 5, 6}, Shape{2, 3})
	c, _ := FromSlice([]int64{1, 2, 3, 4, 5, 6}, Shape{3, 2})
	d, _ := FromSlice([]int64{1, 2, 3, 4, 5, 7}, Shape{2, 3})

	tests := []struct {
		name  string
		x, y  *RawTensor
		equal bool
	}{
		{"same content", a, b, true},
		{"different shape", a, c, false},
		{"different data", a, d, false},
		{"nil vs tensor", nil, a, false},
		{"nil vs nil", nil, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.x.Equal(tt.y); got != tt.equal {
				t.Errorf("Equal() = %v, want %v", got, tt.equal)
			}
		})
	}
}

func TestRawTensorString(t *testing.T) {
	raw, _ := NewRaw(Shape{1, 100}, Int64, CPU)
	want := "Tensor[int64][1 100] on CPU"
	if got := raw.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestShapeHelpers(t *testing.T) {
	s := Shape{2, 3, 4}
	if s.Rank() != 3 {
		t.Errorf("Rank() = %d, want 3", s.Rank())
	}
	if s.NumElements() != 24 {
		t.Errorf("NumElements() = %d, want 24", s.NumElements())
	}
	if (Shape{}).NumElements() != 1 {
		t.Error("scalar shape should have 1 element")
	}
	if s.Equal(Shape{2, 3}) {
		t.Error("shapes of different rank should not be equal")
	}
	if s.String() != "[2 3 4]" {
		t.Errorf("String() = %q, want [2 3 4]", s.String())
	}
	clone := s.Clone()
	clone[0] = 7
	if s[0] != 2 {
		t.Error("Clone should not share storage")
	}
}

func TestParseDataType(t *testing.T) {
	tests := []struct {
		in   string
		want DataType
	}{
		{"float32", Float32},
		{"F32", Float32},
		{"f64", Float64},
		{"I32", Int32},
		{"int64", Int64},
		{" I64 ", Int64},
		{"U8", Uint8},
		{"BOOL", Bool},
	}
	for _, tt := range tests {
		got, err := ParseDataType(tt.in)
		if err != nil {
			t.Errorf("ParseDataType(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseDataType(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	if _, err := ParseDataType("bf16"); err == nil {
		t.Error("ParseDataType(bf16) should fail")
	}
}

func TestDataTypeRoundTrip(t *testing.T) {
	for _, dt := range []DataType{Float32, Float64, Int32, Int64, Uint8, Bool} {
		got, err := ParseDataType(dt.String())
		if err != nil || got != dt {
			t.Errorf("ParseDataType(%q) = %v, %v; want %v", dt.String(), got, err, dt)
		}
	}
}
