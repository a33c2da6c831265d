package shapespec

import (
	"errors"
	"testing"

	"github.com/born-ml/tensortypes/internal/tensor"
	"github.com/born-ml/tensortypes/param"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type batchTag struct{}

type testParams struct {
	BatchSize      param.Dim[batchTag] `koanf:"batch_size"`
	SequenceLength int                 `koanf:"sequence_length"`
	ModelDim       uint32              `koanf:"model_dim"`
	Name           string
	hidden         int
}

func tokenizedSpec() Spec[testParams] {
	return New("TokenizedInput", tensor.Int64,
		Dim("batch_size", func(p *testParams) param.Dim[batchTag] { return p.BatchSize }),
		MustField[testParams]("sequence_length"),
	)
}

func mustZeros(t *testing.T, shape tensor.Shape, dtype tensor.DataType) *tensor.RawTensor {
	t.Helper()
	raw, err := tensor.Zeros(shape, dtype)
	require.NoError(t, err)
	return raw
}

func TestCheckMatch(t *testing.T) {
	p := &testParams{BatchSize: 1, SequenceLength: 100}
	err := tokenizedSpec().Check(mustZeros(t, tensor.Shape{1, 100}, tensor.Int64), p)
	assert.NoError(t, err)
}

func TestCheckDimensionMismatch(t *testing.T) {
	p := &testParams{BatchSize: 1, SequenceLength: 100}
	err := tokenizedSpec().Check(mustZeros(t, tensor.Shape{1, 101}, tensor.Int64), p)

	var shapeErr *ShapeMismatchError
	require.ErrorAs(t, err, &shapeErr)
	assert.Equal(t, "TokenizedInput", shapeErr.TypeName)
	assert.Equal(t, tensor.Shape{1, 100}, shapeErr.Expected)
	assert.Equal(t, tensor.Shape{1, 101}, shapeErr.Actual)
	assert.False(t, shapeErr.RankMismatch())
	assert.ErrorIs(t, err, ErrShapeMismatch)
	assert.ErrorIs(t, err, ErrTensorType)
	assert.NotErrorIs(t, err, ErrKindMismatch)
	assert.EqualError(t, err, "shape mismatch on TokenizedInput: expected dimensions [1 100], found [1 101]")
}

func TestCheckKindMismatch(t *testing.T) {
	p := &testParams{BatchSize: 1, SequenceLength: 100}
	err := tokenizedSpec().Check(mustZeros(t, tensor.Shape{1, 100}, tensor.Float32), p)

	var kindErr *KindMismatchError
	require.ErrorAs(t, err, &kindErr)
	assert.Equal(t, tensor.Int64, kindErr.Expected)
	assert.Equal(t, tensor.Float32, kindErr.Actual)
	assert.ErrorIs(t, err, ErrKindMismatch)
	assert.ErrorIs(t, err, ErrTensorType)
	assert.EqualError(t, err, "kind mismatch on TokenizedInput: expected kind int64, found float32")
}

func TestCheckShapeBeforeKind(t *testing.T) {
	p := &testParams{BatchSize: 1, SequenceLength: 100}
	spec := tokenizedSpec()

	tests := []struct {
		name  string
		shape tensor.Shape
		rank  bool
	}{
		{"extra trailing dimension", tensor.Shape{1, 100, 1}, true},
		{"missing leading dimension", tensor.Shape{100}, true},
		{"wrong size", tensor.Shape{2, 100}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Kind is wrong as well; the shape error must win.
			err := spec.Check(mustZeros(t, tt.shape, tensor.Float32), p)
			var shapeErr *ShapeMismatchError
			require.ErrorAs(t, err, &shapeErr)
			assert.Equal(t, tt.rank, shapeErr.RankMismatch())
			assert.NotErrorIs(t, err, ErrKindMismatch)
		})
	}
}

func TestResolveReadsParamsEveryCall(t *testing.T) {
	spec := tokenizedSpec()
	p := &testParams{BatchSize: 2, SequenceLength: 8}
	assert.Equal(t, tensor.Shape{2, 8}, spec.Resolve(p))
	assert.Equal(t, tensor.Shape{2, 8}, spec.Resolve(p))

	p.SequenceLength = 16
	assert.Equal(t, tensor.Shape{2, 16}, spec.Resolve(p))

	other := &testParams{BatchSize: 4, SequenceLength: 3}
	assert.Equal(t, tensor.Shape{4, 3}, spec.Resolve(other))
	assert.Equal(t, tensor.Shape{2, 16}, spec.Resolve(p))
}

func TestFieldBinding(t *testing.T) {
	p := &testParams{BatchSize: 3, SequenceLength: 5, ModelDim: 7}

	byTag, err := Field[testParams]("model_dim")
	require.NoError(t, err)
	assert.Equal(t, "model_dim", byTag.Name())
	assert.Equal(t, 7, byTag.Size(p))

	byName, err := Field[testParams]("BatchSize")
	require.NoError(t, err)
	assert.Equal(t, 3, byName.Size(p))
}

func TestFieldBindingErrors(t *testing.T) {
	tests := []struct {
		field string
		msg   string
	}{
		{"missing", "has no field"},
		{"Name", "non-integer type"},
		{"hidden", "not exported"},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			_, err := Field[testParams](tt.field)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}

	_, err := Field[int]("x")
	assert.ErrorContains(t, err, "not a struct")
}

func TestMustFieldPanics(t *testing.T) {
	assert.Panics(t, func() { MustField[testParams]("missing") })
	assert.Panics(t, func() { Fields[testParams]("batch_size", "nope") })
	assert.NotPanics(t, func() { Fields[testParams]("batch_size", "sequence_length") })
}

func TestFixedSlot(t *testing.T) {
	spec := New("Image", tensor.Uint8,
		MustField[testParams]("batch_size"),
		Fixed[testParams]("channels", 3),
	)
	p := &testParams{BatchSize: 2}
	assert.Equal(t, tensor.Shape{2, 3}, spec.Resolve(p))
	assert.NoError(t, spec.Check(mustZeros(t, tensor.Shape{2, 3}, tensor.Uint8), p))
}

func TestSpecAccessors(t *testing.T) {
	spec := tokenizedSpec()
	assert.Equal(t, "TokenizedInput", spec.Name())
	assert.Equal(t, tensor.Int64, spec.Kind())
	assert.Equal(t, 2, spec.Rank())
	assert.Equal(t, []string{"batch_size", "sequence_length"}, spec.DimNames())
	assert.Equal(t, "TokenizedInput[batch_size sequence_length] int64", spec.String())

	slots := spec.Slots()
	slots[0] = Fixed[testParams]("other", 1)
	assert.Equal(t, "batch_size", spec.Slots()[0].Name(), "Slots must return a copy")
}

func TestCompatible(t *testing.T) {
	p := &testParams{BatchSize: 1, SequenceLength: 100, ModelDim: 100}
	a := tokenizedSpec()
	b := New("Other", tensor.Int64, MustField[testParams]("batch_size"), MustField[testParams]("model_dim"))
	c := New("Float", tensor.Float32, MustField[testParams]("batch_size"), MustField[testParams]("model_dim"))
	d := New("Rank3", tensor.Int64, Fields[testParams]("batch_size", "model_dim", "model_dim")...)

	assert.True(t, a.Compatible(b, p))
	assert.False(t, a.Compatible(c, p), "kinds differ")
	assert.False(t, a.Compatible(d, p), "ranks differ")

	p.ModelDim = 64
	assert.False(t, a.Compatible(b, p), "sizes differ")
}

func TestErrorIsThroughWrapping(t *testing.T) {
	p := &testParams{BatchSize: 1, SequenceLength: 100}
	err := tokenizedSpec().Check(mustZeros(t, tensor.Shape{1}, tensor.Int64), p)
	wrapped := errors.Join(errors.New("loading input_ids"), err)
	assert.ErrorIs(t, wrapped, ErrShapeMismatch)
}
