package safetensors

import (
	"fmt"

	"github.com/born-ml/tensortypes/internal/tensor"
)

// Element sizes in bytes for every dtype the format defines, including
// those without a tensor.DataType.
var formatSizes = map[string]int64{
	"BOOL": 1,
	"U8":   1,
	"I8":   1,
	"F16":  2,
	"BF16": 2,
	"I16":  2,
	"U16":  2,
	"F32":  4,
	"I32":  4,
	"U32":  4,
	"F64":  8,
	"I64":  8,
	"U64":  8,
}

func parseFormat(format string) (tensor.DataType, error) {
	switch format {
	case "F32":
		return tensor.Float32, nil
	case "F64":
		return tensor.Float64, nil
	case "I32":
		return tensor.Int32, nil
	case "I64":
		return tensor.Int64, nil
	case "U8":
		return tensor.Uint8, nil
	case "BOOL":
		return tensor.Bool, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrUnsupportedDType, format)
}

func formatOf(dt tensor.DataType) (string, error) {
	switch dt {
	case tensor.Float32:
		return "F32", nil
	case tensor.Float64:
		return "F64", nil
	case tensor.Int32:
		return "I32", nil
	case tensor.Int64:
		return "I64", nil
	case tensor.Uint8:
		return "U8", nil
	case tensor.Bool:
		return "BOOL", nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedDType, dt)
}
