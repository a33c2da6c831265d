package safetensors

import (
	"fmt"
	"sort"
	"strings"
)

// Limits applied to every file.
const (
	MaxHeaderSize    = 100 * 1024 * 1024
	MaxTensorCount   = 100_000
	MaxTensorNameLen = 4096
)

// ValidateTensorName rejects names that could be used as paths.
func ValidateTensorName(name string) error {
	if name == "" {
		return &ValidationError{Type: "invalid_name", Details: "empty name"}
	}
	if len(name) > MaxTensorNameLen {
		return &ValidationError{
			Type:    "name_too_long",
			Tensor:  name[:64] + "...",
			Details: fmt.Sprintf("length %d > max %d", len(name), MaxTensorNameLen),
		}
	}
	if strings.Contains(name, "..") {
		return &ValidationError{Type: "invalid_name", Tensor: name, Details: "contains '..'"}
	}
	if strings.ContainsAny(name, `/\`) {
		return &ValidationError{Type: "invalid_name", Tensor: name, Details: "contains path separator"}
	}
	if strings.Contains(name, "\x00") {
		return &ValidationError{Type: "invalid_name", Tensor: name, Details: "contains null byte"}
	}
	return nil
}

// validateEntries checks names, sizes and offsets of every entry against a
// data section of dataSize bytes.
func validateEntries(entries []Entry, dataSize int64) error {
	if len(entries) > MaxTensorCount {
		return &ValidationError{
			Type:    "too_many_tensors",
			Details: fmt.Sprintf("got %d, max %d", len(entries), MaxTensorCount),
		}
	}

	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].begin < sorted[j].begin })

	for i, e := range sorted {
		if err := ValidateTensorName(e.name); err != nil {
			return err
		}
		if e.begin < 0 || e.end < e.begin {
			return &ValidationError{
				Type:    "negative_offset",
				Tensor:  e.name,
				Details: fmt.Sprintf("data_offsets [%d, %d]", e.begin, e.end),
			}
		}
		if e.end > dataSize {
			return &ValidationError{
				Type:    "out_of_bounds",
				Tensor:  e.name,
				Details: fmt.Sprintf("end %d > data size %d", e.end, dataSize),
			}
		}
		if want, ok := e.expectedBytes(); ok && want != e.end-e.begin {
			return &ValidationError{
				Type:    "size_mismatch",
				Tensor:  e.name,
				Details: fmt.Sprintf("%s %v needs %d bytes, offsets span %d", e.format, e.shape, want, e.end-e.begin),
			}
		}
		if i < len(sorted)-1 {
			next := sorted[i+1]
			if e.end > next.begin {
				return &ValidationError{
					Type:    "offset_overlap",
					Tensor:  e.name,
					Tensor2: next.name,
					Details: fmt.Sprintf("regions [%d-%d] and [%d-%d] overlap", e.begin, e.end, next.begin, next.end),
				}
			}
		}
	}
	return nil
}
