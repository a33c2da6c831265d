// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package param provides named integer types for tensor dimension parameters.
//
// Each parameter gets its own compile-time type, so a sequence length can not
// be passed where a batch size is expected:
//
//	type batchSize struct{}
//	type sequenceLength struct{}
//
//	type BatchSize = param.Dim[batchSize]
//	type SequenceLength = param.Dim[sequenceLength]
//
//	type Params struct {
//	    BatchSize      BatchSize      `koanf:"batch_size"`
//	    SequenceLength SequenceLength `koanf:"sequence_length"`
//	}
//
// Dim values print with English thousands separators and encode to JSON as
// bare numbers.
package param

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Integer is the set of integer kinds a dimension accessor may return.
type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

// Dim is a dimension parameter distinguished at compile time by Tag.
// Tag is never instantiated; an empty struct is the usual choice.
type Dim[Tag any] int64

// Int returns the value as an int.
func (d Dim[Tag]) Int() int {
	return int(d)
}

// Int64 returns the value as an int64.
func (d Dim[Tag]) Int64() int64 {
	return int64(d)
}

// String formats the value with thousands separators, e.g. "1,024".
func (d Dim[Tag]) String() string {
	return Format(d)
}

// printer is safe for concurrent use; message.Printer holds no mutable state
// after construction.
var printer = message.NewPrinter(language.English)

// Format renders any integer with English thousands separators.
func Format[D Integer](v D) string {
	return printer.Sprintf("%d", int64(v))
}
