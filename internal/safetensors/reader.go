// Package safetensors reads and writes the safetensors file format.
//
// Layout:
//
//	[8 bytes: header size N, uint64 little-endian]
//	[N bytes: JSON header]
//	[tensor data]
//
// The header maps tensor names to dtype, shape and data offsets relative to
// the start of the data section, plus an optional "__metadata__" object of
// string pairs.
package safetensors

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"sync"

	"github.com/born-ml/tensortypes/internal/tensor"
)

const metadataKey = "__metadata__"

// headerEntry is one tensor as written in the JSON header.
type headerEntry struct {
	DType       string   `json:"dtype"`
	Shape       []int64  `json:"shape"`
	DataOffsets [2]int64 `json:"data_offsets"`
}

// Entry describes one tensor from the header. It satisfies the Shape and
// DType methods a spec checks, so a file can be checked without reading
// tensor data.
type Entry struct {
	name      string
	format    string
	shape     tensor.Shape
	kind      tensor.DataType
	supported bool
	begin     int64
	end       int64
}

// Name returns the tensor name.
func (e Entry) Name() string { return e.name }

// Format returns the dtype as written in the file, e.g. "F32".
func (e Entry) Format() string { return e.format }

// Shape returns the declared shape.
func (e Entry) Shape() tensor.Shape { return e.shape.Clone() }

// DType returns the element kind. Only meaningful when Supported is true.
func (e Entry) DType() tensor.DataType { return e.kind }

// Supported reports whether the dtype maps to a tensor.DataType.
func (e Entry) Supported() bool { return e.supported }

// Size returns the size of the tensor data in bytes.
func (e Entry) Size() int64 { return e.end - e.begin }

func (e Entry) expectedBytes() (int64, bool) {
	size, ok := formatSizes[e.format]
	if !ok {
		return 0, false
	}
	return int64(e.shape.NumElements()) * size, true
}

// Reader reads tensors from one safetensors file. Header accessors and
// LoadTensor are safe for concurrent use.
type Reader struct {
	path       string
	file       *os.File
	metadata   map[string]string
	entries    map[string]Entry
	dataOffset int64

	mu     sync.RWMutex
	closed bool
}

// Open reads and validates the header of the file at path.
func Open(path string) (*Reader, error) {
	//nolint:gosec // G304: reading user-supplied model files is the point.
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	r, err := newReader(path, file)
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return r, nil
}

func newReader(path string, file *os.File) (*Reader, error) {
	info, err := file.Stat()
	if err != nil {
		return nil, err
	}

	var headerSize uint64
	if err := binary.Read(file, binary.LittleEndian, &headerSize); err != nil {
		return nil, fmt.Errorf("read header size: %w", err)
	}
	if headerSize > MaxHeaderSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrHeaderTooLarge, headerSize)
	}
	if int64(headerSize) > info.Size()-8 { //nolint:gosec // G115: bounded by MaxHeaderSize.
		return nil, &ValidationError{
			Type:    "truncated",
			Details: fmt.Sprintf("header size %d exceeds file size %d", headerSize, info.Size()),
		}
	}

	headerBytes := make([]byte, headerSize)
	if _, err := io.ReadFull(file, headerBytes); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(headerBytes, &raw); err != nil {
		return nil, fmt.Errorf("%w: parse JSON: %v", ErrInvalidHeader, err)
	}

	r := &Reader{
		path:       path,
		file:       file,
		entries:    make(map[string]Entry, len(raw)),
		dataOffset: 8 + int64(headerSize), //nolint:gosec // G115: bounded by MaxHeaderSize.
	}
	list := make([]Entry, 0, len(raw))
	for name, value := range raw {
		if name == metadataKey {
			if err := json.Unmarshal(value, &r.metadata); err != nil {
				return nil, fmt.Errorf("%w: metadata: %v", ErrInvalidHeader, err)
			}
			continue
		}
		var h headerEntry
		if err := json.Unmarshal(value, &h); err != nil {
			return nil, fmt.Errorf("%w: tensor %q: %v", ErrInvalidHeader, name, err)
		}
		e, err := newEntry(name, h)
		if err != nil {
			return nil, err
		}
		r.entries[name] = e
		list = append(list, e)
	}

	if err := validateEntries(list, info.Size()-r.dataOffset); err != nil {
		return nil, err
	}
	return r, nil
}

func newEntry(name string, h headerEntry) (Entry, error) {
	shape := make(tensor.Shape, len(h.Shape))
	for i, d := range h.Shape {
		if d < 0 || d > math.MaxInt {
			return Entry{}, &ValidationError{
				Type:    "invalid_shape",
				Tensor:  name,
				Details: fmt.Sprintf("dimension %d is %d", i, d),
			}
		}
		shape[i] = int(d)
	}
	if _, ok := byteCount(h.Shape, formatSizes[h.DType]); !ok {
		return Entry{}, &ValidationError{
			Type:    "invalid_shape",
			Tensor:  name,
			Details: fmt.Sprintf("%s %v overflows the addressable size", h.DType, h.Shape),
		}
	}
	kind, err := parseFormat(h.DType)
	return Entry{
		name:      name,
		format:    h.DType,
		shape:     shape,
		kind:      kind,
		supported: err == nil,
		begin:     h.DataOffsets[0],
		end:       h.DataOffsets[1],
	}, nil
}

// byteCount multiplies out dims and the element size (1 when unknown),
// reporting false if the result does not fit in an int.
func byteCount(dims []int64, elemSize int64) (int64, bool) {
	for _, d := range dims {
		if d == 0 {
			return 0, true
		}
	}
	n := max(elemSize, 1)
	for _, d := range dims {
		if n > math.MaxInt/d {
			return 0, false
		}
		n *= d
	}
	return n, true
}

// Path returns the path the reader was opened with.
func (r *Reader) Path() string { return r.path }

// Close closes the file. Header accessors keep working afterwards.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	return r.file.Close()
}

// Metadata returns a copy of the "__metadata__" pairs.
func (r *Reader) Metadata() map[string]string {
	out := make(map[string]string, len(r.metadata))
	for k, v := range r.metadata {
		out[k] = v
	}
	return out
}

// Names returns all tensor names in sorted order.
func (r *Reader) Names() []string {
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Entry returns the header entry for name.
func (r *Reader) Entry(name string) (Entry, error) {
	e, ok := r.entries[name]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %s", ErrTensorNotFound, name)
	}
	return e, nil
}

// Entries returns every header entry sorted by name.
func (r *Reader) Entries() []Entry {
	names := r.Names()
	out := make([]Entry, len(names))
	for i, name := range names {
		out[i] = r.entries[name]
	}
	return out
}

// LoadTensor reads the named tensor into a new CPU tensor.
func (r *Reader) LoadTensor(name string) (*tensor.RawTensor, error) {
	e, err := r.Entry(name)
	if err != nil {
		return nil, err
	}
	if !e.supported {
		return nil, fmt.Errorf("tensor %s: %w: %s", name, ErrUnsupportedDType, e.format)
	}

	raw, err := tensor.NewRaw(e.shape.Clone(), e.kind, tensor.CPU)
	if err != nil {
		return nil, fmt.Errorf("tensor %s: %w", name, err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return nil, ErrClosed
	}
	if _, err := r.file.ReadAt(raw.Data(), r.dataOffset+e.begin); err != nil {
		return nil, fmt.Errorf("read tensor %s: %w", name, err)
	}
	return raw, nil
}
