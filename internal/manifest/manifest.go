// Package manifest declares tensor types in YAML for files whose identities
// are only known at run time.
//
//	types:
//	  - name: TokenizedInput
//	    kind: int64
//	    dims: [batch_size, sequence_length]
//	    tensors: ["input_ids", "*.ids"]
//
// A dim is either a parameter name or an integer literal. Tensor patterns
// use path.Match syntax.
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strconv"

	"github.com/born-ml/tensortypes/internal/tensor"
	"gopkg.in/yaml.v3"
)

// ErrInvalidManifest is returned for manifests that parse but make no sense.
var ErrInvalidManifest = errors.New("invalid manifest")

// Manifest is a list of type definitions.
type Manifest struct {
	Types []TypeDef `yaml:"types"`
}

// TypeDef declares one tensor type.
type TypeDef struct {
	Name    string   `yaml:"name"`
	Kind    string   `yaml:"kind"`
	Dims    []DimRef `yaml:"dims"`
	Tensors []string `yaml:"tensors"`
}

// DimRef is one dimension of a TypeDef: a parameter name, or a literal
// size when Param is empty.
type DimRef struct {
	Param string
	Size  int
}

// UnmarshalYAML accepts a bare integer or a parameter name.
func (d *DimRef) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: dim must be a name or an integer", node.Line)
	}
	if node.ShortTag() == "!!int" {
		n, err := strconv.Atoi(node.Value)
		if err != nil {
			return fmt.Errorf("line %d: dim %q: %w", node.Line, node.Value, err)
		}
		*d = DimRef{Size: n}
		return nil
	}
	if node.Value == "" {
		return fmt.Errorf("line %d: empty dim name", node.Line)
	}
	*d = DimRef{Param: node.Value}
	return nil
}

// MarshalYAML writes the name or the literal.
func (d DimRef) MarshalYAML() (any, error) {
	if d.Param != "" {
		return d.Param, nil
	}
	return d.Size, nil
}

// String returns the parameter name or the literal size.
func (d DimRef) String() string {
	if d.Param != "" {
		return d.Param
	}
	return strconv.Itoa(d.Size)
}

// Parse decodes and validates a manifest. Unknown fields are errors.
func Parse(r io.Reader) (*Manifest, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var m Manifest
	if err := dec.Decode(&m); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrInvalidManifest)
		}
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Load reads the manifest file at name.
func Load(name string) (*Manifest, error) {
	//nolint:gosec // G304: manifest path is user input.
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	m, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return m, nil
}

// Validate checks names, kinds, literal sizes and patterns. It does not look
// at parameter values; Compile does.
func (m *Manifest) Validate() error {
	if len(m.Types) == 0 {
		return fmt.Errorf("%w: no types", ErrInvalidManifest)
	}
	seen := make(map[string]bool, len(m.Types))
	for i, td := range m.Types {
		if td.Name == "" {
			return fmt.Errorf("%w: type %d has no name", ErrInvalidManifest, i)
		}
		if seen[td.Name] {
			return fmt.Errorf("%w: type %s declared twice", ErrInvalidManifest, td.Name)
		}
		seen[td.Name] = true

		if _, err := tensor.ParseDataType(td.Kind); err != nil {
			return fmt.Errorf("%w: type %s: %v", ErrInvalidManifest, td.Name, err)
		}
		for _, d := range td.Dims {
			if d.Param == "" && d.Size < 0 {
				return fmt.Errorf("%w: type %s: negative dim %d", ErrInvalidManifest, td.Name, d.Size)
			}
		}
		for _, p := range td.Tensors {
			if _, err := path.Match(p, ""); err != nil {
				return fmt.Errorf("%w: type %s: pattern %q: %v", ErrInvalidManifest, td.Name, p, err)
			}
		}
	}
	return nil
}

// Params returns the parameter names the manifest refers to, in order of
// first use.
func (m *Manifest) Params() []string {
	var names []string
	seen := make(map[string]bool)
	for _, td := range m.Types {
		for _, d := range td.Dims {
			if d.Param != "" && !seen[d.Param] {
				seen[d.Param] = true
				names = append(names, d.Param)
			}
		}
	}
	return names
}
