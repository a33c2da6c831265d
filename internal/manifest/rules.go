package manifest

import (
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/born-ml/tensortypes/internal/config"
	"github.com/born-ml/tensortypes/internal/shapespec"
	"github.com/born-ml/tensortypes/internal/tensor"
)

// ErrMissingParams matches *MissingParamsError.
var ErrMissingParams = errors.New("missing parameters")

// MissingParamsError lists every parameter the manifest names that the
// values do not define.
type MissingParamsError struct {
	Names []string
}

func (e *MissingParamsError) Error() string {
	return "missing parameters: " + strings.Join(e.Names, ", ")
}

// Is matches ErrMissingParams.
func (e *MissingParamsError) Is(target error) bool {
	return target == ErrMissingParams
}

// Rule maps tensor name patterns to a spec.
type Rule struct {
	Spec     shapespec.Spec[config.Values]
	Patterns []string
}

// Match reports whether any pattern matches name.
func (r Rule) Match(name string) bool {
	for _, p := range r.Patterns {
		if ok, _ := path.Match(p, name); ok {
			return true
		}
	}
	return false
}

// Rules are compiled type definitions in manifest order.
type Rules []Rule

// Compile turns the definitions into specs over config.Values. Every named
// dim must be present in values; the error lists all that are not.
//
// Sizes are looked up again on every check, so the returned rules may be
// used with other values that define the same names.
func (m *Manifest) Compile(values config.Values) (Rules, error) {
	var missing []string
	for _, name := range m.Params() {
		if _, ok := values.Int(name); !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, &MissingParamsError{Names: missing}
	}

	rules := make(Rules, 0, len(m.Types))
	for _, td := range m.Types {
		kind, err := tensor.ParseDataType(td.Kind)
		if err != nil {
			return nil, fmt.Errorf("type %s: %w", td.Name, err)
		}
		slots := make([]shapespec.Slot[config.Values], len(td.Dims))
		for i, d := range td.Dims {
			slots[i] = slotFor(d)
		}
		rules = append(rules, Rule{
			Spec:     shapespec.New(td.Name, kind, slots...),
			Patterns: append([]string(nil), td.Tensors...),
		})
	}
	return rules, nil
}

func slotFor(d DimRef) shapespec.Slot[config.Values] {
	if d.Param == "" {
		return shapespec.Fixed[config.Values](d.String(), d.Size)
	}
	name := d.Param
	return shapespec.Dim(name, func(v *config.Values) int {
		return (*v)[name]
	})
}

// Match returns the first rule with a pattern matching name.
func (rs Rules) Match(name string) (Rule, bool) {
	for _, r := range rs {
		if r.Match(name) {
			return r, true
		}
	}
	return Rule{}, false
}

// Lookup returns the rule for a type name.
func (rs Rules) Lookup(typeName string) (Rule, bool) {
	for _, r := range rs {
		if r.Spec.Name() == typeName {
			return r, true
		}
	}
	return Rule{}, false
}
