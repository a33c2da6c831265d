package config

import (
	"fmt"
	"sort"
	"strings"
)

// Values is a parameter source known only at run time, keyed by parameter
// name. Manifest specs resolve their dimensions from it.
type Values map[string]int

// Int returns the named value and whether it is set.
func (v Values) Int(name string) (int, bool) {
	n, ok := v[name]
	return n, ok
}

// Names returns the parameter names in sorted order.
func (v Values) Names() []string {
	names := make([]string, 0, len(v))
	for name := range v {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate rejects negative sizes.
func (v Values) Validate() error {
	var bad []string
	for _, name := range v.Names() {
		if v[name] < 0 {
			bad = append(bad, fmt.Sprintf("%s=%d", name, v[name]))
		}
	}
	if len(bad) > 0 {
		return fmt.Errorf("negative parameter values: %s", strings.Join(bad, ", "))
	}
	return nil
}

// String returns "batch_size=1 sequence_length=100".
func (v Values) String() string {
	var b strings.Builder
	for i, name := range v.Names() {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%s=%d", name, v[name])
	}
	return b.String()
}
