package shapespec

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/born-ml/tensortypes/param"
)

// Slot is one named dimension of a Spec. It resolves to a size by reading a
// parameter source of type P. Slots are immutable once built.
type Slot[P any] struct {
	name string
	get  func(*P) int
}

// Name returns the slot's dimension name.
func (s Slot[P]) Name() string {
	return s.name
}

// Size resolves the slot against params.
func (s Slot[P]) Size(params *P) int {
	return s.get(params)
}

// Dim builds a slot from a typed accessor.
//
// Example:
//
//	shapespec.Dim("batch_size", func(p *Params) param.BatchSize { return p.BatchSize })
func Dim[P any, D param.Integer](name string, get func(*P) D) Slot[P] {
	if get == nil {
		panic(fmt.Sprintf("shapespec: nil accessor for dimension %q", name))
	}
	return Slot[P]{
		name: name,
		get:  func(p *P) int { return int(get(p)) },
	}
}

// Fixed builds a slot whose size does not depend on the parameters.
func Fixed[P any](name string, size int) Slot[P] {
	return Slot[P]{
		name: name,
		get:  func(*P) int { return size },
	}
}

// Field binds a slot to an integer field of the struct P, matched by Go field
// name or by its `koanf` tag. The lookup happens once, here; resolving the
// slot later only reads the field.
func Field[P any](field string) (Slot[P], error) {
	t := reflect.TypeOf((*P)(nil)).Elem()
	if t.Kind() != reflect.Struct {
		return Slot[P]{}, fmt.Errorf("shapespec: parameter type %s is not a struct", t)
	}

	sf, ok := findField(t, field)
	if !ok {
		return Slot[P]{}, fmt.Errorf("shapespec: %s has no field %q", t, field)
	}
	if !sf.IsExported() {
		return Slot[P]{}, fmt.Errorf("shapespec: field %s.%s is not exported", t, sf.Name)
	}

	index := sf.Index
	var read func(reflect.Value) int
	switch sf.Type.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		read = func(v reflect.Value) int { return int(v.Int()) }
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		read = func(v reflect.Value) int { return int(v.Uint()) } //nolint:gosec // G115: dimension sizes fit in int
	default:
		return Slot[P]{}, fmt.Errorf("shapespec: field %s.%s has non-integer type %s", t, sf.Name, sf.Type)
	}

	return Slot[P]{
		name: field,
		get: func(p *P) int {
			return read(reflect.ValueOf(p).Elem().FieldByIndex(index))
		},
	}, nil
}

// MustField is like Field but panics if the field can not be bound.
// It is meant for package-level declarations, where a bad field name is a
// programming error.
func MustField[P any](field string) Slot[P] {
	slot, err := Field[P](field)
	if err != nil {
		panic(err)
	}
	return slot
}

// Fields binds several fields in order with MustField.
func Fields[P any](fields ...string) []Slot[P] {
	slots := make([]Slot[P], len(fields))
	for i, f := range fields {
		slots[i] = MustField[P](f)
	}
	return slots
}

func findField(t reflect.Type, name string) (reflect.StructField, bool) {
	if sf, ok := t.FieldByName(name); ok {
		return sf, true
	}
	for _, sf := range reflect.VisibleFields(t) {
		tag, _, _ := strings.Cut(sf.Tag.Get("koanf"), ",")
		if tag == name {
			return sf, true
		}
	}
	return reflect.StructField{}, false
}
