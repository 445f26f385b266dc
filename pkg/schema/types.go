package schema

import (
	"fmt"
	"math"
	"reflect"
	"strings"
)

// Type validates one value.
type Type interface {
	// Name is the type string understood by ParseType.
	Name() string
	Validate(value any) error
}

type kindType struct {
	name  string
	check func(any) bool
}

func (t kindType) Name() string { return t.name }

func (t kindType) Validate(value any) error {
	if !t.check(value) {
		return fmt.Errorf("expected %s, got %T", t.name, value)
	}
	return nil
}

// String accepts string values.
func String() Type {
	return kindType{name: "string", check: func(v any) bool {
		_, ok := v.(string)
		return ok
	}}
}

// Bool accepts boolean values.
func Bool() Type {
	return kindType{name: "bool", check: func(v any) bool {
		_, ok := v.(bool)
		return ok
	}}
}

// Int accepts integers, including whole floats produced by JSON decoding.
func Int() Type {
	return kindType{name: "int", check: func(v any) bool {
		switch n := v.(type) {
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			return true
		case float64:
			return n == math.Trunc(n) && !math.IsInf(n, 0)
		case float32:
			return float64(n) == math.Trunc(float64(n))
		}
		return false
	}}
}

// Float accepts any number.
func Float() Type {
	return kindType{name: "float", check: func(v any) bool {
		switch v.(type) {
		case float32, float64, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			return true
		}
		return false
	}}
}

// Map accepts string-keyed mappings.
func Map() Type {
	return kindType{name: "map", check: func(v any) bool {
		rv := reflect.ValueOf(v)
		return rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String
	}}
}

type sliceType struct{ elem Type }

// Slice accepts slices whose every element satisfies elem.
func Slice(elem Type) Type { return sliceType{elem: elem} }

func (t sliceType) Name() string { return "[" + t.elem.Name() + "]" }

func (t sliceType) Validate(value any) error {
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return fmt.Errorf("expected %s, got %T", t.Name(), value)
	}
	for i := 0; i < rv.Len(); i++ {
		if err := t.elem.Validate(rv.Index(i).Interface()); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
	}
	return nil
}

type optionalType struct{ inner Type }

// Optional marks a key as optional. A present key must still satisfy inner;
// a nil value counts as absent.
func Optional(inner Type) Type { return optionalType{inner: inner} }

func (t optionalType) Name() string { return "?" + t.inner.Name() }

func (t optionalType) Validate(value any) error {
	if value == nil {
		return nil
	}
	return t.inner.Validate(value)
}

type customType struct {
	name     string
	validate func(any) error
}

// Custom wraps a user-defined check.
func Custom(name string, validate func(any) error) Type {
	return customType{name: name, validate: validate}
}

func (t customType) Name() string { return t.name }

func (t customType) Validate(value any) error { return t.validate(value) }

// ParseType parses a type string: string, int, float, bool, map, [T] and ?T.
func ParseType(s string) (Type, error) {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, "?"):
		inner, err := ParseType(s[1:])
		if err != nil {
			return nil, err
		}
		return Optional(inner), nil
	case len(s) > 2 && s[0] == '[' && s[len(s)-1] == ']':
		elem, err := ParseType(s[1 : len(s)-1])
		if err != nil {
			return nil, err
		}
		return Slice(elem), nil
	}

	switch s {
	case "string":
		return String(), nil
	case "int":
		return Int(), nil
	case "float":
		return Float(), nil
	case "bool":
		return Bool(), nil
	case "map":
		return Map(), nil
	}
	return nil, fmt.Errorf("unsupported type %q", s)
}

// ParseTypeMap parses a key-to-type-string map into a Schema.
func ParseTypeMap(types map[string]string) (Schema, error) {
	out := make(Schema, len(types))
	for key, s := range types {
		t, err := ParseType(s)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", key, err)
		}
		out[key] = t
	}
	return out, nil
}
