package schema

import (
	"fmt"
	"reflect"
	"time"
)

// Type validates one state value.
type Type interface {
	Name() string
	Validate(value any) error
}

type basic struct {
	name  string
	check func(any) error
}

func (b basic) Name() string            { return b.name }
func (b basic) Validate(value any) error { return b.check(value) }

var (
	stringType = basic{"string", func(v any) error {
		if _, ok := v.(string); !ok {
			return fmt.Errorf("expected string, got %T", v)
		}
		return nil
	}}

	intType = basic{"int", func(v any) error {
		switch n := v.(type) {
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			return nil
		case float64:
			// YAML and JSON numbers may arrive as floats
			if n == float64(int64(n)) {
				return nil
			}
			return fmt.Errorf("expected int, got float (not a whole number)")
		default:
			return fmt.Errorf("expected int, got %T", v)
		}
	}}

	floatType = basic{"float", func(v any) error {
		switch v.(type) {
		case float32, float64, int, int8, int16, int32, int64:
			return nil
		default:
			return fmt.Errorf("expected float, got %T", v)
		}
	}}

	boolType = basic{"bool", func(v any) error {
		if _, ok := v.(bool); !ok {
			return fmt.Errorf("expected bool, got %T", v)
		}
		return nil
	}}

	durationType = basic{"duration", func(v any) error {
		switch d := v.(type) {
		case time.Duration:
			return nil
		case string:
			if _, err := time.ParseDuration(d); err != nil {
				return fmt.Errorf("expected duration: %w", err)
			}
			return nil
		default:
			return fmt.Errorf("expected duration, got %T", v)
		}
	}}

	mapType = basic{"map", func(v any) error {
		if reflect.ValueOf(v).Kind() != reflect.Map {
			return fmt.Errorf("expected map, got %T", v)
		}
		return nil
	}}

	anyType = basic{"any", func(any) error { return nil }}
)

type sliceType struct {
	elem Type
}

func (t sliceType) Name() string { return "[" + t.elem.Name() + "]" }

func (t sliceType) Validate(value any) error {
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return fmt.Errorf("expected slice, got %T", value)
	}
	for i := 0; i < rv.Len(); i++ {
		if err := t.elem.Validate(rv.Index(i).Interface()); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
	}
	return nil
}

// ParseType converts a type name ("string", "int", "float", "bool", "duration",
// "map", "any" or "[elem]") to a Type.
func ParseType(name string) (Type, error) {
	if len(name) > 2 && name[0] == '[' && name[len(name)-1] == ']' {
		elem, err := ParseType(name[1 : len(name)-1])
		if err != nil {
			return nil, err
		}
		return sliceType{elem: elem}, nil
	}
	for _, t := range []basic{stringType, intType, floatType, boolType, durationType, mapType, anyType} {
		if t.name == name {
			return t, nil
		}
	}
	return nil, fmt.Errorf("unsupported type: %s", name)
}
