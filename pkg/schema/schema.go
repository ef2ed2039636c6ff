package schema

import (
	"fmt"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Schema maps state keys to their expected types. Every key is required.
type Schema map[string]Type

// Parse converts a map of key to type name into a Schema.
func Parse(types map[string]string) (Schema, error) {
	s := make(Schema, len(types))
	for key, name := range types {
		t, err := ParseType(name)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", key, err)
		}
		s[key] = t
	}
	return s, nil
}

// UnmarshalYAML decodes the schema from a mapping of key to type name.
func (s *Schema) UnmarshalYAML(node *yaml.Node) error {
	var raw map[string]string
	if err := node.Decode(&raw); err != nil {
		return fmt.Errorf("schema must map keys to type names: %w", err)
	}
	parsed, err := Parse(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// MarshalYAML encodes the schema as a mapping of key to type name.
func (s Schema) MarshalYAML() (any, error) {
	raw := make(map[string]string, len(s))
	for key, t := range s {
		raw[key] = t.Name()
	}
	return raw, nil
}

// FieldError is a single validation failure.
type FieldError struct {
	Key    string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %q: %s", e.Key, e.Reason)
}

// Error aggregates every failure found in one state.
type Error struct {
	Fields []*FieldError
}

func (e *Error) Error() string {
	if len(e.Fields) == 1 {
		return e.Fields[0].Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d validation errors:", len(e.Fields))
	for _, f := range e.Fields {
		b.WriteString("\n  - ")
		b.WriteString(f.Error())
	}
	return b.String()
}

// Validate checks state against the schema. Keys are visited in sorted order so
// the reported errors are stable. An empty schema accepts everything.
func (s Schema) Validate(state map[string]any) error {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var fields []*FieldError
	for _, key := range keys {
		value, ok := state[key]
		if !ok {
			fields = append(fields, &FieldError{Key: key, Reason: "required"})
			continue
		}
		if err := s[key].Validate(value); err != nil {
			fields = append(fields, &FieldError{Key: key, Reason: err.Error()})
		}
	}
	if len(fields) > 0 {
		return &Error{Fields: fields}
	}
	return nil
}
