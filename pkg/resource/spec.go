package resource

import (
	"fmt"
	"slices"
	"time"

	"github.com/mitchellh/mapstructure"
)

// AcquireOptions controls how a single resource is acquired.
type AcquireOptions struct {
	Block   bool          `mapstructure:"block" yaml:"block"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// Spec names one resource to acquire. A nil Options uses the warden defaults.
type Spec struct {
	Name    string
	Options *AcquireOptions
}

// Names builds specs that use the warden's default options.
func Names(names ...string) []Spec {
	specs := make([]Spec, len(names))
	for i, n := range names {
		specs[i] = Spec{Name: n}
	}
	return specs
}

// SpecsFromMap builds specs from a mapping of resource name to options, as found
// in stage arguments and configuration files:
//
//	{"vm": {"block": true, "timeout": "30s"}, "license": nil}
//
// Keys are sorted so the acquisition order is deterministic.
func SpecsFromMap(m map[string]any) ([]Spec, error) {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	slices.Sort(names)

	specs := make([]Spec, 0, len(names))
	for _, name := range names {
		raw := m[name]
		if raw == nil {
			specs = append(specs, Spec{Name: name})
			continue
		}
		var opts AcquireOptions
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:           &opts,
			WeaklyTypedInput: true,
			ErrorUnused:      true,
			DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to build options decoder: %w", err)
		}
		if err := dec.Decode(raw); err != nil {
			return nil, fmt.Errorf("invalid options for resource %q: %w", name, err)
		}
		specs = append(specs, Spec{Name: name, Options: &opts})
	}
	return specs, nil
}

// ParseSpecs accepts the loosely typed forms used in trial state: a single name,
// a list of names and option maps, or an option map.
func ParseSpecs(v any) ([]Spec, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case string:
		return Names(t), nil
	case []string:
		return Names(t...), nil
	case map[string]any:
		return SpecsFromMap(t)
	case []any:
		var specs []Spec
		for _, item := range t {
			s, err := ParseSpecs(item)
			if err != nil {
				return nil, err
			}
			specs = append(specs, s...)
		}
		return specs, nil
	default:
		return nil, fmt.Errorf("unsupported resource spec %T", v)
	}
}
