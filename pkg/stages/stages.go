package stages

import (
	"github.com/aretw0/stagehand/pkg/adapters/process"
	"github.com/aretw0/stagehand/pkg/ports"
	"github.com/aretw0/stagehand/pkg/registry"
)

// Register adds every built-in kind to r.
func Register(r *registry.Registry) {
	r.Register("wait", false, func(_ registry.Env, options map[string]any) (ports.Stage, error) {
		return NewWait(options)
	})
	r.Register("record", true, func(_ registry.Env, options map[string]any) (ports.Stage, error) {
		return NewRecord(options)
	})
	r.Register("acquire", true, func(env registry.Env, options map[string]any) (ports.Stage, error) {
		return NewAcquire(env, options)
	})
	r.Register("release", true, func(env registry.Env, options map[string]any) (ports.Stage, error) {
		return NewRelease(env, options)
	})
	r.Register("flaky", true, func(_ registry.Env, options map[string]any) (ports.Stage, error) {
		return NewFlaky(options)
	})
	r.Register("exec", false, func(_ registry.Env, options map[string]any) (ports.Stage, error) {
		var cfg process.Config
		if err := registry.Decode(options, &cfg); err != nil {
			return nil, err
		}
		return process.NewStage(cfg)
	})
}

// Default returns a registry holding the built-in kinds.
func Default() *registry.Registry {
	r := registry.NewRegistry()
	Register(r)
	return r
}
