package cli

import (
	"fmt"
	"io"

	"github.com/aretw0/stagehand"
	"github.com/aretw0/stagehand/internal/logging"
	"github.com/aretw0/stagehand/internal/presentation/graph"
	"github.com/aretw0/stagehand/pkg/adapters/memory"
	"github.com/aretw0/stagehand/pkg/config"
	"github.com/aretw0/stagehand/pkg/escalation"
	"github.com/aretw0/stagehand/pkg/registry"
	"github.com/aretw0/stagehand/pkg/resource"
	"github.com/aretw0/stagehand/pkg/stages"
)

// Validate loads the experiment file at path and builds every stage once, against
// an in-process resource pool, so option errors surface without touching any backend.
func Validate(w io.Writer, path string, reg *registry.Registry) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if reg == nil {
		reg = stages.Default()
	}
	env := registry.Env{
		Warden: resource.NewWarden(memory.NewPool(cfg.Resources.Pools)),
		Logger: logging.NewNop(),
	}
	if _, err := stagehand.Specs(cfg, reg, env); err != nil {
		return err
	}
	printSystemMessage(w, "%s is valid: %d slots, %d stages, %d queued trials.",
		path, len(cfg.Instances), len(cfg.Stages), len(cfg.Trials))
	return nil
}

// Graph writes a Mermaid diagram of the stage pipeline declared in path.
func Graph(w io.Writer, path string, reg *registry.Registry) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if reg == nil {
		reg = stages.Default()
	}

	shared, err := escalation.ParseEntries(cfg.Escalation.Stage)
	if err != nil {
		return err
	}
	trial, err := escalation.ParseEntries(cfg.Escalation.Trial)
	if err != nil {
		return err
	}

	nodes := make([]graph.Stage, len(cfg.Stages))
	for i, st := range cfg.Stages {
		kind, ok := reg.Lookup(st.Kind)
		if !ok {
			return fmt.Errorf("stages[%d]: %w: %s", i, registry.ErrUnknownKind, st.Kind)
		}
		policy := shared
		if len(st.Escalation) > 0 {
			if policy, err = escalation.ParseEntries(st.Escalation); err != nil {
				return err
			}
		}
		nodes[i] = graph.Stage{Name: st.Name, Kind: st.Kind, Blocking: kind.Blocking, Policy: policy}
	}

	_, err = io.WriteString(w, graph.GenerateMermaid(nodes, trial))
	return err
}
