package process

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/aretw0/stagehand/pkg/domain"
)

// ErrTimeout is wrapped in the outcome raised when a command outlives its timeout.
var ErrTimeout = errors.New("command timed out")

// Config describes the command an exec stage runs.
type Config struct {
	Command string            `mapstructure:"command" yaml:"command"`
	Args    []string          `mapstructure:"args" yaml:"args"`
	Dir     string            `mapstructure:"dir" yaml:"dir"`
	Env     map[string]string `mapstructure:"env" yaml:"env"`

	// SaveTo is the state key receiving the command output. Empty discards it.
	SaveTo string `mapstructure:"save_to" yaml:"save_to"`
	// Emit appends the command output to the trial results.
	Emit bool `mapstructure:"emit" yaml:"emit"`

	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
	// OnTimeout names the outcome raised on timeout (default stage_reset).
	OnTimeout string `mapstructure:"on_timeout" yaml:"on_timeout"`
}

// Stage runs an external command without blocking the scheduler: Start launches
// the process and IsDone polls for its exit.
//
// Trial state is passed to the process as environment variables named
// STAGEHAND_ARG_<KEY>, never as command-line flags, which prevents flag injection.
// A Stage tracks one process at a time and must not be shared between trial slots.
type Stage struct {
	cfg       Config
	onTimeout domain.Kind
	run       *execution
}

type execution struct {
	cmd     *exec.Cmd
	stdout  bytes.Buffer
	stderr  bytes.Buffer
	done    chan error
	started time.Time
}

// NewStage validates cfg and creates the stage.
func NewStage(cfg Config) (*Stage, error) {
	if cfg.Command == "" {
		return nil, errors.New("command is required")
	}
	onTimeout := domain.KindStageReset
	if cfg.OnTimeout != "" {
		k, err := domain.ParseKind(cfg.OnTimeout)
		if err != nil {
			return nil, err
		}
		onTimeout = k
	}
	return &Stage{cfg: cfg, onTimeout: onTimeout}, nil
}

// Start launches the command. A process left over from an earlier attempt is killed.
func (s *Stage) Start(ctx context.Context, state domain.State) (bool, domain.Update, error) {
	s.kill()

	cmd := exec.CommandContext(ctx, s.cfg.Command, s.cfg.Args...)
	cmd.Dir = s.cfg.Dir
	cmd.Env = append(cmd.Environ(), environment(state, s.cfg.Env)...)

	run := &execution{cmd: cmd, done: make(chan error, 1), started: time.Now()}
	cmd.Stdout = &run.stdout
	cmd.Stderr = &run.stderr

	if err := cmd.Start(); err != nil {
		return false, nil, fmt.Errorf("failed to start %s: %w", s.cfg.Command, err)
	}
	go func() {
		run.done <- cmd.Wait()
	}()
	s.run = run
	return true, nil, nil
}

// IsDone reports whether the process has exited. A non-zero exit is an unexpected
// failure; a timeout raises the configured outcome.
func (s *Stage) IsDone(ctx context.Context, state domain.State) (bool, domain.Update, error) {
	run := s.run
	if run == nil {
		return false, nil, domain.ErrStageReset
	}

	select {
	case err := <-run.done:
		s.run = nil
		if err != nil {
			return false, nil, fmt.Errorf("execution failed: %w. Stderr: %s", err, strings.TrimSpace(run.stderr.String()))
		}
		return true, s.update(parseOutput(run.stdout.String())), nil
	default:
	}

	if s.cfg.Timeout > 0 && time.Since(run.started) > s.cfg.Timeout {
		s.kill()
		return false, nil, domain.Raise(s.onTimeout, fmt.Errorf("%w after %s", ErrTimeout, s.cfg.Timeout))
	}
	return false, nil, nil
}

func (s *Stage) update(output any) domain.Update {
	u := domain.Update{}
	if s.cfg.SaveTo != "" {
		u[s.cfg.SaveTo] = output
	}
	if s.cfg.Emit {
		u[domain.KeyTrialResults] = output
	}
	return u
}

func (s *Stage) kill() {
	if s.run == nil {
		return
	}
	if s.run.cmd.Process != nil {
		_ = s.run.cmd.Process.Kill()
	}
	<-s.run.done
	s.run = nil
}

var unsafeKey = regexp.MustCompile(`[^A-Za-z0-9_]`)

// environment serializes the trial state: primitives with fmt, anything else as JSON.
func environment(state domain.State, extra map[string]string) []string {
	env := make([]string, 0, len(state)+len(extra))
	for k, v := range state {
		if k == domain.KeyResources {
			continue
		}
		var val string
		switch v.(type) {
		case string, int, int64, float64, bool:
			val = fmt.Sprintf("%v", v)
		case nil:
			val = ""
		default:
			if raw, err := json.Marshal(v); err == nil {
				val = string(raw)
			} else {
				val = fmt.Sprintf("%v", v)
			}
		}
		key := strings.ToUpper(unsafeKey.ReplaceAllString(k, "_"))
		env = append(env, fmt.Sprintf("STAGEHAND_ARG_%s=%s", key, val))
	}
	for k, v := range extra {
		env = append(env, k+"="+v)
	}
	return env
}

// parseOutput decodes JSON objects and arrays, falling back to the trimmed text.
func parseOutput(output string) any {
	trimmed := strings.TrimSpace(output)
	if (strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}")) ||
		(strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]")) {
		var v any
		if err := json.Unmarshal([]byte(trimmed), &v); err == nil {
			return v
		}
	}
	return trimmed
}
