package stages

import (
	"context"
	"errors"

	"github.com/aretw0/stagehand/pkg/domain"
	"github.com/aretw0/stagehand/pkg/registry"
)

// Flaky is a blocking stage that fails its first Failures calls with an
// unexpected error, then succeeds. The count spans runs of the same slot, which
// makes it handy for exercising escalation policies.
type Flaky struct {
	Failures int    `mapstructure:"failures"`
	Message  string `mapstructure:"message"`

	calls int
}

// NewFlaky decodes the options of a flaky stage.
func NewFlaky(options map[string]any) (*Flaky, error) {
	f := &Flaky{Failures: 1, Message: "flaky stage failure"}
	if err := registry.Decode(options, f); err != nil {
		return nil, err
	}
	return f, nil
}

// Start fails or succeeds.
func (f *Flaky) Start(ctx context.Context, state domain.State) (bool, domain.Update, error) {
	f.calls++
	if f.calls <= f.Failures {
		return false, nil, errors.New(f.Message)
	}
	return true, nil, nil
}
