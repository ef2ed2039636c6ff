package stages

import (
	"context"

	"github.com/aretw0/stagehand/pkg/domain"
	"github.com/aretw0/stagehand/pkg/registry"
)

// Record is a blocking stage that appends one item to the trial results: a map of
// the selected state Fields, or the static Value when no fields are configured.
type Record struct {
	Fields []string `mapstructure:"fields"`
	Value  any      `mapstructure:"value"`
}

// NewRecord decodes the options of a record stage.
func NewRecord(options map[string]any) (*Record, error) {
	r := &Record{}
	if err := registry.Decode(options, r); err != nil {
		return nil, err
	}
	return r, nil
}

// Start emits the item.
func (r *Record) Start(ctx context.Context, state domain.State) (bool, domain.Update, error) {
	if len(r.Fields) == 0 {
		return true, domain.Update{domain.KeyTrialResults: r.Value}, nil
	}
	item := make(map[string]any, len(r.Fields))
	for _, f := range r.Fields {
		item[f] = state[f]
	}
	return true, domain.Update{domain.KeyTrialResults: item}, nil
}
