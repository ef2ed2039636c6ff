package domain

// TrialResults accumulates the data items emitted by the stages of one trial,
// in stage order, plus free-form metadata.
//
// A nil *TrialResults means "nothing to ship"; a non-nil one is always shipped,
// even when Data is empty.
type TrialResults struct {
	Data     []any          `json:"data"`
	Metadata map[string]any `json:"metadata"`
}

// NewTrialResults returns an empty accumulator.
func NewTrialResults() *TrialResults {
	return &TrialResults{
		Data:     []any{},
		Metadata: map[string]any{},
	}
}

// Add appends one data item.
func (r *TrialResults) Add(item any) {
	r.Data = append(r.Data, item)
}

// SetMetadata sets one metadata key.
func (r *TrialResults) SetMetadata(key string, value any) {
	if r.Metadata == nil {
		r.Metadata = map[string]any{}
	}
	r.Metadata[key] = value
}

// Clone returns a copy whose slice and map are not shared with r.
func (r *TrialResults) Clone() *TrialResults {
	cp := &TrialResults{
		Data:     make([]any, len(r.Data)),
		Metadata: make(map[string]any, len(r.Metadata)),
	}
	copy(cp.Data, r.Data)
	for k, v := range r.Metadata {
		cp.Metadata[k] = v
	}
	return cp
}
