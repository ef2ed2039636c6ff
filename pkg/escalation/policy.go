package escalation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aretw0/stagehand/pkg/domain"
)

// Entry is one element of the compact policy specification.
// Repeat == 0 means "forever"; Repeat == N > 0 expands to N consumable steps.
type Entry struct {
	Kind   domain.Kind
	Repeat int
}

// Step is one expanded element of a policy.
type Step struct {
	Kind    domain.Kind
	Forever bool
}

// Policy is an ordered, consumable sequence of outcome kinds.
// It is not safe for concurrent use.
type Policy struct {
	working  []Step
	original []Step
}

// New expands entries into a policy. Negative repeat counts are treated as 1.
func New(entries ...Entry) *Policy {
	steps := make([]Step, 0, len(entries))
	for _, e := range entries {
		if e.Repeat == 0 {
			steps = append(steps, Step{Kind: e.Kind, Forever: true})
			continue
		}
		n := e.Repeat
		if n < 0 {
			n = 1
		}
		for i := 0; i < n; i++ {
			steps = append(steps, Step{Kind: e.Kind})
		}
	}
	p := &Policy{original: steps}
	p.Reset()
	return p
}

// Next returns the error to raise in place of failure.
// An exhausted (or nil) policy returns failure unchanged.
func (p *Policy) Next(failure error) error {
	if p == nil || len(p.working) == 0 {
		return failure
	}
	front := p.working[0]
	if !front.Forever {
		p.working = p.working[1:]
	}
	return domain.Raise(front.Kind, failure).WithLevel(domain.LevelOf(failure))
}

// Reset restores the working sequence from the original one.
func (p *Policy) Reset() {
	if p == nil {
		return
	}
	p.working = make([]Step, len(p.original))
	copy(p.working, p.original)
}

// Clone returns an independent policy with the same original and working sequences.
func (p *Policy) Clone() *Policy {
	if p == nil {
		return New()
	}
	cp := &Policy{
		working:  make([]Step, len(p.working)),
		original: p.original,
	}
	copy(cp.working, p.working)
	return cp
}

// Len returns the number of steps left in the working sequence.
func (p *Policy) Len() int {
	if p == nil {
		return 0
	}
	return len(p.working)
}

// Steps returns a copy of the working sequence.
func (p *Policy) Steps() []Step {
	if p == nil {
		return nil
	}
	out := make([]Step, len(p.working))
	copy(out, p.working)
	return out
}

// Original returns a copy of the sequence the policy was built from.
func (p *Policy) Original() []Step {
	if p == nil {
		return nil
	}
	out := make([]Step, len(p.original))
	copy(out, p.original)
	return out
}

// ParseEntry parses "kind" or "kind:repeat", e.g. "stage_reset:3" or "ignore:0".
func ParseEntry(s string) (Entry, error) {
	name, count, hasCount := strings.Cut(strings.TrimSpace(s), ":")
	kind, err := domain.ParseKind(name)
	if err != nil {
		return Entry{}, err
	}
	if !hasCount {
		return Entry{Kind: kind, Repeat: 1}, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(count))
	if err != nil || n < 0 {
		return Entry{}, fmt.Errorf("invalid repeat count in %q", s)
	}
	return Entry{Kind: kind, Repeat: n}, nil
}

// ParseEntries parses a list of entries as written in configuration files.
func ParseEntries(specs []string) ([]Entry, error) {
	entries := make([]Entry, 0, len(specs))
	for _, s := range specs {
		e, err := ParseEntry(s)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}
