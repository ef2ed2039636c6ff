package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/aretw0/stagehand/pkg/domain"
	"github.com/aretw0/stagehand/pkg/ports"
)

// Mask replaces every redacted value.
const Mask = "***"

// Redactor masks the values of map keys matching any of its patterns.
type Redactor struct {
	patterns []*regexp.Regexp
}

// NewRedactor compiles the key patterns.
func NewRedactor(patterns []string) (*Redactor, error) {
	r := &Redactor{patterns: make([]*regexp.Regexp, len(patterns))}
	for i, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid redaction pattern %q: %w", p, err)
		}
		r.patterns[i] = re
	}
	return r, nil
}

// Results masks sensitive keys in shipped result items before they reach next.
func (r *Redactor) Results() SinkMiddleware {
	return func(next ports.ResultSink) ports.ResultSink {
		return &redactingSink{next: next, r: r}
	}
}

// Failures masks sensitive keys in failure state snapshots before they reach next.
func (r *Redactor) Failures() FailureMiddleware {
	return func(next ports.FailureLog) ports.FailureLog {
		return &redactingLog{next: next, r: r}
	}
}

type redactingSink struct {
	next ports.ResultSink
	r    *Redactor
}

func (s *redactingSink) Ship(ctx context.Context, results *domain.TrialResults) error {
	// The caller's results stay untouched.
	cp := results.Clone()
	for i, item := range cp.Data {
		cp.Data[i] = s.r.value(item)
	}
	return s.next.Ship(ctx, cp)
}

type redactingLog struct {
	next ports.FailureLog
	r    *Redactor
}

func (l *redactingLog) Log(ctx context.Context, f domain.Failure) error {
	if f.State != nil {
		f.State = domain.State(l.r.mask(f.State))
	}
	return l.next.Log(ctx, f)
}

func (r *Redactor) matches(key string) bool {
	for _, p := range r.patterns {
		if p.MatchString(key) {
			return true
		}
	}
	return false
}

// mask returns a masked deep copy of m.
func (r *Redactor) mask(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if r.matches(k) {
			out[k] = Mask
			continue
		}
		out[k] = r.value(v)
	}
	return out
}

func (r *Redactor) value(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return r.mask(t)
	case domain.State:
		return domain.State(r.mask(t))
	case domain.Update:
		return domain.Update(r.mask(t))
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = r.value(item)
		}
		return out
	default:
		return v
	}
}
