package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/aretw0/stepgraph/pkg/domain"
	"github.com/aretw0/stepgraph/pkg/ports"
)

// Mask replaces redacted values.
const Mask = "***"

type redactMiddleware struct {
	next     ports.RunStore
	patterns []*regexp.Regexp
}

// NewRedactMiddleware masks the values of state keys matching any of the
// patterns before a run record is saved, in the final state and in every
// log snapshot. Nested objects are masked too. The record passed to Save
// is left untouched.
func NewRedactMiddleware(patterns []string) (Middleware, error) {
	compiled := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid redact pattern %q: %w", p, err)
		}
		compiled[i] = re
	}
	return func(next ports.RunStore) ports.RunStore {
		return &redactMiddleware{next: next, patterns: compiled}
	}, nil
}

func (m *redactMiddleware) Save(ctx context.Context, rec *domain.RunRecord) error {
	if rec == nil || len(m.patterns) == 0 {
		return m.next.Save(ctx, rec)
	}
	cloned := rec.Clone()
	m.mask(cloned.FinalState)
	for _, entry := range cloned.Log {
		m.mask(entry.State)
	}
	return m.next.Save(ctx, cloned)
}

func (m *redactMiddleware) Get(ctx context.Context, runID string) (*domain.RunRecord, error) {
	return m.next.Get(ctx, runID)
}

func (m *redactMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func (m *redactMiddleware) Delete(ctx context.Context, runID string) error {
	return m.next.Delete(ctx, runID)
}

func (m *redactMiddleware) matches(key string) bool {
	for _, p := range m.patterns {
		if p.MatchString(key) {
			return true
		}
	}
	return false
}

// mask rewrites s in place. s must be owned by the caller.
func (m *redactMiddleware) mask(s map[string]any) {
	for k, v := range s {
		if m.matches(k) {
			s[k] = Mask
			continue
		}
		m.maskValue(v)
	}
}

func (m *redactMiddleware) maskValue(v any) {
	switch val := v.(type) {
	case map[string]any:
		m.mask(val)
	case domain.State:
		m.mask(val)
	case []any:
		for _, item := range val {
			m.maskValue(item)
		}
	}
}
