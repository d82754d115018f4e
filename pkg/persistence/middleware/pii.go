package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/aretw0/stepgraph/pkg/domain"
	"github.com/aretw0/stepgraph/pkg/ports"
)

// Mask replaces the value of every redacted key.
const Mask = "***"

type piiMiddleware struct {
	next     ports.RunStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks values of state keys matching
// any of the patterns, in the final state and in every log snapshot.
// Nested maps are masked too. The caller's run is never modified.
func NewPIIMiddleware(patternStrings []string) (Middleware, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("redact pattern %q: %w", p, err)
		}
		patterns[i] = re
	}
	return func(next ports.RunStore) ports.RunStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}, nil
}

func (m *piiMiddleware) Put(ctx context.Context, run *domain.Run) error {
	masked := run.Clone()
	maskMap(masked.State, m.patterns)
	for _, entry := range masked.Log {
		maskMap(entry.StateSnapshot, m.patterns)
	}
	return m.next.Put(ctx, masked)
}

func (m *piiMiddleware) Get(ctx context.Context, runID string) (*domain.Run, error) {
	return m.next.Get(ctx, runID)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func maskMap(m map[string]any, patterns []*regexp.Regexp) {
	for k, v := range m {
		masked := false
		for _, p := range patterns {
			if p.MatchString(k) {
				m[k] = Mask
				masked = true
				break
			}
		}
		if masked {
			continue
		}
		switch sub := v.(type) {
		case map[string]any:
			maskMap(sub, patterns)
		case domain.State:
			maskMap(sub, patterns)
		}
	}
}
