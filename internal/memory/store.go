// Package memory persists selector-resolution outcomes so later plans can
// prefer selectors that worked before. Planning code depends only on the
// Store interface; storage is injected.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Learning is one remembered selector outcome for a site+description pair.
type Learning struct {
	Site        string    `json:"site"`
	Description string    `json:"description"`
	Selector    string    `json:"selector"`
	Strategy    string    `json:"strategy"`
	SuccessRate float64   `json:"success_rate"`
	UsageCount  int       `json:"usage_count"`
	LastUsed    time.Time `json:"last_used"`
}

// Store records outcomes and serves ranked hints.
type Store interface {
	// RecordOutcome folds one success/failure into the learning for the
	// selector.
	RecordOutcome(ctx context.Context, site, description, selector, strategy string, success bool) error
	// Hints returns learnings for the site+description, ranked by
	// success_rate then usage_count, best first.
	Hints(ctx context.Context, site, description string, limit int) ([]Learning, error)
	Close() error
}

// InMemoryStore is the map-backed Store used in tests and as the default
// when no store path is configured.
type InMemoryStore struct {
	mu       sync.RWMutex
	learning map[string]*Learning
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{learning: map[string]*Learning{}}
}

func key(site, description, selector string) string {
	return site + "|" + description + "|" + selector
}

func (s *InMemoryStore) RecordOutcome(_ context.Context, site, description, selector, strategy string, success bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key(site, description, selector)
	l, ok := s.learning[k]
	if !ok {
		l = &Learning{Site: site, Description: description, Selector: selector, Strategy: strategy}
		s.learning[k] = l
	}
	applyOutcome(l, success)
	return nil
}

func (s *InMemoryStore) Hints(_ context.Context, site, description string, limit int) ([]Learning, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var hints []Learning
	for _, l := range s.learning {
		if l.Site == site && l.Description == description {
			hints = append(hints, *l)
		}
	}
	rankHints(hints)
	if limit > 0 && len(hints) > limit {
		hints = hints[:limit]
	}
	return hints, nil
}

func (s *InMemoryStore) Close() error { return nil }

// applyOutcome folds one observation into the running success rate.
func applyOutcome(l *Learning, success bool) {
	total := float64(l.UsageCount)
	successes := l.SuccessRate * total
	if success {
		successes++
	}
	l.UsageCount++
	l.SuccessRate = successes / float64(l.UsageCount)
	l.LastUsed = time.Now()
}

func rankHints(hints []Learning) {
	sort.SliceStable(hints, func(i, j int) bool {
		if hints[i].SuccessRate != hints[j].SuccessRate {
			return hints[i].SuccessRate > hints[j].SuccessRate
		}
		return hints[i].UsageCount > hints[j].UsageCount
	})
}
