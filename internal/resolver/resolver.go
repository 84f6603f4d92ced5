// Package resolver turns natural-language element descriptions into concrete
// selectors via a fixed-order strategy waterfall.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/v0xg/autopilot/internal/analyzer"
	"github.com/v0xg/autopilot/internal/browser"
	"github.com/v0xg/autopilot/internal/llm"
)

// ErrElementNotFound is returned once every strategy in the waterfall has
// been exhausted.
var ErrElementNotFound = errors.New("element not found")

// ElementSearchResult is a resolved selector with its provenance.
type ElementSearchResult struct {
	Selector     string   `json:"selector"`
	Confidence   float64  `json:"confidence"`
	Strategy     string   `json:"strategy"`
	Alternatives []string `json:"alternatives,omitempty"`
	Description  string   `json:"description"`
	Label        string   `json:"label,omitempty"`
}

// Strategy is one element-lookup approach. Attempt returns nil (no error)
// when the strategy has no match; the waterfall then moves on. Only a
// visible match may be returned.
type Strategy interface {
	Name() string
	Attempt(ctx context.Context, page browser.Page, description string) (*ElementSearchResult, error)
}

// Resolver runs the waterfall. The first strategy to produce a visible match
// wins; later strategies are never consulted.
type Resolver struct {
	strategies []Strategy
	structures *analyzer.Analyzer
	logger     *zap.Logger

	robust robustCache
}

// New creates a Resolver with the standard strategy order: text match,
// semantic mapping, visual context, type heuristic. client may be nil, which
// disables the visual strategy's understanding-service call.
func New(structures *analyzer.Analyzer, client llm.Client, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "element_resolver"))
	r := &Resolver{
		structures: structures,
		logger:     logger,
	}
	r.strategies = []Strategy{
		&textMatchStrategy{structures: structures},
		&semanticStrategy{},
		&visualStrategy{client: client, logger: logger},
		&typeStrategy{},
	}
	r.robust.client = client
	return r
}

// Strategies exposes the ordered waterfall, mainly for tests auditing the
// ordering.
func (r *Resolver) Strategies() []Strategy {
	return r.strategies
}

// FindElement resolves the description to the best concrete selector.
func (r *Resolver) FindElement(ctx context.Context, page browser.Page, description string) (*ElementSearchResult, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, fmt.Errorf("empty element description: %w", ErrElementNotFound)
	}

	for _, strategy := range r.strategies {
		result, err := strategy.Attempt(ctx, page, description)
		if err != nil {
			r.logger.Debug("strategy failed, continuing waterfall",
				zap.String("strategy", strategy.Name()), zap.Error(err))
			continue
		}
		if result == nil {
			continue
		}
		result.Description = description
		if result.Strategy == "" {
			result.Strategy = strategy.Name()
		}
		r.logger.Debug("element resolved",
			zap.String("description", description),
			zap.String("selector", result.Selector),
			zap.String("strategy", result.Strategy),
			zap.Float64("confidence", result.Confidence))
		return result, nil
	}

	return nil, fmt.Errorf("no strategy matched %q: %w", description, ErrElementNotFound)
}

// FindSuggestions returns human-readable descriptions of elements matching a
// partial description, best matches first.
func (r *Resolver) FindSuggestions(ctx context.Context, page browser.Page, partial string) ([]string, error) {
	structure, err := r.structures.Analyze(ctx, page)
	if err != nil {
		return nil, fmt.Errorf("suggestions unavailable: %w", err)
	}

	partial = strings.ToLower(strings.TrimSpace(partial))
	type scored struct {
		label string
		score int
	}
	var matches []scored
	for _, el := range structure.Elements.All() {
		if !el.Visible {
			continue
		}
		label := el.Label()
		haystack := strings.ToLower(label + " " + el.Name + " " + el.ID)
		switch {
		case partial == "":
			matches = append(matches, scored{label, 1})
		case strings.HasPrefix(strings.ToLower(el.Text), partial):
			matches = append(matches, scored{label, 3})
		case strings.Contains(haystack, partial):
			matches = append(matches, scored{label, 2})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].score > matches[j].score })

	seen := map[string]bool{}
	var out []string
	for _, m := range matches {
		if seen[m.label] {
			continue
		}
		seen[m.label] = true
		out = append(out, m.label)
		if len(out) >= 10 {
			break
		}
	}
	return out, nil
}
