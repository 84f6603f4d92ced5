package analyzer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/v0xg/autopilot/internal/browser"
)

// DefaultTTL is the freshness window for cached page structures.
const DefaultTTL = 5 * time.Minute

// Analyzer produces page structures, cached by URL. Safe for concurrent use;
// concurrent analyses of the same URL share one DOM pass.
type Analyzer struct {
	classifier *classifier
	logger     *zap.Logger
	ttl        time.Duration

	mu    sync.RWMutex
	cache map[string]cacheEntry
	group singleflight.Group
}

type cacheEntry struct {
	structure *PageStructure
	expires   time.Time
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithTTL overrides the cache freshness window.
func WithTTL(ttl time.Duration) Option {
	return func(a *Analyzer) { a.ttl = ttl }
}

// New creates an Analyzer. client may be nil; classification then relies on
// the deterministic heuristics alone.
func New(client classifierClient, logger *zap.Logger, opts ...Option) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Analyzer{
		classifier: &classifier{client: client, logger: logger},
		logger:     logger.With(zap.String("component", "page_analyzer")),
		ttl:        DefaultTTL,
		cache:      map[string]cacheEntry{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze returns the page structure for the page's current URL, serving a
// cached snapshot when it is still fresh.
func (a *Analyzer) Analyze(ctx context.Context, page browser.Page) (*PageStructure, error) {
	url := page.URL()
	if s := a.cached(url); s != nil {
		a.logger.Debug("structure cache hit", zap.String("url", url))
		return s, nil
	}

	v, err, _ := a.group.Do(url, func() (any, error) {
		// Re-check inside the flight: a concurrent caller may have
		// published the entry while we waited.
		if s := a.cached(url); s != nil {
			return s, nil
		}
		s, err := a.analyze(ctx, page)
		if err != nil {
			return nil, err
		}
		a.store(url, s)
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*PageStructure), nil
}

// Invalidate drops the cached structure for a URL, forcing re-analysis.
func (a *Analyzer) Invalidate(url string) {
	a.mu.Lock()
	delete(a.cache, url)
	a.mu.Unlock()
}

func (a *Analyzer) cached(url string) *PageStructure {
	a.mu.RLock()
	defer a.mu.RUnlock()
	entry, ok := a.cache[url]
	if !ok || time.Now().After(entry.expires) {
		return nil
	}
	return entry.structure
}

func (a *Analyzer) store(url string, s *PageStructure) {
	a.mu.Lock()
	a.cache[url] = cacheEntry{structure: s, expires: time.Now().Add(a.ttl)}
	a.mu.Unlock()
}

func (a *Analyzer) analyze(ctx context.Context, page browser.Page) (*PageStructure, error) {
	snap, err := page.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("page analysis failed: %w", err)
	}

	s := &PageStructure{
		URL:        snap.URL,
		Title:      snap.Title,
		Language:   snap.Language,
		Counts:     snap.Counts,
		Elements:   categorize(snap.Elements),
		AnalyzedAt: time.Now(),
	}
	s.PageType = a.classifier.pageType(ctx, snap)
	a.classifier.buttonSubTypes(ctx, s.Elements.Buttons)
	s.Patterns = detectPatterns(snap.Counts, s.Elements)
	s.Confidence = structureConfidence(s)

	a.logger.Debug("page analyzed",
		zap.String("url", s.URL),
		zap.String("page_type", string(s.PageType)),
		zap.Int("elements", snap.Counts.Interactive),
		zap.Float64("confidence", s.Confidence))
	return s, nil
}

func categorize(elements []browser.Element) Elements {
	var out Elements
	for _, el := range elements {
		switch el.Type {
		case "form":
			out.Forms = append(out.Forms, el)
		case "button":
			out.Buttons = append(out.Buttons, Button{Element: el, SubType: ButtonUnknown})
		case "link":
			out.Links = append(out.Links, el)
		default:
			out.Inputs = append(out.Inputs, el)
		}
	}
	return out
}

// detectPatterns flags cross-element patterns used by planning.
func detectPatterns(counts browser.Counts, elements Elements) []string {
	var patterns []string
	if len(elements.Forms) > 0 {
		patterns = append(patterns, "data-entry")
	}
	if counts.HasSearch {
		patterns = append(patterns, "search")
	}
	if counts.HasCart {
		patterns = append(patterns, "commerce")
	}
	if counts.HasLogin {
		patterns = append(patterns, "authentication")
	}
	if counts.HasNav {
		patterns = append(patterns, "navigation")
	}
	return patterns
}

// structureConfidence is a bounded weighted sum over the presence of
// interactive elements, forms, buttons, inputs and detected patterns.
func structureConfidence(s *PageStructure) float64 {
	c := 0.3
	if s.Counts.Interactive > 0 {
		c += 0.2
	}
	if len(s.Elements.Forms) > 0 {
		c += 0.1
	}
	if len(s.Elements.Buttons) > 0 {
		c += 0.1
	}
	if len(s.Elements.Inputs) > 0 {
		c += 0.1
	}
	patterns := len(s.Patterns)
	if patterns > 4 {
		patterns = 4
	}
	c += 0.05 * float64(patterns)
	if c > 1.0 {
		c = 1.0
	}
	return c
}
