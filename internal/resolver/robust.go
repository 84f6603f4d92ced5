package resolver

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/v0xg/autopilot/internal/browser"
	"github.com/v0xg/autopilot/internal/llm"
)

// SelectorStrategy is one independent way of addressing an element.
type SelectorStrategy struct {
	Type       string  `json:"type"` // id, name, attribute, text, position, semantic, ai_generated
	Selector   string  `json:"selector"`
	Confidence float64 `json:"confidence"`
}

// RobustSelector is a ranked set of independent selector strategies for one
// element, generated once and reused.
type RobustSelector struct {
	Primary     string             `json:"primary"`
	Strategies  []SelectorStrategy `json:"strategies"`
	GeneratedAt time.Time          `json:"generated_at"`
}

// robustCache stores generated robust selectors per page+element key.
// Population is singleflighted so concurrent writers of the same key share
// one computation.
type robustCache struct {
	mu      sync.RWMutex
	entries map[string]*RobustSelector
	group   singleflight.Group
	client  llm.Client
}

// RobustSelector produces a ranked set of independent selector strategies
// for the element, cached per page URL and element selector.
func (r *Resolver) RobustSelector(ctx context.Context, page browser.Page, el browser.Element) (*RobustSelector, error) {
	key := page.URL() + "|" + el.Selector

	r.robust.mu.RLock()
	cached := r.robust.entries[key]
	r.robust.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}

	v, err, _ := r.robust.group.Do(key, func() (any, error) {
		r.robust.mu.RLock()
		if hit := r.robust.entries[key]; hit != nil {
			r.robust.mu.RUnlock()
			return hit, nil
		}
		r.robust.mu.RUnlock()

		rs := r.buildRobustSelector(ctx, page, el)

		r.robust.mu.Lock()
		if r.robust.entries == nil {
			r.robust.entries = map[string]*RobustSelector{}
		}
		r.robust.entries[key] = rs
		r.robust.mu.Unlock()
		return rs, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*RobustSelector), nil
}

func (r *Resolver) buildRobustSelector(ctx context.Context, page browser.Page, el browser.Element) *RobustSelector {
	var strategies []SelectorStrategy

	add := func(kind, selector string, confidence float64) {
		if selector == "" {
			return
		}
		if exists, err := page.Has(selector); err != nil || !exists {
			return
		}
		strategies = append(strategies, SelectorStrategy{Type: kind, Selector: selector, Confidence: confidence})
	}

	if el.ID != "" {
		add("id", "#"+el.ID, 0.95)
	}
	if el.Name != "" {
		add("name", fmt.Sprintf(`%s[name="%s"]`, el.Tag, el.Name), 0.9)
	}
	if el.AriaLabel != "" {
		add("attribute", fmt.Sprintf(`%s[aria-label="%s"]`, el.Tag, el.AriaLabel), 0.85)
	}
	if el.Placeholder != "" {
		add("attribute", fmt.Sprintf(`%s[placeholder="%s"]`, el.Tag, el.Placeholder), 0.8)
	}
	if el.Text != "" && len(el.Text) <= 40 {
		add("text", fmt.Sprintf(`%s:has-text(%q)`, el.Tag, el.Text), 0.75)
	}
	if strings.Contains(el.Selector, ":nth-child(") {
		add("position", el.Selector, 0.5)
	} else {
		add("semantic", el.Selector, 0.7)
	}

	if ai := r.aiSelector(ctx, page, el); ai != "" {
		add("ai_generated", ai, 0.65)
	}

	sort.SliceStable(strategies, func(i, j int) bool {
		return strategies[i].Confidence > strategies[j].Confidence
	})

	primary := el.Selector
	if len(strategies) > 0 {
		primary = strategies[0].Selector
	}
	return &RobustSelector{
		Primary:     primary,
		Strategies:  strategies,
		GeneratedAt: time.Now(),
	}
}

const robustSystemPrompt = `You write robust CSS selectors.
Given an element's tag, attributes and text, respond ONLY with a JSON object:
{"selector":"..."}
The selector must be plain CSS (no :has-text), as stable as possible against page changes.`

func (r *Resolver) aiSelector(ctx context.Context, page browser.Page, el browser.Element) string {
	if r.robust.client == nil {
		return ""
	}
	prompt := fmt.Sprintf("tag=%s id=%q name=%q aria-label=%q placeholder=%q text=%q current-selector=%q",
		el.Tag, el.ID, el.Name, el.AriaLabel, el.Placeholder, el.Text, el.Selector)
	reply, err := r.robust.client.Complete(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: robustSystemPrompt},
		{Role: llm.RoleUser, Content: prompt},
	})
	if err != nil {
		return ""
	}
	var decoded struct {
		Selector string `json:"selector"`
	}
	if derr := llm.DecodeObject(reply, &decoded); derr != nil {
		return ""
	}
	selector := strings.TrimSpace(decoded.Selector)
	if selector == "" || selector == el.Selector {
		return ""
	}
	if exists, err := page.Has(selector); err != nil || !exists {
		return ""
	}
	return selector
}
