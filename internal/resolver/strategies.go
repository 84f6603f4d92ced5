package resolver

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/v0xg/autopilot/internal/analyzer"
	"github.com/v0xg/autopilot/internal/browser"
	"github.com/v0xg/autopilot/internal/llm"
)

// textMatchStrategy matches the description against the extracted element
// texts: exact (0.9), then partial (0.8), then case-insensitive (0.7).
type textMatchStrategy struct {
	structures *analyzer.Analyzer
}

func (s *textMatchStrategy) Name() string { return "text_match" }

func (s *textMatchStrategy) Attempt(ctx context.Context, page browser.Page, description string) (*ElementSearchResult, error) {
	structure, err := s.structures.Analyze(ctx, page)
	if err != nil {
		return nil, err
	}
	elements := structure.Elements.All()

	type tier struct {
		match      func(elementText string) bool
		confidence float64
	}
	lowerDesc := strings.ToLower(description)
	tiers := []tier{
		{func(t string) bool { return t == description }, 0.9},
		{func(t string) bool { return t != "" && strings.Contains(t, description) }, 0.8},
		{func(t string) bool {
			lt := strings.ToLower(t)
			return lt != "" && (lt == lowerDesc || strings.Contains(lt, lowerDesc))
		}, 0.7},
	}

	for _, tr := range tiers {
		var selected *browser.Element
		var alternatives []string
		for i := range elements {
			el := &elements[i]
			if !tr.match(el.Text) {
				continue
			}
			visible, verr := page.IsVisible(el.Selector)
			if verr != nil || !visible {
				continue
			}
			if selected == nil {
				selected = el
			} else {
				alternatives = append(alternatives, el.Selector)
			}
		}
		if selected != nil {
			return &ElementSearchResult{
				Selector:     selected.Selector,
				Confidence:   tr.confidence,
				Alternatives: alternatives,
				Label:        selected.Label(),
			}, nil
		}
	}
	return nil, nil
}

// semanticMap maps common element phrases to ordered candidate selectors.
// The first candidate that exists and is visible wins.
var semanticMap = map[string][]string{
	"login button": {
		`button:has-text("Login")`,
		`[type="submit"]`,
		`#login-button`,
		`button.login`,
		`a[href*="login"]`,
	},
	"sign in button": {
		`button:has-text("Sign in")`,
		`[type="submit"]`,
		`a[href*="signin"]`,
	},
	"search box": {
		`input[type="search"]`,
		`input[name="q"]`,
		`input[name="query"]`,
		`input[name="search"]`,
		`input[placeholder*="earch"]`,
		`#search`,
	},
	"search button": {
		`button[type="submit"]`,
		`button[aria-label*="earch"]`,
		`[type="submit"]`,
	},
	"username field": {
		`input[name="username"]`,
		`input[name="email"]`,
		`input[type="email"]`,
		`#username`,
		`#email`,
	},
	"password field": {
		`input[type="password"]`,
		`input[name="password"]`,
		`#password`,
	},
	"email field": {
		`input[type="email"]`,
		`input[name="email"]`,
		`#email`,
	},
	"add to cart": {
		`button:has-text("Add to cart")`,
		`#add-to-cart-button`,
		`button[name="add"]`,
		`[data-action="add-to-cart"]`,
	},
	"checkout button": {
		`button:has-text("Checkout")`,
		`a[href*="checkout"]`,
		`#checkout`,
	},
	"submit button": {
		`[type="submit"]`,
		`button[type="submit"]`,
		`button:has-text("Submit")`,
	},
	"main form": {
		`form`,
	},
	"navigation menu": {
		`nav`,
		`[role="navigation"]`,
	},
}

// semanticPhrases fixes the lookup order for phrasing-tolerant matches. A
// description mentioning several known phrases always resolves to the
// earliest one listed.
var semanticPhrases = []string{
	"sign in button",
	"login button",
	"username field",
	"password field",
	"email field",
	"search button",
	"search box",
	"add to cart",
	"checkout button",
	"submit button",
	"navigation menu",
	"main form",
}

// semanticStrategy resolves well-known phrases through a static dictionary
// of candidate selectors, confidence 0.8.
type semanticStrategy struct{}

func (s *semanticStrategy) Name() string { return "semantic_mapping" }

func (s *semanticStrategy) Attempt(_ context.Context, page browser.Page, description string) (*ElementSearchResult, error) {
	key := strings.ToLower(strings.TrimSpace(description))
	candidates, ok := semanticMap[key]
	if !ok {
		// Tolerate minor phrasing differences ("the login button").
		for _, phrase := range semanticPhrases {
			if strings.Contains(key, phrase) {
				candidates = semanticMap[phrase]
				ok = true
				break
			}
		}
	}
	if !ok {
		return nil, nil
	}

	for i, candidate := range candidates {
		exists, err := page.Has(candidate)
		if err != nil || !exists {
			continue
		}
		visible, err := page.IsVisible(candidate)
		if err != nil || !visible {
			continue
		}
		return &ElementSearchResult{
			Selector:     candidate,
			Confidence:   0.8,
			Alternatives: candidates[i+1:],
		}, nil
	}
	return nil, nil
}

const visualSystemPrompt = `You pick the page element best matching a natural-language description.
You receive a numbered list of visible elements with their text, attributes and geometry.
Respond ONLY with a JSON object, no explanation or markdown:
{"index": <1-based element number or 0 if none match>, "confidence": <0..1>}`

// visualStrategy enumerates the currently visible elements and asks the
// understanding service to pick the best one. Accepted only above 0.6.
type visualStrategy struct {
	client llm.Client
	logger *zap.Logger
}

func (s *visualStrategy) Name() string { return "visual_context" }

func (s *visualStrategy) Attempt(ctx context.Context, page browser.Page, description string) (*ElementSearchResult, error) {
	if s.client == nil {
		return nil, nil
	}

	snap, err := page.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	var visible []browser.Element
	for _, el := range snap.Elements {
		if el.Visible {
			visible = append(visible, el)
		}
	}
	if len(visible) == 0 {
		return nil, nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Description: %s\n\nElements:\n", description)
	for i, el := range visible {
		fmt.Fprintf(&sb, "%d. %s selector=%s at (%d,%d) %dx%d\n",
			i+1, el.Label(), el.Selector, el.X, el.Y, el.Width, el.Height)
	}

	reply, err := s.client.Complete(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: visualSystemPrompt},
		{Role: llm.RoleUser, Content: sb.String()},
	})
	if err != nil {
		s.logger.Debug("visual strategy skipped", zap.Error(err))
		return nil, nil
	}

	var decoded struct {
		Index      int     `json:"index"`
		Confidence float64 `json:"confidence"`
	}
	if derr := llm.DecodeObject(reply, &decoded); derr != nil {
		return nil, nil
	}
	if decoded.Index < 1 || decoded.Index > len(visible) || decoded.Confidence <= 0.6 {
		return nil, nil
	}

	el := visible[decoded.Index-1]
	if ok, verr := page.IsVisible(el.Selector); verr != nil || !ok {
		return nil, nil
	}
	return &ElementSearchResult{
		Selector:   el.Selector,
		Confidence: decoded.Confidence,
		Label:      el.Label(),
	}, nil
}

// typeSelectors maps description keywords to tag-based selectors.
var typeSelectors = []struct {
	keyword  string
	selector string
}{
	{"button", `button, [role="button"], input[type="submit"], input[type="button"]`},
	{"input", `input:not([type="hidden"]), textarea`},
	{"field", `input:not([type="hidden"]), textarea`},
	{"link", `a[href]`},
	{"image", `img`},
	{"dropdown", `select`},
	{"checkbox", `input[type="checkbox"]`},
	{"text", `p, h1, h2, h3, span`},
}

// typeStrategy maps element-kind keywords to tag selectors, confidence 0.6.
type typeStrategy struct{}

func (s *typeStrategy) Name() string { return "type_heuristic" }

func (s *typeStrategy) Attempt(_ context.Context, page browser.Page, description string) (*ElementSearchResult, error) {
	lower := strings.ToLower(description)
	for _, ts := range typeSelectors {
		if !strings.Contains(lower, ts.keyword) {
			continue
		}
		exists, err := page.Has(ts.selector)
		if err != nil || !exists {
			continue
		}
		visible, err := page.IsVisible(ts.selector)
		if err != nil || !visible {
			continue
		}
		return &ElementSearchResult{
			Selector:   ts.selector,
			Confidence: 0.6,
		}, nil
	}
	return nil, nil
}
