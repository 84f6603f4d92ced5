package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/v0xg/autopilot/internal/analyzer"
	"github.com/v0xg/autopilot/internal/intent"
	"github.com/v0xg/autopilot/internal/llm"
	"github.com/v0xg/autopilot/internal/memory"
)

const planSystemPrompt = `You are a web-automation planner. You convert a structured intent and a page
structure into an ordered list of executable steps.

Respond ONLY with a JSON array of steps, no explanation or markdown. Each step:
{"description":"...","action":"...","target":"...","data":{},"timeout_ms":10000,
 "retry_count":2,"priority":3,"requires_user_input":false,"non_critical":false,
 "wait_for":{"kind":"element_appears","value":"...","timeout_ms":10000}}

"action" must be one of: navigate, find_element, click, fill_form, extract, screenshot, wait, scroll.
"target" is a URL for navigate, otherwise a natural-language element description
(e.g. "search box", "login button") - selectors are resolved at execution time.
"wait_for" is optional; "kind" is one of element_appears, text_appears, url_contains, network_idle, elapsed.
Steps that need credentials or personal data must set "requires_user_input": true and leave the value out of "data".
Keep the sequence minimal but complete.`

// Generator builds automation plans, asking the understanding service first
// and falling back to deterministic templates keyed by the intent action.
type Generator struct {
	client llm.Client
	store  memory.Store
	logger *zap.Logger
}

// NewGenerator creates a Generator. client and store may be nil.
func NewGenerator(client llm.Client, store memory.Store, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{
		client: client,
		store:  store,
		logger: logger.With(zap.String("component", "plan_generator")),
	}
}

// Generate produces a plan for the intent against the analyzed structure.
func (g *Generator) Generate(ctx context.Context, in *intent.Intent, structure *analyzer.PageStructure) (*Plan, error) {
	if in == nil {
		return nil, fmt.Errorf("nil intent")
	}

	plan := g.generateLLM(ctx, in, structure)
	if plan == nil {
		plan = g.generateTemplate(in, structure)
		plan.Source = "template"
	} else {
		plan.Source = "llm"
	}
	if len(plan.Steps) == 0 {
		return nil, fmt.Errorf("no executable steps for action %q", in.Action)
	}

	applyConstraints(plan, in.Constraints)
	finalize(plan, in)

	g.logger.Debug("plan generated",
		zap.String("source", plan.Source),
		zap.Int("steps", len(plan.Steps)),
		zap.Duration("estimated", plan.EstimatedDuration))
	return plan, nil
}

type llmStep struct {
	Description       string            `json:"description"`
	Action            string            `json:"action"`
	Target            string            `json:"target"`
	Data              map[string]string `json:"data"`
	TimeoutMS         int               `json:"timeout_ms"`
	RetryCount        int               `json:"retry_count"`
	Priority          int               `json:"priority"`
	RequiresUserInput bool              `json:"requires_user_input"`
	NonCritical       bool              `json:"non_critical"`
	WaitFor           *struct {
		Kind      string `json:"kind"`
		Value     string `json:"value"`
		TimeoutMS int    `json:"timeout_ms"`
	} `json:"wait_for"`
}

// generateLLM asks the understanding service for a full step list. Any
// malformed or invalid reply yields nil and the template path takes over.
func (g *Generator) generateLLM(ctx context.Context, in *intent.Intent, structure *analyzer.PageStructure) *Plan {
	if g.client == nil {
		return nil
	}

	prompt, err := g.buildPrompt(ctx, in, structure)
	if err != nil {
		return nil
	}
	reply, err := g.client.Complete(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: planSystemPrompt},
		{Role: llm.RoleUser, Content: prompt},
	})
	if err != nil {
		g.logger.Debug("plan generation downgraded to template", zap.Error(err))
		return nil
	}

	var decoded []llmStep
	if derr := llm.DecodeArray(reply, &decoded); derr != nil {
		g.logger.Debug("plan reply malformed, using template", zap.Error(derr))
		return nil
	}

	steps := make([]*Step, 0, len(decoded))
	for _, s := range decoded {
		action := StepAction(s.Action)
		if !knownStepActions[action] {
			g.logger.Debug("plan reply carries unknown action, using template",
				zap.String("action", s.Action))
			return nil
		}
		step := &Step{
			Description:       strings.TrimSpace(s.Description),
			Action:            action,
			Target:            strings.TrimSpace(s.Target),
			Data:              s.Data,
			RequiresUserInput: s.RequiresUserInput,
			NonCritical:       s.NonCritical,
			Timeout:           time.Duration(s.TimeoutMS) * time.Millisecond,
			RetryCount:        s.RetryCount,
			Priority:          s.Priority,
		}
		if s.WaitFor != nil {
			kind := WaitKind(s.WaitFor.Kind)
			switch kind {
			case WaitElementAppears, WaitTextAppears, WaitURLContains, WaitNetworkIdle, WaitElapsed:
				step.WaitForChanges = &WaitCondition{
					Kind:    kind,
					Value:   s.WaitFor.Value,
					Timeout: time.Duration(s.WaitFor.TimeoutMS) * time.Millisecond,
				}
			}
		}
		steps = append(steps, step)
	}
	if len(steps) == 0 {
		return nil
	}
	return &Plan{Steps: steps, Confidence: clamp(in.Confidence * 0.95)}
}

func (g *Generator) buildPrompt(ctx context.Context, in *intent.Intent, structure *analyzer.PageStructure) (string, error) {
	intentJSON, err := json.MarshalIndent(in, "", "  ")
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("Intent:\n")
	sb.Write(intentJSON)

	if structure != nil {
		sb.WriteString(fmt.Sprintf("\n\nPage: %s (%s, type=%s)\nElements:\n", structure.URL, structure.Title, structure.PageType))
		for _, el := range structure.Elements.All() {
			if !el.Visible {
				continue
			}
			sb.WriteString("- " + el.Label() + "\n")
		}
	}

	if hints := g.hints(ctx, in, structure); len(hints) > 0 {
		sb.WriteString("\nSelectors that worked here before (best first):\n")
		for _, h := range hints {
			sb.WriteString(fmt.Sprintf("- %q -> %s (success_rate=%.2f, usage_count=%d)\n",
				h.Description, h.Selector, h.SuccessRate, h.UsageCount))
		}
	}
	return sb.String(), nil
}

func (g *Generator) hints(ctx context.Context, in *intent.Intent, structure *analyzer.PageStructure) []memory.Learning {
	if g.store == nil {
		return nil
	}
	site := in.Website
	if site == "" && structure != nil {
		site = structure.URL
	}
	if site == "" {
		return nil
	}
	hints, err := g.store.Hints(ctx, site, in.Target, 5)
	if err != nil {
		g.logger.Debug("learning hints unavailable", zap.Error(err))
		return nil
	}
	return hints
}

// applyConstraints folds intent-level constraints into every step.
func applyConstraints(plan *Plan, constraints []intent.Constraint) {
	for _, c := range constraints {
		switch c.Type {
		case intent.ConstraintTimeout:
			for _, s := range plan.Steps {
				s.Timeout = time.Duration(c.Value) * time.Second
			}
		case intent.ConstraintRetries:
			for _, s := range plan.Steps {
				s.RetryCount = c.Value
			}
		}
	}
}

// finalize assigns IDs and defaults, annotates the standard fallback and
// estimates the duration. Applied to both generation paths.
func finalize(plan *Plan, in *intent.Intent) {
	var estimated time.Duration
	for _, s := range plan.Steps {
		s.ID = uuid.NewString()
		s.Status = StatusPending
		if s.Timeout <= 0 {
			s.Timeout = defaultTimeout(s.Action)
		}
		if s.RetryCount < 0 {
			s.RetryCount = 0
		}
		if s.Priority < 1 || s.Priority > 5 {
			s.Priority = in.Priority
		}
		if s.Data == nil {
			s.Data = map[string]string{}
		}
		estimated += stepEstimate(s)
	}
	plan.EstimatedDuration = estimated
	plan.Fallbacks = append(plan.Fallbacks, Fallback{
		Type:        FallbackAlternativeSelector,
		Description: "retry the failed step with the next viable alternative selector",
	})
	if plan.Confidence == 0 {
		plan.Confidence = clamp(in.Confidence * 0.85)
	}
}

func stepEstimate(s *Step) time.Duration {
	base := 2 * time.Second
	if s.Action == StepNavigate {
		base = 5 * time.Second
	}
	if s.RequiresUserInput {
		base += 10 * time.Second
	}
	if s.WaitForChanges != nil {
		base += 2 * time.Second
	}
	return base
}

func clamp(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < 0 {
		return 0
	}
	return v
}
