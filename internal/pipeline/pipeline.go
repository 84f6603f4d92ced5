// Package pipeline wires intent parsing, structure analysis, planning,
// execution and validation into one automation run.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/v0xg/autopilot/internal/analyzer"
	"github.com/v0xg/autopilot/internal/browser"
	"github.com/v0xg/autopilot/internal/executor"
	"github.com/v0xg/autopilot/internal/intent"
	"github.com/v0xg/autopilot/internal/planner"
	"github.com/v0xg/autopilot/internal/validator"
	"github.com/v0xg/autopilot/internal/voice"
)

// Request is one automation request, spoken or typed.
type Request struct {
	Text  string
	Audio *voice.Clip
	// URL forces the starting page, overriding the website inferred from
	// the request.
	URL string
}

// AutomationResult aggregates everything a run produced.
type AutomationResult struct {
	Success       bool                        `json:"success"`
	Intent        *intent.Intent              `json:"intent,omitempty"`
	Clarification *intent.Clarification       `json:"clarification,omitempty"`
	Structure     *analyzer.PageStructure     `json:"structure,omitempty"`
	Plan          *planner.Plan               `json:"plan,omitempty"`
	Results       []*executor.ExecutionResult `json:"results,omitempty"`
	Confidence    float64                     `json:"confidence"`
	ExecutionTime time.Duration               `json:"execution_time"`
	Error         string                      `json:"error,omitempty"`
	UserGuidance  string                      `json:"user_guidance,omitempty"`
}

// PageSource hands out pages for a starting URL. *browser.Session is the
// production implementation.
type PageSource interface {
	ObtainPage(url string) (browser.Page, error)
}

// Pipeline owns the stage components and a browser session.
type Pipeline struct {
	parser    *intent.Parser
	analyzer  *analyzer.Analyzer
	planner   *planner.Generator
	executor  *executor.Executor
	validator *validator.Validator
	session   PageSource
	logger    *zap.Logger
}

// New assembles a pipeline from its stages. The logger may be nil.
func New(parser *intent.Parser, an *analyzer.Analyzer, gen *planner.Generator, exec *executor.Executor, val *validator.Validator, session PageSource, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		parser:    parser,
		analyzer:  an,
		planner:   gen,
		executor:  exec,
		validator: val,
		session:   session,
		logger:    logger.With(zap.String("component", "pipeline")),
	}
}

// Inputs exposes the executor's user-input broker.
func (p *Pipeline) Inputs() *executor.InputBroker {
	return p.executor.Inputs()
}

// Run drives a request through every stage. Failures at any stage produce a
// result with Error and UserGuidance set instead of a bare error; a real
// error is returned only when no stage could run at all.
func (p *Pipeline) Run(ctx context.Context, req Request) (*AutomationResult, error) {
	start := time.Now()
	out := &AutomationResult{}
	defer func() { out.ExecutionTime = time.Since(start) }()

	parsed, err := p.parser.Parse(ctx, intent.Input{Text: req.Text, Audio: req.Audio})
	if err != nil {
		return nil, fmt.Errorf("parse request: %w", err)
	}
	out.Intent = parsed
	p.logger.Info("intent parsed",
		zap.String("action", string(parsed.Action)),
		zap.String("target", parsed.Target),
		zap.String("website", parsed.Website),
		zap.Float64("confidence", parsed.Confidence))

	if clar := p.parser.Clarify(parsed); clar.NeedsClarification {
		out.Clarification = clar
		out.Error = "Request needs clarification"
		out.UserGuidance = strings.Join(clar.Questions, " ")
		return out, nil
	}

	startURL := req.URL
	if startURL == "" {
		startURL = parsed.Website
	}
	page, err := p.session.ObtainPage(normalizeURL(startURL))
	if err != nil {
		out.Error = "Automation failed"
		out.UserGuidance = fmt.Sprintf("Could not open %s: %v", startURL, err)
		return out, nil
	}

	structure, err := p.analyzer.Analyze(ctx, page)
	if err != nil {
		out.Error = "Automation failed"
		out.UserGuidance = fmt.Sprintf("Could not analyze the page: %v", err)
		return out, nil
	}
	out.Structure = structure
	p.logger.Info("page analyzed",
		zap.String("url", structure.URL),
		zap.String("page_type", string(structure.PageType)),
		zap.Float64("confidence", structure.Confidence))

	plan, err := p.planner.Generate(ctx, parsed, structure)
	if err != nil {
		out.Error = "Automation failed"
		out.UserGuidance = fmt.Sprintf("Could not build an execution plan: %v", err)
		return out, nil
	}
	out.Plan = plan
	p.logger.Info("plan generated",
		zap.Int("steps", len(plan.Steps)),
		zap.String("source", plan.Source),
		zap.Duration("estimated", plan.EstimatedDuration))

	results, err := p.executor.Execute(ctx, page, plan)
	out.Results = results
	if err != nil {
		out.Error = "Automation failed"
		out.UserGuidance = err.Error()
		if verdict := p.validator.Validate(results); verdict != nil {
			out.Confidence = verdict.Confidence
		}
		return out, nil
	}

	verdict := p.validator.Validate(results)
	out.Success = verdict.IsValid
	out.Confidence = verdict.Confidence
	out.Error = verdict.Error
	out.UserGuidance = verdict.UserGuidance
	return out, nil
}

func normalizeURL(u string) string {
	if u == "" {
		return "about:blank"
	}
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		return "https://" + u
	}
	return u
}
