package executor

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/v0xg/autopilot/internal/browser"
	"github.com/v0xg/autopilot/internal/memory"
	"github.com/v0xg/autopilot/internal/planner"
	"github.com/v0xg/autopilot/internal/resolver"
)

// DefaultInputTimeout bounds how long a step blocks waiting for user input
// before falling back to the sentinel default.
const DefaultInputTimeout = 30 * time.Second

// ExecutionResult records the outcome of a single plan step.
type ExecutionResult struct {
	StepID      string             `json:"step_id"`
	Description string             `json:"description"`
	Action      planner.StepAction `json:"action"`
	Success     bool               `json:"success"`
	Result      string             `json:"result,omitempty"`
	Error       string             `json:"error,omitempty"`
	Duration    time.Duration      `json:"duration"`
	UserInput   string             `json:"user_input,omitempty"`
	Screenshot  []byte             `json:"-"`
}

// Executor runs plan steps against a page one at a time, in dependency
// order.
type Executor struct {
	resolver     *resolver.Resolver
	store        memory.Store
	inputs       *InputBroker
	logger       *zap.Logger
	inputTimeout time.Duration
}

// Option adjusts executor behavior.
type Option func(*Executor)

// WithInputTimeout overrides the user-input wait bound.
func WithInputTimeout(d time.Duration) Option {
	return func(e *Executor) {
		if d > 0 {
			e.inputTimeout = d
		}
	}
}

// New creates an executor. The store may be nil; outcomes are then not
// recorded. The logger may be nil.
func New(res *resolver.Resolver, store memory.Store, inputs *InputBroker, logger *zap.Logger, opts ...Option) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if inputs == nil {
		inputs = NewInputBroker()
	}
	e := &Executor{
		resolver:     res,
		store:        store,
		inputs:       inputs,
		logger:       logger.With(zap.String("component", "executor")),
		inputTimeout: DefaultInputTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Inputs exposes the broker so callers can answer user-input requests.
func (e *Executor) Inputs() *InputBroker {
	return e.inputs
}

// Execute runs the plan sequentially. A step is dispatched only once every
// step it depends on has completed. A failed critical step aborts the
// remainder; non-critical failures are recorded and execution continues.
// Outcomes are appended to the returned slice in dispatch order.
func (e *Executor) Execute(ctx context.Context, page browser.Page, plan *planner.Plan) ([]*ExecutionResult, error) {
	if plan == nil || len(plan.Steps) == 0 {
		return nil, fmt.Errorf("empty plan")
	}

	done := map[string]planner.StepStatus{}
	var results []*ExecutionResult
	var lastExtract string

	for _, step := range plan.Steps {
		if err := ctx.Err(); err != nil {
			return results, fmt.Errorf("execution canceled: %w", err)
		}

		if blocked, dep := unmetDependency(step, done); blocked {
			step.Status = planner.StatusFailed
			done[step.ID] = step.Status
			results = append(results, &ExecutionResult{
				StepID:      step.ID,
				Description: step.Description,
				Action:      step.Action,
				Error:       fmt.Sprintf("dependency %s did not complete", dep),
			})
			if !step.NonCritical {
				return results, nil
			}
			continue
		}

		if ok, reason := checkConditions(ctx, page, step.Conditions, lastExtract); !ok {
			step.Status = planner.StatusFailed
			done[step.ID] = step.Status
			results = append(results, &ExecutionResult{
				StepID:      step.ID,
				Description: step.Description,
				Action:      step.Action,
				Error:       fmt.Sprintf("condition not met: %s", reason),
			})
			e.logger.Info("halting: step condition failed",
				zap.String("step", step.ID), zap.String("reason", reason))
			return results, nil
		}

		step.Status = planner.StatusInProgress
		e.logger.Info("executing step",
			zap.String("step", step.ID),
			zap.String("action", string(step.Action)),
			zap.String("description", step.Description))

		res := e.runStep(ctx, page, step)
		results = append(results, res)

		if res.Success {
			step.Status = planner.StatusCompleted
			if step.Action == planner.StepExtract {
				lastExtract = res.Result
			}
		} else {
			step.Status = planner.StatusFailed
		}
		done[step.ID] = step.Status

		if !res.Success && !step.NonCritical {
			e.logger.Warn("critical step failed, aborting",
				zap.String("step", step.ID), zap.String("error", res.Error))
			return results, nil
		}
	}
	return results, nil
}

// runStep dispatches one step with retries, then the alternative-selector
// fallback, and finally honors its wait condition.
func (e *Executor) runStep(ctx context.Context, page browser.Page, step *planner.Step) *ExecutionResult {
	res := &ExecutionResult{
		StepID:      step.ID,
		Description: step.Description,
		Action:      step.Action,
	}
	start := time.Now()
	defer func() { res.Duration = time.Since(start) }()

	if step.RequiresUserInput {
		value := e.inputs.Await(ctx, InputRequest{
			StepID:      step.ID,
			Description: step.Description,
		}, e.inputTimeout)
		res.UserInput = value
		if step.Data == nil {
			step.Data = map[string]string{}
		}
		step.Data["value"] = value
	}

	timeout := step.Timeout
	if timeout <= 0 {
		timeout = planner.DefaultElementTimeout
	}

	var lastErr error
	for attempt := 0; attempt <= step.RetryCount; attempt++ {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}
		stepCtx, cancel := context.WithTimeout(ctx, timeout)
		out, shot, err := e.dispatch(stepCtx, page, step, "")
		cancel()
		if err == nil {
			res.Success = true
			res.Result = out
			res.Screenshot = shot
			break
		}
		lastErr = err
		if attempt < step.RetryCount {
			e.logger.Debug("step attempt failed, retrying",
				zap.String("step", step.ID), zap.Int("attempt", attempt+1), zap.Error(err))
			time.Sleep(500 * time.Millisecond)
		}
	}

	if !res.Success && lastErr != nil && isElementAction(step.Action) {
		if out, shot, err := e.tryAlternatives(ctx, page, step, timeout); err == nil {
			res.Success = true
			res.Result = out
			res.Screenshot = shot
			lastErr = nil
		}
	}

	if !res.Success && lastErr != nil {
		res.Error = lastErr.Error()
	}

	if res.Success && step.WaitForChanges != nil {
		if err := waitFor(ctx, page, step.WaitForChanges); err != nil {
			res.Success = false
			res.Error = err.Error()
		}
	}
	return res
}

// tryAlternatives re-resolves the step target and retries the primitive with
// each suggested alternative selector.
func (e *Executor) tryAlternatives(ctx context.Context, page browser.Page, step *planner.Step, timeout time.Duration) (string, []byte, error) {
	if e.resolver == nil || step.Target == "" {
		return "", nil, fmt.Errorf("no alternatives available")
	}
	found, err := e.resolver.FindElement(ctx, page, step.Target)
	if err != nil {
		return "", nil, fmt.Errorf("resolve alternatives for %q: %w", step.Target, err)
	}
	candidates := append([]string{found.Selector}, found.Alternatives...)
	var lastErr error
	for _, sel := range candidates {
		stepCtx, cancel := context.WithTimeout(ctx, timeout)
		out, shot, err := e.dispatch(stepCtx, page, step, sel)
		cancel()
		if err == nil {
			e.logger.Info("alternative selector succeeded",
				zap.String("step", step.ID), zap.String("selector", sel))
			e.record(ctx, page, step.Target, sel, found.Strategy, true)
			return out, shot, nil
		}
		lastErr = err
		e.record(ctx, page, step.Target, sel, found.Strategy, false)
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no alternative selector worked for %q", step.Target)
	}
	return "", nil, lastErr
}

// record folds a selector outcome into the learning store.
func (e *Executor) record(ctx context.Context, page browser.Page, description, selector, strategy string, success bool) {
	if e.store == nil || selector == "" {
		return
	}
	site := page.URL()
	if u, err := url.Parse(site); err == nil && u.Host != "" {
		site = u.Host
	}
	if err := e.store.RecordOutcome(ctx, site, description, selector, strategy, success); err != nil {
		e.logger.Debug("record outcome", zap.Error(err))
	}
}

func unmetDependency(step *planner.Step, done map[string]planner.StepStatus) (bool, string) {
	for _, dep := range step.DependsOn {
		if done[dep] != planner.StatusCompleted {
			return true, dep
		}
	}
	return false, ""
}

func isElementAction(a planner.StepAction) bool {
	switch a {
	case planner.StepClick, planner.StepFillForm, planner.StepExtract, planner.StepFindElement:
		return true
	}
	return false
}
