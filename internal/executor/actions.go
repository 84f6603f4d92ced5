package executor

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/v0xg/autopilot/internal/browser"
	"github.com/v0xg/autopilot/internal/planner"
)

// dispatch executes one step primitive. When selector is non-empty it
// overrides target resolution, which is how the alternative-selector
// fallback re-runs a step.
func (e *Executor) dispatch(ctx context.Context, page browser.Page, step *planner.Step, selector string) (result string, screenshot []byte, err error) {
	switch step.Action {
	case planner.StepNavigate:
		target := step.Target
		if target == "" {
			target = step.Data["url"]
		}
		if target == "" {
			return "", nil, fmt.Errorf("navigate step %s has no url", step.ID)
		}
		if err := page.Navigate(ctx, target); err != nil {
			return "", nil, err
		}
		return page.URL(), nil, nil

	case planner.StepFindElement:
		sel, err := e.selectorFor(ctx, page, step, selector)
		if err != nil {
			return "", nil, err
		}
		return sel, nil, nil

	case planner.StepClick:
		sel, err := e.selectorFor(ctx, page, step, selector)
		if err != nil {
			return "", nil, err
		}
		if err := page.Click(ctx, sel); err != nil {
			return "", nil, fmt.Errorf("click %q: %w", sel, err)
		}
		return sel, nil, nil

	case planner.StepFillForm:
		return e.fillForm(ctx, page, step, selector)

	case planner.StepExtract:
		sel, err := e.selectorFor(ctx, page, step, selector)
		if err != nil {
			return "", nil, err
		}
		text, err := page.Text(ctx, sel)
		if err != nil {
			return "", nil, fmt.Errorf("extract %q: %w", sel, err)
		}
		return text, nil, nil

	case planner.StepScreenshot:
		shot, err := page.Screenshot(ctx)
		if err != nil {
			return "", nil, err
		}
		return "screenshot captured", shot, nil

	case planner.StepWait:
		if step.WaitForChanges != nil {
			// The post-step wait handler covers it.
			return "waited", nil, nil
		}
		d := time.Second
		if ms, err := strconv.Atoi(step.Data["ms"]); err == nil && ms > 0 {
			d = time.Duration(ms) * time.Millisecond
		}
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return "", nil, ctx.Err()
		}
		return "waited", nil, nil

	case planner.StepScroll:
		dx, _ := strconv.Atoi(step.Data["dx"])
		dy, err := strconv.Atoi(step.Data["dy"])
		if err != nil || dy == 0 {
			dy = 600
		}
		if err := page.Scroll(ctx, dx, dy); err != nil {
			return "", nil, err
		}
		return "scrolled", nil, nil

	default:
		return "", nil, fmt.Errorf("unknown step action %q", step.Action)
	}
}

// fillForm fills either a single resolved field with data["value"], or one
// field per data entry when the step carries several.
func (e *Executor) fillForm(ctx context.Context, page browser.Page, step *planner.Step, selector string) (string, []byte, error) {
	value, hasValue := step.Data["value"]
	if hasValue || len(step.Data) == 0 {
		sel, err := e.selectorFor(ctx, page, step, selector)
		if err != nil {
			return "", nil, err
		}
		if err := page.Fill(ctx, sel, value); err != nil {
			return "", nil, fmt.Errorf("fill %q: %w", sel, err)
		}
		return sel, nil, nil
	}

	var filled []string
	for field, v := range step.Data {
		sel, err := e.resolveDescription(ctx, page, field+" field")
		if err != nil {
			return "", nil, fmt.Errorf("locate field %q: %w", field, err)
		}
		if err := page.Fill(ctx, sel, v); err != nil {
			return "", nil, fmt.Errorf("fill field %q: %w", field, err)
		}
		filled = append(filled, field)
	}
	return "filled: " + strings.Join(filled, ", "), nil, nil
}

// selectorFor returns the CSS selector a step should act on. An explicit
// override wins; otherwise selector-looking targets pass through and plain
// descriptions go through element resolution.
func (e *Executor) selectorFor(ctx context.Context, page browser.Page, step *planner.Step, override string) (string, error) {
	if override != "" {
		return override, nil
	}
	target := step.Target
	if target == "" {
		return "", fmt.Errorf("step %s has no target", step.ID)
	}
	if looksLikeSelector(target) {
		return target, nil
	}
	return e.resolveDescription(ctx, page, target)
}

func (e *Executor) resolveDescription(ctx context.Context, page browser.Page, description string) (string, error) {
	if e.resolver == nil {
		return "", fmt.Errorf("no resolver configured for description %q", description)
	}
	found, err := e.resolver.FindElement(ctx, page, description)
	if err != nil {
		return "", err
	}
	e.record(ctx, page, description, found.Selector, found.Strategy, true)
	return found.Selector, nil
}

// looksLikeSelector distinguishes a literal CSS selector target from a
// natural-language element description.
func looksLikeSelector(s string) bool {
	if strings.ContainsAny(s, "#.[>:") {
		return true
	}
	switch strings.ToLower(s) {
	case "body", "input", "button", "form", "select", "textarea", "a", "nav":
		return true
	}
	return false
}
