package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/v0xg/autopilot/internal/browser"
	"github.com/v0xg/autopilot/internal/planner"
)

// waitFor blocks until the condition holds or its timeout elapses.
func waitFor(ctx context.Context, page browser.Page, cond *planner.WaitCondition) error {
	if cond == nil {
		return nil
	}
	timeout := cond.Timeout
	if timeout <= 0 {
		timeout = planner.DefaultElementTimeout
	}

	switch cond.Kind {
	case planner.WaitElementAppears:
		if err := page.WaitSelector(ctx, cond.Value, timeout); err != nil {
			return fmt.Errorf("wait for element %q: %w", cond.Value, err)
		}
	case planner.WaitTextAppears:
		if err := page.WaitTextContains(ctx, cond.Value, timeout); err != nil {
			return fmt.Errorf("wait for text %q: %w", cond.Value, err)
		}
	case planner.WaitURLContains:
		if err := page.WaitURLContains(ctx, cond.Value, timeout); err != nil {
			return fmt.Errorf("wait for url %q: %w", cond.Value, err)
		}
	case planner.WaitNetworkIdle:
		if err := page.WaitIdle(ctx, timeout); err != nil {
			return fmt.Errorf("wait for network idle: %w", err)
		}
	case planner.WaitElapsed:
		d := cond.Elapsed
		if d <= 0 {
			d = time.Second
		}
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return ctx.Err()
		}
	default:
		return fmt.Errorf("unknown wait condition %q", cond.Kind)
	}
	return nil
}
