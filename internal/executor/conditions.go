package executor

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/v0xg/autopilot/internal/browser"
	"github.com/v0xg/autopilot/internal/intent"
)

var numberRe = regexp.MustCompile(`[\d]+(?:[.,]\d+)?`)

// checkConditions evaluates every condition attached to a step against the
// live page and the most recent extraction. A false result halts the run.
func checkConditions(ctx context.Context, page browser.Page, conds []intent.Condition, lastExtract string) (bool, string) {
	for _, c := range conds {
		ok, reason := checkCondition(ctx, page, c, lastExtract)
		if !ok {
			return false, reason
		}
	}
	return true, ""
}

func checkCondition(ctx context.Context, page browser.Page, c intent.Condition, lastExtract string) (bool, string) {
	switch c.Type {
	case intent.ConditionElementPresent:
		has, err := page.Has(c.Value)
		if err != nil {
			return false, fmt.Sprintf("element check %q: %v", c.Value, err)
		}
		if c.Operator == intent.OpNotExists {
			if has {
				return false, fmt.Sprintf("element %q present but required absent", c.Value)
			}
			return true, ""
		}
		if !has {
			return false, fmt.Sprintf("required element %q not present", c.Value)
		}
		return true, ""

	case intent.ConditionContentMatch:
		found := page.WaitTextContains(ctx, c.Value, 2*time.Second) == nil
		if c.Operator == intent.OpNotExists && found {
			return false, fmt.Sprintf("page contains forbidden text %q", c.Value)
		}
		if c.Operator != intent.OpNotExists && !found {
			return false, fmt.Sprintf("page does not contain %q", c.Value)
		}
		return true, ""

	case intent.ConditionPriceLimit:
		got, ok := parseAmount(lastExtract)
		if !ok {
			// Nothing extracted yet; the condition cannot be judged and
			// must not block the run.
			return true, ""
		}
		want, ok := parseAmount(c.Value)
		if !ok {
			return true, ""
		}
		switch c.Operator {
		case intent.OpLessThan:
			if got >= want {
				return false, fmt.Sprintf("price %.2f not under limit %.2f", got, want)
			}
		case intent.OpGreaterThan:
			if got <= want {
				return false, fmt.Sprintf("price %.2f not above %.2f", got, want)
			}
		case intent.OpEquals:
			if got != want {
				return false, fmt.Sprintf("price %.2f does not equal %.2f", got, want)
			}
		}
		return true, ""

	case intent.ConditionAvailability:
		if page.WaitTextContains(ctx, "out of stock", 2*time.Second) == nil {
			return false, "item is out of stock"
		}
		return true, ""

	default:
		// time_limit is enforced through step timeouts; custom conditions
		// are advisory.
		return true, ""
	}
}

func parseAmount(s string) (float64, bool) {
	m := numberRe.FindString(s)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
