package planner

import (
	"strings"

	"github.com/v0xg/autopilot/internal/analyzer"
	"github.com/v0xg/autopilot/internal/intent"
)

// generateTemplate builds the deterministic plan for the intent action,
// used when the understanding service is unavailable or returns invalid
// structure.
func (g *Generator) generateTemplate(in *intent.Intent, structure *analyzer.PageStructure) *Plan {
	var steps []*Step

	switch in.Action {
	case intent.ActionNavigate:
		steps = append(steps, navigateStep(in))

	case intent.ActionSearch:
		query := in.Data["query"]
		if query == "" {
			query = in.Target
		}
		steps = append(steps,
			&Step{Description: "find the search box", Action: StepFindElement, Target: "search box", RetryCount: DefaultRetryCount},
			&Step{Description: "enter the search query", Action: StepFillForm, Target: "search box",
				Data: map[string]string{"value": query}, RetryCount: DefaultRetryCount},
			&Step{Description: "submit the search", Action: StepClick, Target: "search button",
				WaitForChanges: &WaitCondition{Kind: WaitNetworkIdle, Timeout: DefaultElementTimeout}},
		)

	case intent.ActionPurchase:
		product := in.Data["product"]
		if product == "" {
			product = in.Target
		}
		// The price gate goes on the cart step: conditions are judged
		// before a step runs, so the gate needs the extract already done.
		priceConds := priceConditions(in)
		steps = append(steps,
			&Step{Description: "find the product", Action: StepFindElement, Target: product, RetryCount: DefaultRetryCount},
			&Step{Description: "check the listed price", Action: StepExtract, Target: "price",
				NonCritical: len(priceConds) == 0},
			&Step{Description: "add the product to the cart", Action: StepClick, Target: "add to cart",
				Conditions:     priceConds,
				WaitForChanges: &WaitCondition{Kind: WaitNetworkIdle, Timeout: DefaultElementTimeout}},
			&Step{Description: "proceed to checkout", Action: StepClick, Target: "checkout button",
				WaitForChanges: &WaitCondition{Kind: WaitURLContains, Value: "checkout", Timeout: DefaultElementTimeout}},
		)

	case intent.ActionLogin:
		steps = append(steps,
			&Step{Description: "find the username field", Action: StepFindElement, Target: "username field", RetryCount: DefaultRetryCount},
			&Step{Description: "enter the username", Action: StepFillForm, Target: "username field",
				RequiresUserInput: true, Data: map[string]string{"field": "username"}},
			&Step{Description: "find the password field", Action: StepFindElement, Target: "password field", RetryCount: DefaultRetryCount},
			&Step{Description: "enter the password", Action: StepFillForm, Target: "password field",
				RequiresUserInput: true, Data: map[string]string{"field": "password"}},
			&Step{Description: "submit the login form", Action: StepClick, Target: "login button",
				WaitForChanges: &WaitCondition{Kind: WaitNetworkIdle, Timeout: DefaultNavigationTimeout}},
		)

	case intent.ActionFillForm:
		steps = append(steps,
			&Step{Description: "find the form", Action: StepFindElement, Target: "main form", RetryCount: DefaultRetryCount},
			&Step{Description: "fill the form fields", Action: StepFillForm, Target: "main form",
				Data: in.Data, RequiresUserInput: len(in.Data) == 0},
			&Step{Description: "submit the form", Action: StepClick, Target: "submit button",
				WaitForChanges: &WaitCondition{Kind: WaitNetworkIdle, Timeout: DefaultElementTimeout}},
		)

	case intent.ActionClick:
		steps = append(steps,
			&Step{Description: "click " + in.Target, Action: StepClick, Target: in.Target, RetryCount: DefaultRetryCount},
		)

	case intent.ActionExtract:
		steps = append(steps,
			&Step{Description: "extract " + in.Target, Action: StepExtract, Target: in.Target, RetryCount: DefaultRetryCount},
		)

	case intent.ActionScreenshot:
		steps = append(steps,
			&Step{Description: "capture a screenshot", Action: StepScreenshot},
		)

	case intent.ActionScroll:
		steps = append(steps,
			&Step{Description: "scroll the page", Action: StepScroll, Data: map[string]string{"dy": "800"}},
		)

	case intent.ActionWait:
		steps = append(steps,
			&Step{Description: "wait for the page to settle", Action: StepWait,
				WaitForChanges: &WaitCondition{Kind: WaitNetworkIdle, Timeout: DefaultElementTimeout}},
		)

	default:
		// No recognizable action: navigate if a site is known, otherwise
		// fall back to a screenshot so the caller sees the page.
		if in.Website != "" {
			steps = append(steps, navigateStep(in))
		} else {
			steps = append(steps, &Step{Description: "capture the current page", Action: StepScreenshot, NonCritical: true})
		}
	}

	// Requests naming a site other than the current page start by going
	// there.
	if in.Website != "" && in.Action != intent.ActionNavigate {
		current := ""
		if structure != nil {
			current = structure.URL
		}
		if !strings.Contains(current, in.Website) {
			steps = append([]*Step{navigateStep(in)}, steps...)
		}
	}

	return &Plan{Steps: steps}
}

func navigateStep(in *intent.Intent) *Step {
	url := in.Data["url"]
	if url == "" {
		url = in.Website
	}
	if url == "" {
		url = in.Target
	}
	if url != "" && !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "https://" + url
	}
	return &Step{
		Description:    "navigate to " + url,
		Action:         StepNavigate,
		Target:         url,
		Timeout:        DefaultNavigationTimeout,
		RetryCount:     DefaultRetryCount,
		WaitForChanges: &WaitCondition{Kind: WaitNetworkIdle, Timeout: DefaultNavigationTimeout},
	}
}

func priceConditions(in *intent.Intent) []intent.Condition {
	var conds []intent.Condition
	for _, c := range in.Conditions {
		if c.Type == intent.ConditionPriceLimit {
			conds = append(conds, c)
		}
	}
	return conds
}
