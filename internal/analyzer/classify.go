package analyzer

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/v0xg/autopilot/internal/browser"
	"github.com/v0xg/autopilot/internal/llm"
)

// classifierClient is the slice of llm.Client the analyzer needs.
type classifierClient interface {
	Complete(ctx context.Context, messages []llm.Message) (string, error)
}

// classifier resolves page types and button sub-types, asking the
// understanding service first and falling back to deterministic rules on any
// failure.
type classifier struct {
	client classifierClient
	logger *zap.Logger
}

const pageTypeSystemPrompt = `You classify web pages by their interactive structure.
Respond ONLY with a JSON object, no explanation or markdown:
{"page_type":"..."}
"page_type" must be one of: login, form, ecommerce, dashboard, search, content, unknown.`

var knownPageTypes = map[PageType]bool{
	PageLogin: true, PageForm: true, PageEcommerce: true,
	PageDashboard: true, PageSearch: true, PageContent: true, PageUnknown: true,
}

func (c *classifier) pageType(ctx context.Context, snap *browser.Snapshot) PageType {
	if c.client != nil {
		prompt := fmt.Sprintf(
			"URL: %s\nTitle: %s\nForms: %d, buttons: %d, inputs: %d, links: %d\nIndicators: login=%t search=%t contact=%t cart=%t nav=%t",
			snap.URL, snap.Title,
			snap.Counts.Forms, snap.Counts.Buttons, snap.Counts.Inputs, snap.Counts.Links,
			snap.Counts.HasLogin, snap.Counts.HasSearch, snap.Counts.HasContact, snap.Counts.HasCart, snap.Counts.HasNav,
		)
		reply, err := c.client.Complete(ctx, []llm.Message{
			{Role: llm.RoleSystem, Content: pageTypeSystemPrompt},
			{Role: llm.RoleUser, Content: prompt},
		})
		if err == nil {
			if pt := PageType(llm.Field(reply, "page_type").String()); knownPageTypes[pt] {
				return pt
			}
		}
		c.logger.Debug("page-type classification downgraded to heuristics")
	}
	return heuristicPageType(snap.Counts)
}

// heuristicPageType applies the deterministic classification rules, in
// order.
func heuristicPageType(counts browser.Counts) PageType {
	switch {
	case counts.HasLogin && counts.Inputs >= 2:
		return PageLogin
	case counts.HasCart:
		return PageEcommerce
	case counts.Inputs >= 2 && counts.Forms > 0:
		return PageForm
	case counts.HasSearch:
		return PageSearch
	case counts.Interactive < 10 && counts.Forms == 0:
		return PageContent
	default:
		return PageUnknown
	}
}

const buttonSystemPrompt = `You classify buttons on a web page by what they do.
Respond ONLY with a JSON array of strings, one per button, no explanation or markdown.
Each entry must be one of: submit, link, action, navigation, unknown.`

// buttonSubTypes classifies the buttons in place, one understanding-service
// call for the whole set.
func (c *classifier) buttonSubTypes(ctx context.Context, buttons []Button) {
	if len(buttons) == 0 {
		return
	}

	if c.client != nil {
		var sb strings.Builder
		for i, b := range buttons {
			fmt.Fprintf(&sb, "%d. %s\n", i+1, b.Label())
		}
		reply, err := c.client.Complete(ctx, []llm.Message{
			{Role: llm.RoleSystem, Content: buttonSystemPrompt},
			{Role: llm.RoleUser, Content: sb.String()},
		})
		if err == nil {
			var decoded []string
			if derr := llm.DecodeArray(reply, &decoded); derr == nil && len(decoded) == len(buttons) {
				valid := true
				for i := range decoded {
					if !knownButtonSubTypes[ButtonSubType(decoded[i])] {
						valid = false
						break
					}
				}
				if valid {
					for i := range buttons {
						buttons[i].SubType = ButtonSubType(decoded[i])
					}
					return
				}
			}
		}
		c.logger.Debug("button classification downgraded to heuristics")
	}

	for i := range buttons {
		buttons[i].SubType = heuristicButtonSubType(buttons[i].Element)
	}
}

var knownButtonSubTypes = map[ButtonSubType]bool{
	ButtonSubmit: true, ButtonLink: true, ButtonAction: true,
	ButtonNavigation: true, ButtonUnknown: true,
}

var (
	submitWords = []string{"submit", "save", "send", "login", "log in", "sign in", "sign up", "register", "search", "continue", "confirm"}
	navWords    = []string{"next", "back", "previous", "home", "menu", "more"}
)

func heuristicButtonSubType(el browser.Element) ButtonSubType {
	text := strings.ToLower(el.Text + " " + el.AriaLabel)
	switch {
	case containsAny(text, submitWords):
		return ButtonSubmit
	case containsAny(text, navWords):
		return ButtonNavigation
	case el.Tag == "a":
		return ButtonLink
	case text != "":
		return ButtonAction
	default:
		return ButtonUnknown
	}
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
