package intent

import "fmt"

// Clarification flags the intent fields that need user input before a plan
// can be trusted.
type Clarification struct {
	NeedsClarification bool     `json:"needs_clarification"`
	Fields             []string `json:"fields,omitempty"`
	Questions          []string `json:"questions,omitempty"`
	Suggestions        []string `json:"suggestions,omitempty"`
}

// Clarify inspects the intent for missing action, target, website or data
// and proposes example rephrasings.
func (p *Parser) Clarify(in *Intent) *Clarification {
	c := &Clarification{}

	if in.Action == ActionUnknown {
		c.Fields = append(c.Fields, "action")
		c.Questions = append(c.Questions, "What should I do? (search, buy, log in, fill a form, click something, extract data)")
		c.Suggestions = append(c.Suggestions, `"Search for wireless headphones on amazon.com"`)
	}
	if in.Target == "" {
		c.Fields = append(c.Fields, "target")
		c.Questions = append(c.Questions, "What is the target of the action (a product, query, or element)?")
		c.Suggestions = append(c.Suggestions, `"Click the login button"`)
	}
	if in.Website == "" && in.Action != ActionUnknown && in.Action != ActionWait {
		c.Fields = append(c.Fields, "website")
		c.Questions = append(c.Questions, "Which website should this run on?")
		if in.Target != "" {
			c.Suggestions = append(c.Suggestions, fmt.Sprintf("%q on google.com", in.OriginalInput))
		}
	}
	if needsData(in.Action) && len(in.Data) == 0 {
		c.Fields = append(c.Fields, "data")
		c.Questions = append(c.Questions, "What data should be used (credentials, form values, search query)?")
	}

	c.NeedsClarification = len(c.Fields) > 0
	return c
}

func needsData(action Action) bool {
	switch action {
	case ActionFillForm, ActionLogin, ActionSearch:
		return true
	default:
		return false
	}
}
