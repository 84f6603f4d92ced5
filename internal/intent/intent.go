// Package intent converts free-form automation requests into structured
// automation intents.
package intent

import "time"

// Action is the primary automation action of an intent.
type Action string

const (
	ActionNavigate   Action = "navigate"
	ActionSearch     Action = "search"
	ActionFillForm   Action = "fill_form"
	ActionClick      Action = "click"
	ActionExtract    Action = "extract"
	ActionPurchase   Action = "purchase"
	ActionLogin      Action = "login"
	ActionUpload     Action = "upload"
	ActionDownload   Action = "download"
	ActionScroll     Action = "scroll"
	ActionWait       Action = "wait"
	ActionScreenshot Action = "screenshot"
	ActionUnknown    Action = "unknown"
)

// knownActions is the closed set accepted from the understanding service.
var knownActions = map[Action]bool{
	ActionNavigate: true, ActionSearch: true, ActionFillForm: true,
	ActionClick: true, ActionExtract: true, ActionPurchase: true,
	ActionLogin: true, ActionUpload: true, ActionDownload: true,
	ActionScroll: true, ActionWait: true, ActionScreenshot: true,
	ActionUnknown: true,
}

// ConditionType classifies a condition attached to an intent or step.
type ConditionType string

const (
	ConditionPriceLimit     ConditionType = "price_limit"
	ConditionAvailability   ConditionType = "availability"
	ConditionTimeLimit      ConditionType = "time_limit"
	ConditionContentMatch   ConditionType = "content_match"
	ConditionElementPresent ConditionType = "element_present"
	ConditionCustom         ConditionType = "custom"
)

// Operator compares a condition field against its value.
type Operator string

const (
	OpLessThan    Operator = "less_than"
	OpGreaterThan Operator = "greater_than"
	OpEquals      Operator = "equals"
	OpContains    Operator = "contains"
	OpExists      Operator = "exists"
	OpNotExists   Operator = "not_exists"
)

// Condition constrains when an automation may proceed.
type Condition struct {
	Type     ConditionType `json:"type"`
	Field    string        `json:"field,omitempty"`
	Operator Operator      `json:"operator"`
	Value    string        `json:"value,omitempty"`
	Currency string        `json:"currency,omitempty"`
	Unit     string        `json:"unit,omitempty"`
}

// ConstraintType classifies an execution constraint.
type ConstraintType string

const (
	ConstraintTimeout ConstraintType = "timeout"
	ConstraintRetries ConstraintType = "retries"
)

// Constraint bounds execution (timeout in seconds, retry count).
type Constraint struct {
	Type  ConstraintType `json:"type"`
	Value int            `json:"value"`
}

// Intent is the structured representation of what the user wants automated.
// Immutable after creation.
type Intent struct {
	Action        Action            `json:"action"`
	Target        string            `json:"target"`
	Website       string            `json:"website,omitempty"`
	Data          map[string]string `json:"data,omitempty"`
	Conditions    []Condition       `json:"conditions,omitempty"`
	Constraints   []Constraint      `json:"constraints,omitempty"`
	Priority      int               `json:"priority"` // 1..5
	Confidence    float64           `json:"confidence"`
	OriginalInput string            `json:"original_input"`
	ParsedAt      time.Time         `json:"parsed_at"`
}

// Entities are the categories recognized in the request text.
type Entities struct {
	Websites   []string `json:"websites,omitempty"`
	Products   []string `json:"products,omitempty"`
	Prices     []string `json:"prices,omitempty"`
	Dates      []string `json:"dates,omitempty"`
	Contacts   []string `json:"contacts,omitempty"`
	Locations  []string `json:"locations,omitempty"`
	Quantities []string `json:"quantities,omitempty"`
}

// Categories counts the non-empty entity categories.
func (e Entities) Categories() int {
	n := 0
	for _, group := range [][]string{e.Websites, e.Products, e.Prices, e.Dates, e.Contacts, e.Locations, e.Quantities} {
		if len(group) > 0 {
			n++
		}
	}
	return n
}
