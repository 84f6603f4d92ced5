// Package planner combines an intent and a page structure into an ordered,
// annotated step plan.
package planner

import (
	"time"

	"github.com/v0xg/autopilot/internal/intent"
)

// StepAction is the executable action of a plan step.
type StepAction string

const (
	StepNavigate    StepAction = "navigate"
	StepFindElement StepAction = "find_element"
	StepClick       StepAction = "click"
	StepFillForm    StepAction = "fill_form"
	StepExtract     StepAction = "extract"
	StepScreenshot  StepAction = "screenshot"
	StepWait        StepAction = "wait"
	StepScroll      StepAction = "scroll"
)

// knownStepActions validates actions coming from the understanding service.
var knownStepActions = map[StepAction]bool{
	StepNavigate: true, StepFindElement: true, StepClick: true,
	StepFillForm: true, StepExtract: true, StepScreenshot: true,
	StepWait: true, StepScroll: true,
}

// StepStatus is the executor-owned lifecycle state of a step.
type StepStatus string

const (
	StatusPending    StepStatus = "pending"
	StatusInProgress StepStatus = "in_progress"
	StatusCompleted  StepStatus = "completed"
	StatusFailed     StepStatus = "failed"
)

// WaitKind describes the page change a step waits for after completing.
type WaitKind string

const (
	WaitElementAppears WaitKind = "element_appears"
	WaitTextAppears    WaitKind = "text_appears"
	WaitURLContains    WaitKind = "url_contains"
	WaitNetworkIdle    WaitKind = "network_idle"
	WaitElapsed        WaitKind = "elapsed"
)

// WaitCondition blocks execution until the described change occurs or its
// timeout elapses.
type WaitCondition struct {
	Kind    WaitKind      `json:"kind"`
	Value   string        `json:"value,omitempty"` // selector, text or URL substring
	Elapsed time.Duration `json:"elapsed,omitempty"`
	Timeout time.Duration `json:"timeout,omitempty"`
}

// Step is one atomic, independently retryable unit of execution. Status is
// mutated only by the executor; everything else is fixed at generation.
type Step struct {
	ID                string             `json:"id"`
	Description       string             `json:"description"`
	Action            StepAction         `json:"action"`
	Target            string             `json:"target,omitempty"`
	Data              map[string]string  `json:"data,omitempty"`
	Conditions        []intent.Condition `json:"conditions,omitempty"`
	DependsOn         []string           `json:"depends_on,omitempty"`
	RequiresUserInput bool               `json:"requires_user_input,omitempty"`
	WaitForChanges    *WaitCondition     `json:"wait_for_changes,omitempty"`
	Timeout           time.Duration      `json:"timeout"`
	RetryCount        int                `json:"retry_count"`
	Priority          int                `json:"priority"`
	NonCritical       bool               `json:"non_critical,omitempty"`
	Status            StepStatus         `json:"status"`
}

// Fallback is an alternative tried when a step's primary execution fails.
type Fallback struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

// FallbackAlternativeSelector retries a failed step with the next viable
// selector suggestion. Every generated plan carries it.
const FallbackAlternativeSelector = "alternative_selector"

// Plan is an ordered, annotated step list. Immutable once generated except
// for step-status mutation during execution.
type Plan struct {
	Steps             []*Step       `json:"steps"`
	EstimatedDuration time.Duration `json:"estimated_duration"`
	Confidence        float64       `json:"confidence"`
	Fallbacks         []Fallback    `json:"fallbacks"`
	Source            string        `json:"source"` // llm or template
}

// Defaults applied to steps missing explicit settings.
const (
	DefaultNavigationTimeout = 30 * time.Second
	DefaultElementTimeout    = 10 * time.Second
	DefaultRetryCount        = 2
)

func defaultTimeout(action StepAction) time.Duration {
	if action == StepNavigate {
		return DefaultNavigationTimeout
	}
	return DefaultElementTimeout
}
