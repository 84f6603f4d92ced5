// Package validator grades a finished automation run from its per-step
// outcomes.
package validator

import (
	"go.uber.org/zap"

	"github.com/v0xg/autopilot/internal/executor"
)

// Verdict is the graded outcome of an automation run.
type Verdict struct {
	IsValid      bool    `json:"is_valid"`
	Confidence   float64 `json:"confidence"`
	Error        string  `json:"error,omitempty"`
	UserGuidance string  `json:"user_guidance,omitempty"`
}

// Validator computes a verdict from execution results.
type Validator struct {
	logger *zap.Logger
}

// New creates a validator. The logger may be nil.
func New(logger *zap.Logger) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Validator{logger: logger.With(zap.String("component", "validator"))}
}

// Validate grades the run by its step success ratio. A ratio of 0.8 or more
// is a pass; between 0.5 and 0.8 the run partially completed; below 0.5 it
// failed outright.
func (v *Validator) Validate(results []*executor.ExecutionResult) *Verdict {
	if len(results) == 0 {
		return &Verdict{
			Confidence:   0,
			Error:        "Automation failed",
			UserGuidance: "No steps were executed. Check that the request could be understood.",
		}
	}

	succeeded := 0
	var firstFailure *executor.ExecutionResult
	for _, r := range results {
		if r.Success {
			succeeded++
		} else if firstFailure == nil {
			firstFailure = r
		}
	}
	confidence := float64(succeeded) / float64(len(results))

	verdict := &Verdict{Confidence: confidence}
	switch {
	case confidence >= 0.8:
		verdict.IsValid = true
		verdict.UserGuidance = "Automation completed successfully."
	case confidence >= 0.5:
		verdict.Error = "Partial automation completed"
		verdict.UserGuidance = guidance(firstFailure,
			"Some steps could not be completed. Review the page and retry the remaining actions manually.")
	default:
		verdict.Error = "Automation failed"
		verdict.UserGuidance = guidance(firstFailure,
			"Most steps failed. The page layout may have changed or the site may be unavailable.")
	}

	v.logger.Info("run validated",
		zap.Int("steps", len(results)),
		zap.Int("succeeded", succeeded),
		zap.Float64("confidence", confidence),
		zap.Bool("valid", verdict.IsValid))
	return verdict
}

func guidance(failure *executor.ExecutionResult, fallback string) string {
	if failure == nil {
		return fallback
	}
	return "Step \"" + failure.Description + "\" failed: " + failure.Error + ". " + fallback
}
