package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/v0xg/autopilot/internal/executor"
)

func results(successes, failures int) []*executor.ExecutionResult {
	var out []*executor.ExecutionResult
	for i := 0; i < successes; i++ {
		out = append(out, &executor.ExecutionResult{StepID: "s", Success: true})
	}
	for i := 0; i < failures; i++ {
		out = append(out, &executor.ExecutionResult{
			StepID:      "f",
			Description: "click the checkout button",
			Error:       "element not found",
		})
	}
	return out
}

func TestValidateHighSuccessRate(t *testing.T) {
	v := New(nil)

	verdict := v.Validate(results(5, 1)) // 5 of 6
	require.NotNil(t, verdict)

	assert.True(t, verdict.IsValid)
	assert.InDelta(t, 5.0/6.0, verdict.Confidence, 1e-9)
	assert.Empty(t, verdict.Error)
	assert.Contains(t, verdict.UserGuidance, "completed successfully")
}

func TestValidatePartialCompletion(t *testing.T) {
	v := New(nil)

	verdict := v.Validate(results(3, 2)) // 0.6

	assert.False(t, verdict.IsValid)
	assert.InDelta(t, 0.6, verdict.Confidence, 1e-9)
	assert.Equal(t, "Partial automation completed", verdict.Error)
	assert.Contains(t, verdict.UserGuidance, "checkout button")
}

func TestValidateLowSuccessRate(t *testing.T) {
	v := New(nil)

	verdict := v.Validate(results(2, 3)) // 0.4

	assert.False(t, verdict.IsValid)
	assert.InDelta(t, 0.4, verdict.Confidence, 1e-9)
	assert.Equal(t, "Automation failed", verdict.Error)
	assert.NotEmpty(t, verdict.UserGuidance)
}

func TestValidateBoundaries(t *testing.T) {
	v := New(nil)

	atPass := v.Validate(results(4, 1)) // exactly 0.8
	assert.True(t, atPass.IsValid)

	atPartial := v.Validate(results(1, 1)) // exactly 0.5
	assert.False(t, atPartial.IsValid)
	assert.Equal(t, "Partial automation completed", atPartial.Error)
}

func TestValidateEmptyRun(t *testing.T) {
	v := New(nil)

	verdict := v.Validate(nil)
	assert.False(t, verdict.IsValid)
	assert.Equal(t, "Automation failed", verdict.Error)
	assert.Zero(t, verdict.Confidence)
}
