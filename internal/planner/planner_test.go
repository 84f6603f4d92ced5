package planner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/v0xg/autopilot/internal/analyzer"
	"github.com/v0xg/autopilot/internal/intent"
	"github.com/v0xg/autopilot/internal/llm"
	"github.com/v0xg/autopilot/internal/memory"
)

func searchIntent() *intent.Intent {
	return &intent.Intent{
		Action:     intent.ActionSearch,
		Target:     "Python tutorials",
		Website:    "youtube.com",
		Data:       map[string]string{"query": "Python tutorials"},
		Priority:   3,
		Confidence: 0.95,
	}
}

func TestTemplateSearchPlan(t *testing.T) {
	g := NewGenerator(nil, nil, nil)

	plan, err := g.Generate(context.Background(), searchIntent(), nil)
	require.NoError(t, err)

	assert.Equal(t, "template", plan.Source)
	require.Len(t, plan.Steps, 4)

	assert.Equal(t, StepNavigate, plan.Steps[0].Action)
	assert.Equal(t, "https://youtube.com", plan.Steps[0].Target)
	assert.Equal(t, StepFindElement, plan.Steps[1].Action)
	assert.Equal(t, "search box", plan.Steps[1].Target)
	assert.Equal(t, StepFillForm, plan.Steps[2].Action)
	assert.Equal(t, "Python tutorials", plan.Steps[2].Data["value"])
	assert.Equal(t, StepClick, plan.Steps[3].Action)
	require.NotNil(t, plan.Steps[3].WaitForChanges)
	assert.Equal(t, WaitNetworkIdle, plan.Steps[3].WaitForChanges.Kind)
}

func TestTemplateSkipsNavigateWhenAlreadyThere(t *testing.T) {
	g := NewGenerator(nil, nil, nil)
	structure := &analyzer.PageStructure{URL: "https://www.youtube.com/"}

	plan, err := g.Generate(context.Background(), searchIntent(), structure)
	require.NoError(t, err)

	require.Len(t, plan.Steps, 3)
	assert.Equal(t, StepFindElement, plan.Steps[0].Action)
}

func TestTemplateLoginPlan(t *testing.T) {
	g := NewGenerator(nil, nil, nil)
	in := &intent.Intent{Action: intent.ActionLogin, Target: "my account", Website: "example.com", Priority: 3, Confidence: 0.9}

	plan, err := g.Generate(context.Background(), in, nil)
	require.NoError(t, err)

	require.Len(t, plan.Steps, 6) // navigate + 5 login steps

	var userInputSteps int
	for _, s := range plan.Steps {
		if s.RequiresUserInput {
			userInputSteps++
			assert.Equal(t, StepFillForm, s.Action)
			assert.Empty(t, s.Data["value"], "credentials are never baked into the plan")
		}
	}
	assert.Equal(t, 2, userInputSteps)
}

func TestTemplatePurchasePlanCarriesPriceCondition(t *testing.T) {
	g := NewGenerator(nil, nil, nil)
	in := &intent.Intent{
		Action:   intent.ActionPurchase,
		Target:   "coffee maker",
		Website:  "amazon.com",
		Data:     map[string]string{"product": "coffee maker"},
		Priority: 3,
		Conditions: []intent.Condition{
			{Type: intent.ConditionPriceLimit, Field: "price", Operator: intent.OpLessThan, Value: "50", Currency: "USD"},
		},
		Confidence: 1.0,
	}

	plan, err := g.Generate(context.Background(), in, nil)
	require.NoError(t, err)
	require.Len(t, plan.Steps, 5) // navigate + find + extract + cart + checkout

	extract := plan.Steps[2]
	cart := plan.Steps[3]
	checkout := plan.Steps[4]

	assert.Equal(t, StepExtract, extract.Action)
	assert.False(t, extract.NonCritical, "the price read is critical when a limit is set")
	assert.Empty(t, extract.Conditions)

	// The limit gates the cart click, which runs after the price extract.
	assert.Equal(t, StepClick, cart.Action)
	require.Len(t, cart.Conditions, 1)
	assert.Equal(t, intent.ConditionPriceLimit, cart.Conditions[0].Type)

	assert.Equal(t, StepClick, checkout.Action)
	require.NotNil(t, checkout.WaitForChanges)
	assert.Equal(t, WaitURLContains, checkout.WaitForChanges.Kind)
	assert.Equal(t, "checkout", checkout.WaitForChanges.Value)
}

func TestFinalizeDefaults(t *testing.T) {
	g := NewGenerator(nil, nil, nil)

	plan, err := g.Generate(context.Background(), searchIntent(), nil)
	require.NoError(t, err)

	ids := map[string]bool{}
	for _, s := range plan.Steps {
		assert.NotEmpty(t, s.ID)
		assert.False(t, ids[s.ID], "step IDs must be unique")
		ids[s.ID] = true
		assert.Equal(t, StatusPending, s.Status)
		assert.Greater(t, s.Timeout, time.Duration(0))
		assert.NotNil(t, s.Data)
	}
	assert.Greater(t, plan.EstimatedDuration, time.Duration(0))
	require.Len(t, plan.Fallbacks, 1)
	assert.Equal(t, FallbackAlternativeSelector, plan.Fallbacks[0].Type)
	assert.InDelta(t, 0.95*0.85, plan.Confidence, 1e-9)
}

func TestConstraintsOverrideStepDefaults(t *testing.T) {
	g := NewGenerator(nil, nil, nil)
	in := searchIntent()
	in.Constraints = []intent.Constraint{
		{Type: intent.ConstraintTimeout, Value: 45},
		{Type: intent.ConstraintRetries, Value: 5},
	}

	plan, err := g.Generate(context.Background(), in, nil)
	require.NoError(t, err)

	for _, s := range plan.Steps {
		assert.Equal(t, 45*time.Second, s.Timeout)
		assert.Equal(t, 5, s.RetryCount)
	}
}

func TestGenerateFromServiceReply(t *testing.T) {
	reply := `[
	  {"description":"open the site","action":"navigate","target":"https://youtube.com","timeout_ms":30000},
	  {"description":"search","action":"fill_form","target":"search box","data":{"value":"Python tutorials"},
	   "wait_for":{"kind":"network_idle","timeout_ms":10000}}
	]`
	fake := &llm.FakeClient{Replies: []string{reply}}
	g := NewGenerator(fake, nil, nil)

	plan, err := g.Generate(context.Background(), searchIntent(), nil)
	require.NoError(t, err)

	assert.Equal(t, "llm", plan.Source)
	require.Len(t, plan.Steps, 2)
	assert.Equal(t, StepNavigate, plan.Steps[0].Action)
	assert.Equal(t, 30*time.Second, plan.Steps[0].Timeout)
	require.NotNil(t, plan.Steps[1].WaitForChanges)
	assert.Equal(t, WaitNetworkIdle, plan.Steps[1].WaitForChanges.Kind)
	assert.InDelta(t, 0.95*0.95, plan.Confidence, 1e-9)
}

func TestGenerateRejectsUnknownActions(t *testing.T) {
	fake := &llm.FakeClient{Replies: []string{`[{"description":"levitate","action":"levitate"}]`}}
	g := NewGenerator(fake, nil, nil)

	plan, err := g.Generate(context.Background(), searchIntent(), nil)
	require.NoError(t, err)
	assert.Equal(t, "template", plan.Source, "unknown actions discard the whole service reply")
}

func TestPromptCarriesLearningHints(t *testing.T) {
	store := memory.NewInMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.RecordOutcome(ctx, "youtube.com", "Python tutorials", `input[name="search_query"]`, "semantic_mapping", true))

	fake := &llm.FakeClient{Replies: []string{"not json, forces template"}}
	g := NewGenerator(fake, store, nil)

	_, err := g.Generate(ctx, searchIntent(), nil)
	require.NoError(t, err)

	require.Equal(t, 1, fake.CallCount())
	prompt := fake.Calls[0][1].Content
	assert.Contains(t, prompt, `input[name="search_query"]`)
	assert.Contains(t, prompt, "success_rate=1.00")
	assert.Contains(t, prompt, "usage_count=1")
}
