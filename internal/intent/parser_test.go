package intent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/v0xg/autopilot/internal/llm"
)

func TestParseSearchRequestHeuristic(t *testing.T) {
	p := NewParser(nil, nil, nil)

	in, err := p.Parse(context.Background(), Input{Text: "Search for Python tutorials on YouTube"})
	require.NoError(t, err)

	assert.Equal(t, ActionSearch, in.Action)
	assert.Equal(t, "Python tutorials", in.Target)
	assert.Equal(t, "youtube.com", in.Website)
	assert.Equal(t, "Python tutorials", in.Data["query"])
	assert.InDelta(t, 0.95, in.Confidence, 1e-9)
}

func TestParseHeuristicActions(t *testing.T) {
	tests := []struct {
		text   string
		action Action
	}{
		{"Buy a coffee maker under $50 on amazon", ActionPurchase},
		{"Log in to my account", ActionLogin},
		{"Fill out the contact form", ActionFillForm},
		{"Click on the subscribe button", ActionClick},
		{"Extract the article headline", ActionExtract},
		{"Go to wikipedia.org", ActionNavigate},
		{"Scroll down a bit", ActionScroll},
		{"Take a screenshot of the page", ActionScreenshot},
		{"do something unusual", ActionUnknown},
	}
	p := NewParser(nil, nil, nil)
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			in, err := p.Parse(context.Background(), Input{Text: tt.text})
			require.NoError(t, err)
			assert.Equal(t, tt.action, in.Action)
		})
	}
}

func TestParsePriceCondition(t *testing.T) {
	p := NewParser(nil, nil, nil)

	in, err := p.Parse(context.Background(), Input{Text: "Buy a coffee maker under $50 on amazon"})
	require.NoError(t, err)

	require.Len(t, in.Conditions, 1)
	cond := in.Conditions[0]
	assert.Equal(t, ConditionPriceLimit, cond.Type)
	assert.Equal(t, OpLessThan, cond.Operator)
	assert.Equal(t, "50", cond.Value)
	assert.Equal(t, "USD", cond.Currency)
	assert.Equal(t, "amazon.com", in.Website)
}

func TestParseConstraints(t *testing.T) {
	p := NewParser(nil, nil, nil)

	in, err := p.Parse(context.Background(), Input{Text: "Search for news within 2 minutes, retry 3 times"})
	require.NoError(t, err)

	require.Len(t, in.Constraints, 2)
	assert.Equal(t, ConstraintTimeout, in.Constraints[0].Type)
	assert.Equal(t, 120, in.Constraints[0].Value)
	assert.Equal(t, ConstraintRetries, in.Constraints[1].Type)
	assert.Equal(t, 3, in.Constraints[1].Value)
}

func TestParseUsesServiceReply(t *testing.T) {
	fake := &llm.FakeClient{Replies: []string{
		`{"websites":["github.com"],"products":[],"prices":[],"dates":[],"contacts":[],"locations":[],"quantities":[]}`,
		`{"action":"search","target":"rod examples","website":"github.com","data":{"query":"rod examples"},"priority":3}`,
	}}
	p := NewParser(fake, nil, nil)

	in, err := p.Parse(context.Background(), Input{Text: "find rod examples on github"})
	require.NoError(t, err)

	assert.Equal(t, ActionSearch, in.Action)
	assert.Equal(t, "rod examples", in.Target)
	assert.Equal(t, "github.com", in.Website)
	assert.Equal(t, 2, fake.CallCount())
}

func TestParseDowngradesOnMalformedReply(t *testing.T) {
	fake := &llm.FakeClient{Replies: []string{"not json", "also not json"}}
	p := NewParser(fake, nil, nil)

	in, err := p.Parse(context.Background(), Input{Text: "Search for Python tutorials on YouTube"})
	require.NoError(t, err)

	assert.Equal(t, ActionSearch, in.Action)
	assert.Equal(t, "youtube.com", in.Website)
}

func TestParseRejectsEmptyInput(t *testing.T) {
	p := NewParser(nil, nil, nil)
	_, err := p.Parse(context.Background(), Input{Text: "   "})
	assert.Error(t, err)
}

func TestParseUrgentPriority(t *testing.T) {
	p := NewParser(nil, nil, nil)
	in, err := p.Parse(context.Background(), Input{Text: "urgent: search for train tickets"})
	require.NoError(t, err)
	assert.Equal(t, 5, in.Priority)
}

func TestScoreConfidenceCapped(t *testing.T) {
	in := &Intent{
		Action:     ActionPurchase,
		Target:     "coffee maker",
		Website:    "amazon.com",
		Conditions: []Condition{{Type: ConditionPriceLimit}},
	}
	entities := Entities{
		Websites: []string{"amazon.com"},
		Products: []string{"coffee maker"},
		Prices:   []string{"$50"},
		Dates:    []string{"tomorrow"},
	}
	// 0.5 + 0.2 + 0.1 + 0.1 + 3*0.05 + 0.05 would exceed 1.0.
	assert.Equal(t, 1.0, scoreConfidence(in, entities))
}

func TestClarifyIncompleteIntent(t *testing.T) {
	p := NewParser(nil, nil, nil)
	in, err := p.Parse(context.Background(), Input{Text: "do the thing"})
	require.NoError(t, err)

	clar := p.Clarify(in)
	require.NotNil(t, clar)
	assert.True(t, clar.NeedsClarification)
	assert.NotEmpty(t, clar.Questions)
	assert.NotEmpty(t, clar.Suggestions)
}

func TestClarifyCompleteIntent(t *testing.T) {
	p := NewParser(nil, nil, nil)
	in, err := p.Parse(context.Background(), Input{Text: "Search for Python tutorials on YouTube"})
	require.NoError(t, err)

	clar := p.Clarify(in)
	assert.False(t, clar.NeedsClarification)
}
