package analyzer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/v0xg/autopilot/internal/browser"
	"github.com/v0xg/autopilot/internal/llm"
)

func loginSnapshot() *browser.Snapshot {
	return &browser.Snapshot{
		URL:   "https://example.com/login",
		Title: "Sign in",
		Elements: []browser.Element{
			{Selector: "form#login", Tag: "form", Type: "form", Visible: true},
			{Selector: `input[name="username"]`, Tag: "input", Type: "text", Name: "username", Visible: true},
			{Selector: `input[name="password"]`, Tag: "input", Type: "password", Name: "password", Visible: true},
			{Selector: `[type="submit"]`, Tag: "button", Type: "button", Text: "Sign in", Visible: true},
			{Selector: `a[href="/help"]`, Tag: "a", Type: "link", Text: "Help", Visible: true},
		},
		Counts: browser.Counts{
			Forms: 1, Buttons: 1, Inputs: 2, Links: 1, Interactive: 5,
			HasLogin: true, HasNav: false,
		},
	}
}

func TestAnalyzeCategorizesElements(t *testing.T) {
	page := browser.NewFakePage("https://example.com/login", "Sign in", loginSnapshot())
	a := New(nil, nil)

	s, err := a.Analyze(context.Background(), page)
	require.NoError(t, err)

	assert.Len(t, s.Elements.Forms, 1)
	assert.Len(t, s.Elements.Buttons, 1)
	assert.Len(t, s.Elements.Inputs, 2)
	assert.Len(t, s.Elements.Links, 1)
	assert.Equal(t, PageLogin, s.PageType)
	assert.Equal(t, ButtonSubmit, s.Elements.Buttons[0].SubType)
	assert.Contains(t, s.Patterns, "data-entry")
	assert.Contains(t, s.Patterns, "authentication")
}

func TestAnalyzeCachesByURL(t *testing.T) {
	page := browser.NewFakePage("https://example.com/login", "Sign in", loginSnapshot())
	a := New(nil, nil)
	ctx := context.Background()

	first, err := a.Analyze(ctx, page)
	require.NoError(t, err)
	second, err := a.Analyze(ctx, page)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, page.SnapshotCalls, "second analysis must be served from cache")
}

func TestAnalyzeCacheExpires(t *testing.T) {
	page := browser.NewFakePage("https://example.com/login", "Sign in", loginSnapshot())
	a := New(nil, nil, WithTTL(time.Millisecond))
	ctx := context.Background()

	_, err := a.Analyze(ctx, page)
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	_, err = a.Analyze(ctx, page)
	require.NoError(t, err)

	assert.Equal(t, 2, page.SnapshotCalls)
}

func TestInvalidateForcesReanalysis(t *testing.T) {
	page := browser.NewFakePage("https://example.com/login", "Sign in", loginSnapshot())
	a := New(nil, nil)
	ctx := context.Background()

	_, err := a.Analyze(ctx, page)
	require.NoError(t, err)
	a.Invalidate("https://example.com/login")
	_, err = a.Analyze(ctx, page)
	require.NoError(t, err)

	assert.Equal(t, 2, page.SnapshotCalls)
}

func TestAnalyzeUsesServiceClassification(t *testing.T) {
	fake := &llm.FakeClient{Replies: []string{
		`{"page_type":"login","confidence":0.9}`,
		`["submit"]`,
	}}
	page := browser.NewFakePage("https://example.com/login", "Sign in", loginSnapshot())
	a := New(fake, nil)

	s, err := a.Analyze(context.Background(), page)
	require.NoError(t, err)
	assert.Equal(t, PageLogin, s.PageType)
	assert.Equal(t, ButtonSubmit, s.Elements.Buttons[0].SubType)
}

func TestHeuristicPageType(t *testing.T) {
	tests := []struct {
		name   string
		counts browser.Counts
		want   PageType
	}{
		{"login", browser.Counts{HasLogin: true, Inputs: 2}, PageLogin},
		{"ecommerce", browser.Counts{HasCart: true}, PageEcommerce},
		{"form", browser.Counts{Forms: 1, Inputs: 3}, PageForm},
		{"search", browser.Counts{HasSearch: true, Inputs: 1}, PageSearch},
		{"content", browser.Counts{Links: 3, Interactive: 3}, PageContent},
		{"unknown", browser.Counts{Interactive: 40}, PageUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, heuristicPageType(tt.counts))
		})
	}
}

func TestStructureConfidence(t *testing.T) {
	s := &PageStructure{
		Counts: browser.Counts{Interactive: 5},
		Elements: Elements{
			Forms:   []browser.Element{{}},
			Buttons: []Button{{}},
			Inputs:  []browser.Element{{}},
		},
		Patterns: []string{"data-entry", "authentication"},
	}
	// 0.3 + 0.2 + 0.1 + 0.1 + 0.1 + 2*0.05
	assert.InDelta(t, 0.9, structureConfidence(s), 1e-9)
}
