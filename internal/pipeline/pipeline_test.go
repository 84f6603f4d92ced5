package pipeline

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/v0xg/autopilot/internal/analyzer"
	"github.com/v0xg/autopilot/internal/browser"
	"github.com/v0xg/autopilot/internal/executor"
	"github.com/v0xg/autopilot/internal/intent"
	"github.com/v0xg/autopilot/internal/memory"
	"github.com/v0xg/autopilot/internal/planner"
	"github.com/v0xg/autopilot/internal/resolver"
	"github.com/v0xg/autopilot/internal/validator"
)

type fakeSource struct {
	page browser.Page
	url  string
	err  error
}

func (f *fakeSource) ObtainPage(url string) (browser.Page, error) {
	f.url = url
	if f.err != nil {
		return nil, f.err
	}
	return f.page, nil
}

func newTestPipeline(source PageSource, store memory.Store) *Pipeline {
	structures := analyzer.New(nil, nil)
	res := resolver.New(structures, nil, nil)
	return New(
		intent.NewParser(nil, nil, nil),
		structures,
		planner.NewGenerator(nil, store, nil),
		executor.New(res, store, executor.NewInputBroker(), nil),
		validator.New(nil),
		source,
		nil,
	)
}

func searchPage() *browser.FakePage {
	snap := &browser.Snapshot{
		URL:   "https://youtube.com",
		Title: "YouTube",
		Elements: []browser.Element{
			{Selector: `input[name="q"]`, Tag: "input", Type: "search", Name: "q", Visible: true},
			{Selector: `button[type="submit"]`, Tag: "button", Type: "button", Text: "Search", Visible: true},
		},
		Counts: browser.Counts{Inputs: 1, Buttons: 1, Interactive: 2, HasSearch: true},
	}
	return browser.NewFakePage("https://youtube.com", "YouTube", snap)
}

func TestRunSearchEndToEnd(t *testing.T) {
	page := searchPage()
	source := &fakeSource{page: page}
	p := newTestPipeline(source, memory.NewInMemoryStore())

	result, err := p.Run(context.Background(), Request{Text: "Search for Python tutorials on YouTube"})
	require.NoError(t, err)

	assert.True(t, result.Success, result.UserGuidance)
	assert.Equal(t, "https://youtube.com", source.url)
	require.NotNil(t, result.Intent)
	assert.Equal(t, intent.ActionSearch, result.Intent.Action)
	require.NotNil(t, result.Structure)
	assert.Equal(t, analyzer.PageSearch, result.Structure.PageType)
	require.NotNil(t, result.Plan)
	assert.Equal(t, "template", result.Plan.Source)
	assert.NotEmpty(t, result.Results)
	assert.InDelta(t, 1.0, result.Confidence, 1e-9)
	assert.Greater(t, result.ExecutionTime.Nanoseconds(), int64(0))

	assert.Contains(t, page.Fills, `input[name="q"]=Python tutorials`)
	assert.NotEmpty(t, page.Clicks)
}

func TestRunNeedsClarification(t *testing.T) {
	source := &fakeSource{err: fmt.Errorf("must not be called")}
	p := newTestPipeline(source, nil)

	result, err := p.Run(context.Background(), Request{Text: "do the thing"})
	require.NoError(t, err)

	assert.False(t, result.Success)
	require.NotNil(t, result.Clarification)
	assert.True(t, result.Clarification.NeedsClarification)
	assert.NotEmpty(t, result.UserGuidance)
	assert.Empty(t, source.url, "the browser is never touched for unclear requests")
}

func TestRunBrowserFailureIsReported(t *testing.T) {
	source := &fakeSource{err: fmt.Errorf("no chromium available")}
	p := newTestPipeline(source, nil)

	result, err := p.Run(context.Background(), Request{Text: "Search for Python tutorials on YouTube"})
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Equal(t, "Automation failed", result.Error)
	assert.Contains(t, result.UserGuidance, "no chromium available")
}

func TestRunEmptyRequestErrors(t *testing.T) {
	p := newTestPipeline(&fakeSource{}, nil)
	_, err := p.Run(context.Background(), Request{Text: ""})
	assert.Error(t, err)
}

func TestNormalizeURL(t *testing.T) {
	assert.Equal(t, "https://youtube.com", normalizeURL("youtube.com"))
	assert.Equal(t, "http://localhost:8080", normalizeURL("http://localhost:8080"))
	assert.Equal(t, "about:blank", normalizeURL(""))
}
