package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// FakePage is a scripted Page used by tests throughout the pipeline. It
// serves elements from a fixed Snapshot and records the operations applied
// to it.
type FakePage struct {
	mu sync.Mutex

	CurrentURL string
	PageTitle  string
	Snap       *Snapshot

	// Visible maps selectors to visibility. A selector absent from the map
	// does not exist on the page.
	Visible map[string]bool
	// Texts maps selectors to their text content.
	Texts map[string]string
	// FailClicks lists selectors whose click always errors.
	FailClicks map[string]bool

	Navigations   []string
	Clicks        []string
	Fills         []string
	Scrolls       int
	SnapshotCalls int
}

// NewFakePage builds a FakePage whose Visible map is seeded from the
// snapshot's elements.
func NewFakePage(url, title string, snap *Snapshot) *FakePage {
	p := &FakePage{
		CurrentURL: url,
		PageTitle:  title,
		Snap:       snap,
		Visible:    map[string]bool{},
		Texts:      map[string]string{},
		FailClicks: map[string]bool{},
	}
	if snap != nil {
		for _, el := range snap.Elements {
			p.Visible[el.Selector] = el.Visible
			if el.Text != "" {
				p.Texts[el.Selector] = el.Text
			}
		}
	}
	return p
}

func (p *FakePage) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.CurrentURL
}

func (p *FakePage) Title() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.PageTitle
}

func (p *FakePage) Navigate(_ context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Navigations = append(p.Navigations, url)
	p.CurrentURL = url
	return nil
}

func (p *FakePage) Has(selector string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.Visible[selector]
	return ok, nil
}

func (p *FakePage) IsVisible(selector string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Visible[selector], nil
}

func (p *FakePage) Click(_ context.Context, selector string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.FailClicks[selector] {
		return fmt.Errorf("click %q: element detached", selector)
	}
	if _, ok := p.Visible[selector]; !ok {
		return fmt.Errorf("click %q: element not found", selector)
	}
	p.Clicks = append(p.Clicks, selector)
	return nil
}

func (p *FakePage) Fill(_ context.Context, selector, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.Visible[selector]; !ok {
		return fmt.Errorf("fill %q: element not found", selector)
	}
	p.Fills = append(p.Fills, selector+"="+value)
	p.Texts[selector] = value
	return nil
}

func (p *FakePage) Text(_ context.Context, selector string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	text, ok := p.Texts[selector]
	if !ok {
		if _, exists := p.Visible[selector]; !exists {
			return "", fmt.Errorf("text of %q: element not found", selector)
		}
	}
	return text, nil
}

func (p *FakePage) Scroll(_ context.Context, dx, dy int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Scrolls++
	return nil
}

func (p *FakePage) Screenshot(_ context.Context) ([]byte, error) {
	return []byte("png-stub"), nil
}

func (p *FakePage) Snapshot(_ context.Context) (*Snapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.SnapshotCalls++
	if p.Snap == nil {
		return &Snapshot{URL: p.CurrentURL, Title: p.PageTitle}, nil
	}
	return p.Snap, nil
}

func (p *FakePage) WaitSelector(_ context.Context, selector string, _ time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.Visible[selector]; !ok {
		return fmt.Errorf("wait for %q: timed out", selector)
	}
	return nil
}

func (p *FakePage) WaitTextContains(_ context.Context, text string, _ time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, t := range p.Texts {
		if strings.Contains(t, text) {
			return nil
		}
	}
	return fmt.Errorf("timed out waiting for text %q", text)
}

func (p *FakePage) WaitURLContains(_ context.Context, substr string, _ time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if strings.Contains(p.CurrentURL, substr) {
		return nil
	}
	return fmt.Errorf("timed out waiting for url containing %q", substr)
}

func (p *FakePage) WaitIdle(_ context.Context, _ time.Duration) error { return nil }

var _ Page = (*FakePage)(nil)
