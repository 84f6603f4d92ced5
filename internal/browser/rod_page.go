package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"go.uber.org/zap"
)

// rodPage implements Page on top of a Rod page.
type rodPage struct {
	page   *rod.Page
	opts   Options
	logger *zap.Logger
}

func (p *rodPage) URL() string {
	var url string
	_ = rod.Try(func() {
		url = p.page.MustEval(`() => window.location.href`).String()
	})
	return url
}

func (p *rodPage) Title() string {
	var title string
	_ = rod.Try(func() {
		title = p.page.MustEval(`() => document.title`).String()
	})
	return title
}

func (p *rodPage) Navigate(ctx context.Context, url string) error {
	err := rod.Try(func() {
		page := p.page.Context(ctx)
		page.MustNavigate(url)
		page.MustWaitLoad()
		page.Timeout(5 * time.Second).WaitRequestIdle(500*time.Millisecond, nil, nil, nil)()
	})
	if err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	return nil
}

func (p *rodPage) Has(selector string) (bool, error) {
	has, _, err := p.page.Has(selector)
	if err != nil {
		return false, fmt.Errorf("query %q: %w", selector, err)
	}
	return has, nil
}

func (p *rodPage) IsVisible(selector string) (bool, error) {
	has, el, err := p.page.Has(selector)
	if err != nil || !has {
		return false, err
	}
	visible, err := el.Visible()
	if err != nil {
		return false, fmt.Errorf("visibility of %q: %w", selector, err)
	}
	return visible, nil
}

func (p *rodPage) Click(ctx context.Context, selector string) error {
	err := rod.Try(func() {
		p.page.Context(ctx).MustElement(selector).MustClick()
	})
	if err != nil {
		return fmt.Errorf("click %q: %w", selector, err)
	}
	return nil
}

func (p *rodPage) Fill(ctx context.Context, selector, value string) error {
	err := rod.Try(func() {
		el := p.page.Context(ctx).MustElement(selector)
		el.MustClick()
		el.MustSelectAllText()
		el.MustInput(value)
	})
	if err != nil {
		return fmt.Errorf("fill %q: %w", selector, err)
	}
	return nil
}

func (p *rodPage) Text(ctx context.Context, selector string) (string, error) {
	var text string
	err := rod.Try(func() {
		text = p.page.Context(ctx).MustElement(selector).MustText()
	})
	if err != nil {
		return "", fmt.Errorf("text of %q: %w", selector, err)
	}
	return strings.TrimSpace(text), nil
}

func (p *rodPage) Scroll(ctx context.Context, dx, dy int) error {
	err := rod.Try(func() {
		p.page.Context(ctx).Mouse.MustScroll(float64(dx), float64(dy))
	})
	if err != nil {
		return fmt.Errorf("scroll: %w", err)
	}
	return nil
}

func (p *rodPage) WaitSelector(ctx context.Context, selector string, timeout time.Duration) error {
	err := rod.Try(func() {
		p.page.Context(ctx).Timeout(timeout).MustElement(selector)
	})
	if err != nil {
		return fmt.Errorf("wait for %q: %w", selector, err)
	}
	return nil
}

func (p *rodPage) WaitTextContains(ctx context.Context, text string, timeout time.Duration) error {
	return p.poll(ctx, timeout, fmt.Sprintf("text %q", text), func() bool {
		var found bool
		_ = rod.Try(func() {
			found = p.page.MustEval(`(t) => document.body && document.body.innerText.includes(t)`, text).Bool()
		})
		return found
	})
}

func (p *rodPage) WaitURLContains(ctx context.Context, substr string, timeout time.Duration) error {
	return p.poll(ctx, timeout, fmt.Sprintf("url containing %q", substr), func() bool {
		return strings.Contains(p.URL(), substr)
	})
}

func (p *rodPage) WaitIdle(ctx context.Context, timeout time.Duration) error {
	err := rod.Try(func() {
		p.page.Context(ctx).Timeout(timeout).WaitRequestIdle(500*time.Millisecond, nil, nil, nil)()
	})
	if err != nil {
		return fmt.Errorf("wait for network idle: %w", err)
	}
	return nil
}

// poll checks cond every 200ms until it holds, the timeout elapses, or the
// context is canceled.
func (p *rodPage) poll(ctx context.Context, timeout time.Duration, what string, cond func() bool) error {
	deadline := time.Now().Add(timeout)
	for {
		if cond() {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("timed out waiting for %s", what)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(200 * time.Millisecond):
		}
	}
}
