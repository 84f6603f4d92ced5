package browser

import (
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"go.uber.org/zap"
)

// Options configures the browser session.
type Options struct {
	Width      int
	Height     int
	Headless   bool
	Timeout    time.Duration
	ProfileDir string // Chrome/Chromium profile directory for authenticated sessions
}

// Session owns a launched browser and hands out pages.
type Session struct {
	browser *rod.Browser
	opts    Options
	logger  *zap.Logger
}

// NewSession launches a browser. Close must be called when done.
func NewSession(opts Options, logger *zap.Logger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Width == 0 {
		opts.Width = 1280
	}
	if opts.Height == 0 {
		opts.Height = 720
	}

	path, _ := launcher.LookPath()
	l := launcher.New().Bin(path).Headless(opts.Headless)
	if opts.ProfileDir != "" {
		l = l.UserDataDir(opts.ProfileDir)
	}

	var b *rod.Browser
	err := rod.Try(func() {
		u := l.MustLaunch()
		b = rod.New().ControlURL(u).MustConnect()
	})
	if err != nil {
		return nil, fmt.Errorf("browser launch failed: %w", err)
	}

	return &Session{
		browser: b,
		opts:    opts,
		logger:  logger.With(zap.String("component", "browser")),
	}, nil
}

// ObtainPage opens a page. When url is non-empty the page is navigated and
// settled before returning.
func (s *Session) ObtainPage(url string) (Page, error) {
	var page *rod.Page
	err := rod.Try(func() {
		if url != "" {
			page = s.browser.MustPage(url)
		} else {
			page = s.browser.MustPage()
		}
		page.MustSetViewport(s.opts.Width, s.opts.Height, 1, false)
		if url != "" {
			page.MustWaitLoad()
			// Bounded idle wait: persistent connections must not hang us.
			page.Timeout(5 * time.Second).WaitRequestIdle(500*time.Millisecond, nil, nil, nil)()
		}
	})
	if err != nil {
		return nil, fmt.Errorf("obtain page: %w", err)
	}

	s.logger.Debug("page obtained", zap.String("url", url))
	return &rodPage{page: page, opts: s.opts, logger: s.logger}, nil
}

// Close releases the browser.
func (s *Session) Close() {
	if s.browser != nil {
		_ = s.browser.Close()
	}
}
