// Package browser wraps the Rod browser behind a narrow page interface so
// the automation pipeline never depends on the driver directly.
package browser

import (
	"context"
	"time"
)

// Page is the browser-page handle consumed by the pipeline. Implementations
// must be safe for sequential use from a single request; concurrent requests
// use separate pages.
type Page interface {
	// URL returns the current page URL.
	URL() string
	// Title returns the current document title.
	Title() string

	// Navigate loads the URL and waits for the load event.
	Navigate(ctx context.Context, url string) error

	// Has reports whether the selector matches at least one element.
	Has(selector string) (bool, error)
	// IsVisible reports whether the first match for selector is visible.
	IsVisible(selector string) (bool, error)

	// Click clicks the first match for selector.
	Click(ctx context.Context, selector string) error
	// Fill replaces the content of the first match with value.
	Fill(ctx context.Context, selector, value string) error
	// Text returns the text content of the first match.
	Text(ctx context.Context, selector string) (string, error)
	// Scroll scrolls the page by the given pixel deltas.
	Scroll(ctx context.Context, dx, dy int) error

	// Screenshot captures the viewport as a PNG, downscaled for transport.
	Screenshot(ctx context.Context) ([]byte, error)

	// Snapshot runs a single DOM-introspection pass and returns the
	// interactive surface of the page.
	Snapshot(ctx context.Context) (*Snapshot, error)

	// WaitSelector blocks until selector matches or the timeout elapses.
	WaitSelector(ctx context.Context, selector string, timeout time.Duration) error
	// WaitTextContains blocks until the page body contains text.
	WaitTextContains(ctx context.Context, text string, timeout time.Duration) error
	// WaitURLContains blocks until the URL contains the substring.
	WaitURLContains(ctx context.Context, substr string, timeout time.Duration) error
	// WaitIdle blocks until the network settles or the timeout elapses.
	WaitIdle(ctx context.Context, timeout time.Duration) error
}

// Snapshot is the raw result of one DOM-introspection pass.
type Snapshot struct {
	URL      string    `json:"url"`
	Title    string    `json:"title"`
	Language string    `json:"language,omitempty"`
	Elements []Element `json:"elements"`
	Counts   Counts    `json:"counts"`
}

// Element is one interactive element found on the page.
type Element struct {
	Selector    string `json:"selector"`
	Tag         string `json:"tag"`
	Type        string `json:"type"` // button, input-ish type, link, select, checkbox, radio
	Text        string `json:"text,omitempty"`
	Placeholder string `json:"placeholder,omitempty"`
	Name        string `json:"name,omitempty"`
	ID          string `json:"id,omitempty"`
	AriaLabel   string `json:"aria_label,omitempty"`
	Role        string `json:"role,omitempty"`
	Visible     bool   `json:"visible"`
	X           int    `json:"x"`
	Y           int    `json:"y"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
}

// Counts carries the structural counts and presence flags gathered in the
// same pass as the elements.
type Counts struct {
	Forms       int  `json:"forms"`
	Buttons     int  `json:"buttons"`
	Inputs      int  `json:"inputs"`
	Links       int  `json:"links"`
	Interactive int  `json:"interactive"`
	HasLogin    bool `json:"has_login"`
	HasSearch   bool `json:"has_search"`
	HasContact  bool `json:"has_contact"`
	HasCart     bool `json:"has_cart"`
	HasNav      bool `json:"has_nav"`
}

// Label renders a short human-readable description of the element, used for
// suggestions and for the visual resolution prompt.
func (e Element) Label() string {
	switch {
	case e.Text != "":
		return e.Type + " \"" + e.Text + "\""
	case e.AriaLabel != "":
		return e.Type + " \"" + e.AriaLabel + "\""
	case e.Placeholder != "":
		return e.Type + " \"" + e.Placeholder + "\""
	case e.Name != "":
		return e.Type + " [" + e.Name + "]"
	case e.ID != "":
		return e.Type + " #" + e.ID
	default:
		return e.Type
	}
}
