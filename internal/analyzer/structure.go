// Package analyzer inspects live pages and produces classified, cached
// snapshots of their interactive surface.
package analyzer

import (
	"time"

	"github.com/v0xg/autopilot/internal/browser"
)

// PageType classifies the overall purpose of a page.
type PageType string

const (
	PageLogin     PageType = "login"
	PageForm      PageType = "form"
	PageEcommerce PageType = "ecommerce"
	PageDashboard PageType = "dashboard"
	PageSearch    PageType = "search"
	PageContent   PageType = "content"
	PageUnknown   PageType = "unknown"
)

// ButtonSubType refines what a button does.
type ButtonSubType string

const (
	ButtonSubmit     ButtonSubType = "submit"
	ButtonLink       ButtonSubType = "link"
	ButtonAction     ButtonSubType = "action"
	ButtonNavigation ButtonSubType = "navigation"
	ButtonUnknown    ButtonSubType = "unknown"
)

// Button is a categorized button with its sub-type classification.
type Button struct {
	browser.Element
	SubType ButtonSubType `json:"sub_type"`
}

// Elements groups the interactive surface by category.
type Elements struct {
	Forms   []browser.Element `json:"forms,omitempty"`
	Buttons []Button          `json:"buttons,omitempty"`
	Inputs  []browser.Element `json:"inputs,omitempty"`
	Links   []browser.Element `json:"links,omitempty"`
}

// All returns every categorized element in one slice, buttons flattened.
func (e Elements) All() []browser.Element {
	out := make([]browser.Element, 0, len(e.Forms)+len(e.Buttons)+len(e.Inputs)+len(e.Links))
	out = append(out, e.Forms...)
	for _, b := range e.Buttons {
		out = append(out, b.Element)
	}
	out = append(out, e.Inputs...)
	out = append(out, e.Links...)
	return out
}

// PageStructure is the published, read-only snapshot of a page's interactive
// surface at a point in time.
type PageStructure struct {
	PageType   PageType       `json:"page_type"`
	Elements   Elements       `json:"elements"`
	Patterns   []string       `json:"patterns,omitempty"`
	Confidence float64        `json:"confidence"`
	URL        string         `json:"url"`
	Title      string         `json:"title"`
	Language   string         `json:"language,omitempty"`
	Counts     browser.Counts `json:"counts"`
	AnalyzedAt time.Time      `json:"analyzed_at"`
}
