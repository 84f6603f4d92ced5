package browser

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/ysmood/gson"
)

// snapshotJS gathers counts, indicator flags and interactive elements in a
// single pass. Selector generation prefers id, then name, then a short class
// chain, then an nth-child path, mirroring what the page itself can resolve.
const snapshotJS = `() => {
	const seen = new Set();
	const elements = [];

	function isValidCSSIdent(cls) {
		if (!cls || cls.length === 0) return false;
		if (/^[0-9]/.test(cls)) return false;
		if (/^-[0-9]/.test(cls)) return false;
		if (/[.:#\[\]()>~+*\/\\]/.test(cls)) return false;
		return true;
	}

	function getSelector(el) {
		if (el.id && isValidCSSIdent(el.id)) return '#' + el.id;
		if (el.name) return el.tagName.toLowerCase() + '[name="' + el.name + '"]';

		if (el.className && typeof el.className === 'string') {
			const validClasses = el.className.trim().split(/\s+/).filter(isValidCSSIdent).slice(0, 2);
			if (validClasses.length > 0) {
				const selector = el.tagName.toLowerCase() + '.' + validClasses.join('.');
				try {
					if (document.querySelectorAll(selector).length === 1) return selector;
				} catch (e) {}
			}
		}

		const parent = el.parentElement;
		if (parent) {
			const siblings = Array.from(parent.children);
			const index = siblings.indexOf(el) + 1;
			const parentSelector = getSelector(parent);
			if (parentSelector) {
				return parentSelector + ' > ' + el.tagName.toLowerCase() + ':nth-child(' + index + ')';
			}
		}
		return el.tagName.toLowerCase();
	}

	function push(el, kind) {
		const selector = getSelector(el);
		if (seen.has(selector)) return;
		seen.add(selector);
		const rect = el.getBoundingClientRect();
		elements.push({
			selector: selector,
			tag: el.tagName.toLowerCase(),
			type: kind,
			text: ((el.textContent || el.value || '').trim().replace(/\s+/g, ' ')).slice(0, 80),
			placeholder: el.placeholder || '',
			name: el.name || '',
			id: el.id || '',
			aria_label: el.getAttribute('aria-label') || '',
			role: el.getAttribute('role') || '',
			visible: !!el.offsetParent,
			x: Math.round(rect.left),
			y: Math.round(rect.top),
			width: Math.round(rect.width),
			height: Math.round(rect.height)
		});
	}

	document.querySelectorAll('form').forEach(el => push(el, 'form'));
	document.querySelectorAll('button, [role="button"], input[type="submit"], input[type="button"]').forEach(el => push(el, 'button'));
	document.querySelectorAll('input:not([type="hidden"]):not([type="submit"]):not([type="button"]), textarea, select').forEach(el => push(el, el.tagName.toLowerCase() === 'select' ? 'select' : (el.type || 'text')));
	document.querySelectorAll('a[href]').forEach(el => {
		const href = el.getAttribute('href');
		if (href.startsWith('#') || href.startsWith('javascript:')) return;
		push(el, 'link');
	});

	const bodyText = (document.body ? document.body.innerText : '').toLowerCase();
	const hasAny = (words) => words.some(w => bodyText.includes(w) || !!document.querySelector('[id*="' + w + '" i], [name*="' + w + '" i], [class*="' + w + '" i]'));

	return {
		url: window.location.href,
		title: document.title,
		language: document.documentElement.lang || '',
		elements: elements,
		counts: {
			forms: document.querySelectorAll('form').length,
			buttons: document.querySelectorAll('button, [role="button"], input[type="submit"], input[type="button"]').length,
			inputs: document.querySelectorAll('input:not([type="hidden"]), textarea, select').length,
			links: document.querySelectorAll('a[href]').length,
			interactive: elements.length,
			has_login: hasAny(['login', 'signin', 'sign-in', 'password']),
			has_search: hasAny(['search', 'query']) || !!document.querySelector('input[type="search"]'),
			has_contact: hasAny(['contact', 'message', 'feedback']),
			has_cart: hasAny(['cart', 'checkout', 'basket']),
			has_nav: !!document.querySelector('nav, [role="navigation"]')
		}
	};
}`

// Snapshot runs the DOM-introspection pass and decodes the result.
func (p *rodPage) Snapshot(ctx context.Context) (*Snapshot, error) {
	var result gson.JSON
	err := rod.Try(func() {
		result = p.page.Context(ctx).MustEval(snapshotJS)
	})
	if err != nil {
		return nil, fmt.Errorf("page snapshot failed: %w", err)
	}
	return decodeSnapshot(result), nil
}

func decodeSnapshot(result gson.JSON) *Snapshot {
	snap := &Snapshot{
		URL:      result.Get("url").String(),
		Title:    result.Get("title").String(),
		Language: result.Get("language").String(),
	}

	for _, v := range result.Get("elements").Arr() {
		snap.Elements = append(snap.Elements, Element{
			Selector:    v.Get("selector").String(),
			Tag:         v.Get("tag").String(),
			Type:        v.Get("type").String(),
			Text:        v.Get("text").String(),
			Placeholder: v.Get("placeholder").String(),
			Name:        v.Get("name").String(),
			ID:          v.Get("id").String(),
			AriaLabel:   v.Get("aria_label").String(),
			Role:        v.Get("role").String(),
			Visible:     v.Get("visible").Bool(),
			X:           v.Get("x").Int(),
			Y:           v.Get("y").Int(),
			Width:       v.Get("width").Int(),
			Height:      v.Get("height").Int(),
		})
	}

	counts := result.Get("counts")
	snap.Counts = Counts{
		Forms:       counts.Get("forms").Int(),
		Buttons:     counts.Get("buttons").Int(),
		Inputs:      counts.Get("inputs").Int(),
		Links:       counts.Get("links").Int(),
		Interactive: counts.Get("interactive").Int(),
		HasLogin:    counts.Get("has_login").Bool(),
		HasSearch:   counts.Get("has_search").Bool(),
		HasContact:  counts.Get("has_contact").Bool(),
		HasCart:     counts.Get("has_cart").Bool(),
		HasNav:      counts.Get("has_nav").Bool(),
	}

	return snap
}
