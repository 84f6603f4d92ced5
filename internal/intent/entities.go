package intent

import (
	"regexp"
	"strings"
)

// Deterministic regex-based entity extraction, used whenever the
// understanding service is unavailable or returns a malformed reply.

var (
	urlRe      = regexp.MustCompile(`(?i)(?:https?://)?(?:www\.)?([a-z0-9-]+\.(?:com|org|net|io|dev|co|app|edu|gov)(?:\.[a-z]{2})?)`)
	priceRe    = regexp.MustCompile(`(?i)[$€£]\s?\d+(?:[.,]\d{1,2})?|\d+(?:[.,]\d{1,2})?\s?(?:dollars|usd|euros?|eur|pounds|gbp)`)
	dateRe     = regexp.MustCompile(`(?i)\b\d{4}-\d{2}-\d{2}\b|\b\d{1,2}/\d{1,2}(?:/\d{2,4})?\b|\b(?:today|tomorrow|tonight|next week|next month)\b`)
	emailRe    = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	phoneRe    = regexp.MustCompile(`\+?\d[\d\s().-]{7,}\d`)
	quantityRe = regexp.MustCompile(`(?i)\b\d+\s*(?:items?|pieces?|units?|copies|tickets?|times)\b`)
	locationRe = regexp.MustCompile(`\bin ([A-Z][a-z]+(?: [A-Z][a-z]+){0,2})\b`)
)

// knownSites maps common site names mentioned without a domain to their
// canonical hosts.
var knownSites = map[string]string{
	"youtube":   "youtube.com",
	"google":    "google.com",
	"amazon":    "amazon.com",
	"ebay":      "ebay.com",
	"github":    "github.com",
	"twitter":   "twitter.com",
	"facebook":  "facebook.com",
	"linkedin":  "linkedin.com",
	"wikipedia": "wikipedia.org",
	"reddit":    "reddit.com",
	"netflix":   "netflix.com",
}

// extractEntitiesRegex recognizes entity categories with deterministic
// patterns only.
func extractEntitiesRegex(text string) Entities {
	var e Entities

	for _, m := range urlRe.FindAllStringSubmatch(text, -1) {
		e.Websites = appendUnique(e.Websites, strings.ToLower(m[1]))
	}
	lower := strings.ToLower(text)
	for name, host := range knownSites {
		if strings.Contains(lower, name) {
			e.Websites = appendUnique(e.Websites, host)
		}
	}

	e.Prices = appendAll(e.Prices, priceRe.FindAllString(text, -1))
	e.Dates = appendAll(e.Dates, dateRe.FindAllString(text, -1))
	e.Contacts = appendAll(e.Contacts, emailRe.FindAllString(text, -1))
	e.Contacts = appendAll(e.Contacts, phoneRe.FindAllString(text, -1))
	e.Quantities = appendAll(e.Quantities, quantityRe.FindAllString(text, -1))

	for _, m := range locationRe.FindAllStringSubmatch(text, -1) {
		// "in Python" style captures are filtered by the site list.
		if _, isSite := knownSites[strings.ToLower(m[1])]; !isSite {
			e.Locations = appendUnique(e.Locations, m[1])
		}
	}

	if product := productPhrase(text); product != "" {
		e.Products = appendUnique(e.Products, product)
	}

	return e
}

var productRe = regexp.MustCompile(`(?i)\b(?:buy|purchase|order|add)\s+(?:an?\s+|the\s+)?(.+?)(?:\s+(?:on|from|at|for|under|below|less than)\b.*)?$`)

// productPhrase captures the noun phrase after a purchase verb.
func productPhrase(text string) string {
	m := productRe.FindStringSubmatch(strings.TrimSpace(text))
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(strings.Trim(m[1], ".!?"))
}

func appendAll(dst []string, src []string) []string {
	for _, s := range src {
		dst = appendUnique(dst, strings.TrimSpace(s))
	}
	return dst
}

func appendUnique(list []string, value string) []string {
	if value == "" {
		return list
	}
	for _, v := range list {
		if v == value {
			return list
		}
	}
	return append(list, value)
}
