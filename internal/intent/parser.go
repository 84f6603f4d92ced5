package intent

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/v0xg/autopilot/internal/llm"
	"github.com/v0xg/autopilot/internal/voice"
)

const entitySystemPrompt = `You extract entities from web-automation requests.
Respond ONLY with a JSON object, no explanation or markdown:
{"websites":[],"products":[],"prices":[],"dates":[],"contacts":[],"locations":[],"quantities":[]}
Websites are bare hosts like "youtube.com". Omit nothing you recognize; leave unknown categories empty.`

const coreSystemPrompt = `You classify web-automation requests.
Respond ONLY with a JSON object, no explanation or markdown:
{"action":"...","target":"...","website":"...","data":{},"priority":3}
"action" must be one of: navigate, search, fill_form, click, extract, purchase, login, upload, download, scroll, wait, screenshot, unknown.
"target" is the thing acted on (product name, search query, element description).
"website" is the bare host if one is implied, else "".
"data" carries key->value pairs the automation needs (e.g. {"query":"..."} for search).
"priority" is 1 (low) to 5 (urgent).`

// Input is one automation request: plain text, or an audio clip that is
// transcribed first.
type Input struct {
	Text  string
	Audio *voice.Clip
}

// Transcriber resolves audio input to text.
type Transcriber interface {
	Transcribe(ctx context.Context, clip voice.Clip) (string, error)
}

// Parser turns raw requests into intents. The understanding service is
// consulted first; every malformed or failed reply silently downgrades to
// the deterministic heuristics.
type Parser struct {
	client      llm.Client
	transcriber Transcriber
	logger      *zap.Logger
}

// NewParser creates a Parser. client and transcriber may be nil, in which
// case only the heuristic path (and text input) is available.
func NewParser(client llm.Client, transcriber Transcriber, logger *zap.Logger) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{
		client:      client,
		transcriber: transcriber,
		logger:      logger.With(zap.String("component", "intent_parser")),
	}
}

// Parse converts the input into an Intent. It errors only when audio input
// cannot be transcribed; malformed understanding-service output never fails
// the parse.
func (p *Parser) Parse(ctx context.Context, input Input) (*Intent, error) {
	text := strings.TrimSpace(input.Text)
	if text == "" && input.Audio != nil {
		if p.transcriber == nil {
			return nil, fmt.Errorf("audio input given but no transcription service configured")
		}
		transcribed, err := p.transcriber.Transcribe(ctx, *input.Audio)
		if err != nil {
			return nil, fmt.Errorf("transcription failed: %w", err)
		}
		text = strings.TrimSpace(transcribed)
	}
	if text == "" {
		return nil, fmt.Errorf("empty automation request")
	}

	entities := p.extractEntities(ctx, text)
	core := p.deriveCore(ctx, text, entities)

	in := &Intent{
		Action:        core.action,
		Target:        core.target,
		Website:       core.website,
		Data:          core.data,
		Conditions:    parseConditions(text),
		Constraints:   parseConstraints(text),
		Priority:      core.priority,
		OriginalInput: text,
		ParsedAt:      time.Now(),
	}
	in.Confidence = scoreConfidence(in, entities)

	p.logger.Debug("parsed intent",
		zap.String("action", string(in.Action)),
		zap.String("target", in.Target),
		zap.Float64("confidence", in.Confidence))
	return in, nil
}

func (p *Parser) extractEntities(ctx context.Context, text string) Entities {
	if p.client == nil {
		return extractEntitiesRegex(text)
	}
	reply, err := p.client.Complete(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: entitySystemPrompt},
		{Role: llm.RoleUser, Content: text},
	})
	if err != nil {
		p.logger.Debug("entity extraction downgraded to regex", zap.Error(err))
		return extractEntitiesRegex(text)
	}
	var e Entities
	if err := llm.DecodeObject(reply, &e); err != nil {
		p.logger.Debug("entity reply malformed, using regex", zap.Error(err))
		return extractEntitiesRegex(text)
	}
	return e
}

type coreFields struct {
	action   Action
	target   string
	website  string
	data     map[string]string
	priority int
}

func (p *Parser) deriveCore(ctx context.Context, text string, entities Entities) coreFields {
	if p.client != nil {
		var decoded struct {
			Action   string            `json:"action"`
			Target   string            `json:"target"`
			Website  string            `json:"website"`
			Data     map[string]string `json:"data"`
			Priority int               `json:"priority"`
		}
		reply, err := p.client.Complete(ctx, []llm.Message{
			{Role: llm.RoleSystem, Content: coreSystemPrompt},
			{Role: llm.RoleUser, Content: text},
		})
		if err == nil {
			if derr := llm.DecodeObject(reply, &decoded); derr == nil && knownActions[Action(decoded.Action)] {
				if decoded.Priority < 1 || decoded.Priority > 5 {
					decoded.Priority = 3
				}
				if decoded.Data == nil {
					decoded.Data = map[string]string{}
				}
				return coreFields{
					action:   Action(decoded.Action),
					target:   strings.TrimSpace(decoded.Target),
					website:  strings.TrimSpace(decoded.Website),
					data:     decoded.Data,
					priority: decoded.Priority,
				}
			}
			p.logger.Debug("core reply malformed, using keyword heuristics")
		} else {
			p.logger.Debug("core derivation downgraded to heuristics", zap.Error(err))
		}
	}
	return heuristicCore(text, entities)
}

// verbActions maps request verbs to actions, checked in order so the more
// specific phrases win.
var verbActions = []struct {
	re     *regexp.Regexp
	action Action
}{
	{regexp.MustCompile(`(?i)\b(?:buy|purchase|order)\b`), ActionPurchase},
	{regexp.MustCompile(`(?i)\b(?:log\s?in|sign\s?in)\b`), ActionLogin},
	{regexp.MustCompile(`(?i)\b(?:search|look\s+for|find)\b`), ActionSearch},
	{regexp.MustCompile(`(?i)\bfill\b`), ActionFillForm},
	{regexp.MustCompile(`(?i)\b(?:click|press|tap)\b`), ActionClick},
	{regexp.MustCompile(`(?i)\b(?:extract|scrape|collect|read)\b`), ActionExtract},
	{regexp.MustCompile(`(?i)\bupload\b`), ActionUpload},
	{regexp.MustCompile(`(?i)\bdownload\b`), ActionDownload},
	{regexp.MustCompile(`(?i)\bscroll\b`), ActionScroll},
	{regexp.MustCompile(`(?i)\bscreenshot\b`), ActionScreenshot},
	{regexp.MustCompile(`(?i)\bwait\b`), ActionWait},
	{regexp.MustCompile(`(?i)\b(?:go\s+to|open|navigate|visit)\b`), ActionNavigate},
}

var targetRe = regexp.MustCompile(`(?i)\b(?:search\s+for|look\s+for|find|buy|purchase|order|click(?:\s+on)?|open|go\s+to|navigate\s+to|visit|extract|scrape|download|upload|fill(?:\s+in|\s+out)?)\s+(.+?)(?:\s+(?:on|from|at|in)\s+[\w.]+\s*)?$`)

// heuristicCore derives the intent core with keyword rules only.
func heuristicCore(text string, entities Entities) coreFields {
	core := coreFields{
		action:   ActionUnknown,
		data:     map[string]string{},
		priority: 3,
	}
	for _, v := range verbActions {
		if v.re.MatchString(text) {
			core.action = v.action
			break
		}
	}

	if m := targetRe.FindStringSubmatch(strings.TrimSpace(text)); len(m) > 1 {
		core.target = strings.TrimSpace(strings.Trim(m[1], ".!?\"'"))
	}
	if core.target == "" && len(entities.Products) > 0 {
		core.target = entities.Products[0]
	}

	if len(entities.Websites) > 0 {
		core.website = entities.Websites[0]
	}

	// Strip a trailing "on <site>" from the target once the site is known.
	if core.website != "" {
		siteName := strings.TrimSuffix(core.website, ".com")
		siteName = strings.TrimSuffix(siteName, ".org")
		if idx := strings.Index(strings.ToLower(core.target), " on "+siteName); idx > 0 {
			core.target = strings.TrimSpace(core.target[:idx])
		}
	}

	switch core.action {
	case ActionSearch:
		if core.target != "" {
			core.data["query"] = core.target
		}
	case ActionPurchase:
		if core.target != "" {
			core.data["product"] = core.target
		}
	case ActionNavigate:
		if core.website != "" {
			core.data["url"] = core.website
		}
	}

	if strings.Contains(strings.ToLower(text), "urgent") || strings.Contains(strings.ToLower(text), "asap") {
		core.priority = 5
	}
	return core
}

var (
	lessRe    = regexp.MustCompile(`(?i)\b(?:less than|under|below|at most|cheaper than)\s+([$€£]?\s?\d+(?:[.,]\d{1,2})?)`)
	greaterRe = regexp.MustCompile(`(?i)\b(?:more than|over|above|at least)\s+([$€£]?\s?\d+(?:[.,]\d{1,2})?)`)
	beforeRe  = regexp.MustCompile(`(?i)\bbefore\s+(\d{4}-\d{2}-\d{2}|\d{1,2}/\d{1,2}(?:/\d{2,4})?|tomorrow|today|tonight|\d{1,2}(?::\d{2})?\s?(?:am|pm)?)`)
	availRe   = regexp.MustCompile(`(?i)\b(?:available|in stock)\b`)
	containRe = regexp.MustCompile(`(?i)\b(?:containing|that contains|with the text)\s+"?([^".]+)"?`)
)

// parseConditions derives conditions from recognized comparison phrases.
func parseConditions(text string) []Condition {
	var conds []Condition
	if m := lessRe.FindStringSubmatch(text); len(m) > 1 {
		value, currency := splitAmount(m[1])
		conds = append(conds, Condition{Type: ConditionPriceLimit, Field: "price", Operator: OpLessThan, Value: value, Currency: currency})
	}
	if m := greaterRe.FindStringSubmatch(text); len(m) > 1 {
		value, currency := splitAmount(m[1])
		conds = append(conds, Condition{Type: ConditionPriceLimit, Field: "price", Operator: OpGreaterThan, Value: value, Currency: currency})
	}
	if m := beforeRe.FindStringSubmatch(text); len(m) > 1 {
		conds = append(conds, Condition{Type: ConditionTimeLimit, Field: "time", Operator: OpLessThan, Value: strings.TrimSpace(m[1])})
	}
	if availRe.MatchString(text) {
		conds = append(conds, Condition{Type: ConditionAvailability, Field: "availability", Operator: OpExists})
	}
	if m := containRe.FindStringSubmatch(text); len(m) > 1 {
		conds = append(conds, Condition{Type: ConditionContentMatch, Field: "content", Operator: OpContains, Value: strings.TrimSpace(m[1])})
	}
	return conds
}

func splitAmount(raw string) (value, currency string) {
	raw = strings.TrimSpace(raw)
	switch {
	case strings.HasPrefix(raw, "$"):
		return strings.TrimSpace(raw[1:]), "USD"
	case strings.HasPrefix(raw, "€"):
		return strings.TrimSpace(raw[len("€"):]), "EUR"
	case strings.HasPrefix(raw, "£"):
		return strings.TrimSpace(raw[len("£"):]), "GBP"
	default:
		return raw, ""
	}
}

var (
	timeoutRe = regexp.MustCompile(`(?i)\bwithin\s+(\d+)\s*(seconds?|secs?|minutes?|mins?)\b`)
	retryRe   = regexp.MustCompile(`(?i)\b(?:retry(?:ing)?\s+(?:up\s+to\s+)?(\d+)\s+times|(\d+)\s+retries)\b`)
)

// parseConstraints derives execution constraints from duration and retry
// phrases.
func parseConstraints(text string) []Constraint {
	var cons []Constraint
	if m := timeoutRe.FindStringSubmatch(text); len(m) > 2 {
		n, err := strconv.Atoi(m[1])
		if err == nil {
			if strings.HasPrefix(strings.ToLower(m[2]), "min") {
				n *= 60
			}
			cons = append(cons, Constraint{Type: ConstraintTimeout, Value: n})
		}
	}
	if m := retryRe.FindStringSubmatch(text); m != nil {
		raw := m[1]
		if raw == "" {
			raw = m[2]
		}
		if n, err := strconv.Atoi(raw); err == nil {
			cons = append(cons, Constraint{Type: ConstraintRetries, Value: n})
		}
	}
	return cons
}

// scoreConfidence applies the weighted confidence model: 0.5 base, +0.2 for
// a resolved action, +0.1 each for target and website, +0.05 per entity
// category (up to three), +0.05 for conditions, capped at 1.0.
func scoreConfidence(in *Intent, entities Entities) float64 {
	c := 0.5
	if in.Action != ActionUnknown {
		c += 0.2
	}
	if in.Target != "" {
		c += 0.1
	}
	if in.Website != "" {
		c += 0.1
	}
	categories := entities.Categories()
	if categories > 3 {
		categories = 3
	}
	c += 0.05 * float64(categories)
	if len(in.Conditions) > 0 {
		c += 0.05
	}
	if c > 1.0 {
		c = 1.0
	}
	return c
}
