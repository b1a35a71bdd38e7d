package intent

import (
	"regexp"
	"strings"
	"time"

	"github.com/johncui/hydrogpt/pkg/model"
)

type rule struct {
	label   model.IntentLabel
	pattern *regexp.Regexp
}

// rules are checked in order; the first match wins. Matching is substring
// based, so "is" also matches "this".
var rules = []rule{
	{model.IntentCalculation, regexp.MustCompile(`(?i)(?:calculate|compute|solve|math|equation|formula)`)},
	{model.IntentQuestion, regexp.MustCompile(`(?i)(?:what|who|when|where|why|how|is|are|does|do|can|will)`)},
	{model.IntentCreative, regexp.MustCompile(`(?i)(?:write|create|generate|compose|design|make)`)},
	{model.IntentAnalysis, regexp.MustCompile(`(?i)(?:analyze|explain|compare|summarize|review)`)},
	{model.IntentCoding, regexp.MustCompile(`(?i)(?:code|program|script|function|algorithm|debug)`)},
}

var (
	numberPattern   = regexp.MustCompile(`\d+(?:\.\d+)?`)
	currencyPattern = regexp.MustCompile(`(?i)\$\d+(?:\.\d{2})?|\d+\s*(?:dollars?|USD|euros?|EUR)`)
	datePattern     = regexp.MustCompile(`(?i)\d{1,2}/\d{1,2}/\d{4}|\d{4}-\d{2}-\d{2}|today|tomorrow|yesterday`)
	urlPattern      = regexp.MustCompile(`https?://\S+`)
)

// Classify maps text to an intent label. It is total: text matching no rule
// is general.
func Classify(text string) model.IntentLabel {
	for _, r := range rules {
		if r.pattern.MatchString(text) {
			return r.label
		}
	}
	return model.IntentGeneral
}

// ExtractEntities collects numbers, currency amounts, dates and URLs in the
// order they appear.
func ExtractEntities(text string) model.EntityBag {
	return model.EntityBag{
		Numbers:    findAll(numberPattern, text),
		Currencies: findAll(currencyPattern, text),
		Dates:      findAll(datePattern, text),
		URLs:       findAll(urlPattern, text),
	}
}

// Preprocess trims the message and derives its intent and entities.
func Preprocess(message string, now time.Time) model.ProcessedInput {
	normalized := strings.TrimSpace(message)
	return model.ProcessedInput{
		Original:   message,
		Normalized: normalized,
		Intent:     Classify(normalized),
		Entities:   ExtractEntities(normalized),
		Timestamp:  now,
	}
}

func findAll(re *regexp.Regexp, text string) []string {
	matches := re.FindAllString(text, -1)
	if matches == nil {
		return []string{}
	}
	return matches
}
