// Package respond picks templated replies for classified messages.
package respond

import (
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/johncui/hydrogpt/pkg/engine/arith"
	"github.com/johncui/hydrogpt/pkg/model"
)

// Chooser returns a uniformly distributed int in [0, n). *rand.Rand from
// math/rand/v2 satisfies it.
type Chooser interface {
	IntN(n int) int
}

type globalChooser struct{}

func (globalChooser) IntN(n int) int { return rand.IntN(n) }

const learningSuffix = " I'm continuously learning and improving my responses based on our interactions."

var pools = map[model.IntentLabel][]string{
	model.IntentQuestion: {
		"That's an excellent question! Let me provide you with a comprehensive answer. ",
		"I'd be happy to explain that for you. ",
		"Great question! Here's what I can tell you about that: ",
	},
	model.IntentCreative: {
		"I'd love to help you create something amazing! ",
		"Creative projects are my favorite! Let me help you with that. ",
		"I'm excited to work on this creative task with you! ",
	},
	model.IntentAnalysis: {
		"Let me analyze this thoroughly for you. ",
		"I'll provide a comprehensive analysis of this topic. ",
		"Here's my detailed analysis: ",
	},
	model.IntentCoding: {
		"I'd be happy to help you with coding! ",
		"Let me assist you with that programming task. ",
		"Great! I love helping with code. ",
	},
	model.IntentGeneral: {
		"I understand what you're looking for. ",
		"That's interesting! ",
		"I'd be glad to help you with that. ",
	},
}

var webPool = []string{
	"Based on the latest information I found on the web: ",
	"Here's what I discovered from current web sources: ",
	"According to recent web data: ",
}

var contextualPool = []string{
	"Based on my knowledge and analysis of your question about %s, I can provide detailed insights and practical information.",
	"This is a fascinating topic that involves multiple aspects including %s and related concepts.",
	"From my training and continuous learning, I can offer comprehensive information about this subject.",
}

const codeBody = "Here's how I would approach this programming challenge. I'll provide clean, efficient code with proper documentation and best practices. My solution takes into account performance, readability, and maintainability."

// Selector builds replies from fixed template pools. It is safe for
// concurrent use.
type Selector struct {
	mu      sync.Mutex
	chooser Chooser
}

// NewSelector returns a selector drawing from c, or from the global
// math/rand/v2 source when c is nil.
func NewSelector(c Chooser) *Selector {
	if c == nil {
		c = globalChooser{}
	}
	return &Selector{chooser: c}
}

// Select renders the reply for intent. The conversation log is accepted
// for future use and does not influence the output.
func (s *Selector) Select(intent model.IntentLabel, input model.ProcessedInput, _ model.ConversationLog) string {
	switch intent {
	case model.IntentCalculation:
		return arith.CapabilityListing
	case model.IntentAnalysis:
		return s.pick(pools[intent]) + detailedAnalysis(input)
	case model.IntentCoding:
		return s.pick(pools[intent]) + codeBody
	case model.IntentQuestion, model.IntentCreative:
		return s.pick(pools[intent]) + s.contextual(input)
	default:
		return s.pick(pools[model.IntentGeneral]) + s.contextual(input)
	}
}

// WithWebData renders a reply citing search results. The results are a
// placeholder and are not quoted.
func (s *Selector) WithWebData(input model.ProcessedInput, _ *model.SearchResults) string {
	return s.pick(webPool) + s.contextual(input)
}

// Pool returns a copy of the prefix templates for intent, or nil for
// calculation which has no pool.
func Pool(intent model.IntentLabel) []string {
	p, ok := pools[intent]
	if !ok {
		return nil
	}
	return append([]string(nil), p...)
}

// WebPool returns a copy of the web-citation prefixes.
func WebPool() []string {
	return append([]string(nil), webPool...)
}

// Topic is the first whitespace-delimited token of the lower-cased input.
func Topic(input model.ProcessedInput) string {
	fields := strings.Fields(strings.ToLower(input.Normalized))
	if len(fields) == 0 {
		return "this"
	}
	return fields[0]
}

func (s *Selector) contextual(input model.ProcessedInput) string {
	tmpl := s.pick(contextualPool)
	if strings.Contains(tmpl, "%s") {
		tmpl = strings.Replace(tmpl, "%s", Topic(input), 1)
	}
	return tmpl + learningSuffix
}

func detailedAnalysis(input model.ProcessedInput) string {
	return "After processing your request about " + input.Normalized +
		", I've considered multiple perspectives and data points. My analysis includes both theoretical foundations and practical applications, drawing from my extensive training data and continuous learning capabilities."
}

func (s *Selector) pick(pool []string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return pool[s.chooser.IntN(len(pool))]
}
