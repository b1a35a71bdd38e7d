package model

import (
	"context"
	"time"
)

// IntentLabel is the closed set of categories a user message can fall into.
type IntentLabel string

const (
	IntentCalculation IntentLabel = "calculation"
	IntentQuestion    IntentLabel = "question"
	IntentCreative    IntentLabel = "creative"
	IntentAnalysis    IntentLabel = "analysis"
	IntentCoding      IntentLabel = "coding"
	IntentGeneral     IntentLabel = "general"
)

// Intents lists every label in classification priority order, general last.
var Intents = []IntentLabel{
	IntentCalculation,
	IntentQuestion,
	IntentCreative,
	IntentAnalysis,
	IntentCoding,
	IntentGeneral,
}

// Valid reports whether l belongs to the enumeration.
func (l IntentLabel) Valid() bool {
	for _, v := range Intents {
		if v == l {
			return true
		}
	}
	return false
}

func (l IntentLabel) String() string { return string(l) }

// EntityBag holds substrings pulled out of a message. Slices are never nil.
type EntityBag struct {
	Numbers    []string `json:"numbers"`
	Currencies []string `json:"currencies"`
	Dates      []string `json:"dates"`
	URLs       []string `json:"urls"`
}

// ProcessedInput is the normalized view of one user message.
type ProcessedInput struct {
	Original   string      `json:"original"`
	Normalized string      `json:"normalized"`
	Intent     IntentLabel `json:"intent"`
	Entities   EntityBag   `json:"entities"`
	Timestamp  time.Time   `json:"timestamp"`
}

// Exchange is one recorded user/assistant pair.
type Exchange struct {
	UserText      string    `json:"user"`
	AssistantText string    `json:"ai"`
	Timestamp     time.Time `json:"timestamp"`
}

// ConversationLog is the ordered, oldest-first history of one conversation.
type ConversationLog []Exchange

// Interaction mirrors one entry of the learning log.
type Interaction struct {
	ID        string    `json:"id"`
	Input     string    `json:"input"`
	Output    string    `json:"output"`
	Timestamp time.Time `json:"timestamp"`
	Rating    *int      `json:"rating"`
}

// SearchResult is a single (placeholder) web search hit.
type SearchResult struct {
	Title     string    `json:"title"`
	Snippet   string    `json:"snippet"`
	URL       string    `json:"url"`
	Timestamp time.Time `json:"timestamp"`
}

// SearchResults wraps the hits returned for one query.
type SearchResults struct {
	Query     string         `json:"query"`
	Results   []SearchResult `json:"results"`
	Timestamp time.Time      `json:"timestamp"`
}

// ChatSession is the app-side record of a chat shown in the history list.
type ChatSession struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Messages  []Exchange `json:"messages"`
	Timestamp time.Time  `json:"timestamp"`
}

// Generator produces an assistant reply. Implementations never fail; internal
// errors are rendered as text.
type Generator interface {
	Generate(ctx context.Context, message, conversationID string) string
}

// KnowledgeTopic groups subcategories and recorded facts under one topic.
type KnowledgeTopic struct {
	Name          string   `json:"name"`
	Subcategories []string `json:"subcategories"`
	Facts         []string `json:"facts"`
}

// KnowledgeFact is one fact with the topic it belongs to.
type KnowledgeFact struct {
	Topic string `json:"topic"`
	Fact  string `json:"fact"`
}
