package search

import (
	"context"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/johncui/hydrogpt/pkg/model"
)

var freshnessKeywords = []string{
	"current", "latest", "recent", "today", "news", "weather",
	"stock price", "exchange rate", "what happened", "breaking",
}

// NeedsExternalLookup reports whether text asks for time-sensitive data.
func NeedsExternalLookup(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range freshnessKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Searcher looks up fresh information for a query.
type Searcher interface {
	Search(ctx context.Context, query string) (*model.SearchResults, error)
}

// Jitterer returns a random duration in [0, n).
type Jitterer interface {
	Int64N(n int64) int64
}

type globalJitterer struct{}

func (globalJitterer) Int64N(n int64) int64 { return rand.Int64N(n) }

// Simulated is a placeholder searcher. It never touches the network: after a
// pacing delay it returns a single fabricated result.
type Simulated struct {
	MinDelay time.Duration
	Jitter   time.Duration
	// Rand need not be safe for concurrent use.
	Rand Jitterer
	Now  func() time.Time

	mu sync.Mutex
}

// NewSimulated returns a searcher pausing minDelay plus up to jitter.
func NewSimulated(minDelay, jitter time.Duration) *Simulated {
	return &Simulated{MinDelay: minDelay, Jitter: jitter}
}

// Search waits for the pacing delay and returns the placeholder result.
// Cancelling ctx cuts the delay short and returns ctx's error.
func (s *Simulated) Search(ctx context.Context, query string) (*model.SearchResults, error) {
	if err := s.pause(ctx); err != nil {
		return nil, goerr.Wrap(err, "search interrupted", goerr.V("query", query))
	}

	now := s.now()
	return &model.SearchResults{
		Query: query,
		Results: []model.SearchResult{
			{
				Title:     "Relevant information found",
				Snippet:   "Based on current web data and real-time information...",
				URL:       "https://example.com/data",
				Timestamp: now,
			},
		},
		Timestamp: now,
	}, nil
}

func (s *Simulated) delay() time.Duration {
	d := s.MinDelay
	if s.Jitter > 0 {
		s.mu.Lock()
		r := s.Rand
		if r == nil {
			r = globalJitterer{}
		}
		d += time.Duration(r.Int64N(int64(s.Jitter)))
		s.mu.Unlock()
	}
	return d
}

func (s *Simulated) pause(ctx context.Context) error {
	d := s.delay()
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Simulated) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

var _ Searcher = (*Simulated)(nil)
