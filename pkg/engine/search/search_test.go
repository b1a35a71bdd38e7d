package search_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/johncui/hydrogpt/pkg/engine/search"
)

type fixedJitter int64

func (f fixedJitter) Int64N(n int64) int64 { return int64(f) % n }

func TestNeedsExternalLookup(t *testing.T) {
	gt.Bool(t, search.NeedsExternalLookup("what's the weather today")).True()
	gt.Bool(t, search.NeedsExternalLookup("Any BREAKING news?")).True()
	gt.Bool(t, search.NeedsExternalLookup("AAPL stock price")).True()
	gt.Bool(t, search.NeedsExternalLookup("tell me a joke")).False()
	gt.Bool(t, search.NeedsExternalLookup("")).False()
}

func TestSimulated_Search(t *testing.T) {
	at := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	s := &search.Simulated{Now: func() time.Time { return at }}

	res, err := s.Search(context.Background(), "latest news")
	gt.NoError(t, err).Required()
	gt.Value(t, res.Query).Equal("latest news")
	gt.Value(t, res.Timestamp).Equal(at)
	gt.Array(t, res.Results).Length(1)
	gt.Value(t, res.Results[0].URL).Equal("https://example.com/data")
	gt.Value(t, res.Results[0].Title).Equal("Relevant information found")
}

func TestSimulated_Delay(t *testing.T) {
	s := &search.Simulated{MinDelay: 20 * time.Millisecond, Jitter: 10 * time.Millisecond, Rand: fixedJitter(5 * time.Millisecond)}

	start := time.Now()
	_, err := s.Search(context.Background(), "current events")
	gt.NoError(t, err).Required()
	gt.Bool(t, time.Since(start) >= 25*time.Millisecond).True()
}

func TestSimulated_Cancelled(t *testing.T) {
	s := search.NewSimulated(time.Hour, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Search(ctx, "today's weather")
	gt.Bool(t, errors.Is(err, context.Canceled)).True()
}
