// Package knowledge holds a small topic catalogue that facts can be added to.
package knowledge

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/m-mizutani/goerr/v2"

	"github.com/johncui/hydrogpt/pkg/metrics"
	"github.com/johncui/hydrogpt/pkg/model"
	"github.com/johncui/hydrogpt/pkg/store"
)

var (
	ErrEmptyTopic = errors.New("topic is empty")
	ErrEmptyFact  = errors.New("fact is empty")
)

// DefaultSearchLimit caps Search when limit is not positive.
const DefaultSearchLimit = 10

func seed() map[string]model.KnowledgeTopic {
	return map[string]model.KnowledgeTopic{
		"science": {
			Name:          "science",
			Subcategories: []string{"physics", "chemistry", "biology", "astronomy"},
			Facts:         []string{},
		},
		"technology": {
			Name:          "technology",
			Subcategories: []string{"programming", "ai", "web development", "mobile"},
			Facts:         []string{},
		},
		"mathematics": {
			Name:          "mathematics",
			Subcategories: []string{"algebra", "calculus", "geometry", "statistics"},
			Facts:         []string{},
		},
	}
}

type Options struct {
	Archive *store.Archive
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// Base is safe for concurrent use.
type Base struct {
	archive *store.Archive
	metrics *metrics.Metrics
	logger  *slog.Logger

	mu     sync.RWMutex
	topics map[string]model.KnowledgeTopic
}

// New seeds the default topics and overlays whatever was persisted.
func New(ctx context.Context, opt Options) *Base {
	if opt.Logger == nil {
		opt.Logger = slog.New(slog.NewTextHandler(os.Stdout, nil))
	}
	b := &Base{
		archive: opt.Archive,
		metrics: opt.Metrics,
		logger:  opt.Logger,
		topics:  seed(),
	}

	if b.archive != nil {
		stored, err := b.archive.LoadKnowledge(ctx)
		if err != nil {
			b.persistenceFailed("load_knowledge", err)
		}
		for name, t := range stored {
			b.topics[normalize(name)] = t
		}
	}
	return b
}

// Query looks up a topic case-insensitively.
func (b *Base) Query(topic string) (model.KnowledgeTopic, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	t, ok := b.topics[normalize(topic)]
	if !ok {
		return model.KnowledgeTopic{}, false
	}
	return cloneTopic(t), true
}

// Topics lists topic names in alphabetical order.
func (b *Base) Topics() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	names := make([]string, 0, len(b.topics))
	for name := range b.topics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Add records fact under topic, creating the topic when needed. Persistence
// failures are logged and do not fail the call.
func (b *Base) Add(ctx context.Context, topic, fact string) (model.KnowledgeTopic, error) {
	name := normalize(topic)
	fact = strings.TrimSpace(fact)
	if name == "" {
		return model.KnowledgeTopic{}, goerr.Wrap(ErrEmptyTopic, "cannot add fact")
	}
	if fact == "" {
		return model.KnowledgeTopic{}, goerr.Wrap(ErrEmptyFact, "cannot add fact", goerr.V("topic", name))
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.topics[name]
	if !ok {
		t = model.KnowledgeTopic{Name: name, Subcategories: []string{}, Facts: []string{}}
	}
	t.Facts = append(t.Facts, fact)
	b.topics[name] = t

	if b.archive != nil {
		if err := b.archive.SaveKnowledge(ctx, b.topics); err != nil {
			b.persistenceFailed("save_knowledge", err)
		}
	}
	return cloneTopic(t), nil
}

// Search returns facts whose text or topic contains term, case-insensitively,
// ordered by topic then insertion.
func (b *Base) Search(term string, limit int) []model.KnowledgeFact {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	needle := strings.ToLower(strings.TrimSpace(term))

	b.mu.RLock()
	defer b.mu.RUnlock()

	names := make([]string, 0, len(b.topics))
	for name := range b.topics {
		names = append(names, name)
	}
	sort.Strings(names)

	out := []model.KnowledgeFact{}
	for _, name := range names {
		topicHit := strings.Contains(name, needle)
		for _, f := range b.topics[name].Facts {
			if !topicHit && !strings.Contains(strings.ToLower(f), needle) {
				continue
			}
			out = append(out, model.KnowledgeFact{Topic: name, Fact: f})
			if len(out) == limit {
				return out
			}
		}
	}
	return out
}

func (b *Base) persistenceFailed(op string, err error) {
	b.metrics.PersistenceFailed(op)
	b.logger.Error("persistence failed", "op", op, "err", err)
}

func normalize(topic string) string {
	return strings.ToLower(strings.TrimSpace(topic))
}

func cloneTopic(t model.KnowledgeTopic) model.KnowledgeTopic {
	t.Subcategories = append([]string{}, t.Subcategories...)
	t.Facts = append([]string{}, t.Facts...)
	return t
}
