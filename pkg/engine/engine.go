// Package engine turns a user message into an assistant reply.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"

	"github.com/johncui/hydrogpt/pkg/engine/arith"
	"github.com/johncui/hydrogpt/pkg/engine/intent"
	"github.com/johncui/hydrogpt/pkg/engine/respond"
	"github.com/johncui/hydrogpt/pkg/engine/search"
	"github.com/johncui/hydrogpt/pkg/memory"
	"github.com/johncui/hydrogpt/pkg/metrics"
	"github.com/johncui/hydrogpt/pkg/model"
	"github.com/johncui/hydrogpt/pkg/store"
)

// Apology is returned whenever a reply cannot be produced.
const Apology = "I apologize, but I encountered an error processing your request. Please try again."

var (
	ErrInteractionNotFound = errors.New("interaction not found")
	ErrInvalidRating       = errors.New("rating must be between 1 and 5")
)

// Ratings accepted by Rate.
const (
	MinRating = 1
	MaxRating = 5
)

// Options configures Engine. Zero values get usable defaults.
type Options struct {
	Memory      *memory.ConversationMemory
	MemoryLimit int
	Selector    *respond.Selector
	Searcher    search.Searcher
	// Archive persists memory and the learning log. Nil disables persistence.
	Archive *store.Archive
	Metrics *metrics.Metrics
	Logger  *slog.Logger
	Now     func() time.Time
}

// Engine implements model.Generator.
type Engine struct {
	memory   *memory.ConversationMemory
	selector *respond.Selector
	searcher search.Searcher
	archive  *store.Archive
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time

	// mu guards interactions and orders writes to the archive.
	mu           sync.Mutex
	interactions []model.Interaction
}

// New builds an engine and restores any persisted state from opt.Archive.
// Restore failures are logged and the engine starts empty.
func New(ctx context.Context, opt Options) *Engine {
	if opt.Logger == nil {
		opt.Logger = slog.New(slog.NewTextHandler(os.Stdout, nil))
	}
	if opt.Memory == nil {
		opt.Memory = memory.NewConversationMemory(opt.MemoryLimit)
	}
	if opt.Selector == nil {
		opt.Selector = respond.NewSelector(nil)
	}
	if opt.Searcher == nil {
		opt.Searcher = search.NewSimulated(time.Second, 2*time.Second)
	}
	if opt.Now == nil {
		opt.Now = func() time.Time { return time.Now().UTC() }
	}

	e := &Engine{
		memory:   opt.Memory,
		selector: opt.Selector,
		searcher: opt.Searcher,
		archive:  opt.Archive,
		metrics:  opt.Metrics,
		logger:   opt.Logger,
		now:      opt.Now,
	}
	e.restore(ctx)
	return e
}

func (e *Engine) restore(ctx context.Context) {
	if e.archive == nil {
		return
	}

	logs, err := e.archive.LoadConversations(ctx)
	if err != nil {
		e.persistenceFailed("load_conversations", err)
	} else {
		e.memory.Restore(logs)
	}

	items, err := e.archive.LoadInteractions(ctx)
	if err != nil {
		e.persistenceFailed("load_interactions", err)
		return
	}
	e.interactions = items
	e.logger.Info("engine state restored", "conversations", len(logs), "interactions", len(items))
}

// Generate never fails. Any internal error or panic is logged and rendered as
// Apology.
func (e *Engine) Generate(ctx context.Context, message, conversationID string) (reply string) {
	start := time.Now()
	label := model.IntentGeneral
	branch := metrics.BranchFailure

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("panic while generating reply", "panic", r, "conversation", conversationID)
			reply = Apology
			branch = metrics.BranchFailure
		}
		e.metrics.ObserveReply(label.String(), branch, time.Since(start))
	}()

	input := intent.Preprocess(message, e.now())
	label = input.Intent

	text, br, err := e.respond(ctx, input, conversationID)
	if err != nil {
		e.logger.Warn("failed to generate reply", "err", err, "conversation", conversationID)
		return Apology
	}
	branch = br

	e.remember(ctx, conversationID, input, text)
	return text
}

func (e *Engine) respond(ctx context.Context, input model.ProcessedInput, conversationID string) (string, string, error) {
	if arith.IsArithmeticQuery(input.Normalized) {
		text, err := arith.Solve(input.Normalized)
		if err != nil {
			e.metrics.EvaluationFailed()
			e.logger.Debug("expression not evaluated", "err", err)
		}
		return text, metrics.BranchArithmetic, nil
	}

	if search.NeedsExternalLookup(input.Normalized) {
		results, err := e.searcher.Search(ctx, input.Normalized)
		if err != nil {
			return "", metrics.BranchSearch, goerr.Wrap(err, "external lookup failed")
		}
		return e.selector.WithWebData(input, results), metrics.BranchSearch, nil
	}

	return e.selector.Select(input.Intent, input, e.memory.Get(conversationID)), metrics.BranchPool, nil
}

// remember records the exchange in memory and the learning log, then
// persists both.
func (e *Engine) remember(ctx context.Context, conversationID string, input model.ProcessedInput, reply string) {
	now := e.now()
	e.memory.Append(conversationID, model.Exchange{
		UserText:      input.Original,
		AssistantText: reply,
		Timestamp:     now,
	})

	e.mu.Lock()
	defer e.mu.Unlock()

	e.interactions = append(e.interactions, model.Interaction{
		ID:        uuid.NewString(),
		Input:     input.Original,
		Output:    reply,
		Timestamp: now,
	})

	if e.archive == nil {
		return
	}
	if err := e.archive.SaveConversations(ctx, e.memory.Snapshot()); err != nil {
		e.persistenceFailed("save_conversations", err)
	}
	e.saveInteractions(ctx)
}

// Rate attaches user feedback to a recorded interaction.
func (e *Engine) Rate(ctx context.Context, interactionID string, rating int) (model.Interaction, error) {
	if rating < MinRating || rating > MaxRating {
		return model.Interaction{}, goerr.Wrap(ErrInvalidRating, "cannot rate interaction", goerr.V("rating", rating))
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range e.interactions {
		if e.interactions[i].ID != interactionID {
			continue
		}
		r := rating
		e.interactions[i].Rating = &r
		e.saveInteractions(ctx)
		return e.interactions[i], nil
	}
	return model.Interaction{}, goerr.Wrap(ErrInteractionNotFound, "cannot rate interaction", goerr.V("id", interactionID))
}

// saveInteractions must be called with mu held.
func (e *Engine) saveInteractions(ctx context.Context) {
	if e.archive == nil {
		return
	}
	if err := e.archive.SaveInteractions(ctx, e.interactions); err != nil {
		e.persistenceFailed("save_interactions", err)
	}
}

func (e *Engine) persistenceFailed(op string, err error) {
	e.metrics.PersistenceFailed(op)
	e.logger.Error("persistence failed", "op", op, "err", err)
}

// History returns a copy of the conversation log for id.
func (e *Engine) History(conversationID string) model.ConversationLog {
	return e.memory.Get(conversationID)
}

// Interactions returns a copy of the learning log, oldest first.
func (e *Engine) Interactions() []model.Interaction {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]model.Interaction, len(e.interactions))
	copy(out, e.interactions)
	return out
}

var _ model.Generator = (*Engine)(nil)
