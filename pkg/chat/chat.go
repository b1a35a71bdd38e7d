// Package chat keeps the list of chat sessions shown to a user and routes
// messages to a reply generator.
package chat

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"

	"github.com/johncui/hydrogpt/pkg/markup"
	"github.com/johncui/hydrogpt/pkg/metrics"
	"github.com/johncui/hydrogpt/pkg/model"
	"github.com/johncui/hydrogpt/pkg/store"
)

var (
	ErrEmptyMessage = errors.New("message is empty")
	ErrChatNotFound = errors.New("chat not found")
	ErrBusy         = errors.New("chat is already generating a reply")
)

const (
	DefaultTitle = "New Chat"
	titleRunes   = 30
)

// Options configures Manager.
type Options struct {
	Generator model.Generator
	// Archive persists the chat list. Nil keeps chats in memory only.
	Archive *store.Archive
	Metrics *metrics.Metrics
	Logger  *slog.Logger
	Now     func() time.Time
}

// Manager owns chat sessions, newest first. It is safe for concurrent use.
type Manager struct {
	gen     model.Generator
	archive *store.Archive
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time

	mu    sync.Mutex
	chats []*model.ChatSession
	busy  map[string]bool
}

// Reply is the outcome of Send.
type Reply struct {
	ChatID    string    `json:"chat_id"`
	Title     string    `json:"title"`
	Text      string    `json:"response"`
	HTML      string    `json:"html"`
	Timestamp time.Time `json:"timestamp"`
}

// Summary is one row of the chat list.
type Summary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Timestamp    time.Time `json:"timestamp"`
	MessageCount int       `json:"message_count"`
}

// New builds a manager and loads persisted chats. A load failure is logged
// and the manager starts with no chats.
func New(ctx context.Context, opt Options) (*Manager, error) {
	if opt.Generator == nil {
		return nil, goerr.New("chat manager requires a generator")
	}
	if opt.Logger == nil {
		opt.Logger = slog.New(slog.NewTextHandler(os.Stdout, nil))
	}
	if opt.Now == nil {
		opt.Now = func() time.Time { return time.Now().UTC() }
	}

	m := &Manager{
		gen:     opt.Generator,
		archive: opt.Archive,
		metrics: opt.Metrics,
		logger:  opt.Logger,
		now:     opt.Now,
		busy:    make(map[string]bool),
	}

	if m.archive != nil {
		chats, err := m.archive.LoadChats(ctx)
		if err != nil {
			m.persistenceFailed("load_chats", err)
		}
		for i := range chats {
			c := chats[i]
			m.chats = append(m.chats, &c)
		}
	}
	return m, nil
}

// NewChat starts an empty chat at the top of the list.
func (m *Manager) NewChat(ctx context.Context) model.ChatSession {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := m.create()
	m.persist(ctx)
	return clone(c)
}

// create must be called with mu held.
func (m *Manager) create() *model.ChatSession {
	c := &model.ChatSession{
		ID:        "chat_" + uuid.NewString(),
		Title:     DefaultTitle,
		Messages:  []model.Exchange{},
		Timestamp: m.now(),
	}
	m.chats = append([]*model.ChatSession{c}, m.chats...)
	return c
}

// Send delivers message to chatID and records the reply. An empty chatID
// starts a new chat. Only one reply per chat is generated at a time.
func (m *Manager) Send(ctx context.Context, chatID, message string) (*Reply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, goerr.Wrap(ErrEmptyMessage, "cannot send message")
	}

	m.mu.Lock()
	var c *model.ChatSession
	if chatID == "" {
		c = m.create()
	} else if c = m.find(chatID); c == nil {
		m.mu.Unlock()
		return nil, goerr.Wrap(ErrChatNotFound, "cannot send message", goerr.V("chat_id", chatID))
	}
	if m.busy[c.ID] {
		m.mu.Unlock()
		return nil, goerr.Wrap(ErrBusy, "cannot send message", goerr.V("chat_id", c.ID))
	}
	m.busy[c.ID] = true
	id := c.ID
	m.mu.Unlock()

	text := m.gen.Generate(ctx, message, id)

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.busy, id)

	now := m.now()
	if c.Title == DefaultTitle {
		c.Title = Title(message)
	}
	c.Messages = append(c.Messages, model.Exchange{UserText: message, AssistantText: text, Timestamp: now})
	c.Timestamp = now
	m.persist(ctx)

	return &Reply{
		ChatID:    id,
		Title:     c.Title,
		Text:      text,
		HTML:      markup.ToHTML(text),
		Timestamp: now,
	}, nil
}

// Get returns a copy of the chat with id.
func (m *Manager) Get(id string) (model.ChatSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := m.find(id)
	if c == nil {
		return model.ChatSession{}, goerr.Wrap(ErrChatNotFound, "cannot get chat", goerr.V("chat_id", id))
	}
	return clone(c), nil
}

// List summarizes every chat, newest first.
func (m *Manager) List() []Summary {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Summary, 0, len(m.chats))
	for _, c := range m.chats {
		out = append(out, Summary{
			ID:           c.ID,
			Title:        c.Title,
			Timestamp:    c.Timestamp,
			MessageCount: len(c.Messages),
		})
	}
	return out
}

// Title derives a chat title from its first message.
func Title(message string) string {
	r := []rune(message)
	if len(r) > titleRunes {
		return string(r[:titleRunes]) + "..."
	}
	return message
}

func (m *Manager) find(id string) *model.ChatSession {
	for _, c := range m.chats {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// persist must be called with mu held.
func (m *Manager) persist(ctx context.Context) {
	if m.archive == nil {
		return
	}
	out := make([]model.ChatSession, 0, len(m.chats))
	for _, c := range m.chats {
		out = append(out, clone(c))
	}
	if err := m.archive.SaveChats(ctx, out); err != nil {
		m.persistenceFailed("save_chats", err)
	}
}

func (m *Manager) persistenceFailed(op string, err error) {
	m.metrics.PersistenceFailed(op)
	m.logger.Error("persistence failed", "op", op, "err", err)
}

func clone(c *model.ChatSession) model.ChatSession {
	out := *c
	out.Messages = append([]model.Exchange{}, c.Messages...)
	return out
}
