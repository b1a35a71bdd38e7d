package memory

import (
	"sync"

	"github.com/johncui/hydrogpt/pkg/model"
)

// DefaultLimit is the number of exchanges kept per conversation.
const DefaultLimit = 10

// ConversationMemory keeps a bounded, oldest-first log per conversation.
type ConversationMemory struct {
	mu    sync.Mutex
	logs  map[string]model.ConversationLog
	limit int
}

func NewConversationMemory(limit int) *ConversationMemory {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &ConversationMemory{logs: make(map[string]model.ConversationLog), limit: limit}
}

// Limit returns the per-conversation cap.
func (m *ConversationMemory) Limit() int { return m.limit }

// Append adds an exchange, keeping only the most recent limit entries.
func (m *ConversationMemory) Append(id string, ex model.Exchange) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.logs[id] = m.trim(append(m.logs[id], ex))
}

// Get returns a copy of the log for id; empty when the conversation is unknown.
func (m *ConversationMemory) Get(id string) model.ConversationLog {
	m.mu.Lock()
	defer m.mu.Unlock()

	return clone(m.logs[id])
}

// Snapshot copies every log.
func (m *ConversationMemory) Snapshot() map[string]model.ConversationLog {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]model.ConversationLog, len(m.logs))
	for id, log := range m.logs {
		out[id] = clone(log)
	}
	return out
}

// Restore replaces the current logs, trimming each to the limit.
func (m *ConversationMemory) Restore(logs map[string]model.ConversationLog) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.logs = make(map[string]model.ConversationLog, len(logs))
	for id, log := range logs {
		m.logs[id] = m.trim(clone(log))
	}
}

// Len reports how many conversations are held.
func (m *ConversationMemory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.logs)
}

func (m *ConversationMemory) trim(log model.ConversationLog) model.ConversationLog {
	if len(log) > m.limit {
		return append(model.ConversationLog(nil), log[len(log)-m.limit:]...)
	}
	return log
}

func clone(log model.ConversationLog) model.ConversationLog {
	out := make(model.ConversationLog, len(log))
	copy(out, log)
	return out
}
