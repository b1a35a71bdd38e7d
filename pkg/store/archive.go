package store

import (
	"context"
	"encoding/json"

	"github.com/m-mizutani/goerr/v2"

	"github.com/johncui/hydrogpt/pkg/model"
)

// Keys under which the archive keeps its documents.
const (
	KeyConversationMemory = "hydrogpt-conversation-memory"
	KeyLearningData       = "hydrogpt-learning-data"
	KeyChatHistory        = "hydrogpt-chat-history"
	KeyKnowledgeBase      = "hydrogpt-knowledge-base"
)

// Archive stores typed JSON documents in a KV. Every error it returns
// matches ErrPersistence.
type Archive struct {
	kv KV
}

func NewArchive(kv KV) *Archive {
	return &Archive{kv: kv}
}

// LoadConversations returns every persisted conversation log. A missing
// document yields an empty map.
func (a *Archive) LoadConversations(ctx context.Context) (map[string]model.ConversationLog, error) {
	out := map[string]model.ConversationLog{}
	if err := a.read(ctx, KeyConversationMemory, &out); err != nil {
		return map[string]model.ConversationLog{}, err
	}
	return out, nil
}

func (a *Archive) SaveConversations(ctx context.Context, logs map[string]model.ConversationLog) error {
	return a.write(ctx, KeyConversationMemory, logs)
}

// LoadInteractions returns the learning log, oldest first.
func (a *Archive) LoadInteractions(ctx context.Context) ([]model.Interaction, error) {
	var out []model.Interaction
	if err := a.read(ctx, KeyLearningData, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *Archive) SaveInteractions(ctx context.Context, items []model.Interaction) error {
	if items == nil {
		items = []model.Interaction{}
	}
	return a.write(ctx, KeyLearningData, items)
}

// LoadChats returns chat sessions, newest first.
func (a *Archive) LoadChats(ctx context.Context) ([]model.ChatSession, error) {
	var out []model.ChatSession
	if err := a.read(ctx, KeyChatHistory, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *Archive) SaveChats(ctx context.Context, chats []model.ChatSession) error {
	if chats == nil {
		chats = []model.ChatSession{}
	}
	return a.write(ctx, KeyChatHistory, chats)
}

// LoadKnowledge returns persisted knowledge topics keyed by name.
func (a *Archive) LoadKnowledge(ctx context.Context) (map[string]model.KnowledgeTopic, error) {
	out := map[string]model.KnowledgeTopic{}
	if err := a.read(ctx, KeyKnowledgeBase, &out); err != nil {
		return map[string]model.KnowledgeTopic{}, err
	}
	return out, nil
}

func (a *Archive) SaveKnowledge(ctx context.Context, topics map[string]model.KnowledgeTopic) error {
	return a.write(ctx, KeyKnowledgeBase, topics)
}

func (a *Archive) read(ctx context.Context, key string, dst any) error {
	raw, found, err := a.kv.Read(ctx, key)
	if err != nil {
		return persistenceError(err, "failed to read document", goerr.V("key", key))
	}
	if !found || raw == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return persistenceError(err, "failed to decode document", goerr.V("key", key))
	}
	return nil
}

func (a *Archive) write(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return persistenceError(err, "failed to encode document", goerr.V("key", key))
	}
	if err := a.kv.Write(ctx, key, string(raw)); err != nil {
		return persistenceError(err, "failed to write document", goerr.V("key", key))
	}
	return nil
}
