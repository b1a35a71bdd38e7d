package store_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/gt"

	"github.com/johncui/hydrogpt/pkg/model"
	"github.com/johncui/hydrogpt/pkg/store"
)

func runKVTest(t *testing.T, newKV func(t *testing.T) store.KV) {
	t.Helper()

	t.Run("Read missing key", func(t *testing.T) {
		kv := newKV(t)
		v, found, err := kv.Read(context.Background(), "missing-"+uuid.NewString())
		gt.NoError(t, err).Required()
		gt.Bool(t, found).False()
		gt.Value(t, v).Equal("")
	})

	t.Run("Write then Read", func(t *testing.T) {
		kv := newKV(t)
		ctx := context.Background()
		key := "k-" + uuid.NewString()

		gt.NoError(t, kv.Write(ctx, key, `{"a":1}`)).Required()
		v, found, err := kv.Read(ctx, key)
		gt.NoError(t, err).Required()
		gt.Bool(t, found).True()
		gt.Value(t, v).Equal(`{"a":1}`)
	})

	t.Run("Write overwrites", func(t *testing.T) {
		kv := newKV(t)
		ctx := context.Background()
		key := "k-" + uuid.NewString()

		gt.NoError(t, kv.Write(ctx, key, "first")).Required()
		gt.NoError(t, kv.Write(ctx, key, "second")).Required()
		v, _, err := kv.Read(ctx, key)
		gt.NoError(t, err).Required()
		gt.Value(t, v).Equal("second")
	})

	t.Run("Delete removes key", func(t *testing.T) {
		kv := newKV(t)
		ctx := context.Background()
		key := "k-" + uuid.NewString()

		gt.NoError(t, kv.Write(ctx, key, "v")).Required()
		gt.NoError(t, kv.Delete(ctx, key)).Required()
		_, found, err := kv.Read(ctx, key)
		gt.NoError(t, err).Required()
		gt.Bool(t, found).False()

		gt.NoError(t, kv.Delete(ctx, key))
	})

	t.Run("Keys lists written keys", func(t *testing.T) {
		kv := newKV(t)
		ctx := context.Background()
		k1 := "a-" + uuid.NewString()
		k2 := "b-" + uuid.NewString()

		gt.NoError(t, kv.Write(ctx, k1, "1")).Required()
		gt.NoError(t, kv.Write(ctx, k2, "2")).Required()
		keys, err := kv.Keys(ctx)
		gt.NoError(t, err).Required()
		gt.Array(t, keys).Has(k1)
		gt.Array(t, keys).Has(k2)
	})
}

func TestMemoryKV(t *testing.T) {
	runKVTest(t, func(t *testing.T) store.KV {
		kv, err := store.Open(context.Background(), store.Options{Backend: store.BackendMemory})
		gt.NoError(t, err).Required()
		return kv
	})
}

func TestSQLiteKV(t *testing.T) {
	runKVTest(t, func(t *testing.T) store.KV {
		kv, err := store.Open(context.Background(), store.Options{
			Backend: store.BackendSQLite,
			DBPath:  filepath.Join(t.TempDir(), "nested", "test.db"),
		})
		gt.NoError(t, err).Required()
		t.Cleanup(func() { _ = kv.Close() })
		return kv
	})
}

func TestSQLiteKV_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "reopen.db")

	kv, err := store.Open(ctx, store.Options{Backend: store.BackendSQLite, DBPath: path})
	gt.NoError(t, err).Required()
	gt.NoError(t, kv.Write(ctx, "persisted", "yes")).Required()
	gt.NoError(t, kv.Close()).Required()

	kv, err = store.Open(ctx, store.Options{Backend: store.BackendSQLite, DBPath: path})
	gt.NoError(t, err).Required()
	defer kv.Close()

	v, found, err := kv.Read(ctx, "persisted")
	gt.NoError(t, err).Required()
	gt.Bool(t, found).True()
	gt.Value(t, v).Equal("yes")
}

func TestRedisKV(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}

	runKVTest(t, func(t *testing.T) store.KV {
		kv, err := store.Open(context.Background(), store.Options{
			Backend:   store.BackendRedis,
			RedisURL:  url,
			KeyPrefix: "hydrogpt-test-" + uuid.NewString() + ":",
		})
		gt.NoError(t, err).Required()
		t.Cleanup(func() { _ = kv.Close() })
		return kv
	})
}

func TestOpen_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := store.Open(ctx, store.Options{Backend: "etcd"})
	gt.Error(t, err)

	_, err = store.Open(ctx, store.Options{Backend: store.BackendRedis})
	gt.Error(t, err).Is(store.ErrPersistence)
}

// faultyKV fails every call.
type faultyKV struct{ err error }

func (f *faultyKV) Read(context.Context, string) (string, bool, error) { return "", false, f.err }
func (f *faultyKV) Write(context.Context, string, string) error        { return f.err }
func (f *faultyKV) Delete(context.Context, string) error               { return f.err }
func (f *faultyKV) Keys(context.Context) ([]string, error)             { return nil, f.err }
func (f *faultyKV) Close() error                                       { return nil }

func newMemoryArchive(t *testing.T) (*store.Archive, store.KV) {
	t.Helper()
	kv, err := store.Open(context.Background(), store.Options{Backend: store.BackendMemory})
	gt.NoError(t, err).Required()
	return store.NewArchive(kv), kv
}

func TestArchive_Conversations(t *testing.T) {
	ctx := context.Background()
	archive, _ := newMemoryArchive(t)

	empty, err := archive.LoadConversations(ctx)
	gt.NoError(t, err).Required()
	gt.Value(t, len(empty)).Equal(0)

	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	logs := map[string]model.ConversationLog{
		"c1": {{UserText: "hi", AssistantText: "hello", Timestamp: at}},
	}
	gt.NoError(t, archive.SaveConversations(ctx, logs)).Required()

	loaded, err := archive.LoadConversations(ctx)
	gt.NoError(t, err).Required()
	gt.Array(t, loaded["c1"]).Length(1)
	gt.Value(t, loaded["c1"][0].AssistantText).Equal("hello")
	gt.Bool(t, loaded["c1"][0].Timestamp.Equal(at)).True()
}

func TestArchive_InteractionsAndChats(t *testing.T) {
	ctx := context.Background()
	archive, _ := newMemoryArchive(t)

	items := []model.Interaction{{ID: "i1", Input: "in", Output: "out"}}
	gt.NoError(t, archive.SaveInteractions(ctx, items)).Required()
	loadedItems, err := archive.LoadInteractions(ctx)
	gt.NoError(t, err).Required()
	gt.Array(t, loadedItems).Length(1)
	gt.Value(t, loadedItems[0].Rating).Nil()

	chats := []model.ChatSession{{ID: "chat_1", Title: "New Chat"}}
	gt.NoError(t, archive.SaveChats(ctx, chats)).Required()
	loadedChats, err := archive.LoadChats(ctx)
	gt.NoError(t, err).Required()
	gt.Array(t, loadedChats).Length(1)
	gt.Value(t, loadedChats[0].Title).Equal("New Chat")
}

func TestArchive_WritesLearningLogWithNullRating(t *testing.T) {
	ctx := context.Background()
	archive, kv := newMemoryArchive(t)

	gt.NoError(t, archive.SaveInteractions(ctx, []model.Interaction{{ID: "i1"}})).Required()
	raw, found, err := kv.Read(ctx, store.KeyLearningData)
	gt.NoError(t, err).Required()
	gt.Bool(t, found).True()
	gt.String(t, raw).Contains(`"rating":null`)
}

func TestArchive_CorruptDocument(t *testing.T) {
	ctx := context.Background()
	archive, kv := newMemoryArchive(t)

	gt.NoError(t, kv.Write(ctx, store.KeyChatHistory, "{oops")).Required()
	_, err := archive.LoadChats(ctx)
	gt.Error(t, err).Is(store.ErrPersistence)
}

func TestArchive_BackendFailure(t *testing.T) {
	ctx := context.Background()
	cause := errors.New("disk full")
	archive := store.NewArchive(&faultyKV{err: cause})

	err := archive.SaveChats(ctx, nil)
	gt.Error(t, err).Is(store.ErrPersistence)
	gt.Error(t, err).Is(cause)

	logs, err := archive.LoadConversations(ctx)
	gt.Error(t, err).Is(store.ErrPersistence)
	gt.Value(t, logs).NotNil()
}
