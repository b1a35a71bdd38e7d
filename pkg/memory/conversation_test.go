package memory_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/johncui/hydrogpt/pkg/memory"
	"github.com/johncui/hydrogpt/pkg/model"
)

func exchange(i int) model.Exchange {
	return model.Exchange{
		UserText:      fmt.Sprintf("user-%d", i),
		AssistantText: fmt.Sprintf("ai-%d", i),
		Timestamp:     time.Unix(int64(i), 0),
	}
}

func TestConversationMemory_GetUnknown(t *testing.T) {
	m := memory.NewConversationMemory(0)

	log := m.Get("missing")
	gt.Value(t, log).NotNil()
	gt.Array(t, log).Length(0)
	gt.Value(t, m.Limit()).Equal(memory.DefaultLimit)
	gt.Value(t, m.Len()).Equal(0)
}

func TestConversationMemory_AppendGrowsUntilLimit(t *testing.T) {
	m := memory.NewConversationMemory(10)

	for i := 0; i < 10; i++ {
		before := len(m.Get("c1"))
		m.Append("c1", exchange(i))
		gt.Array(t, m.Get("c1")).Length(before + 1)
	}

	log := m.Get("c1")
	gt.Value(t, log[0].UserText).Equal("user-0")
	gt.Value(t, log[9].UserText).Equal("user-9")
}

func TestConversationMemory_SlidingWindow(t *testing.T) {
	m := memory.NewConversationMemory(10)
	for i := 0; i < 10; i++ {
		m.Append("c1", exchange(i))
	}

	m.Append("c1", exchange(10))
	log := m.Get("c1")
	gt.Array(t, log).Length(10)
	gt.Value(t, log[0].UserText).Equal("user-1")
	gt.Value(t, log[9].UserText).Equal("user-10")

	for i := 11; i < 25; i++ {
		m.Append("c1", exchange(i))
	}
	log = m.Get("c1")
	gt.Array(t, log).Length(10)
	gt.Value(t, log[0].UserText).Equal("user-15")
	gt.Value(t, log[9].UserText).Equal("user-24")
}

func TestConversationMemory_IsolatedConversations(t *testing.T) {
	m := memory.NewConversationMemory(3)
	m.Append("a", exchange(1))
	m.Append("b", exchange(2))
	m.Append("b", exchange(3))

	gt.Array(t, m.Get("a")).Length(1)
	gt.Array(t, m.Get("b")).Length(2)
	gt.Value(t, m.Len()).Equal(2)
}

func TestConversationMemory_GetReturnsCopy(t *testing.T) {
	m := memory.NewConversationMemory(3)
	m.Append("a", exchange(1))

	log := m.Get("a")
	log[0].UserText = "mutated"

	gt.Value(t, m.Get("a")[0].UserText).Equal("user-1")
}

func TestConversationMemory_SnapshotRestore(t *testing.T) {
	src := memory.NewConversationMemory(5)
	for i := 0; i < 4; i++ {
		src.Append("a", exchange(i))
	}
	snap := src.Snapshot()

	dst := memory.NewConversationMemory(2)
	dst.Restore(snap)

	log := dst.Get("a")
	gt.Array(t, log).Length(2)
	gt.Value(t, log[0].UserText).Equal("user-2")
	gt.Value(t, log[1].UserText).Equal("user-3")

	gt.Array(t, src.Get("a")).Length(4)
}

func TestConversationMemory_ConcurrentAppend(t *testing.T) {
	m := memory.NewConversationMemory(10)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m.Append("shared", exchange(i))
		}(i)
	}
	wg.Wait()

	gt.Array(t, m.Get("shared")).Length(10)
}
