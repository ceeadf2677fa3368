package publisher

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"entrant/pkg/platform/audit"
	"entrant/pkg/platform/audit/store/memory"
)

func TestPublisher_SyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher([]Sink{store})
	defer pub.Close()

	event := audit.Event{
		ActorID: "user-1",
		Subject: "registration:abc",
		Action:  audit.ActionRegistrationCreated,
	}

	err := pub.Emit(context.Background(), event)
	require.NoError(t, err)

	events, err := store.ListBySubject(context.Background(), "registration:abc")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, audit.ActionRegistrationCreated, events[0].Action)
	assert.False(t, events[0].Timestamp.IsZero(), "timestamp should be stamped")
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher([]Sink{store}, WithAsyncBuffer(100))

	for range 10 {
		err := pub.Emit(context.Background(), audit.Event{
			Subject: "registration:abc",
			Action:  audit.ActionRegistrationConfirmed,
		})
		require.NoError(t, err)
	}

	// Close should drain all events
	pub.Close()

	assert.Len(t, store.All(), 10, "all events should be drained on close")
}

func TestPublisher_FansOutToAllSinks(t *testing.T) {
	first := memory.NewInMemoryStore()
	second := memory.NewInMemoryStore()
	pub := NewPublisher([]Sink{first, second})
	defer pub.Close()

	err := pub.Emit(context.Background(), audit.Event{Subject: "segment:s1", Action: audit.ActionPauseToggled})
	require.NoError(t, err)

	assert.Len(t, first.All(), 1)
	assert.Len(t, second.All(), 1)
}

func TestPublisher_BufferFull_DropsNotBlocks(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher([]Sink{store}, WithAsyncBuffer(1))
	defer pub.Close()

	var wg sync.WaitGroup
	done := make(chan struct{})
	go func() {
		defer close(done)
		for range 50 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = pub.Emit(context.Background(), audit.Event{
					Subject: "registration:abc",
					Action:  audit.ActionRegistrationCreated,
				})
			}()
		}
		wg.Wait()
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Emit must never block the caller")
	}
}
