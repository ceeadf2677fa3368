package pendingindex

import (
	"context"
	"sync"
	"time"

	id "entrant/pkg/domain"
)

// MemoryIndex is an in-process deadline index for tests and dev runs
// without Redis.
type MemoryIndex struct {
	mu        sync.Mutex
	deadlines map[id.RegistrationID]time.Time
}

// NewMemory creates an empty in-memory deadline index.
func NewMemory() *MemoryIndex {
	return &MemoryIndex{deadlines: make(map[id.RegistrationID]time.Time)}
}

func (i *MemoryIndex) Add(ctx context.Context, regID id.RegistrationID, deadline time.Time) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.deadlines[regID] = deadline
	return nil
}

func (i *MemoryIndex) Remove(ctx context.Context, regID id.RegistrationID) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.deadlines, regID)
	return nil
}

func (i *MemoryIndex) Due(ctx context.Context, now time.Time, limit int) ([]id.RegistrationID, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	var out []id.RegistrationID
	for regID, deadline := range i.deadlines {
		if !deadline.After(now) {
			out = append(out, regID)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}
