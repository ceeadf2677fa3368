package store

import (
	"context"
	"sync"

	"entrant/internal/catalog/models"
	id "entrant/pkg/domain"
	"entrant/pkg/platform/sentinel"
)

// MemoryStore is an in-memory catalog store for tests and single-process
// development runs.
type MemoryStore struct {
	mu          sync.RWMutex
	segments    map[id.SegmentID]*models.Segment
	constraints map[id.EventID][]models.Constraint
}

// NewMemory creates an empty in-memory catalog store.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		segments:    make(map[id.SegmentID]*models.Segment),
		constraints: make(map[id.EventID][]models.Constraint),
	}
}

// PutSegment seeds or replaces a segment.
func (s *MemoryStore) PutSegment(seg models.Segment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := seg
	s.segments[seg.ID] = &copied
}

// PutConstraint seeds a constraint for its event.
func (s *MemoryStore) PutConstraint(c models.Constraint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.constraints[c.EventID] = append(s.constraints[c.EventID], c)
}

func (s *MemoryStore) GetSegment(ctx context.Context, segmentID id.SegmentID) (*models.Segment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seg, ok := s.segments[segmentID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *seg
	return &copied, nil
}

func (s *MemoryStore) ListConstraintsForEvent(ctx context.Context, eventID id.EventID) ([]models.Constraint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Constraint, len(s.constraints[eventID]))
	copy(out, s.constraints[eventID])
	return out, nil
}

func (s *MemoryStore) TogglePause(ctx context.Context, segmentID id.SegmentID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seg, ok := s.segments[segmentID]
	if !ok {
		return false, sentinel.ErrNotFound
	}
	seg.IsRegistrationPaused = !seg.IsRegistrationPaused
	return seg.IsRegistrationPaused, nil
}
