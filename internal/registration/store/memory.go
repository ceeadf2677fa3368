package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"entrant/internal/registration/models"
	id "entrant/pkg/domain"
	"entrant/pkg/platform/sentinel"
)

// segmentState is the slice of segment state the capacity gate needs.
type segmentState struct {
	capacity int
	reserved int
	paused   bool
}

// MemoryStore is an in-memory registration store for tests and
// single-process development runs. One mutex serializes the capacity gate
// the way the row lock does in PostgreSQL.
type MemoryStore struct {
	mu            sync.Mutex
	segments      map[id.SegmentID]*segmentState
	registrations map[id.RegistrationID]*models.Registration
}

// NewMemory creates an empty in-memory registration store.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		segments:      make(map[id.SegmentID]*segmentState),
		registrations: make(map[id.RegistrationID]*models.Registration),
	}
}

// SeedSegment registers a segment with the gate. Capacity 0 means
// unlimited.
func (s *MemoryStore) SeedSegment(segmentID id.SegmentID, capacity int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.segments[segmentID] = &segmentState{capacity: capacity}
}

// SetPaused flips the pause flag seen by the gate.
func (s *MemoryStore) SetPaused(segmentID id.SegmentID, paused bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seg, ok := s.segments[segmentID]; ok {
		seg.paused = paused
	}
}

// ReservedCount reports the current counter, for test assertions.
func (s *MemoryStore) ReservedCount(segmentID id.SegmentID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seg, ok := s.segments[segmentID]; ok {
		return seg.reserved
	}
	return 0
}

func (s *MemoryStore) CreateWithCapacity(ctx context.Context, reg *models.Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seg, ok := s.segments[reg.SegmentID]
	if !ok {
		return fmt.Errorf("segment %s: %w", reg.SegmentID, sentinel.ErrNotFound)
	}
	if seg.paused {
		return sentinel.ErrPaused
	}
	for _, existing := range s.registrations {
		if existing.SegmentID == reg.SegmentID &&
			existing.PrincipalRef == reg.PrincipalRef &&
			existing.Status != models.StatusRejected {
			return sentinel.ErrConflict
		}
	}
	if seg.capacity > 0 && seg.reserved >= seg.capacity {
		return sentinel.ErrCapacity
	}

	seg.reserved++
	clone := *reg
	s.registrations[reg.ID] = &clone
	return nil
}

func (s *MemoryStore) GetByID(ctx context.Context, regID id.RegistrationID) (*models.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(regID)
}

func (s *MemoryStore) getLocked(regID id.RegistrationID) (*models.Registration, error) {
	reg, ok := s.registrations[regID]
	if !ok {
		return nil, fmt.Errorf("registration %s: %w", regID, sentinel.ErrNotFound)
	}
	clone := *reg
	return &clone, nil
}

func (s *MemoryStore) ConfirmPayment(ctx context.Context, regID id.RegistrationID, now time.Time) (*models.Registration, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reg, ok := s.registrations[regID]
	if !ok {
		return nil, false, fmt.Errorf("registration %s: %w", regID, sentinel.ErrNotFound)
	}
	transitioned := reg.Status == models.StatusPendingPayment
	if err := reg.Confirm(now); err != nil {
		return nil, false, err
	}
	clone := *reg
	return &clone, transitioned, nil
}

func (s *MemoryStore) Reject(ctx context.Context, regID id.RegistrationID) (*models.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reg, ok := s.registrations[regID]
	if !ok {
		return nil, fmt.Errorf("registration %s: %w", regID, sentinel.ErrNotFound)
	}
	transitioned, err := reg.Reject()
	if err != nil {
		return nil, fmt.Errorf("registration %s: %w", regID, sentinel.ErrInvalidState)
	}
	if transitioned {
		s.releaseLocked(reg.SegmentID)
	}
	clone := *reg
	return &clone, nil
}

func (s *MemoryStore) ExpirePending(ctx context.Context, regID id.RegistrationID, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reg, ok := s.registrations[regID]
	if !ok {
		return false, fmt.Errorf("registration %s: %w", regID, sentinel.ErrNotFound)
	}
	if !reg.PaymentExpired(now) {
		return false, nil
	}
	if transitioned, err := reg.Reject(); err != nil || !transitioned {
		return false, err
	}
	s.releaseLocked(reg.SegmentID)
	return true, nil
}

func (s *MemoryStore) releaseLocked(segmentID id.SegmentID) {
	if seg, ok := s.segments[segmentID]; ok && seg.reserved > 0 {
		seg.reserved--
	}
}

func (s *MemoryStore) ListBySegment(ctx context.Context, segmentID id.SegmentID) ([]models.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Registration
	for _, reg := range s.registrations {
		if reg.SegmentID == segmentID {
			out = append(out, *reg)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]id.RegistrationID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []id.RegistrationID
	for _, reg := range s.registrations {
		if reg.PaymentExpired(now) {
			out = append(out, reg.ID)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}
