package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"entrant/internal/catalog/metrics"
	"entrant/internal/catalog/models"
	id "entrant/pkg/domain"
	dErrors "entrant/pkg/domain-errors"
	"entrant/pkg/platform/audit"
	"entrant/pkg/platform/sentinel"
	"entrant/pkg/requestcontext"
)

// Store is the catalog persistence surface the service depends on.
type Store interface {
	GetSegment(ctx context.Context, segmentID id.SegmentID) (*models.Segment, error)
	ListConstraintsForEvent(ctx context.Context, eventID id.EventID) ([]models.Constraint, error)
	TogglePause(ctx context.Context, segmentID id.SegmentID) (bool, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service reads segment and constraint state and owns the organizer
// pause toggle.
type Service struct {
	store          Store
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New constructs a Service.
func New(store Store, opts ...Option) *Service {
	s := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetSegment loads a segment or reports not-found as a domain error.
func (s *Service) GetSegment(ctx context.Context, segmentID id.SegmentID) (*models.Segment, error) {
	start := time.Now()
	seg, err := s.store.GetSegment(ctx, segmentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "segment not found")
		}
		return nil, dErrors.Wrap(dErrors.CodeInternal, "failed to load segment", err)
	}
	if s.metrics != nil {
		s.metrics.ObserveGetSegment(start)
	}
	return seg, nil
}

// ApplicableConstraints returns the event constraints that bind the given
// segment, either event-wide or via explicit attachment.
func (s *Service) ApplicableConstraints(ctx context.Context, seg *models.Segment) ([]models.Constraint, error) {
	all, err := s.store.ListConstraintsForEvent(ctx, seg.EventID)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "failed to load constraints", err)
	}
	applicable := make([]models.Constraint, 0, len(all))
	for _, c := range all {
		if c.AppliesTo(seg.ID) {
			applicable = append(applicable, c)
		}
	}
	return applicable, nil
}

// TogglePause flips the segment's registration pause flag and returns the
// new state. Existing registrations are untouched; only new attempts are
// blocked while paused.
func (s *Service) TogglePause(ctx context.Context, segmentID id.SegmentID) (bool, error) {
	paused, err := s.store.TogglePause(ctx, segmentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, dErrors.New(dErrors.CodeNotFound, "segment not found")
		}
		return false, dErrors.Wrap(dErrors.CodeInternal, "failed to toggle pause", err)
	}

	if s.metrics != nil {
		s.metrics.IncrementPauseToggled()
	}
	decision := "resumed"
	if paused {
		decision = "paused"
	}
	s.logger.InfoContext(ctx, "segment pause toggled",
		"request_id", requestcontext.RequestID(ctx),
		"segment_id", segmentID,
		"paused", paused,
	)
	if s.auditPublisher != nil {
		_ = s.auditPublisher.Emit(ctx, audit.Event{
			Timestamp: requestcontext.Now(ctx),
			ActorID:   requestcontext.UserID(ctx).String(),
			Subject:   "segment:" + segmentID.String(),
			Action:    audit.ActionPauseToggled,
			Decision:  decision,
			RequestID: requestcontext.RequestID(ctx),
			Client:    requestcontext.UserAgent(ctx),
		})
	}
	return paused, nil
}
