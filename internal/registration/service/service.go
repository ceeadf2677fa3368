// Package service orchestrates the registration lifecycle: eligibility,
// the capacity gate, payment confirmation, cancellation, and expiry.
package service

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	catmodels "entrant/internal/catalog/models"
	"entrant/internal/eligibility"
	"entrant/internal/registration/metrics"
	"entrant/internal/registration/models"
	"entrant/internal/registration/pendingindex"
	"entrant/internal/registration/store"
	"entrant/internal/roster"
	id "entrant/pkg/domain"
	dErrors "entrant/pkg/domain-errors"
	"entrant/pkg/platform/audit"
	"entrant/pkg/requestcontext"
)

// Catalog is the segment/constraint read surface the service depends on.
type Catalog interface {
	GetSegment(ctx context.Context, segmentID id.SegmentID) (*catmodels.Segment, error)
	ApplicableConstraints(ctx context.Context, seg *catmodels.Segment) ([]catmodels.Constraint, error)
}

// Rosters resolves principals to the profiles evaluated for eligibility.
type Rosters interface {
	ResolveIndividual(ctx context.Context, userID id.UserID) (*id.Profile, error)
	ResolveTeam(ctx context.Context, teamID id.TeamID, submitterID id.UserID) (*roster.Roster, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service drives registrations through their lifecycle.
type Service struct {
	store          store.Store
	catalog        Catalog
	rosters        Rosters
	pending        pendingindex.Index
	paymentTTL     time.Duration
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	tracer         trace.Tracer
	now            func() time.Time
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

// WithPendingIndex wires the payment-deadline index consulted by the
// expiry sweeper.
func WithPendingIndex(index pendingindex.Index) Option {
	return func(s *Service) {
		s.pending = index
	}
}

func WithPaymentTTL(ttl time.Duration) Option {
	return func(s *Service) {
		s.paymentTTL = ttl
	}
}

// WithClock overrides the sweeper's time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// New constructs a Service.
func New(st store.Store, catalog Catalog, rosters Rosters, opts ...Option) *Service {
	s := &Service{
		store:      st,
		catalog:    catalog,
		rosters:    rosters,
		pending:    pendingindex.NewMemory(),
		paymentTTL: 30 * time.Minute,
		logger:     slog.Default(),
		tracer:     otel.Tracer("entrant/registration"),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateRequest is the domain-level registration attempt.
type CreateRequest struct {
	SegmentID id.SegmentID
	Principal id.PrincipalRef
	// SubmitterID is the authenticated user making the attempt. An
	// individual may only register themself; a team is registered by its
	// leader.
	SubmitterID id.UserID
	// SuppliedCode is checked against code constraints and never stored.
	SuppliedCode string
}

// CreateRegistration decides eligibility and, if the principal qualifies,
// claims a slot and creates the registration. Free segments confirm
// immediately; paid segments start pending_payment.
func (s *Service) CreateRegistration(ctx context.Context, req CreateRequest) (*models.Registration, error) {
	start := time.Now()
	now := requestcontext.Now(ctx)

	ctx, span := s.tracer.Start(ctx, "CreateRegistration",
		trace.WithAttributes(
			attribute.String("segment_id", req.SegmentID.String()),
			attribute.String("principal", req.Principal.String()),
		))
	defer span.End()

	seg, err := s.catalog.GetSegment(ctx, req.SegmentID)
	if err != nil {
		return nil, err
	}

	if seg.DeadlinePassed(now) {
		return nil, s.refuse(ctx, req, "deadline_passed",
			dErrors.New(dErrors.CodeDeadlinePassed, "registration deadline has passed"))
	}
	// Pre-check; the store re-checks under the segment row lock.
	if seg.IsRegistrationPaused {
		return nil, s.refuse(ctx, req, "paused",
			dErrors.New(dErrors.CodeRegistrationPaused, "registration is paused for this segment"))
	}

	profiles, err := s.resolvePrincipal(ctx, seg, req)
	if err != nil {
		return nil, err
	}

	constraints, err := s.catalog.ApplicableConstraints(ctx, seg)
	if err != nil {
		return nil, err
	}

	var result eligibility.Result
	if req.Principal.Kind == id.PrincipalTeam {
		result = eligibility.EvaluateTeam(constraints, seg.ID, profiles, req.SuppliedCode, now)
	} else {
		result = eligibility.Evaluate(constraints, seg.ID, profiles[0], req.SuppliedCode, now)
	}
	if !result.OK {
		for _, f := range result.Failures {
			if s.metrics != nil {
				s.metrics.IncrementEligibilityFail(string(f.Kind))
			}
		}
		return nil, s.refuse(ctx, req, "not_eligible", notEligibleError(result))
	}

	reg := models.New(seg.ID, req.Principal, seg.IsFree(), now, s.paymentTTL)
	if err := s.store.CreateWithCapacity(ctx, reg); err != nil {
		if domainErr := translateGate(err); domainErr != nil {
			return nil, s.refuse(ctx, req, string(dErrors.CodeOf(domainErr)), domainErr)
		}
		return nil, dErrors.Wrap(dErrors.CodeInternal, "failed to create registration", err)
	}

	if reg.Status == models.StatusPendingPayment && reg.PaymentDeadline != nil {
		// Best effort; the sweeper also scans the table directly.
		if err := s.pending.Add(ctx, reg.ID, *reg.PaymentDeadline); err != nil {
			s.logger.WarnContext(ctx, "failed to index payment deadline",
				"registration_id", reg.ID, "error", err)
		}
	}

	if s.metrics != nil {
		s.metrics.Created.Inc()
		s.metrics.ObserveCreate(start)
	}
	s.logger.InfoContext(ctx, "registration created",
		"request_id", requestcontext.RequestID(ctx),
		"registration_id", reg.ID,
		"segment_id", seg.ID,
		"principal", req.Principal,
		"status", reg.Status,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	s.emit(ctx, audit.ActionRegistrationCreated, reg.ID.String(), string(reg.Status), "")
	return reg, nil
}

// ConfirmPayment transitions a pending registration to confirmed. Repeat
// confirmations are no-ops; confirming a rejected registration fails.
func (s *Service) ConfirmPayment(ctx context.Context, regID id.RegistrationID) (*models.Registration, error) {
	now := requestcontext.Now(ctx)

	ctx, span := s.tracer.Start(ctx, "ConfirmPayment",
		trace.WithAttributes(attribute.String("registration_id", regID.String())))
	defer span.End()

	reg, transitioned, err := s.store.ConfirmPayment(ctx, regID, now)
	if err != nil {
		return nil, translateLifecycle(err, "confirm payment")
	}
	if !transitioned {
		return reg, nil
	}

	if err := s.pending.Remove(ctx, regID); err != nil {
		s.logger.WarnContext(ctx, "failed to unindex payment deadline",
			"registration_id", regID, "error", err)
	}
	if s.metrics != nil {
		s.metrics.Confirmed.Inc()
	}
	s.logger.InfoContext(ctx, "payment confirmed",
		"request_id", requestcontext.RequestID(ctx),
		"registration_id", regID,
	)
	s.emit(ctx, audit.ActionRegistrationConfirmed, regID.String(), string(models.StatusConfirmed), "")
	return reg, nil
}

// CancelRegistration rejects a pending registration on the caller's
// behalf and releases its slot. Allowed for the registrant (or team
// leader) and for organizers. Confirmed is terminal; refunds and
// withdrawals are handled outside this engine.
func (s *Service) CancelRegistration(ctx context.Context, regID id.RegistrationID) (*models.Registration, error) {
	reg, err := s.store.GetByID(ctx, regID)
	if err != nil {
		return nil, translateLifecycle(err, "cancel registration")
	}
	if err := s.authorizePrincipalAccess(ctx, reg); err != nil {
		return nil, err
	}
	if reg.Status == models.StatusRejected {
		return reg, nil
	}
	if reg.Status == models.StatusConfirmed {
		return nil, dErrors.New(dErrors.CodeInvalidTransition, "confirmed registration cannot be cancelled")
	}

	reg, err = s.store.Reject(ctx, regID)
	if err != nil {
		return nil, translateLifecycle(err, "cancel registration")
	}

	if err := s.pending.Remove(ctx, regID); err != nil {
		s.logger.WarnContext(ctx, "failed to unindex payment deadline",
			"registration_id", regID, "error", err)
	}
	if s.metrics != nil {
		s.metrics.Cancelled.Inc()
	}
	s.logger.InfoContext(ctx, "registration cancelled",
		"request_id", requestcontext.RequestID(ctx),
		"registration_id", regID,
	)
	s.emit(ctx, audit.ActionRegistrationCancelled, regID.String(), string(models.StatusRejected), "cancelled by caller")
	return reg, nil
}

// GetRegistration returns a registration to its registrant, team leader,
// or an organizer.
func (s *Service) GetRegistration(ctx context.Context, regID id.RegistrationID) (*models.Registration, error) {
	reg, err := s.store.GetByID(ctx, regID)
	if err != nil {
		return nil, translateLifecycle(err, "get registration")
	}
	if err := s.authorizePrincipalAccess(ctx, reg); err != nil {
		return nil, err
	}
	return reg, nil
}

// ListBySegment returns every registration for a segment, oldest first.
// Authorization (organizer only) is enforced at the router.
func (s *Service) ListBySegment(ctx context.Context, segmentID id.SegmentID) ([]models.Registration, error) {
	if _, err := s.catalog.GetSegment(ctx, segmentID); err != nil {
		return nil, err
	}
	regs, err := s.store.ListBySegment(ctx, segmentID)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "failed to list registrations", err)
	}
	return regs, nil
}

// ExpireDue rejects pending registrations whose payment deadline has
// passed and releases their slots. Candidates come from the deadline
// index plus a direct table scan, so a missed index write cannot leak a
// slot. Returns the number of registrations expired.
func (s *Service) ExpireDue(ctx context.Context, limit int) (int, error) {
	now := s.now()

	candidates, err := s.pending.Due(ctx, now, limit)
	if err != nil {
		s.logger.WarnContext(ctx, "deadline index unavailable, falling back to table scan", "error", err)
		candidates = nil
	}
	fromStore, err := s.store.ListExpiredPending(ctx, now, limit)
	if err != nil {
		return 0, dErrors.Wrap(dErrors.CodeInternal, "failed to scan expired registrations", err)
	}

	seen := make(map[id.RegistrationID]struct{}, len(candidates)+len(fromStore))
	expired := 0
	for _, regID := range append(candidates, fromStore...) {
		if _, dup := seen[regID]; dup {
			continue
		}
		seen[regID] = struct{}{}

		ok, err := s.store.ExpirePending(ctx, regID, now)
		if err != nil {
			s.logger.ErrorContext(ctx, "failed to expire registration",
				"registration_id", regID, "error", err)
			continue
		}
		// Drop from the index either way: the row is no longer pending
		// or it just got rejected.
		if rmErr := s.pending.Remove(ctx, regID); rmErr != nil {
			s.logger.WarnContext(ctx, "failed to unindex payment deadline",
				"registration_id", regID, "error", rmErr)
		}
		if !ok {
			continue
		}
		expired++
		if s.metrics != nil {
			s.metrics.Expired.Inc()
		}
		s.emit(ctx, audit.ActionRegistrationExpired, regID.String(), string(models.StatusRejected), "payment deadline passed")
	}
	if expired > 0 {
		s.logger.InfoContext(ctx, "expired pending registrations", "count", expired)
	}
	return expired, nil
}

func (s *Service) resolvePrincipal(ctx context.Context, seg *catmodels.Segment, req CreateRequest) ([]id.Profile, error) {
	switch req.Principal.Kind {
	case id.PrincipalUser:
		if seg.IsTeam {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "segment requires a team registration")
		}
		userID := id.UserID(req.Principal.ID)
		if userID != req.SubmitterID {
			return nil, dErrors.New(dErrors.CodeForbidden, "participants can only register themselves")
		}
		profile, err := s.rosters.ResolveIndividual(ctx, userID)
		if err != nil {
			return nil, err
		}
		return []id.Profile{*profile}, nil

	case id.PrincipalTeam:
		if !seg.IsTeam {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "segment does not accept team registrations")
		}
		r, err := s.rosters.ResolveTeam(ctx, id.TeamID(req.Principal.ID), req.SubmitterID)
		if err != nil {
			return nil, err
		}
		if err := seg.ValidateTeamSize(r.Size()); err != nil {
			return nil, err
		}
		return r.Members, nil
	}
	return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown principal kind")
}

// authorizePrincipalAccess allows the registrant, the team leader, or an
// organizer to act on a registration.
func (s *Service) authorizePrincipalAccess(ctx context.Context, reg *models.Registration) error {
	if requestcontext.IsOrganizer(ctx) {
		return nil
	}
	caller := requestcontext.UserID(ctx)
	switch reg.PrincipalRef.Kind {
	case id.PrincipalUser:
		if id.UserID(reg.PrincipalRef.ID) == caller {
			return nil
		}
	case id.PrincipalTeam:
		if _, err := s.rosters.ResolveTeam(ctx, id.TeamID(reg.PrincipalRef.ID), caller); err == nil {
			return nil
		}
	}
	return dErrors.New(dErrors.CodeForbidden, "not allowed to access this registration")
}

// refuse records a refused attempt and returns the domain error.
func (s *Service) refuse(ctx context.Context, req CreateRequest, reason string, err error) error {
	if s.metrics != nil {
		s.metrics.IncrementRefused(reason)
	}
	s.logger.InfoContext(ctx, "registration refused",
		"request_id", requestcontext.RequestID(ctx),
		"segment_id", req.SegmentID,
		"principal", req.Principal,
		"reason", reason,
	)
	s.emit(ctx, audit.ActionRegistrationRefused,
		"segment:"+req.SegmentID.String()+"/"+req.Principal.String(), reason, dErrors.MessageOf(err))
	return err
}

func (s *Service) emit(ctx context.Context, action audit.Action, subject, decision, reason string) {
	if s.auditPublisher == nil {
		return
	}
	_ = s.auditPublisher.Emit(ctx, audit.Event{
		Timestamp: requestcontext.Now(ctx),
		ActorID:   requestcontext.UserID(ctx).String(),
		Subject:   subject,
		Action:    action,
		Decision:  decision,
		Reason:    reason,
		RequestID: requestcontext.RequestID(ctx),
		Client:    requestcontext.UserAgent(ctx),
	})
}

// notEligibleError folds an eligibility result into a user-actionable
// domain error naming the first failed constraint.
func notEligibleError(result eligibility.Result) error {
	f, ok := result.FirstFailure()
	if !ok {
		return dErrors.New(dErrors.CodeNotEligible, "not eligible for this segment")
	}
	if !f.MemberUserID.IsZero() {
		return dErrors.Newf(dErrors.CodeNotEligible, "member %s: %s", f.MemberUserID, f.Reason)
	}
	return dErrors.New(dErrors.CodeNotEligible, f.Reason)
}
