package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"entrant/internal/registration/models"
	id "entrant/pkg/domain"
	"entrant/pkg/platform/sentinel"
)

// PostgresStore persists registrations in PostgreSQL.
//
// Concurrency model: capacity is guarded by pessimistic locking. Every
// transition that claims or releases a slot first takes SELECT ... FOR
// UPDATE on the segment row, which serializes concurrent attempts on the
// same segment. Two transactions reading reserved_count from the same
// snapshot would otherwise both see a free slot and overbook.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgres constructs a PostgreSQL-backed registration store.
func NewPostgres(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

const registrationColumns = `id, segment_id, principal_ref, status, created_at,
	payment_confirmed_at, payment_deadline`

// CreateWithCapacity inserts the registration if the segment still has a
// slot. Lock, pause check, duplicate check, capacity check, counter
// increment, and insert are one atomic transaction.
func (s *PostgresStore) CreateWithCapacity(ctx context.Context, reg *models.Registration) (err error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var capacity, reserved int
	var paused bool
	err = tx.QueryRow(ctx,
		`SELECT capacity, reserved_count, is_registration_paused
		 FROM segments WHERE id = $1
		 FOR UPDATE`,
		uuid.UUID(reg.SegmentID),
	).Scan(&capacity, &reserved, &paused)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("segment %s: %w", reg.SegmentID, sentinel.ErrNotFound)
		}
		return fmt.Errorf("lock segment row: %w", err)
	}

	// Re-checked under the lock so a toggle that lands between the
	// service's read and this transaction still wins.
	if paused {
		return sentinel.ErrPaused
	}

	var active int
	err = tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM registrations
		 WHERE segment_id = $1 AND principal_ref = $2 AND status <> 'rejected'`,
		uuid.UUID(reg.SegmentID), reg.PrincipalRef.String(),
	).Scan(&active)
	if err != nil {
		return fmt.Errorf("check duplicate: %w", err)
	}
	if active > 0 {
		return sentinel.ErrConflict
	}

	// Capacity 0 means unlimited.
	if capacity > 0 && reserved >= capacity {
		return sentinel.ErrCapacity
	}

	_, err = tx.Exec(ctx,
		`UPDATE segments SET reserved_count = reserved_count + 1 WHERE id = $1`,
		uuid.UUID(reg.SegmentID),
	)
	if err != nil {
		return fmt.Errorf("increment reserved_count: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO registrations (`+registrationColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.UUID(reg.ID), uuid.UUID(reg.SegmentID), reg.PrincipalRef.String(),
		string(reg.Status), reg.CreatedAt, reg.PaymentConfirmedAt, reg.PaymentDeadline,
	)
	if err != nil {
		return fmt.Errorf("insert registration: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetByID(ctx context.Context, regID id.RegistrationID) (*models.Registration, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+registrationColumns+` FROM registrations WHERE id = $1`,
		uuid.UUID(regID),
	)
	reg, err := scanRegistration(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("registration %s: %w", regID, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("get registration: %w", err)
	}
	return reg, nil
}

// ConfirmPayment moves pending_payment to confirmed with a conditional
// UPDATE, so concurrent confirms race harmlessly: exactly one transition
// happens and the rest observe the confirmed row.
func (s *PostgresStore) ConfirmPayment(ctx context.Context, regID id.RegistrationID, now time.Time) (*models.Registration, bool, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE registrations
		 SET status = 'confirmed', payment_confirmed_at = $2, payment_deadline = NULL
		 WHERE id = $1 AND status = 'pending_payment'`,
		uuid.UUID(regID), now,
	)
	if err != nil {
		return nil, false, fmt.Errorf("confirm payment: %w", err)
	}
	transitioned := tag.RowsAffected() > 0

	reg, err := s.GetByID(ctx, regID)
	if err != nil {
		return nil, false, err
	}
	if !transitioned && reg.Status == models.StatusRejected {
		return nil, false, fmt.Errorf("registration %s: %w", regID, sentinel.ErrInvalidState)
	}
	return reg, transitioned, nil
}

// Reject moves a pending registration to rejected and releases its slot.
// Rejecting an already rejected registration is a no-op; a confirmed
// registration is terminal and cannot be rejected.
func (s *PostgresStore) Reject(ctx context.Context, regID id.RegistrationID) (*models.Registration, error) {
	err := s.releaseSlot(ctx, regID, "AND status = 'pending_payment'", time.Time{})
	if err != nil && !errors.Is(err, errNoTransition) {
		return nil, err
	}
	reg, getErr := s.GetByID(ctx, regID)
	if getErr != nil {
		return nil, getErr
	}
	if errors.Is(err, errNoTransition) && reg.Status == models.StatusConfirmed {
		return nil, fmt.Errorf("registration %s: %w", regID, sentinel.ErrInvalidState)
	}
	return reg, nil
}

// ExpirePending rejects a pending registration whose deadline has passed
// and releases its slot. Returns false when the row was already
// confirmed, already rejected, or its deadline moved.
func (s *PostgresStore) ExpirePending(ctx context.Context, regID id.RegistrationID, now time.Time) (bool, error) {
	err := s.releaseSlot(ctx, regID,
		"AND status = 'pending_payment' AND payment_deadline <= $2", now)
	if err != nil {
		if errors.Is(err, errNoTransition) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

var errNoTransition = errors.New("no transition")

// releaseSlot runs the rejected transition and the counter decrement in
// one transaction. The segment row is locked first, mirroring the lock
// order of CreateWithCapacity.
func (s *PostgresStore) releaseSlot(ctx context.Context, regID id.RegistrationID, guard string, now time.Time) (err error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var segmentUUID uuid.UUID
	err = tx.QueryRow(ctx,
		`SELECT segment_id FROM registrations WHERE id = $1`,
		uuid.UUID(regID),
	).Scan(&segmentUUID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("registration %s: %w", regID, sentinel.ErrNotFound)
		}
		return fmt.Errorf("find registration: %w", err)
	}

	_, err = tx.Exec(ctx,
		`SELECT 1 FROM segments WHERE id = $1 FOR UPDATE`, segmentUUID)
	if err != nil {
		return fmt.Errorf("lock segment row: %w", err)
	}

	args := []any{uuid.UUID(regID)}
	if !now.IsZero() {
		args = append(args, now)
	}
	tag, err := tx.Exec(ctx,
		`UPDATE registrations SET status = 'rejected', payment_deadline = NULL
		 WHERE id = $1 `+guard, args...)
	if err != nil {
		return fmt.Errorf("reject registration: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Nothing transitioned; no slot to release.
		return errNoTransition
	}

	_, err = tx.Exec(ctx,
		`UPDATE segments SET reserved_count = reserved_count - 1
		 WHERE id = $1 AND reserved_count > 0`,
		segmentUUID,
	)
	if err != nil {
		return fmt.Errorf("decrement reserved_count: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListBySegment(ctx context.Context, segmentID id.SegmentID) ([]models.Registration, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+registrationColumns+` FROM registrations
		 WHERE segment_id = $1 ORDER BY created_at`,
		uuid.UUID(segmentID),
	)
	if err != nil {
		return nil, fmt.Errorf("list by segment: %w", err)
	}
	defer rows.Close()

	var out []models.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		out = append(out, *reg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list by segment: %w", err)
	}
	return out, nil
}

// ListExpiredPending scans for pending registrations past their deadline.
// This is the sweeper's ground-truth path; the Redis index only narrows
// which ids to look at first.
func (s *PostgresStore) ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]id.RegistrationID, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id FROM registrations
		 WHERE status = 'pending_payment' AND payment_deadline <= $1
		 ORDER BY payment_deadline
		 LIMIT $2`,
		now, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list expired pending: %w", err)
	}
	defer rows.Close()

	var out []id.RegistrationID
	for rows.Next() {
		var regUUID uuid.UUID
		if err := rows.Scan(&regUUID); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		out = append(out, id.RegistrationID(regUUID))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list expired pending: %w", err)
	}
	return out, nil
}

func scanRegistration(row pgx.Row) (*models.Registration, error) {
	var (
		regUUID     uuid.UUID
		segmentUUID uuid.UUID
		ref         string
		status      string
		createdAt   time.Time
		confirmedAt *time.Time
		deadline    *time.Time
	)
	if err := row.Scan(&regUUID, &segmentUUID, &ref, &status, &createdAt, &confirmedAt, &deadline); err != nil {
		return nil, err
	}
	principal, err := id.ParsePrincipalRef(ref)
	if err != nil {
		return nil, err
	}
	st, err := models.ParseStatus(status)
	if err != nil {
		return nil, err
	}
	return &models.Registration{
		ID:                 id.RegistrationID(regUUID),
		SegmentID:          id.SegmentID(segmentUUID),
		PrincipalRef:       principal,
		Status:             st,
		CreatedAt:          createdAt,
		PaymentConfirmedAt: confirmedAt,
		PaymentDeadline:    deadline,
	}, nil
}
