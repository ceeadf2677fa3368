package roster

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	id "entrant/pkg/domain"
	"entrant/pkg/platform/sentinel"
)

// Store reads profiles and team rosters.
type Store interface {
	GetProfile(ctx context.Context, userID id.UserID) (*id.Profile, error)
	GetRoster(ctx context.Context, teamID id.TeamID) (*Roster, error)
}

// PostgresStore reads roster data from PostgreSQL.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgres constructs a PostgreSQL-backed roster store.
func NewPostgres(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) GetProfile(ctx context.Context, userID id.UserID) (*id.Profile, error) {
	row := s.db.QueryRow(ctx,
		`SELECT id, email, date_of_birth, gender, status FROM users WHERE id = $1`,
		uuid.UUID(userID),
	)
	p, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("profile %s: %w", userID, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) GetRoster(ctx context.Context, teamID id.TeamID) (*Roster, error) {
	var team Team
	var teamUUID, leaderUUID uuid.UUID
	err := s.db.QueryRow(ctx,
		`SELECT id, name, leader_user_id FROM teams WHERE id = $1`,
		uuid.UUID(teamID),
	).Scan(&teamUUID, &team.Name, &leaderUUID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("team %s: %w", teamID, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("get team: %w", err)
	}
	team.ID = id.TeamID(teamUUID)
	team.LeaderUserID = id.UserID(leaderUUID)

	// The leader is part of the roster whether or not they hold a
	// membership row; UNION folds the duplicate when they do.
	rows, err := s.db.Query(ctx,
		`SELECT u.id, u.email, u.date_of_birth, u.gender, u.status
		 FROM users u
		 WHERE u.id = $2
		 UNION
		 SELECT u.id, u.email, u.date_of_birth, u.gender, u.status
		 FROM team_members tm
		 JOIN users u ON u.id = tm.user_id
		 WHERE tm.team_id = $1 AND tm.membership_status = 'accepted'
		 ORDER BY id`,
		uuid.UUID(teamID), leaderUUID,
	)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	roster := &Roster{Team: team}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		roster.Members = append(roster.Members, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return roster, nil
}

func scanProfile(row pgx.Row) (*id.Profile, error) {
	var (
		userUUID    uuid.UUID
		email       string
		dateOfBirth time.Time
		gender      string
		status      string
	)
	if err := row.Scan(&userUUID, &email, &dateOfBirth, &gender, &status); err != nil {
		return nil, err
	}
	g, err := id.ParseGender(gender)
	if err != nil {
		return nil, err
	}
	st, err := id.ParseParticipantStatus(status)
	if err != nil {
		return nil, err
	}
	return &id.Profile{
		UserID:      id.UserID(userUUID),
		Email:       email,
		DateOfBirth: dateOfBirth,
		Gender:      g,
		Status:      st,
	}, nil
}
