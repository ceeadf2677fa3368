// Package pendingindex tracks payment deadlines so the expiry sweeper can
// find due registrations without scanning the registrations table. The
// index is advisory: rows are the source of truth and the sweeper
// re-checks each candidate before rejecting it.
package pendingindex

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	id "entrant/pkg/domain"
)

const key = "entrant:pending_payment_deadlines"

// Index records and serves payment deadlines.
type Index interface {
	Add(ctx context.Context, regID id.RegistrationID, deadline time.Time) error
	Remove(ctx context.Context, regID id.RegistrationID) error
	Due(ctx context.Context, now time.Time, limit int) ([]id.RegistrationID, error)
}

// RedisIndex keeps deadlines in a sorted set scored by Unix time.
type RedisIndex struct {
	client redis.Cmdable
}

// NewRedis constructs a Redis-backed deadline index.
func NewRedis(client redis.Cmdable) *RedisIndex {
	return &RedisIndex{client: client}
}

func (i *RedisIndex) Add(ctx context.Context, regID id.RegistrationID, deadline time.Time) error {
	err := i.client.ZAdd(ctx, key, redis.Z{
		Score:  float64(deadline.Unix()),
		Member: regID.String(),
	}).Err()
	if err != nil {
		return fmt.Errorf("index deadline: %w", err)
	}
	return nil
}

func (i *RedisIndex) Remove(ctx context.Context, regID id.RegistrationID) error {
	if err := i.client.ZRem(ctx, key, regID.String()).Err(); err != nil {
		return fmt.Errorf("unindex deadline: %w", err)
	}
	return nil
}

func (i *RedisIndex) Due(ctx context.Context, now time.Time, limit int) ([]id.RegistrationID, error) {
	members, err := i.client.ZRangeByScore(ctx, key, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   fmt.Sprintf("%d", now.Unix()),
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("range deadlines: %w", err)
	}

	out := make([]id.RegistrationID, 0, len(members))
	for _, m := range members {
		regID, err := id.ParseRegistrationID(m)
		if err != nil {
			// A malformed member cannot be acted on; drop it from the set.
			_ = i.client.ZRem(ctx, key, m).Err()
			continue
		}
		out = append(out, regID)
	}
	return out, nil
}
