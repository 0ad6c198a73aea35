// Package redis mirrors daily send counters to Redis so that replicas
// sharing a data directory also share budget state. The in-memory
// registry stays the source of truth; every operation here is best
// effort.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// counterTTL keeps day-scoped counters around long enough for reporting
// across midnight without accumulating keys forever.
const counterTTL = 48 * time.Hour

// Store handles Redis operations for shared send counters.
type Store struct {
	client *redis.Client
}

func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

func day(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// IncrSent bumps the whole-day and per-organization counters for a
// successful send at asOf.
func (s *Store) IncrSent(ctx context.Context, asOf time.Time, org string) error {
	d := day(asOf)

	pipe := s.client.Pipeline()
	pipe.Incr(ctx, DailySentKey(d))
	pipe.Expire(ctx, DailySentKey(d), counterTTL)
	if org != "" {
		pipe.Incr(ctx, OrgSentKey(d, org))
		pipe.Expire(ctx, OrgSentKey(d, org), counterTTL)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to increment send counters: %w", err)
	}
	return nil
}

// SentOn returns the shared send count for the day containing asOf.
func (s *Store) SentOn(ctx context.Context, asOf time.Time) (int64, error) {
	n, err := s.client.Get(ctx, DailySentKey(day(asOf))).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read daily send counter: %w", err)
	}
	return n, nil
}

// OrgSentOn returns the shared per-organization send count for the day
// containing asOf.
func (s *Store) OrgSentOn(ctx context.Context, asOf time.Time, org string) (int64, error) {
	n, err := s.client.Get(ctx, OrgSentKey(day(asOf), org)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read org send counter: %w", err)
	}
	return n, nil
}
