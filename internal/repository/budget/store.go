package budget

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/mailrag/internal/db"
)

// store is the consumer interface for budget operations (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	IncrBy(ctx context.Context, key string, val int64) error
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
}

// Store persists token counters with INCRBY and lets them expire after their period.
type Store struct {
	store    store
	dailyTTL time.Duration
	monthTTL time.Duration
}

// New creates a budget store.
// dailyTTL is the TTL for daily keys (recommended: 48h).
// monthTTL is the TTL for monthly keys (recommended: 62 days).
func New(s store, dailyTTL, monthTTL time.Duration) *Store {
	return &Store{
		store:    s,
		dailyTTL: dailyTTL,
		monthTTL: monthTTL,
	}
}

// IncrBy increments a counter and, on its first write, sets the TTL of its period.
func (s *Store) IncrBy(ctx context.Context, key string, val int64) error {
	ttl, err := s.ttlForKey(key)
	if err != nil {
		return err
	}
	if err := s.store.IncrBy(ctx, key, val); err != nil {
		return fmt.Errorf("budget INCRBY %s: %w", key, err)
	}

	// NX: the first write of a period fixes its expiry.
	if err := s.store.Expire(ctx, key, ttl, true); err != nil {
		return fmt.Errorf("budget EXPIRE %s: %w", key, err)
	}

	return nil
}

// Get returns the current counter value. Returns 0 if the key does not exist.
func (s *Store) Get(ctx context.Context, key string) (int64, error) {
	data, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("budget GET %s: %w", key, err)
	}

	val, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("budget GET %s parse: %w", key, err)
	}
	return val, nil
}

// Counter keys are {prefix}budget:{provider}:daily:2006-01-02 or
// {prefix}budget:{provider}:monthly:2006-01. The prefix may itself contain colons.
const (
	keyMarker     = "budget:"
	periodDaily   = "daily"
	periodMonthly = "monthly"
)

var errMalformedKey = errors.New("budget: malformed counter key")

// ttlForKey checks the key against the counter layout and returns its period TTL.
func (s *Store) ttlForKey(key string) (time.Duration, error) {
	i := strings.LastIndex(key, keyMarker)
	if i < 0 {
		return 0, fmt.Errorf("%w: %q", errMalformedKey, key)
	}
	parts := strings.Split(key[i+len(keyMarker):], ":")
	if len(parts) != 3 || parts[0] == "" {
		return 0, fmt.Errorf("%w: %q", errMalformedKey, key)
	}

	switch period, stamp := parts[1], parts[2]; period {
	case periodDaily:
		if _, err := time.Parse("2006-01-02", stamp); err != nil {
			return 0, fmt.Errorf("%w: %q: %w", errMalformedKey, key, err)
		}
		return s.dailyTTL, nil
	case periodMonthly:
		if _, err := time.Parse("2006-01", stamp); err != nil {
			return 0, fmt.Errorf("%w: %q: %w", errMalformedKey, key, err)
		}
		return s.monthTTL, nil
	default:
		return 0, fmt.Errorf("%w: %q: unknown period %q", errMalformedKey, key, period)
	}
}
