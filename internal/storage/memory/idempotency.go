package memory

import (
	"context"
	"sync"
	"time"
)

// claimTTL bounds how long a key stays reserved by a request that never
// bound or released it.
const claimTTL = time.Minute

type idempotencyEntry struct {
	bookingID uint
	expiresAt time.Time
}

// IdempotencyStore keeps idempotency keys in process. Used when no redis is
// configured. An entry with a zero booking id is a pending claim.
type IdempotencyStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]idempotencyEntry
}

func NewIdempotencyStore(ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{
		mu:      sync.Mutex{},
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]idempotencyEntry),
	}
}

// WithClock replaces the clock used for expiry.
func (s *IdempotencyStore) WithClock(now func() time.Time) *IdempotencyStore {
	s.now = now

	return s
}

func (s *IdempotencyStore) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}

	return s.now().Add(ttl)
}

// lookup must be called with s.mu held.
func (s *IdempotencyStore) lookup(key string) (idempotencyEntry, bool) {
	entry, ok := s.entries[key]
	if !ok {
		return entry, false
	}

	if !entry.expiresAt.IsZero() && s.now().After(entry.expiresAt) {
		delete(s.entries, key)

		return entry, false
	}

	return entry, true
}

func (s *IdempotencyStore) Claim(_ context.Context, key string) (bool, uint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.lookup(key); ok {
		return false, entry.bookingID, nil
	}

	ttl := claimTTL
	if s.ttl > 0 && s.ttl < ttl {
		ttl = s.ttl
	}

	s.entries[key] = idempotencyEntry{bookingID: 0, expiresAt: s.expiry(ttl)}

	return true, 0, nil
}

func (s *IdempotencyStore) Bind(_ context.Context, key string, bookingID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.lookup(key); ok && entry.bookingID != 0 {
		return nil
	}

	s.entries[key] = idempotencyEntry{bookingID: bookingID, expiresAt: s.expiry(s.ttl)}

	return nil
}

// Release drops a pending claim. Bound keys are kept.
func (s *IdempotencyStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.lookup(key); ok && entry.bookingID == 0 {
		delete(s.entries, key)
	}

	return nil
}

func (s *IdempotencyStore) Close() error {
	return nil
}
