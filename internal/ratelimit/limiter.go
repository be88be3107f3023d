package ratelimit

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/frahmantamala/habilitation-management/internal"
	"github.com/frahmantamala/habilitation-management/internal/auth"
	"github.com/frahmantamala/habilitation-management/internal/transport"
)

// Store holds attempt timestamps per key. The in-memory implementation is
// process-local; a multi-instance deployment can swap in a shared backend
// without touching the limiter.
type Store interface {
	Attempts(key string) []time.Time
	SetAttempts(key string, attempts []time.Time)
}

type memoryStore struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
}

func NewMemoryStore() Store {
	return &memoryStore{attempts: make(map[string][]time.Time)}
}

func (s *memoryStore) Attempts(key string) []time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts[key]
}

func (s *memoryStore) SetAttempts(key string, attempts []time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(attempts) == 0 {
		delete(s.attempts, key)
		return
	}
	s.attempts[key] = attempts
}

// SensitiveLimiter is a keyed sliding-window limiter for sensitive endpoints,
// independent of the general per-IP throttle. The clock is injectable so the
// window behavior is testable without sleeping.
type SensitiveLimiter struct {
	store       Store
	window      time.Duration
	maxAttempts int
	now         func() time.Time
	mu          sync.Mutex
}

func NewSensitiveLimiter(store Store, window time.Duration, maxAttempts int) *SensitiveLimiter {
	return &SensitiveLimiter{
		store:       store,
		window:      window,
		maxAttempts: maxAttempts,
		now:         time.Now,
	}
}

// WithClock replaces the time source.
func (l *SensitiveLimiter) WithClock(now func() time.Time) *SensitiveLimiter {
	l.now = now
	return l
}

// Allow prunes attempts outside the window for the key, then either records
// the new attempt or rejects it, returning how long until the oldest
// recorded attempt leaves the window.
func (l *SensitiveLimiter) Allow(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	recent := make([]time.Time, 0, l.maxAttempts)
	for _, t := range l.store.Attempts(key) {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= l.maxAttempts {
		l.store.SetAttempts(key, recent)
		retryAfter := recent[0].Add(l.window).Sub(now)
		return false, retryAfter
	}

	recent = append(recent, now)
	l.store.SetAttempts(key, recent)
	return true, 0
}

// Key builds the limiter key from the client address and the acting
// identity. All anonymous traffic from one address shares a single bucket.
func Key(ip string, identity *auth.Identity) string {
	if identity != nil {
		return fmt.Sprintf("%s:%d", ip, identity.ID)
	}
	return ip + ":anonymous"
}

// Middleware rejects over-limit requests with a 429 carrying retryAfter in
// seconds.
func (l *SensitiveLimiter) Middleware(base *transport.BaseHandler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, _ := auth.IdentityFromContext(r.Context())
			key := Key(transport.ClientIP(r), identity)

			ok, retryAfter := l.Allow(key)
			if !ok {
				minutes := int(l.window.Minutes())
				message := fmt.Sprintf("Too many sensitive operations. Try again in %d minutes.", minutes)
				seconds := int((retryAfter + time.Second - 1) / time.Second)
				base.WriteError(w, r, internal.NewRateLimitedError(message, seconds))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
