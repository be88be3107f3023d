package ratelimit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/habilitation-management/internal/auth"
	"github.com/frahmantamala/habilitation-management/internal/transport"
	"github.com/frahmantamala/habilitation-management/pkg/logger"
)

func TestRateLimit(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "RateLimit Suite")
}

var _ = Describe("SensitiveLimiter", func() {
	var (
		limiter *SensitiveLimiter
		current time.Time
	)

	BeforeEach(func() {
		current = time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
		limiter = NewSensitiveLimiter(NewMemoryStore(), 5*time.Minute, 3).
			WithClock(func() time.Time { return current })
	})

	It("admits attempts up to the limit and rejects the next one", func() {
		for i := 0; i < 3; i++ {
			ok, _ := limiter.Allow("10.0.0.1:1")
			Expect(ok).To(BeTrue())
		}

		ok, retryAfter := limiter.Allow("10.0.0.1:1")
		Expect(ok).To(BeFalse())
		Expect(retryAfter).To(Equal(5 * time.Minute))
	})

	It("counts the window per key", func() {
		for i := 0; i < 3; i++ {
			ok, _ := limiter.Allow("10.0.0.1:1")
			Expect(ok).To(BeTrue())
		}

		ok, _ := limiter.Allow("10.0.0.2:anonymous")
		Expect(ok).To(BeTrue())
	})

	It("admits again once the oldest attempt slides out of the window", func() {
		first := current
		for i := 0; i < 3; i++ {
			ok, _ := limiter.Allow("10.0.0.1:1")
			Expect(ok).To(BeTrue())
			current = current.Add(time.Minute)
		}

		ok, retryAfter := limiter.Allow("10.0.0.1:1")
		Expect(ok).To(BeFalse())
		Expect(retryAfter).To(Equal(first.Add(5 * time.Minute).Sub(current)))

		current = first.Add(5*time.Minute + time.Second)
		ok, _ = limiter.Allow("10.0.0.1:1")
		Expect(ok).To(BeTrue())
	})
})

var _ = Describe("Key", func() {
	It("scopes authenticated callers by address and user id", func() {
		identity := &auth.Identity{ID: 42}
		Expect(Key("10.0.0.1", identity)).To(Equal("10.0.0.1:42"))
	})

	It("pools all anonymous traffic from one address", func() {
		Expect(Key("10.0.0.1", nil)).To(Equal("10.0.0.1:anonymous"))
	})
})

var _ = Describe("Middleware", func() {
	var (
		handler http.Handler
		current time.Time
	)

	BeforeEach(func() {
		current = time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
		limiter := NewSensitiveLimiter(NewMemoryStore(), 5*time.Minute, 1).
			WithClock(func() time.Time { return current })

		base := transport.NewBaseHandler(logger.L())
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		handler = limiter.Middleware(base)(next)
	})

	serve := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
		req.RemoteAddr = ip
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	It("responds 429 with retryAfter once the key is over its limit", func() {
		Expect(serve("10.0.0.1:5000").Code).To(Equal(http.StatusOK))

		rec := serve("10.0.0.1:5000")
		Expect(rec.Code).To(Equal(http.StatusTooManyRequests))

		var body struct {
			Success    bool   `json:"success"`
			Message    string `json:"message"`
			RetryAfter int    `json:"retryAfter"`
		}
		Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
		Expect(body.Success).To(BeFalse())
		Expect(body.Message).To(Equal("Too many sensitive operations. Try again in 5 minutes."))
		Expect(body.RetryAfter).To(Equal(300))
	})

	It("does not throttle a different client address", func() {
		Expect(serve("10.0.0.1:5000").Code).To(Equal(http.StatusOK))
		Expect(serve("10.0.0.2:5000").Code).To(Equal(http.StatusOK))
	})
})
