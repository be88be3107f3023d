package auth

import (
	"context"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/habilitation-management/internal"
	"github.com/frahmantamala/habilitation-management/internal/transport"
)

type stubAuthService struct {
	identity *Identity
	authErr  error
	lastMeta RequestMeta
}

func (s *stubAuthService) Login(ctx context.Context, dto LoginDTO, meta RequestMeta) (*User, TokenPair, error) {
	return nil, TokenPair{}, internal.ErrInvalidCredentials
}

func (s *stubAuthService) Authenticate(ctx context.Context, rawToken string, meta RequestMeta) (*Identity, error) {
	s.lastMeta = meta
	if s.authErr != nil {
		return nil, s.authErr
	}
	return s.identity, nil
}

func (s *stubAuthService) RefreshAccessToken(ctx context.Context, refreshToken string) (string, error) {
	return "", internal.ErrRefreshNotFound
}

func (s *stubAuthService) Logout(ctx context.Context, refreshToken string) error {
	return nil
}

func (s *stubAuthService) GetProfile(ctx context.Context, userID int64) (*User, error) {
	return nil, internal.ErrUserNotFound
}

var _ = Describe("Authenticate middleware", func() {
	var (
		handler  *Handler
		stub     *stubAuthService
		attached *Identity
		next     http.Handler
	)

	serve := func(mw func(http.Handler) http.Handler, header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		mw(next).ServeHTTP(rec, req)
		return rec
	}

	BeforeEach(func() {
		stub = &stubAuthService{identity: &Identity{ID: 3, Role: RoleEmployee}}
		handler = NewHandler(transport.NewBaseHandler(testLogger()), stub)
		attached = nil
		next = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attached, _ = IdentityFromContext(r.Context())
			w.WriteHeader(http.StatusOK)
		})
	})

	Context("without an Authorization header", func() {
		It("responds 401 without calling the service", func() {
			rec := serve(handler.Authenticate, "")
			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
			Expect(rec.Body.String()).To(ContainSubstring("Access denied. No valid token provided"))
		})
	})

	Context("with a non-Bearer scheme", func() {
		It("treats the token as missing", func() {
			rec := serve(handler.Authenticate, "Basic dXNlcjpwYXNz")
			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
		})
	})

	Context("with a valid bearer token", func() {
		It("attaches the identity and admits the request", func() {
			rec := serve(handler.Authenticate, "Bearer good-token")
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(attached).NotTo(BeNil())
			Expect(attached.ID).To(Equal(int64(3)))
		})
	})

	Context("when the service rejects the token", func() {
		It("propagates the 401 status and message", func() {
			stub.authErr = internal.ErrTokenExpired
			rec := serve(handler.Authenticate, "Bearer stale-token")
			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
			Expect(rec.Body.String()).To(ContainSubstring("Token expired"))
		})
	})
})

var _ = Describe("OptionalAuthenticate middleware", func() {
	var (
		handler  *Handler
		stub     *stubAuthService
		attached *Identity
		hasID    bool
		next     http.Handler
	)

	serve := func(header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		handler.OptionalAuthenticate(next).ServeHTTP(rec, req)
		return rec
	}

	BeforeEach(func() {
		stub = &stubAuthService{identity: &Identity{ID: 3, Role: RoleEmployee}}
		handler = NewHandler(transport.NewBaseHandler(testLogger()), stub)
		attached, hasID = nil, false
		next = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attached, hasID = IdentityFromContext(r.Context())
			w.WriteHeader(http.StatusOK)
		})
	})

	It("admits anonymous requests without an identity", func() {
		rec := serve("")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(hasID).To(BeFalse())
	})

	It("admits requests with an invalid token, still anonymous", func() {
		stub.authErr = internal.ErrTokenMalformed
		rec := serve("Bearer garbage")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(hasID).To(BeFalse())
	})

	It("attaches the identity when the token is valid", func() {
		rec := serve("Bearer good-token")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(attached).NotTo(BeNil())
	})
})
