package auth

import (
	"net/http"

	"github.com/frahmantamala/habilitation-management/internal"
	"github.com/frahmantamala/habilitation-management/internal/transport"
)

// Authenticate guards protected routes: it requires a Bearer token, verifies
// it, re-hydrates the live identity from the store and attaches it to the
// request context. Every failure is a 401.
func (h *Handler) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := h.ExtractTokenFromHeader(r)
		if token == "" {
			h.WriteError(w, r, internal.ErrMissingToken)
			return
		}

		identity, err := h.Service.Authenticate(r.Context(), token, requestMeta(r))
		if err != nil {
			h.WriteError(w, r, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
	})
}

// OptionalAuthenticate attaches an identity when a valid token is presented
// but never rejects the request. Routes behind it serve anonymous callers
// with reduced context.
func (h *Handler) OptionalAuthenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := h.ExtractTokenFromHeader(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		identity, err := h.Service.Authenticate(r.Context(), token, requestMeta(r))
		if err != nil {
			h.Logger.Debug("optional authentication failed",
				"ip", transport.ClientIP(r),
				"error", err)
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
	})
}
