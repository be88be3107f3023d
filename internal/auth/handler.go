package auth

import (
	"encoding/json"
	"net/http"

	"github.com/frahmantamala/habilitation-management/internal"
	"github.com/frahmantamala/habilitation-management/internal/transport"
)

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(base *transport.BaseHandler, svc ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: base,
		Service:     svc,
	}
}

func requestMeta(r *http.Request) RequestMeta {
	return RequestMeta{
		IP:        transport.ClientIP(r),
		UserAgent: r.UserAgent(),
		Method:    r.Method,
		URL:       r.URL.Path,
	}
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var dto LoginDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, r, internal.NewValidationError("Invalid request body"))
		return
	}

	user, pair, err := h.Service.Login(r.Context(), dto, requestMeta(r))
	if err != nil {
		h.WriteError(w, r, err)
		return
	}

	h.WriteSuccess(w, r, http.StatusOK, "Login successful", map[string]interface{}{
		"user":         user,
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
	})
}

func (h *Handler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var dto RefreshTokenDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, r, internal.NewValidationError("Invalid request body"))
		return
	}
	if err := dto.Validate(); err != nil {
		h.WriteError(w, r, err)
		return
	}

	accessToken, err := h.Service.RefreshAccessToken(r.Context(), dto.RefreshToken)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}

	h.WriteSuccess(w, r, http.StatusOK, "Token refreshed", map[string]interface{}{
		"accessToken": accessToken,
	})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var dto RefreshTokenDTO
	// An empty or absent body is fine: clients without a stored refresh
	// token still call logout.
	_ = json.NewDecoder(r.Body).Decode(&dto)

	if err := h.Service.Logout(r.Context(), dto.RefreshToken); err != nil {
		h.WriteError(w, r, err)
		return
	}

	h.WriteSuccess(w, r, http.StatusOK, "Logout successful", nil)
}

func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		h.WriteError(w, r, internal.ErrMissingToken)
		return
	}

	user, err := h.Service.GetProfile(r.Context(), identity.ID)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}

	h.WriteSuccess(w, r, http.StatusOK, "Profile retrieved", map[string]interface{}{
		"user":        user,
		"permissions": identity.Permissions,
	})
}
