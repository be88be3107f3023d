package transport

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/frahmantamala/habilitation-management/internal"
	"github.com/frahmantamala/habilitation-management/pkg/logger"
)

// Envelope is the uniform response shape: every reply carries success, a
// message, and the request correlation id; payloads ride in data and
// validation failures in errors.
type Envelope struct {
	Success    bool                       `json:"success"`
	Message    string                     `json:"message,omitempty"`
	Data       interface{}                `json:"data,omitempty"`
	Errors     []internal.ValidationError `json:"errors,omitempty"`
	Required   interface{}                `json:"required,omitempty"`
	Current    string                     `json:"current,omitempty"`
	RetryAfter int                        `json:"retryAfter,omitempty"`
	RequestID  string                     `json:"requestId,omitempty"`
	Detail     string                     `json:"error,omitempty"`
}

// BaseHandler provides common functionality for HTTP handlers.
type BaseHandler struct {
	Logger      *slog.Logger
	Development bool
}

func NewBaseHandler(lg *slog.Logger) *BaseHandler {
	if lg == nil {
		lg = logger.L()
	}
	return &BaseHandler{Logger: lg}
}

func (h *BaseHandler) writeEnvelope(w http.ResponseWriter, r *http.Request, status int, env Envelope) {
	env.RequestID = internal.RequestIDFromContext(r.Context())
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		h.Logger.Error("failed to encode response", "error", err)
	}
}

// WriteSuccess writes a 2xx response with the uniform envelope.
func (h *BaseHandler) WriteSuccess(w http.ResponseWriter, r *http.Request, status int, message string, data interface{}) {
	h.writeEnvelope(w, r, status, Envelope{Success: true, Message: message, Data: data})
}

// WriteRaw writes data without the envelope, for non-JSON payloads like CSV.
func (h *BaseHandler) WriteRaw(w http.ResponseWriter, status int, contentType string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		h.Logger.Error("failed to write response", "error", err)
	}
}

// WriteError normalizes any error into the envelope. AppErrors keep their
// status and details; everything else becomes a 500 with the detail
// suppressed outside development mode.
func (h *BaseHandler) WriteError(w http.ResponseWriter, r *http.Request, err error) {
	appErr, ok := internal.IsAppError(err)
	if !ok {
		appErr = internal.NewInternalError("Internal server error", err)
	}

	h.Logger.Error("http error",
		"status", appErr.StatusCode,
		"code", appErr.Code,
		"message", appErr.Message,
		"request_id", internal.RequestIDFromContext(r.Context()))

	env := Envelope{Success: false, Message: appErr.Message}

	switch details := appErr.Details.(type) {
	case internal.ValidationErrors:
		env.Errors = details.Errors
	case map[string]int:
		if retry, ok := details["retryAfter"]; ok {
			env.RetryAfter = retry
		}
	case map[string]interface{}:
		if required, ok := details["required"]; ok {
			env.Required = required
		}
		if current, ok := details["current"].(string); ok {
			env.Current = current
		}
	}

	if h.Development && appErr.Cause != nil {
		env.Detail = appErr.Cause.Error()
	}

	h.writeEnvelope(w, r, appErr.StatusCode, env)
}

// ExtractTokenFromHeader extracts the Bearer token from the Authorization header.
func (h *BaseHandler) ExtractTokenFromHeader(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	if len(authHeader) < 7 || authHeader[:7] != "Bearer " {
		return ""
	}

	return authHeader[7:]
}

// ClientIP trusts X-Forwarded-For when present, falling back to RemoteAddr.
// The header may carry the whole proxy chain; only the originating address
// is returned so limiter keys and audit rows hold a single address.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.Index(fwd, ","); i >= 0 {
			fwd = fwd[:i]
		}
		return strings.TrimSpace(fwd)
	}
	return r.RemoteAddr
}
