package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/frahmantamala/habilitation-management/internal"
	"github.com/frahmantamala/habilitation-management/internal/activity"
	"github.com/frahmantamala/habilitation-management/internal/core/events"
	"github.com/frahmantamala/habilitation-management/internal/transport"
)

// Gate performs role and permission checks on routes that already passed
// Authenticate. A missing identity is an authentication failure, never a
// silent denial.
type Gate struct {
	*transport.BaseHandler
	bus *events.EventBus
}

func NewGate(base *transport.BaseHandler, bus *events.EventBus) *Gate {
	return &Gate{
		BaseHandler: base,
		bus:         bus,
	}
}

// Authorize admits the request only when the identity's role is one of the
// allowed roles. Matching is exact and case-sensitive; there is no role
// hierarchy.
func (g *Gate) Authorize(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFromContext(r.Context())
			if !ok {
				g.WriteError(w, r, internal.NewUnauthorizedError("Access denied. User not authenticated", internal.ErrCodeMissingToken))
				return
			}

			allowed := false
			for _, role := range roles {
				if identity.Role == role {
					allowed = true
					break
				}
			}

			if !allowed {
				g.bus.Publish(r.Context(), activity.NewRecordedEvent(activity.Entry{
					UserID:        &identity.ID,
					Type:          activity.TypeSecurity,
					Action:        "Unauthorized Access Attempt",
					Description:   fmt.Sprintf("User with role '%s' attempted to access resource requiring: %s", identity.Role, strings.Join(roles, ", ")),
					IPAddress:     transport.ClientIP(r),
					UserAgent:     r.UserAgent(),
					RequestMethod: r.Method,
					RequestURL:    r.URL.Path,
					Success:       false,
					Severity:      activity.SeverityHigh,
					Metadata: map[string]interface{}{
						"requiredRoles": roles,
						"userRole":      identity.Role,
					},
				}))

				err := internal.NewForbiddenError("Access denied. Insufficient permissions", internal.ErrCodeInsufficientRole).
					WithDetails(map[string]interface{}{
						"required": roles,
						"current":  identity.Role,
					})
				g.WriteError(w, r, err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequirePermission admits the request when any one of the given codes is in
// the identity's resolved permission list.
func (g *Gate) RequirePermission(codes ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFromContext(r.Context())
			if !ok {
				g.WriteError(w, r, internal.NewUnauthorizedError("Access denied. User not authenticated", internal.ErrCodeMissingToken))
				return
			}

			if !identity.HasPermission(codes...) {
				g.bus.Publish(r.Context(), activity.NewRecordedEvent(activity.Entry{
					UserID:        &identity.ID,
					Type:          activity.TypeSecurity,
					Action:        "Permission Denied",
					Description:   fmt.Sprintf("User attempted to access resource requiring permissions: %s", strings.Join(codes, ", ")),
					IPAddress:     transport.ClientIP(r),
					UserAgent:     r.UserAgent(),
					RequestMethod: r.Method,
					RequestURL:    r.URL.Path,
					Success:       false,
					Severity:      activity.SeverityMedium,
					Metadata: map[string]interface{}{
						"requiredPermissions": codes,
						"userPermissions":     identity.Permissions,
					},
				}))

				err := internal.NewForbiddenError("Access denied. Required permission not granted", internal.ErrCodeInsufficientPermission).
					WithDetails(map[string]interface{}{
						"required": codes,
					})
				g.WriteError(w, r, err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
