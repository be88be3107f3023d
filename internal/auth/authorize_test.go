package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/habilitation-management/internal/activity"
	"github.com/frahmantamala/habilitation-management/internal/core/events"
	"github.com/frahmantamala/habilitation-management/internal/transport"
)

type errorBody struct {
	Success  bool     `json:"success"`
	Message  string   `json:"message"`
	Required []string `json:"required"`
	Current  string   `json:"current"`
}

var _ = Describe("Gate", func() {
	var (
		gate    *Gate
		bus     *events.EventBus
		audited chan activity.Entry
		next    http.Handler
		called  bool
	)

	makeRequest := func(mw func(http.Handler) http.Handler, identity *Identity) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/protected", nil)
		if identity != nil {
			req = req.WithContext(WithIdentity(req.Context(), identity))
		}
		rec := httptest.NewRecorder()
		mw(next).ServeHTTP(rec, req)
		return rec
	}

	decodeError := func(rec *httptest.ResponseRecorder) errorBody {
		var body errorBody
		Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
		return body
	}

	BeforeEach(func() {
		bus = events.NewEventBus(testLogger())
		audited = make(chan activity.Entry, 10)
		bus.Subscribe(activity.EventTypeRecorded, func(ctx context.Context, event events.Event) error {
			if recorded, ok := event.(activity.RecordedEvent); ok {
				audited <- recorded.Entry
			}
			return nil
		})

		gate = NewGate(transport.NewBaseHandler(testLogger()), bus)
		called = false
		next = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
			w.WriteHeader(http.StatusOK)
		})
	})

	Describe("Authorize", func() {
		Context("when the role matches one of the allowed roles", func() {
			It("admits the request", func() {
				rec := makeRequest(gate.Authorize(RoleAdmin, RoleManager), &Identity{ID: 7, Role: RoleManager})
				Expect(rec.Code).To(Equal(http.StatusOK))
				Expect(called).To(BeTrue())
			})
		})

		Context("when the role does not match", func() {
			It("responds 403 naming the required roles and the caller's role", func() {
				rec := makeRequest(gate.Authorize(RoleAdmin, RoleManager), &Identity{ID: 7, Role: RoleViewer})

				Expect(rec.Code).To(Equal(http.StatusForbidden))
				Expect(called).To(BeFalse())

				body := decodeError(rec)
				Expect(body.Success).To(BeFalse())
				Expect(body.Message).To(Equal("Access denied. Insufficient permissions"))
				Expect(body.Required).To(Equal([]string{RoleAdmin, RoleManager}))
				Expect(body.Current).To(Equal(RoleViewer))
			})

			It("records a high severity security entry", func() {
				makeRequest(gate.Authorize(RoleAdmin), &Identity{ID: 7, Role: RoleViewer})

				var entry activity.Entry
				Eventually(audited).Should(Receive(&entry))
				Expect(entry.Type).To(Equal(activity.TypeSecurity))
				Expect(entry.Action).To(Equal("Unauthorized Access Attempt"))
				Expect(entry.Severity).To(Equal(activity.SeverityHigh))
				Expect(entry.Success).To(BeFalse())
				Expect(*entry.UserID).To(Equal(int64(7)))
			})
		})

		Context("when role matching is not exact", func() {
			It("does not admit a case variant", func() {
				rec := makeRequest(gate.Authorize(RoleAdmin), &Identity{ID: 7, Role: "Admin"})
				Expect(rec.Code).To(Equal(http.StatusForbidden))
			})
		})

		Context("without an authenticated identity", func() {
			It("responds 401, not 403", func() {
				rec := makeRequest(gate.Authorize(RoleAdmin), nil)
				Expect(rec.Code).To(Equal(http.StatusUnauthorized))
				Expect(called).To(BeFalse())
			})
		})

		Context("when the audit subscriber fails", func() {
			It("still returns the denial response", func() {
				bus.Subscribe(activity.EventTypeRecorded, func(ctx context.Context, event events.Event) error {
					return errors.New("audit pipe broken")
				})

				rec := makeRequest(gate.Authorize(RoleAdmin), &Identity{ID: 7, Role: RoleViewer})
				Expect(rec.Code).To(Equal(http.StatusForbidden))
			})
		})
	})

	Describe("RequirePermission", func() {
		identity := &Identity{ID: 9, Role: RoleEmployee, Permissions: []string{"reports.read", "habilitations.read"}}

		Context("when any one required code is granted", func() {
			It("admits the request", func() {
				rec := makeRequest(gate.RequirePermission("users.write", "reports.read"), identity)
				Expect(rec.Code).To(Equal(http.StatusOK))
				Expect(called).To(BeTrue())
			})
		})

		Context("when none of the codes are granted", func() {
			It("responds 403 naming the required codes", func() {
				rec := makeRequest(gate.RequirePermission("system.maintenance"), identity)

				Expect(rec.Code).To(Equal(http.StatusForbidden))
				body := decodeError(rec)
				Expect(body.Message).To(Equal("Access denied. Required permission not granted"))
				Expect(body.Required).To(Equal([]string{"system.maintenance"}))
			})

			It("records a medium severity security entry", func() {
				makeRequest(gate.RequirePermission("system.maintenance"), identity)

				var entry activity.Entry
				Eventually(audited).Should(Receive(&entry))
				Expect(entry.Action).To(Equal("Permission Denied"))
				Expect(entry.Severity).To(Equal(activity.SeverityMedium))
			})
		})

		Context("without an authenticated identity", func() {
			It("responds 401", func() {
				rec := makeRequest(gate.RequirePermission("reports.read"), nil)
				Expect(rec.Code).To(Equal(http.StatusUnauthorized))
			})
		})
	})
})
