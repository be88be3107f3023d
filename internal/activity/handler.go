package activity

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/frahmantamala/habilitation-management/internal/transport"
)

type Handler struct {
	*transport.BaseHandler
	service *Service
}

func NewHandler(base *transport.BaseHandler, service *Service) *Handler {
	return &Handler{
		BaseHandler: base,
		service:     service,
	}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ParseFilter(q)
	page, limit := ParsePage(q)

	entries, pagination, err := h.service.List(r.Context(), filter, page, limit)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}

	h.WriteSuccess(w, r, http.StatusOK, "activity logs retrieved", map[string]interface{}{
		"activities": entries,
		"pagination": pagination,
	})
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", 30)

	summary, err := h.service.Summary(r.Context(), days)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}

	h.WriteSuccess(w, r, http.StatusOK, "activity summary retrieved", summary)
}

func (h *Handler) Trends(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", 30)

	points, err := h.service.Trends(r.Context(), days)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}

	h.WriteSuccess(w, r, http.StatusOK, "activity trends retrieved", points)
}

func (h *Handler) SecurityAlerts(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)

	alerts, err := h.service.SecurityAlerts(r.Context(), limit)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}

	h.WriteSuccess(w, r, http.StatusOK, "security alerts retrieved", alerts)
}

func (h *Handler) Suspicious(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)

	entries, err := h.service.Suspicious(r.Context(), limit)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}

	h.WriteSuccess(w, r, http.StatusOK, "suspicious activity retrieved", entries)
}

func (h *Handler) FailedLoginsByIP(w http.ResponseWriter, r *http.Request) {
	hours := queryInt(r, "hours", 24)
	limit := queryInt(r, "limit", 20)

	sources, err := h.service.FailedLoginsByIP(r.Context(), hours, limit)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}

	h.WriteSuccess(w, r, http.StatusOK, "failed login sources retrieved", sources)
}

func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	filter := ParseFilter(r.URL.Query())

	data, err := h.service.ExportCSV(r.Context(), filter)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}

	filename := fmt.Sprintf("activity-logs-%s.csv", time.Now().UTC().Format("2006-01-02"))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	h.WriteRaw(w, http.StatusOK, "text/csv", data)
}

func (h *Handler) Cleanup(w http.ResponseWriter, r *http.Request) {
	retentionDays := queryInt(r, "retention_days", 0)

	deleted, err := h.service.Cleanup(r.Context(), retentionDays)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}

	h.WriteSuccess(w, r, http.StatusOK, "activity log cleanup complete", map[string]interface{}{
		"deleted": deleted,
	})
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
