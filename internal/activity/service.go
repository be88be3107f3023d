package activity

import (
	"bytes"
	"context"
	"encoding/csv"
	"log/slog"
	"strconv"
	"time"

	"github.com/frahmantamala/habilitation-management/internal"
)

// Service is the audit sink and its read side. Record is deliberately
// best-effort: a broken audit pipe must never take down the operation that
// produced the event.
type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// Record persists one audit entry. A missing activity code is synthesized.
// Persistence failures are logged and swallowed; the returned entry is nil in
// that case so callers can tell, but no caller is expected to care.
func (s *Service) Record(ctx context.Context, e Entry) *Entry {
	if e.ActivityCode == "" {
		e.ActivityCode = NewActivityCode()
	}
	if e.Severity == "" {
		e.Severity = SeverityMedium
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	if err := s.repo.Insert(ctx, &e); err != nil {
		s.logger.Error("failed to record activity",
			"activity_code", e.ActivityCode,
			"type", e.Type,
			"action", e.Action,
			"error", err)
		return nil
	}
	return &e
}

func (s *Service) List(ctx context.Context, filter Filter, page, limit int) ([]Entry, Pagination, error) {
	entries, pagination, err := s.repo.FindPage(ctx, filter, page, limit)
	if err != nil {
		return nil, Pagination{}, internal.ClassifyStorageError(err)
	}
	return entries, pagination, nil
}

func (s *Service) Summary(ctx context.Context, days int) ([]TypeSummary, error) {
	if days <= 0 {
		days = 30
	}
	summary, err := s.repo.SummaryByType(ctx, days)
	if err != nil {
		return nil, internal.ClassifyStorageError(err)
	}
	return summary, nil
}

func (s *Service) Trends(ctx context.Context, days int) ([]TrendPoint, error) {
	if days <= 0 {
		days = 30
	}
	points, err := s.repo.Trends(ctx, days)
	if err != nil {
		return nil, internal.ClassifyStorageError(err)
	}
	return points, nil
}

func (s *Service) SecurityAlerts(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	alerts, err := s.repo.SecurityAlerts(ctx, limit)
	if err != nil {
		return nil, internal.ClassifyStorageError(err)
	}
	return alerts, nil
}

func (s *Service) Suspicious(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	entries, err := s.repo.Suspicious(ctx, limit)
	if err != nil {
		return nil, internal.ClassifyStorageError(err)
	}
	return entries, nil
}

func (s *Service) FailedLoginsByIP(ctx context.Context, hours, limit int) ([]FailedLoginSource, error) {
	if hours <= 0 {
		hours = 24
	}
	if limit <= 0 {
		limit = 20
	}
	sources, err := s.repo.FailedLoginsByIP(ctx, hours, limit)
	if err != nil {
		return nil, internal.ClassifyStorageError(err)
	}
	return sources, nil
}

// Cleanup runs the retention sweep: rows older than retentionDays are deleted
// unless their severity is high or critical, which are kept indefinitely.
func (s *Service) Cleanup(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		retentionDays = 90
	}
	deleted, err := s.repo.DeleteAged(ctx, retentionDays)
	if err != nil {
		return 0, internal.ClassifyStorageError(err)
	}
	s.logger.Info("activity log retention sweep complete",
		"retention_days", retentionDays,
		"deleted", deleted)
	return deleted, nil
}

// ExportCSV renders the filtered entries as CSV for the compliance exports.
func (s *Service) ExportCSV(ctx context.Context, filter Filter) ([]byte, error) {
	entries, _, err := s.repo.FindPage(ctx, filter, 1, 10000)
	if err != nil {
		return nil, internal.ClassifyStorageError(err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"Activity Code", "Date", "User ID", "Type", "Action", "Description", "IP Address", "Success", "Severity"}); err != nil {
		return nil, internal.NewInternalError("failed to write export header", err)
	}
	for _, e := range entries {
		userID := ""
		if e.UserID != nil {
			userID = strconv.FormatInt(*e.UserID, 10)
		}
		success := "No"
		if e.Success {
			success = "Yes"
		}
		record := []string{
			e.ActivityCode,
			e.CreatedAt.UTC().Format(time.RFC3339),
			userID,
			e.Type,
			e.Action,
			e.Description,
			e.IPAddress,
			success,
			e.Severity,
		}
		if err := w.Write(record); err != nil {
			return nil, internal.NewInternalError("failed to write export row", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, internal.NewInternalError("failed to flush export", err)
	}

	return buf.Bytes(), nil
}
