package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"gorm.io/gorm"

	"github.com/frahmantamala/habilitation-management/internal/activity"
)

// activityModel is the persistence shape of an audit entry. Metadata is kept
// as a serialized JSON column so the row survives schema-free detail fields.
type activityModel struct {
	ID             int64     `gorm:"primaryKey" db:"id"`
	ActivityCode   string    `gorm:"column:activity_code" db:"activity_code"`
	UserID         *int64    `db:"user_id"`
	Type           string    `db:"type"`
	Action         string    `db:"action"`
	Description    string    `db:"description"`
	TargetType     string    `db:"target_type"`
	TargetID       string    `db:"target_id"`
	IPAddress      string    `gorm:"column:ip_address" db:"ip_address"`
	UserAgent      string    `db:"user_agent"`
	RequestMethod  string    `db:"request_method"`
	RequestURL     string    `gorm:"column:request_url" db:"request_url"`
	ResponseStatus *int      `db:"response_status"`
	Success        bool      `db:"success"`
	Severity       string    `db:"severity"`
	Metadata       string    `db:"metadata"`
	CreatedAt      time.Time `db:"created_at"`
}

func (activityModel) TableName() string {
	return "activity_logs"
}

func toModel(e *activity.Entry) (*activityModel, error) {
	metadata := ""
	if len(e.Metadata) > 0 {
		raw, err := json.Marshal(e.Metadata)
		if err != nil {
			return nil, err
		}
		metadata = string(raw)
	}
	return &activityModel{
		ID:             e.ID,
		ActivityCode:   e.ActivityCode,
		UserID:         e.UserID,
		Type:           e.Type,
		Action:         e.Action,
		Description:    e.Description,
		TargetType:     e.TargetType,
		TargetID:       e.TargetID,
		IPAddress:      e.IPAddress,
		UserAgent:      e.UserAgent,
		RequestMethod:  e.RequestMethod,
		RequestURL:     e.RequestURL,
		ResponseStatus: e.ResponseStatus,
		Success:        e.Success,
		Severity:       e.Severity,
		Metadata:       metadata,
		CreatedAt:      e.CreatedAt,
	}, nil
}

func toEntry(m *activityModel) activity.Entry {
	e := activity.Entry{
		ID:             m.ID,
		ActivityCode:   m.ActivityCode,
		UserID:         m.UserID,
		Type:           m.Type,
		Action:         m.Action,
		Description:    m.Description,
		TargetType:     m.TargetType,
		TargetID:       m.TargetID,
		IPAddress:      m.IPAddress,
		UserAgent:      m.UserAgent,
		RequestMethod:  m.RequestMethod,
		RequestURL:     m.RequestURL,
		ResponseStatus: m.ResponseStatus,
		Success:        m.Success,
		Severity:       m.Severity,
		CreatedAt:      m.CreatedAt,
	}
	if m.Metadata != "" {
		_ = json.Unmarshal([]byte(m.Metadata), &e.Metadata)
	}
	return e
}

// ActivityRepository implements activity.RepositoryAPI. Row-level access goes
// through GORM; the reporting aggregates use raw SQL through sqlx.
type ActivityRepository struct {
	db    *gorm.DB
	sqlDB *sqlx.DB
}

func NewActivityRepository(db *gorm.DB, sqlDB *sqlx.DB) activity.RepositoryAPI {
	return &ActivityRepository{db: db, sqlDB: sqlDB}
}

func (r *ActivityRepository) Insert(ctx context.Context, e *activity.Entry) error {
	model, err := toModel(e)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	e.ID = model.ID
	return nil
}

func (r *ActivityRepository) FindPage(ctx context.Context, filter activity.Filter, page, limit int) ([]activity.Entry, activity.Pagination, error) {
	query := r.applyFilter(r.db.WithContext(ctx).Model(&activityModel{}), filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, activity.Pagination{}, err
	}

	var models []activityModel
	err := query.
		Order("created_at DESC").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&models).Error
	if err != nil {
		return nil, activity.Pagination{}, err
	}

	entries := make([]activity.Entry, 0, len(models))
	for i := range models {
		entries = append(entries, toEntry(&models[i]))
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return entries, activity.Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}, nil
}

func (r *ActivityRepository) applyFilter(query *gorm.DB, filter activity.Filter) *gorm.DB {
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}
	if filter.Severity != "" {
		query = query.Where("severity = ?", filter.Severity)
	}
	if filter.Success != nil {
		query = query.Where("success = ?", *filter.Success)
	}
	if filter.IPAddress != "" {
		query = query.Where("ip_address = ?", filter.IPAddress)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("(LOWER(description) LIKE LOWER(?) OR LOWER(action) LIKE LOWER(?) OR LOWER(activity_code) LIKE LOWER(?))", pattern, pattern, pattern)
	}
	if filter.StartDate != nil {
		query = query.Where("created_at >= ?", *filter.StartDate)
	}
	if filter.EndDate != nil {
		query = query.Where("created_at <= ?", *filter.EndDate)
	}
	return query
}

// SecurityAlerts returns the last day of security entries that either failed
// or carry high/critical severity, most severe first.
func (r *ActivityRepository) SecurityAlerts(ctx context.Context, limit int) ([]activity.Entry, error) {
	since := time.Now().Add(-24 * time.Hour)
	var models []activityModel
	err := r.db.WithContext(ctx).
		Where("type = ? AND created_at >= ? AND (success = ? OR severity IN ?)",
			activity.TypeSecurity, since, false, []string{activity.SeverityHigh, activity.SeverityCritical}).
		Order("CASE severity WHEN 'critical' THEN 0 WHEN 'high' THEN 1 WHEN 'medium' THEN 2 ELSE 3 END, created_at DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	entries := make([]activity.Entry, 0, len(models))
	for i := range models {
		entries = append(entries, toEntry(&models[i]))
	}
	return entries, nil
}

// DeleteAged removes entries older than the retention window. High and
// critical severity rows are kept for forensics regardless of age.
func (r *ActivityRepository) DeleteAged(ctx context.Context, retentionDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	result := r.db.WithContext(ctx).
		Where("created_at < ? AND severity NOT IN ?", cutoff, []string{activity.SeverityHigh, activity.SeverityCritical}).
		Delete(&activityModel{})
	return result.RowsAffected, result.Error
}

func (r *ActivityRepository) SummaryByType(ctx context.Context, days int) ([]activity.TypeSummary, error) {
	query := `
		SELECT
			type,
			COUNT(*) AS total_count,
			COUNT(DISTINCT user_id) AS unique_users,
			COUNT(*) FILTER (WHERE success) AS success_count,
			COUNT(*) FILTER (WHERE NOT success) AS failure_count,
			ROUND(100.0 * COUNT(*) FILTER (WHERE success) / COUNT(*), 2) AS success_rate
		FROM activity_logs
		WHERE created_at >= NOW() - ($1 || ' days')::interval
		GROUP BY type
		ORDER BY total_count DESC`

	var summary []activity.TypeSummary
	if err := r.sqlDB.SelectContext(ctx, &summary, query, days); err != nil {
		return nil, err
	}
	return summary, nil
}

func (r *ActivityRepository) Trends(ctx context.Context, days int) ([]activity.TrendPoint, error) {
	query := `
		SELECT
			TO_CHAR(created_at, 'YYYY-MM-DD') AS date,
			EXTRACT(HOUR FROM created_at)::int AS hour,
			COUNT(*) AS activity_count,
			COUNT(DISTINCT user_id) AS unique_users,
			COUNT(*) FILTER (WHERE NOT success) AS failed_count
		FROM activity_logs
		WHERE created_at >= NOW() - ($1 || ' days')::interval
		GROUP BY TO_CHAR(created_at, 'YYYY-MM-DD'), EXTRACT(HOUR FROM created_at)
		ORDER BY date, hour`

	var points []activity.TrendPoint
	if err := r.sqlDB.SelectContext(ctx, &points, query, days); err != nil {
		return nil, err
	}
	return points, nil
}

// Suspicious flags entries from the last week matching any of the unusual
// patterns: failed authentication, critical permission changes, access
// outside business hours, or a user switching between many user agents
// within a day.
func (r *ActivityRepository) Suspicious(ctx context.Context, limit int) ([]activity.Entry, error) {
	query := `
		SELECT id, activity_code, user_id, type, action, description, target_type, target_id,
		       ip_address, user_agent, request_method, request_url, response_status,
		       success, severity, metadata, created_at
		FROM activity_logs
		WHERE (
			(type = 'auth' AND NOT success)
			OR (type = 'permission' AND severity = 'critical')
			OR (EXTRACT(HOUR FROM created_at) < 6 OR EXTRACT(HOUR FROM created_at) > 22)
			OR (user_id IN (
				SELECT user_id
				FROM activity_logs
				WHERE created_at >= NOW() - INTERVAL '1 day'
				GROUP BY user_id
				HAVING COUNT(DISTINCT user_agent) > 3
			))
		)
		AND created_at >= NOW() - INTERVAL '7 days'
		ORDER BY created_at DESC
		LIMIT $1`

	var models []activityModel
	if err := r.sqlDB.SelectContext(ctx, &models, query, limit); err != nil {
		return nil, err
	}

	entries := make([]activity.Entry, 0, len(models))
	for i := range models {
		entries = append(entries, toEntry(&models[i]))
	}
	return entries, nil
}

func (r *ActivityRepository) FailedLoginsByIP(ctx context.Context, hours, limit int) ([]activity.FailedLoginSource, error) {
	query := `
		SELECT
			ip_address,
			COUNT(*) AS attempts,
			MAX(created_at) AS last_attempt,
			STRING_AGG(DISTINCT user_agent, ', ') AS user_agents
		FROM activity_logs
		WHERE action = 'login' AND NOT success
		  AND created_at >= NOW() - ($1 || ' hours')::interval
		GROUP BY ip_address
		ORDER BY attempts DESC
		LIMIT $2`

	var sources []activity.FailedLoginSource
	if err := r.sqlDB.SelectContext(ctx, &sources, query, hours, limit); err != nil {
		return nil, err
	}
	return sources, nil
}
