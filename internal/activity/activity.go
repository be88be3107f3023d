package activity

import (
	"context"
	mathrand "math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Activity types.
const (
	TypeAuth       = "auth"
	TypeSecurity   = "security"
	TypePermission = "permission"
	TypeSystem     = "system"
	TypeData       = "data"
)

// Severities, lowest to highest.
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// Entry is one immutable audit record. Entries are write-once: nothing in the
// system updates a row after insert, and only the retention sweep deletes.
type Entry struct {
	ID             int64                  `json:"id"`
	ActivityCode   string                 `json:"activity_code"`
	UserID         *int64                 `json:"user_id,omitempty"`
	Type           string                 `json:"type"`
	Action         string                 `json:"action"`
	Description    string                 `json:"description,omitempty"`
	TargetType     string                 `json:"target_type,omitempty"`
	TargetID       string                 `json:"target_id,omitempty"`
	IPAddress      string                 `json:"ip_address,omitempty"`
	UserAgent      string                 `json:"user_agent,omitempty"`
	RequestMethod  string                 `json:"request_method,omitempty"`
	RequestURL     string                 `json:"request_url,omitempty"`
	ResponseStatus *int                   `json:"response_status,omitempty"`
	Success        bool                   `json:"success"`
	Severity       string                 `json:"severity"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
}

// TypeSummary aggregates entries of one type over a window.
type TypeSummary struct {
	Type         string  `json:"type" db:"type"`
	TotalCount   int64   `json:"total_count" db:"total_count"`
	UniqueUsers  int64   `json:"unique_users" db:"unique_users"`
	SuccessCount int64   `json:"success_count" db:"success_count"`
	FailureCount int64   `json:"failure_count" db:"failure_count"`
	SuccessRate  float64 `json:"success_rate" db:"success_rate"`
}

// TrendPoint is one day/hour bucket of activity volume.
type TrendPoint struct {
	Date        string `json:"date" db:"date"`
	Hour        int    `json:"hour" db:"hour"`
	Count       int64  `json:"activity_count" db:"activity_count"`
	UniqueUsers int64  `json:"unique_users" db:"unique_users"`
	FailedCount int64  `json:"failed_count" db:"failed_count"`
}

// FailedLoginSource is one source IP with repeated authentication failures.
type FailedLoginSource struct {
	IPAddress   string    `json:"ip_address" db:"ip_address"`
	Attempts    int64     `json:"attempts" db:"attempts"`
	LastAttempt time.Time `json:"last_attempt" db:"last_attempt"`
	UserAgents  string    `json:"user_agents" db:"user_agents"`
}

type Pagination struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"totalPages"`
	HasNext    bool  `json:"hasNext"`
	HasPrev    bool  `json:"hasPrev"`
}

// RepositoryAPI is the storage surface the service depends on.
type RepositoryAPI interface {
	Insert(ctx context.Context, e *Entry) error
	FindPage(ctx context.Context, filter Filter, page, limit int) ([]Entry, Pagination, error)
	SummaryByType(ctx context.Context, days int) ([]TypeSummary, error)
	Trends(ctx context.Context, days int) ([]TrendPoint, error)
	SecurityAlerts(ctx context.Context, limit int) ([]Entry, error)
	Suspicious(ctx context.Context, limit int) ([]Entry, error)
	FailedLoginsByIP(ctx context.Context, hours, limit int) ([]FailedLoginSource, error)
	DeleteAged(ctx context.Context, retentionDays int) (int64, error)
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0)
)

// NewActivityCode returns a human-traceable, time-sortable code.
func NewActivityCode() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return "ACT-" + ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
