package activity

import (
	"net/url"
	"strconv"
	"time"
)

// Filter narrows the activity listing. Zero values mean "not filtered".
type Filter struct {
	UserID    *int64
	Type      string
	Action    string
	Severity  string
	Success   *bool
	IPAddress string
	Search    string
	StartDate *time.Time
	EndDate   *time.Time
}

// ParseFilter reads listing filters from query parameters. Unparseable values
// are ignored rather than rejected, matching the permissive dashboard surface.
func ParseFilter(q url.Values) Filter {
	var f Filter

	if v := q.Get("user_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			f.UserID = &id
		}
	}
	f.Type = q.Get("type")
	f.Action = q.Get("action")
	f.Severity = q.Get("severity")
	if v := q.Get("success"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			f.Success = &b
		}
	}
	f.IPAddress = q.Get("ip_address")
	f.Search = q.Get("search")
	if v := q.Get("start_date"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			f.StartDate = &t
		}
	}
	if v := q.Get("end_date"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			f.EndDate = &t
		}
	}

	return f
}

// ParsePage reads page/limit with sane bounds.
func ParsePage(q url.Values) (page, limit int) {
	page = 1
	limit = 20

	if v := q.Get("page"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			page = p
		}
	}
	if v := q.Get("limit"); v != "" {
		if l, err := strconv.Atoi(v); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}
	return page, limit
}
