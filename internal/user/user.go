package user

import "time"

// User is the sanitized profile shape served to clients. The password hash
// never appears here at all.
type User struct {
	ID            int64      `json:"id" db:"id"`
	UUID          string     `json:"uuid" db:"uuid"`
	Email         string     `json:"email" db:"email"`
	FirstName     string     `json:"first_name" db:"first_name"`
	LastName      string     `json:"last_name" db:"last_name"`
	Role          string     `json:"role" db:"role"`
	Department    string     `json:"department" db:"department"`
	Position      string     `json:"position" db:"position"`
	EmployeeID    *string    `json:"employee_id,omitempty" db:"employee_id"`
	IsActive      bool       `json:"is_active" db:"is_active"`
	EmailVerified bool       `json:"email_verified" db:"email_verified"`
	LastLoginAt   *time.Time `json:"last_login_at,omitempty" db:"last_login_at"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
	Permissions   []string   `json:"permissions,omitempty" db:"-"`
}

// Permission is the reference record for one fine-grained capability.
type Permission struct {
	ID        int64  `json:"id" db:"id"`
	Code      string `json:"code" db:"code"`
	Name      string `json:"name" db:"name"`
	Module    string `json:"module" db:"module"`
	Type      string `json:"type" db:"type"`
	RiskLevel string `json:"risk_level" db:"risk_level"`
}
