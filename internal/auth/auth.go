package auth

import (
	"context"
	"time"
)

// Roles are exact string matches, no hierarchy between them.
const (
	RoleAdmin    = "admin"
	RoleManager  = "manager"
	RoleEmployee = "employee"
	RoleViewer   = "viewer"
)

// User is the credential store record. The password hash never leaves the
// server: it is excluded from every serialized form.
type User struct {
	ID            int64      `json:"id"`
	UUID          string     `json:"uuid"`
	Email         string     `json:"email"`
	PasswordHash  string     `json:"-"`
	FirstName     string     `json:"first_name"`
	LastName      string     `json:"last_name"`
	Role          string     `json:"role"`
	IsActive      bool       `json:"is_active"`
	EmployeeID    *string    `json:"employee_id,omitempty"`
	EmailVerified bool       `json:"email_verified"`
	LastLoginAt   *time.Time `json:"last_login_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Identity is the validated acting identity attached to a request context
// after authentication, including the live permission codes resolved from
// the store.
type Identity struct {
	ID          int64    `json:"id"`
	UUID        string   `json:"uuid"`
	Email       string   `json:"email"`
	FirstName   string   `json:"first_name"`
	LastName    string   `json:"last_name"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

// HasPermission reports whether any of the given codes is granted.
func (i *Identity) HasPermission(codes ...string) bool {
	for _, code := range codes {
		for _, granted := range i.Permissions {
			if granted == code {
				return true
			}
		}
	}
	return false
}

type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// RefreshToken is the persisted long-lived credential artifact. The token
// string itself is a signed JWT; a row is valid only while unexpired and
// still present.
type RefreshToken struct {
	ID         int64     `json:"id"`
	Token      string    `json:"-"`
	UserID     int64     `json:"user_id"`
	DeviceInfo string    `json:"device_info"`
	IPAddress  string    `json:"ip_address"`
	ExpiresAt  time.Time `json:"expires_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// RequestMeta carries the request attributes the audit trail records.
type RequestMeta struct {
	IP        string
	UserAgent string
	Method    string
	URL       string
}

// CredentialStore is the persisted user surface the auth service reads.
type CredentialStore interface {
	FindActiveByEmail(ctx context.Context, email string) (*User, error)
	FindActiveByID(ctx context.Context, id int64) (*User, error)
	GetIdentity(ctx context.Context, id int64) (*Identity, error)
	UpdateLastLogin(ctx context.Context, id int64) error
}

// RefreshTokenStore persists refresh-token rows.
type RefreshTokenStore interface {
	Save(ctx context.Context, token *RefreshToken) error
	Find(ctx context.Context, token string) (*RefreshToken, error)
	Delete(ctx context.Context, token string) error
	DeleteExpired(ctx context.Context) (int64, error)
}

// ServiceAPI is what the HTTP layer depends on.
type ServiceAPI interface {
	Login(ctx context.Context, dto LoginDTO, meta RequestMeta) (*User, TokenPair, error)
	Authenticate(ctx context.Context, rawToken string, meta RequestMeta) (*Identity, error)
	RefreshAccessToken(ctx context.Context, refreshToken string) (string, error)
	Logout(ctx context.Context, refreshToken string) error
	GetProfile(ctx context.Context, userID int64) (*User, error)
}

type contextKey string

const identityContextKey contextKey = "auth_identity"

// WithIdentity attaches the validated identity to the request context.
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}

// IdentityFromContext returns the identity attached by the authenticate
// middleware, or false when the request is anonymous.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(identityContextKey).(*Identity)
	return identity, ok && identity != nil
}
