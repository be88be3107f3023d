package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/frahmantamala/habilitation-management/internal"
	"github.com/frahmantamala/habilitation-management/internal/auth"
)

type userModel struct {
	ID            int64  `gorm:"primaryKey"`
	UUID          string `gorm:"column:uuid"`
	Email         string
	PasswordHash  string
	FirstName     string
	LastName      string
	Role          string
	IsActive      bool
	EmployeeID    *string
	EmailVerified bool
	LastLoginAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (userModel) TableName() string {
	return "users"
}

func (m *userModel) toUser() *auth.User {
	return &auth.User{
		ID:            m.ID,
		UUID:          m.UUID,
		Email:         m.Email,
		PasswordHash:  m.PasswordHash,
		FirstName:     m.FirstName,
		LastName:      m.LastName,
		Role:          m.Role,
		IsActive:      m.IsActive,
		EmployeeID:    m.EmployeeID,
		EmailVerified: m.EmailVerified,
		LastLoginAt:   m.LastLoginAt,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

// CredentialRepository implements auth.CredentialStore with GORM.
type CredentialRepository struct {
	db *gorm.DB
}

func NewCredentialRepository(db *gorm.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

func (r *CredentialRepository) FindActiveByEmail(ctx context.Context, email string) (*auth.User, error) {
	var model userModel
	err := r.db.WithContext(ctx).
		Where("LOWER(email) = LOWER(?) AND is_active = ?", email, true).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrUserNotFound
		}
		return nil, internal.ClassifyStorageError(err)
	}
	return model.toUser(), nil
}

func (r *CredentialRepository) FindActiveByID(ctx context.Context, id int64) (*auth.User, error) {
	var model userModel
	err := r.db.WithContext(ctx).
		Where("id = ? AND is_active = ?", id, true).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrUserNotFound
		}
		return nil, internal.ClassifyStorageError(err)
	}
	return model.toUser(), nil
}

// GetIdentity re-hydrates the acting identity: the active user row plus the
// set of currently granted, unexpired permission codes. Revoked grants and
// grants past their expiry are equivalent to absence.
func (r *CredentialRepository) GetIdentity(ctx context.Context, id int64) (*auth.Identity, error) {
	var model userModel
	err := r.db.WithContext(ctx).
		Where("id = ? AND is_active = ?", id, true).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrUserNotFound
		}
		return nil, internal.ClassifyStorageError(err)
	}

	permQuery := `SELECT p.code
		FROM permissions p
		JOIN user_permissions up ON p.id = up.permission_id
		WHERE up.user_id = ?
		  AND up.granted = ?
		  AND (up.expires_at IS NULL OR up.expires_at > ?)`

	rows, err := r.db.WithContext(ctx).Raw(permQuery, id, true, time.Now()).Rows()
	if err != nil {
		return nil, internal.ClassifyStorageError(err)
	}
	defer rows.Close()

	var permissions []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, internal.ClassifyStorageError(err)
		}
		permissions = append(permissions, code)
	}
	if err := rows.Err(); err != nil {
		return nil, internal.ClassifyStorageError(err)
	}

	return &auth.Identity{
		ID:          model.ID,
		UUID:        model.UUID,
		Email:       model.Email,
		FirstName:   model.FirstName,
		LastName:    model.LastName,
		Role:        model.Role,
		Permissions: permissions,
	}, nil
}

func (r *CredentialRepository) UpdateLastLogin(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).
		Model(&userModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"last_login_at": time.Now(),
			"updated_at":    time.Now(),
		}).Error
}

type refreshTokenModel struct {
	ID         int64 `gorm:"primaryKey"`
	Token      string
	UserID     int64
	DeviceInfo string
	IPAddress  string `gorm:"column:ip_address"`
	ExpiresAt  time.Time
	CreatedAt  time.Time
}

func (refreshTokenModel) TableName() string {
	return "refresh_tokens"
}

// RefreshTokenRepository implements auth.RefreshTokenStore with GORM.
type RefreshTokenRepository struct {
	db *gorm.DB
}

func NewRefreshTokenRepository(db *gorm.DB) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: db}
}

func (r *RefreshTokenRepository) Save(ctx context.Context, token *auth.RefreshToken) error {
	model := &refreshTokenModel{
		Token:      token.Token,
		UserID:     token.UserID,
		DeviceInfo: token.DeviceInfo,
		IPAddress:  token.IPAddress,
		ExpiresAt:  token.ExpiresAt,
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return internal.ClassifyStorageError(err)
	}
	token.ID = model.ID
	return nil
}

func (r *RefreshTokenRepository) Find(ctx context.Context, token string) (*auth.RefreshToken, error) {
	var model refreshTokenModel
	err := r.db.WithContext(ctx).
		Where("token = ? AND expires_at > ?", token, time.Now()).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrRefreshNotFound
		}
		return nil, internal.ClassifyStorageError(err)
	}
	return &auth.RefreshToken{
		ID:         model.ID,
		Token:      model.Token,
		UserID:     model.UserID,
		DeviceInfo: model.DeviceInfo,
		IPAddress:  model.IPAddress,
		ExpiresAt:  model.ExpiresAt,
		CreatedAt:  model.CreatedAt,
	}, nil
}

func (r *RefreshTokenRepository) Delete(ctx context.Context, token string) error {
	return r.db.WithContext(ctx).
		Where("token = ?", token).
		Delete(&refreshTokenModel{}).Error
}

func (r *RefreshTokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at < ?", time.Now()).
		Delete(&refreshTokenModel{})
	return result.RowsAffected, result.Error
}
