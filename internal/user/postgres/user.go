package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/frahmantamala/habilitation-management/internal"
	"github.com/frahmantamala/habilitation-management/internal/user"
)

type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, userID int64) (*user.User, error) {
	var u user.User
	query := `
		SELECT id, uuid, email, first_name, last_name, role,
		       COALESCE(department, '') AS department,
		       COALESCE(position, '') AS position,
		       employee_id, is_active, email_verified, last_login_at,
		       created_at, updated_at
		FROM users
		WHERE id = $1 AND is_active = TRUE`

	if err := r.db.GetContext(ctx, &u, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, internal.ErrUserNotFound
		}
		return nil, internal.ClassifyStorageError(err)
	}
	return &u, nil
}

func (r *UserRepository) GetPermissionCodes(ctx context.Context, userID int64) ([]string, error) {
	var codes []string
	query := `
		SELECT p.code
		FROM permissions p
		JOIN user_permissions up ON up.permission_id = p.id
		WHERE up.user_id = $1
		  AND up.granted = TRUE
		  AND (up.expires_at IS NULL OR up.expires_at > $2)
		ORDER BY p.code`

	if err := r.db.SelectContext(ctx, &codes, query, userID, time.Now()); err != nil {
		return nil, err
	}
	return codes, nil
}

func (r *UserRepository) ListPermissions(ctx context.Context) ([]user.Permission, error) {
	var perms []user.Permission
	query := `
		SELECT id, code, name, module, type, risk_level
		FROM permissions
		ORDER BY module, code`

	if err := r.db.SelectContext(ctx, &perms, query); err != nil {
		return nil, err
	}
	return perms, nil
}
