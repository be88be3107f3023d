package user

import (
	"context"

	"github.com/frahmantamala/habilitation-management/internal"
)

type Repository interface {
	GetByID(ctx context.Context, userID int64) (*User, error)
	GetPermissionCodes(ctx context.Context, userID int64) ([]string, error)
	ListPermissions(ctx context.Context) ([]Permission, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// GetByID returns the sanitized profile with the live permission codes.
func (s *Service) GetByID(ctx context.Context, userID int64) (*User, error) {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	perms, err := s.repo.GetPermissionCodes(ctx, userID)
	if err != nil {
		return nil, internal.ClassifyStorageError(err)
	}
	u.Permissions = perms

	return u, nil
}

// ListPermissions returns the permission catalog, used by admin screens.
func (s *Service) ListPermissions(ctx context.Context) ([]Permission, error) {
	perms, err := s.repo.ListPermissions(ctx)
	if err != nil {
		return nil, internal.ClassifyStorageError(err)
	}
	return perms, nil
}
