package auth

import (
	"context"
	"time"
)

type Service struct {
	Store *Store
}

func NewService(store *Store) *Service {
	return &Service{Store: store}
}

func (s *Service) FindActiveUserByEmail(ctx context.Context, email, status string) (AuthUser, error) {
	return s.Store.FindActiveUserByEmail(ctx, email, status)
}

func (s *Service) CreateSession(ctx context.Context, userID, refreshTokenHash string, expires time.Time) error {
	return s.Store.CreateSession(ctx, userID, refreshTokenHash, expires)
}

func (s *Service) SessionActive(ctx context.Context, userID, sessionID string) (bool, error) {
	return s.Store.SessionActive(ctx, userID, sessionID)
}

func (s *Service) UpdateLastLogin(ctx context.Context, userID string) error {
	return s.Store.UpdateLastLogin(ctx, userID)
}

func (s *Service) RotateSession(ctx context.Context, userID, oldHash, newHash string, expires time.Time) error {
	return s.Store.RotateSession(ctx, userID, oldHash, newHash, expires)
}

func (s *Service) RevokeSession(ctx context.Context, userID, refreshTokenHash string) error {
	return s.Store.RevokeSession(ctx, userID, refreshTokenHash)
}

func (s *Service) HasPermission(ctx context.Context, roleID, permission string) (bool, error) {
	return s.Store.HasPermission(ctx, roleID, permission)
}

// HasRole reports whether the principal currently holds the named role.
// Workflow transitions consult this rather than trusting token claims, so
// role revocations take effect immediately.
func (s *Service) HasRole(ctx context.Context, tenantID, principalID, roleName string) (bool, error) {
	name, err := s.Store.RoleNameForUser(ctx, tenantID, principalID)
	if err != nil {
		return false, err
	}
	return name == roleName, nil
}

func (s *Service) UserIDsWithRole(ctx context.Context, tenantID, roleName string) ([]string, error) {
	return s.Store.UserIDsWithRole(ctx, tenantID, roleName)
}
