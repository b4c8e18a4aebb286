package auth

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

type AuthUser struct {
	ID       string
	TenantID string
	RoleID   string
	RoleName string
	Password string
}

func (s *Store) FindActiveUserByEmail(ctx context.Context, email, status string) (AuthUser, error) {
	var out AuthUser
	err := s.DB.QueryRow(ctx, `
    SELECT u.id, u.tenant_id, u.role_id, r.name, u.password_hash
    FROM users u
    JOIN roles r ON u.role_id = r.id
    WHERE u.email = $1 AND u.status = $2
  `, email, status).Scan(&out.ID, &out.TenantID, &out.RoleID, &out.RoleName, &out.Password)
	return out, err
}

func (s *Store) CreateSession(ctx context.Context, userID, refreshTokenHash string, expires time.Time) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO sessions (user_id, refresh_token, expires_at)
    VALUES ($1,$2,$3)
  `, userID, refreshTokenHash, expires)
	return err
}

// SessionActive matches by the hashed session token rather than a row id:
// tokens never reach the database in the clear.
func (s *Store) SessionActive(ctx context.Context, userID, sessionID string) (bool, error) {
	var count int
	err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1)
    FROM sessions
    WHERE user_id = $1 AND refresh_token = $2 AND revoked_at IS NULL AND expires_at > now()
  `, userID, HashToken(sessionID)).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) UpdateLastLogin(ctx context.Context, userID string) error {
	_, err := s.DB.Exec(ctx, "UPDATE users SET last_login = now() WHERE id = $1", userID)
	return err
}

func (s *Store) RotateSession(ctx context.Context, userID, oldHash, newHash string, expires time.Time) error {
	_, err := s.DB.Exec(ctx, `
    UPDATE sessions
    SET refresh_token = $1, expires_at = $2, rotated_at = now()
    WHERE user_id = $3 AND refresh_token = $4 AND revoked_at IS NULL
  `, newHash, expires, userID, oldHash)
	return err
}

func (s *Store) RevokeSession(ctx context.Context, userID, refreshTokenHash string) error {
	_, err := s.DB.Exec(ctx, "UPDATE sessions SET revoked_at = now() WHERE user_id = $1 AND refresh_token = $2", userID, refreshTokenHash)
	return err
}

func (s *Store) HasPermission(ctx context.Context, roleID, permission string) (bool, error) {
	var count int
	err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1)
    FROM role_permissions rp
    JOIN permissions p ON rp.permission_id = p.id
    WHERE rp.role_id = $1 AND p.key = $2
  `, roleID, permission).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) RoleNameForUser(ctx context.Context, tenantID, userID string) (string, error) {
	var name string
	err := s.DB.QueryRow(ctx, `
    SELECT r.name
    FROM users u
    JOIN roles r ON u.role_id = r.id
    WHERE u.tenant_id = $1 AND u.id = $2
  `, tenantID, userID).Scan(&name)
	return name, err
}

func (s *Store) UserIDsWithRole(ctx context.Context, tenantID, roleName string) ([]string, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT u.id
    FROM users u
    JOIN roles r ON u.role_id = r.id
    WHERE u.tenant_id = $1 AND r.name = $2
  `, tenantID, roleName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		if id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
