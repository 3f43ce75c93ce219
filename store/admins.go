package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"listings/database"
	"listings/models"
)

// AdminStore persists back-office accounts in admin_users
type AdminStore struct {
	db database.Database
}

// NewAdminStore creates an AdminStore over db
func NewAdminStore(db database.Database) *AdminStore {
	return &AdminStore{db: db}
}

// ExistsByUsername reports whether an account with this username exists
func (s *AdminStore) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var exists bool
	if err := s.db.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM admin_users WHERE username = $1)", username).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to look up admin %q: %w", username, err)
	}
	return exists, nil
}

// Create inserts the account unless the username is already taken. It reports
// whether a row was written.
func (s *AdminStore) Create(ctx context.Context, admin *models.AdminUser) (bool, error) {
	if admin.ID == uuid.Nil {
		admin.ID = uuid.New()
	}
	tag, err := s.db.Exec(ctx,
		`INSERT INTO admin_users (id, username, email, password_hash, is_superuser, is_staff)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (username) DO NOTHING`,
		admin.ID, admin.Username, admin.Email, admin.PasswordHash, admin.IsSuperuser, admin.IsStaff)
	if err != nil {
		return false, fmt.Errorf("failed to create admin %q: %w", admin.Username, err)
	}
	return tag.RowsAffected() == 1, nil
}

// GetByUsername loads an account by username
func (s *AdminStore) GetByUsername(ctx context.Context, username string) (*models.AdminUser, error) {
	var a models.AdminUser
	err := s.db.QueryRow(ctx,
		`SELECT id, username, email, password_hash, is_superuser, is_staff, created_at, last_login
		 FROM admin_users WHERE username = $1`, username).
		Scan(&a.ID, &a.Username, &a.Email, &a.PasswordHash, &a.IsSuperuser, &a.IsStaff, &a.CreatedAt, &a.LastLogin)
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("admin %q", username))
	}
	return &a, nil
}

// TouchLastLogin stamps the account's last successful login
func (s *AdminStore) TouchLastLogin(ctx context.Context, id uuid.UUID) error {
	if _, err := s.db.Exec(ctx, "UPDATE admin_users SET last_login = NOW() WHERE id = $1", id); err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	return nil
}
