package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"listings/crypto"
	"listings/models"
	"listings/store"
	"listings/utils"
)

// ErrInvalidCredentials is returned for any failed admin login
var ErrInvalidCredentials = errors.New("invalid credentials")

// AdminConfig holds the default admin account settings
type AdminConfig struct {
	Username string
	Email    string
	Password string
	// InsecurePassword marks Password as the well-known fallback value
	InsecurePassword bool
}

// AdminService provisions and authenticates admin accounts
type AdminService struct {
	repo   AdminRepository
	config AdminConfig
	out    io.Writer
}

// NewAdminService creates a new admin service. Confirmations are printed to out
// (stdout when nil).
func NewAdminService(repo AdminRepository, config AdminConfig, out io.Writer) *AdminService {
	return &AdminService{
		repo:   repo,
		config: config,
		out:    outOrStdout(out),
	}
}

// ValidateAdminConfig validates the admin configuration
func (a *AdminService) ValidateAdminConfig() error {
	if strings.TrimSpace(a.config.Username) == "" {
		return errors.New("admin username cannot be empty")
	}
	if a.config.Password == "" {
		return errors.New("admin password cannot be empty")
	}
	return nil
}

// EnsureDefaultAdmin creates the default superuser unless an account with that
// username already exists. Existing accounts are never modified.
func (a *AdminService) EnsureDefaultAdmin(ctx context.Context) (bool, error) {
	if err := a.ValidateAdminConfig(); err != nil {
		return false, err
	}

	exists, err := a.repo.ExistsByUsername(ctx, a.config.Username)
	if err != nil {
		return false, err
	}
	if exists {
		_, _ = warning.Fprintln(a.out, "Superuser already exists.")
		return false, nil
	}

	if a.config.InsecurePassword {
		utils.LogWarn("Default admin is being created with the built-in password; set DEFAULT_ADMIN_PASSWORD",
			"username", a.config.Username)
	}

	hash, err := crypto.GeneratePasswordHash(a.config.Password)
	if err != nil {
		return false, fmt.Errorf("failed to hash admin password: %w", err)
	}

	created, err := a.repo.Create(ctx, &models.AdminUser{
		Username:     a.config.Username,
		Email:        a.config.Email,
		PasswordHash: hash,
		IsSuperuser:  true,
		IsStaff:      true,
	})
	if err != nil {
		return false, err
	}
	if !created {
		// Another process inserted the same username between check and insert.
		_, _ = warning.Fprintln(a.out, "Superuser already exists.")
		return false, nil
	}

	utils.LogInfo("Default admin created", "username", a.config.Username)
	_, _ = success.Fprintln(a.out, "Superuser created.")
	return true, nil
}

// Authenticate checks a username and password against the stored staff accounts
func (a *AdminService) Authenticate(ctx context.Context, username, password string) (*models.AdminUser, error) {
	admin, err := a.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Burn comparable time so unknown usernames are not distinguishable.
			crypto.VerifyPassword(password, dummyHash)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !crypto.VerifyPassword(password, admin.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	if !admin.IsStaff && !admin.IsSuperuser {
		return nil, ErrInvalidCredentials
	}

	if err := a.repo.TouchLastLogin(ctx, admin.ID); err != nil {
		utils.LogWarn("Failed to record admin login", "username", username, "error", err)
	}
	return admin, nil
}

var dummyHash = crypto.HashPassword("not-a-real-password", []byte("0000000000000000"))
