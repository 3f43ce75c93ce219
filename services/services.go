// Package services holds the listings business logic shared by the HTTP
// server and the management commands.
package services

import (
	"context"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/google/uuid"

	"listings/models"
)

// AdminRepository is the persistence needed for admin accounts
type AdminRepository interface {
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	Create(ctx context.Context, admin *models.AdminUser) (bool, error)
	GetByUsername(ctx context.Context, username string) (*models.AdminUser, error)
	TouchLastLogin(ctx context.Context, id uuid.UUID) error
}

// PropertyRepository is the persistence needed for listings
type PropertyRepository interface {
	List(ctx context.Context) ([]models.Property, error)
	Get(ctx context.Context, id int64) (*models.Property, error)
	FindByTitle(ctx context.Context, title string) (*models.Property, error)
	Count(ctx context.Context) (int, error)
	Create(ctx context.Context, in models.PropertyInput) (*models.Property, error)
	BulkCreate(ctx context.Context, inputs []models.PropertyInput) (int, error)
	Update(ctx context.Context, id int64, in models.PropertyInput) (*models.Property, error)
	Delete(ctx context.Context, id int64) error
}

var (
	success = color.New(color.FgGreen)
	warning = color.New(color.FgYellow)
)

func outOrStdout(out io.Writer) io.Writer {
	if out == nil {
		return os.Stdout
	}
	return out
}
