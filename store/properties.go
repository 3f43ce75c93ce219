package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"listings/database"
	"listings/models"
)

const propertyColumns = "id, title, description, price, location, created_at, updated_at"

// PropertyStore persists listings in the properties table
type PropertyStore struct {
	db database.Database
}

// NewPropertyStore creates a PropertyStore over db
func NewPropertyStore(db database.Database) *PropertyStore {
	return &PropertyStore{db: db}
}

func scanProperty(row pgx.Row) (*models.Property, error) {
	var p models.Property
	if err := row.Scan(&p.ID, &p.Title, &p.Description, &p.Price, &p.Location, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// List returns every listing, newest first
func (s *PropertyStore) List(ctx context.Context) ([]models.Property, error) {
	rows, err := s.db.Query(ctx,
		"SELECT "+propertyColumns+" FROM properties ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to list properties: %w", err)
	}
	defer rows.Close()

	properties := make([]models.Property, 0)
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan property: %w", err)
		}
		properties = append(properties, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list properties: %w", err)
	}
	return properties, nil
}

// Get returns the listing with the given id
func (s *PropertyStore) Get(ctx context.Context, id int64) (*models.Property, error) {
	p, err := scanProperty(s.db.QueryRow(ctx,
		"SELECT "+propertyColumns+" FROM properties WHERE id = $1", id))
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("property %d", id))
	}
	return p, nil
}

// FindByTitle returns the oldest listing carrying exactly this title
func (s *PropertyStore) FindByTitle(ctx context.Context, title string) (*models.Property, error) {
	p, err := scanProperty(s.db.QueryRow(ctx,
		"SELECT "+propertyColumns+" FROM properties WHERE title = $1 ORDER BY id LIMIT 1", title))
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("property %q", title))
	}
	return p, nil
}

// Count returns the number of listings
func (s *PropertyStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRow(ctx, "SELECT COUNT(*) FROM properties").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count properties: %w", err)
	}
	return count, nil
}

// Create inserts one listing and returns it with its generated fields
func (s *PropertyStore) Create(ctx context.Context, in models.PropertyInput) (*models.Property, error) {
	p, err := scanProperty(s.db.QueryRow(ctx,
		`INSERT INTO properties (title, description, price, location)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+propertyColumns,
		in.Title, in.Description, in.Price, in.Location))
	if err != nil {
		return nil, fmt.Errorf("failed to create property: %w", err)
	}
	return p, nil
}

// BulkCreate inserts all inputs in a single statement and returns the number of rows written
func (s *PropertyStore) BulkCreate(ctx context.Context, inputs []models.PropertyInput) (int, error) {
	if len(inputs) == 0 {
		return 0, nil
	}

	values := make([]string, 0, len(inputs))
	args := make([]interface{}, 0, len(inputs)*4)
	for i, in := range inputs {
		n := i * 4
		values = append(values, fmt.Sprintf("($%d, $%d, $%d, $%d)", n+1, n+2, n+3, n+4))
		args = append(args, in.Title, in.Description, in.Price, in.Location)
	}

	tag, err := s.db.Exec(ctx,
		"INSERT INTO properties (title, description, price, location) VALUES "+strings.Join(values, ", "),
		args...)
	if err != nil {
		return 0, fmt.Errorf("failed to bulk insert properties: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// Update overwrites the writable fields of a listing
func (s *PropertyStore) Update(ctx context.Context, id int64, in models.PropertyInput) (*models.Property, error) {
	p, err := scanProperty(s.db.QueryRow(ctx,
		`UPDATE properties SET title = $2, description = $3, price = $4, location = $5
		 WHERE id = $1
		 RETURNING `+propertyColumns,
		id, in.Title, in.Description, in.Price, in.Location))
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("property %d", id))
	}
	return p, nil
}

// Delete removes a listing
func (s *PropertyStore) Delete(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, "DELETE FROM properties WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete property %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("property %d: %w", id, ErrNotFound)
	}
	return nil
}
