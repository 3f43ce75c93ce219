package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"listings/utils"
)

// migrationLockID keys the session advisory lock held while migrating
const migrationLockID int64 = 0x6c697374696e6773 // "listings"

const createMigrationsTable = `
CREATE TABLE IF NOT EXISTS _migrations (
	id SERIAL PRIMARY KEY,
	version TEXT UNIQUE NOT NULL,
	applied_at TIMESTAMPTZ DEFAULT NOW(),
	checksum TEXT
)`

// Migrate applies every pending migration. Concurrent migrators are serialised
// by an advisory lock on a dedicated connection. It returns the versions applied.
func Migrate(ctx context.Context, pool *pgxpool.Pool) ([]string, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire migration connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", migrationLockID); err != nil {
		return nil, fmt.Errorf("failed to take migration lock: %w", err)
	}
	defer func() {
		// The lock must be released even when ctx is already cancelled.
		unlockCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := conn.Exec(unlockCtx, "SELECT pg_advisory_unlock($1)", migrationLockID); err != nil {
			utils.LogWarn("Failed to release migration lock", "error", err)
		}
	}()

	return ApplyMigrations(ctx, conn, Migrations)
}

// ApplyMigrations runs the given migrations that are not yet recorded in
// _migrations, each in its own transaction, in slice order.
func ApplyMigrations(ctx context.Context, db Database, migrations []Migration) ([]string, error) {
	if _, err := db.Exec(ctx, createMigrationsTable); err != nil {
		return nil, fmt.Errorf("failed to create migration table: %w", err)
	}

	applied, err := appliedMigrations(ctx, db)
	if err != nil {
		return nil, err
	}

	var ran []string
	for _, m := range migrations {
		if checksum, ok := applied[m.Version]; ok {
			if checksum != "" && checksum != m.Checksum() {
				utils.LogWarn("Applied migration differs from its current definition",
					"version", m.Version, "description", m.Description)
			}
			continue
		}

		start := time.Now()
		if err := applyOne(ctx, db, m); err != nil {
			return ran, err
		}
		utils.LogInfo("Applied migration", "version", m.Version, "description", m.Description,
			"duration", time.Since(start))
		ran = append(ran, m.Version)
	}

	if len(ran) == 0 {
		utils.LogInfo("Database schema is up to date", "version", LatestVersion())
	}
	return ran, nil
}

func appliedMigrations(ctx context.Context, db Database) (map[string]string, error) {
	rows, err := db.Query(ctx, "SELECT version, COALESCE(checksum, '') FROM _migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to read applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]string)
	for rows.Next() {
		var version, checksum string
		if err := rows.Scan(&version, &checksum); err != nil {
			return nil, fmt.Errorf("failed to scan migration row: %w", err)
		}
		applied[version] = checksum
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read applied migrations: %w", err)
	}
	return applied, nil
}

func applyOne(ctx context.Context, db Database, m Migration) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin migration %s: %w", m.Version, err)
	}
	defer func() {
		_ = tx.Rollback(ctx) // Rollback is safe to call even if tx was committed
	}()

	if _, err := tx.Exec(ctx, m.SQL); err != nil {
		return fmt.Errorf("migration %s (%s) failed: %w", m.Version, m.Description, err)
	}
	if _, err := tx.Exec(ctx,
		"INSERT INTO _migrations (version, checksum) VALUES ($1, $2) ON CONFLICT (version) DO NOTHING",
		m.Version, m.Checksum()); err != nil {
		return fmt.Errorf("failed to record migration %s: %w", m.Version, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit migration %s: %w", m.Version, err)
	}
	return nil
}

// SchemaUpToDate reports whether the newest known migration has been applied.
// A missing _migrations table counts as not up to date.
func SchemaUpToDate(ctx context.Context, db Database) (bool, error) {
	latest := LatestVersion()
	if latest == "" {
		return true, nil
	}

	var tracked bool
	if err := db.QueryRow(ctx, "SELECT to_regclass('_migrations') IS NOT NULL").Scan(&tracked); err != nil {
		return false, fmt.Errorf("failed to check schema version: %w", err)
	}
	if !tracked {
		return false, nil
	}

	var applied bool
	if err := db.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM _migrations WHERE version = $1)", latest).Scan(&applied); err != nil {
		return false, fmt.Errorf("failed to check schema version: %w", err)
	}
	return applied, nil
}
