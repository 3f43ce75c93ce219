package database

import (
	"crypto/sha256"
	"encoding/hex"
)

// Migration is one forward-only schema change. Versions sort lexically.
type Migration struct {
	Version     string
	Description string
	SQL         string
}

// Checksum fingerprints the migration body so edits to applied migrations show up
func (m Migration) Checksum() string {
	sum := sha256.Sum256([]byte(m.SQL))
	return hex.EncodeToString(sum[:])
}

// Migrations is the ordered schema history of the listings database
var Migrations = []Migration{
	{
		Version:     "2025.01.10.001",
		Description: "create properties",
		SQL: `
CREATE TABLE IF NOT EXISTS properties (
    id BIGSERIAL PRIMARY KEY,
    title VARCHAR(200) NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    price NUMERIC(12, 2) NOT NULL CHECK (price >= 0),
    location VARCHAR(200) NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_properties_created_at ON properties(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_properties_title ON properties(title);
`,
	},
	{
		Version:     "2025.01.10.002",
		Description: "create admin_users",
		SQL: `
CREATE TABLE IF NOT EXISTS admin_users (
    id UUID PRIMARY KEY,
    username VARCHAR(150) NOT NULL UNIQUE,
    email VARCHAR(254) NOT NULL DEFAULT '',
    password_hash TEXT NOT NULL,
    is_superuser BOOLEAN NOT NULL DEFAULT false,
    is_staff BOOLEAN NOT NULL DEFAULT false,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    last_login TIMESTAMPTZ
);
`,
	},
	{
		Version:     "2025.01.10.003",
		Description: "maintain properties.updated_at",
		SQL: `
CREATE OR REPLACE FUNCTION update_updated_at_column()
RETURNS TRIGGER AS $$
BEGIN
    NEW.updated_at = NOW();
    RETURN NEW;
END;
$$ language 'plpgsql';

DROP TRIGGER IF EXISTS update_properties_updated_at ON properties;
CREATE TRIGGER update_properties_updated_at BEFORE UPDATE ON properties
    FOR EACH ROW EXECUTE FUNCTION update_updated_at_column();
`,
	},
}

// LatestVersion returns the version of the newest known migration
func LatestVersion() string {
	if len(Migrations) == 0 {
		return ""
	}
	return Migrations[len(Migrations)-1].Version
}
