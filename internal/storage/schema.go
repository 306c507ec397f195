package storage

import (
	"context"
	"fmt"

	"github.com/HardikTIET/MUJ-RAGBOT/internal/models"
	"github.com/HardikTIET/MUJ-RAGBOT/internal/util"
)

// EnsureSchema creates the tables on startup so a fresh database works
// without a separate migration step. Also seeds the bootstrap admin
// account when the users table is empty.
func EnsureSchema(ctx context.Context, db *DB) error {
	ddl := `
CREATE TABLE IF NOT EXISTS users (
  id BIGSERIAL PRIMARY KEY,
  username TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL CHECK (role IN ('admin','student')),
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS processed_documents (
  id BIGSERIAL PRIMARY KEY,
  filename TEXT NOT NULL UNIQUE,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS feedback (
  id BIGSERIAL PRIMARY KEY,
  ts TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  username TEXT NOT NULL,
  query TEXT NOT NULL,
  response TEXT NOT NULL,
  verdict SMALLINT NOT NULL CHECK (verdict IN (-1, 1))
);

CREATE INDEX IF NOT EXISTS idx_feedback_ts ON feedback(ts DESC);
`
	if _, err := db.Pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	var count int
	if err := db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if count == 0 {
		_, err := db.Pool.Exec(ctx,
			`INSERT INTO users (username, password_hash, role) VALUES ($1, $2, $3) ON CONFLICT (username) DO NOTHING`,
			"admin", util.HashPassword("admin"), models.RoleAdmin,
		)
		if err != nil {
			return fmt.Errorf("seed admin user: %w", err)
		}
	}
	return nil
}
