package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// Migration is one schema step
type Migration struct {
	Version     int
	Description string
	Up          string
	Down        string
}

// Logger receives migration progress
type Logger interface {
	Infof(format string, args ...any)
}

// GetMigrations returns the schema migrations in order
func GetMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create animations table",
			Up: `
				CREATE TABLE IF NOT EXISTS animations (
					id BIGSERIAL PRIMARY KEY,
					title TEXT NOT NULL,
					year INTEGER NOT NULL,
					season TEXT NOT NULL,
					version INTEGER NOT NULL DEFAULT 0,
					genres TEXT[] NOT NULL,
					created_at TIMESTAMP(0) WITH TIME ZONE NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP(0) WITH TIME ZONE NOT NULL DEFAULT NOW()
				);
			`,
			Down: `DROP TABLE IF EXISTS animations;`,
		},
		{
			Version:     2,
			Description: "Add animations check constraints",
			Up: `
				ALTER TABLE animations ADD CONSTRAINT animations_season_check
					CHECK (season IN ('Autumn', 'Summer', 'Winter', 'Spring'));
				ALTER TABLE animations ADD CONSTRAINT animations_year_check
					CHECK (year BETWEEN 1900 AND date_part('year', now()));
				ALTER TABLE animations ADD CONSTRAINT genres_length_check
					CHECK (array_length(genres, 1) BETWEEN 1 AND 10);
			`,
			Down: `
				ALTER TABLE animations DROP CONSTRAINT IF EXISTS animations_season_check;
				ALTER TABLE animations DROP CONSTRAINT IF EXISTS animations_year_check;
				ALTER TABLE animations DROP CONSTRAINT IF EXISTS genres_length_check;
			`,
		},
		{
			Version:     3,
			Description: "Add animations search indexes",
			Up: `
				CREATE INDEX IF NOT EXISTS animations_title_idx ON animations USING GIN (to_tsvector('simple', title));
				CREATE INDEX IF NOT EXISTS animations_genres_idx ON animations USING GIN (genres);
			`,
			Down: `
				DROP INDEX IF EXISTS animations_title_idx;
				DROP INDEX IF EXISTS animations_genres_idx;
			`,
		},
		{
			Version:     4,
			Description: "Create users table",
			Up: `
				CREATE TABLE IF NOT EXISTS users (
					id BIGSERIAL PRIMARY KEY,
					name TEXT NOT NULL,
					email TEXT UNIQUE NOT NULL,
					password_hash TEXT NOT NULL,
					activated BOOL NOT NULL DEFAULT false,
					version INTEGER NOT NULL DEFAULT 0,
					created_at TIMESTAMP(0) WITH TIME ZONE NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP(0) WITH TIME ZONE NOT NULL DEFAULT NOW()
				);
			`,
			Down: `DROP TABLE IF EXISTS users;`,
		},
		{
			Version:     5,
			Description: "Create tokens table",
			Up: `
				CREATE TABLE IF NOT EXISTS tokens (
					hash TEXT PRIMARY KEY,
					user_id BIGINT NOT NULL REFERENCES users ON DELETE CASCADE,
					expiry TIMESTAMP(0) WITH TIME ZONE NOT NULL,
					scope TEXT NOT NULL
				);
			`,
			Down: `DROP TABLE IF EXISTS tokens;`,
		},
		{
			Version:     6,
			Description: "Create permissions tables",
			Up: `
				CREATE TABLE IF NOT EXISTS permissions (
					id BIGSERIAL PRIMARY KEY,
					code TEXT NOT NULL UNIQUE
				);

				CREATE TABLE IF NOT EXISTS permissions_users (
					permission_id BIGINT NOT NULL REFERENCES permissions ON DELETE CASCADE,
					user_id BIGINT NOT NULL REFERENCES users ON DELETE CASCADE,
					PRIMARY KEY (permission_id, user_id)
				);

				INSERT INTO permissions (code)
				VALUES ('animations/read'), ('animations/write')
				ON CONFLICT (code) DO NOTHING;
			`,
			Down: `
				DROP TABLE IF EXISTS permissions_users;
				DROP TABLE IF EXISTS permissions;
			`,
		},
	}
}

// RunMigrations executes all pending migrations
func RunMigrations(ctx context.Context, db *sql.DB, log Logger) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INT PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := appliedVersions(ctx, db)
	if err != nil {
		return err
	}

	for _, migration := range GetMigrations() {
		if applied[migration.Version] {
			continue
		}

		log.Infof("Running migration %d: %s", migration.Version, migration.Description)

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to start transaction: %w", err)
		}

		if _, err := tx.ExecContext(ctx, migration.Up); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to execute migration %d: %w", migration.Version, err)
		}

		if _, err := tx.ExecContext(ctx,
			"INSERT INTO schema_migrations (version, description) VALUES ($1, $2)",
			migration.Version, migration.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}

// RollbackMigration reverts one applied migration
func RollbackMigration(ctx context.Context, db *sql.DB, version int, log Logger) error {
	var target *Migration
	for _, m := range GetMigrations() {
		if m.Version == version {
			target = &m
			break
		}
	}
	if target == nil {
		return fmt.Errorf("unknown migration version %d", version)
	}

	log.Infof("Rolling back migration %d: %s", target.Version, target.Description)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}

	if _, err := tx.ExecContext(ctx, target.Down); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to roll back migration %d: %w", version, err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM schema_migrations WHERE version = $1", version); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to unrecord migration %d: %w", version, err)
	}

	return tx.Commit()
}

func appliedVersions(ctx context.Context, db *sql.DB) (map[int]bool, error) {
	rows, err := db.QueryContext(ctx, "SELECT version FROM schema_migrations ORDER BY version")
	if err != nil {
		return nil, fmt.Errorf("failed to query migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("failed to scan migration version: %w", err)
		}
		applied[version] = true
	}
	return applied, rows.Err()
}
