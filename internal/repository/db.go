package repository

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Dialect names a database/sql driver the repository knows how to migrate.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite3"
)

// ParseDialect validates a driver name from configuration.
func ParseDialect(name string) (Dialect, error) {
	switch Dialect(name) {
	case Postgres, SQLite:
		return Dialect(name), nil
	default:
		return "", fmt.Errorf("unsupported database driver %q (want postgres or sqlite3)", name)
	}
}

// Open connects to the database and checks it is reachable.
func Open(ctx context.Context, dialect Dialect, dsn string) (*sql.DB, error) {
	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, err
	}
	if dialect == SQLite {
		// One connection serializes writers; SQLite would otherwise report "database is locked".
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

var schema = map[Dialect][]string{
	Postgres: {
		`CREATE TABLE IF NOT EXISTS users (
			user_id         BIGINT PRIMARY KEY,
			username        TEXT NOT NULL DEFAULT '',
			total_points    INTEGER NOT NULL DEFAULT 0,
			completed_tasks INTEGER NOT NULL DEFAULT 0,
			created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			timezone        TEXT NOT NULL DEFAULT 'Europe/Moscow'
		)`,
		`CREATE TABLE IF NOT EXISTS tasks (
			task_id           BIGSERIAL PRIMARY KEY,
			user_id           BIGINT NOT NULL REFERENCES users (user_id),
			task_name         TEXT NOT NULL,
			deadline_date     TEXT NOT NULL,
			deadline_time     TEXT NOT NULL DEFAULT '23:59',
			is_completed      BOOLEAN NOT NULL DEFAULT FALSE,
			points_awarded    BOOLEAN NOT NULL DEFAULT FALSE,
			created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			last_notification TIMESTAMPTZ
		)`,
	},
	SQLite: {
		`CREATE TABLE IF NOT EXISTS users (
			user_id         INTEGER PRIMARY KEY,
			username        TEXT NOT NULL DEFAULT '',
			total_points    INTEGER NOT NULL DEFAULT 0,
			completed_tasks INTEGER NOT NULL DEFAULT 0,
			created_at      TIMESTAMP NOT NULL,
			timezone        TEXT NOT NULL DEFAULT 'Europe/Moscow'
		)`,
		`CREATE TABLE IF NOT EXISTS tasks (
			task_id           INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id           INTEGER NOT NULL REFERENCES users (user_id),
			task_name         TEXT NOT NULL,
			deadline_date     TEXT NOT NULL,
			deadline_time     TEXT NOT NULL DEFAULT '23:59',
			is_completed      BOOLEAN NOT NULL DEFAULT FALSE,
			points_awarded    BOOLEAN NOT NULL DEFAULT FALSE,
			created_at        TIMESTAMP NOT NULL,
			last_notification TIMESTAMP
		)`,
	},
}

var indexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_tasks_user_active ON tasks (user_id, is_completed)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_active_deadline ON tasks (is_completed, deadline_date, deadline_time)`,
}

// Migrate creates the tables and indexes if they do not exist.
func (r *Repository) Migrate(ctx context.Context) error {
	stmts, ok := schema[r.dialect]
	if !ok {
		return fmt.Errorf("no schema for dialect %q", r.dialect)
	}
	stmts = append(append([]string{}, stmts...), indexes...)
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
