package store

import (
	"context"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL,
		auth_provider TEXT,
		provider_subject TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE (auth_provider, provider_subject)
	)`,
	`CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		color TEXT NOT NULL DEFAULT '#6366f1',
		archived INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		title TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT 'other',
		project_id TEXT REFERENCES projects(id) ON DELETE SET NULL,
		notes TEXT NOT NULL DEFAULT '',
		planned_start TEXT,
		planned_duration INTEGER,
		archived INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS time_entries (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		task_id TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
		task_title TEXT NOT NULL,
		started_at TEXT NOT NULL,
		ended_at TEXT,
		duration_seconds INTEGER NOT NULL DEFAULT 0,
		notes TEXT NOT NULL DEFAULT '',
		breaks TEXT NOT NULL DEFAULT '[]',
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_time_entries_user_started ON time_entries(user_id, started_at)`,
	`CREATE TABLE IF NOT EXISTS moments (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		description TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT 'general',
		timestamp TEXT NOT NULL,
		task_id TEXT REFERENCES tasks(id) ON DELETE SET NULL,
		task_title TEXT NOT NULL DEFAULT '',
		is_milestone INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_moments_user_timestamp ON moments(user_id, timestamp)`,
	`CREATE TABLE IF NOT EXISTS habits (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		daily_target INTEGER NOT NULL DEFAULT 0,
		weekly_target INTEGER NOT NULL DEFAULT 0,
		monthly_target INTEGER NOT NULL DEFAULT 0,
		daily_count INTEGER NOT NULL DEFAULT 0,
		weekly_count INTEGER NOT NULL DEFAULT 0,
		monthly_count INTEGER NOT NULL DEFAULT 0,
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS prime_items (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		prime_timestamps TEXT NOT NULL DEFAULT '[]',
		last_primed_at TEXT,
		archived INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_prime_items_last_primed ON prime_items(user_id, last_primed_at)`,
	`CREATE TABLE IF NOT EXISTS review_items (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		review_timestamps TEXT NOT NULL DEFAULT '[]',
		first_studied_at TEXT,
		archived INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	)`,
}

// Migrate creates any missing tables and indexes.
func (s *SQLStore) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
