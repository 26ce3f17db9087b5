// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/danielhkuo/planning-poker/cliparse"
)

// Open connects to the database named by the config and verifies the
// connection.
func Open(cfg cliparse.Config) (*sql.DB, error) {
	driver, err := DriverName(cfg.DatabaseType)
	if err != nil {
		return nil, err
	}

	conn, err := sql.Open(driver, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", cfg.DatabaseType, err)
	}

	// SQLite allows one writer; a single connection keeps transactions from
	// failing with "database is locked" under concurrent requests
	if driver == "sqlite" {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", cfg.DatabaseType, err)
	}

	return conn, nil
}

// DriverName maps a configured database type to its database/sql driver
func DriverName(databaseType string) (string, error) {
	switch databaseType {
	case cliparse.DatabasePostgres:
		return "postgres", nil
	case cliparse.DatabaseSQLite, "":
		return "sqlite", nil
	}
	return "", fmt.Errorf("unsupported database type %q", databaseType)
}

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// IsUniqueViolation reports whether err came from a UNIQUE or PRIMARY KEY
// constraint on either supported engine.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "PRIMARY KEY constraint failed")
}

// Statements run one at a time; the DDL is accepted by both PostgreSQL and
// SQLite.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS room (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		scale_type TEXT NOT NULL DEFAULT 'fibonacci',
		revealed BOOLEAN NOT NULL DEFAULT FALSE,
		chart_type TEXT NOT NULL DEFAULT 'pie' CHECK (chart_type IN ('pie', 'bar')),
		admin_id TEXT,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		deleted_at TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS participant (
		room_id TEXT NOT NULL REFERENCES room(id) ON DELETE CASCADE,
		participant_key TEXT NOT NULL,
		name TEXT NOT NULL,
		is_admin BOOLEAN NOT NULL DEFAULT FALSE,
		session_token TEXT NOT NULL,
		user_id TEXT,
		is_connected BOOLEAN NOT NULL DEFAULT FALSE,
		joined_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (room_id, participant_key),
		UNIQUE (room_id, session_token)
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_participant_name ON participant(room_id, LOWER(name))`,

	`CREATE TABLE IF NOT EXISTS vote (
		room_id TEXT NOT NULL,
		participant_key TEXT NOT NULL,
		value TEXT NOT NULL,
		cast_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (room_id, participant_key),
		FOREIGN KEY (room_id, participant_key) REFERENCES participant(room_id, participant_key) ON DELETE CASCADE
	)`,

	`CREATE TABLE IF NOT EXISTS user_room (
		user_id TEXT NOT NULL,
		room_id TEXT NOT NULL REFERENCES room(id) ON DELETE CASCADE,
		role TEXT NOT NULL DEFAULT 'participant' CHECK (role IN ('admin', 'participant')),
		linked_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (user_id, room_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_user_room_user ON user_room(user_id)`,
}
