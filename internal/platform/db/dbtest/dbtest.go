// Package dbtest opens throwaway SQLite databases with the bundled schema
// applied, for repository tests.
package dbtest

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/medassist/medassist/internal/platform/db"
)

// Open returns a migrated database in t.TempDir, closed on cleanup.
func Open(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	conn, err := db.OpenSQLite(ctx, filepath.Join(t.TempDir(), "medassist.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if _, err := db.NewSQLiteMigrator(conn).Up(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

// InsertUser adds a users row so owner foreign keys resolve.
func InsertUser(t *testing.T, conn *sql.DB, username string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := conn.Exec(`INSERT INTO users (id, username, full_name, role, created_at) VALUES (?, ?, ?, 'patient', ?)`,
		id, username, username, time.Now().UTC())
	if err != nil {
		t.Fatalf("insert user %s: %v", username, err)
	}
	return id
}
