package db

import (
	"context"
	"path/filepath"
	"testing"
	"testing/fstest"
)

func TestLoadMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"m/001_core.sql":     {Data: []byte("CREATE TABLE a (id INTEGER PRIMARY KEY);")},
		"m/002_clinical.sql": {Data: []byte("CREATE TABLE b (id INTEGER PRIMARY KEY);")},
		"m/003_meals.sql":    {Data: []byte("CREATE TABLE c (id INTEGER PRIMARY KEY);")},
	}

	migrations, err := (&Migrator{}).WithSource(fsys, "m").LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations() error: %v", err)
	}
	if len(migrations) != 3 {
		t.Fatalf("expected 3 migrations, got %d", len(migrations))
	}
	if migrations[0].Version != 1 || migrations[0].Name != "001_core.sql" {
		t.Errorf("unexpected first migration %+v", migrations[0])
	}
	if migrations[0].SQL != "CREATE TABLE a (id INTEGER PRIMARY KEY);" {
		t.Errorf("unexpected SQL content: %s", migrations[0].SQL)
	}
}

func TestLoadMigrations_SortAndSkip(t *testing.T) {
	fsys := fstest.MapFS{
		"m/010_tables.sql":  {Data: []byte("SELECT 10;")},
		"m/002_second.sql":  {Data: []byte("SELECT 2;")},
		"m/001_first.sql":   {Data: []byte("SELECT 1;")},
		"m/readme.sql":      {Data: []byte("-- no version")},
		"m/notes.txt":       {Data: []byte("not sql")},
		"m/abc_invalid.sql": {Data: []byte("-- non-numeric")},
	}

	migrations, err := (&Migrator{}).WithSource(fsys, "m").LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations() error: %v", err)
	}

	want := []int{1, 2, 10}
	if len(migrations) != len(want) {
		t.Fatalf("expected %d migrations, got %d", len(want), len(migrations))
	}
	for i, v := range want {
		if migrations[i].Version != v {
			t.Errorf("migration[%d]: expected version %d, got %d", i, v, migrations[i].Version)
		}
	}
}

func TestLoadMigrations_MissingDir(t *testing.T) {
	if _, err := (&Migrator{}).WithSource(fstest.MapFS{}, "nope").LoadMigrations(); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestBundledMigrations(t *testing.T) {
	for _, dir := range []string{"migrations/postgres", "migrations/sqlite"} {
		migrations, err := (&Migrator{}).WithSource(Migrations, dir).LoadMigrations()
		if err != nil {
			t.Fatalf("%s: %v", dir, err)
		}
		if len(migrations) != 2 {
			t.Errorf("%s: expected 2 migrations, got %d", dir, len(migrations))
		}
	}
}

func TestSQLiteMigrator_UpAndStatus(t *testing.T) {
	ctx := context.Background()
	conn, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer conn.Close()

	m := NewSQLiteMigrator(conn)

	before, err := m.Status(ctx)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	for _, st := range before {
		if st.Applied || st.AppliedAt != nil {
			t.Errorf("migration %d should be pending", st.Version)
		}
	}

	n, err := m.Up(ctx)
	if err != nil {
		t.Fatalf("up: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 applied, got %d", n)
	}

	n, err = m.Up(ctx)
	if err != nil {
		t.Fatalf("second up: %v", err)
	}
	if n != 0 {
		t.Errorf("expected second run to apply nothing, got %d", n)
	}

	after, err := m.Status(ctx)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	for _, st := range after {
		if !st.Applied || st.AppliedAt == nil {
			t.Errorf("migration %d should be applied", st.Version)
		}
	}

	for _, table := range []string{"users", "analysis_results", "audit_events", "meal_logs", "water_logs"} {
		var name string
		err := conn.QueryRowContext(ctx, `SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}
}

func TestSQLiteMigrator_FailedMigrationRollsBack(t *testing.T) {
	ctx := context.Background()
	conn, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "bad.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer conn.Close()

	fsys := fstest.MapFS{
		"m/001_ok.sql":  {Data: []byte("CREATE TABLE ok (id INTEGER PRIMARY KEY);")},
		"m/002_bad.sql": {Data: []byte("CREATE TABLE broken (;")},
	}
	m := NewSQLiteMigrator(conn).WithSource(fsys, "m")

	n, err := m.Up(ctx)
	if err == nil {
		t.Fatal("expected error from invalid migration")
	}
	if n != 1 {
		t.Errorf("expected 1 applied before failure, got %d", n)
	}

	statuses, err := m.Status(ctx)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !statuses[0].Applied || statuses[1].Applied {
		t.Errorf("unexpected statuses %+v", statuses)
	}
}
