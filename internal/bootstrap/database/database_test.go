package database

import (
	"context"
	"path/filepath"
	"testing"

	"faulttriage/internal/bootstrap/config"
)

func TestSQLiteDSNAppendsPragmas(t *testing.T) {
	got := SQLiteDSN("var/app.sqlite")
	want := "var/app.sqlite?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	if got != want {
		t.Fatalf("SQLiteDSN() = %q, want %q", got, want)
	}

	got = SQLiteDSN("file:app.sqlite?cache=shared")
	want = "file:app.sqlite?cache=shared&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	if got != want {
		t.Fatalf("SQLiteDSN() = %q, want %q", got, want)
	}

	custom := "app.sqlite?_pragma=journal_mode(WAL)"
	if got := SQLiteDSN(custom); got != custom {
		t.Fatalf("SQLiteDSN() rewrote custom pragmas: %q", got)
	}
}

func TestOpenCreatesSQLiteDirectory(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "nested", "dir", "faults.sqlite")
	db, err := Open(context.Background(), config.DatabaseConfig{Driver: "sqlite", DSN: dsn})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := sqlDB.Ping(); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), config.DatabaseConfig{Driver: "mysql", DSN: "x"}); err == nil {
		t.Fatalf("Open() expected error for unsupported driver")
	}
}
