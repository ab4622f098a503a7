package pii

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	detectors "github.com/hannes/pii-sanitizer/pii/detectors"
)

// newTestDB creates a temporary SQLite audit log for testing.
// The database file is automatically cleaned up when the test finishes.
func newTestDB(t *testing.T, maxEntries int) *SQLiteLoggingDB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := NewSQLiteLoggingDB(context.Background(), DatabaseConfig{Path: dbPath, MaxEntries: maxEntries})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testEntry(i int) AuditEntry {
	results := []Result{
		{Type: detectors.EntityPerson},
		{Type: detectors.EntityEmail},
		{Type: detectors.EntityEmail},
	}
	return NewAuditEntry(fmt.Sprintf("req-%d", i), "sanitize", "en", 40+i, results, 12*time.Millisecond)
}

// backends runs a test against every LoggingDB implementation
func backends(t *testing.T, maxEntries int, fn func(t *testing.T, db LoggingDB)) {
	t.Run("sqlite", func(t *testing.T) { fn(t, newTestDB(t, maxEntries)) })
	t.Run("memory", func(t *testing.T) { fn(t, NewInMemoryLoggingDB(maxEntries)) })
}

func TestNewAuditEntry(t *testing.T) {
	entry := testEntry(1)

	if entry.ID == "" || entry.Timestamp.IsZero() {
		t.Errorf("Expected ID and timestamp to be set: %+v", entry)
	}
	if entry.Entities[detectors.EntityEmail] != 2 || entry.Entities[detectors.EntityPerson] != 1 {
		t.Errorf("Unexpected entity counts: %v", entry.Entities)
	}
	if entry.EntityCount() != 3 || entry.DurationMS != 12 {
		t.Errorf("Unexpected count or duration: %d %d", entry.EntityCount(), entry.DurationMS)
	}

	data, err := json.Marshal(entry)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "original_text") || strings.Contains(string(data), `"text"`) {
		t.Errorf("Audit entries must not carry text: %s", data)
	}
}

func TestLoggingDB_InsertAndGet(t *testing.T) {
	backends(t, 0, func(t *testing.T, db LoggingDB) {
		ctx := context.Background()
		for i := 0; i < 3; i++ {
			if err := db.InsertLog(ctx, testEntry(i)); err != nil {
				t.Fatalf("InsertLog failed: %v", err)
			}
		}

		count, err := db.GetLogsCount(ctx)
		if err != nil || count != 3 {
			t.Fatalf("Expected 3 entries, got %d (%v)", count, err)
		}

		logs, err := db.GetLogs(ctx, 2, 0)
		if err != nil {
			t.Fatalf("GetLogs failed: %v", err)
		}
		if len(logs) != 2 || logs[0].RequestID != "req-2" || logs[1].RequestID != "req-1" {
			t.Fatalf("Expected newest first, got %+v", logs)
		}

		first := logs[0]
		if first.Operation != "sanitize" || first.Language != "en" || first.TextLength != 42 || first.DurationMS != 12 {
			t.Errorf("Unexpected entry: %+v", first)
		}
		if first.Entities[detectors.EntityEmail] != 2 {
			t.Errorf("Expected entity counts to round trip, got %v", first.Entities)
		}

		logs, err = db.GetLogs(ctx, 10, 2)
		if err != nil {
			t.Fatal(err)
		}
		if len(logs) != 1 || logs[0].RequestID != "req-0" {
			t.Errorf("Expected the oldest entry at offset 2, got %+v", logs)
		}
	})
}

func TestLoggingDB_EmptyResultIsNotNil(t *testing.T) {
	backends(t, 0, func(t *testing.T, db LoggingDB) {
		logs, err := db.GetLogs(context.Background(), 10, 0)
		if err != nil {
			t.Fatal(err)
		}
		if logs == nil || len(logs) != 0 {
			t.Errorf("Expected an empty, non-nil slice, got %#v", logs)
		}
	})
}

func TestLoggingDB_Retention(t *testing.T) {
	backends(t, 3, func(t *testing.T, db LoggingDB) {
		ctx := context.Background()
		for i := 0; i < 5; i++ {
			if err := db.InsertLog(ctx, testEntry(i)); err != nil {
				t.Fatalf("InsertLog failed: %v", err)
			}
		}

		count, _ := db.GetLogsCount(ctx)
		if count != 3 {
			t.Errorf("Expected retention to keep 3 entries, got %d", count)
		}
		logs, _ := db.GetLogs(ctx, 10, 0)
		if len(logs) != 3 || logs[0].RequestID != "req-4" || logs[2].RequestID != "req-2" {
			t.Errorf("Expected the three newest entries, got %+v", logs)
		}
	})
}

func TestLoggingDB_ClearLogs(t *testing.T) {
	backends(t, 0, func(t *testing.T, db LoggingDB) {
		ctx := context.Background()
		db.SetDebugMode(true)
		_ = db.InsertLog(ctx, testEntry(1))

		if err := db.ClearLogs(ctx); err != nil {
			t.Fatalf("ClearLogs failed: %v", err)
		}
		if count, _ := db.GetLogsCount(ctx); count != 0 {
			t.Errorf("Expected no entries after clear, got %d", count)
		}
	})
}

func TestSQLiteLoggingDB_TimestampRoundTrip(t *testing.T) {
	db := newTestDB(t, 0)
	entry := testEntry(1)
	if err := db.InsertLog(context.Background(), entry); err != nil {
		t.Fatal(err)
	}

	logs, err := db.GetLogs(context.Background(), 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !logs[0].Timestamp.Equal(entry.Timestamp.Truncate(time.Microsecond)) {
		t.Errorf("Expected timestamp %v, got %v", entry.Timestamp, logs[0].Timestamp)
	}
	if logs[0].ID != entry.ID {
		t.Errorf("Expected ID %s, got %s", entry.ID, logs[0].ID)
	}
}

func TestNewSQLiteLoggingDB_CreatesDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "sub", "dir", "audit.db")
	db, err := NewSQLiteLoggingDB(context.Background(), DatabaseConfig{Path: dbPath})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("expected database file to be created in nested directory")
	}
}

func TestOpenLoggingDB(t *testing.T) {
	ctx := context.Background()

	t.Run("sqlite", func(t *testing.T) {
		db, err := OpenLoggingDB(ctx, DriverSQLite, DatabaseConfig{Path: filepath.Join(t.TempDir(), "a.db")})
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		defer db.Close()
		if _, ok := db.(*SQLiteLoggingDB); !ok {
			t.Errorf("Expected a SQLite audit log, got %T", db)
		}
	})

	t.Run("memory", func(t *testing.T) {
		db, err := OpenLoggingDB(ctx, DriverMemory, DatabaseConfig{})
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if _, ok := db.(*InMemoryLoggingDB); !ok {
			t.Errorf("Expected an in-memory audit log, got %T", db)
		}
	})

	t.Run("unknown driver falls back to memory", func(t *testing.T) {
		db, err := OpenLoggingDB(ctx, "mysql", DatabaseConfig{})
		if err == nil {
			t.Error("Expected the open error to be reported")
		}
		if _, ok := db.(*InMemoryLoggingDB); !ok {
			t.Errorf("Expected an in-memory fallback, got %T", db)
		}
	})

	t.Run("unusable sqlite path falls back to memory", func(t *testing.T) {
		blocker := filepath.Join(t.TempDir(), "file")
		if err := os.WriteFile(blocker, nil, 0600); err != nil {
			t.Fatal(err)
		}
		db, err := OpenLoggingDB(ctx, DriverSQLite, DatabaseConfig{Path: filepath.Join(blocker, "audit.db")})
		if err == nil {
			t.Error("Expected an error for a path below a regular file")
		}
		if _, ok := db.(*InMemoryLoggingDB); !ok {
			t.Errorf("Expected an in-memory fallback, got %T", db)
		}
	})
}

func TestPostgresConnString(t *testing.T) {
	got := postgresConnString(DatabaseConfig{
		Host:     "db",
		Port:     5432,
		Database: "audit",
		Username: "svc",
		Password: "pw",
	})
	want := "host=db port=5432 user=svc password=pw dbname=audit sslmode=disable"
	if got != want {
		t.Errorf("Expected '%s', got '%s'", want, got)
	}
}
