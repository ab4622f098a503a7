package pii

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Audit log drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Memory retention constants
const (
	// DefaultMaxLogEntries is the default maximum number of audit entries to retain
	DefaultMaxLogEntries = 5000
)

const sqliteTimeLayout = "2006-01-02 15:04:05.000000"

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path         string // Path to SQLite database file
	Host         string
	Port         int
	Database     string
	Username     string
	Password     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
	MaxEntries   int // retention limit; 0 means DefaultMaxLogEntries
}

func (c DatabaseConfig) maxEntries() int {
	if c.MaxEntries > 0 {
		return c.MaxEntries
	}
	return DefaultMaxLogEntries
}

// AuditEntry records one analyze or sanitize call. It never holds the
// analyzed text or entity values, only their shape.
type AuditEntry struct {
	ID         string         `json:"id"`
	RequestID  string         `json:"request_id,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
	Operation  string         `json:"operation"`
	Language   string         `json:"language"`
	TextLength int            `json:"text_length"`
	DurationMS int64          `json:"duration_ms"`
	Entities   map[string]int `json:"entities"`
}

// EntityCount returns the total number of entities in the entry
func (e AuditEntry) EntityCount() int {
	n := 0
	for _, c := range e.Entities {
		n += c
	}
	return n
}

// NewAuditEntry builds an audit entry from analysis results
func NewAuditEntry(requestID, operation, language string, textLength int, results []Result, duration time.Duration) AuditEntry {
	counts := make(map[string]int)
	for _, r := range results {
		counts[r.Type]++
	}
	return AuditEntry{
		ID:         uuid.NewString(),
		RequestID:  requestID,
		Timestamp:  time.Now().UTC(),
		Operation:  operation,
		Language:   language,
		TextLength: textLength,
		DurationMS: duration.Milliseconds(),
		Entities:   counts,
	}
}

// LoggingDB defines the interface for audit logging operations
type LoggingDB interface {
	// InsertLog inserts an audit entry
	InsertLog(ctx context.Context, entry AuditEntry) error

	// GetLogs retrieves audit entries, newest first
	GetLogs(ctx context.Context, limit int, offset int) ([]AuditEntry, error)

	// GetLogsCount returns the total number of audit entries
	GetLogsCount(ctx context.Context) (int, error)

	// ClearLogs removes all audit entries
	ClearLogs(ctx context.Context) error

	// SetDebugMode enables or disables debug logging
	SetDebugMode(enabled bool)

	// Close closes the database connection
	Close() error
}

// OpenLoggingDB opens the audit log for the given driver. When the database
// cannot be opened it falls back to in-memory storage and returns the
// original error alongside so the caller can report it.
func OpenLoggingDB(ctx context.Context, driver string, config DatabaseConfig) (LoggingDB, error) {
	var (
		db  LoggingDB
		err error
	)
	switch driver {
	case DriverSQLite, "":
		db, err = NewSQLiteLoggingDB(ctx, config)
	case DriverPostgres:
		db, err = NewPostgresLoggingDB(ctx, config)
	case DriverMemory:
		log.Println("[AuditLog] Using in-memory audit log")
		return NewInMemoryLoggingDB(config.maxEntries()), nil
	default:
		err = fmt.Errorf("unknown audit log driver: %s", driver)
	}
	if err != nil {
		log.Printf("[AuditLog] ⚠️  Failed to open %s audit log: %v", driver, err)
		log.Printf("[AuditLog] Falling back to in-memory audit log...")
		return NewInMemoryLoggingDB(config.maxEntries()), err
	}
	log.Printf("[AuditLog] ✅ %s audit log enabled", driver)
	return db, nil
}

// SQLiteLoggingDB implements LoggingDB for SQLite
type SQLiteLoggingDB struct {
	db         *sql.DB
	maxEntries int
	debugMode  bool
}

// NewSQLiteLoggingDB creates a new SQLite audit log
func NewSQLiteLoggingDB(ctx context.Context, config DatabaseConfig) (*SQLiteLoggingDB, error) {
	dbPath := config.Path
	if dbPath == "" {
		dbPath = "audit.db"
	}

	// Ensure the directory exists
	dir := filepath.Dir(dbPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	// SQLite works best with a single writer connection
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := createSQLiteTables(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &SQLiteLoggingDB{db: db, maxEntries: config.maxEntries()}, nil
}

// createSQLiteTables creates the required tables if they don't exist
func createSQLiteTables(ctx context.Context, db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS audit_logs (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			request_id TEXT,
			timestamp TEXT NOT NULL,
			operation TEXT NOT NULL,
			language TEXT NOT NULL,
			text_length INTEGER NOT NULL DEFAULT 0,
			duration_ms INTEGER NOT NULL DEFAULT 0,
			entities TEXT NOT NULL DEFAULT '{}',
			entity_count INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_logs_timestamp ON audit_logs(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_logs_operation ON audit_logs(operation)`,
	}

	for _, query := range queries {
		if _, err := db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute: %s: %w", query, err)
		}
	}

	return nil
}

// InsertLog inserts an audit entry and prunes entries beyond the retention limit
func (s *SQLiteLoggingDB) InsertLog(ctx context.Context, entry AuditEntry) error {
	if s.debugMode {
		log.Printf("[SQLiteDB] InsertLog: operation=%s entities=%d", entry.Operation, entry.EntityCount())
	}

	entitiesJSON, err := marshalEntityCounts(entry.Entities)
	if err != nil {
		return err
	}

	query := `
	INSERT INTO audit_logs (id, request_id, timestamp, operation, language, text_length, duration_ms, entities, entity_count)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query,
		entry.ID, entry.RequestID, entry.Timestamp.UTC().Format(sqliteTimeLayout),
		entry.Operation, entry.Language, entry.TextLength, entry.DurationMS,
		entitiesJSON, entry.EntityCount())
	if err != nil {
		return fmt.Errorf("failed to insert log: %w", err)
	}

	prune := `DELETE FROM audit_logs WHERE seq NOT IN (SELECT seq FROM audit_logs ORDER BY seq DESC LIMIT ?)`
	if _, err := s.db.ExecContext(ctx, prune, s.maxEntries); err != nil {
		log.Printf("[SQLiteDB] Warning: failed to prune audit log: %v", err)
	}

	return nil
}

// GetLogs retrieves audit entries from the database, newest first
func (s *SQLiteLoggingDB) GetLogs(ctx context.Context, limit int, offset int) ([]AuditEntry, error) {
	query := `
	SELECT id, request_id, timestamp, operation, language, text_length, duration_ms, entities
	FROM audit_logs
	ORDER BY seq DESC
	LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query logs: %w", err)
	}
	defer rows.Close()

	logs := []AuditEntry{}
	for rows.Next() {
		var (
			entry        AuditEntry
			requestID    sql.NullString
			timestamp    string
			entitiesJSON string
		)
		if err := rows.Scan(&entry.ID, &requestID, &timestamp, &entry.Operation, &entry.Language,
			&entry.TextLength, &entry.DurationMS, &entitiesJSON); err != nil {
			return nil, fmt.Errorf("failed to scan log row: %w", err)
		}
		entry.RequestID = requestID.String
		entry.Timestamp, _ = time.Parse(sqliteTimeLayout, timestamp)
		if err := json.Unmarshal([]byte(entitiesJSON), &entry.Entities); err != nil {
			return nil, fmt.Errorf("failed to unmarshal entity counts: %w", err)
		}
		logs = append(logs, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating log rows: %w", err)
	}

	return logs, nil
}

// GetLogsCount returns the total number of audit entries
func (s *SQLiteLoggingDB) GetLogsCount(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_logs`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get logs count: %w", err)
	}
	return count, nil
}

// ClearLogs removes all audit entries from the database
func (s *SQLiteLoggingDB) ClearLogs(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM audit_logs`); err != nil {
		return fmt.Errorf("failed to clear logs: %w", err)
	}
	log.Println("[SQLiteDB] All audit logs cleared")
	return nil
}

// SetDebugMode enables or disables debug logging
func (s *SQLiteLoggingDB) SetDebugMode(enabled bool) {
	s.debugMode = enabled
}

// Close closes the database connection
func (s *SQLiteLoggingDB) Close() error {
	return s.db.Close()
}

// marshalEntityCounts encodes entity counts with sorted keys
func marshalEntityCounts(counts map[string]int) (string, error) {
	if counts == nil {
		counts = map[string]int{}
	}
	data, err := json.Marshal(counts)
	if err != nil {
		return "", fmt.Errorf("failed to marshal entity counts: %w", err)
	}
	return string(data), nil
}

