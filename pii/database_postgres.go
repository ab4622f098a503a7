package pii

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"

	_ "github.com/lib/pq"
)

// PostgresLoggingDB implements LoggingDB for PostgreSQL
type PostgresLoggingDB struct {
	db         *sql.DB
	maxEntries int
	debugMode  bool
}

// NewPostgresLoggingDB creates a new PostgreSQL audit log
func NewPostgresLoggingDB(ctx context.Context, config DatabaseConfig) (*PostgresLoggingDB, error) {
	connStr := postgresConnString(config)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	// Configure connection pool
	if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		db.SetMaxIdleConns(config.MaxIdleConns)
	}
	if config.MaxLifetime > 0 {
		db.SetConnMaxLifetime(config.MaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := createPostgresTables(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &PostgresLoggingDB{db: db, maxEntries: config.maxEntries()}, nil
}

func postgresConnString(config DatabaseConfig) string {
	sslMode := config.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.Username, config.Password, config.Database, sslMode)
}

func createPostgresTables(ctx context.Context, db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS audit_logs (
			seq BIGSERIAL PRIMARY KEY,
			id UUID NOT NULL UNIQUE,
			request_id TEXT,
			timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			operation VARCHAR(32) NOT NULL,
			language VARCHAR(16) NOT NULL,
			text_length INTEGER NOT NULL DEFAULT 0,
			duration_ms BIGINT NOT NULL DEFAULT 0,
			entities JSONB NOT NULL DEFAULT '{}'::jsonb,
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
func (p *PostgresLoggingDB) InsertLog(ctx context.Context, entry AuditEntry) error {
	if p.debugMode {
		log.Printf("[PostgresDB] InsertLog: operation=%s entities=%d", entry.Operation, entry.EntityCount())
	}

	entitiesJSON, err := marshalEntityCounts(entry.Entities)
	if err != nil {
		return err
	}

	query := `
	INSERT INTO audit_logs (id, request_id, timestamp, operation, language, text_length, duration_ms, entities, entity_count)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = p.db.ExecContext(ctx, query,
		entry.ID, entry.RequestID, entry.Timestamp.UTC(), entry.Operation, entry.Language,
		entry.TextLength, entry.DurationMS, entitiesJSON, entry.EntityCount())
	if err != nil {
		return fmt.Errorf("failed to insert log: %w", err)
	}

	prune := `DELETE FROM audit_logs WHERE seq <= (SELECT seq FROM audit_logs ORDER BY seq DESC OFFSET $1 LIMIT 1)`
	if _, err := p.db.ExecContext(ctx, prune, p.maxEntries); err != nil {
		log.Printf("[PostgresDB] Warning: failed to prune audit log: %v", err)
	}

	return nil
}

// GetLogs retrieves audit entries, newest first
func (p *PostgresLoggingDB) GetLogs(ctx context.Context, limit int, offset int) ([]AuditEntry, error) {
	query := `
	SELECT id, request_id, timestamp, operation, language, text_length, duration_ms, entities
	FROM audit_logs
	ORDER BY seq DESC
	LIMIT $1 OFFSET $2
	`

	rows, err := p.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query logs: %w", err)
	}
	defer rows.Close()

	logs := []AuditEntry{}
	for rows.Next() {
		var (
			entry        AuditEntry
			requestID    sql.NullString
			entitiesJSON []byte
		)
		if err := rows.Scan(&entry.ID, &requestID, &entry.Timestamp, &entry.Operation, &entry.Language,
			&entry.TextLength, &entry.DurationMS, &entitiesJSON); err != nil {
			return nil, fmt.Errorf("failed to scan log row: %w", err)
		}
		entry.RequestID = requestID.String
		if err := json.Unmarshal(entitiesJSON, &entry.Entities); err != nil {
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
func (p *PostgresLoggingDB) GetLogsCount(ctx context.Context) (int, error) {
	var count int
	if err := p.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_logs`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to get logs count: %w", err)
	}
	return count, nil
}

// ClearLogs removes all audit entries
func (p *PostgresLoggingDB) ClearLogs(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, `TRUNCATE audit_logs`); err != nil {
		return fmt.Errorf("failed to clear logs: %w", err)
	}
	log.Println("[PostgresDB] All audit logs cleared")
	return nil
}

// SetDebugMode enables or disables debug logging
func (p *PostgresLoggingDB) SetDebugMode(enabled bool) {
	p.debugMode = enabled
}

// Close closes the database connection
func (p *PostgresLoggingDB) Close() error {
	return p.db.Close()
}
