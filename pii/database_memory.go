package pii

import (
	"context"
	"log"
	"sync"
)

// InMemoryLoggingDB implements LoggingDB for in-memory storage (fallback).
// Entries are kept oldest first and trimmed to maxEntries.
type InMemoryLoggingDB struct {
	mu         sync.RWMutex
	entries    []AuditEntry
	maxEntries int
	debugMode  bool
}

// NewInMemoryLoggingDB creates a new in-memory audit log
func NewInMemoryLoggingDB(maxEntries int) *InMemoryLoggingDB {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxLogEntries
	}
	return &InMemoryLoggingDB{maxEntries: maxEntries}
}

// InsertLog stores an audit entry in memory
func (m *InMemoryLoggingDB) InsertLog(ctx context.Context, entry AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.debugMode {
		log.Printf("[MemoryDB] InsertLog: operation=%s entities=%d", entry.Operation, entry.EntityCount())
	}

	m.entries = append(m.entries, entry)
	if over := len(m.entries) - m.maxEntries; over > 0 {
		m.entries = append([]AuditEntry(nil), m.entries[over:]...)
	}
	return nil
}

// GetLogs returns audit entries, newest first
func (m *InMemoryLoggingDB) GetLogs(ctx context.Context, limit int, offset int) ([]AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	logs := []AuditEntry{}
	if offset < 0 {
		offset = 0
	}
	for i := len(m.entries) - 1 - offset; i >= 0 && len(logs) < limit; i-- {
		logs = append(logs, m.entries[i])
	}
	return logs, nil
}

// GetLogsCount returns the number of stored entries
func (m *InMemoryLoggingDB) GetLogsCount(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries), nil
}

// ClearLogs removes all entries
func (m *InMemoryLoggingDB) ClearLogs(ctx context.Context) error {
	m.mu.Lock()
	m.entries = nil
	m.mu.Unlock()
	return nil
}

// SetDebugMode enables or disables debug logging
func (m *InMemoryLoggingDB) SetDebugMode(enabled bool) {
	m.mu.Lock()
	m.debugMode = enabled
	m.mu.Unlock()
}

// Close is a no-op for in-memory storage
func (m *InMemoryLoggingDB) Close() error {
	return nil
}
