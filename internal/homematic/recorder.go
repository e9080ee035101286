package homematic

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"
)

// Recorder passively records device descriptions and parameter events seen
// from the CCU, building a catalogue of raw parameters over time. The data
// is for authoring new device descriptors offline; nothing in the running
// engine reads it back.
//
// Thread Safety: All methods are safe for concurrent use.
type Recorder struct {
	db     *sql.DB
	logger Logger

	// Prepared statements for upserts (created once, reused)
	deviceUpsertStmt *sql.Stmt
	eventUpsertStmt  *sql.Stmt
	stmtMu           sync.Mutex

	// Shutdown coordination
	closed bool
	mu     sync.RWMutex
}

// NewRecorder creates a recorder on top of an open database.
func NewRecorder(db *sql.DB) *Recorder {
	return &Recorder{db: db}
}

// SetLogger sets the logger for the recorder.
func (r *Recorder) SetLogger(logger Logger) {
	r.logger = logger
}

// Start creates the schema if needed and prepares the upsert statements.
// Must be called before RecordDevice/RecordEvent.
func (r *Recorder) Start() error {
	r.stmtMu.Lock()
	defer r.stmtMu.Unlock()

	if r.deviceUpsertStmt != nil {
		return nil // Already started
	}

	if _, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS hm_devices (
			address     TEXT PRIMARY KEY,
			device_type TEXT NOT NULL,
			firmware    TEXT NOT NULL DEFAULT '',
			first_seen  INTEGER NOT NULL,
			last_seen   INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS hm_parameters (
			address     TEXT NOT NULL,
			channel     INTEGER NOT NULL,
			parameter   TEXT NOT NULL,
			last_value  TEXT NOT NULL DEFAULT '',
			event_count INTEGER NOT NULL DEFAULT 0,
			last_seen   INTEGER NOT NULL,
			PRIMARY KEY (address, channel, parameter)
		);
	`); err != nil {
		return fmt.Errorf("creating recorder schema: %w", err)
	}

	deviceStmt, err := r.db.Prepare(`
		INSERT INTO hm_devices (address, device_type, firmware, first_seen, last_seen)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(address) DO UPDATE SET
			device_type = excluded.device_type,
			firmware = excluded.firmware,
			last_seen = excluded.last_seen
	`)
	if err != nil {
		return fmt.Errorf("preparing device upsert statement: %w", err)
	}

	eventStmt, err := r.db.Prepare(`
		INSERT INTO hm_parameters (address, channel, parameter, last_value, event_count, last_seen)
		VALUES (?, ?, ?, ?, 1, ?)
		ON CONFLICT(address, channel, parameter) DO UPDATE SET
			last_value = excluded.last_value,
			event_count = event_count + 1,
			last_seen = excluded.last_seen
	`)
	if err != nil {
		deviceStmt.Close() //nolint:errcheck // cleanup on error path
		return fmt.Errorf("preparing event upsert statement: %w", err)
	}

	r.deviceUpsertStmt = deviceStmt
	r.eventUpsertStmt = eventStmt
	r.log("recorder started")
	return nil
}

// Stop closes the recorder and releases resources.
func (r *Recorder) Stop() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	r.stmtMu.Lock()
	defer r.stmtMu.Unlock()

	if r.deviceUpsertStmt != nil {
		r.deviceUpsertStmt.Close() //nolint:errcheck // shutdown path
		r.deviceUpsertStmt = nil
	}
	if r.eventUpsertStmt != nil {
		r.eventUpsertStmt.Close() //nolint:errcheck // shutdown path
		r.eventUpsertStmt = nil
	}

	r.log("recorder stopped")
}

// RecordDevice records one physical device from a CCU device list.
// Channel descriptions (PARENT set) are skipped; the parent carries the
// model.
func (r *Recorder) RecordDevice(desc DeviceDescription) {
	if desc.Parent != "" || desc.Address == "" || desc.Type == "" {
		return
	}

	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return
	}
	r.mu.RUnlock()

	r.stmtMu.Lock()
	stmt := r.deviceUpsertStmt
	r.stmtMu.Unlock()

	if stmt == nil {
		return // Not started
	}

	now := time.Now().Unix()
	if _, err := stmt.Exec(desc.Address, desc.Type, desc.Firmware, now, now); err != nil {
		r.logError("recording device", err)
	}
}

// RecordEvent records one raw parameter event.
func (r *Recorder) RecordEvent(address string, channel int, parameter string, value any) {
	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return
	}
	r.mu.RUnlock()

	r.stmtMu.Lock()
	stmt := r.eventUpsertStmt
	r.stmtMu.Unlock()

	if stmt == nil {
		return // Not started
	}

	now := time.Now().Unix()
	if _, err := stmt.Exec(address, channel, parameter, fmt.Sprintf("%v", value), now); err != nil {
		r.logError("recording event", err)
	}
}

// DeviceCount returns the number of recorded devices.
func (r *Recorder) DeviceCount(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM hm_devices`).Scan(&count)
	return count, err
}

// ParameterCount returns the number of distinct (address, channel,
// parameter) tuples seen.
func (r *Recorder) ParameterCount(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM hm_parameters`).Scan(&count)
	return count, err
}

// log logs an info message if logger is set.
func (r *Recorder) log(msg string, keysAndValues ...any) {
	if r.logger != nil {
		r.logger.Info(msg, keysAndValues...)
	}
}

// logError logs an error if logger is set.
func (r *Recorder) logError(msg string, err error) {
	if r.logger != nil {
		r.logger.Error(msg, "error", err)
	}
}
