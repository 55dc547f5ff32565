// Package ledger keeps an append-only history of commands sent to devices.
package ledger

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dokzlo13/lumictl/internal/device"
)

// Entry is one recorded device command.
type Entry struct {
	ID        int64           `json:"id"`
	Endpoint  string          `json:"endpoint"`
	Command   json.RawMessage `json:"command"`
	Response  json.RawMessage `json:"response,omitempty"`
	Success   bool            `json:"success"`
	Duration  time.Duration   `json:"duration"`
	Timestamp time.Time       `json:"timestamp"`
}

// Ledger appends and queries device command history.
type Ledger struct {
	db *sql.DB
}

// New creates a new Ledger using the provided database connection
func New(db *sql.DB) *Ledger {
	return &Ledger{db: db}
}

// Record appends the outcome of one command.
func (l *Ledger) Record(endpoint string, result device.Result) error {
	return l.record(endpoint, result, time.Now())
}

func (l *Ledger) record(endpoint string, result device.Result, at time.Time) error {
	cmd, err := json.Marshal(result.Command)
	if err != nil {
		return fmt.Errorf("failed to marshal command: %w", err)
	}
	resp, err := json.Marshal(result.Response)
	if err != nil {
		return fmt.Errorf("failed to marshal response: %w", err)
	}

	_, err = l.db.Exec(
		`INSERT INTO device_ledger (endpoint, command, response, success, duration_ms, timestamp) VALUES (?, ?, ?, ?, ?, ?)`,
		endpoint, string(cmd), string(resp), result.Success, result.Duration.Milliseconds(), at.UTC().UnixMilli(),
	)
	return err
}

// Recent returns the newest entries first. An empty endpoint matches all devices.
func (l *Ledger) Recent(endpoint string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := l.db.Query(`
		SELECT id, endpoint, command, response, success, duration_ms, timestamp
		FROM device_ledger
		WHERE ? = '' OR endpoint = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, endpoint, endpoint, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEntries(rows)
}

// DeleteOlderThan removes entries older than the specified duration (retention policy)
func (l *Ledger) DeleteOlderThan(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention).UnixMilli()
	result, err := l.db.Exec(`DELETE FROM device_ledger WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var entry Entry
		var cmd string
		var resp sql.NullString
		var durationMs, timestamp int64

		if err := rows.Scan(&entry.ID, &entry.Endpoint, &cmd, &resp, &entry.Success, &durationMs, &timestamp); err != nil {
			return nil, err
		}

		entry.Command = json.RawMessage(cmd)
		if resp.Valid && resp.String != "" {
			entry.Response = json.RawMessage(resp.String)
		}
		entry.Duration = time.Duration(durationMs) * time.Millisecond
		entry.Timestamp = time.UnixMilli(timestamp).UTC()
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}
