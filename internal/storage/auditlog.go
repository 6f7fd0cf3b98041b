package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mnemo-ai/mnemo/internal/memory"
)

// AuditRecord is one persisted mutation from a consolidation pass.
type AuditRecord struct {
	SourceID     string    `json:"source_id"`
	Action       string    `json:"action"`
	FactID       string    `json:"fact_id"`
	Text         string    `json:"text"`
	PreviousText string    `json:"previous_text,omitempty"`
	At           time.Time `json:"at"`
}

// AuditLog stores consolidation audit records in SQLite.
type AuditLog struct {
	db *sql.DB
}

const auditSchema = `
CREATE TABLE IF NOT EXISTS audit (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	source_id     TEXT NOT NULL,
	action        TEXT NOT NULL,
	fact_id       TEXT NOT NULL,
	text          TEXT NOT NULL,
	previous_text TEXT NOT NULL DEFAULT '',
	at            TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_source_at ON audit(source_id, at);
`

// OpenAuditLog opens (and migrates) the audit database at path.
func OpenAuditLog(path string) (*AuditLog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}
	// SQLite writes serialize; one connection avoids SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(auditSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate audit db: %w", err)
	}
	return &AuditLog{db: db}, nil
}

// Close closes the underlying database.
func (l *AuditLog) Close() error {
	return l.db.Close()
}

// SaveAudit persists one pass's audit list in order.
func (l *AuditLog) SaveAudit(ctx context.Context, sourceID string, entries []memory.AuditEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin audit tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO audit (source_id, action, fact_id, text, previous_text, at) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare audit insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		at := e.At
		if at.IsZero() {
			at = time.Now()
		}
		if _, err := stmt.ExecContext(ctx, sourceID, string(e.Action), e.FactID, e.Text, e.PreviousText, at.UTC()); err != nil {
			return fmt.Errorf("insert audit entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit audit tx: %w", err)
	}
	return nil
}

// Recent returns the newest audit records, newest first. sourceID filters to
// one source when non-empty.
func (l *AuditLog) Recent(ctx context.Context, sourceID string, limit int) ([]AuditRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT source_id, action, fact_id, text, previous_text, at FROM audit`
	args := []any{}
	if sourceID != "" {
		query += ` WHERE source_id = ?`
		args = append(args, sourceID)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit: %w", err)
	}
	defer rows.Close()

	var records []AuditRecord
	for rows.Next() {
		var r AuditRecord
		if err := rows.Scan(&r.SourceID, &r.Action, &r.FactID, &r.Text, &r.PreviousText, &r.At); err != nil {
			return nil, fmt.Errorf("scan audit row: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit rows: %w", err)
	}
	return records, nil
}

var _ memory.AuditSink = (*AuditLog)(nil)
