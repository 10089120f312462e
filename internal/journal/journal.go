package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	annerrors "annot/internal/errors"
)

// timeFormat has a fixed width so stored timestamps sort as text.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// Outcome classifies how an operation ended.
type Outcome string

const (
	OutcomeOK        Outcome = "ok"
	OutcomeRejected  Outcome = "rejected"
	OutcomeTransport Outcome = "transport"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeError     Outcome = "error"
)

// OutcomeOf maps an operation error onto an Outcome.
func OutcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeOK
	case annerrors.IsCancelled(err):
		return OutcomeCancelled
	case annerrors.Is(err, annerrors.OracleRejected):
		return OutcomeRejected
	case annerrors.Is(err, annerrors.OracleTransportFailure):
		return OutcomeTransport
	default:
		return OutcomeError
	}
}

// Entry is one recorded operation.
type Entry struct {
	ID       int64         `json:"id"`
	Op       string        `json:"op"`
	File     string        `json:"file,omitempty"`
	Outcome  Outcome       `json:"outcome"`
	Detail   string        `json:"detail,omitempty"`
	Items    int           `json:"items"`
	Duration time.Duration `json:"durationNs"`
	At       time.Time     `json:"at"`
}

// Recorder accepts entries. Implementations must be safe for concurrent use.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
}

// Nop discards entries; used when the journal is disabled.
type Nop struct{}

func (Nop) Record(context.Context, Entry) error { return nil }

// Record appends e. A zero At is stamped with the current time.
func (db *DB) Record(ctx context.Context, e Entry) error {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	return db.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO operations (op, file, outcome, detail, items, duration_ms, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, e.Op, e.File, string(e.Outcome), e.Detail, e.Items, e.Duration.Milliseconds(),
			e.At.UTC().Format(timeFormat))
		if err != nil {
			return fmt.Errorf("failed to record %s: %w", e.Op, err)
		}
		return nil
	})
}

// Recent returns up to limit entries, newest first, optionally restricted to
// one file.
func (db *DB) Recent(ctx context.Context, limit int, file string) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id, op, file, outcome, detail, items, duration_ms, created_at FROM operations`
	args := []interface{}{}
	if file != "" {
		query += ` WHERE file = ?`
		args = append(args, file)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e         Entry
			outcome   string
			durMS     int64
			createdAt string
		)
		if err := rows.Scan(&e.ID, &e.Op, &e.File, &outcome, &e.Detail, &e.Items, &durMS, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan journal row: %w", err)
		}
		e.Outcome = Outcome(outcome)
		e.Duration = time.Duration(durMS) * time.Millisecond
		if e.At, err = time.Parse(timeFormat, createdAt); err != nil {
			return nil, fmt.Errorf("bad timestamp %q in journal: %w", createdAt, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Prune deletes entries older than cutoff and returns how many went.
func (db *DB) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM operations WHERE created_at < ?`,
		cutoff.UTC().Format(timeFormat))
	if err != nil {
		return 0, fmt.Errorf("failed to prune journal: %w", err)
	}
	return res.RowsAffected()
}
