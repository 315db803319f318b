package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/kozaktomas/face-attendance/internal/ledger"
)

// AttendanceLedger is the PostgreSQL attendance backend. The per-day
// idempotency invariant is enforced by the UNIQUE(name, att_date)
// constraint: the insert is a transactional upsert, so two concurrent
// markers for the same key cannot both write.
type AttendanceLedger struct {
	pool *Pool
}

// NewAttendanceLedger creates a new PostgreSQL attendance ledger.
func NewAttendanceLedger(pool *Pool) *AttendanceLedger {
	return &AttendanceLedger{pool: pool}
}

// Mark records attendance for name, once per calendar day.
func (l *AttendanceLedger) Mark(ctx context.Context, name string, now time.Time) (bool, error) {
	if name == "" {
		return false, ledger.ErrEmptyName
	}

	result, err := l.pool.Exec(ctx, `
		INSERT INTO attendance (name, att_date, att_time)
		VALUES ($1, $2, $3)
		ON CONFLICT (name, att_date) DO NOTHING
	`, name, now.Format(ledger.DateLayout), now.Format(ledger.TimeLayout))
	if err != nil {
		return false, fmt.Errorf("mark attendance: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark attendance: %w", err)
	}
	return affected == 1, nil
}

// Records returns all attendance records in table order.
func (l *AttendanceLedger) Records(ctx context.Context) ([]ledger.Record, error) {
	return l.queryRecords(ctx, `
		SELECT name, to_char(att_date, 'YYYY-MM-DD'), to_char(att_time, 'HH24:MI:SS')
		FROM attendance
		ORDER BY id
	`)
}

// RecordsForDate returns the records for one calendar day.
func (l *AttendanceLedger) RecordsForDate(ctx context.Context, date string) ([]ledger.Record, error) {
	return l.queryRecords(ctx, `
		SELECT name, to_char(att_date, 'YYYY-MM-DD'), to_char(att_time, 'HH24:MI:SS')
		FROM attendance
		WHERE att_date = $1::date
		ORDER BY id
	`, date)
}

func (l *AttendanceLedger) queryRecords(ctx context.Context, query string, args ...any) ([]ledger.Record, error) {
	rows, err := l.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query attendance: %w", err)
	}
	defer rows.Close()

	var records []ledger.Record
	for rows.Next() {
		var r ledger.Record
		if err := rows.Scan(&r.Name, &r.Date, &r.Time); err != nil {
			return nil, fmt.Errorf("scan attendance record: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance records: %w", err)
	}

	return records, nil
}
