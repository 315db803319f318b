// Package mariadb provides a MariaDB/MySQL attendance backend for
// deployments that already run one. Contract and schema mirror the
// PostgreSQL backend: a UNIQUE(name, att_date) key enforces the
// one-record-per-day invariant in the database.
package mariadb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/kozaktomas/face-attendance/internal/ledger"
)

// AttendanceLedger is the MariaDB attendance store.
type AttendanceLedger struct {
	db *sql.DB
}

// New connects to MariaDB with the given DSN and ensures the attendance
// table exists.
func New(dsn string) (*AttendanceLedger, error) {
	if dsn == "" {
		return nil, errors.New("MariaDB DSN is required")
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	l := &AttendanceLedger{db: db}
	if err := l.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return l, nil
}

// Close closes the database connection.
func (l *AttendanceLedger) Close() error {
	return l.db.Close()
}

func (l *AttendanceLedger) migrate(ctx context.Context) error {
	_, err := l.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS attendance (
			id         BIGINT AUTO_INCREMENT PRIMARY KEY,
			name       VARCHAR(255) NOT NULL,
			att_date   DATE NOT NULL,
			att_time   TIME NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE KEY attendance_name_date (name, att_date)
		)
	`)
	if err != nil {
		return fmt.Errorf("create attendance table: %w", err)
	}
	return nil
}

// Mark records attendance for name, once per calendar day. INSERT IGNORE
// leans on the unique key, so a duplicate mark affects zero rows instead
// of failing.
func (l *AttendanceLedger) Mark(ctx context.Context, name string, now time.Time) (bool, error) {
	if name == "" {
		return false, ledger.ErrEmptyName
	}

	result, err := l.db.ExecContext(ctx, `
		INSERT IGNORE INTO attendance (name, att_date, att_time)
		VALUES (?, ?, ?)
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
		SELECT name, DATE_FORMAT(att_date, '%Y-%m-%d'), TIME_FORMAT(att_time, '%H:%i:%s')
		FROM attendance
		ORDER BY id
	`)
}

// RecordsForDate returns the records for one calendar day.
func (l *AttendanceLedger) RecordsForDate(ctx context.Context, date string) ([]ledger.Record, error) {
	return l.queryRecords(ctx, `
		SELECT name, DATE_FORMAT(att_date, '%Y-%m-%d'), TIME_FORMAT(att_time, '%H:%i:%s')
		FROM attendance
		WHERE att_date = ?
		ORDER BY id
	`, date)
}

func (l *AttendanceLedger) queryRecords(ctx context.Context, query string, args ...any) ([]ledger.Record, error) {
	rows, err := l.db.QueryContext(ctx, query, args...)
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
