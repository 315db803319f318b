// Package ledger records attendance events, at most one per identity per
// calendar day. The durable table is the source of truth; every backend
// guarantees the (name, date) uniqueness invariant on its own.
package ledger

import (
	"context"
	"errors"
	"time"
)

// DateLayout is the calendar date format used in the durable table.
const DateLayout = "2006-01-02"

// TimeLayout is the time-of-day format used in the durable table.
const TimeLayout = "15:04:05"

// ErrEmptyName is returned when marking attendance without a name.
var ErrEmptyName = errors.New("attendance name is empty")

// Record is one attendance event. Appended once, immutable thereafter.
type Record struct {
	Name string `json:"name"`
	Date string `json:"date"`
	Time string `json:"time"`
}

// Ledger is the durable, per-day-idempotent attendance store.
type Ledger interface {
	// Mark records attendance for name at the given instant. Returns true
	// if a new record was written, false if the identity was already
	// marked for that calendar day. A storage failure returns false and
	// the error; no partial write is left behind.
	Mark(ctx context.Context, name string, now time.Time) (bool, error)

	// Records returns all attendance records in table order.
	Records(ctx context.Context) ([]Record, error)

	// RecordsForDate returns the records for one calendar day.
	RecordsForDate(ctx context.Context, date string) ([]Record, error)
}

// NewRecord builds a record for name at the given instant.
func NewRecord(name string, now time.Time) Record {
	return Record{
		Name: name,
		Date: now.Format(DateLayout),
		Time: now.Format(TimeLayout),
	}
}
