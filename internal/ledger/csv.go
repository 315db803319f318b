package ledger

import (
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

var csvHeader = []string{"Name", "Date", "Time"}

// CSVLedger stores attendance records in a single CSV file with a
// Name,Date,Time header. Appending rewrites the whole table through a
// temporary file so a failed write never leaves the table truncated.
//
// The check-then-act sequence in Mark (read table, decide, write table) is
// serialized by an in-process mutex; without it two concurrent callers could
// both observe "not marked" and both write.
type CSVLedger struct {
	path string

	mu sync.Mutex
	// Same-day cache, keyed by name. Only suppresses repeated "already
	// marked" log lines; the file stays authoritative for the decision.
	seenDate string
	seen     map[string]struct{}
}

// NewCSV opens the attendance table at path, creating it with a header row
// when missing.
func NewCSV(path string) (*CSVLedger, error) {
	l := &CSVLedger{
		path: path,
		seen: make(map[string]struct{}),
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create attendance directory: %w", err)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := l.writeAll(nil); err != nil {
			return nil, fmt.Errorf("initialize attendance table: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("stat attendance table: %w", err)
	}

	return l, nil
}

// Path returns the attendance table location.
func (l *CSVLedger) Path() string {
	return l.path
}

// Mark records attendance for name, once per calendar day.
func (l *CSVLedger) Mark(ctx context.Context, name string, now time.Time) (bool, error) {
	if name == "" {
		return false, ErrEmptyName
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	date := now.Format(DateLayout)
	if l.seenDate != date {
		// Date rollover: yesterday's cache entries are stale.
		l.seenDate = date
		l.seen = make(map[string]struct{})
	}

	records, err := l.readAll()
	if err != nil {
		return false, fmt.Errorf("read attendance table: %w", err)
	}

	for _, r := range records {
		if r.Name == name && r.Date == date {
			if _, logged := l.seen[name]; !logged {
				log.Printf("%s already marked for %s", name, date)
				l.seen[name] = struct{}{}
			}
			return false, nil
		}
	}

	records = append(records, NewRecord(name, now))
	if err := l.writeAll(records); err != nil {
		return false, fmt.Errorf("write attendance table: %w", err)
	}

	l.seen[name] = struct{}{}
	return true, nil
}

// Records returns all attendance records in table order.
func (l *CSVLedger) Records(ctx context.Context) ([]Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	records, err := l.readAll()
	if err != nil {
		return nil, fmt.Errorf("read attendance table: %w", err)
	}
	return records, nil
}

// RecordsForDate returns the records for one calendar day.
func (l *CSVLedger) RecordsForDate(ctx context.Context, date string) ([]Record, error) {
	all, err := l.Records(ctx)
	if err != nil {
		return nil, err
	}

	var records []Record
	for _, r := range all {
		if r.Date == date {
			records = append(records, r)
		}
	}
	return records, nil
}

// readAll parses the whole table. Callers must hold the mutex.
func (l *CSVLedger) readAll() ([]Record, error) {
	f, err := os.Open(l.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = len(csvHeader)

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("malformed table: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("malformed table: missing header")
	}

	records := make([]Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		records = append(records, Record{Name: row[0], Date: row[1], Time: row[2]})
	}
	return records, nil
}

// writeAll rewrites the full table atomically: write to a temp file in the
// same directory, then rename over the table. Callers must hold the mutex
// (or be the constructor, before the ledger is shared).
func (l *CSVLedger) writeAll(records []Record) error {
	dir := filepath.Dir(l.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(l.path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	writer := csv.NewWriter(tmp)
	if err := writer.Write(csvHeader); err != nil {
		tmp.Close()
		return err
	}
	for _, r := range records {
		if err := writer.Write([]string{r.Name, r.Date, r.Time}); err != nil {
			tmp.Close()
			return err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		tmp.Close()
		return err
	}

	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), l.path)
}
