package recognizer

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/face"
	"github.com/kozaktomas/face-attendance/internal/gallery"
	"github.com/kozaktomas/face-attendance/internal/ledger"
)

// memoryLedger is an in-memory ledger with error injection for tests.
type memoryLedger struct {
	mu      sync.Mutex
	marked  map[string]map[string]struct{} // date -> names
	records []ledger.Record

	MarkError error
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{marked: make(map[string]map[string]struct{})}
}

func (l *memoryLedger) Mark(ctx context.Context, name string, now time.Time) (bool, error) {
	if l.MarkError != nil {
		return false, l.MarkError
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	date := now.Format(ledger.DateLayout)
	if l.marked[date] == nil {
		l.marked[date] = make(map[string]struct{})
	}
	if _, ok := l.marked[date][name]; ok {
		return false, nil
	}
	l.marked[date][name] = struct{}{}
	l.records = append(l.records, ledger.NewRecord(name, now))
	return true, nil
}

func (l *memoryLedger) Records(ctx context.Context) ([]ledger.Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]ledger.Record(nil), l.records...), nil
}

func (l *memoryLedger) RecordsForDate(ctx context.Context, date string) ([]ledger.Record, error) {
	all, _ := l.Records(ctx)
	var out []ledger.Record
	for _, r := range all {
		if r.Date == date {
			out = append(out, r)
		}
	}
	return out, nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func testGallery(t *testing.T, identities map[string][]float32) *gallery.Gallery {
	t.Helper()
	var dim int
	for _, emb := range identities {
		dim = len(emb)
		break
	}
	g := gallery.New(dim, nil)
	for name, emb := range identities {
		if err := g.Enroll(context.Background(), name, nil, emb, false); err != nil {
			t.Fatalf("Enroll(%s) failed: %v", name, err)
		}
	}
	return g
}

func TestProcessAcceptAndMark(t *testing.T) {
	ctx := context.Background()
	g := testGallery(t, map[string][]float32{"alice": {1, 0, 0}})
	l := newMemoryLedger()

	c := New(g, l, DefaultThreshold)
	c.Now = fixedClock(time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC))

	outcomes := c.Process(ctx, []face.Detection{
		{Region: face.Region{X1: 10, Y1: 10, X2: 50, Y2: 50}, Embedding: []float32{1, 0, 0}},
	})

	if len(outcomes) != 1 {
		t.Fatalf("expected 1 outcome, got %d", len(outcomes))
	}
	o := outcomes[0]
	if o.Decision != Accepted {
		t.Fatalf("expected Accepted, got %s", o.Decision)
	}
	if o.Name != "alice" {
		t.Errorf("expected alice, got %s", o.Name)
	}
	if o.Distance != 0 {
		t.Errorf("expected zero distance, got %v", o.Distance)
	}
	if !o.Marked {
		t.Error("first recognition of the day must mark attendance")
	}
	if math.Abs(o.Confidence()-100) > 0.0001 {
		t.Errorf("expected 100%% confidence, got %v", o.Confidence())
	}

	records, _ := l.Records(ctx)
	if len(records) != 1 {
		t.Fatalf("expected one ledger record, got %d", len(records))
	}
}

func TestProcessSecondSightingSameDay(t *testing.T) {
	ctx := context.Background()
	g := testGallery(t, map[string][]float32{"alice": {1, 0, 0}})
	l := newMemoryLedger()

	c := New(g, l, DefaultThreshold)
	c.Now = fixedClock(time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC))

	detections := []face.Detection{{Embedding: []float32{1, 0, 0}}}
	c.Process(ctx, detections)
	outcomes := c.Process(ctx, detections)

	o := outcomes[0]
	if o.Decision != Accepted {
		t.Errorf("still a correct recognition, got %s", o.Decision)
	}
	if o.Marked {
		t.Error("second sighting must not mark again")
	}

	records, _ := l.Records(ctx)
	if len(records) != 1 {
		t.Errorf("ledger must still hold one record, got %d", len(records))
	}
}

func TestProcessThresholdBoundary(t *testing.T) {
	ctx := context.Background()
	g := testGallery(t, map[string][]float32{"alice": {0}})
	l := newMemoryLedger()
	c := New(g, l, 0.6)

	tests := []struct {
		name     string
		query    []float32
		expected Decision
	}{
		{name: "exactly at threshold is rejected", query: []float32{0.6}, expected: Rejected},
		{name: "just below threshold is accepted", query: []float32{0.6 - 1e-4}, expected: Accepted},
		{name: "far away is rejected", query: []float32{10}, expected: Rejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcomes := c.Process(ctx, []face.Detection{{Embedding: tt.query}})
			if outcomes[0].Decision != tt.expected {
				t.Errorf("decision = %s, want %s (distance %v)",
					outcomes[0].Decision, tt.expected, outcomes[0].Distance)
			}
		})
	}
}

func TestProcessEmptyGallery(t *testing.T) {
	g := gallery.New(3, nil)
	l := newMemoryLedger()
	c := New(g, l, DefaultThreshold)

	outcomes := c.Process(context.Background(), []face.Detection{
		{Embedding: []float32{1, 2, 3}},
		{Embedding: []float32{4, 5, 6}},
	})

	for i, o := range outcomes {
		if o.Decision != NoGallery {
			t.Errorf("detection %d: expected NoGallery, got %s", i, o.Decision)
		}
	}

	records, _ := l.Records(context.Background())
	if len(records) != 0 {
		t.Errorf("ledger must stay empty, got %d records", len(records))
	}
}

func TestProcessLedgerFailureDoesNotStopPipeline(t *testing.T) {
	ctx := context.Background()
	g := testGallery(t, map[string][]float32{"alice": {0}, "bob": {10}})
	l := newMemoryLedger()
	l.MarkError = errors.New("storage unavailable")

	c := New(g, l, DefaultThreshold)
	outcomes := c.Process(ctx, []face.Detection{
		{Embedding: []float32{0}},
		{Embedding: []float32{10}},
	})

	if len(outcomes) != 2 {
		t.Fatalf("expected both detections processed, got %d", len(outcomes))
	}
	for i, o := range outcomes {
		if o.Decision != Accepted {
			t.Errorf("detection %d: expected Accepted, got %s", i, o.Decision)
		}
		if o.Marked {
			t.Errorf("detection %d: mark must fail closed", i)
		}
		if o.Err == nil {
			t.Errorf("detection %d: expected ledger error surfaced", i)
		}
	}
}

func TestProcessDateRollover(t *testing.T) {
	ctx := context.Background()
	g := testGallery(t, map[string][]float32{"alice": {0}})
	l := newMemoryLedger()
	c := New(g, l, DefaultThreshold)

	detections := []face.Detection{{Embedding: []float32{0}}}

	c.Now = fixedClock(time.Date(2026, 8, 31, 23, 59, 0, 0, time.UTC))
	day1 := c.Process(ctx, detections)

	c.Now = fixedClock(time.Date(2026, 9, 1, 0, 1, 0, 0, time.UTC))
	day2 := c.Process(ctx, detections)

	if !day1[0].Marked || !day2[0].Marked {
		t.Errorf("expected both days marked, got %v and %v", day1[0].Marked, day2[0].Marked)
	}

	records, _ := l.Records(ctx)
	if len(records) != 2 {
		t.Errorf("expected two records across the rollover, got %d", len(records))
	}
}

func TestNewDefaultThreshold(t *testing.T) {
	c := New(gallery.New(1, nil), newMemoryLedger(), 0)
	if c.Threshold() != DefaultThreshold {
		t.Errorf("expected fallback to %v, got %v", DefaultThreshold, c.Threshold())
	}
}
