package handlers

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/face"
	"github.com/kozaktomas/face-attendance/internal/ledger"
)

// fakeExtractor returns preset detections for any frame.
type fakeExtractor struct {
	dim        int
	detections []face.Detection
	err        error
}

func (e *fakeExtractor) Dim() int { return e.dim }

func (e *fakeExtractor) Detect(ctx context.Context, data []byte) ([]face.Detection, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.detections, nil
}

// memoryLedger is an in-memory ledger for handler tests.
type memoryLedger struct {
	mu      sync.Mutex
	records []ledger.Record

	MarkError error
}

func (l *memoryLedger) Mark(ctx context.Context, name string, now time.Time) (bool, error) {
	if l.MarkError != nil {
		return false, l.MarkError
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	date := now.Format(ledger.DateLayout)
	for _, r := range l.records {
		if r.Name == name && r.Date == date {
			return false, nil
		}
	}
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

// testJPEG encodes a small valid JPEG frame.
func testJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 120, 120))
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// multipartRequest builds a multipart POST with an image under "file" and
// optional extra form fields.
func multipartRequest(t *testing.T, path string, frame []byte, fields map[string]string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", "frame.jpg")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write(frame); err != nil {
		t.Fatal(err)
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatal(err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}
