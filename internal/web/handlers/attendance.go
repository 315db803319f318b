package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/kozaktomas/face-attendance/internal/ledger"
)

// AttendanceHandler exposes the attendance table.
type AttendanceHandler struct {
	ledger ledger.Ledger
}

// NewAttendanceHandler creates a new attendance handler.
func NewAttendanceHandler(l ledger.Ledger) *AttendanceHandler {
	return &AttendanceHandler{ledger: l}
}

// List returns attendance records, optionally filtered with ?date=YYYY-MM-DD.
func (h *AttendanceHandler) List(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")

	var (
		records []ledger.Record
		err     error
	)
	if date != "" {
		if _, parseErr := time.Parse(ledger.DateLayout, date); parseErr != nil {
			respondError(w, http.StatusBadRequest, "date must be formatted as YYYY-MM-DD")
			return
		}
		records, err = h.ledger.RecordsForDate(r.Context(), date)
	} else {
		records, err = h.ledger.Records(r.Context())
	}
	if err != nil {
		log.Printf("Reading attendance records failed: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to read attendance records")
		return
	}

	if records == nil {
		records = []ledger.Record{}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"count":   len(records),
		"records": records,
	})
}
