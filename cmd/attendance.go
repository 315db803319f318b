package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/ledger"
)

var attendanceCmd = &cobra.Command{
	Use:   "attendance",
	Short: "List attendance records",
	Long: `List attendance records from the attendance table.

Without --date, every record is listed. One record exists per person
per day, stamped with the time of the first sighting.

Examples:
  face-attendance attendance
  face-attendance attendance --date 2026-08-31
  face-attendance attendance --json`,
	RunE: runAttendance,
}

func init() {
	rootCmd.AddCommand(attendanceCmd)

	attendanceCmd.Flags().String("date", "", "Only records for this date (YYYY-MM-DD)")
	attendanceCmd.Flags().Bool("json", false, "Output as JSON")
}

func runAttendance(cmd *cobra.Command, args []string) error {
	date := mustGetString(cmd, "date")
	asJSON := mustGetBool(cmd, "json")

	if date != "" {
		if _, err := time.Parse(ledger.DateLayout, date); err != nil {
			return fmt.Errorf("invalid date %q, expected YYYY-MM-DD", date)
		}
	}

	ctx := context.Background()
	s, err := buildStack(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	var records []ledger.Record
	if date != "" {
		records, err = s.ledger.RecordsForDate(ctx, date)
	} else {
		records, err = s.ledger.Records(ctx)
	}
	if err != nil {
		return fmt.Errorf("reading attendance table: %w", err)
	}

	if asJSON {
		if records == nil {
			records = []ledger.Record{}
		}
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(records)
	}

	if len(records) == 0 {
		fmt.Println("No attendance records")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tDATE\tTIME")
	for _, record := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\n", record.Name, record.Date, record.Time)
	}
	return w.Flush()
}
