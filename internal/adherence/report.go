package adherence

import (
	"encoding/csv"
	"io"
	"strings"
	"time"
)

// ReportRow is one line of the adherence export
type ReportRow struct {
	Name          string
	ScheduledTime string
	Status        Status
	Taken         string
}

var reportHeader = []string{"Medicine", "Scheduled Time", "Status", "Taken"}

// ExportReport lists every entry with its status at now
func (t *Tracker) ExportReport(now time.Time) []ReportRow {
	rows := make([]ReportRow, 0, t.Store.Len())
	for _, e := range t.Store.Entries {
		taken := "No"
		if e.Taken {
			taken = "Yes"
		}
		rows = append(rows, ReportRow{
			Name:          e.Name,
			ScheduledTime: e.ScheduledLabel(),
			Status:        Classify(e, now),
			Taken:         taken,
		})
	}
	return rows
}

// WriteCSV writes rows with a header line
func WriteCSV(w io.Writer, rows []ReportRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(reportHeader); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write([]string{csvCell(r.Name), r.ScheduledTime, r.Status.String(), r.Taken}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// csvCell stops spreadsheets from evaluating user text as a formula
func csvCell(v string) string {
	if v != "" && strings.ContainsRune("=+-@\t\r", rune(v[0])) {
		return "'" + v
	}
	return v
}
