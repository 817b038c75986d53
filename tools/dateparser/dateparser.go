package dateparser

import (
	"fmt"
	"time"
)

// DisplayFormat is the DD/MM/YYYY layout used on fiches and in PDFs.
const DisplayFormat = "02/01/2006"

// CompactFormat is the YYYYMMDD layout used in generated filenames.
const CompactFormat = "20060102"

// ParseFicheDate attempts to parse a fiche date with multiple formats
func ParseFicheDate(dateStr string) (time.Time, error) {
	formats := []string{
		"02/01/2006",          // DD/MM/YYYY
		"2006-01-02",          // ISO date (REST payloads)
		"02/01/2006 15:04:05", // DD/MM/YYYY HH:mm:ss
		time.RFC3339,          // Standard RFC3339
	}

	var lastErr error
	for _, format := range formats {
		t, err := time.Parse(format, dateStr)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}

	return time.Time{}, fmt.Errorf("failed to parse date '%s': %w", dateStr, lastErr)
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// DaysUntil returns the number of whole days between today and end,
// comparing start-of-day to start-of-day. Negative when end is in the past.
func DaysUntil(end, today time.Time) int {
	diff := StartOfDay(end).Sub(StartOfDay(today))
	return int(diff.Hours() / 24)
}

// WithinPeriod checks if day falls inside [start, end] inclusive.
func WithinPeriod(day, start, end time.Time) bool {
	d := StartOfDay(day)
	return !d.Before(StartOfDay(start)) && !d.After(StartOfDay(end))
}

// ISOWeekLabel returns a label like "2024-W23" for grouping entries by week.
func ISOWeekLabel(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}
