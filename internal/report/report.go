package report

import (
	"fmt"
	"sort"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/eterdtx/pointage-worker/internal/billing"
	"github.com/eterdtx/pointage-worker/internal/timesheet"
	"github.com/eterdtx/pointage-worker/tools/dateparser"
)

// Note lengths per call site: the printed PDF truncates at 60, the on-screen
// entry list at 50.
const (
	PrintedNoteMaxLen  = 60
	OnScreenNoteMaxLen = 50
)

// TotalLabel is the literal printed in the date column of the total row.
const TotalLabel = "Total"

// Header carries the fallback-resolved fiche identity fields, formatted for
// display.
type Header struct {
	FicheNumber   string
	Site          string
	EquipmentType string
	Engagement    string
	Supplier      string
	ContactPhone  string
	Registration  string
	Period        string
}

// Row is one printable table line. Numeric columns are already formatted;
// Signature stays blank for the handwritten conductor signature.
type Row struct {
	Date            string
	MeterStart      string
	MeterEnd        string
	Fuel            string
	HoursWorked     string
	HoursIdle       string
	HoursDownBroken string
	Notes           string
	Signature       string
}

// Totals holds the numeric column sums used for the total row and for
// callers that need the raw values.
type Totals struct {
	Fuel            float64
	HoursWorked     float64
	HoursIdle       float64
	HoursDownBroken float64
}

// Report is the normalized printable structure handed to the renderer.
type Report struct {
	Header   Header
	Rows     []Row
	Totals   Totals
	TotalRow Row
}

// Build assembles the printable report from a fiche. Entries are sorted
// ascending by date; entries outside the fiche period are kept as-is, the
// builder trusts caller-provided data. A fiche with zero entries yields an
// empty row list and an all-zero total row.
func Build(fiche *timesheet.Fiche) (*Report, error) {
	if fiche == nil {
		return nil, &billing.InvalidInputError{Field: "fiche", Reason: "nil fiche"}
	}

	rep := &Report{Header: buildHeader(fiche)}

	entries := make([]timesheet.DailyEntry, len(fiche.Entries))
	copy(entries, fiche.Entries)
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Date.Before(entries[j].Date)
	})

	rep.Rows = make([]Row, 0, len(entries))
	for _, e := range entries {
		rep.Rows = append(rep.Rows, buildRow(e))
		rep.Totals.Fuel += e.FuelConsumed
		rep.Totals.HoursWorked += e.HoursWorked
		rep.Totals.HoursIdle += e.HoursIdle
		rep.Totals.HoursDownBroken += e.HoursDownBroken
	}

	rep.TotalRow = Row{
		Date:            TotalLabel,
		Fuel:            formatHours(rep.Totals.Fuel),
		HoursWorked:     formatHours(rep.Totals.HoursWorked),
		HoursIdle:       formatHours(rep.Totals.HoursIdle),
		HoursDownBroken: formatHours(rep.Totals.HoursDownBroken),
	}

	return rep, nil
}

func buildHeader(fiche *timesheet.Fiche) Header {
	h := Header{
		FicheNumber:   fiche.Number,
		Site:          fiche.Site,
		EquipmentType: fiche.EquipmentType,
		Engagement:    fiche.EngagementNumber,
		Supplier:      fiche.SupplierName,
		ContactPhone:  fiche.SupplierPhone,
		Registration:  fiche.Registration,
	}
	if fiche.HasPeriod() {
		h.Period = fmt.Sprintf("%s au %s",
			fiche.PeriodStart.Format(dateparser.DisplayFormat),
			fiche.PeriodEnd.Format(dateparser.DisplayFormat))
	}
	return h
}

func buildRow(e timesheet.DailyEntry) Row {
	notes := e.Notes
	if e.SiteChanged {
		site := e.EffectiveSite
		if site == "" {
			site = "nouveau chantier"
		}
		mention := fmt.Sprintf("Changement de chantier -> %s", site)
		if notes != "" {
			notes = mention + " | " + notes
		} else {
			notes = mention
		}
	}

	return Row{
		Date:            e.Date.Format(dateparser.DisplayFormat),
		MeterStart:      formatMeter(e.MeterStart),
		MeterEnd:        formatMeter(e.MeterEnd),
		Fuel:            formatHours(e.FuelConsumed),
		HoursWorked:     formatHours(e.HoursWorked),
		HoursIdle:       formatHours(e.HoursIdle),
		HoursDownBroken: formatHours(e.HoursDownBroken),
		Notes:           TruncateNote(notes, PrintedNoteMaxLen),
	}
}

// TruncateNote shortens a note to maxLen characters, ending in "..." when
// anything was cut. Notes at or under the limit pass through unchanged.
// Length is counted in runes; French notes are full of accented letters and
// a byte cut could split one.
func TruncateNote(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen-3]) + "..."
}

func formatMeter(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%g", *v)
}

func formatHours(v float64) string {
	return fmt.Sprintf("%.1f", v)
}

// WeekSummary is the on-screen per-ISO-week aggregation of a fiche's entries.
type WeekSummary struct {
	WeekLabel   string
	DayCount    int
	TotalHours  float64
	TotalAmount decimal.Decimal
}

// WeeklySummaries partitions entries by ISO week-of-year and aggregates each
// partition. Weeks with no entries are absent. Amounts are recomputed per
// entry from the fiche's current rate.
func WeeklySummaries(fiche *timesheet.Fiche, calc *billing.Calculator) ([]WeekSummary, error) {
	byWeek := map[string]*WeekSummary{}
	var order []string

	for _, e := range fiche.Entries {
		label := dateparser.ISOWeekLabel(e.Date)
		ws, ok := byWeek[label]
		if !ok {
			ws = &WeekSummary{WeekLabel: label, TotalAmount: decimal.Zero}
			byWeek[label] = ws
			order = append(order, label)
		}
		amount, err := calc.ComputeForDay(fiche.Rate, e.HoursWorked)
		if err != nil {
			return nil, err
		}
		ws.DayCount++
		ws.TotalHours += e.TotalHours()
		ws.TotalAmount = ws.TotalAmount.Add(amount)
	}

	sort.Strings(order)
	out := make([]WeekSummary, 0, len(order))
	for _, label := range order {
		out = append(out, *byWeek[label])
	}
	return out, nil
}

// AllEntries bypasses week grouping and returns one summary covering every
// entry, used when the caller selects "all" instead of a week.
func AllEntries(fiche *timesheet.Fiche, calc *billing.Calculator) (WeekSummary, error) {
	total := WeekSummary{WeekLabel: "all", TotalAmount: decimal.Zero}
	for _, e := range fiche.Entries {
		amount, err := calc.ComputeForDay(fiche.Rate, e.HoursWorked)
		if err != nil {
			return total, err
		}
		total.DayCount++
		total.TotalHours += e.TotalHours()
		total.TotalAmount = total.TotalAmount.Add(amount)
	}
	return total, nil
}
