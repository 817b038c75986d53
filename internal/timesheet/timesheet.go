package timesheet

import (
	"time"

	"github.com/eterdtx/pointage-worker/internal/billing"
)

// DailyEntry is one calendar day's logged activity against a fiche.
// The three hour categories are independently tracked; the monetary amount
// is always recomputed from the current rate, never read from storage.
type DailyEntry struct {
	Date            time.Time
	MeterStart      *float64
	MeterEnd        *float64
	HoursWorked     float64
	HoursDownBroken float64
	HoursIdle       float64
	FuelConsumed    float64
	Notes           string
	SiteChanged     bool
	EffectiveSite   string
}

// TotalHours is the sum of the three tracked hour categories.
func (e DailyEntry) TotalHours() float64 {
	return e.HoursWorked + e.HoursDownBroken + e.HoursIdle
}

// Fiche is the period-level timesheet aggregate: header metadata plus the
// ordered daily entries. Header fields are already fallback-resolved by
// Normalize; readers never consult the engagement again.
type Fiche struct {
	Number           string
	EquipmentType    string
	Registration     string
	Site             string
	EngagementNumber string
	SupplierName     string
	SupplierPhone    string
	PeriodStart      time.Time
	PeriodEnd        time.Time
	EngagementEnd    time.Time
	Rate             billing.Rate
	Entries          []DailyEntry
}

// HasPeriod reports whether both period bounds were present in the payload.
func (f *Fiche) HasPeriod() bool {
	return !f.PeriodStart.IsZero() && !f.PeriodEnd.IsZero()
}
