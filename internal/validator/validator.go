package validator

import (
	"fmt"

	"github.com/eterdtx/pointage-worker/internal/timesheet"
)

// DefaultMaxDailyHours is the advisory ceiling on one day's combined hours.
// Entries above it stay valid but carry a warning.
const DefaultMaxDailyHours = 10.0

// Result holds a validation outcome. Warnings are advisory and never make
// the fiche invalid.
type Result struct {
	IsValid  bool
	Reason   string
	Warnings []string
}

// Validator checks fiches and entries before amounts are computed.
type Validator struct {
	maxDailyHours float64
}

// NewValidator creates a validator with the given advisory daily-hours limit.
func NewValidator(maxDailyHours float64) *Validator {
	if maxDailyHours <= 0 {
		maxDailyHours = DefaultMaxDailyHours
	}
	return &Validator{maxDailyHours: maxDailyHours}
}

// ValidateFiche validates the aggregate header and every daily entry.
func (v *Validator) ValidateFiche(fiche *timesheet.Fiche) Result {
	result := Result{IsValid: true}

	if fiche == nil {
		result.IsValid = false
		result.Reason = "nil fiche"
		return result
	}

	if fiche.Rate.UnitPrice.IsNegative() {
		result.IsValid = false
		result.Reason = "negative unit price"
		return result
	}

	if fiche.HasPeriod() && fiche.PeriodEnd.Before(fiche.PeriodStart) {
		result.IsValid = false
		result.Reason = "period end before period start"
		return result
	}

	seen := make(map[string]bool, len(fiche.Entries))
	for _, entry := range fiche.Entries {
		er := v.ValidateEntry(entry)
		if !er.IsValid {
			result.IsValid = false
			result.Reason = fmt.Sprintf("entry %s: %s", entry.Date.Format("02/01/2006"), er.Reason)
			return result
		}
		result.Warnings = append(result.Warnings, er.Warnings...)

		day := entry.Date.Format("2006-01-02")
		if seen[day] {
			result.IsValid = false
			result.Reason = fmt.Sprintf("duplicate entry for %s", day)
			return result
		}
		seen[day] = true
	}

	return result
}

// ValidateEntry validates a single daily entry.
func (v *Validator) ValidateEntry(entry timesheet.DailyEntry) Result {
	result := Result{IsValid: true}

	if entry.Date.IsZero() {
		result.IsValid = false
		result.Reason = "missing entry date"
		return result
	}

	for field, value := range map[string]float64{
		"heures_travail":         entry.HoursWorked,
		"heures_panne":           entry.HoursDownBroken,
		"heures_arret":           entry.HoursIdle,
		"consommation_carburant": entry.FuelConsumed,
	} {
		if value < 0 {
			result.IsValid = false
			result.Reason = fmt.Sprintf("negative %s", field)
			return result
		}
	}

	if entry.MeterStart != nil && *entry.MeterStart < 0 {
		result.IsValid = false
		result.Reason = "negative compteur_debut"
		return result
	}
	if entry.MeterEnd != nil && *entry.MeterEnd < 0 {
		result.IsValid = false
		result.Reason = "negative compteur_fin"
		return result
	}
	if entry.MeterStart != nil && entry.MeterEnd != nil && *entry.MeterEnd < *entry.MeterStart {
		result.IsValid = false
		result.Reason = "compteur_fin below compteur_debut"
		return result
	}

	if total := entry.TotalHours(); total > v.maxDailyHours {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("%s: %.1fh logged, above the %.1fh advisory limit",
				entry.Date.Format("02/01/2006"), total, v.maxDailyHours))
	}

	return result
}
