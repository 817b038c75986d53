package billing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Mode is the billing mode governing how logged activity converts to an
// amount. Wire values match the rental API's type_facturation field.
type Mode string

const (
	ModePerDay  Mode = "PAR_JOUR"
	ModePerHour Mode = "PAR_HEURE"
	ModeFlat    Mode = "FORFAITAIRE"
)

// DefaultNominalHoursPerDay is the assumed working day length used for
// PerHour period estimates before actual hours are known.
const DefaultNominalHoursPerDay = 8.0

// Weighting applied to non-productive hours in the live entry preview.
var (
	downHoursWeight = decimal.NewFromFloat(0.5)
	idleHoursWeight = decimal.NewFromFloat(0.3)
)

// Rate holds one equipment line's pricing terms. UnitPrice is in the base
// currency unit (MRU); no conversion is modeled.
type Rate struct {
	UnitPrice decimal.Decimal
	Mode      Mode
}

// InvalidInputError reports an input rejected by the amount arithmetic.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Calculator computes monetary amounts from billing rates and logged hours.
type Calculator struct {
	nominalHoursPerDay decimal.Decimal
}

// NewCalculator creates a calculator with the given nominal day length.
// Zero or negative values fall back to DefaultNominalHoursPerDay.
func NewCalculator(nominalHoursPerDay float64) *Calculator {
	if nominalHoursPerDay <= 0 {
		nominalHoursPerDay = DefaultNominalHoursPerDay
	}
	return &Calculator{nominalHoursPerDay: decimal.NewFromFloat(nominalHoursPerDay)}
}

// ComputeForDay converts one day's posted hours into an amount.
// PerDay charges the full day rate whenever any hours were worked,
// PerHour multiplies by actual worked hours, Flat is a single fixed charge.
func (c *Calculator) ComputeForDay(rate Rate, hoursWorked float64) (decimal.Decimal, error) {
	if err := checkRate(rate); err != nil {
		return decimal.Zero, err
	}
	if hoursWorked < 0 {
		return decimal.Zero, &InvalidInputError{Field: "hours_worked", Reason: "negative hours"}
	}

	switch rate.Mode {
	case ModePerDay:
		if hoursWorked > 0 {
			return rate.UnitPrice, nil
		}
		return decimal.Zero, nil
	case ModePerHour:
		return rate.UnitPrice.Mul(decimal.NewFromFloat(hoursWorked)), nil
	case ModeFlat:
		return rate.UnitPrice, nil
	default:
		return decimal.Zero, &InvalidInputError{Field: "billing_mode", Reason: fmt.Sprintf("unknown mode %q", rate.Mode)}
	}
}

// EstimateForPeriod produces the forward estimate for an engagement period,
// before actual hours exist. PerHour assumes the nominal day length.
func (c *Calculator) EstimateForPeriod(rate Rate, quantity int, periodDays int) (decimal.Decimal, error) {
	if err := checkRate(rate); err != nil {
		return decimal.Zero, err
	}
	if quantity < 0 {
		return decimal.Zero, &InvalidInputError{Field: "quantity", Reason: "negative quantity"}
	}
	if periodDays < 0 {
		return decimal.Zero, &InvalidInputError{Field: "period_days", Reason: "negative period"}
	}

	qty := decimal.NewFromInt(int64(quantity))
	days := decimal.NewFromInt(int64(periodDays))

	switch rate.Mode {
	case ModePerDay:
		return rate.UnitPrice.Mul(qty).Mul(days), nil
	case ModePerHour:
		return rate.UnitPrice.Mul(qty).Mul(days).Mul(c.nominalHoursPerDay), nil
	case ModeFlat:
		return rate.UnitPrice, nil
	default:
		return decimal.Zero, &InvalidInputError{Field: "billing_mode", Reason: fmt.Sprintf("unknown mode %q", rate.Mode)}
	}
}

// PreviewWeightedEstimate is the live-typing preview shown while an entry is
// being filled in: worked hours at full rate, breakdown hours at half rate,
// idle hours at 30%. It is a display aid, distinct from ComputeForDay.
func (c *Calculator) PreviewWeightedEstimate(rate Rate, hoursWorked, hoursDownBroken, hoursIdle float64) (decimal.Decimal, error) {
	if err := checkRate(rate); err != nil {
		return decimal.Zero, err
	}
	for field, v := range map[string]float64{
		"hours_worked":      hoursWorked,
		"hours_down_broken": hoursDownBroken,
		"hours_idle":        hoursIdle,
	} {
		if v < 0 {
			return decimal.Zero, &InvalidInputError{Field: field, Reason: "negative hours"}
		}
	}

	worked := rate.UnitPrice.Mul(decimal.NewFromFloat(hoursWorked))
	down := rate.UnitPrice.Mul(decimal.NewFromFloat(hoursDownBroken)).Mul(downHoursWeight)
	idle := rate.UnitPrice.Mul(decimal.NewFromFloat(hoursIdle)).Mul(idleHoursWeight)

	return worked.Add(down).Add(idle), nil
}

// SumAmounts reduces per-entry amounts to a total. Empty input sums to zero.
func SumAmounts(amounts []decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// FormatAmount renders an amount for display with 3 decimal places.
// Internal computation keeps full precision until this point.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(3)
}

func checkRate(rate Rate) error {
	if rate.UnitPrice.IsNegative() {
		return &InvalidInputError{Field: "unit_price", Reason: "negative unit price"}
	}
	return nil
}
