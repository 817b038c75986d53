package validator_test

import (
	"strings"
	"testing"
	"time"

	"github.com/eterdtx/pointage-worker/internal/billing"
	"github.com/eterdtx/pointage-worker/internal/timesheet"
	"github.com/eterdtx/pointage-worker/internal/validator"
	"github.com/shopspring/decimal"
)

const testMaxDailyHours = 10.0

func entryOn(d int) timesheet.DailyEntry {
	return timesheet.DailyEntry{
		Date:        time.Date(2024, 6, d, 0, 0, 0, 0, time.UTC),
		HoursWorked: 8,
	}
}

func TestValidateFiche_Valid(t *testing.T) {
	v := validator.NewValidator(testMaxDailyHours)
	fiche := &timesheet.Fiche{
		Number:  "FP-2024-001",
		Rate:    billing.Rate{UnitPrice: decimal.NewFromInt(25000), Mode: billing.ModePerDay},
		Entries: []timesheet.DailyEntry{entryOn(1), entryOn(2)},
	}

	result := v.ValidateFiche(fiche)

	if !result.IsValid {
		t.Errorf("Expected valid fiche, got: %s", result.Reason)
	}
	if len(result.Warnings) != 0 {
		t.Errorf("Expected no warnings, got %v", result.Warnings)
	}
}

func TestValidateFiche_Nil(t *testing.T) {
	v := validator.NewValidator(testMaxDailyHours)

	result := v.ValidateFiche(nil)

	if result.IsValid {
		t.Error("Expected nil fiche to be invalid")
	}
}

func TestValidateFiche_NegativeUnitPrice(t *testing.T) {
	v := validator.NewValidator(testMaxDailyHours)
	fiche := &timesheet.Fiche{
		Rate: billing.Rate{UnitPrice: decimal.NewFromInt(-500), Mode: billing.ModePerDay},
	}

	result := v.ValidateFiche(fiche)

	if result.IsValid {
		t.Error("Expected invalid fiche for negative unit price")
	}
	if result.Reason != "negative unit price" {
		t.Errorf("Expected reason 'negative unit price', got '%s'", result.Reason)
	}
}

func TestValidateFiche_PeriodEndBeforeStart(t *testing.T) {
	v := validator.NewValidator(testMaxDailyHours)
	fiche := &timesheet.Fiche{
		PeriodStart: time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC),
		PeriodEnd:   time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	}

	result := v.ValidateFiche(fiche)

	if result.IsValid {
		t.Error("Expected invalid fiche for inverted period")
	}
}

func TestValidateFiche_DuplicateEntryDate(t *testing.T) {
	v := validator.NewValidator(testMaxDailyHours)
	fiche := &timesheet.Fiche{
		Entries: []timesheet.DailyEntry{entryOn(5), entryOn(6), entryOn(5)},
	}

	result := v.ValidateFiche(fiche)

	if result.IsValid {
		t.Error("Expected invalid fiche for duplicate entry date")
	}
	if !strings.Contains(result.Reason, "duplicate") {
		t.Errorf("Expected duplicate reason, got '%s'", result.Reason)
	}
}

func TestValidateFiche_CollectsEntryWarnings(t *testing.T) {
	v := validator.NewValidator(testMaxDailyHours)
	long := entryOn(3)
	long.HoursIdle = 5 // 13h total
	fiche := &timesheet.Fiche{
		Entries: []timesheet.DailyEntry{entryOn(1), long},
	}

	result := v.ValidateFiche(fiche)

	if !result.IsValid {
		t.Fatalf("Expected warnings to keep the fiche valid, got: %s", result.Reason)
	}
	if len(result.Warnings) != 1 {
		t.Fatalf("Expected 1 warning, got %d", len(result.Warnings))
	}
}

func TestValidateEntry_MissingDate(t *testing.T) {
	v := validator.NewValidator(testMaxDailyHours)

	result := v.ValidateEntry(timesheet.DailyEntry{HoursWorked: 8})

	if result.IsValid {
		t.Error("Expected entry without date to be invalid")
	}
	if result.Reason != "missing entry date" {
		t.Errorf("Expected reason 'missing entry date', got '%s'", result.Reason)
	}
}

func TestValidateEntry_NegativeHours(t *testing.T) {
	v := validator.NewValidator(testMaxDailyHours)
	entry := entryOn(1)
	entry.HoursDownBroken = -2

	result := v.ValidateEntry(entry)

	if result.IsValid {
		t.Error("Expected entry with negative hours to be invalid")
	}
	if result.Reason != "negative heures_panne" {
		t.Errorf("Expected reason 'negative heures_panne', got '%s'", result.Reason)
	}
}

func TestValidateEntry_NegativeFuel(t *testing.T) {
	v := validator.NewValidator(testMaxDailyHours)
	entry := entryOn(1)
	entry.FuelConsumed = -10

	result := v.ValidateEntry(entry)

	if result.IsValid {
		t.Error("Expected entry with negative fuel to be invalid")
	}
}

func TestValidateEntry_MeterEndBelowStart(t *testing.T) {
	v := validator.NewValidator(testMaxDailyHours)
	start, end := 1500.0, 1480.0
	entry := entryOn(1)
	entry.MeterStart = &start
	entry.MeterEnd = &end

	result := v.ValidateEntry(entry)

	if result.IsValid {
		t.Error("Expected entry with decreasing meter to be invalid")
	}
	if result.Reason != "compteur_fin below compteur_debut" {
		t.Errorf("Expected meter reason, got '%s'", result.Reason)
	}
}

func TestValidateEntry_NegativeMeter(t *testing.T) {
	v := validator.NewValidator(testMaxDailyHours)
	start := -5.0
	entry := entryOn(1)
	entry.MeterStart = &start

	result := v.ValidateEntry(entry)

	if result.IsValid {
		t.Error("Expected entry with negative meter to be invalid")
	}
}

func TestValidateEntry_ExcessiveHoursIsAdvisory(t *testing.T) {
	v := validator.NewValidator(testMaxDailyHours)
	entry := entryOn(1)
	entry.HoursWorked = 9
	entry.HoursIdle = 3

	result := v.ValidateEntry(entry)

	if !result.IsValid {
		t.Fatalf("Expected entry above advisory limit to stay valid, got: %s", result.Reason)
	}
	if len(result.Warnings) != 1 {
		t.Fatalf("Expected 1 warning, got %d", len(result.Warnings))
	}
	if !strings.Contains(result.Warnings[0], "advisory limit") {
		t.Errorf("Unexpected warning text: '%s'", result.Warnings[0])
	}
}

func TestValidateEntry_AtLimitNoWarning(t *testing.T) {
	v := validator.NewValidator(testMaxDailyHours)
	entry := entryOn(1)
	entry.HoursWorked = 10

	result := v.ValidateEntry(entry)

	if len(result.Warnings) != 0 {
		t.Errorf("Expected no warning at exactly the limit, got %v", result.Warnings)
	}
}
