package timesheet_test

import (
	"errors"
	"testing"
	"time"

	"github.com/eterdtx/pointage-worker/internal/billing"
	"github.com/eterdtx/pointage-worker/internal/timesheet"
	"github.com/shopspring/decimal"
)

func decimalFromInt(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func TestNormalize_NestedShape(t *testing.T) {
	payload := []byte(`{
		"fiche": {
			"numero_fiche": "FP-2024-001",
			"materiel_type": "Pelle hydraulique",
			"immatriculation": "1234 AB 01",
			"periode_debut": "01/06/2024",
			"periode_fin": "30/06/2024",
			"prix_unitaire": 25000,
			"type_facturation": "PAR_JOUR"
		},
		"engagement": {
			"numero": "ENG-2024-042",
			"chantier": "Nouakchott Nord",
			"fournisseur_nom": "SMB Location",
			"fournisseur_telephone": "22 33 44 55",
			"date_fin": "15/07/2024"
		},
		"pointages_journaliers": [
			{"date_pointage": "03/06/2024", "heures_travail": 8, "heures_panne": 1, "heures_arret": 0.5, "consommation_carburant": 45.5, "observations": "RAS"}
		]
	}`)

	fiche, err := timesheet.Normalize(payload)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if fiche.Number != "FP-2024-001" {
		t.Errorf("Expected number 'FP-2024-001', got '%s'", fiche.Number)
	}
	if fiche.Site != "Nouakchott Nord" {
		t.Errorf("Expected site from engagement, got '%s'", fiche.Site)
	}
	if fiche.SupplierName != "SMB Location" {
		t.Errorf("Expected supplier from engagement, got '%s'", fiche.SupplierName)
	}
	if fiche.Rate.Mode != billing.ModePerDay {
		t.Errorf("Expected PAR_JOUR, got %s", fiche.Rate.Mode)
	}
	if !fiche.Rate.UnitPrice.Equal(decimalFromInt(25000)) {
		t.Errorf("Expected unit price 25000, got %s", fiche.Rate.UnitPrice)
	}
	if !fiche.HasPeriod() {
		t.Error("Expected both period bounds to be set")
	}
	if fiche.EngagementEnd != time.Date(2024, 7, 15, 0, 0, 0, 0, time.UTC) {
		t.Errorf("Expected engagement end 2024-07-15, got %v", fiche.EngagementEnd)
	}

	if len(fiche.Entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(fiche.Entries))
	}
	entry := fiche.Entries[0]
	if entry.HoursDownBroken != 1 {
		t.Errorf("Expected heures_panne to map to HoursDownBroken, got %.1f", entry.HoursDownBroken)
	}
	if entry.HoursIdle != 0.5 {
		t.Errorf("Expected heures_arret to map to HoursIdle, got %.1f", entry.HoursIdle)
	}
	if entry.TotalHours() != 9.5 {
		t.Errorf("Expected total hours 9.5, got %.1f", entry.TotalHours())
	}
}

func TestNormalize_FlatShape(t *testing.T) {
	payload := []byte(`{
		"numero_fiche": "FP-2024-002",
		"chantier": "Zouerate",
		"fournisseur_nom": "ATTM",
		"telephone": "44 55 66 77",
		"prix_unitaire": "3500.250",
		"type_facturation": "PAR_HEURE",
		"pointages": [
			{"date_pointage": "2024-06-10", "heures_travail": 6}
		]
	}`)

	fiche, err := timesheet.Normalize(payload)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if fiche.Number != "FP-2024-002" {
		t.Errorf("Expected number 'FP-2024-002', got '%s'", fiche.Number)
	}
	if fiche.Site != "Zouerate" {
		t.Errorf("Expected flat chantier fallback, got '%s'", fiche.Site)
	}
	if fiche.SupplierPhone != "44 55 66 77" {
		t.Errorf("Expected telephone fallback, got '%s'", fiche.SupplierPhone)
	}
	if fiche.Rate.Mode != billing.ModePerHour {
		t.Errorf("Expected PAR_HEURE, got %s", fiche.Rate.Mode)
	}
	if fiche.Rate.UnitPrice.String() != "3500.25" {
		t.Errorf("Expected unit price 3500.25, got %s", fiche.Rate.UnitPrice)
	}
	if len(fiche.Entries) != 1 {
		t.Fatalf("Expected 1 entry from 'pointages' key, got %d", len(fiche.Entries))
	}
}

func TestNormalize_FicheChantierWhenNoEngagement(t *testing.T) {
	payload := []byte(`{
		"fiche": {
			"numero_fiche": "FP-2024-003",
			"chantier": "Atar",
			"engagement_numero": "ENG-2024-099",
			"fournisseur_nom": "Mauritanie BTP"
		}
	}`)

	fiche, err := timesheet.Normalize(payload)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if fiche.Site != "Atar" {
		t.Errorf("Expected fiche chantier fallback, got '%s'", fiche.Site)
	}
	if fiche.EngagementNumber != "ENG-2024-099" {
		t.Errorf("Expected engagement_numero fallback, got '%s'", fiche.EngagementNumber)
	}
	if fiche.SupplierName != "Mauritanie BTP" {
		t.Errorf("Expected fiche supplier fallback, got '%s'", fiche.SupplierName)
	}
}

func TestNormalize_DefaultsToPerDay(t *testing.T) {
	fiche, err := timesheet.Normalize([]byte(`{"numero_fiche": "FP-2024-004"}`))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if fiche.Rate.Mode != billing.ModePerDay {
		t.Errorf("Expected mode to default to PAR_JOUR, got %s", fiche.Rate.Mode)
	}
	if !fiche.Rate.UnitPrice.IsZero() {
		t.Errorf("Expected zero unit price, got %s", fiche.Rate.UnitPrice)
	}
	if fiche.HasPeriod() {
		t.Error("Expected no period without bounds")
	}
}

func TestNormalize_BadEntryDate(t *testing.T) {
	payload := []byte(`{
		"numero_fiche": "FP-2024-005",
		"pointages": [{"date_pointage": "pas-une-date", "heures_travail": 4}]
	}`)

	_, err := timesheet.Normalize(payload)
	if err == nil {
		t.Fatal("Expected error for unparseable entry date")
	}

	var inputErr *billing.InvalidInputError
	if !errors.As(err, &inputErr) {
		t.Fatalf("Expected InvalidInputError, got %T", err)
	}
	if inputErr.Field != "date_pointage" {
		t.Errorf("Expected field 'date_pointage', got '%s'", inputErr.Field)
	}
}

func TestNormalize_StringTypedDecimals(t *testing.T) {
	// The rental backend serializes its decimal fields as JSON strings.
	payload := []byte(`{
		"fiche": {
			"numero_fiche": "FP-2024-010",
			"prix_unitaire": "25000.000",
			"type_facturation": "PAR_JOUR"
		},
		"pointages_journaliers": [
			{
				"date_pointage": "2024-06-10",
				"compteur_debut": "1200.500",
				"compteur_fin": "1208.000",
				"heures_travail": "4.000",
				"heures_panne": "1.500",
				"heures_arret": "0.000",
				"consommation_carburant": "45.500",
				"montant_journalier": "25000.000"
			}
		]
	}`)

	fiche, err := timesheet.Normalize(payload)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if fiche.Rate.UnitPrice.String() != "25000" {
		t.Errorf("Expected unit price 25000, got %s", fiche.Rate.UnitPrice)
	}
	if len(fiche.Entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(fiche.Entries))
	}
	entry := fiche.Entries[0]
	if entry.HoursWorked != 4 {
		t.Errorf("Expected 4 worked hours, got %.3f", entry.HoursWorked)
	}
	if entry.HoursDownBroken != 1.5 {
		t.Errorf("Expected 1.5 breakdown hours, got %.3f", entry.HoursDownBroken)
	}
	if entry.FuelConsumed != 45.5 {
		t.Errorf("Expected 45.5 litres, got %.3f", entry.FuelConsumed)
	}
	if entry.MeterStart == nil || *entry.MeterStart != 1200.5 {
		t.Error("Expected meter start 1200.5 from string field")
	}
	if entry.MeterEnd == nil || *entry.MeterEnd != 1208 {
		t.Error("Expected meter end 1208 from string field")
	}
}

func TestNormalize_BadEntryHours(t *testing.T) {
	payload := []byte(`{
		"pointages": [{"date_pointage": "10/06/2024", "heures_travail": "quatre"}]
	}`)

	_, err := timesheet.Normalize(payload)
	if err == nil {
		t.Fatal("Expected error for non-numeric hours")
	}

	var inputErr *billing.InvalidInputError
	if !errors.As(err, &inputErr) {
		t.Fatalf("Expected InvalidInputError, got %T", err)
	}
	if inputErr.Field != "heures_travail" {
		t.Errorf("Expected field 'heures_travail', got '%s'", inputErr.Field)
	}
}

func TestNormalize_NullNumericFields(t *testing.T) {
	payload := []byte(`{
		"pointages": [{"date_pointage": "10/06/2024", "compteur_debut": null, "heures_travail": null}]
	}`)

	fiche, err := timesheet.Normalize(payload)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if fiche.Entries[0].MeterStart != nil {
		t.Error("Expected nil meter start for null field")
	}
	if fiche.Entries[0].HoursWorked != 0 {
		t.Errorf("Expected 0 hours for null field, got %.1f", fiche.Entries[0].HoursWorked)
	}
}

func TestNormalize_BadUnitPrice(t *testing.T) {
	_, err := timesheet.Normalize([]byte(`{"numero_fiche": "X", "prix_unitaire": "abc"}`))
	if err == nil {
		t.Fatal("Expected error for non-numeric unit price")
	}

	var inputErr *billing.InvalidInputError
	if !errors.As(err, &inputErr) {
		t.Fatalf("Expected InvalidInputError, got %T", err)
	}
}

func TestNormalize_MalformedJSON(t *testing.T) {
	_, err := timesheet.Normalize([]byte(`{"fiche": `))
	if err == nil {
		t.Fatal("Expected error for malformed JSON")
	}
}

func TestNormalize_MeterPointers(t *testing.T) {
	payload := []byte(`{
		"pointages": [
			{"date_pointage": "01/06/2024", "compteur_debut": 1200.5, "compteur_fin": 1208},
			{"date_pointage": "02/06/2024"}
		]
	}`)

	fiche, err := timesheet.Normalize(payload)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if fiche.Entries[0].MeterStart == nil || *fiche.Entries[0].MeterStart != 1200.5 {
		t.Error("Expected meter start 1200.5 on first entry")
	}
	if fiche.Entries[1].MeterStart != nil {
		t.Error("Expected nil meter start when field is absent")
	}
}
