package service_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/eterdtx/pointage-worker/internal/billing"
	"github.com/eterdtx/pointage-worker/internal/pdfgen"
	"github.com/eterdtx/pointage-worker/internal/service"
	"github.com/eterdtx/pointage-worker/internal/urgency"
	"github.com/eterdtx/pointage-worker/internal/validator"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// newTestProcessor wires only the stateless stages; the repository and
// publisher are never reached by RenderFromPayload.
func newTestProcessor(t *testing.T) *service.ProcessorService {
	t.Helper()
	return service.NewProcessorService(
		nil,
		nil,
		validator.NewValidator(0),
		billing.NewCalculator(0),
		pdfgen.NewRenderer(pdfgen.Options{OutputDir: t.TempDir()}, zap.NewNop()),
		nil,
		zap.NewNop(),
	)
}

const validPayload = `{
	"fiche": {
		"numero_fiche": "FP-2024-001",
		"materiel_type": "Pelle hydraulique",
		"periode_debut": "01/06/2024",
		"periode_fin": "30/06/2024",
		"prix_unitaire": 25000,
		"type_facturation": "PAR_JOUR"
	},
	"engagement": {
		"numero": "ENG-2024-042",
		"chantier": "Nouakchott Nord",
		"fournisseur_nom": "SMB Location",
		"date_fin": "31/12/2030"
	},
	"pointages_journaliers": [
		{"date_pointage": "10/06/2024", "heures_travail": 8, "consommation_carburant": 20},
		{"date_pointage": "11/06/2024", "heures_travail": 6, "heures_panne": 1.5},
		{"date_pointage": "12/06/2024", "heures_travail": 0}
	]
}`

func TestRenderFromPayload_FullPipeline(t *testing.T) {
	p := newTestProcessor(t)

	outcome, err := p.RenderFromPayload([]byte(validPayload), pdfgen.ModeBuffer)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	// PerDay at 25000: two days with worked hours, one without.
	if !outcome.TotalAmount.Equal(decimal.NewFromInt(50000)) {
		t.Errorf("Expected total 50000, got %s", outcome.TotalAmount)
	}
	if len(outcome.Report.Rows) != 3 {
		t.Errorf("Expected 3 report rows, got %d", len(outcome.Report.Rows))
	}
	if len(outcome.Artifact.Bytes) == 0 {
		t.Error("Expected a rendered PDF")
	}
	if outcome.UrgencyTier != urgency.TierNormal {
		t.Errorf("Expected NORMAL urgency for a far-off end date, got %s", outcome.UrgencyTier)
	}
}

func TestRenderFromPayload_NoEngagementEndSkipsUrgency(t *testing.T) {
	p := newTestProcessor(t)
	payload := `{"numero_fiche": "FP-2024-002", "type_facturation": "PAR_JOUR"}`

	outcome, err := p.RenderFromPayload([]byte(payload), pdfgen.ModeBuffer)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if outcome.UrgencyTier != "" {
		t.Errorf("Expected no urgency tier without an engagement end, got %s", outcome.UrgencyTier)
	}
}

func TestRenderFromPayload_InvalidFiche(t *testing.T) {
	p := newTestProcessor(t)
	payload := `{
		"numero_fiche": "FP-2024-003",
		"pointages": [{"date_pointage": "10/06/2024", "heures_travail": -4}]
	}`

	_, err := p.RenderFromPayload([]byte(payload), pdfgen.ModeBuffer)
	if err == nil {
		t.Fatal("Expected error for negative hours")
	}

	var inputErr *billing.InvalidInputError
	if !errors.As(err, &inputErr) {
		t.Fatalf("Expected InvalidInputError, got %T", err)
	}
	if !strings.Contains(inputErr.Reason, "heures_travail") {
		t.Errorf("Expected reason naming heures_travail, got '%s'", inputErr.Reason)
	}
}

func TestRenderFromPayload_MalformedPayload(t *testing.T) {
	p := newTestProcessor(t)

	_, err := p.RenderFromPayload([]byte(`{`), pdfgen.ModeBuffer)
	if err == nil {
		t.Fatal("Expected error for malformed payload")
	}
}

func TestRenderFromPayload_PerHourTotal(t *testing.T) {
	p := newTestProcessor(t)
	payload := `{
		"numero_fiche": "FP-2024-004",
		"prix_unitaire": 1000,
		"type_facturation": "PAR_HEURE",
		"pointages": [
			{"date_pointage": "10/06/2024", "heures_travail": 7.5},
			{"date_pointage": "11/06/2024", "heures_travail": 4}
		]
	}`

	outcome, err := p.RenderFromPayload([]byte(payload), pdfgen.ModeBuffer)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if !outcome.TotalAmount.Equal(decimal.NewFromInt(11500)) {
		t.Errorf("Expected total 11500, got %s", outcome.TotalAmount)
	}
}
