package timesheet

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/eterdtx/pointage-worker/internal/billing"
	"github.com/eterdtx/pointage-worker/tools/dateparser"
)

// The rental API returns fiches in more than one shape: sometimes nested
// under "fiche" with a sibling "engagement", sometimes flat, with entries
// under either "pointages_journaliers" or "pointages". Normalize decodes
// whichever shape arrives and resolves every fallback chain once, here,
// so the builder and renderer only ever see the typed aggregate.

type rawEnvelope struct {
	Fiche      *rawFiche      `json:"fiche"`
	Engagement *rawEngagement `json:"engagement"`

	PointagesJournaliers []rawEntry `json:"pointages_journaliers"`
	Pointages            []rawEntry `json:"pointages"`

	// Flat-shape fallbacks, promoted when no nested fiche is present.
	rawFiche
}

type rawFiche struct {
	NumeroFiche      string      `json:"numero_fiche"`
	Chantier         string      `json:"chantier"`
	MaterielType     string      `json:"materiel_type"`
	EngagementNumero string      `json:"engagement_numero"`
	FournisseurNom   string      `json:"fournisseur_nom"`
	Telephone        string      `json:"telephone"`
	Immatriculation  string      `json:"immatriculation"`
	PeriodeDebut     string      `json:"periode_debut"`
	PeriodeFin       string      `json:"periode_fin"`
	PrixUnitaire     looseNumber `json:"prix_unitaire"`
	TypeFacturation  string      `json:"type_facturation"`
}

type rawEngagement struct {
	Numero               string `json:"numero"`
	Chantier             string `json:"chantier"`
	FournisseurNom       string `json:"fournisseur_nom"`
	FournisseurTelephone string `json:"fournisseur_telephone"`
	DateDebut            string `json:"date_debut"`
	DateFin              string `json:"date_fin"`
}

type rawEntry struct {
	DatePointage          string      `json:"date_pointage"`
	CompteurDebut         looseNumber `json:"compteur_debut"`
	CompteurFin           looseNumber `json:"compteur_fin"`
	ConsommationCarburant looseNumber `json:"consommation_carburant"`
	HeuresTravail         looseNumber `json:"heures_travail"`
	HeuresArret           looseNumber `json:"heures_arret"`
	HeuresPanne           looseNumber `json:"heures_panne"`
	Observations          string      `json:"observations"`
	AChangeDeChantier     bool        `json:"a_change_de_chantier"`
	ChantierEffectif      string      `json:"chantier_effectif"`
	MontantJournalier     looseNumber `json:"montant_journalier"` // ignored: recomputed
}

// looseNumber captures a numeric JSON field without committing to its wire
// type: the rental backend serializes decimal fields as strings ("4.000"),
// while hand-built payloads carry bare numbers. Parsing happens afterwards,
// per field, so a bad value names the field that carried it.
type looseNumber string

func (n *looseNumber) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*n = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = looseNumber(s)
		return nil
	}
	*n = looseNumber(data)
	return nil
}

func (n looseNumber) float(field string) (float64, error) {
	if n == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(string(n), 64)
	if err != nil {
		return 0, &billing.InvalidInputError{Field: field, Reason: fmt.Sprintf("not a number: %q", string(n))}
	}
	return v, nil
}

// floatPtr keeps the absent-versus-zero distinction meter fields need.
func (n looseNumber) floatPtr(field string) (*float64, error) {
	if n == "" {
		return nil, nil
	}
	v, err := n.float(field)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Normalize decodes a loosely-shaped fiche payload into the typed aggregate.
func Normalize(raw []byte) (*Fiche, error) {
	var env rawEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal fiche payload: %w", err)
	}

	fiche := env.rawFiche
	if env.Fiche != nil {
		fiche = *env.Fiche
	}
	eng := rawEngagement{}
	if env.Engagement != nil {
		eng = *env.Engagement
	}

	out := &Fiche{
		Number:           firstNonEmpty(fiche.NumeroFiche, env.NumeroFiche),
		EquipmentType:    firstNonEmpty(fiche.MaterielType, env.MaterielType),
		Registration:     firstNonEmpty(fiche.Immatriculation, env.Immatriculation),
		Site:             firstNonEmpty(eng.Chantier, fiche.Chantier, env.Chantier),
		EngagementNumber: firstNonEmpty(eng.Numero, fiche.EngagementNumero, env.EngagementNumero),
		SupplierName:     firstNonEmpty(eng.FournisseurNom, fiche.FournisseurNom, env.FournisseurNom),
		SupplierPhone:    firstNonEmpty(eng.FournisseurTelephone, fiche.Telephone, env.Telephone),
	}

	var err error
	if out.PeriodStart, err = optionalDate(firstNonEmpty(fiche.PeriodeDebut, env.PeriodeDebut)); err != nil {
		return nil, &billing.InvalidInputError{Field: "periode_debut", Reason: err.Error()}
	}
	if out.PeriodEnd, err = optionalDate(firstNonEmpty(fiche.PeriodeFin, env.PeriodeFin)); err != nil {
		return nil, &billing.InvalidInputError{Field: "periode_fin", Reason: err.Error()}
	}
	if out.EngagementEnd, err = optionalDate(eng.DateFin); err != nil {
		return nil, &billing.InvalidInputError{Field: "date_fin", Reason: err.Error()}
	}

	out.Rate, err = normalizeRate(fiche, env.rawFiche)
	if err != nil {
		return nil, err
	}

	entries := env.PointagesJournaliers
	if entries == nil {
		entries = env.Pointages
	}
	out.Entries = make([]DailyEntry, 0, len(entries))
	for _, re := range entries {
		entry, err := normalizeEntry(re)
		if err != nil {
			return nil, err
		}
		out.Entries = append(out.Entries, entry)
	}

	return out, nil
}

func normalizeRate(fiche, flat rawFiche) (billing.Rate, error) {
	price := fiche.PrixUnitaire
	if price == "" {
		price = flat.PrixUnitaire
	}
	rate := billing.Rate{
		UnitPrice: decimal.Zero,
		Mode:      billing.Mode(firstNonEmpty(fiche.TypeFacturation, flat.TypeFacturation, string(billing.ModePerDay))),
	}
	if price != "" {
		d, err := decimal.NewFromString(string(price))
		if err != nil {
			return rate, &billing.InvalidInputError{Field: "prix_unitaire", Reason: fmt.Sprintf("not a number: %q", string(price))}
		}
		rate.UnitPrice = d
	}
	return rate, nil
}

func normalizeEntry(re rawEntry) (DailyEntry, error) {
	date, err := dateparser.ParseFicheDate(re.DatePointage)
	if err != nil {
		return DailyEntry{}, &billing.InvalidInputError{Field: "date_pointage", Reason: err.Error()}
	}

	entry := DailyEntry{
		Date:          date,
		Notes:         re.Observations,
		SiteChanged:   re.AChangeDeChantier,
		EffectiveSite: re.ChantierEffectif,
	}
	if entry.MeterStart, err = re.CompteurDebut.floatPtr("compteur_debut"); err != nil {
		return DailyEntry{}, err
	}
	if entry.MeterEnd, err = re.CompteurFin.floatPtr("compteur_fin"); err != nil {
		return DailyEntry{}, err
	}
	if entry.HoursWorked, err = re.HeuresTravail.float("heures_travail"); err != nil {
		return DailyEntry{}, err
	}
	if entry.HoursDownBroken, err = re.HeuresPanne.float("heures_panne"); err != nil {
		return DailyEntry{}, err
	}
	if entry.HoursIdle, err = re.HeuresArret.float("heures_arret"); err != nil {
		return DailyEntry{}, err
	}
	if entry.FuelConsumed, err = re.ConsommationCarburant.float("consommation_carburant"); err != nil {
		return DailyEntry{}, err
	}
	return entry, nil
}

func optionalDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return dateparser.ParseFicheDate(s)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
