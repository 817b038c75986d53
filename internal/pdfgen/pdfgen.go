package pdfgen

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"go.uber.org/zap"

	"github.com/eterdtx/pointage-worker/internal/report"
	"github.com/eterdtx/pointage-worker/tools/dateparser"
)

// Mode selects the output form of a render call.
type Mode string

const (
	ModeFile    Mode = "file"
	ModeBuffer  Mode = "buffer"
	ModeDataURI Mode = "datauri"
)

// DataURIPrefix marks an inline PDF suitable for iframe preview or a print
// window.
const DataURIPrefix = "data:application/pdf;base64,"

// Page geometry: A4 portrait in millimeters with a uniform margin.
const (
	pageWidth  = 210.0
	pageHeight = 297.0
	margin     = 15.0
)

// Default letterhead and title, overridable through Options.
const (
	defaultOrgLine1 = "Établissement des Travaux de l'Entretien Routier-ETER"
	defaultOrgLine2 = "Direction des Travaux-DTx"
	defaultTitle    = "Fiche pointage du matériel de location"
)

var signatureCaptions = [3]string{
	"Signature Chef de projet",
	"Signature Loueur",
	"Signature Directeur",
}

// Main table column widths in mm; the Notes column absorbs whatever the
// fixed columns leave of the printable width.
var fixedColWidths = []float64{18, 15, 15, 12, 12, 12, 12, 0, 25}

var tableHeaders = []string{
	"Date", "Compteur\nDébut", "Compteur\nFin", "Carb. (l)",
	"Heur\nT", "Heur\nA", "Heur\nP", "Observations", "Signature\nConducteur",
}

// RenderError wraps a failure during document layout or serialization.
type RenderError struct {
	Stage string
	Err   error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("pdf render failed at %s: %v", e.Stage, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// Options configures the renderer. Zero values fall back to the ETER
// letterhead and the current working directory.
type Options struct {
	OutputDir string
	LogoPath  string
	OrgLine1  string
	OrgLine2  string
	Title     string
}

// Artifact is the result of one render call. Bytes is always populated;
// DataURI only for ModeDataURI, and for ModeFile the file named Filename
// has been written under the output directory.
type Artifact struct {
	Filename string
	Bytes    []byte
	DataURI  string
}

// Renderer paints reports into A4 PDF documents. It holds configuration
// only; every Render call is independent, so concurrent renders need no
// coordination.
type Renderer struct {
	opts   Options
	logger *zap.Logger
}

// NewRenderer creates a renderer with the given options.
func NewRenderer(opts Options, logger *zap.Logger) *Renderer {
	if opts.OrgLine1 == "" {
		opts.OrgLine1 = defaultOrgLine1
	}
	if opts.OrgLine2 == "" {
		opts.OrgLine2 = defaultOrgLine2
	}
	if opts.Title == "" {
		opts.Title = defaultTitle
	}
	if opts.OutputDir == "" {
		opts.OutputDir = "."
	}
	return &Renderer{opts: opts, logger: logger}
}

// Filename builds the generated-document name for a fiche number and a
// generation date: Fiche_Pointage_{number}_{YYYYMMDD}.pdf.
func Filename(ficheNumber string, t time.Time) string {
	if ficheNumber == "" {
		ficheNumber = "Sans_Numero"
	}
	return fmt.Sprintf("Fiche_Pointage_%s_%s.pdf", ficheNumber, t.Format(dateparser.CompactFormat))
}

// Render paints the report and emits it in the requested mode. Generation is
// all-or-nothing: on failure no partial file is written and no artifact is
// returned.
func (r *Renderer) Render(rep *report.Report, mode Mode) (*Artifact, error) {
	return r.renderAt(rep, mode, time.Now())
}

func (r *Renderer) renderAt(rep *report.Report, mode Mode, now time.Time) (*Artifact, error) {
	if rep == nil {
		return nil, &RenderError{Stage: "layout", Err: fmt.Errorf("nil report")}
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, margin)
	pdf.AddPage()

	r.drawLetterhead(pdf, tr)
	r.drawInfoBlock(pdf, tr, rep.Header)
	r.drawEntriesTable(pdf, tr, rep)
	r.drawSignatures(pdf, tr)
	r.drawFooter(pdf, tr, now)

	if err := pdf.Error(); err != nil {
		return nil, &RenderError{Stage: "layout", Err: err}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, &RenderError{Stage: "serialize", Err: err}
	}

	artifact := &Artifact{
		Filename: Filename(rep.Header.FicheNumber, now),
		Bytes:    buf.Bytes(),
	}

	switch mode {
	case ModeFile:
		if err := r.writeFile(artifact); err != nil {
			return nil, err
		}
	case ModeDataURI:
		artifact.DataURI = DataURIPrefix + base64.StdEncoding.EncodeToString(artifact.Bytes)
	case ModeBuffer:
		// Bytes already populated.
	default:
		return nil, &RenderError{Stage: "output", Err: fmt.Errorf("unknown output mode %q", mode)}
	}

	return artifact, nil
}

// writeFile persists through a temp file and a rename so a failed write
// never leaves a partial document behind.
func (r *Renderer) writeFile(artifact *Artifact) error {
	tmp, err := os.CreateTemp(r.opts.OutputDir, ".fiche-*.pdf.tmp")
	if err != nil {
		return &RenderError{Stage: "save", Err: err}
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(artifact.Bytes); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &RenderError{Stage: "save", Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &RenderError{Stage: "save", Err: err}
	}

	final := filepath.Join(r.opts.OutputDir, artifact.Filename)
	if err := os.Rename(tmpName, final); err != nil {
		os.Remove(tmpName)
		return &RenderError{Stage: "save", Err: err}
	}
	return nil
}

func (r *Renderer) drawLetterhead(pdf *fpdf.Fpdf, tr func(string) string) {
	pdf.SetFont("Helvetica", "", 10)
	pdf.Text(margin, 20, tr(r.opts.OrgLine1))
	pdf.Text(margin, 25, tr(r.opts.OrgLine2))

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Text(margin, 40, tr(r.opts.Title))
	pdf.SetFont("Helvetica", "", 10)

	if r.opts.LogoPath != "" {
		if _, err := os.Stat(r.opts.LogoPath); err != nil {
			r.logger.Warn("logo file unreadable, rendering without logo",
				zap.String("path", r.opts.LogoPath), zap.Error(err))
			return
		}
		pdf.ImageOptions(r.opts.LogoPath, 160, 10, 35, 20, false,
			fpdf.ImageOptions{ReadDpi: true}, 0, "")
		if pdf.Err() {
			r.logger.Warn("failed to place logo, rendering without it",
				zap.String("path", r.opts.LogoPath), zap.Error(pdf.Error()))
			pdf.ClearError()
		}
	}
}

func (r *Renderer) drawInfoBlock(pdf *fpdf.Fpdf, tr func(string) string, h report.Header) {
	rows := [][4]string{
		{"Projet", h.Site, "Matériel", h.EquipmentType},
		{"Chantier", h.Engagement, "Fournisseur", h.Supplier},
		{"Période", h.Period, "Contact n°", h.ContactPhone},
		{"Immatriculation", h.Registration, "", ""},
	}

	const rowH = 7.0
	labelW := 32.0
	valueW := (pageWidth - 2*margin - 2*labelW) / 2

	pdf.SetY(50)
	pdf.SetFontSize(9)
	for _, row := range rows {
		pdf.SetX(margin)
		for i, cell := range row {
			w := valueW
			if i%2 == 0 {
				w = labelW
				pdf.SetFont("Helvetica", "B", 9)
				pdf.SetFillColor(240, 240, 240)
			} else {
				pdf.SetFont("Helvetica", "", 9)
				pdf.SetFillColor(255, 255, 255)
			}
			pdf.CellFormat(w, rowH, tr(cell), "1", 0, "L", true, 0, "")
		}
		pdf.Ln(rowH)
	}
}

func (r *Renderer) drawEntriesTable(pdf *fpdf.Fpdf, tr func(string) string, rep *report.Report) {
	widths := columnWidths()

	pdf.SetY(85)
	drawHeaderRow(pdf, tr, widths)

	rows := rep.Rows
	if len(rows) == 0 {
		// Keep the printed sheet usable for handwritten entries.
		rows = make([]report.Row, 5)
	}

	pdf.SetFont("Helvetica", "", 8)
	pdf.SetFillColor(255, 255, 255)
	for _, row := range rows {
		drawDataRow(pdf, tr, widths, row)
	}

	pdf.SetFont("Helvetica", "B", 8)
	pdf.SetFillColor(240, 240, 240)
	drawDataRow(pdf, tr, widths, rep.TotalRow)
}

func drawHeaderRow(pdf *fpdf.Fpdf, tr func(string) string, widths []float64) {
	const headerH = 8.0
	pdf.SetFont("Helvetica", "B", 8)
	pdf.SetFillColor(200, 200, 200)
	pdf.SetTextColor(0, 0, 0)

	x := margin
	y := pdf.GetY()
	for i, title := range tableHeaders {
		lines := float64(1 + strings.Count(title, "\n"))
		pdf.SetXY(x, y)
		pdf.MultiCell(widths[i], headerH/lines, tr(title), "1", "CM", true)
		x += widths[i]
	}
	pdf.SetXY(margin, y+headerH)
}

func drawDataRow(pdf *fpdf.Fpdf, tr func(string) string, widths []float64, row report.Row) {
	const rowH = 6.0
	cells := []string{
		row.Date, row.MeterStart, row.MeterEnd, row.Fuel,
		row.HoursWorked, row.HoursIdle, row.HoursDownBroken,
		row.Notes, row.Signature,
	}
	pdf.SetX(margin)
	for i, cell := range cells {
		align := "C"
		if i == 7 {
			align = "L"
		}
		pdf.CellFormat(widths[i], rowH, tr(cell), "1", 0, align, true, 0, "")
	}
	pdf.Ln(rowH)
}

func columnWidths() []float64 {
	widths := make([]float64, len(fixedColWidths))
	copy(widths, fixedColWidths)

	usable := pageWidth - 2*margin
	var fixed float64
	for _, w := range widths {
		fixed += w
	}
	widths[7] = usable - fixed
	return widths
}

func (r *Renderer) drawSignatures(pdf *fpdf.Fpdf, tr func(string) string) {
	const (
		captionY = pageHeight - 30
		boxW     = 55.0
		boxH     = 18.0
		gap      = 5.0
	)

	pdf.SetFont("Helvetica", "", 9)
	for i, caption := range signatureCaptions {
		x := margin + float64(i)*(boxW+gap)
		pdf.Text(x, captionY, tr(caption))
		pdf.Rect(x, captionY+2, boxW, boxH-10, "D")
	}
}

func (r *Renderer) drawFooter(pdf *fpdf.Fpdf, tr func(string) string, now time.Time) {
	pdf.SetFont("Helvetica", "", 8)
	line := fmt.Sprintf("Document généré automatiquement le %s", now.Format("02/01/2006 15:04"))
	pdf.SetXY(margin, pageHeight-12)
	pdf.CellFormat(pageWidth-2*margin, 5, tr(line), "", 0, "R", false, 0, "")
}
