package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/eterdtx/pointage-worker/internal/billing"
	"github.com/eterdtx/pointage-worker/internal/pdfgen"
	"github.com/eterdtx/pointage-worker/internal/report"
	"github.com/eterdtx/pointage-worker/internal/repository"
	"github.com/eterdtx/pointage-worker/internal/service"
	"github.com/eterdtx/pointage-worker/internal/timesheet"
	"github.com/eterdtx/pointage-worker/internal/urgency"
)

// Handler serves the on-demand surface: render previews for the UI, period
// estimates while a demande is being drafted, and the generation ledger.
type Handler struct {
	processor *service.ProcessorService
	repo      *repository.Repository
	calc      *billing.Calculator
	logger    *zap.Logger
}

// NewHandler creates the API handler.
func NewHandler(processor *service.ProcessorService, repo *repository.Repository, calc *billing.Calculator, logger *zap.Logger) *Handler {
	return &Handler{processor: processor, repo: repo, calc: calc, logger: logger}
}

// Render accepts a raw fiche payload and returns the rendered document in
// the requested mode: datauri (default), buffer (raw PDF bytes) or file.
func (h *Handler) Render(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil || len(raw) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty or unreadable fiche payload"})
		return
	}

	mode := pdfgen.Mode(c.DefaultQuery("mode", string(pdfgen.ModeDataURI)))

	outcome, err := h.processor.RenderFromPayload(raw, mode)
	if err != nil {
		h.renderError(c, err)
		return
	}

	switch mode {
	case pdfgen.ModeBuffer:
		c.Header("Content-Disposition", "inline; filename="+outcome.Artifact.Filename)
		c.Data(http.StatusOK, "application/pdf", outcome.Artifact.Bytes)
	case pdfgen.ModeFile:
		c.JSON(http.StatusOK, gin.H{
			"filename":     outcome.Artifact.Filename,
			"total_amount": billing.FormatAmount(outcome.TotalAmount),
			"urgency_tier": outcome.UrgencyTier,
		})
	default:
		c.JSON(http.StatusOK, gin.H{
			"filename":     outcome.Artifact.Filename,
			"data_uri":     outcome.Artifact.DataURI,
			"total_amount": billing.FormatAmount(outcome.TotalAmount),
			"urgency_tier": outcome.UrgencyTier,
		})
	}
}

type estimateRequest struct {
	UnitPrice       decimal.Decimal `json:"prix_unitaire"`
	TypeFacturation string          `json:"type_facturation" binding:"required"`
	Quantity        int             `json:"quantite"`
	PeriodDays      int             `json:"jours"`
}

// Estimate returns the forward period estimate for an equipment line.
func (h *Handler) Estimate(c *gin.Context) {
	var req estimateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid estimate request: " + err.Error()})
		return
	}

	quantity := req.Quantity
	if quantity == 0 {
		quantity = 1
	}

	rate := billing.Rate{UnitPrice: req.UnitPrice, Mode: billing.Mode(req.TypeFacturation)}
	amount, err := h.calc.EstimateForPeriod(rate, quantity, req.PeriodDays)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"amount": billing.FormatAmount(amount)})
}

type previewRequest struct {
	UnitPrice       decimal.Decimal `json:"prix_unitaire"`
	TypeFacturation string          `json:"type_facturation" binding:"required"`
	HeuresTravail   float64         `json:"heures_travail"`
	HeuresPanne     float64         `json:"heures_panne"`
	HeuresArret     float64         `json:"heures_arret"`
}

// Preview returns the live weighted estimate shown while a daily entry is
// being typed.
func (h *Handler) Preview(c *gin.Context) {
	var req previewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid preview request: " + err.Error()})
		return
	}

	rate := billing.Rate{UnitPrice: req.UnitPrice, Mode: billing.Mode(req.TypeFacturation)}
	amount, err := h.calc.PreviewWeightedEstimate(rate, req.HeuresTravail, req.HeuresPanne, req.HeuresArret)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"amount": billing.FormatAmount(amount)})
}

// WeeklySummary groups a fiche's entries by ISO week; ?week=all bypasses
// grouping and returns a single summary over every entry.
func (h *Handler) WeeklySummary(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil || len(raw) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty or unreadable fiche payload"})
		return
	}

	fiche, err := timesheet.Normalize(raw)
	if err != nil {
		h.renderError(c, err)
		return
	}

	if c.Query("week") == "all" {
		total, err := report.AllEntries(fiche, h.calc)
		if err != nil {
			h.renderError(c, err)
			return
		}
		c.JSON(http.StatusOK, summaryJSON(total))
		return
	}

	summaries, err := report.WeeklySummaries(fiche, h.calc)
	if err != nil {
		h.renderError(c, err)
		return
	}

	out := make([]gin.H, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, summaryJSON(s))
	}
	c.JSON(http.StatusOK, gin.H{"weeks": out})
}

// Urgency classifies a remaining-day count.
func (h *Handler) Urgency(c *gin.Context) {
	days, err := strconv.Atoi(c.Query("days"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "days must be an integer"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"days_remaining": days, "tier": urgency.Classify(days)})
}

// Documents lists the recent generation ledger rows for one fiche.
func (h *Handler) Documents(c *gin.Context) {
	numero := c.Param("numero")
	docs, err := h.repo.GetRecentDocumentsForFiche(c.Request.Context(), numero, 20)
	if err != nil {
		h.logger.Error("failed to list documents", zap.Error(err), zap.String("fiche_number", numero))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list generated documents"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"fiche_number": numero, "documents": docs})
}

// Health reports liveness plus the last 24h generation count.
func (h *Handler) Health(c *gin.Context) {
	count, err := h.repo.CountDocumentsSince(c.Request.Context(), time.Now().Add(-24*time.Hour))
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "documents_24h": count})
}

func summaryJSON(s report.WeekSummary) gin.H {
	return gin.H{
		"week":         s.WeekLabel,
		"day_count":    s.DayCount,
		"total_hours":  s.TotalHours,
		"total_amount": billing.FormatAmount(s.TotalAmount),
	}
}

// renderError maps pipeline failures to status codes: invalid input is the
// caller's problem, a renderer fault is ours.
func (h *Handler) renderError(c *gin.Context, err error) {
	var invalid *billing.InvalidInputError
	if errors.As(err, &invalid) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": invalid.Error()})
		return
	}
	var renderErr *pdfgen.RenderError
	if errors.As(err, &renderErr) {
		h.logger.Error("document generation failed", zap.Error(renderErr))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "document generation failed"})
		return
	}
	h.logger.Error("request failed", zap.Error(err))
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
