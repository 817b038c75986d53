package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/eterdtx/pointage-worker/internal/billing"
	"github.com/eterdtx/pointage-worker/internal/config"
	"github.com/eterdtx/pointage-worker/internal/db"
	"github.com/eterdtx/pointage-worker/internal/logging"
	"github.com/eterdtx/pointage-worker/internal/mq"
	"github.com/eterdtx/pointage-worker/internal/pdfgen"
	"github.com/eterdtx/pointage-worker/internal/report"
	"github.com/eterdtx/pointage-worker/internal/repository"
	"github.com/eterdtx/pointage-worker/internal/timesheet"
	"github.com/eterdtx/pointage-worker/internal/urgency"
	"github.com/eterdtx/pointage-worker/internal/validator"
	"github.com/eterdtx/pointage-worker/tools/dateparser"
)

// RenderRequest is the incoming render-request message. FicheData carries
// the rental API's fiche payload untouched; Normalize sorts out its shape.
type RenderRequest struct {
	RequestID   string          `json:"request_id"`
	Mode        string          `json:"mode"`
	RequestedBy string          `json:"requested_by"`
	ReceivedAt  time.Time       `json:"received_at"`
	FicheData   json.RawMessage `json:"fiche_data"`
}

// RenderOutcome bundles everything one render produced.
type RenderOutcome struct {
	Fiche       *timesheet.Fiche
	Report      *report.Report
	Artifact    *pdfgen.Artifact
	TotalAmount decimal.Decimal
	UrgencyTier urgency.Tier
	Warnings    []string
}

// ProcessorService runs the render pipeline: normalize, validate, compute,
// build, render, record, announce.
type ProcessorService struct {
	repo      *repository.Repository
	publisher *mq.Publisher
	validator *validator.Validator
	calc      *billing.Calculator
	renderer  *pdfgen.Renderer
	cfg       *config.Config
	logger    *zap.Logger
}

// NewProcessorService creates a new processor service
func NewProcessorService(
	repo *repository.Repository,
	publisher *mq.Publisher,
	validator *validator.Validator,
	calc *billing.Calculator,
	renderer *pdfgen.Renderer,
	cfg *config.Config,
	logger *zap.Logger,
) *ProcessorService {
	return &ProcessorService{
		repo:      repo,
		publisher: publisher,
		validator: validator,
		calc:      calc,
		renderer:  renderer,
		cfg:       cfg,
		logger:    logger,
	}
}

// RenderFromPayload runs the stateless part of the pipeline on a raw fiche
// payload. Used both for queued requests and the on-demand HTTP surface.
func (s *ProcessorService) RenderFromPayload(raw []byte, mode pdfgen.Mode) (*RenderOutcome, error) {
	fiche, err := timesheet.Normalize(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize fiche payload: %w", err)
	}

	if result := s.validator.ValidateFiche(fiche); !result.IsValid {
		return nil, &billing.InvalidInputError{Field: "fiche", Reason: result.Reason}
	} else if len(result.Warnings) > 0 {
		outcomeWarnLog(s.logger, fiche.Number, result.Warnings)
	}

	total, err := s.ficheTotal(fiche)
	if err != nil {
		return nil, err
	}

	rep, err := report.Build(fiche)
	if err != nil {
		return nil, err
	}

	artifact, err := s.renderer.Render(rep, mode)
	if err != nil {
		return nil, err
	}

	outcome := &RenderOutcome{
		Fiche:       fiche,
		Report:      rep,
		Artifact:    artifact,
		TotalAmount: total,
	}
	if !fiche.EngagementEnd.IsZero() {
		days := dateparser.DaysUntil(fiche.EngagementEnd, time.Now())
		outcome.UrgencyTier = urgency.Classify(days)
	}
	return outcome, nil
}

// ficheTotal recomputes every entry amount from the current rate and sums
// them; amounts in the payload are never trusted.
func (s *ProcessorService) ficheTotal(fiche *timesheet.Fiche) (decimal.Decimal, error) {
	amounts := make([]decimal.Decimal, 0, len(fiche.Entries))
	for _, entry := range fiche.Entries {
		amount, err := s.calc.ComputeForDay(fiche.Rate, entry.HoursWorked)
		if err != nil {
			return decimal.Zero, err
		}
		amounts = append(amounts, amount)
	}
	return billing.SumAmounts(amounts), nil
}

// ProcessMessage handles one queued render request end to end.
func (s *ProcessorService) ProcessMessage(ctx context.Context, body []byte) error {
	var msg RenderRequest
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("failed to unmarshal render request: %w", err)
	}

	reqLogger := logging.WithRequestID(s.logger, msg.RequestID)

	mode := pdfgen.Mode(msg.Mode)
	if mode == "" {
		mode = pdfgen.ModeFile
	}

	outcome, err := s.RenderFromPayload(msg.FicheData, mode)
	if err != nil {
		reqLogger.Error("render pipeline failed", zap.Error(err))
		return err
	}

	fiche := outcome.Fiche
	reqLogger = logging.WithFiche(reqLogger, fiche.Number)
	reqLogger.Info("fiche rendered",
		zap.String("filename", outcome.Artifact.Filename),
		zap.Int("entries", len(fiche.Entries)),
		zap.String("total_amount", billing.FormatAmount(outcome.TotalAmount)),
	)

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		reqLogger.Error("failed to begin transaction", zap.Error(err))
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	doc := &db.GeneratedDocument{
		FicheNumber: fiche.Number,
		Filename:    outcome.Artifact.Filename,
		ByteSize:    len(outcome.Artifact.Bytes),
		TotalAmount: billing.FormatAmount(outcome.TotalAmount),
		EntryCount:  len(fiche.Entries),
		OutputMode:  string(mode),
		UrgencyTier: string(outcome.UrgencyTier),
		GeneratedAt: time.Now(),
	}
	if fiche.HasPeriod() {
		start, end := fiche.PeriodStart, fiche.PeriodEnd
		doc.PeriodStart, doc.PeriodEnd = &start, &end
	}

	if fiche.EngagementNumber != "" {
		eng, err := s.repo.GetOrCreateEngagementTx(ctx, tx,
			fiche.EngagementNumber, fiche.Site, fiche.SupplierName,
			doc.PeriodStart, doc.PeriodEnd)
		if err != nil {
			reqLogger.Error("failed to upsert engagement", zap.Error(err))
			return fmt.Errorf("failed to upsert engagement: %w", err)
		}
		doc.EngagementID = &eng.ID
	}

	if err := s.repo.InsertGeneratedDocumentTx(ctx, tx, doc); err != nil {
		reqLogger.Error("failed to record generated document", zap.Error(err))
		return fmt.Errorf("failed to record generated document: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		reqLogger.Error("failed to commit transaction", zap.Error(err))
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	// Publish after a successful commit; a publish failure is logged but
	// does not fail the already-recorded generation.
	event := mq.DocumentEvent{
		RequestID:   msg.RequestID,
		FicheNumber: fiche.Number,
		Engagement:  fiche.EngagementNumber,
		Filename:    doc.Filename,
		ByteSize:    doc.ByteSize,
		TotalAmount: doc.TotalAmount,
		EntryCount:  doc.EntryCount,
		UrgencyTier: doc.UrgencyTier,
		GeneratedAt: doc.GeneratedAt.Format(time.RFC3339),
	}
	if err := s.publisher.PublishDocumentEvent(ctx, event, s.cfg.RabbitMQ.DocumentRoutingKey); err != nil {
		reqLogger.Error("failed to publish document event",
			zap.Error(err),
			zap.String("filename", doc.Filename),
		)
	}

	reqLogger.Info("render request processed successfully")
	return nil
}

func outcomeWarnLog(logger *zap.Logger, ficheNumber string, warnings []string) {
	for _, w := range warnings {
		logging.WithFiche(logger, ficheNumber).Warn("advisory validation warning", zap.String("warning", w))
	}
}
