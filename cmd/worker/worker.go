package main

import (
	"context"
	"os"

	"github.com/eterdtx/pointage-worker/internal/api"
	"github.com/eterdtx/pointage-worker/internal/billing"
	"github.com/eterdtx/pointage-worker/internal/config"
	"github.com/eterdtx/pointage-worker/internal/db"
	"github.com/eterdtx/pointage-worker/internal/mq"
	"github.com/eterdtx/pointage-worker/internal/pdfgen"
	"github.com/eterdtx/pointage-worker/internal/repository"
	"github.com/eterdtx/pointage-worker/internal/service"
	"github.com/eterdtx/pointage-worker/internal/validator"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func startWorker(
	lc fx.Lifecycle,
	conn *mq.Connection,
	cfg *config.Config,
	logger *zap.Logger,
	processor *service.ProcessorService,
) error {
	// Create context for consumer that will be cancelled on shutdown
	ctx, cancel := context.WithCancel(context.Background())

	consumer, err := mq.NewConsumer(mq.ConsumerConfig{
		Connection:    conn,
		Queue:         cfg.RabbitMQ.RenderQueue,
		DLQQueue:      cfg.RabbitMQ.DLQQueue,
		Exchange:      cfg.RabbitMQ.RenderExchange,
		RoutingKey:    cfg.RabbitMQ.RenderRoutingKey,
		PrefetchCount: cfg.RabbitMQ.PrefetchCount,
		Logger:        logger,
		Handler:       processor.ProcessMessage,
	})
	if err != nil {
		cancel()
		return err
	}

	// Register lifecycle hooks
	lc.Append(fx.Hook{
		OnStart: func(startCtx context.Context) error {
			logger.Info("starting render consumer",
				zap.String("queue", cfg.RabbitMQ.RenderQueue),
				zap.Int("prefetch", cfg.RabbitMQ.PrefetchCount))
			return consumer.Start(ctx)
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			if err := consumer.Close(); err != nil {
				logger.Error("failed to close consumer", zap.Error(err))
				return err
			}
			logger.Info("worker stopped gracefully")
			return nil
		},
	})

	return nil
}

func startHTTPServer(lc fx.Lifecycle, logger *zap.Logger, cfg *config.Config, h *api.Handler) {
	api.NewServer(lc, logger, cfg.HTTP.Port, h)
}

// ProvideRepository creates a new repository instance
func ProvideRepository(pool *pgxpool.Pool) *repository.Repository {
	return repository.NewRepository(pool)
}

// ProvideCalculator creates a new billing calculator instance
func ProvideCalculator(cfg *config.Config) *billing.Calculator {
	return billing.NewCalculator(cfg.Billing.NominalHoursPerDay)
}

// ProvideValidator creates a new fiche validator instance
func ProvideValidator(cfg *config.Config) *validator.Validator {
	return validator.NewValidator(cfg.Billing.MaxDailyHours)
}

// ProvideRenderer creates the PDF renderer and makes sure its output
// directory exists before the first render request lands.
func ProvideRenderer(cfg *config.Config, logger *zap.Logger) (*pdfgen.Renderer, error) {
	if cfg.Render.OutputDir != "" {
		if err := os.MkdirAll(cfg.Render.OutputDir, 0o755); err != nil {
			return nil, err
		}
	}
	return pdfgen.NewRenderer(pdfgen.Options{
		OutputDir: cfg.Render.OutputDir,
		LogoPath:  cfg.Render.LogoPath,
		OrgLine1:  cfg.Render.OrgLine1,
		OrgLine2:  cfg.Render.OrgLine2,
	}, logger), nil
}

// ProvidePublisher creates a new publisher instance
func ProvidePublisher(conn *mq.Connection, cfg *config.Config, logger *zap.Logger) (*mq.Publisher, error) {
	return mq.NewPublisher(conn, cfg.RabbitMQ.DocumentExchange, logger)
}

// ProvideProcessorService creates a new processor service instance
func ProvideProcessorService(
	repo *repository.Repository,
	publisher *mq.Publisher,
	validator *validator.Validator,
	calc *billing.Calculator,
	renderer *pdfgen.Renderer,
	cfg *config.Config,
	logger *zap.Logger,
) *service.ProcessorService {
	return service.NewProcessorService(repo, publisher, validator, calc, renderer, cfg, logger)
}

// ProvideAPIHandler creates the HTTP handler set
func ProvideAPIHandler(
	processor *service.ProcessorService,
	repo *repository.Repository,
	calc *billing.Calculator,
	logger *zap.Logger,
) *api.Handler {
	return api.NewHandler(processor, repo, calc, logger)
}

// ProvideDBPool creates a new database pool instance
func ProvideDBPool(lc fx.Lifecycle, logger *zap.Logger, cfg *config.Config) (*pgxpool.Pool, error) {
	return db.NewPool(lc, logger, cfg.Database.URL)
}

// ProvideMQConnection creates a new RabbitMQ connection instance
func ProvideMQConnection(lc fx.Lifecycle, logger *zap.Logger, cfg *config.Config) (*mq.Connection, error) {
	return mq.NewConnection(lc, logger, cfg.RabbitMQ.URL)
}
