package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"kesef/internal/domain/extraction"
	"kesef/internal/domain/notification"
	"kesef/internal/domain/reconciliation"
	"kesef/internal/domain/transaction"
	"kesef/internal/infrastructure/firebase"
	"kesef/internal/infrastructure/gcs"
	"kesef/internal/infrastructure/gemini"
	"kesef/internal/infrastructure/postgres"
	"kesef/internal/infrastructure/postgres/listener"
	httphandlers "kesef/internal/interfaces/http"
	"kesef/internal/interfaces/scheduler"
	"kesef/internal/shared/auth"
	"kesef/internal/shared/config"
)

// Dependencies holds all initialized application components.
type Dependencies struct {
	DB *postgres.DB

	// Handlers
	ReconciliationHandler *httphandlers.ReconciliationHandler
	DocumentHandler       *httphandlers.DocumentHandler
	NotificationHandler   *httphandlers.NotificationHandler

	Signer *auth.Signer

	// Background work
	Pool      *scheduler.WorkerPool
	Scheduler *scheduler.Scheduler
	Listener  *listener.DocumentListener

	loader *gcs.Loader
	log    zerolog.Logger
}

// NewDependencies initializes all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Dependencies, error) {
	db, err := postgres.New(cfg.Database.ConnectionString(), postgres.PoolConfig{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnLifetime,
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("host", cfg.Database.Host).Msg("connected to database")

	if cfg.Database.RunMigrations {
		if err := postgres.Migrate(db, log); err != nil {
			db.Close()
			return nil, err
		}
	}

	deps := &Dependencies{DB: db, log: log}

	// Repositories
	transactionRepo := postgres.NewTransactionRepository(db)
	detailRepo := postgres.NewDetailRepository(db)
	documentRepo := postgres.NewDocumentRepository(db)
	notificationRepo := postgres.NewNotificationRepository(db)

	// Push delivery is optional; without credentials notifications are only stored.
	var messenger notification.Messenger
	if cfg.Firebase.CredentialsFile != "" {
		fcm, err := firebase.NewClient(ctx, cfg.Firebase.CredentialsFile, notificationRepo.DeactivateToken, log)
		if err != nil {
			log.Warn().Err(err).Msg("firebase disabled")
		} else {
			messenger = fcm
		}
	}
	notificationService := notification.NewService(notificationRepo, messenger)

	// Reconciliation
	finder := transaction.NewMatchFinder(
		cfg.Reconciliation.MatchThreshold,
		cfg.Reconciliation.MatchLimit,
		cfg.Reconciliation.PoolWindowDays,
	)
	matchService := transaction.NewMatchService(transactionRepo, finder)
	linker := transaction.NewLinker(transactionRepo, detailRepo)
	orchestrator := reconciliation.NewOrchestrator(transactionRepo, documentRepo, notificationService, reconciliation.Options{
		AmountTolerance:   cfg.Reconciliation.AutoAmountTolerance,
		DateToleranceDays: cfg.Reconciliation.AutoDateToleranceDays,
	})

	deps.Pool = scheduler.NewWorkerPool(cfg.Scheduler.WorkerCount, cfg.Scheduler.JobDelay, cfg.Scheduler.QueueSize, log)
	dispatcher := scheduler.NewDispatcher(deps.Pool, orchestrator, cfg.Reconciliation.TriggerDedupeTTL)

	deps.Listener = listener.NewDocumentListener(cfg.Database.ConnectionString(), dispatcher, log)

	if cfg.Scheduler.Enabled {
		sched, err := scheduler.NewScheduler(deps.Pool, scheduler.Config{
			ScheduleTimes: cfg.Scheduler.ScheduleTimes,
			RunOnStartup:  cfg.Scheduler.RunOnStartup,
			JobProvider:   scheduler.SweepJobs(orchestrator),
		}, log)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create scheduler: %w", err)
		}
		deps.Scheduler = sched
	}

	// Extraction is only available with a model key.
	deps.loader = gcs.NewLoader(cfg.Storage.LocalDir)
	if cfg.Gemini.APIKey != "" {
		extractor, err := gemini.NewExtractor(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
		if err != nil {
			db.Close()
			return nil, err
		}
		ingest := extraction.NewService(documentRepo, transactionRepo, deps.loader, extractor, dispatcher)
		deps.DocumentHandler = httphandlers.NewDocumentHandler(ingest)
	} else {
		log.Warn().Msg("GEMINI_API_KEY not set, document ingest disabled")
	}

	deps.Signer = auth.NewSigner(cfg.JWT.Secret)
	deps.ReconciliationHandler = httphandlers.NewReconciliationHandler(matchService, linker)
	deps.NotificationHandler = httphandlers.NewNotificationHandler(notificationService)

	return deps, nil
}

// Start launches the worker pool, the NOTIFY listener and the scheduler.
func (d *Dependencies) Start(ctx context.Context) {
	d.Pool.Start()
	d.Listener.Start(ctx)
	if d.Scheduler != nil {
		d.Scheduler.Start()
	} else {
		d.log.Info().Msg("scheduler is disabled")
	}
}

// Stop halts background work in dependency order: producers first, then the pool.
func (d *Dependencies) Stop(timeout time.Duration) {
	if d.Scheduler != nil {
		d.Scheduler.Shutdown(timeout)
	}
	d.Listener.Stop()
	d.Pool.ShutdownWithTimeout(timeout)
}

// Close releases all resources held by dependencies.
func (d *Dependencies) Close() {
	if d.loader != nil {
		if err := d.loader.Close(); err != nil {
			d.log.Warn().Err(err).Msg("failed to close storage client")
		}
	}
	if d.DB != nil {
		d.DB.Close()
	}
}
