package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/jaggery/internal/config"
	"github.com/mamadbah2/jaggery/internal/metrics"
	"github.com/mamadbah2/jaggery/internal/repository"
	"github.com/mamadbah2/jaggery/internal/repository/memory"
	"github.com/mamadbah2/jaggery/internal/repository/mongodb"
	"github.com/mamadbah2/jaggery/internal/repository/postgres"
	"github.com/mamadbah2/jaggery/internal/repository/sheets"
	"github.com/mamadbah2/jaggery/internal/scheduler"
	"github.com/mamadbah2/jaggery/internal/server/handlers"
	"github.com/mamadbah2/jaggery/internal/server/router"
	ledgersvc "github.com/mamadbah2/jaggery/internal/service/ledger"
	reportingsvc "github.com/mamadbah2/jaggery/internal/service/reporting"
	whatsappsvc "github.com/mamadbah2/jaggery/internal/service/whatsapp"
	whatsappclient "github.com/mamadbah2/jaggery/pkg/clients/whatsapp"
	"github.com/mamadbah2/jaggery/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Log.Level))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	store, err := openStore(startCtx, cfg, baseLogger)
	cancelStart()
	if err != nil {
		baseLogger.Fatal("failed to init ledger store", zap.String("backend", cfg.Store.Backend), zap.Error(err))
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			baseLogger.Error("failed to close ledger store", zap.Error(err))
		}
	}()

	recorder := metrics.NewLedger()
	ledgerSvc := ledgersvc.NewService(store, baseLogger.Named("svc.ledger"),
		ledgersvc.WithDefaultBagWeight(cfg.Ledger.DefaultBagWeightKg),
		ledgersvc.WithMetrics(recorder))
	reportingSvc := reportingsvc.NewService(store, baseLogger.Named("svc.reporting"))

	sched, err := newScheduler(cfg, store, reportingSvc, baseLogger)
	if err != nil {
		baseLogger.Fatal("failed to init scheduler", zap.Error(err))
	}
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	archive, _ := store.(handlers.SnapshotArchive)
	engine := router.New(router.Handlers{
		MasterData: handlers.NewMasterDataHandler(ledgerSvc, baseLogger.Named("handlers.masterdata")),
		Ledger:     handlers.NewLedgerHandler(ledgerSvc, baseLogger.Named("handlers.ledger")),
		Reports:    handlers.NewReportHandler(reportingSvc, sched, archive, baseLogger.Named("handlers.reports")),
		Metrics:    recorder.Handler(),
	}, baseLogger.Named("router"))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port), zap.String("backend", cfg.Store.Backend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}

// openStore connects the configured backend. Every backend also archives
// reconciliation snapshots.
func openStore(ctx context.Context, cfg *config.Config, base *zap.Logger) (repository.Store, error) {
	switch cfg.Store.Backend {
	case config.BackendMongoDB:
		store, err := mongodb.Connect(ctx, cfg.MongoDB.URI, cfg.MongoDB.DBName, base.Named("repo.mongodb"))
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.BackendPostgres:
		store, err := postgres.Open(ctx, cfg.Postgres.DSN, base.Named("repo.postgres"))
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.BackendMemory:
		base.Warn("using in-memory ledger store, data is lost on restart")
		return memory.New(base.Named("repo.memory")), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

func newScheduler(cfg *config.Config, store repository.Store, reporting *reportingsvc.Service, base *zap.Logger) (*scheduler.Scheduler, error) {
	loc, err := time.LoadLocation(cfg.Reporting.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %s: %w", cfg.Reporting.Timezone, err)
	}

	var opts []scheduler.Option
	if saver, ok := store.(scheduler.SnapshotSaver); ok {
		opts = append(opts, scheduler.WithSaver(saver))
	}
	if cfg.Sheets.Enabled() {
		repo, err := sheets.NewGoogleSheetRepository(context.Background(), cfg.Sheets, base.Named("repo.sheets"))
		if err != nil {
			return nil, fmt.Errorf("init sheets repository: %w", err)
		}
		opts = append(opts, scheduler.WithExporter(sheets.NewSnapshotExporter(repo, base.Named("sheets.exporter"))))
	}
	if cfg.WhatsApp.Enabled() {
		messaging := whatsappsvc.NewMetaWhatsAppService(whatsappclient.NewClient(cfg.WhatsApp), base.Named("svc.whatsapp"))
		opts = append(opts, scheduler.WithNotifier(whatsappsvc.NewDuesNotifier(messaging, cfg.WhatsApp.Recipient)))
	}

	return scheduler.NewScheduler(cfg.Reporting.CronSchedule, loc, reporting, base.Named("scheduler"), opts...), nil
}
