// Package scheduler runs the periodic reconciliation export.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/jaggery/internal/domain/models"
)

// Snapshotter builds a reconciliation snapshot from the current ledger.
type Snapshotter interface {
	Snapshot(ctx context.Context) (models.ReconciliationSnapshot, error)
}

// SnapshotSaver archives snapshots.
type SnapshotSaver interface {
	SaveSnapshot(ctx context.Context, snap models.ReconciliationSnapshot) error
}

// Exporter publishes a snapshot outside the ledger, e.g. to Google Sheets.
type Exporter interface {
	Export(ctx context.Context, snap models.ReconciliationSnapshot) error
}

// Notifier tells operators about a snapshot.
type Notifier interface {
	Notify(ctx context.Context, snap models.ReconciliationSnapshot) error
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron      *cron.Cron
	schedule  string
	snapshots Snapshotter
	saver     SnapshotSaver
	exporter  Exporter
	notifier  Notifier
	timeout   time.Duration
	logger    *zap.Logger
}

// Option configures optional destinations.
type Option func(*Scheduler)

// WithSaver archives every snapshot.
func WithSaver(saver SnapshotSaver) Option {
	return func(s *Scheduler) { s.saver = saver }
}

// WithExporter exports every snapshot.
func WithExporter(exporter Exporter) Option {
	return func(s *Scheduler) { s.exporter = exporter }
}

// WithNotifier announces every snapshot.
func WithNotifier(notifier Notifier) Option {
	return func(s *Scheduler) { s.notifier = notifier }
}

// NewScheduler creates a scheduler running schedule in loc.
func NewScheduler(schedule string, loc *time.Location, snapshots Snapshotter, logger *zap.Logger, opts ...Option) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.Local
	}

	s := &Scheduler{
		cron:      cron.New(cron.WithLocation(loc)),
		schedule:  schedule,
		snapshots: snapshots,
		timeout:   2 * time.Minute,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start registers the reconciliation job and starts the cron loop.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler", zap.String("schedule", s.schedule))

	if _, err := s.cron.AddFunc(s.schedule, s.runJob); err != nil {
		return fmt.Errorf("schedule reconciliation export: %w", err)
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runJob() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if _, err := s.RunOnce(ctx); err != nil {
		s.logger.Error("reconciliation export failed", zap.Error(err))
	}
}

// RunOnce takes a snapshot and hands it to every configured destination.
// A failing destination does not stop the others.
func (s *Scheduler) RunOnce(ctx context.Context) (models.ReconciliationSnapshot, error) {
	snap, err := s.snapshots.Snapshot(ctx)
	if err != nil {
		return models.ReconciliationSnapshot{}, fmt.Errorf("build snapshot: %w", err)
	}
	s.logger.Info("reconciliation snapshot built",
		zap.String("snapshot_id", snap.ID),
		zap.String("farmer_dues", snap.Dashboard.FarmerDues.StringFixed(2)),
		zap.String("customer_dues", snap.Dashboard.CustomerDues.StringFixed(2)),
	)

	var errs []error
	if s.saver != nil {
		if err := s.saver.SaveSnapshot(ctx, snap); err != nil {
			errs = append(errs, fmt.Errorf("save snapshot: %w", err))
		}
	}
	if s.exporter != nil {
		if err := s.exporter.Export(ctx, snap); err != nil {
			errs = append(errs, fmt.Errorf("export snapshot: %w", err))
		}
	}
	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, snap); err != nil {
			errs = append(errs, fmt.Errorf("notify: %w", err))
		}
	}
	return snap, errors.Join(errs...)
}
