// Package ledger owns the inventory ledger: lots and their stock, sales
// orders and pick lines, packing confirmations and both payment ledgers.
package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/jaggery/internal/domain/models"
	"github.com/mamadbah2/jaggery/internal/repository"
)

// Recorder receives the outcome of every ledger mutation.
type Recorder interface {
	Observe(operation string, err error)
	StockMoved(kind string, kg decimal.Decimal)
}

type nopRecorder struct{}

func (nopRecorder) Observe(string, error)              {}
func (nopRecorder) StockMoved(string, decimal.Decimal) {}

// Service implements the ledger operations on top of a repository.Store.
type Service struct {
	store            repository.Store
	logger           *zap.Logger
	metrics          Recorder
	now              func() time.Time
	newID            func() string
	defaultBagWeight decimal.Decimal
}

// Option customises a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides identifier generation.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// WithDefaultBagWeight sets the bag weight used until one is stored in settings.
func WithDefaultBagWeight(kg decimal.Decimal) Option {
	return func(s *Service) {
		if kg.IsPositive() {
			s.defaultBagWeight = kg
		}
	}
}

// WithMetrics attaches a Recorder.
func WithMetrics(r Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.metrics = r
		}
	}
}

// NewService wires a ledger service.
func NewService(store repository.Store, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		store:            store,
		logger:           logger,
		metrics:          nopRecorder{},
		now:              time.Now,
		newID:            uuid.NewString,
		defaultBagWeight: decimal.NewFromInt(30),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) observe(op string, err error) {
	s.metrics.Observe(op, err)
	if err != nil {
		s.logger.Debug("ledger operation rejected", zap.String("op", op), zap.Error(err))
	}
}

func (s *Service) timestamp() time.Time {
	return s.now().UTC()
}

// dateOrToday returns the calendar day of t, or of now when t is zero.
func (s *Service) dateOrToday(t time.Time) time.Time {
	if t.IsZero() {
		t = s.timestamp()
	}
	return models.CalendarDay(t)
}
