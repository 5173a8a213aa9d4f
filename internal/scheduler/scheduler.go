package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Config is the sweep timetable.
type Config struct {
	// PaymentHour is the hour of day (0-23) of the due-payment sweep.
	PaymentHour int
	// RetryInterval is the period of the payment retry sweep.
	RetryInterval time.Duration
	// PayoutInterval is the period of the payout sweep.
	PayoutInterval time.Duration
	// Location is the time zone of PaymentHour. Defaults to time.Local.
	Location *time.Location
}

// Validate checks the timetable.
func (c Config) Validate() error {
	if c.PaymentHour < 0 || c.PaymentHour > 23 {
		return fmt.Errorf("payment hour must be between 0 and 23, got %d", c.PaymentHour)
	}
	if c.RetryInterval < time.Second {
		return fmt.Errorf("retry interval must be at least 1s, got %s", c.RetryInterval)
	}
	if c.PayoutInterval < time.Second {
		return fmt.Errorf("payout interval must be at least 1s, got %s", c.PayoutInterval)
	}
	return nil
}

// Scheduler runs the sweeps on cron.
type Scheduler struct {
	Cron    *cron.Cron
	sweeper *Sweeper
	cfg     Config
	ctx     context.Context
	cancel  context.CancelFunc
}

// New creates a Scheduler. Jobs run with a context that is cancelled by Stop.
func New(sweeper *Sweeper, cfg Config) *Scheduler {
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	logger := cronLogger{}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		Cron: cron.New(
			cron.WithSeconds(),
			cron.WithLocation(loc),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		sweeper: sweeper,
		cfg:     cfg,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// RegisterAll registers the three sweeps.
func (s *Scheduler) RegisterAll() error {
	if err := s.cfg.Validate(); err != nil {
		return err
	}

	daily := fmt.Sprintf("0 0 %d * * *", s.cfg.PaymentHour)
	if _, err := s.Cron.AddFunc(daily, s.job(SweepPayments, s.sweeper.DuePayments)); err != nil {
		return fmt.Errorf("register payment sweep: %w", err)
	}

	if _, err := s.Cron.AddFunc(every(s.cfg.RetryInterval), s.job(SweepRetries, s.sweeper.RetryPayments)); err != nil {
		return fmt.Errorf("register retry sweep: %w", err)
	}

	if _, err := s.Cron.AddFunc(every(s.cfg.PayoutInterval), s.job(SweepPayouts, s.sweeper.Payouts)); err != nil {
		return fmt.Errorf("register payout sweep: %w", err)
	}

	slog.Info("scheduler registered",
		"payment_sweep", daily,
		"retry_interval", s.cfg.RetryInterval,
		"payout_interval", s.cfg.PayoutInterval,
	)
	return nil
}

// Start starts the cron loop in its own goroutine.
func (s *Scheduler) Start() {
	s.Cron.Start()
	slog.Info("scheduler started")
}

// Stop stops scheduling, cancels running sweeps and waits for them to
// return or for ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.Cron.Stop()
	s.cancel()
	select {
	case <-done.Done():
		slog.Info("scheduler stopped")
	case <-ctx.Done():
		slog.Warn("scheduler stop timed out; sweeps still running")
	}
}

// RunAllNow runs every sweep once in the caller's goroutine.
func (s *Scheduler) RunAllNow(ctx context.Context) ([]Report, error) {
	return s.sweeper.RunAll(ctx)
}

func (s *Scheduler) job(name string, sweep func(context.Context) (Report, error)) func() {
	return func() {
		if _, err := sweep(s.ctx); err != nil {
			slog.Error("sweep failed", "sweep", name, "error", err)
		}
	}
}

func every(d time.Duration) string {
	return "@every " + d.String()
}

// cronLogger routes cron's own logging through slog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	slog.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
