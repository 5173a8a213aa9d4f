package cli

import (
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/shopspring/decimal"

	"github.com/mmynk/sususave/internal/audit"
	"github.com/mmynk/sususave/internal/config"
	"github.com/mmynk/sususave/internal/engine"
	"github.com/mmynk/sususave/internal/gateway"
	"github.com/mmynk/sususave/internal/kyc"
	"github.com/mmynk/sususave/internal/metrics"
	"github.com/mmynk/sususave/internal/notifier"
	"github.com/mmynk/sususave/internal/scheduler"
	"github.com/mmynk/sususave/internal/storage/sqlite"
)

// mockWalletBalance funds every wallet of the mock gateway.
var mockWalletBalance = decimal.NewFromInt(10_000)

// app is the wired engine shared by every command in one process.
type app struct {
	cfg      *config.Config
	store    *sqlite.SQLiteStore
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	sms      *notifier.Async
	payments *engine.PaymentOrchestrator
	payouts  *engine.PayoutOrchestrator
	groups   *engine.GroupManager
	sweeper  *scheduler.Sweeper
}

func newApp(cfg *config.Config) (*app, error) {
	store, err := sqlite.New(cfg.Database.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	slog.Info("storage initialized", "database", cfg.Database.SQLitePath)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	var gw gateway.Gateway
	switch cfg.Gateway.Driver {
	case config.GatewayMoMo:
		gw = gateway.NewMoMoClient(gateway.MoMoConfig{
			BaseURL:  cfg.Gateway.BaseURL,
			APIKey:   cfg.Gateway.APIKey,
			Currency: cfg.Gateway.Currency,
			Timeout:  cfg.Gateway.Timeout,
		})
	default:
		slog.Warn("using the in-memory mock gateway; no real money moves")
		gw = gateway.NewMock(mockWalletBalance)
	}

	var sink notifier.Sink = notifier.LogSink{}
	if cfg.Notifier.Driver == config.NotifierWebhook {
		sink = notifier.NewWebhookSink(cfg.Notifier.WebhookURL, cfg.Notifier.Timeout)
	}
	sms := notifier.NewAsync(sink, cfg.Notifier.QueueSize, m)

	deps := engine.Deps{
		Store:    store,
		Gateway:  gw,
		Notifier: sms,
		Feed:     notifier.NewFeed(store),
		Audit:    audit.NewStoreRecorder(store),
		KYC:      kyc.NewStoreGate(store, cfg.Payouts.RequireKYC),
		Metrics:  m,
	}
	payments := engine.NewPaymentOrchestrator(deps, engine.Options{
		MaxPaymentRetries: cfg.Payments.MaxRetries,
		RetryBackoff:      cfg.Payments.RetryBackoff,
	})
	payouts := engine.NewPayoutOrchestrator(deps, engine.Options{
		MaxPayoutAttempts: cfg.Payouts.MaxRetries,
	})

	return &app{
		cfg:      cfg,
		store:    store,
		registry: registry,
		metrics:  m,
		sms:      sms,
		payments: payments,
		payouts:  payouts,
		groups:   engine.NewGroupManager(deps),
		sweeper:  scheduler.NewSweeper(store, payments, payouts, m),
	}, nil
}

// Close flushes queued notifications and closes the store.
func (a *app) Close() {
	a.sms.Close()
	if err := a.store.Close(); err != nil {
		slog.Error("failed to close storage", "error", err)
	}
}
