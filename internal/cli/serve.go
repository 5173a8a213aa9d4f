package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/spf13/cobra"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/sususave/internal/auth"
	"github.com/mmynk/sususave/internal/metrics"
	"github.com/mmynk/sususave/internal/middleware"
	"github.com/mmynk/sususave/internal/scheduler"
	"github.com/mmynk/sususave/internal/service"
	"github.com/mmynk/sususave/pkg/api/apiconnect"
)

const shutdownTimeout = 30 * time.Second

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the RPC server and the sweep scheduler",
	Long: `Start the Connect RPC server, the /metrics endpoint and, unless
schedule.enabled is false, the cron scheduler that runs the daily payment
sweep and the periodic retry and payout sweeps.

Examples:
  susu serve
  susu serve --port 9090 --config /etc/susu/config.yaml`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "listen port; overrides server.port")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.ValidateAuth(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if servePort != 0 {
		cfg.Server.Port = servePort
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var sched *scheduler.Scheduler
	if cfg.Schedule.Enabled {
		sched = scheduler.New(a.sweeper, scheduler.Config{
			PaymentHour:    cfg.Schedule.PaymentCheckHour,
			RetryInterval:  cfg.Schedule.RetryInterval,
			PayoutInterval: cfg.Schedule.PayoutInterval,
		})
		if err := sched.RegisterAll(); err != nil {
			return fmt.Errorf("failed to register sweeps: %w", err)
		}
		sched.Start()
	} else {
		slog.Warn("scheduler disabled; sweeps only run through 'susu sweep'")
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           h2c.NewHandler(a.routes(), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Connect server starting", "address", server.Addr, "url", fmt.Sprintf("http://localhost%s", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if sched != nil {
		sched.Stop(shutdownCtx)
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	slog.Info("server stopped")
	return nil
}

// routes mounts the RPC services, metrics and a health check.
func (a *app) routes() http.Handler {
	jwtManager := auth.NewJWTManager(a.cfg.Auth.JWTSecret, a.cfg.Auth.TokenTTL)
	interceptors := connect.WithInterceptors(
		middleware.RequireAuth(jwtManager),
		middleware.LoggingInterceptor(),
	)

	mux := http.NewServeMux()
	mux.Handle(apiconnect.NewGroupServiceHandler(service.NewGroupService(a.store, a.groups, a.payouts), interceptors))
	mux.Handle(apiconnect.NewPaymentServiceHandler(service.NewPaymentService(a.store, a.payments), interceptors))
	mux.Handle(apiconnect.NewPayoutServiceHandler(service.NewPayoutService(a.store, a.payouts), interceptors))
	mux.Handle(apiconnect.NewNotificationServiceHandler(service.NewNotificationService(a.store), interceptors))
	mux.Handle("/metrics", metrics.Handler(a.registry))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return corsMiddleware(mux)
}

// corsMiddleware adds CORS headers for browser access
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, Connect-Protocol-Version, Connect-Timeout-Ms")
		w.Header().Set("Access-Control-Expose-Headers", "Connect-Protocol-Version, Connect-Timeout-Ms")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
