package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/finduo/internal/analyzer"
	"github.com/mmynk/finduo/internal/auth"
	"github.com/mmynk/finduo/internal/config"
	"github.com/mmynk/finduo/internal/domain"
	"github.com/mmynk/finduo/internal/family"
	"github.com/mmynk/finduo/internal/ledger"
	"github.com/mmynk/finduo/internal/metrics"
	"github.com/mmynk/finduo/internal/middleware"
	"github.com/mmynk/finduo/internal/models"
	"github.com/mmynk/finduo/internal/notify"
	"github.com/mmynk/finduo/internal/payday"
	"github.com/mmynk/finduo/internal/service"
	"github.com/mmynk/finduo/internal/session"
	"github.com/mmynk/finduo/internal/storage"
	"github.com/mmynk/finduo/internal/storage/memory"
	"github.com/mmynk/finduo/internal/storage/sqlite"
	"github.com/mmynk/finduo/pkg/logging"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if len(os.Args) > 1 && os.Args[1] == "hash-secret" {
		os.Exit(hashSecret(os.Args[2:]))
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	if err := run(cfg, logger); err != nil {
		logger.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

// hashSecret prints the bcrypt hash to put in FINDUO_BRIDGE_SECRET_HASH.
func hashSecret(args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: server hash-secret <secret>")
		return 2
	}
	hash, err := auth.HashSecret(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "hash-secret: %v\n", err)
		return 1
	}
	fmt.Println(hash)
	return 0
}

func openStore(cfg *config.Config) (storage.Tabular, error) {
	if cfg.StoreDriver == config.DriverMemory {
		return memory.New(), nil
	}
	return sqlite.New(cfg.DBPath)
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec := metrics.NewCollector(reg)

	tab, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer tab.Close()
	logger.Info("Storage initialized", "driver", cfg.StoreDriver, "database", cfg.DBPath)

	store := domain.New(tab, domain.Options{
		Location: cfg.Location,
		Timeout:  cfg.StoreTimeout,
		Defaults: models.DefaultPreferences(cfg.Currency, cfg.Language, cfg.ReminderLeadDays),
		Logger:   logger,
		Metrics:  rec,
	})
	if err := store.EnsureHeaders(ctx); err != nil {
		logger.Warn("could not verify partition headers", "error", err)
	}
	if err := store.Load(ctx); err != nil {
		return fmt.Errorf("load domain store: %w", err)
	}

	book := ledger.NewBook(tab, cfg.Location, cfg.StoreTimeout, logger)
	if err := book.EnsureHeaders(ctx); err != nil {
		logger.Warn("could not verify ledger headers", "error", err)
	}

	outbox := notify.NewOutbox(cfg.OutboxCapacity, logger)
	scheduler := payday.NewScheduler(store, outbox, logger, rec)
	a := analyzer.New(book, store, logger)
	engine := session.NewEngine(session.Deps{
		Store:    store,
		Family:   family.NewManager(store, logger),
		Payday:   scheduler,
		Analyzer: a,
		Ledger:   book,
		Logger:   logger,
		Metrics:  rec,
	})

	limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		PerMinute: cfg.RateLimitPerMinute,
		Burst:     cfg.RateLimitBurst,
	}, logger)
	defer limiter.Stop()

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)
	router := service.NewRouter(service.RouterDeps{
		Sessions:      service.NewSessionService(engine, logger),
		Auth:          service.NewAuthService(auth.NewSecretAuthenticator(cfg.BridgeID, cfg.BridgeSecretHash), jwtManager, logger),
		Reports:       service.NewReportService(a),
		Notifications: service.NewNotificationService(outbox),
		JWTManager:    jwtManager,
		RateLimiter:   limiter,
		Gatherer:      reg,
		Logger:        logger,
	})

	go scheduler.Run(ctx, cfg.ReminderHour, cfg.ReminderMinute)

	// h2c serves HTTP/2 without TLS, which gRPC clients of Connect need.
	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           h2c.NewHandler(router, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Connect server starting", "address", cfg.Addr(), "timezone", cfg.Timezone)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
