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

	"golang.org/x/sync/errgroup"

	"github.com/go-chi/chi/v5"
	chi_middleware "github.com/go-chi/chi/v5/middleware"

	// Platform packages
	"github.com/AradIT/sipmask/internal/platform/config"
	platformcrypto "github.com/AradIT/sipmask/internal/platform/crypto"
	"github.com/AradIT/sipmask/internal/platform/database"
	"github.com/AradIT/sipmask/internal/platform/logger"
	"github.com/AradIT/sipmask/internal/platform/messagebroker"

	// Masking service packages
	"github.com/AradIT/sipmask/internal/masking_service/adapters/ami"
	maskingApp "github.com/AradIT/sipmask/internal/masking_service/app"
	"github.com/AradIT/sipmask/internal/masking_service/middleware"
	"github.com/AradIT/sipmask/internal/masking_service/repository/postgres"
	maskingHTTP "github.com/AradIT/sipmask/internal/masking_service/transport/http"
)

const (
	serviceName     = "masking_service"
	shutdownTimeout = 15 * time.Second
)

func main() {
	mainCtx, mainCancel := context.WithCancel(context.Background())
	defer mainCancel()

	// Load Configuration
	cfg, err := config.Load(serviceName)
	if err != nil {
		slog.Error("Failed to load configuration", "service", serviceName, "error", err)
		os.Exit(1)
	}

	// Initialize Logger
	appLogger := logger.New(cfg.LogLevel, cfg.LogFormat)
	appLogger = appLogger.With("service", serviceName)
	appLogger.Info("Starting service...")

	appLogger.Info("Configuration loaded",
		"log_level", cfg.LogLevel,
		"nats_url", cfg.NATSUrl,
		"postgres_dsn_present", cfg.PostgresDSN != "",
		"ami_endpoint", fmt.Sprintf("%s:%d", cfg.AMIHost, cfg.AMIPort),
		"http_port", cfg.HTTPPort,
	)

	// Initialize Database
	dbPool, err := database.NewDBPool(mainCtx, cfg.PostgresDSN, appLogger)
	if err != nil {
		appLogger.Error("Failed to initialize database connection pool", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	// Initialize NATS Client (optional: notifications are best-effort)
	var natsClient *messagebroker.NatsClient
	if cfg.NATSUrl != "" {
		natsClient, err = messagebroker.NewNatsClient(cfg.NATSUrl, appLogger, serviceName)
		if err != nil {
			appLogger.Error("Failed to connect to NATS; notifications disabled", "url", cfg.NATSUrl, "error", err)
			natsClient = nil
		} else {
			defer natsClient.Close()
			appLogger.Info("NATS client connected", "url", cfg.NATSUrl)
		}
	} else {
		appLogger.Info("NATS URL not configured, notifications disabled")
	}

	// Initialize the mirror cipher
	cipher, err := platformcrypto.NewCipher(cfg.FernetKey)
	if err != nil {
		appLogger.Error("Failed to initialize fernet cipher; set SIPMASK_FERNET_KEY", "error", err)
		os.Exit(1)
	}

	// Setup application components
	maskRepo := postgres.NewPgMaskRepository(dbPool, appLogger)
	vendorRepo := postgres.NewPgVendorRepository(dbPool, appLogger)
	commandLogRepo := postgres.NewPgCommandLogRepository(dbPool, appLogger)

	amiClient := ami.NewClient(ami.Config{
		Host:          cfg.AMIHost,
		Port:          cfg.AMIPort,
		Username:      cfg.AMIUsername,
		Secret:        cfg.AMISecret,
		ReadTimeout:   cfg.AMIReadTimeout,
		ActionTimeout: cfg.AMIActionTimeout,
	}, appLogger)

	var notifier maskingApp.Notifier
	if natsClient != nil {
		notifier = natsClient
	}

	maskingService := maskingApp.NewMaskingService(
		maskRepo, vendorRepo, commandLogRepo, amiClient, cipher, notifier, cfg.NotifySubject, appLogger)
	statusService := maskingApp.NewStatusService(amiClient, commandLogRepo, appLogger)

	webhookHandler := maskingHTTP.NewWebhookHandler(maskingService, cfg.WebhookSecret, appLogger)
	statusHandler := maskingHTTP.NewStatusHandler(statusService, appLogger)
	lookupHandler := maskingHTTP.NewLookupHandler(maskingService, appLogger)

	// Router
	r := chi.NewRouter()
	r.Use(chi_middleware.RequestID)
	r.Use(chi_middleware.RealIP)
	r.Use(chi_middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if err := dbPool.Ping(req.Context()); err != nil {
			http.Error(w, "database unreachable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	// Vendor boundary: authenticated by pre-shared secret inside the handler.
	r.Post("/webhook/dialics", webhookHandler.HandleDialicsWebhook)

	// Operator boundary: bearer token + command→roles gate.
	r.Group(func(protected chi.Router) {
		protected.Use(middleware.Authenticate(cfg.JWTAccessSecret, appLogger))
		protected.With(middleware.RequireCommand("sipstatus", appLogger)).
			Get("/api/v1/peers/status", statusHandler.HandlePeerStatus)
		protected.With(middleware.RequireCommand("mask_lookup", appLogger)).
			Get("/api/v1/masks/{code}", lookupHandler.HandleMaskLookup)
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second, // AMI exchanges can take a while
	}

	g, groupCtx := errgroup.WithContext(mainCtx)

	g.Go(func() error {
		appLogger.Info("HTTP server starting", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("HTTP server failed to serve", "error", err)
			return err
		}
		return nil
	})

	// Termination signal handling
	g.Go(func() error {
		stopSignal := make(chan os.Signal, 1)
		signal.Notify(stopSignal, syscall.SIGINT, syscall.SIGTERM)
		select {
		case sig := <-stopSignal:
			appLogger.Info("Received termination signal", "signal", sig.String())
			mainCancel()
			return nil
		case <-groupCtx.Done():
			return nil
		}
	})

	// Graceful HTTP shutdown
	g.Go(func() error {
		<-groupCtx.Done()
		appLogger.Info("Initiating graceful shutdown of HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			appLogger.Error("HTTP server shutdown failed", "error", err)
			return err
		}
		appLogger.Info("HTTP server has been shut down gracefully.")
		return nil
	})

	appLogger.Info("Service is ready and running.")

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		appLogger.Error("Service group encountered an error", "error", err)
	}

	appLogger.Info("Service shutdown complete.")
}
