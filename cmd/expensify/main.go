package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	appamqp "expensify/internal/amqp"
	"expensify/internal/analyze"
	"expensify/internal/backend"
	"expensify/internal/config"
	"expensify/internal/core"
	"expensify/internal/filestore"
	apphttp "expensify/internal/http"
	applog "expensify/internal/log"
	"expensify/internal/notify"
	"expensify/internal/services"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.FromEnv())
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	store, err := backend.NewFactory(logger.Logger).CreateStore(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize record store", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	if store.Cleanup != nil {
		defer func() {
			if err := store.Cleanup(); err != nil {
				logger.Error("Store cleanup failed", "error", err)
			}
		}()
	}

	files, err := filestore.New(cfg.UploadDir, cfg.PublicBaseURL)
	if err != nil {
		logger.Error("Failed to initialize upload directory", "error", err, "dir", cfg.UploadDir)
		os.Exit(1)
	}

	// AMQP and SMTP are optional: a broken broker or mail server must not
	// keep expenses from being recorded.
	var publisher services.Publisher
	if cfg.AMQPURL != "" {
		client, err := appamqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, created events will not be published", "error", err)
		} else {
			defer client.Close()
			publisher = client
			logger.Info("AMQP publisher initialized", "exchange", cfg.AMQPExchange)
		}
	}

	var mailer apphttp.SummarySender
	if cfg.SMTPHost != "" {
		m, err := notify.NewMailer(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
		if err != nil {
			logger.Warn("SMTP unavailable, summary mail disabled", "error", err)
		} else {
			mailer = m
			logger.Info("SMTP mailer initialized", "host", cfg.SMTPHost)
			if publisher == nil && cfg.SummaryTo != "" {
				// No broker: mail created-expense notes directly.
				publisher = notify.NewDirectNotifier(m, cfg.SummaryTo)
				logger.Info("Direct expense notifications enabled", "to", cfg.SummaryTo)
			}
		}
	}

	var analyzer apphttp.ReceiptAnalyzer
	if cfg.GeminiAPIKey != "" {
		g, err := analyze.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			logger.Warn("Gemini unavailable, receipt analysis disabled", "error", err)
		} else {
			defer g.Close()
			analyzer = g
			logger.Info("Receipt analysis enabled")
		}
	}

	statuses := make([]core.Status, 0, len(cfg.ReportStatuses))
	for _, s := range cfg.ReportStatuses {
		statuses = append(statuses, core.Status(s))
	}

	svc := services.NewExpenseService(services.Config{
		Store:           store.Store,
		Files:           files,
		Publisher:       publisher,
		FX:              core.ParseFXRates(cfg.FXRatesCHFJSON),
		DefaultCurrency: cfg.DefaultCurrency,
		DefaultStatuses: statuses,
	})

	srv := apphttp.NewServer(apphttp.Options{
		Addr:           ":" + cfg.Port,
		Service:        svc,
		Mailer:         mailer,
		Analyzer:       analyzer,
		SummaryTo:      cfg.SummaryTo,
		UploadDir:      files.Dir(),
		AllowedOrigin:  cfg.AllowedOrigin,
		MaxUploadBytes: cfg.MaxUploadBytes,
		Version:        version,
		Logger:         logger.WithComponent(applog.ComponentHTTP),
	})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting expensify server", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
