package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	appamqp "expensify/internal/amqp"
	"expensify/internal/config"
	applog "expensify/internal/log"
	"expensify/internal/notify"
)

// The notifier consumes expense-created events and mails a short note per
// expense to the configured recipient. It runs alongside the API server
// and shares its queue configuration.
func main() {
	_ = godotenv.Load()

	logger := applog.New(applog.FromEnv())
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the notifier")
		os.Exit(1)
	}
	if cfg.SMTPHost == "" || cfg.SummaryTo == "" {
		logger.Error("SMTP_HOST and SUMMARY_TO are required for the notifier")
		os.Exit(1)
	}

	mailer, err := notify.NewMailer(notify.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	})
	if err != nil {
		logger.Error("Failed to initialize mailer", "error", err)
		os.Exit(1)
	}

	client, err := appamqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting expensify-notifier", "queue", cfg.AMQPQueue, "to", cfg.SummaryTo)

	handler := func(msg *appamqp.ExpenseCreatedMessage) error {
		subject := notify.ExpenseCreatedSubject(msg)
		body := notify.ExpenseCreatedBody(msg)
		if err := mailer.Send(ctx, cfg.SummaryTo, subject, body, nil); err != nil {
			return fmt.Errorf("notify %s: %w", msg.ID, err)
		}
		logger.Info("Expense notification sent", "id", msg.ID, "to", cfg.SummaryTo)
		return nil
	}

	if err := client.ConsumeExpenseCreated(ctx, handler); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Notifier stopped gracefully")
}
