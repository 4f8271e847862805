// Command notifier consumes exchange lifecycle events from Kafka and sends emails.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/swapbnb/api/internal/config"
	"github.com/swapbnb/api/internal/database"
	"github.com/swapbnb/api/internal/email"
	"github.com/swapbnb/api/internal/events"
	"github.com/swapbnb/api/internal/logging"
	"github.com/swapbnb/api/internal/notify"
	"github.com/swapbnb/api/internal/user"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Notifier error: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if !cfg.Kafka.Enabled() {
		return errors.New("KAFKA_BROKERS is not set")
	}

	logger := logging.NewLogger(cfg.Server.IsDevelopment())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	emailService := email.NewService(
		cfg.Email.SMTPHost,
		cfg.Email.SMTPPort,
		cfg.Email.SMTPUser,
		cfg.Email.SMTPPassword,
		cfg.Email.FromAddress,
		cfg.Email.FrontendURL,
	)
	notifier := notify.NewNotifier(user.NewRepository(db), emailService, logger)

	consumer := events.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID, notifier, logger)
	defer consumer.Close()

	logger.Info("notifier started", "topic", cfg.Kafka.Topic, "group_id", cfg.Kafka.GroupID)
	if err := consumer.Run(ctx); err != nil {
		return fmt.Errorf("consumer stopped: %w", err)
	}
	logger.Info("notifier stopped")
	return nil
}
