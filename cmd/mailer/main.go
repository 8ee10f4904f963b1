package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"eduplatform-backend/config"
	"eduplatform-backend/events"
	"eduplatform-backend/internal/bootstrap"
	"eduplatform-backend/log"
)

// mailer drains the mail queue and delivers through the configured provider.
func main() {
	flag.Parse()
	cfg := config.Load()
	log.EnsureLogger(cfg.Debug)
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sender, err := bootstrap.Sender(cfg)
	if err != nil {
		log.Logger.Fatal("failed setting up mail", zap.Error(err))
	}

	e, err := events.Connect(cfg.RabbitMQConnString)
	if err != nil {
		log.Logger.Fatal("failed connecting to rabbitmq", zap.Error(err))
	}
	defer e.Close()

	log.Logger.Info("mailer started", zap.String("backend", cfg.MailBackend))
	if err := events.ConsumeMail(ctx, e, sender); err != nil && ctx.Err() == nil {
		log.Logger.Fatal("mail consumer stopped", zap.Error(err))
	}
	log.Logger.Info("mailer stopped")
}
