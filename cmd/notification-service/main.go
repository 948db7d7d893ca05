package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/iyhunko/price-tracker/internal/config"
	"github.com/iyhunko/price-tracker/internal/logger"
	"github.com/iyhunko/price-tracker/internal/metrics"
	"github.com/iyhunko/price-tracker/internal/notification"
	sqspkg "github.com/iyhunko/price-tracker/internal/sqs"
)

func main() {
	conf, err := config.LoadFromEnv()
	handleErr("loading config", err)
	logger.InitJSONLogger(conf.DebugMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sqsClient, err := sqspkg.NewClient(ctx, conf.AWS)
	handleErr("creating SQS client", err)

	if err := run(ctx, conf, sqsClient); err != nil {
		handleErr("consuming messages", err)
	}
	slog.Info("Shutting down gracefully...")
}

// run serves metrics and consumes product messages until ctx is cancelled.
func run(ctx context.Context, conf *config.Config, queue sqspkg.ConsumerAPI) error {
	metrics.StartMetricsServer(ctx, conf)

	var defaultRecipients []string
	if conf.SMTP.AlertRecipient != "" {
		defaultRecipients = append(defaultRecipients, conf.SMTP.AlertRecipient)
	}
	notifier := notification.NewNotifier(notification.NewSender(conf.SMTP), defaultRecipients...)
	consumer := sqspkg.NewConsumer(queue, conf.AWS.SQSQueueURL, notifier.Handle)

	slog.Info("Notification service started. Listening for messages...")
	if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func handleErr(msg string, err error) {
	if err != nil {
		slog.Error("fatal error", slog.String("while", msg), slog.Any("err", err))
		os.Exit(1)
	}
}
