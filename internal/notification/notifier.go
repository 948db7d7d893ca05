package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/iyhunko/price-tracker/internal/metrics"
	"github.com/iyhunko/price-tracker/internal/sqs"
)

// ErrIncompleteAlert is returned for price drop messages without both prices.
var ErrIncompleteAlert = errors.New("price drop message misses old or new price")

// Alert e-mail outcomes.
const (
	outcomeSent   = "sent"
	outcomeFailed = "failed"
)

// Notifier turns product messages into e-mails.
type Notifier struct {
	sender            Sender
	defaultRecipients []string
}

// NewNotifier creates a Notifier. defaultRecipients are used when a message names none.
func NewNotifier(sender Sender, defaultRecipients ...string) *Notifier {
	return &Notifier{
		sender:            sender,
		defaultRecipients: defaultRecipients,
	}
}

// Handle processes one product message. Only price drops produce e-mails.
// It fails only when every recipient failed, so partial deliveries are not repeated.
func (n *Notifier) Handle(ctx context.Context, msg sqs.ProductMessage) error {
	if msg.Action != sqs.ActionPriceDropped {
		slog.Info("Product event needs no notification",
			slog.String("action", msg.Action),
			slog.String("product_id", msg.ProductID))
		return nil
	}
	if msg.Price == nil || msg.OldPrice == nil {
		return ErrIncompleteAlert
	}

	email, err := ComposePriceAlert(PriceAlert{
		ProductName: msg.Name,
		ProductURL:  msg.URL,
		OldPrice:    *msg.OldPrice,
		NewPrice:    *msg.Price,
	})
	if err != nil {
		return err
	}

	recipients := msg.Recipients
	if len(recipients) == 0 {
		recipients = n.defaultRecipients
	}
	if len(recipients) == 0 {
		slog.Warn("Price drop without recipients", slog.String("product_id", msg.ProductID))
		return nil
	}

	var errs []error
	for _, to := range recipients {
		if err := n.sender.Send(ctx, to, email); err != nil {
			metrics.AlertEmailsSent.WithLabelValues(outcomeFailed).Inc()
			slog.Error("Failed to send price alert",
				slog.String("product_id", msg.ProductID),
				slog.String("to", to),
				slog.Any("err", err))
			errs = append(errs, err)
			continue
		}
		metrics.AlertEmailsSent.WithLabelValues(outcomeSent).Inc()
		slog.Info("Price alert sent",
			slog.String("product_id", msg.ProductID),
			slog.String("to", to))
	}

	if len(errs) == len(recipients) {
		return fmt.Errorf("price alert for product %s not delivered: %w", msg.ProductID, errors.Join(errs...))
	}
	return nil
}
