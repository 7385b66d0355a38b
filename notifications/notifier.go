// Package notifications delivers order confirmations. Delivery failures are
// always swallowed by callers; a lost email never fails an order.
package notifications

import (
	"context"
	"os"

	"github.com/rs/zerolog"

	"github.com/mayurimulay789/e-commerce21-sub001/models"
)

type Notifier interface {
	OrderConfirmed(ctx context.Context, order *models.Order) error
	OrderCancelled(ctx context.Context, order *models.Order) error
}

// LogNotifier records notifications in the log stream. Stands in for the
// external mail collaborator in environments without one configured.
type LogNotifier struct {
	logger zerolog.Logger
}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{
		logger: zerolog.New(os.Stdout).With().Timestamp().Str("component", "notifications").Logger(),
	}
}

func (n *LogNotifier) OrderConfirmed(_ context.Context, order *models.Order) error {
	n.logger.Info().
		Str("order", order.OrderNumber).
		Str("user", order.UserID).
		Float64("total", order.Total).
		Msg("order confirmation notification")
	return nil
}

func (n *LogNotifier) OrderCancelled(_ context.Context, order *models.Order) error {
	n.logger.Info().
		Str("order", order.OrderNumber).
		Str("user", order.UserID).
		Msg("order cancellation notification")
	return nil
}
