// Package event publishes and consumes the POS domain events.
package event

import (
	"context"
	"fmt"
	"log/slog"

	pkgkafka "github.com/SkyToti/SistemaLibreria/pkg/kafka"
)

// DashboardInvalidator drops cached dashboard counters.
type DashboardInvalidator interface {
	Invalidate(ctx context.Context) error
}

// Consumer processes POS events.
type Consumer struct {
	dashboard DashboardInvalidator
	logger    *slog.Logger
}

// NewConsumer creates a new event consumer.
func NewConsumer(dashboard DashboardInvalidator, logger *slog.Logger) *Consumer {
	return &Consumer{
		dashboard: dashboard,
		logger:    logger,
	}
}

// HandleSaleCompleted invalidates the cached dashboard counters so the next
// dashboard read reflects the sale.
func (c *Consumer) HandleSaleCompleted(ctx context.Context, event *pkgkafka.Event) error {
	var data SaleCompletedData
	if err := event.UnmarshalData(&data); err != nil {
		return fmt.Errorf("unmarshal sale.completed data: %w", err)
	}

	if err := c.dashboard.Invalidate(ctx); err != nil {
		return fmt.Errorf("invalidate dashboard after sale %s: %w", data.SaleID, err)
	}

	c.logger.InfoContext(ctx, "dashboard invalidated after sale",
		slog.String("sale_id", data.SaleID),
		slog.String("payment_method", data.PaymentMethod),
		slog.Int("items", len(data.Items)),
	)
	return nil
}

// HandleLowStock records a restock alert for the book.
func (c *Consumer) HandleLowStock(ctx context.Context, event *pkgkafka.Event) error {
	var data LowStockData
	if err := event.UnmarshalData(&data); err != nil {
		return fmt.Errorf("unmarshal inventory.low_stock data: %w", err)
	}

	c.logger.WarnContext(ctx, "book stock below threshold",
		slog.String("book_id", data.BookID),
		slog.Int("stock", data.Stock),
		slog.Int("threshold", data.LowStockThreshold),
	)
	return nil
}
