package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/SkyToti/SistemaLibreria/internal/domain"
	pkgkafka "github.com/SkyToti/SistemaLibreria/pkg/kafka"
)

// Kafka topics owned by the POS.
const (
	TopicSaleCompleted = pkgkafka.TopicPrefix + ".sale.completed"
	TopicLowStock      = pkgkafka.TopicPrefix + ".inventory.low_stock"
)

// Aggregate types.
const (
	AggregateTypeSale = "sale"
	AggregateTypeBook = "book"
)

// SourcePOS identifies events originating from this service.
const SourcePOS = "libreria-pos"

// SaleCompletedData is the payload for a sale.completed event.
type SaleCompletedData struct {
	SaleID        string              `json:"sale_id"`
	UserID        string              `json:"user_id"`
	TotalAmount   decimal.Decimal     `json:"total_amount"`
	PaymentMethod string              `json:"payment_method"`
	Items         []SaleCompletedItem `json:"items"`
	UpdatedStock  map[string]int      `json:"updated_stock"`
}

// SaleCompletedItem is one sold line in a sale.completed event.
type SaleCompletedItem struct {
	BookID   string `json:"book_id"`
	Quantity int    `json:"quantity"`
}

// LowStockData is the payload for an inventory.low_stock event.
type LowStockData struct {
	BookID            string `json:"book_id"`
	Stock             int    `json:"stock"`
	LowStockThreshold int    `json:"low_stock_threshold"`
}

type publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes POS domain events to Kafka.
type Producer struct {
	kafka  publisher
	logger *slog.Logger
}

// NewProducer creates a new event producer. kafka is usually a
// *pkgkafka.Producer.
func NewProducer(kafka publisher, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishSaleCompleted publishes a sale.completed event.
func (p *Producer) PublishSaleCompleted(ctx context.Context, result *domain.SaleResult) error {
	sale := result.Sale
	data := SaleCompletedData{
		SaleID:        sale.ID,
		UserID:        sale.UserID,
		TotalAmount:   sale.TotalAmount,
		PaymentMethod: sale.PaymentMethod,
		Items:         make([]SaleCompletedItem, 0, len(sale.Items)),
		UpdatedStock:  result.UpdatedStock,
	}
	for _, item := range sale.Items {
		data.Items = append(data.Items, SaleCompletedItem{BookID: item.BookID, Quantity: item.Quantity})
	}

	event, err := pkgkafka.NewEvent(ctx, TopicSaleCompleted, sale.ID, AggregateTypeSale, SourcePOS, data)
	if err != nil {
		return fmt.Errorf("create sale.completed event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicSaleCompleted, event); err != nil {
		return fmt.Errorf("publish sale.completed event: %w", err)
	}

	p.logger.DebugContext(ctx, "published sale.completed event",
		slog.String("sale_id", sale.ID),
	)
	return nil
}

// PublishLowStock publishes an inventory.low_stock event for one book.
func (p *Producer) PublishLowStock(ctx context.Context, bookID string, stock int) error {
	data := LowStockData{
		BookID:            bookID,
		Stock:             stock,
		LowStockThreshold: domain.LowStockThreshold,
	}

	event, err := pkgkafka.NewEvent(ctx, TopicLowStock, bookID, AggregateTypeBook, SourcePOS, data)
	if err != nil {
		return fmt.Errorf("create inventory.low_stock event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicLowStock, event); err != nil {
		return fmt.Errorf("publish inventory.low_stock event: %w", err)
	}

	p.logger.DebugContext(ctx, "published inventory.low_stock event",
		slog.String("book_id", bookID),
		slog.Int("stock", stock),
	)
	return nil
}
