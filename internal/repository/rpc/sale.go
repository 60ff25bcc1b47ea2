// Package rpc implements the sale transaction against a remote
// process_sale_transaction endpoint.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/SkyToti/SistemaLibreria/internal/domain"
	"github.com/SkyToti/SistemaLibreria/pkg/httpclient"
	apperrors "github.com/SkyToti/SistemaLibreria/pkg/errors"
)

const backendName = "sale backend"

type saleItemParam struct {
	BookID    string          `json:"book_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type processSaleParams struct {
	UserID        string          `json:"p_user_id"`
	TotalAmount   decimal.Decimal `json:"p_total_amount"`
	PaymentMethod string          `json:"p_payment_method"`
	Items         []saleItemParam `json:"p_items"`
}

// SaleTransaction implements repository.SaleTransaction by calling a remote
// procedure through a circuit breaker. The remote side owns atomicity.
type SaleTransaction struct {
	client *httpclient.CircuitBreakerClient
	url    string
	logger *slog.Logger
}

// NewSaleTransaction creates an adapter posting to url.
func NewSaleTransaction(client *httpclient.CircuitBreakerClient, url string, logger *slog.Logger) *SaleTransaction {
	return &SaleTransaction{client: client, url: url, logger: logger}
}

// ProcessSale submits the sale once. POSTs are never retried, so a
// transport failure leaves the outcome unknown to the caller.
func (s *SaleTransaction) ProcessSale(ctx context.Context, req domain.SaleRequest) (*domain.SaleResult, error) {
	params := processSaleParams{
		UserID:        req.UserID,
		TotalAmount:   req.TotalAmount,
		PaymentMethod: req.PaymentMethod,
		Items:         make([]saleItemParam, 0, len(req.Items)),
	}
	for _, line := range req.Items {
		params.Items = append(params.Items, saleItemParam{
			BookID:    line.BookID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		})
	}

	body, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal sale params: %w", err)
	}

	resp, err := s.client.Post(ctx, s.url, "application/json", bytes.NewReader(body))
	if err != nil {
		s.logger.ErrorContext(ctx, "sale backend call failed",
			slog.String("user_id", req.UserID),
			slog.String("error", err.Error()),
		)
		return nil, httpclient.TransportError(err, backendName)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, httpclient.ParseResponseError(resp, backendName)
	}
	defer func() { _ = resp.Body.Close() }()

	var result domain.SaleResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, apperrors.ServiceUnavailable(backendName+" returned an unreadable response", err)
	}
	if result.Sale == nil {
		return nil, apperrors.ServiceUnavailable(backendName+" returned no sale", nil)
	}
	if result.UpdatedStock == nil {
		result.UpdatedStock = map[string]int{}
	}
	return &result, nil
}
