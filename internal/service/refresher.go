package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/cenkalti/backoff/v5"
)

var errStockNotSettled = errors.New("stock not yet visible")

// StockReader reads the current stock of books.
type StockReader interface {
	StockByIDs(ctx context.Context, ids []string) (map[string]int, error)
}

// StockRefresher re-reads stock after a sale until the catalog shows the
// values the sale transaction returned.
type StockRefresher struct {
	books      StockReader
	initial    time.Duration
	maxElapsed time.Duration
	logger     *slog.Logger
}

// NewStockRefresher creates a refresher giving up after maxElapsed.
func NewStockRefresher(books StockReader, maxElapsed time.Duration, logger *slog.Logger) *StockRefresher {
	return &StockRefresher{
		books:      books,
		initial:    50 * time.Millisecond,
		maxElapsed: maxElapsed,
		logger:     logger,
	}
}

// Confirm polls with exponential backoff until every book in expected shows
// exactly the expected stock. It returns the last observed stock.
func (r *StockRefresher) Confirm(ctx context.Context, expected map[string]int) (map[string]int, error) {
	if len(expected) == 0 {
		return map[string]int{}, nil
	}
	ids := slices.Sorted(maps.Keys(expected))

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.initial
	b.MaxInterval = r.maxElapsed / 4

	attempts := 0
	observed, err := backoff.Retry(ctx, func() (map[string]int, error) {
		attempts++
		stock, err := r.books.StockByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			if got, ok := stock[id]; !ok || got != expected[id] {
				return stock, fmt.Errorf("%w: book %s", errStockNotSettled, id)
			}
		}
		return stock, nil
	},
		backoff.WithBackOff(b),
		backoff.WithMaxElapsedTime(r.maxElapsed),
		backoff.WithNotify(func(err error, wait time.Duration) {
			r.logger.DebugContext(ctx, "stock refresh retry",
				slog.String("error", err.Error()),
				slog.Duration("wait", wait),
			)
		}),
	)
	stockRefreshAttempts.Observe(float64(attempts))

	switch {
	case err == nil:
		stockRefreshOutcome.WithLabelValues("settled").Inc()
		return observed, nil
	case errors.Is(err, errStockNotSettled):
		stockRefreshOutcome.WithLabelValues("unsettled").Inc()
		return observed, fmt.Errorf("confirm stock after %d reads: %w", attempts, err)
	default:
		stockRefreshOutcome.WithLabelValues("error").Inc()
		return observed, fmt.Errorf("confirm stock: %w", err)
	}
}
