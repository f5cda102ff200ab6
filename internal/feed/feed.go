// Package feed provides market data provider interfaces and implementations.
package feed

import (
	"context"

	"pricewatch/internal/models"
)

// Provider fetches the latest price for a set of tickers. A ticker absent
// from the returned snapshot means "no data this tick" (feed gap, market
// closed, delisting) and must never be reported as a zero or non-finite
// price; implementations route every value through Snapshot.Set, which
// drops those.
type Provider interface {
	FetchLatest(ctx context.Context, tickers []string) (models.Snapshot, error)
}
