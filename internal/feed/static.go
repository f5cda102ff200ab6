package feed

import (
	"context"
	"sync"

	"pricewatch/internal/models"
)

// StaticProvider serves prices from a fixed map. Used in tests and for
// offline dry runs.
type StaticProvider struct {
	mu     sync.RWMutex
	prices map[string]float64
	err    error
}

// NewStaticProvider creates a provider returning the given prices.
func NewStaticProvider(prices map[string]float64) *StaticProvider {
	if prices == nil {
		prices = map[string]float64{}
	}
	return &StaticProvider{prices: prices}
}

// SetPrice sets or updates a price.
func (p *StaticProvider) SetPrice(ticker string, price float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prices[ticker] = price
}

// Drop removes a ticker, simulating a feed gap.
func (p *StaticProvider) Drop(ticker string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.prices, ticker)
}

// Fail makes every subsequent fetch return err.
func (p *StaticProvider) Fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

// FetchLatest returns the configured prices for the requested tickers.
// Non-finite values are filtered by Snapshot.Set like any real feed.
func (p *StaticProvider) FetchLatest(ctx context.Context, tickers []string) (models.Snapshot, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	snapshot := models.Snapshot{}
	if p.err != nil {
		return snapshot, p.err
	}
	for _, t := range tickers {
		if price, ok := p.prices[t]; ok {
			snapshot.Set(t, price)
		}
	}
	return snapshot, nil
}
