package models

import "math"

// Snapshot holds the prices fetched for a set of tickers in one tick.
// A ticker absent from the map means no data this tick; it is never
// represented by a zero or non-finite price.
type Snapshot map[string]float64

// Price returns the fetched price for a ticker and whether one exists.
func (s Snapshot) Price(ticker string) (float64, bool) {
	p, ok := s[ticker]
	return p, ok
}

// Set stores a price, dropping non-finite and non-positive values. Feed
// adapters route every price through here so the evaluator never compares
// a NaN or Inf against a threshold.
func (s Snapshot) Set(ticker string, price float64) {
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return
	}
	s[ticker] = price
}
