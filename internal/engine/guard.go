package engine

import "pricewatch/internal/models"

// IsDuplicate reports whether an Active rule with the same ticker, target
// price and direction already exists. Completed rules never block
// re-creation of the same logical alert. Rows that failed coercion on load
// are treated as non-matching: a single corrupt row must not make the
// guard unusable.
//
// Target prices were already coerced from text to float64 by the row
// codec, so "150" and 150.0 compare equal here.
func IsDuplicate(rules []*models.Rule, ticker string, target float64, direction models.Direction) bool {
	for _, r := range rules {
		if !r.IsActive() {
			continue
		}
		if r.Ticker == ticker && r.Direction == direction && r.TargetPrice == target {
			return true
		}
	}
	return false
}
