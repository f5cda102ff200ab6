package utils

import (
	"fmt"
	"time"
)

// FormatPrice formats a price for display with two decimal places.
// Display formatting only; comparisons always use the raw value.
func FormatPrice(price float64) string {
	return fmt.Sprintf("$%.2f", price)
}

// FormatTimestamp formats a timestamp for display, or "-" when unset.
func FormatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("02-Jan-2006 15:04:05")
}

// FormatDirection renders a direction with its comparison glyph.
func FormatDirection(direction string) string {
	switch direction {
	case "Up":
		return "≥"
	case "Down":
		return "≤"
	default:
		return "?"
	}
}
