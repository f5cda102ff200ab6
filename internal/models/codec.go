package models

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Stored row layout at the rule-store boundary. Every field round-trips
// through text and is re-coerced on each load. The trailing id column was
// added after the original layout, so rows without it are still accepted.
const (
	colTicker = iota
	colTargetPrice
	colCurrentPrice
	colDirection
	colNotes
	colCreatedAt
	colStatus
	colTriggeredAt
	colID

	// RowWidth is the number of columns written per rule.
	RowWidth = colID + 1
)

// timeLayouts are the accepted timestamp formats, most specific first.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// EncodeRow serializes a rule as text columns for the tabular store.
// A malformed row is written back byte-for-byte from its raw form so a
// full-set save never silently drops rows it could not parse.
func EncodeRow(r *Rule) []string {
	if r.Malformed && len(r.Raw) > 0 {
		return r.Raw
	}

	row := make([]string, RowWidth)
	row[colTicker] = r.Ticker
	row[colTargetPrice] = formatPrice(r.TargetPrice)
	row[colCurrentPrice] = formatPrice(r.CurrentPrice)
	row[colDirection] = string(r.Direction)
	row[colNotes] = r.Notes
	if !r.CreatedAt.IsZero() {
		row[colCreatedAt] = r.CreatedAt.Format(time.RFC3339)
	}
	row[colStatus] = string(r.Status)
	if r.TriggeredAt != nil {
		row[colTriggeredAt] = r.TriggeredAt.Format(time.RFC3339)
	}
	row[colID] = r.ID
	return row
}

// DecodeRow parses one stored text row back into a rule. Rows that fail
// numeric or enum coercion come back with Malformed set rather than an
// error: one corrupt row must never sink the rest of the set.
func DecodeRow(row []string) *Rule {
	r := &Rule{Raw: append([]string(nil), row...)}

	if len(row) <= colStatus {
		r.Malformed = true
		return r
	}

	r.Ticker = strings.ToUpper(strings.TrimSpace(cell(row, colTicker)))
	r.Notes = cell(row, colNotes)
	r.CreatedAt = parseTime(cell(row, colCreatedAt))

	if id := cell(row, colID); id != "" {
		r.ID = id
	} else {
		r.ID = uuid.NewString()
	}

	if cell(row, colStatus) == string(StatusCompleted) {
		r.Status = StatusCompleted
	} else {
		r.Status = StatusActive
	}
	if ts := parseTime(cell(row, colTriggeredAt)); !ts.IsZero() {
		r.TriggeredAt = &ts
	}

	target, err := ParsePrice(cell(row, colTargetPrice))
	if err != nil || target <= 0 {
		r.Malformed = true
	}
	r.TargetPrice = target

	// A junk current price degrades to zero; it is display state only.
	if cur, err := ParsePrice(cell(row, colCurrentPrice)); err == nil {
		r.CurrentPrice = cur
	}

	dir, ok := ParseDirection(cell(row, colDirection))
	if !ok {
		r.Malformed = true
	}
	r.Direction = dir

	if r.Ticker == "" {
		r.Malformed = true
	}
	if !r.Malformed {
		r.Raw = nil
	}
	return r
}

// ParsePrice coerces numeric-as-text back to a float, rejecting
// non-finite values.
func ParsePrice(s string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, strconv.ErrRange
	}
	return f, nil
}

func formatPrice(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "0"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

func parseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
