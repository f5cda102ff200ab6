package models

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRowRoundTrip(t *testing.T) {
	triggered := time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC)

	rule := NewRule("NVDA", 950.50, DirectionUp, "earnings play")
	rule.CurrentPrice = 948.12
	rule.Complete(triggered)

	decoded := DecodeRow(EncodeRow(rule))

	assert.False(t, decoded.Malformed)
	assert.Equal(t, rule.ID, decoded.ID)
	assert.Equal(t, "NVDA", decoded.Ticker)
	assert.Equal(t, 950.50, decoded.TargetPrice)
	assert.Equal(t, 948.12, decoded.CurrentPrice)
	assert.Equal(t, DirectionUp, decoded.Direction)
	assert.Equal(t, "earnings play", decoded.Notes)
	assert.Equal(t, StatusCompleted, decoded.Status)
	require.NotNil(t, decoded.TriggeredAt)
	assert.True(t, decoded.TriggeredAt.Equal(triggered))
}

func TestDecodeRowLegacyWithoutID(t *testing.T) {
	// Rows written before the id column existed still load; they get a
	// fresh id.
	row := []string{"AAPL", "180", "0", "Up", "", "2025-01-02T10:00:00Z", "Active", ""}

	decoded := DecodeRow(row)
	assert.False(t, decoded.Malformed)
	assert.Equal(t, "AAPL", decoded.Ticker)
	assert.NotEmpty(t, decoded.ID)
	assert.Equal(t, StatusActive, decoded.Status)
}

func TestDecodeRowMalformed(t *testing.T) {
	tests := []struct {
		name string
		row  []string
	}{
		{"non-numeric target", []string{"NVDA", "soon", "0", "Up", "", "", "Active", "", "id"}},
		{"negative target", []string{"NVDA", "-5", "0", "Up", "", "", "Active", "", "id"}},
		{"unknown direction", []string{"NVDA", "950", "0", "Sideways", "", "", "Active", "", "id"}},
		{"empty ticker", []string{"", "950", "0", "Up", "", "", "Active", "", "id"}},
		{"truncated row", []string{"NVDA", "950"}},
		{"nan target", []string{"NVDA", "NaN", "0", "Up", "", "", "Active", "", "id"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoded := DecodeRow(tt.row)
			assert.True(t, decoded.Malformed)
			assert.False(t, decoded.IsActive())

			// The raw text survives a save.
			assert.Equal(t, tt.row, EncodeRow(decoded))
		})
	}
}

func TestDecodeRowLowercaseTickerNormalized(t *testing.T) {
	row := []string{"nvda", "950", "0", "up", "", "", "Active", "", "id"}
	decoded := DecodeRow(row)
	assert.False(t, decoded.Malformed)
	assert.Equal(t, "NVDA", decoded.Ticker)
	assert.Equal(t, DirectionUp, decoded.Direction)
}

func TestDecodeRowJunkCurrentPriceDegradesToZero(t *testing.T) {
	row := []string{"NVDA", "950", "n/a", "Up", "", "", "Active", "", "id"}
	decoded := DecodeRow(row)
	assert.False(t, decoded.Malformed)
	assert.Equal(t, 0.0, decoded.CurrentPrice)
}

func TestCompleteIsTerminal(t *testing.T) {
	rule := NewRule("NVDA", 950, DirectionUp, "")

	first := time.Date(2025, 3, 14, 15, 0, 0, 0, time.UTC)
	rule.Complete(first)
	rule.Complete(first.Add(time.Hour))

	assert.Equal(t, StatusCompleted, rule.Status)
	assert.True(t, rule.TriggeredAt.Equal(first))
}

func TestSnapshotDropsNonFinite(t *testing.T) {
	s := Snapshot{}
	s.Set("A", 1.5)
	s.Set("B", 0)
	s.Set("C", -3)
	s.Set("D", math.NaN())
	s.Set("E", math.Inf(1))
	s.Set("F", math.Inf(-1))

	_, okA := s.Price("A")
	assert.True(t, okA)
	for _, ticker := range []string{"B", "C", "D", "E", "F"} {
		_, ok := s.Price(ticker)
		assert.False(t, ok, ticker)
	}
}
