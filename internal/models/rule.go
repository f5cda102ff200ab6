// Package models defines the core domain types for the price watcher.
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Direction represents which way a price must move to trigger a rule.
type Direction string

const (
	// DirectionUp triggers when the price rises to or above the target.
	DirectionUp Direction = "Up"
	// DirectionDown triggers when the price falls to or below the target.
	DirectionDown Direction = "Down"
)

// ParseDirection parses a direction string case-insensitively.
func ParseDirection(s string) (Direction, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up":
		return DirectionUp, true
	case "down":
		return DirectionDown, true
	default:
		return "", false
	}
}

// Status represents the lifecycle state of a rule.
type Status string

const (
	// StatusActive means the rule is still being evaluated each tick.
	StatusActive Status = "Active"
	// StatusCompleted means the rule has triggered. Terminal.
	StatusCompleted Status = "Completed"
)

// Rule is a stored price alert definition. One rule fires at most once:
// Status moves from Active to Completed at trigger time and never reverts.
type Rule struct {
	ID           string     `csv:"id" json:"id"`
	Ticker       string     `csv:"ticker" json:"ticker"`
	TargetPrice  float64    `csv:"target_price" json:"target_price"`
	CurrentPrice float64    `csv:"current_price" json:"current_price"`
	Direction    Direction  `csv:"direction" json:"direction"`
	Notes        string     `csv:"notes" json:"notes"`
	CreatedAt    time.Time  `csv:"created_at" json:"created_at"`
	Status       Status     `csv:"status" json:"status"`
	TriggeredAt  *time.Time `csv:"-" json:"triggered_at,omitempty"`

	// Malformed marks a row that failed numeric or enum coercion on load.
	// Such rows are skipped by evaluation and treated as non-matching by the
	// duplicate guard, but their raw text is carried so a save does not
	// silently drop them.
	Malformed bool     `csv:"-" json:"-"`
	Raw       []string `csv:"-" json:"-"`
}

// NewRule creates an Active rule with a fresh ID and creation timestamp.
func NewRule(ticker string, target float64, direction Direction, notes string) *Rule {
	return &Rule{
		ID:          uuid.NewString(),
		Ticker:      strings.ToUpper(strings.TrimSpace(ticker)),
		TargetPrice: target,
		Direction:   direction,
		Notes:       notes,
		CreatedAt:   time.Now(),
		Status:      StatusActive,
	}
}

// IsActive reports whether the rule is still eligible for evaluation.
func (r *Rule) IsActive() bool {
	return !r.Malformed && r.Status == StatusActive
}

// Complete marks the rule as triggered. Calling it on an already completed
// rule is a no-op so the transition happens exactly once.
func (r *Rule) Complete(at time.Time) {
	if r.Status == StatusCompleted {
		return
	}
	r.Status = StatusCompleted
	r.TriggeredAt = &at
}

// Valid reports whether the rule is well-formed for creation.
func (r *Rule) Valid() bool {
	if r.Malformed {
		return false
	}
	if r.Ticker == "" || r.Ticker != strings.ToUpper(r.Ticker) {
		return false
	}
	if r.TargetPrice <= 0 {
		return false
	}
	return r.Direction == DirectionUp || r.Direction == DirectionDown
}
