// Package store provides rule persistence interfaces and implementations.
package store

import (
	"context"

	"pricewatch/internal/models"
)

// RuleStore is the durable home of the alert rules. The backing stores are
// plain tabular snapshots with no partial-update API: callers re-read the
// whole set before mutating and write the whole set back in one call.
type RuleStore interface {
	// LoadAll returns every rule, Active and Completed, in insertion order.
	// On a read failure it returns an empty slice together with the error;
	// callers must treat that as "store unreachable", never as "store empty".
	LoadAll(ctx context.Context) ([]*models.Rule, error)

	// SaveAll replaces the entire stored set. A failure is reported but must
	// not corrupt the caller's in-memory rules.
	SaveAll(ctx context.Context, rules []*models.Rule) error

	// Close releases any underlying resources.
	Close() error
}
