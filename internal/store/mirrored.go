package store

import (
	"context"

	"github.com/rs/zerolog"

	"pricewatch/internal/models"
)

// MirroredStore layers a local durable mirror in front of the remote sheet.
// Reads prefer the remote store and fall back to the last mirrored snapshot
// when it is unreachable; writes go to the remote store first and are
// mirrored locally only after they succeed. This narrows the window where
// the sheet's clear-then-write save could lose the set.
type MirroredStore struct {
	remote RuleStore
	mirror RuleStore
	logger zerolog.Logger
}

// NewMirroredStore wraps remote with a local mirror.
func NewMirroredStore(remote, mirror RuleStore, logger zerolog.Logger) *MirroredStore {
	return &MirroredStore{remote: remote, mirror: mirror, logger: logger}
}

// LoadAll reads from the remote store, falling back to the mirror.
func (m *MirroredStore) LoadAll(ctx context.Context) ([]*models.Rule, error) {
	rules, err := m.remote.LoadAll(ctx)
	if err == nil {
		return rules, nil
	}

	m.logger.Warn().Err(err).Msg("Remote store unreachable, reading local mirror")

	cached, cacheErr := m.mirror.LoadAll(ctx)
	if cacheErr != nil {
		m.logger.Error().Err(cacheErr).Msg("Local mirror read failed")
		return nil, err
	}
	if len(cached) == 0 {
		// An empty mirror cannot be distinguished from a never-written one;
		// surface the remote error so callers treat the tick as unreachable.
		return nil, err
	}
	return cached, nil
}

// SaveAll writes to the remote store and mirrors on success.
func (m *MirroredStore) SaveAll(ctx context.Context, rules []*models.Rule) error {
	if err := m.remote.SaveAll(ctx, rules); err != nil {
		return err
	}

	if err := m.mirror.SaveAll(ctx, rules); err != nil {
		// The remote write already succeeded; a stale mirror self-heals on
		// the next successful save.
		m.logger.Warn().Err(err).Msg("Local mirror write failed")
	}
	return nil
}

// Close closes both stores.
func (m *MirroredStore) Close() error {
	err := m.remote.Close()
	if cErr := m.mirror.Close(); err == nil {
		err = cErr
	}
	return err
}
