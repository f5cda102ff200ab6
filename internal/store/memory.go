package store

import (
	"context"
	"sync"

	apperrors "pricewatch/internal/errors"
	"pricewatch/internal/models"
)

// MemoryStore is an in-memory RuleStore used in tests and offline runs.
// It round-trips rules through the text codec so it exercises the same
// coercion path as the real stores.
type MemoryStore struct {
	mu   sync.Mutex
	rows [][]string

	// Counters and failure switches for tests.
	LoadCalls int
	SaveCalls int
	FailLoads bool
	FailSaves bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Seed replaces the stored rows with the encoded form of the given rules.
func (m *MemoryStore) Seed(rules []*models.Rule) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = encodeAll(rules)
}

// SeedRows replaces the stored rows with raw text rows, for corrupt-row
// scenarios.
func (m *MemoryStore) SeedRows(rows [][]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = rows
}

// LoadAll decodes and returns all stored rows.
func (m *MemoryStore) LoadAll(ctx context.Context) ([]*models.Rule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LoadCalls++
	if m.FailLoads {
		return nil, apperrors.NewStoreError("load", apperrors.ErrStoreUnreachable)
	}

	rules := make([]*models.Rule, 0, len(m.rows))
	for _, row := range m.rows {
		rules = append(rules, models.DecodeRow(row))
	}
	return rules, nil
}

// SaveAll replaces the stored rows.
func (m *MemoryStore) SaveAll(ctx context.Context, rules []*models.Rule) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SaveCalls++
	if m.FailSaves {
		return apperrors.NewStoreError("save", apperrors.ErrStoreUnreachable)
	}

	m.rows = encodeAll(rules)
	return nil
}

// Close implements RuleStore.
func (m *MemoryStore) Close() error {
	return nil
}

func encodeAll(rules []*models.Rule) [][]string {
	rows := make([][]string, 0, len(rules))
	for _, r := range rules {
		rows = append(rows, models.EncodeRow(r))
	}
	return rows
}
