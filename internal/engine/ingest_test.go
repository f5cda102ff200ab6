package engine

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricewatch/internal/feed"
	"pricewatch/internal/inbound"
	"pricewatch/internal/models"
	"pricewatch/internal/notify"
	"pricewatch/internal/store"
)

func newIngestWatcher(t *testing.T, rules []*models.Rule) (*Watcher, *store.MemoryStore) {
	t.Helper()
	memStore := store.NewMemoryStore()
	memStore.Seed(rules)
	w := NewWatcher(memStore, feed.NewStaticProvider(nil), notify.NewDispatcher(zerolog.Nop()), zerolog.Nop())
	return w, memStore
}

func TestIngestCreatesUpRule(t *testing.T) {
	w, memStore := newIngestWatcher(t, nil)

	added, err := w.Ingest(context.Background(), []inbound.Message{
		{SID: "SM1", Body: "AAPL 180"},
	})
	require.NoError(t, err)
	require.Len(t, added, 1)

	rule := added[0]
	assert.Equal(t, "AAPL", rule.Ticker)
	assert.Equal(t, 180.0, rule.TargetPrice)
	assert.Equal(t, models.DirectionUp, rule.Direction)
	assert.Equal(t, models.StatusActive, rule.Status)
	assert.Equal(t, "Added via WhatsApp", rule.Notes)

	saved, _ := memStore.LoadAll(context.Background())
	require.Len(t, saved, 1)
}

func TestIngestSkipsDuplicateActiveRule(t *testing.T) {
	existing := models.NewRule("AAPL", 180.0, models.DirectionUp, "")
	w, memStore := newIngestWatcher(t, []*models.Rule{existing})

	added, err := w.Ingest(context.Background(), []inbound.Message{
		{SID: "SM1", Body: "AAPL 180"},
	})
	require.NoError(t, err)
	assert.Empty(t, added)

	saved, _ := memStore.LoadAll(context.Background())
	assert.Len(t, saved, 1)
	// Nothing added means nothing written.
	assert.Equal(t, 0, memStore.SaveCalls)
}

func TestIngestProcessesEachSIDOnce(t *testing.T) {
	w, memStore := newIngestWatcher(t, nil)

	msgs := []inbound.Message{{SID: "SM1", Body: "AAPL 180"}}

	added, err := w.Ingest(context.Background(), msgs)
	require.NoError(t, err)
	require.Len(t, added, 1)

	// The provider window returns the same message again next poll.
	added, err = w.Ingest(context.Background(), msgs)
	require.NoError(t, err)
	assert.Empty(t, added)

	saved, _ := memStore.LoadAll(context.Background())
	assert.Len(t, saved, 1)
}

func TestIngestIgnoresNonCommands(t *testing.T) {
	w, memStore := newIngestWatcher(t, nil)

	added, err := w.Ingest(context.Background(), []inbound.Message{
		{SID: "SM1", Body: "hello there"},
		{SID: "SM2", Body: "AAPL 180 tomorrow"},
		{SID: "SM3", Body: "NVDA 950.50"},
	})
	require.NoError(t, err)
	require.Len(t, added, 1)
	assert.Equal(t, "NVDA", added[0].Ticker)
	assert.Equal(t, 950.50, added[0].TargetPrice)

	// Non-commands are still marked processed so they are not re-parsed.
	assert.Equal(t, 3, w.Session().ProcessedCount())

	saved, _ := memStore.LoadAll(context.Background())
	assert.Len(t, saved, 1)
}

func TestIngestRetriesBatchAfterFailedSave(t *testing.T) {
	w, memStore := newIngestWatcher(t, nil)
	memStore.FailSaves = true

	msgs := []inbound.Message{
		{SID: "SM1", Body: "AAPL 180"},
		{SID: "SM2", Body: "hello there"},
	}

	_, err := w.Ingest(context.Background(), msgs)
	require.Error(t, err)
	// Nothing landed, so nothing may be remembered as handled.
	assert.Equal(t, 0, w.Session().ProcessedCount())

	memStore.FailSaves = false
	added, err := w.Ingest(context.Background(), msgs)
	require.NoError(t, err)
	require.Len(t, added, 1)
	assert.Equal(t, "AAPL", added[0].Ticker)
	assert.Equal(t, 2, w.Session().ProcessedCount())

	saved, _ := memStore.LoadAll(context.Background())
	assert.Len(t, saved, 1)
}

func TestIngestDuplicateWithinBatch(t *testing.T) {
	w, _ := newIngestWatcher(t, nil)

	added, err := w.Ingest(context.Background(), []inbound.Message{
		{SID: "SM1", Body: "AAPL 180"},
		{SID: "SM2", Body: "AAPL 180"},
	})
	require.NoError(t, err)
	assert.Len(t, added, 1)
}

func TestIngestAllowedAfterCompletion(t *testing.T) {
	done := models.NewRule("AAPL", 180.0, models.DirectionUp, "")
	done.Complete(done.CreatedAt)
	w, memStore := newIngestWatcher(t, []*models.Rule{done})

	added, err := w.Ingest(context.Background(), []inbound.Message{
		{SID: "SM1", Body: "AAPL 180"},
	})
	require.NoError(t, err)
	require.Len(t, added, 1)

	saved, _ := memStore.LoadAll(context.Background())
	assert.Len(t, saved, 2)
}

func TestCreateRuleDuplicateRejected(t *testing.T) {
	existing := models.NewRule("NVDA", 950.0, models.DirectionUp, "")
	w, _ := newIngestWatcher(t, []*models.Rule{existing})

	_, err := w.CreateRule(context.Background(), "NVDA", 950.0, models.DirectionUp, "")
	assert.Error(t, err)

	// Same triple but Completed does not block.
	existing.Complete(existing.CreatedAt)
	w2, _ := newIngestWatcher(t, []*models.Rule{existing})
	rule, err := w2.CreateRule(context.Background(), "NVDA", 950.0, models.DirectionUp, "")
	require.NoError(t, err)
	assert.Equal(t, "NVDA", rule.Ticker)
}

func TestClearCompletedKeepsActive(t *testing.T) {
	active := models.NewRule("NVDA", 950.0, models.DirectionUp, "")
	done := models.NewRule("AAPL", 180.0, models.DirectionUp, "")
	done.Complete(done.CreatedAt)

	w, memStore := newIngestWatcher(t, []*models.Rule{active, done})

	removed, err := w.ClearCompleted(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	saved, _ := memStore.LoadAll(context.Background())
	require.Len(t, saved, 1)
	assert.Equal(t, "NVDA", saved[0].Ticker)
}
