package engine

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricewatch/internal/feed"
	"pricewatch/internal/models"
	"pricewatch/internal/notify"
	"pricewatch/internal/store"
)

// recordingChannel captures every trigger it is asked to deliver.
type recordingChannel struct {
	mu       sync.Mutex
	name     string
	failWith error
	sent     []notify.Trigger
}

func (c *recordingChannel) Name() string    { return c.name }
func (c *recordingChannel) IsEnabled() bool { return true }

func (c *recordingChannel) Send(ctx context.Context, t notify.Trigger) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failWith != nil {
		return c.failWith
	}
	c.sent = append(c.sent, t)
	return nil
}

func (c *recordingChannel) sentCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

func newTestWatcher(t *testing.T, rules []*models.Rule, prices map[string]float64, channels ...notify.Channel) (*Watcher, *store.MemoryStore, *feed.StaticProvider) {
	t.Helper()

	memStore := store.NewMemoryStore()
	memStore.Seed(rules)
	provider := feed.NewStaticProvider(prices)
	dispatcher := notify.NewDispatcher(zerolog.Nop(), channels...)

	w := NewWatcher(memStore, provider, dispatcher, zerolog.Nop())
	return w, memStore, provider
}

func TestTickTriggersUpRule(t *testing.T) {
	rule := models.NewRule("NVDA", 950.00, models.DirectionUp, "earnings play")
	email := &recordingChannel{name: "email"}
	wa := &recordingChannel{name: "whatsapp"}

	w, memStore, _ := newTestWatcher(t, []*models.Rule{rule}, map[string]float64{"NVDA": 960.00}, email, wa)

	result, err := w.Tick(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Triggered, 1)
	assert.True(t, result.Changed)
	assert.True(t, result.Wrote)

	// One notification attempt per configured destination.
	assert.Equal(t, 1, email.sentCount())
	assert.Equal(t, 1, wa.sentCount())

	saved, err := memStore.LoadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, models.StatusCompleted, saved[0].Status)
	assert.Equal(t, 960.00, saved[0].CurrentPrice)
	require.NotNil(t, saved[0].TriggeredAt)
}

func TestTickDownRuleNotMet(t *testing.T) {
	rule := models.NewRule("TSLA", 200.00, models.DirectionDown, "")

	w, memStore, _ := newTestWatcher(t, []*models.Rule{rule}, map[string]float64{"TSLA": 205.00})

	result, err := w.Tick(context.Background())
	require.NoError(t, err)

	assert.Empty(t, result.Triggered)
	// A fetched but non-triggering price still updates the display value.
	assert.True(t, result.Changed)

	saved, _ := memStore.LoadAll(context.Background())
	assert.Equal(t, models.StatusActive, saved[0].Status)
	assert.Equal(t, 205.00, saved[0].CurrentPrice)
	assert.Nil(t, saved[0].TriggeredAt)
}

func TestTickEqualityTriggersBothDirections(t *testing.T) {
	up := models.NewRule("AAPL", 180.00, models.DirectionUp, "")
	down := models.NewRule("MSFT", 400.00, models.DirectionDown, "")

	w, memStore, _ := newTestWatcher(t, []*models.Rule{up, down}, map[string]float64{
		"AAPL": 180.00,
		"MSFT": 400.00,
	})

	result, err := w.Tick(context.Background())
	require.NoError(t, err)
	assert.Len(t, result.Triggered, 2)

	saved, _ := memStore.LoadAll(context.Background())
	for _, r := range saved {
		assert.Equal(t, models.StatusCompleted, r.Status)
	}
}

func TestTickAtMostOnce(t *testing.T) {
	rule := models.NewRule("NVDA", 950.00, models.DirectionUp, "")
	email := &recordingChannel{name: "email"}

	w, memStore, _ := newTestWatcher(t, []*models.Rule{rule}, map[string]float64{"NVDA": 960.00}, email)

	_, err := w.Tick(context.Background())
	require.NoError(t, err)

	saved, _ := memStore.LoadAll(context.Background())
	firstTriggeredAt := *saved[0].TriggeredAt
	savesAfterFirst := memStore.SaveCalls

	// The price keeps satisfying the predicate; nothing may change again.
	for i := 0; i < 3; i++ {
		result, err := w.Tick(context.Background())
		require.NoError(t, err)
		assert.Empty(t, result.Triggered)
		assert.False(t, result.Wrote)
	}

	saved, _ = memStore.LoadAll(context.Background())
	assert.Equal(t, models.StatusCompleted, saved[0].Status)
	assert.Equal(t, firstTriggeredAt.Unix(), saved[0].TriggeredAt.Unix())
	assert.Equal(t, 1, email.sentCount())
	assert.Equal(t, savesAfterFirst, memStore.SaveCalls)
}

func TestTickIdempotentNoOp(t *testing.T) {
	rule := models.NewRule("AAPL", 500.00, models.DirectionUp, "")
	w, memStore, _ := newTestWatcher(t, []*models.Rule{rule}, map[string]float64{"AAPL": 180.00})

	// First tick writes the refreshed current price.
	result, err := w.Tick(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Wrote)

	// Same price again: no mutation, no write.
	for i := 0; i < 5; i++ {
		result, err = w.Tick(context.Background())
		require.NoError(t, err)
		assert.False(t, result.Changed)
		assert.False(t, result.Wrote)
	}
	assert.Equal(t, 1, memStore.SaveCalls)
}

func TestTickFeedGapLeavesRuleUntouched(t *testing.T) {
	rule := models.NewRule("NVDA", 950.00, models.DirectionUp, "")
	rule.CurrentPrice = 940.00

	w, memStore, _ := newTestWatcher(t, []*models.Rule{rule}, map[string]float64{})

	result, err := w.Tick(context.Background())
	require.NoError(t, err)
	assert.False(t, result.Changed)
	assert.False(t, result.Wrote)

	saved, _ := memStore.LoadAll(context.Background())
	assert.Equal(t, models.StatusActive, saved[0].Status)
	assert.Equal(t, 940.00, saved[0].CurrentPrice)
}

func TestTickNonFinitePriceTreatedAsGap(t *testing.T) {
	rule := models.NewRule("NVDA", 950.00, models.DirectionUp, "")

	w, memStore, provider := newTestWatcher(t, []*models.Rule{rule}, map[string]float64{})
	provider.SetPrice("NVDA", math.NaN())

	result, err := w.Tick(context.Background())
	require.NoError(t, err)
	assert.Empty(t, result.Triggered)
	assert.False(t, result.Changed)

	saved, _ := memStore.LoadAll(context.Background())
	assert.Equal(t, models.StatusActive, saved[0].Status)
}

func TestTickStoreUnreachableAborts(t *testing.T) {
	rule := models.NewRule("NVDA", 950.00, models.DirectionUp, "")
	email := &recordingChannel{name: "email"}

	w, memStore, _ := newTestWatcher(t, []*models.Rule{rule}, map[string]float64{"NVDA": 960.00}, email)
	memStore.FailLoads = true

	_, err := w.Tick(context.Background())
	require.Error(t, err)

	// No mutation, no notification, and above all no destructive save.
	assert.Equal(t, 0, memStore.SaveCalls)
	assert.Equal(t, 0, email.sentCount())

	memStore.FailLoads = false
	saved, _ := memStore.LoadAll(context.Background())
	require.Len(t, saved, 1)
	assert.Equal(t, models.StatusActive, saved[0].Status)
}

func TestTickSaveFailureKeepsCompletion(t *testing.T) {
	rule := models.NewRule("NVDA", 950.00, models.DirectionUp, "")
	email := &recordingChannel{name: "email"}

	w, memStore, _ := newTestWatcher(t, []*models.Rule{rule}, map[string]float64{"NVDA": 960.00}, email)
	memStore.FailSaves = true

	result, err := w.Tick(context.Background())
	require.NoError(t, err)
	assert.Len(t, result.Triggered, 1)
	assert.False(t, result.Wrote)
	assert.Equal(t, 1, email.sentCount())
}

func TestTickMalformedRowIsolated(t *testing.T) {
	good := models.NewRule("NVDA", 950.00, models.DirectionUp, "")

	memStore := store.NewMemoryStore()
	memStore.SeedRows([][]string{
		{"JUNK", "not-a-number", "0", "Up", "", "", "Active", "", "junk-id"},
		models.EncodeRow(good),
	})
	provider := feed.NewStaticProvider(map[string]float64{"NVDA": 960.00, "JUNK": 1.00})
	w := NewWatcher(memStore, provider, notify.NewDispatcher(zerolog.Nop()), zerolog.Nop())

	result, err := w.Tick(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Triggered, 1)
	assert.Equal(t, "NVDA", result.Triggered[0].Ticker)

	// The corrupt row survives the save untouched.
	saved, _ := memStore.LoadAll(context.Background())
	require.Len(t, saved, 2)
	assert.True(t, saved[0].Malformed)
	assert.Equal(t, models.StatusCompleted, saved[1].Status)
}

func TestTickSkipsCompletedTickersInFetch(t *testing.T) {
	done := models.NewRule("OLD", 10.00, models.DirectionUp, "")
	done.Complete(time.Now())
	active := models.NewRule("NVDA", 950.00, models.DirectionUp, "")

	memStore := store.NewMemoryStore()
	memStore.Seed([]*models.Rule{done, active})

	var requested []string
	inner := feed.NewStaticProvider(map[string]float64{"NVDA": 100.00, "OLD": 100.00})
	w := NewWatcher(memStore, captureProvider{inner, &requested}, notify.NewDispatcher(zerolog.Nop()), zerolog.Nop())

	_, err := w.Tick(context.Background())
	require.NoError(t, err)

	// Only tickers referenced by active rules are fetched.
	assert.Equal(t, []string{"NVDA"}, requested)
}

// captureProvider records the tickers requested from the wrapped provider.
type captureProvider struct {
	inner     feed.Provider
	requested *[]string
}

func (c captureProvider) FetchLatest(ctx context.Context, tickers []string) (models.Snapshot, error) {
	*c.requested = append(*c.requested, tickers...)
	return c.inner.FetchLatest(ctx, tickers)
}

func TestTickFeedErrorIsAbsorbed(t *testing.T) {
	rule := models.NewRule("NVDA", 950.00, models.DirectionUp, "")
	w, memStore, provider := newTestWatcher(t, []*models.Rule{rule}, map[string]float64{})
	provider.Fail(errors.New("feed down"))

	result, err := w.Tick(context.Background())
	require.NoError(t, err)
	assert.Empty(t, result.Triggered)
	assert.Equal(t, 0, memStore.SaveCalls)
}
