package feed

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	apperrors "pricewatch/internal/errors"
	"pricewatch/internal/models"
)

// GuardConfig controls when a GuardedProvider stops calling the feed.
type GuardConfig struct {
	// FailureThreshold is the number of consecutive fetch failures before
	// the guard opens.
	FailureThreshold int
	// Cooldown is how long fetches are skipped once the guard is open.
	Cooldown time.Duration
}

// DefaultGuardConfig returns the defaults used by the watch loop.
func DefaultGuardConfig() GuardConfig {
	return GuardConfig{
		FailureThreshold: 3,
		Cooldown:         5 * time.Minute,
	}
}

// GuardedProvider wraps a Provider with a circuit breaker. When the feed
// fails several ticks in a row the guard opens and fetches are skipped for
// a cooldown period instead of hammering a dead endpoint. The first fetch
// after the cooldown probes the feed; a success closes the guard again.
type GuardedProvider struct {
	inner  Provider
	config GuardConfig
	logger zerolog.Logger

	mu          sync.Mutex
	failures    int
	open        bool
	openedAt    time.Time
	lastProbeAt time.Time
}

// NewGuardedProvider wraps a provider with failure tracking.
func NewGuardedProvider(inner Provider, config GuardConfig, logger zerolog.Logger) *GuardedProvider {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = DefaultGuardConfig().FailureThreshold
	}
	if config.Cooldown <= 0 {
		config.Cooldown = DefaultGuardConfig().Cooldown
	}
	return &GuardedProvider{
		inner:  inner,
		config: config,
		logger: logger,
	}
}

// FetchLatest delegates to the wrapped provider unless the guard is open.
func (g *GuardedProvider) FetchLatest(ctx context.Context, tickers []string) (models.Snapshot, error) {
	if !g.allow() {
		return models.Snapshot{}, apperrors.NewFeedError("", "feed guard open, skipping fetch", apperrors.ErrFeedUnavailable)
	}

	snapshot, err := g.inner.FetchLatest(ctx, tickers)
	if err != nil {
		g.recordFailure()
		return snapshot, err
	}

	g.recordSuccess()
	return snapshot, nil
}

// Open reports whether the guard is currently rejecting fetches.
func (g *GuardedProvider) Open() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.open && time.Since(g.openedAt) < g.config.Cooldown
}

func (g *GuardedProvider) allow() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.open {
		return true
	}
	if time.Since(g.openedAt) >= g.config.Cooldown {
		// One probe per cooldown window.
		if g.lastProbeAt.After(g.openedAt) {
			return false
		}
		g.lastProbeAt = time.Now()
		return true
	}
	return false
}

func (g *GuardedProvider) recordSuccess() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.open {
		g.logger.Info().Msg("Feed recovered, guard closed")
	}
	g.failures = 0
	g.open = false
}

func (g *GuardedProvider) recordFailure() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.failures++
	if g.open {
		// Failed probe: restart the cooldown.
		g.openedAt = time.Now()
		return
	}
	if g.failures >= g.config.FailureThreshold {
		g.open = true
		g.openedAt = time.Now()
		g.logger.Warn().
			Int("failures", g.failures).
			Dur("cooldown", g.config.Cooldown).
			Msg("Feed guard opened")
	}
}
