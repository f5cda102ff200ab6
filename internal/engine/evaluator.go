// Package engine implements the alert evaluation core: the per-tick scan
// that decides which rules fire, the duplicate guard, and the rule
// lifecycle bookkeeping.
package engine

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	apperrors "pricewatch/internal/errors"
	"pricewatch/internal/feed"
	"pricewatch/internal/inbound"
	"pricewatch/internal/logging"
	"pricewatch/internal/models"
	"pricewatch/internal/notify"
	"pricewatch/internal/store"
)

// inboundNotes is the annotation attached to rules created from WhatsApp
// commands.
const inboundNotes = "Added via WhatsApp"

// TickResult summarizes one evaluation pass.
type TickResult struct {
	Active    int             // active rules scanned
	Triggered []*models.Rule  // rules that completed this tick
	Results   []notify.Result // per-channel delivery outcomes
	Changed   bool            // any price or status mutation
	Wrote     bool            // a full-set save happened
}

// Watcher owns one evaluation pipeline: rule store, market data provider,
// and notification dispatcher. It is single-threaded by construction; all
// methods are called from the one poll loop.
type Watcher struct {
	store      store.RuleStore
	provider   feed.Provider
	dispatcher *notify.Dispatcher
	session    *Session
	logger     zerolog.Logger
	now        func() time.Time
}

// NewWatcher creates a watcher over the given collaborators.
func NewWatcher(ruleStore store.RuleStore, provider feed.Provider, dispatcher *notify.Dispatcher, logger zerolog.Logger) *Watcher {
	return &Watcher{
		store:      ruleStore,
		provider:   provider,
		dispatcher: dispatcher,
		session:    NewSession(),
		logger:     logger,
		now:        time.Now,
	}
}

// Session returns the watcher's per-run session state.
func (w *Watcher) Session() *Session {
	return w.session
}

// Tick runs one evaluation pass. A failed rule load aborts the tick with
// no mutation and no notification: an empty read is "store unreachable",
// never "delete everything". Store write failures are reported but the
// in-memory mutations stand until the next successful write.
func (w *Watcher) Tick(ctx context.Context) (TickResult, error) {
	start := w.now()
	var result TickResult

	rules, err := w.store.LoadAll(ctx)
	if err != nil {
		w.logger.Warn().Err(err).Msg("Skipping tick, rule store unreachable")
		return result, err
	}

	var active []*models.Rule
	for _, r := range rules {
		if r.IsActive() {
			active = append(active, r)
		}
	}
	result.Active = len(active)
	if len(active) == 0 {
		return result, nil
	}

	// Completed rules are never evaluated again, so only the tickers still
	// referenced by active rules are worth fetching.
	snapshot, err := w.provider.FetchLatest(ctx, distinctTickers(active))
	if err != nil {
		// A failed fetch is a feed gap for every ticker; prices fetched
		// before the failure still count.
		w.logger.Warn().Err(err).Msg("Quote fetch incomplete")
	}

	for _, rule := range active {
		price, ok := snapshot.Price(rule.Ticker)
		if !ok {
			continue
		}

		if rule.CurrentPrice != price {
			rule.CurrentPrice = price
			result.Changed = true
		}

		if !conditionMet(rule, price) {
			continue
		}

		trigger := notify.Trigger{
			Ticker:    rule.Ticker,
			Price:     price,
			Target:    rule.TargetPrice,
			Direction: rule.Direction,
			Notes:     rule.Notes,
			At:        w.now(),
		}
		result.Results = append(result.Results, w.dispatcher.Dispatch(ctx, trigger)...)

		rule.Complete(trigger.At)
		result.Triggered = append(result.Triggered, rule)
		result.Changed = true

		logging.LogTrigger(w.logger, rule.ID, rule.Ticker, string(rule.Direction), price, rule.TargetPrice)
	}

	if result.Changed {
		if err := w.store.SaveAll(ctx, rules); err != nil {
			w.logger.Error().Err(err).Msg("Rule save failed, state will retry next tick")
		} else {
			result.Wrote = true
		}
	}

	logging.LogTick(w.logger, result.Active, len(result.Triggered), result.Wrote, w.now().Sub(start))

	return result, nil
}

// conditionMet applies the trigger predicate. Plain numeric comparison,
// no epsilon: equality counts in both directions.
func conditionMet(rule *models.Rule, price float64) bool {
	switch rule.Direction {
	case models.DirectionUp:
		return price >= rule.TargetPrice
	case models.DirectionDown:
		return price <= rule.TargetPrice
	default:
		return false
	}
}

func distinctTickers(rules []*models.Rule) []string {
	seen := make(map[string]struct{}, len(rules))
	var tickers []string
	for _, r := range rules {
		if _, ok := seen[r.Ticker]; ok {
			continue
		}
		seen[r.Ticker] = struct{}{}
		tickers = append(tickers, r.Ticker)
	}
	return tickers
}

// CreateRule validates a manually entered rule, runs it through the
// duplicate guard and persists the grown set.
func (w *Watcher) CreateRule(ctx context.Context, ticker string, target float64, direction models.Direction, notes string) (*models.Rule, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))

	rule := models.NewRule(ticker, target, direction, notes)
	if !rule.Valid() {
		return nil, apperrors.ErrInvalidRule
	}

	rules, err := w.store.LoadAll(ctx)
	if err != nil {
		return nil, err
	}

	if IsDuplicate(rules, rule.Ticker, rule.TargetPrice, rule.Direction) {
		return nil, apperrors.ErrDuplicateRule
	}

	rules = append(rules, rule)
	if err := w.store.SaveAll(ctx, rules); err != nil {
		return nil, err
	}

	w.logger.Info().
		Str("rule_id", rule.ID).
		Str("ticker", rule.Ticker).
		Float64("target", rule.TargetPrice).
		Str("direction", string(rule.Direction)).
		Msg("Rule created")

	return rule, nil
}

// Ingest turns inbound messages into rules. Each message SID is handled
// at most once per session; commands that would duplicate an active rule
// are dropped. The command carries no direction token, so inbound rules
// always watch Upward.
func (w *Watcher) Ingest(ctx context.Context, messages []inbound.Message) ([]*models.Rule, error) {
	if len(messages) == 0 {
		return nil, nil
	}

	rules, err := w.store.LoadAll(ctx)
	if err != nil {
		return nil, err
	}

	var added []*models.Rule
	var handled []string
	for _, msg := range messages {
		if w.session.Processed(msg.SID) {
			continue
		}
		handled = append(handled, msg.SID)

		cmd, ok := inbound.ParseCommand(msg.Body)
		if !ok {
			w.logger.Debug().Str("sid", msg.SID).Msg("Ignoring non-command message")
			continue
		}

		if IsDuplicate(rules, cmd.Ticker, cmd.Target, models.DirectionUp) {
			w.logger.Info().
				Str("ticker", cmd.Ticker).
				Float64("target", cmd.Target).
				Msg("Skipping duplicate inbound rule")
			continue
		}

		rule := models.NewRule(cmd.Ticker, cmd.Target, models.DirectionUp, inboundNotes)
		rules = append(rules, rule)
		added = append(added, rule)

		w.logger.Info().
			Str("rule_id", rule.ID).
			Str("ticker", rule.Ticker).
			Float64("target", rule.TargetPrice).
			Msg("Rule added via WhatsApp")
	}

	if len(added) > 0 {
		// A failed save leaves every SID unmarked so the whole batch is
		// retried next poll; the duplicate guard suppresses re-adds of
		// anything that did land.
		if err := w.store.SaveAll(ctx, rules); err != nil {
			return nil, err
		}
	}

	for _, sid := range handled {
		w.session.MarkProcessed(sid)
	}
	return added, nil
}

// List returns all rules, or only the Active ones.
func (w *Watcher) List(ctx context.Context, includeCompleted bool) ([]*models.Rule, error) {
	rules, err := w.store.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	if includeCompleted {
		return rules, nil
	}

	var active []*models.Rule
	for _, r := range rules {
		if r.Status == models.StatusActive {
			active = append(active, r)
		}
	}
	return active, nil
}

// Remove deletes a rule by ID, or by ticker when no ID matches. Ticker
// removal drops every rule for that ticker.
func (w *Watcher) Remove(ctx context.Context, idOrTicker string) (int, error) {
	rules, err := w.store.LoadAll(ctx)
	if err != nil {
		return 0, err
	}

	var kept []*models.Rule
	removed := 0
	for _, r := range rules {
		if r.ID == idOrTicker {
			removed++
			continue
		}
		kept = append(kept, r)
	}

	if removed == 0 {
		ticker := strings.ToUpper(strings.TrimSpace(idOrTicker))
		kept = kept[:0]
		for _, r := range rules {
			if r.Ticker == ticker {
				removed++
				continue
			}
			kept = append(kept, r)
		}
	}

	if removed == 0 {
		return 0, apperrors.ErrRuleNotFound
	}

	if err := w.store.SaveAll(ctx, kept); err != nil {
		return 0, err
	}
	return removed, nil
}

// ClearCompleted bulk-deletes Completed rules, leaving Active ones (and
// unparseable rows) untouched.
func (w *Watcher) ClearCompleted(ctx context.Context) (int, error) {
	rules, err := w.store.LoadAll(ctx)
	if err != nil {
		return 0, err
	}

	var kept []*models.Rule
	removed := 0
	for _, r := range rules {
		if !r.Malformed && r.Status == models.StatusCompleted {
			removed++
			continue
		}
		kept = append(kept, r)
	}

	if removed == 0 {
		return 0, nil
	}

	if err := w.store.SaveAll(ctx, kept); err != nil {
		return 0, err
	}
	return removed, nil
}
