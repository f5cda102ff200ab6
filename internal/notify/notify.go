// Package notify provides notification dispatch for triggered alerts.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"pricewatch/internal/logging"
	"pricewatch/internal/models"
	"pricewatch/pkg/utils"
)

// Trigger is the payload handed to every channel when a rule fires.
type Trigger struct {
	Ticker    string
	Price     float64
	Target    float64
	Direction models.Direction
	Notes     string
	At        time.Time
}

// Channel is a single notification destination.
type Channel interface {
	Name() string
	Send(ctx context.Context, t Trigger) error
	IsEnabled() bool
}

// Result records the outcome of one delivery attempt on one channel.
type Result struct {
	Channel string
	OK      bool
	Detail  string
}

// Dispatcher fans a trigger out to every enabled channel. Channel failures
// are reported per attempt and never propagate: a triggered rule completes
// whether or not anyone heard about it.
type Dispatcher struct {
	channels []Channel
	logger   zerolog.Logger
}

// NewDispatcher creates a dispatcher over the given channels.
func NewDispatcher(logger zerolog.Logger, channels ...Channel) *Dispatcher {
	return &Dispatcher{channels: channels, logger: logger}
}

// AddChannel adds a notification channel.
func (d *Dispatcher) AddChannel(ch Channel) {
	d.channels = append(d.channels, ch)
}

// Dispatch sends the trigger to every enabled channel and returns one
// result per attempt. It never returns an error.
func (d *Dispatcher) Dispatch(ctx context.Context, t Trigger) []Result {
	var results []Result
	for _, ch := range d.channels {
		if !ch.IsEnabled() {
			continue
		}

		res := Result{Channel: ch.Name()}
		err := ch.Send(ctx, t)
		if err != nil {
			res.Detail = err.Error()
		} else {
			res.OK = true
			res.Detail = "sent"
		}

		logging.LogNotification(d.logger, res.Channel, t.Ticker, err)
		results = append(results, res)
	}
	return results
}

// formatSubject builds the one-line summary used as email subject and
// message lead.
func formatSubject(t Trigger) string {
	return fmt.Sprintf("Price alert: %s %s %s (now %s)",
		t.Ticker,
		utils.FormatDirection(string(t.Direction)),
		utils.FormatPrice(t.Target),
		utils.FormatPrice(t.Price),
	)
}

// formatBody builds the full trigger description.
func formatBody(t Trigger) string {
	body := fmt.Sprintf(
		"Ticker: %s\nCondition: price %s %s\nCurrent Price: %s\nTriggered at: %s",
		t.Ticker,
		utils.FormatDirection(string(t.Direction)),
		utils.FormatPrice(t.Target),
		utils.FormatPrice(t.Price),
		t.At.Format("02-Jan-2006 15:04:05"),
	)
	if t.Notes != "" {
		body += "\nNotes: " + t.Notes
	}
	return body
}

// NoOpChannel is a channel that accepts and discards everything. Used in
// tests and when no destination is configured.
type NoOpChannel struct{}

// Name returns the name of the channel.
func (NoOpChannel) Name() string { return "noop" }

// Send does nothing.
func (NoOpChannel) Send(ctx context.Context, t Trigger) error { return nil }

// IsEnabled reports true; the channel is always available.
func (NoOpChannel) IsEnabled() bool { return true }
