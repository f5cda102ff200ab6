package inbound

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"pricewatch/internal/config"
	apperrors "pricewatch/internal/errors"
	"pricewatch/internal/logging"
	"pricewatch/pkg/utils"
)

const twilioAPIBase = "https://api.twilio.com/2010-04-01"

// Message is one inbound WhatsApp message relevant to the watcher.
type Message struct {
	SID  string
	Body string
}

// Poller reads recent messages from the Twilio account and filters for
// inbound WhatsApp messages sent by the configured user. Providers only
// keep a rolling window of recent messages, so the poller re-reads the
// last few every tick and leaves duplicate suppression to the session's
// processed-SID set.
type Poller struct {
	accountSID string
	authToken  string
	sender     string // expected "whatsapp:+<digits>" form of the user's number
	lookback   int
	baseURL    string
	client     *http.Client
	logger     zerolog.Logger
}

// NewPoller creates a poller for the given user number.
func NewPoller(creds config.TwilioCredentials, userNumber string, lookback int, logger zerolog.Logger) *Poller {
	if lookback <= 0 {
		lookback = 15
	}
	return &Poller{
		accountSID: creds.AccountSID,
		authToken:  creds.AuthToken,
		sender:     utils.NormalizeWhatsAppNumber(userNumber),
		lookback:   lookback,
		baseURL:    twilioAPIBase,
		client:     &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// SetBaseURL overrides the Twilio endpoint. Used in tests.
func (p *Poller) SetBaseURL(base string) {
	p.baseURL = base
}

// Configured reports whether the poller has credentials and a user number.
func (p *Poller) Configured() bool {
	return p.accountSID != "" && p.authToken != "" && p.sender != ""
}

// twilioMessage mirrors the fields we need from the Twilio message list.
type twilioMessage struct {
	SID       string `json:"sid"`
	Direction string `json:"direction"`
	From      string `json:"from"`
	To        string `json:"to"`
	Body      string `json:"body"`
	Status    string `json:"status"`
}

// Poll fetches the most recent messages and returns the inbound ones from
// the configured user, newest first.
func (p *Poller) Poll(ctx context.Context) ([]Message, error) {
	if !p.Configured() {
		return nil, nil
	}

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", p.baseURL, p.accountSID)
	q := url.Values{}
	q.Set("PageSize", strconv.Itoa(p.lookback))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, apperrors.Wrap(err, "creating twilio request")
	}
	req.SetBasicAuth(p.accountSID, p.authToken)

	start := time.Now()
	resp, err := p.client.Do(req)
	logging.LogAPICall(p.logger, http.MethodGet, p.baseURL, time.Since(start), err)
	if err != nil {
		return nil, apperrors.Wrap(err, "listing twilio messages")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("twilio API returned status %d", resp.StatusCode)
	}

	var payload struct {
		Messages []twilioMessage `json:"messages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding twilio response: %w", err)
	}

	var matched []Message
	for _, msg := range payload.Messages {
		if msg.Direction != "inbound" || msg.From != p.sender {
			continue
		}
		matched = append(matched, Message{SID: msg.SID, Body: msg.Body})
	}

	p.logger.Debug().
		Int("fetched", len(payload.Messages)).
		Int("matched", len(matched)).
		Msg("Inbound poll completed")

	return matched, nil
}
