package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pricewatch/internal/config"
	apperrors "pricewatch/internal/errors"
	"pricewatch/pkg/utils"
)

const twilioAPIBase = "https://api.twilio.com/2010-04-01"

// WhatsAppChannel sends trigger notifications through the Twilio WhatsApp
// API.
type WhatsAppChannel struct {
	accountSID string
	authToken  string
	from       string
	to         string
	baseURL    string
	enabled    bool
	client     *http.Client
}

// NewWhatsAppChannel creates a new WhatsAppChannel.
func NewWhatsAppChannel(cfg config.WhatsAppConfig, creds config.TwilioCredentials) *WhatsAppChannel {
	to := utils.NormalizeWhatsAppNumber(cfg.To)
	return &WhatsAppChannel{
		accountSID: creds.AccountSID,
		authToken:  creds.AuthToken,
		from:       creds.From,
		to:         to,
		baseURL:    twilioAPIBase,
		enabled:    cfg.Enabled && creds.AccountSID != "" && creds.AuthToken != "" && creds.From != "" && to != "",
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Name returns the name of the channel.
func (w *WhatsAppChannel) Name() string {
	return "whatsapp"
}

// IsEnabled returns whether the channel is enabled.
func (w *WhatsAppChannel) IsEnabled() bool {
	return w.enabled
}

// SetBaseURL overrides the Twilio endpoint. Used in tests.
func (w *WhatsAppChannel) SetBaseURL(base string) {
	w.baseURL = base
}

// Send posts the trigger as a WhatsApp message.
func (w *WhatsAppChannel) Send(ctx context.Context, t Trigger) error {
	if !w.enabled {
		return nil
	}

	body := fmt.Sprintf("🔔 %s\n%s", formatSubject(t), formatBody(t))

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", w.baseURL, w.accountSID)
	form := url.Values{}
	form.Set("From", w.from)
	form.Set("To", w.to)
	form.Set("Body", body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return apperrors.NewNotifyError("whatsapp", "creating twilio request", err)
	}
	req.SetBasicAuth(w.accountSID, w.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := w.client.Do(req)
	if err != nil {
		return apperrors.NewNotifyError("whatsapp", "sending twilio message", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apperrors.NewNotifyError("whatsapp", twilioErrorDetail(resp.Body),
			fmt.Errorf("twilio API returned status %d", resp.StatusCode))
	}

	return nil
}

// twilioErrorDetail extracts the message field from a Twilio error body.
func twilioErrorDetail(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil {
		return ""
	}

	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil || payload.Message == "" {
		return strings.TrimSpace(string(raw))
	}
	return payload.Message
}
