package inbound

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricewatch/internal/config"
)

func newTestPoller(t *testing.T, handler http.HandlerFunc) (*Poller, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	creds := config.TwilioCredentials{
		AccountSID: "ACtest",
		AuthToken:  "secret",
		From:       "whatsapp:+14155238886",
	}
	poller := NewPoller(creds, "0541234567", 15, zerolog.Nop())
	poller.SetBaseURL(server.URL)
	return poller, server
}

func TestPollFiltersInboundFromUser(t *testing.T) {
	var gotPath string
	poller, _ := newTestPoller(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path

		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "ACtest", user)
		assert.Equal(t, "secret", pass)

		json.NewEncoder(w).Encode(map[string]interface{}{
			"messages": []map[string]string{
				{"sid": "SM1", "direction": "inbound", "from": "whatsapp:+972541234567", "to": "whatsapp:+14155238886", "body": "AAPL 180"},
				{"sid": "SM2", "direction": "outbound-api", "from": "whatsapp:+14155238886", "to": "whatsapp:+972541234567", "body": "alert fired"},
				{"sid": "SM3", "direction": "inbound", "from": "whatsapp:+15550001111", "to": "whatsapp:+14155238886", "body": "NVDA 950"},
			},
		})
	})

	messages, err := poller.Poll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "/Accounts/ACtest/Messages.json", gotPath)
	require.Len(t, messages, 1)
	assert.Equal(t, "SM1", messages[0].SID)
	assert.Equal(t, "AAPL 180", messages[0].Body)
}

func TestPollErrorStatus(t *testing.T) {
	poller, _ := newTestPoller(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	})

	_, err := poller.Poll(context.Background())
	assert.Error(t, err)
}

func TestPollUnconfiguredIsNoOp(t *testing.T) {
	poller := NewPoller(config.TwilioCredentials{}, "", 15, zerolog.Nop())
	assert.False(t, poller.Configured())

	messages, err := poller.Poll(context.Background())
	assert.NoError(t, err)
	assert.Empty(t, messages)
}
