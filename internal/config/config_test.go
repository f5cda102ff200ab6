package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "pricewatch/internal/errors"
)

func validConfig() *Config {
	return &Config{
		Watch: WatchConfig{Interval: 30 * time.Second},
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestValidateRejectsShortInterval(t *testing.T) {
	cfg := validConfig()
	cfg.Watch.Interval = 100 * time.Millisecond

	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrConfigInvalid)
}

func TestValidateRejectsIncompleteEmail(t *testing.T) {
	cfg := validConfig()
	cfg.Notifications.Email.Enabled = true
	cfg.Notifications.Email.SMTPHost = "smtp.gmail.com"

	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrConfigInvalid)
}

func TestValidateRejectsInboundWithoutCredentials(t *testing.T) {
	cfg := validConfig()
	cfg.Inbound.Enabled = true

	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrConfigInvalid)
}

func TestRemoteStoreConfigured(t *testing.T) {
	cfg := validConfig()
	assert.False(t, cfg.RemoteStoreConfigured())

	cfg.Store.SpreadsheetID = "sheet-id"
	assert.False(t, cfg.RemoteStoreConfigured())

	cfg.Credentials.Google.ServiceKeyBase64 = "e30="
	assert.True(t, cfg.RemoteStoreConfigured())
}
