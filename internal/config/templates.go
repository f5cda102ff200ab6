package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Pricewatch Configuration

[watch]
# Evaluation interval (e.g., "30s", "2m")
interval = "30s"

[store]
# Google Sheets spreadsheet ID backing the rule list
spreadsheet_id = ""
# Sheet (tab) name holding alert rows
sheet_name = "alerts"
# Keep a local SQLite mirror of the rule set
cache_enabled = true
# Path for the local mirror (default: <config dir>/pricewatch.db)
cache_path = ""

[feed]
# Quote endpoint base URL (leave empty for the default)
base_url = ""
# Per-request timeout
timeout = "10s"

[ui]
# Enable colored output
color_enabled = true
# Date format
date_format = "02-Jan-2006"
# Time format
time_format = "15:04:05"

[inbound]
# Poll WhatsApp for "<TICKER> <PRICE>" commands
enabled = false
# Number of recent messages to scan per poll
lookback = 15

[notifications]
# Enable notifications
enabled = false

[notifications.email]
enabled = false
smtp_host = ""
smtp_port = 587
username = ""
password = ""
from = ""
to = ""

[notifications.whatsapp]
enabled = false
# Destination number, local format ("0541234567") or E.164 ("+972541234567")
to = ""
`

const credentialsTemplate = `# Pricewatch Credentials
# Keep this file private (chmod 600).

[google]
# Base64-encoded Google service account JSON key with Sheets scope
service_key_base64 = ""

[twilio]
account_sid = ""
auth_token = ""
# Twilio WhatsApp sender, e.g. "whatsapp:+14155238886"
from = ""
`

func createTemplateConfig(configDir, name string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, name+".toml")
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	return nil
}

func createTemplateCredentials(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "credentials.toml")
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	if err := os.WriteFile(path, []byte(credentialsTemplate), 0600); err != nil {
		return fmt.Errorf("writing credentials template: %w", err)
	}

	return nil
}
