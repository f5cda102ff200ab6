// Package inbound polls the messaging gateway for rule-creation commands.
package inbound

import (
	"regexp"
	"strings"

	"pricewatch/internal/models"
)

// commandPattern is the only supported command shape: a ticker followed by
// a target price. Anything else is ignored, not an error.
var commandPattern = regexp.MustCompile(`^([A-Z]+)\s+(\d+(\.\d+)?)$`)

// Command is a parsed rule-creation request.
type Command struct {
	Ticker string
	Target float64
}

// ParseCommand extracts a command from a raw message body. The body is
// trimmed and uppercased before matching, so "aapl 180" works. The second
// return value is false for anything that does not match.
func ParseCommand(body string) (Command, bool) {
	text := strings.ToUpper(strings.TrimSpace(body))

	m := commandPattern.FindStringSubmatch(text)
	if m == nil {
		return Command{}, false
	}

	target, err := models.ParsePrice(m[2])
	if err != nil || target <= 0 {
		return Command{}, false
	}

	return Command{Ticker: m[1], Target: target}, true
}
