package feed

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	apperrors "pricewatch/internal/errors"
	"pricewatch/internal/logging"
	"pricewatch/internal/models"
)

const defaultStooqBaseURL = "https://stooq.com/q/l/"

// StooqProvider fetches delayed quotes from the Stooq CSV endpoint. It
// needs no API key, which fits a single-user tool polling on human
// timescales.
type StooqProvider struct {
	baseURL string
	client  *http.Client
	logger  zerolog.Logger
}

// NewStooqProvider creates a Stooq-backed provider. An empty baseURL
// selects the public endpoint.
func NewStooqProvider(baseURL string, timeout time.Duration, logger zerolog.Logger) *StooqProvider {
	if baseURL == "" {
		baseURL = defaultStooqBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &StooqProvider{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// FetchLatest requests one quote per ticker in a single call. Tickers with
// no data ("N/D" close, unknown symbol) are simply left out of the
// snapshot.
func (p *StooqProvider) FetchLatest(ctx context.Context, tickers []string) (models.Snapshot, error) {
	snapshot := models.Snapshot{}
	if len(tickers) == 0 {
		return snapshot, nil
	}

	symbols := make([]string, 0, len(tickers))
	for _, t := range tickers {
		symbols = append(symbols, strings.ToLower(t)+".us")
	}

	q := url.Values{}
	q.Set("s", strings.Join(symbols, "+"))
	q.Set("f", "sd2t2c") // symbol, date, time, close
	q.Set("e", "csv")

	reqURL := p.baseURL + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return snapshot, apperrors.NewFeedError("", "creating request", err)
	}

	start := time.Now()
	resp, err := p.client.Do(req)
	logging.LogAPICall(p.logger, http.MethodGet, p.baseURL, time.Since(start), err)
	if err != nil {
		return snapshot, apperrors.NewFeedError("", "fetching quotes", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return snapshot, apperrors.NewFeedError("", fmt.Sprintf("status %d", resp.StatusCode), apperrors.ErrFeedUnavailable)
	}

	reader := csv.NewReader(resp.Body)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return snapshot, apperrors.NewFeedError("", "parsing csv", err)
	}

	for _, rec := range records {
		if len(rec) < 4 {
			continue
		}
		ticker := normalizeSymbol(rec[0])
		if ticker == "" || ticker == "SYMBOL" {
			continue
		}

		closeText := rec[len(rec)-1]
		price, err := models.ParsePrice(closeText)
		if err != nil {
			// "N/D" and friends: feed gap, not an error.
			p.logger.Debug().Str("ticker", ticker).Str("close", closeText).Msg("No quote data")
			continue
		}
		snapshot.Set(ticker, price)
	}

	return snapshot, nil
}

// normalizeSymbol maps a feed symbol like "AAPL.US" back to the stored
// ticker form.
func normalizeSymbol(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	if i := strings.Index(s, "."); i >= 0 {
		s = s[:i]
	}
	return s
}
