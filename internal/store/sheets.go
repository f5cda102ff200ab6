package store

import (
	"context"
	"encoding/base64"
	"fmt"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	apperrors "pricewatch/internal/errors"
	"pricewatch/internal/models"
	"pricewatch/pkg/utils"
)

// header row written to row 1 of the sheet; data starts at row 2.
var sheetHeader = []interface{}{
	"ticker", "target_price", "current_price", "direction",
	"notes", "created_at", "status", "triggered_at", "id",
}

// SheetsStore persists rules in a Google Sheets spreadsheet, one rule per
// row, every field as text. SaveAll is a snapshot replace: clear the data
// range, then write all rows. A failure mid-write can leave the sheet
// temporarily empty, which the local mirror exists to absorb.
type SheetsStore struct {
	srv           *sheets.Service
	spreadsheetID string
	sheetName     string
	retry         utils.RetryConfig
}

// NewSheetsStore authenticates with a base64-encoded service account key
// and returns a store bound to one spreadsheet tab.
func NewSheetsStore(ctx context.Context, serviceKeyBase64, spreadsheetID, sheetName string) (*SheetsStore, error) {
	credBytes, err := base64.StdEncoding.DecodeString(serviceKeyBase64)
	if err != nil {
		return nil, fmt.Errorf("decoding service account key: %w", err)
	}

	jwtConfig, err := google.JWTConfigFromJSON(credBytes, "https://www.googleapis.com/auth/spreadsheets")
	if err != nil {
		return nil, fmt.Errorf("parsing service account key: %w", err)
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(jwtConfig.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("creating sheets service: %w", err)
	}

	return &SheetsStore{
		srv:           srv,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		retry:         utils.DefaultRetryConfig(),
	}, nil
}

// LoadAll reads every rule row from the sheet.
func (s *SheetsStore) LoadAll(ctx context.Context) ([]*models.Rule, error) {
	readRange := fmt.Sprintf("%s!A2:I", s.sheetName)

	resp, err := utils.RetryWithResult(ctx, s.retry, func() (*sheets.ValueRange, error) {
		return s.srv.Spreadsheets.Values.Get(s.spreadsheetID, readRange).Context(ctx).Do()
	})
	if err != nil {
		return nil, apperrors.NewStoreError("load", err)
	}

	rules := make([]*models.Rule, 0, len(resp.Values))
	for _, row := range resp.Values {
		cells := make([]string, 0, len(row))
		for _, v := range row {
			cells = append(cells, fmt.Sprint(v))
		}
		if emptyRow(cells) {
			continue
		}
		rules = append(rules, models.DecodeRow(cells))
	}

	return rules, nil
}

// SaveAll clears the data range and writes the complete rule set back.
func (s *SheetsStore) SaveAll(ctx context.Context, rules []*models.Rule) error {
	clearRange := fmt.Sprintf("%s!A2:I", s.sheetName)
	err := utils.Retry(ctx, s.retry, func() error {
		_, cErr := s.srv.Spreadsheets.Values.Clear(s.spreadsheetID, clearRange, &sheets.ClearValuesRequest{}).Context(ctx).Do()
		return cErr
	})
	if err != nil {
		return apperrors.NewStoreError("clear", err)
	}

	values := [][]interface{}{sheetHeader}
	for _, r := range rules {
		row := models.EncodeRow(r)
		cells := make([]interface{}, len(row))
		for i, c := range row {
			cells[i] = c
		}
		values = append(values, cells)
	}

	writeRange := fmt.Sprintf("%s!A1", s.sheetName)
	vr := &sheets.ValueRange{Values: values}

	err = utils.Retry(ctx, s.retry, func() error {
		resp, wErr := s.srv.Spreadsheets.Values.Update(s.spreadsheetID, writeRange, vr).
			ValueInputOption("RAW").Context(ctx).Do()
		if wErr != nil {
			return wErr
		}
		if resp.HTTPStatusCode != 200 {
			return fmt.Errorf("unexpected http status %d", resp.HTTPStatusCode)
		}
		return nil
	})
	if err != nil {
		return apperrors.NewStoreError("save", err)
	}

	return nil
}

// Close implements RuleStore; the sheets client holds no resources.
func (s *SheetsStore) Close() error {
	return nil
}

func emptyRow(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}
