package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	apperrors "pricewatch/internal/errors"
	"pricewatch/internal/models"
)

// SQLiteStore implements RuleStore on a local SQLite file. It serves as a
// durable mirror of the remote sheet: written after every successful remote
// save, read back when the sheet is unreachable. SaveAll keeps the same
// snapshot-replace contract as the sheet, but inside a transaction.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the local rule database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Rules table mirrors the remote sheet, text-typed like the sheet itself.
	-- raw holds the JSON-encoded original cells for rows whose width differs
	-- from the standard layout, so corrupt rows survive the mirror verbatim.
	CREATE TABLE IF NOT EXISTS rules (
		position INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL,
		ticker TEXT NOT NULL,
		target_price TEXT NOT NULL,
		current_price TEXT NOT NULL,
		direction TEXT NOT NULL,
		notes TEXT,
		created_at TEXT,
		status TEXT NOT NULL,
		triggered_at TEXT,
		raw TEXT NOT NULL DEFAULT '',
		saved_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_rules_status ON rules(status);
	CREATE INDEX IF NOT EXISTS idx_rules_ticker ON rules(ticker);
	`

	_, err := s.db.Exec(schema)
	return err
}

// LoadAll returns all mirrored rules in insertion order.
func (s *SQLiteStore) LoadAll(ctx context.Context) ([]*models.Rule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ticker, target_price, current_price, direction, notes,
		       created_at, status, triggered_at, id, raw
		FROM rules ORDER BY position`)
	if err != nil {
		return nil, apperrors.NewStoreError("load", err)
	}
	defer rows.Close()

	var rules []*models.Rule
	for rows.Next() {
		cells := make([]string, models.RowWidth)
		var rawBlob string
		dest := make([]interface{}, 0, models.RowWidth+1)
		for i := range cells {
			dest = append(dest, &cells[i])
		}
		dest = append(dest, &rawBlob)
		if err := rows.Scan(dest...); err != nil {
			return nil, apperrors.NewStoreError("scan", err)
		}

		if rawBlob != "" {
			var raw []string
			if err := json.Unmarshal([]byte(rawBlob), &raw); err != nil {
				return nil, apperrors.NewStoreError("decode", err)
			}
			cells = raw
		}
		rules = append(rules, models.DecodeRow(cells))
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStoreError("load", err)
	}

	return rules, nil
}

// SaveAll replaces the mirrored set in one transaction.
func (s *SQLiteStore) SaveAll(ctx context.Context, rules []*models.Rule) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewStoreError("begin", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM rules`); err != nil {
		return apperrors.NewStoreError("clear", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO rules (ticker, target_price, current_price, direction,
		                   notes, created_at, status, triggered_at, id, raw, saved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return apperrors.NewStoreError("prepare", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, r := range rules {
		encoded := models.EncodeRow(r)

		// Rows at a nonstandard width keep their exact cells in the raw
		// column; the fixed columns are best-effort display copies.
		rawBlob := ""
		if len(encoded) != models.RowWidth {
			b, err := json.Marshal(encoded)
			if err != nil {
				return apperrors.NewStoreError("encode", err)
			}
			rawBlob = string(b)
		}

		row := make([]string, models.RowWidth)
		copy(row, encoded)
		args := make([]interface{}, 0, models.RowWidth+2)
		for _, c := range row {
			args = append(args, c)
		}
		args = append(args, rawBlob, now)
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return apperrors.NewStoreError("insert", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewStoreError("commit", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
