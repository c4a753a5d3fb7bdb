package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/clawsec/core/internal/ledger"
)

// SQLiteLedgerBackend implements ledger.Backend using modernc.org/sqlite, a
// pure-Go driver requiring no cgo toolchain. Adapted from
// pkg/store/receipt_store_sqlite.go's migrate-on-construct shape.
type SQLiteLedgerBackend struct {
	db *sql.DB
}

func NewSQLiteLedgerBackend(db *sql.DB) (*SQLiteLedgerBackend, error) {
	s := &SQLiteLedgerBackend{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteLedgerBackend) migrate() error {
	_, err := s.db.ExecContext(context.Background(), `
		CREATE TABLE IF NOT EXISTS spend_records (
			id TEXT PRIMARY KEY,
			amount REAL NOT NULL,
			timestamp INTEGER NOT NULL,
			approved INTEGER NOT NULL,
			transaction_id TEXT,
			domain TEXT
		)`)
	if err != nil {
		return fmt.Errorf("store: migrate spend_records: %w", err)
	}
	return nil
}

func (s *SQLiteLedgerBackend) SaveSpend(ctx context.Context, rec ledger.SpendRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO spend_records (id, amount, timestamp, approved, transaction_id, domain)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Amount, rec.Timestamp, rec.Approved, rec.TransactionID, rec.Domain)
	if err != nil {
		return fmt.Errorf("store: save spend record %s: %w", rec.ID, err)
	}
	return nil
}

func (s *SQLiteLedgerBackend) LoadSpends(ctx context.Context, since int64) ([]ledger.SpendRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, amount, timestamp, approved, transaction_id, domain
		FROM spend_records
		WHERE timestamp >= ?
		ORDER BY timestamp ASC`, since)
	if err != nil {
		return nil, fmt.Errorf("store: load spend records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []ledger.SpendRecord
	for rows.Next() {
		var rec ledger.SpendRecord
		var txID, domain sql.NullString
		if err := rows.Scan(&rec.ID, &rec.Amount, &rec.Timestamp, &rec.Approved, &txID, &domain); err != nil {
			return nil, fmt.Errorf("store: scan spend record: %w", err)
		}
		if txID.Valid {
			rec.TransactionID = &txID.String
		}
		if domain.Valid {
			rec.Domain = &domain.String
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
