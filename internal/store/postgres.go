// Package store implements optional durable backends for the spend ledger
// and approval store (SPEC_FULL.md §1.2), mirroring the teacher's
// Postgres-vs-SQLite "Lite Mode" dual backing. The default wiring in
// cmd/clawsecd never constructs one of these: spec.md's "no disk
// persistence" Non-goal is honored by staying in-memory unless a host opts
// in via config.
package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/clawsec/core/internal/ledger"
)

// PostgresLedgerBackend implements ledger.Backend using PostgreSQL. Adapted
// from pkg/budget/postgres_store.go's upsert-on-conflict shape.
type PostgresLedgerBackend struct {
	db *sql.DB
}

func NewPostgresLedgerBackend(db *sql.DB) *PostgresLedgerBackend {
	return &PostgresLedgerBackend{db: db}
}

// Migrate creates the spend_records table if absent. Callers run this once
// at startup; it is not invoked implicitly so tests can drive a bare mock.
func (s *PostgresLedgerBackend) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS spend_records (
			id TEXT PRIMARY KEY,
			amount DOUBLE PRECISION NOT NULL,
			timestamp BIGINT NOT NULL,
			approved BOOLEAN NOT NULL,
			transaction_id TEXT,
			domain TEXT
		)`)
	if err != nil {
		return fmt.Errorf("store: migrate spend_records: %w", err)
	}
	return nil
}

func (s *PostgresLedgerBackend) SaveSpend(ctx context.Context, rec ledger.SpendRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO spend_records (id, amount, timestamp, approved, transaction_id, domain)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING`,
		rec.ID, rec.Amount, rec.Timestamp, rec.Approved, rec.TransactionID, rec.Domain)
	if err != nil {
		return fmt.Errorf("store: save spend record %s: %w", rec.ID, err)
	}
	return nil
}

func (s *PostgresLedgerBackend) LoadSpends(ctx context.Context, since int64) ([]ledger.SpendRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, amount, timestamp, approved, transaction_id, domain
		FROM spend_records
		WHERE timestamp >= $1
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
