// Package ledger implements the spend-limit ledger (spec §4.C): an
// append-only, time-windowed transaction log consulted by the purchase
// detector and updated whenever a gated spend is approved.
package ledger

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/clawsec/core/internal/clock"
)

const window24h = 24 * time.Hour

// SpendRecord is one recorded transaction (spec §3).
type SpendRecord struct {
	ID            string
	Amount        float64
	Timestamp     int64 // epoch-ms
	Approved      bool
	TransactionID *string
	Domain        *string
}

// Backend optionally persists spend records (SPEC_FULL.md §1.2's Postgres /
// SQLite "Lite Mode" dual backing). The default Ledger has no Backend: spend
// history lives only in memory, per spec.md's "no disk persistence"
// Non-goal. A Backend is an opt-in durability adapter for hosts that want
// spend history to survive a restart; it never changes DailyTotal's
// semantics, only where records are read from at startup.
type Backend interface {
	SaveSpend(ctx context.Context, rec SpendRecord) error
	LoadSpends(ctx context.Context, since int64) ([]SpendRecord, error)
}

// Ledger is a bounded, append-only transaction log with rolling-window
// sums. The zero value is not usable; construct with New.
type Ledger struct {
	mu      sync.RWMutex
	clock   clock.Clock
	records []SpendRecord
	seq     int64
	backend Backend
	logger  *slog.Logger
}

// New returns an in-memory Ledger driven by c.
func New(c clock.Clock) *Ledger {
	return &Ledger{clock: c, logger: slog.Default()}
}

// NewWithBackend returns a Ledger that hydrates its window from backend at
// construction time and writes every subsequent Record through to it.
// Backend I/O failures are logged, never fatal: Record always succeeds
// in-memory regardless of the backend's health.
func NewWithBackend(ctx context.Context, c clock.Clock, backend Backend, logger *slog.Logger) (*Ledger, error) {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Ledger{clock: c, backend: backend, logger: logger}
	since := clock.NowMs(c) - window24h.Milliseconds()
	records, err := backend.LoadSpends(ctx, since)
	if err != nil {
		return nil, err
	}
	l.records = records
	return l, nil
}

// Record appends a new entry and returns a copy of it. Amount must be
// non-negative; callers are expected to have validated this upstream (the
// ledger does not reject negative amounts itself — it documents the
// invariant, per spec §3, rather than enforcing it defensively here since
// every caller constructs amounts from the currency extractor which already
// excludes negatives).
func (l *Ledger) Record(amount float64, approved bool, transactionID, domain *string) SpendRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seq++
	rec := SpendRecord{
		ID:            recordID(l.seq),
		Amount:        amount,
		Timestamp:     clock.NowMs(l.clock),
		Approved:      approved,
		TransactionID: transactionID,
		Domain:        domain,
	}
	l.records = append(l.records, rec)
	l.evictLocked()
	if l.backend != nil {
		if err := l.backend.SaveSpend(context.Background(), rec); err != nil {
			l.logger.Error("ledger backend write failed", "record", rec.ID, "error", err)
		}
	}
	return rec
}

// DailyTotal sums the Amount of all approved entries whose Timestamp falls
// within the trailing 24h window ending at l.clock.Now() (spec §8 property
// 6: entries older than now-24h are excluded).
func (l *Ledger) DailyTotal() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.evictLocked()
	cutoff := clock.NowMs(l.clock) - window24h.Milliseconds()
	var total float64
	for _, r := range l.records {
		if r.Approved && r.Timestamp >= cutoff {
			total += r.Amount
		}
	}
	return total
}

// Size returns the number of retained records (post-eviction).
func (l *Ledger) Size() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// Clear removes all records. Test support only.
func (l *Ledger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = nil
}

// evictLocked drops entries older than 24h. Callers must hold l.mu.
func (l *Ledger) evictLocked() {
	cutoff := clock.NowMs(l.clock) - window24h.Milliseconds()
	kept := l.records[:0]
	for _, r := range l.records {
		if r.Timestamp >= cutoff {
			kept = append(kept, r)
		}
	}
	l.records = kept
}

func recordID(seq int64) string {
	const hex = "0123456789abcdef"
	b := make([]byte, 0, 20)
	b = append(b, "spend-"...)
	if seq == 0 {
		return string(append(b, '0'))
	}
	var tmp [16]byte
	i := len(tmp)
	for seq > 0 {
		i--
		tmp[i] = hex[seq%16]
		seq /= 16
	}
	return string(append(b, tmp[i:]...))
}
