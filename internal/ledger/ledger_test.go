package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clawsec/core/internal/clock"
)

type fakeBackend struct {
	saved  []SpendRecord
	loaded []SpendRecord
}

func (f *fakeBackend) SaveSpend(ctx context.Context, rec SpendRecord) error {
	f.saved = append(f.saved, rec)
	return nil
}

func (f *fakeBackend) LoadSpends(ctx context.Context, since int64) ([]SpendRecord, error) {
	return f.loaded, nil
}

func TestNewWithBackendHydratesFromBackend(t *testing.T) {
	c := clock.NewManual(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
	backend := &fakeBackend{loaded: []SpendRecord{{ID: "spend-1", Amount: 40, Timestamp: clock.NowMs(c), Approved: true}}}

	l, err := NewWithBackend(context.Background(), c, backend, nil)
	require.NoError(t, err)
	assert.InDelta(t, 40, l.DailyTotal(), 1e-9)
}

func TestRecordWritesThroughToBackend(t *testing.T) {
	c := clock.NewManual(time.Now())
	backend := &fakeBackend{}
	l, err := NewWithBackend(context.Background(), c, backend, nil)
	require.NoError(t, err)

	l.Record(25, true, nil, nil)
	require.Len(t, backend.saved, 1)
	assert.Equal(t, 25.0, backend.saved[0].Amount)
}

func TestRecordAndDailyTotal(t *testing.T) {
	c := clock.NewManual(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
	l := New(c)

	l.Record(50, true, nil, nil)
	l.Record(30, true, nil, nil)
	l.Record(100, false, nil, nil) // unapproved, excluded

	assert.InDelta(t, 80, l.DailyTotal(), 1e-9)
}

func TestDailyTotalExcludesEntriesOlderThan24h(t *testing.T) {
	c := clock.NewManual(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
	l := New(c)

	l.Record(50, true, nil, nil)
	c.Advance(23 * time.Hour)
	assert.InDelta(t, 50, l.DailyTotal(), 1e-9)

	c.Advance(2 * time.Hour) // now 25h after the first record
	assert.InDelta(t, 0, l.DailyTotal(), 1e-9)
	assert.Equal(t, 0, l.Size())
}

func TestRecordIDsAreUnique(t *testing.T) {
	c := clock.NewManual(time.Now())
	l := New(c)
	a := l.Record(1, true, nil, nil)
	b := l.Record(2, true, nil, nil)
	assert.NotEqual(t, a.ID, b.ID)
}
