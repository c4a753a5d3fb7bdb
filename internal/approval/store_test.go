package approval

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clawsec/core/internal/clock"
)

func newTestStore(c clock.Clock) *Store {
	return NewStore(c, false, 0)
}

func TestApproveIsIdempotent(t *testing.T) {
	c := clock.NewManual(time.Now())
	s := newTestStore(c)
	s.Add(Record{ID: "a1", ExpiresAt: clock.NowMs(c) + 1000, Status: StatusPending})

	ok1 := s.Approve("a1", nil)
	ok2 := s.Approve("a1", nil)

	assert.True(t, ok1)
	assert.False(t, ok2)

	rec, found := s.Get("a1")
	require.True(t, found)
	assert.Equal(t, StatusApproved, rec.Status)
}

func TestDenyAfterApproveFails(t *testing.T) {
	c := clock.NewManual(time.Now())
	s := newTestStore(c)
	s.Add(Record{ID: "a1", ExpiresAt: clock.NowMs(c) + 1000, Status: StatusPending})

	require.True(t, s.Approve("a1", nil))
	assert.False(t, s.Deny("a1"))
}

func TestLazyExpiry(t *testing.T) {
	c := clock.NewManual(time.Now())
	s := newTestStore(c)
	s.Add(Record{ID: "a1", ExpiresAt: clock.NowMs(c) + 1000, Status: StatusPending})

	c.Advance(2 * time.Second)

	rec, found := s.Get("a1")
	require.True(t, found)
	assert.Equal(t, StatusExpired, rec.Status)

	assert.False(t, s.Approve("a1", nil))
}

func TestCleanupRemovesTerminalWhenConfigured(t *testing.T) {
	c := clock.NewManual(time.Now())
	s := NewStore(c, true, 0)
	s.Add(Record{ID: "a1", ExpiresAt: clock.NowMs(c) + 1000, Status: StatusPending})

	c.Advance(2 * time.Second)
	s.Cleanup()

	assert.Equal(t, 0, s.Size())
}

func TestGetPendingExcludesExpired(t *testing.T) {
	c := clock.NewManual(time.Now())
	s := newTestStore(c)
	s.Add(Record{ID: "a1", ExpiresAt: clock.NowMs(c) + 1000, Status: StatusPending})
	s.Add(Record{ID: "a2", ExpiresAt: clock.NowMs(c) - 1000, Status: StatusPending})

	pending := s.GetPending()
	require.Len(t, pending, 1)
	assert.Equal(t, "a1", pending[0].ID)
}
