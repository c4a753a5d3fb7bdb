package approval

import (
	"sync"
	"time"

	"github.com/clawsec/core/internal/clock"
)

// Store is the TTL'd approval state machine (spec §4.E). A single mutex
// guards the map; critical sections are kept short (map lookup + field
// mutation) so contention stays low even though the store is hot on a busy
// engine, per spec §9's fine-grained-locking guidance.
type Store struct {
	mu              sync.Mutex
	records         map[string]*Record
	clock           clock.Clock
	removeOnExpiry  bool
	sweepInterval   time.Duration
	stopSweep       chan struct{}
	sweepWG         sync.WaitGroup
}

// NewStore returns a Store driven by c. removeOnExpiry controls whether
// Cleanup also deletes terminal (non-pending) records; sweepInterval
// configures the periodic sweeper goroutine (0 disables it).
func NewStore(c clock.Clock, removeOnExpiry bool, sweepInterval time.Duration) *Store {
	s := &Store{
		records:        make(map[string]*Record),
		clock:          c,
		removeOnExpiry: removeOnExpiry,
		sweepInterval:  sweepInterval,
		stopSweep:      make(chan struct{}),
	}
	if sweepInterval > 0 {
		s.sweepWG.Add(1)
		go s.sweepLoop()
	}
	return s
}

func (s *Store) sweepLoop() {
	defer s.sweepWG.Done()
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.Cleanup()
		case <-s.stopSweep:
			return
		}
	}
}

// Stop halts the sweeper goroutine, if running. Idempotent.
func (s *Store) Stop() {
	select {
	case <-s.stopSweep:
		// already stopped
	default:
		close(s.stopSweep)
	}
	s.sweepWG.Wait()
}

// Add upserts a record by ID.
func (s *Store) Add(r Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := r.clone()
	s.records[r.ID] = &cp
}

// Get returns the record for id, lazily transitioning it to expired first
// if it's pending and past its ExpiresAt (spec §8 property 5).
func (s *Store) Get(id string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok {
		return Record{}, false
	}
	s.expireIfDueLocked(r)
	return r.clone(), true
}

func (s *Store) expireIfDueLocked(r *Record) {
	if r.Status == StatusPending && clock.NowMs(s.clock) >= r.ExpiresAt {
		r.Status = StatusExpired
	}
}

// Approve transitions id from pending to approved. Succeeds iff the record
// exists, was pending, and is not expired; returns false otherwise without
// mutating the record (spec §8 property 4).
func (s *Store) Approve(id string, approvedBy *string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok {
		return false
	}
	s.expireIfDueLocked(r)
	if r.Status != StatusPending {
		return false
	}
	now := clock.NowMs(s.clock)
	r.Status = StatusApproved
	r.ApprovedAt = &now
	r.ApprovedBy = approvedBy
	return true
}

// Deny transitions id from pending to denied under the same guard as
// Approve. No approver is recorded for a denial.
func (s *Store) Deny(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok {
		return false
	}
	s.expireIfDueLocked(r)
	if r.Status != StatusPending {
		return false
	}
	r.Status = StatusDenied
	return true
}

// Remove deletes id. Idempotent: removing an absent id is a no-op.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
}

// GetPending returns every record currently pending, lazily expiring any
// that are due first.
func (s *Store) GetPending() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Record
	for _, r := range s.records {
		s.expireIfDueLocked(r)
		if r.Status == StatusPending {
			out = append(out, r.clone())
		}
	}
	return out
}

// Cleanup sweeps due-for-expiry records to expired, and — if the store was
// constructed with removeOnExpiry — also deletes every terminal record.
func (s *Store) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, r := range s.records {
		s.expireIfDueLocked(r)
		if s.removeOnExpiry && r.Status != StatusPending {
			delete(s.records, id)
		}
	}
}

// Size returns the number of records currently held, including terminal
// ones not yet swept.
func (s *Store) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Clear removes every record. Test support only.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]*Record)
}
