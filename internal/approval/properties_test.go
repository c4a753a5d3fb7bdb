//go:build property

package approval

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/clawsec/core/internal/clock"
)

// action is a scripted operation applied to a fresh pending record.
type action int

const (
	actionApprove action = iota
	actionDeny
)

func TestApprovalTerminalStateIsStable(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("once a record reaches a terminal state, no further action changes it", prop.ForAll(
		func(ops []int) bool {
			c := clock.NewManual(time.Now())
			s := NewStore(c, false, 0)
			s.Add(Record{ID: "p1", ExpiresAt: clock.NowMs(c) + 60000, Status: StatusPending})

			var terminal Status
			sawTerminal := false
			for _, op := range ops {
				if op%2 == 0 {
					s.Approve("p1", nil)
				} else {
					s.Deny("p1")
				}
				rec, _ := s.Get("p1")
				if rec.Status == StatusApproved || rec.Status == StatusDenied {
					if !sawTerminal {
						terminal = rec.Status
						sawTerminal = true
					} else if rec.Status != terminal {
						return false
					}
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 1)),
	))

	properties.TestingRun(t)
}

func TestApprovalLazyExpiryIsMonotonic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("a record observed expired never becomes pending again", prop.ForAll(
		func(advanceSeconds int) bool {
			c := clock.NewManual(time.Now())
			s := NewStore(c, false, 0)
			s.Add(Record{ID: "p1", ExpiresAt: clock.NowMs(c) + 1000, Status: StatusPending})

			c.Advance(time.Duration(advanceSeconds) * time.Second)
			rec, _ := s.Get("p1")
			wasExpired := rec.Status == StatusExpired

			c.Advance(time.Second)
			rec2, _ := s.Get("p1")
			if wasExpired {
				return rec2.Status == StatusExpired
			}
			return true
		},
		gen.IntRange(0, 10),
	))

	properties.TestingRun(t)
}
