// Package approval implements the pending-approval state machine (spec
// §4.E) and, in the transport subpackage, its three approval transports
// (spec §4.F).
package approval

import "github.com/clawsec/core/internal/detect"

// Status is the closed set of states a PendingApprovalRecord can occupy.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusDenied   Status = "denied"
	StatusExpired  Status = "expired"
)

// Record is a PendingApprovalRecord (spec §3). CreatedAt/ExpiresAt/ApprovedAt
// are epoch-ms. Once Status is non-pending it is terminal, except that a
// read of a pending record past ExpiresAt lazily transitions it to expired.
type Record struct {
	ID         string
	CreatedAt  int64
	ExpiresAt  int64
	Detection  detect.Detection
	ToolCall   detect.ToolCallContext
	Status     Status
	ApprovedAt *int64
	ApprovedBy *string
}

// clone returns a value copy so callers can't mutate the store's internal
// state through a returned *Record.
func (r Record) clone() Record {
	return r
}
