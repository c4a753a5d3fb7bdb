// Package transport implements the three approval transports (spec §4.F):
// native operator actions, agent-retry confirmation tokens, and webhook
// delivery (sync + async callback).
package transport

import (
	"github.com/clawsec/core/internal/approval"
)

// Outcome is the result of a native approve/deny action.
type Outcome struct {
	Success bool
	Message string
	Record  *approval.Record
}

// Native is the in-process operator transport (spec §4.F "Native").
type Native struct {
	store *approval.Store
}

func NewNative(store *approval.Store) *Native {
	return &Native{store: store}
}

// HandleApprove approves a pending record. Exact message strings are part
// of the external contract (spec §4.F): "Invalid" for malformed ids,
// "not found" for missing records, "expired" for lazily-expired records,
// "already approved"/"already denied" for terminal records.
func (n *Native) HandleApprove(id string, userID *string) Outcome {
	id = approval.Trim(id)
	if id == "" {
		return Outcome{Success: false, Message: "Invalid approval id"}
	}
	rec, ok := n.store.Get(id)
	if !ok {
		return Outcome{Success: false, Message: "Approval " + id + " not found"}
	}
	switch rec.Status {
	case approval.StatusExpired:
		return Outcome{Success: false, Message: "Approval " + id + " has expired", Record: &rec}
	case approval.StatusApproved:
		return Outcome{Success: false, Message: "Approval " + id + " is already approved", Record: &rec}
	case approval.StatusDenied:
		return Outcome{Success: false, Message: "Approval " + id + " is already denied", Record: &rec}
	}
	if !n.store.Approve(id, userID) {
		return Outcome{Success: false, Message: "Approval " + id + " could not be approved"}
	}
	final, _ := n.store.Get(id)
	return Outcome{Success: true, Message: "Approved " + id, Record: &final}
}

// HandleDeny denies a pending record under the same guard as HandleApprove.
// Denying an already-approved record additionally says "cannot be denied".
func (n *Native) HandleDeny(id string) Outcome {
	id = approval.Trim(id)
	if id == "" {
		return Outcome{Success: false, Message: "Invalid approval id"}
	}
	rec, ok := n.store.Get(id)
	if !ok {
		return Outcome{Success: false, Message: "Approval " + id + " not found"}
	}
	switch rec.Status {
	case approval.StatusExpired:
		return Outcome{Success: false, Message: "Approval " + id + " has expired", Record: &rec}
	case approval.StatusApproved:
		return Outcome{Success: false, Message: "Approval " + id + " is already approved and cannot be denied", Record: &rec}
	case approval.StatusDenied:
		return Outcome{Success: false, Message: "Approval " + id + " is already denied", Record: &rec}
	}
	if !n.store.Deny(id) {
		return Outcome{Success: false, Message: "Approval " + id + " could not be denied"}
	}
	final, _ := n.store.Get(id)
	return Outcome{Success: true, Message: "Denied " + id, Record: &final}
}
