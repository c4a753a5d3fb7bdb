package transport

import (
	"strings"

	"github.com/clawsec/core/internal/approval"
	"github.com/clawsec/core/internal/detect"
)

// AgentConfirmResult is the outcome of checking one tool call for a
// carried-forward approval id (spec §4.F "Agent-confirm").
type AgentConfirmResult struct {
	Confirmed     bool
	Valid         bool
	ApprovalID    string
	Error         string
	StrippedInput detect.ToolCallContext
}

// AgentConfirm implements the retry-confirmation transport: a distinguished
// tool-input parameter carries an approval id emitted by a previous blocked
// call.
type AgentConfirm struct {
	store         *approval.Store
	enabled       bool
	parameterName string
}

func NewAgentConfirm(store *approval.Store, enabled bool, parameterName string) *AgentConfirm {
	if parameterName == "" {
		parameterName = "_clawsec_confirm"
	}
	return &AgentConfirm{store: store, enabled: enabled, parameterName: parameterName}
}

// Check implements spec §4.F's four-step algorithm. It deliberately does
// not re-verify that this call's payload matches the original request
// (spec §9 Open Questions: a documented limitation, the id is the key).
func (a *AgentConfirm) Check(tc detect.ToolCallContext) AgentConfirmResult {
	if !a.enabled {
		return AgentConfirmResult{Confirmed: false, Valid: false, Error: "disabled"}
	}
	raw, present := tc.ToolInput[a.parameterName]
	if !present {
		return AgentConfirmResult{Confirmed: false, Valid: false}
	}
	s, ok := raw.(string)
	trimmed := strings.TrimSpace(s)
	if !ok || trimmed == "" {
		return AgentConfirmResult{Confirmed: true, Valid: false, Error: "non-empty string"}
	}

	id := approval.Trim(trimmed)
	approver := "agent"
	if !a.store.Approve(id, &approver) {
		// Either the record doesn't exist, or it's no longer pending; either
		// way this is a valid-shaped but unusable confirmation token.
		return AgentConfirmResult{Confirmed: true, Valid: false, Error: "approval not pending", ApprovalID: id}
	}

	stripped := tc.WithStrippedKey(a.parameterName)
	return AgentConfirmResult{
		Confirmed:     true,
		Valid:         true,
		ApprovalID:    id,
		StrippedInput: stripped,
	}
}
