package transport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clawsec/core/internal/approval"
	"github.com/clawsec/core/internal/clock"
	"github.com/clawsec/core/internal/detect"
)

func TestAgentConfirmStripsKeyOnSuccess(t *testing.T) {
	c := clock.NewManual(time.Now())
	store := approval.NewStore(c, false, 0)
	store.Add(approval.Record{ID: "approval-xyz", ExpiresAt: clock.NowMs(c) + 10000, Status: approval.StatusPending})

	ac := NewAgentConfirm(store, true, "")
	tc := detect.NewToolCallContext("tool", map[string]any{"_clawsec_confirm": "approval-xyz", "amount": 10}, nil)

	result := ac.Check(tc)
	require.True(t, result.Confirmed)
	assert.True(t, result.Valid)
	assert.Equal(t, "approval-xyz", result.ApprovalID)
	_, present := result.StrippedInput.ToolInput["_clawsec_confirm"]
	assert.False(t, present)
	assert.Equal(t, 10, result.StrippedInput.ToolInput["amount"])

	rec, _ := store.Get("approval-xyz")
	assert.Equal(t, approval.StatusApproved, rec.Status)
}

func TestAgentConfirmAbsentParameter(t *testing.T) {
	c := clock.NewManual(time.Now())
	store := approval.NewStore(c, false, 0)
	ac := NewAgentConfirm(store, true, "")

	tc := detect.NewToolCallContext("tool", map[string]any{"amount": 10}, nil)
	result := ac.Check(tc)
	assert.False(t, result.Confirmed)
	assert.False(t, result.Valid)
}

func TestAgentConfirmDisabled(t *testing.T) {
	c := clock.NewManual(time.Now())
	store := approval.NewStore(c, false, 0)
	ac := NewAgentConfirm(store, false, "")

	tc := detect.NewToolCallContext("tool", map[string]any{"_clawsec_confirm": "approval-xyz"}, nil)
	result := ac.Check(tc)
	assert.False(t, result.Confirmed)
	assert.False(t, result.Valid)
}

func TestAgentConfirmUnknownApprovalID(t *testing.T) {
	c := clock.NewManual(time.Now())
	store := approval.NewStore(c, false, 0)
	ac := NewAgentConfirm(store, true, "")

	tc := detect.NewToolCallContext("tool", map[string]any{"_clawsec_confirm": "approval-does-not-exist"}, nil)
	result := ac.Check(tc)
	assert.True(t, result.Confirmed)
	assert.False(t, result.Valid)
	assert.Equal(t, "approval not pending", result.Error)
}
