package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/clawsec/core/internal/detect"
)

func TestRulesConfigTranslatesDefaults(t *testing.T) {
	cfg := Default()
	rc := cfg.RulesConfig()
	assert.Equal(t, detect.SeverityHigh, rc.Purchase.Severity)
	assert.Equal(t, detect.ActionBlock, rc.Purchase.Action)
	assert.Equal(t, 100.0, rc.Purchase.SpendLimits.PerTransaction)
	assert.True(t, rc.Destructive.ShellEnabled)
	assert.True(t, rc.Sanitization.Categories.InstructionOverride)
}

func TestRulesConfigRespectsExplicitFalse(t *testing.T) {
	cfg := Default()
	f := false
	cfg.Rules.Sanitization.Categories.Jailbreak = &f
	rc := cfg.RulesConfig()
	assert.False(t, rc.Sanitization.Categories.Jailbreak)
}

func TestWebhookConfigAppliesMinimumTimeout(t *testing.T) {
	cfg := Default()
	cfg.Approval.Webhook.Timeout = 0
	wc := cfg.WebhookConfig()
	assert.Equal(t, 30*time.Second, wc.Timeout)
}

func TestWebhookConfigHonorsExplicitTimeout(t *testing.T) {
	cfg := Default()
	cfg.Approval.Webhook.Timeout = 90
	wc := cfg.WebhookConfig()
	assert.Equal(t, 90*time.Second, wc.Timeout)
}

func TestNativeTimeoutAppliesMinimum(t *testing.T) {
	cfg := Default()
	cfg.Approval.Native.Timeout = 0
	assert.Equal(t, 300*time.Second, cfg.NativeTimeout())
}
