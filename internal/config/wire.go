package config

import (
	"time"

	"github.com/clawsec/core/internal/approval/transport"
	"github.com/clawsec/core/internal/detect"
)

// RulesConfig translates the YAML-shaped schema into the detect package's
// native config types.
func (c *Config) RulesConfig() detect.RulesConfig {
	r := c.Rules
	return detect.RulesConfig{
		Purchase: detect.PurchaseConfig{
			Enabled:  r.Purchase.Enabled,
			Severity: detect.Severity(orDefault(r.Purchase.Severity, string(detect.SeverityHigh))),
			Action:   detect.Action(orDefault(r.Purchase.Action, string(detect.ActionBlock))),
			SpendLimits: detect.SpendLimits{
				PerTransaction: r.Purchase.SpendLimits.PerTransaction,
				Daily:          r.Purchase.SpendLimits.Daily,
			},
			DomainMode: detect.DomainListMode(orDefault(r.Purchase.Domains.Mode, string(detect.ModeBlocklist))),
			Blocklist:  r.Purchase.Domains.Blocklist,
		},
		Website: detect.WebsiteConfig{
			Enabled:   r.Website.Enabled,
			Mode:      detect.DomainListMode(orDefault(r.Website.Mode, string(detect.ModeBlocklist))),
			Severity:  detect.Severity(orDefault(r.Website.Severity, string(detect.SeverityHigh))),
			Action:    detect.Action(orDefault(r.Website.Action, string(detect.ActionBlock))),
			Blocklist: r.Website.Blocklist,
			Allowlist: r.Website.Allowlist,
		},
		Destructive: detect.DestructiveConfig{
			Enabled:      r.Destructive.Enabled,
			Severity:     detect.Severity(orDefault(r.Destructive.Severity, string(detect.SeverityCritical))),
			Action:       detect.Action(orDefault(r.Destructive.Action, string(detect.ActionConfirm))),
			ShellEnabled: r.Destructive.Shell.Enabled,
			CloudEnabled: r.Destructive.Cloud.Enabled,
			CodeEnabled:  r.Destructive.Code.Enabled,
		},
		Secrets: detect.SecretsConfig{
			Enabled:  r.Secrets.Enabled,
			Severity: detect.Severity(orDefault(r.Secrets.Severity, string(detect.SeverityCritical))),
			Action:   detect.Action(orDefault(r.Secrets.Action, string(detect.ActionBlock))),
		},
		Exfiltration: detect.ExfiltrationConfig{
			Enabled:  r.Exfiltration.Enabled,
			Severity: detect.Severity(orDefault(r.Exfiltration.Severity, string(detect.SeverityHigh))),
			Action:   detect.Action(orDefault(r.Exfiltration.Action, string(detect.ActionBlock))),
		},
		Sanitization: detect.SanitizationConfig{
			Enabled:       r.Sanitization.Enabled,
			Severity:      detect.Severity(orDefault(r.Sanitization.Severity, string(detect.SeverityHigh))),
			Action:        detect.Action(orDefault(r.Sanitization.Action, string(detect.ActionBlock))),
			MinConfidence: r.Sanitization.MinConfidence,
			RedactMatches: r.Sanitization.RedactMatches,
			Categories: detect.SanitizationCategories{
				InstructionOverride: boolOrDefault(r.Sanitization.Categories.InstructionOverride, true),
				SystemLeak:          boolOrDefault(r.Sanitization.Categories.SystemLeak, true),
				Jailbreak:           boolOrDefault(r.Sanitization.Categories.Jailbreak, true),
				EncodedPayload:      boolOrDefault(r.Sanitization.Categories.EncodedPayload, true),
			},
		},
	}
}

// WebhookConfig translates the YAML-shaped schema into transport.WebhookConfig.
func (c *Config) WebhookConfig() transport.WebhookConfig {
	w := c.Approval.Webhook
	timeout := w.Timeout
	if timeout <= 0 {
		timeout = 30
	}
	return transport.WebhookConfig{
		Enabled: w.Enabled,
		URL:     w.URL,
		Timeout: time.Duration(timeout) * time.Second,
		Headers: w.Headers,
	}
}

// NativeTimeout returns the configured native-approval TTL.
func (c *Config) NativeTimeout() time.Duration {
	t := c.Approval.Native.Timeout
	if t <= 0 {
		t = 300
	}
	return time.Duration(t) * time.Second
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func boolOrDefault(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}
