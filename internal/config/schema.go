// Package config loads and validates the clawsec.yaml configuration schema
// (spec §6): version, global/llm toggles, per-category rule config, and
// approval-transport config, with env-var overlays for ambient
// server settings.
package config

import (
	"fmt"
	"net/url"

	"github.com/Masterminds/semver/v3"
	"github.com/clawsec/core/internal/errs"
)

// SupportedVersionRange is the semver constraint this binary's schema
// understands (SPEC_FULL.md §1.2: version is parsed/constrained with
// Masterminds/semver rather than compared as a bare string).
const SupportedVersionRange = ">=1.0.0, <2.0.0"

type Global struct {
	Enabled  bool   `yaml:"enabled"`
	LogLevel string `yaml:"logLevel"`
}

type LLM struct {
	Enabled bool    `yaml:"enabled"`
	Model   *string `yaml:"model"`
}

type SpendLimitsYAML struct {
	PerTransaction float64 `yaml:"perTransaction"`
	Daily          float64 `yaml:"daily"`
}

type DomainsYAML struct {
	Mode      string   `yaml:"mode"`
	Blocklist []string `yaml:"blocklist"`
}

type PurchaseRuleYAML struct {
	Enabled     bool            `yaml:"enabled"`
	Severity    string          `yaml:"severity"`
	Action      string          `yaml:"action"`
	SpendLimits SpendLimitsYAML `yaml:"spendLimits"`
	Domains     DomainsYAML     `yaml:"domains"`
}

type WebsiteRuleYAML struct {
	Enabled   bool     `yaml:"enabled"`
	Mode      string   `yaml:"mode"`
	Severity  string   `yaml:"severity"`
	Action    string   `yaml:"action"`
	Blocklist []string `yaml:"blocklist"`
	Allowlist []string `yaml:"allowlist"`
}

type SubToggle struct {
	Enabled bool `yaml:"enabled"`
}

type DestructiveRuleYAML struct {
	Enabled  bool      `yaml:"enabled"`
	Severity string    `yaml:"severity"`
	Action   string    `yaml:"action"`
	Shell    SubToggle `yaml:"shell"`
	Cloud    SubToggle `yaml:"cloud"`
	Code     SubToggle `yaml:"code"`
}

type SecretsRuleYAML struct {
	Enabled  bool   `yaml:"enabled"`
	Severity string `yaml:"severity"`
	Action   string `yaml:"action"`
}

type ExfiltrationRuleYAML struct {
	Enabled  bool   `yaml:"enabled"`
	Severity string `yaml:"severity"`
	Action   string `yaml:"action"`
}

type SanitizationCategoriesYAML struct {
	InstructionOverride *bool `yaml:"instructionOverride"`
	SystemLeak          *bool `yaml:"systemLeak"`
	Jailbreak           *bool `yaml:"jailbreak"`
	EncodedPayload      *bool `yaml:"encodedPayload"`
}

type SanitizationRuleYAML struct {
	Enabled       bool                       `yaml:"enabled"`
	Severity      string                     `yaml:"severity"`
	Action        string                     `yaml:"action"`
	MinConfidence float64                    `yaml:"minConfidence"`
	RedactMatches bool                       `yaml:"redactMatches"`
	Categories    SanitizationCategoriesYAML `yaml:"categories"`
}

type RulesYAML struct {
	Purchase     PurchaseRuleYAML     `yaml:"purchase"`
	Website      WebsiteRuleYAML      `yaml:"website"`
	Destructive  DestructiveRuleYAML  `yaml:"destructive"`
	Secrets      SecretsRuleYAML      `yaml:"secrets"`
	Exfiltration ExfiltrationRuleYAML `yaml:"exfiltration"`
	Sanitization SanitizationRuleYAML `yaml:"sanitization"`
}

type NativeApprovalYAML struct {
	Enabled bool `yaml:"enabled"`
	Timeout int  `yaml:"timeout"`
}

type AgentConfirmYAML struct {
	Enabled       bool   `yaml:"enabled"`
	ParameterName string `yaml:"parameterName"`
}

type WebhookApprovalYAML struct {
	Enabled bool              `yaml:"enabled"`
	URL     string            `yaml:"url"`
	Timeout int               `yaml:"timeout"`
	Headers map[string]string `yaml:"headers"`
}

type ApprovalYAML struct {
	Native       NativeApprovalYAML  `yaml:"native"`
	AgentConfirm AgentConfirmYAML    `yaml:"agentConfirm"`
	Webhook      WebhookApprovalYAML `yaml:"webhook"`
}

// LedgerBackingYAML selects the spend ledger's optional durability adapter
// (SPEC_FULL.md §1.2). The default "memory" driver honors spec.md's "no disk
// persistence" Non-goal; "postgres" and "sqlite" are opt-in.
type LedgerBackingYAML struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// CacheBackingYAML selects the analyzer result cache's optional backend.
type CacheBackingYAML struct {
	Driver string `yaml:"driver"`
	Addr   string `yaml:"addr"`
}

// ArchiveBackingYAML selects the optional webhook blob archiver.
type ArchiveBackingYAML struct {
	Driver string `yaml:"driver"`
	Bucket string `yaml:"bucket"`
	Region string `yaml:"region"`
	Prefix string `yaml:"prefix"`
}

// BackingYAML groups the optional durability/distribution adapters a host
// may opt into; every driver defaults to in-memory/disabled.
type BackingYAML struct {
	Ledger  LedgerBackingYAML  `yaml:"ledger"`
	Cache   CacheBackingYAML   `yaml:"cache"`
	Archive ArchiveBackingYAML `yaml:"archive"`
}

// Config is the root of the clawsec.yaml schema (spec §6).
type Config struct {
	Version  string       `yaml:"version"`
	Global   Global       `yaml:"global"`
	LLM      LLM          `yaml:"llm"`
	Rules    RulesYAML    `yaml:"rules"`
	Approval ApprovalYAML `yaml:"approval"`
	Backing  BackingYAML  `yaml:"backing"`
}

// Default returns the schema's documented defaults (spec §6).
func Default() Config {
	return Config{
		Version: "1.0",
		Global:  Global{Enabled: true, LogLevel: "info"},
		LLM:     LLM{Enabled: true},
		Rules: RulesYAML{
			Purchase: PurchaseRuleYAML{
				Enabled:  true,
				Severity: "high",
				Action:   "block",
				SpendLimits: SpendLimitsYAML{
					PerTransaction: 100,
					Daily:          500,
				},
				Domains: DomainsYAML{Mode: "blocklist"},
			},
			Website: WebsiteRuleYAML{
				Enabled:  true,
				Mode:     "blocklist",
				Severity: "high",
				Action:   "block",
			},
			Destructive: DestructiveRuleYAML{
				Enabled:  true,
				Severity: "critical",
				Action:   "confirm",
				Shell:    SubToggle{Enabled: true},
				Cloud:    SubToggle{Enabled: true},
				Code:     SubToggle{Enabled: true},
			},
			Secrets: SecretsRuleYAML{
				Enabled:  true,
				Severity: "critical",
				Action:   "block",
			},
			Exfiltration: ExfiltrationRuleYAML{
				Enabled:  true,
				Severity: "high",
				Action:   "block",
			},
			Sanitization: SanitizationRuleYAML{
				Enabled:       true,
				Severity:      "high",
				Action:        "block",
				MinConfidence: 0.5,
				RedactMatches: false,
				Categories: SanitizationCategoriesYAML{
					InstructionOverride: boolPtr(true),
					SystemLeak:          boolPtr(true),
					Jailbreak:           boolPtr(true),
					EncodedPayload:      boolPtr(true),
				},
			},
		},
		Approval: ApprovalYAML{
			Native:       NativeApprovalYAML{Enabled: true, Timeout: 300},
			AgentConfirm: AgentConfirmYAML{Enabled: true, ParameterName: "_clawsec_confirm"},
			Webhook:      WebhookApprovalYAML{Enabled: false, Timeout: 30},
		},
		Backing: BackingYAML{
			Ledger:  LedgerBackingYAML{Driver: "memory"},
			Cache:   CacheBackingYAML{Driver: "memory"},
			Archive: ArchiveBackingYAML{Driver: "none"},
		},
	}
}

func boolPtr(b bool) *bool { return &b }

var validSeverities = map[string]bool{"critical": true, "high": true, "medium": true, "low": true}
var validActions = map[string]bool{"block": true, "confirm": true, "agent-confirm": true, "warn": true, "log": true}
var validModes = map[string]bool{"blocklist": true, "allowlist": true}
var validLedgerDrivers = map[string]bool{"": true, "memory": true, "postgres": true, "sqlite": true}
var validCacheDrivers = map[string]bool{"": true, "memory": true, "redis": true}
var validArchiveDrivers = map[string]bool{"": true, "none": true, "s3": true, "gcs": true}

// Validate rejects negative limits/timeouts, non-URL webhook URLs when
// present, and enum mismatches (spec §6).
func (c *Config) Validate() error {
	if c.Version != "" {
		v, err := semver.NewVersion(c.Version)
		if err != nil {
			// Tolerate a bare "1.0"-style version by coercing to semver; a
			// genuinely malformed version is still a ConfigurationError.
			v, err = semver.NewVersion(c.Version + ".0")
			if err != nil {
				return &errs.ConfigurationError{Resource: "version", Detail: "not a valid version: " + c.Version}
			}
		}
		constraint, cerr := semver.NewConstraint(SupportedVersionRange)
		if cerr == nil && !constraint.Check(v) {
			return &errs.ConfigurationError{Resource: "version", Detail: fmt.Sprintf("%s is not in supported range %s", c.Version, SupportedVersionRange)}
		}
	}

	if c.Rules.Purchase.SpendLimits.PerTransaction < 0 {
		return &errs.ConfigurationError{Resource: "rules.purchase.spendLimits.perTransaction", Detail: "must be >= 0"}
	}
	if c.Rules.Purchase.SpendLimits.Daily < 0 {
		return &errs.ConfigurationError{Resource: "rules.purchase.spendLimits.daily", Detail: "must be >= 0"}
	}
	if c.Rules.Purchase.Domains.Mode != "" && !validModes[c.Rules.Purchase.Domains.Mode] {
		return &errs.ConfigurationError{Resource: "rules.purchase.domains.mode", Detail: "must be blocklist or allowlist"}
	}
	if c.Rules.Website.Mode != "" && !validModes[c.Rules.Website.Mode] {
		return &errs.ConfigurationError{Resource: "rules.website.mode", Detail: "must be blocklist or allowlist"}
	}
	if c.Rules.Sanitization.MinConfidence < 0 || c.Rules.Sanitization.MinConfidence > 1 {
		return &errs.ConfigurationError{Resource: "rules.sanitization.minConfidence", Detail: "must be in [0,1]"}
	}

	for field, sev := range map[string]string{
		"rules.purchase.severity":     c.Rules.Purchase.Severity,
		"rules.website.severity":      c.Rules.Website.Severity,
		"rules.destructive.severity":  c.Rules.Destructive.Severity,
		"rules.secrets.severity":      c.Rules.Secrets.Severity,
		"rules.exfiltration.severity": c.Rules.Exfiltration.Severity,
		"rules.sanitization.severity": c.Rules.Sanitization.Severity,
	} {
		if sev != "" && !validSeverities[sev] {
			return &errs.ConfigurationError{Resource: field, Detail: "unknown severity " + sev}
		}
	}
	for field, act := range map[string]string{
		"rules.purchase.action":     c.Rules.Purchase.Action,
		"rules.website.action":      c.Rules.Website.Action,
		"rules.destructive.action":  c.Rules.Destructive.Action,
		"rules.secrets.action":      c.Rules.Secrets.Action,
		"rules.exfiltration.action": c.Rules.Exfiltration.Action,
		"rules.sanitization.action": c.Rules.Sanitization.Action,
	} {
		if act != "" && !validActions[act] {
			return &errs.ConfigurationError{Resource: field, Detail: "unknown action " + act}
		}
	}

	if c.Approval.Native.Timeout < 0 {
		return &errs.ConfigurationError{Resource: "approval.native.timeout", Detail: "must be > 0"}
	}
	if c.Approval.Webhook.Timeout < 0 {
		return &errs.ConfigurationError{Resource: "approval.webhook.timeout", Detail: "must be > 0"}
	}
	if c.Approval.Webhook.Enabled && c.Approval.Webhook.URL != "" {
		u, err := url.Parse(c.Approval.Webhook.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return &errs.ConfigurationError{Resource: "approval.webhook.url", Detail: "not a valid URL"}
		}
	}

	if !validLedgerDrivers[c.Backing.Ledger.Driver] {
		return &errs.ConfigurationError{Resource: "backing.ledger.driver", Detail: "must be memory, postgres, or sqlite"}
	}
	if (c.Backing.Ledger.Driver == "postgres" || c.Backing.Ledger.Driver == "sqlite") && c.Backing.Ledger.DSN == "" {
		return &errs.ConfigurationError{Resource: "backing.ledger.dsn", Detail: "required when driver is postgres or sqlite"}
	}
	if !validCacheDrivers[c.Backing.Cache.Driver] {
		return &errs.ConfigurationError{Resource: "backing.cache.driver", Detail: "must be memory or redis"}
	}
	if c.Backing.Cache.Driver == "redis" && c.Backing.Cache.Addr == "" {
		return &errs.ConfigurationError{Resource: "backing.cache.addr", Detail: "required when driver is redis"}
	}
	if !validArchiveDrivers[c.Backing.Archive.Driver] {
		return &errs.ConfigurationError{Resource: "backing.archive.driver", Detail: "must be none, s3, or gcs"}
	}
	if (c.Backing.Archive.Driver == "s3" || c.Backing.Archive.Driver == "gcs") && c.Backing.Archive.Bucket == "" {
		return &errs.ConfigurationError{Resource: "backing.archive.bucket", Detail: "required when driver is s3 or gcs"}
	}
	return nil
}
