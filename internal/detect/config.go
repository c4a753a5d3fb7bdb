package detect

// SpendLimits configures the purchase detector's per-transaction and daily
// spend gates (spec §6).
type SpendLimits struct {
	PerTransaction float64
	Daily          float64
}

// DomainListMode selects blocklist-vs-allowlist semantics for a rule.
type DomainListMode string

const (
	ModeBlocklist DomainListMode = "blocklist"
	ModeAllowlist DomainListMode = "allowlist"
)

// PurchaseConfig configures the purchase detector (spec §4.B.1, §6).
type PurchaseConfig struct {
	Enabled     bool
	Severity    Severity
	Action      Action
	SpendLimits SpendLimits
	DomainMode  DomainListMode
	Blocklist   []string
	// ParamSchema, when non-empty, is a JSON Schema string gating
	// toolInput shape before sub-detectors run (domain stack, SPEC_FULL §1.2).
	ParamSchemas map[string]string
}

// WebsiteConfig configures the website detector (spec §4.B.2, §6).
type WebsiteConfig struct {
	Enabled   bool
	Mode      DomainListMode
	Severity  Severity
	Action    Action
	Blocklist []string
	Allowlist []string
}

// DestructiveConfig configures the destructive detector (spec §4.B.3, §6).
type DestructiveConfig struct {
	Enabled       bool
	Severity      Severity
	Action        Action
	ShellEnabled  bool
	CloudEnabled  bool
	CodeEnabled   bool
}

// SecretsConfig configures the secrets detector (spec §4.B.4, §6).
type SecretsConfig struct {
	Enabled  bool
	Severity Severity
	Action   Action
}

// ExfiltrationConfig configures the exfiltration detector (spec §4.B.5, §6).
type ExfiltrationConfig struct {
	Enabled  bool
	Severity Severity
	Action   Action
}

// SanitizationCategories toggles the four prompt-injection signal families
// scanned by the sanitization detector (spec §4.B.6).
type SanitizationCategories struct {
	InstructionOverride bool
	SystemLeak          bool
	Jailbreak           bool
	EncodedPayload      bool
}

// SanitizationConfig configures the output-path sanitization detector.
type SanitizationConfig struct {
	Enabled        bool
	Severity       Severity
	Action         Action
	MinConfidence  float64
	RedactMatches  bool
	Categories     SanitizationCategories
}

// RulesConfig groups every detector's configuration, mirroring the
// "rules:" block of the YAML schema (spec §6).
type RulesConfig struct {
	Purchase     PurchaseConfig
	Website      WebsiteConfig
	Destructive  DestructiveConfig
	Secrets      SecretsConfig
	Exfiltration ExfiltrationConfig
	Sanitization SanitizationConfig
}

// DefaultRulesConfig returns the schema's documented defaults (spec §6).
func DefaultRulesConfig() RulesConfig {
	return RulesConfig{
		Purchase: PurchaseConfig{
			Enabled:  true,
			Severity: SeverityHigh,
			Action:   ActionBlock,
			SpendLimits: SpendLimits{
				PerTransaction: 100,
				Daily:          500,
			},
			DomainMode: ModeBlocklist,
		},
		Website: WebsiteConfig{
			Enabled:  true,
			Mode:     ModeBlocklist,
			Severity: SeverityHigh,
			Action:   ActionBlock,
		},
		Destructive: DestructiveConfig{
			Enabled:      true,
			Severity:     SeverityCritical,
			Action:       ActionConfirm,
			ShellEnabled: true,
			CloudEnabled: true,
			CodeEnabled:  true,
		},
		Secrets: SecretsConfig{
			Enabled:  true,
			Severity: SeverityCritical,
			Action:   ActionBlock,
		},
		Exfiltration: ExfiltrationConfig{
			Enabled:  true,
			Severity: SeverityHigh,
			Action:   ActionBlock,
		},
		Sanitization: SanitizationConfig{
			Enabled:       true,
			Severity:      SeverityHigh,
			Action:        ActionBlock,
			MinConfidence: 0.5,
			RedactMatches: false,
			Categories: SanitizationCategories{
				InstructionOverride: true,
				SystemLeak:          true,
				Jailbreak:           true,
				EncodedPayload:      true,
			},
		},
	}
}
