package detect

import (
	"context"
	"regexp"
)

// SecretPattern is one named high-signal token shape, shared between the
// input-path secrets detector and the output-path filter (spec §4.B.4,
// §4.G) so both redact and detect with exactly the same regex table.
type SecretPattern struct {
	Type string
	Re   *regexp.Regexp
}

// SecretPatterns is the canonical regex table for high-signal secret shapes.
var SecretPatterns = []SecretPattern{
	{"aws-access-key", regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`)},
	{"aws-secret-key", regexp.MustCompile(`(?i)aws_secret_access_key\s*[:=]\s*[A-Za-z0-9/+=]{40}`)},
	{"bearer-token", regexp.MustCompile(`\bsk-[A-Za-z0-9]{20,}\b`)},
	{"anthropic-key", regexp.MustCompile(`\bsk-ant-[A-Za-z0-9_-]{20,}\b`)},
	{"generic-api-key", regexp.MustCompile(`(?i)\bapi[_-]?key\s*[:=]\s*['"]?[A-Za-z0-9_\-]{16,}['"]?`)},
	{"private-key", regexp.MustCompile(`-----BEGIN (RSA |EC |OPENSSH |DSA |)PRIVATE KEY-----`)},
	{"jwt", regexp.MustCompile(`\beyJ[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+\b`)},
}

// SecretsDetector implements spec §4.B.4 (input path). The same regex table
// drives internal/filter's output-path redaction.
type SecretsDetector struct {
	cfg SecretsConfig
}

func NewSecretsDetector(cfg SecretsConfig) *SecretsDetector {
	return &SecretsDetector{cfg: cfg}
}

func (d *SecretsDetector) Name() string { return "secrets" }

func (d *SecretsDetector) Detect(ctx context.Context, tc ToolCallContext) (*Detection, error) {
	if !d.cfg.Enabled {
		return nil, nil
	}
	for _, s := range flattenStrings(tc.ToolInput) {
		for _, p := range SecretPatterns {
			if p.Re.MatchString(s) {
				return &Detection{
					Category:   CategorySecrets,
					Severity:   d.cfg.Severity,
					Confidence: 0.95,
					Reason:     "input contains a " + p.Type + "-shaped token",
					Metadata:   map[string]any{"type": p.Type},
				}, nil
			}
		}
	}
	return nil, nil
}
