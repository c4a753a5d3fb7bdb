package detect

import (
	"context"
	"fmt"

	"github.com/clawsec/core/internal/pattern"
)

// builtinCategoryGlobs classifies a domain into one of the four built-in
// website categories (spec §4.B.2). These are deliberately small,
// representative families rather than an exhaustive blocklist.
// Patterns use ** rather than * for keyword families: * stops at a dot
// label boundary, but these keywords may sit anywhere across a domain's
// labels (e.g. "online-casino.net", "www.pokersite.com").
var builtinCategoryGlobs = map[string][]string{
	"malware": {
		"*.crack.*", "**keygen**", "**warez**", "*-crack.*", "**serial-key**",
	},
	"phishing": {
		"**paypa1**", "**amaz0n**", "**micr0soft**", "**g00gle**", "*-secure-verify.*",
		"*.xn--*",
	},
	"gambling": {
		"**casino**", "**poker**", "**sportsbook**", "**betting**", "**slots**",
	},
	"adult": {
		"**porn**", "**xxx**", "**adult-content**",
	},
}

var dangerousCategories = map[string]bool{"malware": true, "phishing": true}
var warningCategories = map[string]bool{"gambling": true, "adult": true}

// WebsiteDetector implements spec §4.B.2.
type WebsiteDetector struct {
	cfg WebsiteConfig
}

func NewWebsiteDetector(cfg WebsiteConfig) *WebsiteDetector {
	return &WebsiteDetector{cfg: cfg}
}

func (d *WebsiteDetector) Name() string { return "website" }

func (d *WebsiteDetector) Detect(ctx context.Context, tc ToolCallContext) (*Detection, error) {
	if !d.cfg.Enabled || tc.URL == nil {
		return nil, nil
	}
	domain, ok := pattern.ExtractDomain(*tc.URL)
	if !ok {
		return nil, nil
	}

	var modeSeverity Severity = d.cfg.Severity
	var modeHit bool
	var modeReason string
	var modeConfidence float64

	switch d.cfg.Mode {
	case ModeAllowlist:
		if len(d.cfg.Allowlist) == 0 {
			modeHit = true
			modeConfidence = 0.99
			modeReason = fmt.Sprintf("domain %q blocked: allowlist is empty", domain)
		} else if !pattern.MatchAny(d.cfg.Allowlist, domain) {
			modeHit = true
			modeConfidence = 0.9
			modeReason = fmt.Sprintf("domain %q is not in the configured allowlist", domain)
		}
	default: // ModeBlocklist
		if pattern.MatchAny(d.cfg.Blocklist, domain) {
			modeHit = true
			modeConfidence = 0.9
			modeReason = fmt.Sprintf("domain %q matches the configured blocklist", domain)
		}
	}

	var catSeverity Severity
	var catName, catReason string
	var catConfidence float64
	for cat, globs := range builtinCategoryGlobs {
		if pattern.MatchAny(globs, domain) {
			sev := SeverityMedium
			if dangerousCategories[cat] {
				sev = SeverityCritical
			} else if warningCategories[cat] {
				sev = SeverityMedium
			}
			if catName == "" || sev.Rank() > catSeverity.Rank() {
				catName = cat
				catSeverity = sev
				catReason = fmt.Sprintf("domain %q classified as %s", domain, cat)
				catConfidence = 0.85
			}
		}
	}

	if !modeHit && catName == "" {
		return nil, nil
	}

	severity := modeSeverity
	reason := modeReason
	confidence := modeConfidence
	meta := map[string]any{"domain": domain, "url": *tc.URL}

	if catName != "" {
		meta["category"] = catName
		if !modeHit || catSeverity.Rank() > severity.Rank() {
			severity = catSeverity
			reason = catReason
			if confidence < catConfidence {
				confidence = catConfidence
			}
		} else if reason == "" {
			reason = catReason
			confidence = catConfidence
		}
	}

	if reason == "" {
		return nil, nil
	}

	return &Detection{
		Category:   CategoryWebsite,
		Severity:   severity,
		Confidence: confidence,
		Reason:     reason,
		Metadata:   meta,
	}, nil
}
