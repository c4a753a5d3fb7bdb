package detect

import (
	"context"
	"regexp"
)

// SanitizationMatch is one matched span in an output string, produced by
// the sanitization scan and consumed by internal/filter for redaction.
type SanitizationMatch struct {
	Category   string
	Start, End int
	Confidence float64
}

type sanitizationRule struct {
	category   string
	re         *regexp.Regexp
	confidence float64
}

// sanitizationRules is narrowed to the four categories spec §4.B.6 names
// (instructionOverride, systemLeak, jailbreak, encodedPayload); grounded on
// the pack's broader prompt-injection regex taxonomy.
var sanitizationRules = []sanitizationRule{
	{"instructionOverride", regexp.MustCompile(`(?i)ignore\s+(?:previous|all|your)\s+(?:instructions?|prompts?|rules?)`), 0.9},
	{"instructionOverride", regexp.MustCompile(`(?i)disregard\s+(?:previous|all|system)\s+(?:instructions?|constraints?)`), 0.85},
	{"instructionOverride", regexp.MustCompile(`(?i)forget\s+(?:everything|all|your)\s+(?:above|previous|instructions?)`), 0.85},
	{"instructionOverride", regexp.MustCompile(`(?i)new\s+(?:instructions?|task|role|persona)\s*:`), 0.7},
	{"systemLeak", regexp.MustCompile(`(?i)(?:system|assistant)[\s:]*(?:prompt|message|instruction)`), 0.75},
	{"systemLeak", regexp.MustCompile(`(?i)reveal\s+(?:your|the)\s+(?:prompt|instructions?|system\s+prompt)`), 0.9},
	{"systemLeak", regexp.MustCompile(`(?i)print\s+(?:the|your)\s+(?:prompt|instructions?|system)`), 0.85},
	{"systemLeak", regexp.MustCompile(`</?(?:system|instruction|prompt)>`), 0.8},
	{"jailbreak", regexp.MustCompile(`(?i)jailbreak|developer\s+mode|unrestricted\s+mode`), 0.85},
	{"jailbreak", regexp.MustCompile(`(?i)you\s+are\s+now\s+(?:a|an|the)\s+\w+`), 0.7},
	{"jailbreak", regexp.MustCompile(`(?i)switch\s+to\s+\w+\s+mode`), 0.7},
	{"jailbreak", regexp.MustCompile(`(?i)act\s+as\s+(?:if|a|an)\s+\w+`), 0.6},
	{"encodedPayload", regexp.MustCompile(`(?i)\b(?:[A-Za-z0-9+/]{40,}={0,2})\b`), 0.6},
	{"encodedPayload", regexp.MustCompile(`(?i)\\u00[0-9a-f]{2}(\\u00[0-9a-f]{2}){5,}`), 0.7},
}

// SanitizationDetector implements spec §4.B.6, output path only.
type SanitizationDetector struct {
	cfg SanitizationConfig
}

func NewSanitizationDetector(cfg SanitizationConfig) *SanitizationDetector {
	return &SanitizationDetector{cfg: cfg}
}

func (d *SanitizationDetector) Name() string { return "sanitization" }

// Detect implements the Detector interface for the input path (a no-op: the
// sanitization detector only inspects tool output, never input). It exists
// so the analyzer can register it uniformly and have it report no
// detection for every /analyze call.
func (d *SanitizationDetector) Detect(ctx context.Context, tc ToolCallContext) (*Detection, error) {
	if !d.cfg.Enabled || tc.ToolOutput == nil {
		return nil, nil
	}
	matches := d.Scan(*tc.ToolOutput)
	if len(matches) == 0 {
		return nil, nil
	}
	best := matches[0]
	for _, m := range matches[1:] {
		if m.Confidence > best.Confidence {
			best = m
		}
	}
	return &Detection{
		Category:   CategorySanitization,
		Severity:   d.cfg.Severity,
		Confidence: best.Confidence,
		Reason:     "output contains a " + best.Category + " signal",
		Metadata:   map[string]any{"type": best.Category},
	}, nil
}

// Scan returns every sanitization match at or above the rule's configured
// categories and MinConfidence.
func (d *SanitizationDetector) Scan(s string) []SanitizationMatch {
	var out []SanitizationMatch
	for _, rule := range sanitizationRules {
		if !d.categoryEnabled(rule.category) {
			continue
		}
		if rule.confidence < d.cfg.MinConfidence {
			continue
		}
		for _, loc := range rule.re.FindAllStringIndex(s, -1) {
			out = append(out, SanitizationMatch{
				Category:   rule.category,
				Start:      loc[0],
				End:        loc[1],
				Confidence: rule.confidence,
			})
		}
	}
	return out
}

func (d *SanitizationDetector) categoryEnabled(cat string) bool {
	switch cat {
	case "instructionOverride":
		return d.cfg.Categories.InstructionOverride
	case "systemLeak":
		return d.cfg.Categories.SystemLeak
	case "jailbreak":
		return d.cfg.Categories.Jailbreak
	case "encodedPayload":
		return d.cfg.Categories.EncodedPayload
	default:
		return false
	}
}
