// Package detect holds the category detectors (spec §4.B) and the shared
// types they produce.
package detect

import (
	"context"
	"sort"
)

// Severity orders threat detections. Higher rank wins ties during merge.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Rank returns an ordinal for comparison; higher means more severe.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		panic("detect: unknown severity " + string(s))
	}
}

// Action is the engine's verdict for one call.
type Action string

const (
	ActionBlock        Action = "block"
	ActionConfirm      Action = "confirm"
	ActionAgentConfirm Action = "agent-confirm"
	ActionWarn         Action = "warn"
	ActionLog          Action = "log"
	ActionAllow        Action = "allow"
)

// Category identifies which detector produced a Detection.
type Category string

const (
	CategoryPurchase     Category = "purchase"
	CategoryWebsite      Category = "website"
	CategoryDestructive  Category = "destructive"
	CategorySecrets      Category = "secrets"
	CategoryExfiltration Category = "exfiltration"
	CategorySanitization Category = "sanitization"
)

// ToolCallContext is the normalized, immutable view of one tool invocation
// under evaluation. Construct with NewToolCallContext; callers must never
// mutate ToolInput after construction — use WithStrippedKey for the one
// permitted derived-copy operation (agent-confirm stripping, spec §4.F).
type ToolCallContext struct {
	ToolName   string
	ToolInput  map[string]any
	URL        *string
	ToolOutput *string
}

// NewToolCallContext builds a context, hoisting a top-level "url" input field
// into URL when present and string-typed, per spec §3.
func NewToolCallContext(toolName string, toolInput map[string]any, toolOutput *string) ToolCallContext {
	tc := ToolCallContext{
		ToolName:   toolName,
		ToolInput:  toolInput,
		ToolOutput: toolOutput,
	}
	if toolInput != nil {
		if v, ok := toolInput["url"]; ok {
			if s, ok := v.(string); ok {
				tc.URL = &s
			}
		}
	}
	return tc
}

// WithStrippedKey returns a new context whose ToolInput omits key. The
// receiver's ToolInput map is never modified (spec §8 property 8).
func (tc ToolCallContext) WithStrippedKey(key string) ToolCallContext {
	out := make(map[string]any, len(tc.ToolInput))
	for k, v := range tc.ToolInput {
		if k == key {
			continue
		}
		out[k] = v
	}
	tc.ToolInput = out
	return tc
}

// Detection is a single signal emitted by one detector.
type Detection struct {
	Category   Category
	Severity   Severity
	Confidence float64
	Reason     string
	Metadata   map[string]any
}

// AnalysisResult is the Analyzer's verdict for one call.
type AnalysisResult struct {
	Action           Action
	Detections       []Detection
	PrimaryDetection *Detection
	Cached           bool
	DurationMs       float64
}

// NewAnalysisResult builds a result and selects PrimaryDetection by the
// merge order spec §4.D mandates: highest confidence, tie-broken by higher
// severity, then by detection (production) order. It enforces the invariant
// that PrimaryDetection is present iff Detections is non-empty.
func NewAnalysisResult(action Action, detections []Detection, cached bool, durationMs float64) AnalysisResult {
	r := AnalysisResult{
		Action:     action,
		Detections: detections,
		Cached:     cached,
		DurationMs: durationMs,
	}
	if len(detections) == 0 {
		return r
	}
	best := 0
	for i := 1; i < len(detections); i++ {
		if detections[i].Confidence > detections[best].Confidence {
			best = i
			continue
		}
		if detections[i].Confidence == detections[best].Confidence &&
			detections[i].Severity.Rank() > detections[best].Severity.Rank() {
			best = i
		}
	}
	d := detections[best]
	r.PrimaryDetection = &d
	return r
}

// Detector is implemented by each of the six category detectors (spec §4.B).
// A returned error models a DetectorFault (spec §7): the caller isolates it,
// logs it, and treats it as no detection — it must never abort the request.
type Detector interface {
	Name() string
	Detect(ctx context.Context, tc ToolCallContext) (*Detection, error)
}

// CombineConfidence implements the shared n>=1 combination formula used by
// every multi-sub-detector category (spec §8 property 3):
// min(0.99, c1 + 0.05*(n-1)) where c1 is the highest sub-confidence.
func CombineConfidence(confidences []float64) float64 {
	if len(confidences) == 0 {
		return 0
	}
	c1 := confidences[0]
	for _, c := range confidences[1:] {
		if c > c1 {
			c1 = c
		}
	}
	combined := c1 + 0.05*float64(len(confidences)-1)
	if combined > 0.99 {
		combined = 0.99
	}
	return combined
}

// SortByMergeOrder sorts detections in place by the deterministic merge
// order spec §4.D/§5 mandates (confidence desc, severity desc, stable on
// original order otherwise).
func SortByMergeOrder(detections []Detection) {
	sort.SliceStable(detections, func(i, j int) bool {
		if detections[i].Confidence != detections[j].Confidence {
			return detections[i].Confidence > detections[j].Confidence
		}
		return detections[i].Severity.Rank() > detections[j].Severity.Rank()
	})
}
