//go:build property

package detect

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestCombineConfidenceNeverExceedsCeiling(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("combined confidence is always <= 0.99", prop.ForAll(
		func(confidences []float64) bool {
			if len(confidences) == 0 {
				return true
			}
			return CombineConfidence(confidences) <= 0.99
		},
		gen.SliceOf(gen.Float64Range(0, 1)),
	))

	properties.TestingRun(t)
}

func TestCombineConfidenceIsAtLeastTheMax(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("combined confidence is never below the single highest input", prop.ForAll(
		func(confidences []float64) bool {
			if len(confidences) == 0 {
				return true
			}
			max := confidences[0]
			for _, c := range confidences[1:] {
				if c > max {
					max = c
				}
			}
			combined := CombineConfidence(confidences)
			return combined >= max || combined == 0.99
		},
		gen.SliceOfN(5, gen.Float64Range(0, 1)),
	))

	properties.TestingRun(t)
}

func TestSortByMergeOrderIsDeterministic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("sorting the same input twice yields the same order", prop.ForAll(
		func(confidences []float64) bool {
			a := make([]Detection, len(confidences))
			b := make([]Detection, len(confidences))
			for i, c := range confidences {
				d := Detection{Category: CategoryPurchase, Severity: SeverityHigh, Confidence: c}
				a[i] = d
				b[i] = d
			}
			SortByMergeOrder(a)
			SortByMergeOrder(b)
			for i := range a {
				if a[i].Confidence != b[i].Confidence {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.Float64Range(0, 1)),
	))

	properties.TestingRun(t)
}

func TestWithStrippedKeyNeverMutatesOriginal(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("stripping a key never mutates the receiver's ToolInput", prop.ForAll(
		func(key string, value string) bool {
			original := map[string]any{key: value, "other": "unchanged"}
			tc := NewToolCallContext("tool", original, nil)
			_ = tc.WithStrippedKey(key)
			v, ok := tc.ToolInput[key]
			return ok && v == value
		},
		gen.AlphaString(),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}

func TestSeverityRankIsTotalOrder(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	levels := []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

	properties.Property("severity rank strictly increases with declared order", prop.ForAll(
		func(i, j int) bool {
			i, j = i%len(levels), j%len(levels)
			if i < 0 {
				i += len(levels)
			}
			if j < 0 {
				j += len(levels)
			}
			if i == j {
				return levels[i].Rank() == levels[j].Rank()
			}
			if i < j {
				return levels[i].Rank() < levels[j].Rank()
			}
			return levels[i].Rank() > levels[j].Rank()
		},
		gen.IntRange(0, 1000),
		gen.IntRange(0, 1000),
	))

	properties.TestingRun(t)
}
