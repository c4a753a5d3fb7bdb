// Package filter implements the output filter (spec §4.G): a two-stage pass
// over a tool's output that redacts secrets and neutralizes prompt-injection
// content before the output re-enters the agent's context.
package filter

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"github.com/clawsec/core/internal/detect"
)

// Result is the outcome of one output-filter pass.
type Result struct {
	Allow          bool
	FilteredOutput string
	Redactions     []string
}

// Filter runs the sanitization stage then the secrets stage over a tool's
// output.
type Filter struct {
	sanitization *detect.SanitizationDetector
	sanitizeCfg  detect.SanitizationConfig
	secretsCfg   detect.SecretsConfig
	logger       *slog.Logger
}

func New(sanitizeCfg detect.SanitizationConfig, secretsCfg detect.SecretsConfig, logger *slog.Logger) *Filter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Filter{
		sanitization: detect.NewSanitizationDetector(sanitizeCfg),
		sanitizeCfg:  sanitizeCfg,
		secretsCfg:   secretsCfg,
		logger:       logger,
	}
}

// Run applies both stages to output, which may be any JSON-encodable value;
// non-string values are canonically encoded before scanning (spec §4.G).
func (f *Filter) Run(output any) Result {
	text, wasString := output.(string)
	if !wasString {
		encoded, err := json.Marshal(output)
		if err != nil {
			text = fmt.Sprint(output)
		} else {
			text = string(encoded)
		}
	}

	var redactions []string

	if f.sanitizeCfg.Enabled {
		matches := f.sanitization.Scan(text)
		if len(matches) > 0 {
			if f.sanitizeCfg.Action == detect.ActionBlock && !f.sanitizeCfg.RedactMatches {
				return Result{Allow: false, Redactions: categoriesOf(matches)}
			}
			if f.sanitizeCfg.RedactMatches {
				text = redactSpans(text, matches)
				redactions = append(redactions, categoriesOf(matches)...)
			} else {
				return Result{Allow: false, Redactions: categoriesOf(matches)}
			}
		}
	}

	if f.secretsCfg.Enabled {
		func() {
			defer func() {
				if r := recover(); r != nil {
					// SecretsScanFault: fail open, log, pass the unfiltered
					// (but already sanitization-stage-processed) output.
					f.logger.Error("secrets scan panicked; failing open", "panic", r)
				}
			}()
			redactedText, found := redactSecrets(text)
			if len(found) > 0 {
				text = redactedText
				redactions = append(redactions, found...)
			}
		}()
	}

	return Result{Allow: true, FilteredOutput: text, Redactions: redactions}
}

func redactSecrets(text string) (string, []string) {
	var found []string
	for _, p := range detect.SecretPatterns {
		if p.Re.MatchString(text) {
			text = p.Re.ReplaceAllString(text, "[REDACTED:"+p.Type+"]")
			found = append(found, p.Type)
		}
	}
	return text, found
}

func categoriesOf(matches []detect.SanitizationMatch) []string {
	seen := map[string]bool{}
	var out []string
	for _, m := range matches {
		if !seen[m.Category] {
			seen[m.Category] = true
			out = append(out, m.Category)
		}
	}
	sort.Strings(out)
	return out
}

// redactSpans replaces every matched span with a typed marker, processing
// matches back-to-front so earlier offsets stay valid.
func redactSpans(text string, matches []detect.SanitizationMatch) string {
	sorted := append([]detect.SanitizationMatch(nil), matches...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start > sorted[j].Start })
	b := []byte(text)
	for _, m := range sorted {
		if m.Start < 0 || m.End > len(b) || m.Start > m.End {
			continue
		}
		marker := []byte("[REDACTED:" + m.Category + "]")
		b = append(b[:m.Start], append(marker, b[m.End:]...)...)
	}
	return string(b)
}
