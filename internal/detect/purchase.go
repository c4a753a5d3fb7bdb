package detect

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/clawsec/core/internal/ledger"
	"github.com/clawsec/core/internal/pattern"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// builtinPaymentDomains is the always-consulted list of major payment
// processors, gateways, and marketplaces (spec §4.B.1).
var builtinPaymentDomains = []string{
	"checkout.stripe.com", "stripe.com", "paypal.com", "checkout.paypal.com",
	"pay.google.com", "checkout.square.com", "squareup.com", "braintreegateway.com",
	"checkout.shopify.com", "amazon.com", "ebay.com", "venmo.com",
	"cash.app", "apple.com/shop", "adyen.com", "klarna.com", "affirm.com",
}

var panPattern = regexp.MustCompile(`\b(?:\d[ -]*?){13,19}\b`)
var expiryPattern = regexp.MustCompile(`\b(0[1-9]|1[0-2])\s*/\s*\d{2,4}\b`)

var paymentFieldKeywords = []string{
	"card", "cvv", "cvc", "expiry", "exp-month", "exp-year", "exp_month", "exp_year",
	"security-code", "security_code", "billing-", "billing_", "routing",
	"iban", "bank-account", "bank_account", "payment-method", "payment_method",
	"payment-type", "payment_type",
}

// PurchaseDetector implements spec §4.B.1: domain, URL-path, and form-field
// sub-detectors composed with the spend ledger.
type PurchaseDetector struct {
	cfg    PurchaseConfig
	ledger *ledger.Ledger
	schemas map[string]*jsonschema.Schema
}

// NewPurchaseDetector compiles any configured per-tool JSON Schemas and
// returns a ready detector. A schema compile failure is treated as "no
// schema for that tool" — a ConfigurationError was already surfaced at
// config-load time; the detector itself never refuses to run.
func NewPurchaseDetector(cfg PurchaseConfig, l *ledger.Ledger) *PurchaseDetector {
	schemas := make(map[string]*jsonschema.Schema)
	for tool, raw := range cfg.ParamSchemas {
		if raw == "" {
			continue
		}
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		url := fmt.Sprintf("https://clawsec.local/schemas/%s.json", tool)
		if err := c.AddResource(url, strings.NewReader(raw)); err != nil {
			continue
		}
		compiled, err := c.Compile(url)
		if err != nil {
			continue
		}
		schemas[tool] = compiled
	}
	return &PurchaseDetector{cfg: cfg, ledger: l, schemas: schemas}
}

func (d *PurchaseDetector) Name() string { return "purchase" }

func (d *PurchaseDetector) Detect(ctx context.Context, tc ToolCallContext) (*Detection, error) {
	if !d.cfg.Enabled {
		return nil, nil
	}

	if schema, ok := d.schemas[tc.ToolName]; ok {
		if err := schema.Validate(map[string]any(tc.ToolInput)); err != nil {
			return &Detection{
				Category:   CategoryPurchase,
				Severity:   d.cfg.Severity,
				Confidence: 0.9,
				Reason:     fmt.Sprintf("tool %q input failed schema validation: %v", tc.ToolName, err),
				Metadata:   map[string]any{"type": "schema"},
			}, nil
		}
	}

	type hit struct {
		confidence float64
		reason     string
		metadata   map[string]any
	}
	var hits []hit

	if tc.URL != nil {
		if domain, ok := pattern.ExtractDomain(*tc.URL); ok {
			if conf, reason, ok := d.matchDomain(domain); ok {
				hits = append(hits, hit{conf, reason, map[string]any{"domain": domain, "url": *tc.URL}})
			}
			path := pattern.NormalizePath(*tc.URL)
			if pattern.IsPaymentPath(path) {
				hits = append(hits, hit{0.85, fmt.Sprintf("URL path %q matches a checkout pattern", path), map[string]any{"url": *tc.URL}})
			}
		}
	}

	if fields, n := matchPaymentFields(tc.ToolInput); n > 0 {
		conf := 0.75
		if n >= 3 {
			conf = 0.9
		}
		hits = append(hits, hit{conf, fmt.Sprintf("detected %d payment-shaped form field(s)", n), map[string]any{"formFields": fields}})
	}

	if len(hits) == 0 {
		return nil, nil
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].confidence > hits[j].confidence })
	confidences := make([]float64, len(hits))
	meta := map[string]any{}
	for i, h := range hits {
		confidences[i] = h.confidence
		for k, v := range h.metadata {
			if k == "formFields" {
				meta["formFields"] = dedupStrings(appendStrings(asStringSlice(meta["formFields"]), asStringSlice(v))...)
				continue
			}
			meta[k] = v
		}
	}
	combined := CombineConfidence(confidences)
	reason := hits[0].reason

	amount, found := extractAmount(tc.ToolInput)
	if !found {
		// Worst case: assume the per-transaction limit applies (spec §4.B.1).
		amount = d.cfg.SpendLimits.PerTransaction
	}
	dailyTotal := d.ledger.DailyTotal()
	var exceeded string
	if amount > d.cfg.SpendLimits.PerTransaction {
		exceeded = "perTransaction"
	} else if dailyTotal+amount > d.cfg.SpendLimits.Daily {
		exceeded = "daily"
	}
	if exceeded != "" {
		reason += fmt.Sprintf(" (exceeds %s spend limit)", exceeded)
		meta["amount"] = amount
		meta["currentDailyTotal"] = dailyTotal
		meta["exceededLimit"] = exceeded
	}

	return &Detection{
		Category:   CategoryPurchase,
		Severity:   d.cfg.Severity,
		Confidence: combined,
		Reason:     reason,
		Metadata:   meta,
	}, nil
}

func (d *PurchaseDetector) matchDomain(domain string) (confidence float64, reason string, ok bool) {
	for _, builtin := range builtinPaymentDomains {
		if domain == builtin {
			return 0.95, fmt.Sprintf("domain %q is a known payment processor", domain), true
		}
	}
	for _, raw := range d.cfg.Blocklist {
		g := pattern.NewGlob(raw)
		if matched, conf := g.MatchWithConfidence(domain); matched {
			if conf >= 1.0 {
				return 0.95, fmt.Sprintf("domain %q matches configured blocklist entry %q", domain, raw), true
			}
			// scale 0.95-0.99 by pattern specificity (fraction of literal runes).
			specificity := literalRatio(raw)
			return 0.95 + 0.04*specificity, fmt.Sprintf("domain %q matches wildcard blocklist entry %q", domain, raw), true
		}
	}
	for _, kw := range []string{"pay", "checkout", "billing", "shop", "store", "cart"} {
		if strings.Contains(domain, kw) {
			ratio := float64(len(kw)) / float64(len(domain))
			if ratio > 1 {
				ratio = 1
			}
			conf := 0.55 + 0.20*ratio
			return conf, fmt.Sprintf("domain %q contains payment-suggestive keyword %q", domain, kw), true
		}
	}
	return 0, "", false
}

func literalRatio(glob string) float64 {
	total := len(glob)
	if total == 0 {
		return 0
	}
	wild := strings.Count(glob, "*") + strings.Count(glob, "?")
	literal := total - wild
	r := float64(literal) / float64(total)
	if r < 0 {
		r = 0
	}
	if r > 1 {
		r = 1
	}
	return r
}

func matchPaymentFields(input map[string]any) ([]string, int) {
	var matched []string
	n := 0
	for k := range input {
		lk := strings.ToLower(k)
		for _, kw := range paymentFieldKeywords {
			if strings.Contains(lk, kw) {
				matched = append(matched, k)
				n++
				break
			}
		}
	}
	if rawFields, ok := input["fields"]; ok {
		if arr, ok := rawFields.([]any); ok {
			for _, item := range arr {
				obj, ok := item.(map[string]any)
				if !ok {
					continue
				}
				name, _ := asString(obj["name"])
				lk := strings.ToLower(name)
				for _, kw := range paymentFieldKeywords {
					if strings.Contains(lk, kw) {
						matched = append(matched, name)
						n++
						break
					}
				}
			}
		}
	}
	for _, s := range flattenStrings(input) {
		if panPattern.MatchString(s) {
			matched = append(matched, "pan-shaped-text")
			n++
		}
		if expiryPattern.MatchString(s) {
			matched = append(matched, "expiry-shaped-text")
			n++
		}
	}
	return dedupStrings(matched...), n
}

// extractAmount walks the locations spec §4.B.1 names, in order, for a
// non-negative currency amount.
func extractAmount(input map[string]any) (float64, bool) {
	for _, key := range []string{"amount", "price", "total", "grandTotal"} {
		if v, ok := input[key]; ok {
			switch x := v.(type) {
			case float64:
				if x >= 0 {
					return x, true
				}
			case int:
				if x >= 0 {
					return float64(x), true
				}
			case string:
				if amt, ok := pattern.ExtractCurrency(x); ok {
					return amt, true
				}
			}
		}
	}
	if rawURL, ok := input["url"]; ok {
		if s, ok := rawURL.(string); ok {
			if u, err := url.Parse(s); err == nil {
				for _, key := range []string{"amount", "price", "total"} {
					if v := u.Query().Get(key); v != "" {
						if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
							return f, true
						}
					}
				}
			}
		}
	}
	for _, nestedKey := range []string{"data", "body", "formData"} {
		if nested, ok := input[nestedKey]; ok {
			if m, ok := nested.(map[string]any); ok {
				if amt, ok := extractAmount(m); ok {
					return amt, true
				}
			}
		}
	}
	if rawFields, ok := input["fields"]; ok {
		if arr, ok := rawFields.([]any); ok {
			for _, item := range arr {
				if obj, ok := item.(map[string]any); ok {
					if v, ok := obj["value"]; ok {
						if s, ok := asString(v); ok {
							if amt, ok := pattern.ExtractCurrency(s); ok {
								return amt, true
							}
						}
					}
				}
			}
		}
	}
	for _, s := range flattenStrings(input) {
		if amt, ok := pattern.ExtractCurrency(s); ok {
			return amt, true
		}
	}
	return 0, false
}

func dedupStrings(in ...string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func appendStrings(a, b []string) []string {
	return append(append([]string{}, a...), b...)
}

func asStringSlice(v any) []string {
	if v == nil {
		return nil
	}
	if s, ok := v.([]string); ok {
		return s
	}
	return nil
}
