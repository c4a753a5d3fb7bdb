package pattern

import (
	"net/url"
	"strings"
)

// NormalizePath extracts and lowercases the path component of rawURL,
// tolerating inputs without a scheme (treated as https, matching
// ExtractDomain). Returns "" when rawURL cannot be parsed.
func NormalizePath(rawURL string) string {
	raw := strings.TrimSpace(rawURL)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Path)
}

// paymentPathSegments are the path fragments spec §4.B.1 names as checkout
// signals, including their "/api/..." variants.
var paymentPathSegments = []string{
	"checkout", "pay", "payment", "payments", "buy", "purchase",
	"order", "orders", "subscribe", "subscription", "billing", "upgrade",
}

// IsPaymentPath reports whether path contains any checkout-shaped segment,
// at the top level or beneath /api, per spec §4.B.1.
func IsPaymentPath(path string) bool {
	p := strings.ToLower(path)
	for _, seg := range paymentPathSegments {
		if strings.Contains(p, "/"+seg) {
			return true
		}
	}
	return false
}
