package pattern

import (
	"net/url"
	"strings"
)

// ExtractDomain parses input as a URL, assuming an https scheme when one is
// missing, and returns the lowercased hostname. It returns ok=false for
// inputs that cannot be parsed into any hostname.
func ExtractDomain(input string) (domain string, ok bool) {
	raw := strings.TrimSpace(input)
	if raw == "" {
		return "", false
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	host := u.Hostname()
	if host == "" {
		return "", false
	}
	return strings.ToLower(host), true
}
