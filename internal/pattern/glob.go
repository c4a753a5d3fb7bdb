package pattern

import (
	"regexp"
	"strings"
	"sync"
)

// Glob is a domain-style glob pattern: "*" matches any run of characters
// excluding '.', "**" matches any run including '.', "?" matches a single
// character, and every other regex metacharacter is literalized. Matching is
// case-insensitive and anchored to the whole string. Compilation is lazy and
// memoized (sync.Once) since most patterns are never matched against in a
// given request.
type Glob struct {
	raw  string
	once sync.Once
	re   *regexp.Regexp
}

// NewGlob returns a Glob for the given pattern. Compilation is deferred until
// the first Match call.
func NewGlob(raw string) *Glob {
	return &Glob{raw: raw}
}

func (g *Glob) compile() {
	g.once.Do(func() {
		g.re = regexp.MustCompile("(?i)^" + globToRegex(g.raw) + "$")
	})
}

// globToRegex literalizes every rune except the glob metacharacters * ** ?.
func globToRegex(raw string) string {
	var b strings.Builder
	runes := []rune(raw)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch r {
		case '*':
			if i+1 < len(runes) && runes[i+1] == '*' {
				b.WriteString(".*")
				i++
			} else {
				b.WriteString("[^.]*")
			}
		case '?':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	return b.String()
}

// Match reports whether s matches the pattern. An exact, case-insensitive
// string match is tried first; MatchWithConfidence reports which path fired.
func (g *Glob) Match(s string) bool {
	ok, _ := g.MatchWithConfidence(s)
	return ok
}

// MatchWithConfidence reports whether s matches, and a confidence in [0,1]:
// an exact match always outranks a wildcard match of the same pattern (spec
// §4.A). Exact match reports 1.0; a wildcard hit reports 0.9.
func (g *Glob) MatchWithConfidence(s string) (bool, float64) {
	if strings.EqualFold(s, g.raw) {
		return true, 1.0
	}
	g.compile()
	if g.re.MatchString(s) {
		return true, 0.9
	}
	return false, 0
}

// MatchAny reports whether s matches any of the given raw glob patterns.
func MatchAny(patterns []string, s string) bool {
	for _, p := range patterns {
		if NewGlob(p).Match(s) {
			return true
		}
	}
	return false
}
