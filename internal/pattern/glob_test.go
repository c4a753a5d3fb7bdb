package pattern

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGlobExactMatch(t *testing.T) {
	g := NewGlob("paypal.com")
	matched, conf := g.MatchWithConfidence("paypal.com")
	assert.True(t, matched)
	assert.InDelta(t, 1.0, conf, 1e-9)
	assert.False(t, g.Match("notpaypal.com"))
}

func TestGlobStarExcludesDot(t *testing.T) {
	g := NewGlob("*.paypal.com")
	assert.True(t, g.Match("checkout.paypal.com"))
	assert.False(t, g.Match("checkout.evil.paypal.com"))
}

func TestGlobDoubleStarIncludesDot(t *testing.T) {
	g := NewGlob("**.paypal.com")
	assert.True(t, g.Match("checkout.evil.paypal.com"))
}

func TestGlobCaseInsensitive(t *testing.T) {
	g := NewGlob("PayPal.com")
	assert.True(t, g.Match("paypal.com"))
}

func TestGlobIsAnchored(t *testing.T) {
	g := NewGlob("paypal.com")
	assert.False(t, g.Match("paypal.com.evil.net"))
	assert.False(t, g.Match("notpaypal.com"))
}

func TestMatchAny(t *testing.T) {
	assert.True(t, MatchAny([]string{"stripe.com", "*.paypal.com"}, "checkout.paypal.com"))
	assert.False(t, MatchAny([]string{"stripe.com", "*.paypal.com"}, "example.com"))
}
