package detect

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebsiteDetectorDisabled(t *testing.T) {
	d := NewWebsiteDetector(WebsiteConfig{Enabled: false})
	tc := NewToolCallContext("fetch", map[string]any{"url": "https://casino-royale.example/"}, nil)
	det, err := d.Detect(context.Background(), tc)
	require.NoError(t, err)
	assert.Nil(t, det)
}

func TestWebsiteDetectorNoURL(t *testing.T) {
	d := NewWebsiteDetector(WebsiteConfig{Enabled: true, Mode: ModeBlocklist})
	tc := NewToolCallContext("fetch", map[string]any{}, nil)
	det, err := d.Detect(context.Background(), tc)
	require.NoError(t, err)
	assert.Nil(t, det)
}

func TestWebsiteDetectorBlocklistMatch(t *testing.T) {
	d := NewWebsiteDetector(WebsiteConfig{
		Enabled:   true,
		Mode:      ModeBlocklist,
		Severity:  SeverityHigh,
		Blocklist: []string{"*.banned.example"},
	})
	tc := NewToolCallContext("fetch", map[string]any{"url": "https://sub.banned.example/path"}, nil)
	det, err := d.Detect(context.Background(), tc)
	require.NoError(t, err)
	require.NotNil(t, det)
	assert.Equal(t, CategoryWebsite, det.Category)
	assert.Equal(t, "sub.banned.example", det.Metadata["domain"])
}

func TestWebsiteDetectorBenignDomainNoHit(t *testing.T) {
	d := NewWebsiteDetector(WebsiteConfig{
		Enabled:   true,
		Mode:      ModeBlocklist,
		Severity:  SeverityHigh,
		Blocklist: []string{"*.banned.example"},
	})
	tc := NewToolCallContext("fetch", map[string]any{"url": "https://example.com/"}, nil)
	det, err := d.Detect(context.Background(), tc)
	require.NoError(t, err)
	assert.Nil(t, det)
}

func TestWebsiteDetectorAllowlistEmptyBlocksAll(t *testing.T) {
	d := NewWebsiteDetector(WebsiteConfig{
		Enabled:  true,
		Mode:     ModeAllowlist,
		Severity: SeverityHigh,
	})
	tc := NewToolCallContext("fetch", map[string]any{"url": "https://anything.example/"}, nil)
	det, err := d.Detect(context.Background(), tc)
	require.NoError(t, err)
	require.NotNil(t, det)
	assert.Equal(t, 0.99, det.Confidence)
}

func TestWebsiteDetectorAllowlistPermitsMatch(t *testing.T) {
	d := NewWebsiteDetector(WebsiteConfig{
		Enabled:   true,
		Mode:      ModeAllowlist,
		Severity:  SeverityHigh,
		Allowlist: []string{"*.trusted.example"},
	})
	tc := NewToolCallContext("fetch", map[string]any{"url": "https://api.trusted.example/"}, nil)
	det, err := d.Detect(context.Background(), tc)
	require.NoError(t, err)
	assert.Nil(t, det)
}

func TestWebsiteDetectorBuiltinCategoryOverridesSeverity(t *testing.T) {
	d := NewWebsiteDetector(WebsiteConfig{
		Enabled:  true,
		Mode:     ModeBlocklist,
		Severity: SeverityHigh,
	})
	tc := NewToolCallContext("fetch", map[string]any{"url": "https://tool-crack.example/"}, nil)
	det, err := d.Detect(context.Background(), tc)
	require.NoError(t, err)
	require.NotNil(t, det)
	assert.Equal(t, SeverityCritical, det.Severity)
	assert.Equal(t, "malware", det.Metadata["category"])
}
