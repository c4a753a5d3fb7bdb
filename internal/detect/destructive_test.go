package detect

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allSubDetectorsConfig() DestructiveConfig {
	return DestructiveConfig{
		Enabled:      true,
		Severity:     SeverityCritical,
		ShellEnabled: true,
		CloudEnabled: true,
		CodeEnabled:  true,
	}
}

func TestDestructiveDetectorDisabled(t *testing.T) {
	d := NewDestructiveDetector(DestructiveConfig{Enabled: false})
	tc := NewToolCallContext("runShell", map[string]any{"command": "rm -rf /"}, nil)
	det, err := d.Detect(context.Background(), tc)
	require.NoError(t, err)
	assert.Nil(t, det)
}

func TestDestructiveDetectorShellRmRfRoot(t *testing.T) {
	d := NewDestructiveDetector(allSubDetectorsConfig())
	tc := NewToolCallContext("runShell", map[string]any{"command": "rm -rf /"}, nil)
	det, err := d.Detect(context.Background(), tc)
	require.NoError(t, err)
	require.NotNil(t, det)
	assert.Equal(t, CategoryDestructive, det.Category)
	assert.Equal(t, "shell", det.Metadata["type"])
	assert.Equal(t, 0.97, det.Confidence)
}

func TestDestructiveDetectorDeleteFromWithWhereIsSafe(t *testing.T) {
	d := NewDestructiveDetector(allSubDetectorsConfig())
	tc := NewToolCallContext("runQuery", map[string]any{"query": "DELETE FROM users WHERE id = 1"}, nil)
	det, err := d.Detect(context.Background(), tc)
	require.NoError(t, err)
	assert.Nil(t, det)
}

func TestDestructiveDetectorDeleteFromWithoutWhereFlagged(t *testing.T) {
	d := NewDestructiveDetector(allSubDetectorsConfig())
	tc := NewToolCallContext("runQuery", map[string]any{"query": "DELETE FROM users;"}, nil)
	det, err := d.Detect(context.Background(), tc)
	require.NoError(t, err)
	require.NotNil(t, det)
}

func TestDestructiveDetectorCloudTerraformDestroy(t *testing.T) {
	d := NewDestructiveDetector(allSubDetectorsConfig())
	tc := NewToolCallContext("runShell", map[string]any{"command": "terraform destroy"}, nil)
	det, err := d.Detect(context.Background(), tc)
	require.NoError(t, err)
	require.NotNil(t, det)
	assert.Equal(t, "cloud", det.Metadata["type"])
}

func TestDestructiveDetectorCodeRemoveAll(t *testing.T) {
	d := NewDestructiveDetector(allSubDetectorsConfig())
	tc := NewToolCallContext("writeCode", map[string]any{"code": "os.RemoveAll(path)"}, nil)
	det, err := d.Detect(context.Background(), tc)
	require.NoError(t, err)
	require.NotNil(t, det)
	assert.Equal(t, "code", det.Metadata["type"])
}

func TestDestructiveDetectorSubToggleDisablesFamily(t *testing.T) {
	cfg := allSubDetectorsConfig()
	cfg.CodeEnabled = false
	d := NewDestructiveDetector(cfg)
	tc := NewToolCallContext("writeCode", map[string]any{"code": "os.RemoveAll(path)"}, nil)
	det, err := d.Detect(context.Background(), tc)
	require.NoError(t, err)
	assert.Nil(t, det)
}

func TestDestructiveDetectorNoSignal(t *testing.T) {
	d := NewDestructiveDetector(allSubDetectorsConfig())
	tc := NewToolCallContext("listFiles", map[string]any{"path": "/tmp/reports"}, nil)
	det, err := d.Detect(context.Background(), tc)
	require.NoError(t, err)
	assert.Nil(t, det)
}
