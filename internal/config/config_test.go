package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 2, cfg.Recognition.MaxAttempts)
	assert.Equal(t, 100.0, cfg.Tracking.PositionThreshold)
	assert.Equal(t, 0.2, cfg.ROI.IntersectionThreshold)
	assert.Equal(t, 2*time.Second, cfg.Tracking.MaxTrackAge())
	assert.Equal(t, time.Second, cfg.Tracking.LockedGrace())
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadPartialOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "platewatch.yml")
	data := []byte("recognition:\n  maxAttempts: 3\n  lockThreshold: 80\nvideo:\n  frameSkip: 4\n")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Recognition.MaxAttempts)
	assert.Equal(t, 80.0, cfg.Recognition.LockThreshold)
	assert.Equal(t, 4, cfg.Video.FrameSkip)
	// untouched fields keep defaults
	assert.Equal(t, 75.0, cfg.Recognition.SaveThreshold)
	assert.Equal(t, ":8080", cfg.Server.Listen)
}

func TestLoadRejectsBadValues(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		yaml string
	}{
		{"zero frame skip", "video:\n  frameSkip: 0\n"},
		{"confidence above one", "tracking:\n  minTrackConfidence: 1.5\n"},
		{"threshold above scale", "recognition:\n  lockThreshold: 250\n"},
		{"plate length inversion", "recognition:\n  minPlateLength: 12\n  maxPlateLength: 4\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, "bad.yml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o644))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadRejectsNonYAMLExtension(t *testing.T) {
	_, err := Load("config.json")
	assert.Error(t, err)
}
