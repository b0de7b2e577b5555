package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "reconciler.db", cfg.Store.Path)
	assert.Equal(t, 40, cfg.Scoring.AmountWeight)
	assert.Equal(t, 95, cfg.Scoring.AutoMatchThreshold)
	assert.Equal(t, 80, cfg.Scoring.ReviewThreshold)

	p := cfg.Policy()
	require.NoError(t, p.Validate())
	assert.Equal(t, 24*time.Hour, p.FullDateCredit)
	assert.Equal(t, 72*time.Hour, p.HalfDateCredit)
	assert.Equal(t, 100, p.TotalWeight())
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reconciler.toml")
	content := `
[server]
port = 9090

[store]
path = ":memory:"

[scoring]
auto_match_threshold = 90
review_threshold = 70
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, ":memory:", cfg.Store.Path)
	assert.Equal(t, 90, cfg.Scoring.AutoMatchThreshold)
	assert.Equal(t, 70, cfg.Scoring.ReviewThreshold)
	// untouched keys keep their defaults
	assert.Equal(t, 40, cfg.Scoring.AmountWeight)
	assert.Equal(t, "0.0.0.0:9090", cfg.Addr())
}

func TestLoadRejectsInvalidScoring(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	content := `
[scoring]
auto_match_threshold = 50
review_threshold = 80
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}
