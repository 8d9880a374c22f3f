package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SCAN_DEBOUNCE", "")
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("SMARTSCAN_CONFIG", "")

	cfg := Load()
	assert.Equal(t, "supabase", cfg.StoreBackend)
	assert.Equal(t, 500*time.Millisecond, cfg.ScanDebounce)
	assert.Equal(t, 2, cfg.MaxScansPerSecond)
	assert.Equal(t, "time_in", cfg.DefaultMode)
	assert.Equal(t, 4<<20, cfg.MaxFrameBytes)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SCAN_DEBOUNCE", "250ms")
	t.Setenv("MAX_SCANS_PER_SECOND", "5")
	t.Setenv("SUBMIT_TIMEOUT", "not-a-duration")
	t.Setenv("SMARTSCAN_CONFIG", "")

	cfg := Load()
	assert.Equal(t, 250*time.Millisecond, cfg.ScanDebounce)
	assert.Equal(t, 5, cfg.MaxScansPerSecond)
	assert.Equal(t, 15*time.Second, cfg.SubmitTimeout)
}

func TestLoadYAMLOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "smartscan.yaml")
	body := "store_backend: sqlite\nsqlite_path: /tmp/x.db\nscan_debounce: 1s\nmax_scans_per_second: 4\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	t.Setenv("STORE_BACKEND", "postgres")
	t.Setenv("SMARTSCAN_CONFIG", path)

	cfg := Load()
	assert.Equal(t, "sqlite", cfg.StoreBackend)
	assert.Equal(t, "/tmp/x.db", cfg.SQLitePath)
	assert.Equal(t, time.Second, cfg.ScanDebounce)
	assert.Equal(t, 4, cfg.MaxScansPerSecond)
	// untouched keys keep their env/default value
	assert.Equal(t, "8081", cfg.HTTPPort)
}

func TestLoadBadOverlayKeepsEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store_backend: [unterminated"), 0o600))

	t.Setenv("STORE_BACKEND", "postgres")
	t.Setenv("SMARTSCAN_CONFIG", path)

	cfg := Load()
	assert.Equal(t, "postgres", cfg.StoreBackend)
}
