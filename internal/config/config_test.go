package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peicooks/framegen/pkg/photo"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, photo.MaxBytes, cfg.Upload.MaxBytes)
	assert.Equal(t, "pei-cooks-frame.png", cfg.Export.Filename)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestLoadYAML(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, k := range []string{"PORT", "FRAMEGEN_ADDR", "FRAMEGEN_SHARE_URL", "FRAMEGEN_LOG_LEVEL", "FRAMEGEN_LOG_FORMAT", "FRAMEGEN_MAX_UPLOAD_BYTES"} {
		t.Setenv(k, "")
	}
	path := filepath.Join(t.TempDir(), "framegen.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: "127.0.0.1:9000"
export:
  share_url: "https://example.test/frame"
logging:
  level: debug
  format: console
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, "https://example.test/frame", cfg.Export.ShareURL)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// Untouched keys keep their defaults.
	assert.Equal(t, photo.MaxBytes, cfg.Upload.MaxBytes)
	assert.Equal(t, "pei-cooks-frame.png", cfg.ExportOptions().Filename)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [1, 2"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Run("PORT sets addr", func(t *testing.T) {
		t.Setenv("PORT", "3000")
		t.Setenv("FRAMEGEN_ADDR", "")

		cfg := Default()
		require.NoError(t, cfg.applyEnvOverrides())
		assert.Equal(t, ":3000", cfg.Server.Addr)
	})

	t.Run("FRAMEGEN_ADDR wins over PORT", func(t *testing.T) {
		t.Setenv("PORT", "3000")
		t.Setenv("FRAMEGEN_ADDR", "0.0.0.0:4000")

		cfg := Default()
		require.NoError(t, cfg.applyEnvOverrides())
		assert.Equal(t, "0.0.0.0:4000", cfg.Server.Addr)
	})

	t.Run("upload ceiling", func(t *testing.T) {
		t.Setenv("FRAMEGEN_MAX_UPLOAD_BYTES", "1024")

		cfg := Default()
		require.NoError(t, cfg.applyEnvOverrides())
		assert.Equal(t, int64(1024), cfg.Upload.MaxBytes)
	})

	t.Run("bad upload ceiling", func(t *testing.T) {
		t.Setenv("FRAMEGEN_MAX_UPLOAD_BYTES", "lots")

		cfg := Default()
		assert.Error(t, cfg.applyEnvOverrides())
	})

	t.Run("share and logging", func(t *testing.T) {
		t.Setenv("FRAMEGEN_SHARE_URL", "https://example.test/x")
		t.Setenv("FRAMEGEN_LOG_LEVEL", "warn")
		t.Setenv("FRAMEGEN_LOG_FORMAT", "console")
		t.Setenv("FRAMEGEN_FONT_PATH", "/fonts/Cormorant.ttf")

		cfg := Default()
		require.NoError(t, cfg.applyEnvOverrides())
		assert.Equal(t, "https://example.test/x", cfg.Export.ShareURL)
		assert.Equal(t, "warn", cfg.Logging.Level)
		assert.Equal(t, "console", cfg.Logging.Format)
		assert.Equal(t, "/fonts/Cormorant.ttf", cfg.Render.FontPath)
	})
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Upload.MaxBytes = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Server.MaxSessions = -1
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Export.Filename = ""
	assert.Error(t, cfg.Validate())
}
