package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "app:\n  env: development\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.App.Port)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, 25*time.Second, cfg.PingInterval)
	assert.Equal(t, 10*time.Second, cfg.WriteDeadline)
	assert.Equal(t, int64(65536), cfg.WS.MaxMessageSizeBytes)
}

func TestLoadEnvOverridesNestedKeys(t *testing.T) {
	path := writeConfig(t, "store:\n  driver: memory\njwt:\n  secret: from-file\n")
	t.Setenv("PRATTLE_STORE_DRIVER", "postgres")
	t.Setenv("PRATTLE_JWT_SECRET", "from-env")
	t.Setenv("PRATTLE_APP_PORT", "9090")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "from-env", cfg.JWT.Secret)
	assert.Equal(t, 9090, cfg.App.Port)
}
