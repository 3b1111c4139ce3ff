package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Port        int    `env:"TEST_CFG_PORT" envDefault:"8080"`
	LogLevel    string `env:"TEST_CFG_LOG_LEVEL" envDefault:"info"`
	ManageStock bool   `env:"TEST_CFG_MANAGE_STOCK" envDefault:"false"`
}

func TestLoad_Defaults(t *testing.T) {
	var cfg testConfig
	require.NoError(t, Load(&cfg))

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.ManageStock)
}

func TestLoad_FromEnvVars(t *testing.T) {
	t.Setenv("TEST_CFG_PORT", "9090")
	t.Setenv("TEST_CFG_MANAGE_STOCK", "true")

	var cfg testConfig
	require.NoError(t, Load(&cfg))

	assert.Equal(t, 9090, cfg.Port)
	assert.True(t, cfg.ManageStock)
}

type requiredConfig struct {
	Key string `env:"TEST_CFG_REQUIRED_KEY,required"`
}

func TestLoad_RequiredFieldMissing(t *testing.T) {
	var cfg requiredConfig
	err := Load(&cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestLoadWithDotenv_ReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("TEST_CFG_DOTENV_LEVEL=debug\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("TEST_CFG_DOTENV_LEVEL") })

	var cfg struct {
		Level string `env:"TEST_CFG_DOTENV_LEVEL" envDefault:"info"`
	}
	require.NoError(t, LoadWithDotenv(&cfg, path))
	assert.Equal(t, "debug", cfg.Level)
}

func TestLoadWithDotenv_EnvWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("TEST_CFG_DOTENV_PORT=1111\n"), 0o600))
	t.Setenv("TEST_CFG_DOTENV_PORT", "2222")

	var cfg struct {
		Port int `env:"TEST_CFG_DOTENV_PORT"`
	}
	require.NoError(t, LoadWithDotenv(&cfg, path))
	assert.Equal(t, 2222, cfg.Port)
}

func TestLoadWithDotenv_MissingFileIgnored(t *testing.T) {
	var cfg testConfig
	require.NoError(t, LoadWithDotenv(&cfg, filepath.Join(t.TempDir(), "absent.env")))
	assert.Equal(t, 8080, cfg.Port)
}
