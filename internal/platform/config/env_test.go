package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Addr   string `env:"CARBON_TEST_ADDR" envDefault:":8080"`
	Rounds int    `env:"CARBON_TEST_ROUNDS" envDefault:"3"`
}

func TestParseEnvDefaults(t *testing.T) {
	var cfg sample
	require.NoError(t, ParseEnv(&cfg))
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 3, cfg.Rounds)
}

func TestParseEnvOverrides(t *testing.T) {
	t.Setenv("CARBON_TEST_ROUNDS", "7")
	var cfg sample
	require.NoError(t, ParseEnv(&cfg))
	assert.Equal(t, 7, cfg.Rounds)
}

func TestParseEnvRejectsBadInt(t *testing.T) {
	t.Setenv("CARBON_TEST_ROUNDS", "many")
	var cfg sample
	assert.Error(t, ParseEnv(&cfg))
}

func TestLoadDotEnvKeepsExistingValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("CARBON_TEST_ADDR=:9000\nCARBON_TEST_ROUNDS=9\n"), 0o600))
	t.Setenv("CARBON_TEST_ROUNDS", "4")
	t.Setenv("CARBON_TEST_ADDR", "")
	require.NoError(t, os.Unsetenv("CARBON_TEST_ADDR"))

	require.NoError(t, LoadDotEnv(path))
	var cfg sample
	require.NoError(t, ParseEnv(&cfg))
	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, 4, cfg.Rounds)
}

func TestLoadDotEnvIgnoresMissingFile(t *testing.T) {
	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")))
}
