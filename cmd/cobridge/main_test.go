package main

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// parseFlags parses args into a fresh flag set.
func parseFlags(t *testing.T, args ...string) (*flag.FlagSet, *Config) {
	t.Helper()
	cfg := &Config{}
	flags := flag.NewFlagSet("cobridge", flag.ContinueOnError)
	registerFlags(flags, cfg)
	require.NoError(t, flags.Parse(args))
	return flags, cfg
}

// clearEnv unsets the COBRIDGE_ variables for the test and restores them
// afterwards, including values a loaded .env file sets.
func clearEnv(t *testing.T) {
	t.Helper()
	for env := range envFlags {
		t.Setenv(env, "")
		require.NoError(t, os.Unsetenv(env))
	}
}

func writeEnvFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadEnvFillsUnsetFlags(t *testing.T) {
	clearEnv(t)
	t.Setenv("COBRIDGE_LOG_LEVEL", "debug")
	path := writeEnvFile(t, "COBRIDGE_MANIFEST=deck.yaml\nCOBRIDGE_EVENT_LOG=session.clog\n")

	flags, cfg := parseFlags(t)
	require.NoError(t, loadEnv(flags, path))

	assert.Equal(t, "deck.yaml", cfg.Manifest)
	assert.Equal(t, "session.clog", cfg.EventLog)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadEnvExplicitFlagWins(t *testing.T) {
	clearEnv(t)
	t.Setenv("COBRIDGE_LOG_LEVEL", "debug")
	path := writeEnvFile(t, "COBRIDGE_MANIFEST=env.yaml\n")

	flags, cfg := parseFlags(t, "-manifest", "cli.yaml", "-log-level", "warn")
	require.NoError(t, loadEnv(flags, path))

	assert.Equal(t, "cli.yaml", cfg.Manifest)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoadEnvExistingVariableBeatsFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("COBRIDGE_MANIFEST", "shell.yaml")
	path := writeEnvFile(t, "COBRIDGE_MANIFEST=file.yaml\n")

	flags, cfg := parseFlags(t)
	require.NoError(t, loadEnv(flags, path))

	assert.Equal(t, "shell.yaml", cfg.Manifest)
}

func TestLoadEnvMissingFile(t *testing.T) {
	clearEnv(t)

	flags, cfg := parseFlags(t)
	require.NoError(t, loadEnv(flags, filepath.Join(t.TempDir(), "missing.env")))

	assert.Empty(t, cfg.Manifest)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadEnvNoFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("COBRIDGE_EVENT_LOG", "out.clog")

	flags, cfg := parseFlags(t)
	require.NoError(t, loadEnv(flags, ""))

	assert.Equal(t, "out.clog", cfg.EventLog)
}
