package cmd

import (
	"os"
	"testing"

	"github.com/MeKo-Tech/platewatch/internal/config"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigInitWritesDefaults(t *testing.T) {
	isolate(t)

	out, _, err := executeCommand(t, "config", "init")
	require.NoError(t, err)
	assert.Equal(t, "Configuration written to platewatch.yaml\n", out)

	v := viper.New()
	cfg, err := config.NewLoaderWithViper(v).LoadWithFile("platewatch.yaml")
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig(), *cfg)
}

func TestConfigInitRefusesToOverwrite(t *testing.T) {
	isolate(t)
	require.NoError(t, os.WriteFile("mine.yaml", []byte("log_level: warn\n"), 0o600))

	_, _, err := executeCommand(t, "config", "init", "mine.yaml")
	require.Error(t, err)

	data, err := os.ReadFile("mine.yaml")
	require.NoError(t, err)
	assert.Equal(t, "log_level: warn\n", string(data))
}

func TestConfigInitFileIsPickedUpFromWorkingDirectory(t *testing.T) {
	isolate(t)
	_, _, err := executeCommand(t, "config", "init")
	require.NoError(t, err)

	out, _, err := executeCommand(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "# loaded from")
	assert.Contains(t, out, "platewatch.yaml")
}

func TestConfigShowDefaults(t *testing.T) {
	isolate(t)
	out, _, err := executeCommand(t, "config", "show")
	require.NoError(t, err)

	assert.NotContains(t, out, "# loaded from")
	assert.Contains(t, out, "rider_class: 0")
	assert.Contains(t, out, "violation_class: 2")
	assert.Contains(t, out, "port: 8000")
}
