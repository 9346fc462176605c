package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/trapcam/internal/app"
	"github.com/tphakala/trapcam/internal/buildinfo"
	"github.com/tphakala/trapcam/internal/taxonomy"
)

// These tests share viper's global state and must not run in parallel.

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm:\n  provider: static\nlogging:\n  console:\n    enabled: false\n"), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	rt := app.NewRuntime(&buildinfo.Context{Version: "v1.0.0", BuildDate: "2026-10-01"})
	root := RootCommand(rt)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "trapcam v1.0.0 (built 2026-10-01)\n", out)
}

func TestSpeciesCommand(t *testing.T) {
	out, err := execute(t, "--config", writeConfig(t), "species", "--category", "reptile")
	require.NoError(t, err)

	var list []taxonomy.Species
	require.NoError(t, yaml.Unmarshal([]byte(out), &list))
	require.NotEmpty(t, list)
	for _, sp := range list {
		assert.Equal(t, taxonomy.CategoryReptile, sp.Category)
	}
}

func TestStationsCommand(t *testing.T) {
	out, err := execute(t, "--config", writeConfig(t), "stations", "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"id": "gate-waterhole"`)
}

func TestIdentifyCommandStatic(t *testing.T) {
	image := filepath.Join(t.TempDir(), "frame.jpg")
	require.NoError(t, os.WriteFile(image, []byte{0xFF, 0xD8, 0xFF, 0xE0, 'J', 'F', 'I', 'F'}, 0o600))

	out, err := execute(t, "--config", writeConfig(t), "identify", image)
	require.NoError(t, err)
	assert.Contains(t, out, `"species": null`)
	assert.Contains(t, out, `"model": "static"`)
}

func TestProviderFlagOverridesConfig(t *testing.T) {
	_, err := execute(t, "--config", writeConfig(t), "--provider", "llama", "stations")
	require.Error(t, err, "flag value reaches validation")
}
