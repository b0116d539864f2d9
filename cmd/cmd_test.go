package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestConfig(t *testing.T) (cfgFile, dir string) {
	t.Helper()
	dir = t.TempDir()
	data := fmt.Sprintf(`log_level: warn
generate:
  name: cli
  seed: 7
  good: 6
  bad: 6
  stops: 5
summary:
  path: %q
`, filepath.Join(dir, "output.txt"))
	cfgFile = filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte(data), 0o644))
	return cfgFile, dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestScenarioGenerateAndValidate(t *testing.T) {
	cfgFile, dir := writeTestConfig(t)
	path := filepath.Join(dir, "scenario.yaml")

	_, err := execute(t, "scenario", "generate", "-c", cfgFile, "-o", path, "--seed", "11")
	require.NoError(t, err)
	assert.FileExists(t, path)

	out, err := execute(t, "scenario", "validate", "-c", cfgFile, path)
	require.NoError(t, err)
	assert.Contains(t, out, "12 vehicles, ok")
}

func TestScenarioValidateRequiresPath(t *testing.T) {
	cfgFile, _ := writeTestConfig(t)
	_, err := execute(t, "scenario", "validate", "-c", cfgFile)
	assert.Error(t, err)
}

func TestFacilitiesLs(t *testing.T) {
	cfgFile, _ := writeTestConfig(t)
	out, err := execute(t, "facilities", "ls", "-c", cfgFile)
	require.NoError(t, err)
	assert.Contains(t, out, "ParkArea0")
	assert.Contains(t, out, "ParkAreaAlternative-1")
	assert.Contains(t, out, "ParkAreaOutOfTown3")
}

func TestRunThenSummaryLs(t *testing.T) {
	cfgFile, _ := writeTestConfig(t)
	out, err := execute(t, "run", "-c", cfgFile)
	require.NoError(t, err)
	assert.Contains(t, out, "final tick")

	out, err = execute(t, "summary", "ls", "-c", cfgFile)
	require.NoError(t, err)
	assert.Contains(t, out, "RUN")
	assert.Contains(t, out, "cli")
}

func TestExplicitConfigMustExist(t *testing.T) {
	_, err := execute(t, "facilities", "ls", "-c", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
