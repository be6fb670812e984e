package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const harnessScenarios = "../harness/testdata/scenarios"

const passingScenario = `name: cli_pass
description: "A created entry reads back pending"
steps:
  - op: create
    ref: a
    owner: alice
    action: user.login
  - op: get
    ref: a
    expect:
      status: 0
`

const failingScenario = `name: cli_fail
description: "Expects a status the entry never reaches"
steps:
  - op: create
    ref: a
    owner: alice
    action: user.login
  - op: get
    ref: a
    expect:
      status: 1
`

// writeScenarios lays out <root>/scenarios/*.yaml and returns the scenarios
// directory.
func writeScenarios(t *testing.T, files map[string]string) string {
	t.Helper()

	dir := filepath.Join(t.TempDir(), "scenarios")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for name, data := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(data), 0o644))
	}
	return dir
}

func TestScenarioCommand_HarnessScenariosPass(t *testing.T) {
	out, err := execute(t, "scenario", harnessScenarios)
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ login_freeze")
	assert.Contains(t, out, "4 passed, 0 failed, 4 total")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestScenarioCommand_Filter(t *testing.T) {
	out, err := execute(t, "--format", "json", "scenario", harnessScenarios, "--filter", "login_*")
	require.NoError(t, err, out)

	summary, cliErr := decodeResponse[ScenarioSummary](t, out)
	require.Nil(t, cliErr)
	assert.Equal(t, 1, summary.Total)
	assert.Equal(t, 1, summary.Passed)
	require.Len(t, summary.Scenarios, 1)
	assert.Equal(t, "login_freeze", summary.Scenarios[0].Name)
}

func TestScenarioCommand_FailureExitCode(t *testing.T) {
	dir := writeScenarios(t, map[string]string{
		"pass.yaml": passingScenario,
		"fail.yaml": failingScenario,
	})

	out, err := execute(t, "scenario", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✓ cli_pass")
	assert.Contains(t, out, "✗ cli_fail")
	assert.Contains(t, out, "1 passed, 1 failed, 2 total")
}

func TestScenarioCommand_JSONFailure(t *testing.T) {
	dir := writeScenarios(t, map[string]string{"fail.yaml": failingScenario})

	out, err := execute(t, "--format", "json", "scenario", dir)
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "scenario_failed", resp.Error.Code)
}

func TestScenarioCommand_UpdateWritesGolden(t *testing.T) {
	dir := writeScenarios(t, map[string]string{"pass.yaml": passingScenario})
	golden := filepath.Join(filepath.Dir(dir), "golden", "cli_pass.golden")

	out, err := execute(t, "scenario", dir, "--update")
	require.NoError(t, err, out)
	require.FileExists(t, golden)

	data, err := os.ReadFile(golden)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"scenario_name": "cli_pass"`)

	out, err = execute(t, "scenario", dir)
	require.NoError(t, err, out)

	require.NoError(t, os.WriteFile(golden, []byte("{}\n"), 0o644))
	out, err = execute(t, "scenario", dir)
	require.Error(t, err)
	assert.Contains(t, out, "trace does not match golden file")
}

func TestScenarioCommand_LoadError(t *testing.T) {
	dir := writeScenarios(t, map[string]string{"broken.yaml": "name: [\n"})

	out, err := execute(t, "scenario", dir)
	require.Error(t, err)
	assert.Contains(t, out, "✗ broken.yaml")
	assert.Contains(t, out, "failed to load scenario")
}

func TestScenarioCommand_MissingDir(t *testing.T) {
	_, err := execute(t, "scenario", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestScenarioCommand_Empty(t *testing.T) {
	dir := writeScenarios(t, nil)

	out, err := execute(t, "scenario", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}
