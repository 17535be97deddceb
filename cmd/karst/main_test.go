package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const seepScenario = `
time {
  start = 0
  stop  = 2
  step  = 1
}

evaluator "stage" {
  kind = "primary"
}

evaluator "seepage" {
  kind         = "additive"
  dependencies = ["stage"]
  coefficients = [0.25]
}

initial "stage" {
  value = 8.0
}

observed = ["seepage"]
`

func writeScenario(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.hcl")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestRunCommand(t *testing.T) {
	path := writeScenario(t, seepScenario)

	var logs, out bytes.Buffer
	root := newRootCmd(&logs, &out)
	root.SetOut(&out)
	root.SetErr(&logs)
	root.SetArgs([]string{"run", path})

	require.NoError(t, root.Execute())
	assert.Contains(t, logs.String(), "Run complete.")
	assert.Contains(t, logs.String(), "cycles=2")
}

func TestGraphCommand(t *testing.T) {
	path := writeScenario(t, seepScenario)

	var logs, out bytes.Buffer
	root := newRootCmd(&logs, &out)
	root.SetOut(&out)
	root.SetErr(&logs)
	root.SetArgs([]string{"graph", path})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "digraph dependencies {")
	assert.Contains(t, out.String(), `"seepage" -> "stage";`)
}

func TestRunCommandReportsScenarioErrors(t *testing.T) {
	path := writeScenario(t, `
time {
  start = 0
  stop  = 1
  step  = 1
}

evaluator "stage" {
  kind = "tensor"
}
`)

	var logs, out bytes.Buffer
	root := newRootCmd(&logs, &out)
	root.SetOut(&out)
	root.SetErr(&logs)
	root.SetArgs([]string{"run", path})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown kind "tensor"`)
}

func TestRunCommandRequiresScenarioArg(t *testing.T) {
	var logs, out bytes.Buffer
	root := newRootCmd(&logs, &out)
	root.SetOut(&out)
	root.SetErr(&logs)
	root.SetArgs([]string{"run"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}
