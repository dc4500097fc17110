package miningsim

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shreekarashastry/miningsim/simulation"
)

const testConfig = `
rounds: 400
seed: 5
participants:
  - kind: selfish
    threshold: 2
  - kind: honest
    count: 3
power:
  mode: set
  participant: 0
  value: 0.3
sweep:
  repeat: 2
  powers:
    - mode: set
      participant: 0
      value: 0.2
    - mode: set
      participant: 0
      value: 0.3
`

func writeConfig(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "miningsim.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCmd(&out, &errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRunCommand(t *testing.T) {
	path := writeConfig(t, testConfig)
	out, err := execute(t, "run", "--config", path, "--log-level", "error", "--format", "csv")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	records, err := csv.NewReader(strings.NewReader(strings.Join(lines[:5], "\n"))).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, "participant", records[0][0])
	assert.Equal(t, "Selfish(2)", records[1][1])
	assert.Contains(t, out, "p0 selfish ideal (gamma=0)")
	assert.Contains(t, out, "fingerprint")

	again, err := execute(t, "run", "--config", path, "--log-level", "error", "--format", "csv")
	require.NoError(t, err)
	assert.Equal(t, out, again)
}

func TestRunFlagsOverrideConfig(t *testing.T) {
	path := writeConfig(t, testConfig)
	a, err := execute(t, "run", "--config", path, "--log-level", "error", "--seed", "6")
	require.NoError(t, err)
	b, err := execute(t, "run", "--config", path, "--log-level", "error")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	_, err = execute(t, "run", "--config", path, "--log-level", "error", "--rounds", "0")
	assert.ErrorIs(t, err, simulation.ErrInvalidConfiguration)
}

func TestSweepCommand(t *testing.T) {
	path := writeConfig(t, testConfig)
	out, err := execute(t, "sweep", "--config", path, "--log-level", "error", "--format", "csv", "--average", "median")
	require.NoError(t, err)

	records, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "0=0.2", records[1][0])
	assert.Equal(t, "median", records[1][1])
	assert.Equal(t, "0=0.3", records[2][0])

	out, err = execute(t, "sweep", "--config", path, "--log-level", "error", "--format", "csv", "--average", "none", "--repeat", "3")
	require.NoError(t, err)
	records, err = csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 7)
}

func TestBadArguments(t *testing.T) {
	path := writeConfig(t, testConfig)
	_, err := execute(t, "run", "--config", path, "--format", "xml")
	assert.Error(t, err)
	_, err = execute(t, "sweep", "--config", path, "--average", "mode")
	assert.Error(t, err)
	_, err = execute(t, "run", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
	_, err = execute(t, "run", "--log-level", "loud")
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, Version+"\n", out)
}
