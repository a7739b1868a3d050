package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rilla-project/rilla/pkg/rawfile"
	"github.com/rilla-project/rilla/pkg/vth"
)

func TestDefaultOptionsSweepTemps(t *testing.T) {
	temps := DefaultOptions().SweepTemps()
	require.Len(t, temps, 24)
	assert.Equal(t, -55.0, temps[0])
	assert.Equal(t, 175.0, temps[len(temps)-1])
}

func TestSweepTempsRejectsBadGrid(t *testing.T) {
	opts := DefaultOptions()
	opts.TempStep = 0
	assert.Nil(t, opts.SweepTemps())
}

func writeModelLib(t *testing.T, card string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test_model.lib")
	require.NoError(t, os.WriteFile(path, []byte(card), 0o644))
	return path
}

func TestBuiltinRunVthFromModelCard(t *testing.T) {
	lib := writeModelLib(t, "* test power FET\n.model PSMN_TEST NMOS(VTO=2 KP=0.5 GAMMA=0 LAMBDA=0.01)\n")

	opts := DefaultOptions()
	opts.TempStart, opts.TempStop, opts.TempStep = 25, 25, 10

	run, err := NewBuiltin().RunVth(context.Background(),
		Model{Name: "PSMN_TEST", Path: lib}, opts)
	require.NoError(t, err)
	require.Equal(t, []float64{25}, run.SweepTempsC)

	p := vth.DefaultParams()
	p.SweepValuesC = run.SweepTempsC
	res, err := vth.Extract(run.Traces, p)
	require.NoError(t, err)
	assert.InDelta(t, 2.07, res.ThresholdVoltage, 0.05)
}

func TestBuiltinRejectsLibraryWithoutModelCard(t *testing.T) {
	lib := writeModelLib(t, "* vendor subcircuit\n.subckt PSMN1R4 d g s\n.ends\n")

	_, err := NewBuiltin().RunVth(context.Background(),
		Model{Name: "PSMN1R4", Path: lib}, DefaultOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "external engine")
}

func TestExternalBuildDeck(t *testing.T) {
	opts := DefaultOptions()
	deck, err := NewExternal().buildDeck(Model{Name: "PSMN1R4-100CSE", Path: "models/psmn.lib"}, opts)
	require.NoError(t, err)

	cards := deck.Cards()
	joined := strings.Join(cards, "\n")
	assert.Contains(t, joined, "XU1 vdd v_g_d 0 PSMN1R4-100CSE")
	assert.Contains(t, joined, ".dc V1 0 5 0.05")
	assert.Contains(t, joined, ".step temp -55 175 10")
	assert.Contains(t, joined, ".lib ")
	// .end stays last even after instructions are appended.
	assert.Equal(t, ".end", cards[len(cards)-1])
}

// stubSolver writes a shell script that plays the solver's part: emit a log
// and copy a prepared raw file to the requested output path.
func stubSolver(t *testing.T, rawFixture string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("stub solver script requires a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "fakespice")
	script := fmt.Sprintf("#!/bin/sh\necho 'stub solver ok' > \"$3\"\ncp %q \"$5\"\n", rawFixture)
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func fixtureRawFile(t *testing.T) string {
	t.Helper()
	raw, err := rawfile.New("stub sweep", "DC transfer characteristic",
		[]string{"v-sweep", "V(v_g_d)", "Ix(xu1:D)"},
		[]string{"voltage", "voltage", "subckt_current"},
		[][]float64{
			{0, 1, 2},
			{0, 1, 2},
			{0, 1e-4, 2e-3},
		}, false)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "fixture.raw")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, raw.WriteASCII(f))
	require.NoError(t, f.Close())
	return path
}

func TestExternalRunVthWithStubSolver(t *testing.T) {
	lib := writeModelLib(t, "* stand-in library\n.subckt PSMN1R4 d g s\n.ends\n")

	opts := DefaultOptions()
	opts.SolverPath = stubSolver(t, fixtureRawFile(t))

	run, err := NewExternal().RunVth(context.Background(),
		Model{Name: "PSMN1R4", Path: lib}, opts)
	require.NoError(t, err)

	assert.Contains(t, run.LogText, "stub solver ok")
	assert.Empty(t, run.RawPath, "scratch files are deleted unless requested")

	sig, ok := run.Traces.Trace("Ix(xu1:D)")
	require.True(t, ok)
	wave, err := sig.Waveform(0)
	require.NoError(t, err)
	assert.Len(t, wave, 3)
}

func TestExternalRunVthSolverFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("stub solver script requires a POSIX shell")
	}
	failing := filepath.Join(t.TempDir(), "fakespice")
	script := "#!/bin/sh\necho 'fatal: model not found' > \"$3\"\nexit 1\n"
	require.NoError(t, os.WriteFile(failing, []byte(script), 0o755))

	opts := DefaultOptions()
	opts.SolverPath = failing

	_, err := NewExternal().RunVth(context.Background(),
		Model{Name: "MISSING", Path: writeModelLib(t, "* empty\n")}, opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model not found")
}
