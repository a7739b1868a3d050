package engine

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rilla-project/rilla/internal/monitoring"
	"github.com/rilla-project/rilla/pkg/netlist"
	"github.com/rilla-project/rilla/pkg/rawfile"
)

//go:embed templates/vth_test.net
var vthTemplate string

const defaultSolverBinary = "ngspice"

// External characterizes a device by specializing the fixture deck for the
// model, running a batch-mode SPICE solver on it in a scratch directory, and
// parsing the raw waveform file the solver writes.
type External struct{}

func NewExternal() *External { return &External{} }

func (e *External) Name() string { return "external" }

func (e *External) RunVth(ctx context.Context, model Model, opts Options) (*Run, error) {
	deck, err := e.buildDeck(model, opts)
	if err != nil {
		return nil, err
	}

	workDir, err := os.MkdirTemp("", "rilla-run-")
	if err != nil {
		return nil, fmt.Errorf("creating scratch directory: %w", err)
	}
	if !opts.KeepFiles {
		defer os.RemoveAll(workDir)
	}

	netPath := filepath.Join(workDir, "vth_test.net")
	rawPath := filepath.Join(workDir, "vth_test.raw")
	logPath := filepath.Join(workDir, "vth_test.log")
	if err := os.WriteFile(netPath, []byte(deck.Render()), 0o644); err != nil {
		return nil, fmt.Errorf("writing netlist: %w", err)
	}

	solverPath := opts.SolverPath
	if solverPath == "" {
		solverPath = defaultSolverBinary
	}
	monitoring.Logf("external engine: running %s on %s for model %s", solverPath, netPath, model.Name)

	cmd := exec.CommandContext(ctx, solverPath, "-b", "-o", logPath, "-r", rawPath, netPath)
	cmd.Dir = workDir
	runErr := cmd.Run()

	logText := readLog(logPath)
	if runErr != nil {
		return nil, fmt.Errorf("solver failed for %s: %w%s", model.Name, runErr, logTail(logText))
	}

	raw, err := rawfile.ReadFile(rawPath)
	if err != nil {
		return nil, fmt.Errorf("reading solver output for %s: %w", model.Name, err)
	}

	run := &Run{
		Traces:      raw,
		SweepTempsC: opts.SweepTemps(),
		LogText:     logText,
	}
	if opts.KeepFiles {
		run.RawPath = rawPath
	}
	return run, nil
}

// buildDeck specializes the fixture template: point the DUT instance at the
// model, set the drain supply, and append the library and sweep cards.
func (e *External) buildDeck(model Model, opts Options) (*netlist.Deck, error) {
	deck, err := netlist.ParseDeck(vthTemplate)
	if err != nil {
		return nil, fmt.Errorf("parsing fixture template: %w", err)
	}
	if err := deck.SetSubcktModel("XU1", model.Name); err != nil {
		return nil, err
	}
	if err := deck.SetSourceValue("VD", opts.DrainV); err != nil {
		return nil, err
	}

	libPath, err := filepath.Abs(model.Path)
	if err != nil {
		return nil, fmt.Errorf("resolving library path: %w", err)
	}
	deck.AddInstructions(
		fmt.Sprintf(".lib %s", libPath),
		fmt.Sprintf(".dc V1 %g %g %g", opts.GateStart, opts.GateStop, opts.GateStep),
		fmt.Sprintf(".step temp %g %g %g", opts.TempStart, opts.TempStop, opts.TempStep),
	)
	return deck, nil
}

func readLog(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return string(data)
}

// logTail formats the last few log lines for inclusion in an error message.
func logTail(logText string) string {
	logText = strings.TrimSpace(logText)
	if logText == "" {
		return ""
	}
	lines := strings.Split(logText, "\n")
	if len(lines) > 5 {
		lines = lines[len(lines)-5:]
	}
	return "\nsolver log:\n" + strings.Join(lines, "\n")
}
