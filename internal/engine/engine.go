// Package engine orchestrates Vth characterization runs. Two backends
// implement the same capability: one shells out to an external SPICE solver
// and parses its raw file, the other solves the fixture with the built-in
// sparse-MNA core. Callers depend only on the Engine interface, so further
// solver backends slot in without touching the analysis side.
package engine

import (
	"context"

	"github.com/rilla-project/rilla/pkg/trace"
)

// Model identifies the device under test: a model name and the library file
// defining it.
type Model struct {
	Name string
	Path string
}

// Options shape the characterization grids. Zero values are replaced by the
// defaults from DefaultOptions.
type Options struct {
	GateStart float64
	GateStop  float64
	GateStep  float64
	DrainV    float64

	TempStart float64
	TempStop  float64
	TempStep  float64

	// SolverPath locates the external solver binary. Ignored by the
	// built-in backend.
	SolverPath string
	// KeepFiles leaves the scratch directory (netlist, log, raw file) in
	// place for inspection instead of deleting it after the run.
	KeepFiles bool
}

// DefaultOptions is the standard characterization recipe: gate 0-5 V in
// 50 mV steps, drain at 5 V, temperature stepped -55°C to 175°C by 10°.
func DefaultOptions() Options {
	return Options{
		GateStart: 0,
		GateStop:  5,
		GateStep:  0.05,
		DrainV:    5,
		TempStart: -55,
		TempStop:  175,
		TempStep:  10,
	}
}

// SweepTemps expands the temperature grid into the per-step value list the
// extractor needs.
func (o Options) SweepTemps() []float64 {
	if o.TempStep <= 0 || o.TempStop < o.TempStart {
		return nil
	}
	var temps []float64
	for t := o.TempStart; t <= o.TempStop+o.TempStep/2; t += o.TempStep {
		temps = append(temps, t)
	}
	return temps
}

// Run is a completed simulation: the recorded traces plus everything needed
// to diagnose or archive the run.
type Run struct {
	Traces      trace.TraceSet
	SweepTempsC []float64
	// LogText is the solver's log output, empty for the built-in backend.
	LogText string
	// RawPath points at the kept raw file; empty unless Options.KeepFiles.
	RawPath string
}

// Engine runs the Vth characterization fixture against one device model.
type Engine interface {
	Name() string
	RunVth(ctx context.Context, model Model, opts Options) (*Run, error)
}
