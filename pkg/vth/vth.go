// Package vth extracts MOSFET gate-source threshold voltages from simulated
// Id-Vgs sweeps.
package vth

import (
	"fmt"
	"math"
	"strings"

	"github.com/rilla-project/rilla/internal/monitoring"
	"github.com/rilla-project/rilla/pkg/trace"
)

// VgsTraceName is the gate-source voltage trace recorded by the Vth fixture.
const VgsTraceName = "V(v_g_d)"

// drainCurrentCandidates lists drain-current trace names in order of
// preference. Pin naming varies between device models (D vs DRAIN, subcircuit
// vs plain M device), so resolution tries each in turn, case-insensitively.
var drainCurrentCandidates = []string{
	"Ix(xu1:D)",
	"Ix(xu1:DRAIN)",
	"Id(XU1)",
	"Id(M1)",
}

// Params configures one extraction.
type Params struct {
	// TargetTempC selects the sweep step whose temperature is nearest.
	TargetTempC float64
	// TargetCurrentA is the drain current defining the threshold.
	TargetCurrentA float64
	// SweepValuesC is the temperature of each sweep step, in step order.
	// When empty, step 0 is analyzed.
	SweepValuesC []float64
}

// DefaultParams returns the standard characterization point: Vgs(th) at 25°C
// for Id = 1 mA.
func DefaultParams() Params {
	return Params{TargetTempC: 25.0, TargetCurrentA: 1e-3}
}

// Result is the outcome of one extraction. The waveforms are independent
// copies of the simulator data, kept for plotting.
type Result struct {
	ThresholdVoltage float64
	VoltageSamples   []float64
	CurrentSamples   []float64
}

// Extract computes the gate-source voltage at which the drain current reaches
// p.TargetCurrentA, at the sweep step nearest p.TargetTempC. It reads the
// trace set and mutates nothing; identical inputs produce identical results.
func Extract(ts trace.TraceSet, p Params) (*Result, error) {
	step := NearestStep(p.SweepValuesC, p.TargetTempC)
	if len(p.SweepValuesC) > 0 {
		monitoring.Logf("analyzing sweep step %d (temp ≈ %g°C)", step, p.SweepValuesC[step])
	} else {
		monitoring.Logf("no sweep values supplied; analyzing step 0")
	}

	vgsSig, ok := ts.Trace(VgsTraceName)
	if !ok {
		return nil, &TraceNotFoundError{
			Requested: []string{VgsTraceName},
			Available: ts.TraceNames(),
		}
	}

	idName, idSig, err := resolveDrainCurrent(ts)
	if err != nil {
		return nil, err
	}

	vgsWave, err := vgsSig.Waveform(step)
	if err != nil {
		return nil, &WaveformUnavailableError{Trace: VgsTraceName, Step: step, Err: err}
	}
	idWave, err := idSig.Waveform(step)
	if err != nil {
		return nil, &WaveformUnavailableError{Trace: idName, Step: step, Err: err}
	}

	if len(idWave) == 0 || len(idWave) != len(vgsWave) {
		return nil, &WaveformUnavailableError{
			Trace: idName,
			Step:  step,
			Err:   fmt.Errorf("waveform length mismatch: %d current vs %d voltage samples", len(idWave), len(vgsWave)),
		}
	}

	threshold := interp(p.TargetCurrentA, idWave, vgsWave)

	res := &Result{
		ThresholdVoltage: threshold,
		VoltageSamples:   append([]float64(nil), vgsWave...),
		CurrentSamples:   append([]float64(nil), idWave...),
	}
	return res, nil
}

// NearestStep returns the index of the sweep value closest to target, taking
// the first minimizer on ties. An empty sweep list selects step 0: a missing
// or garbled temperature list must not abort an extraction that is still
// analyzable at its first step.
func NearestStep(sweepValues []float64, target float64) int {
	best := 0
	bestDist := math.Inf(1)
	for i, v := range sweepValues {
		d := math.Abs(v - target)
		if d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best
}

// resolveDrainCurrent finds the drain-current signal by trying each candidate
// name against the available traces, case-insensitively, in preference order.
func resolveDrainCurrent(ts trace.TraceSet) (string, trace.Signal, error) {
	available := ts.TraceNames()
	for _, candidate := range drainCurrentCandidates {
		for _, name := range available {
			if strings.EqualFold(name, candidate) {
				monitoring.Logf("found drain current trace %q", name)
				sig, ok := ts.Trace(name)
				if !ok {
					continue
				}
				return name, sig, nil
			}
		}
	}
	return "", nil, &TraceNotFoundError{
		Requested: append([]string(nil), drainCurrentCandidates...),
		Available: available,
	}
}

// interp evaluates piecewise-linear interpolation of (xs, ys) at x, with the
// same semantics as numpy's interp: clamp to ys[0] below the first sample and
// to ys[len-1] above the last, interpolate between bracketing samples
// otherwise. xs is taken exactly as supplied; a DC sweep produces it
// monotonically increasing.
func interp(x float64, xs, ys []float64) float64 {
	n := len(xs)
	if x <= xs[0] {
		return ys[0]
	}
	if x >= xs[n-1] {
		return ys[n-1]
	}
	for i := 1; i < n; i++ {
		if x <= xs[i] {
			x0, x1 := xs[i-1], xs[i]
			y0, y1 := ys[i-1], ys[i]
			if x1 == x0 {
				return y0
			}
			return y0 + (y1-y0)*(x-x0)/(x1-x0)
		}
	}
	return ys[n-1]
}
