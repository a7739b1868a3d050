package solver

import (
	"fmt"
	"math"

	"github.com/rilla-project/rilla/internal/consts"
	"github.com/rilla-project/rilla/pkg/rawfile"
	"github.com/rilla-project/rilla/pkg/trace"
)

// Node and branch layout of the fixture: gate node v_g_d driven by the swept
// source V1, drain node vdd held by supply VD, DUT M1 with source and bulk
// grounded.
const (
	nodeGate    = 1
	nodeDrain   = 2
	branchGate  = 3
	branchDrain = 4
	matrixSize  = 4
)

const (
	maxIter = 100
	abstol  = 1e-12
	reltol  = 1e-6
	gmin    = 1e-12
)

// SweepOptions shape the characterization grid.
type SweepOptions struct {
	GateStart float64
	GateStop  float64
	GateStep  float64
	DrainV    float64
	TempsC    []float64
}

// DefaultSweepOptions is the standard Vth characterization sweep: gate
// 0-5 V in 50 mV steps, drain at 5 V, temperature stepped -55°C to 175°C
// in 10° increments.
func DefaultSweepOptions() SweepOptions {
	opts := SweepOptions{
		GateStart: 0,
		GateStop:  5,
		GateStep:  0.05,
		DrainV:    5,
	}
	for t := -55.0; t <= 175.0; t += 10.0 {
		opts.TempsC = append(opts.TempsC, t)
	}
	return opts
}

// SweepResult holds one Id-Vgs curve per temperature step.
type SweepResult struct {
	TempsC []float64
	GateV  [][]float64
	DrainI [][]float64
}

// TraceSet exposes the sweep under the conventional trace names.
func (r *SweepResult) TraceSet() *trace.MemTraceSet {
	ts := trace.NewMemTraceSet()
	ts.Add("V(v_g_d)", r.GateV)
	ts.Add("Id(M1)", r.DrainI)
	return ts
}

// RawData flattens the sweep into a stepped raw file for persistence.
func (r *SweepResult) RawData(title string) (*rawfile.RawData, error) {
	var scan, gate, drain []float64
	for step := range r.GateV {
		scan = append(scan, r.GateV[step]...)
		gate = append(gate, r.GateV[step]...)
		drain = append(drain, r.DrainI[step]...)
	}
	return rawfile.New(title, "DC transfer characteristic",
		[]string{"v-sweep", "V(v_g_d)", "Id(M1)"},
		[]string{"voltage", "voltage", "device_current"},
		[][]float64{scan, gate, drain},
		len(r.GateV) > 1)
}

// RunVthSweep solves the fixture across the gate and temperature grids.
func RunVthSweep(params MosfetParams, opts SweepOptions) (*SweepResult, error) {
	if opts.GateStep <= 0 || opts.GateStop < opts.GateStart {
		return nil, fmt.Errorf("invalid gate sweep: start %g stop %g step %g",
			opts.GateStart, opts.GateStop, opts.GateStep)
	}
	temps := opts.TempsC
	if len(temps) == 0 {
		temps = []float64{25}
	}

	result := &SweepResult{TempsC: append([]float64(nil), temps...)}

	for _, tempC := range temps {
		gateV, drainI, err := sweepOneTemp(params, opts, tempC)
		if err != nil {
			return nil, fmt.Errorf("sweep at %g°C: %w", tempC, err)
		}
		result.GateV = append(result.GateV, gateV)
		result.DrainI = append(result.DrainI, drainI)
	}
	return result, nil
}

func sweepOneTemp(params MosfetParams, opts SweepOptions, tempC float64) ([]float64, []float64, error) {
	mat, err := NewMatrix(matrixSize)
	if err != nil {
		return nil, nil, err
	}
	defer mat.Destroy()

	gateSrc := &VSource{Name: "V1", NPos: nodeGate, Value: opts.GateStart, BranchIdx: branchGate}
	drainSrc := &VSource{Name: "VD", NPos: nodeDrain, Value: opts.DrainV, BranchIdx: branchDrain}
	dut := &Mosfet{Name: "M1", Params: params, ND: nodeDrain, NG: nodeGate}

	devices := []device{gateSrc, drainSrc, dut}
	status := &Status{TempK: tempC + consts.KELVIN, Gmin: gmin}

	mat.SetupElements()

	var gateV, drainI []float64
	for vg := opts.GateStart; vg <= opts.GateStop+opts.GateStep/2; vg += opts.GateStep {
		gateSrc.Value = vg
		if err := solveOperatingPoint(mat, devices, status); err != nil {
			return nil, nil, fmt.Errorf("at Vgs=%g: %w", vg, err)
		}
		gateV = append(gateV, vg)
		drainI = append(drainI, dut.DrainCurrent())
	}
	return gateV, drainI, nil
}

// solveOperatingPoint runs Newton-Raphson to convergence at the present
// source values.
func solveOperatingPoint(mat *Matrix, devices []device, status *Status) error {
	var oldSolution []float64

	for iter := 0; iter < maxIter; iter++ {
		mat.Clear()
		if iter > 0 {
			for _, dev := range devices {
				if nl, ok := dev.(nonLinear); ok {
					nl.UpdateVoltages(oldSolution)
				}
			}
		}
		for _, dev := range devices {
			dev.Stamp(mat, status)
		}
		mat.LoadGmin(status.Gmin)

		if err := mat.Solve(); err != nil {
			return err
		}
		solution := mat.Solution()

		if iter > 0 && converged(oldSolution, solution) {
			// Leave device states linearized at the final solution.
			for _, dev := range devices {
				if nl, ok := dev.(nonLinear); ok {
					nl.UpdateVoltages(solution)
				}
			}
			for _, dev := range devices {
				if m, ok := dev.(*Mosfet); ok {
					m.evaluate(status)
				}
			}
			return nil
		}

		if oldSolution == nil {
			oldSolution = make([]float64, len(solution))
		}
		copy(oldSolution, solution)
	}
	return fmt.Errorf("failed to converge in %d iterations", maxIter)
}

func converged(oldSol, newSol []float64) bool {
	if len(oldSol) != len(newSol) {
		return false
	}
	for i := 1; i < len(newSol); i++ {
		diff := math.Abs(newSol[i] - oldSol[i])
		tol := reltol*math.Max(math.Abs(newSol[i]), math.Abs(oldSol[i])) + abstol
		if diff > tol {
			return false
		}
	}
	return true
}
